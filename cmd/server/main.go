package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Tyrowin/roomhub/internal/server"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, using environment variables directly")
	}

	config := server.NewConfigFromEnv()
	log := setupLogger(config)
	log.Info("Starting roomhub server...")

	srv := server.New(config, log)
	cfg := srv.Config()
	httpServer := server.CreateServer(cfg.Port, srv.Handler())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		srv.Hub().Run()
		return nil
	})
	g.Go(func() error {
		return server.StartServer(httpServer, log)
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("Shutdown signal received...")

		err := server.ShutdownServer(httpServer, cfg.ShutdownTimeout, log)
		if hubErr := srv.Hub().Shutdown(cfg.ShutdownTimeout); hubErr != nil && err == nil {
			err = hubErr
		}
		return err
	})

	if err := g.Wait(); err != nil {
		log.WithError(err).Error("Server stopped with error")
		os.Exit(1)
	}
	log.Info("Server stopped")
}

func setupLogger(cfg *server.Config) *logrus.Logger {
	log := logrus.New()
	if cfg.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("level", cfg.LogLevel).Warn("Invalid LOG_LEVEL, falling back to info")
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}
