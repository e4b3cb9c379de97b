// Package server provides configuration helpers that define runtime defaults,
// validation, and rate-limiting parameters for the roomhub service.
package server

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Tyrowin/roomhub/internal/ratelimit"
	"github.com/Tyrowin/roomhub/internal/room"
	"github.com/Tyrowin/roomhub/internal/router"
)

// RateLimitConfig defines the parameters for per-connection frame rate limiting.
type RateLimitConfig struct {
	Burst          int
	RefillInterval time.Duration
}

// RoomConfig holds the coordinator limits applied to every room.
type RoomConfig struct {
	CodeLength      int
	MaxMembers      int
	MessageCooldown time.Duration
	PendingTTL      time.Duration
	MaxNameLength   int
	MaxTextLength   int
}

// Config holds the server configuration settings including security controls.
type Config struct {
	Port                string
	AllowedOrigins      []string
	MaxMessageSize      int64
	RateLimit           RateLimitConfig
	Room                RoomConfig
	CreateRoomPerMinute int
	LogLevel            string
	LogFormat           string
	GinMode             string
	ShutdownTimeout     time.Duration
}

const (
	defaultPort                = ":8080"
	defaultMaxMessageSize      = 64 * 1024
	defaultRateLimitBurst      = 20
	defaultRateLimitInterval   = time.Second
	defaultMaxNameLength       = 32
	defaultPendingTTL          = 10 * time.Minute
	defaultCreateRoomPerMinute = 10
	defaultShutdownTimeout     = 10 * time.Second
)

func defaultConfig() Config {
	return Config{
		Port: defaultPort,
		AllowedOrigins: []string{
			"http://localhost:8080",
		},
		MaxMessageSize: defaultMaxMessageSize,
		RateLimit: RateLimitConfig{
			Burst:          defaultRateLimitBurst,
			RefillInterval: defaultRateLimitInterval,
		},
		Room: RoomConfig{
			CodeLength:      room.DefaultCodeLength,
			MessageCooldown: ratelimit.DefaultWindow,
			PendingTTL:      defaultPendingTTL,
			MaxNameLength:   defaultMaxNameLength,
			MaxTextLength:   router.DefaultMaxTextLength,
		},
		CreateRoomPerMinute: defaultCreateRoomPerMinute,
		LogLevel:            "info",
		LogFormat:           "text",
		GinMode:             "release",
		ShutdownTimeout:     defaultShutdownTimeout,
	}
}

// sanitizeConfig replaces unusable values with defaults. It never fails.
func sanitizeConfig(cfg Config) Config {
	def := defaultConfig()

	if cfg.Port == "" {
		cfg.Port = def.Port
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = def.MaxMessageSize
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = def.RateLimit.Burst
	}
	if cfg.RateLimit.RefillInterval <= 0 {
		cfg.RateLimit.RefillInterval = def.RateLimit.RefillInterval
	}
	if cfg.Room.CodeLength <= 0 {
		cfg.Room.CodeLength = def.Room.CodeLength
	}
	if cfg.Room.MaxMembers < 0 {
		cfg.Room.MaxMembers = 0
	}
	if cfg.Room.MessageCooldown <= 0 {
		cfg.Room.MessageCooldown = def.Room.MessageCooldown
	}
	if cfg.Room.PendingTTL < 0 {
		cfg.Room.PendingTTL = 0
	}
	if cfg.Room.MaxNameLength <= 0 {
		cfg.Room.MaxNameLength = def.Room.MaxNameLength
	}
	if cfg.Room.MaxTextLength <= 0 {
		cfg.Room.MaxTextLength = def.Room.MaxTextLength
	}
	if cfg.CreateRoomPerMinute <= 0 {
		cfg.CreateRoomPerMinute = def.CreateRoomPerMinute
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = def.LogLevel
	}
	if cfg.LogFormat != "json" {
		cfg.LogFormat = "text"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = def.GinMode
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = def.ShutdownTimeout
	}

	cfg.AllowedOrigins = append([]string(nil), cfg.AllowedOrigins...)
	return cfg
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// NewConfigFromEnv creates a Config instance from environment variables.
// Falls back to default values if environment variables are not set.
func NewConfigFromEnv() *Config {
	cfg := defaultConfig()

	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Port = port
	}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = parseOrigins(origins)
	}
	if maxSize := os.Getenv("MAX_MESSAGE_SIZE"); maxSize != "" {
		cfg.MaxMessageSize = parseMaxMessageSize(maxSize, cfg.MaxMessageSize)
	}
	if burst := os.Getenv("RATE_LIMIT_BURST"); burst != "" {
		cfg.RateLimit.Burst = parseIntValue(burst, cfg.RateLimit.Burst)
	}
	if interval := os.Getenv("RATE_LIMIT_REFILL_INTERVAL"); interval != "" {
		cfg.RateLimit.RefillInterval = parseSeconds(interval, cfg.RateLimit.RefillInterval)
	}

	if n := os.Getenv("ROOM_CODE_LENGTH"); n != "" {
		cfg.Room.CodeLength = parseIntValue(n, cfg.Room.CodeLength)
	}
	if n := os.Getenv("MAX_ROOM_MEMBERS"); n != "" {
		cfg.Room.MaxMembers = parseIntValue(n, cfg.Room.MaxMembers)
	}
	if ms := os.Getenv("MESSAGE_COOLDOWN_MS"); ms != "" {
		if v := parseIntValue(ms, 0); v > 0 {
			cfg.Room.MessageCooldown = time.Duration(v) * time.Millisecond
		}
	}
	if ttl := os.Getenv("PENDING_ROOM_TTL"); ttl != "" {
		cfg.Room.PendingTTL = parseDuration(ttl, cfg.Room.PendingTTL)
	}
	if n := os.Getenv("MAX_NAME_LENGTH"); n != "" {
		cfg.Room.MaxNameLength = parseIntValue(n, cfg.Room.MaxNameLength)
	}
	if n := os.Getenv("MAX_TEXT_LENGTH"); n != "" {
		cfg.Room.MaxTextLength = parseIntValue(n, cfg.Room.MaxTextLength)
	}
	if n := os.Getenv("CREATE_ROOM_PER_MINUTE"); n != "" {
		cfg.CreateRoomPerMinute = parseIntValue(n, cfg.CreateRoomPerMinute)
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = strings.ToLower(level)
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		cfg.LogFormat = strings.ToLower(format)
	}
	if mode := os.Getenv("GIN_MODE"); mode != "" {
		cfg.GinMode = mode
	}

	return &cfg
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parseMaxMessageSize(value string, defaultValue int64) int64 {
	if size, err := strconv.ParseInt(value, 10, 64); err == nil && size > 0 {
		return size
	}
	return defaultValue
}

func parseIntValue(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

// parseSeconds accepts a bare number of seconds.
func parseSeconds(value string, defaultValue time.Duration) time.Duration {
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}

// parseDuration accepts Go duration syntax ("10m") or a bare number of
// seconds. "0" disables the feature it configures.
func parseDuration(value string, defaultValue time.Duration) time.Duration {
	if value == "0" {
		return 0
	}
	if d, err := time.ParseDuration(value); err == nil && d >= 0 {
		return d
	}
	return parseSeconds(value, defaultValue)
}
