package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/roomhub/internal/room"
	"github.com/Tyrowin/roomhub/internal/router"
)

const testOrigin = "http://localhost:8080"

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// startTestServer runs a Server with its hub behind an httptest server.
func startTestServer(t *testing.T, customize func(cfg *Config)) (*Server, *httptest.Server) {
	t.Helper()
	cfg := NewConfig()
	cfg.AllowedOrigins = []string{testOrigin}
	cfg.GinMode = "test"
	if customize != nil {
		customize(cfg)
	}

	srv := New(cfg, quietLogger(), room.WithRand(rand.New(rand.NewPCG(1, 2))))
	go srv.Hub().Run()
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Hub().Shutdown(2 * time.Second)
	})
	return srv, ts
}

func createRoom(t *testing.T, ts *httptest.Server, mode string) string {
	t.Helper()
	body, _ := json.Marshal(createRoomRequest{Mode: mode})
	resp, err := http.Post(ts.URL+"/api/rooms", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out roomResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out.Code
}

func wsURL(ts *httptest.Server, code, name string) string {
	q := url.Values{}
	q.Set("room", code)
	q.Set("name", name)
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?" + q.Encode()
}

// wsClient splits batched frames and lets tests wait for a given event.
type wsClient struct {
	t       *testing.T
	conn    *websocket.Conn
	pending []router.Envelope
}

func dialRoom(t *testing.T, ts *httptest.Server, code, name string) *wsClient {
	t.Helper()
	header := http.Header{}
	header.Set("Origin", testOrigin)
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(ts, code, name), header)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return &wsClient{t: t, conn: conn}
}

func (c *wsClient) send(event string, data any) {
	c.t.Helper()
	frame := map[string]any{"event": event}
	if data != nil {
		frame["data"] = data
	}
	require.NoError(c.t, c.conn.WriteJSON(frame))
}

func (c *wsClient) next(timeout time.Duration) (router.Envelope, error) {
	for len(c.pending) == 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return router.Envelope{}, err
		}
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return router.Envelope{}, err
		}
		for _, line := range bytes.Split(raw, []byte{'\n'}) {
			var env router.Envelope
			if err := json.Unmarshal(line, &env); err != nil {
				return router.Envelope{}, err
			}
			c.pending = append(c.pending, env)
		}
	}
	env := c.pending[0]
	c.pending = c.pending[1:]
	return env, nil
}

// waitFor skips frames until event arrives and decodes its data into v.
func (c *wsClient) waitFor(event string, v any) {
	c.t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		env, err := c.next(time.Until(deadline))
		require.NoError(c.t, err, "waiting for %q", event)
		if env.Event != event {
			continue
		}
		if v != nil {
			require.NoError(c.t, json.Unmarshal(env.Data, v))
		}
		return
	}
	c.t.Fatalf("timed out waiting for %q", event)
}

// expectNone asserts that no frame of event arrives within timeout.
func (c *wsClient) expectNone(event string, timeout time.Duration) {
	c.t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return
		}
		env, err := c.next(remaining)
		if err != nil {
			if isTimeout(err) {
				return
			}
			c.t.Fatalf("unexpected read error: %v", err)
		}
		if env.Event == event {
			c.t.Fatalf("unexpected %q frame: %s", event, env.Data)
		}
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
