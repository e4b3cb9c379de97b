package server

import (
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/roomhub/internal/room"
	"github.com/Tyrowin/roomhub/internal/router"
)

func TestRoomLifecycleOverWebSocket(t *testing.T) {
	_, ts := startTestServer(t, nil)
	code := createRoom(t, ts, "full")

	alice := dialRoom(t, ts, code, "alice")
	var session router.SessionOut
	alice.waitFor(router.EventSession, &session)
	assert.Equal(t, code, session.Room)
	assert.Equal(t, "alice", session.Name)
	assert.Equal(t, room.ModeFull, session.Mode)
	alice.waitFor(router.EventDisableGameStart, nil)

	bob := dialRoom(t, ts, code, "bob")
	var bobSession router.SessionOut
	bob.waitFor(router.EventSession, &bobSession)

	var count router.CountOut
	alice.waitFor(router.EventUserCount, &count)
	assert.Equal(t, 2, count.Count)
	alice.waitFor(router.EventEnableGameStart, nil)
	bob.waitFor(router.EventEnableGameStart, nil)

	alice.send(router.EventMessage, map[string]any{"text": "hello <bob>"})
	var msg router.MessageOut
	bob.waitFor(router.EventMessage, &msg)
	assert.Equal(t, "alice", msg.Name)
	assert.Equal(t, "hello &lt;bob&gt;", msg.Message)

	// Game: whoever holds X moves into the centre.
	alice.send(router.EventGameStartRequest, nil)
	var startA, startB router.GameStartOut
	alice.waitFor(router.EventGameStart, &startA)
	bob.waitFor(router.EventGameStart, &startB)

	x := alice
	if startA.YourSymbol != "X" {
		x = bob
	}
	x.send(router.EventGameMove, map[string]any{"index": 4, "symbol": "X"})

	var update router.GameUpdateOut
	alice.waitFor(router.EventGameUpdate, &update)
	assert.Equal(t, 4, update.Index)
	assert.Equal(t, "O", update.NextTurn)

	// Bob leaves mid-game.
	require.NoError(t, bob.conn.Close())

	var reset router.ReasonOut
	alice.waitFor(router.EventGameReset, &reset)
	assert.Equal(t, "bob left the game. Game reset.", reset.Reason)
	alice.waitFor(router.EventUserCount, &count)
	assert.Equal(t, 1, count.Count)
	alice.waitFor(router.EventDisableGameStart, nil)
}

func TestCallSignallingOverWebSocket(t *testing.T) {
	_, ts := startTestServer(t, nil)
	code := createRoom(t, ts, "full")

	alice := dialRoom(t, ts, code, "alice")
	var aliceSession router.SessionOut
	alice.waitFor(router.EventSession, &aliceSession)

	bob := dialRoom(t, ts, code, "bob")
	var bobSession router.SessionOut
	bob.waitFor(router.EventSession, &bobSession)

	carol := dialRoom(t, ts, code, "carol")
	carol.waitFor(router.EventSession, nil)

	alice.send(router.EventCallRequest, map[string]any{"targetId": bobSession.ID})
	var req router.CallRequestOut
	bob.waitFor(router.EventCallRequest, &req)
	assert.Equal(t, aliceSession.ID, req.RequesterID)

	bob.send(router.EventCallResponse, map[string]any{"requesterId": aliceSession.ID, "action": "accept"})
	alice.waitFor(router.EventCallAccepted, nil)

	alice.send(router.EventOffer, map[string]any{"payload": map[string]any{"sdp": "v=0"}})
	var offer router.RelayOut
	bob.waitFor(router.EventOffer, &offer)
	assert.Equal(t, aliceSession.ID, offer.FromID)
	assert.JSONEq(t, `{"sdp":"v=0"}`, string(offer.Payload))

	require.NoError(t, alice.conn.Close())
	var ended router.NameOut
	bob.waitFor(router.EventCallEnd, &ended)
	assert.Equal(t, "alice", ended.Name)

	carol.expectNone(router.EventOffer, 200*time.Millisecond)
}

func TestRoomDeletedWhenLastClientLeaves(t *testing.T) {
	srv, ts := startTestServer(t, nil)
	code := createRoom(t, ts, "privacy")

	alice := dialRoom(t, ts, code, "alice")
	alice.waitFor(router.EventSession, nil)
	require.NoError(t, alice.conn.Close())

	assert.Eventually(t, func() bool {
		var found bool
		_ = srv.Hub().Do(t.Context(), func(rt *router.Router) {
			_, found = rt.Store().Get(code)
		})
		return !found
	}, 2*time.Second, 20*time.Millisecond)
}

func TestFrameFloodIsThrottled(t *testing.T) {
	_, ts := startTestServer(t, func(cfg *Config) {
		cfg.RateLimit = RateLimitConfig{Burst: 2, RefillInterval: time.Minute}
	})
	code := createRoom(t, ts, "full")

	alice := dialRoom(t, ts, code, "alice")
	alice.waitFor(router.EventSession, nil)
	bob := dialRoom(t, ts, code, "bob")
	bob.waitFor(router.EventSession, nil)

	for i := 0; i < 5; i++ {
		alice.send(router.EventTyping, nil)
	}

	received := 0
	deadline := time.Now().Add(300 * time.Millisecond)
	for {
		env, err := bob.next(time.Until(deadline))
		if err != nil {
			require.True(t, isTimeout(err), "unexpected read error: %v", err)
			break
		}
		if env.Event == router.EventTyping {
			received++
		}
	}
	assert.Equal(t, 2, received)
}

func TestOversizedFrameClosesConnection(t *testing.T) {
	_, ts := startTestServer(t, func(cfg *Config) { cfg.MaxMessageSize = 64 })
	code := createRoom(t, ts, "full")

	alice := dialRoom(t, ts, code, "alice")
	alice.waitFor(router.EventSession, nil)

	big := make([]byte, 256)
	for i := range big {
		big[i] = 'a'
	}
	require.NoError(t, alice.conn.WriteMessage(websocket.TextMessage, big))

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := alice.next(time.Until(deadline)); err != nil {
			assert.False(t, isTimeout(err), "connection should have been closed")
			return
		}
	}
}

func TestShutdownDisconnectsClients(t *testing.T) {
	srv, ts := startTestServer(t, nil)
	code := createRoom(t, ts, "full")

	clients := make([]*wsClient, 3)
	for i := range clients {
		clients[i] = dialRoom(t, ts, code, "user")
		clients[i].waitFor(router.EventSession, nil)
	}

	require.NoError(t, srv.Hub().Shutdown(2*time.Second))

	for _, c := range clients {
		deadline := time.Now().Add(2 * time.Second)
		for {
			if _, err := c.next(time.Until(deadline)); err != nil {
				assert.False(t, isTimeout(err), "client was not disconnected")
				break
			}
		}
	}
}
