// Package server holds the token-bucket limiters that protect the hub from
// frame floods and the HTTP API from room-creation abuse.
package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// newFrameLimiter allows capacity frames per interval, bursting up to capacity.
func newFrameLimiter(capacity int, interval time.Duration) *rate.Limiter {
	if capacity <= 0 {
		capacity = 1
	}
	if interval <= 0 {
		interval = time.Second
	}
	return rate.NewLimiter(rate.Limit(float64(capacity)/interval.Seconds()), capacity)
}

// ipLimiter hands out one limiter per client IP. Entries idle for longer
// than idleAfter are dropped whenever the table grows past maxEntries.
type ipLimiter struct {
	mu         sync.Mutex
	limit      rate.Limit
	burst      int
	entries    map[string]*ipEntry
	idleAfter  time.Duration
	maxEntries int
	now        func() time.Time
}

type ipEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPLimiter(perMinute int) *ipLimiter {
	if perMinute <= 0 {
		perMinute = defaultCreateRoomPerMinute
	}
	return &ipLimiter{
		limit:      rate.Every(time.Minute / time.Duration(perMinute)),
		burst:      perMinute,
		entries:    make(map[string]*ipEntry),
		idleAfter:  10 * time.Minute,
		maxEntries: 10000,
		now:        time.Now,
	}
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.entries[ip]
	if !ok {
		if len(l.entries) >= l.maxEntries {
			l.evictIdle(now)
		}
		e = &ipEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[ip] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

func (l *ipLimiter) evictIdle(now time.Time) {
	for ip, e := range l.entries {
		if now.Sub(e.lastSeen) > l.idleAfter {
			delete(l.entries, ip)
		}
	}
}

// middleware rejects requests from an IP that exhausted its budget.
func (l *ipLimiter) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse{Error: "Too many rooms created. Try again later."})
			return
		}
		c.Next()
	}
}
