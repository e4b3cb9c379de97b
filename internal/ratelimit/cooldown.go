// Package ratelimit gates how often a connection may post chat messages.
package ratelimit

import (
	"time"

	"golang.org/x/time/rate"
)

// DefaultWindow is the minimum gap between two accepted chat messages.
const DefaultWindow = 500 * time.Millisecond

// Cooldown tracks, per key, when the last message was accepted. A key that
// has never been seen is always allowed. Rejected attempts do not move the
// window. Keys must be released when their connection goes away.
//
// Cooldown is not safe for concurrent use; the hub event loop owns it.
type Cooldown struct {
	window   time.Duration
	limiters map[string]*rate.Limiter
}

// NewCooldown returns a Cooldown with the given window. Non-positive windows
// fall back to DefaultWindow.
func NewCooldown(window time.Duration) *Cooldown {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Cooldown{
		window:   window,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Window reports the configured cooldown.
func (c *Cooldown) Window() time.Duration {
	return c.window
}

// AllowAt reports whether key may send at now, and if so records the send.
func (c *Cooldown) AllowAt(key string, now time.Time) bool {
	lim, ok := c.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rate.Every(c.window), 1)
		c.limiters[key] = lim
	}
	return lim.AllowN(now, 1)
}

// Allow is AllowAt with the wall clock.
func (c *Cooldown) Allow(key string) bool {
	return c.AllowAt(key, time.Now())
}

// Release forgets key.
func (c *Cooldown) Release(key string) {
	delete(c.limiters, key)
}

// Len returns the number of tracked keys.
func (c *Cooldown) Len() int {
	return len(c.limiters)
}
