// Package ratelimit throttles command endpoints per user so double clicks and
// client retry storms do not turn into bursts of conflicting transitions.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"dealership-backend/internal/auth"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type Limiter struct {
	mu      sync.Mutex
	clients map[string]*entry
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
}

// New: perSecond istek/saniye, burst anlık izin.
func New(perSecond float64, burst int) *Limiter {
	return &Limiter{
		clients: make(map[string]*entry),
		limit:   rate.Limit(perSecond),
		burst:   burst,
		idleTTL: 10 * time.Minute,
	}
}

func (l *Limiter) get(key string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.clients[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = e
	}
	e.lastSeen = now
	return e.limiter
}

// Allow reports whether key may run one more command now.
func (l *Limiter) Allow(key string) bool {
	now := time.Now()
	return l.get(key, now).AllowN(now, 1)
}

// Cleanup drops limiters idle for longer than the TTL.
func (l *Limiter) Cleanup(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, e := range l.clients {
		if now.Sub(e.lastSeen) > l.idleTTL {
			delete(l.clients, key)
			removed++
		}
	}
	return removed
}

func (l *Limiter) StartCleanup(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				l.Cleanup(now)
			}
		}
	}()
}

// Middleware keys on the authenticated user; anonymous requests fall back to
// the client IP.
func (l *Limiter) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := "ip:" + c.IP()
		if userID, ok := c.Locals(auth.CtxUserIDKey).(uint); ok && userID != 0 {
			key = fmt.Sprintf("user:%d", userID)
		}

		if !l.Allow(key) {
			c.Set(fiber.HeaderRetryAfter, "1")
			return fiber.NewError(fiber.StatusTooManyRequests, "Çok fazla istek, lütfen tekrar deneyin")
		}
		return c.Next()
	}
}
