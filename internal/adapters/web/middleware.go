package web

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"tweetlens/pkg/log"
)

// RateLimiter tracks scan requests per IP. Scans hold the single browser
// tab for seconds at a time, so the limit is deliberately tight.
type RateLimiter struct {
	scans  map[string][]time.Time
	mu     sync.RWMutex
	limit  int
	window time.Duration
}

// NewRateLimiter creates a rate limiter allowing limit scans per window.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		scans:  make(map[string][]time.Time),
		limit:  limit,
		window: window,
	}
	go rl.cleanup()
	return rl
}

// RecordScan records a scan request for the given IP.
func (rl *RateLimiter) RecordScan(ip string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.scans[ip] = append(rl.scans[ip], time.Now())
}

// CanScan checks if the IP is allowed another scan.
func (rl *RateLimiter) CanScan(ip string) bool {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	cutoff := time.Now().Add(-rl.window)
	var recent int
	for _, t := range rl.scans[ip] {
		if t.After(cutoff) {
			recent++
		}
	}
	return recent < rl.limit
}

// cleanup periodically removes stale entries.
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	for range ticker.C {
		rl.mu.Lock()
		cutoff := time.Now().Add(-rl.window)
		for ip, timestamps := range rl.scans {
			var recent []time.Time
			for _, t := range timestamps {
				if t.After(cutoff) {
					recent = append(recent, t)
				}
			}
			if len(recent) == 0 {
				delete(rl.scans, ip)
			} else {
				rl.scans[ip] = recent
			}
		}
		rl.mu.Unlock()
	}
}

// RequestIDConfig returns the configuration for Fiber's requestid
// middleware. Uses X-Request-ID, generates a UUID if absent.
func RequestIDConfig() requestid.Config {
	return requestid.Config{
		Header:     "X-Request-ID",
		ContextKey: "requestid",
	}
}

// RequestIDToContextMiddleware bridges Fiber's requestid into pkg/log
// context. Must run after requestid.New().
func RequestIDToContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if id, ok := c.Locals("requestid").(string); ok && id != "" {
			c.SetUserContext(log.WithRequestID(c.UserContext(), id))
		}
		return c.Next()
	}
}

// RequestLoggerMiddleware logs each request as a structured entry. Must
// run after RequestIDToContextMiddleware.
func RequestLoggerMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		fields := []any{
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"ip", c.IP(),
			"user_agent", c.Get("User-Agent"),
		}
		if err != nil {
			fields = append(fields, "error", err.Error())
		}

		ctx := c.UserContext()
		switch {
		case status >= 500:
			log.Default().ErrorCtx(ctx, "request completed", fields...)
		case status >= 400:
			log.Default().WarnCtx(ctx, "request completed", fields...)
		default:
			log.Default().InfoCtx(ctx, "request completed", fields...)
		}
		return err
	}
}
