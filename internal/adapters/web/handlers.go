// Package web exposes the scanner over a JSON API.
package web

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"tweetlens/internal/domain"
	"tweetlens/internal/usecases"
	"tweetlens/pkg/log"
)

// Scanner runs a bounded live-page scan.
type Scanner interface {
	ScanPage(ctx context.Context, url string, window time.Duration) (*usecases.ScanResult, error)
}

// TweetGetter resolves a single status lookup.
type TweetGetter interface {
	GetTweet(ctx context.Context, username, id string) (*domain.TweetRecord, error)
}

// TweetLister pages through the archive.
type TweetLister interface {
	RecentTweets(ctx context.Context, limit int) ([]*domain.TweetRecord, error)
}

// Handlers contains the HTTP handlers.
type Handlers struct {
	scanner  Scanner
	getTweet TweetGetter
	lister   TweetLister
	limiter  *RateLimiter
}

// NewHandlers creates the handler set. lister may be nil when no archive
// is configured.
func NewHandlers(scanner Scanner, getTweet TweetGetter, lister TweetLister, limiter *RateLimiter) *Handlers {
	return &Handlers{
		scanner:  scanner,
		getTweet: getTweet,
		lister:   lister,
		limiter:  limiter,
	}
}

type scanRequest struct {
	URL     string `json:"url"`
	Seconds int    `json:"seconds"`
}

// Scan runs an observation window against a live page and returns
// everything it detected.
func (h *Handlers) Scan(c *fiber.Ctx) error {
	var req scanRequest
	if err := c.BodyParser(&req); err != nil {
		return h.jsonError(c, fiber.StatusBadRequest, "request body must be JSON with a url field")
	}
	if !ValidScanURL(req.URL) {
		return h.jsonError(c, fiber.StatusBadRequest, "url must point at twitter.com or x.com")
	}

	ip := c.IP()
	if !h.limiter.CanScan(ip) {
		log.Default().WarnCtx(c.UserContext(), "scan rate limited", "ip", ip)
		return h.jsonError(c, fiber.StatusTooManyRequests, "too many scans, try again later")
	}
	h.limiter.RecordScan(ip)

	ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Minute)
	defer cancel()

	result, err := h.scanner.ScanPage(ctx, req.URL, time.Duration(req.Seconds)*time.Second)
	if err != nil {
		log.Default().ErrorCtx(ctx, "scan failed", "url", req.URL, "error", err)
		return h.domainError(c, err)
	}
	return c.JSON(result)
}

// GetTweet resolves /api/tweet/:username/:id, cache-first.
func (h *Handlers) GetTweet(c *fiber.Ctx) error {
	username := c.Params("username")
	id := c.Params("id")

	ctx, cancel := context.WithTimeout(c.UserContext(), 60*time.Second)
	defer cancel()

	rec, err := h.getTweet.GetTweet(ctx, username, id)
	if err != nil {
		log.Default().WarnCtx(ctx, "get tweet failed", "username", username, "id", id, "error", err)
		return h.domainError(c, err)
	}
	return c.JSON(rec)
}

// ListTweets returns the most recently archived tweets.
func (h *Handlers) ListTweets(c *fiber.Ctx) error {
	if h.lister == nil {
		return h.jsonError(c, fiber.StatusNotFound, "no archive configured")
	}
	limit := c.QueryInt("limit", 50)

	tweets, err := h.lister.RecentTweets(c.UserContext(), limit)
	if err != nil {
		log.Default().ErrorCtx(c.UserContext(), "list tweets failed", "error", err)
		return h.jsonError(c, fiber.StatusInternalServerError, "archive unavailable")
	}
	if tweets == nil {
		tweets = []*domain.TweetRecord{}
	}
	return c.JSON(fiber.Map{"tweets": tweets})
}

// Health reports liveness.
func (h *Handlers) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// domainError maps domain sentinels to HTTP statuses.
func (h *Handlers) domainError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrTweetNotFound):
		return h.jsonError(c, fiber.StatusNotFound, "tweet not found, it may be private or deleted")
	case errors.Is(err, domain.ErrInvalidURL):
		return h.jsonError(c, fiber.StatusBadRequest, "that does not look like a status URL")
	case errors.Is(err, domain.ErrRateLimited):
		return h.jsonError(c, fiber.StatusTooManyRequests, "too many requests, try again later")
	case errors.Is(err, context.DeadlineExceeded):
		return h.jsonError(c, fiber.StatusGatewayTimeout, "the page took too long to respond")
	default:
		return h.jsonError(c, fiber.StatusBadGateway, "unable to read the page right now")
	}
}

func (h *Handlers) jsonError(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"error": msg})
}
