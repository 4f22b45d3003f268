package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tweetlens/internal/adapters/cache"
	"tweetlens/internal/domain"
	"tweetlens/pkg/log"
)

// Archive is the durable lookup side of the store.
type Archive interface {
	GetTweet(ctx context.Context, id string) (*domain.TweetRecord, error)
}

// PageScanner runs a bounded live-page scan.
type PageScanner interface {
	ScanPage(ctx context.Context, url string, window time.Duration) (*ScanResult, error)
}

// GetTweetService resolves single-status lookups cache-first, then
// archive, then a live scan of the status page.
type GetTweetService struct {
	cache   *cache.MemoryCache
	archive Archive
	scanner PageScanner
	log     *log.Logger
}

// NewGetTweetService wires the lookup chain. archive may be nil.
func NewGetTweetService(c *cache.MemoryCache, archive Archive, scanner PageScanner) *GetTweetService {
	return &GetTweetService{
		cache:   c,
		archive: archive,
		scanner: scanner,
		log:     log.Default().With("component", "get_tweet"),
	}
}

// GetTweet returns the tweet at /username/status/id.
func (s *GetTweetService) GetTweet(ctx context.Context, username, id string) (*domain.TweetRecord, error) {
	key := cache.NormalizedKey(username, id)
	if rec := s.cache.Get(key); rec != nil {
		s.log.DebugCtx(ctx, "cache hit", "key", key)
		return rec, nil
	}

	if s.archive != nil {
		rec, err := s.archive.GetTweet(ctx, id)
		if err == nil {
			s.cache.Set(key, rec)
			return rec, nil
		}
		if !errors.Is(err, domain.ErrTweetNotFound) {
			s.log.WarnCtx(ctx, "archive lookup failed", "id", id, "error", err)
		}
	}

	url := fmt.Sprintf("https://x.com/%s/status/%s", username, id)
	result, err := s.scanner.ScanPage(ctx, url, 10*time.Second)
	if err != nil {
		return nil, err
	}

	rec := pickStatus(result.Tweets, username, id)
	if rec == nil {
		return nil, domain.ErrTweetNotFound
	}
	s.cache.Set(key, rec)
	return rec, nil
}

// pickStatus finds the requested status among everything the scan saw;
// a status page also renders replies and context tweets.
func pickStatus(tweets []*domain.TweetRecord, username, id string) *domain.TweetRecord {
	marker := "/status/" + id
	for _, t := range tweets {
		if t.ID == id {
			return t
		}
		if strings.Contains(t.SourceURL, marker) {
			return t
		}
	}
	// Fall back to the page author's first tweet.
	for _, t := range tweets {
		if strings.EqualFold(t.Author.Handle, username) {
			return t
		}
	}
	return nil
}
