// Package usecases ties the detection pipeline to the browser and the
// serving layer: bounded live-page scans and cache-first single-tweet
// lookups.
package usecases

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tweetlens/internal/adapters/browser"
	"tweetlens/internal/classify"
	"tweetlens/internal/config"
	"tweetlens/internal/domain"
	"tweetlens/internal/extract"
	"tweetlens/internal/pipeline"
	"tweetlens/internal/thread"
	"tweetlens/internal/watch"
	"tweetlens/pkg/log"
)

const (
	defaultScanWindow = 15 * time.Second
	maxScanWindow     = 2 * time.Minute
)

// ScanResult is everything one observation window produced.
type ScanResult struct {
	URL     string                 `json:"url"`
	Tweets  []*domain.TweetRecord  `json:"tweets"`
	Threads []*domain.ThreadRecord `json:"threads"`
}

// ScanService runs bounded scans of live pages. Each scan owns the one
// browser tab for its whole window; concurrent requests queue on the tab.
type ScanService struct {
	pool  *browser.Pool
	cfg   *config.Config
	sinks []pipeline.Sink
	log   *log.Logger
}

// NewScanService wires the service. Sinks receive every record in
// addition to the records returned to the caller.
func NewScanService(pool *browser.Pool, cfg *config.Config, sinks ...pipeline.Sink) *ScanService {
	return &ScanService{
		pool:  pool,
		cfg:   cfg,
		sinks: sinks,
		log:   log.Default().With("component", "scan"),
	}
}

// ScanPage navigates to url, observes the timeline for the given window,
// and returns every tweet and thread detected. The window is clamped to
// a sane range; zero means the default.
func (s *ScanService) ScanPage(ctx context.Context, url string, window time.Duration) (*ScanResult, error) {
	if window <= 0 {
		window = defaultScanWindow
	}
	if window > maxScanWindow {
		window = maxScanWindow
	}

	collector := newCollectorSink()

	err := s.pool.WithTab(ctx, func(tabCtx context.Context) error {
		session := browser.NewSession(tabCtx)
		if err := session.Navigate(ctx, url); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrScanFailed, err)
		}

		cls := classify.New(s.cfg)
		ext := extract.New(s.cfg, cls, session)
		threads := thread.New(s.cfg, cls, ext)
		watcher := watch.New(session, s.cfg, cls)
		coord := pipeline.New(s.cfg, cls, ext, threads,
			pipeline.WithRefresher(session),
			pipeline.WithMarkerWriter(session),
			pipeline.WithSinks(append(append([]pipeline.Sink{}, s.sinks...), collector)...))

		scanCtx, cancel := context.WithTimeout(ctx, window)
		defer cancel()

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			watcher.Run(scanCtx)
		}()
		go func() {
			defer wg.Done()
			s.scrollLoop(scanCtx, session)
		}()

		// The coordinator drains until the watcher closes its channel at
		// the end of the window.
		coord.Run(context.Background(), watcher.Batches())
		wg.Wait()
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := collector.result(url)
	s.log.Info("scan finished", "url", url,
		"tweets", len(result.Tweets), "threads", len(result.Threads), "window", window.String())
	return result, nil
}

// scrollLoop nudges the viewport so the host keeps streaming in tweets
// during the observation window.
func (s *ScanService) scrollLoop(ctx context.Context, session *browser.Session) {
	interval := 2 * time.Duration(s.cfg.Heuristics().DebounceMS) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := session.Scroll(ctx); err != nil {
				s.log.Debug("scroll failed", "error", err)
			}
		}
	}
}

// collectorSink accumulates the records a single scan produces. Sink
// callbacks arrive from the coordinator goroutine while result is read
// after the scan ends, so it locks anyway.
type collectorSink struct {
	mu      sync.Mutex
	tweets  []*domain.TweetRecord
	threads []*domain.ThreadRecord
}

func newCollectorSink() *collectorSink {
	return &collectorSink{}
}

func (c *collectorSink) OnTweetExtracted(ctx context.Context, rec *domain.TweetRecord) error {
	c.mu.Lock()
	c.tweets = append(c.tweets, rec)
	c.mu.Unlock()
	return nil
}

func (c *collectorSink) OnThreadExtracted(ctx context.Context, rec *domain.ThreadRecord) error {
	c.mu.Lock()
	c.threads = append(c.threads, rec)
	c.mu.Unlock()
	return nil
}

func (c *collectorSink) result(url string) *ScanResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return &ScanResult{URL: url, Tweets: c.tweets, Threads: c.threads}
}
