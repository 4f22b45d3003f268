// Package pipeline is the top-level control loop: it drains discovery
// batches, deduplicates by derived identity, injects the UI affordance
// exactly once per tweet, and feeds extracted records to the sinks.
package pipeline

import (
	"context"
	"time"

	"tweetlens/internal/classify"
	"tweetlens/internal/config"
	"tweetlens/internal/dom"
	"tweetlens/internal/extract"
	"tweetlens/internal/thread"
	"tweetlens/internal/watch"
	"tweetlens/pkg/log"
)

// Coordinator orchestrates classification, extraction, thread
// reconstruction and affordance injection for discovered elements.
type Coordinator struct {
	cfg       *config.Config
	cls       *classify.Classifier
	ext       *extract.Extractor
	threads   *thread.Reconstructor
	reg       *Registry
	inj       Injector
	refresher Refresher
	markers   MarkerWriter
	sinks     []Sink
	onFailure FailureFunc
	log       *log.Logger

	// one emission per thread, keyed by the thread's first tweet id
	emittedThreads map[string]struct{}
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithSinks registers record consumers.
func WithSinks(sinks ...Sink) Option {
	return func(c *Coordinator) { c.sinks = append(c.sinks, sinks...) }
}

// WithInjector replaces the default marker injector.
func WithInjector(inj Injector) Option {
	return func(c *Coordinator) { c.inj = inj }
}

// WithFailureHook registers the exhausted-heuristics diagnostic hook.
func WithFailureHook(fn FailureFunc) Option {
	return func(c *Coordinator) { c.onFailure = fn }
}

// WithRefresher enables fresh-render retries for the actions-bar lookup.
// Without one, a failed lookup goes straight to fallback synthesis and
// recovery is left to the periodic rescan.
func WithRefresher(r Refresher) Option {
	return func(c *Coordinator) { c.refresher = r }
}

// WithMarkerWriter mirrors marker transitions into the live page.
func WithMarkerWriter(w MarkerWriter) Option {
	return func(c *Coordinator) { c.markers = w }
}

// New creates a coordinator. The registry is created owned-empty here;
// no other component ever touches it.
func New(cfg *config.Config, cls *classify.Classifier, ext *extract.Extractor, threads *thread.Reconstructor, opts ...Option) *Coordinator {
	c := &Coordinator{
		cfg:            cfg,
		cls:            cls,
		ext:            ext,
		threads:        threads,
		reg:            NewRegistry(),
		inj:            MarkerInjector{},
		log:            log.Default().With("component", "pipeline"),
		emittedThreads: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Registry exposes the processed-element registry for inspection.
// Callers must treat it as read-only; the coordinator is its sole writer.
func (c *Coordinator) Registry() *Registry { return c.reg }

// Run drains batches until the channel closes or the context ends.
func (c *Coordinator) Run(ctx context.Context, batches <-chan watch.Batch) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case batch, ok := <-batches:
			if !ok {
				return nil
			}
			c.handleBatch(ctx, batch)
		}
	}
}

// handleBatch processes one discovery batch in small fixed-size groups
// with a short yield between groups, so a large initial page never
// monopolizes the scheduler for a user-visible stretch.
func (c *Coordinator) handleBatch(ctx context.Context, batch watch.Batch) {
	if batch.NavigationReset {
		c.log.Info("navigation reset, clearing registry", "tracked", c.reg.Len())
		c.reg.Reset()
		c.emittedThreads = make(map[string]struct{})
	}

	heur := c.cfg.Heuristics()
	size := heur.BatchSize
	if size <= 0 {
		size = 1
	}

	for start := 0; start < len(batch.Tweets); start += size {
		end := start + size
		if end > len(batch.Tweets) {
			end = len(batch.Tweets)
		}
		for _, n := range batch.Tweets[start:end] {
			c.processElement(ctx, n)
		}
		if end < len(batch.Tweets) {
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Duration(heur.BatchYieldMS) * time.Millisecond):
			}
		}
	}
}

// processElement runs one element through the state machine. A panic
// anywhere inside is caught here: one element's failure never aborts its
// siblings in the batch.
func (c *Coordinator) processElement(ctx context.Context, n *dom.Node) {
	defer func() {
		if rec := recover(); rec != nil {
			c.log.Error("element processing panicked", "panic", rec, "path", n.Path())
		}
	}()

	// Re-classify: the guard inside rejects anything already marked
	// processing or processed, making repeat calls a cheap no-op.
	res := c.cls.ClassifyTweet(n)
	if !res.IsTweet {
		return
	}

	sel := c.cfg.Selectors()
	heur := c.cfg.Heuristics()

	// Deduplicate by derived identity before any expensive work.
	id, tier := extract.Identity(n, c.cls, sel, heur.TextPrefixLen)
	if c.reg.Seen(id) {
		c.log.Debug("duplicate element skipped", "id", id)
		return
	}

	// Unseen → Processing. Check-and-set with no suspension in between:
	// nothing can interleave on this goroutine.
	c.setMarker(ctx, n, dom.MarkerProcessing, id)
	c.reg.MarkProcessing(id)

	fresh, bar, strategy, err := c.findActionsBarWithRetry(ctx, n, id)
	if fresh != nil && !fresh.Same(n) {
		// A retry relocated the element in a newer snapshot; move the
		// in-flight marker along with it.
		c.removeMarker(ctx, n, dom.MarkerProcessing)
		c.setMarker(ctx, fresh, dom.MarkerProcessing, id)
		n = fresh
	}
	if err != nil {
		// Last resort: synthesize a container adjacent to the text region.
		bar = c.synthesizeFallbackBar(n, sel)
		if bar == nil {
			// Back toward Unseen; a later rescan retries once the host
			// finishes rendering. Never silent.
			c.removeMarker(ctx, n, dom.MarkerProcessing)
			c.reg.Forget(id)
			c.log.Warn("actions-bar heuristics exhausted",
				"id", id, "heuristic", res.Matched, "attempted", classify.AllBarStrategies, "path", n.Path())
			if c.onFailure != nil {
				c.onFailure(n.Path(), classify.AllBarStrategies)
			}
			return
		}
		c.log.Debug("using synthetic fallback actions bar", "id", id)
	}

	if !c.inj.InjectAffordance(ctx, n, bar) {
		c.removeMarker(ctx, n, dom.MarkerProcessing)
		c.reg.Forget(id)
		c.log.Warn("affordance injection refused", "id", id, "strategy", strategy)
		return
	}

	// Processing → Processed. The attribute marker survives a registry
	// reset; the registry survives the node being replaced.
	c.removeMarker(ctx, n, dom.MarkerProcessing)
	c.setMarker(ctx, n, dom.MarkerProcessed, id)
	c.reg.MarkProcessed(id)

	rec, err := c.ext.Extract(ctx, n)
	if err != nil {
		// Explicit extraction failure; the affordance stays, downstream
		// falls back to raw copy behavior.
		c.log.Warn("extraction failed", "id", id, "error", err)
		return
	}

	// Extraction may have found a higher-confidence identity (a permalink
	// that appeared after expansion). Re-key instead of reprocessing.
	if rec.ID != id {
		c.log.Debug("identity upgraded", "from", id, "to", rec.ID, "tier", rec.IDTier, "was", tier)
		c.reg.Rekey(id, rec.ID)
		c.setMarker(ctx, n, dom.MarkerProcessed, rec.ID)
		id = rec.ID
	}

	det := c.threads.Detect(ctx, n)
	if det.IsPartOfThread {
		for _, t := range det.Thread.Tweets {
			if t.ID == rec.ID {
				rec.Thread = t.Thread
				break
			}
		}
	}

	for _, s := range c.sinks {
		if err := s.OnTweetExtracted(ctx, rec); err != nil {
			c.log.Warn("tweet sink failed", "id", id, "error", err)
		}
	}

	if det.IsPartOfThread && len(det.Thread.Tweets) > 0 {
		key := det.Thread.Tweets[0].ID
		if _, done := c.emittedThreads[key]; !done {
			c.emittedThreads[key] = struct{}{}
			for _, s := range c.sinks {
				if err := s.OnThreadExtracted(ctx, det.Thread); err != nil {
					c.log.Warn("thread sink failed", "thread", key, "error", err)
				}
			}
		}
	}
}

// findActionsBarWithRetry tolerates a host page that has not finished
// rendering: bounded retries with short increasing delays, each against
// a fresh snapshot. A parsed tree never changes under us, so without a
// refresher there is nothing to wait for and the single attempt decides.
// It returns the node the winning attempt ran on, which may be a
// relocated copy from a newer snapshot.
func (c *Coordinator) findActionsBarWithRetry(ctx context.Context, n *dom.Node, id string) (*dom.Node, *dom.Node, classify.BarStrategy, error) {
	bar, strategy, err := c.cls.FindActionsBar(n)
	if err == nil {
		return n, bar, strategy, nil
	}
	if c.refresher == nil {
		return n, nil, "", err
	}

	heur := c.cfg.Heuristics()
	path := n.Path()
	lastErr := err
	for attempt := 1; attempt <= heur.MaxRetries; attempt++ {
		delay := time.Duration(heur.RetryBaseDelayMS*attempt) * time.Millisecond
		select {
		case <-ctx.Done():
			return n, nil, "", ctx.Err()
		case <-time.After(delay):
		}

		doc, err := c.refresher.Refresh(ctx)
		if err != nil {
			c.log.Debug("retry snapshot failed", "id", id, "attempt", attempt, "error", err)
			lastErr = err
			continue
		}
		fresh := c.ext.Relocate(doc, id, path)
		if fresh == nil {
			c.log.Debug("element gone from fresh snapshot", "id", id, "attempt", attempt)
			continue
		}
		n = fresh
		bar, strategy, err := c.cls.FindActionsBar(n)
		if err == nil {
			return n, bar, strategy, nil
		}
		lastErr = err
	}
	return n, nil, "", lastErr
}

// setMarker writes the marker locally and mirrors it into the live page
// when a writer is wired. Snapshot nodes are parse-local; without the
// mirror the marker would vanish on the next snapshot. Write-back is
// best effort: the registry stays authoritative when the page refuses.
func (c *Coordinator) setMarker(ctx context.Context, n *dom.Node, attr, value string) {
	n.SetAttr(attr, value)
	if c.markers == nil {
		return
	}
	if err := c.markers.SetMarker(ctx, n, attr, value); err != nil {
		c.log.Debug("marker write-back failed", "attr", attr, "path", n.Path(), "error", err)
	}
}

func (c *Coordinator) removeMarker(ctx context.Context, n *dom.Node, attr string) {
	n.RemoveAttr(attr)
	if c.markers == nil {
		return
	}
	if err := c.markers.RemoveMarker(ctx, n, attr); err != nil {
		c.log.Debug("marker removal write-back failed", "attr", attr, "path", n.Path(), "error", err)
	}
}

// synthesizeFallbackBar creates a group container adjacent to the text
// region (or appended to the tweet when even that is missing).
func (c *Coordinator) synthesizeFallbackBar(n *dom.Node, sel config.Selectors) *dom.Node {
	attrs := map[string]string{
		dom.MarkerFallbackActions: "1",
		"role":                    "group",
	}
	if text := n.ByTestID(sel.TweetText); text != nil {
		if bar := text.InsertElementAfter("div", attrs); bar != nil {
			return bar
		}
	}
	return n.AppendElement("div", attrs)
}
