// Package watch detects newly arrived host content and hands tweet
// elements to the coordinator in debounced batches. There is no mutation
// callback to subscribe to on a remote page, so the watcher polls
// snapshots and diffs them by structural signature; the poll interval
// doubles as the debounce window.
package watch

import (
	"context"
	"time"

	"tweetlens/internal/classify"
	"tweetlens/internal/config"
	"tweetlens/internal/dom"
	"tweetlens/pkg/log"
)

// Source provides live snapshots of the observed page.
type Source interface {
	// Snapshot captures and parses the page's current DOM.
	Snapshot(ctx context.Context) (*dom.Document, error)
	// Location returns the page's current URL, used to detect SPA
	// navigation that never reloads the document.
	Location(ctx context.Context) (string, error)
}

// Batch is one debounce window's worth of discovered tweet elements.
// Nodes are in DOM discovery order and belong to Doc.
type Batch struct {
	Doc    *dom.Document
	Tweets []*dom.Node
	URL    string
	// FullScan batches carry every tweet on the page, not only new ones;
	// they serve as the safety net against missed mutations.
	FullScan bool
	// NavigationReset is set when the URL changed since the last poll;
	// the coordinator clears its registry on it.
	NavigationReset bool
}

// Watcher polls a Source and emits batches of tweet elements.
type Watcher struct {
	src     Source
	cfg     *config.Config
	cls     *classify.Classifier
	log     *log.Logger
	out     chan Batch
	seen    map[uint64]struct{}
	lastURL string
	polls   int
	// pendingReset stays latched across failed polls until a batch
	// carrying the reset is actually delivered; losing it would leave the
	// coordinator tracking identities from the previous page.
	pendingReset bool
}

// New creates a watcher. Batches are delivered on Batches().
func New(src Source, cfg *config.Config, cls *classify.Classifier) *Watcher {
	return &Watcher{
		src:  src,
		cfg:  cfg,
		cls:  cls,
		log:  log.Default().With("component", "watch"),
		out:  make(chan Batch, 16),
		seen: make(map[uint64]struct{}),
	}
}

// Batches returns the discovery channel. Closed when Run returns.
func (w *Watcher) Batches() <-chan Batch { return w.out }

// Run observes until the context ends. It starts with a full scan, then
// polls on the debounce interval, promoting every Nth poll to a full
// rescan. A failing poll is logged and observation continues; one bad
// batch must never stop future observation.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.out)

	w.poll(ctx, true)

	interval := time.Duration(w.cfg.Heuristics().DebounceMS) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.polls++
			full := false
			if every := w.cfg.Heuristics().RescanEvery; every > 0 && w.polls%every == 0 {
				full = true
			}
			w.poll(ctx, full)
		}
	}
}

func (w *Watcher) poll(ctx context.Context, full bool) {
	defer func() {
		if rec := recover(); rec != nil {
			w.log.Error("observation pass panicked, continuing", "panic", rec)
		}
	}()

	url, err := w.src.Location(ctx)
	if err != nil {
		w.log.Debug("location query failed", "error", err)
	}

	if url != "" && w.lastURL != "" && url != w.lastURL {
		// SPA navigation: the host rebuilds its tree between "pages".
		w.pendingReset = true
		w.seen = make(map[uint64]struct{})
		w.log.Info("navigation detected", "from", w.lastURL, "to", url)
	}
	if url != "" {
		w.lastURL = url
	}
	if w.pendingReset {
		full = true
	}

	doc, err := w.src.Snapshot(ctx)
	if err != nil {
		w.log.Warn("snapshot failed", "error", err)
		return
	}

	tweets := w.discover(doc, full)
	if len(tweets) == 0 && !w.pendingReset {
		return
	}

	batch := Batch{Doc: doc, Tweets: tweets, URL: url, FullScan: full, NavigationReset: w.pendingReset}
	select {
	case w.out <- batch:
		w.pendingReset = false
	case <-ctx.Done():
	}
}

// discover walks the whole snapshot for tweet-shaped elements. A single
// host mutation can introduce a subtree holding many tweets at once, so
// the search always covers descendants; the signature set is what keeps
// unchanged content from being re-emitted on incremental polls.
func (w *Watcher) discover(doc *dom.Document, full bool) []*dom.Node {
	heur := w.cfg.Heuristics()
	var found []*dom.Node

	doc.Root().Walk(func(cur *dom.Node) bool {
		switch cur.Tag() {
		case "head", "script", "style", "svg", "meta", "link":
			return false
		}
		// Never rescan our own injected UI.
		if cur.IsOwnUI() {
			return false
		}
		// Declared-tiny elements are decorative; skip the subtree.
		if cw, ch := cur.ApproxSize(); (cw > 0 && cw < heur.MinElementWidth) ||
			(ch > 0 && ch < heur.MinElementHeight) {
			return false
		}

		if res := w.cls.ClassifyTweet(cur); res.IsTweet {
			sig := cur.Signature()
			_, known := w.seen[sig]
			w.seen[sig] = struct{}{}
			if full || !known {
				found = append(found, cur)
			}
			// Tweets do not nest; quoted tweets are the extractor's business.
			return false
		}
		return true
	})
	return found
}
