package extract

import (
	"context"
	"time"

	"tweetlens/internal/dom"
	"tweetlens/internal/domain"
)

// Expander activates a show-more control without letting the host
// navigate, and re-snapshots the page afterwards. The browser-backed
// implementation dispatches a synthetic click while a one-shot
// capture-phase handler suppresses the anchor's default navigation.
type Expander interface {
	Activate(ctx context.Context, control *dom.Node) error
	Refresh(ctx context.Context) (*dom.Document, error)
}

// NoopExpander serves static snapshots: activation does nothing and
// refresh returns the document unchanged. Extraction then proceeds with
// whatever text is already present.
type NoopExpander struct {
	Doc *dom.Document
}

func (e *NoopExpander) Activate(ctx context.Context, control *dom.Node) error { return nil }

func (e *NoopExpander) Refresh(ctx context.Context) (*dom.Document, error) { return e.Doc, nil }

// expand triggers content expansion on the primary tweet and polls a
// bounded number of times for confirmation: the show-more control gone
// or a show-less control present. It returns the freshest usable node;
// on timeout the caller proceeds with the best-effort state.
func (e *Extractor) expand(ctx context.Context, tweet *dom.Node) (*dom.Node, error) {
	control := e.cls.FindShowMore(tweet)
	if control == nil {
		return tweet, nil
	}

	if err := e.exp.Activate(ctx, control); err != nil {
		e.log.Warn("show-more activation failed", "error", err, "path", control.Path())
		return tweet, nil
	}

	heur := e.cfg.Heuristics()
	id, _ := Identity(tweet, e.cls, e.cfg.Selectors(), heur.TextPrefixLen)
	path := tweet.Path()

	latest := tweet
	for i := 0; i < heur.ExpandPollMax; i++ {
		select {
		case <-ctx.Done():
			return latest, ctx.Err()
		case <-time.After(time.Duration(heur.ExpandPollMS) * time.Millisecond):
		}

		doc, err := e.exp.Refresh(ctx)
		if err != nil {
			continue
		}
		fresh := e.Relocate(doc, id, path)
		if fresh == nil {
			continue
		}
		latest = fresh
		if e.cls.FindShowMore(fresh) == nil || e.cls.FindShowLess(fresh) != nil {
			return fresh, nil
		}
	}
	return latest, domain.ErrExpansionTimeout
}

// Relocate finds the same logical tweet in a fresh snapshot, preferring
// identity (permalink or content hash) over the structural path, which
// the host may have shifted by inserting cells.
func (e *Extractor) Relocate(doc *dom.Document, id, path string) *dom.Node {
	sel := e.cfg.Selectors()
	heur := e.cfg.Heuristics()

	// Shape test without the classifier's processed-marker guard: the
	// node being relocated is mid-processing and already marked.
	looksLikeTweet := func(cur *dom.Node) bool {
		if cur.Tag() == "article" || cur.Role() == "article" {
			return true
		}
		for _, tid := range sel.TweetContainers {
			if cur.TestID() == tid {
				return true
			}
		}
		return false
	}

	var byID, byPath *dom.Node
	doc.Root().Walk(func(cur *dom.Node) bool {
		if byID != nil {
			return false
		}
		if cur.Path() == path {
			byPath = cur
		}
		if !looksLikeTweet(cur) {
			return true
		}
		candID, _ := Identity(cur, e.cls, sel, heur.TextPrefixLen)
		if candID == id {
			byID = cur
			return false
		}
		// Tweets do not nest (quotes are handled separately), so skip inside.
		return false
	})
	if byID != nil {
		return byID
	}
	return byPath
}
