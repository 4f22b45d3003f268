package pipeline

import (
	"context"

	"tweetlens/internal/classify"
	"tweetlens/internal/dom"
	"tweetlens/internal/domain"
)

// Sink receives every record the pipeline produces. Implementations
// handle their own durability; a sink error is logged and never aborts
// processing of other elements.
type Sink interface {
	OnTweetExtracted(ctx context.Context, rec *domain.TweetRecord) error
	OnThreadExtracted(ctx context.Context, rec *domain.ThreadRecord) error
}

// FailureFunc is the diagnostic hook fired when every heuristic for an
// element is exhausted. Never required for correctness.
type FailureFunc func(elementPath string, attempted []classify.BarStrategy)

// Refresher re-snapshots the observed page. Retries consult it so they
// see a newer render; retrying against the same parsed tree could never
// change the outcome.
type Refresher interface {
	Refresh(ctx context.Context) (*dom.Document, error)
}

// MarkerWriter mirrors marker attributes into the live page. Snapshot
// nodes are parse-local, so without write-back a marker would vanish on
// the next snapshot and idempotence would rest on the registry alone.
type MarkerWriter interface {
	SetMarker(ctx context.Context, node *dom.Node, attr, value string) error
	RemoveMarker(ctx context.Context, node *dom.Node, attr string) error
}

// Injector attaches the UI affordance to a processed tweet. The
// extension-side collaborator is out of scope here; the default
// implementation just marks the actions bar so injection is observable
// and idempotence is testable.
type Injector interface {
	InjectAffordance(ctx context.Context, tweet, actionsBar *dom.Node) bool
}

// MarkerInjector is the default Injector: it stamps the actions bar with
// the affordance marker attribute.
type MarkerInjector struct{}

func (MarkerInjector) InjectAffordance(ctx context.Context, tweet, actionsBar *dom.Node) bool {
	if actionsBar == nil {
		return false
	}
	actionsBar.SetAttr(dom.MarkerAffordance, "1")
	return true
}
