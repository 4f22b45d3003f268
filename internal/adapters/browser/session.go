package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"tweetlens/internal/dom"
	"tweetlens/pkg/log"
)

// suppressedClickJS dispatches a synthetic click on the addressed element
// while a one-shot capture-phase listener swallows the default action, so
// activating a show-more anchor expands in place instead of navigating to
// the status page. The listener removes itself on the first click; the
// setTimeout is the safety net for the case where the dispatch never
// reaches it.
const suppressedClickJS = `(() => {
	const el = document.querySelector(%q);
	if (!el) return false;
	const suppress = (ev) => {
		ev.preventDefault();
		ev.stopPropagation();
		document.removeEventListener('click', suppress, true);
	};
	document.addEventListener('click', suppress, true);
	setTimeout(() => document.removeEventListener('click', suppress, true), 500);
	el.dispatchEvent(new MouseEvent('click', { bubbles: true, cancelable: true, view: window }));
	return true;
})()`

// setAttrJS and removeAttrJS address an element by its structural CSS
// path and mutate one attribute. Both report whether the element was
// found, so a stale path surfaces as an error instead of a silent miss.
const setAttrJS = `(() => {
	const el = document.querySelector(%q);
	if (!el) return false;
	el.setAttribute(%q, %q);
	return true;
})()`

const removeAttrJS = `(() => {
	const el = document.querySelector(%q);
	if (!el) return false;
	el.removeAttribute(%q);
	return true;
})()`

// Session is one tab's view of a live page. It serves snapshots to the
// watcher and performs in-page activation for the extractor; both sides
// see the same tab, so an expansion is visible on the next snapshot.
type Session struct {
	ctx context.Context
	log *log.Logger
}

// NewSession wraps a tab context obtained from Pool.WithTab.
func NewSession(tabCtx context.Context) *Session {
	return &Session{
		ctx: tabCtx,
		log: log.Default().With("component", "session"),
	}
}

// Navigate loads a URL and waits for the timeline to render. Tweets keep
// streaming in afterwards; the watcher picks those up.
func (s *Session) Navigate(ctx context.Context, url string) error {
	runCtx, cancel := s.bound(ctx, 30*time.Second)
	defer cancel()

	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitVisible(`article[data-testid="tweet"]`, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

// Snapshot captures the page's current DOM as a parsed document.
func (s *Session) Snapshot(ctx context.Context) (*dom.Document, error) {
	runCtx, cancel := s.bound(ctx, 10*time.Second)
	defer cancel()

	var raw, url string
	err := chromedp.Run(runCtx,
		chromedp.Location(&url),
		chromedp.OuterHTML("html", &raw, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	return dom.ParseString(raw, url)
}

// Location returns the tab's current URL.
func (s *Session) Location(ctx context.Context) (string, error) {
	runCtx, cancel := s.bound(ctx, 5*time.Second)
	defer cancel()

	var url string
	if err := chromedp.Run(runCtx, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("location: %w", err)
	}
	return url, nil
}

// Activate clicks a show-more control in the live page with navigation
// suppressed. The control is addressed by its structural CSS path from
// the snapshot; if the live tree drifted and the element is gone, that
// is reported so the caller can fall back to unexpanded text.
func (s *Session) Activate(ctx context.Context, control *dom.Node) error {
	cssPath := control.CSSPath()
	if cssPath == "" {
		return fmt.Errorf("activate: control has no addressable path")
	}

	runCtx, cancel := s.bound(ctx, 5*time.Second)
	defer cancel()

	var clicked bool
	script := fmt.Sprintf(suppressedClickJS, cssPath)
	if err := chromedp.Run(runCtx, chromedp.Evaluate(script, &clicked)); err != nil {
		return fmt.Errorf("activate: %w", err)
	}
	if !clicked {
		return fmt.Errorf("activate: element not found at %s", cssPath)
	}
	s.log.Debug("expansion control activated", "path", cssPath)
	return nil
}

// Refresh re-snapshots the page after an activation.
func (s *Session) Refresh(ctx context.Context) (*dom.Document, error) {
	return s.Snapshot(ctx)
}

// SetMarker mirrors a processing-state attribute onto the live element,
// so the marker survives re-snapshots instead of living only in the
// parse the coordinator happens to hold.
func (s *Session) SetMarker(ctx context.Context, node *dom.Node, attr, value string) error {
	cssPath := node.CSSPath()
	if cssPath == "" {
		return fmt.Errorf("set marker: node has no addressable path")
	}

	runCtx, cancel := s.bound(ctx, 5*time.Second)
	defer cancel()

	var found bool
	script := fmt.Sprintf(setAttrJS, cssPath, attr, value)
	if err := chromedp.Run(runCtx, chromedp.Evaluate(script, &found)); err != nil {
		return fmt.Errorf("set marker: %w", err)
	}
	if !found {
		return fmt.Errorf("set marker: element not found at %s", cssPath)
	}
	return nil
}

// RemoveMarker clears a marker attribute from the live element.
func (s *Session) RemoveMarker(ctx context.Context, node *dom.Node, attr string) error {
	cssPath := node.CSSPath()
	if cssPath == "" {
		return fmt.Errorf("remove marker: node has no addressable path")
	}

	runCtx, cancel := s.bound(ctx, 5*time.Second)
	defer cancel()

	var found bool
	script := fmt.Sprintf(removeAttrJS, cssPath, attr)
	if err := chromedp.Run(runCtx, chromedp.Evaluate(script, &found)); err != nil {
		return fmt.Errorf("remove marker: %w", err)
	}
	if !found {
		return fmt.Errorf("remove marker: element not found at %s", cssPath)
	}
	return nil
}

// Scroll advances the timeline viewport so the host loads more tweets.
func (s *Session) Scroll(ctx context.Context) error {
	runCtx, cancel := s.bound(ctx, 5*time.Second)
	defer cancel()

	err := chromedp.Run(runCtx,
		chromedp.Evaluate(`window.scrollBy(0, window.innerHeight)`, nil),
	)
	if err != nil {
		return fmt.Errorf("scroll: %w", err)
	}
	return nil
}

// bound derives a deadline-bearing context that also honors both the
// caller's context and the tab's lifetime.
func (s *Session) bound(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithTimeout(s.ctx, d)
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() { stop(); cancel() }
}
