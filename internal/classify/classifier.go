// Package classify decides what a host element is: a tweet, an actions
// bar, or a text-expansion control. No single selector is trusted; every
// answer comes from an ordered chain of independently verifiable
// heuristics, most reliable first.
package classify

import (
	"regexp"
	"strings"

	"tweetlens/internal/config"
	"tweetlens/internal/dom"
)

// Heuristic identifies which rule accepted an element. Carried on the
// result so failures can be diagnosed when the host's markup drifts.
type Heuristic string

const (
	HeuristicNone              Heuristic = ""
	HeuristicAuthorPlusContent Heuristic = "author+content"
	HeuristicKnownContainer    Heuristic = "known-container"
	HeuristicArticleRole       Heuristic = "article-role"
	HeuristicQuotePattern      Heuristic = "quote-pattern"
	HeuristicPermalinkAnchor   Heuristic = "permalink-anchor"
	HeuristicContextIndicator  Heuristic = "context-indicator"
)

// Result is the transient outcome of one classification pass.
type Result struct {
	IsTweet bool
	Matched Heuristic
}

// Classifier answers structural questions about host elements.
type Classifier struct {
	cfg *config.Config
}

// New creates a classifier bound to the live selector config.
func New(cfg *config.Config) *Classifier {
	return &Classifier{cfg: cfg}
}

// statusHref matches permalink-shaped anchors: /<handle>/status/<numeric id>.
var statusHref = regexp.MustCompile(`(?:^|/)([A-Za-z0-9_]+)/status/(\d+)`)

// IsStatusHref reports whether an href points at a tweet permalink.
func IsStatusHref(href string) bool {
	return statusHref.MatchString(href)
}

// StatusID extracts the numeric id from a permalink href, or "".
func StatusID(href string) string {
	m := statusHref.FindStringSubmatch(href)
	if m == nil {
		return ""
	}
	return m[2]
}

// StatusHandle extracts the handle segment from a permalink href, or "".
// The host's anonymous form uses "/i/status/<id>", which carries no handle.
func StatusHandle(href string) string {
	m := statusHref.FindStringSubmatch(href)
	if m == nil || m[1] == "i" {
		return ""
	}
	return m[1]
}

// ClassifyTweet decides whether the element is a tweet container.
// Heuristics run most-specific first and short-circuit; elements already
// inside the pipeline are rejected before any heuristic runs.
func (c *Classifier) ClassifyTweet(n *dom.Node) Result {
	if n == nil || n.Tag() == "" {
		return Result{}
	}
	// Idempotence guard: never reclassify work in flight or done.
	if n.HasMarkerInChain(dom.MarkerProcessing) || n.HasMarkerInChain(dom.MarkerProcessed) {
		return Result{}
	}

	// Document-level containers match the content heuristics trivially
	// because they contain everything.
	switch n.Tag() {
	case "html", "body", "main":
		return Result{}
	}

	sel := c.cfg.Selectors()

	// A tweet never wraps another timeline slot. Anything holding a cell
	// below itself is a feed container, and marking one would shadow every
	// tweet that later streams into it.
	if sel.TimelineCell != "" {
		if wrapped := n.FindFirst(func(cur *dom.Node) bool {
			return cur.TestID() == sel.TimelineCell && !cur.Same(n)
		}); wrapped != nil {
			return Result{}
		}
	}

	if c.hasAuthorRegion(n, sel) &&
		(c.hasTextRegion(n, sel) || c.hasActionControl(n, sel) || hasTimestamp(n)) {
		return Result{IsTweet: true, Matched: HeuristicAuthorPlusContent}
	}

	for _, id := range sel.TweetContainers {
		if n.TestID() == id {
			return Result{IsTweet: true, Matched: HeuristicKnownContainer}
		}
	}

	if (n.Tag() == "article" || n.Role() == "article") &&
		(c.hasTextRegion(n, sel) || c.hasAuthorRegion(n, sel)) {
		return Result{IsTweet: true, Matched: HeuristicArticleRole}
	}

	if sel.QuoteIndicator != "" && n.ByTestID(sel.QuoteIndicator) != nil &&
		n.ByTestID(sel.QuoteContainer) != nil {
		return Result{IsTweet: true, Matched: HeuristicQuotePattern}
	}

	if c.hasPermalink(n) && (c.hasAuthorRegion(n, sel) || c.hasActionControl(n, sel)) {
		return Result{IsTweet: true, Matched: HeuristicPermalinkAnchor}
	}

	if sel.SocialContext != "" && n.ByTestID(sel.SocialContext) != nil &&
		c.hasAuthorRegion(n, sel) {
		return Result{IsTweet: true, Matched: HeuristicContextIndicator}
	}

	return Result{}
}

func (c *Classifier) hasAuthorRegion(n *dom.Node, sel config.Selectors) bool {
	return n.ByTestID(sel.UserName) != nil
}

func (c *Classifier) hasTextRegion(n *dom.Node, sel config.Selectors) bool {
	return n.ByTestID(sel.TweetText) != nil
}

func (c *Classifier) hasActionControl(n *dom.Node, sel config.Selectors) bool {
	for _, id := range sel.ActionControls {
		if n.ByTestID(id) != nil {
			return true
		}
	}
	return false
}

func hasTimestamp(n *dom.Node) bool {
	return n.FindFirst(func(cur *dom.Node) bool {
		return cur.Tag() == "time" && cur.Attr("datetime") != ""
	}) != nil
}

func (c *Classifier) hasPermalink(n *dom.Node) bool {
	return n.FindFirst(func(cur *dom.Node) bool {
		return cur.Tag() == "a" && IsStatusHref(cur.Attr("href"))
	}) != nil
}

// TimelineCell returns the timeline slot containing the tweet, or nil.
func (c *Classifier) TimelineCell(n *dom.Node) *dom.Node {
	cell := c.cfg.Selectors().TimelineCell
	return n.Closest(func(cur *dom.Node) bool { return cur.TestID() == cell })
}

// classHasFragment reports whether the element's class list contains the
// machine-generated fragment. Low confidence; callers must validate.
func classHasFragment(n *dom.Node, fragment string) bool {
	return fragment != "" && strings.Contains(n.Attr("class"), fragment)
}
