package classify

import (
	"strings"

	"tweetlens/internal/dom"
)

// FindShowMore returns the primary tweet's show-more control, or nil.
// Controls belonging to a quoted tweet nested inside the element are
// never returned: expanding those is the quoted author's content and
// activating them is not this tweet's business.
func (c *Classifier) FindShowMore(tweet *dom.Node) *dom.Node {
	return c.findExpansionControl(tweet, c.cfg.Selectors().ShowMore, "show more")
}

// FindShowLess returns the primary tweet's show-less control, or nil.
// Its presence confirms a prior expansion completed.
func (c *Classifier) FindShowLess(tweet *dom.Node) *dom.Node {
	return c.findExpansionControl(tweet, c.cfg.Selectors().ShowLess, "show less")
}

func (c *Classifier) findExpansionControl(tweet *dom.Node, testID, label string) *dom.Node {
	if tweet == nil {
		return nil
	}
	candidates := tweet.FindAll(func(cur *dom.Node) bool {
		if cur.TestID() == testID {
			return true
		}
		tag := cur.Tag()
		if tag != "a" && tag != "button" && cur.Role() != "button" {
			return false
		}
		return strings.EqualFold(cur.FlatText(), label)
	})
	for _, cand := range candidates {
		if !c.InsideQuote(cand, tweet) {
			return cand
		}
	}
	return nil
}

// InsideQuote reports whether the node's ancestor chain enters a
// quoted-tweet container before reaching the given tweet boundary.
func (c *Classifier) InsideQuote(n, boundary *dom.Node) bool {
	quote := c.cfg.Selectors().QuoteContainer
	for cur := n; cur != nil && !cur.Same(boundary); cur = cur.Parent() {
		if cur.TestID() == quote && !cur.Same(boundary) {
			return true
		}
	}
	return false
}
