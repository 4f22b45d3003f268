package extract

import (
	"fmt"
	"strings"

	"tweetlens/internal/classify"
	"tweetlens/internal/config"
	"tweetlens/internal/dom"
	"tweetlens/internal/domain"
)

// Identity derives the stable id for a tweet element using the
// three-tier fallback: permalink status id, then a hash of author, text
// prefix and timestamp, then a hash of the structural DOM path. The
// result is deterministic for a given DOM state, which the coordinator's
// deduplication depends on.
func Identity(n *dom.Node, cls *classify.Classifier, sel config.Selectors, textPrefixLen int) (string, domain.IDTier) {
	if id := permalinkID(n, cls); id != "" {
		return id, domain.TierPermalink
	}

	author := primaryByTestID(n, cls, sel.UserName)
	text := primaryByTestID(n, cls, sel.TweetText)
	ts := primaryTimestamp(n, cls)
	if author != nil || text != nil {
		prefix := text.FlatText()
		if len(prefix) > textPrefixLen {
			prefix = prefix[:textPrefixLen]
		}
		key := strings.Join([]string{author.FlatText(), prefix, ts.Attr("datetime")}, "|")
		return fmt.Sprintf("content-%016x", dom.HashString(key)), domain.TierContent
	}

	return fmt.Sprintf("path-%016x", dom.HashString(n.Path())), domain.TierPath
}

// permalinkID returns the numeric status id of the primary tweet's
// permalink anchor, skipping anchors that belong to a quoted tweet.
func permalinkID(n *dom.Node, cls *classify.Classifier) string {
	anchor := primaryFind(n, cls, func(cur *dom.Node) bool {
		return cur.Tag() == "a" && classify.IsStatusHref(cur.Attr("href"))
	})
	return classify.StatusID(anchor.Attr("href"))
}

// primaryFind returns the first descendant matching pred whose ancestor
// chain does not enter a quoted-tweet container before the boundary.
func primaryFind(n *dom.Node, cls *classify.Classifier, pred func(*dom.Node) bool) *dom.Node {
	if n == nil {
		return nil
	}
	for _, cand := range n.FindAll(pred) {
		if !cls.InsideQuote(cand, n) {
			return cand
		}
	}
	return nil
}

func primaryAll(n *dom.Node, cls *classify.Classifier, pred func(*dom.Node) bool) []*dom.Node {
	if n == nil {
		return nil
	}
	var out []*dom.Node
	for _, cand := range n.FindAll(pred) {
		if !cls.InsideQuote(cand, n) {
			out = append(out, cand)
		}
	}
	return out
}

func primaryByTestID(n *dom.Node, cls *classify.Classifier, id string) *dom.Node {
	return primaryFind(n, cls, func(cur *dom.Node) bool { return cur.TestID() == id })
}

func primaryTimestamp(n *dom.Node, cls *classify.Classifier) *dom.Node {
	return primaryFind(n, cls, func(cur *dom.Node) bool {
		return cur.Tag() == "time" && cur.Attr("datetime") != ""
	})
}
