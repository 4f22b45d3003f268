package classify

import (
	"strings"
	"unicode"

	"tweetlens/internal/config"
	"tweetlens/internal/dom"
	"tweetlens/internal/domain"
)

// BarStrategy identifies which lookup located an actions bar.
type BarStrategy string

const (
	BarByGroupLabel      BarStrategy = "group-aria-label"
	BarByControlAncestor BarStrategy = "control-ancestor"
	BarByClassFragment   BarStrategy = "class-fragment"
	BarByDensestGroup    BarStrategy = "densest-group"
)

// AllBarStrategies lists the lookup chain in the order it runs.
// Logged whenever the whole chain fails.
var AllBarStrategies = []BarStrategy{
	BarByGroupLabel,
	BarByControlAncestor,
	BarByClassFragment,
	BarByDensestGroup,
}

// FindActionsBar locates the reply/repost/like/bookmark row inside a
// tweet element. Strategies run most-specific first; the first hit wins.
// On total failure it returns domain.ErrActionsBarNotFound and the caller
// may synthesize a fallback container instead.
func (c *Classifier) FindActionsBar(tweet *dom.Node) (*dom.Node, BarStrategy, error) {
	if tweet == nil {
		return nil, "", domain.ErrActionsBarNotFound
	}
	sel := c.cfg.Selectors()

	if bar := c.barByGroupLabel(tweet, sel); bar != nil {
		return bar, BarByGroupLabel, nil
	}
	if bar := c.barByControlAncestor(tweet, sel); bar != nil {
		return bar, BarByControlAncestor, nil
	}
	if bar := c.barByClassFragment(tweet, sel); bar != nil {
		return bar, BarByClassFragment, nil
	}
	if bar := c.barByDensestGroup(tweet, sel); bar != nil {
		return bar, BarByDensestGroup, nil
	}
	return nil, "", domain.ErrActionsBarNotFound
}

// barByGroupLabel finds a group-role descendant whose accessible label
// mentions an engagement count.
func (c *Classifier) barByGroupLabel(tweet *dom.Node, sel config.Selectors) *dom.Node {
	for _, group := range tweet.AllByRole("group") {
		label := strings.ToLower(group.AriaLabel())
		if label == "" {
			continue
		}
		for _, frag := range sel.ActionsBarLabels {
			if strings.Contains(label, frag) && containsDigit(label) {
				return group
			}
		}
	}
	return nil
}

// barByControlAncestor finds any canonical interaction control, then
// walks up to the nearest group-role container.
func (c *Classifier) barByControlAncestor(tweet *dom.Node, sel config.Selectors) *dom.Node {
	for _, id := range sel.ActionControls {
		control := tweet.ByTestID(id)
		if control == nil {
			continue
		}
		group := control.Closest(func(cur *dom.Node) bool { return cur.Role() == "group" })
		if group != nil && tweet.Contains(group) {
			return group
		}
	}
	return nil
}

// barByClassFragment matches machine-generated class fragments, validated
// by requiring at least one interaction control inside the candidate.
func (c *Classifier) barByClassFragment(tweet *dom.Node, sel config.Selectors) *dom.Node {
	for _, frag := range sel.ClassFragments {
		candidates := tweet.FindAll(func(cur *dom.Node) bool {
			return classHasFragment(cur, frag)
		})
		for _, cand := range candidates {
			if c.countControls(cand, sel) >= 1 {
				return cand
			}
		}
	}
	return nil
}

// barByDensestGroup enumerates group-role descendants and picks the one
// holding the most interaction controls, requiring at least two so that
// unrelated group containers never qualify.
func (c *Classifier) barByDensestGroup(tweet *dom.Node, sel config.Selectors) *dom.Node {
	var best *dom.Node
	bestCount := 0
	for _, group := range tweet.AllByRole("group") {
		if n := c.countControls(group, sel); n > bestCount {
			best, bestCount = group, n
		}
	}
	if bestCount >= 2 {
		return best
	}
	return nil
}

func (c *Classifier) countControls(n *dom.Node, sel config.Selectors) int {
	count := 0
	for _, id := range sel.ActionControls {
		if n.ByTestID(id) != nil {
			count++
		}
	}
	return count
}

func containsDigit(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}
