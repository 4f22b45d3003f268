package dom

import (
	"strings"
	"testing"
)

func mustParse(t *testing.T, html string) *Document {
	t.Helper()
	doc, err := ParseString(html, "https://x.com/home")
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return doc
}

func TestByTestID_NestedElement_Found(t *testing.T) {
	// Arrange
	doc := mustParse(t, `<div><section><span data-testid="target">hi</span></section></div>`)

	// Act
	n := doc.Root().ByTestID("target")

	// Assert
	if n == nil {
		t.Fatal("expected to find element by testid")
	}
	if n.Tag() != "span" {
		t.Errorf("tag: got %q, want span", n.Tag())
	}
}

func TestAttr_MissingAttribute_ReturnsEmpty(t *testing.T) {
	doc := mustParse(t, `<div id="a"></div>`)
	n := doc.Root().FindFirst(func(cur *Node) bool { return cur.Tag() == "div" })

	if got := n.Attr("data-testid"); got != "" {
		t.Errorf("missing attr: got %q, want empty", got)
	}
}

func TestSetAttr_ThenRemoveAttr_RoundTrips(t *testing.T) {
	// Arrange
	doc := mustParse(t, `<div></div>`)
	n := doc.Root().FindFirst(func(cur *Node) bool { return cur.Tag() == "div" })

	// Act
	n.SetAttr("data-tl-processing", "x")
	hadIt := n.HasAttr("data-tl-processing")
	n.RemoveAttr("data-tl-processing")

	// Assert
	if !hadIt {
		t.Error("attribute should exist after SetAttr")
	}
	if n.HasAttr("data-tl-processing") {
		t.Error("attribute should be gone after RemoveAttr")
	}
}

func TestNilNode_AllAccessors_AreSafe(t *testing.T) {
	var n *Node

	if n.Tag() != "" || n.Attr("x") != "" || n.Path() != "" || n.FlatText() != "" {
		t.Error("nil node accessors must return zero values")
	}
	if n.Parent() != nil || n.NextSibling() != nil || n.PrevSibling() != nil {
		t.Error("nil node navigation must return nil")
	}
	n.SetAttr("x", "y") // must not panic
	n.Remove()
}

func TestClosest_FindsAncestorIncludingSelf(t *testing.T) {
	doc := mustParse(t, `<div data-testid="outer"><p><span data-testid="inner"></span></p></div>`)
	inner := doc.Root().ByTestID("inner")

	self := inner.Closest(func(cur *Node) bool { return cur.TestID() == "inner" })
	outer := inner.Closest(func(cur *Node) bool { return cur.TestID() == "outer" })
	none := inner.Closest(func(cur *Node) bool { return cur.TestID() == "absent" })

	if !self.Same(inner) {
		t.Error("Closest should consider the node itself")
	}
	if outer == nil || outer.Tag() != "div" {
		t.Error("Closest should find the ancestor div")
	}
	if none != nil {
		t.Error("Closest with no match should return nil")
	}
}

func TestContains_DescendantAndUnrelated(t *testing.T) {
	doc := mustParse(t, `<div data-testid="a"><span data-testid="b"></span></div><div data-testid="c"></div>`)
	a := doc.Root().ByTestID("a")
	b := doc.Root().ByTestID("b")
	c := doc.Root().ByTestID("c")

	if !a.Contains(b) {
		t.Error("a should contain b")
	}
	if a.Contains(c) {
		t.Error("a should not contain sibling c")
	}
	if !a.Contains(a) {
		t.Error("a should contain itself")
	}
}

func TestWalk_ReturningFalse_SkipsSubtree(t *testing.T) {
	// Arrange
	doc := mustParse(t, `<div data-testid="skip"><span data-testid="hidden"></span></div><p data-testid="visible"></p>`)

	// Act
	var visited []string
	doc.Root().Walk(func(cur *Node) bool {
		if id := cur.TestID(); id != "" {
			visited = append(visited, id)
		}
		return cur.TestID() != "skip"
	})

	// Assert
	joined := strings.Join(visited, ",")
	if strings.Contains(joined, "hidden") {
		t.Errorf("skipped subtree was visited: %v", visited)
	}
	if !strings.Contains(joined, "visible") {
		t.Errorf("sibling after skipped subtree not visited: %v", visited)
	}
}

func TestPath_SiblingIndexes_AreStable(t *testing.T) {
	doc := mustParse(t, `<div></div><div><span data-testid="x"></span></div>`)
	n := doc.Root().ByTestID("x")

	got := n.Path()

	if !strings.HasSuffix(got, "div[2]/span[1]") {
		t.Errorf("path: got %q, want suffix div[2]/span[1]", got)
	}
	if got != n.Path() {
		t.Error("path must be deterministic for an unchanged tree")
	}
}

func TestCSSPath_AddressesNthChild(t *testing.T) {
	doc := mustParse(t, `<div></div><div><a data-testid="x"></a></div>`)
	n := doc.Root().ByTestID("x")

	got := n.CSSPath()

	if !strings.HasSuffix(got, "div:nth-child(2) > a:nth-child(1)") {
		t.Errorf("css path: got %q", got)
	}
}

func TestSignature_TextChange_ChangesSignature(t *testing.T) {
	// Arrange - same structure, different text
	docA := mustParse(t, `<article data-testid="tweet">first version</article>`)
	docB := mustParse(t, `<article data-testid="tweet">second version</article>`)
	a := docA.Root().ByTestID("tweet")
	b := docB.Root().ByTestID("tweet")

	// Act / Assert
	if a.Signature() == b.Signature() {
		t.Error("replaced-in-place content must produce a new signature")
	}
	if a.Signature() != a.Signature() {
		t.Error("signature must be deterministic")
	}
}

func TestAppendElement_CreatesAttributedChild(t *testing.T) {
	doc := mustParse(t, `<article data-testid="tweet"></article>`)
	tweet := doc.Root().ByTestID("tweet")

	bar := tweet.AppendElement("div", map[string]string{"role": "group"})

	if bar == nil {
		t.Fatal("expected new element")
	}
	if bar.Role() != "group" {
		t.Errorf("role: got %q, want group", bar.Role())
	}
	if !tweet.Contains(bar) {
		t.Error("new element should be inside the parent")
	}
}

func TestInsertElementAfter_PlacesSibling(t *testing.T) {
	doc := mustParse(t, `<article><div data-testid="text"></div><div data-testid="after"></div></article>`)
	text := doc.Root().ByTestID("text")

	inserted := text.InsertElementAfter("div", map[string]string{"data-testid": "new"})

	if inserted == nil {
		t.Fatal("expected inserted element")
	}
	if sib := text.NextSibling(); sib == nil || sib.TestID() != "new" {
		t.Error("inserted element should be the immediate next sibling")
	}
}

func TestHasMarkerInChain_AncestorMarker_Detected(t *testing.T) {
	doc := mustParse(t, `<div data-tl-processed="id1"><article data-testid="tweet"></article></div>`)
	tweet := doc.Root().ByTestID("tweet")

	if !tweet.HasMarkerInChain(MarkerProcessed) {
		t.Error("marker on ancestor should be visible from descendant")
	}
	if tweet.HasMarkerInChain(MarkerProcessing) {
		t.Error("absent marker should not be detected")
	}
}

func TestIsOwnUI_AffordanceAndFallback_Recognized(t *testing.T) {
	doc := mustParse(t, `<div data-tl-affordance="1" data-testid="a"></div><div data-tl-fallback-actions="1" data-testid="b"></div><div data-testid="c"></div>`)

	if !doc.Root().ByTestID("a").IsOwnUI() || !doc.Root().ByTestID("b").IsOwnUI() {
		t.Error("injected UI must be recognized")
	}
	if doc.Root().ByTestID("c").IsOwnUI() {
		t.Error("plain host element misidentified as own UI")
	}
}
