// Package dom wraps golang.org/x/net/html with the queries the detection
// pipeline needs: attribute and role lookup, ancestor and descendant
// walks, structural paths, and mutable marker attributes. Host markup is
// never trusted; every accessor tolerates missing nodes and attributes.
package dom

import (
	"fmt"
	"hash/fnv"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is one parsed snapshot of the host page.
type Document struct {
	root *html.Node
	url  string
}

// Parse reads an HTML document from r.
func Parse(r io.Reader, url string) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return &Document{root: root, url: url}, nil
}

// ParseString parses an HTML document from a string.
func ParseString(s, url string) (*Document, error) {
	return Parse(strings.NewReader(s), url)
}

// URL returns the location the snapshot was captured at.
func (d *Document) URL() string { return d.url }

// Root returns the document's root element.
func (d *Document) Root() *Node {
	return wrap(d.root)
}

// Node is one element in a snapshot.
type Node struct {
	n *html.Node
}

func wrap(n *html.Node) *Node {
	if n == nil {
		return nil
	}
	return &Node{n: n}
}

// Same reports whether two wrappers point at the same underlying node.
func (n *Node) Same(other *Node) bool {
	return n != nil && other != nil && n.n == other.n
}

// Tag returns the lowercase element name, or "" for non-elements.
func (n *Node) Tag() string {
	if n == nil || n.n.Type != html.ElementNode {
		return ""
	}
	return strings.ToLower(n.n.Data)
}

// Attr returns the value of the named attribute, or "".
func (n *Node) Attr(name string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

// HasAttr reports whether the attribute exists, even if empty.
func (n *Node) HasAttr(name string) bool {
	if n == nil {
		return false
	}
	for _, a := range n.n.Attr {
		if a.Key == name {
			return true
		}
	}
	return false
}

// SetAttr sets or replaces an attribute.
func (n *Node) SetAttr(name, value string) {
	if n == nil {
		return
	}
	for i, a := range n.n.Attr {
		if a.Key == name {
			n.n.Attr[i].Val = value
			return
		}
	}
	n.n.Attr = append(n.n.Attr, html.Attribute{Key: name, Val: value})
}

// RemoveAttr deletes an attribute if present.
func (n *Node) RemoveAttr(name string) {
	if n == nil {
		return
	}
	for i, a := range n.n.Attr {
		if a.Key == name {
			n.n.Attr = append(n.n.Attr[:i], n.n.Attr[i+1:]...)
			return
		}
	}
}

// TestID returns the host's data-testid attribute.
func (n *Node) TestID() string { return n.Attr("data-testid") }

// Role returns the element's ARIA role.
func (n *Node) Role() string { return n.Attr("role") }

// AriaLabel returns the element's accessible label.
func (n *Node) AriaLabel() string { return n.Attr("aria-label") }

// Parent returns the parent element, or nil at the document boundary.
func (n *Node) Parent() *Node {
	if n == nil || n.n.Parent == nil || n.n.Parent.Type != html.ElementNode {
		return nil
	}
	return wrap(n.n.Parent)
}

// Children returns the element children in order.
func (n *Node) Children() []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for c := n.n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, wrap(c))
		}
	}
	return out
}

// NextSibling returns the next element sibling, or nil.
func (n *Node) NextSibling() *Node {
	if n == nil {
		return nil
	}
	for c := n.n.NextSibling; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return wrap(c)
		}
	}
	return nil
}

// PrevSibling returns the previous element sibling, or nil.
func (n *Node) PrevSibling() *Node {
	if n == nil {
		return nil
	}
	for c := n.n.PrevSibling; c != nil; c = c.PrevSibling {
		if c.Type == html.ElementNode {
			return wrap(c)
		}
	}
	return nil
}

// Closest walks from the node upward (including itself) and returns the
// first node matching pred, or nil.
func (n *Node) Closest(pred func(*Node) bool) *Node {
	for cur := n; cur != nil; cur = cur.Parent() {
		if pred(cur) {
			return cur
		}
	}
	return nil
}

// Contains reports whether other is n or a descendant of n.
func (n *Node) Contains(other *Node) bool {
	if n == nil || other == nil {
		return false
	}
	for cur := other.n; cur != nil; cur = cur.Parent {
		if cur == n.n {
			return true
		}
	}
	return false
}

// Walk visits n and its element descendants in DOM (preorder) order.
// Returning false from fn skips the node's subtree.
func (n *Node) Walk(fn func(*Node) bool) {
	if n == nil {
		return
	}
	if n.n.Type == html.ElementNode && !fn(wrap(n.n)) {
		return
	}
	for c := n.n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			wrap(c).Walk(fn)
		}
	}
}

// FindFirst returns the first descendant (including n) matching pred.
func (n *Node) FindFirst(pred func(*Node) bool) *Node {
	var found *Node
	n.Walk(func(cur *Node) bool {
		if found != nil {
			return false
		}
		if pred(cur) {
			found = cur
			return false
		}
		return true
	})
	return found
}

// FindAll returns every descendant (including n) matching pred, in DOM order.
func (n *Node) FindAll(pred func(*Node) bool) []*Node {
	var out []*Node
	n.Walk(func(cur *Node) bool {
		if pred(cur) {
			out = append(out, cur)
		}
		return true
	})
	return out
}

// ByTestID returns the first descendant with the given data-testid.
func (n *Node) ByTestID(id string) *Node {
	return n.FindFirst(func(cur *Node) bool { return cur.TestID() == id })
}

// AllByTestID returns every descendant with the given data-testid.
func (n *Node) AllByTestID(id string) []*Node {
	return n.FindAll(func(cur *Node) bool { return cur.TestID() == id })
}

// ByRole returns the first descendant with the given ARIA role.
func (n *Node) ByRole(role string) *Node {
	return n.FindFirst(func(cur *Node) bool { return cur.Role() == role })
}

// AllByRole returns every descendant with the given ARIA role.
func (n *Node) AllByRole(role string) []*Node {
	return n.FindAll(func(cur *Node) bool { return cur.Role() == role })
}

// AllByTag returns every descendant with the given tag name.
func (n *Node) AllByTag(tag string) []*Node {
	return n.FindAll(func(cur *Node) bool { return cur.Tag() == tag })
}

// childIndex returns the node's 1-based position among element siblings.
func (n *Node) childIndex() int {
	idx := 1
	for c := n.n.PrevSibling; c != nil; c = c.PrevSibling {
		if c.Type == html.ElementNode {
			idx++
		}
	}
	return idx
}

// Path returns a structural path like "html/body/div[2]/article[1]".
// It is stable for an unchanged snapshot and feeds the tier-3 identity hash.
func (n *Node) Path() string {
	if n == nil {
		return ""
	}
	var segs []string
	for cur := n; cur != nil; cur = cur.Parent() {
		segs = append(segs, fmt.Sprintf("%s[%d]", cur.Tag(), cur.childIndex()))
	}
	for i, j := 0, len(segs)-1; i < j; i, j = i+1, j-1 {
		segs[i], segs[j] = segs[j], segs[i]
	}
	return strings.Join(segs, "/")
}

// CSSPath returns a querySelector-compatible address for the node,
// used to re-locate it inside the live page.
func (n *Node) CSSPath() string {
	if n == nil {
		return ""
	}
	var segs []string
	for cur := n; cur != nil; cur = cur.Parent() {
		if cur.Parent() == nil {
			segs = append(segs, cur.Tag())
		} else {
			segs = append(segs, fmt.Sprintf("%s:nth-child(%d)", cur.Tag(), cur.childIndex()))
		}
	}
	for i, j := 0, len(segs)-1; i < j; i, j = i+1, j-1 {
		segs[i], segs[j] = segs[j], segs[i]
	}
	return strings.Join(segs, " > ")
}

// Signature is a structural fingerprint used by the watcher to tell new
// nodes from ones it has already handed off. It deliberately includes a
// text prefix so a replaced-in-place tweet reads as new content.
func (n *Node) Signature() uint64 {
	h := fnv.New64a()
	h.Write([]byte(n.Path()))
	h.Write([]byte{'|'})
	h.Write([]byte(n.TestID()))
	h.Write([]byte{'|'})
	flat := n.FlatText()
	if len(flat) > 40 {
		flat = flat[:40]
	}
	h.Write([]byte(flat))
	return h.Sum64()
}

// HashString hashes an arbitrary string with the same function the
// signature uses. Shared by the identity derivation in extract.
func HashString(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}

// AppendElement creates a child element with the given attributes and
// appends it, returning the new node. Used to synthesize fallback
// containers when the host never renders one.
func (n *Node) AppendElement(tag string, attrs map[string]string) *Node {
	if n == nil {
		return nil
	}
	el := &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}
	for k, v := range attrs {
		el.Attr = append(el.Attr, html.Attribute{Key: k, Val: v})
	}
	n.n.AppendChild(el)
	return wrap(el)
}

// InsertElementAfter creates a sibling element immediately after n.
func (n *Node) InsertElementAfter(tag string, attrs map[string]string) *Node {
	if n == nil || n.n.Parent == nil {
		return nil
	}
	el := &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}
	for k, v := range attrs {
		el.Attr = append(el.Attr, html.Attribute{Key: k, Val: v})
	}
	parent := n.n.Parent
	parent.InsertBefore(el, n.n.NextSibling)
	return wrap(el)
}

// Remove detaches the node from its parent.
func (n *Node) Remove() {
	if n == nil || n.n.Parent == nil {
		return
	}
	n.n.Parent.RemoveChild(n.n)
}

// SetText replaces the node's children with a single text node.
func (n *Node) SetText(s string) {
	if n == nil {
		return
	}
	for c := n.n.FirstChild; c != nil; {
		next := c.NextSibling
		n.n.RemoveChild(c)
		c = next
	}
	n.n.AppendChild(&html.Node{Type: html.TextNode, Data: s})
}
