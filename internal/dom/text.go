package dom

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

var blockTags = map[string]bool{
	"div": true, "p": true, "li": true, "article": true,
	"section": true, "blockquote": true, "tr": true,
}

// Text returns the node's text content with line structure preserved:
// <br> and closing block elements become newlines, emoji images
// contribute their alt text, scripts and styles are skipped.
func (n *Node) Text() string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	collectText(n.n, &sb)
	return CleanPreserveNewlines(sb.String())
}

// FlatText returns the node's text content collapsed to a single line.
func (n *Node) FlatText() string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	collectText(n.n, &sb)
	return Clean(sb.String())
}

func collectText(n *html.Node, sb *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(n.Data)
	case html.ElementNode:
		switch strings.ToLower(n.Data) {
		case "br":
			sb.WriteString("\n")
			return
		case "script", "style", "svg":
			return
		case "img":
			// The host renders emoji as <img alt="…">.
			for _, a := range n.Attr {
				if a.Key == "alt" && a.Val != "" {
					sb.WriteString(a.Val)
				}
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collectText(c, sb)
		}
		if blockTags[strings.ToLower(n.Data)] {
			sb.WriteString("\n")
		}
	}
}

// TextWithAnchors is like Text but hands every anchor to resolve, which
// decides what the anchor contributes (visible text, full href, nothing).
func (n *Node) TextWithAnchors(resolve func(href, inner string) string) string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	collectTextAnchors(n.n, &sb, resolve)
	return CleanPreserveNewlines(sb.String())
}

func collectTextAnchors(n *html.Node, sb *strings.Builder, resolve func(href, inner string) string) {
	if n.Type == html.ElementNode && strings.ToLower(n.Data) == "a" {
		var href string
		for _, a := range n.Attr {
			if a.Key == "href" {
				href = a.Val
			}
		}
		var inner strings.Builder
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collectText(c, &inner)
		}
		sb.WriteString(resolve(href, Clean(inner.String())))
		return
	}
	switch n.Type {
	case html.TextNode:
		sb.WriteString(n.Data)
	case html.ElementNode:
		switch strings.ToLower(n.Data) {
		case "br":
			sb.WriteString("\n")
			return
		case "script", "style", "svg":
			return
		case "img":
			for _, a := range n.Attr {
				if a.Key == "alt" && a.Val != "" {
					sb.WriteString(a.Val)
				}
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collectTextAnchors(c, sb, resolve)
		}
		if blockTags[strings.ToLower(n.Data)] {
			sb.WriteString("\n")
		}
	}
}

var (
	horizontalWS = regexp.MustCompile(`[^\S\n]+`)
	manyNewlines = regexp.MustCompile(`\n{3,}`)
	anyWS        = regexp.MustCompile(`\s+`)
)

// Clean collapses all whitespace runs to single spaces and trims.
func Clean(text string) string {
	return strings.TrimSpace(anyWS.ReplaceAllString(text, " "))
}

// CleanPreserveNewlines normalizes horizontal whitespace, collapses runs
// of blank lines to one, and trims each line.
func CleanPreserveNewlines(text string) string {
	text = horizontalWS.ReplaceAllString(text, " ")
	text = manyNewlines.ReplaceAllString(text, "\n\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

var styleDimension = regexp.MustCompile(`(width|height)\s*:\s*(\d+)(?:\.\d+)?px`)

// ApproxSize reports the element's declared width and height, read from
// attributes or inline style. Zero means undeclared, not zero-sized.
func (n *Node) ApproxSize() (w, h int) {
	if n == nil {
		return 0, 0
	}
	if v, err := strconv.Atoi(n.Attr("width")); err == nil {
		w = v
	}
	if v, err := strconv.Atoi(n.Attr("height")); err == nil {
		h = v
	}
	for _, m := range styleDimension.FindAllStringSubmatch(n.Attr("style"), -1) {
		v, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		switch m[1] {
		case "width":
			if w == 0 {
				w = v
			}
		case "height":
			if h == 0 {
				h = v
			}
		}
	}
	return w, h
}
