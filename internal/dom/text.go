package dom

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/cases"
)

// NormalizeWhitespace collapses runs of white space to one space and trims.
func NormalizeWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

// Normalize collapses white space and case-folds s. It is the form both
// element text and queries are compared in.
func Normalize(s string) string {
	return cases.Fold().String(NormalizeWhitespace(s))
}

// skipForText reports elements whose content never counts as page text.
func skipForText(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Noscript, atom.Head:
		return true
	case atom.Template:
		return !IsShadowRoot(n)
	}
	return false
}

type textEntry struct {
	full       string
	normalized string
}

// TextCache memoizes element text for the duration of one search. Entries
// are keyed by element or shadow root; a parent's text is assembled from its
// children's cached entries so a full walk stays linear.
type TextCache struct {
	entries map[*html.Node]*textEntry
	caser   cases.Caser
}

// NewTextCache returns an empty cache.
func NewTextCache() *TextCache {
	return &TextCache{
		entries: make(map[*html.Node]*textEntry),
		caser:   cases.Fold(),
	}
}

// Reset drops every entry. The tree may have changed since the last search.
func (c *TextCache) Reset() {
	c.entries = make(map[*html.Node]*textEntry)
	c.caser.Reset()
}

// Len reports how many nodes are cached.
func (c *TextCache) Len() int {
	return len(c.entries)
}

// Text returns the raw text content of n, shadow content included.
func (c *TextCache) Text(n *html.Node) string {
	return c.entry(n).full
}

// Normalized returns the white-space collapsed, case-folded text of n.
func (c *TextCache) Normalized(n *html.Node) string {
	e := c.entry(n)
	if e.normalized == "" && e.full != "" {
		e.normalized = c.caser.String(NormalizeWhitespace(e.full))
	}
	return e.normalized
}

func (c *TextCache) entry(n *html.Node) *textEntry {
	if e, ok := c.entries[n]; ok {
		return e
	}
	e := &textEntry{full: c.compute(n)}
	c.entries[n] = e
	return e
}

func (c *TextCache) compute(n *html.Node) string {
	if n.DataAtom == atom.Input {
		switch strings.ToLower(Attr(n, "type")) {
		case "button", "submit", "reset":
			return Attr(n, "value")
		}
		return ""
	}
	if skipForText(n) {
		return ""
	}
	var b strings.Builder
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		switch ch.Type {
		case html.TextNode:
			b.WriteString(ch.Data)
		case html.ElementNode:
			b.WriteString(c.entry(ch).full)
		}
	}
	return b.String()
}

// ElementText is a one-off, uncached text lookup.
func ElementText(n *html.Node) string {
	return NewTextCache().Text(n)
}
