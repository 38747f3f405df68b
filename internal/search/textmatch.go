package search

import (
	"strings"

	"golang.org/x/net/html"

	"pagefind/internal/dom"
)

// TextMatcher finds the most specific elements whose text contains a
// query. It is not safe for concurrent use; each invocation resets its
// cache since the document may have changed since the previous one.
type TextMatcher struct {
	cache *dom.TextCache
}

// NewTextMatcher returns a matcher with an empty cache.
func NewTextMatcher() *TextMatcher {
	return &TextMatcher{cache: dom.NewTextCache()}
}

// Match walks the descendants of root depth-first and returns, in document
// order, the deepest elements whose normalized text contains the
// normalized query. No result is an ancestor of another.
func (m *TextMatcher) Match(root *html.Node, query string) []*html.Node {
	m.cache.Reset()
	needle := dom.Normalize(query)
	if root == nil || needle == "" {
		return nil
	}

	var accepted []*html.Node
	dom.Walk(root, func(el *html.Node) bool {
		if !strings.Contains(m.cache.Normalized(el), needle) {
			// Descendant text is part of ours, so nothing below can match.
			return false
		}
		accepted = accept(accepted, el)
		return true
	})

	dom.SortDocumentOrder(accepted)
	return accepted
}

// accept adds candidate to the result set, dropping accepted ancestors of
// the candidate, unless the candidate itself contains an accepted element.
func accept(accepted []*html.Node, candidate *html.Node) []*html.Node {
	kept := accepted[:0]
	for _, a := range accepted {
		if a != candidate && dom.Contains(a, candidate) {
			continue
		}
		kept = append(kept, a)
	}
	for _, a := range kept {
		if dom.Contains(candidate, a) {
			return kept
		}
	}
	return append(kept, candidate)
}
