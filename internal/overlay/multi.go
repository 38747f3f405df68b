package overlay

import "pagefind/internal/search"

// Multi forwards every highlight to each of its highlighters in order.
type Multi []search.Highlighter

// UpdateHighlight implements search.Highlighter.
func (m Multi) UpdateHighlight(entries []search.HighlightEntry) {
	for _, h := range m {
		if h != nil {
			h.UpdateHighlight(entries)
		}
	}
}

// ClearHighlight implements search.Highlighter.
func (m Multi) ClearHighlight() {
	for _, h := range m {
		if h != nil {
			h.ClearHighlight()
		}
	}
}
