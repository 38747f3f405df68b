package search

import (
	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"pagefind/internal/dom"
	"pagefind/internal/locator"
)

// HighlightSync keeps the overlay in step with the current match.
type HighlightSync struct {
	Engine  SelectorEngine
	Overlay Highlighter
	Doc     *dom.Document
	Config  Config
	Logger  *zerolog.Logger
}

// Sync pushes the current match to the overlay, or clears it when the state
// has no match.
func (h *HighlightSync) Sync(s State) {
	if h.Overlay == nil {
		return
	}
	el := s.Current()
	if el == nil {
		h.Overlay.ClearHighlight()
		return
	}
	h.Overlay.UpdateHighlight([]HighlightEntry{{
		Element: el,
		Color:   h.Config.MatchColor(),
		Tooltip: h.tooltip(el),
		Index:   s.CurrentIndex,
		Total:   len(s.Matches),
	}})
}

// tooltip describes el as locator code. The element may have been
// detached by a reload; the description is then computed within its
// detached subtree or falls back to the tag name.
func (h *HighlightSync) tooltip(el *html.Node) string {
	if !h.Config.ShowTooltips || h.Engine == nil {
		return ""
	}
	var (
		gen locator.Generated
		err error
	)
	read := func(*html.Node) {
		gen, err = h.Engine.GenerateSelector(el, locator.GenerateOptions{
			TestIDAttribute: h.Config.TestIDAttribute,
			Language:        h.Config.Language,
		})
	}
	if h.Doc != nil {
		h.Doc.Read(read)
	} else {
		read(nil)
	}
	if err != nil {
		h.Logger.Debug().Err(err).Msg("tooltip generation failed")
		return el.Data
	}
	return gen.Locator
}
