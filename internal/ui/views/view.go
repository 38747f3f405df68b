package views

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"pagefind/internal/search"
)

// ViewState contains all the state needed for rendering
type ViewState struct {
	Width     int
	Source    string
	InputMode string
	Input     string
	Search    search.View
	Tooltip   string
	Outline   string
	Status    string
	StatusErr bool
	Help      string
}

// Renderer handles all view rendering
type Renderer struct {
	styles *Styles
}

// NewRenderer creates a new renderer
func NewRenderer(styles *Styles) *Renderer {
	return &Renderer{styles: styles}
}

// Styles returns the renderer's styles
func (r *Renderer) Styles() *Styles {
	return r.styles
}

// Render produces the complete view
func (r *Renderer) Render(state ViewState) string {
	var content strings.Builder

	header := r.styles.Title.Render("pagefind")
	if state.Source != "" {
		header += " " + r.styles.Source.Render(state.Source)
	}
	content.WriteString(header + "\n")
	content.WriteString(r.renderSearchBar(state) + "\n")

	if state.Tooltip != "" {
		content.WriteString(r.styles.Tooltip.Render(state.Tooltip) + "\n")
	} else {
		content.WriteString("\n")
	}

	content.WriteString(state.Outline + "\n")

	if state.Status != "" {
		style := r.styles.Status
		if state.StatusErr {
			style = r.styles.StatusErr
		}
		content.WriteString(style.Render(state.Status) + "\n")
	}
	content.WriteString(r.styles.Help.Render(state.Help))

	return r.styles.Main.Width(state.Width).Render(content.String())
}

// renderSearchBar draws the prompt, the mode, the query and the counter.
func (r *Renderer) renderSearchBar(state ViewState) string {
	parts := []string{r.styles.Prompt.Render("Search:")}
	if state.Search.Query != "" {
		parts = append(parts, r.styles.ModeBadge.Render(state.Search.Mode.String()))
	}
	parts = append(parts, state.Input)

	switch {
	case state.Search.NavEnabled:
		parts = append(parts, r.styles.Counter.Render(state.Search.Counter))
	case state.Search.NoMatch:
		parts = append(parts, r.styles.NoMatch.Render("no match"))
	}
	if state.InputMode != "" && state.InputMode != "normal" {
		parts = append(parts, r.styles.Dim.Render("("+state.InputMode+")"))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, joinSpaced(parts)...)
}

func joinSpaced(parts []string) []string {
	out := make([]string, 0, 2*len(parts))
	for i, p := range parts {
		if i > 0 {
			out = append(out, " ")
		}
		out = append(out, p)
	}
	return out
}
