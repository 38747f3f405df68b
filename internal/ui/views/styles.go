package views

import (
	"github.com/charmbracelet/lipgloss"
)

// Styles contains all the style definitions for the UI
type Styles struct {
	Title     lipgloss.Style
	Source    lipgloss.Style
	Prompt    lipgloss.Style
	ModeBadge lipgloss.Style
	Counter   lipgloss.Style
	NoMatch   lipgloss.Style
	Tooltip   lipgloss.Style
	Dim       lipgloss.Style
	Tag       lipgloss.Style
	Text      lipgloss.Style
	Current   lipgloss.Style
	Marker    lipgloss.Style
	Status    lipgloss.Style
	StatusErr lipgloss.Style
	Help      lipgloss.Style
	Main      lipgloss.Style
}

// NewStyles creates a new Styles instance. currentColor is the highlight
// color used for the current match, as a #rrggbb[aa] string.
func NewStyles(currentColor string) *Styles {
	return &Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")),
		Source:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Prompt:    lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true),
		ModeBadge: lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("39")).Padding(0, 1),
		Counter:   lipgloss.NewStyle().Foreground(lipgloss.Color("78")).Bold(true), // green
		NoMatch:   lipgloss.NewStyle().Foreground(lipgloss.Color("203")),           // red
		Tooltip:   lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Italic(true),
		Dim:       lipgloss.NewStyle().Faint(true),
		Tag:       lipgloss.NewStyle().Foreground(lipgloss.Color("33")),
		Text:      lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		Current: lipgloss.NewStyle().
			Background(lipgloss.Color(opaque(currentColor))).
			Foreground(lipgloss.Color("0")).
			Bold(true),
		Marker:    lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Bold(true),
		Status:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		StatusErr: lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		Help:      lipgloss.NewStyle().Faint(true),
		Main:      lipgloss.NewStyle().Padding(0, 1),
	}
}

// opaque drops the alpha channel of a #rrggbbaa color; terminals have none.
func opaque(color string) string {
	if len(color) == 9 && color[0] == '#' {
		return color[:7]
	}
	if color == "" {
		return "238"
	}
	return color
}
