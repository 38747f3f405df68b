package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/noborus/ov/oviewer"
)

// HelpRenderer handles help content rendering
type HelpRenderer struct{}

// NewHelpRenderer creates a new help renderer
func NewHelpRenderer() *HelpRenderer {
	return &HelpRenderer{}
}

type helpEntry struct {
	key  string
	desc string
}

type helpSection struct {
	title   string
	entries []helpEntry
	note    string
}

var helpSections = []helpSection{
	{
		title: "Searching",
		entries: []helpEntry{
			{"/", "Edit the query"},
			{"Enter, F3, n", "Next match"},
			{"Shift+Tab, Shift+F3, N", "Previous match"},
			{"Esc", "Clear the search"},
		},
	},
	{
		title: "Query syntax",
		entries: []helpEntry{
			{"save", "Auto: locator first, then page text"},
			{`"Save"`, "Text content only"},
			{"#id, css=…, role=button[name=\"Save\"]", "Selector"},
			{"getByRole('button', { name: 'Save' })", "Locator code (JavaScript or Python)"},
			{"- button \"Save\"", "Accessibility template"},
			{"/aria: …", "Force an accessibility template"},
		},
		note: "Text matching ignores case and collapses white space.",
	},
	{
		title: "Outline",
		entries: []helpEntry{
			{"↑/↓, j/k", "Scroll"},
			{"PgUp/PgDn", "Page up/down"},
			{"c", "Center on the current match"},
		},
	},
	{
		title: "Other",
		entries: []helpEntry{
			{"?, F1", "Show this help"},
			{"q", "Quit"},
		},
	},
}

// RenderHelpContent generates help content with colors for the pager
func (r *HelpRenderer) RenderHelpContent() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("99")).
		MarginBottom(1)

	sectionStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("39")).
		MarginTop(1)

	keyStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("220"))

	descStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("252"))

	noteStyle := lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("241"))

	width := 0
	for _, s := range helpSections {
		for _, e := range s.entries {
			if w := lipgloss.Width(e.key); w > width {
				width = w
			}
		}
	}

	var help strings.Builder
	help.WriteString(titleStyle.Render("pagefind Help"))
	help.WriteString("\n")

	for i, s := range helpSections {
		help.WriteString(sectionStyle.Render(s.title))
		help.WriteString("\n")
		for _, e := range s.entries {
			pad := strings.Repeat(" ", width-lipgloss.Width(e.key))
			help.WriteString(fmt.Sprintf("  %s%s  %s\n", keyStyle.Render(e.key), pad, descStyle.Render(e.desc)))
		}
		if s.note != "" {
			help.WriteString(noteStyle.Render("  " + s.note))
			help.WriteString("\n")
		}
		if i < len(helpSections)-1 {
			help.WriteString("\n")
		}
	}
	return strings.TrimRight(help.String(), "\n")
}

// HelpOps handles help operations
type HelpOps struct {
	program *tea.Program // reference to Bubble Tea program for terminal management
}

// NewHelpOps creates a new help operations instance
func NewHelpOps(program *tea.Program) *HelpOps {
	return &HelpOps{
		program: program,
	}
}

// ShowHelpInPager shows help content using ov pager
func (h *HelpOps) ShowHelpInPager(helpContent string) error {
	if h.program == nil {
		return fmt.Errorf("program not set")
	}

	// Release terminal control to run ov
	if err := h.program.ReleaseTerminal(); err != nil {
		return err
	}

	// Ensure terminal is restored even if ov fails
	defer func() {
		// Small delay to ensure ov has fully exited before restoring terminal
		time.Sleep(100 * time.Millisecond)
		_ = h.program.RestoreTerminal()
	}()

	root, err := oviewer.NewRoot(strings.NewReader(helpContent))
	if err != nil {
		return err
	}

	// Keep ov from writing to our screen on exit
	config := oviewer.NewConfig()
	config.IsWriteOnExit = false
	config.IsWriteOriginal = false
	configureVimKeyBindings(&config)

	root.SetConfig(config)
	return root.Run()
}

// configureVimKeyBindings adds j/k/g/G on top of ov's defaults
func configureVimKeyBindings(config *oviewer.Config) {
	if config.Keybind == nil {
		config.Keybind = make(map[string][]string)
	}
	extra := map[string][]string{
		"down":   {"j"},
		"up":     {"k"},
		"top":    {"g"},
		"bottom": {"G"},
		"exit":   {"q", "Escape"},
	}
	for action, keys := range extra {
		config.Keybind[action] = append(config.Keybind[action], keys...)
	}
}
