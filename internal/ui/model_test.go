package ui

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagefind/internal/config"
	"pagefind/internal/dom"
	"pagefind/internal/domain"
	"pagefind/internal/locator"
	"pagefind/internal/search"
	inputtypes "pagefind/internal/ui/input/types"
)

const page = `<html><body>
<button>Alpha</button>
<button>Beta</button>
<button>Gamma</button>
</body></html>`

func newModel(t *testing.T) (*Model, *search.Controller) {
	t.Helper()
	doc, err := dom.ParseString(page)
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	cfg.Search.DebounceMS = 1
	m := NewModel(doc, cfg, nil)
	ctrl := search.New(doc, search.Options{
		Config:      cfg.SearchConfig(),
		Engine:      locator.NewEngine(""),
		Highlighter: m,
	})
	ctrl.Install(m)
	t.Cleanup(ctrl.Uninstall)

	m.Init()
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return m, ctrl
}

func press(m *Model, msgs ...tea.KeyMsg) {
	for _, msg := range msgs {
		m.Update(msg)
	}
}

func typed(s string) []tea.KeyMsg {
	var out []tea.KeyMsg
	for _, r := range s {
		out = append(out, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return out
}

func searchFor(t *testing.T, m *Model, ctrl *search.Controller, query, counter string) {
	t.Helper()
	press(m, typed("/")...)
	press(m, typed(query)...)
	require.Eventually(t, func() bool { return ctrl.View().Counter == counter }, 2*time.Second, 5*time.Millisecond)
	m.Update(refreshMsg{})
}

func TestTypingSearchesAndNavigates(t *testing.T) {
	m, ctrl := newModel(t)
	searchFor(t, m, ctrl, "button", "1/3")

	assert.Equal(t, "Alpha", dom.ElementText(m.currentHighlight().Element))

	press(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "2/3", ctrl.View().Counter)
	assert.Equal(t, "Beta", dom.ElementText(m.currentHighlight().Element))

	view := m.View()
	assert.Contains(t, view, "2/3")
	assert.Contains(t, view, "▶")
	assert.Contains(t, view, "getByRole('button', { name: 'Beta' })")

	press(m, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, "1/3", ctrl.View().Counter)
	press(m, tea.KeyMsg{Type: tea.KeyF15})
	assert.Equal(t, "3/3", ctrl.View().Counter)
}

func TestEscapeClearsSearch(t *testing.T) {
	m, ctrl := newModel(t)
	searchFor(t, m, ctrl, "Beta", "1/1")

	press(m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, search.View{}, ctrl.View())
	assert.Nil(t, m.currentHighlight().Element)
	assert.Equal(t, inputtypes.ModeNormal, m.inputHandler.CurrentMode())
	assert.NotContains(t, m.View(), "▶")
}

func TestNoMatchIsShown(t *testing.T) {
	m, ctrl := newModel(t)
	press(m, typed("/")...)
	press(m, typed(`"zzz"`)...)
	require.Eventually(t, func() bool { return ctrl.View().NoMatch }, 2*time.Second, 5*time.Millisecond)
	assert.Contains(t, m.View(), "no match")
}

func TestQuitKey(t *testing.T) {
	m, _ := newModel(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Contains(t, collect(cmd), tea.Msg(tea.QuitMsg{}))
}

// collect runs cmd and flattens batches.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	batch, ok := msg.(tea.BatchMsg)
	if !ok {
		return []tea.Msg{msg}
	}
	var out []tea.Msg
	for _, c := range batch {
		out = append(out, collect(c)...)
	}
	return out
}

func TestInlineHelpWithoutProgram(t *testing.T) {
	m, _ := newModel(t)
	press(m, typed("?")...)
	assert.Contains(t, m.View(), "pagefind Help")

	press(m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.NotContains(t, m.View(), "pagefind Help")
}

func TestHelpPagerFailureFallsBack(t *testing.T) {
	m, _ := newModel(t)
	m.Update(helpPagerMsg{err: errors.New("no tty")})
	assert.Contains(t, m.View(), "pagefind Help")
}

func TestReloadEventRebuildsOutline(t *testing.T) {
	m, _ := newModel(t)
	assert.Contains(t, m.View(), "Gamma")

	fresh, err := dom.ParseString(`<html><body><h1>Delta</h1></body></html>`)
	require.NoError(t, err)
	m.doc.Replace(fresh.Root())

	_, cmd := m.Update(EventMsg{Event: domain.DocumentReloadedEvent{Source: "page.html", Version: m.doc.Version()}})
	assert.NotNil(t, cmd)
	view := m.View()
	assert.Contains(t, view, "Delta")
	assert.NotContains(t, view, "Gamma")
	assert.Contains(t, view, "reloaded page.html")

	m.Update(clearStatusMsg{})
	assert.NotContains(t, m.View(), "reloaded")
}

func TestErrorEventShowsStatus(t *testing.T) {
	m, _ := newModel(t)
	m.Update(EventMsg{Event: domain.ErrorEvent{Message: "reload failed", Err: errors.New("boom")}})
	assert.Contains(t, m.View(), "reload failed: boom")
}

func TestUninstallDetachesHost(t *testing.T) {
	m, ctrl := newModel(t)
	ctrl.Uninstall()

	assert.Nil(t, m.onInput)
	assert.Nil(t, m.onKey)
	assert.Nil(t, m.panel)
	press(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, search.View{}, m.searchView())
}

func TestHelpContentListsKeys(t *testing.T) {
	content := NewHelpRenderer().RenderHelpContent()
	for _, want := range []string{"Next match", "Previous match", "Shift+F3", "/aria:", "Quit"} {
		assert.Contains(t, content, want)
	}
}
