package modes

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"pagefind/internal/search"
	"pagefind/internal/ui/input/types"
)

// SearchMode edits the query. Typed text goes to the shared text input;
// navigation keys go to the controller.
type SearchMode struct {
	keys      types.KeyMap
	textInput *textinput.Model
}

func NewSearchMode(keys types.KeyMap, ti *textinput.Model) *SearchMode {
	return &SearchMode{keys: keys, textInput: ti}
}

func (m *SearchMode) Name() string {
	return "search"
}

func (m *SearchMode) Enter() []types.Action {
	if m.textInput != nil {
		m.textInput.Prompt = "" // Prompt is handled in the view
		m.textInput.Focus()
	}
	return nil
}

func (m *SearchMode) Exit() []types.Action {
	if m.textInput != nil {
		m.textInput.Blur()
	}
	return nil
}

func (m *SearchMode) HandleKey(msg tea.KeyMsg) ([]types.Action, bool) {
	switch msg.String() {
	case "ctrl+c":
		return []types.Action{types.QuitAction{}}, true
	case "esc":
		return []types.Action{
			types.CancelTextAction{},
			types.SearchKeyAction{Key: search.KeyEvent{Key: search.KeyEscape}},
			types.ChangeModeAction{Mode: types.ModeNormal},
		}, true
	}
	switch {
	case key.Matches(msg, m.keys.Next) && msg.Type != tea.KeyRunes:
		return []types.Action{searchKey(msg, false)}, true
	case key.Matches(msg, m.keys.Prev) && msg.Type != tea.KeyRunes:
		return []types.Action{searchKey(msg, true)}, true
	case msg.String() == "f1":
		return []types.Action{types.ShowHelpAction{}}, true
	}
	// Let the handler update the text input
	return nil, false
}
