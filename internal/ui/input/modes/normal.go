package modes

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"pagefind/internal/search"
	"pagefind/internal/ui/input/types"
)

// NormalMode browses the outline and steps through matches
type NormalMode struct {
	keys types.KeyMap
	page int
}

func NewNormalMode(keys types.KeyMap) *NormalMode {
	return &NormalMode{keys: keys, page: 10}
}

func (m *NormalMode) Name() string {
	return "normal"
}

func (m *NormalMode) Enter() []types.Action { return nil }

func (m *NormalMode) Exit() []types.Action { return nil }

func (m *NormalMode) HandleKey(msg tea.KeyMsg) ([]types.Action, bool) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return []types.Action{types.QuitAction{}}, true
	case key.Matches(msg, m.keys.Search):
		return []types.Action{types.ChangeModeAction{Mode: types.ModeSearch}}, true
	case key.Matches(msg, m.keys.Help):
		return []types.Action{types.ShowHelpAction{}}, true
	case key.Matches(msg, m.keys.Next):
		return []types.Action{searchKey(msg, false)}, true
	case key.Matches(msg, m.keys.Prev):
		return []types.Action{searchKey(msg, true)}, true
	case key.Matches(msg, m.keys.Clear):
		return []types.Action{
			types.CancelTextAction{},
			types.SearchKeyAction{Key: search.KeyEvent{Key: search.KeyEscape}},
		}, true
	case key.Matches(msg, m.keys.Up):
		return []types.Action{types.ScrollAction{Lines: -1}}, true
	case key.Matches(msg, m.keys.Down):
		return []types.Action{types.ScrollAction{Lines: 1}}, true
	case key.Matches(msg, m.keys.PageUp):
		return []types.Action{types.ScrollAction{Lines: -m.page}}, true
	case key.Matches(msg, m.keys.PageDown):
		return []types.Action{types.ScrollAction{Lines: m.page}}, true
	case key.Matches(msg, m.keys.Center):
		return []types.Action{types.ScrollAction{}}, true
	}
	return nil, false
}

// searchKey maps a navigation key to the controller's keyboard surface,
// keeping F3 distinct from Enter.
func searchKey(msg tea.KeyMsg, back bool) types.SearchKeyAction {
	name := search.KeyEnter
	switch msg.String() {
	case "f3", "f15":
		name = search.KeyF3
	}
	return types.SearchKeyAction{Key: search.KeyEvent{Key: name, Shift: back}}
}
