package types

import "pagefind/internal/search"

// Mode transition actions
type ChangeModeAction struct {
	Mode Mode
}

func (a ChangeModeAction) Type() string { return "change_mode" }

// Text input actions
type UpdateTextAction struct {
	Text string
}

func (a UpdateTextAction) Type() string { return "update_text" }

type CancelTextAction struct{}

func (a CancelTextAction) Type() string { return "cancel_text" }

// SearchKeyAction forwards a key to the search controller
type SearchKeyAction struct {
	Key search.KeyEvent
}

func (a SearchKeyAction) Type() string { return "search_key" }

// ScrollAction moves the outline by Lines; zero recenters on the current match
type ScrollAction struct {
	Lines int
}

func (a ScrollAction) Type() string { return "scroll" }

type ShowHelpAction struct{}

func (a ShowHelpAction) Type() string { return "show_help" }

type QuitAction struct{}

func (a QuitAction) Type() string { return "quit" }
