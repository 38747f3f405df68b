package search

import (
	"time"

	"golang.org/x/net/html"
)

// DefaultDebounce is the delay between the last keystroke and the search.
const DefaultDebounce = 150 * time.Millisecond

// Default highlight colors.
const (
	DefaultSingleMatchColor = "#6fa8dc7f"
	DefaultLanguage         = "javascript"
	DefaultTestIDAttribute  = "data-testid"
)

// Config is the read-only configuration snapshot the search core runs with.
type Config struct {
	Debounce          time.Duration
	TestIDAttribute   string
	Language          string
	SingleMatchColor  string
	CurrentMatchColor string
	ShowTooltips      bool
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return Config{
		Debounce:         DefaultDebounce,
		TestIDAttribute:  DefaultTestIDAttribute,
		Language:         DefaultLanguage,
		SingleMatchColor: DefaultSingleMatchColor,
		ShowTooltips:     true,
	}
}

// MatchColor is the color of the current match: the dedicated current
// match color when set, the single match color otherwise.
func (c Config) MatchColor() string {
	if c.CurrentMatchColor != "" {
		return c.CurrentMatchColor
	}
	return c.SingleMatchColor
}

// State holds search state. CurrentIndex is -1 exactly when Matches is
// empty.
type State struct {
	Query        string
	Mode         Mode
	Matches      []*html.Node
	CurrentIndex int
}
