package search

import (
	"context"
	"time"

	"golang.org/x/net/html"

	"pagefind/internal/aria"
	"pagefind/internal/locator"
)

// SelectorEngine parses and evaluates selectors and generates them for
// elements. *locator.Engine implements it.
type SelectorEngine interface {
	Parse(selector string) (locator.Selector, error)
	Query(sel locator.Selector, root *html.Node) []*html.Node
	GenerateSelector(el *html.Node, opts locator.GenerateOptions) (locator.Generated, error)
	LocatorSyntaxToSelector(language, text, testIDAttr string) (string, error)
}

// AriaBinding parses accessibility templates. It is optional; without one
// aria searches find nothing.
type AriaBinding interface {
	ParseAriaTemplate(ctx context.Context, text string) (aria.ParseResult, error)
}

// AriaMatcher resolves a parsed template against a subtree.
type AriaMatcher interface {
	MatchAll(root *html.Node, fragment *aria.Template) []*html.Node
}

// HighlightEntry is one element pushed to the overlay.
type HighlightEntry struct {
	Element *html.Node
	Color   string
	Tooltip string
	// Index is the element's position in the match list of Total matches.
	Index int
	Total int
}

// Highlighter draws highlights. Implementations must not call back into the
// controller.
type Highlighter interface {
	UpdateHighlight(entries []HighlightEntry)
	ClearHighlight()
}

// Timer is a pending callback that can be stopped.
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemClock returns a Clock backed by the time package.
func SystemClock() Clock {
	return systemClock{}
}

// KeyEvent is a key press delivered by the host.
type KeyEvent struct {
	Key   string
	Shift bool
}

// Keys the controller reacts to.
const (
	KeyEnter  = "Enter"
	KeyF3     = "F3"
	KeyEscape = "Escape"
)

// Panel is what the host renders for the search bar.
type Panel interface {
	View() View
}

// Host is the surface the controller installs into: it delivers input and
// key events, renders the panel and is told when the view changed.
type Host interface {
	AddInputListener(fn func(query string)) (remove func())
	AddKeyListener(fn func(KeyEvent) bool) (remove func())
	Mount(panel Panel) (unmount func())
	Refresh()
}
