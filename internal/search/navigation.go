package search

import "golang.org/x/net/html"

// EmptyState is the state before any search and after a clear.
func EmptyState() State {
	return State{CurrentIndex: -1}
}

// Completed replaces the state with a finished search's result.
func Completed(query string, mode Mode, matches []*html.Node) State {
	if len(matches) == 0 {
		return State{Query: query, Mode: mode, CurrentIndex: -1}
	}
	return State{Query: query, Mode: mode, Matches: matches, CurrentIndex: 0}
}

// Active reports whether there is a current match.
func (s State) Active() bool {
	return len(s.Matches) > 0 && s.CurrentIndex >= 0 && s.CurrentIndex < len(s.Matches)
}

// Current returns the current match, or nil when empty.
func (s State) Current() *html.Node {
	if !s.Active() {
		return nil
	}
	return s.Matches[s.CurrentIndex]
}

// Next moves to the following match, wrapping around. No-op when empty.
func (s State) Next() State {
	if !s.Active() {
		return s
	}
	s.CurrentIndex = (s.CurrentIndex + 1) % len(s.Matches)
	return s
}

// Prev moves to the preceding match, wrapping around. No-op when empty.
func (s State) Prev() State {
	if !s.Active() {
		return s
	}
	n := len(s.Matches)
	s.CurrentIndex = (s.CurrentIndex - 1 + n) % n
	return s
}
