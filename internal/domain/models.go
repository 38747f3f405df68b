package domain

// MatchInfo describes one match for display outside the search core
type MatchInfo struct {
	Index   int    `json:"index"`
	Tag     string `json:"tag"`
	Text    string `json:"text"`
	Locator string `json:"locator,omitempty"`
	Path    string `json:"path"` // CSS path, stable across reloads of the same markup
}

// Highlight is the overlay state pushed to highlight consumers
type Highlight struct {
	Query   string     `json:"query"`
	Counter string     `json:"counter"`
	Color   string     `json:"color,omitempty"`
	Current *MatchInfo `json:"current,omitempty"`
	Cleared bool       `json:"cleared"`
}
