package search

import "strconv"

// View is everything the search panel renders.
type View struct {
	Query      string
	Mode       Mode
	Counter    string
	NoMatch    bool
	NavEnabled bool
	Total      int
}

// Project derives the panel view from state.
func Project(s State) View {
	v := View{
		Query:      s.Query,
		Mode:       s.Mode,
		NoMatch:    s.Query != "" && len(s.Matches) == 0,
		NavEnabled: s.Active(),
		Total:      len(s.Matches),
	}
	if v.NavEnabled {
		v.Counter = strconv.Itoa(s.CurrentIndex+1) + "/" + strconv.Itoa(len(s.Matches))
	}
	return v
}
