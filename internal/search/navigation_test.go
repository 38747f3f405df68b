package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/net/html"
)

func elements(n int) []*html.Node {
	out := make([]*html.Node, n)
	for i := range out {
		out[i] = &html.Node{Type: html.ElementNode, Data: "button"}
	}
	return out
}

func TestCompleted(t *testing.T) {
	s := Completed("save", ModeText, elements(2))
	assert.Equal(t, 0, s.CurrentIndex)
	assert.True(t, s.Active())

	empty := Completed("save", ModeText, nil)
	assert.Equal(t, -1, empty.CurrentIndex)
	assert.False(t, empty.Active())
	assert.Nil(t, empty.Current())
	assert.Equal(t, "save", empty.Query)
}

func TestNavigationWrapsAround(t *testing.T) {
	for n := 1; n <= 5; n++ {
		matches := elements(n)
		s := Completed("q", ModeAuto, matches)
		for i := 0; i < n; i++ {
			s = s.Next()
		}
		assert.Equal(t, 0, s.CurrentIndex, "next %d times over %d matches", n, n)

		s = s.Prev()
		assert.Equal(t, n-1, s.CurrentIndex)
		assert.Same(t, matches[n-1], s.Current())
		assert.Equal(t, 0, s.Next().CurrentIndex)
	}
}

func TestNavigationOnEmptyStateIsNoop(t *testing.T) {
	s := EmptyState()
	assert.Equal(t, s, s.Next())
	assert.Equal(t, s, s.Prev())
}

func TestProject(t *testing.T) {
	tests := []struct {
		name  string
		state State
		want  View
	}{
		{
			name:  "empty",
			state: EmptyState(),
			want:  View{},
		},
		{
			name:  "no match",
			state: Completed("x", ModeText, nil),
			want:  View{Query: "x", Mode: ModeText, NoMatch: true},
		},
		{
			name:  "second of three",
			state: Completed("b", ModeAuto, elements(3)).Next(),
			want:  View{Query: "b", Mode: ModeAuto, Counter: "2/3", NavEnabled: true, Total: 3},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Project(tt.state))
		})
	}
}
