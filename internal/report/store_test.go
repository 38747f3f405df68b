package report

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagefind/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "scans.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func samplePages() []Page {
	return []Page{
		{Source: "b.html", Mode: "css", Matches: []domain.MatchInfo{
			{Index: 0, Tag: "button", Text: "Save", Locator: "getByRole('button', { name: 'Save' })", Path: "body > button"},
		}},
		{Source: "a.html", Mode: "css", Matches: []domain.MatchInfo{
			{Index: 0, Tag: "button", Text: "Alpha", Path: "body > button:nth-child(1)"},
			{Index: 1, Tag: "button", Text: "Beta", Path: "body > button:nth-child(2)"},
		}},
	}
}

func TestOpenCreatesDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scans.db")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestSaveRunAndReadBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	started := time.Unix(1_700_000_000, 0)

	id, err := s.SaveRun(ctx, Run{Query: "button", Roots: []string{"./site"}, Pages: 5, StartedAt: started}, samplePages())
	require.NoError(t, err)
	assert.Positive(t, id)

	runs, err := s.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, Run{ID: id, Query: "button", Roots: []string{"./site"}, Pages: 5, Matched: 2, StartedAt: started}, runs[0])

	pages, err := s.Pages(ctx, id)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, "a.html", pages[0].Source)
	assert.Equal(t, []string{"Alpha", "Beta"}, []string{pages[0].Matches[0].Text, pages[0].Matches[1].Text})
	assert.Equal(t, samplePages()[0], pages[1])
}

func TestRunsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, q := range []string{"one", "two", "three"} {
		_, err := s.SaveRun(ctx, Run{Query: q, StartedAt: time.Now()}, nil)
		require.NoError(t, err)
	}

	runs, err := s.Runs(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "three", runs[0].Query)
	assert.Equal(t, "two", runs[1].Query)
	assert.Zero(t, runs[0].Matched)
	assert.Empty(t, runs[0].Roots)
}

func TestPagesOfRunWithoutMatches(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.SaveRun(ctx, Run{Query: "nav", StartedAt: time.Now()}, nil)
	require.NoError(t, err)
	pages, err := s.Pages(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, pages)
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.SaveRun(ctx, Run{Query: "button", StartedAt: time.Now()}, samplePages())
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, id))

	runs, err := s.Runs(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
	pages, err := s.Pages(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, pages)

	assert.ErrorContains(t, s.Delete(ctx, id), "not found")
}

func TestStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scans.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.SaveRun(ctx, Run{Query: "button", StartedAt: time.Now()}, samplePages())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	runs, err := s.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 2, runs[0].Matched)
}
