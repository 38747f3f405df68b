package discovery

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagefind/internal/domain"
	"pagefind/internal/eventbus"
)

func touch(t *testing.T, root string, rel string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("<p>x</p>"), 0o644))
	return path
}

func TestScanFindsPages(t *testing.T) {
	root := t.TempDir()
	want := []string{
		touch(t, root, "index.html"),
		touch(t, root, "docs/guide.HTM"),
		touch(t, root, "docs/api/ref.xhtml"),
	}
	touch(t, root, "notes.txt")
	touch(t, root, "node_modules/pkg/readme.html")
	touch(t, root, ".cache/page.html")
	touch(t, root, "a/b/c/d/e/f/deep.html")

	pages, err := NewDiscoveryService(nil, nil, Options{}).Scan(context.Background(), []string{root})
	require.NoError(t, err)

	assert.ElementsMatch(t, want, pages)
	assert.IsIncreasing(t, pages)
}

func TestScanAcceptsFileRootsAndDeduplicates(t *testing.T) {
	root := t.TempDir()
	page := touch(t, root, "one.html")

	pages, err := NewDiscoveryService(nil, nil, Options{}).Scan(context.Background(), []string{page, root})
	require.NoError(t, err)
	assert.Equal(t, []string{page}, pages)
}

func TestScanIncludePatterns(t *testing.T) {
	root := t.TempDir()
	guide := touch(t, root, "docs/guide.html")
	ref := touch(t, root, "docs/api/ref.html")
	touch(t, root, "index.html")
	touch(t, root, "blog/post.html")

	pages, err := NewDiscoveryService(nil, nil, Options{Include: []string{"docs/**/*.html"}}).
		Scan(context.Background(), []string{root})
	require.NoError(t, err)
	assert.Equal(t, []string{ref, guide}, pages)
}

func TestScanPassesURLsThrough(t *testing.T) {
	root := t.TempDir()
	local := touch(t, root, "index.html")

	pages, err := NewDiscoveryService(nil, nil, Options{Include: []string{"nothing/*"}}).
		Scan(context.Background(), []string{"https://example.com/", local, "https://example.com/"})
	require.NoError(t, err)
	assert.Equal(t, []string{local, "https://example.com/"}, pages)
}

func TestScanMissingRoot(t *testing.T) {
	_, err := NewDiscoveryService(nil, nil, Options{}).Scan(context.Background(), []string{filepath.Join(t.TempDir(), "missing")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to scan")
}

func TestScanCanceled(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "index.html")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewDiscoveryService(nil, nil, Options{}).Scan(ctx, []string{root})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScanPublishesEvents(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "a.html")
	touch(t, root, "b.html")

	bus := eventbus.New(nil)
	t.Cleanup(bus.Close)

	var mu sync.Mutex
	var discovered []string
	var completed *domain.ScanCompletedEvent
	bus.Subscribe(eventbus.EventPageDiscovered, func(e eventbus.DomainEvent) {
		mu.Lock()
		defer mu.Unlock()
		discovered = append(discovered, filepath.Base(e.(domain.PageDiscoveredEvent).Path))
	})
	bus.Subscribe(eventbus.EventScanCompleted, func(e eventbus.DomainEvent) {
		mu.Lock()
		defer mu.Unlock()
		ev := e.(domain.ScanCompletedEvent)
		completed = &ev
	})

	_, err := NewDiscoveryService(bus, nil, Options{}).Scan(context.Background(), []string{root})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return completed != nil && len(discovered) == 2
	}, time.Second, 5*time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, completed.PagesFound)
	assert.ElementsMatch(t, []string{"a.html", "b.html"}, discovered)
}

func TestIsPage(t *testing.T) {
	for path, want := range map[string]bool{
		"a.html":     true,
		"b.HTM":      true,
		"c.xhtml":    true,
		"d.txt":      false,
		"html":       false,
		"dir.html/x": false,
		"e.html.bak": false,
	} {
		assert.Equal(t, want, IsPage(path), path)
	}
}
