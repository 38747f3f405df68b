package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"pagefind/internal/dom"
	"pagefind/internal/domain"
	"pagefind/internal/eventbus"
)

func writePage(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("<html><body>"+body+"</body></html>"), 0644))
}

func bodyText(doc *dom.Document) string {
	var text string
	doc.Read(func(root *html.Node) {
		text = dom.NormalizeWhitespace(dom.ElementText(dom.Body(root)))
	})
	return text
}

func TestReloadReplacesTree(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.html")
	writePage(t, path, "<p>first</p>")
	doc, err := dom.Load(context.Background(), path)
	require.NoError(t, err)

	logger := zerolog.Nop()
	bus := eventbus.New(&logger)
	t.Cleanup(bus.Close)
	reloaded := make(chan domain.DocumentReloadedEvent, 1)
	bus.Subscribe(eventbus.EventDocumentReloaded, func(e eventbus.DomainEvent) {
		reloaded <- e.(domain.DocumentReloadedEvent)
	})

	var calls atomic.Int32
	r := NewReloader(doc, path, bus, &logger)
	r.OnReload = func() { calls.Add(1) }

	before := doc.Version()
	writePage(t, path, "<p>second</p>")
	r.Reload(context.Background())

	assert.Equal(t, "second", bodyText(doc))
	assert.Equal(t, int32(1), calls.Load())
	select {
	case e := <-reloaded:
		assert.Equal(t, path, e.Source)
		assert.Greater(t, e.Version, before)
	case <-time.After(time.Second):
		t.Fatal("reload event not delivered")
	}
}

func TestReloadKeepsTreeWhenFileIsGone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.html")
	writePage(t, path, "<p>kept</p>")
	doc, err := dom.Load(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))

	var calls atomic.Int32
	r := NewReloader(doc, path, nil, nil)
	r.OnReload = func() { calls.Add(1) }
	r.Reload(context.Background())

	assert.Equal(t, "kept", bodyText(doc))
	assert.Zero(t, calls.Load())
}

func TestRunReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.html")
	writePage(t, path, "<p>one</p>")
	doc, err := dom.Load(context.Background(), path)
	require.NoError(t, err)

	r := NewReloader(doc, path, nil, nil)
	r.Settle = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	// Other files in the directory are ignored.
	writePage(t, filepath.Join(dir, "other.html"), "<p>other</p>")

	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("<html><body><p>two</p></body></html>"), 0644)
		return bodyText(doc) == "two"
	}, 3*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestRunFailsForMissingDirectory(t *testing.T) {
	r := NewReloader(nil, filepath.Join(t.TempDir(), "missing", "page.html"), nil, nil)
	err := r.Run(context.Background())
	assert.ErrorContains(t, err, "failed to watch")
}
