package overlay

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"pagefind/internal/dom"
	"pagefind/internal/domain"
	"pagefind/internal/eventbus"
	"pagefind/internal/search"
)

const page = `<html><body><main id="app"><button>Save</button><button>Save draft</button></main></body></html>`

type fixture struct {
	bridge *Bridge
	bus    eventbus.EventBus
	server *httptest.Server
	doc    *dom.Document
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	doc, err := dom.ParseString(page)
	require.NoError(t, err)

	logger := zerolog.Nop()
	bus := eventbus.New(&logger)
	bridge := NewBridge(doc, bus, &logger)
	server := httptest.NewServer(bridge.Handler())
	t.Cleanup(func() {
		bridge.Close()
		server.Close()
		bus.Close()
	})
	return &fixture{bridge: bridge, bus: bus, server: server, doc: doc}
}

func (f *fixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readHighlight(t *testing.T, conn *websocket.Conn) domain.Highlight {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "highlight", msg.Type)
	return msg.Highlight
}

// readUntil reads frames until one satisfies ok.
func readUntil(t *testing.T, conn *websocket.Conn, ok func(domain.Highlight) bool) domain.Highlight {
	t.Helper()
	for i := 0; i < 10; i++ {
		if h := readHighlight(t, conn); ok(h) {
			return h
		}
	}
	t.Fatal("expected highlight never arrived")
	return domain.Highlight{}
}

func buttons(t *testing.T, doc *dom.Document) []*html.Node {
	t.Helper()
	var out []*html.Node
	doc.Read(func(root *html.Node) {
		dom.Walk(root, func(n *html.Node) bool {
			if n.Data == "button" {
				out = append(out, n)
			}
			return true
		})
	})
	require.Len(t, out, 2)
	return out
}

func TestBridgeBroadcastsHighlight(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)

	initial := readHighlight(t, conn)
	assert.True(t, initial.Cleared)
	assert.Nil(t, initial.Current)

	f.bridge.UpdateHighlight([]search.HighlightEntry{{
		Element: buttons(t, f.doc)[1],
		Color:   "#6fa8dc7f",
		Tooltip: "getByRole('button', { name: 'Save draft' })",
	}})

	got := readHighlight(t, conn)
	assert.False(t, got.Cleared)
	assert.Equal(t, "#6fa8dc7f", got.Color)
	require.NotNil(t, got.Current)
	assert.Equal(t, "button", got.Current.Tag)
	assert.Equal(t, "Save draft", got.Current.Text)
	assert.Equal(t, "#app > button:nth-of-type(2)", got.Current.Path)
	assert.Equal(t, "getByRole('button', { name: 'Save draft' })", got.Current.Locator)

	f.bridge.ClearHighlight()
	cleared := readHighlight(t, conn)
	assert.True(t, cleared.Cleared)
	assert.Nil(t, cleared.Current)
}

func TestBridgeTracksSearchEvents(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)
	readHighlight(t, conn)

	f.bus.Publish(domain.SearchCompletedEvent{Query: "save", MatchCount: 2})
	got := readUntil(t, conn, func(h domain.Highlight) bool { return h.Query == "save" })
	assert.Empty(t, got.Counter)

	f.bus.Publish(domain.SearchClearedEvent{})
	got = readUntil(t, conn, func(h domain.Highlight) bool { return h.Query == "" })
	assert.True(t, got.Cleared)
}

func TestBridgeFramePairsElementWithItsCounter(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)
	readHighlight(t, conn)
	els := buttons(t, f.doc)

	f.bridge.UpdateHighlight([]search.HighlightEntry{{Element: els[0], Index: 0, Total: 2}})
	got := readHighlight(t, conn)
	assert.Equal(t, "1/2", got.Counter)
	assert.Equal(t, "Save", got.Current.Text)
	assert.Equal(t, 0, got.Current.Index)

	// Navigating yields one frame, already consistent
	f.bridge.UpdateHighlight([]search.HighlightEntry{{Element: els[1], Index: 1, Total: 2}})
	got = readHighlight(t, conn)
	assert.Equal(t, "2/2", got.Counter)
	assert.Equal(t, "Save draft", got.Current.Text)
	assert.Equal(t, 1, got.Current.Index)
	assert.Equal(t, got, f.bridge.State())

	f.bridge.ClearHighlight()
	got = readHighlight(t, conn)
	assert.Empty(t, got.Counter)
}

func TestBridgeHTTPEndpoints(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Get(f.server.URL + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))

	f.bridge.UpdateHighlight([]search.HighlightEntry{{Element: buttons(t, f.doc)[0], Color: "red"}})

	resp, err = http.Get(f.server.URL + "/state")
	require.NoError(t, err)
	defer resp.Body.Close()
	var state domain.Highlight
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
	require.NotNil(t, state.Current)
	assert.Equal(t, "Save", state.Current.Text)
	assert.Equal(t, "red", state.Color)
}

func TestBridgeDescribesDetachedElements(t *testing.T) {
	f := newFixture(t)
	el := buttons(t, f.doc)[0]

	fresh, err := dom.ParseString(`<html><body></body></html>`)
	require.NoError(t, err)
	f.doc.Replace(fresh.Root())

	assert.NotPanics(t, func() {
		f.bridge.UpdateHighlight([]search.HighlightEntry{{Element: el}})
	})
	assert.Equal(t, "Save", f.bridge.State().Current.Text)
}

func TestBridgeWithoutClients(t *testing.T) {
	b := NewBridge(nil, nil, nil)
	defer b.Close()

	b.UpdateHighlight(nil)
	assert.True(t, b.State().Cleared)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}

type recorder struct {
	updates, clears int
}

func (r *recorder) UpdateHighlight([]search.HighlightEntry) { r.updates++ }
func (r *recorder) ClearHighlight()                         { r.clears++ }

func TestMultiFansOut(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	m := Multi{a, nil, b}

	m.UpdateHighlight([]search.HighlightEntry{{}})
	m.ClearHighlight()
	m.ClearHighlight()

	assert.Equal(t, 1, a.updates)
	assert.Equal(t, 1, b.updates)
	assert.Equal(t, 2, a.clears)
	assert.Equal(t, 2, b.clears)
}

func TestBridgeOriginPolicy(t *testing.T) {
	doc, err := dom.ParseString(page)
	require.NoError(t, err)
	bridge := NewBridge(doc, nil, nil, WithAllowedOrigins("http://app.test"))
	server := httptest.NewServer(bridge.Handler())
	t.Cleanup(func() {
		bridge.Close()
		server.Close()
	})

	get := func(origin string) *http.Response {
		req, err := http.NewRequest(http.MethodGet, server.URL+"/state", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", origin)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp
	}
	assert.Equal(t, "http://app.test", get("http://app.test").Header.Get("Access-Control-Allow-Origin"))
	assert.Empty(t, get("http://evil.test").Header.Get("Access-Control-Allow-Origin"))

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://evil.test"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://app.test"}})
	require.NoError(t, err)
	conn.Close()
}
