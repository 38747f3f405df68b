// Package overlay mirrors the current search highlight to browser overlays.
// The Bridge serves a websocket that every connected overlay script
// listens on; Multi fans one highlight out to several highlighters.
package overlay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"pagefind/internal/dom"
	"pagefind/internal/domain"
	"pagefind/internal/eventbus"
	"pagefind/internal/locator"
	"pagefind/internal/search"
)

const (
	maxTextLength = 80
	writeTimeout  = 5 * time.Second
	sendBuffer    = 16
)

// Message is the websocket frame sent to overlays.
type Message struct {
	Type      string           `json:"type"`
	Highlight domain.Highlight `json:"highlight"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.send)
	})
}

// Bridge is a search.Highlighter that broadcasts the highlight to websocket
// clients. Each highlight carries its own position in the match list; search
// events from the bus supply the query, so the bridge never has to ask the
// controller.
type Bridge struct {
	doc      *dom.Document
	logger   *zerolog.Logger
	upgrader websocket.Upgrader
	router   chi.Router
	unsubs   []func()

	mu      sync.Mutex
	state   domain.Highlight
	clients map[*client]struct{}
}

// Option configures a Bridge.
type Option func(*bridgeOptions)

type bridgeOptions struct {
	allowedOrigins []string
}

// WithAllowedOrigins restricts which page origins may read /state and open
// /ws. The default allows every origin.
func WithAllowedOrigins(origins ...string) Option {
	return func(o *bridgeOptions) {
		if len(origins) > 0 {
			o.allowedOrigins = origins
		}
	}
}

// NewBridge returns a bridge for doc. bus may be nil, in which case
// broadcasts carry no query or counter.
func NewBridge(doc *dom.Document, bus eventbus.EventBus, logger *zerolog.Logger, opts ...Option) *Bridge {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	o := bridgeOptions{allowedOrigins: []string{"*"}}
	for _, opt := range opts {
		opt(&o)
	}
	policy := cors.New(cors.Options{
		AllowedOrigins: o.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})

	b := &Bridge{
		doc:    doc,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Non-browser clients send no Origin
				return r.Header.Get("Origin") == "" || policy.OriginAllowed(r)
			},
		},
		state:   domain.Highlight{Cleared: true},
		clients: make(map[*client]struct{}),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(policy.Handler)
	r.Get("/healthz", b.healthzHandler)
	r.Get("/state", b.stateHandler)
	r.Get("/ws", b.wsHandler)
	b.router = r

	if bus != nil {
		b.unsubs = append(b.unsubs,
			bus.Subscribe(eventbus.EventSearchCompleted, b.onSearchEvent),
			bus.Subscribe(eventbus.EventSearchCleared, b.onSearchEvent),
		)
	}
	return b
}

// Handler returns the HTTP handler serving /ws, /state and /healthz.
func (b *Bridge) Handler() http.Handler {
	return b.router
}

// Serve listens on addr until ctx is canceled.
func (b *Bridge) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           b.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	b.logger.Info().Str("addr", addr).Msg("overlay bridge listening")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("overlay server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	b.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("overlay shutdown: %w", err)
	}
	return nil
}

// Close unsubscribes from the bus and disconnects every client.
func (b *Bridge) Close() {
	for _, unsub := range b.unsubs {
		unsub()
	}
	b.unsubs = nil

	b.mu.Lock()
	clients := b.clients
	b.clients = make(map[*client]struct{})
	b.mu.Unlock()
	for c := range clients {
		c.close()
	}
}

// UpdateHighlight implements search.Highlighter.
func (b *Bridge) UpdateHighlight(entries []search.HighlightEntry) {
	if len(entries) == 0 {
		b.ClearHighlight()
		return
	}
	entry := entries[0]
	info := Describe(b.doc, entry.Element, entry.Tooltip)

	b.mu.Lock()
	info.Index = entry.Index
	b.state.Current = &info
	b.state.Counter = ""
	if entry.Total > 0 {
		b.state.Counter = strconv.Itoa(entry.Index+1) + "/" + strconv.Itoa(entry.Total)
	}
	b.state.Color = entry.Color
	b.state.Cleared = false
	b.broadcastLocked()
	b.mu.Unlock()
}

// ClearHighlight implements search.Highlighter.
func (b *Bridge) ClearHighlight() {
	b.mu.Lock()
	b.state.Current = nil
	b.state.Counter = ""
	b.state.Color = ""
	b.state.Cleared = true
	b.broadcastLocked()
	b.mu.Unlock()
}

// State returns the last broadcast highlight.
func (b *Bridge) State() domain.Highlight {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotLocked()
}

// onSearchEvent keeps the query in step with the search. The counter comes
// with each highlight.
func (b *Bridge) onSearchEvent(e eventbus.DomainEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	query := b.state.Query
	switch ev := e.(type) {
	case domain.SearchCompletedEvent:
		query = ev.Query
	case domain.SearchClearedEvent:
		query = ""
	default:
		return
	}
	if query == b.state.Query {
		return
	}
	b.state.Query = query
	b.broadcastLocked()
}

func (b *Bridge) snapshotLocked() domain.Highlight {
	s := b.state
	if s.Current != nil {
		cur := *s.Current
		s.Current = &cur
	}
	return s
}

// broadcastLocked queues the state for every client, dropping it for
// clients that are not keeping up.
func (b *Bridge) broadcastLocked() {
	data, err := json.Marshal(Message{Type: "highlight", Highlight: b.snapshotLocked()})
	if err != nil {
		b.logger.Error().Err(err).Msg("failed to encode highlight")
		return
	}
	for c := range b.clients {
		select {
		case c.send <- data:
		default:
			b.logger.Warn().Msg("overlay client is slow, dropping highlight")
		}
	}
}

func (b *Bridge) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (b *Bridge) stateHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(b.State()); err != nil {
		b.logger.Error().Err(err).Msg("failed to write state")
	}
}

func (b *Bridge) wsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	b.mu.Lock()
	b.clients[c] = struct{}{}
	initial, err := json.Marshal(Message{Type: "highlight", Highlight: b.snapshotLocked()})
	if err == nil {
		c.send <- initial
	}
	b.mu.Unlock()
	b.logger.Debug().Str("remote", r.RemoteAddr).Msg("overlay connected")

	go b.writeLoop(c)
	b.readLoop(c)
}

// readLoop discards incoming frames until the connection closes.
func (b *Bridge) readLoop(c *client) {
	defer func() {
		b.mu.Lock()
		delete(b.clients, c)
		b.mu.Unlock()
		c.close()
		b.logger.Debug().Msg("overlay disconnected")
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (b *Bridge) writeLoop(c *client) {
	defer c.conn.Close()
	for data := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			b.logger.Debug().Err(err).Msg("overlay write failed")
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// Describe summarizes el for overlays. Detached elements are described
// from their own subtree.
func Describe(doc *dom.Document, el *html.Node, tooltip string) domain.MatchInfo {
	info := domain.MatchInfo{Locator: tooltip}
	read := func(*html.Node) {
		info.Tag = dom.TagName(el)
		info.Text = truncate(dom.NormalizeWhitespace(dom.ElementText(el)), maxTextLength)
		info.Path = locator.CSSPath(el)
	}
	if doc != nil {
		doc.Read(read)
	} else {
		read(nil)
	}
	return info
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}
