// Package search is the incremental element search: mode detection,
// strategy dispatch, text matching, debouncing, match navigation and
// highlight synchronization, driven by a Controller installed into a host.
package search

import (
	"context"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"pagefind/internal/dom"
	"pagefind/internal/domain"
	"pagefind/internal/eventbus"
)

// Options wires the controller's collaborators. Aria and Bus are optional.
type Options struct {
	Config      Config
	Engine      SelectorEngine
	Aria        AriaBinding
	AriaMatcher AriaMatcher
	Highlighter Highlighter
	Clock       Clock
	Bus         eventbus.EventBus
	Logger      *zerolog.Logger
}

// Controller owns the search state for one document.
type Controller struct {
	mu         sync.Mutex
	doc        *dom.Document
	state      State
	requested  string
	dispatcher *Dispatcher
	scheduler  *Scheduler
	highlight  *HighlightSync
	bus        eventbus.EventBus
	logger     *zerolog.Logger

	host      Host
	detachers []func()
}

// New returns a controller searching doc.
func New(doc *dom.Document, opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	cfg := opts.Config
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	if cfg.TestIDAttribute == "" {
		cfg.TestIDAttribute = DefaultTestIDAttribute
	}

	return &Controller{
		doc:   doc,
		state: EmptyState(),
		dispatcher: &Dispatcher{
			Engine:      opts.Engine,
			Aria:        opts.Aria,
			AriaMatcher: opts.AriaMatcher,
			Config:      cfg,
			Logger:      logger,
		},
		scheduler: NewScheduler(opts.Clock, cfg.Debounce),
		highlight: &HighlightSync{
			Engine:  opts.Engine,
			Overlay: opts.Highlighter,
			Doc:     doc,
			Config:  cfg,
			Logger:  logger,
		},
		bus:    opts.Bus,
		logger: logger,
	}
}

// Install attaches the controller to host: input and key listeners plus
// the search panel. Installing twice is a no-op.
func (c *Controller) Install(host Host) {
	defer c.recoverSurface("install")

	c.mu.Lock()
	if c.host != nil || host == nil {
		c.mu.Unlock()
		return
	}
	c.host = host
	c.mu.Unlock()

	detachers := []func(){
		host.AddInputListener(c.SetQuery),
		host.AddKeyListener(c.HandleKey),
		host.Mount(c),
	}

	c.mu.Lock()
	c.detachers = detachers
	c.mu.Unlock()
	c.logger.Debug().Msg("search installed")
}

// Uninstall stops any pending search, detaches every listener, unmounts
// the panel and clears the state.
func (c *Controller) Uninstall() {
	defer c.recoverSurface("uninstall")

	c.mu.Lock()
	if c.host == nil {
		c.mu.Unlock()
		return
	}
	c.scheduler.Cancel()
	detachers := c.detachers
	c.detachers = nil
	c.host = nil
	c.requested = ""
	c.state = EmptyState()
	c.highlight.Sync(c.state)
	c.mu.Unlock()

	for i := len(detachers) - 1; i >= 0; i-- {
		if detachers[i] != nil {
			detachers[i]()
		}
	}
	c.logger.Debug().Msg("search uninstalled")
}

// SetQuery handles an input event. A blank query clears immediately; any
// other query is searched once typing pauses.
func (c *Controller) SetQuery(raw string) {
	defer c.recoverSurface("input")

	query := strings.TrimSpace(raw)
	if query == "" {
		c.Clear()
		return
	}
	c.mu.Lock()
	c.requested = query
	c.mu.Unlock()
	c.scheduler.Schedule(func(gen uint64) {
		defer c.recoverSurface("search")
		c.execute(context.Background(), gen, query)
		c.refresh()
	})
}

// HandleKey applies the keyboard surface and reports whether the key was
// consumed.
func (c *Controller) HandleKey(ev KeyEvent) bool {
	defer c.recoverSurface("keydown")

	switch ev.Key {
	case KeyEnter, KeyF3:
		if ev.Shift {
			c.Prev()
		} else {
			c.Next()
		}
		return true
	case KeyEscape:
		c.Clear()
		return true
	}
	return false
}

// Next moves to the following match.
func (c *Controller) Next() {
	c.navigate(State.Next)
}

// Prev moves to the preceding match.
func (c *Controller) Prev() {
	c.navigate(State.Prev)
}

func (c *Controller) navigate(step func(State) State) {
	c.mu.Lock()
	if !c.state.Active() {
		c.mu.Unlock()
		return
	}
	old := c.state.CurrentIndex
	c.state = step(c.state)
	c.highlight.Sync(c.state)
	event := domain.SearchNavigatedEvent{OldIndex: old, NewIndex: c.state.CurrentIndex, Total: len(c.state.Matches)}
	c.mu.Unlock()

	c.publish(event)
	c.refresh()
}

// Clear drops the query and matches, bypassing the debounce.
func (c *Controller) Clear() {
	c.mu.Lock()
	c.scheduler.Cancel()
	c.requested = ""
	c.state = EmptyState()
	c.highlight.Sync(c.state)
	c.mu.Unlock()

	c.publish(domain.SearchClearedEvent{})
	c.refresh()
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state
	s.Matches = append(s.Matches[:0:0], s.Matches...)
	return s
}

// View projects the current state for the panel.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Project(c.state)
}

// Search runs query immediately, superseding any pending search, and
// returns the resulting state.
func (c *Controller) Search(ctx context.Context, raw string) State {
	query := strings.TrimSpace(raw)
	if query == "" {
		c.Clear()
		return c.State()
	}
	c.mu.Lock()
	c.requested = query
	c.mu.Unlock()
	gen := c.scheduler.Cancel()
	c.execute(ctx, gen, query)
	c.refresh()
	return c.State()
}

// Rerun searches the latest requested query again after the document
// changed. It goes through the debounce like typed input, so a query still
// waiting for its timer is the one that runs.
func (c *Controller) Rerun() {
	c.mu.Lock()
	query := c.requested
	c.mu.Unlock()
	if query != "" {
		c.SetQuery(query)
	}
}

// execute runs one search invocation and applies its result only if gen is
// still the latest generation.
func (c *Controller) execute(ctx context.Context, gen uint64, query string) {
	class := DetectMode(query)
	c.publish(domain.SearchStartedEvent{Query: query, Mode: class.Mode.String(), Generation: gen})

	start := time.Now()
	matches := c.dispatcher.Run(ctx, c.doc, class)

	c.mu.Lock()
	if !c.scheduler.IsCurrent(gen) {
		c.mu.Unlock()
		c.logger.Debug().Str("query", query).Uint64("generation", gen).Msg("discarding stale search result")
		c.publish(domain.SearchDiscardedEvent{Query: query, Generation: gen})
		return
	}
	c.state = Completed(query, class.Mode, matches)
	c.highlight.Sync(c.state)
	c.mu.Unlock()

	elapsed := time.Since(start)
	c.logger.Debug().
		Str("query", query).
		Str("mode", class.Mode.String()).
		Int("matches", len(matches)).
		Dur("elapsed", elapsed).
		Msg("search completed")
	c.publish(domain.SearchCompletedEvent{
		Query:      query,
		Mode:       class.Mode.String(),
		MatchCount: len(matches),
		Generation: gen,
		Elapsed:    elapsed,
	})
}

func (c *Controller) publish(event domain.DomainEvent) {
	if c.bus != nil {
		c.bus.Publish(event)
	}
}

func (c *Controller) refresh() {
	c.mu.Lock()
	host := c.host
	c.mu.Unlock()
	if host != nil {
		host.Refresh()
	}
}

// recoverSurface keeps panics from crossing the controller's public
// surface.
func (c *Controller) recoverSurface(where string) {
	if r := recover(); r != nil {
		c.logger.Error().
			Str("where", where).
			Interface("panic", r).
			Bytes("stack", debug.Stack()).
			Msg("search controller recovered")
	}
}
