package search

import (
	"context"
	"sort"
	"sync"
	"time"

	"pagefind/internal/aria"
)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now + d, fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves time forward and runs due callbacks on the calling
// goroutine.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && t.at <= c.now {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at < due[j].at })
	for _, t := range due {
		t.fn()
	}
}

func (c *fakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

type recordingHighlighter struct {
	mu      sync.Mutex
	last    []HighlightEntry
	updates int
	clears  int
}

func (h *recordingHighlighter) UpdateHighlight(entries []HighlightEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = entries
	h.updates++
}

func (h *recordingHighlighter) ClearHighlight() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = nil
	h.clears++
}

func (h *recordingHighlighter) Last() []HighlightEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last
}

func (h *recordingHighlighter) Clears() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.clears
}

type fakeHost struct {
	mu        sync.Mutex
	input     func(string)
	key       func(KeyEvent) bool
	panel     Panel
	refreshes int
}

func (h *fakeHost) AddInputListener(fn func(string)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.input = fn
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.input = nil
	}
}

func (h *fakeHost) AddKeyListener(fn func(KeyEvent) bool) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.key = fn
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.key = nil
	}
}

func (h *fakeHost) Mount(p Panel) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.panel = p
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.panel = nil
	}
}

func (h *fakeHost) Refresh() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.refreshes++
}

func (h *fakeHost) Type(query string) {
	h.mu.Lock()
	fn := h.input
	h.mu.Unlock()
	if fn != nil {
		fn(query)
	}
}

func (h *fakeHost) Press(ev KeyEvent) bool {
	h.mu.Lock()
	fn := h.key
	h.mu.Unlock()
	return fn != nil && fn(ev)
}

func (h *fakeHost) Attached() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.input != nil || h.key != nil || h.panel != nil
}

func (h *fakeHost) Refreshes() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.refreshes
}

// gatedBinding parses templates but holds the ones listed in gates until
// their channel is closed.
type gatedBinding struct {
	entered chan string
	gates   map[string]chan struct{}
}

func (b *gatedBinding) ParseAriaTemplate(ctx context.Context, text string) (aria.ParseResult, error) {
	if gate, ok := b.gates[text]; ok {
		b.entered <- text
		<-gate
	}
	return aria.Binding{}.ParseAriaTemplate(ctx, text)
}
