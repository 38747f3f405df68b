// Package watch reloads a page from disk whenever its file changes.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"pagefind/internal/dom"
	"pagefind/internal/domain"
	"pagefind/internal/eventbus"
)

// DefaultSettle is how long the file must stay quiet before it is reparsed.
const DefaultSettle = 100 * time.Millisecond

// Reloader replaces a document's tree with the file's new contents.
type Reloader struct {
	doc    *dom.Document
	path   string
	bus    eventbus.EventBus
	logger *zerolog.Logger

	// Settle overrides DefaultSettle when positive.
	Settle time.Duration
	// OnReload runs after each successful replacement.
	OnReload func()
}

// NewReloader watches path and reloads it into doc. bus may be nil.
func NewReloader(doc *dom.Document, path string, bus eventbus.EventBus, logger *zerolog.Logger) *Reloader {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Reloader{doc: doc, path: path, bus: bus, logger: logger}
}

// Run watches until ctx is canceled. The parent directory is watched so
// editors that save by renaming a temp file are still seen.
func (r *Reloader) Run(ctx context.Context) error {
	abs, err := filepath.Abs(r.path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", r.path, err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}
	r.logger.Info().Str("path", abs).Msg("watching page")

	settle := r.Settle
	if settle <= 0 {
		settle = DefaultSettle
	}

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(settle, func() { r.Reload(ctx) })
			mu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn().Err(err).Msg("watcher error")
			r.publish(domain.ErrorEvent{Message: "watcher error", Err: err})
		}
	}
}

// Reload reparses the file now. A file that fails to load leaves the
// current tree in place.
func (r *Reloader) Reload(ctx context.Context) {
	root, err := dom.LoadNode(ctx, r.path)
	if err != nil {
		r.logger.Warn().Err(err).Str("path", r.path).Msg("reload failed")
		r.publish(domain.ErrorEvent{Message: "reload failed", Err: err})
		return
	}
	r.doc.Replace(root)
	version := r.doc.Version()
	r.logger.Debug().Str("path", r.path).Uint64("version", version).Msg("page reloaded")
	r.publish(domain.DocumentReloadedEvent{Source: r.path, Version: version})
	if r.OnReload != nil {
		r.OnReload()
	}
}

func (r *Reloader) publish(event domain.DomainEvent) {
	if r.bus != nil {
		r.bus.Publish(event)
	}
}
