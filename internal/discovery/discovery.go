package discovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"

	"pagefind/internal/dom"
	"pagefind/internal/domain"
	"pagefind/internal/eventbus"
)

// MaxDepth bounds how far below a root the scan descends.
const MaxDepth = 5

// ErrScanInProgress is returned when a scan is started while another runs.
var ErrScanInProgress = errors.New("scan already in progress")

var pageExtensions = map[string]bool{
	".html":  true,
	".htm":   true,
	".xhtml": true,
}

var skipDirs = map[string]bool{
	"node_modules":  true,
	"vendor":        true,
	"target":        true,
	"build":         true,
	"dist":          true,
	"__pycache__":   true,
	".pytest_cache": true,
	"venv":          true,
}

// Options narrows a scan. Include holds doublestar patterns matched against
// slash-separated paths relative to each root; empty includes every page.
type Options struct {
	Include []string
}

// DiscoveryService finds HTML pages in the filesystem
type DiscoveryService interface {
	Scan(ctx context.Context, roots []string) ([]string, error)
	StopScan()
}

// discoveryService is the concrete implementation
type discoveryService struct {
	bus     eventbus.EventBus
	logger  *zerolog.Logger
	include []string

	mu         sync.Mutex
	isScanning bool
	cancelFunc context.CancelFunc
}

// NewDiscoveryService creates a new discovery service. bus may be nil.
func NewDiscoveryService(bus eventbus.EventBus, logger *zerolog.Logger, opts Options) DiscoveryService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &discoveryService{bus: bus, logger: logger, include: opts.Include}
}

// Scan walks roots and returns every page found, sorted. A root that is
// itself a page file or an http(s) URL is returned as is.
func (ds *discoveryService) Scan(ctx context.Context, roots []string) ([]string, error) {
	ds.mu.Lock()
	if ds.isScanning {
		ds.mu.Unlock()
		return nil, ErrScanInProgress
	}
	ds.isScanning = true
	scanCtx, cancel := context.WithCancel(ctx)
	ds.cancelFunc = cancel
	ds.mu.Unlock()

	defer func() {
		cancel()
		ds.mu.Lock()
		ds.isScanning = false
		ds.cancelFunc = nil
		ds.mu.Unlock()
	}()

	seen := make(map[string]bool)
	var pages []string
	for _, root := range roots {
		if dom.IsRemote(root) {
			if !seen[root] {
				seen[root] = true
				pages = append(pages, root)
				ds.publish(domain.PageDiscoveredEvent{Path: root})
			}
			continue
		}
		found, err := ds.scanRoot(scanCtx, root)
		if err != nil {
			return nil, err
		}
		for _, p := range found {
			if !seen[p] {
				seen[p] = true
				pages = append(pages, p)
			}
		}
	}
	sort.Strings(pages)

	ds.publish(domain.ScanCompletedEvent{Roots: roots, PagesFound: len(pages)})
	ds.logger.Debug().Strs("roots", roots).Int("pages", len(pages)).Msg("scan completed")
	return pages, nil
}

// StopScan cancels any ongoing scan
func (ds *discoveryService) StopScan() {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if ds.cancelFunc != nil {
		ds.cancelFunc()
	}
}

func (ds *discoveryService) scanRoot(ctx context.Context, root string) ([]string, error) {
	var pages []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == root {
				return err
			}
			ds.logger.Warn().Err(err).Str("path", path).Msg("skipping unreadable path")
			return nil
		}

		if !d.IsDir() {
			if IsPage(path) && ds.included(root, path) {
				pages = append(pages, path)
				ds.publish(domain.PageDiscoveredEvent{Path: path})
			}
			return nil
		}
		if path == root {
			return nil
		}

		relPath, _ := filepath.Rel(root, path)
		if strings.Count(relPath, string(filepath.Separator)) >= MaxDepth {
			return filepath.SkipDir
		}
		name := d.Name()
		if skipDirs[name] || strings.HasPrefix(name, ".") {
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		ds.publish(domain.ErrorEvent{Message: fmt.Sprintf("Failed to scan %s", root), Err: err})
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}
	return pages, nil
}

// included reports whether path, found below root, passes the include
// patterns. Roots named directly are always included.
func (ds *discoveryService) included(root, path string) bool {
	if len(ds.include) == 0 || path == root {
		return true
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, pattern := range ds.include {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

func (ds *discoveryService) publish(event domain.DomainEvent) {
	if ds.bus != nil {
		ds.bus.Publish(event)
	}
}

// IsPage reports whether path names an HTML page.
func IsPage(path string) bool {
	return pageExtensions[strings.ToLower(filepath.Ext(path))]
}
