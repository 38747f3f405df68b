package dom

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is a live HTML document. Readers scan it under a read lock while
// the host (file watcher, tests, automation) mutates or replaces it.
type Document struct {
	mu      sync.RWMutex
	root    *html.Node
	version uint64
	source  string
}

// Parse builds a document from HTML markup.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	return &Document{root: root}, nil
}

// ParseString is Parse for in-memory markup.
func ParseString(markup string) (*Document, error) {
	return Parse(strings.NewReader(markup))
}

// Load reads a page from a file path or an http(s) URL.
func Load(ctx context.Context, source string) (*Document, error) {
	root, err := LoadNode(ctx, source)
	if err != nil {
		return nil, err
	}
	return &Document{root: root, source: source}, nil
}

// IsRemote reports whether source is an http(s) URL rather than a path.
func IsRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// LoadNode reads and parses a page without wrapping it in a Document.
func LoadNode(ctx context.Context, source string) (*html.Node, error) {
	var r io.ReadCloser
	if IsRemote(source) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s: %w", source, err)
		}
		if resp.StatusCode >= 400 {
			resp.Body.Close()
			return nil, fmt.Errorf("failed to fetch %s: status %s", source, resp.Status)
		}
		r = resp.Body
	} else {
		f, err := os.Open(source)
		if err != nil {
			return nil, fmt.Errorf("failed to open page: %w", err)
		}
		r = f
	}
	defer r.Close()

	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", source, err)
	}
	return root, nil
}

// Source returns the path or URL the document was loaded from.
func (d *Document) Source() string {
	return d.source
}

// Version increases on every mutation or replacement.
func (d *Document) Version() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.version
}

// Read runs fn with the document root under the read lock.
func (d *Document) Read(fn func(root *html.Node)) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	fn(d.root)
}

// Mutate runs fn with the document root under the write lock.
func (d *Document) Mutate(fn func(root *html.Node) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.version++
	return fn(d.root)
}

// Replace swaps the whole tree, detaching every element of the old one.
func (d *Document) Replace(root *html.Node) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.root = root
	d.version++
}

// Root returns the current document node. Callers that walk it must hold
// the read lock through Read.
func (d *Document) Root() *html.Node {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.root
}

// IsConnected reports whether n is still part of the current tree.
func (d *Document) IsConnected(n *html.Node) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return n != nil && TreeRoot(n) == d.root
}

// Body returns the body element of the tree rooted at root, or root itself
// when there is none.
func Body(root *html.Node) *html.Node {
	var body *html.Node
	Walk(root, func(n *html.Node) bool {
		if n.DataAtom == atom.Body {
			body = n
			return false
		}
		return true
	})
	if body == nil {
		return root
	}
	return body
}

// TreeRoot follows parent links to the top of n's tree.
func TreeRoot(n *html.Node) *html.Node {
	for n.Parent != nil {
		n = n.Parent
	}
	return n
}

// ByID finds the first element under root with the given id attribute.
func ByID(root *html.Node, id string) *html.Node {
	var found *html.Node
	Walk(root, func(n *html.Node) bool {
		if found != nil {
			return false
		}
		if Attr(n, "id") == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// Attr returns the value of the named attribute, or "".
func Attr(n *html.Node, name string) string {
	v, _ := LookupAttr(n, name)
	return v
}

// LookupAttr reports the attribute value and whether it is present.
func LookupAttr(n *html.Node, name string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// IsElement reports whether n is an element node.
func IsElement(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode
}

// TagName returns the lower-case tag name of an element.
func TagName(n *html.Node) string {
	if !IsElement(n) {
		return ""
	}
	return strings.ToLower(n.Data)
}
