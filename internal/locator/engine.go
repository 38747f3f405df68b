// Package locator resolves Playwright-style selectors against parsed HTML
// documents, converts recorded locator code to selectors and generates
// stable selectors for elements.
package locator

import (
	"regexp"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"pagefind/internal/a11y"
	"pagefind/internal/dom"
)

// DefaultTestIDAttribute is the attribute getByTestId targets unless
// configured otherwise.
const DefaultTestIDAttribute = "data-testid"

// Engine evaluates selectors. The zero value is not usable; use NewEngine.
type Engine struct {
	TestIDAttribute string
}

// NewEngine returns an engine using attr for testid selectors.
func NewEngine(testIDAttr string) *Engine {
	if testIDAttr == "" {
		testIDAttr = DefaultTestIDAttribute
	}
	return &Engine{TestIDAttribute: testIDAttr}
}

// Query returns every element under root matching sel, in document order.
func (e *Engine) Query(sel Selector, root *html.Node) []*html.Node {
	if root == nil || len(sel.parts) == 0 {
		return nil
	}
	scope := []*html.Node{root}
	for _, p := range sel.parts {
		if p.engine == "nth" {
			scope = pickNth(scope, p.nth)
			continue
		}
		var next []*html.Node
		for _, r := range scope {
			next = append(next, p.query(r)...)
		}
		next = dom.Unique(next)
		dom.SortDocumentOrder(next)
		scope = next
		if len(scope) == 0 {
			return nil
		}
	}
	return scope
}

// QueryString parses and evaluates selector in one step.
func (e *Engine) QueryString(selector string, root *html.Node) ([]*html.Node, error) {
	sel, err := e.Parse(selector)
	if err != nil {
		return nil, err
	}
	return e.Query(sel, root), nil
}

func pickNth(nodes []*html.Node, n int) []*html.Node {
	if n < 0 {
		n += len(nodes)
	}
	if n < 0 || n >= len(nodes) {
		return nil
	}
	return []*html.Node{nodes[n]}
}

func (p part) query(root *html.Node) []*html.Node {
	switch p.engine {
	case "css":
		return queryCSS(p.css, root)
	case "text":
		return queryText(p.text, root)
	}

	var out []*html.Node
	dom.Walk(root, func(n *html.Node) bool {
		switch p.engine {
		case "role":
			if !p.role.includeHidden && a11y.IsHidden(n) {
				return false
			}
			if p.role.matches(n) {
				out = append(out, n)
			}
		case "label":
			if matchesLabel(p.text, n) {
				out = append(out, n)
			}
		case "attr":
			if v, ok := dom.LookupAttr(n, p.attr.name); ok && p.attr.pattern.match(v) {
				out = append(out, n)
			}
		}
		return true
	})
	return out
}

func queryCSS(group cascadia.SelectorGroup, root *html.Node) []*html.Node {
	var out []*html.Node
	dom.Walk(root, func(n *html.Node) bool {
		if group.Match(n) {
			out = append(out, n)
		}
		return true
	})
	return out
}

// queryText returns the innermost elements whose text matches: an element
// is reported only when none of its descendants match on their own.
func queryText(pat textPattern, root *html.Node) []*html.Node {
	cache := dom.NewTextCache()
	var out []*html.Node
	var visit func(n *html.Node) bool
	visit = func(n *html.Node) bool {
		if a11y.IsHidden(n) && !dom.IsShadowRoot(n) {
			return false
		}
		self := pat.match(cache.Text(n))
		if !self && pat.substring() {
			return false
		}
		childMatched := false
		for _, ch := range childElements(n) {
			if visit(ch) {
				childMatched = true
			}
		}
		if dom.IsShadowRoot(n) || !self || childMatched {
			return childMatched
		}
		out = append(out, n)
		return true
	}
	for _, ch := range childElements(root) {
		visit(ch)
	}
	return out
}

// childElements lists the element children of n. Templates are included;
// visit filters inert ones through a11y.IsHidden.
func childElements(n *html.Node) []*html.Node {
	var out []*html.Node
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		if ch.Type == html.ElementNode {
			out = append(out, ch)
		}
	}
	return out
}

func matchesLabel(pat textPattern, n *html.Node) bool {
	if label := dom.Attr(n, "aria-label"); label != "" && pat.match(label) {
		return true
	}
	if dom.Attr(n, "aria-labelledby") != "" && pat.match(a11y.AccessibleName(n)) {
		return true
	}
	switch n.Data {
	case "input", "select", "textarea", "button", "meter", "output", "progress":
		for _, text := range a11y.LabelTexts(n) {
			if pat.match(text) {
				return true
			}
		}
	}
	return false
}

func (rq roleQuery) matches(n *html.Node) bool {
	if a11y.Role(n) != rq.role {
		return false
	}
	if rq.name != nil && !rq.name.match(a11y.AccessibleName(n)) {
		return false
	}
	if rq.level > 0 && a11y.HeadingLevel(n) != rq.level {
		return false
	}
	if rq.checked != "" && a11y.Checked(n) != rq.checked {
		return false
	}
	if rq.disabled != nil && a11y.Disabled(n) != *rq.disabled {
		return false
	}
	for attr, want := range map[string]*bool{
		"aria-expanded": rq.expanded,
		"aria-pressed":  rq.pressed,
		"aria-selected": rq.selected,
	} {
		if want == nil {
			continue
		}
		if got, _ := a11y.BoolState(n, attr); got != *want {
			return false
		}
	}
	return true
}

// substring reports whether a match on an element implies a match on all of
// its ancestors.
func (p textPattern) substring() bool {
	return p.re == nil && !p.exact
}

func (p textPattern) match(s string) bool {
	s = dom.NormalizeWhitespace(s)
	switch {
	case p.re != nil:
		return p.re.MatchString(s)
	case p.exact:
		return s == dom.NormalizeWhitespace(p.value)
	}
	return strings.Contains(dom.Normalize(s), dom.Normalize(p.value))
}

// String renders the pattern back to selector body form.
func (p textPattern) String() string {
	if p.re != nil {
		return regexLiteral(p.re)
	}
	if p.exact {
		return quote(p.value) + "s"
	}
	return quote(p.value) + "i"
}

func regexLiteral(re *regexp.Regexp) string {
	src := re.String()
	flags := ""
	if strings.HasPrefix(src, "(?") {
		if end := strings.IndexByte(src, ')'); end > 0 && !strings.ContainsAny(src[2:end], ":") {
			flags = src[2:end]
			src = src[end+1:]
		}
	}
	return "/" + src + "/" + flags
}

func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}
