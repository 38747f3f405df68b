package locator

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"pagefind/internal/a11y"
	"pagefind/internal/dom"
)

// ErrNotElement is returned when a selector is requested for a non-element.
var ErrNotElement = errors.New("not an element")

// maxTextSelectorLength bounds how much text a generated text selector may
// quote before it falls back to a CSS path.
const maxTextSelectorLength = 80

// GenerateOptions tunes selector generation.
type GenerateOptions struct {
	TestIDAttribute string
	Language        string
}

// Generated is a selector produced for one element.
type Generated struct {
	Selector string
	Locator  string
}

var cssIdent = regexp.MustCompile(`^-?[A-Za-z_][A-Za-z0-9_-]*$`)

// GenerateSelector returns the most readable selector that resolves to el
// alone within its tree: test id, role and name, id, text, then a CSS path.
func (e *Engine) GenerateSelector(el *html.Node, opts GenerateOptions) (Generated, error) {
	if !dom.IsElement(el) {
		return Generated{}, ErrNotElement
	}
	testID := opts.TestIDAttribute
	if testID == "" {
		testID = e.TestIDAttribute
	}
	root := dom.TreeRoot(el)

	var selector string
	for _, candidate := range e.candidates(el, testID) {
		if e.resolvesTo(candidate, root, el) {
			selector = candidate
			break
		}
	}
	if selector == "" {
		selector = CSSPath(el)
	}

	renderer := &Engine{TestIDAttribute: testID}
	loc, err := renderer.AsLocator(opts.Language, selector)
	if err != nil {
		return Generated{}, fmt.Errorf("render locator for %q: %w", selector, err)
	}
	return Generated{Selector: selector, Locator: loc}, nil
}

func (e *Engine) candidates(el *html.Node, testID string) []string {
	var out []string
	if v := dom.Attr(el, testID); v != "" {
		out = append(out, "internal:testid=["+testID+"="+quote(v)+"s]")
	}

	role := a11y.Role(el)
	name := a11y.AccessibleName(el)
	if !a11y.IsStructural(role) && name != "" && len(name) <= maxTextSelectorLength {
		out = append(out,
			"internal:role="+role+"[name="+quote(name)+"i]",
			"internal:role="+role+"[name="+quote(name)+"s]",
		)
	}
	if id := dom.Attr(el, "id"); cssIdent.MatchString(id) {
		out = append(out, "#"+id)
	}
	if v := dom.NormalizeWhitespace(dom.Attr(el, "placeholder")); v != "" {
		out = append(out, "internal:attr=[placeholder="+quote(v)+"i]")
	}
	if a11y.IsStructural(role) || name == "" {
		text := dom.NormalizeWhitespace(dom.ElementText(el))
		if text != "" && len(text) <= maxTextSelectorLength {
			out = append(out,
				"internal:text="+quote(text)+"i",
				"internal:text="+quote(text)+"s",
			)
		}
	}
	if !a11y.IsStructural(role) {
		out = append(out, e.roleNth(el, role, name)...)
	}
	return out
}

// roleNth disambiguates a role selector by position.
func (e *Engine) roleNth(el *html.Node, role, name string) []string {
	base := "internal:role=" + role
	if name != "" && len(name) <= maxTextSelectorLength {
		base += "[name=" + quote(name) + "s]"
	}
	sel, err := e.Parse(base)
	if err != nil {
		return nil
	}
	for i, n := range e.Query(sel, dom.TreeRoot(el)) {
		if n == el {
			return []string{base + " >> nth=" + strconv.Itoa(i)}
		}
	}
	return nil
}

func (e *Engine) resolvesTo(selector string, root, el *html.Node) bool {
	sel, err := e.Parse(selector)
	if err != nil {
		return false
	}
	found := e.Query(sel, root)
	return len(found) == 1 && found[0] == el
}

// CSSPath returns a child-combinator path from the nearest ancestor with an
// id (or the tree root) down to el, using :nth-of-type where siblings share
// a tag.
func CSSPath(el *html.Node) string {
	var steps []string
	for n := el; n != nil && n.Type == html.ElementNode; n = n.Parent {
		if id := dom.Attr(n, "id"); cssIdent.MatchString(id) {
			steps = append(steps, "#"+id)
			break
		}
		step := n.Data
		index, total := 1, 1
		if n.Parent != nil {
			index, total = 0, 0
			for sib := n.Parent.FirstChild; sib != nil; sib = sib.NextSibling {
				if sib.Type == html.ElementNode && sib.Data == n.Data {
					total++
					if sib == n {
						index = total
					}
				}
			}
		}
		if total > 1 {
			step += ":nth-of-type(" + strconv.Itoa(index) + ")"
		}
		steps = append(steps, step)
		if n.Data == "html" {
			break
		}
	}
	for i, j := 0, len(steps)-1; i < j; i, j = i+1, j-1 {
		steps[i], steps[j] = steps[j], steps[i]
	}
	return strings.Join(steps, " > ")
}
