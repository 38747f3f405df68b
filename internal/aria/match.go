package aria

import (
	"strings"

	"golang.org/x/net/html"

	"pagefind/internal/a11y"
	"pagefind/internal/dom"
)

// Matcher finds the elements whose accessibility subtree satisfies a
// template.
type Matcher struct{}

// MatchAll returns, in document order, every element below root whose
// snapshot node matches tmpl. A text template reports the element owning
// the text; a fragment reports elements whose children contain the
// fragment's entries in order.
func (Matcher) MatchAll(root *html.Node, tmpl *Template) []*html.Node {
	if root == nil || tmpl == nil {
		return nil
	}
	snap := Snapshot(root)
	var out []*html.Node
	var visit func(n, parent *Node)
	visit = func(n, parent *Node) {
		if matchesNode(n, tmpl) {
			context := n
			if n.IsText() {
				context = parent
			}
			if context != nil && context.Element != nil {
				out = append(out, context.Element)
			}
		}
		for _, ch := range n.Children {
			visit(ch, n)
		}
	}
	visit(snap, nil)

	out = dom.Unique(out)
	dom.SortDocumentOrder(out)
	return out
}

func matchesNode(n *Node, t *Template) bool {
	if n.IsText() || t.Kind == KindText {
		return n.IsText() && t.Kind == KindText && matchesText(n.Name, t.Text)
	}
	if t.Kind == KindRole && t.Role != n.Role {
		return false
	}
	if t.Kind == KindRole && !matchesState(n.Element, t) {
		return false
	}
	if t.Name != nil && !matchesName(n.Name, t.Name) {
		return false
	}
	return containsList(n.Children, t.Children)
}

func matchesState(el *html.Node, t *Template) bool {
	if el == nil {
		return t.Level == 0 && t.Checked == "" && t.Disabled == nil &&
			t.Expanded == nil && t.Pressed == nil && t.Selected == nil
	}
	if t.Level > 0 && a11y.HeadingLevel(el) != t.Level {
		return false
	}
	if t.Checked != "" && a11y.Checked(el) != t.Checked {
		return false
	}
	if t.Disabled != nil && a11y.Disabled(el) != *t.Disabled {
		return false
	}
	for attr, want := range map[string]*bool{
		"aria-expanded": t.Expanded,
		"aria-pressed":  t.Pressed,
		"aria-selected": t.Selected,
	} {
		if want == nil {
			continue
		}
		if got, _ := a11y.BoolState(el, attr); got != *want {
			return false
		}
	}
	return true
}

// containsList reports whether template entries match children in order,
// allowing unmatched children between them.
func containsList(children []*Node, templates []*Template) bool {
	if len(templates) > len(children) {
		return false
	}
	i := 0
	for _, t := range templates {
		for i < len(children) && !matchesNode(children[i], t) {
			i++
		}
		if i == len(children) {
			return false
		}
		i++
	}
	return true
}

func matchesName(name string, p *Pattern) bool {
	if p.Regex != nil {
		return p.Regex.MatchString(name)
	}
	return dom.NormalizeWhitespace(name) == p.Value
}

func matchesText(text string, p *Pattern) bool {
	if p == nil {
		return true
	}
	if p.Regex != nil {
		return p.Regex.MatchString(text)
	}
	return strings.Contains(dom.NormalizeWhitespace(text), p.Value)
}
