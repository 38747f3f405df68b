package aria

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"gopkg.in/yaml.v3"

	"pagefind/internal/a11y"
	"pagefind/internal/dom"
)

// RoleFragment is the role of a snapshot root.
const RoleFragment = "fragment"

// Node is one node of the accessibility snapshot. Text nodes have role
// "text" and carry their content in Name.
type Node struct {
	Role     string
	Name     string
	Element  *html.Node
	Children []*Node
}

// IsText reports whether n is a text node.
func (n *Node) IsText() bool {
	return n.Role == "text" && n.Element == nil
}

// Snapshot builds the accessibility tree below root. Structural elements
// (generic, presentation, none) are flattened into their parent, hidden
// subtrees are dropped and adjacent text is merged.
func Snapshot(root *html.Node) *Node {
	top := &Node{Role: RoleFragment, Element: root}
	for ch := root.FirstChild; ch != nil; ch = ch.NextSibling {
		top.Children = append(top.Children, build(ch)...)
	}
	top.Children = mergeText(top.Children)
	return top
}

func build(n *html.Node) []*Node {
	switch n.Type {
	case html.TextNode:
		if text := dom.NormalizeWhitespace(n.Data); text != "" {
			return []*Node{{Role: "text", Name: text}}
		}
		return nil
	case html.ElementNode:
	default:
		return nil
	}
	if a11y.IsHidden(n) {
		return nil
	}
	var children []*Node
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		children = append(children, build(ch)...)
	}
	children = mergeText(children)

	role := a11y.Role(n)
	if dom.IsShadowRoot(n) || a11y.IsStructural(role) {
		return children
	}
	return []*Node{{Role: role, Name: a11y.AccessibleName(n), Element: n, Children: children}}
}

func mergeText(nodes []*Node) []*Node {
	var out []*Node
	for _, n := range nodes {
		if n.IsText() && len(out) > 0 && out[len(out)-1].IsText() {
			prev := out[len(out)-1]
			out[len(out)-1] = &Node{Role: "text", Name: prev.Name + " " + n.Name}
			continue
		}
		out = append(out, n)
	}
	return out
}

// String renders the snapshot in template syntax, so a snapshot can be
// pasted back as a query.
func (n *Node) String() string {
	seq := &yaml.Node{Kind: yaml.SequenceNode}
	if n.Role == RoleFragment {
		for _, ch := range n.Children {
			seq.Content = append(seq.Content, ch.yamlEntry())
		}
	} else {
		seq.Content = append(seq.Content, n.yamlEntry())
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(seq); err != nil {
		return fmt.Sprintf("# %v", err)
	}
	_ = enc.Close()
	return buf.String()
}

func (n *Node) key() string {
	if n.IsText() {
		return "text"
	}
	var b strings.Builder
	b.WriteString(n.Role)
	if n.Name != "" {
		b.WriteString(" " + strconv.Quote(n.Name))
	}
	el := n.Element
	if el == nil {
		return b.String()
	}
	if lvl := a11y.HeadingLevel(el); lvl > 0 && n.Role == "heading" {
		b.WriteString(fmt.Sprintf(" [level=%d]", lvl))
	}
	switch a11y.Checked(el) {
	case "true":
		b.WriteString(" [checked]")
	case "mixed":
		b.WriteString(" [checked=mixed]")
	}
	if a11y.Disabled(el) {
		b.WriteString(" [disabled]")
	}
	for _, attr := range []string{"expanded", "pressed", "selected"} {
		if v, ok := a11y.BoolState(el, "aria-"+attr); ok && v {
			b.WriteString(" [" + attr + "]")
		}
	}
	return b.String()
}

func (n *Node) yamlEntry() *yaml.Node {
	key := &yaml.Node{Kind: yaml.ScalarNode, Value: n.key()}
	if n.IsText() {
		return &yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{key, {Kind: yaml.ScalarNode, Value: n.Name}}}
	}
	single := len(n.Children) == 1 && n.Children[0].IsText()
	switch {
	case len(n.Children) == 0, single && n.Children[0].Name == n.Name:
		return key
	case single:
		return &yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{key, {Kind: yaml.ScalarNode, Value: n.Children[0].Name}}}
	}
	seq := &yaml.Node{Kind: yaml.SequenceNode}
	for _, ch := range n.Children {
		seq.Content = append(seq.Content, ch.yamlEntry())
	}
	return &yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{key, seq}}
}
