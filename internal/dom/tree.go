package dom

import (
	"sort"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// IsShadowRoot reports whether n is a declarative shadow root
// (<template shadowrootmode="open|closed">).
func IsShadowRoot(n *html.Node) bool {
	if !IsElement(n) || n.DataAtom != atom.Template {
		return false
	}
	_, ok := LookupAttr(n, "shadowrootmode")
	return ok
}

// isInert reports whether the children of n are not part of the rendered
// tree: plain <template> content.
func isInert(n *html.Node) bool {
	return n.DataAtom == atom.Template && !IsShadowRoot(n)
}

// Walk visits the element descendants of root depth-first in document order.
// root itself is not visited. Shadow roots are entered transparently; the
// template element standing for a shadow root is not reported. Returning
// false from fn skips the element's subtree.
func Walk(root *html.Node, fn func(n *html.Node) bool) {
	if root == nil {
		return
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if !IsElement(c) {
			continue
		}
		if IsShadowRoot(c) {
			Walk(c, fn)
			continue
		}
		if !fn(c) {
			continue
		}
		if isInert(c) {
			continue
		}
		Walk(c, fn)
	}
}

// Elements collects the element descendants of root in document order.
func Elements(root *html.Node) []*html.Node {
	var out []*html.Node
	Walk(root, func(n *html.Node) bool {
		out = append(out, n)
		return true
	})
	return out
}

// Contains reports whether b is a or lies inside a's subtree, shadow roots
// included.
func Contains(a, b *html.Node) bool {
	if a == nil || b == nil {
		return false
	}
	for n := b; n != nil; n = n.Parent {
		if n == a {
			return true
		}
	}
	return false
}

// ParentElement returns the closest element ancestor, skipping shadow root
// templates so that a shadow child reports its host.
func ParentElement(n *html.Node) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if IsElement(p) && !IsShadowRoot(p) {
			return p
		}
	}
	return nil
}

// ComparePosition orders two nodes of the same tree: -1 if a precedes b in
// document order, 1 if it follows, 0 if they are the same node. An ancestor
// precedes its descendants. Nodes from different trees compare by their
// roots' identity, which only keeps the order total.
func ComparePosition(a, b *html.Node) int {
	if a == b {
		return 0
	}
	pa := ancestry(a)
	pb := ancestry(b)
	if pa[0] != pb[0] {
		return 1
	}
	i := 0
	for i < len(pa) && i < len(pb) && pa[i] == pb[i] {
		i++
	}
	switch {
	case i == len(pa):
		return -1
	case i == len(pb):
		return 1
	}
	for s := pa[i].NextSibling; s != nil; s = s.NextSibling {
		if s == pb[i] {
			return -1
		}
	}
	return 1
}

// Precedes reports whether a comes before b in document order.
func Precedes(a, b *html.Node) bool {
	return ComparePosition(a, b) < 0
}

// SortDocumentOrder sorts nodes in place by document position.
func SortDocumentOrder(nodes []*html.Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return Precedes(nodes[i], nodes[j])
	})
}

// Unique drops repeated nodes, keeping the first occurrence.
func Unique(nodes []*html.Node) []*html.Node {
	seen := make(map[*html.Node]bool, len(nodes))
	out := nodes[:0]
	for _, n := range nodes {
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// ancestry returns the chain from the tree root down to n.
func ancestry(n *html.Node) []*html.Node {
	var chain []*html.Node
	for ; n != nil; n = n.Parent {
		chain = append(chain, n)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}
