// Package a11y computes the accessibility view of elements: ARIA roles,
// accessible names, hidden-ness and widget states.
package a11y

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"pagefind/internal/dom"
)

// Roles that never contribute a node of their own to the accessibility tree.
const (
	RoleGeneric      = "generic"
	RolePresentation = "presentation"
	RoleNone         = "none"
)

// Role returns the explicit role attribute when it is set, the implicit
// role of the element otherwise, or "" for generic containers.
func Role(n *html.Node) string {
	if !dom.IsElement(n) {
		return ""
	}
	if explicit := strings.Fields(dom.Attr(n, "role")); len(explicit) > 0 {
		return strings.ToLower(explicit[0])
	}
	return implicitRole(n)
}

// IsStructural reports roles that only group their children.
func IsStructural(role string) bool {
	switch role {
	case "", RoleGeneric, RolePresentation, RoleNone:
		return true
	}
	return false
}

func implicitRole(n *html.Node) string {
	switch n.DataAtom {
	case atom.A, atom.Area:
		if _, ok := dom.LookupAttr(n, "href"); ok {
			return "link"
		}
	case atom.Article:
		return "article"
	case atom.Aside:
		return "complementary"
	case atom.Button:
		return "button"
	case atom.Dialog:
		return "dialog"
	case atom.Fieldset:
		return "group"
	case atom.Footer:
		return "contentinfo"
	case atom.Form:
		return "form"
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		return "heading"
	case atom.Header:
		return "banner"
	case atom.Hr:
		return "separator"
	case atom.Img:
		if alt, ok := dom.LookupAttr(n, "alt"); ok && alt == "" {
			return RolePresentation
		}
		return "img"
	case atom.Input:
		return inputRole(n)
	case atom.Li:
		return "listitem"
	case atom.Main:
		return "main"
	case atom.Nav:
		return "navigation"
	case atom.Ol, atom.Ul, atom.Menu:
		return "list"
	case atom.Option:
		return "option"
	case atom.P:
		return "paragraph"
	case atom.Progress:
		return "progressbar"
	case atom.Section:
		if dom.Attr(n, "aria-label") != "" || dom.Attr(n, "aria-labelledby") != "" {
			return "region"
		}
	case atom.Select:
		if _, ok := dom.LookupAttr(n, "multiple"); ok {
			return "listbox"
		}
		if size, err := strconv.Atoi(dom.Attr(n, "size")); err == nil && size > 1 {
			return "listbox"
		}
		return "combobox"
	case atom.Table:
		return "table"
	case atom.Td:
		return "cell"
	case atom.Textarea:
		return "textbox"
	case atom.Th:
		return "columnheader"
	case atom.Tr:
		return "row"
	}
	return ""
}

func inputRole(n *html.Node) string {
	switch strings.ToLower(dom.Attr(n, "type")) {
	case "button", "submit", "reset", "image":
		return "button"
	case "checkbox":
		return "checkbox"
	case "radio":
		return "radio"
	case "range":
		return "slider"
	case "number":
		return "spinbutton"
	case "search":
		if dom.Attr(n, "list") != "" {
			return "combobox"
		}
		return "searchbox"
	case "hidden":
		return ""
	default:
		if dom.Attr(n, "list") != "" {
			return "combobox"
		}
		return "textbox"
	}
}

// HeadingLevel returns 1-6 for headings (aria-level wins), 0 otherwise.
func HeadingLevel(n *html.Node) int {
	if lvl, err := strconv.Atoi(dom.Attr(n, "aria-level")); err == nil && lvl > 0 {
		return lvl
	}
	switch n.DataAtom {
	case atom.H1:
		return 1
	case atom.H2:
		return 2
	case atom.H3:
		return 3
	case atom.H4:
		return 4
	case atom.H5:
		return 5
	case atom.H6:
		return 6
	}
	return 0
}

// Checked returns "true", "false", "mixed" or "" when the element is not
// checkable.
func Checked(n *html.Node) string {
	if v := dom.Attr(n, "aria-checked"); v != "" {
		return v
	}
	if n.DataAtom == atom.Input {
		switch strings.ToLower(dom.Attr(n, "type")) {
		case "checkbox", "radio":
			if _, ok := dom.LookupAttr(n, "checked"); ok {
				return "true"
			}
			return "false"
		}
	}
	return ""
}

// Disabled reports native or aria disabled state, inherited from a
// disabled fieldset.
func Disabled(n *html.Node) bool {
	for e := n; e != nil; e = dom.ParentElement(e) {
		if dom.Attr(e, "aria-disabled") == "true" {
			return true
		}
		switch e.DataAtom {
		case atom.Button, atom.Input, atom.Select, atom.Textarea, atom.Option, atom.Fieldset:
			if _, ok := dom.LookupAttr(e, "disabled"); ok {
				return true
			}
		}
	}
	return false
}

// BoolState reads a true/false aria state attribute such as aria-expanded.
// ok is false when the attribute is absent.
func BoolState(n *html.Node, attr string) (value bool, ok bool) {
	switch dom.Attr(n, attr) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	if attr == "aria-selected" && n.DataAtom == atom.Option {
		_, selected := dom.LookupAttr(n, "selected")
		return selected, true
	}
	return false, false
}

// IsHidden reports whether n is excluded from the accessibility tree.
func IsHidden(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Noscript, atom.Head, atom.Title, atom.Meta, atom.Link:
		return true
	case atom.Template:
		return !dom.IsShadowRoot(n)
	case atom.Input:
		if strings.EqualFold(dom.Attr(n, "type"), "hidden") {
			return true
		}
	}
	if _, ok := dom.LookupAttr(n, "hidden"); ok {
		return true
	}
	if dom.Attr(n, "aria-hidden") == "true" {
		return true
	}
	style := strings.ReplaceAll(strings.ToLower(dom.Attr(n, "style")), " ", "")
	return strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden")
}
