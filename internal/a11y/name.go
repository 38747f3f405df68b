package a11y

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"pagefind/internal/dom"
)

// nameFromContent lists roles whose accessible name defaults to their text.
var nameFromContent = map[string]bool{
	"button":       true,
	"cell":         true,
	"checkbox":     true,
	"columnheader": true,
	"heading":      true,
	"link":         true,
	"menuitem":     true,
	"option":       true,
	"radio":        true,
	"row":          true,
	"rowheader":    true,
	"switch":       true,
	"tab":          true,
	"tooltip":      true,
	"treeitem":     true,
}

// AccessibleName computes a simplified accessible name: aria-labelledby,
// aria-label, associated labels for form controls, alt/title, and the text
// content for roles that take their name from content.
func AccessibleName(n *html.Node) string {
	if !dom.IsElement(n) {
		return ""
	}
	if ref := dom.Attr(n, "aria-labelledby"); ref != "" {
		root := dom.TreeRoot(n)
		var parts []string
		for _, id := range strings.Fields(ref) {
			if target := dom.ByID(root, id); target != nil {
				parts = append(parts, dom.ElementText(target))
			}
		}
		if name := dom.NormalizeWhitespace(strings.Join(parts, " ")); name != "" {
			return name
		}
	}
	if label := dom.NormalizeWhitespace(dom.Attr(n, "aria-label")); label != "" {
		return label
	}
	if isLabelable(n) {
		if labels := LabelTexts(n); len(labels) > 0 {
			return strings.Join(labels, " ")
		}
	}
	switch n.DataAtom {
	case atom.Img, atom.Area:
		if alt := dom.NormalizeWhitespace(dom.Attr(n, "alt")); alt != "" {
			return alt
		}
	case atom.Input:
		switch strings.ToLower(dom.Attr(n, "type")) {
		case "button", "submit", "reset":
			if v := dom.NormalizeWhitespace(dom.Attr(n, "value")); v != "" {
				return v
			}
			if strings.EqualFold(dom.Attr(n, "type"), "submit") {
				return "Submit"
			}
		case "image":
			if alt := dom.NormalizeWhitespace(dom.Attr(n, "alt")); alt != "" {
				return alt
			}
		}
	}
	if nameFromContent[Role(n)] {
		if text := dom.NormalizeWhitespace(dom.ElementText(n)); text != "" {
			return text
		}
	}
	return dom.NormalizeWhitespace(dom.Attr(n, "title"))
}

func isLabelable(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Input, atom.Select, atom.Textarea, atom.Button, atom.Meter, atom.Output, atom.Progress:
		return true
	}
	return false
}

// LabelTexts returns the normalized text of every <label> associated with
// a form control, through for= or by nesting.
func LabelTexts(n *html.Node) []string {
	var out []string
	if id := dom.Attr(n, "id"); id != "" {
		dom.Walk(dom.TreeRoot(n), func(e *html.Node) bool {
			if e.DataAtom == atom.Label && dom.Attr(e, "for") == id {
				if text := dom.NormalizeWhitespace(dom.ElementText(e)); text != "" {
					out = append(out, text)
				}
			}
			return true
		})
	}
	for p := dom.ParentElement(n); p != nil; p = dom.ParentElement(p) {
		if p.DataAtom == atom.Label {
			if text := dom.NormalizeWhitespace(dom.ElementText(p)); text != "" {
				out = append(out, text)
			}
			break
		}
	}
	return out
}
