package views

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"pagefind/internal/dom"
)

// OutlineLine is one element of the document outline.
type OutlineLine struct {
	Node  *html.Node
	Depth int
	Tag   string
	Text  string
}

// BuildOutline lists the elements below root in document order with their
// own text, truncated to textWidth runes. Call it under the document's
// read lock.
func BuildOutline(root *html.Node, textWidth int) []OutlineLine {
	var lines []OutlineLine
	var walk func(n *html.Node, depth int)
	walk = func(n *html.Node, depth int) {
		dom.Walk(n, func(el *html.Node) bool {
			switch el.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Head, atom.Template:
				return false
			}
			lines = append(lines, OutlineLine{
				Node:  el,
				Depth: depth,
				Tag:   describeTag(el),
				Text:  truncate(ownText(el), textWidth),
			})
			walk(el, depth+1)
			return false
		})
	}
	walk(root, 0)
	return lines
}

// RenderOutline renders lines, marking current. It returns the rendered
// text and the index of the current line, or -1.
func RenderOutline(lines []OutlineLine, current *html.Node, styles *Styles) (string, int) {
	var b strings.Builder
	currentLine := -1
	for i, line := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		indent := strings.Repeat("  ", line.Depth)
		body := styles.Tag.Render(line.Tag)
		if line.Text != "" {
			body += " " + styles.Text.Render(line.Text)
		}
		if line.Node == current && current != nil {
			currentLine = i
			plain := line.Tag
			if line.Text != "" {
				plain += " " + line.Text
			}
			b.WriteString(styles.Marker.Render("▶ ") + indent + styles.Current.Render(plain))
			continue
		}
		b.WriteString("  " + indent + body)
	}
	return b.String(), currentLine
}

func describeTag(el *html.Node) string {
	var b strings.Builder
	b.WriteString("<" + dom.TagName(el))
	if id := dom.Attr(el, "id"); id != "" {
		b.WriteString("#" + id)
	}
	for _, class := range strings.Fields(dom.Attr(el, "class")) {
		b.WriteString("." + class)
	}
	b.WriteString(">")
	return b.String()
}

// ownText is the element's direct text, without descendants.
func ownText(el *html.Node) string {
	var b strings.Builder
	for ch := el.FirstChild; ch != nil; ch = ch.NextSibling {
		if ch.Type == html.TextNode {
			b.WriteString(ch.Data)
			b.WriteByte(' ')
		}
	}
	if text := dom.NormalizeWhitespace(b.String()); text != "" {
		return text
	}
	if el.DataAtom == atom.Input {
		return dom.Attr(el, "value")
	}
	return ""
}

func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}
