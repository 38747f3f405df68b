// Package aria parses accessibility-tree templates and matches them
// against the accessibility snapshot of a document.
//
// A template is a YAML sequence of entries:
//
//	# account page
//	- heading "Account" [level=1]
//	- list:
//	  - listitem: Apple
//	  - listitem /Ban.na/
//	- text: Hello
//
// Each entry names a role, optionally followed by a quoted name or a
// /regex/ and [attribute] clauses. A mapping value is either the entry's
// text content or a nested sequence of children.
package aria

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"pagefind/internal/dom"
)

// Kind distinguishes template nodes.
type Kind int

const (
	KindRole Kind = iota
	KindText
	KindFragment
)

// Pattern matches a name or text either literally or by regex.
type Pattern struct {
	Value string
	Regex *regexp.Regexp
}

// Template is one node of a parsed accessibility template.
type Template struct {
	Kind     Kind
	Role     string
	Name     *Pattern
	Text     *Pattern
	Level    int
	Checked  string
	Disabled *bool
	Expanded *bool
	Pressed  *bool
	Selected *bool
	Children []*Template
}

// ParseResult is the outcome of parsing a template. Error is set instead
// of Fragment when the text is not a valid template.
type ParseResult struct {
	Fragment *Template
	Error    string
}

// Parse parses template text. Several top-level entries are wrapped in a
// fragment node; a single entry is returned as is.
func Parse(text string) ParseResult {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		return ParseResult{Error: err.Error()}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return ParseResult{Error: "empty template"}
	}
	seq := doc.Content[0]
	if seq.Kind != yaml.SequenceNode {
		return ParseResult{Error: fmt.Sprintf("line %d: template must be a list of entries", seq.Line)}
	}
	children, err := parseSequence(seq)
	if err != nil {
		return ParseResult{Error: err.Error()}
	}
	if len(children) == 0 {
		return ParseResult{Error: "empty template"}
	}
	if len(children) == 1 {
		return ParseResult{Fragment: children[0]}
	}
	return ParseResult{Fragment: &Template{Kind: KindFragment, Children: children}}
}

// Binding parses templates on behalf of the search controller.
type Binding struct{}

// ParseAriaTemplate parses text unless ctx is already done.
func (Binding) ParseAriaTemplate(ctx context.Context, text string) (ParseResult, error) {
	if err := ctx.Err(); err != nil {
		return ParseResult{}, err
	}
	return Parse(text), nil
}

func parseSequence(seq *yaml.Node) ([]*Template, error) {
	var out []*Template
	for _, item := range seq.Content {
		t, err := parseEntry(item)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func parseEntry(item *yaml.Node) (*Template, error) {
	switch item.Kind {
	case yaml.ScalarNode:
		return parseKey(item.Value, item.Line)
	case yaml.MappingNode:
		if len(item.Content) != 2 {
			return nil, fmt.Errorf("line %d: an entry maps exactly one key", item.Line)
		}
		key, value := item.Content[0], item.Content[1]
		if key.Value == "text" {
			if value.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: text expects a string", value.Line)
			}
			pat, err := parseValuePattern(value.Value)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", value.Line, err)
			}
			return &Template{Kind: KindText, Text: pat}, nil
		}
		t, err := parseKey(key.Value, key.Line)
		if err != nil {
			return nil, err
		}
		switch value.Kind {
		case yaml.ScalarNode:
			if value.Value == "" {
				return t, nil
			}
			pat, err := parseValuePattern(value.Value)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", value.Line, err)
			}
			t.Children = []*Template{{Kind: KindText, Text: pat}}
		case yaml.SequenceNode:
			children, err := parseSequence(value)
			if err != nil {
				return nil, err
			}
			t.Children = children
		default:
			return nil, fmt.Errorf("line %d: unexpected value for %q", value.Line, key.Value)
		}
		return t, nil
	}
	return nil, fmt.Errorf("line %d: unexpected entry", item.Line)
}

// parseValuePattern reads a text value, which is a regex when wrapped in
// slashes.
func parseValuePattern(s string) (*Pattern, error) {
	s = strings.TrimSpace(s)
	if len(s) > 1 && strings.HasPrefix(s, "/") && strings.HasSuffix(s, "/") {
		re, err := regexp.Compile(s[1 : len(s)-1])
		if err != nil {
			return nil, err
		}
		return &Pattern{Regex: re}, nil
	}
	return &Pattern{Value: dom.NormalizeWhitespace(s)}, nil
}

// parseKey reads `role "name" [attr=value]...` or `role /regex/ [...]`.
func parseKey(s string, line int) (*Template, error) {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && (s[end] >= 'a' && s[end] <= 'z' || s[end] >= 'A' && s[end] <= 'Z') {
		end++
	}
	if end == 0 {
		return nil, fmt.Errorf("line %d: expected a role in %q", line, s)
	}
	t := &Template{Kind: KindRole, Role: strings.ToLower(s[:end])}
	if t.Role == "text" {
		t.Kind = KindText
	}
	rest := strings.TrimSpace(s[end:])

	switch {
	case strings.HasPrefix(rest, `"`):
		name, n, err := readString(rest)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		t.Name = &Pattern{Value: dom.NormalizeWhitespace(name)}
		rest = strings.TrimSpace(rest[n:])
	case strings.HasPrefix(rest, "/"):
		end := closingSlash(rest)
		if end < 0 {
			return nil, fmt.Errorf("line %d: unterminated regex in %q", line, s)
		}
		re, err := regexp.Compile(rest[1:end])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		t.Name = &Pattern{Regex: re}
		rest = strings.TrimSpace(rest[end+1:])
	}
	if t.Kind == KindText {
		t.Text, t.Name = t.Name, nil
	}

	for rest != "" {
		if rest[0] != '[' {
			return nil, fmt.Errorf("line %d: unexpected %q", line, rest)
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return nil, fmt.Errorf("line %d: unterminated attribute in %q", line, s)
		}
		if err := t.applyAttribute(strings.TrimSpace(rest[1:end])); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rest = strings.TrimSpace(rest[end+1:])
	}
	return t, nil
}

func (t *Template) applyAttribute(clause string) error {
	key, value, hasValue := strings.Cut(clause, "=")
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	switch key {
	case "level":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("level expects a positive integer, got %q", value)
		}
		t.Level = n
		return nil
	case "checked":
		if !hasValue {
			value = "true"
		}
		if value != "true" && value != "false" && value != "mixed" {
			return fmt.Errorf("checked expects true, false or mixed, got %q", value)
		}
		t.Checked = value
		return nil
	}
	b := true
	if hasValue {
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s expects a boolean, got %q", key, value)
		}
		b = v
	}
	switch key {
	case "disabled":
		t.Disabled = &b
	case "expanded":
		t.Expanded = &b
	case "pressed":
		t.Pressed = &b
	case "selected":
		t.Selected = &b
	default:
		return errors.New("unknown attribute " + strconv.Quote(key))
	}
	return nil
}

func readString(s string) (string, int, error) {
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			v, err := strconv.Unquote(s[:i+1])
			if err != nil {
				return "", 0, fmt.Errorf("bad name %s: %w", s[:i+1], err)
			}
			return v, i + 1, nil
		}
	}
	return "", 0, fmt.Errorf("unterminated name in %q", s)
}

func closingSlash(s string) int {
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '/':
			return i
		}
	}
	return -1
}
