package locator

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/andybalholm/cascadia"
)

// ErrEmptySelector is returned for blank selectors or blank chain parts.
var ErrEmptySelector = errors.New("empty selector")

// Selector is a parsed, query-ready selector: a chain of engine parts
// joined by " >> ", each scoped to the matches of the previous one.
type Selector struct {
	source string
	parts  []part
}

// String returns the selector source.
func (s Selector) String() string {
	return s.source
}

type part struct {
	source string
	engine string
	body   string
	css    cascadia.SelectorGroup
	text   textPattern
	role   roleQuery
	attr   attrQuery
	nth    int
}

// textPattern matches element text or attribute values. exact compares the
// whole white-space normalized string case-sensitively; otherwise the match
// is a case-insensitive substring test.
type textPattern struct {
	value string
	exact bool
	re    *regexp.Regexp
}

type roleQuery struct {
	role          string
	name          *textPattern
	level         int
	checked       string
	disabled      *bool
	expanded      *bool
	pressed       *bool
	selected      *bool
	includeHidden bool
}

type attrQuery struct {
	name    string
	pattern textPattern
}

var enginePrefix = regexp.MustCompile(`^(internal:)?([a-z][a-z-]*)=`)

// Parse compiles a selector string.
func (e *Engine) Parse(selector string) (Selector, error) {
	chunks, err := splitChain(selector)
	if err != nil {
		return Selector{}, err
	}
	sel := Selector{source: strings.TrimSpace(selector)}
	for i, chunk := range chunks {
		p, err := e.parsePart(chunk)
		if err != nil {
			return Selector{}, fmt.Errorf("invalid selector part %q: %w", chunk, err)
		}
		p.source = chunk
		if p.engine == "nth" && i == 0 {
			return Selector{}, fmt.Errorf("nth= cannot start a selector")
		}
		sel.parts = append(sel.parts, p)
	}
	return sel, nil
}

func (e *Engine) parsePart(chunk string) (part, error) {
	m := enginePrefix.FindStringSubmatch(chunk)
	if m == nil {
		return compileCSS(chunk)
	}
	name := m[2]
	body := strings.TrimSpace(chunk[len(m[0]):])
	if body == "" {
		return part{}, ErrEmptySelector
	}
	p := part{engine: name, body: body}

	switch name {
	case "css":
		return compileCSS(body)
	case "text", "label", "has-text":
		pat, err := parseTextBody(body, true)
		if err != nil {
			return part{}, err
		}
		if name == "has-text" {
			p.engine = "text"
		}
		p.text = pat
	case "role":
		rq, err := parseRoleBody(body)
		if err != nil {
			return part{}, err
		}
		p.role = rq
	case "placeholder", "alt", "title":
		pat, err := parseTextBody(body, false)
		if err != nil {
			return part{}, err
		}
		p.engine = "attr"
		p.attr = attrQuery{name: name, pattern: pat}
	case "attr":
		aq, err := parseAttrBody(body)
		if err != nil {
			return part{}, err
		}
		p.attr = aq
	case "testid":
		if strings.HasPrefix(body, "[") {
			aq, err := parseAttrBody(body)
			if err != nil {
				return part{}, err
			}
			p.attr = aq
		} else {
			value, err := unquoteValue(body)
			if err != nil {
				return part{}, err
			}
			p.attr = attrQuery{name: e.TestIDAttribute, pattern: textPattern{value: value, exact: true}}
		}
		p.engine = "attr"
	case "id", "data-testid", "data-test-id", "data-test":
		value, err := unquoteValue(body)
		if err != nil {
			return part{}, err
		}
		p.engine = "attr"
		p.attr = attrQuery{name: name, pattern: textPattern{value: value, exact: true}}
	case "nth":
		n, err := strconv.Atoi(body)
		if err != nil {
			return part{}, fmt.Errorf("nth expects an integer: %w", err)
		}
		p.nth = n
	default:
		return part{}, fmt.Errorf("unknown selector engine %q", name)
	}
	return p, nil
}

func compileCSS(source string) (part, error) {
	group, err := cascadia.ParseGroup(source)
	if err != nil {
		return part{}, fmt.Errorf("invalid css: %w", err)
	}
	return part{engine: "css", body: source, css: group}, nil
}

// splitChain splits on ">>" outside quotes, brackets and parentheses.
func splitChain(s string) ([]string, error) {
	var (
		parts []string
		depth int
		quote byte
		start int
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '[', '(':
			depth++
		case ']', ')':
			depth--
		case '>':
			if depth == 0 && i+1 < len(s) && s[i+1] == '>' {
				parts = append(parts, strings.TrimSpace(s[start:i]))
				i++
				start = i + 1
			}
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated string in %q", s)
	}
	parts = append(parts, strings.TrimSpace(s[start:]))
	for _, p := range parts {
		if p == "" {
			return nil, ErrEmptySelector
		}
	}
	return parts, nil
}

// parseTextBody reads "value"[is], 'value'[is], /regex/flags or a bare
// value. quotedExact decides what an unsuffixed quoted value means.
func parseTextBody(body string, quotedExact bool) (textPattern, error) {
	body = strings.TrimSpace(body)
	switch {
	case strings.HasPrefix(body, "/"):
		re, rest, err := parseRegexLiteral(body)
		if err != nil {
			return textPattern{}, err
		}
		if rest != "" {
			return textPattern{}, fmt.Errorf("unexpected %q after regex", rest)
		}
		return textPattern{re: re}, nil
	case strings.HasPrefix(body, `"`), strings.HasPrefix(body, "'"):
		value, rest, err := readQuoted(body)
		if err != nil {
			return textPattern{}, err
		}
		switch rest {
		case "":
			return textPattern{value: value, exact: quotedExact}, nil
		case "s":
			return textPattern{value: value, exact: true}, nil
		case "i":
			return textPattern{value: value}, nil
		}
		return textPattern{}, fmt.Errorf("unknown text flag %q", rest)
	}
	return textPattern{value: body}, nil
}

func parseRegexLiteral(s string) (*regexp.Regexp, string, error) {
	source, flags, n, err := splitRegexLiteral(s)
	if err != nil {
		return nil, "", err
	}
	re, err := compileRegex(source, flags)
	if err != nil {
		return nil, "", err
	}
	return re, strings.TrimSpace(s[n:]), nil
}

// splitRegexLiteral reads a leading /source/flags literal and reports how
// many bytes it spans.
func splitRegexLiteral(s string) (source, flags string, n int, err error) {
	end := -1
	inClass := false
scan:
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '[':
			inClass = true
		case ']':
			inClass = false
		case '/':
			if !inClass {
				end = i
				break scan
			}
		}
	}
	if end < 0 {
		return "", "", 0, fmt.Errorf("unterminated regex %q", s)
	}
	n = end + 1
	for n < len(s) && strings.IndexByte("dgimsuy", s[n]) >= 0 {
		n++
	}
	return s[1:end], s[end+1 : n], n, nil
}

func compileRegex(source, flags string) (*regexp.Regexp, error) {
	prefix := ""
	for _, f := range flags {
		if f == 'i' || f == 'm' || f == 's' {
			prefix += string(f)
		}
	}
	if prefix != "" {
		source = "(?" + prefix + ")" + source
	}
	re, err := regexp.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("invalid regex: %w", err)
	}
	return re, nil
}

// readQuoted consumes a leading quoted string and returns its value and the
// trimmed remainder.
func readQuoted(s string) (string, string, error) {
	value, n, err := scanQuoted(s)
	if err != nil {
		return "", "", err
	}
	return value, strings.TrimSpace(s[n:]), nil
}

// scanQuoted reads a leading quoted string, resolving backslash escapes, and
// reports how many bytes it spans.
func scanQuoted(s string) (string, int, error) {
	q := s[0]
	var b strings.Builder
	for i := 1; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\' && i+1 < len(s):
			i++
			b.WriteByte(s[i])
		case c == q:
			return b.String(), i + 1, nil
		default:
			b.WriteByte(c)
		}
	}
	return "", 0, fmt.Errorf("unterminated string %q", s)
}

func unquoteValue(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrEmptySelector
	}
	if s[0] != '"' && s[0] != '\'' {
		return s, nil
	}
	value, rest, err := readQuoted(s)
	if err != nil {
		return "", err
	}
	if rest != "" && rest != "s" && rest != "i" {
		return "", fmt.Errorf("unexpected %q after value", rest)
	}
	return value, nil
}

type attrClause struct {
	key      string
	value    string
	hasValue bool
}

// parseAttrClauses reads [key] and [key=value] groups until the end of s.
func parseAttrClauses(s string) ([]attrClause, error) {
	var out []attrClause
	s = strings.TrimSpace(s)
	for s != "" {
		if s[0] != '[' {
			return nil, fmt.Errorf("expected '[' at %q", s)
		}
		s = strings.TrimSpace(s[1:])
		keyEnd := strings.IndexAny(s, "=]")
		if keyEnd <= 0 {
			return nil, fmt.Errorf("malformed attribute at %q", s)
		}
		clause := attrClause{key: strings.TrimSpace(s[:keyEnd])}
		s = s[keyEnd:]
		if s[0] == '=' {
			s = strings.TrimSpace(s[1:])
			end, err := valueEnd(s)
			if err != nil {
				return nil, err
			}
			clause.value = strings.TrimSpace(s[:end])
			clause.hasValue = true
			s = strings.TrimSpace(s[end:])
			if s == "" || s[0] != ']' {
				return nil, fmt.Errorf("expected ']' after %q", clause.value)
			}
		}
		s = strings.TrimSpace(s[1:])
		out = append(out, clause)
	}
	return out, nil
}

// valueEnd finds the index of the ']' closing an attribute value.
func valueEnd(s string) (int, error) {
	var quote byte
	inClass := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			switch {
			case c == '\\':
				i++
			case quote == '/' && c == '[':
				inClass = true
			case quote == '/' && c == ']' && inClass:
				inClass = false
			case c == quote && !inClass:
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '/':
			if strings.TrimSpace(s[:i]) == "" {
				quote = c
			}
		case ']':
			return i, nil
		}
	}
	return 0, fmt.Errorf("unterminated attribute %q", s)
}

func parseRoleBody(body string) (roleQuery, error) {
	end := strings.IndexByte(body, '[')
	if end < 0 {
		end = len(body)
	}
	rq := roleQuery{role: strings.ToLower(strings.TrimSpace(body[:end]))}
	if rq.role == "" {
		return roleQuery{}, fmt.Errorf("missing role")
	}
	clauses, err := parseAttrClauses(body[end:])
	if err != nil {
		return roleQuery{}, err
	}
	for _, c := range clauses {
		switch c.key {
		case "name":
			pat, err := parseTextBody(c.value, false)
			if err != nil {
				return roleQuery{}, err
			}
			rq.name = &pat
		case "level":
			n, err := strconv.Atoi(c.value)
			if err != nil {
				return roleQuery{}, fmt.Errorf("level expects an integer: %w", err)
			}
			rq.level = n
		case "checked":
			v := strings.Trim(c.value, `"'`)
			if !c.hasValue {
				v = "true"
			}
			if v != "true" && v != "false" && v != "mixed" {
				return roleQuery{}, fmt.Errorf("checked expects true, false or mixed")
			}
			rq.checked = v
		case "disabled", "expanded", "pressed", "selected", "include-hidden":
			v := true
			if c.hasValue {
				b, err := strconv.ParseBool(strings.Trim(c.value, `"'`))
				if err != nil {
					return roleQuery{}, fmt.Errorf("%s expects a boolean: %w", c.key, err)
				}
				v = b
			}
			switch c.key {
			case "disabled":
				rq.disabled = &v
			case "expanded":
				rq.expanded = &v
			case "pressed":
				rq.pressed = &v
			case "selected":
				rq.selected = &v
			case "include-hidden":
				rq.includeHidden = v
			}
		default:
			return roleQuery{}, fmt.Errorf("unknown role attribute %q", c.key)
		}
	}
	return rq, nil
}

func parseAttrBody(body string) (attrQuery, error) {
	clauses, err := parseAttrClauses(body)
	if err != nil {
		return attrQuery{}, err
	}
	if len(clauses) != 1 || !clauses[0].hasValue {
		return attrQuery{}, fmt.Errorf("expected a single [name=value] clause")
	}
	pat, err := parseTextBody(clauses[0].value, false)
	if err != nil {
		return attrQuery{}, err
	}
	return attrQuery{name: clauses[0].key, pattern: pat}, nil
}
