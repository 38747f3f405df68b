package search

import (
	"regexp"
	"strings"
)

// Mode is the strategy one search invocation runs with.
type Mode int

const (
	ModeAuto Mode = iota
	ModeLocator
	ModeAria
	ModeText
)

func (m Mode) String() string {
	switch m {
	case ModeLocator:
		return "locator"
	case ModeAria:
		return "aria"
	case ModeText:
		return "text"
	default:
		return "auto"
	}
}

// Classification is the detected mode plus the query handed to it.
type Classification struct {
	Mode  Mode
	Query string
}

const ariaPrefix = "/aria:"

var (
	yamlListEntry   = regexp.MustCompile(`^-\s+\w+`)
	locatorPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^(?:await\s+)?(?:page\.)?(?:getBy[A-Z]\w*|get_by_\w+|locator)\(`),
		regexp.MustCompile(`^(?:internal:)?(?:role|text|label|placeholder|alt|title|testid|css|id|nth|attr)=`),
		regexp.MustCompile(`^#[A-Za-z_-][\w-]*`),
		regexp.MustCompile(`^\[[\w-]+`),
		regexp.MustCompile(`^[\w-]+=\S`),
	}
)

// DetectMode classifies a trimmed, non-empty query. The first rule that
// applies wins: /aria: prefix, YAML list entry, quoted text, locator
// syntax, then auto.
func DetectMode(query string) Classification {
	if strings.HasPrefix(query, ariaPrefix) {
		return Classification{Mode: ModeAria, Query: strings.TrimSpace(query[len(ariaPrefix):])}
	}
	if strings.HasPrefix(query, "- ") || yamlListEntry.MatchString(query) {
		return Classification{Mode: ModeAria, Query: query}
	}
	if inner, ok := unquote(query); ok {
		return Classification{Mode: ModeText, Query: inner}
	}
	if IsLocatorSyntax(query) {
		return Classification{Mode: ModeLocator, Query: query}
	}
	return Classification{Mode: ModeAuto, Query: query}
}

// IsLocatorSyntax reports whether query looks like a selector or locator
// call rather than free text.
func IsLocatorSyntax(query string) bool {
	for _, re := range locatorPatterns {
		if re.MatchString(query) {
			return true
		}
	}
	return false
}

func unquote(s string) (string, bool) {
	if len(s) < 2 {
		return "", false
	}
	first, last := s[0], s[len(s)-1]
	if (first == '"' || first == '\'') && first == last {
		return s[1 : len(s)-1], true
	}
	return "", false
}
