package locator

import (
	"fmt"
	"strconv"
	"strings"
)

// Supported locator code languages.
const (
	JavaScript = "javascript"
	Python     = "python"
)

type argKind int

const (
	argString argKind = iota
	argRegex
	argNumber
	argBool
	argObject
)

type callArg struct {
	kind argKind
	str  string
	num  int
	b    bool
	obj  map[string]callArg
}

type call struct {
	name   string
	args   []callArg
	kwargs map[string]callArg
}

// LocatorSyntaxToSelector converts locator code such as
// page.getByRole('button', { name: 'Save' }).first() or
// get_by_text("Save", exact=True) to a selector string.
func (e *Engine) LocatorSyntaxToSelector(language, text, testIDAttr string) (string, error) {
	if err := checkLanguage(language); err != nil {
		return "", err
	}
	if testIDAttr == "" {
		testIDAttr = e.TestIDAttribute
	}
	calls, err := parseCalls(text)
	if err != nil {
		return "", err
	}
	var parts []string
	for _, c := range calls {
		p, err := callToSelector(c, testIDAttr)
		if err != nil {
			return "", err
		}
		parts = append(parts, p)
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("no locator calls in %q", text)
	}
	return strings.Join(parts, " >> "), nil
}

func checkLanguage(language string) error {
	switch language {
	case "", JavaScript, Python:
		return nil
	}
	return fmt.Errorf("unsupported locator language %q", language)
}

func methodKey(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, "_", ""))
}

var locatorMethods = map[string]bool{
	"getbyrole":        true,
	"getbytext":        true,
	"getbylabel":       true,
	"getbyplaceholder": true,
	"getbyalttext":     true,
	"getbytitle":       true,
	"getbytestid":      true,
	"locator":          true,
	"first":            true,
	"last":             true,
	"nth":              true,
}

func parseCalls(text string) ([]call, error) {
	sc := &scanner{s: strings.TrimSuffix(strings.TrimSpace(text), ";")}
	var calls []call
	for {
		sc.skipSpace()
		name := sc.ident()
		if name == "" {
			return nil, sc.errorf("expected a method name")
		}
		sc.skipSpace()
		if name == "await" && len(calls) == 0 {
			continue
		}
		c := call{name: methodKey(name), kwargs: map[string]callArg{}}
		if sc.peek() == '(' {
			if err := sc.arguments(&c); err != nil {
				return nil, err
			}
		}
		if locatorMethods[c.name] {
			calls = append(calls, c)
		} else if len(calls) > 0 || len(c.args) > 0 {
			return nil, fmt.Errorf("unsupported locator method %q", name)
		}
		sc.skipSpace()
		if sc.done() {
			return calls, nil
		}
		if sc.peek() != '.' {
			return nil, sc.errorf("expected '.'")
		}
		sc.pos++
	}
}

func (c call) option(key string) (callArg, bool) {
	if v, ok := c.kwargs[key]; ok {
		return v, true
	}
	if len(c.args) > 1 && c.args[len(c.args)-1].kind == argObject {
		v, ok := c.args[len(c.args)-1].obj[key]
		return v, ok
	}
	return callArg{}, false
}

func (c call) exact() bool {
	v, ok := c.option("exact")
	return ok && v.kind == argBool && v.b
}

func (c call) firstArg(kinds ...argKind) (callArg, error) {
	if len(c.args) == 0 {
		return callArg{}, fmt.Errorf("%s needs an argument", c.name)
	}
	for _, k := range kinds {
		if c.args[0].kind == k {
			return c.args[0], nil
		}
	}
	return callArg{}, fmt.Errorf("%s: unexpected argument type", c.name)
}

func textArgBody(arg callArg, exact bool) string {
	if arg.kind == argRegex {
		return arg.str
	}
	if exact {
		return quote(arg.str) + "s"
	}
	return quote(arg.str) + "i"
}

func callToSelector(c call, testIDAttr string) (string, error) {
	switch c.name {
	case "getbyrole":
		return roleCallToSelector(c)
	case "getbytext", "getbylabel", "getbyplaceholder", "getbyalttext", "getbytitle":
		arg, err := c.firstArg(argString, argRegex)
		if err != nil {
			return "", err
		}
		body := textArgBody(arg, c.exact())
		switch c.name {
		case "getbytext":
			return "internal:text=" + body, nil
		case "getbylabel":
			return "internal:label=" + body, nil
		case "getbyplaceholder":
			return "internal:attr=[placeholder=" + body + "]", nil
		case "getbyalttext":
			return "internal:attr=[alt=" + body + "]", nil
		}
		return "internal:attr=[title=" + body + "]", nil
	case "getbytestid":
		arg, err := c.firstArg(argString, argRegex)
		if err != nil {
			return "", err
		}
		return "internal:testid=[" + testIDAttr + "=" + textArgBody(arg, true) + "]", nil
	case "locator":
		arg, err := c.firstArg(argString)
		if err != nil {
			return "", err
		}
		if len(c.kwargs) > 0 || len(c.args) > 1 {
			return "", fmt.Errorf("locator options are not supported")
		}
		return arg.str, nil
	case "first":
		return "nth=0", nil
	case "last":
		return "nth=-1", nil
	case "nth":
		arg, err := c.firstArg(argNumber)
		if err != nil {
			return "", err
		}
		return "nth=" + strconv.Itoa(arg.num), nil
	}
	return "", fmt.Errorf("unsupported locator method %q", c.name)
}

// roleBoolOptions lists boolean getByRole options in selector order.
var roleBoolOptions = []struct{ option, attr string }{
	{"disabled", "disabled"},
	{"expanded", "expanded"},
	{"includehidden", "include-hidden"},
	{"pressed", "pressed"},
	{"selected", "selected"},
}

func roleCallToSelector(c call) (string, error) {
	role, err := c.firstArg(argString)
	if err != nil {
		return "", err
	}
	opts := map[string]callArg{}
	if len(c.args) > 1 && c.args[1].kind == argObject {
		for k, v := range c.args[1].obj {
			opts[methodKey(k)] = v
		}
	}
	for k, v := range c.kwargs {
		opts[methodKey(k)] = v
	}

	var b strings.Builder
	b.WriteString("internal:role=")
	b.WriteString(role.str)
	if name, ok := opts["name"]; ok {
		exact := opts["exact"].kind == argBool && opts["exact"].b
		b.WriteString("[name=" + textArgBody(name, exact) + "]")
	}
	if v, ok := opts["checked"]; ok {
		b.WriteString("[checked=" + strconv.FormatBool(v.b) + "]")
	}
	for _, o := range roleBoolOptions {
		if v, ok := opts[o.option]; ok {
			b.WriteString("[" + o.attr + "=" + strconv.FormatBool(v.b) + "]")
		}
	}
	if v, ok := opts["level"]; ok {
		b.WriteString("[level=" + strconv.Itoa(v.num) + "]")
	}
	return b.String(), nil
}

// AsLocator renders a selector as locator code in the given language.
// Parts without a getBy equivalent are wrapped in locator().
func (e *Engine) AsLocator(language, selector string) (string, error) {
	if err := checkLanguage(language); err != nil {
		return "", err
	}
	sel, err := e.Parse(selector)
	if err != nil {
		return "", err
	}
	r := renderer{python: language == Python, testIDAttr: e.TestIDAttribute}
	var out []string
	for _, p := range sel.parts {
		out = append(out, r.part(p))
	}
	return strings.Join(out, "."), nil
}

type renderer struct {
	python     bool
	testIDAttr string
}

func (r renderer) method(js string) string {
	if !r.python {
		return js
	}
	var b strings.Builder
	for _, c := range js {
		if c >= 'A' && c <= 'Z' {
			b.WriteByte('_')
			c += 'a' - 'A'
		}
		b.WriteRune(c)
	}
	return b.String()
}

func (r renderer) str(s string) string {
	if r.python {
		return quote(s)
	}
	return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s) + "'"
}

func (r renderer) pattern(p textPattern) string {
	if p.re == nil {
		return r.str(p.value)
	}
	lit := regexLiteral(p.re)
	if !r.python {
		return lit
	}
	source, flags, _, _ := splitRegexLiteral(lit)
	if strings.Contains(flags, "i") {
		return `re.compile(r"` + source + `", re.IGNORECASE)`
	}
	return `re.compile(r"` + source + `")`
}

func (r renderer) boolean(b bool) string {
	if r.python {
		if b {
			return "True"
		}
		return "False"
	}
	return strconv.FormatBool(b)
}

// call renders name(args..., options) where options are key/value pairs.
func (r renderer) call(name, arg string, opts [][2]string) string {
	if len(opts) == 0 {
		return r.method(name) + "(" + arg + ")"
	}
	var kv []string
	for _, o := range opts {
		if r.python {
			kv = append(kv, r.method(o[0])+"="+o[1])
		} else {
			kv = append(kv, o[0]+": "+o[1])
		}
	}
	if r.python {
		return r.method(name) + "(" + arg + ", " + strings.Join(kv, ", ") + ")"
	}
	return name + "(" + arg + ", { " + strings.Join(kv, ", ") + " })"
}

func (r renderer) textCall(name string, p textPattern) string {
	var opts [][2]string
	if p.re == nil && p.exact {
		opts = append(opts, [2]string{"exact", r.boolean(true)})
	}
	return r.call(name, r.pattern(p), opts)
}

func (r renderer) part(p part) string {
	switch p.engine {
	case "text":
		if strings.HasPrefix(p.source, "internal:") {
			return r.textCall("getByText", p.text)
		}
	case "label":
		return r.textCall("getByLabel", p.text)
	case "attr":
		switch p.attr.name {
		case "placeholder":
			return r.textCall("getByPlaceholder", p.attr.pattern)
		case "alt":
			return r.textCall("getByAltText", p.attr.pattern)
		case "title":
			return r.textCall("getByTitle", p.attr.pattern)
		case r.testIDAttr:
			if p.attr.pattern.re != nil || p.attr.pattern.exact {
				return r.call("getByTestId", r.pattern(p.attr.pattern), nil)
			}
		}
	case "role":
		return r.roleCall(p.role)
	case "nth":
		switch {
		case p.nth == 0 && r.python:
			return "first"
		case p.nth == 0:
			return "first()"
		case p.nth == -1 && r.python:
			return "last"
		case p.nth == -1:
			return "last()"
		}
		return "nth(" + strconv.Itoa(p.nth) + ")"
	}
	return r.call("locator", r.str(p.source), nil)
}

func (r renderer) roleCall(rq roleQuery) string {
	var opts [][2]string
	if rq.name != nil {
		opts = append(opts, [2]string{"name", r.pattern(*rq.name)})
		if rq.name.re == nil && rq.name.exact {
			opts = append(opts, [2]string{"exact", r.boolean(true)})
		}
	}
	if rq.checked == "true" || rq.checked == "false" {
		opts = append(opts, [2]string{"checked", r.boolean(rq.checked == "true")})
	}
	for _, o := range []struct {
		key string
		val *bool
	}{
		{"disabled", rq.disabled},
		{"expanded", rq.expanded},
		{"pressed", rq.pressed},
		{"selected", rq.selected},
	} {
		if o.val != nil {
			opts = append(opts, [2]string{o.key, r.boolean(*o.val)})
		}
	}
	if rq.includeHidden {
		opts = append(opts, [2]string{"includeHidden", r.boolean(true)})
	}
	if rq.level > 0 {
		opts = append(opts, [2]string{"level", strconv.Itoa(rq.level)})
	}
	return r.call("getByRole", r.str(rq.role), opts)
}

// scanner is a minimal tokenizer for locator call chains.
type scanner struct {
	s   string
	pos int
}

func (sc *scanner) errorf(format string, args ...any) error {
	return fmt.Errorf("locator syntax at offset %d: %s", sc.pos, fmt.Sprintf(format, args...))
}

func (sc *scanner) done() bool {
	return sc.pos >= len(sc.s)
}

func (sc *scanner) peek() byte {
	if sc.done() {
		return 0
	}
	return sc.s[sc.pos]
}

func (sc *scanner) skipSpace() {
	for !sc.done() && strings.IndexByte(" \t\r\n", sc.s[sc.pos]) >= 0 {
		sc.pos++
	}
}

func isIdentByte(c byte, first bool) bool {
	switch {
	case c == '_' || c == '$':
		return true
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return !first
	}
	return false
}

func (sc *scanner) ident() string {
	start := sc.pos
	for !sc.done() && isIdentByte(sc.s[sc.pos], sc.pos == start) {
		sc.pos++
	}
	return sc.s[start:sc.pos]
}

func (sc *scanner) arguments(c *call) error {
	sc.pos++ // (
	for {
		sc.skipSpace()
		if sc.peek() == ')' {
			sc.pos++
			return nil
		}
		if key, ok := sc.keyword(); ok {
			v, err := sc.value()
			if err != nil {
				return err
			}
			c.kwargs[methodKey(key)] = v
		} else {
			v, err := sc.value()
			if err != nil {
				return err
			}
			c.args = append(c.args, v)
		}
		sc.skipSpace()
		switch sc.peek() {
		case ',':
			sc.pos++
		case ')':
		default:
			return sc.errorf("expected ',' or ')'")
		}
	}
}

// keyword consumes "name=" of a Python keyword argument.
func (sc *scanner) keyword() (string, bool) {
	start := sc.pos
	key := sc.ident()
	if key != "" {
		sc.skipSpace()
		if sc.peek() == '=' && !strings.HasPrefix(sc.s[sc.pos:], "==") {
			sc.pos++
			sc.skipSpace()
			return key, true
		}
	}
	sc.pos = start
	return "", false
}

func (sc *scanner) value() (callArg, error) {
	sc.skipSpace()
	c := sc.peek()
	switch {
	case c == '"' || c == '\'' || c == '`':
		value, n, err := scanQuoted(sc.s[sc.pos:])
		if err != nil {
			return callArg{}, err
		}
		sc.pos += n
		return callArg{kind: argString, str: value}, nil
	case c == '/':
		source, flags, n, err := splitRegexLiteral(sc.s[sc.pos:])
		if err != nil {
			return callArg{}, err
		}
		if _, err := compileRegex(source, flags); err != nil {
			return callArg{}, err
		}
		sc.pos += n
		return callArg{kind: argRegex, str: "/" + source + "/" + flags}, nil
	case c == '{':
		return sc.object()
	case c == '-' || (c >= '0' && c <= '9'):
		start := sc.pos
		sc.pos++
		for !sc.done() && sc.s[sc.pos] >= '0' && sc.s[sc.pos] <= '9' {
			sc.pos++
		}
		n, err := strconv.Atoi(sc.s[start:sc.pos])
		if err != nil {
			return callArg{}, sc.errorf("bad number %q", sc.s[start:sc.pos])
		}
		return callArg{kind: argNumber, num: n}, nil
	}

	start := sc.pos
	word := sc.ident()
	switch word {
	case "true", "True":
		return callArg{kind: argBool, b: true}, nil
	case "false", "False":
		return callArg{kind: argBool, b: false}, nil
	case "r":
		if q := sc.peek(); q == '"' || q == '\'' {
			return sc.rawString()
		}
	case "re":
		if strings.HasPrefix(sc.s[sc.pos:], ".compile(") {
			return sc.pythonRegex()
		}
	}
	sc.pos = start
	return callArg{}, sc.errorf("unexpected value")
}

func (sc *scanner) rawString() (callArg, error) {
	q := sc.s[sc.pos]
	end := strings.IndexByte(sc.s[sc.pos+1:], q)
	if end < 0 {
		return callArg{}, sc.errorf("unterminated string")
	}
	value := sc.s[sc.pos+1 : sc.pos+1+end]
	sc.pos += end + 2
	return callArg{kind: argString, str: value}, nil
}

// pythonRegex reads re.compile(pattern[, re.IGNORECASE]).
func (sc *scanner) pythonRegex() (callArg, error) {
	sc.pos += len(".compile")
	var c call
	c.kwargs = map[string]callArg{}
	if err := sc.regexArguments(&c); err != nil {
		return callArg{}, err
	}
	return c.args[0], nil
}

func (sc *scanner) regexArguments(c *call) error {
	sc.pos++ // (
	sc.skipSpace()
	pattern, err := sc.value()
	if err != nil {
		return err
	}
	if pattern.kind != argString {
		return sc.errorf("re.compile expects a string")
	}
	flags := ""
	sc.skipSpace()
	if sc.peek() == ',' {
		sc.pos++
		sc.skipSpace()
		if !strings.HasPrefix(sc.s[sc.pos:], "re.") {
			return sc.errorf("expected a re flag")
		}
		sc.pos += len("re.")
		switch sc.ident() {
		case "I", "IGNORECASE":
			flags = "i"
		default:
			return sc.errorf("unsupported re flag")
		}
		sc.skipSpace()
	}
	if sc.peek() != ')' {
		return sc.errorf("expected ')'")
	}
	sc.pos++
	if _, err := compileRegex(pattern.str, flags); err != nil {
		return err
	}
	c.args = append(c.args, callArg{kind: argRegex, str: "/" + pattern.str + "/" + flags})
	return nil
}

func (sc *scanner) object() (callArg, error) {
	sc.pos++ // {
	obj := map[string]callArg{}
	for {
		sc.skipSpace()
		if sc.peek() == '}' {
			sc.pos++
			return callArg{kind: argObject, obj: obj}, nil
		}
		var key string
		if q := sc.peek(); q == '"' || q == '\'' {
			k, err := sc.value()
			if err != nil {
				return callArg{}, err
			}
			key = k.str
		} else {
			key = sc.ident()
		}
		if key == "" {
			return callArg{}, sc.errorf("expected an option name")
		}
		sc.skipSpace()
		if sc.peek() != ':' {
			return callArg{}, sc.errorf("expected ':'")
		}
		sc.pos++
		v, err := sc.value()
		if err != nil {
			return callArg{}, err
		}
		obj[methodKey(key)] = v
		sc.skipSpace()
		switch sc.peek() {
		case ',':
			sc.pos++
		case '}':
		default:
			return callArg{}, sc.errorf("expected ',' or '}'")
		}
	}
}
