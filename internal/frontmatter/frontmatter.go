// Package frontmatter parses and serializes the restricted YAML subset
// used in markdown frontmatter blocks.
//
// Only the shapes that actually occur in note metadata are supported:
// scalar strings, numbers, booleans, null, inline and block lists of
// primitives, lists of flat mappings, and nested mappings. Anchors,
// aliases, multi-document streams, flow mappings and multi-line strings
// are not. Unparseable fragments are dropped rather than failing the
// whole read.
//
// Serialize followed by Parse reproduces semantically equal values for
// any mapping built from the supported shapes.
package frontmatter

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Delimiter is the line that opens and closes a frontmatter block.
const Delimiter = "---"

// Block records the 1-indexed, inclusive line range of a frontmatter
// block, delimiter lines included.
type Block struct {
	StartLine int `json:"startLine"`
	EndLine   int `json:"endLine"`
}

// Detect locates a frontmatter block at the start of a document. It
// returns the block bounds, the raw body between the delimiters, the
// remaining content after the closing delimiter, and whether a block
// was found. A document whose first line is not exactly "---" has no
// frontmatter; that is a normal outcome, not an error.
func Detect(content string) (Block, string, string, bool) {
	lines := strings.Split(content, "\n")
	if len(lines) == 0 || strings.TrimRight(lines[0], "\r") != Delimiter {
		return Block{}, "", content, false
	}

	for i := 1; i < len(lines); i++ {
		if strings.TrimRight(lines[i], "\r") != Delimiter {
			continue
		}
		body := strings.Join(lines[1:i], "\n")
		rest := ""
		if i+1 < len(lines) {
			rest = strings.Join(lines[i+1:], "\n")
		}
		return Block{StartLine: 1, EndLine: i + 1}, body, rest, true
	}

	// Unterminated block: treat the document as having no frontmatter.
	return Block{}, "", content, false
}

var (
	keyPattern  = regexp.MustCompile(`^([A-Za-z0-9_][A-Za-z0-9_.\- ]*?)\s*:(?:\s+(.*))?$`)
	datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}([T ].*)?$`)
	numPattern  = regexp.MustCompile(`^-?\d+(\.\d+)?$`)
)

// Parse converts a raw frontmatter body into a key to value mapping.
func Parse(raw string) map[string]any {
	lines := strings.Split(raw, "\n")
	m, _ := parseMapping(lines, 0, 0)
	return m
}

// parseMapping reads key lines at exactly the given indent, returning
// the mapping and the index of the first line it did not consume.
func parseMapping(lines []string, start, indent int) (map[string]any, int) {
	m := make(map[string]any)
	i := start
	for i < len(lines) {
		line := lines[i]
		if strings.TrimSpace(line) == "" {
			i++
			continue
		}
		n := leadingSpaces(line)
		if n < indent {
			break
		}
		if n > indent {
			// Stray deeper line outside any known structure: drop it.
			i++
			continue
		}

		match := keyPattern.FindStringSubmatch(line[indent:])
		if match == nil || strings.HasPrefix(strings.TrimSpace(line), "-") {
			i++
			continue
		}
		key := match[1]
		rest := strings.TrimSpace(match[2])

		switch {
		case rest == "":
			value, next := parseBlockValue(lines, i+1, indent)
			m[key] = value
			i = next
		case strings.HasPrefix(rest, "[") && strings.HasSuffix(rest, "]"):
			m[key] = parseInlineList(rest)
			i++
		default:
			m[key] = coerceScalar(rest)
			i++
		}
	}
	return m, i
}

// parseBlockValue handles the region after a bare "key:" line: either a
// block list, a deeper-indented nested mapping, or nothing (null).
func parseBlockValue(lines []string, start, keyIndent int) (any, int) {
	i := start
	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	if i >= len(lines) {
		return nil, i
	}

	line := lines[i]
	n := leadingSpaces(line)
	trimmed := strings.TrimSpace(line)

	if strings.HasPrefix(trimmed, "-") && n >= keyIndent {
		return parseBlockList(lines, i)
	}
	if n > keyIndent && keyPattern.MatchString(line[n:]) {
		inner, next := parseMapping(lines, i, n)
		return inner, next
	}
	return nil, start
}

var dashPattern = regexp.MustCompile(`^(\s*)-(?:\s+(.*))?$`)

// parseBlockList collects consecutive "- item" lines. An item whose
// text looks like "key: value" opens a mapping item; following lines
// indented past the dash extend that mapping.
func parseBlockList(lines []string, start int) (any, int) {
	var items []any
	i := start

	for i < len(lines) {
		line := lines[i]
		if strings.TrimSpace(line) == "" {
			i++
			continue
		}
		match := dashPattern.FindStringSubmatch(line)
		if match == nil {
			break
		}
		dashIndent := len(match[1])
		item := strings.TrimSpace(match[2])
		i++

		if kv := keyPattern.FindStringSubmatch(item); kv != nil {
			obj := map[string]any{kv[1]: coerceScalar(strings.TrimSpace(kv[2]))}
			for i < len(lines) {
				cont := lines[i]
				if strings.TrimSpace(cont) == "" {
					break
				}
				cn := leadingSpaces(cont)
				if cn <= dashIndent || strings.HasPrefix(strings.TrimSpace(cont), "-") {
					break
				}
				ckv := keyPattern.FindStringSubmatch(cont[cn:])
				if ckv == nil {
					break
				}
				obj[ckv[1]] = coerceScalar(strings.TrimSpace(ckv[2]))
				i++
			}
			items = append(items, obj)
			continue
		}

		items = append(items, coerceScalar(item))
	}
	if items == nil {
		items = []any{}
	}
	return items, i
}

// parseInlineList splits a bracketed "[a, b]" list on top-level commas.
func parseInlineList(s string) []any {
	inner := strings.TrimSpace(s[1 : len(s)-1])
	if inner == "" {
		return []any{}
	}

	var items []any
	var buf strings.Builder
	depth := 0
	var quoteCh byte

	flush := func() {
		items = append(items, coerceScalar(strings.TrimSpace(buf.String())))
		buf.Reset()
	}

	for i := 0; i < len(inner); i++ {
		c := inner[i]
		switch {
		case quoteCh != 0:
			buf.WriteByte(c)
			// Inside double quotes a backslash escapes the next
			// character, so \" does not terminate the item.
			if c == '\\' && quoteCh == '"' && i+1 < len(inner) {
				i++
				buf.WriteByte(inner[i])
				continue
			}
			if c == quoteCh {
				quoteCh = 0
			}
		case c == '\'' || c == '"':
			quoteCh = c
			buf.WriteByte(c)
		case c == '[':
			depth++
			buf.WriteByte(c)
		case c == ']':
			depth--
			buf.WriteByte(c)
		case c == ',' && depth == 0:
			flush()
		default:
			buf.WriteByte(c)
		}
	}
	flush()
	return items
}

// coerceScalar applies the scalar coercion order: quoted string,
// boolean, null, number, date-shaped string, raw string.
func coerceScalar(s string) any {
	if s == "" {
		return nil
	}
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return unquote(s)
		}
	}
	switch s {
	case "true":
		return true
	case "false":
		return false
	case "null", "~":
		return nil
	}
	if numPattern.MatchString(s) {
		if strings.Contains(s, ".") {
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return f
			}
		} else if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
	}
	if datePattern.MatchString(s) {
		// Date-shaped values stay plain strings.
		return s
	}
	return s
}

func unquote(s string) string {
	q := s[0]
	inner := s[1 : len(s)-1]
	if q == '\'' {
		return strings.ReplaceAll(inner, "''", "'")
	}

	// Scan left to right so a literal backslash followed by n is not
	// mistaken for a newline escape.
	var b strings.Builder
	for i := 0; i < len(inner); i++ {
		c := inner[i]
		if c == '\\' && i+1 < len(inner) {
			i++
			switch inner[i] {
			case 'n':
				b.WriteByte('\n')
			case '"':
				b.WriteByte('"')
			case '\\':
				b.WriteByte('\\')
			default:
				b.WriteByte('\\')
				b.WriteByte(inner[i])
			}
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func leadingSpaces(s string) int {
	n := 0
	for n < len(s) && s[n] == ' ' {
		n++
	}
	return n
}

// Serialize renders a mapping back into a raw frontmatter body. Keys
// are emitted in sorted order so output is deterministic.
func Serialize(m map[string]any) string {
	var b strings.Builder
	writeMapping(&b, m, 0)
	return strings.TrimSuffix(b.String(), "\n")
}

// Compose wraps a serialized mapping in delimiters and prepends it to
// the given body. An empty mapping yields the body unchanged.
func Compose(m map[string]any, body string) string {
	if len(m) == 0 {
		return body
	}
	return Delimiter + "\n" + Serialize(m) + "\n" + Delimiter + "\n" + body
}

func writeMapping(b *strings.Builder, m map[string]any, indent int) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pad := strings.Repeat(" ", indent)
	for _, key := range keys {
		value := m[key]
		switch v := value.(type) {
		case nil:
			fmt.Fprintf(b, "%s%s: null\n", pad, key)
		case map[string]any:
			fmt.Fprintf(b, "%s%s:\n", pad, key)
			writeMapping(b, v, indent+2)
		default:
			if list, ok := asList(value); ok {
				writeList(b, key, list, indent)
				continue
			}
			fmt.Fprintf(b, "%s%s: %s\n", pad, key, formatScalar(value, false))
		}
	}
}

// asList normalizes the slice shapes callers hand us into []any.
func asList(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case []string:
		list := make([]any, len(t))
		for i, s := range t {
			list[i] = s
		}
		return list, true
	case []map[string]any:
		list := make([]any, len(t))
		for i, m := range t {
			list[i] = m
		}
		return list, true
	}
	return nil, false
}

func writeList(b *strings.Builder, key string, list []any, indent int) {
	pad := strings.Repeat(" ", indent)
	if len(list) == 0 {
		fmt.Fprintf(b, "%s%s: []\n", pad, key)
		return
	}

	hasMapping := false
	for _, item := range list {
		if _, ok := item.(map[string]any); ok {
			hasMapping = true
			break
		}
	}

	if !hasMapping {
		parts := make([]string, len(list))
		for i, item := range list {
			parts[i] = formatScalar(item, true)
		}
		fmt.Fprintf(b, "%s%s: [%s]\n", pad, key, strings.Join(parts, ", "))
		return
	}

	fmt.Fprintf(b, "%s%s:\n", pad, key)
	itemPad := strings.Repeat(" ", indent+2)
	contPad := strings.Repeat(" ", indent+4)
	for _, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			fmt.Fprintf(b, "%s- %s\n", itemPad, formatScalar(item, true))
			continue
		}
		objKeys := make([]string, 0, len(obj))
		for k := range obj {
			objKeys = append(objKeys, k)
		}
		sort.Strings(objKeys)
		for i, k := range objKeys {
			prefix := contPad
			if i == 0 {
				prefix = itemPad + "- "
			}
			fmt.Fprintf(b, "%s%s: %s\n", prefix, k, formatScalar(obj[k], false))
		}
	}
}

// formatScalar renders a primitive. Strings that contain structure
// characters, or that would reparse as something other than a string,
// are double-quoted with internal quotes escaped.
func formatScalar(v any, inList bool) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case bool:
		if t {
			return "true"
		}
		return "false"
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		s := strconv.FormatFloat(t, 'f', -1, 64)
		// Keep a decimal point so the value reparses as a float, not
		// an int.
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return s
	case string:
		if needsQuoting(t, inList) {
			return quote(t)
		}
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}

func needsQuoting(s string, inList bool) bool {
	if s == "" {
		return true
	}
	if strings.ContainsAny(s, ":#\n") {
		return true
	}
	if inList && strings.ContainsAny(s, ",[]") {
		return true
	}
	if s != strings.TrimSpace(s) {
		return true
	}
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "'") || strings.HasPrefix(s, "\"") || strings.HasPrefix(s, "[") {
		return true
	}
	if _, ok := coerceScalar(s).(string); !ok {
		return true
	}
	return false
}

func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	return `"` + s + `"`
}
