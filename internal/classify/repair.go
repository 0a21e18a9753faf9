package classify

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

var fencedObject = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// Fields is a decoded backend reply. Values carry JSON types only
// (string, float64, bool, nil, []any, map[string]any).
type Fields map[string]any

// Repair recovers one object from a backend reply. It tolerates markdown
// fences, surrounding chatter, trailing commas and single-quoted keys or
// values. ok is false when nothing parses to a non-empty object.
func Repair(text string) (Fields, bool) {
	candidate := ""
	if m := fencedObject.FindStringSubmatch(text); m != nil {
		candidate = m[1]
	} else {
		start := strings.Index(text, "{")
		end := strings.LastIndex(text, "}")
		if start < 0 || end <= start {
			return nil, false
		}
		candidate = text[start : end+1]
	}

	candidate = stripTrailingCommas(candidate)

	var strict map[string]any
	if err := json.Unmarshal([]byte(candidate), &strict); err == nil {
		return nonEmpty(strict)
	}

	return permissive(candidate)
}

// permissive parses Python/JS style object literals. Quoted strings are
// rewritten as JSON strings and None/True/False as their JSON spellings, then
// the result is decoded as a YAML flow mapping (which also accepts bare keys)
// and re-encoded through JSON so callers see the same value types as the
// strict path.
func permissive(candidate string) (Fields, bool) {
	flow, ok := toFlowLiteral(candidate)
	if !ok {
		return nil, false
	}
	var loose map[string]any
	if err := yaml.Unmarshal([]byte(flow), &loose); err != nil {
		return nil, false
	}
	raw, err := json.Marshal(loose)
	if err != nil {
		return nil, false
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, false
	}
	return nonEmpty(out)
}

// toFlowLiteral rewrites every single- or double-quoted string as a JSON
// string and maps the Python constants outside strings. ok is false on an
// unterminated string.
func toFlowLiteral(s string) (string, bool) {
	var b strings.Builder
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '\'' || c == '"':
			lit, n, ok := readQuoted(s[i:])
			if !ok {
				return "", false
			}
			raw, _ := json.Marshal(lit)
			b.Write(raw)
			i += n
		case isWordByte(c):
			j := i
			for j < len(s) && isWordByte(s[j]) {
				j++
			}
			switch word := s[i:j]; word {
			case "None":
				b.WriteString("null")
			case "True":
				b.WriteString("true")
			case "False":
				b.WriteString("false")
			default:
				b.WriteString(word)
			}
			i = j
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String(), true
}

// readQuoted decodes the quoted string at the start of s and returns it with
// the number of bytes consumed, closing quote included.
func readQuoted(s string) (string, int, bool) {
	quote := s[0]
	var b strings.Builder
	for i := 1; i < len(s); i++ {
		c := s[i]
		switch {
		case c == quote:
			return b.String(), i + 1, true
		case c == '\\' && i+1 < len(s):
			i++
			switch e := s[i]; e {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '\\', '\'', '"', '/':
				b.WriteByte(e)
			case 'u':
				if i+4 < len(s) {
					if r, err := strconv.ParseUint(s[i+1:i+5], 16, 32); err == nil {
						b.WriteRune(rune(r))
						i += 4
						continue
					}
				}
				b.WriteString(`\u`)
			default:
				b.WriteByte('\\')
				b.WriteByte(e)
			}
		default:
			b.WriteByte(c)
		}
	}
	return "", 0, false
}

func isWordByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

// stripTrailingCommas drops a comma that is followed only by whitespace and
// a closing bracket. Commas inside quoted strings are left alone.
func stripTrailingCommas(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\'', '"':
			if _, n, ok := readQuoted(s[i:]); ok {
				b.WriteString(s[i : i+n])
				i += n - 1
				continue
			}
		case ',':
			j := i + 1
			for j < len(s) && strings.IndexByte(" \t\r\n", s[j]) >= 0 {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

func nonEmpty(m map[string]any) (Fields, bool) {
	if len(m) == 0 {
		return nil, false
	}
	return Fields(m), true
}

// String returns the field as text; absent and null are "".
func (f Fields) String(key string) string {
	switch v := f[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		if v {
			return "true"
		}
		return "false"
	default:
		raw, _ := json.Marshal(v)
		return string(raw)
	}
}

// Has reports whether key is present with a non-null value.
func (f Fields) Has(key string) bool {
	v, ok := f[key]
	return ok && v != nil
}
