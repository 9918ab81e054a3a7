package llm

import (
	"encoding/json"
	"fmt"
)

// Recovery is the outcome of Repair. Value is only meaningful when OK is true.
type Recovery struct {
	Value  string
	OK     bool
	Reason string
}

func recovered(v string) Recovery     { return Recovery{Value: v, OK: true} }
func unrecoverable(r string) Recovery { return Recovery{Reason: r} }

type frame struct {
	closer  byte
	wantKey bool // object expects a key next
	sawKey  bool // key read, colon not yet seen
}

// Repair makes a best-effort pass over almost-JSON produced by a model. It
// handles trailing commas, unquoted keys, single-quoted strings, Python style
// literals (True/False/None), raw control characters inside strings, and
// output cut off mid-document (unterminated string, dangling key or colon,
// open brackets). A closing bracket that does not match is not guessed at.
func Repair(s string) Recovery {
	out := make([]byte, 0, len(s)+16)
	var stack []frame
	top := func() *frame {
		if len(stack) == 0 {
			return nil
		}
		return &stack[len(stack)-1]
	}

	inString := false
	var quote byte
	keyString := false

	endString := func() {
		out = append(out, '"')
		inString = false
		if keyString {
			if f := top(); f != nil {
				f.wantKey = false
				f.sawKey = true
			}
		}
		keyString = false
	}

	// finishValue patches a dangling key or colon before a separator or closer.
	finishValue := func() {
		f := top()
		if f != nil && f.closer == '}' && f.sawKey {
			out = append(out, ":null"...)
			f.sawKey = false
			return
		}
		if i := lastSignificant(out); i >= 0 && out[i] == ':' {
			out = append(out, "null"...)
		}
	}

	for i := 0; i < len(s); i++ {
		c := s[i]

		if inString {
			switch {
			case c == '\\':
				if i+1 >= len(s) {
					continue
				}
				next := s[i+1]
				i++
				if quote == '\'' && next == '\'' {
					out = append(out, '\'')
					continue
				}
				out = append(out, '\\', next)
			case c == quote:
				endString()
			case c == '"':
				out = append(out, '\\', '"')
			case c == '\n':
				out = append(out, '\\', 'n')
			case c == '\r':
				out = append(out, '\\', 'r')
			case c == '\t':
				out = append(out, '\\', 't')
			case c < 0x20:
				out = append(out, fmt.Sprintf(`\u%04x`, c)...)
			default:
				out = append(out, c)
			}
			continue
		}

		switch {
		case c == '{':
			stack = append(stack, frame{closer: '}', wantKey: true})
			out = append(out, c)
		case c == '[':
			stack = append(stack, frame{closer: ']'})
			out = append(out, c)
		case c == '}' || c == ']':
			out = trimTrailingComma(out)
			f := top()
			if f == nil || f.closer != c {
				return unrecoverable(fmt.Sprintf("mismatched %q at offset %d", c, i))
			}
			finishValue()
			stack = stack[:len(stack)-1]
			out = append(out, c)
		case c == ',':
			finishValue()
			if f := top(); f != nil && f.closer == '}' {
				f.wantKey = true
			}
			out = append(out, c)
		case c == ':':
			if f := top(); f != nil && f.closer == '}' {
				f.wantKey = false
				f.sawKey = false
			}
			out = append(out, c)
		case c == '"' || c == '\'':
			inString = true
			quote = c
			f := top()
			keyString = f != nil && f.closer == '}' && f.wantKey
			out = append(out, '"')
		case isWordStart(c):
			j := i
			for j < len(s) && isWordChar(s[j]) {
				j++
			}
			word := s[i:j]
			i = j - 1
			if f := top(); f != nil && f.closer == '}' && f.wantKey {
				out = append(out, '"')
				out = append(out, word...)
				out = append(out, '"')
				f.wantKey = false
				f.sawKey = true
				continue
			}
			out = append(out, literal(word)...)
		case c == '-' || (c >= '0' && c <= '9'):
			j := i
			for j < len(s) && isNumberChar(s[j]) {
				j++
			}
			out = append(out, s[i:j]...)
			i = j - 1
		default:
			out = append(out, c)
		}
	}

	if inString {
		endString()
	}
	for len(stack) > 0 {
		out = trimTrailingComma(out)
		finishValue()
		out = append(out, stack[len(stack)-1].closer)
		stack = stack[:len(stack)-1]
	}

	if !json.Valid(out) {
		return unrecoverable("output still invalid after repair")
	}
	return recovered(string(out))
}

func literal(word string) string {
	switch word {
	case "true", "True", "TRUE":
		return "true"
	case "false", "False", "FALSE":
		return "false"
	case "null", "None", "NULL", "nil", "undefined", "NaN", "Infinity":
		return "null"
	}
	return `"` + word + `"`
}

func isWordStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isWordChar(c byte) bool {
	return isWordStart(c) || c == '-' || c == '.' || (c >= '0' && c <= '9')
}

func isNumberChar(c byte) bool {
	return (c >= '0' && c <= '9') || c == '.' || c == '-' || c == '+' || c == 'e' || c == 'E'
}

func lastSignificant(b []byte) int {
	for i := len(b) - 1; i >= 0; i-- {
		switch b[i] {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return i
	}
	return -1
}

func trimTrailingComma(b []byte) []byte {
	if i := lastSignificant(b); i >= 0 && b[i] == ',' {
		return append(b[:i], b[i+1:]...)
	}
	return b
}
