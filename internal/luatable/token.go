package luatable

import (
	"errors"
	"strings"
	"unicode"
)

var errUnterminatedString = errors.New("unterminated string literal")

type tokenKind int

const (
	tokenScalar tokenKind = iota // bare word parsed to string/bool/int64
	tokenString                  // quoted string, escapes preserved verbatim
	tokenPunct                   // one of { } [ ] , =
)

type token struct {
	kind  tokenKind
	text  string // tokenString / tokenPunct
	value Value  // tokenScalar
}

func (t token) isPunct(c string) bool {
	return t.kind == tokenPunct && t.text == c
}

// parseScalar interprets a bare token. Empty or all-whitespace tokens are
// absent and reported with ok=false.
func parseScalar(text string) (Value, bool) {
	if strings.TrimSpace(text) == "" {
		return nil, false
	}
	switch text {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	allDigits := true
	var n int64
	for _, c := range text {
		if c < '0' || c > '9' {
			allDigits = false
			break
		}
		n = n*10 + int64(c-'0')
	}
	if allDigits {
		return n, true
	}
	return text, true
}

// tokenize splits src into tokens. Comment detection counts consecutive
// dashes outside of string literals: two or more start a comment running to
// end of line. A lone dash is consumed and never reaches a token, matching
// the behavior of the writer's own loader.
func tokenize(src string) ([]token, error) {
	var (
		tokens   []token
		current  strings.Builder
		inString rune // the active quote character, or 0
		escaped  bool
		dashRun  int
	)

	flushScalar := func() {
		if v, ok := parseScalar(current.String()); ok {
			tokens = append(tokens, token{kind: tokenScalar, value: v})
		}
		current.Reset()
	}

	for _, c := range src {
		if inString == 0 && c == '-' {
			dashRun++
		} else if (dashRun == 1 && c != '-') || c == '\n' {
			dashRun = 0
		}
		switch {
		case dashRun >= 2:
			// inside a comment
		case inString != 0:
			// only the closing quote matters; other escapes are preserved
			if c == inString && !escaped {
				tokens = append(tokens, token{kind: tokenString, text: current.String()})
				current.Reset()
				inString = 0
			} else if c == '\\' && !escaped {
				escaped = true
				current.WriteRune(c)
			} else {
				escaped = false
				current.WriteRune(c)
			}
		case c == '-':
			// start of a potential comment; the dash itself is dropped
		case unicode.IsSpace(c):
			flushScalar()
		case c == '\'' || c == '"':
			inString = c
		case c == '{' || c == '}' || c == '[' || c == ']' || c == ',' || c == '=':
			flushScalar()
			tokens = append(tokens, token{kind: tokenPunct, text: string(c)})
		default:
			current.WriteRune(c)
		}
	}
	if inString != 0 {
		return nil, errUnterminatedString
	}
	flushScalar()
	return tokens, nil
}
