package luatable

import (
	"errors"
	"fmt"
)

// Parse reads a sequence of top-level assignments (NAME = value) and returns
// the resulting tree. It never panics on malformed input; unbalanced braces,
// truncated files and misplaced tokens all surface as errors.
func Parse(src string) (Table, error) {
	tokens, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	return p.run()
}

type parser struct {
	tokens []token
	pos    int
}

var errTruncated = errors.New("unexpected end of input")

func (p *parser) next() (token, error) {
	if p.pos >= len(p.tokens) {
		return token{}, errTruncated
	}
	t := p.tokens[p.pos]
	p.pos++
	return t, nil
}

func (p *parser) expectPunct(c string) error {
	t, err := p.next()
	if err != nil {
		return err
	}
	if !t.isPunct(c) {
		return fmt.Errorf("expected %q, got %q", c, t.describe())
	}
	return nil
}

func (t token) describe() string {
	switch t.kind {
	case tokenPunct:
		return t.text
	case tokenString:
		return t.text
	default:
		return fmt.Sprintf("%v", t.value)
	}
}

// scalarOrKey converts a token into a map key or scalar value.
func tokenValue(t token) (Value, error) {
	switch t.kind {
	case tokenScalar:
		return t.value, nil
	case tokenString:
		return t.text, nil
	default:
		return nil, fmt.Errorf("unexpected token %q", t.text)
	}
}

// asKey normalizes a key value: integer keys become int so that they compare
// equal to positional indexes.
func asKey(v Value) any {
	if n, ok := v.(int64); ok {
		return int(n)
	}
	return v
}

func (p *parser) run() (Table, error) {
	root := Table{}
	var (
		stack    []Table // open table scopes, innermost last
		idx      = 1     // next positional index in the current scope
		idxStack []int
	)

	openScope := func(parent Table, key any) {
		t := Table{}
		parent[key] = t
		stack = append(stack, t)
		idxStack = append(idxStack, idx)
		idx = 1
	}

	for p.pos < len(p.tokens) {
		tok, _ := p.next()

		if len(stack) == 0 {
			// top level: must be NAME = value
			key, err := tokenValue(tok)
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct("="); err != nil {
				return nil, err
			}
			val, err := p.next()
			if err != nil {
				return nil, err
			}
			switch {
			case val.isPunct("{"):
				openScope(root, asKey(key))
			case val.kind == tokenScalar && val.value == "nil":
				// absent value, skipped
			default:
				v, err := tokenValue(val)
				if err != nil {
					return nil, err
				}
				root[asKey(key)] = v
			}
			continue
		}

		current := stack[len(stack)-1]
		switch {
		case tok.isPunct("["):
			keyTok, err := p.next()
			if err != nil {
				return nil, err
			}
			key, err := tokenValue(keyTok)
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct("]"); err != nil {
				return nil, err
			}
			if err := p.expectPunct("="); err != nil {
				return nil, err
			}
			val, err := p.next()
			if err != nil {
				return nil, err
			}
			if val.isPunct("{") {
				openScope(current, asKey(key))
			} else {
				v, err := tokenValue(val)
				if err != nil {
					return nil, err
				}
				current[asKey(key)] = v
			}
		case tok.isPunct(","):
			// separator
		case tok.isPunct("{"):
			// positionally indexed inner table
			openScope(current, idx)
		case tok.isPunct("}"):
			stack = stack[:len(stack)-1]
			idx = idxStack[len(idxStack)-1] + 1
			idxStack = idxStack[:len(idxStack)-1]
		case tok.kind == tokenPunct:
			return nil, fmt.Errorf("unexpected token %q", tok.text)
		default:
			// positionally indexed scalar
			v, err := tokenValue(tok)
			if err != nil {
				return nil, err
			}
			current[idx] = v
			idx++
		}
	}

	if len(stack) != 0 {
		return nil, errors.New("unbalanced braces")
	}
	return root, nil
}
