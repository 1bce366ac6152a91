package luatable

import (
	"bufio"
	"io"
	"strings"
)

// The scan helpers walk a machine-written SavedVariables file line by line
// without materializing the tree. They rely on the writer's one-entry-per-line
// layout and return as soon as the target scope closes, which keeps reads of
// multi-megabyte files cheap when only one value is needed.

// ScanKeys returns the string keys of the entries directly inside the table
// at path. A missing path yields an empty slice.
func ScanKeys(r io.Reader, path ...string) ([]string, error) {
	keys := []string{}
	err := scanScope(r, path, func(key, _ string) bool {
		keys = append(keys, key)
		return true
	})
	return keys, err
}

// ScanValue returns the raw right-hand side of the scalar entry named key
// inside the table at path. Quotes around string values are stripped.
func ScanValue(r io.Reader, path []string, key string) (string, bool, error) {
	var (
		value string
		found bool
	)
	err := scanScope(r, path, func(k, raw string) bool {
		if k != key {
			return true
		}
		value = strings.Trim(strings.TrimSuffix(raw, ","), `"`)
		found = true
		return false
	})
	return value, found, err
}

// scanScope calls fn for each entry directly inside the table at path, with
// the entry key and the raw text after "=". fn returns false to stop early.
func scanScope(r io.Reader, path []string, fn func(key, raw string) bool) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	depth := 0   // how many path elements are currently matched
	inside := -1 // brace depth relative to the target scope, -1 = not reached
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if i := commentIndex(line); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		if line == "" {
			continue
		}

		opens := strings.HasSuffix(line, "{")
		closes := line == "}" || line == "},"

		if inside >= 0 {
			switch {
			case closes && inside == 0:
				// target scope closed, nothing more to find
				return scanner.Err()
			case closes:
				inside--
			case opens:
				if inside == 0 {
					if key, ok := lineKey(line); ok && !fn(key, "{") {
						return scanner.Err()
					}
				}
				inside++
			case inside == 0:
				key, ok := lineKey(line)
				if !ok {
					// positional entry: the value stands alone on the line
					v := strings.Trim(strings.TrimSuffix(line, ","), `"'`)
					if v != "" && !fn(v, v) {
						return scanner.Err()
					}
					continue
				}
				raw := line[strings.Index(line, "=")+1:]
				if !fn(key, strings.TrimSpace(raw)) {
					return scanner.Err()
				}
			}
			continue
		}

		switch {
		case opens:
			if key, ok := lineKey(line); ok && depth < len(path) && key == path[depth] {
				depth++
				if depth == len(path) {
					inside = 0
				}
			} else {
				// an unrelated subtree; skip it wholesale
				if err := skipScope(scanner); err != nil {
					return err
				}
			}
		case closes && depth > 0:
			depth--
		}
	}
	return scanner.Err()
}

// skipScope consumes lines until the scope opened on the previous line closes.
func skipScope(scanner *bufio.Scanner) error {
	depth := 1
	for depth > 0 && scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasSuffix(line, "{") {
			depth++
		} else if line == "}" || line == "}," {
			depth--
		}
	}
	return scanner.Err()
}

// lineKey extracts the key from lines like `["name"] = ...` or `name = ...`.
func lineKey(line string) (string, bool) {
	eq := strings.Index(line, "=")
	if eq < 0 {
		return "", false
	}
	left := strings.TrimSpace(line[:eq])
	if strings.HasPrefix(left, "[") {
		left = strings.TrimSuffix(strings.TrimPrefix(left, "["), "]")
		left = strings.Trim(left, `"'`)
	}
	if left == "" {
		return "", false
	}
	return left, true
}

// commentIndex finds a comment start outside of string literals.
func commentIndex(line string) int {
	var inString rune
	escaped := false
	for i := 0; i < len(line)-1; i++ {
		c := rune(line[i])
		switch {
		case inString != 0:
			if c == inString && !escaped {
				inString = 0
			}
			escaped = c == '\\' && !escaped
		case c == '"' || c == '\'':
			inString = c
		case c == '-' && line[i+1] == '-':
			return i
		}
	}
	return -1
}
