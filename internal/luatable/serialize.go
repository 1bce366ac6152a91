package luatable

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Serialize renders a value back to the table-literal format. Positional
// entries (1..N) are written first without keys; remaining entries are
// written bracket-keyed in a stable order so output is deterministic.
func Serialize(v Value) string {
	var b strings.Builder
	writeValue(&b, v)
	return b.String()
}

func writeValue(b *strings.Builder, v Value) {
	switch val := v.(type) {
	case Table:
		writeTable(b, val)
	case string:
		b.WriteByte('"')
		b.WriteString(escapeString(val))
		b.WriteByte('"')
	case bool:
		if val {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case int64:
		b.WriteString(strconv.FormatInt(val, 10))
	case int:
		b.WriteString(strconv.Itoa(val))
	default:
		// not reachable for trees built by Parse
		fmt.Fprintf(b, "%v", val)
	}
}

func writeTable(b *strings.Builder, t Table) {
	b.WriteByte('{')
	first := true
	sep := func() {
		if !first {
			b.WriteByte(',')
		}
		first = false
	}

	n := t.Len()
	for i := 1; i <= n; i++ {
		sep()
		writeValue(b, t[i])
	}

	var intKeys []int
	var strKeys []string
	for k := range t {
		switch key := k.(type) {
		case int:
			if key < 1 || key > n {
				intKeys = append(intKeys, key)
			}
		case string:
			strKeys = append(strKeys, key)
		}
	}
	sort.Ints(intKeys)
	sort.Strings(strKeys)

	for _, k := range intKeys {
		sep()
		fmt.Fprintf(b, "[%d]=", k)
		writeValue(b, t[k])
	}
	for _, k := range strKeys {
		sep()
		b.WriteString(`["`)
		b.WriteString(escapeString(k))
		b.WriteString(`"]=`)
		writeValue(b, t[k])
	}
	b.WriteByte('}')
}

// escapeString escapes only the characters the tokenizer cares about. All
// other escape sequences in parsed strings are already preserved verbatim.
func escapeString(s string) string {
	if !strings.ContainsAny(s, `"`) {
		return s
	}
	var b strings.Builder
	escaped := false
	for _, c := range s {
		if c == '"' && !escaped {
			b.WriteByte('\\')
		}
		escaped = c == '\\' && !escaped
		b.WriteRune(c)
	}
	return b.String()
}
