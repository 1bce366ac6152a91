// Package luatable reads and writes the restricted table-literal text format
// used by addon SavedVariables files. Only the subset the addons actually
// emit is supported: strings, booleans, non-negative integers, nested tables
// and 1-based positional arrays.
//
// The files are written by an external process that occasionally crashes
// mid-write, so parse failures are reported as ordinary errors and callers
// are expected to treat them as "no data available".
package luatable

// Value is one node of a parsed tree: string, bool, int64 or Table.
type Value any

// Table maps keys to values. Keys are either string or int (1-based
// positional indexes).
type Table map[any]Value

// GetTable returns the nested table stored under key, or nil.
func (t Table) GetTable(key any) Table {
	if v, ok := t[key].(Table); ok {
		return v
	}
	return nil
}

// GetString returns the string stored under key and whether it was present.
func (t Table) GetString(key any) (string, bool) {
	v, ok := t[key].(string)
	return v, ok
}

// GetInt returns the integer stored under key, or 0.
func (t Table) GetInt(key any) int64 {
	if v, ok := t[key].(int64); ok {
		return v
	}
	return 0
}

// Len returns the number of sequential positional entries starting at index 1.
func (t Table) Len() int {
	n := 0
	for {
		if _, ok := t[n+1]; !ok {
			return n
		}
		n++
	}
}
