package luatable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_ScalarAssignments(t *testing.T) {
	root, err := Parse(`name = "Tichondrius"
count = 42
enabled = true
disabled = false
missing = nil`)
	require.NoError(t, err)

	s, ok := root.GetString("name")
	assert.True(t, ok)
	assert.Equal(t, "Tichondrius", s)
	assert.Equal(t, int64(42), root.GetInt("count"))
	assert.Equal(t, true, root["enabled"])
	assert.Equal(t, false, root["disabled"])
	_, present := root["missing"]
	assert.False(t, present, "nil values must be dropped")
}

func TestParse_NestedTables(t *testing.T) {
	root, err := Parse(`db = {
	["realms"] = {
		["Org"] = {
			["lastScan"] = 1500,
		},
	},
	["flag"] = true,
}`)
	require.NoError(t, err)

	db := root.GetTable("db")
	require.NotNil(t, db)
	realms := db.GetTable("realms")
	require.NotNil(t, realms)
	org := realms.GetTable("Org")
	require.NotNil(t, org)
	assert.Equal(t, int64(1500), org.GetInt("lastScan"))
	assert.Equal(t, true, db["flag"])
}

func TestParse_PositionalIndexes(t *testing.T) {
	root, err := Parse(`list = { "a", "b", { 1, 2 }, "c" }`)
	require.NoError(t, err)

	list := root.GetTable("list")
	require.NotNil(t, list)
	assert.Equal(t, "a", list[1])
	assert.Equal(t, "b", list[2])
	inner := list.GetTable(3)
	require.NotNil(t, inner)
	assert.Equal(t, int64(1), inner[1])
	assert.Equal(t, int64(2), inner[2])
	// each nesting level restarts its own counter; the parent resumes after
	assert.Equal(t, "c", list[4])
	assert.Equal(t, 4, list.Len())
}

func TestParse_BracketedIntegerKeys(t *testing.T) {
	root, err := Parse(`t = { [5] = "five", [1] = "one" }`)
	require.NoError(t, err)

	tbl := root.GetTable("t")
	require.NotNil(t, tbl)
	assert.Equal(t, "five", tbl[5])
	assert.Equal(t, "one", tbl[1])
}

func TestParse_Comments(t *testing.T) {
	root, err := Parse(`-- leading comment
a = 1 -- trailing comment
b = "keep -- this" -- but not this
`)
	require.NoError(t, err)

	assert.Equal(t, int64(1), root.GetInt("a"))
	s, _ := root.GetString("b")
	assert.Equal(t, "keep -- this", s, "quotes suppress comment detection")
}

func TestParse_EscapedQuotes(t *testing.T) {
	root, err := Parse(`s = "he said \"hi\"\n"`)
	require.NoError(t, err)

	s, _ := root.GetString("s")
	// escapes are preserved verbatim, not unescaped
	assert.Equal(t, `he said \"hi\"\n`, s)
}

func TestParse_MalformedInputs(t *testing.T) {
	inputs := []string{
		`t = { "a", `,               // truncated
		`t = { ["k" = 1 }`,          // missing ]
		`t = }`,                     // misplaced brace
		`t = { "a" } }`,             // extra close handled at top level
		`s = "never closed`,         // unterminated string
		`t = { [1] 2 }`,             // missing =
		`x`,                         // assignment without =
		`t = {{{`,                   // unbalanced opens
	}
	for _, in := range inputs {
		if _, err := Parse(in); err == nil {
			t.Errorf("Parse(%q) expected error, got nil", in)
		}
	}
}

func TestParse_RoundTrip(t *testing.T) {
	tables := []Table{
		{"a": int64(1), "b": "two", "c": true},
		{1: "x", 2: "y", 3: Table{"deep": Table{1: int64(9)}}},
		{"mixed": Table{1: int64(1), 2: int64(2), 7: "seven", "name": "n"}},
		{"quote": `a\"b`, "multi": `line1\nline2`},
	}
	for _, tbl := range tables {
		out := "root = " + Serialize(tbl)
		parsed, err := Parse(out)
		require.NoError(t, err, "input: %s", out)
		assert.Equal(t, tbl, parsed.GetTable("root"), "input: %s", out)
	}
}
