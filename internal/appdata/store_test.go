package appdata

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/addonsync/internal/luatable"
)

func tempDataFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "AppData.lua")
	if content != "" {
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return path
}

func TestLoad_MissingFileYieldsEmptyStore(t *testing.T) {
	s := Load(filepath.Join(t.TempDir(), "nope.lua"), nil)
	assert.Equal(t, int64(0), s.LastUpdate(TypeAuctionDBMarketData, "Org"))
}

func TestLoad_SkipsGarbageLines(t *testing.T) {
	path := tempDataFile(t, strings.Join([]string{
		`select(2, ...).LoadData("AUCTIONDB_MARKET_DATA","Org",[[return {}]]) --<AUCTIONDB_MARKET_DATA,Org,100>`,
		`this line has no trailer`,
		`expr --<UNKNOWN_TYPE,Org,5>`,
		`expr --<AUCTIONDB_MARKET_DATA,Org>`,
		`expr --<AUCTIONDB_MARKET_DATA,Org,notanumber>`,
	}, "\n"))
	s := Load(path, nil)
	assert.Equal(t, int64(100), s.LastUpdate(TypeAuctionDBMarketData, "Org"))
	assert.Equal(t, int64(0), s.LastUpdate(TypeAuctionDBMarketData, "Other"))
}

func TestUpdate_LastWriteWins(t *testing.T) {
	s := Load(tempDataFile(t, ""), nil)
	s.Update(TypeAuctionDBMarketData, "Org", "{1,2}", 100, false)
	s.Update(TypeAuctionDBMarketData, "Org", "{3,4}", 200, false)

	assert.Equal(t, int64(200), s.LastUpdate(TypeAuctionDBMarketData, "Org"))
	expr, ok := s.Expr(TypeAuctionDBMarketData, "Org")
	require.True(t, ok)
	assert.Contains(t, expr, "{3,4}")
	assert.NotContains(t, expr, "{1,2}")
}

func TestSave_IdempotentWithoutUpdates(t *testing.T) {
	path := tempDataFile(t, "")
	s := Load(path, nil)
	s.Update(TypeShoppingSearches, "Org", "{}", 50, false)
	require.NoError(t, s.Save())

	info1, err := os.Stat(path)
	require.NoError(t, err)

	// second Save with no intervening Update must not rewrite the file
	require.NoError(t, os.Remove(path))
	require.NoError(t, s.Save())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "Save without updates must be a no-op")
	_ = info1
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := tempDataFile(t, "")
	s := Load(path, nil)
	s.Update(TypeAuctionDBMarketData, "Org", `{["minBuyout"]=5000}`, 100, false)
	s.Update(TypeAppInfo, "Global", `{version=300,lastSync=123}`, 123, true)
	require.NoError(t, s.Save())

	reloaded := Load(path, nil)
	assert.Equal(t, int64(100), reloaded.LastUpdate(TypeAuctionDBMarketData, "Org"))
	assert.Equal(t, int64(123), reloaded.LastUpdate(TypeAppInfo, "Global"))

	expr, ok := reloaded.Expr(TypeAuctionDBMarketData, "Org")
	require.True(t, ok)
	assert.Equal(t, `select(2, ...).LoadData("AUCTIONDB_MARKET_DATA","Org",[[return {["minBuyout"]=5000}]])`, expr)

	// the embedded payload still parses as a table literal
	payload := expr[strings.Index(expr, "[[return ")+len("[[return ") : strings.LastIndex(expr, "]])")]
	tbl, err := luatable.Parse("data = " + payload)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), tbl.GetTable("data").GetInt("minBuyout"))
}
