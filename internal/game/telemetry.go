package game

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/addonsync/internal/luatable"
)

// SavedVariables files the telemetry extraction reads, and the table
// variable inside each.
const (
	accountingFile = "AddonSync_Accounting.lua"
	accountingVar  = "AddonSyncAccountingDB"
	mainFile       = "AddonSync.lua"
	mainVar        = "AddonSyncDB"
	auctionFile    = "AddonSync_AuctionDB.lua"
	auctionVar     = "AddonSyncAuctionDB"
	analyticsFile  = "AddonSync_Analytics.lua"
	analyticsVar   = "AddonSyncAnalyticsDB"
)

type RealmKey struct {
	Region string
	Realm  string
}

type SalesKey struct {
	Region  string
	Realm   string
	Account string
}

type GroupKey struct {
	Account string
	Profile string
}

// ScopedData is one uploadable unit: the payload plus the addon-recorded
// time of its last change, compared against the server's last-upload time.
type ScopedData struct {
	UpdateTime int64
	Data       any
}

// loadSavedVariables parses one save file's database table. Any failure
// (missing file, corrupt content, missing variable) reads as absence; the
// files are written by an external process and must never break a cycle.
func (h *Helper) loadSavedVariables(account, file, varName string) (luatable.Table, bool) {
	raw, err := os.ReadFile(h.savedVariablesPath(account, file))
	if err != nil {
		return nil, false
	}
	tbl, err := luatable.Parse(string(raw))
	if err != nil {
		h.log.Warn(context.Background(), "unparseable saved variables", "account", account, "file", file, "err", err)
		return nil, false
	}
	db := tbl.GetTable(varName)
	if db == nil {
		return nil, false
	}
	return db, true
}

// scopeKeys lists the entries of one _scopeKeys sub-table ("realm",
// "profile").
func scopeKeys(db luatable.Table, kind string) []string {
	keys := db.GetTable("_scopeKeys").GetTable(kind)
	if keys == nil {
		return nil
	}
	var out []string
	for i := 1; i <= keys.Len(); i++ {
		if s, ok := keys.GetString(i); ok {
			out = append(out, s)
		}
	}
	return out
}

// SalesData collects per-(region, realm, account) accounting payloads.
func (h *Helper) SalesData() map[SalesKey]ScopedData {
	result := map[SalesKey]ScopedData{}
	for _, account := range h.AccountNames() {
		db, ok := h.loadSavedVariables(account, accountingFile, accountingVar)
		if !ok {
			continue
		}
		for _, realm := range scopeKeys(db, "realm") {
			scope := db.GetTable("r@" + realm)
			if scope == nil {
				continue
			}
			region, ok := scope.GetString("region")
			if !ok {
				continue
			}
			result[SalesKey{Region: region, Realm: realm, Account: account}] = ScopedData{
				UpdateTime: scope.GetInt("updateTime"),
				Data:       toJSONValue(scope),
			}
		}
	}
	return result
}

// BlackMarketData collects per-(region, realm) market snapshots. When
// several accounts saw the same realm, the freshest snapshot wins.
func (h *Helper) BlackMarketData() map[RealmKey]ScopedData {
	result := map[RealmKey]ScopedData{}
	for _, account := range h.AccountNames() {
		db, ok := h.loadSavedVariables(account, auctionFile, auctionVar)
		if !ok {
			continue
		}
		for _, realm := range scopeKeys(db, "realm") {
			scope := db.GetTable("r@" + realm)
			if scope == nil {
				continue
			}
			region, ok := scope.GetString("region")
			if !ok {
				continue
			}
			key := RealmKey{Region: region, Realm: realm}
			updateTime := scope.GetInt("updateTime")
			if existing, ok := result[key]; ok && existing.UpdateTime >= updateTime {
				continue
			}
			result[key] = ScopedData{
				UpdateTime: updateTime,
				Data:       toJSONValue(scope.GetTable("blackMarket")),
			}
		}
	}
	return result
}

// GroupData collects per-(account, profile) group definitions.
func (h *Helper) GroupData() map[GroupKey]ScopedData {
	result := map[GroupKey]ScopedData{}
	for _, account := range h.AccountNames() {
		db, ok := h.loadSavedVariables(account, mainFile, mainVar)
		if !ok {
			continue
		}
		for _, profile := range scopeKeys(db, "profile") {
			scope := db.GetTable("p@" + profile)
			if scope == nil {
				continue
			}
			result[GroupKey{Account: account, Profile: profile}] = ScopedData{
				UpdateTime: scope.GetInt("updateTime"),
				Data:       toJSONValue(scope.GetTable("groups")),
			}
		}
	}
	return result
}

// AnalyticsData collects one payload per account.
func (h *Helper) AnalyticsData() map[string]ScopedData {
	result := map[string]ScopedData{}
	for _, account := range h.AccountNames() {
		db, ok := h.loadSavedVariables(account, analyticsFile, analyticsVar)
		if !ok {
			continue
		}
		result[account] = ScopedData{
			UpdateTime: db.GetInt("updateTime"),
			Data:       toJSONValue(db.GetTable("data")),
		}
	}
	return result
}

// AccountingRealms cheaply lists the realms one account has accounting data
// for, without materializing the whole (potentially multi-megabyte) file.
func (h *Helper) AccountingRealms(account string) []string {
	f, err := os.Open(h.savedVariablesPath(account, accountingFile))
	if err != nil {
		return nil
	}
	defer f.Close()
	realms, err := luatable.ScanKeys(f, accountingVar, "_scopeKeys", "realm")
	if err != nil {
		return nil
	}
	return realms
}

// toJSONValue rewrites a parsed table tree into JSON-marshalable values:
// string-keyed maps and positional slices.
func toJSONValue(v luatable.Value) any {
	tbl, ok := v.(luatable.Table)
	if !ok {
		return v
	}
	if n := tbl.Len(); n > 0 && n == len(tbl) {
		arr := make([]any, n)
		for i := 1; i <= n; i++ {
			arr[i-1] = toJSONValue(tbl[i])
		}
		return arr
	}
	obj := make(map[string]any, len(tbl))
	for k, val := range tbl {
		obj[fmt.Sprint(k)] = toJSONValue(val)
	}
	return obj
}
