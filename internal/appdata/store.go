// Package appdata manages the synchronized-data file consumed by the
// in-game data addon. The file holds one record per line in the form
//
//	<expr> --<dataType,scopeKey,unixTimestamp>
//
// where expr is a table-literal load call the addon executes on startup.
package appdata

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/addonsync/internal/logging"
)

// Known record data types.
const (
	TypeAuctionDBMarketData = "AUCTIONDB_MARKET_DATA"
	TypeShoppingSearches    = "SHOPPING_SEARCHES"
	TypeWowuctionMarketData = "WOWUCTION_MARKET_DATA"
	TypeAppInfo             = "APP_INFO"
)

var knownTypes = map[string]bool{
	TypeAuctionDBMarketData: true,
	TypeShoppingSearches:    true,
	TypeWowuctionMarketData: true,
	TypeAppInfo:             true,
}

// Record is one (dataType, scopeKey) entry.
type Record struct {
	DataType  string
	ScopeKey  string
	Expr      string // the serialized load-call expression
	Timestamp int64
}

// Store reads and rewrites the data file. It is not safe for concurrent use;
// the sync worker is the only writer by design.
type Store struct {
	path     string
	records  []Record
	modified bool
	log      logging.Logger
}

// Load reads the data file at path. A missing file or unparseable lines
// produce an empty (or partial) record set rather than an error: the file is
// written by an external process and must never break the sync loop.
func Load(path string, log logging.Logger) *Store {
	s := &Store{path: path, log: log}
	data, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		rec, ok := parseLine(line)
		if !ok {
			continue
		}
		s.records = append(s.records, rec)
	}
	return s
}

// parseLine splits `expr --<type,scope,ts>` and validates the trailer.
func parseLine(line string) (Record, bool) {
	marker := strings.LastIndex(line, "--<")
	if marker < 0 || !strings.HasSuffix(line, ">") {
		return Record{}, false
	}
	parts := strings.Split(line[marker+3:len(line)-1], ",")
	if len(parts) != 3 {
		return Record{}, false
	}
	ts, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return Record{}, false
	}
	if !knownTypes[parts[0]] {
		return Record{}, false
	}
	return Record{
		DataType:  parts[0],
		ScopeKey:  parts[1],
		Expr:      strings.TrimSpace(line[:marker]),
		Timestamp: ts,
	}, true
}

func (s *Store) find(dataType, scopeKey string) *Record {
	for i := range s.records {
		if s.records[i].DataType == dataType && s.records[i].ScopeKey == scopeKey {
			return &s.records[i]
		}
	}
	return nil
}

// LastUpdate returns the stored timestamp for (dataType, scopeKey), or 0.
func (s *Store) LastUpdate(dataType, scopeKey string) int64 {
	if rec := s.find(dataType, scopeKey); rec != nil {
		return rec.Timestamp
	}
	return 0
}

// Expr returns the stored expression for (dataType, scopeKey).
func (s *Store) Expr(dataType, scopeKey string) (string, bool) {
	if rec := s.find(dataType, scopeKey); rec != nil {
		return rec.Expr, true
	}
	return "", false
}

// Update upserts the record for (dataType, scopeKey). When raw is false the
// payload is wrapped as a long-string load call for the addon to evaluate;
// when raw is true the payload is stored verbatim (already an expression).
func (s *Store) Update(dataType, scopeKey, payload string, timestamp int64, raw bool) {
	s.modified = true
	rec := s.find(dataType, scopeKey)
	if rec == nil {
		s.records = append(s.records, Record{DataType: dataType, ScopeKey: scopeKey})
		rec = &s.records[len(s.records)-1]
	}
	rec.Timestamp = timestamp
	if raw {
		rec.Expr = fmt.Sprintf(`select(2, ...).LoadData("%s","%s",%s)`, dataType, scopeKey, payload)
	} else {
		rec.Expr = fmt.Sprintf(`select(2, ...).LoadData("%s","%s",[[return %s]])`, dataType, scopeKey, payload)
	}
}

// Save rewrites the whole file, one record per line. It is a no-op unless an
// Update happened since load.
func (s *Store) Save() error {
	if !s.modified {
		return nil
	}
	var b strings.Builder
	for _, rec := range s.records {
		fmt.Fprintf(&b, "%s --<%s,%s,%d>\n", rec.Expr, rec.DataType, rec.ScopeKey, rec.Timestamp)
	}
	if err := os.WriteFile(s.path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	s.modified = false
	if s.log != nil {
		s.log.Info(context.Background(), "saved app data", "path", s.path, "records", len(s.records))
	}
	return nil
}
