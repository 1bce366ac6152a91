package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/addonsync/internal/flagx"
	"github.com/dmitrijs2005/addonsync/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Durations go
// through timex.Duration so the file can say "10m" or give nanoseconds.
type JsonConfig struct {
	Endpoint            string         `json:"endpoint"`
	DataDir             string         `json:"data_dir"`
	StatusCheckInterval timex.Duration `json:"status_check_interval"`
	BackupPeriod        timex.Duration `json:"backup_period"`
	BackupExpiry        timex.Duration `json:"backup_expiry"`
}

// parseJson overlays cfg with values from the JSON file given via -c or
// -config. Absent file path means no overlay. Only fields present in the
// file override defaults. Read or unmarshal errors panic; LoadConfig runs
// before any state exists, so failing loudly is correct.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.Endpoint != "" {
		cfg.Endpoint = jc.Endpoint
	}
	if jc.DataDir != "" {
		cfg.DataDir = jc.DataDir
	}
	if jc.StatusCheckInterval.Duration != 0 {
		cfg.StatusCheckInterval = jc.StatusCheckInterval.Duration
	}
	if jc.BackupPeriod.Duration != 0 {
		cfg.BackupPeriod = jc.BackupPeriod.Duration
	}
	if jc.BackupExpiry.Duration != 0 {
		cfg.BackupExpiry = jc.BackupExpiry.Duration
	}
}
