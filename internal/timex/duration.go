// Package timex provides a JSON-friendly wrapper around time.Duration so
// config files can say "10m" instead of an integer nanosecond count.
package timex

import (
	"encoding/json"
	"fmt"
	"time"
)

// Duration embeds time.Duration and accepts either a duration string
// ("90s", "10m") or an integer nanosecond count when unmarshalling JSON.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case float64:
		d.Duration = time.Duration(x)
	case string:
		parsed, err := time.ParseDuration(x)
		if err != nil {
			return err
		}
		d.Duration = parsed
	default:
		return fmt.Errorf("invalid duration value: %v", v)
	}
	return nil
}
