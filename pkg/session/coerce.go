package session

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// coerceFloat converts a raw JSON value into a float sample. Servers have
// been observed sending stat values as JSON numbers or as numeric strings,
// so both are accepted. Returns nil for absent, null, unparsable, or
// non-finite values; the mirror stores absence, never NaN.
func coerceFloat(raw json.RawMessage) *float64 {
	if len(raw) == 0 {
		return nil
	}

	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil
	}

	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		// Not a number; retry as a numeric string. strconv.ParseFloat is
		// locale-independent.
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil
		}
		v = parsed
	}

	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}

	return &v
}
