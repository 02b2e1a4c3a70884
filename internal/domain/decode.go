package domain

import (
	"encoding/json"
	"time"
)

// Field accessors used by the sanitize-on-read decoders. Each returns the
// fallback when the stored value is absent or has the wrong shape.

func stringField(d Document, key, fallback string) string {
	if v, ok := d[key].(string); ok {
		return v
	}
	return fallback
}

func boolField(d Document, key string, fallback bool) bool {
	if v, ok := d[key].(bool); ok {
		return v
	}
	return fallback
}

func numberField(d Document, key string) (float64, bool) {
	switch v := d[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}

func timeField(d Document, key string) time.Time {
	switch v := d[key].(type) {
	case time.Time:
		return v
	case string:
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

func mapField(d Document, key string) Document {
	return asDocument(d[key])
}

func stringSetField(d Document, key string) []string {
	var out []string
	seen := map[string]bool{}
	for _, v := range asSlice(d[key]) {
		s, ok := v.(string)
		if !ok || s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
