package normalizer

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/mohae/deepcopy"
)

// isUnset reports whether v should be replaced by a default: absent, null,
// false, zero, the empty string or an empty collection.
func isUnset(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case bool:
		return !val
	case string:
		return val == ""
	case int:
		return val == 0
	case int64:
		return val == 0
	case float64:
		return val == 0
	case json.Number:
		f, err := val.Float64()
		return err == nil && f == 0
	case []any:
		return len(val) == 0
	case map[string]any:
		return len(val) == 0
	default:
		return false
	}
}

// parseDimension converts a string width or height to an int. Surrounding
// whitespace and a leading sign are accepted; decimals and empty strings are not.
func parseDimension(raw string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, false
	}

	return n, true
}

// coerceDimensions rewrites string width/height content fields as ints.
func coerceDimensions(blockID string, content map[string]any) error {
	for _, field := range dimensionFields {
		raw, ok := content[field].(string)
		if !ok {
			continue
		}

		n, ok := parseDimension(raw)
		if !ok {
			return &MalformedDimensionError{BlockID: blockID, Field: field, Raw: raw}
		}

		content[field] = n
	}

	return nil
}

var dimensionFields = []string{"width", "height"}

// cloneMap deep-copies m so callers never observe mutation of their input.
func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}

	copied, ok := deepcopy.Copy(m).(map[string]any)
	if !ok {
		return map[string]any{}
	}

	return copied
}
