package docstore

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// getPath walks a decoded JSON value along path segments. Numeric segments
// index arrays, everything else indexes objects.
func getPath(doc any, segments []string) (any, bool) {
	cur := doc
	for _, seg := range segments {
		switch t := cur.(type) {
		case map[string]any:
			v, ok := t[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(t) {
				return nil, false
			}
			cur = t[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

// applyEdit writes value at the path given by segments, creating
// intermediate objects as needed, and returns the updated document. A nil
// value deletes the path: an object key is removed, an array element is
// spliced out. Arrays may be extended by exactly one when the index equals
// the current length.
func applyEdit(doc any, segments []string, value any) (any, error) {
	if len(segments) == 0 {
		if value == nil {
			return nil, nil
		}
		return normalize(value)
	}
	seg := segments[0]
	if idx, err := strconv.Atoi(seg); err == nil {
		arr, ok := doc.([]any)
		if doc == nil {
			arr = nil
		} else if !ok {
			return nil, fmt.Errorf("segment %q indexes a non-array", seg)
		}
		if idx < 0 || idx > len(arr) {
			return nil, fmt.Errorf("index %d out of range (len %d)", idx, len(arr))
		}
		if len(segments) == 1 && value == nil {
			if idx == len(arr) {
				return arr, nil
			}
			return append(arr[:idx:idx], arr[idx+1:]...), nil
		}
		if idx == len(arr) {
			arr = append(arr, nil)
		}
		child, err := applyEdit(arr[idx], segments[1:], value)
		if err != nil {
			return nil, err
		}
		arr[idx] = child
		return arr, nil
	}

	m, ok := doc.(map[string]any)
	if doc == nil {
		m = make(map[string]any)
	} else if !ok {
		return nil, fmt.Errorf("segment %q indexes a non-object", seg)
	}
	if len(segments) == 1 && value == nil {
		delete(m, seg)
		return m, nil
	}
	child, err := applyEdit(m[seg], segments[1:], value)
	if err != nil {
		return nil, err
	}
	m[seg] = child
	return m, nil
}

// normalize round-trips a value through JSON so typed structs and decoded
// documents share one generic representation inside the store.
func normalize(value any) (any, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode value: %w", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("normalize value: %w", err)
	}
	return out, nil
}
