package tree

import (
	"fmt"
	"math"
	"sort"
)

// normalize converts a caller value into the tree's JSON shaped
// representation and copies it, so later mutation by the caller cannot leak
// into the tree.
func normalize(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		return v, nil
	case bool:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case float32:
		return normalizeFloat(float64(v)), nil
	case float64:
		return normalizeFloat(v), nil
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, child := range v {
			if key == "" {
				return nil, ErrInvalidPath
			}
			normalized, err := normalize(child)
			if err != nil {
				return nil, err
			}
			if normalized == nil {
				continue
			}
			if m, ok := normalized.(map[string]any); ok && len(m) == 0 {
				continue
			}
			out[key] = normalized
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported tree value %T", value)
	}
}

// normalizeNode is normalize for a node about to be stored; an empty
// interior node is the same as no node.
func normalizeNode(value any) (any, error) {
	normalized, err := normalize(value)
	if err != nil {
		return nil, err
	}
	if m, ok := normalized.(map[string]any); ok && len(m) == 0 {
		return nil, nil
	}
	return normalized, nil
}

// normalizeFloat stores whole numbers as int64 so values decoded from JSON
// compare equal to values written from Go.
func normalizeFloat(v float64) any {
	if v == math.Trunc(v) && math.Abs(v) < 1<<53 {
		return int64(v)
	}
	return v
}

func clone(value any) any {
	m, ok := value.(map[string]any)
	if !ok {
		return value
	}
	out := make(map[string]any, len(m))
	for key, child := range m {
		out[key] = clone(child)
	}
	return out
}

// Flatten lists every leaf under value keyed by its full path below prefix.
func Flatten(prefix string, value any) map[string]any {
	leaves := make(map[string]any)
	flattenInto(leaves, prefix, value)
	return leaves
}

func flattenInto(leaves map[string]any, prefix string, value any) {
	m, ok := value.(map[string]any)
	if !ok {
		if value != nil {
			leaves[prefix] = value
		}
		return
	}
	for key, child := range m {
		path := key
		if prefix != "" {
			path = prefix + "/" + key
		}
		flattenInto(leaves, path, child)
	}
}

// diff lists leaf level changes that turn before into after, both rooted at
// prefix. Removed leaves come first, then added or changed ones, each group
// in path order.
func diff(prefix string, before, after any) []Change {
	old := Flatten(prefix, before)
	next := Flatten(prefix, after)
	removed := make([]string, 0)
	for path := range old {
		if _, ok := next[path]; !ok {
			removed = append(removed, path)
		}
	}
	written := make([]string, 0)
	for path, value := range next {
		if prev, ok := old[path]; !ok || prev != value {
			written = append(written, path)
		}
	}
	sort.Strings(removed)
	sort.Strings(written)
	changes := make([]Change, 0, len(removed)+len(written))
	for _, path := range removed {
		changes = append(changes, Change{Path: path})
	}
	for _, path := range written {
		changes = append(changes, Change{Path: path, Value: next[path]})
	}
	return changes
}
