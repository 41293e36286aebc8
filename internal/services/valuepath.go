package services

import "strings"

// splitPath splits a dotted path, dropping empty segments
func splitPath(path string) []string {
	raw := strings.Split(path, ".")
	segments := raw[:0]
	for _, s := range raw {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}

// GetNested resolves a dotted path against a decoded JSON tree.
// Each segment is an object key; arrays are not indexed. A nil value at
// the end of the path resolves, a missing key does not.
func GetNested(root map[string]interface{}, path string) (interface{}, bool) {
	segments := splitPath(path)
	if len(segments) == 0 || root == nil {
		return nil, false
	}

	var current interface{} = root
	for _, segment := range segments {
		obj, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = obj[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// SetNested writes value at a dotted path, creating intermediate objects on demand.
// A non-object value in the way is replaced by an object.
func SetNested(root map[string]interface{}, path string, value interface{}) bool {
	segments := splitPath(path)
	if len(segments) == 0 || root == nil {
		return false
	}

	current := root
	for _, segment := range segments[:len(segments)-1] {
		next, ok := current[segment].(map[string]interface{})
		if !ok {
			next = map[string]interface{}{}
			current[segment] = next
		}
		current = next
	}
	current[segments[len(segments)-1]] = value
	return true
}

// copyValue returns a deep copy of a decoded JSON value; objects and arrays are duplicated.
func copyValue(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, item := range v {
			out[key] = copyValue(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = copyValue(item)
		}
		return out
	default:
		return value
	}
}

// fallbackPaths lists the paths tried for a canonical field, primary path first:
// the path itself, without a body.data. prefix, without a body. prefix, then the bare name.
func fallbackPaths(path string) []string {
	paths := []string{path}
	add := func(p string) {
		if p == "" {
			return
		}
		for _, existing := range paths {
			if existing == p {
				return
			}
		}
		paths = append(paths, p)
	}

	if strings.HasPrefix(path, "body.data.") {
		add(strings.TrimPrefix(path, "body.data."))
	}
	if strings.HasPrefix(path, "body.") {
		add(strings.TrimPrefix(path, "body."))
	}
	if segments := splitPath(path); len(segments) > 0 {
		add(segments[len(segments)-1])
	}
	return paths
}

// firstSegment returns the top-level key a dotted path starts with
func firstSegment(path string) string {
	if segments := splitPath(path); len(segments) > 0 {
		return segments[0]
	}
	return ""
}

// lastSegment returns the field's own name
func lastSegment(path string) string {
	if segments := splitPath(path); len(segments) > 0 {
		return segments[len(segments)-1]
	}
	return ""
}
