package schema

import "encoding/json"

// Validate checks value against schema and returns a canonicalized form:
// value is round-tripped through JSON encoding first, so the returned
// value always uses Go's JSON-decode types (map[string]any, []any,
// float64, string, bool, nil) regardless of what was passed in. On
// failure it returns the original value unchanged alongside an *Error
// listing every field-level failure found.
func Validate(s *Schema, value any) (any, error) {
	canon, err := canonicalize(value)
	if err != nil {
		return value, &Error{Label: "validate", Causes: []*ValidationError{{Message: "value is not JSON-representable: " + err.Error()}}}
	}

	var causes []*ValidationError
	walk(s, canon, "", &causes)
	if len(causes) > 0 {
		return value, &Error{Label: "validate", Causes: causes}
	}
	return canon, nil
}

func canonicalize(value any) (any, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func walk(s *Schema, value any, path string, causes *[]*ValidationError) {
	if s == nil {
		return
	}
	fail := func(msg string) {
		*causes = append(*causes, &ValidationError{Path: path, Message: msg})
	}

	switch s.Kind {
	case KindAny, "":
		return
	case KindString:
		if _, ok := value.(string); !ok {
			fail("expected a string")
		}
	case KindEnum:
		str, ok := value.(string)
		if !ok {
			fail("expected a string")
			return
		}
		for _, v := range s.Enum {
			if v == str {
				return
			}
		}
		fail("value is not one of the allowed enum values")
	case KindNumber:
		if _, ok := value.(float64); !ok {
			fail("expected a number")
		}
	case KindInteger:
		f, ok := value.(float64)
		if !ok {
			fail("expected an integer")
			return
		}
		if f != float64(int64(f)) {
			fail("expected an integer, got a fractional number")
		}
	case KindBoolean:
		if _, ok := value.(bool); !ok {
			fail("expected a boolean")
		}
	case KindArray:
		arr, ok := value.([]any)
		if !ok {
			fail("expected an array")
			return
		}
		for i, item := range arr {
			walk(s.Items, item, indexPath(path, i), causes)
		}
	case KindObject:
		obj, ok := value.(map[string]any)
		if !ok {
			fail("expected an object")
			return
		}
		for _, req := range s.Required {
			if _, present := obj[req]; !present {
				*causes = append(*causes, &ValidationError{Path: joinPath(path, req), Message: "missing required field"})
			}
		}
		for name, child := range s.Properties {
			fieldVal, present := obj[name]
			if !present {
				continue
			}
			walk(child, fieldVal, joinPath(path, name), causes)
		}
	}
}
