package schema

// ToJSONSchema projects s into a JSON-Schema-compatible document, the
// shape used both as a tool's "parameters" field and as the document
// compiled by AssertIsSchema to validate that s is well-formed.
func (s *Schema) ToJSONSchema() map[string]any {
	if s == nil {
		return map[string]any{}
	}
	doc := map[string]any{}
	if s.Description != "" {
		doc["description"] = s.Description
	}
	switch s.Kind {
	case KindString:
		doc["type"] = "string"
	case KindNumber:
		doc["type"] = "number"
	case KindInteger:
		doc["type"] = "integer"
	case KindBoolean:
		doc["type"] = "boolean"
	case KindEnum:
		doc["type"] = "string"
		enum := make([]any, len(s.Enum))
		for i, v := range s.Enum {
			enum[i] = v
		}
		doc["enum"] = enum
	case KindArray:
		doc["type"] = "array"
		if s.Items != nil {
			doc["items"] = s.Items.ToJSONSchema()
		}
	case KindObject:
		doc["type"] = "object"
		props := map[string]any{}
		for name, child := range s.Properties {
			props[name] = child.ToJSONSchema()
		}
		doc["properties"] = props
		if len(s.Required) > 0 {
			req := make([]any, len(s.Required))
			for i, v := range s.Required {
				req[i] = v
			}
			doc["required"] = req
		}
		doc["additionalProperties"] = true
	case KindAny, "":
		// No constraints: any value satisfies it.
	}
	return doc
}

// ToParameterShape projects s into the structured description used as a
// tool definition's "parameters" field (C1 contract). It is currently an
// alias of ToJSONSchema, kept as a distinct name because tool parameter
// shapes and stored-schema documents are conceptually different call
// sites even though they share a representation today.
func (s *Schema) ToParameterShape() map[string]any {
	return s.ToJSONSchema()
}

// Merge performs the shallow field union required when a deck and an
// embedded card both declare a schema fragment for the same slot
// (inputSchema/outputSchema). Conflicting field definitions (same
// property name, different kind) are reported as an error naming the
// field.
func Merge(a, b *Schema) (*Schema, error) {
	if a == nil {
		return b, nil
	}
	if b == nil {
		return a, nil
	}
	if a.Kind != KindObject || b.Kind != KindObject {
		if a.Kind != b.Kind {
			return nil, &ConflictError{Field: "<root>", Reason: "incompatible schema kinds"}
		}
		return a, nil
	}
	merged := &Schema{Kind: KindObject, Properties: map[string]*Schema{}}
	for name, s := range a.Properties {
		merged.Properties[name] = s
	}
	for name, s := range b.Properties {
		if existing, ok := merged.Properties[name]; ok && existing.Kind != s.Kind {
			return nil, &ConflictError{Field: name, Reason: "conflicting field definitions"}
		}
		merged.Properties[name] = s
	}
	required := map[string]struct{}{}
	for _, r := range a.Required {
		required[r] = struct{}{}
	}
	for _, r := range b.Required {
		required[r] = struct{}{}
	}
	for r := range required {
		merged.Required = append(merged.Required, r)
	}
	return merged, nil
}

// ConflictError reports a field-level schema merge conflict.
type ConflictError struct {
	Field  string
	Reason string
}

func (e *ConflictError) Error() string {
	return "schema merge conflict on field " + e.Field + ": " + e.Reason
}
