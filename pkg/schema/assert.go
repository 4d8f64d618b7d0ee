package schema

import (
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// AssertIsSchema is the structural gate required by C1: it checks that x
// is a *Schema and that the JSON Schema document it projects to is itself
// well-formed, by handing it to a real JSON Schema compiler before it
// reaches the run engine. A nil object property projects to an empty
// (accept-anything) schema and passes this check.
func AssertIsSchema(x any, label string) (*Schema, error) {
	s, ok := x.(*Schema)
	if !ok {
		return nil, fmt.Errorf("%s: expected *schema.Schema, got %T", label, x)
	}
	if s == nil {
		return nil, fmt.Errorf("%s: schema is nil", label)
	}

	doc := s.ToJSONSchema()
	c := jsonschema.NewCompiler()
	url := "mem://gambit/" + label
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("%s: not a valid JSON schema: %w", label, err)
	}
	if _, err := c.Compile(url); err != nil {
		return nil, fmt.Errorf("%s: schema does not compile: %w", label, err)
	}
	return s, nil
}

// ValidateRootString implements the root-deck string fallback: when a
// root deck declares a non-string input schema and allowRootStringInput
// is set, a raw string input is accepted verbatim if schema validation of
// the string itself fails, rather than rejecting the run outright.
func ValidateRootString(s *Schema, raw string, allowRootStringInput bool) (any, error) {
	value, err := Validate(s, raw)
	if err == nil {
		return value, nil
	}
	if allowRootStringInput {
		return raw, nil
	}
	return nil, err
}
