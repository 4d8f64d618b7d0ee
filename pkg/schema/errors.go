package schema

import "fmt"

// ValidationError is a single field-level validation failure. Path is a
// dotted/bracketed locator such as "answer.items[2].code"; "" denotes the
// root value itself.
type ValidationError struct {
	Path    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Error is the error kind returned by Validate, carrying every field-level
// failure found (validation does not stop at the first error).
type Error struct {
	Label  string
	Causes []*ValidationError
}

func (e *Error) Error() string {
	if len(e.Causes) == 0 {
		return fmt.Sprintf("%s: schema validation failed", e.Label)
	}
	return fmt.Sprintf("%s: %s", e.Label, e.Causes[0].Error())
}

// Unwrap exposes the first cause so callers using errors.As against
// *ValidationError still work for the common single-error case.
func (e *Error) Unwrap() error {
	if len(e.Causes) == 0 {
		return nil
	}
	return e.Causes[0]
}

func joinPath(base, next string) string {
	if base == "" {
		return next
	}
	return base + "." + next
}

func indexPath(base string, i int) string {
	return fmt.Sprintf("%s[%d]", base, i)
}
