package schema_test

import (
	"testing"

	"github.com/bolt-foundry/gambit/pkg/schema"
)

func TestValidate_ObjectRequiredFields(t *testing.T) {
	s := schema.Object(map[string]*schema.Schema{
		"question": schema.String(),
		"count":    schema.Integer(),
	}, "question")

	tests := []struct {
		name    string
		value   any
		wantErr bool
	}{
		{name: "valid", value: map[string]any{"question": "hours?", "count": 2}},
		{name: "missing required", value: map[string]any{"count": 2}, wantErr: true},
		{name: "wrong type", value: map[string]any{"question": 5}, wantErr: true},
		{name: "fractional integer rejected", value: map[string]any{"question": "x", "count": 1.5}, wantErr: true},
		{name: "not an object", value: "nope", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := schema.Validate(s, tt.value)
			if tt.wantErr && err == nil {
				t.Fatalf("expected error, got none")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidate_FieldPathsOnNestedFailure(t *testing.T) {
	s := schema.Object(map[string]*schema.Schema{
		"items": schema.Array(schema.Object(map[string]*schema.Schema{
			"code": schema.String(),
		}, "code")),
	})

	_, err := schema.Validate(s, map[string]any{
		"items": []any{
			map[string]any{"code": "ok"},
			map[string]any{},
		},
	})
	if err == nil {
		t.Fatal("expected a validation error")
	}
	se, ok := err.(*schema.Error)
	if !ok {
		t.Fatalf("expected *schema.Error, got %T", err)
	}
	if len(se.Causes) != 1 {
		t.Fatalf("expected exactly one cause, got %d: %v", len(se.Causes), se.Causes)
	}
	if se.Causes[0].Path != "items[1].code" {
		t.Fatalf("expected path items[1].code, got %q", se.Causes[0].Path)
	}
}

func TestValidate_EnumKind(t *testing.T) {
	s := schema.StringEnum("busy", "idle", "error")
	if _, err := schema.Validate(s, "busy"); err != nil {
		t.Fatalf("expected busy to be valid: %v", err)
	}
	if _, err := schema.Validate(s, "unknown"); err == nil {
		t.Fatal("expected unknown enum value to fail")
	}
}

func TestValidate_RootStringDefault(t *testing.T) {
	s := schema.DefaultString()
	v, err := schema.Validate(s, "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "hello" {
		t.Fatalf("expected canonicalized value %q, got %q", "hello", v)
	}
}

func TestAssertIsSchema(t *testing.T) {
	good := schema.Object(map[string]*schema.Schema{"name": schema.String()})
	if _, err := schema.AssertIsSchema(good, "test"); err != nil {
		t.Fatalf("unexpected error for valid schema: %v", err)
	}

	if _, err := schema.AssertIsSchema("not a schema", "test"); err == nil {
		t.Fatal("expected error for non-schema value")
	}

	if _, err := schema.AssertIsSchema((*schema.Schema)(nil), "test"); err == nil {
		t.Fatal("expected error for nil schema")
	}
}

func TestMerge_ConflictingFields(t *testing.T) {
	a := schema.Object(map[string]*schema.Schema{"x": schema.String()})
	b := schema.Object(map[string]*schema.Schema{"x": schema.Integer()})
	if _, err := schema.Merge(a, b); err == nil {
		t.Fatal("expected conflict error for differing field kinds")
	}
}

func TestMerge_UnionOfFields(t *testing.T) {
	a := schema.Object(map[string]*schema.Schema{"x": schema.String()}, "x")
	b := schema.Object(map[string]*schema.Schema{"y": schema.Integer()}, "y")
	merged, err := schema.Merge(a, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if merged.Properties["x"] == nil || merged.Properties["y"] == nil {
		t.Fatalf("expected merged schema to contain both fields, got %+v", merged.Properties)
	}
	if len(merged.Required) != 2 {
		t.Fatalf("expected both fields to remain required, got %v", merged.Required)
	}
}

func TestToParameterShape(t *testing.T) {
	s := schema.Object(map[string]*schema.Schema{
		"status": schema.StringEnum("ok", "fail"),
	}, "status")
	shape := s.ToParameterShape()
	if shape["type"] != "object" {
		t.Fatalf("expected type object, got %v", shape["type"])
	}
	props, ok := shape["properties"].(map[string]any)
	if !ok {
		t.Fatalf("expected properties map, got %T", shape["properties"])
	}
	if _, ok := props["status"]; !ok {
		t.Fatalf("expected status property in parameter shape")
	}
}
