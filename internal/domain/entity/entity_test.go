package entity

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestNew_Valid(t *testing.T) {
	r, err := New("npc-1", "  Aerith  ", TypeNPC, "", "A flower girl.", map[string]AttributeValue{
		"role": Scalar("healer"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Name() != "Aerith" {
		t.Errorf("expected trimmed name, got %q", r.Name())
	}
	if r.Type() != TypeNPC {
		t.Errorf("expected type npc, got %q", r.Type())
	}
	if r.Attributes()["role"].Unwrap() != "healer" {
		t.Errorf("unexpected attribute: %+v", r.Attributes())
	}
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name       string
		id         string
		entityName string
		typ        Type
	}{
		{"empty id", "", "Aerith", TypeNPC},
		{"bad id chars", "a b", "Aerith", TypeNPC},
		{"long id", strings.Repeat("a", MaxIDLength+1), "Aerith", TypeNPC},
		{"one char name", "e1", "A", TypeNPC},
		{"blank name", "e1", "   ", TypeNPC},
		{"bad type", "e1", "Aerith", Type("NPC")},
		{"empty type", "e1", "Aerith", Type("")},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.id, tc.entityName, tc.typ, "", "", nil); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestNew_TwoRuneNameAccepted(t *testing.T) {
	if _, err := New("moon", "Io", TypeLocation, "", "", nil); err != nil {
		t.Fatalf("2-character name must be accepted: %v", err)
	}
}

func TestNew_ClonesAttributes(t *testing.T) {
	attrs := map[string]AttributeValue{"a": Scalar("1")}
	r, err := New("e1", "Aerith", TypeNPC, "", "", attrs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	attrs["a"] = Scalar("2")
	if r.Attributes()["a"].Unwrap() != "1" {
		t.Error("record must not alias caller map")
	}
}

func TestParseAttributeValue_Shapes(t *testing.T) {
	tests := []struct {
		name    string
		raw     any
		kind    AttributeKind
		unwrap  string
		wantErr bool
	}{
		{"plain string", "Elf", KindScalar, "Elf", false},
		{"number", float64(42), KindScalar, "42", false},
		{"int", 7, KindScalar, "7", false},
		{"bool", true, KindScalar, "true", false},
		{"object with value", map[string]any{"value": "Neutral"}, KindWrapped, "Neutral", false},
		{"single wrapped list", []any{map[string]any{"value": "Midgar"}}, KindWrapped, "Midgar", false},
		{"list of strings", []any{"sword", "shield"}, KindList, "sword, shield", false},
		{"list of objects", []any{map[string]any{"value": "a"}, map[string]any{"value": "b"}}, KindList, "a, b", false},
		{"object without value", map[string]any{"label": "x"}, "", "", true},
		{"nil", nil, "", "", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v, err := ParseAttributeValue(tc.raw)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", v)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if v.Kind() != tc.kind {
				t.Errorf("kind = %q, want %q", v.Kind(), tc.kind)
			}
			if v.Unwrap() != tc.unwrap {
				t.Errorf("unwrap = %q, want %q", v.Unwrap(), tc.unwrap)
			}
		})
	}
}

func TestAttributeValue_JSON(t *testing.T) {
	in := map[string]AttributeValue{
		"race":   Scalar("Cetra"),
		"align":  Wrapped("Good"),
		"allies": ListOf("Cloud", "Tifa"),
	}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out map[string]AttributeValue
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out["align"].Kind() != KindWrapped || out["allies"].Unwrap() != "Cloud, Tifa" {
		t.Errorf("unexpected decode: %+v", out)
	}
}

func TestAttributeValue_UnmarshalRawShapes(t *testing.T) {
	var out map[string]AttributeValue
	data := `{"a":"plain","b":[{"value":"wrapped"}],"c":{"value":"obj"},"d":["x","y"]}`
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	got := UnwrapAll(out)
	want := map[string]string{"a": "plain", "b": "wrapped", "c": "obj", "d": "x, y"}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %q, want %q", k, got[k], v)
		}
	}
}
