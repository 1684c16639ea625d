package entity

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// AttributeKind tags the shape an attribute value arrived in.
type AttributeKind string

// Attribute value shapes.
const (
	KindScalar  AttributeKind = "scalar"
	KindWrapped AttributeKind = "wrapped"
	KindList    AttributeKind = "list"
)

// AttributeValue is Scalar(string) | Wrapped(string) | ListOf([]string).
type AttributeValue struct {
	kind   AttributeKind
	value  string
	values []string
}

// Scalar creates a plain string attribute.
func Scalar(s string) AttributeValue { return AttributeValue{kind: KindScalar, value: s} }

// Wrapped creates an attribute that arrived as {value: s} or [{value: s}].
func Wrapped(s string) AttributeValue { return AttributeValue{kind: KindWrapped, value: s} }

// ListOf creates a multi-valued attribute.
func ListOf(items ...string) AttributeValue {
	cp := make([]string, len(items))
	copy(cp, items)
	return AttributeValue{kind: KindList, values: cp}
}

// Kind returns the variant tag.
func (v AttributeValue) Kind() AttributeKind { return v.kind }

// Values returns the list items for ListOf, or a single-element slice otherwise.
func (v AttributeValue) Values() []string {
	if v.kind == KindList {
		return v.values
	}
	return []string{v.value}
}

// Unwrap returns the display string. ListOf is joined with ", ".
func (v AttributeValue) Unwrap() string {
	if v.kind == KindList {
		return strings.Join(v.values, ", ")
	}
	return v.value
}

// ParseAttributeValue converts a decoded JSON/YAML value into the tagged variant.
func ParseAttributeValue(raw any) (AttributeValue, error) {
	switch x := raw.(type) {
	case string:
		return Scalar(x), nil
	case bool:
		return Scalar(strconv.FormatBool(x)), nil
	case int:
		return Scalar(strconv.Itoa(x)), nil
	case int64:
		return Scalar(strconv.FormatInt(x, 10)), nil
	case float64:
		return Scalar(strconv.FormatFloat(x, 'f', -1, 64)), nil
	case map[string]any:
		s, err := wrappedValue(x)
		if err != nil {
			return AttributeValue{}, err
		}
		return Wrapped(s), nil
	case []any:
		return parseList(x)
	case []string:
		return ListOf(x...), nil
	default:
		return AttributeValue{}, fmt.Errorf("unsupported attribute shape %T", raw)
	}
}

func parseList(items []any) (AttributeValue, error) {
	if len(items) == 1 {
		if m, ok := items[0].(map[string]any); ok {
			s, err := wrappedValue(m)
			if err != nil {
				return AttributeValue{}, err
			}
			return Wrapped(s), nil
		}
	}
	out := make([]string, 0, len(items))
	for i, it := range items {
		switch y := it.(type) {
		case string:
			out = append(out, y)
		case map[string]any:
			s, err := wrappedValue(y)
			if err != nil {
				return AttributeValue{}, fmt.Errorf("list item %d: %w", i, err)
			}
			out = append(out, s)
		default:
			sv, err := ParseAttributeValue(y)
			if err != nil || sv.kind != KindScalar {
				return AttributeValue{}, fmt.Errorf("list item %d: unsupported shape %T", i, it)
			}
			out = append(out, sv.value)
		}
	}
	return ListOf(out...), nil
}

func wrappedValue(m map[string]any) (string, error) {
	raw, ok := m["value"]
	if !ok {
		return "", fmt.Errorf("object attribute has no value field")
	}
	v, err := ParseAttributeValue(raw)
	if err != nil {
		return "", err
	}
	if v.kind == KindList {
		return "", fmt.Errorf("nested list in value field")
	}
	return v.value, nil
}

type attributeJSON struct {
	Kind   AttributeKind `json:"kind"`
	Value  string        `json:"value,omitempty"`
	Values []string      `json:"values,omitempty"`
}

// MarshalJSON stores the variant explicitly so hydration never needs shape sniffing.
func (v AttributeValue) MarshalJSON() ([]byte, error) {
	out := attributeJSON{Kind: v.kind}
	if v.kind == KindList {
		out.Values = v.values
	} else {
		out.Value = v.value
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts the tagged form and, as a fallback, any raw shape ParseAttributeValue knows.
func (v *AttributeValue) UnmarshalJSON(data []byte) error {
	var tagged attributeJSON
	if err := json.Unmarshal(data, &tagged); err == nil && tagged.Kind != "" {
		switch tagged.Kind {
		case KindScalar:
			*v = Scalar(tagged.Value)
		case KindWrapped:
			*v = Wrapped(tagged.Value)
		case KindList:
			*v = ListOf(tagged.Values...)
		default:
			return fmt.Errorf("unknown attribute kind %q", tagged.Kind)
		}
		return nil
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode attribute: %w", err)
	}
	parsed, err := ParseAttributeValue(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// UnwrapAll flattens typed attributes into display strings.
func UnwrapAll(attrs map[string]AttributeValue) map[string]string {
	if len(attrs) == 0 {
		return nil
	}
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		out[k] = v.Unwrap()
	}
	return out
}
