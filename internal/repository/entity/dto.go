package entity

import (
	"encoding/json"
	"fmt"

	domentity "github.com/kailas-cloud/lorelink/internal/domain/entity"
)

// Hash field names of a stored entity.
const (
	fieldID          = "id"
	fieldName        = "name"
	fieldType        = "type"
	fieldIconURL     = "icon_url"
	fieldDescription = "description"
	fieldAttributes  = "attributes_json"
)

// buildHashFields converts a record into a flat map for HSET.
func buildHashFields(rec domentity.Record) (map[string]string, error) {
	attrs, err := marshalAttributes(rec.Attributes())
	if err != nil {
		return nil, err
	}
	return map[string]string{
		fieldID:          rec.ID(),
		fieldName:        rec.Name(),
		fieldType:        string(rec.Type()),
		fieldIconURL:     rec.IconURL(),
		fieldDescription: rec.Description(),
		fieldAttributes:  attrs,
	}, nil
}

// parseHashFields hydrates a record from HGETALL output. Unreadable attributes are dropped
// so one damaged field never hides the entity from the index.
func parseHashFields(m map[string]string) domentity.Record {
	attrs, _ := unmarshalAttributes(m[fieldAttributes])
	return domentity.Reconstruct(
		m[fieldID], m[fieldName], domentity.Type(m[fieldType]),
		m[fieldIconURL], m[fieldDescription], attrs,
	)
}

func marshalAttributes(attrs map[string]domentity.AttributeValue) (string, error) {
	if len(attrs) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(attrs)
	if err != nil {
		return "", fmt.Errorf("marshal attributes: %w", err)
	}
	return string(data), nil
}

func unmarshalAttributes(s string) (map[string]domentity.AttributeValue, error) {
	if s == "" || s == "{}" {
		return nil, nil
	}
	var attrs map[string]domentity.AttributeValue
	if err := json.Unmarshal([]byte(s), &attrs); err != nil {
		return nil, fmt.Errorf("unmarshal attributes: %w", err)
	}
	return attrs, nil
}
