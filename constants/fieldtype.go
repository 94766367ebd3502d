package constants

import (
	"strings"
)

// FieldType is the value type a template field declares.
type FieldType string

const (
	FieldString  FieldType = "string"
	FieldFloat   FieldType = "float"
	FieldBoolean FieldType = "boolean"
)

var allFieldTypes = []FieldType{
	FieldString,
	FieldFloat,
	FieldBoolean,
}

func FieldTypes() []string {
	result := make([]string, len(allFieldTypes))
	for i, ft := range allFieldTypes {
		result[i] = string(ft)
	}
	return result
}

// CanonicalFieldType maps a stored type tag to its FieldType.
func CanonicalFieldType(input string) (FieldType, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return "", false
	}

	// spellings produced by upstream template authors
	synonyms := map[string]FieldType{
		"str":    FieldString,
		"number": FieldFloat,
		"bool":   FieldBoolean,
	}
	if ft, ok := synonyms[normalized]; ok {
		return ft, true
	}

	for _, ft := range allFieldTypes {
		if normalized == string(ft) {
			return ft, true
		}
	}
	return "", false
}

// JSONType is the JSON Schema primitive type for a field type.
func (t FieldType) JSONType() string {
	switch t {
	case FieldFloat:
		return "number"
	case FieldBoolean:
		return "boolean"
	default:
		return "string"
	}
}
