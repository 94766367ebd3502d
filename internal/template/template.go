package template

import (
	"github.com/joseph-ayodele/docproc/constants"
)

// Field is one named, typed entry of a template.
type Field struct {
	Name string              `json:"name"`
	Type constants.FieldType `json:"type"`
}

// Template is the ordered field list the extractor fills in. Static
// templates carry a pre-declared JSON schema; dynamic ones get a schema
// synthesised from their fields.
type Template struct {
	Name   string
	Fields []Field
	Schema map[string]any
	Static bool
}

func (t Template) FieldNames() []string {
	out := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		out[i] = f.Name
	}
	return out
}

// Lookup returns the declared type of a field.
func (t Template) Lookup(name string) (constants.FieldType, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f.Type, true
		}
	}
	return "", false
}

// Clone returns a copy that shares nothing mutable with t.
func (t Template) Clone() Template {
	out := Template{Name: t.Name, Static: t.Static}
	out.Fields = append([]Field(nil), t.Fields...)
	if t.Schema != nil {
		out.Schema = cloneMap(t.Schema)
	}
	return out
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return cloneMap(x)
	case []any:
		cp := make([]any, len(x))
		for i := range x {
			cp[i] = cloneValue(x[i])
		}
		return cp
	case []string:
		return append([]string(nil), x...)
	default:
		return v
	}
}
