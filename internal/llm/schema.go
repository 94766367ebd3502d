package llm

import (
	"fmt"

	"github.com/joseph-ayodele/docproc/constants"
	"github.com/joseph-ayodele/docproc/internal/common"
	"github.com/joseph-ayodele/docproc/internal/template"
)

// BuildSchema returns the JSON schema a reply must satisfy. Static templates
// bring their own; dynamic ones get one property per field, all required.
func BuildSchema(tpl template.Template) (map[string]any, error) {
	if tpl.Static && tpl.Schema != nil {
		return tpl.Schema, nil
	}
	if len(tpl.Fields) == 0 {
		return nil, fmt.Errorf("%w: %s has no fields", common.ErrInvalidTemplate, tpl.Name)
	}

	props := make(map[string]any, len(tpl.Fields))
	required := make([]string, 0, len(tpl.Fields))
	for _, f := range tpl.Fields {
		if _, ok := constants.CanonicalFieldType(string(f.Type)); !ok {
			return nil, fmt.Errorf("%w: field %q has unknown type %q", common.ErrInvalidTemplate, f.Name, f.Type)
		}
		props[f.Name] = map[string]any{"type": f.Type.JSONType()}
		required = append(required, f.Name)
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             required,
	}, nil
}

// keywords some structured-output backends reject; they are still enforced locally
var wireUnsupported = []string{"pattern", "minLength", "maxLength", "format", "minimum", "maximum"}

// WireSchema strips validation-only keywords from a schema before it is sent
// to a provider.
func WireSchema(schema map[string]any) map[string]any {
	out := make(map[string]any, len(schema))
	for k, v := range schema {
		if isWireUnsupported(k) {
			continue
		}
		switch x := v.(type) {
		case map[string]any:
			if k == "properties" {
				props := make(map[string]any, len(x))
				for name, p := range x {
					if pm, ok := p.(map[string]any); ok {
						props[name] = WireSchema(pm)
					} else {
						props[name] = p
					}
				}
				out[k] = props
			} else {
				out[k] = WireSchema(x)
			}
		default:
			out[k] = v
		}
	}
	return out
}

func isWireUnsupported(k string) bool {
	for _, u := range wireUnsupported {
		if k == u {
			return true
		}
	}
	return false
}
