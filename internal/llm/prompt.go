package llm

import (
	"encoding/json"
	"strings"

	"github.com/joseph-ayodele/docproc/internal/template"
)

// BuildSystemPrompt lists the wanted fields. Synthesised schemas also get the
// instruction to answer with a bare JSON object.
func BuildSystemPrompt(tpl template.Template) string {
	var fields []string
	for _, f := range tpl.Fields {
		fields = append(fields, f.Name+" ("+string(f.Type)+")")
	}

	parts := []string{
		"Extract invoice details.",
		"Fields: " + strings.Join(fields, ", ") + ".",
	}
	if !tpl.Static {
		parts = append(parts,
			"Respond with a single JSON object that conforms to the provided JSON Schema.",
			"Use exactly these keys, no others. Numbers must be JSON numbers and booleans JSON booleans.",
			"If a string field is not present in the document use an empty string; if a number is missing use 0; if a boolean is missing use false.",
		)
	}
	return strings.Join(parts, " ")
}

// BuildUserPrompt passes the cracked text through unchanged.
func BuildUserPrompt(text string) string {
	return text
}

// SchemaInstruction renders the schema for backends without native schema support.
func SchemaInstruction(schema map[string]any) string {
	b, _ := json.MarshalIndent(schema, "", "  ")
	return "JSON Schema:\n" + string(b)
}
