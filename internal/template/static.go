package template

import (
	"github.com/joseph-ayodele/docproc/constants"
)

// staticRegistry holds templates that never touch the template store.
var staticRegistry = map[string]Template{
	constants.StaticInvoiceTemplate: staticInvoice(),
}

// Static returns a copy of a built-in template.
func Static(name string) (Template, bool) {
	t, ok := staticRegistry[name]
	if !ok {
		return Template{}, false
	}
	return t.Clone(), true
}

// StaticNames lists the reserved template names.
func StaticNames() []string {
	out := make([]string, 0, len(staticRegistry))
	for name := range staticRegistry {
		out = append(out, name)
	}
	return out
}

func staticInvoice() Template {
	fields := []Field{
		{Name: "invoice_number", Type: constants.FieldString},
		{Name: "invoice_date", Type: constants.FieldString},
		{Name: "due_date", Type: constants.FieldString},
		{Name: "vendor_name", Type: constants.FieldString},
		{Name: "customer_name", Type: constants.FieldString},
		{Name: "currency", Type: constants.FieldString},
		{Name: "subtotal", Type: constants.FieldFloat},
		{Name: "tax_amount", Type: constants.FieldFloat},
		{Name: "total_amount", Type: constants.FieldFloat},
		{Name: "paid", Type: constants.FieldBoolean},
	}
	date := map[string]any{"type": "string", "pattern": `^(\d{4}-\d{2}-\d{2})?$`}
	money := map[string]any{"type": "number"}

	props := map[string]any{
		"invoice_number": map[string]any{"type": "string", "minLength": 1},
		"invoice_date":   date,
		"due_date":       cloneMap(date),
		"vendor_name":    map[string]any{"type": "string", "minLength": 1},
		"customer_name":  map[string]any{"type": "string"},
		"currency":       map[string]any{"type": "string", "pattern": `^([A-Z]{3})?$`},
		"subtotal":       money,
		"tax_amount":     cloneMap(money),
		"total_amount":   cloneMap(money),
		"paid":           map[string]any{"type": "boolean"},
	}
	required := make([]string, len(fields))
	for i, f := range fields {
		required[i] = f.Name
	}

	return Template{
		Name:   constants.StaticInvoiceTemplate,
		Fields: fields,
		Static: true,
		Schema: map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"properties":           props,
			"required":             required,
		},
	}
}
