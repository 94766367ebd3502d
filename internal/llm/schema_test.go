package llm

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docproc/constants"
	"github.com/joseph-ayodele/docproc/internal/common"
	"github.com/joseph-ayodele/docproc/internal/template"
)

func TestBuildSchemaDynamic(t *testing.T) {
	tpl := template.Template{
		Name: "t",
		Fields: []template.Field{
			{Name: "total", Type: constants.FieldFloat},
			{Name: "vendor", Type: constants.FieldString},
			{Name: "paid", Type: constants.FieldBoolean},
		},
	}
	got, err := BuildSchema(tpl)
	require.NoError(t, err)

	want := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"total":  map[string]any{"type": "number"},
			"vendor": map[string]any{"type": "string"},
			"paid":   map[string]any{"type": "boolean"},
		},
		"required": []string{"total", "vendor", "paid"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("schema mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildSchemaRejectsBadTemplates(t *testing.T) {
	_, err := BuildSchema(template.Template{Name: "empty"})
	assert.ErrorIs(t, err, common.ErrInvalidTemplate)

	_, err = BuildSchema(template.Template{Name: "bad", Fields: []template.Field{{Name: "x", Type: "decimal"}}})
	assert.ErrorIs(t, err, common.ErrInvalidTemplate)
}

func TestWireSchemaStripsValidationKeywords(t *testing.T) {
	tpl, _ := template.Static(constants.StaticInvoiceTemplate)
	full, err := BuildSchema(tpl)
	require.NoError(t, err)

	wire := WireSchema(full)
	props := wire["properties"].(map[string]any)
	assert.Equal(t, map[string]any{"type": "string"}, props["invoice_date"])
	assert.Equal(t, map[string]any{"type": "string"}, props["invoice_number"])
	assert.Equal(t, full["required"], wire["required"])

	// the source schema keeps its constraints
	fullProps := full["properties"].(map[string]any)
	assert.Contains(t, fullProps["invoice_date"], "pattern")
}

func TestSystemPrompt(t *testing.T) {
	tpl := amountVendor()
	p := BuildSystemPrompt(tpl)
	assert.Contains(t, p, "amount (float), vendor (string)")
	assert.Contains(t, p, "JSON Schema")

	static, _ := template.Static(constants.StaticInvoiceTemplate)
	assert.NotContains(t, BuildSystemPrompt(static), "JSON Schema")
	assert.Equal(t, "raw text", BuildUserPrompt("raw text"))
}
