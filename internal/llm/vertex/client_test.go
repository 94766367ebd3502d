package vertex

import (
	"context"
	"testing"

	"cloud.google.com/go/vertexai/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToGenaiSchema(t *testing.T) {
	in := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"vendor": map[string]any{"type": "string"},
			"total":  map[string]any{"type": "number"},
			"paid":   map[string]any{"type": "boolean"},
		},
		"required": []string{"vendor", "total", "paid"},
	}
	s, err := toGenaiSchema(in)
	require.NoError(t, err)
	assert.Equal(t, genai.TypeObject, s.Type)
	assert.Equal(t, genai.TypeString, s.Properties["vendor"].Type)
	assert.Equal(t, genai.TypeNumber, s.Properties["total"].Type)
	assert.Equal(t, genai.TypeBoolean, s.Properties["paid"].Type)
	assert.Equal(t, []string{"vendor", "total", "paid"}, s.Required)

	_, err = toGenaiSchema(map[string]any{"type": "date"})
	assert.Error(t, err)
}

func TestNewClientRequiresProject(t *testing.T) {
	_, err := NewClient(context.Background(), Config{Region: "us-central1"}, nil)
	assert.Error(t, err)
}
