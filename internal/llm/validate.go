package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// compiled schemas keyed by their canonical JSON; templates repeat across runs
var schemaCache sync.Map

func compileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	key := string(b)
	if s, ok := schemaCache.Load(key); ok {
		return s.(*jsonschema.Schema), nil
	}
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource("reply.schema.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	s, err := c.Compile("reply.schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	actual, _ := schemaCache.LoadOrStore(key, s)
	return actual.(*jsonschema.Schema), nil
}

// ValidateReply checks a decoded reply document against the extraction schema.
func ValidateReply(schemaMap map[string]any, data []byte) error {
	s, err := compileSchema(schemaMap)
	if err != nil {
		return err
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("unmarshal reply: %w", err)
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("reply does not match schema: %w", err)
	}
	return nil
}
