package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/joseph-ayodele/docproc/constants"
	"github.com/joseph-ayodele/docproc/internal/common"
	"github.com/joseph-ayodele/docproc/internal/template"
)

// DecodeReply parses a model reply as exactly one JSON object, validates it
// against schema and converts every value to its declared field type.
// Nothing partial is returned on failure.
func DecodeReply(tpl template.Template, schema map[string]any, reply string) (Result, error) {
	raw := bytes.TrimSpace([]byte(reply))
	if len(raw) == 0 {
		return Result{}, fmt.Errorf("%w: empty model reply", common.ErrExtraction)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return Result{}, fmt.Errorf("%w: reply is not a JSON object: %v", common.ErrExtraction, err)
	}
	if obj == nil {
		return Result{}, fmt.Errorf("%w: reply is null", common.ErrExtraction)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Result{}, fmt.Errorf("%w: trailing data after JSON object", common.ErrExtraction)
	}

	if err := ValidateReply(schema, raw); err != nil {
		return Result{}, fmt.Errorf("%w: %v", common.ErrExtraction, err)
	}

	res := NewResult()
	for _, f := range tpl.Fields {
		v, ok := obj[f.Name]
		if !ok {
			continue
		}
		typed, err := coerce(f, v)
		if err != nil {
			return Result{}, fmt.Errorf("%w: %v", common.ErrExtraction, err)
		}
		res.Set(f.Name, typed)
	}
	for k := range obj {
		if _, ok := tpl.Lookup(k); !ok {
			return Result{}, fmt.Errorf("%w: unexpected field %q", common.ErrExtraction, k)
		}
	}
	return res, nil
}

func coerce(f template.Field, v any) (any, error) {
	switch f.Type {
	case constants.FieldString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case constants.FieldFloat:
		if n, ok := v.(json.Number); ok {
			x, err := n.Float64()
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", f.Name, err)
			}
			return x, nil
		}
	case constants.FieldBoolean:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	}
	return nil, fmt.Errorf("field %q: got %T, want %s", f.Name, v, f.Type)
}
