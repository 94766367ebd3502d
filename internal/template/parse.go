package template

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/joseph-ayodele/docproc/constants"
	"github.com/joseph-ayodele/docproc/internal/common"
)

// ParseStored turns a stored template blob into a Template. Blobs written by
// the upload service are Python dict literals ({'amount': 'float'}) and may
// arrive wrapped in a JSON string; see Normalize.
func ParseStored(name string, blob []byte) (Template, error) {
	norm := Normalize(blob)
	pairs, err := decodeOrdered(norm)
	if err != nil {
		return Template{}, fmt.Errorf("%w: %s: %v", common.ErrInvalidTemplate, name, err)
	}
	if len(pairs) == 0 {
		return Template{}, fmt.Errorf("%w: %s: no fields", common.ErrInvalidTemplate, name)
	}

	tpl := Template{Name: name, Fields: make([]Field, 0, len(pairs))}
	for _, p := range pairs {
		ft, ok := constants.CanonicalFieldType(p.value)
		if !ok {
			return Template{}, fmt.Errorf("%w: %s: field %q has unknown type %q (want one of %s)",
				common.ErrInvalidTemplate, name, p.key, p.value, strings.Join(constants.FieldTypes(), ", "))
		}
		tpl.Fields = append(tpl.Fields, Field{Name: p.key, Type: ft})
	}
	return tpl, nil
}

// Normalize unwraps a JSON-string-encoded blob and, when the result is not
// already valid JSON, swaps single quotes for double quotes. Values that
// themselves contain apostrophes are not supported by the upload format.
func Normalize(blob []byte) []byte {
	b := bytes.TrimSpace(blob)
	if len(b) > 0 && b[0] == '"' {
		var inner string
		if err := json.Unmarshal(b, &inner); err == nil {
			b = bytes.TrimSpace([]byte(inner))
		}
	}
	if json.Valid(b) {
		return b
	}
	return bytes.ReplaceAll(b, []byte("'"), []byte(`"`))
}

type pair struct {
	key   string
	value string
}

// decodeOrdered reads a flat JSON object of string values keeping key order.
// A repeated key keeps its first position and its last value.
func decodeOrdered(b []byte) ([]pair, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.New("template must be a JSON object")
	}

	var out []pair
	index := map[string]int{}
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("parse: %w", err)
		}
		key, _ := kt.(string)
		vt, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("parse: %w", err)
		}
		val, ok := vt.(string)
		if !ok {
			return nil, fmt.Errorf("field %q: type tag must be a string", key)
		}
		if i, seen := index[key]; seen {
			out[i].value = val
			continue
		}
		index[key] = len(out)
		out = append(out, pair{key: key, value: val})
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after template object")
	}
	return out, nil
}
