package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultKeepsInsertionOrder(t *testing.T) {
	r := NewResult()
	r.Set("vendor", "Acme")
	r.Set("amount", 42.5)
	r.Set("paid", true)
	r.Set("vendor", "Acme Ltd")

	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Equal(t, `{"vendor":"Acme Ltd","amount":42.5,"paid":true}`, string(b))
	assert.Equal(t, []string{"vendor", "amount", "paid"}, r.Keys())

	var zero Result
	b, err = json.Marshal(zero)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(b))
	assert.True(t, zero.Empty())
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{"Acme", "'Acme'"},
		{42.5, "42.5"},
		{42.0, "42.0"},
		{1e21, "1e+21"},
		{1e16, "1e+16"},
		{123456789.25, "123456789.25"},
		{0.0001, "0.0001"},
		{0.00001, "1e-05"},
		{0.0, "0.0"},
		{"O'Brien Ltd", `"O'Brien Ltd"`},
		{`say "hi"`, `'say "hi"'`},
		{`it's "quoted"`, `'it\'s "quoted"'`},
		{`C:\inv`, `'C:\\inv'`},
		{"line1\nline2\ttab", `'line1\nline2\ttab'`},
		{"nbsp\u00a0", `'nbsp\xa0'`},
		{"café", "'café'"},
		{true, "True"},
		{false, "False"},
		{nil, "None"},
		{7, "7"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatValue(tt.in), "value %v", tt.in)
	}
}
