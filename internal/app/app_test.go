package app

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docproc/internal/common"
)

func localConfig(t *testing.T) *common.Config {
	dir := t.TempDir()
	cfg := common.DefaultConfig()
	cfg.Source.Dir = dir
	cfg.Cracker.Type = "local"
	cfg.Templates.Store = "invoke"
	cfg.LLM.Type = "ollama"
	cfg.Sinks.Types = []string{"csv", "jsonl"}
	cfg.Sinks.CSVPath = filepath.Join(dir, "out.csv")
	cfg.Sinks.JSONLPath = filepath.Join(dir, "out.jsonl")
	return cfg
}

func TestBuild(t *testing.T) {
	a, err := Build(context.Background(), localConfig(t), nil)
	require.NoError(t, err)
	assert.NotNil(t, a.Processor)
	assert.Equal(t, []string{"csv", "jsonl"}, a.Dispatcher.Names())
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
}

func TestBuildUnknownVariant(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*common.Config)
	}{
		{"cracker", func(c *common.Config) { c.Cracker.Type = "papyrus" }},
		{"extractor", func(c *common.Config) { c.LLM.Type = "oracle" }},
		{"store", func(c *common.Config) { c.Templates.Store = "etcd" }},
		{"source", func(c *common.Config) { c.Source.Type = "ftp" }},
		{"sink", func(c *common.Config) { c.Sinks.Types = []string{"fax"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := localConfig(t)
			tt.mutate(cfg)
			_, err := Build(context.Background(), cfg, nil)
			assert.ErrorIs(t, err, common.ErrUnsupportedVariant)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(common.LogConfig{Level: "warn", Format: "json"}, &buf)
	l.Info("hidden")
	l.Warn("shown", "k", 1)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}
