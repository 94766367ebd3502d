package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docproc/constants"
	"github.com/joseph-ayodele/docproc/internal/repository"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("DOCPROC_CONFIG", "")
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestTemplateList(t *testing.T) {
	out, err := execute(t, "template", "list")
	require.NoError(t, err)
	var names []string
	require.NoError(t, json.Unmarshal([]byte(out), &names))
	assert.Contains(t, names, constants.StaticInvoiceTemplate)
}

func TestTemplateShowStatic(t *testing.T) {
	out, err := execute(t, "template", "show", constants.StaticInvoiceTemplate, "--schema")
	require.NoError(t, err)

	var view templateView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.True(t, view.Static)
	assert.NotEmpty(t, view.Fields)
	assert.NotEmpty(t, view.Schema)
}

func TestRunRequiresFile(t *testing.T) {
	_, err := execute(t, "run")
	assert.Error(t, err)
}

func TestUnknownSinkFlag(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "batch", dir, "--sink", "fax", "--extractor", "ollama", "--cracker", "local")
	assert.Error(t, err)
}

func TestResultsListsStoredRows(t *testing.T) {
	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "results.db")
	db, err := repository.Open(ctx, repository.Config{Dialect: "sqlite", DSN: dsn}, nil)
	require.NoError(t, err)
	repo := repository.NewResultRepository(db.Driver)
	require.NoError(t, repo.Migrate(ctx))
	require.NoError(t, repo.Insert(ctx, repository.ResultRow{DocRef: "inv-1.pdf", Template: "static_invoice", Details: `{"total_amount":42.5}`}))
	require.NoError(t, db.Close())

	t.Setenv("SQL_DIALECT", "sqlite")
	t.Setenv("SQL_DSN", dsn)
	out, err := execute(t, "results", "inv-1.pdf")
	require.NoError(t, err)

	var views []resultView
	require.NoError(t, json.Unmarshal([]byte(out), &views))
	require.Len(t, views, 1)
	assert.Equal(t, "static_invoice", views[0].Template)
	assert.JSONEq(t, `{"total_amount":42.5}`, string(views[0].Details))
}

func TestResultsRequiresDSN(t *testing.T) {
	t.Setenv("SQL_DSN", "")
	_, err := execute(t, "results", "inv-1.pdf")
	assert.Error(t, err)
}
