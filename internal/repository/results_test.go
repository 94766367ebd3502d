package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSQLite(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), Config{
		Dialect: "sqlite",
		DSN:     "file:" + filepath.Join(t.TempDir(), "results.db"),
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestResultRepository(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)
	repo := NewResultRepository(db.Driver)
	require.NoError(t, repo.Migrate(ctx))
	require.NoError(t, repo.Migrate(ctx), "migrate is idempotent")

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Insert(ctx, ResultRow{DocRef: "a.pdf", Template: "t1", Details: `{"n":1}`, CreatedAt: base}))
	require.NoError(t, repo.Insert(ctx, ResultRow{DocRef: "a.pdf", Template: "t2", Details: `{"n":2}`, CreatedAt: base.Add(time.Minute)}))
	require.NoError(t, repo.Insert(ctx, ResultRow{DocRef: "b.pdf", Template: "t1", Details: `{}`}))

	rows, err := repo.ListByDocRef(ctx, "a.pdf")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "t1", rows[0].Template)
	assert.Equal(t, "t2", rows[1].Template)
	assert.NotEqual(t, rows[0].ID, rows[1].ID)
	assert.True(t, rows[0].CreatedAt.Equal(base), "created_at round-trips: %v", rows[0].CreatedAt)

	none, err := repo.ListByDocRef(ctx, "missing.pdf")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestHealthCheck(t *testing.T) {
	db := openSQLite(t)
	assert.NoError(t, db.HealthCheck(context.Background(), time.Second))
}

func TestOpenUnknownDialect(t *testing.T) {
	_, err := Open(context.Background(), Config{Dialect: "oracle"}, nil)
	assert.Error(t, err)
}
