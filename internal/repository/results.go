package repository

import (
	"context"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

const resultsTable = "extraction_results"

// ResultRow is one persisted extraction.
type ResultRow struct {
	ID        uuid.UUID
	DocRef    string
	Template  string
	Details   string // JSON object in field order
	CreatedAt time.Time
}

type ResultRepository interface {
	Migrate(ctx context.Context) error
	Insert(ctx context.Context, row ResultRow) error
	ListByDocRef(ctx context.Context, docRef string) ([]ResultRow, error)
}

type resultRepository struct {
	drv *entsql.Driver
}

func NewResultRepository(drv *entsql.Driver) ResultRepository {
	return &resultRepository{drv: drv}
}

// Migrate creates the results table when it does not exist.
func (r *resultRepository) Migrate(ctx context.Context) error {
	detailsType, tsType := "TEXT", "TIMESTAMP"
	if r.drv.Dialect() == dialect.Postgres {
		detailsType, tsType = "JSONB", "TIMESTAMPTZ"
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY,
	doc_ref TEXT NOT NULL,
	template TEXT NOT NULL,
	details %s NOT NULL,
	created_at %s NOT NULL
)`, resultsTable, detailsType, tsType)
	if err := r.drv.Exec(ctx, ddl, []any{}, nil); err != nil {
		return fmt.Errorf("create %s: %w", resultsTable, err)
	}
	idx := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_doc_ref_idx ON %s (doc_ref)", resultsTable, resultsTable)
	if err := r.drv.Exec(ctx, idx, []any{}, nil); err != nil {
		return fmt.Errorf("index %s: %w", resultsTable, err)
	}
	return nil
}

func (r *resultRepository) Insert(ctx context.Context, row ResultRow) error {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	q, args := entsql.Dialect(r.drv.Dialect()).
		Insert(resultsTable).
		Columns("id", "doc_ref", "template", "details", "created_at").
		Values(row.ID.String(), row.DocRef, row.Template, row.Details, row.CreatedAt).
		Query()
	return r.drv.Exec(ctx, q, args, nil)
}

func (r *resultRepository) ListByDocRef(ctx context.Context, docRef string) ([]ResultRow, error) {
	q, args := entsql.Dialect(r.drv.Dialect()).
		Select("id", "doc_ref", "template", "details", "created_at").
		From(entsql.Table(resultsTable)).
		Where(entsql.EQ("doc_ref", docRef)).
		OrderBy("created_at").
		Query()

	var rows entsql.Rows
	if err := r.drv.Query(ctx, q, args, &rows); err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ResultRow
	for rows.Next() {
		var (
			row ResultRow
			id  string
		)
		if err := rows.Scan(&id, &row.DocRef, &row.Template, &row.Details, &row.CreatedAt); err != nil {
			return nil, err
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("bad id %q: %w", id, err)
		}
		row.ID = parsed
		out = append(out, row)
	}
	return out, rows.Err()
}
