package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/joseph-ayodele/docproc/constants"
	"github.com/joseph-ayodele/docproc/internal/common"
	"github.com/joseph-ayodele/docproc/internal/llm"
	"github.com/joseph-ayodele/docproc/internal/repository"
)

// SQLSink inserts one extraction_results row per delivery.
type SQLSink struct {
	db   *repository.DB
	repo repository.ResultRepository
}

// NewSQLSink opens the database and ensures the results table exists.
func NewSQLSink(ctx context.Context, db *repository.DB) (*SQLSink, error) {
	repo := repository.NewResultRepository(db.Driver)
	if err := repo.Migrate(ctx); err != nil {
		return nil, err
	}
	return &SQLSink{db: db, repo: repo}, nil
}

func (s *SQLSink) Name() string { return constants.SinkSQL }

func (s *SQLSink) Deliver(ctx context.Context, docRef string, res llm.Result) error {
	details, err := res.MarshalJSON()
	if err != nil {
		return fmt.Errorf("%w: encode: %v", common.ErrSinkDelivery, err)
	}
	row := repository.ResultRow{
		DocRef:   docRef,
		Template: common.TemplateFromContext(ctx),
		Details:  string(details),
	}
	if err := s.repo.Insert(ctx, row); err != nil {
		return fmt.Errorf("%w: insert: %v", common.ErrSinkDelivery, err)
	}
	return nil
}

// HealthCheck pings the database.
func (s *SQLSink) HealthCheck(ctx context.Context) error {
	return s.db.HealthCheck(ctx, 5*time.Second)
}

func (s *SQLSink) Close() error { return s.db.Close() }
