package sink

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/joseph-ayodele/docproc/constants"
	"github.com/joseph-ayodele/docproc/internal/common"
	"github.com/joseph-ayodele/docproc/internal/llm"
)

var csvHeader = []string{"Blob Name", "Invoice Details"}

// CSVSink appends one fully quoted row per result to a ledger file.
type CSVSink struct {
	path string
	mu   sync.Mutex
}

func NewCSVSink(path string) *CSVSink {
	return &CSVSink{path: path}
}

func (s *CSVSink) Name() string { return constants.SinkCSV }

func (s *CSVSink) Deliver(_ context.Context, docRef string, res llm.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, statErr := os.Stat(s.path)
	exists := statErr == nil
	if statErr != nil && !errors.Is(statErr, fs.ErrNotExist) {
		return fmt.Errorf("%w: stat %s: %v", common.ErrSinkDelivery, s.path, statErr)
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", common.ErrSinkDelivery, s.path, err)
	}

	var b strings.Builder
	if !exists {
		writeQuotedRow(&b, csvHeader)
	}
	writeQuotedRow(&b, []string{docRef, FormatDetails(res)})
	if _, err := f.WriteString(b.String()); err != nil {
		_ = f.Close()
		return fmt.Errorf("%w: write %s: %v", common.ErrSinkDelivery, s.path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", common.ErrSinkDelivery, s.path, err)
	}
	return nil
}

func (s *CSVSink) Close() error { return nil }

// FormatDetails renders a result as space-separated k=v pairs in field order.
func FormatDetails(res llm.Result) string {
	parts := make([]string, 0, res.Len())
	for _, k := range res.Keys() {
		v, _ := res.Get(k)
		parts = append(parts, k+"="+llm.FormatValue(v))
	}
	return strings.Join(parts, " ")
}

// writeQuotedRow quotes every field; encoding/csv only quotes when needed.
func writeQuotedRow(b *strings.Builder, fields []string) {
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(f, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteString("\r\n")
}
