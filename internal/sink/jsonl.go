package sink

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/joseph-ayodele/docproc/constants"
	"github.com/joseph-ayodele/docproc/internal/common"
	"github.com/joseph-ayodele/docproc/internal/llm"
)

// JSONLSink appends one JSON object per line.
type JSONLSink struct {
	path string
	mu   sync.Mutex
}

func NewJSONLSink(path string) *JSONLSink {
	return &JSONLSink{path: path}
}

func (s *JSONLSink) Name() string { return constants.SinkJSONL }

func (s *JSONLSink) Deliver(_ context.Context, docRef string, res llm.Result) error {
	line, err := marshalRecord(docRef, res)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", common.ErrSinkDelivery, err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", common.ErrSinkDelivery, s.path, err)
	}
	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return fmt.Errorf("%w: write %s: %v", common.ErrSinkDelivery, s.path, err)
	}
	return f.Close()
}

func (s *JSONLSink) Close() error { return nil }
