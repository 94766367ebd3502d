package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docproc/constants"
	"github.com/joseph-ayodele/docproc/internal/llm"
	"github.com/joseph-ayodele/docproc/internal/sink"
)

// ErrProcessingFailed wraps every fatal run error.
var ErrProcessingFailed = errors.New("document processing failed")

// Request asks for one document to be processed with one template.
type Request struct {
	DocumentRef  string
	TemplateName string
	// transport metadata, logged only
	EventID string
	TraceID string
}

// Run is the record of one processing attempt.
type Run struct {
	ID          uuid.UUID
	Request     Request
	State       constants.RunState
	FailedStage constants.Stage
	Text        string
	Template    string
	Result      llm.Result
	Outcomes    []sink.Outcome
	Err         error
	StartedAt   time.Time
	FinishedAt  time.Time
}

func (r Run) Succeeded() bool { return r.State == constants.StateAcknowledged }

// FailedSinks names the sinks whose delivery failed.
func (r Run) FailedSinks() []string {
	var out []string
	for _, o := range r.Outcomes {
		if o.Err != nil {
			out = append(out, o.Sink)
		}
	}
	return out
}

// StageError attributes a fatal error to the stage that produced it.
type StageError struct {
	Stage constants.Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() []error {
	return []error{ErrProcessingFailed, e.Err}
}
