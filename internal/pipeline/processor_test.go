package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docproc/constants"
	"github.com/joseph-ayodele/docproc/internal/common"
	"github.com/joseph-ayodele/docproc/internal/crack"
	"github.com/joseph-ayodele/docproc/internal/llm"
	"github.com/joseph-ayodele/docproc/internal/sink"
	"github.com/joseph-ayodele/docproc/internal/template"
)

type memSource map[string][]byte

func (m memSource) Fetch(_ context.Context, ref string) ([]byte, error) {
	b, ok := m[ref]
	if !ok {
		return nil, fmt.Errorf("%w: %s", common.ErrSourceRetrieval, ref)
	}
	return b, nil
}

type textCracker struct {
	err   error
	calls int
}

func (c *textCracker) Crack(_ context.Context, doc []byte) (crack.Result, error) {
	c.calls++
	if c.err != nil {
		return crack.Result{}, c.err
	}
	return crack.Result{Text: string(doc), Pages: 1, Lines: strings.Count(string(doc), "\n") + 1, Method: "stub"}, nil
}

type memStore map[string]string

func (m memStore) Get(_ context.Context, name string) ([]byte, error) {
	s, ok := m[name]
	if !ok {
		return nil, common.ErrNotFound
	}
	return []byte(s), nil
}

func (m memStore) Close() error { return nil }

type replyCompleter struct {
	reply string
	calls int
}

func (c *replyCompleter) Name() string { return "stub" }
func (c *replyCompleter) Complete(context.Context, llm.Prompt) (string, error) {
	c.calls++
	return c.reply, nil
}

type countingSink struct {
	name  string
	calls int
}

func (s *countingSink) Name() string { return s.name }
func (s *countingSink) Close() error { return nil }
func (s *countingSink) Deliver(context.Context, string, llm.Result) error {
	s.calls++
	return nil
}

type fixture struct {
	proc      *Processor
	cracker   *textCracker
	completer *replyCompleter
	counter   *countingSink
	csvPath   string
	jsonlPath string
}

func newFixture(t *testing.T, reply string) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		cracker:   &textCracker{},
		completer: &replyCompleter{reply: reply},
		counter:   &countingSink{name: "counter"},
		csvPath:   filepath.Join(dir, "ledger.csv"),
		jsonlPath: filepath.Join(dir, "ledger.jsonl"),
	}
	src := memSource{"inv-1.pdf": []byte("Vendor: Acme\nAmount: 42.50"), "blank.pdf": []byte("  ")}
	store := memStore{"inv": `{'amount': 'float', 'vendor': 'string'}`}
	dispatcher := sink.NewDispatcher([]sink.Sink{
		sink.NewCSVSink(f.csvPath),
		sink.NewJSONLSink(f.jsonlPath),
		f.counter,
	}, time.Second, nil)

	f.proc = NewProcessor(src, f.cracker, template.NewResolver(store, nil),
		llm.NewSchemaExtractor(f.completer, time.Second, nil), dispatcher, nil)
	return f
}

func TestProcessHappyPath(t *testing.T) {
	f := newFixture(t, `{"amount":42.5,"vendor":"Acme"}`)

	run, err := f.proc.Process(context.Background(), Request{DocumentRef: "inv-1.pdf", TemplateName: "inv"})
	require.NoError(t, err)
	assert.True(t, run.Succeeded())
	assert.Equal(t, constants.StateAcknowledged, run.State)
	assert.Equal(t, map[string]any{"amount": 42.5, "vendor": "Acme"}, run.Result.Map())
	assert.Len(t, run.Outcomes, 3)
	assert.Empty(t, run.FailedSinks())

	csv, err := os.ReadFile(f.csvPath)
	require.NoError(t, err)
	assert.Contains(t, string(csv), `"inv-1.pdf","amount=42.5 vendor='Acme'"`)

	jsonl, err := os.ReadFile(f.jsonlPath)
	require.NoError(t, err)
	assert.JSONEq(t, `{"blob_name":"inv-1.pdf","invoice_details":{"amount":42.5,"vendor":"Acme"}}`, strings.TrimSpace(string(jsonl)))
}

func TestProcessStaticTemplateSkipsStore(t *testing.T) {
	reply := `{"invoice_number":"INV-7","invoice_date":"2024-01-31","due_date":"","vendor_name":"Acme",
"customer_name":"","currency":"USD","subtotal":10,"tax_amount":0,"total_amount":10,"paid":true}`
	f := newFixture(t, reply)
	run, err := f.proc.Process(context.Background(), Request{DocumentRef: "inv-1.pdf", TemplateName: constants.StaticInvoiceTemplate})
	require.NoError(t, err)
	assert.Equal(t, constants.StaticInvoiceTemplate, run.Template)
	assert.Equal(t, 10, run.Result.Len())
}

func TestProcessFailures(t *testing.T) {
	tests := []struct {
		name      string
		req       Request
		reply     string
		crackErr  error
		stage     constants.Stage
		sentinel  error
		wantLLM   bool
		wantCrack bool
	}{
		{
			name:      "unknown template",
			req:       Request{DocumentRef: "inv-1.pdf", TemplateName: "nope"},
			stage:     constants.StageTemplate,
			sentinel:  common.ErrTemplateNotFound,
			wantCrack: true,
		},
		{
			name:      "malformed model json",
			req:       Request{DocumentRef: "inv-1.pdf", TemplateName: "inv"},
			reply:     `{"amount": 42.5, "vendor": `,
			stage:     constants.StageExtraction,
			sentinel:  common.ErrExtraction,
			wantLLM:   true,
			wantCrack: true,
		},
		{
			name:      "empty object",
			req:       Request{DocumentRef: "inv-1.pdf", TemplateName: "inv"},
			reply:     `{}`,
			stage:     constants.StageExtraction,
			sentinel:  common.ErrExtraction,
			wantLLM:   true,
			wantCrack: true,
		},
		{
			name:     "missing document",
			req:      Request{DocumentRef: "ghost.pdf", TemplateName: "inv"},
			stage:    constants.StageSource,
			sentinel: common.ErrSourceRetrieval,
		},
		{
			name:      "cracker error",
			req:       Request{DocumentRef: "inv-1.pdf", TemplateName: "inv"},
			crackErr:  errors.New("analyze timed out"),
			stage:     constants.StageCracking,
			sentinel:  common.ErrCracking,
			wantCrack: true,
		},
		{
			name:      "blank text",
			req:       Request{DocumentRef: "blank.pdf", TemplateName: "inv"},
			stage:     constants.StageCracking,
			sentinel:  common.ErrCracking,
			wantCrack: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.reply)
			f.cracker.err = tt.crackErr

			run, err := f.proc.Process(context.Background(), tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrProcessingFailed)
			assert.ErrorIs(t, err, tt.sentinel)

			var serr *StageError
			require.ErrorAs(t, err, &serr)
			assert.Equal(t, tt.stage, serr.Stage)

			assert.Equal(t, constants.StateFailed, run.State)
			assert.Equal(t, tt.stage, run.FailedStage)
			assert.True(t, run.Result.Empty())
			assert.Equal(t, 0, f.counter.calls, "no sink may be reached")
			assert.NoFileExists(t, f.csvPath)
			assert.Equal(t, tt.wantLLM, f.completer.calls > 0)
			assert.Equal(t, tt.wantCrack, f.cracker.calls > 0)
		})
	}
}

type emptyExtractor struct{}

func (emptyExtractor) Extract(context.Context, template.Template, string) (llm.Result, error) {
	return llm.NewResult(), nil
}

func TestProcessEmptyResult(t *testing.T) {
	f := newFixture(t, "")
	f.proc.Extractor = emptyExtractor{}

	run, err := f.proc.Process(context.Background(), Request{DocumentRef: "inv-1.pdf", TemplateName: "inv"})
	assert.ErrorIs(t, err, common.ErrEmptyResult)
	assert.Equal(t, constants.StageExtraction, run.FailedStage)
	assert.Equal(t, 0, f.counter.calls)
}

func TestProcessInvalidStoredTemplate(t *testing.T) {
	f := newFixture(t, "")
	f.proc.Resolver = template.NewResolver(memStore{"bad": `{"amount": "decimal"}`}, nil)

	run, err := f.proc.Process(context.Background(), Request{DocumentRef: "inv-1.pdf", TemplateName: "bad"})
	assert.ErrorIs(t, err, common.ErrInvalidTemplate)
	assert.Equal(t, constants.StageTemplate, run.FailedStage)
}
