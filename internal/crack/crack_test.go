package crack

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docproc/internal/common"
)

func layoutServer(t *testing.T, pendingPolls int32, final string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var polls atomic.Int32
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("Ocp-Apim-Subscription-Key"))
		switch {
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "prebuilt-layout:analyze"):
			assert.Equal(t, "2024-11-30", r.URL.Query().Get("api-version"))
			var body map[string]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			raw, err := base64.StdEncoding.DecodeString(body["base64Source"])
			assert.NoError(t, err)
			assert.Equal(t, "%PDF-fake", string(raw))
			w.Header().Set("Operation-Location", srv.URL+"/operations/1")
			w.WriteHeader(http.StatusAccepted)
		case r.Method == http.MethodGet && r.URL.Path == "/operations/1":
			if polls.Add(1) <= pendingPolls {
				_, _ = io.WriteString(w, `{"status":"running"}`)
				return
			}
			_, _ = io.WriteString(w, final)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &polls
}

func newTestLayout(url string, timeout time.Duration) *LayoutCracker {
	return NewLayoutCracker(common.LayoutConfig{
		Endpoint:     url,
		Key:          "secret",
		Timeout:      timeout,
		PollInterval: 5 * time.Millisecond,
	}, nil)
}

func TestLayoutCracker_JoinsPagesThenLines(t *testing.T) {
	srv, polls := layoutServer(t, 2, `{"status":"succeeded","analyzeResult":{"pages":[
		{"pageNumber":1,"lines":[{"content":"Vendor: Acme"},{"content":"Invoice 7"}]},
		{"pageNumber":2,"lines":[{"content":"Amount: 42.50"}]}]}}`)

	res, err := newTestLayout(srv.URL, time.Second).Crack(context.Background(), []byte("%PDF-fake"))
	require.NoError(t, err)

	assert.Equal(t, "Vendor: Acme\nInvoice 7\nAmount: 42.50", res.Text)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, 3, res.Lines)
	assert.EqualValues(t, 3, polls.Load())
}

func TestLayoutCracker_Failures(t *testing.T) {
	tests := []struct {
		name    string
		pending int32
		final   string
		timeout time.Duration
	}{
		{name: "no lines", final: `{"status":"succeeded","analyzeResult":{"pages":[{"pageNumber":1,"lines":[]}]}}`, timeout: time.Second},
		{name: "no pages", final: `{"status":"succeeded","analyzeResult":{"pages":[]}}`, timeout: time.Second},
		{name: "analysis failed", final: `{"status":"failed","error":{"code":"InvalidContent","message":"corrupt"}}`, timeout: time.Second},
		{name: "bounded wait", pending: 1 << 30, final: `{}`, timeout: 50 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := layoutServer(t, tt.pending, tt.final)
			res, err := newTestLayout(srv.URL, tt.timeout).Crack(context.Background(), []byte("%PDF-fake"))
			require.ErrorIs(t, err, common.ErrCracking)
			assert.True(t, res.Empty())
		})
	}
}

func TestLayoutCracker_SubmitRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":"401"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestLayout(srv.URL, time.Second).Crack(context.Background(), []byte("%PDF-fake"))
	require.ErrorIs(t, err, common.ErrCracking)
	assert.Contains(t, err.Error(), "401")
}

func TestTikaCracker(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPut, r.Method)
			assert.Equal(t, "/tika", r.URL.Path)
			assert.Equal(t, "text/plain", r.Header.Get("Accept"))
			_, _ = io.WriteString(w, "\n\nVendor: Acme\r\n\n Amount: 42.50 \n\f")
		}))
		defer srv.Close()

		res, err := NewTikaCracker(common.TikaConfig{URL: srv.URL}, nil).Crack(context.Background(), []byte("doc"))
		require.NoError(t, err)
		assert.Equal(t, "Vendor: Acme\nAmount: 42.50", res.Text)
		assert.Equal(t, 2, res.Lines)
	})

	t.Run("soft failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
		}))
		defer srv.Close()

		res, err := NewTikaCracker(common.TikaConfig{URL: srv.URL}, nil).Crack(context.Background(), []byte("doc"))
		require.NoError(t, err)
		assert.True(t, res.Empty())
	})
}

type fakeRunner struct {
	calls []string
	run   func(name string, args []string) ([]byte, []byte, error)
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.calls = append(f.calls, name)
	return f.run(name, args)
}

func TestLocalCracker(t *testing.T) {
	pdf := []byte("%PDF-1.7 fake")
	png := []byte("\x89PNG\r\n\x1a\nfake")

	tests := []struct {
		name      string
		doc       []byte
		run       func(name string, args []string) ([]byte, []byte, error)
		wantText  string
		wantCalls []string
		wantErr   bool
	}{
		{
			name: "pdf text layer",
			doc:  pdf,
			run: func(name string, args []string) ([]byte, []byte, error) {
				return []byte("Vendor:   Acme Corporation\n\n-----\nAmount:\t42.50\n"), nil, nil
			},
			wantText:  "Vendor: Acme Corporation\nAmount: 42.50",
			wantCalls: []string{"pdftotext"},
		},
		{
			name: "scanned pdf falls back to ocr",
			doc:  pdf,
			run: func(name string, args []string) ([]byte, []byte, error) {
				switch name {
				case "pdftotext":
					return []byte("\f"), nil, nil
				case "pdftoppm":
					prefix := args[len(args)-1]
					for _, p := range []string{"-1.png", "-2.png"} {
						if err := os.WriteFile(prefix+p, []byte("img"), 0o600); err != nil {
							return nil, nil, err
						}
					}
					return nil, nil, nil
				default:
					if strings.HasSuffix(args[0], "-1.png") {
						return []byte("Vendor: Acme\n"), nil, nil
					}
					return []byte("Amount: 42.50\n"), nil, nil
				}
			},
			wantText:  "Vendor: Acme\nAmount: 42.50",
			wantCalls: []string{"pdftotext", "pdftoppm", "tesseract", "tesseract"},
		},
		{
			name: "image",
			doc:  png,
			run: func(name string, args []string) ([]byte, []byte, error) {
				return []byte("TOTAL 9.99\n"), nil, nil
			},
			wantText:  "TOTAL 9.99",
			wantCalls: []string{"tesseract"},
		},
		{
			name: "blank image",
			doc:  png,
			run: func(name string, args []string) ([]byte, []byte, error) {
				return []byte("  \n"), nil, nil
			},
			wantCalls: []string{"tesseract"},
			wantErr:   true,
		},
		{
			name: "tesseract missing",
			doc:  png,
			run: func(name string, args []string) ([]byte, []byte, error) {
				return nil, []byte("not found"), errors.New("exec: not found")
			},
			wantCalls: []string{"tesseract"},
			wantErr:   true,
		},
		{
			name:    "unknown format",
			doc:     []byte("hello"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewLocalCracker(common.LocalOCRConfig{}, nil)
			fr := &fakeRunner{run: tt.run}
			c.runner = fr

			res, err := c.Crack(context.Background(), tt.doc)
			if tt.wantErr {
				require.ErrorIs(t, err, common.ErrCracking)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantText, res.Text)
			}
			assert.Equal(t, tt.wantCalls, fr.calls)
		})
	}
}

func TestNew(t *testing.T) {
	for _, name := range []string{"layout", "document_intelligence", "tika", "local"} {
		c, err := New(common.CrackerConfig{Type: name}, nil)
		require.NoError(t, err, name)
		assert.NotNil(t, c)
	}

	_, err := New(common.CrackerConfig{Type: "textract"}, nil)
	require.ErrorIs(t, err, common.ErrUnsupportedVariant)
}
