// Package server exposes the pipeline over HTTP as a Dapr pub/sub subscriber.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/joseph-ayodele/docproc/internal/llm"
	"github.com/joseph-ayodele/docproc/internal/pipeline"
)

// Submitter runs a request and waits for its outcome.
type Submitter interface {
	Submit(ctx context.Context, req pipeline.Request) (pipeline.Run, error)
}

type Config struct {
	PubSubName string
	Topic      string
	Route      string
	// RequestTimeout bounds how long a /process call may wait in the queue.
	// A run that has started is always awaited; its own timeout bounds it.
	RequestTimeout time.Duration
}

type Server struct {
	cfg       Config
	queue     Submitter
	extractor llm.Extractor
	logger    *slog.Logger
}

// New wires the handlers. extractor may be nil, which disables POST /extract.
func New(cfg Config, q Submitter, extractor llm.Extractor, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PubSubName == "" {
		cfg.PubSubName = "pubsub"
	}
	if cfg.Topic == "" {
		cfg.Topic = "invoices"
	}
	if cfg.Route == "" {
		cfg.Route = "/process"
	}
	return &Server{cfg: cfg, queue: q, extractor: extractor, logger: logger}
}

// Routes returns the HTTP handler tree.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/", s.handleStatus)
	r.Get("/dapr/subscribe", s.handleSubscribe)
	r.Post(s.cfg.Route, s.handleProcess)
	if s.extractor != nil {
		r.Post("/extract", s.handleExtract)
	}
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http.request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"http_req_id", chimiddleware.GetReqID(r.Context()),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	})
}
