package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/joseph-ayodele/docproc/internal/async"
	"github.com/joseph-ayodele/docproc/internal/common"
	"github.com/joseph-ayodele/docproc/internal/pipeline"
	"github.com/joseph-ayodele/docproc/internal/template"
)

const processingFailedMsg = "An internal server error occurred during document processing."

// invoicePayload is the data of an inbound invoice event.
type invoicePayload struct {
	Path         string `json:"path"`
	TemplateName string `json:"template_name"`
}

type subscription struct {
	PubSubName string `json:"pubsubname"`
	Topic      string `json:"topic"`
	Route      string `json:"route"`
}

// depther is implemented by queues that can report their backlog.
type depther interface {
	Depth() int
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{"status": "ok"}
	if d, ok := s.queue.(depther); ok {
		body["queue_depth"] = d.Depth()
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleSubscribe(w http.ResponseWriter, _ *http.Request) {
	s.logger.Info("server.subscribe", "pubsub", s.cfg.PubSubName, "topic", s.cfg.Topic, "route", s.cfg.Route)
	writeJSON(w, http.StatusOK, []subscription{{
		PubSubName: s.cfg.PubSubName,
		Topic:      s.cfg.Topic,
		Route:      s.cfg.Route,
	}})
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	event, err := cloudevents.NewEventFromHTTPRequest(r)
	if err != nil {
		s.logger.Warn("server.process.bad_event", "error", err)
		writeError(w, http.StatusBadRequest, "invalid cloud event")
		return
	}
	var data invoicePayload
	if err := event.DataAs(&data); err != nil {
		s.logger.Warn("server.process.bad_data", "event_id", event.ID(), "error", err)
		writeError(w, http.StatusBadRequest, "invalid event data")
		return
	}
	data.Path = strings.TrimSpace(data.Path)
	data.TemplateName = strings.TrimSpace(data.TemplateName)
	if data.Path == "" || data.TemplateName == "" {
		writeError(w, http.StatusBadRequest, "path and template_name are required")
		return
	}

	traceID, _ := event.Extensions()["traceid"].(string)
	req := pipeline.Request{
		DocumentRef:  data.Path,
		TemplateName: data.TemplateName,
		EventID:      event.ID(),
		TraceID:      traceID,
	}
	s.logger.Info("server.process.received", "event_id", req.EventID, "doc_ref", req.DocumentRef, "template", req.TemplateName)

	ctx := r.Context()
	if s.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()
	}
	run, err := s.queue.Submit(ctx, req)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	case errors.Is(err, async.ErrQueueFull), errors.Is(err, async.ErrQueueClosed), errors.Is(err, async.ErrExpired):
		w.Header().Set("Retry-After", "5")
		writeError(w, http.StatusServiceUnavailable, "processing capacity exhausted, retry later")
	default:
		s.logger.Error("server.process.failed",
			"event_id", req.EventID, "run_id", run.ID, "stage", run.FailedStage, "error", err)
		writeError(w, http.StatusInternalServerError, processingFailedMsg)
	}
}

type extractRequest struct {
	Template json.RawMessage `json:"template"`
	Text     string          `json:"text"`
}

// handleExtract runs extraction on caller-supplied text with an inline template.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var body extractRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, 4<<20))
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(body.Text) == "" || len(body.Template) == 0 {
		writeError(w, http.StatusBadRequest, "template and text are required")
		return
	}
	tpl, err := template.ParseStored("inline", body.Template)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.extractor.Extract(r.Context(), tpl, body.Text)
	if err != nil {
		s.logger.Error("server.extract.failed", "error", err)
		status := http.StatusInternalServerError
		if errors.Is(err, common.ErrInvalidTemplate) {
			status = http.StatusBadRequest
		}
		writeError(w, status, "extraction failed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
