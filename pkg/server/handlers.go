package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/stackflow/pkg/buildinfo"
	apperr "github.com/matzehuels/stackflow/pkg/errors"
	"github.com/matzehuels/stackflow/pkg/pipeline"
	"github.com/matzehuels/stackflow/pkg/store"
)

// Content types of layout responses.
const (
	contentTypeJSON = "application/json"
	contentTypeDOT  = "text/vnd.graphviz; charset=utf-8"
)

// layoutResponse is the body of POST /v1/layouts and GET /v1/layouts/{id}.
type layoutResponse struct {
	ID        string          `json:"id"`
	GraphHash string          `json:"graph_hash"`
	CreatedAt time.Time       `json:"created_at"`
	Layout    json.RawMessage `json:"layout,omitempty"`
}

func toResponse(rec *store.Record, withLayout bool) layoutResponse {
	resp := layoutResponse{ID: rec.ID, GraphHash: rec.GraphHash, CreatedAt: rec.CreatedAt}
	if withLayout {
		resp.Layout = rec.Layout
	}
	return resp
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Status string         `json:"status"`
		Build  buildinfo.Info `json:"build"`
	}{"ok", buildinfo.Get()})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Counters.Snapshot())
}

// handleLayout lays out the body and returns the export directly.
func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	opts, format, err := s.layoutOptions(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.runner.Execute(r.Context(), opts)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	w.Header().Set("X-Graph-Hash", res.GraphHash)
	w.Header().Set("X-Cache", cacheHeader(res.CacheInfo.LayoutHit))
	ct := contentTypeJSON
	if format == pipeline.FormatDOT {
		ct = contentTypeDOT
	}
	w.Header().Set("Content-Type", ct)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Artifacts[format])
}

// handleCreateLayout lays out the body as JSON and stores the result.
func (s *Server) handleCreateLayout(w http.ResponseWriter, r *http.Request) {
	opts, format, err := s.layoutOptions(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if format != pipeline.FormatJSON {
		s.fail(w, r, apperr.New(apperr.ErrCodeUnsupported, "stored layouts are always json"))
		return
	}
	res, err := s.runner.Execute(r.Context(), opts)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	rec, err := store.NewRecord(res.GraphHash, res.Artifacts[pipeline.FormatJSON])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.store.Put(r.Context(), rec); err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/layouts/"+rec.ID)
	writeJSON(w, http.StatusCreated, toResponse(rec, true))
}

func (s *Server) handleListLayouts(w http.ResponseWriter, r *http.Request) {
	limit := DefaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.fail(w, r, apperr.New(apperr.ErrCodeInvalidInput, "limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	recs, err := s.store.List(r.Context(), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]layoutResponse, len(recs))
	for i, rec := range recs {
		out[i] = toResponse(rec, false)
	}
	writeJSON(w, http.StatusOK, map[string]any{"layouts": out})
}

func (s *Server) handleGetLayout(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(rec, true))
}

func (s *Server) handleDeleteLayout(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---------------------------------------------------------------------------
// Request parsing
// ---------------------------------------------------------------------------

// layoutOptions reads the body and query of a layout request.
func (s *Server) layoutOptions(w http.ResponseWriter, r *http.Request) (pipeline.Options, string, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return pipeline.Options{}, "", apperr.Wrap(apperr.ErrCodeTooLarge, err, "request body exceeds %d bytes", tooLarge.Limit)
		}
		return pipeline.Options{}, "", apperr.Wrap(apperr.ErrCodeInvalidInput, err, "read request body")
	}

	q := r.URL.Query()
	opts := pipeline.Options{
		Source:    string(body),
		Direction: q.Get("direction"),
	}
	if opts.Width, err = floatParam(q.Get("width"), "width"); err != nil {
		return opts, "", err
	}
	if opts.Height, err = floatParam(q.Get("height"), "height"); err != nil {
		return opts, "", err
	}
	if opts.Margin, err = floatParam(q.Get("margin"), "margin"); err != nil {
		return opts, "", err
	}
	if v := q.Get("dummies"); v != "" {
		if opts.Dummies, err = strconv.ParseBool(v); err != nil {
			return opts, "", apperr.New(apperr.ErrCodeInvalidInput, "dummies must be a boolean, got %q", v)
		}
	}

	format := strings.ToLower(q.Get("format"))
	if format == "" {
		format = pipeline.FormatJSON
	}
	if err := pipeline.ValidateFormat(format); err != nil {
		return opts, "", err
	}
	opts.Formats = []string{format}
	return opts, format, nil
}

func floatParam(v, name string) (float64, error) {
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return 0, apperr.New(apperr.ErrCodeInvalidInput, "%s must be a positive number, got %q", name, v)
	}
	return f, nil
}

// ---------------------------------------------------------------------------
// Responses
// ---------------------------------------------------------------------------

func cacheHeader(hit bool) string {
	if hit {
		return "HIT"
	}
	return "MISS"
}

// statusFor maps an error to an HTTP status.
func statusFor(err error) int {
	switch {
	case apperr.IsInvalid(err):
		return http.StatusBadRequest
	case apperr.Is(err, apperr.ErrCodeUnsupported):
		return http.StatusBadRequest
	case apperr.Is(err, apperr.ErrCodeNotFound), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case apperr.Is(err, apperr.ErrCodeTooLarge):
		return http.StatusRequestEntityTooLarge
	case apperr.Is(err, apperr.ErrCodeRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as a JSON error. Server errors are logged and their
// details withheld from the client.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	code := apperr.GetCode(err)
	msg := apperr.UserMessage(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "err", err)
		if code == "" {
			code = apperr.ErrCodeInternal
		}
		msg = http.StatusText(status)
	}
	writeError(w, status, code, msg)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a standardised JSON error response.
func writeError(w http.ResponseWriter, status int, code apperr.Code, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
		"code":  string(code),
	})
}
