// Package api exposes the compile pipeline, the text parser, saved
// processes and the collaborator proxies over HTTP. The interactive
// editor frontend is a client of this API.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/procflow/procflow/pkg/collab"
	"github.com/procflow/procflow/pkg/dot"
	"github.com/procflow/procflow/pkg/errors"
	"github.com/procflow/procflow/pkg/flow/build"
	"github.com/procflow/procflow/pkg/flow/layout"
	"github.com/procflow/procflow/pkg/pipeline"
	"github.com/procflow/procflow/pkg/store"
	"github.com/procflow/procflow/pkg/table"
	"github.com/procflow/procflow/pkg/visual"
)

// Server wires the pipeline, store and collaborator clients into HTTP
// handlers. Collab may be nil when no collaborator endpoints are
// configured; the proxy routes then answer 503.
type Server struct {
	Runner *pipeline.Runner
	Store  store.Store
	Collab *collab.Client
	Logger *log.Logger
}

// NewRouter builds the chi router for the server.
func NewRouter(s *Server) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/compile", s.handleCompile)
		r.Post("/parse", s.handleParse)
		r.Post("/analyze", s.handleAnalyze)
		r.Post("/enrich", s.handleEnrich)

		r.Route("/processes", func(r chi.Router) {
			r.Get("/", s.handleListProcesses)
			r.Get("/{name}", s.handleGetProcess)
			r.Put("/{name}", s.handleSaveProcess)
			r.Delete("/{name}", s.handleDeleteProcess)
		})
	})

	return r
}

type compileResponse struct {
	GraphHash string            `json:"graph_hash"`
	Warnings  []string          `json:"warnings,omitempty"`
	Artifacts map[string]string `json:"artifacts"`
	Stats     statsResponse     `json:"stats"`
	Cache     cacheResponse     `json:"cache"`
}

type statsResponse struct {
	Nodes int `json:"nodes"`
	Edges int `json:"edges"`
}

type cacheResponse struct {
	LayoutHit   bool `json:"layout_hit"`
	ArtifactHit bool `json:"artifact_hit"`
}

func (s *Server) handleCompile(w http.ResponseWriter, r *http.Request) {
	var opts pipeline.Options
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode request"))
		return
	}

	res, err := s.Runner.Execute(r.Context(), opts)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := compileResponse{
		GraphHash: res.GraphHash,
		Artifacts: make(map[string]string, len(res.Artifacts)),
		Stats:     statsResponse{Nodes: res.Stats.NodeCount, Edges: res.Stats.EdgeCount},
		Cache:     cacheResponse{LayoutHit: res.CacheInfo.LayoutHit, ArtifactHit: res.CacheInfo.ArtifactHit},
	}
	for _, warning := range res.Warnings {
		resp.Warnings = append(resp.Warnings, warning.String())
	}
	for format, data := range res.Artifacts {
		resp.Artifacts[format] = string(data)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

type parseRequest struct {
	Text string `json:"text"`
}

type parseResponse struct {
	Rows     []table.Row  `json:"rows"`
	Visual   visual.Model `json:"visual"`
	Warnings []string     `json:"warnings,omitempty"`
}

// handleParse turns notation text into rows and a laid-out visual model.
// A malformed document answers 422 with the offending fragment so the
// editor can keep its last-good state and point at the error.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode request"))
		return
	}

	g, err := dot.Parse(req.Text)
	if err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeParse, err, "parse text"))
		return
	}
	warnings := build.Normalize(g)
	placed := layout.Apply(g, layout.Options{})

	resp := parseResponse{
		Rows:   table.FromGraph(placed),
		Visual: visual.FromGraph(placed),
	}
	for _, warning := range warnings {
		resp.Warnings = append(resp.Warnings, warning.String())
	}
	s.writeJSON(w, http.StatusOK, resp)
}

type analyzeRequest struct {
	Filename string `json:"filename"`
	Content  []byte `json:"content"` // base64 in JSON
}

type analyzeResponse struct {
	Rows []table.Row `json:"rows"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if s.Collab == nil {
		s.writeError(w, errors.New(errors.ErrCodeCollaborator, "no analysis endpoint configured"))
		return
	}
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode request"))
		return
	}

	rows, err := s.Collab.Analyze(r.Context(), req.Filename, req.Content)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, analyzeResponse{Rows: rows})
}

type enrichRequest struct {
	Rows []table.Row `json:"rows"`
}

type enrichResponse struct {
	Rows []table.Row `json:"rows"`
}

func (s *Server) handleEnrich(w http.ResponseWriter, r *http.Request) {
	if s.Collab == nil {
		s.writeError(w, errors.New(errors.ErrCodeCollaborator, "no enrichment endpoint configured"))
		return
	}
	var req enrichRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode request"))
		return
	}

	rows, err := s.Collab.Enrich(r.Context(), req.Rows)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, enrichResponse{Rows: rows})
}

type saveProcessRequest struct {
	Rows []table.Row `json:"rows"`
}

func (s *Server) handleSaveProcess(w http.ResponseWriter, r *http.Request) {
	var req saveProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode request"))
		return
	}

	p, err := s.Store.Save(r.Context(), chi.URLParam(r, "name"), req.Rows)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleGetProcess(w http.ResponseWriter, r *http.Request) {
	p, err := s.Store.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleListProcesses(w http.ResponseWriter, r *http.Request) {
	list, err := s.Store.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleDeleteProcess(w http.ResponseWriter, r *http.Request) {
	if err := s.Store.Delete(r.Context(), chi.URLParam(r, "name")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && s.Logger != nil {
		s.Logger.Error("encode response", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	if s.Logger != nil {
		s.Logger.Warn("request failed", "err", err)
	}
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	s.writeJSON(w, statusFor(err), errorResponse{Error: errorBody{
		Code:    string(code),
		Message: errors.UserMessage(err),
	}})
}

// statusFor maps the error taxonomy onto HTTP statuses.
func statusFor(err error) int {
	switch errors.GetCode(err) {
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeParse:
		return http.StatusUnprocessableEntity
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidFormat,
		errors.ErrCodeEmptyInput, errors.ErrCodeDuplicateStep, errors.ErrCodeInvalidRow:
		return http.StatusBadRequest
	case errors.ErrCodeCollaborator, errors.ErrCodeNetwork:
		return http.StatusBadGateway
	case errors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
