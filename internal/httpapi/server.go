// Package httpapi exposes the analysis pipeline over HTTP and WebSocket.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/joelkehle/trendscout/internal/analysis"
	"github.com/joelkehle/trendscout/internal/progress"
)

const serviceName = "trendscout-analyzer"

const maxKeywordLen = 100

// Analyzer is the slice of the pipeline the transport needs.
type Analyzer interface {
	RunWithProgress(ctx context.Context, keyword string, comparison bool, fn analysis.ProgressFn) (analysis.AnalysisResult, error)
}

type Server struct {
	pipeline Analyzer
	registry *progress.Registry
	webDir   string
	now      func() time.Time
}

// NewServer wires the routes. webDir is optional; when set the frontend is
// served from it at the root path.
func NewServer(pipeline Analyzer, registry *progress.Registry, webDir string) http.Handler {
	if registry == nil {
		registry = progress.NewRegistry()
	}
	s := &Server{
		pipeline: pipeline,
		registry: registry,
		webDir:   webDir,
		now:      time.Now,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/analyze", s.handleAnalyze)
	mux.HandleFunc("/v1/analyze/", s.handleAnalyzePath)
	mux.HandleFunc("/v1/ws", s.handleWS)
	mux.HandleFunc("/v1/health", s.handleHealth)
	mux.HandleFunc("/v1/status", s.handleStatus)
	if webDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(webDir)))
	}
	return mux
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"ok": false, "error": message})
}

func methodOnly(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// validateKeyword trims and bounds a keyword for the HTTP surfaces.
func validateKeyword(raw string) (string, string) {
	keyword := strings.TrimSpace(raw)
	if keyword == "" {
		return "", "Keyword is required"
	}
	if len(keyword) > maxKeywordLen {
		return "", "Keyword is too long"
	}
	return keyword, ""
}

func parseComparison(r *http.Request) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(r.URL.Query().Get("cmp")))
	if err != nil {
		return false
	}
	return v
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodPost) {
		return
	}
	var req struct {
		Keyword    string `json:"keyword"`
		Comparison bool   `json:"comparison"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format")
		return
	}
	keyword, msg := validateKeyword(req.Keyword)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	res, err := s.pipeline.RunWithProgress(r.Context(), keyword, req.Comparison, nil)
	if err != nil {
		writeError(w, http.StatusBadGateway, "Analysis failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleAnalyzePath serves GET /v1/analyze/{keyword} and
// GET /v1/analyze/{keyword}/report.
func (s *Server) handleAnalyzePath(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/v1/analyze/")
	wantReport := false
	if strings.HasSuffix(path, "/report") {
		wantReport = true
		path = strings.TrimSuffix(path, "/report")
	}
	path = strings.TrimSuffix(path, "/")
	keyword, msg := validateKeyword(path)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	res, err := s.pipeline.RunWithProgress(r.Context(), keyword, parseComparison(r), nil)
	if err != nil {
		writeError(w, http.StatusBadGateway, "Analysis failed: "+err.Error())
		return
	}
	if !wantReport {
		writeJSON(w, http.StatusOK, res)
		return
	}
	html, err := analysis.RenderHTML(res)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Report rendering failed: "+err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(html))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"service":   serviceName,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !methodOnly(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"active_connections": s.registry.Count(),
		"timestamp":          s.now().UTC().Format(time.RFC3339),
		"status":             "running",
	})
}
