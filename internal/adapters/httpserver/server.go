package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shieldtech/linkshield/internal/core"
	"go.uber.org/zap"
)

// Analyzer is the slice of the analyze pipeline the transport needs
type Analyzer interface {
	Analyze(ctx context.Context, url string) (*core.Verdict, error)
}

// Server exposes the verdict endpoint protocol over HTTP: POST /analyze
// takes {"url": ...} and answers with a verdict body, GET /healthz reports
// liveness.
type Server struct {
	analyzer   Analyzer
	listenAddr string
	logger     *zap.Logger
	httpServer *http.Server
}

// NewServer creates a new verdict HTTP server
func NewServer(analyzer Analyzer, listenAddr string, logger *zap.Logger) *Server {
	return &Server{
		analyzer:   analyzer,
		listenAddr: listenAddr,
		logger:     logger,
	}
}

// analyzeRequest is the request body of POST /analyze
type analyzeRequest struct {
	URL string `json:"url"`
}

// errorResponse is the body of a non-2xx answer
type errorResponse struct {
	Detail string `json:"detail"`
}

// Routes builds the chi router for the server
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/healthz", s.handleHealthz)
	r.Post("/analyze", s.handleAnalyze)

	return r
}

// Start starts serving requests in the background
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:    s.listenAddr,
		Handler: s.Routes(),
	}

	go func() {
		s.logger.Info("Verdict server listening", zap.String("address", s.listenAddr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server failed", zap.Error(err))
		}
	}()

	return nil
}

// Stop shuts the server down gracefully
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "Request body must be JSON with a url field."})
		return
	}

	verdict, err := s.analyzer.Analyze(r.Context(), req.URL)
	if err != nil {
		if errors.Is(err, core.ErrUnsupportedScheme) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "Only http/https URLs are supported."})
			return
		}
		s.logger.Error("Analyze failed", zap.String("url", req.URL), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: "Internal error."})
		return
	}

	writeJSON(w, http.StatusOK, verdict)
}

// writeJSON writes a JSON response with the given status
func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// corsMiddleware allows the browser extension origin to call the API.
// Origins are left open; deployments front this with their own policy.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
