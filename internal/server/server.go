package server

import (
	"log/slog"
	"net/http"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/handlers"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/session"
)

type Server struct {
	pipeline     *services.Pipeline
	mux          *http.ServeMux
	logger       *slog.Logger
	pageHandlers *handlers.PageHandlers
	apiHandlers  *handlers.APIHandlers
	sseHandlers  *handlers.SSEHandlers
}

func NewServer(pipeline *services.Pipeline, store *session.Store, cfg *config.Config, logger *slog.Logger) *Server {
	s := &Server{
		pipeline:     pipeline,
		mux:          http.NewServeMux(),
		logger:       logger,
		pageHandlers: handlers.NewPageHandlers(pipeline, store, cfg, logger),
		apiHandlers:  handlers.NewAPIHandlers(pipeline, store, cfg, logger),
		sseHandlers:  handlers.NewSSEHandlers(pipeline, store, cfg, logger),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// Dashboard routes
	s.mux.HandleFunc("GET /{$}", s.pageHandlers.HandleDashboard)
	s.mux.HandleFunc("POST /upload", s.pageHandlers.HandleUpload)
	s.mux.HandleFunc("GET /health", s.apiHandlers.HandleHealth)
	s.mux.HandleFunc("GET /admin/stats", s.apiHandlers.HandleStats)
	s.mux.HandleFunc("GET /", s.apiHandlers.HandleNotFound)

	// REST API endpoints
	s.mux.HandleFunc("POST /api/upload", s.apiHandlers.HandleUpload)
	s.mux.HandleFunc("GET /api/preview", s.apiHandlers.HandlePreview)
	s.mux.HandleFunc("GET /api/analysis", s.apiHandlers.HandleAnalysis)

	// Datastar SSE endpoints
	s.mux.HandleFunc("GET /sse/render", s.sseHandlers.HandleRender)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
