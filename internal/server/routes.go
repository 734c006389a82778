package server

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.recoveryMiddleware)

	a := s.app

	// Operations (synchronous)
	r.Post("/reingress", a.OperationsHandler.ReingestHandler)
	r.Post("/chase", a.OperationsHandler.ChaseHandler)
	r.Post("/progress", a.OperationsHandler.ProgressHandler)

	// WebSocket route
	r.Get("/ws", a.WSHandler.HandleWebSocket)

	// MCP (Model Context Protocol) endpoints
	r.HandleFunc("/mcp", a.MCPHandler.HandleRPC)
	r.Get("/mcp/info", a.MCPHandler.InfoHandler)

	r.Route("/api", func(r chi.Router) {
		r.Get("/version", a.APIHandler.VersionHandler)
		r.Get("/health", a.APIHandler.HealthHandler)

		r.Get("/jobs", a.JobsHandler.ListHandler)
		r.Post("/jobs/{name}/enable", a.JobsHandler.EnableHandler)
		r.Post("/jobs/{name}/disable", a.JobsHandler.DisableHandler)
		r.Post("/jobs/{name}/trigger", a.JobsHandler.TriggerHandler)

		r.Get("/search", a.SearchHandler.SearchHandler)

		if a.FollowupsHandler != nil {
			r.Get("/followups/{issueKey}", a.FollowupsHandler.ListHandler)
			r.Post("/followups/{issueKey}/cancel", a.FollowupsHandler.CancelHandler)
		}

		r.Get("/progress/{component}", a.ProgressHandler.SummariesHandler)
		r.Get("/progress/{component}/report.pdf", a.ProgressHandler.ReportHandler)
	})

	r.NotFound(a.APIHandler.NotFoundHandler)

	return r
}
