package api

import (
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"a2a-support-desk/internal/a2a"
)

func (s *Server) setupRoutes() {
	// Documentation
	s.app.Get("/docs", s.docsHandler)

	// Health check
	s.app.Get("/health", s.healthHandler)

	if s.metrics != nil {
		s.app.Get("/metrics", adaptor.HTTPHandler(s.metrics.Handler()))
	}

	// Protocol routes
	s.app.Get(a2a.CardPath, s.cardHandler)
	s.app.Post(a2a.TasksPath, s.createTaskHandler)
	s.app.Get(a2a.TasksPath, s.listTasksHandler)
	s.app.Get(a2a.TasksPath+"/:id", s.getTaskHandler)
	s.app.Put(a2a.TasksPath+"/:id", s.updateTaskHandler)
	s.app.Post(a2a.TasksPath+"/:id/messages", s.postMessageHandler)

	// Convenience routes
	s.app.Post("/api/query", s.queryHandler)
	s.app.Get("/agents", s.listAgentsHandler)
	s.app.Post("/agents", s.discoverAgentHandler)
}
