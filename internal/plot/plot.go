package plot

import (
	"log/slog"

	"fieldplot/internal/plot/handler"
	"fieldplot/internal/plot/service"
)

// Service exposes the plot lifecycle engine.
type Service = service.Service

// Handler wires HTTP endpoints to the plot service.
type Handler = handler.Handler

// NewHandler constructs an HTTP handler for the plot routes.
func NewHandler(s *Service, logger *slog.Logger) *Handler {
	return handler.New(s, logger)
}
