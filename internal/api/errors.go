package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"a2a-support-desk/internal/a2a"
)

// statusFor maps a protocol error to its HTTP status. Failures of another
// agent are checked first: a card that fails validation during discovery
// is the remote's fault, not the caller's.
func statusFor(err error) int {
	var ferr *fiber.Error
	switch {
	case errors.As(err, &ferr):
		return ferr.Code
	case errors.Is(err, a2a.ErrDiscovery), errors.Is(err, a2a.ErrRemote):
		return fiber.StatusBadGateway
	case errors.Is(err, a2a.ErrNotFound), errors.Is(err, a2a.ErrUnknownAgent):
		return fiber.StatusNotFound
	case errors.Is(err, a2a.ErrConflict):
		return fiber.StatusConflict
	case errors.Is(err, a2a.ErrValidation):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

// errorHandler writes every error as {"error": "..."}.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	code := statusFor(err)
	if code >= fiber.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("request_id", requestIDFrom(c)),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	}
	return c.Status(code).JSON(a2a.ErrorResponse{Error: err.Error()})
}
