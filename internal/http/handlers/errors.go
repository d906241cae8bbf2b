package handlers

import (
	"errors"

	"github.com/college-admin/backend/internal/http/dto"
	"github.com/college-admin/backend/internal/middleware"
	"github.com/college-admin/backend/internal/models"
	"github.com/college-admin/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrorHandler renders every error a handler returns as dto.ErrorResponse.
// Unexpected errors become a 500 and their text stays in the log.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		resp := dto.ErrorResponse{RequestID: middleware.GetRequestID(c)}
		status := fiber.StatusInternalServerError

		var (
			fe   *fiber.Error
			verr *dto.ValidationError
		)
		switch {
		case errors.As(err, &verr):
			status = fiber.StatusUnprocessableEntity
			resp.Error = "validation failed"
			resp.Fields = verr.Fields
		case errors.As(err, &fe):
			status = fe.Code
			resp.Error = fe.Message
		case errors.Is(err, models.ErrNotFound):
			status = fiber.StatusNotFound
			resp.Error = "not found"
		case errors.Is(err, services.ErrInvalidTransition):
			status = fiber.StatusConflict
			resp.Error = err.Error()
		case errors.Is(err, services.ErrInvalidInput):
			status = fiber.StatusUnprocessableEntity
			resp.Error = err.Error()
		default:
			resp.Error = "internal error"
		}

		if status >= fiber.StatusInternalServerError {
			log.Error("request failed",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("request_id", resp.RequestID),
				zap.Error(err),
			)
		}
		return c.Status(status).JSON(resp)
	}
}

// bind parses the body into req and runs its validate tags.
func bind(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	return dto.Validate(req)
}

func paramID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}
