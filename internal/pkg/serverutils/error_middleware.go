package serverutils

import (
	"errors"

	"ai-orchestrator-be/internal/pipeline"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware converts pipeline errors escaping a handler into
// the JSON envelope, mapping each kind to a stable HTTP status. Framework
// errors keep their own status code.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).JSON(
				FailureResponse(string(pipeline.KindInvalidInput), fiberErr.Message))
		}

		kind := pipeline.KindOf(err)
		return ctx.Status(statusFor(kind)).JSON(FailureResponse(string(kind), pipeline.MessageOf(err)))
	}
}

func statusFor(kind pipeline.Kind) int {
	switch kind {
	case pipeline.KindInvalidInput:
		return fiber.StatusBadRequest
	case pipeline.KindInvalidState:
		return fiber.StatusConflict
	case pipeline.KindTimeout:
		return fiber.StatusGatewayTimeout
	case pipeline.KindNetwork, pipeline.KindAuth, pipeline.KindModel:
		return fiber.StatusBadGateway
	case pipeline.KindPersistence:
		return fiber.StatusInternalServerError
	default:
		return fiber.StatusInternalServerError
	}
}
