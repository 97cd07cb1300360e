package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-live-api/internal/judge"
	"github.com/noah-isme/gema-live-api/internal/middleware"
	"github.com/noah-isme/gema-live-api/internal/service"
	"github.com/noah-isme/gema-live-api/internal/utils"
)

func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
}

func currentUserID(c *fiber.Ctx) string {
	if value := c.Locals("user_id"); value != nil {
		switch v := value.(type) {
		case string:
			return strings.TrimSpace(v)
		default:
			return strings.TrimSpace(fmt.Sprint(v))
		}
	}
	return ""
}

func currentUserRole(c *fiber.Ctx) string {
	if value := c.Locals("user_role"); value != nil {
		if role, ok := value.(string); ok {
			return strings.ToUpper(strings.TrimSpace(role))
		}
	}
	return ""
}

// sendServiceError translates service-layer failures into HTTP responses.
// Validation problems name the offending field; judge failures distinguish
// timeout from unavailability.
func sendServiceError(c *fiber.Ctx, err error) error {
	var validationErrs validator.ValidationErrors
	switch {
	case errors.As(err, &validationErrs):
		return utils.SendError(c, fiber.StatusBadRequest, validationMessage(validationErrs))
	case errors.Is(err, service.ErrRoomNotFound), errors.Is(err, service.ErrTestCaseNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNotRoomTeacher):
		return utils.SendError(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, judge.ErrJudgeTimeout):
		return utils.SendError(c, fiber.StatusGatewayTimeout, "judging did not finish in time")
	case errors.Is(err, judge.ErrJudgeUnavailable):
		return utils.SendError(c, fiber.StatusBadGateway, "judging service failed")
	default:
		return utils.SendError(c, fiber.StatusInternalServerError, err.Error())
	}
}

func validationMessage(errs validator.ValidationErrors) string {
	if len(errs) == 0 {
		return "invalid request"
	}
	first := errs[0]
	return fmt.Sprintf("invalid field %s (%s)", strings.ToLower(first.Field()), first.Tag())
}
