package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-live-api/internal/dto"
	"github.com/noah-isme/gema-live-api/internal/service"
	"github.com/noah-isme/gema-live-api/internal/utils"
)

// TestCaseHandler wires test case endpoints under a room.
type TestCaseHandler struct {
	service   service.TestCaseService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewTestCaseHandler creates a test case handler instance.
func NewTestCaseHandler(service service.TestCaseService, validator *validator.Validate, logger zerolog.Logger) *TestCaseHandler {
	return &TestCaseHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "test_case_handler").Logger(),
	}
}

// Register binds test case routes under the provided room-scoped group.
func (h *TestCaseHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
	router.Post("/", h.upsert)
	router.Post("/:tcID/publish", h.publish)
}

func (h *TestCaseHandler) list(c *fiber.Ctx) error {
	testCases, err := h.service.List(requestContext(c), c.Params("id"))
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "test cases", testCases)
}

func (h *TestCaseHandler) upsert(c *fiber.Ctx) error {
	var payload dto.TestCaseUpsertRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	testCase, err := h.service.Upsert(requestContext(c), c.Params("id"), currentUserID(c), currentUserRole(c), payload)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "test case saved", testCase)
}

func (h *TestCaseHandler) publish(c *fiber.Ctx) error {
	var payload dto.TestCasePublishRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	testCase, err := h.service.Publish(requestContext(c), c.Params("id"), c.Params("tcID"), currentUserID(c), currentUserRole(c), payload)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "test case published", testCase)
}
