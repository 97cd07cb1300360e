package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-live-api/internal/dto"
	"github.com/noah-isme/gema-live-api/internal/service"
	"github.com/noah-isme/gema-live-api/internal/utils"
)

// RoomHandler wires the room endpoints.
type RoomHandler struct {
	service   service.RoomService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewRoomHandler creates a room handler instance.
func NewRoomHandler(service service.RoomService, validator *validator.Validate, logger zerolog.Logger) *RoomHandler {
	return &RoomHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "room_handler").Logger(),
	}
}

// Register binds room routes under the provided router group.
func (h *RoomHandler) Register(router fiber.Router) {
	router.Post("/", h.create)
	router.Get("/:id", h.get)
}

func (h *RoomHandler) create(c *fiber.Ctx) error {
	var payload dto.RoomCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	room, err := h.service.Create(requestContext(c), currentUserID(c), currentUserRole(c), payload)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "room created", room)
}

func (h *RoomHandler) get(c *fiber.Ctx) error {
	room, err := h.service.Get(requestContext(c), c.Params("id"))
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "room", room)
}
