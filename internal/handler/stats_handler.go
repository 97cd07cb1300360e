package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-live-api/internal/service"
	"github.com/noah-isme/gema-live-api/internal/utils"
)

// StatsHandler wires the statistics endpoints.
type StatsHandler struct {
	service service.StatsService
	logger  zerolog.Logger
}

// NewStatsHandler creates a stats handler instance.
func NewStatsHandler(service service.StatsService, logger zerolog.Logger) *StatsHandler {
	return &StatsHandler{
		service: service,
		logger:  logger.With().Str("component", "stats_handler").Logger(),
	}
}

// RegisterStudent binds the student statistics route.
func (h *StatsHandler) RegisterStudent(router fiber.Router) {
	router.Get("/:id/stats", h.studentStats)
}

// RegisterRoom binds the room statistics route.
func (h *StatsHandler) RegisterRoom(router fiber.Router) {
	router.Get("/:id/stats", h.roomStats)
}

func (h *StatsHandler) studentStats(c *fiber.Ctx) error {
	stats, err := h.service.StudentStats(requestContext(c), c.Params("id"))
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "student stats", stats)
}

func (h *StatsHandler) roomStats(c *fiber.Ctx) error {
	window := time.Duration(0)
	if raw := c.Query("window"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid window duration")
		}
		window = parsed
	}

	stats, err := h.service.RoomStats(requestContext(c), c.Params("id"), window)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "room stats", stats)
}
