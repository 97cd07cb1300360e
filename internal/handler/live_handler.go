package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-live-api/internal/middleware"
	"github.com/noah-isme/gema-live-api/internal/service"
)

// LiveHandler wires the websocket upgrade for the live session channel.
type LiveHandler struct {
	service service.LiveService
	logger  zerolog.Logger
}

// NewLiveHandler creates a live handler instance.
func NewLiveHandler(service service.LiveService, logger zerolog.Logger) *LiveHandler {
	return &LiveHandler{
		service: service,
		logger:  logger.With().Str("component", "live_handler").Logger(),
	}
}

// Register binds the websocket route under the provided router group.
func (h *LiveHandler) Register(router fiber.Router) {
	router.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			ctx := c.UserContext()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx = middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
			c.Locals("request_ctx", ctx)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	router.Get("/ws", websocket.New(h.handleConnection))
}

func (h *LiveHandler) handleConnection(conn *websocket.Conn) {
	userID := websocketLocalString(conn, "user_id")
	if userID == "" {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(fiber.StatusUnauthorized, "user id missing"))
		_ = conn.Close()
		return
	}

	role := websocketLocalString(conn, "user_role")
	correlation := websocketLocalString(conn, "correlation_id")
	baseCtx, _ := conn.Locals("request_ctx").(context.Context)

	opts := service.ConnectionOptions{
		UserID:        userID,
		Role:          role,
		RoomID:        conn.Query("room_id"),
		CorrelationID: correlation,
		Context:       baseCtx,
	}

	h.logger.Info().Str("user_id", userID).Str("role", role).Msg("live websocket connected")
	h.service.ServeConnection(conn, opts)
	h.logger.Info().Str("user_id", userID).Msg("live websocket disconnected")
}

func websocketLocalString(conn *websocket.Conn, key string) string {
	if value := conn.Locals(key); value != nil {
		if str, ok := value.(string); ok {
			return str
		}
	}
	return ""
}
