package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-live-api/internal/config"
	"github.com/noah-isme/gema-live-api/internal/handler"
	"github.com/noah-isme/gema-live-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	RoomHandler       *handler.RoomHandler
	TestCaseHandler   *handler.TestCaseHandler
	SubmissionHandler *handler.SubmissionHandler
	StatsHandler      *handler.StatsHandler
	LiveHandler       *handler.LiveHandler
	JWTMiddleware     fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	app.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.RoomHandler != nil {
		rooms := api.Group("/rooms", jwtMiddleware)
		deps.RoomHandler.Register(rooms)

		if deps.TestCaseHandler != nil {
			testCases := rooms.Group("/:id/test-cases")
			deps.TestCaseHandler.Register(testCases)
		}

		if deps.StatsHandler != nil {
			deps.StatsHandler.RegisterRoom(rooms)
		}
	}

	if deps.SubmissionHandler != nil {
		submissions := api.Group("/submissions", jwtMiddleware)
		deps.SubmissionHandler.Register(submissions)
	}

	if deps.StatsHandler != nil {
		students := api.Group("/students", jwtMiddleware)
		deps.StatsHandler.RegisterStudent(students)
	}

	if deps.LiveHandler != nil {
		live := api.Group("/live", jwtMiddleware)
		deps.LiveHandler.Register(live)
	}
}
