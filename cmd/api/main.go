package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-live-api/internal/cache"
	"github.com/noah-isme/gema-live-api/internal/config"
	"github.com/noah-isme/gema-live-api/internal/database"
	"github.com/noah-isme/gema-live-api/internal/handler"
	"github.com/noah-isme/gema-live-api/internal/judge"
	"github.com/noah-isme/gema-live-api/internal/middleware"
	"github.com/noah-isme/gema-live-api/internal/models"
	"github.com/noah-isme/gema-live-api/internal/repository"
	"github.com/noah-isme/gema-live-api/internal/router"
	"github.com/noah-isme/gema-live-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.Room{}, &models.TestCase{}, &models.Submission{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	// The cache is advisory: a missing Redis degrades every cached read to a
	// pass-through, it never stops the service.
	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, running without cache")
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	store := cache.NewStore(redisClient, logger)

	roomRepo := repository.NewRoomRepository(db)
	testCaseRepo := repository.NewTestCaseRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)

	judgeClient := judge.NewClient(judge.Config{
		BaseURL:      cfg.JudgeURL,
		APIKey:       cfg.JudgeAPIKey,
		PollInterval: cfg.JudgePollInterval,
		MaxAttempts:  cfg.JudgeMaxAttempts,
	}, nil, logger)

	liveService := service.NewLiveService(roomRepo, submissionRepo, logger)
	roomService := service.NewRoomService(roomRepo, validate, logger)
	testCaseService := service.NewTestCaseService(testCaseRepo, roomRepo, store, liveService, validate, logger, cfg.TestCaseCacheTTL)
	submissionService := service.NewSubmissionService(submissionRepo, testCaseRepo, judgeClient, store, liveService, validate, logger, cfg.TestCaseCacheTTL)
	statsService := service.NewStatsService(submissionRepo, testCaseRepo, logger, cfg.ActiveWindow)

	roomHandler := handler.NewRoomHandler(roomService, validate, logger)
	testCaseHandler := handler.NewTestCaseHandler(testCaseService, validate, logger)
	submissionHandler := handler.NewSubmissionHandler(submissionService, validate, logger)
	statsHandler := handler.NewStatsHandler(statsService, logger)
	liveHandler := handler.NewLiveHandler(liveService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		RoomHandler:       roomHandler,
		TestCaseHandler:   testCaseHandler,
		SubmissionHandler: submissionHandler,
		StatsHandler:      statsHandler,
		LiveHandler:       liveHandler,
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
