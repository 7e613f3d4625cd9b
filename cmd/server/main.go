package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	config "github.com/reelflow/reelflow/configs"
	"github.com/reelflow/reelflow/internal/api/handlers"
	"github.com/reelflow/reelflow/internal/api/middleware"
	job "github.com/reelflow/reelflow/internal/jobs"
	"github.com/reelflow/reelflow/internal/queue"
	"github.com/reelflow/reelflow/internal/repository"
	"github.com/reelflow/reelflow/internal/service"
	"github.com/reelflow/reelflow/pkg/ratelimit"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    200 * 1024 * 1024, // 200 MB, reels run large
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	userRepo := repository.NewUserRepository(db)
	socialAccountRepo := repository.NewSocialAccountRepository(db)
	slotRepo := repository.NewSlotRepository(db)
	videoRepo := repository.NewVideoRepository(db)
	queuedPostRepo := repository.NewQueuedPostRepository(db)
	apiKeyRepo := repository.NewApiKeyRepository(db)

	authService := service.NewAuthService(*cfg, userRepo)
	userService := service.NewUserService(userRepo)
	storageService := service.NewStorageService(*cfg)
	captionService := service.NewCaptionService(*cfg)
	instagramService := service.NewInstagramService(*cfg, socialAccountRepo)
	accountService := service.NewAccountService(socialAccountRepo, queuedPostRepo)
	slotService := service.NewSlotService(slotRepo, socialAccountRepo)
	videoService := service.NewVideoService(videoRepo, storageService)
	assignerService := service.NewAssignerService(slotRepo, queuedPostRepo, videoRepo, socialAccountRepo, captionService)
	queueService := service.NewQueueService(queuedPostRepo)
	apiKeyService := service.NewApiKeyService(apiKeyRepo)

	authMiddleware := middleware.NewAuthMiddleware(*cfg, apiKeyService)
	publishLimiter := ratelimit.New(time.Minute, 1000)

	auth := handlers.NewAuthHandler(*cfg, authService)
	app.Get("/login", auth.Login)
	app.Get("/login/callback", auth.LoginCallbackHandler)

	account := handlers.NewAccountHandler(accountService, instagramService, *cfg)
	app.Get("/auth/instagram/callback", account.CallbackHandler)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	api.Get("/accounts/connect", account.ConnectInstagram)
	api.Get("/accounts", account.ListSocialAccounts)
	api.Post("/accounts/remove", account.DisconnectAccount)

	user := handlers.NewUserHandler(userService)
	api.Get("/user/info", user.GetUserInfo)
	api.Post("/user/remove", user.RemoveUser)

	apiKeys := handlers.NewApiKeyHandler(apiKeyService)
	api.Post("/api_key/new", apiKeys.CreateApiKey)
	api.Get("/api_key/list", apiKeys.ListKeys)
	api.Post("/api_key/remove", apiKeys.RemoveAPIKey)

	slot := handlers.NewSlotHandler(slotService)
	api.Post("/slots/create", slot.CreateSlot)
	api.Get("/slots", slot.ListSlots)
	api.Post("/slots/update", slot.UpdateSlot)
	api.Post("/slots/remove", slot.RemoveSlot)
	api.Post("/slots/preset", slot.ApplyPreset)

	video := handlers.NewVideoHandler(videoService)
	api.Post("/videos/upload", video.UploadVideo)
	api.Get("/videos", video.ListVideos)

	queueH := handlers.NewQueueHandler(queueService, assignerService, publishLimiter, client)
	api.Post("/queue/assign", queueH.AssignVideo)
	api.Get("/queue", queueH.ListQueue)
	api.Get("/queue/preview", queueH.PreviewSlots)
	api.Post("/queue/reorder", queueH.ReorderQueue)
	api.Post("/queue/cancel", queueH.CancelPost)
	api.Post("/queue/edit", queueH.EditPost)
	api.Get("/queue/stats", queueH.QueueStats)
	api.Post("/queue/publish_now", queueH.PublishNow)

	// recurring jobs
	publishRunner := job.NewPublishCycleRunner(*cfg, queuedPostRepo, socialAccountRepo, videoRepo, instagramService, storageService)
	refreshTokenJob := job.NewTokenRefreshJob(*cfg, socialAccountRepo, instagramService)

	scheduler := job.NewScheduler(publishRunner, refreshTokenJob)
	if err := scheduler.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	// queue worker for immediate publishes
	queueW := queue.NewQueue(queuedPostRepo, publishRunner)

	go func() {
		server := asynq.NewServer(redisConn, asynq.Config{
			Concurrency: 10,
		})

		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypePublishPost, queueW.HandlePublishPostTask)

		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(":3000"); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Println("Server is running on http://localhost:3000")

	gracefulShutdown(app, db, scheduler)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, db *sql.DB, scheduler *job.Scheduler) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	scheduler.Stop()

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	closeDB(db)
	log.Println("Server shutdown complete.")
}
