package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	config "github.com/polaritylab/crosspost/configs"
	"github.com/polaritylab/crosspost/internal/api/handlers"
	"github.com/polaritylab/crosspost/internal/api/middleware"
	"github.com/polaritylab/crosspost/internal/database"
	job "github.com/polaritylab/crosspost/internal/jobs"
	"github.com/polaritylab/crosspost/internal/lock"
	"github.com/polaritylab/crosspost/internal/notify"
	"github.com/polaritylab/crosspost/internal/platforms"
	"github.com/polaritylab/crosspost/internal/queue"
	"github.com/polaritylab/crosspost/internal/repository"
	"github.com/polaritylab/crosspost/internal/service"
	"github.com/polaritylab/crosspost/pkg/utils"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()
	ctx := context.Background()

	cipher, err := utils.NewCipher(cfg.EncryptionKey)
	if err != nil {
		log.Fatalf("Invalid ENCRYPTION_KEY: %v", err)
	}

	db, err := database.Open(ctx, cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if cfg.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()

	var locker lock.Locker
	if cfg.RedisURI != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisURI})
		defer rdb.Close()
		locker = lock.NewRedis(rdb, cfg.HTTP.RefreshLockTTL())
	} else {
		locker = lock.NewMemory()
	}

	var notifier notify.Notifier
	if cfg.SlackToken != "" && cfg.SlackChannel != "" {
		notifier = notify.NewSlack(cfg.SlackToken, cfg.SlackChannel, "")
	} else {
		notifier = notify.NewLog()
	}

	r2Service, err := service.NewR2Service(ctx, cfg.R2)
	if err != nil {
		log.Fatalf("Failed to configure R2: %v", err)
	}

	httpClient := platforms.NewHTTPClient(cfg.HTTP.Timeout, cfg.HTTP.PlatformRPS, cfg.HTTP.PlatformBurst)
	registry := platforms.NewDefaultRegistry(httpClient, cfg.RedditUA)
	providers := service.NewOAuthProviders(*cfg)

	userRepo := repository.NewUserRepository(db)
	apiKeyRepo := repository.NewApiKeyRepository(db)
	postRepo := repository.NewPostRepository(db)
	postPlatformRepo := repository.NewPostPlatformRepository(db)
	connectionRepo := repository.NewConnectionRepository(db)
	mediaRepo := repository.NewMediaRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)

	authService := service.NewAuthService(*cfg, userRepo)
	userService := service.NewUserService(userRepo)
	apiKeyService := service.NewApiKeyService(apiKeyRepo)
	tokenService := service.NewTokenService(connectionRepo, cipher, providers, locker, httpClient)
	connectionService := service.NewConnectionService(*cfg, providers, connectionRepo, cipher, httpClient)
	postService := service.NewPostService(db, postRepo, postPlatformRepo, mediaRepo)
	mediaService := service.NewMediaService(mediaRepo, r2Service)
	publisherService := service.NewPublisherService(cfg.Publish, postRepo, postPlatformRepo, connectionRepo, mediaRepo, tokenService, registry)
	analyticsService := service.NewAnalyticsService(postPlatformRepo, analyticsRepo, tokenService, registry)

	publishJob := job.NewPublishJob(cfg.Publish, postRepo, publisherService, notifier)
	refreshTokenJob := job.NewTokenRefreshJob(tokenService)
	analyticsJob := job.NewAnalyticsJob(analyticsService)

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    100 * 1024 * 1024, // 100 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			slog.Error("request failed", "path", c.Path(), "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendURL,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	authMiddleware := middleware.NewAuthMiddleware(*cfg, apiKeyService)

	auth := handlers.NewAuthHandler(*cfg, authService)
	app.Get("/login", auth.Login)
	app.Get("/login/callback", auth.LoginCallbackHandler)
	app.Post("/logout", auth.Logout)

	platform := handlers.NewPlatformHandler(connectionService, *cfg)
	app.Get("/auth/:platform/callback", platform.Callback)

	cronHandler := handlers.NewCronHandler(publishJob, analyticsService)
	cronRoutes := app.Group("/api/cron", middleware.CronAuth(cfg.CronSecret))
	cronRoutes.Get("/publish", cronHandler.Publish)
	cronRoutes.Get("/analytics", cronHandler.Analytics)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	user := handlers.NewUserHandler(userService)
	api.Get("/user/info", user.GetUserInfo)
	api.Delete("/user", user.RemoveUser)

	apiKeys := handlers.NewApiKeyHandler(apiKeyService)
	api.Post("/api_key/new", apiKeys.CreateApiKey)
	api.Get("/api_key/list", apiKeys.ListKeys)
	api.Post("/api_key/remove", apiKeys.RemoveAPIKey)

	post := handlers.NewPostHandler(postService, publisherService, queue.NewEnqueuer(client))
	api.Post("/posts", post.CreatePost)
	api.Get("/posts", post.ListPosts)
	api.Get("/posts/stats", post.Stats)
	api.Get("/posts/:id", post.GetPost)
	api.Put("/posts/:id", post.UpdatePost)
	api.Delete("/posts/:id", post.RemovePost)
	api.Post("/posts/:id/publish", post.PublishPost)

	media := handlers.NewMediaHandler(mediaService)
	api.Post("/media", media.Upload)
	api.Get("/media", media.List)
	api.Delete("/media/:id", media.Remove)

	api.Get("/platforms", platform.ListConnections)
	api.Get("/platforms/:platform/connect", platform.Connect)
	api.Delete("/platforms/:id", platform.Disconnect)

	analytics := handlers.NewAnalyticsHandler(analyticsService)
	api.Get("/analytics", analytics.Overview)
	api.Post("/analytics/refresh", analytics.Refresh)

	c := cron.New()
	mustSchedule(c, cfg.Publish.Schedule, publishJob.PublishDuePosts)
	mustSchedule(c, cfg.Refresh, refreshTokenJob.RefreshTokens)
	mustSchedule(c, cfg.Analytics, analyticsJob.FetchAnalytics)
	c.Start()
	defer c.Stop()

	queueW := queue.NewQueue(postRepo, publishJob)
	server := asynq.NewServer(redisConn, asynq.Config{
		Concurrency: 10,
	})

	go func() {
		mux := asynq.NewServeMux()
		queueW.Register(mux)

		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Printf("Server is running on %s", cfg.AppURL)

	gracefulShutdown(app, server)
}

func mustSchedule(c *cron.Cron, spec string, fn func()) {
	if err := c.AddFunc(spec, fn); err != nil {
		log.Fatalf("Invalid cron schedule %q: %v", spec, err)
	}
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, server *asynq.Server) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Printf("Failed to shut down server: %v", err)
	}
	server.Shutdown()

	log.Println("Server shutdown complete.")
}
