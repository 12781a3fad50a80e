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
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/ksicht/ksicht-api/internal/blob"
	s3store "github.com/ksicht/ksicht-api/internal/blob/s3"
	"github.com/ksicht/ksicht-api/internal/config"
	"github.com/ksicht/ksicht-api/internal/database"
	"github.com/ksicht/ksicht-api/internal/handler"
	"github.com/ksicht/ksicht-api/internal/middleware"
	"github.com/ksicht/ksicht-api/internal/repository"
	"github.com/ksicht/ksicht-api/internal/router"
	"github.com/ksicht/ksicht-api/internal/service"
	cloud "github.com/ksicht/ksicht-api/pkg/cloudinary"
	"github.com/ksicht/ksicht-api/pkg/renderer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()
	ctx := context.Background()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	if redisClient == nil {
		logger.Warn().Msg("redis url not configured, ranking cache disabled")
	} else {
		defer redisClient.Close()
	}

	store, err := openBlobStore(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to open blob store: %v", err)
	}

	var render service.Renderer
	if cfg.NATSURL != "" {
		conn, err := nats.Connect(cfg.NATSURL, nats.Name(cfg.AppName))
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer conn.Drain()
		render = renderer.New(conn, cfg.RendererSubject, cfg.RendererTimeout, logger)
	} else {
		logger.Warn().Msg("nats url not configured, submission export disabled")
	}

	var brochures service.BrochureUploader
	uploader, err := cloud.New(cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("cloudinary not configured, brochure upload disabled")
	} else {
		brochures = uploader
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	gradeRepo := repository.NewGradeRepository(db)
	seriesRepo := repository.NewSeriesRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	participantRepo := repository.NewParticipantRepository(db)
	applicationRepo := repository.NewApplicationRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	stickerRepo := repository.NewStickerRepository(db)
	eventRepo := repository.NewEventRepository(db)
	pageRepo := repository.NewPageRepository(db)
	teamRepo := repository.NewTeamMemberRepository(db)
	attachmentRepo := repository.NewSeriesAttachmentRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	activityService := service.NewActivityService(activityRepo, logger)
	rankingService := service.NewRankingService(seriesRepo, taskRepo, applicationRepo, submissionRepo, redisClient, cfg.RankingCacheTTL, logger)
	gradeService := service.NewGradeService(gradeRepo, seriesRepo, validate, activityService, logger)
	seriesService := service.NewSeriesService(service.SeriesServiceConfig{
		Series:      seriesRepo,
		Tasks:       taskRepo,
		Submissions: submissionRepo,
		Attachments: attachmentRepo,
		Store:       store,
		Brochures:   brochures,
		Rankings:    rankingService,
		Activity:    activityService,
		Validator:   validate,
		MaxUpload:   cfg.UploadMaxBytes,
	}, logger)
	submissionService := service.NewSubmissionService(service.SubmissionServiceConfig{
		Submissions:  submissionRepo,
		Tasks:        taskRepo,
		Series:       seriesRepo,
		Applications: applicationRepo,
		Stickers:     stickerRepo,
		Store:        store,
		Rankings:     rankingService,
		Activity:     activityService,
		Validator:    validate,
		MaxUpload:    cfg.UploadMaxBytes,
	}, logger)
	exportService := service.NewExportService(submissionRepo, store, render, activityService, logger)
	participantService := service.NewParticipantService(participantRepo, applicationRepo, gradeRepo, rankingService, validate, activityService, logger)
	eventService := service.NewEventService(eventRepo, participantRepo, validate, activityService, logger)
	pageService := service.NewPageService(pageRepo, logger)
	teamService := service.NewTeamService(teamRepo, validate, activityService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    int(cfg.UploadMaxBytes) + 1<<20,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AllowOrigins: cfg.AllowOrigins})
	router.Register(app, cfg, router.Dependencies{
		GradeHandler:       handler.NewGradeHandler(gradeService, seriesService, logger),
		SeriesHandler:      handler.NewSeriesHandler(seriesService, logger),
		RankingHandler:     handler.NewRankingHandler(rankingService, logger),
		SubmissionHandler:  handler.NewSubmissionHandler(submissionService, exportService, validate, logger),
		ParticipantHandler: handler.NewParticipantHandler(participantService, logger),
		EventHandler:       handler.NewEventHandler(eventService, logger),
		PageHandler:        handler.NewPageHandler(pageService, logger),
		ActivityHandler:    handler.NewActivityHandler(activityService, logger),
		TeamHandler:        handler.NewTeamHandler(teamService, logger),
		DependencyChecks:   dependencyChecks(db, redisClient),
		JWTMiddleware:      middleware.JWTOptional(cfg.JWTSecret),
		UploadLimiter:      middleware.RateLimit("uploads", cfg.UploadsPerMinute, time.Minute),
		ExposeMetrics:      true,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func openBlobStore(ctx context.Context, cfg config.Config) (blob.Store, error) {
	if cfg.BlobDriver == string(blob.DriverS3) {
		return s3store.New(ctx, s3store.Config{
			Region:          cfg.S3Region,
			Bucket:          cfg.S3Bucket,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			PathStyle:       cfg.S3PathStyle,
		})
	}
	return blob.NewMemoryStore(), nil
}

func dependencyChecks(db *gorm.DB, redisClient *redis.Client) map[string]handler.DependencyCheck {
	checks := map[string]handler.DependencyCheck{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	return checks
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
