package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"clinicalnotes/cmd/internal/config"
	"clinicalnotes/cmd/internal/domain/database"
	"clinicalnotes/cmd/internal/domain/database/repository"
	"clinicalnotes/cmd/internal/http/handler"
	"clinicalnotes/cmd/internal/infrastructure/aws/queue"
	"clinicalnotes/cmd/internal/infrastructure/filestorage"
	"clinicalnotes/cmd/internal/infrastructure/transcription"
	"clinicalnotes/cmd/internal/service"
	"clinicalnotes/cmd/internal/service/jobs"
	"clinicalnotes/cmd/internal/utils/validators"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
)

const shutdownTimeout = 30 * time.Second

// dispatcher is what main needs from a transcription dispatcher on top of enqueueing.
type dispatcher interface {
	service.TranscriptionDispatcher
	Stop(ctx context.Context) error
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	validate := validator.New()
	validators.Register(validate)

	// Loads env vars depending on environment
	if err := config.LoadEnv(ctx); err != nil {
		log.Fatalf("Failed to load environment: %v", err)
	}

	settings := config.New()
	cfg := config.Load(settings)
	log.SetLevel(logLevel(cfg.LogLevel))

	db, err := database.Init(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	storage, err := filestorage.NewRouter(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to initialize file storage: %v", err)
	}

	providers := transcription.NewRegistry(
		transcription.NewWhisperASRProvider(cfg.Transcription.WhisperAPIURL, cfg.Transcription.Timeout),
		transcription.NewOpenAIProvider(cfg.Transcription.OpenAIBaseURL, cfg.Transcription.OpenAIAPIKey, cfg.Transcription.OpenAIModel, cfg.Transcription.Timeout),
	)

	// Repositories
	userRepo := repository.NewUserRepository(db)
	patientRepo := repository.NewPatientRepository(db)
	noteRepo := repository.NewNoteRepository(db)
	transcriptionRepo := repository.NewTranscriptionRepository(db)

	// Services
	transcriptionService := service.NewTranscriptionService(transcriptionRepo, providers, settings)
	jobDispatcher := newDispatcher(ctx, cfg, transcriptionService, storage)

	userService := service.NewUserService(userRepo, validate)
	patientService := service.NewPatientService(patientRepo, validate)
	noteService := service.NewNoteService(noteRepo, patientRepo, userRepo, storage, transcriptionService, jobDispatcher, validate)

	if cfg.SeedDemo {
		if err = service.NewDemoSeeder(userRepo, patientRepo).Seed(); err != nil {
			log.Fatalf("Failed to seed demo data: %v", err)
		}
	}

	// Routes
	noteRoutes := handler.NewNoteDefault(noteService)
	patientRoutes := handler.NewPatientDefault(patientService)
	userRoutes := handler.NewUserDefault(userService)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())
	e.Use(middleware.CORS())
	e.Use(middleware.BodyLimit("60M"))
	handler.Register(e, noteRoutes, patientRoutes, userRoutes)

	go func() {
		if err := e.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server stopped: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err = e.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Failed to shut down HTTP server: %v", err)
	}

	if err = jobDispatcher.Stop(shutdownCtx); err != nil {
		log.Errorf("Failed to drain transcription jobs: %v", err)
	}
}

// newDispatcher builds the transcription dispatcher for the configured mode.
// In sqs mode the consumer runs in this process until ctx is cancelled.
func newDispatcher(ctx context.Context, cfg *config.Config, transcriber jobs.Transcriber, storage *filestorage.Router) dispatcher {
	switch cfg.Dispatch.Mode {
	case config.DispatchSQS:
		client, err := queue.NewClient(ctx, cfg.Dispatch.SQSRegion, cfg.Dispatch.SQSQueueURL)
		if err != nil {
			log.Fatalf("Failed to initialize SQS client: %v", err)
		}

		consumer := jobs.NewQueueConsumer(client, transcriber, storage, cfg.Transcription.Timeout)
		go consumer.Start(ctx)
		return jobs.NewSQSDispatcher(client)

	case config.DispatchMemory:
		pool := jobs.NewWorkerPool(transcriber, storage, cfg.Dispatch.Workers, cfg.Dispatch.QueueSize, cfg.Transcription.Timeout)
		pool.Start()
		return pool

	default:
		log.Fatalf("Unknown transcription dispatch mode %q", cfg.Dispatch.Mode)
		return nil
	}
}

func logLevel(level string) log.Lvl {
	switch strings.ToLower(level) {
	case "debug":
		return log.DEBUG
	case "warn":
		return log.WARN
	case "error":
		return log.ERROR
	case "off":
		return log.OFF
	default:
		return log.INFO
	}
}
