package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	httpapi "tripmeet-backend/internal/api/http"
	"tripmeet-backend/internal/config"
	"tripmeet-backend/internal/jobs"
	"tripmeet-backend/internal/logger"
	"tripmeet-backend/internal/realtime"
	"tripmeet-backend/internal/repository/postgres"
	"tripmeet-backend/internal/scheduler"
	"tripmeet-backend/internal/security"
	"tripmeet-backend/internal/service"
	"tripmeet-backend/internal/storage"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting TripMeet backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress(), "public_base_url", cfg.Server.PublicBaseURL)
	logger.Info("Database configuration", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize Database
	logger.Debug("Connecting to database...", "connection_string", fmt.Sprintf("%s@%s:%d/%s", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database))
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Test database connection
	if err := db.PingContext(ctx); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	if cfg.Database.Migrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			logger.Error("Failed to apply schema", "error", err)
			log.Fatalf("Failed to apply schema: %v", err)
		}
		logger.Info("Database schema applied")
	}

	// Initialize Repositories
	store := postgres.NewStore(db)

	// Initialize Security
	tokenManager := security.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Audience)

	// Initialize Storage Service
	var storageService storage.StorageInterface
	switch cfg.Storage.Type {
	case "firebase":
		logger.Info("Using Firebase storage", "bucket", cfg.Storage.Bucket)
		fbStorage, err := storage.NewFirebaseStorageService(ctx, cfg.Storage.Bucket, cfg.Storage.CredentialsFile)
		if err != nil {
			logger.Error("Failed to initialize Firebase storage", "error", err)
			log.Fatalf("Failed to initialize Firebase storage: %v", err)
		}
		storageService = fbStorage
	default:
		logger.Info("Using local storage", "upload_dir", cfg.Storage.UploadDir, "base_url", cfg.Storage.BaseURL)
		localStorage, err := storage.NewLocalStorageService(cfg.Storage.BaseURL, cfg.Storage.UploadDir)
		if err != nil {
			logger.Error("Failed to initialize local storage", "error", err)
			log.Fatalf("Failed to initialize local storage: %v", err)
		}
		storageService = localStorage
	}

	// Initialize change-feed broker
	broker, err := newBroker(cfg.Realtime)
	if err != nil {
		logger.Error("Failed to initialize realtime broker", "broker", cfg.Realtime.Broker, "error", err)
		log.Fatalf("Failed to initialize realtime broker: %v", err)
	}
	defer broker.Close()

	// Initialize Email Service
	emailSvc := service.NewEmailService(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail, cfg.SendGrid.FromName, cfg.Server.PublicBaseURL)

	// Initialize Services
	maxUpload := cfg.MaxUploadBytes()
	profileSvc := service.NewProfileService(store.ProfileRepository, storageService, maxUpload)
	meetupSvc := service.NewMeetupService(store.MeetupRepository, broker)
	memberSvc := service.NewMembershipService(store.MeetupRepository, store.MembershipRepository, store.JoinRequestRepository, broker)
	chatSvc := service.NewChatService(store.MessageRepository, store.MeetupRepository, memberSvc, storageService, broker, maxUpload)
	activitySvc := service.NewActivityService(store.ActivityRepository, memberSvc, broker)
	noteSvc := service.NewNotificationService(store.NotificationRepository, broker)
	fanoutSvc := service.NewFanoutService(store.OutboxRepository, store.NotificationRepository, store.MeetupRepository,
		store.ProfileRepository, emailSvc, broker, cfg.Fanout.BatchSize, cfg.Fanout.MaxAttempts)

	// Realtime hub fed by the broker
	hub := realtime.NewHub(service.NewTopicAuthorizer(memberSvc), realtime.HubOptions{
		SendBuffer:   cfg.Realtime.SendBuffer,
		PingInterval: time.Duration(cfg.Realtime.PingSeconds) * time.Second,
		CheckOrigin:  originChecker(cfg),
	})
	go hub.Run(ctx)
	go func() {
		if err := broker.Subscribe(ctx, hub.Dispatch); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Realtime broker subscription ended", "error", err)
		}
	}()

	// Initialize HTTP handlers
	handlers := httpapi.Handlers{
		Profiles:      httpapi.NewProfileHandler(profileSvc, maxUpload),
		Meetups:       httpapi.NewMeetupHandler(meetupSvc),
		Memberships:   httpapi.NewMembershipHandler(memberSvc),
		Chat:          httpapi.NewChatHandler(chatSvc, maxUpload),
		Activities:    httpapi.NewActivityHandler(activitySvc),
		Notifications: httpapi.NewNotificationHandler(noteSvc),
		Realtime:      httpapi.NewRealtimeHandler(hub),
	}
	if cfg.Storage.Type != "firebase" {
		handlers.Files = httpapi.NewFileHandler(storageService)
	}
	router := httpapi.NewRouter(handlers, httpapi.NewAuthMiddleware(tokenManager, profileSvc))

	srv := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           httpapi.WithCORS(router, cfg.Server.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Embedded scheduler drains the notification outbox
	var cronScheduler *scheduler.Scheduler
	if cfg.Scheduler.Embedded {
		jobRunner := jobs.NewJobRunner(&jobs.Services{Fanout: fanoutSvc}, store.NotificationRepository, store.OutboxRepository, cfg)
		cronScheduler = scheduler.NewScheduler(jobRunner)
		cronScheduler.Start()
	}

	go func() {
		logger.Info("HTTP server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	// Graceful shutdown
	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownSeconds)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}
	if cronScheduler != nil {
		cronScheduler.Stop()
	}
	logger.Info("Server stopped. Goodbye!")
}

func newBroker(cfg config.RealtimeConfig) (realtime.Broker, error) {
	if cfg.Broker == "redis" {
		logger.Info("Using Redis realtime broker", "channel", cfg.Channel)
		return realtime.NewRedisBroker(cfg.RedisURL, cfg.Channel)
	}
	logger.Info("Using in-process realtime broker")
	return realtime.NewLocalBroker(), nil
}

// originChecker allows WebSocket upgrades from the configured CORS origins.
// A nil checker keeps the same-origin default.
func originChecker(cfg *config.Config) func(r *http.Request) bool {
	origins := cfg.Server.AllowedOrigins
	if cfg.Realtime.AllowAnyOrigin || slices.Contains(origins, "*") {
		return func(*http.Request) bool { return true }
	}
	if len(origins) == 0 {
		return nil
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(origins, origin)
	}
}
