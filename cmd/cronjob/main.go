package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"

	"tripmeet-backend/internal/config"
	"tripmeet-backend/internal/jobs"
	"tripmeet-backend/internal/logger"
	"tripmeet-backend/internal/realtime"
	"tripmeet-backend/internal/repository/postgres"
	"tripmeet-backend/internal/scheduler"
	"tripmeet-backend/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'drain-outbox', 'purge-notifications', 'all')")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting TripMeet Cronjob Runner...", "log_level", cfg.Log.Level)

	// Initialize Database
	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port)
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Test database connection
	if err := db.Ping(); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	// Initialize Repositories
	store := postgres.NewStore(db)

	// Notification events reach API servers only through a shared broker
	var publisher service.Publisher
	if cfg.Realtime.Broker == "redis" {
		broker, err := realtime.NewRedisBroker(cfg.Realtime.RedisURL, cfg.Realtime.Channel)
		if err != nil {
			logger.Error("Failed to connect to Redis broker", "error", err)
			log.Fatalf("Failed to connect to Redis broker: %v", err)
		}
		defer broker.Close()
		publisher = broker
	} else {
		logger.Warn("No shared realtime broker configured; notifications will not be pushed live")
	}

	// Initialize Services
	emailService := service.NewEmailService(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail, cfg.SendGrid.FromName, cfg.Server.PublicBaseURL)
	fanoutService := service.NewFanoutService(store.OutboxRepository, store.NotificationRepository, store.MeetupRepository,
		store.ProfileRepository, emailService, publisher, cfg.Fanout.BatchSize, cfg.Fanout.MaxAttempts)

	jobServices := &jobs.Services{
		Fanout: fanoutService,
	}

	// Initialize Job Runner
	jobRunner := jobs.NewJobRunner(jobServices, store.NotificationRepository, store.OutboxRepository, cfg)

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		if err := jobRunner.Run(*runOnce); err != nil {
			logger.Error("Unknown job name", "job", *runOnce)
			fmt.Printf("Available jobs:\n")
			for _, name := range []string{jobs.JobDrainOutbox, jobs.JobPurgeNotifications, jobs.JobPurgeOutbox, jobs.JobAll} {
				fmt.Printf("  - %s\n", name)
			}
			os.Exit(1)
		}
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	// Initialize Scheduler
	cronScheduler := scheduler.NewScheduler(jobRunner)

	// Start scheduler
	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped. Goodbye!")
}
