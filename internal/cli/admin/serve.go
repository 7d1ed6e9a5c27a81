package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aspire-solutions/councilkb/internal/api/handlers"
	"github.com/aspire-solutions/councilkb/internal/config"
	"github.com/aspire-solutions/councilkb/internal/database"
	"github.com/aspire-solutions/councilkb/internal/jobs"
	"github.com/aspire-solutions/councilkb/internal/mail"
	"github.com/aspire-solutions/councilkb/internal/openai"
	"github.com/aspire-solutions/councilkb/internal/repository"
	"github.com/aspire-solutions/councilkb/internal/server"
	"github.com/aspire-solutions/councilkb/internal/service"
	"github.com/aspire-solutions/councilkb/internal/telemetry"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the tool-call API server",
		Long:  "Start the councilkb API server that answers knowledge queries and council requests from the voice agent",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	chunkRepo := repository.NewKnowledgeChunkRepository(pool)
	summaryRepo := repository.NewConversationSummaryRepository(pool)
	contactRepo := repository.NewContactRepository(pool)

	if !cfg.HasOpenAI() {
		return fmt.Errorf("OPENAI_API_KEY is required to serve queries")
	}
	aiClient := openai.NewClient(cfg.OpenAIAPIKey)

	resolver := service.NewTenantResolver(cfg.AssistantTenants)

	retrievalCfg := service.DefaultRetrievalConfig()
	retrievalCfg.TopK = cfg.SearchTopK
	retrievalSvc := service.NewRetrievalService(resolver, aiClient, chunkRepo, retrievalCfg)

	var memoryWorker *jobs.MemoryWorker
	if cfg.MemoryWrites {
		memorySvc := service.NewMemoryService(summaryRepo, aiClient, service.MemoryConfig{
			WritesEnabled: true,
			FailClosed:    cfg.MemoryFailClosed,
			MaxChars:      cfg.MemoryMaxChars,
		})
		memoryWorker = jobs.NewMemoryWorker(memorySvc, 128, 15*time.Second)
		go memoryWorker.Start(ctx)
		retrievalSvc = retrievalSvc.WithMemory(memorySvc).WithDispatcher(memoryWorker)
		log.Println("memory worker started")
	} else {
		// Reads still work against existing summaries when writes are off
		memorySvc := service.NewMemoryService(summaryRepo, aiClient, service.MemoryConfig{
			WritesEnabled: false,
			MaxChars:      cfg.MemoryMaxChars,
		})
		retrievalSvc = retrievalSvc.WithMemory(memorySvc)
	}

	var mailer service.Mailer
	if cfg.HasBrevo() {
		mailer = mail.NewBrevoClient(mail.BrevoConfig{
			APIKey:         cfg.BrevoAPIKey,
			SenderEmail:    cfg.SenderEmail,
			SenderName:     cfg.SenderName,
			RecipientEmail: cfg.RecipientEmail,
		})
		log.Println("brevo mailer configured")
	}
	contactSvc := service.NewContactService(contactRepo, mailer, nil)

	routerCfg := server.RouterConfig{
		WebhookSecret:  cfg.WebhookSecret,
		QueryHandler:   handlers.NewQueryHandler(retrievalSvc, cfg.RequestTimeout),
		ContactHandler: handlers.NewContactHandler(contactSvc),
	}

	router := server.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if memoryWorker != nil {
		memoryWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

func runMigrations(databaseURL string) error {
	// golang-migrate needs a database/sql connection
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	upErr := m.Up()
	if upErr != nil && upErr != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", upErr)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: no migrations applied")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if upErr == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
