package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/hmezouar/missionfrais/internal/ai"
	"github.com/hmezouar/missionfrais/internal/api"
	"github.com/hmezouar/missionfrais/internal/config"
	"github.com/hmezouar/missionfrais/internal/export"
	"github.com/hmezouar/missionfrais/internal/models"
	"github.com/hmezouar/missionfrais/internal/repository"
	"github.com/hmezouar/missionfrais/internal/service"
	"github.com/hmezouar/missionfrais/internal/worker"
	"github.com/hmezouar/missionfrais/internal/writeback"
	"github.com/hmezouar/missionfrais/pkg/database"
	"github.com/hmezouar/missionfrais/pkg/utils"
)

func main() {
	// Local overrides before viper reads the environment
	_ = gotenv.Load()

	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting missionfrais",
		zap.Int("port", cfg.Server.Port))

	if err := os.MkdirAll("data", 0755); err != nil {
		logger.Fatal("Failed to create data directory", zap.Error(err))
	}

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Repositories
	missionRepo := repository.NewMissionRepository(db, logger)
	expenseRepo := repository.NewExpenseRepository(db, logger)
	balanceRepo := repository.NewBalanceRepository(db, logger)

	// Services
	missionService := service.NewMissionService(missionRepo, expenseRepo, logger)
	expenseService := service.NewExpenseService(missionRepo, expenseRepo, logger)
	paymentService := service.NewPaymentService(expenseRepo, balanceRepo, logger)
	viewService := service.NewViewService(missionRepo, expenseRepo, balanceRepo, logger)

	// Categorization collaborator; optional, manual entry always works
	var categorizer *ai.Categorizer
	if cfg.OpenAI.APIKey != "" {
		categorizer = ai.NewCategorizer(
			cfg.OpenAI.APIKey,
			cfg.OpenAI.Model,
			cfg.OpenAI.Temperature,
			cfg.OpenAI.Timeout,
			logger,
		)
	} else {
		logger.Warn("OPENAI_API_KEY not set, receipt categorization disabled")
	}

	exporter := export.NewLedgerExporter(cfg.Ledger.CompanyName, logger)

	// Billed-mission edits coalesce before hitting storage
	billingEdit := writeback.NewQueue(cfg.Billing.WritebackQuiet,
		func(ctx context.Context, missionID string, billing models.Billing) error {
			return missionService.UpdateBilling(ctx, missionID, billing)
		}, logger)

	workers := worker.NewManager(logger)
	workers.Register(billingEdit)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := workers.StartAll(ctx); err != nil {
		logger.Fatal("Failed to start workers", zap.Error(err))
	}

	handlers := api.NewHandlers(
		missionService,
		expenseService,
		paymentService,
		viewService,
		categorizer,
		exporter,
		billingEdit,
		cfg.Ledger.OutputDir,
		logger,
	)

	server := api.NewServer(api.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, handlers, logger)

	// Serve until interrupted
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("Shutting down...")
		cancel()
		<-errCh
	case err := <-errCh:
		if err != nil {
			logger.Error("Server failed", zap.Error(err))
		}
	}

	workers.StopAll()
	logger.Info("Server exited")
}
