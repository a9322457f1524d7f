// Command export-ledger writes the billing ledger to an Excel workbook
// without going through the HTTP server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/hmezouar/missionfrais/internal/config"
	"github.com/hmezouar/missionfrais/internal/export"
	"github.com/hmezouar/missionfrais/internal/repository"
	"github.com/hmezouar/missionfrais/internal/service"
	"github.com/hmezouar/missionfrais/pkg/database"
	"github.com/hmezouar/missionfrais/pkg/utils"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	outputPath := flag.String("out", "", "output file (defaults to <output_dir>/facturation_<date>.xlsx)")
	flag.Parse()

	_ = gotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: "stderr",
		Format:     "console",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	defer db.Close()

	missionRepo := repository.NewMissionRepository(db, logger)
	expenseRepo := repository.NewExpenseRepository(db, logger)
	balanceRepo := repository.NewBalanceRepository(db, logger)
	views := service.NewViewService(missionRepo, expenseRepo, balanceRepo, logger)

	ledger, err := views.BillingLedger(context.Background())
	if err != nil {
		logger.Fatal("Failed to build ledger", zap.Error(err))
	}

	out := *outputPath
	if out == "" {
		if err := os.MkdirAll(cfg.Ledger.OutputDir, 0755); err != nil {
			logger.Fatal("Failed to create output directory", zap.Error(err))
		}
		out = filepath.Join(cfg.Ledger.OutputDir,
			fmt.Sprintf("facturation_%s.xlsx", time.Now().Format("2006-01-02")))
	}

	exporter := export.NewLedgerExporter(cfg.Ledger.CompanyName, logger)
	if err := exporter.Write(ledger, out); err != nil {
		logger.Fatal("Failed to export ledger", zap.Error(err))
	}

	fmt.Println(out)
}
