package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/hmezouar/missionfrais/internal/service"
)

// LedgerExporter writes the billing ledger to an Excel workbook for the
// accountant.
type LedgerExporter struct {
	companyName string
	logger      *zap.Logger
}

// NewLedgerExporter creates a new ledger exporter
func NewLedgerExporter(companyName string, logger *zap.Logger) *LedgerExporter {
	return &LedgerExporter{
		companyName: companyName,
		logger:      logger,
	}
}

const ledgerSheet = "Facturation"

// Write renders the ledger to outputPath as an xlsx workbook
func (e *LedgerExporter) Write(ledger *service.Ledger, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(ledgerSheet)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to drop default sheet: %w", err)
	}

	e.setCell(f, "A1", e.companyName)
	e.setCell(f, "A2", "Registre de facturation")

	headers := []string{"Mission", "Ville", "Montant approuvé", "Avance", "Commission", "Total frais"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 4)
		e.setCell(f, cell, h)
	}

	row := 5
	for _, r := range ledger.Rows {
		values := []interface{}{r.Label, r.City, r.ApprovedAmount, r.Advance, r.Commission, r.ExpenseTotal}
		for i, v := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			e.setCell(f, cell, v)
		}
		row++
	}

	row++
	e.setCell(f, fmt.Sprintf("A%d", row), "Solde client (MAD)")
	e.setCell(f, fmt.Sprintf("C%d", row), ledger.ClientBalance)

	if err := f.SaveAs(outputPath); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}

	e.logger.Info("Billing ledger exported",
		zap.String("path", outputPath),
		zap.Int("rows", len(ledger.Rows)))
	return nil
}

func (e *LedgerExporter) setCell(f *excelize.File, cell string, value interface{}) {
	if err := f.SetCellValue(ledgerSheet, cell, value); err != nil {
		e.logger.Warn("Failed to set cell",
			zap.String("cell", cell),
			zap.Error(err))
	}
}
