package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hmezouar/missionfrais/internal/models"
	"github.com/hmezouar/missionfrais/pkg/database"
	"go.uber.org/zap"
)

// ExpenseRepository handles expense database operations
type ExpenseRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewExpenseRepository creates a new expense repository
func NewExpenseRepository(db *database.DB, logger *zap.Logger) *ExpenseRepository {
	return &ExpenseRepository{
		db:     db,
		logger: logger,
	}
}

// ConfirmationAmounts is the amount stamp applied to every expense of a
// batch at confirmation.
type ConfirmationAmounts struct {
	SuggestedAmount float64
	Advance         float64
	AccountantFees  float64
}

const expenseColumns = `
	id, mission_id, category, amount, remark, status, batch_id, processed_date,
	suggested_amount, advance, accountant_fees, received_amount, created_at
`

// Create inserts a new expense
func (r *ExpenseRepository) Create(ctx context.Context, expense *models.Expense) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO expenses (id, mission_id, category, amount, remark, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		expense.ID,
		expense.MissionID,
		expense.Category,
		expense.Amount,
		expense.Remark,
		expense.Status,
		expense.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create expense", zap.Error(err))
		return fmt.Errorf("failed to create expense: %w", err)
	}
	return nil
}

// GetByID retrieves an expense by id. Returns ErrNotFound when absent.
func (r *ExpenseRepository) GetByID(ctx context.Context, id string) (*models.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE id = ?", id)
	return scanExpense(row)
}

// ListByMission returns the expenses of a mission, oldest first
func (r *ExpenseRepository) ListByMission(ctx context.Context, missionID string) ([]*models.Expense, error) {
	return r.list(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE mission_id = ? ORDER BY created_at", missionID)
}

// ListByStatus returns every expense with the given status, ordered by
// processed date then creation (oldest first)
func (r *ExpenseRepository) ListByStatus(ctx context.Context, status models.ExpenseStatus) ([]*models.Expense, error) {
	return r.list(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE status = ? ORDER BY processed_date, created_at", status)
}

// ListByBatch returns the expenses of a batch
func (r *ExpenseRepository) ListByBatch(ctx context.Context, batchID string) ([]*models.Expense, error) {
	return r.list(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE batch_id = ? ORDER BY created_at", batchID)
}

// ListByProcessedDay returns every expense whose processed date falls on
// the given ISO day ("2006-01-02"), across all missions
func (r *ExpenseRepository) ListByProcessedDay(ctx context.Context, day string) ([]*models.Expense, error) {
	return r.list(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE date(processed_date) = ? ORDER BY created_at", day)
}

// MarkProcessed transitions every unaccounted expense of the mission to
// Comptabilisé under the shared batch id and processed date. Returns the
// number of expenses batched; zero means there was nothing to batch.
func (r *ExpenseRepository) MarkProcessed(ctx context.Context, missionID, batchID string, processedDate time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE expenses
		SET status = ?, batch_id = ?, processed_date = ?
		WHERE mission_id = ? AND status = ?
	`, models.StatusAccounted, batchID, processedDate, missionID, models.StatusUnaccounted)
	if err != nil {
		r.logger.Error("Failed to batch expenses",
			zap.String("mission_id", missionID),
			zap.Error(err))
		return 0, fmt.Errorf("failed to batch expenses: %w", err)
	}
	return res.RowsAffected()
}

// ConfirmByDay moves every expense processed on the given ISO day to the
// new status and stamps the confirmation amounts onto each. Returns the
// number of expenses confirmed.
func (r *ExpenseRepository) ConfirmByDay(ctx context.Context, day string, status models.ExpenseStatus, amounts ConfirmationAmounts) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE expenses
		SET status = ?, suggested_amount = ?, advance = ?, accountant_fees = ?
		WHERE date(processed_date) = ? AND status = ?
	`, status, amounts.SuggestedAmount, amounts.Advance, amounts.AccountantFees,
		day, models.StatusAccounted)
	if err != nil {
		r.logger.Error("Failed to confirm batch", zap.String("day", day), zap.Error(err))
		return 0, fmt.Errorf("failed to confirm batch: %w", err)
	}
	return res.RowsAffected()
}

// UpdatePaymentReceived merges the received amount onto every expense of
// the batch. Returns ErrNotFound for an unknown batch.
func (r *ExpenseRepository) UpdatePaymentReceived(ctx context.Context, batchID string, received float64) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE expenses SET received_amount = ? WHERE batch_id = ?", received, batchID)
	if err != nil {
		r.logger.Error("Failed to update payment info", zap.String("batch_id", batchID), zap.Error(err))
		return fmt.Errorf("failed to update payment info: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("batch %s: %w", batchID, ErrNotFound)
	}
	return nil
}

// SetStatusByBatch moves every expense of the batch to the given status.
// Returns ErrNotFound for an unknown batch.
func (r *ExpenseRepository) SetStatusByBatch(ctx context.Context, batchID string, status models.ExpenseStatus) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE expenses SET status = ? WHERE batch_id = ?", status, batchID)
	if err != nil {
		r.logger.Error("Failed to update batch status", zap.String("batch_id", batchID), zap.Error(err))
		return fmt.Errorf("failed to update batch status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("batch %s: %w", batchID, ErrNotFound)
	}
	return nil
}

func (r *ExpenseRepository) list(ctx context.Context, query string, args ...any) ([]*models.Expense, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query expenses", zap.Error(err))
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*models.Expense
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, expense)
	}
	return expenses, rows.Err()
}

func scanExpense(row rowScanner) (*models.Expense, error) {
	var e models.Expense
	var batchID sql.NullString
	var processedDate sql.NullTime
	var suggested, advance, fees, received sql.NullFloat64

	err := row.Scan(
		&e.ID,
		&e.MissionID,
		&e.Category,
		&e.Amount,
		&e.Remark,
		&e.Status,
		&batchID,
		&processedDate,
		&suggested,
		&advance,
		&fees,
		&received,
		&e.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan expense: %w", err)
	}

	if batchID.Valid {
		e.BatchID = batchID.String
	}
	if processedDate.Valid {
		e.ProcessedDate = &processedDate.Time
	}
	if suggested.Valid || received.Valid {
		e.Payment = &models.PaymentInfo{
			SuggestedAmount: suggested.Float64,
			Advance:         advance.Float64,
			AccountantFees:  fees.Float64,
			ReceivedAmount:  received.Float64,
		}
	}

	return &e, nil
}
