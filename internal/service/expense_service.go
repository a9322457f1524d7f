package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hmezouar/missionfrais/internal/models"
	"github.com/hmezouar/missionfrais/internal/repository"
	"github.com/hmezouar/missionfrais/internal/workflow"
	"github.com/hmezouar/missionfrais/pkg/utils"
)

// AddExpenseInput carries the fields of a new expense
type AddExpenseInput struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
	Remark   string  `json:"remark"`
}

// BatchResult reports the outcome of batching a mission's expenses
type BatchResult struct {
	BatchID       string    `json:"batch_id,omitempty"`
	ProcessedDate time.Time `json:"processed_date,omitempty"`
	Count         int64     `json:"count"`
}

// ExpenseService manages expense capture and the accounting lifecycle
type ExpenseService interface {
	AddExpense(ctx context.Context, missionID string, input AddExpenseInput) (*models.Expense, error)
	ProcessMissionExpenses(ctx context.Context, missionID string) (*BatchResult, error)
	ConfirmBatchesByDay(ctx context.Context, day string, status models.ExpenseStatus, amounts repository.ConfirmationAmounts) (int64, error)
	UpdatePaymentInfo(ctx context.Context, batchID string, receivedAmount float64) error
	MarkBatchPaid(ctx context.Context, batchID string) error
}

type expenseService struct {
	missions MissionStore
	expenses ExpenseStore
	logger   *zap.Logger
}

// NewExpenseService creates a new ExpenseService
func NewExpenseService(missions MissionStore, expenses ExpenseStore, logger *zap.Logger) ExpenseService {
	return &expenseService{
		missions: missions,
		expenses: expenses,
		logger:   logger,
	}
}

// AddExpense validates and appends an expense to a mission with status
// Sans compte
func (s *expenseService) AddExpense(ctx context.Context, missionID string, input AddExpenseInput) (*models.Expense, error) {
	if err := utils.ValidateAmount(input.Amount); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if input.Category == "" {
		return nil, fmt.Errorf("%w: category is required", ErrValidation)
	}

	// The mission must exist; a dangling expense is a bug, not a no-op
	if _, err := s.missions.GetByID(ctx, missionID); err != nil {
		return nil, err
	}

	expense := &models.Expense{
		ID:        uuid.NewString(),
		MissionID: missionID,
		Category:  utils.SanitizeString(input.Category),
		Amount:    input.Amount,
		Remark:    utils.SanitizeString(input.Remark),
		Status:    models.StatusUnaccounted,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.expenses.Create(ctx, expense); err != nil {
		return nil, err
	}

	s.logger.Info("Expense added",
		zap.String("expense_id", expense.ID),
		zap.String("mission_id", missionID),
		zap.Float64("amount", expense.Amount))
	return expense, nil
}

// ProcessMissionExpenses batches every Sans compte expense of the mission
// under a fresh shared batch id and processed date. With nothing to
// batch it reports Count 0 and allocates no batch id, so calling it twice
// in a row is harmless.
func (s *expenseService) ProcessMissionExpenses(ctx context.Context, missionID string) (*BatchResult, error) {
	if _, err := s.missions.GetByID(ctx, missionID); err != nil {
		return nil, err
	}

	batchID := uuid.NewString()
	processedDate := time.Now().UTC()

	count, err := s.expenses.MarkProcessed(ctx, missionID, batchID, processedDate)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		s.logger.Info("No unaccounted expenses to batch", zap.String("mission_id", missionID))
		return &BatchResult{Count: 0}, nil
	}

	s.logger.Info("Expenses batched",
		zap.String("mission_id", missionID),
		zap.String("batch_id", batchID),
		zap.Int64("count", count))
	return &BatchResult{
		BatchID:       batchID,
		ProcessedDate: processedDate,
		Count:         count,
	}, nil
}

// ConfirmBatchesByDay moves every expense processed on the given ISO day
// to the new status and stamps the confirmation amounts onto each. The
// target status must follow Comptabilisé in the lifecycle.
func (s *expenseService) ConfirmBatchesByDay(ctx context.Context, day string, status models.ExpenseStatus, amounts repository.ConfirmationAmounts) (int64, error) {
	if _, err := time.Parse("2006-01-02", day); err != nil {
		return 0, fmt.Errorf("%w: invalid day %q", ErrValidation, day)
	}
	if !workflow.CanTransition(workflow.StateAccounted, workflow.State(status)) {
		return 0, fmt.Errorf("%w: %s -> %s", workflow.ErrInvalidTransition, models.StatusAccounted, status)
	}
	if amounts.SuggestedAmount < 0 || amounts.Advance < 0 || amounts.AccountantFees < 0 {
		return 0, fmt.Errorf("%w: confirmation amounts must not be negative", ErrValidation)
	}

	count, err := s.expenses.ConfirmByDay(ctx, day, status, amounts)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, fmt.Errorf("no accounted expenses on %s: %w", day, repository.ErrNotFound)
	}

	s.logger.Info("Batch confirmed",
		zap.String("day", day),
		zap.Int64("count", count),
		zap.Float64("net_payable", amounts.SuggestedAmount-amounts.Advance-amounts.AccountantFees))
	return count, nil
}

// UpdatePaymentInfo merges the received amount onto every expense of the
// batch, settling the batch once the received amount covers its net
// payable
func (s *expenseService) UpdatePaymentInfo(ctx context.Context, batchID string, receivedAmount float64) error {
	if receivedAmount < 0 {
		return fmt.Errorf("%w: received amount must not be negative", ErrValidation)
	}
	if err := s.expenses.UpdatePaymentReceived(ctx, batchID, receivedAmount); err != nil {
		return err
	}

	expenses, err := s.expenses.ListByBatch(ctx, batchID)
	if err != nil {
		return err
	}

	// Every expense of the batch carries the same stamp
	settled := false
	if len(expenses) > 0 {
		e := expenses[0]
		if e.Payment != nil &&
			e.Payment.ReceivedAmount >= e.Payment.NetPayable() &&
			workflow.CanTransition(workflow.State(e.Status), workflow.StatePaid) {
			if err := s.expenses.SetStatusByBatch(ctx, batchID, models.StatusPaid); err != nil {
				return err
			}
			settled = true
		}
	}

	s.logger.Info("Payment info updated",
		zap.String("batch_id", batchID),
		zap.Float64("received", receivedAmount),
		zap.Bool("settled", settled))
	return nil
}

// MarkBatchPaid settles a confirmed batch
func (s *expenseService) MarkBatchPaid(ctx context.Context, batchID string) error {
	expenses, err := s.expenses.ListByBatch(ctx, batchID)
	if err != nil {
		return err
	}
	if len(expenses) == 0 {
		return fmt.Errorf("batch %s: %w", batchID, repository.ErrNotFound)
	}

	for _, e := range expenses {
		if !workflow.CanTransition(workflow.State(e.Status), workflow.StatePaid) {
			return fmt.Errorf("%w: %s -> %s", workflow.ErrInvalidTransition, e.Status, models.StatusPaid)
		}
	}

	if err := s.expenses.SetStatusByBatch(ctx, batchID, models.StatusPaid); err != nil {
		return err
	}

	s.logger.Info("Batch marked as paid", zap.String("batch_id", batchID))
	return nil
}
