package service

import (
	"context"
	"time"

	"github.com/hmezouar/missionfrais/internal/models"
	"github.com/hmezouar/missionfrais/internal/repository"
)

// MissionStore is the mission persistence port
type MissionStore interface {
	Create(ctx context.Context, mission *models.Mission) error
	GetByID(ctx context.Context, id string) (*models.Mission, error)
	List(ctx context.Context) ([]*models.Mission, error)
	Update(ctx context.Context, id string, update repository.MissionUpdate) error
	UpdateBilling(ctx context.Context, id string, billing models.Billing) error
	Delete(ctx context.Context, id string) error
}

// ExpenseStore is the expense persistence port
type ExpenseStore interface {
	Create(ctx context.Context, expense *models.Expense) error
	GetByID(ctx context.Context, id string) (*models.Expense, error)
	ListByMission(ctx context.Context, missionID string) ([]*models.Expense, error)
	ListByStatus(ctx context.Context, status models.ExpenseStatus) ([]*models.Expense, error)
	ListByBatch(ctx context.Context, batchID string) ([]*models.Expense, error)
	ListByProcessedDay(ctx context.Context, day string) ([]*models.Expense, error)
	MarkProcessed(ctx context.Context, missionID, batchID string, processedDate time.Time) (int64, error)
	ConfirmByDay(ctx context.Context, day string, status models.ExpenseStatus, amounts repository.ConfirmationAmounts) (int64, error)
	UpdatePaymentReceived(ctx context.Context, batchID string, received float64) error
	SetStatusByBatch(ctx context.Context, batchID string, status models.ExpenseStatus) error
}

// BalanceStore is the client balance persistence port
type BalanceStore interface {
	Get(ctx context.Context) (*models.ClientBalance, error)
	Add(ctx context.Context, delta float64) (*models.ClientBalance, error)
}
