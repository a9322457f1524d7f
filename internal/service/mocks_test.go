package service

import (
	"context"
	"time"

	"github.com/hmezouar/missionfrais/internal/models"
	"github.com/hmezouar/missionfrais/internal/repository"
)

type mockMissionStore struct {
	createFunc        func(ctx context.Context, mission *models.Mission) error
	getByIDFunc       func(ctx context.Context, id string) (*models.Mission, error)
	listFunc          func(ctx context.Context) ([]*models.Mission, error)
	updateFunc        func(ctx context.Context, id string, update repository.MissionUpdate) error
	updateBillingFunc func(ctx context.Context, id string, billing models.Billing) error
	deleteFunc        func(ctx context.Context, id string) error
}

func (m *mockMissionStore) Create(ctx context.Context, mission *models.Mission) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, mission)
	}
	return nil
}

func (m *mockMissionStore) GetByID(ctx context.Context, id string) (*models.Mission, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return &models.Mission{ID: id}, nil
}

func (m *mockMissionStore) List(ctx context.Context) ([]*models.Mission, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx)
	}
	return nil, nil
}

func (m *mockMissionStore) Update(ctx context.Context, id string, update repository.MissionUpdate) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, id, update)
	}
	return nil
}

func (m *mockMissionStore) UpdateBilling(ctx context.Context, id string, billing models.Billing) error {
	if m.updateBillingFunc != nil {
		return m.updateBillingFunc(ctx, id, billing)
	}
	return nil
}

func (m *mockMissionStore) Delete(ctx context.Context, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

type mockExpenseStore struct {
	createFunc                func(ctx context.Context, expense *models.Expense) error
	getByIDFunc               func(ctx context.Context, id string) (*models.Expense, error)
	listByMissionFunc         func(ctx context.Context, missionID string) ([]*models.Expense, error)
	listByStatusFunc          func(ctx context.Context, status models.ExpenseStatus) ([]*models.Expense, error)
	listByBatchFunc           func(ctx context.Context, batchID string) ([]*models.Expense, error)
	listByProcessedDayFunc    func(ctx context.Context, day string) ([]*models.Expense, error)
	markProcessedFunc         func(ctx context.Context, missionID, batchID string, processedDate time.Time) (int64, error)
	confirmByDayFunc          func(ctx context.Context, day string, status models.ExpenseStatus, amounts repository.ConfirmationAmounts) (int64, error)
	updatePaymentReceivedFunc func(ctx context.Context, batchID string, received float64) error
	setStatusByBatchFunc      func(ctx context.Context, batchID string, status models.ExpenseStatus) error
}

func (m *mockExpenseStore) Create(ctx context.Context, expense *models.Expense) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, expense)
	}
	return nil
}

func (m *mockExpenseStore) GetByID(ctx context.Context, id string) (*models.Expense, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, repository.ErrNotFound
}

func (m *mockExpenseStore) ListByMission(ctx context.Context, missionID string) ([]*models.Expense, error) {
	if m.listByMissionFunc != nil {
		return m.listByMissionFunc(ctx, missionID)
	}
	return nil, nil
}

func (m *mockExpenseStore) ListByStatus(ctx context.Context, status models.ExpenseStatus) ([]*models.Expense, error) {
	if m.listByStatusFunc != nil {
		return m.listByStatusFunc(ctx, status)
	}
	return nil, nil
}

func (m *mockExpenseStore) ListByBatch(ctx context.Context, batchID string) ([]*models.Expense, error) {
	if m.listByBatchFunc != nil {
		return m.listByBatchFunc(ctx, batchID)
	}
	return nil, nil
}

func (m *mockExpenseStore) ListByProcessedDay(ctx context.Context, day string) ([]*models.Expense, error) {
	if m.listByProcessedDayFunc != nil {
		return m.listByProcessedDayFunc(ctx, day)
	}
	return nil, nil
}

func (m *mockExpenseStore) MarkProcessed(ctx context.Context, missionID, batchID string, processedDate time.Time) (int64, error) {
	if m.markProcessedFunc != nil {
		return m.markProcessedFunc(ctx, missionID, batchID, processedDate)
	}
	return 0, nil
}

func (m *mockExpenseStore) ConfirmByDay(ctx context.Context, day string, status models.ExpenseStatus, amounts repository.ConfirmationAmounts) (int64, error) {
	if m.confirmByDayFunc != nil {
		return m.confirmByDayFunc(ctx, day, status, amounts)
	}
	return 0, nil
}

func (m *mockExpenseStore) UpdatePaymentReceived(ctx context.Context, batchID string, received float64) error {
	if m.updatePaymentReceivedFunc != nil {
		return m.updatePaymentReceivedFunc(ctx, batchID, received)
	}
	return nil
}

func (m *mockExpenseStore) SetStatusByBatch(ctx context.Context, batchID string, status models.ExpenseStatus) error {
	if m.setStatusByBatchFunc != nil {
		return m.setStatusByBatchFunc(ctx, batchID, status)
	}
	return nil
}

type mockBalanceStore struct {
	getFunc func(ctx context.Context) (*models.ClientBalance, error)
	addFunc func(ctx context.Context, delta float64) (*models.ClientBalance, error)
}

func (m *mockBalanceStore) Get(ctx context.Context) (*models.ClientBalance, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx)
	}
	return &models.ClientBalance{}, nil
}

func (m *mockBalanceStore) Add(ctx context.Context, delta float64) (*models.ClientBalance, error) {
	if m.addFunc != nil {
		return m.addFunc(ctx, delta)
	}
	return &models.ClientBalance{Amount: delta}, nil
}
