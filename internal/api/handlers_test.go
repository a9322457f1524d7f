package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hmezouar/missionfrais/internal/export"
	"github.com/hmezouar/missionfrais/internal/models"
	"github.com/hmezouar/missionfrais/internal/repository"
	"github.com/hmezouar/missionfrais/internal/service"
	"github.com/hmezouar/missionfrais/internal/workflow"
	"github.com/hmezouar/missionfrais/internal/writeback"
)

type mockMissionService struct {
	createFunc        func(ctx context.Context, input service.CreateMissionInput) (*models.Mission, error)
	getFunc           func(ctx context.Context, id string) (*models.Mission, error)
	listFunc          func(ctx context.Context) ([]*models.Mission, error)
	updateFunc        func(ctx context.Context, id string, update repository.MissionUpdate) (*models.Mission, error)
	updateBillingFunc func(ctx context.Context, id string, billing models.Billing) error
	deleteFunc        func(ctx context.Context, id string) error
}

func (m *mockMissionService) CreateMission(ctx context.Context, input service.CreateMissionInput) (*models.Mission, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, input)
	}
	return &models.Mission{ID: "m-1", Label: input.Label, City: input.City}, nil
}

func (m *mockMissionService) GetMission(ctx context.Context, id string) (*models.Mission, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, id)
	}
	return &models.Mission{ID: id}, nil
}

func (m *mockMissionService) ListMissions(ctx context.Context) ([]*models.Mission, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx)
	}
	return nil, nil
}

func (m *mockMissionService) UpdateMission(ctx context.Context, id string, update repository.MissionUpdate) (*models.Mission, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, id, update)
	}
	return &models.Mission{ID: id}, nil
}

func (m *mockMissionService) UpdateBilling(ctx context.Context, id string, billing models.Billing) error {
	if m.updateBillingFunc != nil {
		return m.updateBillingFunc(ctx, id, billing)
	}
	return nil
}

func (m *mockMissionService) DeleteMission(ctx context.Context, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

type mockExpenseService struct {
	addFunc        func(ctx context.Context, missionID string, input service.AddExpenseInput) (*models.Expense, error)
	processFunc    func(ctx context.Context, missionID string) (*service.BatchResult, error)
	confirmFunc    func(ctx context.Context, day string, status models.ExpenseStatus, amounts repository.ConfirmationAmounts) (int64, error)
	updatePayFunc  func(ctx context.Context, batchID string, receivedAmount float64) error
	markPaidFunc   func(ctx context.Context, batchID string) error
}

func (m *mockExpenseService) AddExpense(ctx context.Context, missionID string, input service.AddExpenseInput) (*models.Expense, error) {
	if m.addFunc != nil {
		return m.addFunc(ctx, missionID, input)
	}
	return &models.Expense{ID: "e-1", MissionID: missionID, Status: models.StatusUnaccounted}, nil
}

func (m *mockExpenseService) ProcessMissionExpenses(ctx context.Context, missionID string) (*service.BatchResult, error) {
	if m.processFunc != nil {
		return m.processFunc(ctx, missionID)
	}
	return &service.BatchResult{BatchID: "b-1", Count: 1}, nil
}

func (m *mockExpenseService) ConfirmBatchesByDay(ctx context.Context, day string, status models.ExpenseStatus, amounts repository.ConfirmationAmounts) (int64, error) {
	if m.confirmFunc != nil {
		return m.confirmFunc(ctx, day, status, amounts)
	}
	return 1, nil
}

func (m *mockExpenseService) UpdatePaymentInfo(ctx context.Context, batchID string, receivedAmount float64) error {
	if m.updatePayFunc != nil {
		return m.updatePayFunc(ctx, batchID, receivedAmount)
	}
	return nil
}

func (m *mockExpenseService) MarkBatchPaid(ctx context.Context, batchID string) error {
	if m.markPaidFunc != nil {
		return m.markPaidFunc(ctx, batchID)
	}
	return nil
}

type mockPaymentService struct {
	applyFunc   func(ctx context.Context, payment models.IncomingPayment) (*service.AllocationResult, error)
	balanceFunc func(ctx context.Context) (*models.ClientBalance, error)
}

func (m *mockPaymentService) ApplyBalanceToExpenses(ctx context.Context, payment models.IncomingPayment) (*service.AllocationResult, error) {
	if m.applyFunc != nil {
		return m.applyFunc(ctx, payment)
	}
	return &service.AllocationResult{}, nil
}

func (m *mockPaymentService) ClientBalance(ctx context.Context) (*models.ClientBalance, error) {
	if m.balanceFunc != nil {
		return m.balanceFunc(ctx)
	}
	return &models.ClientBalance{}, nil
}

type mockViewService struct {
	groupedFunc func(ctx context.Context, status models.ExpenseStatus) ([]service.ExpenseGroup, error)
	detailFunc  func(ctx context.Context, day string) (*service.ExpenseGroup, error)
	ledgerFunc  func(ctx context.Context) (*service.Ledger, error)
}

func (m *mockViewService) GroupedByStatus(ctx context.Context, status models.ExpenseStatus) ([]service.ExpenseGroup, error) {
	if m.groupedFunc != nil {
		return m.groupedFunc(ctx, status)
	}
	return nil, nil
}

func (m *mockViewService) BatchDetail(ctx context.Context, day string) (*service.ExpenseGroup, error) {
	if m.detailFunc != nil {
		return m.detailFunc(ctx, day)
	}
	return &service.ExpenseGroup{Key: day, Day: day}, nil
}

func (m *mockViewService) BillingLedger(ctx context.Context) (*service.Ledger, error) {
	if m.ledgerFunc != nil {
		return m.ledgerFunc(ctx)
	}
	return &service.Ledger{}, nil
}

type testEnv struct {
	missions *mockMissionService
	expenses *mockExpenseService
	payments *mockPaymentService
	views    *mockViewService
	queue    *writeback.Queue
}

func newTestServer(t *testing.T, env *testEnv) *Server {
	t.Helper()
	logger := zap.NewNop()

	if env.missions == nil {
		env.missions = &mockMissionService{}
	}
	if env.expenses == nil {
		env.expenses = &mockExpenseService{}
	}
	if env.payments == nil {
		env.payments = &mockPaymentService{}
	}
	if env.views == nil {
		env.views = &mockViewService{}
	}
	if env.queue == nil {
		env.queue = writeback.NewQueue(time.Hour,
			func(ctx context.Context, missionID string, billing models.Billing) error {
				return nil
			}, logger)
	}

	handlers := NewHandlers(
		env.missions,
		env.expenses,
		env.payments,
		env.views,
		nil,
		export.NewLedgerExporter("Transport Mezouar SARL", logger),
		env.queue,
		t.TempDir(),
		logger,
	)
	return NewServer(ServerConfig{Host: "127.0.0.1", Port: 8080}, handlers, logger)
}

func doRequest(t *testing.T, server *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHealthCheck(t *testing.T) {
	server := newTestServer(t, &testEnv{})

	w := doRequest(t, server, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeResponse(t, w).Success)
}

func TestCreateMission(t *testing.T) {
	server := newTestServer(t, &testEnv{})

	w := doRequest(t, server, http.MethodPost, "/api/v1/missions", gin.H{
		"label": "Livraison Tanger",
		"city":  "Tanger",
	})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, decodeResponse(t, w).Success)
}

func TestCreateMission_ValidationError(t *testing.T) {
	missions := &mockMissionService{
		createFunc: func(ctx context.Context, input service.CreateMissionInput) (*models.Mission, error) {
			return nil, service.ErrValidation
		},
	}
	server := newTestServer(t, &testEnv{missions: missions})

	w := doRequest(t, server, http.MethodPost, "/api/v1/missions", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, decodeResponse(t, w).Success)
}

func TestGetMission_NotFound(t *testing.T) {
	missions := &mockMissionService{
		getFunc: func(ctx context.Context, id string) (*models.Mission, error) {
			return nil, repository.ErrNotFound
		},
	}
	server := newTestServer(t, &testEnv{missions: missions})

	w := doRequest(t, server, http.MethodGet, "/api/v1/missions/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateBilling_Accepted(t *testing.T) {
	queue := writeback.NewQueue(time.Hour,
		func(ctx context.Context, missionID string, billing models.Billing) error {
			return nil
		}, zap.NewNop())
	server := newTestServer(t, &testEnv{queue: queue})

	w := doRequest(t, server, http.MethodPatch, "/api/v1/missions/m-1/billing", gin.H{
		"approved_amount": 2000,
		"advance":         500,
		"commission":      150,
	})
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, 1, queue.Pending(), "billing edit waits in the writeback queue")
}

func TestUpdateBilling_Negative(t *testing.T) {
	server := newTestServer(t, &testEnv{})

	w := doRequest(t, server, http.MethodPatch, "/api/v1/missions/m-1/billing", gin.H{
		"advance": -5,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGroupedExpenses_UnknownStatus(t *testing.T) {
	server := newTestServer(t, &testEnv{})

	w := doRequest(t, server, http.MethodGet, "/api/v1/expenses?status=Inconnu", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConfirmBatch_InvalidTransition(t *testing.T) {
	expenses := &mockExpenseService{
		confirmFunc: func(ctx context.Context, day string, status models.ExpenseStatus, amounts repository.ConfirmationAmounts) (int64, error) {
			return 0, workflow.ErrInvalidTransition
		},
	}
	server := newTestServer(t, &testEnv{expenses: expenses})

	w := doRequest(t, server, http.MethodPost, "/api/v1/batches/2026-03-14/confirm", gin.H{
		"suggested_amount": 180,
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestBatchDetail_InvalidDay(t *testing.T) {
	server := newTestServer(t, &testEnv{})

	w := doRequest(t, server, http.MethodGet, "/api/v1/batches/not-a-day", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBatchDetail_EmptyDayIsNotFound(t *testing.T) {
	server := newTestServer(t, &testEnv{})

	// The default mock returns a group with zero expenses
	w := doRequest(t, server, http.MethodGet, "/api/v1/batches/2026-03-14", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMarkBatchPaid_ResolvesBatchFromDay(t *testing.T) {
	views := &mockViewService{
		detailFunc: func(ctx context.Context, day string) (*service.ExpenseGroup, error) {
			return &service.ExpenseGroup{Key: day, Day: day, BatchID: "b-1", Count: 2,
				Expenses: []models.Expense{
					{ID: "e-1", BatchID: "b-1"},
					{ID: "e-2", BatchID: "b-1"},
				}}, nil
		},
	}
	var paid []string
	expenses := &mockExpenseService{
		markPaidFunc: func(ctx context.Context, batchID string) error {
			paid = append(paid, batchID)
			return nil
		},
	}
	server := newTestServer(t, &testEnv{views: views, expenses: expenses})

	w := doRequest(t, server, http.MethodPost, "/api/v1/batches/2026-03-14/paid", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"b-1"}, paid)
}

func TestMarkBatchPaid_CoversEveryBatchOfDay(t *testing.T) {
	views := &mockViewService{
		detailFunc: func(ctx context.Context, day string) (*service.ExpenseGroup, error) {
			// Two missions processed on the same day, two batch ids
			return &service.ExpenseGroup{Key: day, Day: day, BatchID: "b-1", Count: 2,
				Expenses: []models.Expense{
					{ID: "e-1", BatchID: "b-1"},
					{ID: "e-2", BatchID: "b-2"},
				}}, nil
		},
	}
	var paid []string
	expenses := &mockExpenseService{
		markPaidFunc: func(ctx context.Context, batchID string) error {
			paid = append(paid, batchID)
			return nil
		},
	}
	server := newTestServer(t, &testEnv{views: views, expenses: expenses})

	w := doRequest(t, server, http.MethodPost, "/api/v1/batches/2026-03-14/paid", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.ElementsMatch(t, []string{"b-1", "b-2"}, paid)
}

func TestUpdateBatchPayment_CoversEveryBatchOfDay(t *testing.T) {
	views := &mockViewService{
		detailFunc: func(ctx context.Context, day string) (*service.ExpenseGroup, error) {
			return &service.ExpenseGroup{Key: day, Day: day, BatchID: "b-1", Count: 2,
				Expenses: []models.Expense{
					{ID: "e-1", BatchID: "b-1"},
					{ID: "e-2", BatchID: "b-2"},
				}}, nil
		},
	}
	updated := make(map[string]float64)
	expenses := &mockExpenseService{
		updatePayFunc: func(ctx context.Context, batchID string, receivedAmount float64) error {
			updated[batchID] = receivedAmount
			return nil
		},
	}
	server := newTestServer(t, &testEnv{views: views, expenses: expenses})

	w := doRequest(t, server, http.MethodPost, "/api/v1/batches/2026-03-14/payment", gin.H{
		"received_amount": 75,
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]float64{"b-1": 75, "b-2": 75}, updated)
}

func TestApplyPayment(t *testing.T) {
	var got models.IncomingPayment
	payments := &mockPaymentService{
		applyFunc: func(ctx context.Context, payment models.IncomingPayment) (*service.AllocationResult, error) {
			got = payment
			return &service.AllocationResult{Balance: 120}, nil
		},
	}
	server := newTestServer(t, &testEnv{payments: payments})

	w := doRequest(t, server, http.MethodPost, "/api/v1/payments", gin.H{
		"received_amount": 120,
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 120.0, got.ReceivedAmount)
	assert.False(t, got.PaymentDate.IsZero(), "missing payment date defaults to now")
}

func TestCategorize_Unconfigured(t *testing.T) {
	server := newTestServer(t, &testEnv{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/categorize", nil)
	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
