package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hmezouar/missionfrais/internal/ai"
	"github.com/hmezouar/missionfrais/internal/export"
	"github.com/hmezouar/missionfrais/internal/models"
	"github.com/hmezouar/missionfrais/internal/repository"
	"github.com/hmezouar/missionfrais/internal/service"
	"github.com/hmezouar/missionfrais/internal/workflow"
	"github.com/hmezouar/missionfrais/internal/writeback"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	missions    service.MissionService
	expenses    service.ExpenseService
	payments    service.PaymentService
	views       service.ViewService
	categorizer *ai.Categorizer
	exporter    *export.LedgerExporter
	billingEdit *writeback.Queue
	exportDir   string
	logger      *zap.Logger
}

// NewHandlers creates a new Handlers instance. categorizer may be nil
// when no API key is configured; the endpoint then reports the
// collaborator as unavailable.
func NewHandlers(
	missions service.MissionService,
	expenses service.ExpenseService,
	payments service.PaymentService,
	views service.ViewService,
	categorizer *ai.Categorizer,
	exporter *export.LedgerExporter,
	billingEdit *writeback.Queue,
	exportDir string,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		missions:    missions,
		expenses:    expenses,
		payments:    payments,
		views:       views,
		categorizer: categorizer,
		exporter:    exporter,
		billingEdit: billingEdit,
		exportDir:   exportDir,
		logger:      logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: gin.H{
			"status":    "healthy",
			"service":   "missionfrais",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// ListMissions handles GET /api/v1/missions
func (h *Handlers) ListMissions(c *gin.Context) {
	missions, err := h.missions.ListMissions(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: missions})
}

// CreateMission handles POST /api/v1/missions
func (h *Handlers) CreateMission(c *gin.Context) {
	var input service.CreateMissionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.badRequest(c, err)
		return
	}

	mission, err := h.missions.CreateMission(c.Request.Context(), input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: mission})
}

// GetMission handles GET /api/v1/missions/:id
func (h *Handlers) GetMission(c *gin.Context) {
	mission, err := h.missions.GetMission(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: mission})
}

// UpdateMission handles PATCH /api/v1/missions/:id
func (h *Handlers) UpdateMission(c *gin.Context) {
	var update repository.MissionUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		h.badRequest(c, err)
		return
	}

	mission, err := h.missions.UpdateMission(c.Request.Context(), c.Param("id"), update)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: mission})
}

// DeleteMission handles DELETE /api/v1/missions/:id
func (h *Handlers) DeleteMission(c *gin.Context) {
	if err := h.missions.DeleteMission(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true})
}

// UpdateBilling handles PATCH /api/v1/missions/:id/billing. Edits are
// coalesced through the writeback queue, so rapid typing on the billing
// form produces one storage write per quiet interval.
func (h *Handlers) UpdateBilling(c *gin.Context) {
	var billing models.Billing
	if err := c.ShouldBindJSON(&billing); err != nil {
		h.badRequest(c, err)
		return
	}
	if billing.ApprovedAmount < 0 || billing.Advance < 0 || billing.Commission < 0 {
		h.badRequest(c, fmt.Errorf("billing amounts must not be negative"))
		return
	}

	id := c.Param("id")
	if _, err := h.missions.GetMission(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}

	h.billingEdit.Submit(id, billing)
	c.JSON(http.StatusAccepted, Response{Success: true})
}

// AddExpense handles POST /api/v1/missions/:id/expenses
func (h *Handlers) AddExpense(c *gin.Context) {
	var input service.AddExpenseInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.badRequest(c, err)
		return
	}

	expense, err := h.expenses.AddExpense(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: expense})
}

// ProcessMission handles POST /api/v1/missions/:id/process
func (h *Handlers) ProcessMission(c *gin.Context) {
	result, err := h.expenses.ProcessMissionExpenses(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// GroupedExpenses handles GET /api/v1/expenses?status=
func (h *Handlers) GroupedExpenses(c *gin.Context) {
	status := models.ExpenseStatus(c.DefaultQuery("status", string(models.StatusUnaccounted)))
	if !workflow.State(status).IsValid() {
		h.badRequest(c, fmt.Errorf("unknown status %q", status))
		return
	}

	groups, err := h.views.GroupedByStatus(c.Request.Context(), status)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: groups})
}

// BatchDetail handles GET /api/v1/batches/:day
func (h *Handlers) BatchDetail(c *gin.Context) {
	group, err := h.batchByDay(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: group})
}

// ConfirmBatchRequest is the confirmation amount stamp
type ConfirmBatchRequest struct {
	SuggestedAmount float64 `json:"suggested_amount"`
	Advance         float64 `json:"advance"`
	AccountantFees  float64 `json:"accountant_fees"`
}

// ConfirmBatch handles POST /api/v1/batches/:day/confirm
func (h *Handlers) ConfirmBatch(c *gin.Context) {
	var req ConfirmBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	count, err := h.expenses.ConfirmBatchesByDay(c.Request.Context(), c.Param("day"),
		models.StatusConfirmed, repository.ConfirmationAmounts{
			SuggestedAmount: req.SuggestedAmount,
			Advance:         req.Advance,
			AccountantFees:  req.AccountantFees,
		})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{"confirmed": count}})
}

// UpdateBatchPaymentRequest carries a received amount for a batch
type UpdateBatchPaymentRequest struct {
	ReceivedAmount float64 `json:"received_amount"`
}

// UpdateBatchPayment handles POST /api/v1/batches/:day/payment
func (h *Handlers) UpdateBatchPayment(c *gin.Context) {
	var req UpdateBatchPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	group, err := h.batchByDay(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	for _, batchID := range dayBatchIDs(group) {
		if err := h.expenses.UpdatePaymentInfo(c.Request.Context(), batchID, req.ReceivedAmount); err != nil {
			h.respondError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, Response{Success: true})
}

// MarkBatchPaid handles POST /api/v1/batches/:day/paid
func (h *Handlers) MarkBatchPaid(c *gin.Context) {
	group, err := h.batchByDay(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	for _, batchID := range dayBatchIDs(group) {
		if err := h.expenses.MarkBatchPaid(c.Request.Context(), batchID); err != nil {
			h.respondError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, Response{Success: true})
}

// ApplyPayment handles POST /api/v1/payments
func (h *Handlers) ApplyPayment(c *gin.Context) {
	var payment models.IncomingPayment
	if err := c.ShouldBindJSON(&payment); err != nil {
		h.badRequest(c, err)
		return
	}
	if payment.PaymentDate.IsZero() {
		payment.PaymentDate = time.Now().UTC()
	}

	result, err := h.payments.ApplyBalanceToExpenses(c.Request.Context(), payment)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// ClientBalance handles GET /api/v1/balance
func (h *Handlers) ClientBalance(c *gin.Context) {
	balance, err := h.payments.ClientBalance(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: balance})
}

// BillingLedger handles GET /api/v1/ledger
func (h *Handlers) BillingLedger(c *gin.Context) {
	ledger, err := h.views.BillingLedger(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: ledger})
}

// ExportLedger handles GET /api/v1/ledger/export
func (h *Handlers) ExportLedger(c *gin.Context) {
	ledger, err := h.views.BillingLedger(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	if err := os.MkdirAll(h.exportDir, 0755); err != nil {
		h.respondError(c, err)
		return
	}

	filename := fmt.Sprintf("facturation_%s.xlsx", time.Now().Format("2006-01-02_150405"))
	path := filepath.Join(h.exportDir, filename)
	if err := h.exporter.Write(ledger, path); err != nil {
		h.respondError(c, err)
		return
	}

	c.FileAttachment(path, filename)
}

// Categorize handles POST /api/v1/categorize: a multipart receipt image
// or PDF in the "receipt" field, answered with ordered category
// suggestions. Failures are non-fatal: the form stays usable with manual
// category selection, so errors come back with an empty suggestion list.
func (h *Handlers) Categorize(c *gin.Context) {
	if h.categorizer == nil {
		c.JSON(http.StatusServiceUnavailable, Response{
			Success: false,
			Data:    gin.H{"categories": []string{}},
			Error:   "categorization is not configured",
		})
		return
	}

	fileHeader, err := c.FormFile("receipt")
	if err != nil {
		h.badRequest(c, fmt.Errorf("receipt file is required"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.respondError(c, err)
		return
	}
	defer file.Close()

	payload, err := io.ReadAll(file)
	if err != nil {
		h.respondError(c, err)
		return
	}

	mediaType := fileHeader.Header.Get("Content-Type")
	categories, err := h.categorizer.SuggestCategories(c.Request.Context(), payload, mediaType)
	if err != nil {
		h.logger.Warn("Categorization failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, Response{
			Success: false,
			Data:    gin.H{"categories": []string{}},
			Error:   "categorization failed",
		})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{"categories": categories}})
}

// batchByDay resolves the :day path param to its batch group. Batches
// are keyed by their processed day in every view.
func (h *Handlers) batchByDay(c *gin.Context) (*service.ExpenseGroup, error) {
	day := c.Param("day")
	if _, err := time.Parse("2006-01-02", day); err != nil {
		return nil, fmt.Errorf("%w: invalid day %q", service.ErrValidation, day)
	}

	group, err := h.views.BatchDetail(c.Request.Context(), day)
	if err != nil {
		return nil, err
	}
	if group.Count == 0 {
		return nil, fmt.Errorf("batch %s: %w", day, repository.ErrNotFound)
	}
	return group, nil
}

// dayBatchIDs returns the distinct batch ids processed on the group's
// day. Two missions processed the same day produce two batches sharing
// one day key; the day-keyed mutations apply to all of them, matching
// the day scope of confirmation.
func dayBatchIDs(group *service.ExpenseGroup) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, e := range group.Expenses {
		if e.BatchID == "" || seen[e.BatchID] {
			continue
		}
		seen[e.BatchID] = true
		ids = append(ids, e.BatchID)
	}
	return ids
}

func (h *Handlers) badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
}

func (h *Handlers) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, Response{Success: false, Error: err.Error()})
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
	case errors.Is(err, workflow.ErrInvalidTransition):
		c.JSON(http.StatusConflict, Response{Success: false, Error: err.Error()})
	default:
		h.logger.Error("Request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Success: false, Error: "internal error"})
	}
}
