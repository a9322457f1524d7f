package service

import (
	"context"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/hmezouar/missionfrais/internal/models"
)

// ExpenseGroup is one row of the grouped expense views. Sans compte
// expenses group by their owning mission; later statuses group by batch,
// keyed by the processed day.
type ExpenseGroup struct {
	Key         string           `json:"key"`
	MissionID   string           `json:"mission_id,omitempty"`
	Label       string           `json:"label,omitempty"`
	City        string           `json:"city,omitempty"`
	BatchID     string           `json:"batch_id,omitempty"`
	Day         string           `json:"day,omitempty"`
	Count       int              `json:"count"`
	Total       float64          `json:"total"`
	NetPayable  float64          `json:"net_payable,omitempty"`
	Received    float64          `json:"received,omitempty"`
	Remaining   float64          `json:"remaining,omitempty"`
	OldestDate  *time.Time       `json:"oldest_date,omitempty"`
	Expenses    []models.Expense `json:"expenses,omitempty"`
}

// LedgerRow is one billed mission in the billing ledger. Displayed
// amounts are rounded to whole MAD; stored values keep full precision.
type LedgerRow struct {
	MissionID      string  `json:"mission_id"`
	Label          string  `json:"label"`
	City           string  `json:"city"`
	ApprovedAmount float64 `json:"approved_amount"`
	Advance        float64 `json:"advance"`
	Commission     float64 `json:"commission"`
	ExpenseTotal   float64 `json:"expense_total"`
}

// Ledger is the billing ledger view
type Ledger struct {
	Rows          []LedgerRow `json:"rows"`
	ClientBalance float64     `json:"client_balance"`
}

// ViewService computes the derived read-side aggregations
type ViewService interface {
	GroupedByStatus(ctx context.Context, status models.ExpenseStatus) ([]ExpenseGroup, error)
	BatchDetail(ctx context.Context, day string) (*ExpenseGroup, error)
	BillingLedger(ctx context.Context) (*Ledger, error)
}

type viewService struct {
	missions MissionStore
	expenses ExpenseStore
	balance  BalanceStore
	logger   *zap.Logger
}

// NewViewService creates a new ViewService
func NewViewService(missions MissionStore, expenses ExpenseStore, balance BalanceStore, logger *zap.Logger) ViewService {
	return &viewService{
		missions: missions,
		expenses: expenses,
		balance:  balance,
		logger:   logger,
	}
}

// GroupedByStatus groups expenses for the listing views. For Confirmé
// the grouping doubles as the "awaiting payment" view: batches without a
// confirmation stamp are excluded.
func (s *viewService) GroupedByStatus(ctx context.Context, status models.ExpenseStatus) ([]ExpenseGroup, error) {
	expenses, err := s.expenses.ListByStatus(ctx, status)
	if err != nil {
		return nil, err
	}

	if status == models.StatusUnaccounted {
		return s.groupByMission(ctx, expenses)
	}
	return groupByBatch(expenses, status == models.StatusConfirmed), nil
}

// BatchDetail returns the expenses processed on the given ISO day with
// their batch summary
func (s *viewService) BatchDetail(ctx context.Context, day string) (*ExpenseGroup, error) {
	expenses, err := s.expenses.ListByProcessedDay(ctx, day)
	if err != nil {
		return nil, err
	}

	group := ExpenseGroup{Key: day, Day: day}
	for _, e := range expenses {
		group.Count++
		group.Total += e.Amount
		group.Expenses = append(group.Expenses, *e)
		if group.BatchID == "" {
			group.BatchID = e.BatchID
		}
		if e.Payment != nil {
			group.NetPayable = e.Payment.NetPayable()
			group.Received = e.Payment.ReceivedAmount
			group.Remaining = group.NetPayable - group.Received
		}
	}

	return &group, nil
}

// BillingLedger returns the billed missions with the running client
// balance. Amounts are rounded to whole MAD for display.
func (s *viewService) BillingLedger(ctx context.Context) (*Ledger, error) {
	missions, err := s.missions.List(ctx)
	if err != nil {
		return nil, err
	}

	ledger := &Ledger{}
	for _, m := range missions {
		if m.Billing == nil {
			continue
		}

		expenses, err := s.expenses.ListByMission(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		total := 0.0
		for _, e := range expenses {
			total += e.Amount
		}

		ledger.Rows = append(ledger.Rows, LedgerRow{
			MissionID:      m.ID,
			Label:          m.Label,
			City:           m.DisplayCity(),
			ApprovedAmount: math.Round(m.Billing.ApprovedAmount),
			Advance:        math.Round(m.Billing.Advance),
			Commission:     math.Round(m.Billing.Commission),
			ExpenseTotal:   math.Round(total),
		})
	}

	balance, err := s.balance.Get(ctx)
	if err != nil {
		return nil, err
	}
	ledger.ClientBalance = math.Round(balance.Amount)

	return ledger, nil
}

func (s *viewService) groupByMission(ctx context.Context, expenses []*models.Expense) ([]ExpenseGroup, error) {
	missions, err := s.missions.List(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*models.Mission, len(missions))
	for _, m := range missions {
		byID[m.ID] = m
	}

	groups := make(map[string]*ExpenseGroup)
	var order []string
	for _, e := range expenses {
		g, ok := groups[e.MissionID]
		if !ok {
			g = &ExpenseGroup{Key: e.MissionID, MissionID: e.MissionID}
			if m, found := byID[e.MissionID]; found {
				g.Label = m.Label
				g.City = m.DisplayCity()
			}
			groups[e.MissionID] = g
			order = append(order, e.MissionID)
		}
		g.Count++
		g.Total += e.Amount
		g.Expenses = append(g.Expenses, *e)
		created := e.CreatedAt
		if g.OldestDate == nil || created.Before(*g.OldestDate) {
			g.OldestDate = &created
		}
	}

	out := make([]ExpenseGroup, 0, len(order))
	for _, key := range order {
		out = append(out, *groups[key])
	}
	return out, nil
}

// groupByBatch groups expenses by their processed day. Batches sharing a
// day merge into one group so the day keys stay unique; BatchID carries
// the first batch of the day.
func groupByBatch(expenses []*models.Expense, requireStamp bool) []ExpenseGroup {
	groups := make(map[string]*ExpenseGroup)
	var order []string
	for _, e := range expenses {
		day := e.BatchDay()
		if e.BatchID == "" || day == "" {
			continue
		}
		if requireStamp && e.Payment == nil {
			continue
		}

		g, ok := groups[day]
		if !ok {
			g = &ExpenseGroup{
				Key:     day,
				BatchID: e.BatchID,
				Day:     day,
			}
			groups[day] = g
			order = append(order, day)
		}
		g.Count++
		g.Total += e.Amount
		g.Expenses = append(g.Expenses, *e)
		if e.ProcessedDate != nil {
			processed := *e.ProcessedDate
			if g.OldestDate == nil || processed.Before(*g.OldestDate) {
				g.OldestDate = &processed
			}
		}
		if e.Payment != nil {
			g.NetPayable = e.Payment.NetPayable()
			g.Received = e.Payment.ReceivedAmount
			g.Remaining = g.NetPayable - g.Received
		}
	}

	out := make([]ExpenseGroup, 0, len(order))
	for _, key := range order {
		out = append(out, *groups[key])
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OldestDate == nil || out[j].OldestDate == nil {
			return out[i].Key < out[j].Key
		}
		return out[i].OldestDate.Before(*out[j].OldestDate)
	})
	return out
}
