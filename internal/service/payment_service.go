package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/hmezouar/missionfrais/internal/models"
)

// BatchAllocation reports what a payment did to the batches of one
// processed day
type BatchAllocation struct {
	BatchIDs   []string `json:"batch_ids"`
	Day        string   `json:"day"`
	Applied    float64  `json:"applied"`
	Received   float64  `json:"received"`
	NetPayable float64  `json:"net_payable"`
	Paid       bool     `json:"paid"`
}

// AllocationResult reports the outcome of applying an incoming payment
type AllocationResult struct {
	Balance     float64           `json:"balance"`
	Allocations []BatchAllocation `json:"allocations"`
	Unallocated float64           `json:"unallocated"`
}

// PaymentService applies incoming client payments against outstanding
// confirmed batches
type PaymentService interface {
	ApplyBalanceToExpenses(ctx context.Context, payment models.IncomingPayment) (*AllocationResult, error)
	ClientBalance(ctx context.Context) (*models.ClientBalance, error)
}

type paymentService struct {
	expenses ExpenseStore
	balance  BalanceStore
	logger   *zap.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(expenses ExpenseStore, balance BalanceStore, logger *zap.Logger) PaymentService {
	return &paymentService{
		expenses: expenses,
		balance:  balance,
		logger:   logger,
	}
}

// confirmedBatch is the allocation view of the confirmed batches sharing
// one processed day. Confirmation stamps the same amounts on every
// expense of the day, so the totals are read off any one stamped expense
// and a settlement applies to every batch id of the day.
type confirmedBatch struct {
	batchIDs      []string
	day           string
	processedDate time.Time
	netPayable    float64
	received      float64
}

// ApplyBalanceToExpenses records the payment on the running client
// balance, then allocates it across confirmed batches oldest-processed
// first. A batch whose cumulative received amount reaches its net payable
// transitions to Payé; a partial remainder stays on the batch as received
// amount.
func (s *paymentService) ApplyBalanceToExpenses(ctx context.Context, payment models.IncomingPayment) (*AllocationResult, error) {
	if payment.ReceivedAmount <= 0 {
		return nil, fmt.Errorf("%w: received amount must be positive", ErrValidation)
	}

	balance, err := s.balance.Add(ctx, payment.ReceivedAmount)
	if err != nil {
		return nil, err
	}

	batches, err := s.confirmedBatches(ctx)
	if err != nil {
		return nil, err
	}

	result := &AllocationResult{Balance: balance.Amount}
	available := payment.ReceivedAmount

	for _, batch := range batches {
		if available <= 0 {
			break
		}

		remaining := batch.netPayable - batch.received
		if remaining <= 0 {
			continue
		}

		applied := available
		if applied > remaining {
			applied = remaining
		}

		newReceived := batch.received + applied
		for _, batchID := range batch.batchIDs {
			if err := s.expenses.UpdatePaymentReceived(ctx, batchID, newReceived); err != nil {
				return nil, err
			}
		}

		paid := newReceived >= batch.netPayable
		if paid {
			for _, batchID := range batch.batchIDs {
				if err := s.expenses.SetStatusByBatch(ctx, batchID, models.StatusPaid); err != nil {
					return nil, err
				}
			}
		}

		available -= applied
		result.Allocations = append(result.Allocations, BatchAllocation{
			BatchIDs:   batch.batchIDs,
			Day:        batch.day,
			Applied:    applied,
			Received:   newReceived,
			NetPayable: batch.netPayable,
			Paid:       paid,
		})

		s.logger.Info("Payment allocated",
			zap.String("day", batch.day),
			zap.Strings("batch_ids", batch.batchIDs),
			zap.Float64("applied", applied),
			zap.Bool("paid", paid))
	}

	result.Unallocated = available
	return result, nil
}

// ClientBalance returns the running client balance
func (s *paymentService) ClientBalance(ctx context.Context) (*models.ClientBalance, error) {
	return s.balance.Get(ctx)
}

// confirmedBatches returns the outstanding confirmed batches grouped by
// processed day, ordered oldest-processed first. Batches without a
// confirmation stamp are skipped: they are not awaiting payment yet.
func (s *paymentService) confirmedBatches(ctx context.Context) ([]confirmedBatch, error) {
	expenses, err := s.expenses.ListByStatus(ctx, models.StatusConfirmed)
	if err != nil {
		return nil, err
	}

	byDay := make(map[string]*confirmedBatch)
	var order []string
	for _, e := range expenses {
		if e.BatchID == "" || e.Payment == nil || e.ProcessedDate == nil {
			continue
		}

		day := e.BatchDay()
		batch, ok := byDay[day]
		if !ok {
			batch = &confirmedBatch{
				day:           day,
				processedDate: *e.ProcessedDate,
				netPayable:    e.Payment.NetPayable(),
				received:      e.Payment.ReceivedAmount,
			}
			byDay[day] = batch
			order = append(order, day)
		}

		known := false
		for _, id := range batch.batchIDs {
			if id == e.BatchID {
				known = true
				break
			}
		}
		if !known {
			batch.batchIDs = append(batch.batchIDs, e.BatchID)
		}
	}

	batches := make([]confirmedBatch, 0, len(order))
	for _, day := range order {
		batches = append(batches, *byDay[day])
	}
	sort.Slice(batches, func(i, j int) bool {
		return batches[i].processedDate.Before(batches[j].processedDate)
	})

	return batches, nil
}
