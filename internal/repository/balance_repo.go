package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/hmezouar/missionfrais/internal/models"
	"github.com/hmezouar/missionfrais/pkg/database"
	"go.uber.org/zap"
)

// BalanceRepository persists the single running client balance
type BalanceRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewBalanceRepository creates a new balance repository
func NewBalanceRepository(db *database.DB, logger *zap.Logger) *BalanceRepository {
	return &BalanceRepository{
		db:     db,
		logger: logger,
	}
}

// Get returns the current client balance
func (r *BalanceRepository) Get(ctx context.Context) (*models.ClientBalance, error) {
	var balance models.ClientBalance
	err := r.db.QueryRowContext(ctx,
		"SELECT amount, updated_at FROM client_balance WHERE id = 1",
	).Scan(&balance.Amount, &balance.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to get client balance", zap.Error(err))
		return nil, fmt.Errorf("failed to get client balance: %w", err)
	}
	return &balance, nil
}

// Add increases the client balance by delta and returns the new balance
func (r *BalanceRepository) Add(ctx context.Context, delta float64) (*models.ClientBalance, error) {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		"UPDATE client_balance SET amount = amount + ?, updated_at = ? WHERE id = 1",
		delta, now)
	if err != nil {
		r.logger.Error("Failed to update client balance", zap.Error(err))
		return nil, fmt.Errorf("failed to update client balance: %w", err)
	}
	return r.Get(ctx)
}
