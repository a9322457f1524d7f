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

// MissionRepository handles mission database operations
type MissionRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewMissionRepository creates a new mission repository
func NewMissionRepository(db *database.DB, logger *zap.Logger) *MissionRepository {
	return &MissionRepository{
		db:     db,
		logger: logger,
	}
}

// MissionUpdate carries the partial fields of an update. Nil fields are
// left untouched.
type MissionUpdate struct {
	Label *string             `json:"label"`
	City  *string             `json:"city"`
	Date  *time.Time          `json:"date"`
	Legs  []models.MissionLeg `json:"legs"`
}

// Create inserts a mission and its legs atomically
func (r *MissionRepository) Create(ctx context.Context, mission *models.Mission) error {
	return r.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO missions (id, label, city, date, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`,
			mission.ID,
			mission.Label,
			mission.City,
			mission.Date,
			mission.CreatedAt,
			mission.UpdatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to create mission", zap.Error(err))
			return fmt.Errorf("failed to create mission: %w", err)
		}

		for i := range mission.Legs {
			leg := &mission.Legs[i]
			leg.MissionID = mission.ID
			res, err := tx.ExecContext(ctx, `
				INSERT INTO mission_legs (mission_id, date, city, vehicle, remark)
				VALUES (?, ?, ?, ?, ?)
			`, leg.MissionID, leg.Date, leg.City, leg.Vehicle, leg.Remark)
			if err != nil {
				return fmt.Errorf("failed to create mission leg: %w", err)
			}
			if id, err := res.LastInsertId(); err == nil {
				leg.ID = id
			}
		}

		return nil
	})
}

// GetByID retrieves a mission with its legs and expenses
func (r *MissionRepository) GetByID(ctx context.Context, id string) (*models.Mission, error) {
	query := `
		SELECT id, label, city, date, approved_amount, advance, commission,
			created_at, updated_at
		FROM missions
		WHERE id = ?
	`

	mission, err := r.scanMission(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}

	legs, err := r.legsByMission(ctx, id)
	if err != nil {
		return nil, err
	}
	mission.Legs = legs

	return mission, nil
}

// List retrieves all missions with their legs, newest first
func (r *MissionRepository) List(ctx context.Context) ([]*models.Mission, error) {
	query := `
		SELECT id, label, city, date, approved_amount, advance, commission,
			created_at, updated_at
		FROM missions
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list missions", zap.Error(err))
		return nil, fmt.Errorf("failed to list missions: %w", err)
	}
	defer rows.Close()

	var missions []*models.Mission
	byID := make(map[string]*models.Mission)
	for rows.Next() {
		mission, err := r.scanMission(rows)
		if err != nil {
			return nil, err
		}
		missions = append(missions, mission)
		byID[mission.ID] = mission
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list missions: %w", err)
	}

	legRows, err := r.db.QueryContext(ctx, `
		SELECT id, mission_id, date, city, vehicle, remark
		FROM mission_legs
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list mission legs: %w", err)
	}
	defer legRows.Close()

	for legRows.Next() {
		var leg models.MissionLeg
		var date sql.NullTime
		if err := legRows.Scan(&leg.ID, &leg.MissionID, &date, &leg.City, &leg.Vehicle, &leg.Remark); err != nil {
			return nil, fmt.Errorf("failed to scan mission leg: %w", err)
		}
		if date.Valid {
			leg.Date = &date.Time
		}
		if mission, ok := byID[leg.MissionID]; ok {
			mission.Legs = append(mission.Legs, leg)
		}
	}

	return missions, legRows.Err()
}

// Update merges the non-nil fields of the update into the mission.
// Returns ErrNotFound when the id does not exist.
func (r *MissionRepository) Update(ctx context.Context, id string, update MissionUpdate) error {
	return r.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		var label, city string
		var date sql.NullTime
		err := tx.QueryRowContext(ctx,
			"SELECT label, city, date FROM missions WHERE id = ?", id,
		).Scan(&label, &city, &date)
		if err == sql.ErrNoRows {
			return fmt.Errorf("mission %s: %w", id, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to load mission: %w", err)
		}

		if update.Label != nil {
			label = *update.Label
		}
		if update.City != nil {
			city = *update.City
		}
		if update.Date != nil {
			date = sql.NullTime{Time: *update.Date, Valid: true}
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE missions SET label = ?, city = ?, date = ?, updated_at = ?
			WHERE id = ?
		`, label, city, date, time.Now().UTC(), id)
		if err != nil {
			return fmt.Errorf("failed to update mission: %w", err)
		}

		if update.Legs != nil {
			if _, err := tx.ExecContext(ctx, "DELETE FROM mission_legs WHERE mission_id = ?", id); err != nil {
				return fmt.Errorf("failed to replace mission legs: %w", err)
			}
			for _, leg := range update.Legs {
				_, err := tx.ExecContext(ctx, `
					INSERT INTO mission_legs (mission_id, date, city, vehicle, remark)
					VALUES (?, ?, ?, ?, ?)
				`, id, leg.Date, leg.City, leg.Vehicle, leg.Remark)
				if err != nil {
					return fmt.Errorf("failed to replace mission legs: %w", err)
				}
			}
		}

		return nil
	})
}

// UpdateBilling sets the billing fields of a mission.
// Returns ErrNotFound when the id does not exist.
func (r *MissionRepository) UpdateBilling(ctx context.Context, id string, billing models.Billing) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE missions
		SET approved_amount = ?, advance = ?, commission = ?, updated_at = ?
		WHERE id = ?
	`, billing.ApprovedAmount, billing.Advance, billing.Commission, time.Now().UTC(), id)
	if err != nil {
		r.logger.Error("Failed to update billing", zap.String("mission_id", id), zap.Error(err))
		return fmt.Errorf("failed to update billing: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("mission %s: %w", id, ErrNotFound)
	}
	return nil
}

// Delete removes a mission; its legs and expenses cascade.
// Returns ErrNotFound when the id does not exist.
func (r *MissionRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM missions WHERE id = ?", id)
	if err != nil {
		r.logger.Error("Failed to delete mission", zap.String("mission_id", id), zap.Error(err))
		return fmt.Errorf("failed to delete mission: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("mission %s: %w", id, ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *MissionRepository) scanMission(row rowScanner) (*models.Mission, error) {
	var mission models.Mission
	var date sql.NullTime
	var approvedAmount, advance, commission sql.NullFloat64

	err := row.Scan(
		&mission.ID,
		&mission.Label,
		&mission.City,
		&date,
		&approvedAmount,
		&advance,
		&commission,
		&mission.CreatedAt,
		&mission.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan mission: %w", err)
	}

	if date.Valid {
		mission.Date = &date.Time
	}
	if approvedAmount.Valid {
		mission.Billing = &models.Billing{
			ApprovedAmount: approvedAmount.Float64,
			Advance:        advance.Float64,
			Commission:     commission.Float64,
		}
	}

	return &mission, nil
}

func (r *MissionRepository) legsByMission(ctx context.Context, missionID string) ([]models.MissionLeg, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, mission_id, date, city, vehicle, remark
		FROM mission_legs
		WHERE mission_id = ?
		ORDER BY id
	`, missionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query mission legs: %w", err)
	}
	defer rows.Close()

	var legs []models.MissionLeg
	for rows.Next() {
		var leg models.MissionLeg
		var date sql.NullTime
		if err := rows.Scan(&leg.ID, &leg.MissionID, &date, &leg.City, &leg.Vehicle, &leg.Remark); err != nil {
			return nil, fmt.Errorf("failed to scan mission leg: %w", err)
		}
		if date.Valid {
			leg.Date = &date.Time
		}
		legs = append(legs, leg)
	}
	return legs, rows.Err()
}
