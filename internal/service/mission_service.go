package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hmezouar/missionfrais/internal/models"
	"github.com/hmezouar/missionfrais/internal/repository"
	"github.com/hmezouar/missionfrais/pkg/utils"
)

// CreateMissionInput carries the fields of a new mission. Either City or
// Legs must be set, never both.
type CreateMissionInput struct {
	Label string              `json:"label"`
	City  string              `json:"city"`
	Date  *time.Time          `json:"date"`
	Legs  []models.MissionLeg `json:"legs"`
}

// MissionService manages missions and their billing fields
type MissionService interface {
	CreateMission(ctx context.Context, input CreateMissionInput) (*models.Mission, error)
	GetMission(ctx context.Context, id string) (*models.Mission, error)
	ListMissions(ctx context.Context) ([]*models.Mission, error)
	UpdateMission(ctx context.Context, id string, update repository.MissionUpdate) (*models.Mission, error)
	UpdateBilling(ctx context.Context, id string, billing models.Billing) error
	DeleteMission(ctx context.Context, id string) error
}

type missionService struct {
	missions MissionStore
	expenses ExpenseStore
	logger   *zap.Logger
}

// NewMissionService creates a new MissionService
func NewMissionService(missions MissionStore, expenses ExpenseStore, logger *zap.Logger) MissionService {
	return &missionService{
		missions: missions,
		expenses: expenses,
		logger:   logger,
	}
}

// CreateMission validates and stores a new mission
func (s *missionService) CreateMission(ctx context.Context, input CreateMissionInput) (*models.Mission, error) {
	if err := utils.ValidateLabel(input.Label); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	// Single-leg and multi-leg forms are mutually exclusive
	if input.City != "" && len(input.Legs) > 0 {
		return nil, fmt.Errorf("%w: city and legs are mutually exclusive", ErrValidation)
	}
	if input.City == "" && len(input.Legs) == 0 {
		return nil, fmt.Errorf("%w: either city or legs is required", ErrValidation)
	}
	for _, leg := range input.Legs {
		if err := utils.ValidateCity(leg.City); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}

	now := time.Now().UTC()
	mission := &models.Mission{
		ID:        uuid.NewString(),
		Label:     utils.SanitizeString(input.Label),
		City:      input.City,
		Date:      input.Date,
		Legs:      input.Legs,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.missions.Create(ctx, mission); err != nil {
		return nil, err
	}

	s.logger.Info("Mission created",
		zap.String("mission_id", mission.ID),
		zap.String("label", mission.Label))
	return mission, nil
}

// GetMission returns a mission with its legs and expenses
func (s *missionService) GetMission(ctx context.Context, id string) (*models.Mission, error) {
	mission, err := s.missions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	expenses, err := s.expenses.ListByMission(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, e := range expenses {
		mission.Expenses = append(mission.Expenses, *e)
	}

	return mission, nil
}

// ListMissions returns all missions
func (s *missionService) ListMissions(ctx context.Context) ([]*models.Mission, error) {
	return s.missions.List(ctx)
}

// UpdateMission merges the partial update into the mission
func (s *missionService) UpdateMission(ctx context.Context, id string, update repository.MissionUpdate) (*models.Mission, error) {
	if update.Label != nil {
		if err := utils.ValidateLabel(*update.Label); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}
	if update.City != nil && len(update.Legs) > 0 {
		return nil, fmt.Errorf("%w: city and legs are mutually exclusive", ErrValidation)
	}

	if err := s.missions.Update(ctx, id, update); err != nil {
		return nil, err
	}

	s.logger.Info("Mission updated", zap.String("mission_id", id))
	return s.missions.GetByID(ctx, id)
}

// UpdateBilling sets the billed-mission detail fields
func (s *missionService) UpdateBilling(ctx context.Context, id string, billing models.Billing) error {
	if billing.ApprovedAmount < 0 || billing.Advance < 0 || billing.Commission < 0 {
		return fmt.Errorf("%w: billing amounts must not be negative", ErrValidation)
	}
	if err := s.missions.UpdateBilling(ctx, id, billing); err != nil {
		return err
	}
	s.logger.Info("Mission billing updated", zap.String("mission_id", id))
	return nil
}

// DeleteMission removes a mission and cascades to its expenses
func (s *missionService) DeleteMission(ctx context.Context, id string) error {
	if err := s.missions.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Mission deleted", zap.String("mission_id", id))
	return nil
}
