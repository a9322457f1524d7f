package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hmezouar/missionfrais/internal/models"
	"github.com/hmezouar/missionfrais/internal/repository"
)

func TestCreateMission_SingleLeg(t *testing.T) {
	var created *models.Mission
	missions := &mockMissionStore{
		createFunc: func(ctx context.Context, mission *models.Mission) error {
			created = mission
			return nil
		},
	}
	svc := NewMissionService(missions, &mockExpenseStore{}, zap.NewNop())

	mission, err := svc.CreateMission(context.Background(), CreateMissionInput{
		Label: "Livraison Tanger",
		City:  "Tanger",
	})
	require.NoError(t, err)
	require.NotNil(t, created)

	assert.NotEmpty(t, mission.ID)
	assert.Equal(t, "Tanger", mission.City)
	assert.False(t, mission.IsMultiLeg())
	assert.False(t, mission.CreatedAt.IsZero())
}

func TestCreateMission_MultiLeg(t *testing.T) {
	svc := NewMissionService(&mockMissionStore{}, &mockExpenseStore{}, zap.NewNop())

	mission, err := svc.CreateMission(context.Background(), CreateMissionInput{
		Label: "Tournée nord",
		Legs: []models.MissionLeg{
			{City: "Rabat"},
			{City: "Fès"},
		},
	})
	require.NoError(t, err)

	assert.True(t, mission.IsMultiLeg())
	assert.Equal(t, "Rabat / Fès", mission.DisplayCity())
}

func TestCreateMission_Invalid(t *testing.T) {
	svc := NewMissionService(&mockMissionStore{}, &mockExpenseStore{}, zap.NewNop())

	tests := []struct {
		name  string
		input CreateMissionInput
	}{
		{"empty label", CreateMissionInput{City: "Oujda"}},
		{"no city or legs", CreateMissionInput{Label: "Livraison"}},
		{"both city and legs", CreateMissionInput{
			Label: "Livraison",
			City:  "Oujda",
			Legs:  []models.MissionLeg{{City: "Nador"}},
		}},
		{"leg without city", CreateMissionInput{
			Label: "Livraison",
			Legs:  []models.MissionLeg{{Vehicle: "Camion 3"}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateMission(context.Background(), tt.input)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestGetMission_AttachesExpenses(t *testing.T) {
	expenses := &mockExpenseStore{
		listByMissionFunc: func(ctx context.Context, missionID string) ([]*models.Expense, error) {
			return []*models.Expense{
				{ID: "e-1", MissionID: missionID, Amount: 40},
			}, nil
		},
	}
	svc := NewMissionService(&mockMissionStore{}, expenses, zap.NewNop())

	mission, err := svc.GetMission(context.Background(), "m-1")
	require.NoError(t, err)
	require.Len(t, mission.Expenses, 1)
	assert.Equal(t, "e-1", mission.Expenses[0].ID)
}

func TestGetMission_NotFound(t *testing.T) {
	missions := &mockMissionStore{
		getByIDFunc: func(ctx context.Context, id string) (*models.Mission, error) {
			return nil, repository.ErrNotFound
		},
	}
	svc := NewMissionService(missions, &mockExpenseStore{}, zap.NewNop())

	_, err := svc.GetMission(context.Background(), "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUpdateMission_ValidatesLabel(t *testing.T) {
	svc := NewMissionService(&mockMissionStore{}, &mockExpenseStore{}, zap.NewNop())

	empty := ""
	_, err := svc.UpdateMission(context.Background(), "m-1", repository.MissionUpdate{Label: &empty})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpdateBilling(t *testing.T) {
	var got models.Billing
	missions := &mockMissionStore{
		updateBillingFunc: func(ctx context.Context, id string, billing models.Billing) error {
			got = billing
			return nil
		},
	}
	svc := NewMissionService(missions, &mockExpenseStore{}, zap.NewNop())

	billing := models.Billing{ApprovedAmount: 2000, Advance: 500, Commission: 100}
	require.NoError(t, svc.UpdateBilling(context.Background(), "m-1", billing))
	assert.Equal(t, billing, got)
}

func TestUpdateBilling_Negative(t *testing.T) {
	svc := NewMissionService(&mockMissionStore{}, &mockExpenseStore{}, zap.NewNop())

	err := svc.UpdateBilling(context.Background(), "m-1", models.Billing{Advance: -1})
	assert.ErrorIs(t, err, ErrValidation)
}
