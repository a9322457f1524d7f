package models

import "time"

// Mission represents a unit of work (delivery or logistics assignment)
// that accrues expenses. A mission is either a single-leg record with
// City set, or a multi-leg record with Legs populated, never both.
type Mission struct {
	ID        string       `json:"id" db:"id"`
	Label     string       `json:"label" db:"label"`
	City      string       `json:"city,omitempty" db:"city"`
	Date      *time.Time   `json:"date,omitempty" db:"date"`
	Legs      []MissionLeg `json:"legs,omitempty"`
	Expenses  []Expense    `json:"expenses,omitempty"`
	Billing   *Billing     `json:"billing,omitempty"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt time.Time    `json:"updated_at" db:"updated_at"`
}

// MissionLeg is one leg of a multi-leg mission.
type MissionLeg struct {
	ID        int64      `json:"id" db:"id"`
	MissionID string     `json:"mission_id" db:"mission_id"`
	Date      *time.Time `json:"date,omitempty" db:"date"`
	City      string     `json:"city" db:"city"`
	Vehicle   string     `json:"vehicle,omitempty" db:"vehicle"`
	Remark    string     `json:"remark,omitempty" db:"remark"`
}

// Billing holds the per-mission billing fields set once a mission is billed.
type Billing struct {
	ApprovedAmount float64 `json:"approved_amount" db:"approved_amount"`
	Advance        float64 `json:"advance" db:"advance"`
	Commission     float64 `json:"commission" db:"commission"`
}

// IsMultiLeg reports whether the mission is a multi-leg record.
func (m *Mission) IsMultiLeg() bool {
	return len(m.Legs) > 0
}

// DisplayCity returns the city label used in listings: the single city for
// a single-leg mission, or the leg cities joined with " / " otherwise
// ("Rabat / Fès").
func (m *Mission) DisplayCity() string {
	if !m.IsMultiLeg() {
		return m.City
	}
	out := ""
	for i, leg := range m.Legs {
		if i > 0 {
			out += " / "
		}
		out += leg.City
	}
	return out
}
