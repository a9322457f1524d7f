package models

import "time"

// ExpenseStatus is the lifecycle status of an expense. The French labels
// are the canonical stored values; they match the accounting vocabulary
// used by the billing counterpart.
type ExpenseStatus string

const (
	// StatusUnaccounted: freshly captured, not yet handed to accounting.
	StatusUnaccounted ExpenseStatus = "Sans compte"
	// StatusAccounted: batched for confirmation under a shared batch id.
	StatusAccounted ExpenseStatus = "Comptabilisé"
	// StatusConfirmed: amounts finalized by the accountant.
	StatusConfirmed ExpenseStatus = "Confirmé"
	// StatusPaid: settled. Terminal.
	StatusPaid ExpenseStatus = "Payé"
)

// Expense is a single expense attached to a mission.
type Expense struct {
	ID            string        `json:"id" db:"id"`
	MissionID     string        `json:"mission_id" db:"mission_id"`
	Category      string        `json:"category" db:"category"`
	Amount        float64       `json:"amount" db:"amount"`
	Remark        string        `json:"remark,omitempty" db:"remark"`
	Status        ExpenseStatus `json:"status" db:"status"`
	BatchID       string        `json:"batch_id,omitempty" db:"batch_id"`
	ProcessedDate *time.Time    `json:"processed_date,omitempty" db:"processed_date"`
	Payment       *PaymentInfo  `json:"payment,omitempty"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
}

// PaymentInfo carries the confirmation and settlement amounts stamped on
// an expense once its batch leaves the accounted stage. SuggestedAmount,
// Advance and AccountantFees are only mutable while the expense is
// Comptabilisé; they are frozen from Confirmé on.
type PaymentInfo struct {
	SuggestedAmount float64 `json:"suggested_amount" db:"suggested_amount"`
	Advance         float64 `json:"advance" db:"advance"`
	AccountantFees  float64 `json:"accountant_fees" db:"accountant_fees"`
	ReceivedAmount  float64 `json:"received_amount" db:"received_amount"`
}

// NetPayable returns the amount owed for this payment record:
// suggested amount minus advance minus accountant fees.
func (p *PaymentInfo) NetPayable() float64 {
	return p.SuggestedAmount - p.Advance - p.AccountantFees
}

// BatchDay formats the processed date as the ISO day string used to key
// batch views. Empty when the expense has not been processed yet.
func (e *Expense) BatchDay() string {
	if e.ProcessedDate == nil {
		return ""
	}
	return e.ProcessedDate.Format("2006-01-02")
}
