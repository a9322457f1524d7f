package models

import "time"

// ClientBalance is the single running total of payments received from the
// billing counterpart.
type ClientBalance struct {
	Amount    float64   `json:"amount" db:"amount"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IncomingPayment is a payment received from the client, to be allocated
// across outstanding confirmed batches.
type IncomingPayment struct {
	PaymentDate    time.Time `json:"payment_date"`
	ReceivedAmount float64   `json:"received_amount"`
}
