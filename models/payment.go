package models

import "github.com/shopspring/decimal"

const (
	PaymentPending   = "Pending"
	PaymentCompleted = "Completed"
	PaymentCancelled = "Cancelled"
)

type Payment struct {
	ID             int             `json:"id"`
	RegistrationID int             `json:"registration_id"`
	Amount         decimal.Decimal `json:"amount"`
	Status         string          `json:"status"`
}

// PendingPayment is a payments-page row joined with the event it pays for.
type PendingPayment struct {
	PaymentID int             `json:"payment_id"`
	EventID   int             `json:"event_id"`
	EventName string          `json:"event_name"`
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"`
}
