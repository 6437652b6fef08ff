package models

import "github.com/shopspring/decimal"

const (
	RegistrationActive    = "Active"
	RegistrationCancelled = "Cancelled"
)

type Registration struct {
	ID                 int    `json:"id"`
	UserID             int    `json:"user_id"`
	EventID            int    `json:"event_id"`
	Status             string `json:"status"`
	CancellationReason string `json:"cancellation_reason,omitempty"`
	RegisteredAt       string `json:"registered_at,omitempty"`
}

// RegistrationDetail is a "my registrations" row: the registration joined
// with its event and payment, plus the computed feedback flags.
type RegistrationDetail struct {
	RegistrationID     int             `json:"registration_id"`
	EventID            int             `json:"event_id"`
	EventName          string          `json:"event_name"`
	EventDate          string          `json:"event_date"`
	StartTime          string          `json:"start_time"`
	EndTime            string          `json:"end_time"`
	Venue              string          `json:"venue"`
	Amount             decimal.Decimal `json:"amount"`
	PaymentID          int             `json:"payment_id,omitempty"`
	PaymentStatus      string          `json:"payment_status"`
	RegistrationStatus string          `json:"registration_status"`
	CancellationReason string          `json:"cancellation_reason,omitempty"`
	HasGivenFeedback   bool            `json:"has_given_feedback"`
	AllowFeedback      bool            `json:"allow_feedback"`
}

// AttendeeRegistration is an organizer dashboard roster row.
type AttendeeRegistration struct {
	EventName          string          `json:"event_name"`
	AttendeeName       string          `json:"attendee_name"`
	AttendeeEmail      string          `json:"attendee_email"`
	Amount             decimal.Decimal `json:"amount"`
	PaymentStatus      string          `json:"payment_status"`
	RegistrationStatus string          `json:"registration_status"`
}
