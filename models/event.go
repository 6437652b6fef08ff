package models

import "github.com/shopspring/decimal"

type Event struct {
	ID          int             `json:"id"`
	OrganizerID int             `json:"organizer_id,omitempty"`
	EventName   string          `json:"event_name"`
	Venue       string          `json:"venue"`
	Date        string          `json:"date"`       // 2006-01-02
	StartTime   string          `json:"start_time"` // 15:04
	EndTime     string          `json:"end_time"`   // 15:04
	Capacity    int             `json:"capacity"`
	Fee         decimal.Decimal `json:"fee"`
}

// EventSummary is an organizer dashboard row: the event plus aggregates over
// its registrations, payments and feedback.
type EventSummary struct {
	Event
	ActiveRegistrations int             `json:"active_registrations"`
	TotalCollected      decimal.Decimal `json:"total_collected"`
	FeedbackCount       int             `json:"feedback_count"`
}

// AttendeeEvent is an upcoming event as seen by one attendee.
type AttendeeEvent struct {
	Event
	IsRegistered       bool   `json:"is_registered"`
	RegistrationID     int    `json:"registration_id,omitempty"`
	RegistrationStatus string `json:"registration_status,omitempty"`
}
