package models

type Feedback struct {
	ID           int    `json:"id"`
	UserID       int    `json:"user_id"`
	EventID      int    `json:"event_id"`
	Rating       int    `json:"rating"` // 1..5
	Comment      string `json:"comment"`
	FeedbackDate string `json:"feedback_date,omitempty"`
	UserName     string `json:"user_name,omitempty"`
}
