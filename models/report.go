package models

type Report struct {
	ID        int      `json:"id"`
	EventID   int      `json:"event_id"`
	Content   string   `json:"content"`
	CreatedAt string   `json:"created_at,omitempty"`
	EventName string   `json:"event_name,omitempty"`
	EventDate string   `json:"event_date,omitempty"`
	Photos    []string `json:"photos"`
}

// MaxReportPhotos caps the number of images attached to one report.
const MaxReportPhotos = 6
