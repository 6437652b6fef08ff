package services

import (
	"fmt"
	"time"
)

// FeedbackWindow is how long after an event ends feedback stays open.
const FeedbackWindow = 48 * time.Hour

type FeedbackWindowState int

const (
	FeedbackNotOpenYet FeedbackWindowState = iota // event has not ended
	FeedbackOpen
	FeedbackClosed // more than FeedbackWindow past the end
)

// FeedbackWindowAt reports where now falls relative to the feedback window
// for an event that ends at eventEnd. The boundaries are inclusive: feedback
// is allowed exactly when eventEnd <= now <= eventEnd + FeedbackWindow.
func FeedbackWindowAt(eventEnd, now time.Time) FeedbackWindowState {
	if now.Before(eventEnd) {
		return FeedbackNotOpenYet
	}
	if now.After(eventEnd.Add(FeedbackWindow)) {
		return FeedbackClosed
	}
	return FeedbackOpen
}

// ValidRating reports whether rating is in the accepted 1..5 range.
func ValidRating(rating int) bool {
	return rating >= 1 && rating <= 5
}

// EventEnd combines an event's date (2006-01-02) and end time (15:04 or
// 15:04:05) into the moment the event finishes, in local time like the
// database's CURDATE/NOW comparisons.
func EventEnd(date, endTime string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02 15:04"} {
		if t, err := time.ParseInLocation(layout, date+" "+endTime, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid event end %q %q", date, endTime)
}
