package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedbackWindowAt(t *testing.T) {
	end := time.Date(2026, 3, 14, 18, 0, 0, 0, time.Local)

	tests := []struct {
		name string
		now  time.Time
		want FeedbackWindowState
	}{
		{"well before the event ends", end.Add(-2 * time.Hour), FeedbackNotOpenYet},
		{"one second before the end", end.Add(-time.Second), FeedbackNotOpenYet},
		{"exactly at the end", end, FeedbackOpen},
		{"inside the window", end.Add(24 * time.Hour), FeedbackOpen},
		{"exactly at the deadline", end.Add(FeedbackWindow), FeedbackOpen},
		{"one second past the deadline", end.Add(FeedbackWindow + time.Second), FeedbackClosed},
		{"days later", end.Add(90 * time.Hour), FeedbackClosed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FeedbackWindowAt(end, tt.now))
		})
	}
}

func TestValidRating(t *testing.T) {
	for rating := 1; rating <= 5; rating++ {
		assert.True(t, ValidRating(rating), "rating %d", rating)
	}
	assert.False(t, ValidRating(0))
	assert.False(t, ValidRating(6))
	assert.False(t, ValidRating(-1))
}

func TestEventEnd(t *testing.T) {
	got, err := EventEnd("2026-03-14", "18:30:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 14, 18, 30, 0, 0, time.Local), got)

	got, err = EventEnd("2026-03-14", "18:30")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 14, 18, 30, 0, 0, time.Local), got)

	_, err = EventEnd("14/03/2026", "18:30")
	assert.Error(t, err)
	_, err = EventEnd("2026-03-14", "")
	assert.Error(t, err)
}
