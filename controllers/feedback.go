package controllers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"event-manager/models"
	"event-manager/services"
	"event-manager/utils"
)

type FeedbackController struct {
	Log *logrus.Logger
}

// SubmitFeedback stores an attendee's rating for an event they attended.
// Allowed only within the 48-hour window after the event ends; a repeat
// submission updates the existing row instead of duplicating it.
func (fc *FeedbackController) SubmitFeedback(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := utils.RequireRole(r, models.RoleAttendee)
		if err != nil {
			utils.RespondWithError(w, http.StatusForbidden, models.Error{Message: err.Error()})
			return
		}

		eventID, err := strconv.Atoi(mux.Vars(r)["eventId"])
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Invalid event id."})
			return
		}

		var feedback models.Feedback
		if err := json.NewDecoder(r.Body).Decode(&feedback); err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Invalid request body."})
			return
		}
		if !services.ValidRating(feedback.Rating) {
			utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Please provide a valid rating (1-5)"})
			return
		}

		// Feedback requires an active registration for the event.
		var date, endTime string
		err = db.QueryRow(`
			SELECT DATE_FORMAT(E.Date, '%Y-%m-%d'), TIME_FORMAT(E.EndTime, '%H:%i:%s')
			FROM Events E
			JOIN Registrations R ON E.EventID = R.EventID
			WHERE R.UserID = ? AND E.EventID = ? AND R.Status = 'Active'`,
			userID, eventID).Scan(&date, &endTime)
		if err == sql.ErrNoRows {
			utils.RespondWithError(w, http.StatusNotFound, models.Error{Message: "Invalid event or registration"})
			return
		} else if err != nil {
			fc.Log.WithError(err).Error("error loading event for feedback")
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Database error."})
			return
		}

		eventEnd, err := services.EventEnd(date, endTime)
		if err != nil {
			fc.Log.WithError(err).Error("invalid event end time")
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Event time data is invalid"})
			return
		}
		switch services.FeedbackWindowAt(eventEnd, time.Now()) {
		case services.FeedbackNotOpenYet:
			utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "This event has not yet completed. Feedback cannot be submitted yet."})
			return
		case services.FeedbackClosed:
			utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Feedback submission is only allowed within 48 hours after event completion"})
			return
		}

		_, err = db.Exec(`
			INSERT INTO Feedback (UserID, EventID, Rating, Comment)
			VALUES (?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE Rating = VALUES(Rating), Comment = VALUES(Comment)`,
			userID, eventID, feedback.Rating, feedback.Comment)
		if err != nil {
			fc.Log.WithError(err).Error("error saving feedback")
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Failed to save feedback."})
			return
		}

		utils.ResponseJSON(w, map[string]string{"message": "Feedback submitted successfully!"})
	}
}

// EventFeedback lists feedback for an event. Organizers may only view
// feedback for their own events.
func (fc *FeedbackController) EventFeedback(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, role, err := utils.VerifyToken(r)
		if err != nil {
			utils.RespondWithError(w, http.StatusUnauthorized, models.Error{Message: err.Error()})
			return
		}

		eventID, err := strconv.Atoi(mux.Vars(r)["eventId"])
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Invalid event id."})
			return
		}

		if role == models.RoleOrganizer {
			var owned int
			err := db.QueryRow("SELECT 1 FROM Events WHERE EventID = ? AND OrganizerID = ?",
				eventID, userID).Scan(&owned)
			if err == sql.ErrNoRows {
				utils.RespondWithError(w, http.StatusForbidden, models.Error{Message: "You can only view feedback for your own events"})
				return
			} else if err != nil {
				fc.Log.WithError(err).Error("error checking event ownership")
				utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Database error."})
				return
			}
		}

		var eventName string
		err = db.QueryRow("SELECT EventName FROM Events WHERE EventID = ?", eventID).Scan(&eventName)
		if err == sql.ErrNoRows {
			utils.RespondWithError(w, http.StatusNotFound, models.Error{Message: "Event not found."})
			return
		} else if err != nil {
			fc.Log.WithError(err).Error("error loading event")
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Database error."})
			return
		}

		rows, err := db.Query(`
			SELECT U.Name, F.Rating, F.Comment, F.FeedbackDate
			FROM Feedback F
			JOIN Users U ON F.UserID = U.UserID
			WHERE F.EventID = ?
			ORDER BY F.FeedbackDate DESC`, eventID)
		if err != nil {
			fc.Log.WithError(err).Error("error querying feedback")
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Database error."})
			return
		}
		defer rows.Close()

		feedbacks := []models.Feedback{}
		for rows.Next() {
			var f models.Feedback
			var fbDate time.Time
			if err := rows.Scan(&f.UserName, &f.Rating, &f.Comment, &fbDate); err != nil {
				fc.Log.WithError(err).Error("error scanning feedback row")
				utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Database error."})
				return
			}
			f.EventID = eventID
			f.FeedbackDate = fbDate.Format("2006-01-02 15:04:05")
			feedbacks = append(feedbacks, f)
		}
		if err := rows.Err(); err != nil {
			fc.Log.WithError(err).Error("error iterating feedback")
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Database error."})
			return
		}

		utils.ResponseJSON(w, map[string]interface{}{
			"event_name": eventName,
			"feedbacks":  feedbacks,
		})
	}
}
