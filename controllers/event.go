package controllers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"event-manager/models"
	"event-manager/utils"
)

type EventController struct {
	Log *logrus.Logger
}

func (ec *EventController) CreateEvent(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		organizerID, err := utils.RequireRole(r, models.RoleOrganizer)
		if err != nil {
			utils.RespondWithError(w, http.StatusForbidden, models.Error{Message: err.Error()})
			return
		}

		var event models.Event
		if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Invalid request body."})
			return
		}

		event.EventName = strings.TrimSpace(event.EventName)
		event.Venue = strings.TrimSpace(event.Venue)
		if event.EventName == "" || event.Venue == "" || event.Date == "" ||
			event.StartTime == "" || event.EndTime == "" {
			utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "All fields are required!"})
			return
		}

		eventDate, err := time.ParseInLocation("2006-01-02", event.Date, time.Local)
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Invalid date format, expected YYYY-MM-DD."})
			return
		}
		startTime, err := time.Parse("15:04", event.StartTime)
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Invalid start time, expected HH:MM."})
			return
		}
		endTime, err := time.Parse("15:04", event.EndTime)
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Invalid end time, expected HH:MM."})
			return
		}

		now := time.Now()
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
		if eventDate.Before(today) {
			utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Cannot create events for past dates!"})
			return
		}
		if !startTime.Before(endTime) {
			utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Start Time must be before End Time!"})
			return
		}
		if event.Capacity <= 0 {
			utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Capacity must be a positive number!"})
			return
		}
		if event.Fee.Sign() < 0 {
			utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Fee cannot be negative!"})
			return
		}

		res, err := db.Exec(`
			INSERT INTO Events (EventName, Venue, Date, StartTime, EndTime, Capacity, Fee, OrganizerID)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			event.EventName, event.Venue, event.Date, event.StartTime, event.EndTime,
			event.Capacity, event.Fee, organizerID,
		)
		if err != nil {
			ec.Log.WithError(err).Error("error inserting event")
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Event creation failed."})
			return
		}
		eventID, _ := res.LastInsertId()

		utils.ResponseJSON(w, map[string]interface{}{
			"message":  "Event created successfully!",
			"event_id": eventID,
		})
	}
}

// GetEvents lists upcoming events for an attendee together with that
// attendee's registration state per event.
func (ec *EventController) GetEvents(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := utils.RequireRole(r, models.RoleAttendee)
		if err != nil {
			utils.RespondWithError(w, http.StatusForbidden, models.Error{Message: err.Error()})
			return
		}

		events, err := ec.attendeeEvents(db, userID)
		if err != nil {
			ec.Log.WithError(err).Error("error listing events")
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Database error."})
			return
		}
		utils.ResponseJSON(w, map[string]interface{}{"events": events})
	}
}

// Dashboard serves the role-dependent landing payload: organizers get their
// events with registration, revenue and feedback aggregates; attendees get
// the upcoming event list.
func (ec *EventController) Dashboard(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, role, err := utils.VerifyToken(r)
		if err != nil {
			utils.RespondWithError(w, http.StatusUnauthorized, models.Error{Message: err.Error()})
			return
		}

		if role == models.RoleOrganizer {
			ec.organizerDashboard(w, db, userID)
			return
		}

		events, err := ec.attendeeEvents(db, userID)
		if err != nil {
			ec.Log.WithError(err).Error("error building attendee dashboard")
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Database error."})
			return
		}
		utils.ResponseJSON(w, map[string]interface{}{"events": events})
	}
}

func (ec *EventController) attendeeEvents(db *sql.DB, userID int) ([]models.AttendeeEvent, error) {
	rows, err := db.Query(`
		SELECT E.EventID, E.EventName, E.Venue,
		       DATE_FORMAT(E.Date, '%Y-%m-%d') AS Date,
		       TIME_FORMAT(E.StartTime, '%H:%i') AS StartTime,
		       TIME_FORMAT(E.EndTime, '%H:%i') AS EndTime,
		       E.Capacity, E.Fee,
		       EXISTS(
		           SELECT 1 FROM Registrations R
		           WHERE R.EventID = E.EventID AND R.UserID = ? AND R.Status = 'Active'
		       ) AS is_registered,
		       (SELECT R.RegistrationID FROM Registrations R
		        WHERE R.EventID = E.EventID AND R.UserID = ? AND R.Status = 'Active'
		        LIMIT 1) AS registration_id,
		       (SELECT R.Status FROM Registrations R
		        WHERE R.EventID = E.EventID AND R.UserID = ?
		        LIMIT 1) AS registration_status
		FROM Events E
		WHERE E.Date >= CURDATE()`, userID, userID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []models.AttendeeEvent{}
	for rows.Next() {
		var e models.AttendeeEvent
		var regID sql.NullInt64
		var regStatus sql.NullString
		if err := rows.Scan(&e.ID, &e.EventName, &e.Venue, &e.Date, &e.StartTime, &e.EndTime,
			&e.Capacity, &e.Fee, &e.IsRegistered, &regID, &regStatus); err != nil {
			return nil, err
		}
		e.RegistrationID = int(regID.Int64)
		e.RegistrationStatus = regStatus.String
		events = append(events, e)
	}
	return events, rows.Err()
}

func (ec *EventController) organizerDashboard(w http.ResponseWriter, db *sql.DB, organizerID int) {
	rows, err := db.Query(`
		SELECT E.EventID, E.EventName, E.Venue,
		       DATE_FORMAT(E.Date, '%Y-%m-%d') AS Date,
		       TIME_FORMAT(E.StartTime, '%H:%i') AS StartTime,
		       TIME_FORMAT(E.EndTime, '%H:%i') AS EndTime,
		       E.Capacity, E.Fee,
		       COUNT(CASE WHEN R.Status = 'Active' THEN 1 END) AS active_registrations,
		       COALESCE(SUM(CASE WHEN P.Status = 'Completed' THEN P.Amount ELSE 0 END), 0) AS total_collected,
		       (SELECT COUNT(*) FROM Feedback WHERE EventID = E.EventID) AS feedback_count
		FROM Events E
		LEFT JOIN Registrations R ON E.EventID = R.EventID
		LEFT JOIN Payments P ON R.RegistrationID = P.RegistrationID
		WHERE E.OrganizerID = ?
		GROUP BY E.EventID`, organizerID)
	if err != nil {
		ec.Log.WithError(err).Error("error querying organizer events")
		utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Database error."})
		return
	}
	defer rows.Close()

	events := []models.EventSummary{}
	totalCollected := decimal.Zero
	totalFeedback := 0
	for rows.Next() {
		var e models.EventSummary
		if err := rows.Scan(&e.ID, &e.EventName, &e.Venue, &e.Date, &e.StartTime, &e.EndTime,
			&e.Capacity, &e.Fee, &e.ActiveRegistrations, &e.TotalCollected, &e.FeedbackCount); err != nil {
			ec.Log.WithError(err).Error("error scanning organizer event")
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Database error."})
			return
		}
		totalCollected = totalCollected.Add(e.TotalCollected)
		totalFeedback += e.FeedbackCount
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		ec.Log.WithError(err).Error("error iterating organizer events")
		utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Database error."})
		return
	}

	regRows, err := db.Query(`
		SELECT E.EventName, U.Name AS attendee_name, U.Email AS attendee_email,
		       COALESCE(P.Amount, 0) AS Amount,
		       COALESCE(P.Status, 'Pending') AS payment_status,
		       R.Status AS registration_status
		FROM Registrations R
		JOIN Events E ON R.EventID = E.EventID
		JOIN Users U ON R.UserID = U.UserID
		LEFT JOIN Payments P ON R.RegistrationID = P.RegistrationID
		WHERE E.OrganizerID = ? AND R.Status = 'Active'`, organizerID)
	if err != nil {
		ec.Log.WithError(err).Error("error querying attendee roster")
		utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Database error."})
		return
	}
	defer regRows.Close()

	registrations := []models.AttendeeRegistration{}
	for regRows.Next() {
		var reg models.AttendeeRegistration
		if err := regRows.Scan(&reg.EventName, &reg.AttendeeName, &reg.AttendeeEmail,
			&reg.Amount, &reg.PaymentStatus, &reg.RegistrationStatus); err != nil {
			ec.Log.WithError(err).Error("error scanning roster row")
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Database error."})
			return
		}
		registrations = append(registrations, reg)
	}
	if err := regRows.Err(); err != nil {
		ec.Log.WithError(err).Error("error iterating roster")
		utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Database error."})
		return
	}

	// Past events feed the report-creation form.
	pastRows, err := db.Query(`
		SELECT EventID, EventName, DATE_FORMAT(Date, '%Y-%m-%d')
		FROM Events
		WHERE OrganizerID = ? AND Date < CURDATE()
		ORDER BY Date DESC`, organizerID)
	if err != nil {
		ec.Log.WithError(err).Error("error querying past events")
		utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Database error."})
		return
	}
	defer pastRows.Close()

	pastEvents := []models.Event{}
	for pastRows.Next() {
		var e models.Event
		if err := pastRows.Scan(&e.ID, &e.EventName, &e.Date); err != nil {
			ec.Log.WithError(err).Error("error scanning past event")
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Database error."})
			return
		}
		pastEvents = append(pastEvents, e)
	}

	utils.ResponseJSON(w, map[string]interface{}{
		"events":          events,
		"registrations":   registrations,
		"past_events":     pastEvents,
		"total_collected": totalCollected,
		"total_feedback":  totalFeedback,
	})
}
