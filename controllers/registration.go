package controllers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"event-manager/models"
	"event-manager/monitoring"
	"event-manager/services"
	"event-manager/utils"
)

type RegistrationController struct {
	Service *services.RegistrationService
	Mailer  *services.Mailer
	Log     *logrus.Logger
}

func (rc *RegistrationController) RegisterForEvent(db *sql.DB) http.HandlerFunc {
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

		res, err := rc.Service.Register(r.Context(), userID, eventID)
		switch {
		case errors.Is(err, services.ErrAlreadyRegistered):
			monitoring.TrackRegistration("duplicate")
			utils.RespondWithError(w, http.StatusConflict, models.Error{Message: "You're already registered for this event!"})
			return
		case errors.Is(err, services.ErrEventUnavailable):
			monitoring.TrackRegistration("unavailable")
			utils.RespondWithError(w, http.StatusNotFound, models.Error{Message: "Event not found or has already occurred!"})
			return
		case errors.Is(err, services.ErrEventFull):
			monitoring.TrackRegistration("full")
			utils.RespondWithError(w, http.StatusConflict, models.Error{Message: "Event is full!"})
			return
		case err != nil:
			monitoring.TrackRegistration("error")
			rc.Log.WithError(err).Error("registration transaction failed")
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Registration failed."})
			return
		}
		monitoring.TrackRegistration("success")

		// Confirmation is best-effort: the registration is committed whether
		// or not the email goes out.
		rc.notifyRegistration(db, userID, eventID, res)

		utils.ResponseJSON(w, map[string]interface{}{
			"message":         "Registration successful! Please proceed to payment.",
			"registration_id": res.RegistrationID,
			"amount":          res.Amount,
			"reactivated":     res.Reactivated,
		})
	}
}

func (rc *RegistrationController) CancelRegistration(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := utils.RequireRole(r, models.RoleAttendee)
		if err != nil {
			utils.RespondWithError(w, http.StatusForbidden, models.Error{Message: err.Error()})
			return
		}

		registrationID, err := strconv.Atoi(mux.Vars(r)["registrationId"])
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Invalid registration id."})
			return
		}

		var body struct {
			CancellationReason string `json:"cancellation_reason"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Invalid request body."})
			return
		}

		err = rc.Service.Cancel(r.Context(), userID, registrationID, body.CancellationReason)
		switch {
		case errors.Is(err, services.ErrReasonRequired):
			utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Please provide a cancellation reason"})
			return
		case errors.Is(err, services.ErrRegistrationNotFound):
			utils.RespondWithError(w, http.StatusNotFound, models.Error{Message: "Registration not found or already cancelled"})
			return
		case errors.Is(err, services.ErrEventCompleted):
			utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Cannot cancel registration for completed events"})
			return
		case err != nil:
			rc.Log.WithError(err).Error("cancellation transaction failed")
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Cancellation failed."})
			return
		}
		monitoring.TrackCancellation()

		rc.notifyCancellation(db, userID, registrationID)

		utils.ResponseJSON(w, map[string]string{"message": "Registration cancelled successfully"})
	}
}

// MyRegistrations lists the attendee's registrations with their payment
// state and the computed feedback-window flags.
func (rc *RegistrationController) MyRegistrations(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := utils.RequireRole(r, models.RoleAttendee)
		if err != nil {
			utils.RespondWithError(w, http.StatusForbidden, models.Error{Message: err.Error()})
			return
		}

		rows, err := db.Query(`
			SELECT R.RegistrationID, E.EventID, E.EventName,
			       DATE_FORMAT(E.Date, '%Y-%m-%d') AS EventDate,
			       TIME_FORMAT(E.StartTime, '%H:%i') AS StartTime,
			       TIME_FORMAT(E.EndTime, '%H:%i') AS EndTime,
			       E.Venue,
			       COALESCE(P.Amount, 0) AS Amount,
			       COALESCE(P.Status, 'Pending') AS payment_status,
			       R.Status AS registration_status,
			       P.PaymentID,
			       R.CancellationReason,
			       EXISTS (
			           SELECT 1 FROM Feedback F
			           WHERE F.EventID = E.EventID AND F.UserID = R.UserID
			       ) AS has_given_feedback,
			       (NOW() >= TIMESTAMP(E.Date, E.EndTime)
			        AND NOW() <= TIMESTAMP(E.Date, E.EndTime) + INTERVAL 48 HOUR
			       ) AS allow_feedback
			FROM Registrations R
			JOIN Events E ON R.EventID = E.EventID
			LEFT JOIN Payments P ON R.RegistrationID = P.RegistrationID
			WHERE R.UserID = ?
			ORDER BY E.Date DESC`, userID)
		if err != nil {
			rc.Log.WithError(err).Error("error querying registrations")
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Database error."})
			return
		}
		defer rows.Close()

		registrations := []models.RegistrationDetail{}
		for rows.Next() {
			var d models.RegistrationDetail
			var paymentID sql.NullInt64
			var reason sql.NullString
			if err := rows.Scan(&d.RegistrationID, &d.EventID, &d.EventName, &d.EventDate,
				&d.StartTime, &d.EndTime, &d.Venue, &d.Amount, &d.PaymentStatus,
				&d.RegistrationStatus, &paymentID, &reason, &d.HasGivenFeedback, &d.AllowFeedback); err != nil {
				rc.Log.WithError(err).Error("error scanning registration row")
				utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Database error."})
				return
			}
			d.PaymentID = int(paymentID.Int64)
			d.CancellationReason = reason.String
			registrations = append(registrations, d)
		}
		if err := rows.Err(); err != nil {
			rc.Log.WithError(err).Error("error iterating registrations")
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Database error."})
			return
		}

		utils.ResponseJSON(w, map[string]interface{}{"registrations": registrations})
	}
}

func (rc *RegistrationController) notifyRegistration(db *sql.DB, userID, eventID int, res services.RegisterResult) {
	var name, email, eventName string
	err := db.QueryRow(`
		SELECT U.Name, U.Email, E.EventName
		FROM Users U, Events E
		WHERE U.UserID = ? AND E.EventID = ?`, userID, eventID).Scan(&name, &email, &eventName)
	if err != nil {
		rc.Log.WithError(err).Warn("could not load recipient for confirmation email")
		return
	}
	body := fmt.Sprintf(
		"Hi %s,\n\nYour registration for %q is confirmed. The fee of %s is pending payment.\n",
		name, eventName, res.Amount.StringFixed(2))
	rc.Mailer.Send(email, "Registration confirmed: "+eventName, body)
}

func (rc *RegistrationController) notifyCancellation(db *sql.DB, userID, registrationID int) {
	var name, email, eventName string
	err := db.QueryRow(`
		SELECT U.Name, U.Email, E.EventName
		FROM Registrations R
		JOIN Events E ON R.EventID = E.EventID
		JOIN Users U ON U.UserID = R.UserID
		WHERE R.RegistrationID = ? AND R.UserID = ?`, registrationID, userID).Scan(&name, &email, &eventName)
	if err != nil {
		rc.Log.WithError(err).Warn("could not load recipient for cancellation email")
		return
	}
	body := fmt.Sprintf("Hi %s,\n\nYour registration for %q has been cancelled and your seat released.\n", name, eventName)
	rc.Mailer.Send(email, "Registration cancelled: "+eventName, body)
}
