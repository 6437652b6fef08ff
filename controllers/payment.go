package controllers

import (
	"database/sql"
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

type PaymentController struct {
	Service *services.RegistrationService
	Mailer  *services.Mailer
	Log     *logrus.Logger
}

// GetPayments lists the attendee's pending payments for active registrations.
func (pc *PaymentController) GetPayments(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := utils.RequireRole(r, models.RoleAttendee)
		if err != nil {
			utils.RespondWithError(w, http.StatusForbidden, models.Error{Message: err.Error()})
			return
		}

		rows, err := db.Query(`
			SELECT P.PaymentID, E.EventID, E.EventName, P.Amount, P.Status
			FROM Payments P
			JOIN Registrations R ON P.RegistrationID = R.RegistrationID
			JOIN Events E ON R.EventID = E.EventID
			WHERE R.UserID = ? AND P.Status = 'Pending' AND R.Status = 'Active'`, userID)
		if err != nil {
			pc.Log.WithError(err).Error("error querying pending payments")
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Database error."})
			return
		}
		defer rows.Close()

		payments := []models.PendingPayment{}
		for rows.Next() {
			var p models.PendingPayment
			if err := rows.Scan(&p.PaymentID, &p.EventID, &p.EventName, &p.Amount, &p.Status); err != nil {
				pc.Log.WithError(err).Error("error scanning payment row")
				utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Database error."})
				return
			}
			payments = append(payments, p)
		}
		if err := rows.Err(); err != nil {
			pc.Log.WithError(err).Error("error iterating payments")
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Database error."})
			return
		}

		utils.ResponseJSON(w, map[string]interface{}{"pending_payments": payments})
	}
}

func (pc *PaymentController) CompletePayment(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := utils.RequireRole(r, models.RoleAttendee)
		if err != nil {
			utils.RespondWithError(w, http.StatusForbidden, models.Error{Message: err.Error()})
			return
		}

		paymentID, err := strconv.Atoi(mux.Vars(r)["paymentId"])
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Invalid payment id."})
			return
		}

		err = pc.Service.CompletePayment(r.Context(), userID, paymentID)
		switch {
		case errors.Is(err, services.ErrPaymentNotFound):
			utils.RespondWithError(w, http.StatusNotFound, models.Error{Message: "Payment not found or already completed"})
			return
		case err != nil:
			pc.Log.WithError(err).Error("payment transaction failed")
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Payment failed."})
			return
		}
		monitoring.TrackPaymentCompleted()

		pc.notifyReceipt(db, userID, paymentID)

		utils.ResponseJSON(w, map[string]string{"message": "Payment completed successfully!"})
	}
}

func (pc *PaymentController) notifyReceipt(db *sql.DB, userID, paymentID int) {
	var name, email, eventName, amount string
	err := db.QueryRow(`
		SELECT U.Name, U.Email, E.EventName, P.Amount
		FROM Payments P
		JOIN Registrations R ON P.RegistrationID = R.RegistrationID
		JOIN Events E ON R.EventID = E.EventID
		JOIN Users U ON U.UserID = R.UserID
		WHERE P.PaymentID = ? AND R.UserID = ?`, paymentID, userID).Scan(&name, &email, &eventName, &amount)
	if err != nil {
		pc.Log.WithError(err).Warn("could not load recipient for payment receipt")
		return
	}
	body := fmt.Sprintf("Hi %s,\n\nYour payment of %s for %q has been received. See you there!\n", name, amount, eventName)
	pc.Mailer.Send(email, "Payment received: "+eventName, body)
}
