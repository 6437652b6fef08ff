package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var (
	ErrAlreadyRegistered    = errors.New("already registered for this event")
	ErrEventUnavailable     = errors.New("event not found or has already occurred")
	ErrEventFull            = errors.New("event is full")
	ErrReasonRequired       = errors.New("cancellation reason is required")
	ErrRegistrationNotFound = errors.New("registration not found or already cancelled")
	ErrEventCompleted       = errors.New("cannot cancel registration for completed events")
	ErrPaymentNotFound      = errors.New("payment not found or already completed")
)

// RegistrationService owns the register / cancel / complete-payment workflow.
// Every operation is one transaction on the Store; a losing concurrent
// transaction reports failure to its caller instead of retrying.
type RegistrationService struct {
	store Store
	log   *logrus.Logger
	now   func() time.Time
}

func NewRegistrationService(store Store, log *logrus.Logger) *RegistrationService {
	return &RegistrationService{store: store, log: log, now: time.Now}
}

// RegisterResult describes a successful registration.
type RegisterResult struct {
	RegistrationID int             `json:"registration_id"`
	Amount         decimal.Decimal `json:"amount"`
	Reactivated    bool            `json:"reactivated"`
}

// Register books one seat for the user. A Cancelled registration for the
// same (user, event) pair is reactivated instead of inserting a duplicate
// row, and its payment goes back to Pending.
func (s *RegistrationService) Register(ctx context.Context, userID, eventID int) (RegisterResult, error) {
	var res RegisterResult
	err := s.store.InTx(ctx, func(tx Tx) error {
		active, err := tx.HasActiveRegistration(userID, eventID)
		if err != nil {
			return err
		}
		if active {
			return ErrAlreadyRegistered
		}

		slot, ok, err := tx.LockEvent(eventID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrEventUnavailable
		}
		if slot.Capacity <= 0 {
			return ErrEventFull
		}

		regID, found, err := tx.CancelledRegistrationID(userID, eventID)
		if err != nil {
			return err
		}
		if found {
			if err := tx.ReactivateRegistration(regID); err != nil {
				return err
			}
			if err := tx.ResetPaymentToPending(regID); err != nil {
				return err
			}
			res.Reactivated = true
		} else {
			regID, err = tx.InsertRegistration(userID, eventID)
			if err != nil {
				return err
			}
			if err := tx.InsertPayment(regID, slot.Fee); err != nil {
				return err
			}
		}
		res.RegistrationID = regID
		res.Amount = slot.Fee

		// The event row is locked, but the guarded decrement still re-checks
		// capacity; zero rows affected means another transaction drained it.
		taken, err := tx.TakeSeat(eventID)
		if err != nil {
			return err
		}
		if !taken {
			return ErrEventFull
		}
		return nil
	})
	if err != nil {
		return RegisterResult{}, err
	}
	s.log.WithFields(logrus.Fields{
		"user_id":         userID,
		"event_id":        eventID,
		"registration_id": res.RegistrationID,
		"reactivated":     res.Reactivated,
	}).Info("registration confirmed")
	return res, nil
}

// Cancel marks the registration Cancelled with the given reason, frees the
// seat and cancels a still-Pending payment. Registrations for events whose
// date has passed cannot be cancelled.
func (s *RegistrationService) Cancel(ctx context.Context, userID, registrationID int, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ErrReasonRequired
	}
	err := s.store.InTx(ctx, func(tx Tx) error {
		target, ok, err := tx.LockRegistrationForCancel(registrationID, userID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrRegistrationNotFound
		}
		if target.EventDate.Before(startOfDay(s.now())) {
			return ErrEventCompleted
		}
		if err := tx.MarkRegistrationCancelled(registrationID, reason); err != nil {
			return err
		}
		if err := tx.ReleaseSeat(target.EventID); err != nil {
			return err
		}
		return tx.CancelPendingPayment(registrationID)
	})
	if err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{
		"user_id":         userID,
		"registration_id": registrationID,
	}).Info("registration cancelled")
	return nil
}

// CompletePayment settles a Pending payment. Ownership, payment status and
// registration status are all re-checked under the row locks the guarded
// update takes, so a stale read cannot enable a double complete.
func (s *RegistrationService) CompletePayment(ctx context.Context, userID, paymentID int) error {
	err := s.store.InTx(ctx, func(tx Tx) error {
		ok, err := tx.CompletePayment(paymentID, userID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrPaymentNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{
		"user_id":    userID,
		"payment_id": paymentID,
	}).Info("payment completed")
	return nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
