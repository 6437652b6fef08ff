package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Store is the transactional contract the registration workflow runs on.
// InTx runs fn inside one transaction: every row fn locks through Tx stays
// locked until InTx returns, and any error from fn rolls the whole
// transaction back.
type Store interface {
	InTx(ctx context.Context, fn func(Tx) error) error
}

// EventSlot is the locked view of an event row during registration.
type EventSlot struct {
	Fee      decimal.Decimal
	Capacity int
}

// CancelTarget is the locked view of an active registration joined with its
// event, used to validate a cancellation.
type CancelTarget struct {
	EventID   int
	EventDate time.Time
}

// Tx exposes the lock-then-act primitives available inside one transaction.
// Lock* methods take row locks (SELECT ... FOR UPDATE semantics); the plain
// updates rely on those locks being held.
type Tx interface {
	// HasActiveRegistration locks the user's Active registration row for the
	// event, if one exists.
	HasActiveRegistration(userID, eventID int) (bool, error)

	// LockEvent locks the event row. ok is false when the event does not
	// exist or its date has passed.
	LockEvent(eventID int) (slot EventSlot, ok bool, err error)

	// CancelledRegistrationID locks a Cancelled registration row for the
	// (user, event) pair and returns its id.
	CancelledRegistrationID(userID, eventID int) (id int, ok bool, err error)

	ReactivateRegistration(registrationID int) error
	ResetPaymentToPending(registrationID int) error

	InsertRegistration(userID, eventID int) (int, error)
	InsertPayment(registrationID int, amount decimal.Decimal) error

	// TakeSeat decrements capacity guarded by capacity > 0; ok is false when
	// no row qualified, meaning capacity ran out under a concurrent commit.
	TakeSeat(eventID int) (ok bool, err error)
	ReleaseSeat(eventID int) error

	// LockRegistrationForCancel locks the user's Active registration row and
	// returns its event id and date. ok is false when no such row exists.
	LockRegistrationForCancel(registrationID, userID int) (target CancelTarget, ok bool, err error)

	MarkRegistrationCancelled(registrationID int, reason string) error
	CancelPendingPayment(registrationID int) error

	// CompletePayment marks the payment Completed, re-checking ownership,
	// Pending status and an Active registration in the same guarded
	// statement. ok is false when no row qualified.
	CompletePayment(paymentID, userID int) (ok bool, err error)
}
