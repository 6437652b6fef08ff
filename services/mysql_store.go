package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MySQLStore implements Store on a MySQL database using SELECT ... FOR UPDATE
// row locks and guarded updates inside one transaction per operation.
type MySQLStore struct {
	db *sql.DB
}

func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

func (s *MySQLStore) InTx(ctx context.Context, fn func(Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(&mysqlTx{ctx: ctx, tx: tx}); err != nil {
		// Rollback releases every row lock; its own error is secondary to
		// the failure that triggered it.
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

type mysqlTx struct {
	ctx context.Context
	tx  *sql.Tx
}

func (t *mysqlTx) HasActiveRegistration(userID, eventID int) (bool, error) {
	var id int
	err := t.tx.QueryRowContext(t.ctx, `
		SELECT RegistrationID FROM Registrations
		WHERE UserID = ? AND EventID = ? AND Status = 'Active'
		FOR UPDATE`, userID, eventID).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (t *mysqlTx) LockEvent(eventID int) (EventSlot, bool, error) {
	var slot EventSlot
	err := t.tx.QueryRowContext(t.ctx, `
		SELECT Fee, Capacity FROM Events
		WHERE EventID = ? AND Date >= CURDATE()
		FOR UPDATE`, eventID).Scan(&slot.Fee, &slot.Capacity)
	if err == sql.ErrNoRows {
		return EventSlot{}, false, nil
	}
	if err != nil {
		return EventSlot{}, false, err
	}
	return slot, true, nil
}

func (t *mysqlTx) CancelledRegistrationID(userID, eventID int) (int, bool, error) {
	var id int
	err := t.tx.QueryRowContext(t.ctx, `
		SELECT RegistrationID FROM Registrations
		WHERE UserID = ? AND EventID = ? AND Status = 'Cancelled'
		FOR UPDATE`, userID, eventID).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (t *mysqlTx) ReactivateRegistration(registrationID int) error {
	_, err := t.tx.ExecContext(t.ctx, `
		UPDATE Registrations
		SET Status = 'Active', CancellationReason = NULL
		WHERE RegistrationID = ?`, registrationID)
	return err
}

func (t *mysqlTx) ResetPaymentToPending(registrationID int) error {
	_, err := t.tx.ExecContext(t.ctx, `
		UPDATE Payments
		SET Status = 'Pending'
		WHERE RegistrationID = ? AND Status = 'Cancelled'`, registrationID)
	return err
}

func (t *mysqlTx) InsertRegistration(userID, eventID int) (int, error) {
	res, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO Registrations (UserID, EventID, Status)
		VALUES (?, ?, 'Active')`, userID, eventID)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return int(id), err
}

func (t *mysqlTx) InsertPayment(registrationID int, amount decimal.Decimal) error {
	_, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO Payments (RegistrationID, Amount, Status)
		VALUES (?, ?, 'Pending')`, registrationID, amount)
	return err
}

func (t *mysqlTx) TakeSeat(eventID int) (bool, error) {
	res, err := t.tx.ExecContext(t.ctx, `
		UPDATE Events SET Capacity = Capacity - 1
		WHERE EventID = ? AND Capacity > 0`, eventID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (t *mysqlTx) ReleaseSeat(eventID int) error {
	_, err := t.tx.ExecContext(t.ctx, `
		UPDATE Events SET Capacity = Capacity + 1
		WHERE EventID = ?`, eventID)
	return err
}

func (t *mysqlTx) LockRegistrationForCancel(registrationID, userID int) (CancelTarget, bool, error) {
	var target CancelTarget
	var date time.Time
	err := t.tx.QueryRowContext(t.ctx, `
		SELECT R.EventID, E.Date
		FROM Registrations R
		JOIN Events E ON R.EventID = E.EventID
		WHERE R.RegistrationID = ? AND R.UserID = ? AND R.Status = 'Active'
		FOR UPDATE`, registrationID, userID).Scan(&target.EventID, &date)
	if err == sql.ErrNoRows {
		return CancelTarget{}, false, nil
	}
	if err != nil {
		return CancelTarget{}, false, err
	}
	target.EventDate = date
	return target, true, nil
}

func (t *mysqlTx) MarkRegistrationCancelled(registrationID int, reason string) error {
	_, err := t.tx.ExecContext(t.ctx, `
		UPDATE Registrations
		SET Status = 'Cancelled', CancellationReason = ?
		WHERE RegistrationID = ?`, reason, registrationID)
	return err
}

func (t *mysqlTx) CancelPendingPayment(registrationID int) error {
	_, err := t.tx.ExecContext(t.ctx, `
		UPDATE Payments
		SET Status = 'Cancelled'
		WHERE RegistrationID = ? AND Status = 'Pending'`, registrationID)
	return err
}

func (t *mysqlTx) CompletePayment(paymentID, userID int) (bool, error) {
	res, err := t.tx.ExecContext(t.ctx, `
		UPDATE Payments P
		JOIN Registrations R ON P.RegistrationID = R.RegistrationID
		SET P.Status = 'Completed'
		WHERE P.PaymentID = ? AND R.UserID = ?
		  AND P.Status = 'Pending' AND R.Status = 'Active'`, paymentID, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
