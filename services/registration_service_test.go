package services

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore implements Store in memory. The transaction mutex stands in for
// the database's row locks: InTx serializes transactions the way FOR UPDATE
// serializes conflicting ones, and an error restores the pre-transaction
// state like a rollback.
type memStore struct {
	mu sync.Mutex

	events        map[int]*memEvent
	registrations map[int]*memRegistration
	payments      map[int]*memPayment
	nextRegID     int
	nextPayID     int

	now func() time.Time
}

type memEvent struct {
	date     time.Time
	fee      decimal.Decimal
	capacity int
}

type memRegistration struct {
	id      int
	userID  int
	eventID int
	status  string
	reason  string
}

type memPayment struct {
	id     int
	regID  int
	amount decimal.Decimal
	status string
}

func newMemStore() *memStore {
	return &memStore{
		events:        map[int]*memEvent{},
		registrations: map[int]*memRegistration{},
		payments:      map[int]*memPayment{},
		nextRegID:     1,
		nextPayID:     1,
		now:           time.Now,
	}
}

func (s *memStore) addEvent(id int, date time.Time, fee decimal.Decimal, capacity int) {
	s.events[id] = &memEvent{date: date, fee: fee, capacity: capacity}
}

func (s *memStore) InTx(_ context.Context, fn func(Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.clone()
	if err := fn(&memTx{s: s}); err != nil {
		s.events = snapshot.events
		s.registrations = snapshot.registrations
		s.payments = snapshot.payments
		s.nextRegID = snapshot.nextRegID
		s.nextPayID = snapshot.nextPayID
		return err
	}
	return nil
}

func (s *memStore) clone() *memStore {
	c := newMemStore()
	c.nextRegID = s.nextRegID
	c.nextPayID = s.nextPayID
	for id, e := range s.events {
		ev := *e
		c.events[id] = &ev
	}
	for id, r := range s.registrations {
		reg := *r
		c.registrations[id] = &reg
	}
	for id, p := range s.payments {
		pay := *p
		c.payments[id] = &pay
	}
	return c
}

type memTx struct {
	s *memStore
}

func (t *memTx) HasActiveRegistration(userID, eventID int) (bool, error) {
	for _, r := range t.s.registrations {
		if r.userID == userID && r.eventID == eventID && r.status == "Active" {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) LockEvent(eventID int) (EventSlot, bool, error) {
	e, ok := t.s.events[eventID]
	if !ok || e.date.Before(startOfDay(t.s.now())) {
		return EventSlot{}, false, nil
	}
	return EventSlot{Fee: e.fee, Capacity: e.capacity}, true, nil
}

func (t *memTx) CancelledRegistrationID(userID, eventID int) (int, bool, error) {
	for _, r := range t.s.registrations {
		if r.userID == userID && r.eventID == eventID && r.status == "Cancelled" {
			return r.id, true, nil
		}
	}
	return 0, false, nil
}

func (t *memTx) ReactivateRegistration(registrationID int) error {
	r := t.s.registrations[registrationID]
	r.status = "Active"
	r.reason = ""
	return nil
}

func (t *memTx) ResetPaymentToPending(registrationID int) error {
	for _, p := range t.s.payments {
		if p.regID == registrationID && p.status == "Cancelled" {
			p.status = "Pending"
		}
	}
	return nil
}

func (t *memTx) InsertRegistration(userID, eventID int) (int, error) {
	id := t.s.nextRegID
	t.s.nextRegID++
	t.s.registrations[id] = &memRegistration{id: id, userID: userID, eventID: eventID, status: "Active"}
	return id, nil
}

func (t *memTx) InsertPayment(registrationID int, amount decimal.Decimal) error {
	id := t.s.nextPayID
	t.s.nextPayID++
	t.s.payments[id] = &memPayment{id: id, regID: registrationID, amount: amount, status: "Pending"}
	return nil
}

func (t *memTx) TakeSeat(eventID int) (bool, error) {
	e := t.s.events[eventID]
	if e == nil || e.capacity <= 0 {
		return false, nil
	}
	e.capacity--
	return true, nil
}

func (t *memTx) ReleaseSeat(eventID int) error {
	t.s.events[eventID].capacity++
	return nil
}

func (t *memTx) LockRegistrationForCancel(registrationID, userID int) (CancelTarget, bool, error) {
	r, ok := t.s.registrations[registrationID]
	if !ok || r.userID != userID || r.status != "Active" {
		return CancelTarget{}, false, nil
	}
	return CancelTarget{EventID: r.eventID, EventDate: t.s.events[r.eventID].date}, true, nil
}

func (t *memTx) MarkRegistrationCancelled(registrationID int, reason string) error {
	r := t.s.registrations[registrationID]
	r.status = "Cancelled"
	r.reason = reason
	return nil
}

func (t *memTx) CancelPendingPayment(registrationID int) error {
	for _, p := range t.s.payments {
		if p.regID == registrationID && p.status == "Pending" {
			p.status = "Cancelled"
		}
	}
	return nil
}

func (t *memTx) CompletePayment(paymentID, userID int) (bool, error) {
	p, ok := t.s.payments[paymentID]
	if !ok || p.status != "Pending" {
		return false, nil
	}
	r, ok := t.s.registrations[p.regID]
	if !ok || r.userID != userID || r.status != "Active" {
		return false, nil
	}
	p.status = "Completed"
	return true, nil
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestService(store *memStore) *RegistrationService {
	svc := NewRegistrationService(store, testLogger())
	svc.now = store.now
	return svc
}

func tomorrow() time.Time {
	return time.Now().AddDate(0, 0, 1)
}

func yesterday() time.Time {
	return time.Now().AddDate(0, 0, -1)
}

func TestRegisterCreatesRegistrationAndPendingPayment(t *testing.T) {
	store := newMemStore()
	fee := decimal.NewFromFloat(25.50)
	store.addEvent(1, tomorrow(), fee, 10)
	svc := newTestService(store)

	res, err := svc.Register(context.Background(), 7, 1)
	require.NoError(t, err)

	assert.False(t, res.Reactivated)
	assert.True(t, res.Amount.Equal(fee))
	assert.Equal(t, 9, store.events[1].capacity)

	reg := store.registrations[res.RegistrationID]
	require.NotNil(t, reg)
	assert.Equal(t, "Active", reg.status)

	var payments []*memPayment
	for _, p := range store.payments {
		if p.regID == res.RegistrationID {
			payments = append(payments, p)
		}
	}
	require.Len(t, payments, 1)
	assert.Equal(t, "Pending", payments[0].status)
	assert.True(t, payments[0].amount.Equal(fee))
}

func TestRegisterRejectsDuplicateActive(t *testing.T) {
	store := newMemStore()
	store.addEvent(1, tomorrow(), decimal.NewFromInt(10), 5)
	svc := newTestService(store)

	_, err := svc.Register(context.Background(), 7, 1)
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), 7, 1)
	assert.ErrorIs(t, err, ErrAlreadyRegistered)
	assert.Equal(t, 4, store.events[1].capacity)
}

func TestRegisterRejectsFullEvent(t *testing.T) {
	store := newMemStore()
	store.addEvent(1, tomorrow(), decimal.NewFromInt(10), 0)
	svc := newTestService(store)

	_, err := svc.Register(context.Background(), 7, 1)
	assert.ErrorIs(t, err, ErrEventFull)
}

func TestRegisterRejectsMissingOrPastEvent(t *testing.T) {
	store := newMemStore()
	store.addEvent(2, yesterday(), decimal.NewFromInt(10), 5)
	svc := newTestService(store)

	_, err := svc.Register(context.Background(), 7, 99)
	assert.ErrorIs(t, err, ErrEventUnavailable)

	_, err = svc.Register(context.Background(), 7, 2)
	assert.ErrorIs(t, err, ErrEventUnavailable)
}

func TestRegisterReactivatesCancelledRegistration(t *testing.T) {
	store := newMemStore()
	store.addEvent(1, tomorrow(), decimal.NewFromInt(10), 5)
	svc := newTestService(store)
	ctx := context.Background()

	first, err := svc.Register(ctx, 7, 1)
	require.NoError(t, err)
	require.NoError(t, svc.Cancel(ctx, 7, first.RegistrationID, "schedule conflict"))
	assert.Equal(t, 5, store.events[1].capacity)

	second, err := svc.Register(ctx, 7, 1)
	require.NoError(t, err)

	assert.True(t, second.Reactivated)
	assert.Equal(t, first.RegistrationID, second.RegistrationID, "reactivation must reuse the cancelled row")
	assert.Len(t, store.registrations, 1)
	assert.Equal(t, "Active", store.registrations[first.RegistrationID].status)
	assert.Empty(t, store.registrations[first.RegistrationID].reason)
	assert.Equal(t, 4, store.events[1].capacity)

	for _, p := range store.payments {
		if p.regID == first.RegistrationID {
			assert.Equal(t, "Pending", p.status, "payment must be reset to Pending on reactivation")
		}
	}
	assert.Len(t, store.payments, 1, "reactivation must not create a second payment")
}

func TestConcurrentRegistrationsOneSeat(t *testing.T) {
	store := newMemStore()
	store.addEvent(1, tomorrow(), decimal.NewFromInt(10), 1)
	svc := newTestService(store)

	const attempts = 50
	var successes, fullRejections, unexpected int32
	var wg sync.WaitGroup
	wg.Add(attempts)
	for i := 0; i < attempts; i++ {
		go func(userID int) {
			defer wg.Done()
			_, err := svc.Register(context.Background(), userID, 1)
			switch {
			case err == nil:
				atomic.AddInt32(&successes, 1)
			case err == ErrEventFull:
				atomic.AddInt32(&fullRejections, 1)
			default:
				atomic.AddInt32(&unexpected, 1)
			}
		}(i + 1)
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes, "exactly one registration must win the last seat")
	assert.Equal(t, int32(attempts-1), fullRejections)
	assert.Equal(t, int32(0), unexpected)
	assert.Equal(t, 0, store.events[1].capacity)

	active := 0
	for _, r := range store.registrations {
		if r.status == "Active" {
			active++
		}
	}
	assert.Equal(t, 1, active)
}

func TestCancelRestoresSeatAndCancelsPayment(t *testing.T) {
	store := newMemStore()
	store.addEvent(1, tomorrow(), decimal.NewFromInt(10), 5)
	svc := newTestService(store)
	ctx := context.Background()

	res, err := svc.Register(ctx, 7, 1)
	require.NoError(t, err)
	require.Equal(t, 4, store.events[1].capacity)

	require.NoError(t, svc.Cancel(ctx, 7, res.RegistrationID, "can't make it"))

	assert.Equal(t, 5, store.events[1].capacity)
	reg := store.registrations[res.RegistrationID]
	assert.Equal(t, "Cancelled", reg.status)
	assert.Equal(t, "can't make it", reg.reason)
	for _, p := range store.payments {
		if p.regID == res.RegistrationID {
			assert.Equal(t, "Cancelled", p.status)
		}
	}
}

func TestCancelRequiresReason(t *testing.T) {
	store := newMemStore()
	store.addEvent(1, tomorrow(), decimal.NewFromInt(10), 5)
	svc := newTestService(store)
	ctx := context.Background()

	res, err := svc.Register(ctx, 7, 1)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Cancel(ctx, 7, res.RegistrationID, ""), ErrReasonRequired)
	assert.ErrorIs(t, svc.Cancel(ctx, 7, res.RegistrationID, "   "), ErrReasonRequired)
	assert.Equal(t, "Active", store.registrations[res.RegistrationID].status)
}

func TestCancelRejectsCompletedEvents(t *testing.T) {
	store := newMemStore()
	store.addEvent(1, tomorrow(), decimal.NewFromInt(10), 5)
	svc := newTestService(store)
	ctx := context.Background()

	res, err := svc.Register(ctx, 7, 1)
	require.NoError(t, err)

	// The event date slips into the past after registration.
	store.events[1].date = yesterday()

	assert.ErrorIs(t, svc.Cancel(ctx, 7, res.RegistrationID, "too late"), ErrEventCompleted)
	assert.Equal(t, "Active", store.registrations[res.RegistrationID].status)
	assert.Equal(t, 4, store.events[1].capacity, "failed cancel must not release the seat")
}

func TestCancelUnknownOrForeignRegistration(t *testing.T) {
	store := newMemStore()
	store.addEvent(1, tomorrow(), decimal.NewFromInt(10), 5)
	svc := newTestService(store)
	ctx := context.Background()

	res, err := svc.Register(ctx, 7, 1)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Cancel(ctx, 7, 999, "nope"), ErrRegistrationNotFound)
	assert.ErrorIs(t, svc.Cancel(ctx, 8, res.RegistrationID, "not mine"), ErrRegistrationNotFound)

	require.NoError(t, svc.Cancel(ctx, 7, res.RegistrationID, "done"))
	assert.ErrorIs(t, svc.Cancel(ctx, 7, res.RegistrationID, "again"), ErrRegistrationNotFound)
	assert.Equal(t, 5, store.events[1].capacity, "double cancel must not release a second seat")
}

func TestCompletePayment(t *testing.T) {
	store := newMemStore()
	store.addEvent(1, tomorrow(), decimal.NewFromInt(10), 5)
	svc := newTestService(store)
	ctx := context.Background()

	res, err := svc.Register(ctx, 7, 1)
	require.NoError(t, err)

	var paymentID int
	for _, p := range store.payments {
		if p.regID == res.RegistrationID {
			paymentID = p.id
		}
	}
	require.NotZero(t, paymentID)

	require.NoError(t, svc.CompletePayment(ctx, 7, paymentID))
	assert.Equal(t, "Completed", store.payments[paymentID].status)
	assert.Equal(t, 4, store.events[1].capacity, "completing payment must not touch capacity")

	// A second complete finds no Pending payment.
	assert.ErrorIs(t, svc.CompletePayment(ctx, 7, paymentID), ErrPaymentNotFound)
}

func TestCompletePaymentChecksOwnershipAndStatus(t *testing.T) {
	store := newMemStore()
	store.addEvent(1, tomorrow(), decimal.NewFromInt(10), 5)
	svc := newTestService(store)
	ctx := context.Background()

	res, err := svc.Register(ctx, 7, 1)
	require.NoError(t, err)
	var paymentID int
	for _, p := range store.payments {
		if p.regID == res.RegistrationID {
			paymentID = p.id
		}
	}

	assert.ErrorIs(t, svc.CompletePayment(ctx, 8, paymentID), ErrPaymentNotFound)

	require.NoError(t, svc.Cancel(ctx, 7, res.RegistrationID, "changed my mind"))
	assert.ErrorIs(t, svc.CompletePayment(ctx, 7, paymentID), ErrPaymentNotFound,
		"a cancelled registration's payment cannot be completed")
}

func TestCapacityNeverExceedsInitial(t *testing.T) {
	store := newMemStore()
	const initial = 3
	store.addEvent(1, tomorrow(), decimal.NewFromInt(10), initial)
	svc := newTestService(store)
	ctx := context.Background()

	for userID := 1; userID <= 5; userID++ {
		res, err := svc.Register(ctx, userID, 1)
		if err != nil {
			continue
		}
		require.NoError(t, svc.Cancel(ctx, userID, res.RegistrationID, "round trip"))
		assert.GreaterOrEqual(t, store.events[1].capacity, 0)
		assert.LessOrEqual(t, store.events[1].capacity, initial)
	}
	assert.Equal(t, initial, store.events[1].capacity)
}
