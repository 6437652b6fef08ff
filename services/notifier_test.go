package services

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMailer(queueSize int, deliver func(Email) error) *Mailer {
	m := &Mailer{
		queue: make(chan Email, queueSize),
		log:   testLogger(),
	}
	m.deliver = deliver
	m.wg.Add(1)
	go m.run()
	return m
}

func TestMailerDeliversQueuedEmails(t *testing.T) {
	var mu sync.Mutex
	var delivered []Email
	m := newTestMailer(8, func(e Email) error {
		mu.Lock()
		defer mu.Unlock()
		delivered = append(delivered, e)
		return nil
	})

	m.Send("a@example.com", "subject a", "body a")
	m.Send("b@example.com", "subject b", "body b")
	m.Close()

	require.Len(t, delivered, 2)
	assert.Equal(t, "a@example.com", delivered[0].To)
	assert.Equal(t, "subject b", delivered[1].Subject)
}

func TestMailerDropsWhenQueueFull(t *testing.T) {
	block := make(chan struct{})
	var mu sync.Mutex
	var delivered []Email
	m := newTestMailer(1, func(e Email) error {
		<-block
		mu.Lock()
		defer mu.Unlock()
		delivered = append(delivered, e)
		return nil
	})

	// First email is picked up by the worker and blocks in delivery, the
	// second fills the queue, the third has nowhere to go.
	m.Send("first@example.com", "s", "b")
	m.Send("second@example.com", "s", "b")
	m.Send("third@example.com", "s", "b")

	close(block)
	m.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.LessOrEqual(t, len(delivered), 2, "the overflowing email must be dropped, not queued")
	assert.GreaterOrEqual(t, len(delivered), 1)
}

func TestMailerSwallowsDeliveryFailures(t *testing.T) {
	calls := 0
	m := newTestMailer(8, func(e Email) error {
		calls++
		if calls == 1 {
			return errors.New("smtp connection refused")
		}
		return nil
	})

	m.Send("fail@example.com", "s", "b")
	m.Send("ok@example.com", "s", "b")
	m.Close()

	assert.Equal(t, 2, calls, "a failed delivery must not stop the worker")
}
