package services

import (
	"net/smtp"
	"sync"

	"github.com/sirupsen/logrus"

	"event-manager/monitoring"
)

// Email is one queued notification.
type Email struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers notifications off the request path through a bounded
// queue drained by a single worker. Enqueueing never blocks: when the queue
// is full the email is dropped and logged. Delivery failures are logged and
// never surface to the user.
type Mailer struct {
	host     string
	port     string
	from     string
	password string

	queue chan Email
	wg    sync.WaitGroup
	log   *logrus.Logger

	// deliver is swapped out in tests.
	deliver func(Email) error
}

func NewMailer(host, port, from, password string, queueSize int, log *logrus.Logger) *Mailer {
	if queueSize <= 0 {
		queueSize = 64
	}
	m := &Mailer{
		host:     host,
		port:     port,
		from:     from,
		password: password,
		queue:    make(chan Email, queueSize),
		log:      log,
	}
	m.deliver = m.smtpDeliver
	m.wg.Add(1)
	go m.run()
	return m
}

// Send queues an email, best-effort. It is safe to call from request
// handlers after a transaction commits; the outcome never affects the
// caller.
func (m *Mailer) Send(to, subject, body string) {
	select {
	case m.queue <- Email{To: to, Subject: subject, Body: body}:
		monitoring.TrackEmail("queued")
	default:
		monitoring.TrackEmail("dropped")
		m.log.WithField("to", to).Warn("mail queue full, notification dropped")
	}
}

// Close stops accepting new mail and waits for the queue to drain.
func (m *Mailer) Close() {
	close(m.queue)
	m.wg.Wait()
}

func (m *Mailer) run() {
	defer m.wg.Done()
	for e := range m.queue {
		if err := m.deliver(e); err != nil {
			monitoring.TrackEmail("failed")
			m.log.WithError(err).WithField("to", e.To).Error("failed to send email")
			continue
		}
		monitoring.TrackEmail("sent")
	}
}

func (m *Mailer) smtpDeliver(e Email) error {
	auth := smtp.PlainAuth("", m.from, m.password, m.host)
	msg := []byte("To: " + e.To + "\r\n" +
		"Subject: " + e.Subject + "\r\n" +
		"\r\n" + e.Body + "\r\n")
	return smtp.SendMail(m.host+":"+m.port, auth, m.from, []string{e.To}, msg)
}
