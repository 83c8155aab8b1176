// Package mailer delivers OTP notification events as email over SMTP.
// Used by cmd/worker, never by request handlers.
package mailer

import (
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"user-auth-service/internal/notification"
)

// Mailer sends activation-code mail for notification events.
type Mailer struct {
	addr string // host:port
	from string
	auth smtp.Auth
	// sendF is swappable in tests; defaults to smtp.SendMail.
	sendF func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// New returns a Mailer for the given SMTP server. username may be empty for
// unauthenticated relays (e.g. a local maildev instance).
func New(addr, from, username, password string) *Mailer {
	var auth smtp.Auth
	if username != "" {
		host := addr
		if i := strings.IndexByte(addr, ':'); i >= 0 {
			host = addr[:i]
		}
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &Mailer{addr: addr, from: from, auth: auth, sendF: smtp.SendMail}
}

// Send mails the event's OTP to its recipient. Unknown event names are
// rejected so a bad producer shows up in worker logs instead of sending
// half-rendered mail.
func (m *Mailer) Send(event *notification.Event) error {
	if event == nil || event.Email == "" {
		return errors.New("mailer: event has no recipient")
	}

	var subject string
	switch event.Name {
	case notification.EventUserCreated:
		subject = "Activate your account"
	case notification.EventOTPResend:
		subject = "Your new activation code"
	default:
		return fmt.Errorf("mailer: unknown event %q", event.Name)
	}

	msg := buildMessage(m.from, event.Email, subject, body(event))
	return m.sendF(m.addr, m.auth, m.from, []string{event.Email}, msg)
}

func body(event *notification.Event) string {
	name := event.User
	if name == "" {
		name = "there"
	}
	return fmt.Sprintf(
		"Hi %s,\r\n\r\nYour activation code is %s. It expires in 5 minutes.\r\n\r\nIf you did not request this, you can ignore this mail.\r\n",
		name, event.OTP,
	)
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
