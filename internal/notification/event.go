// Package notification carries OTP mail events from the auth service to the
// asynchronous mail worker. Emission is fire-and-forget: the enclosing request
// never waits on, or fails because of, delivery.
package notification

import "context"

// Event names understood by the mail worker.
const (
	EventUserCreated = "user_created"
	EventOTPResend   = "otp_resend"
)

// Event is one outbound notification. OTP is the plaintext code being mailed;
// events must never be logged with their OTP field.
type Event struct {
	Name  string `json:"event"`
	Email string `json:"email"`
	User  string `json:"name"`
	OTP   string `json:"otp"`
}

// Emitter emits notification events (e.g. to Kafka). Best-effort; callers log
// and ignore errors.
type Emitter interface {
	Emit(ctx context.Context, event *Event) error
}
