package security

import "time"

// NewTestTokenCodec returns a TokenCodec with fixed test secrets and short
// lifetimes, for use in tests across packages.
func NewTestTokenCodec() *TokenCodec {
	return NewTokenCodec(
		[]byte("test-access-secret"),
		[]byte("test-refresh-secret"),
		"user-auth-service-test",
		15*time.Minute,
		168*time.Hour,
	)
}

// SetNow overrides the codec's clock. Tests use it to issue tokens in the past
// or verify after a simulated delay.
func (c *TokenCodec) SetNow(nowF func() time.Time) {
	c.nowF = nowF
}
