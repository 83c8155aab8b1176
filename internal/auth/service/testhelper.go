package service

import "time"

// SetGenerateOTP overrides code generation. Tests use it to make activation
// codes predictable.
func (s *AuthService) SetGenerateOTP(f func() (string, error)) {
	s.generateOTP = f
}

// SetNow overrides the service clock for expiry tests.
func (s *AuthService) SetNow(nowF func() time.Time) {
	s.nowF = nowF
}
