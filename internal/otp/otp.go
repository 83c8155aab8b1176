// Package otp generates the one-time codes that gate account activation.
package otp

import (
	"crypto/rand"
	"time"
)

const otpDigits = 6

// TTL is how long a code stays valid after issuance.
const TTL = 5 * time.Minute

// Generate returns a uniformly random 6-digit numeric code (e.g. "482913").
// Uses crypto/rand for randomness.
func Generate() (string, error) {
	s := make([]byte, otpDigits)
	for i := 0; i < otpDigits; i++ {
		b := make([]byte, 1)
		for {
			if _, err := rand.Read(b); err != nil {
				return "", err
			}
			// Rejection sampling keeps each digit uniform.
			if b[0] < 250 {
				break
			}
		}
		s[i] = '0' + (b[0] % 10)
	}
	return string(s), nil
}
