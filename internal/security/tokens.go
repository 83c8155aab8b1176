package security

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verification failures. Handlers treat all three as Unauthorized; they are
// distinct so logs and tests can tell a forged token from a stale one.
var (
	// ErrTokenMalformed is returned when a token cannot be parsed at all.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrSignatureInvalid is returned when the signature does not verify under the expected secret.
	ErrSignatureInvalid = errors.New("token signature invalid")
	// ErrTokenExpired is returned when the token parsed and verified but its exp has passed.
	ErrTokenExpired = errors.New("token expired")
)

// Claims is the payload carried by both access and refresh tokens.
// Subject is the user id (decimal string), ID is the session id (jti).
// Name and Role are set on access tokens only.
type Claims struct {
	jwt.RegisteredClaims
	Name string `json:"name,omitempty"`
	Role string `json:"role,omitempty"`
}

// UserID parses the sub claim as the owning user id. Returns 0, false if the
// claim is missing or not numeric.
func (c *Claims) UserID() (int64, bool) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// SessionID returns the jti claim binding the token to a session row.
func (c *Claims) SessionID() string {
	return c.ID
}

// TokenCodec issues and verifies HS256 JWT access and refresh tokens.
// The two token kinds are signed with distinct secrets so a leaked refresh
// secret cannot forge access tokens and vice versa.
type TokenCodec struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	accessTTL     time.Duration
	refreshTTL    time.Duration
	nowF          func() time.Time
}

// NewTokenCodec returns a TokenCodec signing with the given secrets.
// accessTTL should be short (minutes), refreshTTL long (days).
func NewTokenCodec(accessSecret, refreshSecret []byte, issuer string, accessTTL, refreshTTL time.Duration) *TokenCodec {
	return &TokenCodec{
		accessSecret:  accessSecret,
		refreshSecret: refreshSecret,
		issuer:        issuer,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		nowF:          func() time.Time { return time.Now().UTC() },
	}
}

// AccessTTL returns the configured access token lifetime.
func (c *TokenCodec) AccessTTL() time.Duration { return c.accessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (c *TokenCodec) RefreshTTL() time.Duration { return c.refreshTTL }

// IssueAccess issues a short-lived access token bound to sessionID.
// Returns the signed token and its expiration time.
func (c *TokenCodec) IssueAccess(userID int64, sessionID, name, role string) (string, time.Time, error) {
	now := c.nowF()
	expiresAt := now.Add(c.accessTTL)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Name: name,
		Role: role,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.accessSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// IssueRefresh issues a long-lived refresh token bound to the same sessionID
// as its access counterpart, signed with the refresh secret.
func (c *TokenCodec) IssueRefresh(userID int64, sessionID string) (string, time.Time, error) {
	now := c.nowF()
	expiresAt := now.Add(c.refreshTTL)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.refreshSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// VerifyAccess checks the token's signature and expiry under the access secret.
func (c *TokenCodec) VerifyAccess(tokenString string) (*Claims, error) {
	return c.verify(tokenString, c.accessSecret)
}

// VerifyRefresh checks the token's signature and expiry under the refresh secret.
func (c *TokenCodec) VerifyRefresh(tokenString string) (*Claims, error) {
	return c.verify(tokenString, c.refreshSecret)
}

func (c *TokenCodec) verify(tokenString string, secret []byte) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.nowF),
	)
	token, err := parser.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrSignatureInvalid
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrTokenMalformed
		default:
			return nil, ErrSignatureInvalid
		}
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrSignatureInvalid
	}
	if c.issuer != "" && claims.Issuer != c.issuer {
		return nil, ErrSignatureInvalid
	}
	return claims, nil
}

// Decode reads the token's claims WITHOUT verifying signature or expiry.
// It must never be treated as proof of authenticity. Used only for
// housekeeping, e.g. recovering the session id during logout so the row can
// be deleted even when the access token has already expired.
func (c *TokenCodec) Decode(tokenString string) (*Claims, error) {
	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(tokenString, &Claims{})
	if err != nil {
		return nil, ErrTokenMalformed
	}
	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}
