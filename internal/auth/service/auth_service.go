package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"user-auth-service/internal/auth/clientinfo"
	"user-auth-service/internal/notification"
	"user-auth-service/internal/otp"
	otpdomain "user-auth-service/internal/otp/domain"
	"user-auth-service/internal/security"
	sessiondomain "user-auth-service/internal/session/domain"
	"user-auth-service/internal/session/validator"
	userdomain "user-auth-service/internal/user/domain"
)

// Sentinel errors for the auth service; handlers map them to HTTP statuses.
var (
	ErrEmailExists        = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountInactive    = errors.New("account is not activated")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrSessionRevoked     = errors.New("session revoked or expired")
	ErrInvalidOTP         = errors.New("invalid otp")
	ErrOTPExpired         = errors.New("otp expired")
	ErrAlreadyActivated   = errors.New("account already activated")
	ErrUserNotFound       = errors.New("user not found")
)

// TokenPair is the access/refresh pair returned by login and refresh. Both
// tokens carry the same jti and die together when that session is deleted.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// UserRepo is the minimal user repository needed by the auth service.
type UserRepo interface {
	GetByID(ctx context.Context, id int64) (*userdomain.User, error)
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
	Create(ctx context.Context, u *userdomain.User) (int64, error)
	Activate(ctx context.Context, id int64, updatedAt time.Time) error
	UpdatePassword(ctx context.Context, id int64, hashPassword string, updatedAt time.Time) error
}

// SessionRepo is the minimal session repository needed by the auth service.
type SessionRepo interface {
	GetByID(ctx context.Context, id string) (*sessiondomain.Session, error)
	GetByIDAndUser(ctx context.Context, id string, userID int64) (*sessiondomain.Session, error)
	ListByUser(ctx context.Context, userID int64) ([]*sessiondomain.Session, error)
	Create(ctx context.Context, s *sessiondomain.Session) error
	UpdateExpiries(ctx context.Context, id string, accessExpiresAt, refreshExpiresAt, updatedAt time.Time) error
	Delete(ctx context.Context, id string) error
	DeleteByUser(ctx context.Context, userID int64) (int64, error)
}

// OTPRepo is the minimal OTP repository needed by the auth service.
type OTPRepo interface {
	GetByCodeAndUser(ctx context.Context, code string, userID int64) (*otpdomain.OtpCode, error)
	Replace(ctx context.Context, c *otpdomain.OtpCode) error
	Delete(ctx context.Context, id int64) error
}

// AuthService implements registration with OTP activation, login, refresh,
// the logout variants, and password change.
type AuthService struct {
	users    UserRepo
	sessions SessionRepo
	otps     OTPRepo
	hasher   *security.Hasher
	codec    *security.TokenCodec
	emitter  notification.Emitter
	// whitelist mirrors issued jtis for the cache validator; nil when the
	// deployment validates against the store only.
	whitelist   validator.Whitelist
	generateOTP func() (string, error)
	nowF        func() time.Time
}

// NewAuthService returns an AuthService with the given dependencies.
// emitter and whitelist may be nil (notifications disabled / store-only validation).
func NewAuthService(
	users UserRepo,
	sessions SessionRepo,
	otps OTPRepo,
	hasher *security.Hasher,
	codec *security.TokenCodec,
	emitter notification.Emitter,
	whitelist validator.Whitelist,
) *AuthService {
	return &AuthService{
		users:       users,
		sessions:    sessions,
		otps:        otps,
		hasher:      hasher,
		codec:       codec,
		emitter:     emitter,
		whitelist:   whitelist,
		generateOTP: otp.Generate,
		nowF:        func() time.Time { return time.Now().UTC() },
	}
}

// Register creates an inactive user with the given email and password and
// sends the activation code. The user exists but cannot log in until the code
// is verified. Returns ErrEmailExists when the email is taken.
func (s *AuthService) Register(ctx context.Context, email, name, password string) (*userdomain.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailExists
	}

	hashed, err := s.hasher.Hash([]byte(password))
	if err != nil {
		return nil, err
	}
	now := s.nowF()
	user := &userdomain.User{
		Email:        email,
		Name:         strings.TrimSpace(name),
		Role:         userdomain.RoleUser,
		HashPassword: hashed,
		IsActive:     false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}
	id, err := s.users.Create(ctx, user)
	if err != nil {
		return nil, err
	}
	user.ID = id

	if err := s.issueOTP(ctx, user, notification.EventUserCreated); err != nil {
		return nil, err
	}
	return user, nil
}

// Login authenticates with email/password, creates a session carrying the
// client metadata, and returns a token pair bound to the new session id.
// Inactive accounts cannot log in.
func (s *AuthService) Login(ctx context.Context, email, password string, client clientinfo.Info) (*TokenPair, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || user.HashPassword == "" {
		return nil, ErrInvalidCredentials
	}
	if err := s.hasher.Compare(user.HashPassword, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountInactive
	}

	sessionID := uuid.New().String()
	access, accessExp, err := s.codec.IssueAccess(user.ID, sessionID, user.Name, string(user.Role))
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := s.codec.IssueRefresh(user.ID, sessionID)
	if err != nil {
		return nil, err
	}

	now := s.nowF()
	sess := &sessiondomain.Session{
		ID:               sessionID,
		UserID:           user.ID,
		IP:               client.IP,
		DeviceName:       client.DeviceName,
		Browser:          client.Browser,
		OS:               client.OS,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	// Expiries land in the same insert as the row itself, so a caller that
	// aborts mid-login leaves either a complete session or none.
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, err
	}

	s.whitelistPair(ctx, sessionID, accessExp, refreshExp)
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh verifies the refresh token, extends the bound session, and mints a
// fresh pair under the same session id. A deleted session never comes back:
// refresh against it fails with ErrSessionRevoked.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.codec.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, ErrInvalidToken
	}
	userID, ok := claims.UserID()
	if !ok || claims.SessionID() == "" {
		return nil, ErrInvalidToken
	}

	sess, err := s.sessions.GetByID(ctx, claims.SessionID())
	if err != nil {
		return nil, err
	}
	if sess == nil || sess.UserID != userID {
		return nil, ErrSessionRevoked
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrSessionRevoked
	}

	access, accessExp, err := s.codec.IssueAccess(user.ID, sess.ID, user.Name, string(user.Role))
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := s.codec.IssueRefresh(user.ID, sess.ID)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.UpdateExpiries(ctx, sess.ID, accessExp, refreshExp, s.nowF()); err != nil {
		return nil, err
	}

	s.whitelistPair(ctx, sess.ID, accessExp, refreshExp)
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Logout deletes the session bound to the presented access token. The token
// is decoded, not verified, so an already-expired token can still log out its
// session. A missing session means the client is already logged out.
func (s *AuthService) Logout(ctx context.Context, accessToken string) error {
	claims, err := s.codec.Decode(accessToken)
	if err != nil {
		return ErrInvalidToken
	}
	jti := claims.SessionID()
	if jti == "" {
		return ErrInvalidToken
	}

	sess, err := s.sessions.GetByID(ctx, jti)
	if err != nil {
		return err
	}
	if sess == nil {
		return ErrSessionRevoked
	}
	if err := s.sessions.Delete(ctx, sess.ID); err != nil {
		return err
	}
	s.purgePair(ctx, sess.ID)
	return nil
}

// LogoutDevice deletes one session scoped to its owning user, so one user
// cannot delete another user's session by guessing ids.
func (s *AuthService) LogoutDevice(ctx context.Context, userID int64, sessionID string) error {
	sess, err := s.sessions.GetByIDAndUser(ctx, sessionID, userID)
	if err != nil {
		return err
	}
	if sess == nil {
		return ErrSessionRevoked
	}
	if err := s.sessions.Delete(ctx, sess.ID); err != nil {
		return err
	}
	s.purgePair(ctx, sess.ID)
	return nil
}

// LogoutAll deletes every session owned by the user ("sign out everywhere").
func (s *AuthService) LogoutAll(ctx context.Context, userID int64) error {
	sessions, err := s.sessions.ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	if _, err := s.sessions.DeleteByUser(ctx, userID); err != nil {
		return err
	}
	for _, sess := range sessions {
		s.purgePair(ctx, sess.ID)
	}
	return nil
}

// Sessions lists the user's active sessions, newest first.
func (s *AuthService) Sessions(ctx context.Context, userID int64) ([]*sessiondomain.Session, error) {
	return s.sessions.ListByUser(ctx, userID)
}

// VerifyOTP activates the account identified by email when code matches its
// live OTP row. The row is consumed: verifying the same code twice fails.
func (s *AuthService) VerifyOTP(ctx context.Context, email, code string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrInvalidOTP
	}

	row, err := s.otps.GetByCodeAndUser(ctx, code, user.ID)
	if err != nil {
		return err
	}
	if row == nil {
		return ErrInvalidOTP
	}
	if row.ExpiresAt.Before(s.nowF()) {
		return ErrOTPExpired
	}

	if err := s.users.Activate(ctx, user.ID, s.nowF()); err != nil {
		return err
	}
	return s.otps.Delete(ctx, row.ID)
}

// ResendCode issues a fresh activation code, superseding any in-flight one.
// Fails with ErrAlreadyActivated for accounts that no longer need a code.
func (s *AuthService) ResendCode(ctx context.Context, email string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrInvalidCredentials
	}
	if user.IsActive {
		return ErrAlreadyActivated
	}
	return s.issueOTP(ctx, user, notification.EventOTPResend)
}

// ChangePassword verifies the old password and replaces the stored hash.
func (s *AuthService) ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}
	if err := s.hasher.Compare(user.HashPassword, []byte(oldPassword)); err != nil {
		return ErrInvalidCredentials
	}
	hashed, err := s.hasher.Hash([]byte(newPassword))
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, userID, hashed, s.nowF())
}

// issueOTP replaces the user's live code and emits the notification event.
// Emission is fire-and-forget; the code row stands even if the send fails.
func (s *AuthService) issueOTP(ctx context.Context, user *userdomain.User, eventName string) error {
	code, err := s.generateOTP()
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}
	now := s.nowF()
	row := &otpdomain.OtpCode{
		Code:      code,
		UserID:    user.ID,
		ExpiresAt: now.Add(otp.TTL),
		CreatedAt: now,
	}
	if err := s.otps.Replace(ctx, row); err != nil {
		return err
	}

	notification.EmitAsync(s.emitter, ctx, &notification.Event{
		Name:  eventName,
		Email: user.Email,
		User:  user.Name,
		OTP:   code,
	})
	return nil
}

// whitelistPair mirrors both token ids into the cache with TTLs equal to
// their remaining lifetimes. Best-effort: the session row stays authoritative.
func (s *AuthService) whitelistPair(ctx context.Context, jti string, accessExp, refreshExp time.Time) {
	if s.whitelist == nil {
		return
	}
	now := s.nowF()
	if ttl := accessExp.Sub(now); ttl > 0 {
		if err := s.whitelist.Put(ctx, validator.AccessKey(jti), ttl); err != nil {
			log.Printf("auth: whitelist access token: %v", err)
		}
	}
	if ttl := refreshExp.Sub(now); ttl > 0 {
		if err := s.whitelist.Put(ctx, validator.RefreshKey(jti), ttl); err != nil {
			log.Printf("auth: whitelist refresh token: %v", err)
		}
	}
}

// purgePair removes both whitelist entries for a deleted session. A missed
// purge leaves the token passing cache checks until natural expiry, a bounded
// window; the error is logged so the gap is visible.
func (s *AuthService) purgePair(ctx context.Context, jti string) {
	if s.whitelist == nil {
		return
	}
	if err := s.whitelist.Remove(ctx, validator.AccessKey(jti), validator.RefreshKey(jti)); err != nil {
		log.Printf("auth: purge whitelist for session %s: %v", jti, err)
	}
}
