package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"user-auth-service/internal/auth/clientinfo"
	"user-auth-service/internal/notification"
	otpdomain "user-auth-service/internal/otp/domain"
	"user-auth-service/internal/security"
	sessiondomain "user-auth-service/internal/session/domain"
	"user-auth-service/internal/session/validator"
	userdomain "user-auth-service/internal/user/domain"
)

// ---- in-memory fakes ----

type memUsers struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*userdomain.User
}

func newMemUsers() *memUsers {
	return &memUsers{nextID: 1, users: map[int64]*userdomain.User{}}
}

func (m *memUsers) GetByID(_ context.Context, id int64) (*userdomain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*userdomain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memUsers) Create(_ context.Context, u *userdomain.User) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	cp := *u
	cp.ID = id
	m.users[id] = &cp
	return id, nil
}

func (m *memUsers) Activate(_ context.Context, id int64, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.IsActive = true
		u.UpdatedAt = updatedAt
	}
	return nil
}

func (m *memUsers) UpdatePassword(_ context.Context, id int64, hashPassword string, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.HashPassword = hashPassword
		u.UpdatedAt = updatedAt
	}
	return nil
}

type memSessions struct {
	mu       sync.Mutex
	sessions map[string]*sessiondomain.Session
}

func newMemSessions() *memSessions {
	return &memSessions{sessions: map[string]*sessiondomain.Session{}}
}

func (m *memSessions) GetByID(_ context.Context, id string) (*sessiondomain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *memSessions) GetByIDAndUser(_ context.Context, id string, userID int64) (*sessiondomain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.UserID != userID {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *memSessions) ListByUser(_ context.Context, userID int64) ([]*sessiondomain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*sessiondomain.Session
	for _, s := range m.sessions {
		if s.UserID == userID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memSessions) Create(_ context.Context, s *sessiondomain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *memSessions) UpdateExpiries(_ context.Context, id string, accessExpiresAt, refreshExpiresAt, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		s.AccessExpiresAt = accessExpiresAt
		s.RefreshExpiresAt = refreshExpiresAt
		s.UpdatedAt = updatedAt
	}
	return nil
}

func (m *memSessions) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *memSessions) DeleteByUser(_ context.Context, userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, s := range m.sessions {
		if s.UserID == userID {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

func (m *memSessions) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

type memOTPs struct {
	mu     sync.Mutex
	nextID int64
	codes  map[int64]*otpdomain.OtpCode
}

func newMemOTPs() *memOTPs {
	return &memOTPs{nextID: 1, codes: map[int64]*otpdomain.OtpCode{}}
}

func (m *memOTPs) GetByCodeAndUser(_ context.Context, code string, userID int64) (*otpdomain.OtpCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.codes {
		if c.Code == code && c.UserID == userID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memOTPs) Replace(_ context.Context, c *otpdomain.OtpCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, row := range m.codes {
		if row.UserID == c.UserID {
			delete(m.codes, id)
		}
	}
	id := m.nextID
	m.nextID++
	cp := *c
	cp.ID = id
	m.codes[id] = &cp
	return nil
}

func (m *memOTPs) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.codes, id)
	return nil
}

func (m *memOTPs) countByUser(userID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.codes {
		if c.UserID == userID {
			n++
		}
	}
	return n
}

type memWhitelist struct {
	mu   sync.Mutex
	keys map[string]time.Duration
}

func newMemWhitelist() *memWhitelist {
	return &memWhitelist{keys: map[string]time.Duration{}}
}

func (m *memWhitelist) Put(_ context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[key] = ttl
	return nil
}

func (m *memWhitelist) Has(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.keys[key]
	return ok, nil
}

func (m *memWhitelist) Remove(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.keys, k)
	}
	return nil
}

func (m *memWhitelist) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.keys[key]
	return ok
}

type mockEmitter struct {
	mu     sync.Mutex
	events []*notification.Event
}

func (m *mockEmitter) Emit(_ context.Context, event *notification.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *mockEmitter) getEvents() []*notification.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*notification.Event(nil), m.events...)
}

func waitForEvents(t *testing.T, emitter *mockEmitter, n int) []*notification.Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for len(emitter.getEvents()) < n {
		select {
		case <-deadline:
			t.Fatalf("expected %d events, got %d", n, len(emitter.getEvents()))
		case <-time.After(5 * time.Millisecond):
		}
	}
	return emitter.getEvents()
}

// ---- fixture ----

type fixture struct {
	svc       *AuthService
	users     *memUsers
	sessions  *memSessions
	otps      *memOTPs
	whitelist *memWhitelist
	emitter   *mockEmitter
	codec     *security.TokenCodec
}

func newFixture() *fixture {
	f := &fixture{
		users:     newMemUsers(),
		sessions:  newMemSessions(),
		otps:      newMemOTPs(),
		whitelist: newMemWhitelist(),
		emitter:   &mockEmitter{},
		codec:     security.NewTestTokenCodec(),
	}
	f.svc = NewAuthService(
		f.users, f.sessions, f.otps,
		security.NewHasher(4),
		f.codec,
		f.emitter,
		f.whitelist,
	)
	return f
}

func (f *fixture) registerActive(t *testing.T, email, name, password string) *userdomain.User {
	t.Helper()
	f.svc.generateOTP = func() (string, error) { return "000000", nil }
	u, err := f.svc.Register(context.Background(), email, name, password)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := f.svc.VerifyOTP(context.Background(), email, "000000"); err != nil {
		t.Fatalf("VerifyOTP: %v", err)
	}
	u.IsActive = true
	return u
}

func testClient() clientinfo.Info {
	return clientinfo.Info{IP: "203.0.113.9", DeviceName: "Desktop", Browser: "Chrome", OS: "macOS"}
}

// ---- registration and OTP ----

func TestRegister_CreatesInactiveUserWithOTP(t *testing.T) {
	f := newFixture()
	f.svc.generateOTP = func() (string, error) { return "482913", nil }

	user, err := f.svc.Register(context.Background(), "alice@example.com", "Alice", "s3cret!pw")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.ID == 0 {
		t.Error("expected assigned user id")
	}
	if user.IsActive {
		t.Error("new user must be inactive until OTP verification")
	}
	if user.HashPassword == "s3cret!pw" {
		t.Error("password stored in plaintext")
	}

	stored, _ := f.otps.GetByCodeAndUser(context.Background(), "482913", user.ID)
	if stored == nil {
		t.Fatal("expected OTP row for new user")
	}
	if got := stored.ExpiresAt.Sub(stored.CreatedAt); got != 5*time.Minute {
		t.Errorf("OTP lifetime = %v, want 5m", got)
	}

	events := waitForEvents(t, f.emitter, 1)
	ev := events[0]
	if ev.Name != notification.EventUserCreated {
		t.Errorf("event = %q, want %q", ev.Name, notification.EventUserCreated)
	}
	if ev.Email != "alice@example.com" || ev.User != "Alice" || ev.OTP != "482913" {
		t.Errorf("event payload = %+v", ev)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.Register(context.Background(), "alice@example.com", "Alice", "pw1"); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	_, err := f.svc.Register(context.Background(), "Alice@Example.com", "Alice Again", "pw2")
	if !errors.Is(err, ErrEmailExists) {
		t.Errorf("err = %v, want ErrEmailExists", err)
	}
}

func TestVerifyOTP_ActivatesAndConsumesCode(t *testing.T) {
	f := newFixture()
	f.svc.generateOTP = func() (string, error) { return "482913", nil }
	user, _ := f.svc.Register(context.Background(), "alice@example.com", "Alice", "pw")

	if err := f.svc.VerifyOTP(context.Background(), "alice@example.com", "482913"); err != nil {
		t.Fatalf("VerifyOTP: %v", err)
	}
	stored, _ := f.users.GetByID(context.Background(), user.ID)
	if !stored.IsActive {
		t.Error("user should be active after verification")
	}
	if n := f.otps.countByUser(user.ID); n != 0 {
		t.Errorf("OTP rows remaining = %d, want 0", n)
	}

	// Same code again: the row is gone.
	err := f.svc.VerifyOTP(context.Background(), "alice@example.com", "482913")
	if !errors.Is(err, ErrInvalidOTP) {
		t.Errorf("replayed code err = %v, want ErrInvalidOTP", err)
	}
}

func TestVerifyOTP_UpdatedAtComesFromServiceClock(t *testing.T) {
	f := newFixture()
	f.svc.generateOTP = func() (string, error) { return "482913", nil }
	base := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	f.svc.nowF = func() time.Time { return base }
	user, _ := f.svc.Register(context.Background(), "alice@example.com", "Alice", "pw")

	activatedAt := base.Add(90 * time.Second)
	f.svc.nowF = func() time.Time { return activatedAt }
	if err := f.svc.VerifyOTP(context.Background(), "alice@example.com", "482913"); err != nil {
		t.Fatalf("VerifyOTP: %v", err)
	}
	stored, _ := f.users.GetByID(context.Background(), user.ID)
	if !stored.UpdatedAt.Equal(activatedAt) {
		t.Errorf("updated_at = %v, want %v from the injected clock", stored.UpdatedAt, activatedAt)
	}
}

func TestVerifyOTP_WrongCode(t *testing.T) {
	f := newFixture()
	f.svc.generateOTP = func() (string, error) { return "482913", nil }
	f.svc.Register(context.Background(), "alice@example.com", "Alice", "pw")

	if err := f.svc.VerifyOTP(context.Background(), "alice@example.com", "111111"); !errors.Is(err, ErrInvalidOTP) {
		t.Errorf("err = %v, want ErrInvalidOTP", err)
	}
	if err := f.svc.VerifyOTP(context.Background(), "nobody@example.com", "482913"); !errors.Is(err, ErrInvalidOTP) {
		t.Errorf("unknown email err = %v, want ErrInvalidOTP", err)
	}
}

func TestVerifyOTP_Expired(t *testing.T) {
	f := newFixture()
	f.svc.generateOTP = func() (string, error) { return "482913", nil }
	base := time.Now().UTC()
	f.svc.nowF = func() time.Time { return base }
	f.svc.Register(context.Background(), "alice@example.com", "Alice", "pw")

	f.svc.nowF = func() time.Time { return base.Add(6 * time.Minute) }
	err := f.svc.VerifyOTP(context.Background(), "alice@example.com", "482913")
	if !errors.Is(err, ErrOTPExpired) {
		t.Errorf("err = %v, want ErrOTPExpired", err)
	}
	u, _ := f.users.GetByEmail(context.Background(), "alice@example.com")
	if u.IsActive {
		t.Error("expired code must not activate the account")
	}
}

func TestResendCode_ReplacesLiveCode(t *testing.T) {
	f := newFixture()
	f.svc.generateOTP = func() (string, error) { return "482913", nil }
	user, _ := f.svc.Register(context.Background(), "alice@example.com", "Alice", "pw")

	f.svc.generateOTP = func() (string, error) { return "775201", nil }
	if err := f.svc.ResendCode(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("ResendCode: %v", err)
	}

	if old, _ := f.otps.GetByCodeAndUser(context.Background(), "482913", user.ID); old != nil {
		t.Error("old code should be superseded")
	}
	if fresh, _ := f.otps.GetByCodeAndUser(context.Background(), "775201", user.ID); fresh == nil {
		t.Error("new code should be stored")
	}
	if n := f.otps.countByUser(user.ID); n != 1 {
		t.Errorf("live codes = %d, want 1", n)
	}

	events := waitForEvents(t, f.emitter, 2)
	if events[1].Name != notification.EventOTPResend || events[1].OTP != "775201" {
		t.Errorf("resend event = %+v", events[1])
	}
}

func TestResendCode_ActiveAccount(t *testing.T) {
	f := newFixture()
	f.registerActive(t, "alice@example.com", "Alice", "pw")

	err := f.svc.ResendCode(context.Background(), "alice@example.com")
	if !errors.Is(err, ErrAlreadyActivated) {
		t.Errorf("err = %v, want ErrAlreadyActivated", err)
	}
}

// ---- login ----

func TestLogin_Success(t *testing.T) {
	f := newFixture()
	user := f.registerActive(t, "alice@example.com", "Alice", "s3cret!pw")

	pair, err := f.svc.Login(context.Background(), "alice@example.com", "s3cret!pw", testClient())
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	access, err := f.codec.VerifyAccess(pair.AccessToken)
	if err != nil {
		t.Fatalf("VerifyAccess: %v", err)
	}
	refresh, err := f.codec.VerifyRefresh(pair.RefreshToken)
	if err != nil {
		t.Fatalf("VerifyRefresh: %v", err)
	}
	if access.SessionID() != refresh.SessionID() {
		t.Error("access and refresh must share a jti")
	}
	if uid, _ := access.UserID(); uid != user.ID {
		t.Errorf("access sub = %d, want %d", uid, user.ID)
	}
	if access.Name != "Alice" || access.Role != string(userdomain.RoleUser) {
		t.Errorf("access claims = %q/%q", access.Name, access.Role)
	}

	sess, _ := f.sessions.GetByID(context.Background(), access.SessionID())
	if sess == nil {
		t.Fatal("expected session row for issued jti")
	}
	if sess.IP != "203.0.113.9" || sess.Browser != "Chrome" || sess.OS != "macOS" || sess.DeviceName != "Desktop" {
		t.Errorf("session client info = %+v", sess)
	}
	if !sess.RefreshExpiresAt.After(sess.AccessExpiresAt) {
		t.Error("refresh expiry should outlive access expiry")
	}

	if !f.whitelist.has(validator.AccessKey(sess.ID)) || !f.whitelist.has(validator.RefreshKey(sess.ID)) {
		t.Error("both whitelist entries should exist after login")
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	f := newFixture()
	f.registerActive(t, "alice@example.com", "Alice", "s3cret!pw")

	if _, err := f.svc.Login(context.Background(), "alice@example.com", "wrong", testClient()); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password err = %v, want ErrInvalidCredentials", err)
	}
	if _, err := f.svc.Login(context.Background(), "nobody@example.com", "s3cret!pw", testClient()); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email err = %v, want ErrInvalidCredentials", err)
	}
	if n := f.sessions.count(); n != 0 {
		t.Errorf("sessions after failed logins = %d, want 0", n)
	}
}

func TestLogin_InactiveAccount(t *testing.T) {
	f := newFixture()
	f.svc.Register(context.Background(), "alice@example.com", "Alice", "pw")

	_, err := f.svc.Login(context.Background(), "alice@example.com", "pw", testClient())
	if !errors.Is(err, ErrAccountInactive) {
		t.Errorf("err = %v, want ErrAccountInactive", err)
	}
}

func TestLogin_EachLoginGetsOwnSession(t *testing.T) {
	f := newFixture()
	f.registerActive(t, "alice@example.com", "Alice", "pw")

	p1, _ := f.svc.Login(context.Background(), "alice@example.com", "pw", testClient())
	p2, _ := f.svc.Login(context.Background(), "alice@example.com", "pw", testClient())

	c1, _ := f.codec.VerifyAccess(p1.AccessToken)
	c2, _ := f.codec.VerifyAccess(p2.AccessToken)
	if c1.SessionID() == c2.SessionID() {
		t.Error("logins must not share session ids")
	}
	if n := f.sessions.count(); n != 2 {
		t.Errorf("sessions = %d, want 2", n)
	}
}

// ---- refresh ----

func TestRefresh_KeepsSessionID(t *testing.T) {
	f := newFixture()
	f.registerActive(t, "alice@example.com", "Alice", "pw")
	pair, _ := f.svc.Login(context.Background(), "alice@example.com", "pw", testClient())
	old, _ := f.codec.VerifyRefresh(pair.RefreshToken)
	before, _ := f.sessions.GetByID(context.Background(), old.SessionID())

	time.Sleep(1100 * time.Millisecond) // jwt timestamps have second precision

	fresh, err := f.svc.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	claims, err := f.codec.VerifyAccess(fresh.AccessToken)
	if err != nil {
		t.Fatalf("VerifyAccess on refreshed token: %v", err)
	}
	if claims.SessionID() != old.SessionID() {
		t.Error("refresh must keep the session id")
	}
	if fresh.AccessToken == pair.AccessToken || fresh.RefreshToken == pair.RefreshToken {
		t.Error("refresh must mint new token values")
	}

	after, _ := f.sessions.GetByID(context.Background(), old.SessionID())
	if !after.RefreshExpiresAt.After(before.RefreshExpiresAt) {
		t.Error("refresh should extend the session expiry")
	}
	if !after.UpdatedAt.After(before.UpdatedAt) {
		t.Error("refresh should touch the session's updated_at")
	}
	if n := f.sessions.count(); n != 1 {
		t.Errorf("sessions = %d, want 1", n)
	}
}

func TestRefresh_RevokedSession(t *testing.T) {
	f := newFixture()
	f.registerActive(t, "alice@example.com", "Alice", "pw")
	pair, _ := f.svc.Login(context.Background(), "alice@example.com", "pw", testClient())

	if err := f.svc.Logout(context.Background(), pair.AccessToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	_, err := f.svc.Refresh(context.Background(), pair.RefreshToken)
	if !errors.Is(err, ErrSessionRevoked) {
		t.Errorf("err = %v, want ErrSessionRevoked", err)
	}
}

func TestRefresh_RejectsAccessToken(t *testing.T) {
	f := newFixture()
	f.registerActive(t, "alice@example.com", "Alice", "pw")
	pair, _ := f.svc.Login(context.Background(), "alice@example.com", "pw", testClient())

	// Access and refresh tokens are signed with different secrets.
	_, err := f.svc.Refresh(context.Background(), pair.AccessToken)
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestRefresh_GarbageToken(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.Refresh(context.Background(), "not.a.jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

// ---- logout ----

func TestLogout_DeletesSessionAndWhitelist(t *testing.T) {
	f := newFixture()
	f.registerActive(t, "alice@example.com", "Alice", "pw")
	pair, _ := f.svc.Login(context.Background(), "alice@example.com", "pw", testClient())
	claims, _ := f.codec.VerifyAccess(pair.AccessToken)
	jti := claims.SessionID()

	if err := f.svc.Logout(context.Background(), pair.AccessToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if s, _ := f.sessions.GetByID(context.Background(), jti); s != nil {
		t.Error("session row should be deleted")
	}
	if f.whitelist.has(validator.AccessKey(jti)) || f.whitelist.has(validator.RefreshKey(jti)) {
		t.Error("whitelist entries should be purged")
	}
}

func TestLogout_ExpiredAccessTokenStillWorks(t *testing.T) {
	f := newFixture()
	f.registerActive(t, "alice@example.com", "Alice", "pw")

	// Issue a pair in the past so the access token is expired by now.
	past := time.Now().UTC().Add(-time.Hour)
	f.codec.SetNow(func() time.Time { return past })
	pair, err := f.svc.Login(context.Background(), "alice@example.com", "pw", testClient())
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	f.codec.SetNow(func() time.Time { return time.Now().UTC() })

	if _, err := f.codec.VerifyAccess(pair.AccessToken); !errors.Is(err, security.ErrTokenExpired) {
		t.Fatalf("precondition: token should be expired, got %v", err)
	}
	if err := f.svc.Logout(context.Background(), pair.AccessToken); err != nil {
		t.Errorf("Logout with expired token: %v", err)
	}
	if n := f.sessions.count(); n != 0 {
		t.Errorf("sessions = %d, want 0", n)
	}
}

func TestLogout_AlreadyLoggedOut(t *testing.T) {
	f := newFixture()
	f.registerActive(t, "alice@example.com", "Alice", "pw")
	pair, _ := f.svc.Login(context.Background(), "alice@example.com", "pw", testClient())

	f.svc.Logout(context.Background(), pair.AccessToken)
	err := f.svc.Logout(context.Background(), pair.AccessToken)
	if !errors.Is(err, ErrSessionRevoked) {
		t.Errorf("second logout err = %v, want ErrSessionRevoked", err)
	}
}

func TestLogoutDevice_ScopedToOwner(t *testing.T) {
	f := newFixture()
	alice := f.registerActive(t, "alice@example.com", "Alice", "pw")
	bob := f.registerActive(t, "bob@example.com", "Bob", "pw")
	pair, _ := f.svc.Login(context.Background(), "alice@example.com", "pw", testClient())
	claims, _ := f.codec.VerifyAccess(pair.AccessToken)
	jti := claims.SessionID()

	// Bob cannot delete Alice's session even with a valid id.
	if err := f.svc.LogoutDevice(context.Background(), bob.ID, jti); !errors.Is(err, ErrSessionRevoked) {
		t.Errorf("cross-user logout err = %v, want ErrSessionRevoked", err)
	}
	if s, _ := f.sessions.GetByID(context.Background(), jti); s == nil {
		t.Fatal("session must survive cross-user logout attempt")
	}

	if err := f.svc.LogoutDevice(context.Background(), alice.ID, jti); err != nil {
		t.Fatalf("owner logout: %v", err)
	}
	if s, _ := f.sessions.GetByID(context.Background(), jti); s != nil {
		t.Error("session should be deleted by its owner")
	}
}

func TestLogoutAll_KillsEverySession(t *testing.T) {
	f := newFixture()
	alice := f.registerActive(t, "alice@example.com", "Alice", "pw")
	f.registerActive(t, "bob@example.com", "Bob", "pw")

	p1, _ := f.svc.Login(context.Background(), "alice@example.com", "pw", testClient())
	p2, _ := f.svc.Login(context.Background(), "alice@example.com", "pw", testClient())
	bobPair, _ := f.svc.Login(context.Background(), "bob@example.com", "pw", testClient())

	if err := f.svc.LogoutAll(context.Background(), alice.ID); err != nil {
		t.Fatalf("LogoutAll: %v", err)
	}

	for _, pair := range []*TokenPair{p1, p2} {
		if _, err := f.svc.Refresh(context.Background(), pair.RefreshToken); !errors.Is(err, ErrSessionRevoked) {
			t.Errorf("refresh after logout-all err = %v, want ErrSessionRevoked", err)
		}
	}
	// Bob's session is untouched.
	if _, err := f.svc.Refresh(context.Background(), bobPair.RefreshToken); err != nil {
		t.Errorf("bob's refresh: %v", err)
	}

	c1, _ := f.codec.VerifyAccess(p1.AccessToken)
	if f.whitelist.has(validator.AccessKey(c1.SessionID())) {
		t.Error("whitelist should be purged for logged-out sessions")
	}
}

// ---- password change ----

func TestChangePassword(t *testing.T) {
	f := newFixture()
	alice := f.registerActive(t, "alice@example.com", "Alice", "old-pw")

	if err := f.svc.ChangePassword(context.Background(), alice.ID, "wrong", "new-pw"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong old password err = %v, want ErrInvalidCredentials", err)
	}
	if err := f.svc.ChangePassword(context.Background(), 9999, "old-pw", "new-pw"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("missing user err = %v, want ErrUserNotFound", err)
	}

	if err := f.svc.ChangePassword(context.Background(), alice.ID, "old-pw", "new-pw"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if _, err := f.svc.Login(context.Background(), "alice@example.com", "old-pw", testClient()); !errors.Is(err, ErrInvalidCredentials) {
		t.Error("old password should no longer work")
	}
	if _, err := f.svc.Login(context.Background(), "alice@example.com", "new-pw", testClient()); err != nil {
		t.Errorf("login with new password: %v", err)
	}
}

// ---- store-only deployments ----

func TestNilWhitelistIsOptional(t *testing.T) {
	f := newFixture()
	f.svc.whitelist = nil
	f.registerActive(t, "alice@example.com", "Alice", "pw")

	pair, err := f.svc.Login(context.Background(), "alice@example.com", "pw", testClient())
	if err != nil {
		t.Fatalf("Login without whitelist: %v", err)
	}
	if err := f.svc.Logout(context.Background(), pair.AccessToken); err != nil {
		t.Fatalf("Logout without whitelist: %v", err)
	}
}
