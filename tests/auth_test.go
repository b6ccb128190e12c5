package tests

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"crescendo/internal/auth"
	"crescendo/internal/config"
)

func newTestAuthService(t *testing.T, enabled bool) *auth.Service {
	t.Helper()

	cfg := &config.AuthConfig{
		Enabled:           enabled,
		UsersFilePath:     filepath.Join(t.TempDir(), "users.toml"),
		SessionDuration:   "1h",
		SecureCookies:     false,
		AllowRegistration: true,
	}

	service, err := auth.NewService(cfg)
	if err != nil {
		t.Fatalf("Failed to create auth service: %v", err)
	}
	return service
}

func TestAuthService(t *testing.T) {
	service := newTestAuthService(t, true)

	if err := service.Register("alice", "secret-password"); err != nil {
		t.Fatalf("Failed to register user: %v", err)
	}

	t.Run("LoginWithValidCredentials", func(t *testing.T) {
		session, err := service.Login("alice", "secret-password")
		if err != nil {
			t.Fatalf("Expected login to succeed: %v", err)
		}
		if session.Username != "alice" {
			t.Errorf("Expected session for alice, got %s", session.Username)
		}
		if !session.ExpiresAt.After(time.Now()) {
			t.Error("Expected session to expire in the future")
		}
	})

	t.Run("LoginWithWrongPassword", func(t *testing.T) {
		if _, err := service.Login("alice", "wrong"); err == nil {
			t.Error("Expected login with wrong password to fail")
		}
	})

	t.Run("LoginWithUnknownUser", func(t *testing.T) {
		if _, err := service.Login("mallory", "whatever"); err == nil {
			t.Error("Expected login with unknown user to fail")
		}
	})

	t.Run("IdentifyFromSessionCookie", func(t *testing.T) {
		session, err := service.Login("alice", "secret-password")
		if err != nil {
			t.Fatalf("Failed to log in: %v", err)
		}

		recorder := httptest.NewRecorder()
		service.GetSessionManager().SetSessionCookie(recorder, session)

		request := httptest.NewRequest(http.MethodGet, "/api/home", nil)
		for _, cookie := range recorder.Result().Cookies() {
			request.AddCookie(cookie)
		}

		username, ok := service.Identify(request)
		if !ok || username != "alice" {
			t.Errorf("Expected identity alice, got %q (ok=%v)", username, ok)
		}
	})

	t.Run("IdentifyWithoutCookieIsAnonymous", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/api/home", nil)
		if _, ok := service.Identify(request); ok {
			t.Error("Expected request without cookie to be anonymous")
		}
	})

	t.Run("LogoutInvalidatesSession", func(t *testing.T) {
		session, err := service.Login("alice", "secret-password")
		if err != nil {
			t.Fatalf("Failed to log in: %v", err)
		}

		service.Logout(session.ID)

		if _, valid := service.ValidateSession(session.ID); valid {
			t.Error("Expected logged-out session to be invalid")
		}
	})

	t.Run("RegisterDuplicateFails", func(t *testing.T) {
		if err := service.Register("alice", "another-password"); err == nil {
			t.Error("Expected duplicate registration to fail")
		}
	})

	t.Run("GetUserStripsPasswordHash", func(t *testing.T) {
		user := service.GetUser("alice")
		if user == nil {
			t.Fatal("Expected registered user to be found")
		}
		if user.Role != auth.RoleUser {
			t.Errorf("Expected role %q, got %q", auth.RoleUser, user.Role)
		}
		if user.Password != "" {
			t.Error("Expected password hash to be stripped")
		}
		if _, err := time.Parse(time.RFC3339, user.Created); err != nil {
			t.Errorf("Expected RFC3339 creation timestamp, got %q: %v", user.Created, err)
		}
	})

	t.Run("GetUnknownUserReturnsNil", func(t *testing.T) {
		if user := service.GetUser("mallory"); user != nil {
			t.Errorf("Expected nil for unknown user, got %+v", user)
		}
	})
}

func TestAuthServiceDisabled(t *testing.T) {
	service := newTestAuthService(t, false)

	if service.IsEnabled() {
		t.Error("Expected auth service to be disabled")
	}

	t.Run("LoginFails", func(t *testing.T) {
		if _, err := service.Login("anyone", "anything"); err == nil {
			t.Error("Expected login to fail when auth is disabled")
		}
	})

	t.Run("IdentifyIsAnonymous", func(t *testing.T) {
		request := httptest.NewRequest(http.MethodGet, "/api/home", nil)
		if _, ok := service.Identify(request); ok {
			t.Error("Expected anonymous identity when auth is disabled")
		}
	})

	t.Run("RegistrationDisallowed", func(t *testing.T) {
		if service.IsRegistrationAllowed() {
			t.Error("Expected registration to be disallowed when auth is disabled")
		}
	})

	t.Run("NoUsersOrSessions", func(t *testing.T) {
		if user := service.GetUser("anyone"); user != nil {
			t.Errorf("Expected nil user when auth is disabled, got %+v", user)
		}
		if count := service.ActiveSessions(); count != 0 {
			t.Errorf("Expected 0 active sessions when auth is disabled, got %d", count)
		}
	})
}

func TestSessionManager(t *testing.T) {
	manager := auth.NewSessionManager(50*time.Millisecond, false)

	session, err := manager.CreateSession("bob")
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	if _, ok := manager.GetSession(session.ID); !ok {
		t.Error("Expected fresh session to be valid")
	}

	t.Run("ExpiredSessionRejected", func(t *testing.T) {
		time.Sleep(60 * time.Millisecond)
		if _, ok := manager.GetSession(session.ID); ok {
			t.Error("Expected expired session to be rejected")
		}
	})

	t.Run("CountSkipsExpiredSessions", func(t *testing.T) {
		live, err := manager.CreateSession("dave")
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		defer manager.DeleteSession(live.ID)

		if count := manager.Count(); count != 1 {
			t.Errorf("Expected 1 live session, got %d", count)
		}

		time.Sleep(60 * time.Millisecond)
		if count := manager.Count(); count != 0 {
			t.Errorf("Expected 0 live sessions after expiry, got %d", count)
		}
	})

	t.Run("GetSessionAdvancesLastSeen", func(t *testing.T) {
		created, err := manager.CreateSession("erin")
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		firstSeen := created.LastSeen

		time.Sleep(5 * time.Millisecond)
		seen, ok := manager.GetSession(created.ID)
		if !ok {
			t.Fatal("Expected session to still be valid")
		}
		if !seen.LastSeen.After(firstSeen) {
			t.Error("Expected LastSeen to advance on access")
		}
	})

	t.Run("DeleteUserSessions", func(t *testing.T) {
		first, _ := manager.CreateSession("carol")
		second, _ := manager.CreateSession("carol")

		manager.DeleteUserSessions("carol")

		if _, ok := manager.GetSession(first.ID); ok {
			t.Error("Expected first session to be deleted")
		}
		if _, ok := manager.GetSession(second.ID); ok {
			t.Error("Expected second session to be deleted")
		}
	})
}
