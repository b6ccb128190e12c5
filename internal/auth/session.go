package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"
)

const sessionCookieName = "crescendo_session"

// Session is one logged-in browser. LastSeen moves forward on every
// authenticated request that touches the session, so the health surface can
// distinguish idle sessions from active listeners.
type Session struct {
	ID        string
	Username  string
	CreatedAt time.Time
	LastSeen  time.Time
	ExpiresAt time.Time
}

func (s *Session) expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// SessionManager keeps sessions in memory; a restart logs everyone out,
// which is acceptable for a single-node home server.
type SessionManager struct {
	sessions      map[string]*Session
	mutex         sync.RWMutex
	duration      time.Duration
	secureCookies bool
}

// NewSessionManager creates a session manager whose expired-session sweep
// runs at a quarter of the session duration, no more often than once a
// minute.
func NewSessionManager(duration time.Duration, secureCookies bool) *SessionManager {
	sm := &SessionManager{
		sessions:      make(map[string]*Session),
		duration:      duration,
		secureCookies: secureCookies,
	}

	interval := duration / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	go sm.sweepExpired(interval)

	return sm
}

// CreateSession opens a new session for the user.
func (sm *SessionManager) CreateSession(username string) (*Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := time.Now()
	session := &Session{
		ID:        sessionID,
		Username:  username,
		CreatedAt: now,
		LastSeen:  now,
		ExpiresAt: now.Add(sm.duration),
	}

	sm.mutex.Lock()
	sm.sessions[sessionID] = session
	sm.mutex.Unlock()

	return session, nil
}

// GetSession returns the session for an ID, updating its LastSeen. Expired
// sessions are removed on sight.
func (sm *SessionManager) GetSession(sessionID string) (*Session, bool) {
	now := time.Now()

	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	session, exists := sm.sessions[sessionID]
	if !exists {
		return nil, false
	}
	if session.expired(now) {
		delete(sm.sessions, sessionID)
		return nil, false
	}

	session.LastSeen = now
	return session, true
}

// DeleteSession removes a single session.
func (sm *SessionManager) DeleteSession(sessionID string) {
	sm.mutex.Lock()
	delete(sm.sessions, sessionID)
	sm.mutex.Unlock()
}

// DeleteUserSessions logs a user out everywhere at once.
func (sm *SessionManager) DeleteUserSessions(username string) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	for id, session := range sm.sessions {
		if session.Username == username {
			delete(sm.sessions, id)
		}
	}
}

// RefreshSession slides the session's expiry forward by the full duration.
func (sm *SessionManager) RefreshSession(sessionID string) bool {
	now := time.Now()

	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	session, exists := sm.sessions[sessionID]
	if !exists {
		return false
	}
	if session.expired(now) {
		delete(sm.sessions, sessionID)
		return false
	}

	session.LastSeen = now
	session.ExpiresAt = now.Add(sm.duration)
	return true
}

// Count returns the number of live (non-expired) sessions.
func (sm *SessionManager) Count() int {
	now := time.Now()

	sm.mutex.RLock()
	defer sm.mutex.RUnlock()

	count := 0
	for _, session := range sm.sessions {
		if !session.expired(now) {
			count++
		}
	}
	return count
}

// SetSessionCookie writes the session cookie on the response.
func (sm *SessionManager) SetSessionCookie(w http.ResponseWriter, session *Session) {
	http.SetCookie(w, sm.cookie(session.ID, session.ExpiresAt))
}

// ClearSessionCookie expires the session cookie.
func (sm *SessionManager) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, sm.cookie("", time.Unix(0, 0)))
}

func (sm *SessionManager) cookie(value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     sessionCookieName,
		Value:    value,
		Expires:  expires,
		HttpOnly: true,
		Secure:   sm.secureCookies,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
	}
}

// GetSessionFromRequest resolves the session attached to a request cookie.
func (sm *SessionManager) GetSessionFromRequest(r *http.Request) (*Session, bool) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return nil, false
	}

	return sm.GetSession(cookie.Value)
}

// sweepExpired periodically drops sessions past their expiry.
func (sm *SessionManager) sweepExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		sm.mutex.Lock()

		for id, session := range sm.sessions {
			if session.expired(now) {
				delete(sm.sessions, id)
			}
		}

		sm.mutex.Unlock()
	}
}

// generateSessionID generates a cryptographically secure session ID
func generateSessionID() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
