package server

import (
	"net/http"
)

// credentialsRequest is the body for login and registration requests.
type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleAuthLogin handles login API requests
func (ms *MediaServer) handleAuthLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ms.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	if !ms.authService.IsEnabled() {
		ms.respondWithError(w, r, http.StatusNotFound, "Authentication is disabled", nil)
		return
	}

	var credentials credentialsRequest
	if err := decodeJSON(r, &credentials); err != nil {
		ms.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON body", err)
		return
	}

	if credentials.Username == "" || credentials.Password == "" {
		ms.respondWithError(w, r, http.StatusBadRequest, "Username and password required", nil)
		return
	}

	session, err := ms.authService.Login(credentials.Username, credentials.Password)
	if err != nil {
		ms.logger.WithError(err).WithField("username", credentials.Username).Warn("Failed login attempt")
		ms.respondWithError(w, r, http.StatusUnauthorized, "Invalid credentials", nil)
		return
	}

	ms.authService.GetSessionManager().SetSessionCookie(w, session)

	ms.logger.WithField("username", credentials.Username).Info("User logged in")
	ms.respondJSON(w, http.StatusOK, map[string]string{"username": session.Username})
}

// handleAuthLogout handles logout requests
func (ms *MediaServer) handleAuthLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ms.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	if !ms.authService.IsEnabled() {
		ms.respondJSON(w, http.StatusOK, map[string]bool{"loggedOut": true})
		return
	}

	sessionManager := ms.authService.GetSessionManager()
	if session, valid := sessionManager.GetSessionFromRequest(r); valid {
		ms.authService.Logout(session.ID)
		ms.logger.WithField("username", session.Username).Info("User logged out")
	}

	sessionManager.ClearSessionCookie(w)
	ms.respondJSON(w, http.StatusOK, map[string]bool{"loggedOut": true})
}

// handleAuthStatus reports whether the request carries a valid identity.
func (ms *MediaServer) handleAuthStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ms.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	username, ok := ms.authService.Identify(r)
	if !ok {
		ms.respondJSON(w, http.StatusOK, map[string]interface{}{"authenticated": false})
		return
	}

	// Keep active users signed in across requests
	if session, valid := ms.authService.GetSessionManager().GetSessionFromRequest(r); valid {
		ms.authService.RefreshSession(session.ID)
	}

	status := map[string]interface{}{
		"authenticated": true,
		"username":      username,
	}
	if user := ms.authService.GetUser(username); user != nil {
		status["role"] = user.Role
	}

	ms.respondJSON(w, http.StatusOK, status)
}

// handleAuthRegister creates a new user account when registration is open.
func (ms *MediaServer) handleAuthRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ms.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
		return
	}

	if !ms.authService.IsRegistrationAllowed() {
		ms.respondWithError(w, r, http.StatusForbidden, "Registration is disabled", nil)
		return
	}

	var credentials credentialsRequest
	if err := decodeJSON(r, &credentials); err != nil {
		ms.respondWithError(w, r, http.StatusBadRequest, "Invalid JSON body", err)
		return
	}

	if err := ms.authService.Register(credentials.Username, credentials.Password); err != nil {
		ms.respondWithError(w, r, http.StatusBadRequest, "Registration failed", err)
		return
	}

	ms.logger.WithField("username", credentials.Username).Info("User registered")
	ms.respondJSON(w, http.StatusCreated, map[string]string{"username": credentials.Username})
}
