package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"authd/internal/account"
	"authd/internal/store"
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Welcome to the account authentication server"))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":   true,
		"time": time.Now().UTC().Format(time.RFC3339Nano),
	})
}

type signupRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	req.Username = strings.TrimSpace(req.Username)
	if req.Email == "" || req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "email, username and password are required")
		return
	}

	created, err := s.accounts.Signup(r.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		s.writeAccountError(w, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"account": created})
}

type loginRequest struct {
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password"`
}

func (s *Server) handleEmailLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	// A single message covers unknown email and wrong password alike.
	const credMsg = "email or password is incorrect"

	success, err := s.accounts.Login(r.Context(), account.ByEmail, strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		s.writeAccountError(w, err, credMsg)
		return
	}
	writeJSON(w, http.StatusOK, success)
}

func (s *Server) handleUsernameLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	const credMsg = "username or password is incorrect"

	success, err := s.accounts.Login(r.Context(), account.ByUsername, strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		s.writeAccountError(w, err, credMsg)
		return
	}
	writeJSON(w, http.StatusOK, success)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	username := r.PathValue("username")
	if err := s.accounts.Logout(r.Context(), username); err != nil {
		s.writeAccountError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "user successfully logged out"})
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")

	switch r.Method {
	case http.MethodGet:
		acct, err := s.accounts.GetAccount(r.Context(), username)
		if err != nil {
			s.writeAccountError(w, err, "")
			return
		}
		if acct == nil {
			writeError(w, http.StatusNotFound, "not_found", "user not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"account": acct})

	case http.MethodDelete:
		acct, err := s.accounts.DeleteAccount(r.Context(), username)
		if err != nil {
			s.writeAccountError(w, err, "")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"account": acct, "message": "user deleted"})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	}
}

func (s *Server) handleRecovery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	username := r.PathValue("username")
	acct, err := s.accounts.IssueRecoveryCode(r.Context(), username)
	if err != nil {
		s.writeAccountError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"account": acct})
}

// writeAccountError maps the service error taxonomy onto transport
// responses. credMsg carries the per-login-method wording for credential
// failures; it is unused by the other operations.
func (s *Server) writeAccountError(w http.ResponseWriter, err error, credMsg string) {
	switch {
	case errors.Is(err, store.ErrDuplicateEmail):
		writeError(w, http.StatusConflict, "duplicate_email", "email already in use")
	case errors.Is(err, store.ErrDuplicateUsername):
		writeError(w, http.StatusConflict, "duplicate_username", "username already taken")
	case errors.Is(err, account.ErrInvalidCredentials):
		if credMsg == "" {
			credMsg = "credentials are incorrect"
		}
		writeError(w, http.StatusUnauthorized, "invalid_credentials", credMsg)
	case errors.Is(err, store.ErrAlreadyLoggedIn):
		writeError(w, http.StatusConflict, "already_logged_in", "user already logged in")
	case errors.Is(err, store.ErrNotLoggedIn):
		writeError(w, http.StatusConflict, "not_logged_in", "user is not logged in")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "user not found")
	case errors.Is(err, store.ErrRecoveryPending):
		writeError(w, http.StatusConflict, "recovery_pending", "account recovery code already exists on user")
	case errors.Is(err, account.ErrCreationFailed):
		writeError(w, http.StatusInternalServerError, "creation_failed", "an error occurred")
	default:
		writeError(w, http.StatusInternalServerError, "internal", "internal server error")
	}
}
