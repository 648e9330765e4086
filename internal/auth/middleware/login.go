package auth

import (
	"encoding/json"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/interviewbook/internal/rbac"
)

// LoginConfig controls who may obtain a token from /auth/login.
type LoginConfig struct {
	AdminUser     string
	AdminPassHash string // bcrypt; empty disables admin login
	// DevUsers lets anyone sign in as a plain user by name, without a
	// password. Offline mode only.
	DevUsers bool
}

// POST /auth/login  { "username": "...", "password": "..." }
func LoginHandler(a *AuthService, cfg LoginConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "BAD_JSON", "bad json")
			return
		}
		user := strings.TrimSpace(req.Username)

		var role string
		switch {
		case user == "":
		case cfg.AdminPassHash != "" && user == cfg.AdminUser:
			if bcrypt.CompareHashAndPassword([]byte(cfg.AdminPassHash), []byte(req.Password)) == nil {
				role = rbac.RoleAdmin
			}
		case cfg.DevUsers:
			role = rbac.RoleUser
		}
		if role == "" {
			writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid credentials")
			return
		}

		tok, err := a.IssueJWT(user, role)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "INTERNAL", "issue token")
			return
		}
		if a.cookie != "" {
			http.SetCookie(w, &http.Cookie{
				Name:     a.cookie,
				Value:    tok,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
				Secure:   r.TLS != nil,
				MaxAge:   int(a.ttl.Seconds()),
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": tok, "role": role})
	}
}

// POST /auth/logout clears the session cookie.
func LogoutHandler(a *AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if a.cookie != "" {
			http.SetCookie(w, &http.Cookie{Name: a.cookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code, "message": msg})
}
