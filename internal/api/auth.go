package api

import (
	"log/slog"
	"net/http"
	"time"

	"aniserve/internal/auth"
	"aniserve/internal/models"
	"aniserve/internal/profile"
)

type AuthHandler struct {
	accounts       *auth.AccountService
	sessions       *auth.SessionManager
	profiles       *profile.Service
	verifier       auth.TokenVerifier
	googleClientID string
	passwordMinLen int
	secureCookies  bool
}

func NewAuthHandler(
	accounts *auth.AccountService,
	sessions *auth.SessionManager,
	profiles *profile.Service,
	verifier auth.TokenVerifier,
	googleClientID string,
	passwordMinLen int,
	secureCookies bool,
) *AuthHandler {
	return &AuthHandler{
		accounts:       accounts,
		sessions:       sessions,
		profiles:       profiles,
		verifier:       verifier,
		googleClientID: googleClientID,
		passwordMinLen: passwordMinLen,
		secureCookies:  secureCookies,
	}
}

// userDTO is the client-visible projection of a user record. Credential
// material never leaves the server.
type userDTO struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	Picture       string    `json:"picture,omitempty"`
	AuthProviders []string  `json:"authProviders"`
	CreatedAt     time.Time `json:"createdAt"`
	LastLoginAt   time.Time `json:"lastLoginAt"`
}

func newUserDTO(u *models.User) userDTO {
	return userDTO{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		Picture:       u.Picture,
		AuthProviders: u.AuthProviders,
		CreatedAt:     u.CreatedAt,
		LastLoginAt:   u.LastLoginAt,
	}
}

type profileStats struct {
	History   int `json:"history"`
	Favorites int `json:"favorites"`
	Pending   int `json:"pending"`
}

type configResponse struct {
	GoogleAuthEnabled bool   `json:"googleAuthEnabled"`
	GoogleClientID    string `json:"googleClientId"`
	LocalAuthEnabled  bool   `json:"localAuthEnabled"`
	PasswordMinLen    int    `json:"passwordMinLen"`
}

// GET /api/config
func (h *AuthHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, configResponse{
		GoogleAuthEnabled: h.verifier != nil,
		GoogleClientID:    h.googleClientID,
		LocalAuthEnabled:  true,
		PasswordMinLen:    h.passwordMinLen,
	})
}

type sessionResponse struct {
	Authenticated bool          `json:"authenticated"`
	User          *userDTO      `json:"user,omitempty"`
	Stats         *profileStats `json:"stats,omitempty"`
}

// GET /api/auth/session
// The cookie is optional here: an anonymous visitor gets
// {authenticated:false} with a 200 rather than a 401.
func (h *AuthHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		writeJSON(w, http.StatusOK, sessionResponse{})
		return
	}

	session := h.sessions.Validate(cookie.Value)
	if session == nil {
		clearSessionCookie(w, h.secureCookies)
		writeJSON(w, http.StatusOK, sessionResponse{})
		return
	}

	user := h.accounts.UserByID(session.UserID)
	if user == nil {
		h.sessions.Revoke(cookie.Value)
		clearSessionCookie(w, h.secureCookies)
		writeJSON(w, http.StatusOK, sessionResponse{})
		return
	}

	setSessionCookie(w, cookie.Value, h.sessions.TTL(), h.secureCookies)

	p := h.profiles.Get(user.ID)
	dto := newUserDTO(user)
	writeJSON(w, http.StatusOK, sessionResponse{
		Authenticated: true,
		User:          &dto,
		Stats: &profileStats{
			History:   len(p.History),
			Favorites: len(p.Favorites),
			Pending:   len(p.Pending),
		},
	})
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=128"`
	Name     string `json:"name" validate:"omitempty,max=80"`
}

// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	user, err := h.accounts.RegisterLocal(req.Email, req.Password, req.Name)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.issueSession(w, user)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=128"`
}

// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	user, err := h.accounts.LoginLocal(req.Email, req.Password)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.issueSession(w, user)
}

type googleLoginRequest struct {
	Credential string `json:"credential" validate:"required"`
}

// POST /api/auth/google
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	if h.verifier == nil {
		badRequest(w, "google auth is not enabled")
		return
	}

	var req googleLoginRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		badRequest(w, err.Error())
		return
	}

	claims, err := h.verifier.Verify(r.Context(), req.Credential)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	user, err := h.accounts.UpsertFederated(claims)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.issueSession(w, user)
}

// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		h.sessions.Revoke(cookie.Value)
	}
	clearSessionCookie(w, h.secureCookies)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *AuthHandler) issueSession(w http.ResponseWriter, user *models.User) {
	token, err := h.sessions.Create(user.ID)
	if err != nil {
		slog.Error("error creating session", "error", err, "user_id", user.ID)
		internalError(w)
		return
	}

	setSessionCookie(w, token, h.sessions.TTL(), h.secureCookies)
	writeJSON(w, http.StatusOK, map[string]any{"user": newUserDTO(user)})
}
