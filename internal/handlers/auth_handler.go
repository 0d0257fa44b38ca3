package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"event-hosting/internal/services"
	"event-hosting/internal/status"
	"event-hosting/models"
)

type CookieConfig struct {
	Name   string
	Secure bool
}

type AuthHandler struct {
	log      *slog.Logger
	auth     *services.AuthService
	sessions *services.SessionService
	cookie   CookieConfig
}

func NewAuthHandler(log *slog.Logger, auth *services.AuthService, sessions *services.SessionService, cookie CookieConfig) *AuthHandler {
	return &AuthHandler{
		log:      log,
		auth:     auth,
		sessions: sessions,
		cookie:   cookie,
	}
}

// Signup registers a new user.
func (h *AuthHandler) Signup(e *core.RequestEvent) error {
	var creds models.Credentials
	if err := e.BindBody(&creds); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	creds.Normalize()
	if err := creds.Validate(); err != nil {
		return invalidForm(err)
	}

	user, err := h.auth.Register(e.Request.Context(), creds.Email, creds.Password)
	if errors.Is(err, status.ErrUserExists) {
		return conflictError("A user with that email already exists.")
	}
	if err != nil {
		return internalError(h.log, "handlers.Signup", err)
	}

	return e.JSON(http.StatusCreated, map[string]any{
		"message": "User created successfully.",
		"user":    user.Profile,
	})
}

// Signin verifies credentials, creating the user on first use, and issues a
// session token both in the body and as a cookie.
func (h *AuthHandler) Signin(e *core.RequestEvent) error {
	var creds models.Credentials
	if err := e.BindBody(&creds); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	creds.Normalize()
	if err := creds.ValidateSignIn(); err != nil {
		return invalidForm(err)
	}

	user, err := h.auth.Authorize(e.Request.Context(), creds.Email, creds.Password)
	if errors.Is(err, status.ErrInvalidCredentials) {
		return apis.NewUnauthorizedError("Invalid email or password.", nil)
	}
	if err != nil {
		return internalError(h.log, "handlers.Signin", err)
	}

	session, err := h.sessions.Issue(user)
	if err != nil {
		return internalError(h.log, "handlers.Signin", err)
	}

	e.SetCookie(&http.Cookie{
		Name:     h.cookie.Name,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		MaxAge:   int(time.Until(session.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	return e.JSON(http.StatusOK, map[string]any{
		"token":      session.Token,
		"expires_at": session.ExpiresAt,
		"user":       user.Profile,
	})
}

// Signout revokes the current session and clears the cookie.
func (h *AuthHandler) Signout(e *core.RequestEvent) error {
	session, _ := currentSession(e)
	if err := h.sessions.Revoke(e.Request.Context(), session); err != nil {
		h.log.Warn("failed to revoke session", "err", err)
	}

	e.SetCookie(&http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	return e.NoContent(http.StatusNoContent)
}

// Session reports who is signed in.
func (h *AuthHandler) Session(e *core.RequestEvent) error {
	session, user := currentSession(e)
	return e.JSON(http.StatusOK, map[string]any{
		"user":       user.Profile,
		"expires_at": session.ExpiresAt,
	})
}
