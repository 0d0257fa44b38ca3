package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"event-hosting/internal/services"
	"event-hosting/internal/status"
	"event-hosting/models"
)

const (
	sessionContextKey = "session"
	userContextKey    = "sessionUser"
)

// RequireSession accepts the session cookie or a bearer token and stores the
// session and its user on the request.
func (h *AuthHandler) RequireSession(e *core.RequestEvent) error {
	token := sessionToken(e.Request, h.cookie.Name)
	if token == "" {
		return apis.NewUnauthorizedError("Please sign in to continue.", nil)
	}

	ctx := e.Request.Context()
	session, err := h.sessions.Verify(ctx, token)
	if services.IsSessionError(err) {
		return apis.NewUnauthorizedError("Your session has expired. Please sign in again.", nil)
	}
	if err != nil {
		return internalError(h.log, "handlers.RequireSession", err)
	}

	user, err := h.auth.User(ctx, session.UserID)
	if errors.Is(err, status.ErrUserNotFound) {
		return apis.NewUnauthorizedError("Please sign in to continue.", nil)
	}
	if err != nil {
		return internalError(h.log, "handlers.RequireSession", err)
	}

	e.Set(sessionContextKey, session)
	e.Set(userContextKey, user)
	return e.Next()
}

func sessionToken(r *http.Request, cookieName string) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(cookieName); err == nil {
		return cookie.Value
	}
	return ""
}

func currentSession(e *core.RequestEvent) (services.Session, models.User) {
	session, _ := e.Get(sessionContextKey).(services.Session)
	user, _ := e.Get(userContextKey).(models.User)
	return session, user
}
