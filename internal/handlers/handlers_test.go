package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"event-hosting/internal/docstore"
	"event-hosting/internal/services"
	"event-hosting/models"
)

type testEnv struct {
	store    *docstore.Memory
	auth     *services.AuthService
	sessions *services.SessionService
	events   *services.EventService

	authHandler    *AuthHandler
	eventHandler   *EventHandler
	profileHandler *ProfileHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := docstore.NewMemory()
	auth := services.NewAuthService(log, store, 4)
	sessions := services.NewSessionService("test-secret", time.Hour, nil)
	events := services.NewEventService(log, store, nil)
	profiles := services.NewProfileService(log, store, auth, nil)

	return &testEnv{
		store:          store,
		auth:           auth,
		sessions:       sessions,
		events:         events,
		authHandler:    NewAuthHandler(log, auth, sessions, CookieConfig{Name: "session_token"}),
		eventHandler:   NewEventHandler(log, events),
		profileHandler: NewProfileHandler(log, profiles, events),
	}
}

func newRequestEvent(method, target string, body any) (*core.RequestEvent, *httptest.ResponseRecorder) {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()

	e := &core.RequestEvent{}
	e.Request = req
	e.Response = rec
	return e, rec
}

// signIn registers a user and attaches a verified session to e.
func (env *testEnv) signIn(t *testing.T, e *core.RequestEvent, email string) models.User {
	t.Helper()
	user, err := env.auth.Authorize(e.Request.Context(), email, "Passw0rd!")
	require.NoError(t, err)
	session, err := env.sessions.Issue(user)
	require.NoError(t, err)

	e.Request.Header.Set("Authorization", "Bearer "+session.Token)
	require.NoError(t, env.authHandler.RequireSession(e))
	return user
}

func requireAPIError(t *testing.T, err error, status int) *router.ApiError {
	t.Helper()
	var apiErr *router.ApiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, status, apiErr.Status)
	return apiErr
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func validEventBody() map[string]string {
	return map[string]string{
		"title":       "Jazz by the Bay",
		"description": "An evening of **smooth** jazz by the sea",
		"image":       "https://example.com/jazz.jpg",
		"date":        "2026-11-05",
		"time":        "7:30 PM",
		"category":    "Music",
		"city":        "Mumbai",
		"venue":       "Marine Drive",
		"price":       "₹1,499",
	}
}
