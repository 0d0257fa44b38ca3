package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"event-hosting/internal/services"
	"event-hosting/internal/status"
	"event-hosting/models"
)

type ProfileHandler struct {
	log      *slog.Logger
	profiles *services.ProfileService
	events   *services.EventService
}

func NewProfileHandler(log *slog.Logger, profiles *services.ProfileService, events *services.EventService) *ProfileHandler {
	return &ProfileHandler{log: log, profiles: profiles, events: events}
}

func (h *ProfileHandler) Get(e *core.RequestEvent) error {
	_, user := currentSession(e)

	profile, err := h.profiles.Get(e.Request.Context(), user.ID)
	if errors.Is(err, status.ErrUserNotFound) {
		return apis.NewNotFoundError("Profile not found.", nil)
	}
	if err != nil {
		return internalError(h.log, "handlers.GetProfile", err)
	}
	return e.JSON(http.StatusOK, profile)
}

// Update overwrites the profile with the submitted form.
func (h *ProfileHandler) Update(e *core.RequestEvent) error {
	_, user := currentSession(e)

	var form models.ProfileForm
	if err := e.BindBody(&form); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if err := form.Validate(); err != nil {
		return invalidForm(err)
	}

	profile, err := h.profiles.Update(e.Request.Context(), user.ID, form)
	if errors.Is(err, status.ErrUserNotFound) {
		return apis.NewNotFoundError("Profile not found.", nil)
	}
	if err != nil {
		return internalError(h.log, "handlers.UpdateProfile", err)
	}
	return e.JSON(http.StatusOK, profile)
}

// Events returns the registered and created tabs of the profile page.
func (h *ProfileHandler) Events(e *core.RequestEvent) error {
	_, user := currentSession(e)

	mine, err := h.events.ForUser(e.Request.Context(), user.ID)
	if err != nil {
		return internalError(h.log, "handlers.ProfileEvents", err)
	}
	return e.JSON(http.StatusOK, map[string]any{
		"registered": viewsOf(mine.Registered),
		"created":    viewsOf(mine.Created),
	})
}
