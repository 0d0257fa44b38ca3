package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"event-hosting/internal/services"
	"event-hosting/internal/status"
	"event-hosting/models"
	"event-hosting/utils"
)

type EventHandler struct {
	log    *slog.Logger
	events *services.EventService
}

func NewEventHandler(log *slog.Logger, events *services.EventService) *EventHandler {
	return &EventHandler{log: log, events: events}
}

type eventView struct {
	models.Event
	PriceLabel string `json:"price_label"`
}

type eventDetail struct {
	eventView
	DescriptionHTML string `json:"description_html"`
}

func viewOf(event models.Event) eventView {
	return eventView{Event: event, PriceLabel: event.PriceLabel()}
}

func viewsOf(events []models.Event) []eventView {
	views := make([]eventView, 0, len(events))
	for _, event := range events {
		views = append(views, viewOf(event))
	}
	return views
}

// List returns the filtered listing. The body carries a content ETag so
// unchanged listings are answered with 304.
func (h *EventHandler) List(e *core.RequestEvent) error {
	query := e.Request.URL.Query()
	filter := models.EventFilter{
		Category: query.Get("category"),
		Date:     query.Get("date"),
		City:     query.Get("city"),
		Query:    query.Get("q"),
	}
	if filter.Date != "" {
		if _, err := time.Parse(models.DateLayout, filter.Date); err != nil {
			return apis.NewBadRequestError("date must be formatted as YYYY-MM-DD", nil)
		}
	}

	events, err := h.events.List(e.Request.Context(), filter)
	if err != nil {
		return internalError(h.log, "handlers.ListEvents", err)
	}

	body, err := json.Marshal(map[string]any{
		"events": viewsOf(events),
		"total":  len(events),
	})
	if err != nil {
		return internalError(h.log, "handlers.ListEvents", err)
	}

	etag := utils.ETag(body)
	e.Response.Header().Set("ETag", etag)
	e.Response.Header().Set("Cache-Control", "no-cache")
	if utils.ETagMatches(e.Request.Header.Get("If-None-Match"), etag) {
		return e.NoContent(http.StatusNotModified)
	}
	return e.Blob(http.StatusOK, "application/json", body)
}

func (h *EventHandler) Categories(e *core.RequestEvent) error {
	categories, err := h.events.Categories(e.Request.Context())
	if err != nil {
		return internalError(h.log, "handlers.Categories", err)
	}
	return e.JSON(http.StatusOK, map[string]any{"categories": categories})
}

func (h *EventHandler) Stats(e *core.RequestEvent) error {
	stats, err := h.events.Stats(e.Request.Context())
	if err != nil {
		return internalError(h.log, "handlers.Stats", err)
	}
	return e.JSON(http.StatusOK, stats)
}

// Get returns a single event with its description rendered to HTML.
func (h *EventHandler) Get(e *core.RequestEvent) error {
	event, err := h.events.Get(e.Request.Context(), e.Request.PathValue("id"))
	if err != nil {
		return h.eventError("handlers.GetEvent", err)
	}

	html, err := services.RenderMarkdown(event.Description)
	if err != nil {
		return internalError(h.log, "handlers.GetEvent", err)
	}

	return e.JSON(http.StatusOK, eventDetail{eventView: viewOf(event), DescriptionHTML: html})
}

func (h *EventHandler) Create(e *core.RequestEvent) error {
	_, user := currentSession(e)

	form, err := bindEventForm(e)
	if err != nil {
		return err
	}

	event, err := h.events.Create(e.Request.Context(), user, form)
	if err != nil {
		return internalError(h.log, "handlers.CreateEvent", err)
	}

	return e.JSON(http.StatusCreated, map[string]any{
		"message": "Event created!",
		"event":   viewOf(event),
	})
}

// Update re-submits the whole event form.
func (h *EventHandler) Update(e *core.RequestEvent) error {
	_, user := currentSession(e)

	form, err := bindEventForm(e)
	if err != nil {
		return err
	}

	event, err := h.events.Update(e.Request.Context(), user, e.Request.PathValue("id"), form)
	if err != nil {
		return h.eventError("handlers.UpdateEvent", err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"message": "Event updated.",
		"event":   viewOf(event),
	})
}

func (h *EventHandler) Like(e *core.RequestEvent) error {
	event, err := h.events.Like(e.Request.Context(), e.Request.PathValue("id"))
	if err != nil {
		return h.eventError("handlers.LikeEvent", err)
	}
	return e.JSON(http.StatusOK, map[string]any{"id": event.ID, "likes": event.Likes})
}

func (h *EventHandler) Reserve(e *core.RequestEvent) error {
	_, user := currentSession(e)

	reservation, event, err := h.events.Reserve(e.Request.Context(), user, e.Request.PathValue("id"))
	if errors.Is(err, status.ErrAlreadyReserved) {
		return conflictError("You are already registered for this event.")
	}
	if err != nil {
		return h.eventError("handlers.ReserveEvent", err)
	}

	return e.JSON(http.StatusCreated, map[string]any{
		"message":     "Your spot is reserved.",
		"reservation": reservation,
		"attendees":   event.Attendees,
	})
}

func (h *EventHandler) eventError(op string, err error) error {
	switch {
	case errors.Is(err, status.ErrEventNotFound):
		return apis.NewNotFoundError("Event not found.", nil)
	case errors.Is(err, status.ErrNotOrganizer):
		return apis.NewForbiddenError("Only the organizer can edit this event.", nil)
	default:
		return internalError(h.log, op, err)
	}
}

func bindEventForm(e *core.RequestEvent) (models.EventForm, error) {
	var form models.EventForm
	if err := e.BindBody(&form); err != nil {
		return form, apis.NewBadRequestError("Invalid request", err)
	}
	form.Normalize()
	if err := form.Validate(); err != nil {
		return form, invalidForm(err)
	}
	return form, nil
}
