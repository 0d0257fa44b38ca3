package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"event-hosting/internal/docstore"
	"event-hosting/internal/status"
	"event-hosting/models"
	"event-hosting/monitoring"
	"event-hosting/utils"
)

const (
	eventsCollection       = "events"
	reservationsCollection = "reservations"
)

type EventService struct {
	log      *slog.Logger
	store    docstore.Store
	direct   docstore.Store
	notifier Notifier
	now      func() time.Time

	// serialises read-modify-write cycles on event records
	mu sync.Mutex
}

func NewEventService(log *slog.Logger, store docstore.Store, notifier Notifier) *EventService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &EventService{
		log:      log,
		store:    store,
		direct:   docstore.Direct(store),
		notifier: notifier,
		now:      time.Now,
	}
}

// All returns every event in creation order.
func (s *EventService) All(ctx context.Context) ([]models.Event, error) {
	const op = "events.All"

	docs, err := s.store.ReadAll(ctx, eventsCollection)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	events := make([]models.Event, 0, len(docs))
	for _, doc := range docs {
		event, err := docstore.Decode[models.Event](doc)
		if err != nil {
			s.log.Warn("skipping undecodable event", "op", op, "key", doc.Key, "err", err)
			continue
		}
		event.ID = doc.Key
		events = append(events, event)
	}
	return events, nil
}

// List returns the events matching filter in creation order.
func (s *EventService) List(ctx context.Context, filter models.EventFilter) ([]models.Event, error) {
	events, err := s.All(ctx)
	if err != nil {
		monitoring.TrackEventOperation("list", "error")
		return nil, err
	}

	matched := make([]models.Event, 0, len(events))
	for _, event := range events {
		if filter.Matches(event) {
			matched = append(matched, event)
		}
	}
	monitoring.TrackEventOperation("list", "success")
	return matched, nil
}

func (s *EventService) Get(ctx context.Context, id string) (models.Event, error) {
	return s.load(ctx, s.store, id)
}

func (s *EventService) load(ctx context.Context, store docstore.Store, id string) (models.Event, error) {
	const op = "events.Get"

	event, err := docstore.Get[models.Event](ctx, store, docstore.Path(eventsCollection, id))
	if errors.Is(err, docstore.ErrNotFound) || errors.Is(err, docstore.ErrInvalidPath) {
		return models.Event{}, fmt.Errorf("%s: %w", op, status.ErrEventNotFound)
	}
	if err != nil {
		return models.Event{}, fmt.Errorf("%s: %w", op, err)
	}
	event.ID = id
	return event, nil
}

// Create appends a new event organised by user.
func (s *EventService) Create(ctx context.Context, organizer models.User, form models.EventForm) (models.Event, error) {
	const op = "events.Create"
	log := s.log.With("op", op)

	now := s.now().UTC()
	event := models.Event{
		OrganizerID:   organizer.ID,
		OrganizerName: organizer.DisplayName(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := form.Apply(&event); err != nil {
		return models.Event{}, fmt.Errorf("%s: %w", op, err)
	}

	id, err := docstore.Add(ctx, s.store, eventsCollection, event)
	if err != nil {
		log.Error("failed to create event", "err", err)
		monitoring.TrackEventOperation("create", "error")
		return models.Event{}, fmt.Errorf("%s: %w", op, err)
	}
	event.ID = id

	log.Info("event created", "event_id", id, "organizer_id", organizer.ID)
	monitoring.TrackEventOperation("create", "success")
	s.notifier.Feed(ctx, Notification{Type: NotifyEventCreated, EventID: id, Title: event.Title})
	return event, nil
}

// Update overwrites the editable fields of an event. Only its organizer may
// do so; counters and ownership are kept.
func (s *EventService) Update(ctx context.Context, user models.User, id string, form models.EventForm) (models.Event, error) {
	const op = "events.Update"
	log := s.log.With("op", op)

	s.mu.Lock()
	defer s.mu.Unlock()

	event, err := s.load(ctx, s.direct, id)
	if err != nil {
		return models.Event{}, fmt.Errorf("%s: %w", op, err)
	}
	if event.OrganizerID != user.ID {
		log.Warn("rejected update by non-organizer", "event_id", id, "user_id", user.ID)
		return models.Event{}, fmt.Errorf("%s: %w", op, status.ErrNotOrganizer)
	}

	if err := form.Apply(&event); err != nil {
		return models.Event{}, fmt.Errorf("%s: %w", op, err)
	}
	event.UpdatedAt = s.now().UTC()

	if err := s.put(ctx, event); err != nil {
		log.Error("failed to update event", "event_id", id, "err", err)
		monitoring.TrackEventOperation("update", "error")
		return models.Event{}, fmt.Errorf("%s: %w", op, err)
	}

	monitoring.TrackEventOperation("update", "success")
	s.notifier.Feed(ctx, Notification{Type: NotifyEventUpdated, EventID: id, Title: event.Title})
	return event, nil
}

// Like increments the like counter of an event.
func (s *EventService) Like(ctx context.Context, id string) (models.Event, error) {
	const op = "events.Like"

	s.mu.Lock()
	defer s.mu.Unlock()

	event, err := s.load(ctx, s.direct, id)
	if err != nil {
		return models.Event{}, fmt.Errorf("%s: %w", op, err)
	}
	event.Likes++

	if err := s.put(ctx, event); err != nil {
		s.log.Error("failed to like event", "op", op, "event_id", id, "err", err)
		monitoring.TrackEventOperation("like", "error")
		return models.Event{}, fmt.Errorf("%s: %w", op, err)
	}

	monitoring.TrackEventOperation("like", "success")
	s.notifier.Feed(ctx, Notification{Type: NotifyEventLiked, EventID: id, Likes: event.Likes})
	return event, nil
}

// Reserve registers user for an event, once per user.
func (s *EventService) Reserve(ctx context.Context, user models.User, id string) (models.Reservation, models.Event, error) {
	const op = "events.Reserve"
	log := s.log.With("op", op)

	s.mu.Lock()
	defer s.mu.Unlock()

	event, err := s.load(ctx, s.direct, id)
	if err != nil {
		return models.Reservation{}, models.Event{}, fmt.Errorf("%s: %w", op, err)
	}

	reservations, err := s.reservations(ctx, s.direct)
	if err != nil {
		return models.Reservation{}, models.Event{}, fmt.Errorf("%s: %w", op, err)
	}
	for _, r := range reservations {
		if r.EventID == id && r.UserID == user.ID {
			monitoring.TrackEventOperation("reserve", "conflict")
			return r, event, fmt.Errorf("%s: %w", op, status.ErrAlreadyReserved)
		}
	}

	code, err := utils.GenerateCode(4)
	if err != nil {
		return models.Reservation{}, models.Event{}, fmt.Errorf("%s: %w", op, err)
	}
	reservation := models.Reservation{
		EventID:   id,
		UserID:    user.ID,
		Code:      code,
		CreatedAt: s.now().UTC(),
	}

	event.Attendees++
	if err := s.put(ctx, event); err != nil {
		log.Error("failed to update attendees", "event_id", id, "err", err)
		monitoring.TrackEventOperation("reserve", "error")
		return models.Reservation{}, models.Event{}, fmt.Errorf("%s: %w", op, err)
	}

	reservation.ID, err = docstore.Add(ctx, s.store, reservationsCollection, reservation)
	if err != nil {
		log.Error("failed to store reservation", "event_id", id, "err", err)
		monitoring.TrackEventOperation("reserve", "error")
		event.Attendees--
		if rollbackErr := s.put(ctx, event); rollbackErr != nil {
			log.Error("failed to restore attendees", "event_id", id, "err", rollbackErr)
		}
		return models.Reservation{}, models.Event{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("reservation created", "event_id", id, "user_id", user.ID)
	monitoring.TrackEventOperation("reserve", "success")
	s.notifier.Feed(ctx, Notification{Type: NotifyEventReserved, EventID: id, Attendees: event.Attendees})
	s.notifier.User(ctx, user.ID, Notification{
		Type:    NotifyReservationConfirmed,
		EventID: id,
		Title:   event.Title,
		Code:    reservation.Code,
	})
	return reservation, event, nil
}

// Categories lists "All" followed by every category in first-seen order.
// Categories differing only in case are listed once.
func (s *EventService) Categories(ctx context.Context) ([]string, error) {
	events, err := s.All(ctx)
	if err != nil {
		return nil, err
	}

	categories := []string{models.CategoryAll}
	seen := map[string]bool{strings.ToLower(models.CategoryAll): true}
	for _, event := range events {
		name := strings.TrimSpace(event.Category)
		key := strings.ToLower(name)
		if name == "" || seen[key] {
			continue
		}
		seen[key] = true
		categories = append(categories, name)
	}
	return categories, nil
}

// Stats aggregates the dashboard numbers over every event.
func (s *EventService) Stats(ctx context.Context) (models.EventStats, error) {
	events, err := s.All(ctx)
	if err != nil {
		return models.EventStats{}, err
	}

	stats := models.EventStats{
		TotalEvents:      len(events),
		EventsByCategory: map[string]int{},
		AttendeesByEvent: make([]models.EventAttendance, 0, len(events)),
		AveragePrice:     decimal.Zero,
	}

	cities := map[string]struct{}{}
	total := decimal.Zero
	for _, event := range events {
		stats.TotalAttendees += event.Attendees
		stats.TotalLikes += event.Likes
		if city := strings.ToLower(strings.TrimSpace(event.City)); city != "" {
			cities[city] = struct{}{}
		}
		stats.EventsByCategory[event.Category]++
		stats.AttendeesByEvent = append(stats.AttendeesByEvent, models.EventAttendance{
			EventID:   event.ID,
			Title:     event.Title,
			Attendees: event.Attendees,
		})
		total = total.Add(event.Price)
	}
	stats.UniqueCities = len(cities)
	if len(events) > 0 {
		stats.AveragePrice = total.Div(decimal.NewFromInt(int64(len(events)))).Round(2)
	}
	return stats, nil
}

// ForUser returns the events a user reserved and the events they organise.
func (s *EventService) ForUser(ctx context.Context, userID string) (models.ProfileEvents, error) {
	const op = "events.ForUser"

	events, err := s.All(ctx)
	if err != nil {
		return models.ProfileEvents{}, fmt.Errorf("%s: %w", op, err)
	}
	reservations, err := s.reservations(ctx, s.store)
	if err != nil {
		return models.ProfileEvents{}, fmt.Errorf("%s: %w", op, err)
	}

	reserved := map[string]bool{}
	for _, r := range reservations {
		if r.UserID == userID {
			reserved[r.EventID] = true
		}
	}

	result := models.ProfileEvents{
		Registered: []models.Event{},
		Created:    []models.Event{},
	}
	for _, event := range events {
		if reserved[event.ID] {
			result.Registered = append(result.Registered, event)
		}
		if event.OrganizerID == userID {
			result.Created = append(result.Created, event)
		}
	}
	return result, nil
}

func (s *EventService) reservations(ctx context.Context, store docstore.Store) ([]models.Reservation, error) {
	docs, err := store.ReadAll(ctx, reservationsCollection)
	if err != nil {
		return nil, err
	}

	reservations := make([]models.Reservation, 0, len(docs))
	for _, doc := range docs {
		r, err := docstore.Decode[models.Reservation](doc)
		if err != nil {
			s.log.Warn("skipping undecodable reservation", "key", doc.Key, "err", err)
			continue
		}
		r.ID = doc.Key
		reservations = append(reservations, r)
	}
	return reservations, nil
}

func (s *EventService) put(ctx context.Context, event models.Event) error {
	return docstore.Put(ctx, s.store, docstore.Path(eventsCollection, event.ID), event)
}
