package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"event-hosting/internal/docstore"
	"event-hosting/models"
)

type ProfileService struct {
	log      *slog.Logger
	store    docstore.Store
	auth     *AuthService
	notifier Notifier
	now      func() time.Time
}

func NewProfileService(log *slog.Logger, store docstore.Store, auth *AuthService, notifier Notifier) *ProfileService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &ProfileService{
		log:      log,
		store:    store,
		auth:     auth,
		notifier: notifier,
		now:      time.Now,
	}
}

func (p *ProfileService) Get(ctx context.Context, userID string) (models.Profile, error) {
	user, err := p.auth.User(ctx, userID)
	if err != nil {
		return models.Profile{}, fmt.Errorf("profile.Get: %w", err)
	}
	return user.Profile, nil
}

// Update writes every editable field of the form back to the user record.
func (p *ProfileService) Update(ctx context.Context, userID string, form models.ProfileForm) (models.Profile, error) {
	const op = "profile.Update"
	log := p.log.With("op", op)

	user, err := p.auth.load(ctx, docstore.Direct(p.store), userID)
	if err != nil {
		return models.Profile{}, fmt.Errorf("%s: %w", op, err)
	}

	form.Apply(&user.Profile)
	user.UpdatedAt = p.now().UTC()

	if err := docstore.Put(ctx, p.store, docstore.Path(usersCollection, userID), user); err != nil {
		log.Error("failed to save profile", "user_id", userID, "err", err)
		return models.Profile{}, fmt.Errorf("%s: %w", op, err)
	}

	p.notifier.User(ctx, userID, Notification{Type: NotifyProfileUpdated})
	return user.Profile, nil
}
