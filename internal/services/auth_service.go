package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"event-hosting/internal/docstore"
	"event-hosting/internal/status"
	"event-hosting/models"
	"event-hosting/monitoring"
)

const usersCollection = "users"

// AuthService owns the users collection: registration, credential checks and
// lookups by id.
type AuthService struct {
	log   *slog.Logger
	store docstore.Store
	cost  int
	now   func() time.Time

	// serialises the email scan and the write that follows it
	mu sync.Mutex
}

func NewAuthService(log *slog.Logger, store docstore.Store, bcryptCost int) *AuthService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{
		log:   log,
		store: store,
		cost:  bcryptCost,
		now:   time.Now,
	}
}

// Register creates a user for an email that is not registered yet.
func (a *AuthService) Register(ctx context.Context, email, password string) (models.User, error) {
	const op = "auth.Register"
	log := a.log.With("op", op)
	log.Info("registering new user")

	email = normalizeEmail(email)

	a.mu.Lock()
	defer a.mu.Unlock()

	_, found, err := a.findByEmail(ctx, email)
	if err != nil {
		log.Error("failed to look up user", "err", err)
		monitoring.TrackAuthAttempt("signup", "error")
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	if found {
		log.Warn("user exists")
		monitoring.TrackAuthAttempt("signup", "conflict")
		return models.User{}, fmt.Errorf("%s: %w", op, status.ErrUserExists)
	}

	user, err := a.createUser(ctx, email, password)
	if err != nil {
		log.Error("failed to save user", "err", err)
		monitoring.TrackAuthAttempt("signup", "error")
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user registered", "user_id", user.ID)
	monitoring.TrackAuthAttempt("signup", "success")
	return user, nil
}

// Authorize verifies the password of a registered email. An unknown email is
// registered on the spot with the given password.
func (a *AuthService) Authorize(ctx context.Context, email, password string) (models.User, error) {
	const op = "auth.Authorize"
	log := a.log.With("op", op)

	email = normalizeEmail(email)

	a.mu.Lock()
	user, found, err := a.findByEmail(ctx, email)
	if err != nil {
		a.mu.Unlock()
		log.Error("failed to look up user", "err", err)
		monitoring.TrackAuthAttempt("signin", "error")
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		user, err = a.createUser(ctx, email, password)
		a.mu.Unlock()
		if err != nil {
			log.Error("failed to create user on first sign in", "err", err)
			monitoring.TrackAuthAttempt("signin", "error")
			return models.User{}, fmt.Errorf("%s: %w", op, err)
		}
		log.Info("user created on first sign in", "user_id", user.ID)
		monitoring.TrackAuthAttempt("signin", "created")
		return user, nil
	}
	a.mu.Unlock()

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		log.Warn("invalid credentials", "user_id", user.ID)
		monitoring.TrackAuthAttempt("signin", "rejected")
		return models.User{}, fmt.Errorf("%s: %w", op, status.ErrInvalidCredentials)
	}

	monitoring.TrackAuthAttempt("signin", "success")
	return user, nil
}

// User loads a stored user by id.
func (a *AuthService) User(ctx context.Context, id string) (models.User, error) {
	return a.load(ctx, a.store, id)
}

func (a *AuthService) load(ctx context.Context, store docstore.Store, id string) (models.User, error) {
	const op = "auth.User"

	user, err := docstore.Get[models.User](ctx, store, docstore.Path(usersCollection, id))
	if errors.Is(err, docstore.ErrNotFound) || errors.Is(err, docstore.ErrInvalidPath) {
		return models.User{}, fmt.Errorf("%s: %w", op, status.ErrUserNotFound)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}
	user.ID = id
	return user, nil
}

// findByEmail scans the users collection behind any cache, since its answer
// decides whether a new user is written.
func (a *AuthService) findByEmail(ctx context.Context, email string) (models.User, bool, error) {
	docs, err := docstore.Direct(a.store).ReadAll(ctx, usersCollection)
	if err != nil {
		return models.User{}, false, err
	}
	for _, doc := range docs {
		user, err := docstore.Decode[models.User](doc)
		if err != nil {
			a.log.Warn("skipping undecodable user", "key", doc.Key, "err", err)
			continue
		}
		if normalizeEmail(user.Email) == email {
			user.ID = doc.Key
			return user, true, nil
		}
	}
	return models.User{}, false, nil
}

func (a *AuthService) createUser(ctx context.Context, email, password string) (models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := a.now().UTC()
	user := models.User{
		Profile:      models.Profile{ID: uuid.NewString(), Email: email},
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := docstore.Put(ctx, a.store, docstore.Path(usersCollection, user.ID), user); err != nil {
		return models.User{}, err
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
