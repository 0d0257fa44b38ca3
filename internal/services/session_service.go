package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"event-hosting/internal/status"
	"event-hosting/models"
)

// Session is a verified session token.
type Session struct {
	ID        string    `json:"-"`
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

type sessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// SessionService issues and verifies HS256 session tokens. With a Redis
// client, signed-out tokens are kept on a denylist until they expire.
type SessionService struct {
	secret []byte
	ttl    time.Duration
	redis  *redis.Client
	now    func() time.Time
}

func NewSessionService(secret string, ttl time.Duration, redisClient *redis.Client) *SessionService {
	return &SessionService{
		secret: []byte(secret),
		ttl:    ttl,
		redis:  redisClient,
		now:    time.Now,
	}
}

func (s *SessionService) TTL() time.Duration {
	return s.ttl
}

func (s *SessionService) Issue(user models.User) (Session, error) {
	now := s.now()
	session := Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Email:     user.Email,
		ExpiresAt: now.Add(s.ttl).Truncate(time.Second),
	}

	claims := sessionClaims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.ID,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Session{}, fmt.Errorf("session.Issue: %w", err)
	}
	session.Token = token
	return session, nil
}

func (s *SessionService) Verify(ctx context.Context, token string) (Session, error) {
	const op = "session.Verify"

	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || claims.Subject == "" || claims.ID == "" {
		return Session{}, fmt.Errorf("%s: %w", op, status.ErrSessionInvalid)
	}

	if s.redis != nil {
		n, err := s.redis.Exists(ctx, revokedKey(claims.ID)).Result()
		if err != nil {
			return Session{}, fmt.Errorf("%s: %w", op, err)
		}
		if n > 0 {
			return Session{}, fmt.Errorf("%s: %w", op, status.ErrSessionRevoked)
		}
	}

	return Session{
		ID:        claims.ID,
		Token:     token,
		UserID:    claims.Subject,
		Email:     claims.Email,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Revoke denylists the session until its expiry. Without Redis it is a no-op
// and the token stays valid until it expires.
func (s *SessionService) Revoke(ctx context.Context, session Session) error {
	if s.redis == nil {
		return nil
	}
	ttl := session.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.redis.Set(ctx, revokedKey(session.ID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("session.Revoke: %w", err)
	}
	return nil
}

func revokedKey(id string) string {
	return "session:revoked:" + id
}

// IsSessionError reports whether err means the caller has no valid session.
func IsSessionError(err error) bool {
	return errors.Is(err, status.ErrSessionInvalid) || errors.Is(err, status.ErrSessionRevoked)
}
