package status

import "errors"

var (
	ErrUserExists         = errors.New("auth: user already exists")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrUserNotFound       = errors.New("auth: user not found")
	ErrSessionInvalid     = errors.New("session: invalid session")
	ErrSessionRevoked     = errors.New("session: session revoked")
	ErrEventNotFound      = errors.New("event: event not found")
	ErrNotOrganizer       = errors.New("event: only the organizer can change this event")
	ErrAlreadyReserved    = errors.New("reservation: already registered for this event")
)
