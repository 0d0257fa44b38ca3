package models

import "time"

type Reservation struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	UserID    string    `json:"user_id"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
}

// ProfileEvents feeds the profile page tabs.
type ProfileEvents struct {
	Registered []Event `json:"registered"`
	Created    []Event `json:"created"`
}
