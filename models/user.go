package models

import (
	"strings"
	"time"
)

type Socials struct {
	Twitter   string `json:"twitter"`
	Instagram string `json:"instagram"`
	LinkedIn  string `json:"linkedin"`
	Website   string `json:"website"`
}

// Profile is the part of a user record that is shown and edited on the
// profile page.
type Profile struct {
	ID       string  `json:"id"`
	Email    string  `json:"email"`
	Name     string  `json:"name"`
	Phone    string  `json:"phone"`
	Bio      string  `json:"bio"`
	Location string  `json:"location"`
	Image    string  `json:"image"`
	Socials  Socials `json:"socials"`
}

// User is the stored user record.
type User struct {
	Profile
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DisplayName falls back to the local part of the email.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	local, _, _ := strings.Cut(u.Email, "@")
	return local
}
