package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the storage format of Event.Date.
const DateLayout = "2006-01-02"

// CategoryAll is the listing pseudo-category that disables category filtering.
const CategoryAll = "All"

type Event struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Image         string          `json:"image"`
	Date          string          `json:"date"`
	Time          string          `json:"time"`
	Venue         string          `json:"venue"`
	City          string          `json:"city"`
	Category      string          `json:"category"`
	Price         decimal.Decimal `json:"price"`
	Attendees     int             `json:"attendees"`
	Likes         int             `json:"likes"`
	OrganizerID   string          `json:"organizer_id"`
	OrganizerName string          `json:"organizer_name"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// PriceLabel formats the price the way the listing cards show it.
func (e Event) PriceLabel() string {
	if e.Price.IsZero() {
		return "Free"
	}
	if e.Price.IsInteger() {
		return "₹" + groupThousands(e.Price.StringFixed(0))
	}
	whole, fraction, _ := strings.Cut(e.Price.StringFixed(2), ".")
	return "₹" + groupThousands(whole) + "." + fraction
}

// EventFilter narrows a listing. Zero values match everything.
type EventFilter struct {
	Category string
	Date     string
	City     string
	Query    string
}

// Matches reports whether the event passes every set criterion. Category and
// city compare case-insensitively, the query is a substring search over
// title, description and venue.
func (f EventFilter) Matches(e Event) bool {
	if f.Category != "" && !strings.EqualFold(f.Category, CategoryAll) &&
		!strings.EqualFold(strings.TrimSpace(e.Category), strings.TrimSpace(f.Category)) {
		return false
	}
	if f.Date != "" && e.Date != f.Date {
		return false
	}
	if f.City != "" && !strings.EqualFold(strings.TrimSpace(e.City), strings.TrimSpace(f.City)) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		haystack := strings.ToLower(e.Title + "\n" + e.Description + "\n" + e.Venue)
		if !strings.Contains(haystack, q) {
			return false
		}
	}
	return true
}

// EventStats backs the dashboard.
type EventStats struct {
	TotalEvents      int               `json:"total_events"`
	TotalAttendees   int               `json:"total_attendees"`
	TotalLikes       int               `json:"total_likes"`
	UniqueCities     int               `json:"unique_cities"`
	EventsByCategory map[string]int    `json:"events_by_category"`
	AttendeesByEvent []EventAttendance `json:"attendees_by_event"`
	AveragePrice     decimal.Decimal   `json:"average_price"`
}

type EventAttendance struct {
	EventID   string `json:"event_id"`
	Title     string `json:"title"`
	Attendees int    `json:"attendees"`
}

func groupThousands(digits string) string {
	neg := strings.HasPrefix(digits, "-")
	digits = strings.TrimPrefix(digits, "-")

	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
