package services

import (
	"context"
	"log/slog"
	"time"

	pubnub "github.com/pubnub/go"

	"event-hosting/utils"
)

const (
	NotifyEventCreated         = "event_created"
	NotifyEventUpdated         = "event_updated"
	NotifyEventLiked           = "event_liked"
	NotifyEventReserved        = "event_reserved"
	NotifyReservationConfirmed = "reservation_confirmed"
	NotifyProfileUpdated       = "profile_updated"
)

type Notification struct {
	Type      string    `json:"type"`
	EventID   string    `json:"event_id,omitempty"`
	Title     string    `json:"title,omitempty"`
	Attendees int       `json:"attendees,omitempty"`
	Likes     int       `json:"likes,omitempty"`
	Code      string    `json:"code,omitempty"`
	SentAt    time.Time `json:"sent_at"`
}

// Notifier pushes realtime updates. Delivery is best effort: failures are
// logged, never returned to the request.
type Notifier interface {
	Feed(ctx context.Context, n Notification)
	User(ctx context.Context, userID string, n Notification)
}

// PubNubNotifier publishes to a shared feed channel and to "user-<id>"
// channels. Publishes go through a circuit breaker so a PubNub outage does
// not slow every request down.
type PubNubNotifier struct {
	log         *slog.Logger
	feedChannel string
	breaker     *utils.CircuitBreaker
	publish     func(channel string, message any) error
}

func NewPubNubNotifier(log *slog.Logger, pn *pubnub.PubNub, feedChannel string) *PubNubNotifier {
	return &PubNubNotifier{
		log:         log,
		feedChannel: feedChannel,
		breaker:     utils.NewCircuitBreaker("pubnub", 5, 30*time.Second),
		publish: func(channel string, message any) error {
			_, _, err := pn.Publish().
				Channel(channel).
				Message(message).
				Execute()
			return err
		},
	}
}

func (n *PubNubNotifier) Feed(ctx context.Context, msg Notification) {
	n.send(n.feedChannel, msg)
}

func (n *PubNubNotifier) User(ctx context.Context, userID string, msg Notification) {
	n.send("user-"+userID, msg)
}

func (n *PubNubNotifier) send(channel string, msg Notification) {
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now().UTC()
	}
	err := n.breaker.Execute(func() error {
		return n.publish(channel, msg)
	})
	if err != nil {
		n.log.Warn("Failed to publish notification",
			"channel", channel,
			"type", msg.Type,
			"breaker", n.breaker.State().String(),
			"error", err)
	}
}

// NopNotifier drops every notification. Used when PubNub keys are not set.
type NopNotifier struct{}

func (NopNotifier) Feed(context.Context, Notification)         {}
func (NopNotifier) User(context.Context, string, Notification) {}
