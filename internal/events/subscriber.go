package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/accesshub/accesshub-server/internal/models"
)

// EventStore persists consumed access events
type EventStore interface {
	CreateAccessEvent(ctx context.Context, event *models.AccessEvent) error
}

// Subscriber consumes access events from NATS and persists them
type Subscriber struct {
	nc    *nats.Conn
	store EventStore
	subs  []*nats.Subscription
}

// NewSubscriber creates a NATS subscriber
func NewSubscriber(nc *nats.Conn, store EventStore) *Subscriber {
	return &Subscriber{
		nc:    nc,
		store: store,
		subs:  make([]*nats.Subscription, 0),
	}
}

// Start starts subscriptions and blocks until the context is done
func (s *Subscriber) Start(ctx context.Context) error {
	sub, err := s.nc.Subscribe(SubjectAccess, s.handleAccessEvent)
	if err != nil {
		return fmt.Errorf("subscribe access events: %w", err)
	}
	s.subs = append(s.subs, sub)

	log.Info().
		Int("subscriptions", len(s.subs)).
		Msg("Audit event subscriber started")

	<-ctx.Done()

	for _, sub := range s.subs {
		sub.Unsubscribe()
	}

	return ctx.Err()
}

// handleAccessEvent persists one access event
func (s *Subscriber) handleAccessEvent(msg *nats.Msg) {
	var event models.AccessEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		log.Error().Err(err).Msg("Failed to unmarshal access event")
		return
	}

	if err := s.store.CreateAccessEvent(context.Background(), &event); err != nil {
		log.Error().Err(err).
			Str("user_id", event.UserID.String()).
			Str("action", string(event.Action)).
			Msg("Failed to persist access event")
		return
	}

	log.Debug().
		Str("user_id", event.UserID.String()).
		Str("action", string(event.Action)).
		Msg("Access event persisted")
}
