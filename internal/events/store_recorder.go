package events

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/accesshub/accesshub-server/internal/models"
)

// StoreRecorder writes access events straight to the store. Used when
// the server runs without NATS.
type StoreRecorder struct {
	store EventStore
}

// NewStoreRecorder creates a direct-write recorder
func NewStoreRecorder(store EventStore) *StoreRecorder {
	return &StoreRecorder{store: store}
}

// RecordAccess persists an access event
func (r *StoreRecorder) RecordAccess(ctx context.Context, event *models.AccessEvent) {
	if err := r.store.CreateAccessEvent(ctx, event); err != nil {
		log.Error().Err(err).
			Str("user_id", event.UserID.String()).
			Str("action", string(event.Action)).
			Msg("Failed to record access event")
	}
}
