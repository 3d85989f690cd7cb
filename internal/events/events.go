// Package events moves access audit events between processes over
// NATS. The API server publishes; cmd/audit-writer consumes and
// persists. Publishing is best-effort: audit transport problems never
// fail the request being audited.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/accesshub/accesshub-server/internal/models"
)

// SubjectAccess is the audit event subject
const SubjectAccess = "accesshub.audit.access"

// Publisher publishes access events to NATS
type Publisher struct {
	nc *nats.Conn
}

// NewPublisher creates a NATS publisher
func NewPublisher(nc *nats.Conn) *Publisher {
	return &Publisher{nc: nc}
}

// RecordAccess publishes an access event
func (p *Publisher) RecordAccess(ctx context.Context, event *models.AccessEvent) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal access event")
		return
	}

	if err := p.nc.Publish(SubjectAccess, data); err != nil {
		log.Error().Err(err).
			Str("subject", SubjectAccess).
			Msg("Failed to publish access event")
	}
}
