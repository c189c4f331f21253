// Package client holds outbound collaborator adapters.
package client

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/sitedock/be-pm-approvals/internal/repository"
)

// Subject for decision events consumed by the notification and audit services.
const subjectStepDecided = "approvals.pm.step_decided"

// StepDecidedEvent is the JSON schema published after a decision commits.
type StepDecidedEvent struct {
	RequestID            string                   `json:"request_id"`
	StepID               string                   `json:"step_id"`
	StepOrder            int                      `json:"step_order"`
	Outcome              repository.Outcome       `json:"outcome"`
	ActorID              string                   `json:"actor_id"`
	Comments             *string                  `json:"comments,omitempty"`
	DecidedAt            time.Time                `json:"decided_at"`
	RequestCurrentStatus repository.RequestStatus `json:"request_current_status"`
}

// EventPublisher publishes approval decision events to NATS.
//
// All publish operations are non-fatal: errors are logged but never
// propagated, so event delivery failures never interrupt approval operations.
// A nil connection disables publishing entirely.
type EventPublisher struct {
	nc  *nats.Conn
	log zerolog.Logger
}

// NewEventPublisher creates a publisher backed by the given NATS connection.
func NewEventPublisher(nc *nats.Conn, log zerolog.Logger) *EventPublisher {
	return &EventPublisher{nc: nc, log: log}
}

// PublishStepDecided publishes one decision event.
func (p *EventPublisher) PublishStepDecided(ctx context.Context, event *StepDecidedEvent) {
	if p == nil || p.nc == nil {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.log.Warn().Err(err).Str("request_id", event.RequestID).Msg("events: failed to marshal decision event")
		return
	}

	if err := p.nc.Publish(subjectStepDecided, data); err != nil {
		p.log.Warn().Err(err).
			Str("subject", subjectStepDecided).
			Str("request_id", event.RequestID).
			Msg("events: failed to publish decision event (non-fatal)")
		return
	}

	p.log.Debug().
		Str("subject", subjectStepDecided).
		Str("request_id", event.RequestID).
		Str("outcome", string(event.Outcome)).
		Msg("events: decision event published")
}
