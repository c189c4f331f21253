package client

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/sitedock/be-pm-approvals/internal/repository"
)

func TestPublishStepDecidedNilConnection(t *testing.T) {
	p := NewEventPublisher(nil, zerolog.Nop())

	// Disabled publisher must be a silent no-op.
	assert.NotPanics(t, func() {
		p.PublishStepDecided(context.Background(), &StepDecidedEvent{
			RequestID:            "req-1",
			StepID:               "step-1",
			StepOrder:            1,
			Outcome:              repository.StepStatusApproved,
			ActorID:              "user-1",
			DecidedAt:            time.Now(),
			RequestCurrentStatus: repository.RequestStatusUnderReview,
		})
	})
}

func TestPublishStepDecidedNilPublisher(t *testing.T) {
	var p *EventPublisher
	assert.NotPanics(t, func() {
		p.PublishStepDecided(context.Background(), &StepDecidedEvent{RequestID: "req-1"})
	})
}
