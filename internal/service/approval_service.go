package service

import (
	"context"
	"time"

	"github.com/sitedock/be-pm-approvals/internal/auth"
	"github.com/sitedock/be-pm-approvals/internal/client"
	"github.com/sitedock/be-pm-approvals/internal/errors"
	"github.com/sitedock/be-pm-approvals/internal/logger"
	"github.com/sitedock/be-pm-approvals/internal/metrics"
	"github.com/sitedock/be-pm-approvals/internal/repository"
)

// ApprovalStore is the persistence contract the engine runs against.
// Mutate must hold an exclusive lock on the request's row set for the full
// duration of fn and persist fn's changes in the same transaction.
type ApprovalStore interface {
	Create(ctx context.Context, req *repository.ApprovalRequest) error
	GetByID(ctx context.Context, id string) (*repository.ApprovalRequest, error)
	GetByEntity(ctx context.Context, entityType repository.EntityType, entityID string) (*repository.ApprovalRequest, error)
	Mutate(ctx context.Context, requestID string, fn func(req *repository.ApprovalRequest) error) (*repository.ApprovalRequest, error)
	GetPendingForUser(ctx context.Context, projectID, userID string) ([]*repository.ApprovalStep, error)
}

// AuditLog records every approval action. Append failures are logged, never
// propagated.
type AuditLog interface {
	Append(ctx context.Context, entry *repository.ApprovalAuditEntry) error
	GetByEntity(ctx context.Context, entityType repository.EntityType, entityID string) ([]*repository.ApprovalAuditEntry, error)
}

// EventPublisher emits decision events after commit. Implementations must be
// non-fatal.
type EventPublisher interface {
	PublishStepDecided(ctx context.Context, event *client.StepDecidedEvent)
}

// ApprovalService is the transactional entry point for the approval workflow
// engine: request creation, step decisions, and resubmission.
type ApprovalService struct {
	store    ApprovalStore
	contacts ContactDirectory
	resolver *ApproverResolver
	audit    AuditLog
	events   EventPublisher
	log      *logger.Logger
}

// NewApprovalService creates a new ApprovalService.
func NewApprovalService(
	store ApprovalStore,
	contacts ContactDirectory,
	resolver *ApproverResolver,
	audit AuditLog,
	events EventPublisher,
	log *logger.Logger,
) *ApprovalService {
	return &ApprovalService{
		store:    store,
		contacts: contacts,
		resolver: resolver,
		audit:    audit,
		events:   events,
		log:      log,
	}
}

// ── Request creation ──────────────────────────────────────────────────────────

// StepInput is one requested step assignment. A nil ApproverID creates an
// unassigned step decidable by any principal holding the role's permission.
type StepInput struct {
	ApproverRole string  `json:"approver_role"`
	ApproverID   *string `json:"approver_id,omitempty"`
}

// CreateRequestInput is the payload for CreateRequest.
type CreateRequestInput struct {
	ProjectID  string                `json:"project_id"`
	EntityType repository.EntityType `json:"entity_type"`
	EntityID   string                `json:"entity_id"`
	Steps      []StepInput           `json:"steps"`
}

// CreateRequest validates and materializes an approval request with its
// ordered steps, all pending. The approver-candidate check is enforced here
// server-side, not only by the calling UI.
func (s *ApprovalService) CreateRequest(
	ctx context.Context,
	principal *auth.Principal,
	in *CreateRequestInput,
) (*repository.ApprovalRequest, error) {
	if !repository.ValidEntityType(in.EntityType) {
		return nil, errors.InvalidInput("entity_type", "unknown entity type "+string(in.EntityType))
	}
	if in.ProjectID == "" {
		return nil, errors.InvalidInput("project_id", "project id is required")
	}
	if in.EntityID == "" {
		return nil, errors.InvalidInput("entity_id", "entity id is required")
	}
	if len(in.Steps) == 0 {
		return nil, errors.InvalidInput("steps", "at least one approval step is required")
	}

	submittedRoles := make(map[string]bool, len(in.Steps))
	for _, step := range in.Steps {
		if !ValidRole(step.ApproverRole) {
			return nil, errors.InvalidInput("approver_role", "unknown approver role "+step.ApproverRole)
		}
		submittedRoles[step.ApproverRole] = true
	}
	for _, role := range RequiredRoles(in.EntityType) {
		if !submittedRoles[role] {
			return nil, errors.InvalidInput("steps", "missing required step for role "+role)
		}
	}

	// Every required step category must have at least one resolvable
	// candidate (a project contact or the self fallback).
	for _, role := range RequiredRoles(in.EntityType) {
		candidates, err := s.resolver.ResolveCandidates(ctx, in.ProjectID, role, principal)
		if err != nil {
			return nil, err
		}
		if len(candidates) == 0 {
			return nil, errors.InvalidInput("steps", "no resolvable approver for role "+role)
		}
	}

	steps := make([]*repository.ApprovalStep, 0, len(in.Steps))
	for _, stepIn := range in.Steps {
		if stepIn.ApproverID != nil {
			contact, err := s.contacts.GetByID(ctx, *stepIn.ApproverID)
			if err != nil {
				return nil, err
			}
			if contact.ProjectID != in.ProjectID {
				return nil, errors.InvalidInput("approver_id", "contact does not belong to the project")
			}
			if !contactEligibleForRole(contact.ContactType, stepIn.ApproverRole) {
				return nil, errors.InvalidInput("approver_id",
					"contact type "+contact.ContactType+" is not eligible for role "+stepIn.ApproverRole)
			}
		}
		steps = append(steps, &repository.ApprovalStep{
			ApproverRole: stepIn.ApproverRole,
			ApproverID:   stepIn.ApproverID,
		})
	}

	req := &repository.ApprovalRequest{
		ProjectID:  in.ProjectID,
		EntityType: in.EntityType,
		EntityID:   in.EntityID,
		CreatedBy:  principal.ID,
		Steps:      steps,
	}

	if err := s.store.Create(ctx, req); err != nil {
		return nil, err
	}

	metrics.RequestsCreated.WithLabelValues(string(req.EntityType)).Inc()
	s.log.Info().
		Str("request_id", req.ID).
		Str("entity_type", string(req.EntityType)).
		Str("entity_id", req.EntityID).
		Int("steps", len(req.Steps)).
		Msg("Approval request created")

	after := req.CurrentStatus
	s.appendAudit(ctx, &repository.ApprovalAuditEntry{
		RequestID:   req.ID,
		ProjectID:   req.ProjectID,
		EntityType:  req.EntityType,
		EntityID:    req.EntityID,
		Action:      "submitted",
		PerformedBy: principal.ID,
		StatusAfter: &after,
		Metadata:    map[string]interface{}{"total_steps": len(req.Steps)},
	})

	return req, nil
}

// GetRequest returns the approval request gating one entity, steps ordered by
// step_order.
func (s *ApprovalService) GetRequest(ctx context.Context, entityType repository.EntityType, entityID string) (*repository.ApprovalRequest, error) {
	if !repository.ValidEntityType(entityType) {
		return nil, errors.InvalidInput("entity_type", "unknown entity type "+string(entityType))
	}
	return s.store.GetByEntity(ctx, entityType, entityID)
}

// ── Decision engine ───────────────────────────────────────────────────────────

// Decide applies one decision to the active step of a request. The whole
// algorithm runs under the store's exclusive request lock: the active-step
// check re-reads current state inside the same transaction that writes the
// decision, so two concurrent calls against one step can never both succeed.
// A retried call lands on a no-longer-active step and fails deterministically.
func (s *ApprovalService) Decide(
	ctx context.Context,
	principal *auth.Principal,
	requestID, stepID string,
	outcome repository.Outcome,
	comments *string,
) (*repository.ApprovalRequest, error) {
	if !repository.ValidOutcome(outcome) {
		return nil, errors.InvalidInput("outcome", "outcome must be approved, rejected or revision_requested")
	}

	start := time.Now()
	var decided *repository.ApprovalStep
	var statusBefore repository.RequestStatus

	req, err := s.store.Mutate(ctx, requestID, func(req *repository.ApprovalRequest) error {
		statusBefore = req.CurrentStatus

		var step *repository.ApprovalStep
		for _, candidate := range req.Steps {
			if candidate.ID == stepID {
				step = candidate
				break
			}
		}
		if step == nil {
			return errors.NotFound("approval_step", stepID)
		}

		active := repository.ActiveStep(req.Steps)
		if active == nil || active.ID != step.ID {
			return errors.InvalidState("step not active")
		}

		if err := s.authorizeDecision(ctx, step, principal); err != nil {
			return err
		}

		now := time.Now().UTC()
		actor := principal.ID
		step.Status = outcome
		step.Comments = comments
		step.DecidedBy = &actor
		step.DecidedAt = &now
		decided = step

		req.CurrentStatus = repository.DeriveStatus(req.Steps)
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.Decisions.WithLabelValues(string(outcome)).Inc()
	metrics.DecideDuration.Observe(time.Since(start).Seconds())
	s.log.Info().
		Str("request_id", req.ID).
		Str("step_id", decided.ID).
		Int("step_order", decided.StepOrder).
		Str("outcome", string(outcome)).
		Str("status", string(req.CurrentStatus)).
		Msg("Approval step decided")

	after := req.CurrentStatus
	s.appendAudit(ctx, &repository.ApprovalAuditEntry{
		RequestID:    req.ID,
		StepID:       &decided.ID,
		ProjectID:    req.ProjectID,
		EntityType:   req.EntityType,
		EntityID:     req.EntityID,
		Action:       string(outcome),
		PerformedBy:  principal.ID,
		StatusBefore: &statusBefore,
		StatusAfter:  &after,
		Metadata:     map[string]interface{}{"step_order": decided.StepOrder},
	})

	if s.events != nil {
		s.events.PublishStepDecided(ctx, &client.StepDecidedEvent{
			RequestID:            req.ID,
			StepID:               decided.ID,
			StepOrder:            decided.StepOrder,
			Outcome:              outcome,
			ActorID:              principal.ID,
			Comments:             comments,
			DecidedAt:            *decided.DecidedAt,
			RequestCurrentStatus: req.CurrentStatus,
		})
	}

	return req, nil
}

// authorizeDecision permits the decision when the actor is the step's
// assigned contact, or when the step is unassigned and the actor holds the
// permission for the step's role.
func (s *ApprovalService) authorizeDecision(ctx context.Context, step *repository.ApprovalStep, principal *auth.Principal) error {
	if step.ApproverID != nil {
		contact, err := s.contacts.GetByID(ctx, *step.ApproverID)
		if err != nil {
			return err
		}
		if contact.UserID != nil && *contact.UserID == principal.ID {
			return nil
		}
		return errors.Unauthorized("actor is not the assigned approver for this step")
	}

	perm, ok := PermissionForRole(step.ApproverRole)
	if !ok {
		return errors.Unauthorized("step role has no associated permission")
	}
	if !principal.HasPermission(perm) {
		return errors.Unauthorized("actor lacks permission " + perm)
	}
	return nil
}

// ── Resubmission handler ──────────────────────────────────────────────────────

// Resubmit resets a workflow stalled in revision_requested back to a
// decidable state: the first revision_requested step and every later step
// return to pending with decision fields cleared, earlier approved steps stay
// approved. Rejected requests are terminal and not resubmittable.
func (s *ApprovalService) Resubmit(
	ctx context.Context,
	principal *auth.Principal,
	requestID string,
) (*repository.ApprovalRequest, error) {
	var statusBefore repository.RequestStatus

	req, err := s.store.Mutate(ctx, requestID, func(req *repository.ApprovalRequest) error {
		statusBefore = req.CurrentStatus

		if req.CurrentStatus != repository.RequestStatusRevisionRequested {
			return errors.InvalidState("request is not awaiting revision (status: " + string(req.CurrentStatus) + ")")
		}
		if req.CreatedBy != principal.ID {
			return errors.Unauthorized("only the submitter can resubmit the request")
		}

		first := repository.FirstRevisionStep(req.Steps)
		if first == nil {
			return errors.InvalidState("no revision_requested step found")
		}

		for _, step := range req.Steps {
			if step.StepOrder < first.StepOrder {
				continue
			}
			step.Status = repository.StepStatusPending
			step.Comments = nil
			step.DecidedBy = nil
			step.DecidedAt = nil
		}

		req.CurrentStatus = repository.DeriveStatus(req.Steps)
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.Resubmissions.Inc()
	s.log.Info().
		Str("request_id", req.ID).
		Str("status", string(req.CurrentStatus)).
		Msg("Approval request resubmitted")

	after := req.CurrentStatus
	s.appendAudit(ctx, &repository.ApprovalAuditEntry{
		RequestID:    req.ID,
		ProjectID:    req.ProjectID,
		EntityType:   req.EntityType,
		EntityID:     req.EntityID,
		Action:       "resubmitted",
		PerformedBy:  principal.ID,
		StatusBefore: &statusBefore,
		StatusAfter:  &after,
	})

	return req, nil
}

// ── Query helpers ─────────────────────────────────────────────────────────────

// GetPendingApprovals returns all steps currently awaiting action from the
// principal within a project.
func (s *ApprovalService) GetPendingApprovals(ctx context.Context, projectID string, principal *auth.Principal) ([]*repository.ApprovalStep, error) {
	return s.store.GetPendingForUser(ctx, projectID, principal.ID)
}

// GetApprovalHistory returns the full audit trail for an entity.
func (s *ApprovalService) GetApprovalHistory(ctx context.Context, entityType repository.EntityType, entityID string) ([]*repository.ApprovalAuditEntry, error) {
	if !repository.ValidEntityType(entityType) {
		return nil, errors.InvalidInput("entity_type", "unknown entity type "+string(entityType))
	}
	return s.audit.GetByEntity(ctx, entityType, entityID)
}

// ResolveCandidates exposes the approver resolver to the HTTP layer.
func (s *ApprovalService) ResolveCandidates(ctx context.Context, projectID, role string, principal *auth.Principal) ([]Candidate, error) {
	return s.resolver.ResolveCandidates(ctx, projectID, role, principal)
}

// ── Internal helpers ──────────────────────────────────────────────────────────

// appendAudit writes an audit entry and logs a warning on failure.
func (s *ApprovalService) appendAudit(ctx context.Context, entry *repository.ApprovalAuditEntry) {
	if err := s.audit.Append(ctx, entry); err != nil {
		s.log.Warn().Err(err).
			Str("request_id", entry.RequestID).
			Str("action", entry.Action).
			Msg("Failed to write audit log entry")
	}
}
