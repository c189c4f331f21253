package repository

import (
	"context"
	stderrors "errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/sitedock/be-pm-approvals/internal/database"
	"github.com/sitedock/be-pm-approvals/internal/errors"
)

// SQLSTATE 23505.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return stderrors.As(err, &pgErr) && pgErr.Code == "23505"
}

// ApprovalRequestRepository owns approval requests and their steps.
// Request + step creation is always done together in a single transaction,
// and every mutation goes through Mutate, which holds a row lock on the
// request for the duration of the change.
type ApprovalRequestRepository struct {
	db *database.DB
}

// NewApprovalRequestRepository creates a new ApprovalRequestRepository.
func NewApprovalRequestRepository(db *database.DB) *ApprovalRequestRepository {
	return &ApprovalRequestRepository{db: db}
}

// querier is satisfied by both the pool wrapper and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Create inserts a request and its steps in one transaction. Steps are
// materialized with step_order 1..N in input order, all pending, and the
// request's current_status is derived from the all-pending step set.
func (r *ApprovalRequestRepository) Create(ctx context.Context, req *ApprovalRequest) error {
	if len(req.Steps) == 0 {
		return errors.InvalidInput("steps", "at least one approval step is required")
	}

	for i, step := range req.Steps {
		step.StepOrder = i + 1
		step.Status = StepStatusPending
	}
	req.CurrentStatus = DeriveStatus(req.Steps)

	return r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		reqQuery := `
			INSERT INTO approval_requests
			    (project_id, entity_type, entity_id, current_status, created_by)
			VALUES ($1, $2::approval_entity_type, $3, $4::approval_request_status, $5)
			RETURNING id, created_at, updated_at
		`

		err := tx.QueryRow(ctx, reqQuery,
			req.ProjectID,
			req.EntityType,
			req.EntityID,
			req.CurrentStatus,
			req.CreatedBy,
		).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)
		if isUniqueViolation(err) {
			return errors.InvalidState("an approval request already exists for this entity")
		}
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to create approval request")
		}

		stepQuery := `
			INSERT INTO approval_steps
			    (approval_request_id, step_order, approver_id, approver_role, status)
			VALUES ($1, $2, $3, $4, $5::approval_step_status)
			RETURNING id, created_at, updated_at
		`

		for _, step := range req.Steps {
			step.ApprovalRequestID = req.ID

			err := tx.QueryRow(ctx, stepQuery,
				step.ApprovalRequestID,
				step.StepOrder,
				step.ApproverID,
				step.ApproverRole,
				step.Status,
			).Scan(&step.ID, &step.CreatedAt, &step.UpdatedAt)
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeInternal, "failed to create approval step")
			}
		}

		return nil
	})
}

// GetByID retrieves a request with its steps by primary key.
func (r *ApprovalRequestRepository) GetByID(ctx context.Context, id string) (*ApprovalRequest, error) {
	query := `
		SELECT id, project_id, entity_type, entity_id, current_status,
		       created_by, created_at, updated_at
		FROM approval_requests
		WHERE id = $1
	`

	req, err := r.scanRequest(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("approval_request", id)
	}
	if err != nil {
		return nil, err
	}

	req.Steps, err = r.loadSteps(ctx, r.db, req.ID)
	if err != nil {
		return nil, err
	}
	return req, nil
}

// GetByEntity retrieves the request gating one approvable entity instance.
func (r *ApprovalRequestRepository) GetByEntity(ctx context.Context, entityType EntityType, entityID string) (*ApprovalRequest, error) {
	query := `
		SELECT id, project_id, entity_type, entity_id, current_status,
		       created_by, created_at, updated_at
		FROM approval_requests
		WHERE entity_type = $1::approval_entity_type AND entity_id = $2
	`

	req, err := r.scanRequest(r.db.QueryRow(ctx, query, entityType, entityID))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("approval_request", entityID)
	}
	if err != nil {
		return nil, err
	}

	req.Steps, err = r.loadSteps(ctx, r.db, req.ID)
	if err != nil {
		return nil, err
	}
	return req, nil
}

// Mutate loads the request and its steps under an exclusive row lock, runs fn
// against the in-memory copy, then persists every step's decision fields and
// the request's current_status before committing. fn returning an error rolls
// everything back. Lock contention surfaces as a retryable error.
func (r *ApprovalRequestRepository) Mutate(ctx context.Context, requestID string, fn func(req *ApprovalRequest) error) (*ApprovalRequest, error) {
	var result *ApprovalRequest

	err := r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		lockQuery := `
			SELECT id, project_id, entity_type, entity_id, current_status,
			       created_by, created_at, updated_at
			FROM approval_requests
			WHERE id = $1
			FOR UPDATE
		`

		req, err := r.scanRequest(tx.QueryRow(ctx, lockQuery, requestID))
		if err == pgx.ErrNoRows {
			return errors.NotFound("approval_request", requestID)
		}
		if err != nil {
			return err
		}

		req.Steps, err = r.loadSteps(ctx, tx, req.ID)
		if err != nil {
			return err
		}

		if err := fn(req); err != nil {
			return err
		}

		stepQuery := `
			UPDATE approval_steps
			SET status     = $2::approval_step_status,
			    comments   = $3,
			    decided_by = $4,
			    decided_at = $5,
			    updated_at = NOW()
			WHERE id = $1
			RETURNING updated_at
		`
		for _, step := range req.Steps {
			err := tx.QueryRow(ctx, stepQuery,
				step.ID,
				step.Status,
				step.Comments,
				step.DecidedBy,
				step.DecidedAt,
			).Scan(&step.UpdatedAt)
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeInternal, "failed to persist approval step")
			}
		}

		statusQuery := `
			UPDATE approval_requests
			SET current_status = $2::approval_request_status,
			    updated_at     = NOW()
			WHERE id = $1
			RETURNING updated_at
		`
		if err := tx.QueryRow(ctx, statusQuery, req.ID, req.CurrentStatus).Scan(&req.UpdatedAt); err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to persist request status")
		}

		result = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetPendingForUser returns steps currently awaiting action from a user
// within a project: active-position pending steps assigned to the user's
// contact, on requests that are still in flight.
func (r *ApprovalRequestRepository) GetPendingForUser(ctx context.Context, projectID, userID string) ([]*ApprovalStep, error) {
	query := `
		SELECT s.id, s.approval_request_id, s.step_order, s.approver_id, s.approver_role,
		       s.status, s.comments, s.decided_by, s.decided_at, s.created_at, s.updated_at
		FROM approval_steps s
		JOIN approval_requests r ON r.id = s.approval_request_id
		JOIN contacts c ON c.id = s.approver_id
		WHERE r.project_id = $1
		  AND s.status = 'pending'
		  AND r.current_status IN ('submitted', 'under_review')
		  AND c.user_id = $2
		ORDER BY s.created_at ASC
	`

	rows, err := r.db.Query(ctx, query, projectID, userID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get pending approvals")
	}
	defer rows.Close()

	return r.scanStepRows(rows)
}

// ── scan helpers ──────────────────────────────────────────────────────────────

type requestScanner interface {
	Scan(dest ...any) error
}

func (r *ApprovalRequestRepository) scanRequest(row requestScanner) (*ApprovalRequest, error) {
	req := &ApprovalRequest{}
	err := row.Scan(
		&req.ID,
		&req.ProjectID,
		&req.EntityType,
		&req.EntityID,
		&req.CurrentStatus,
		&req.CreatedBy,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (r *ApprovalRequestRepository) loadSteps(ctx context.Context, q querier, requestID string) ([]*ApprovalStep, error) {
	query := `
		SELECT id, approval_request_id, step_order, approver_id, approver_role,
		       status, comments, decided_by, decided_at, created_at, updated_at
		FROM approval_steps
		WHERE approval_request_id = $1
		ORDER BY step_order ASC
	`

	rows, err := q.Query(ctx, query, requestID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to load approval steps")
	}
	defer rows.Close()

	return r.scanStepRows(rows)
}

func (r *ApprovalRequestRepository) scanStepRows(rows pgx.Rows) ([]*ApprovalStep, error) {
	var steps []*ApprovalStep
	for rows.Next() {
		s := &ApprovalStep{}
		err := rows.Scan(
			&s.ID,
			&s.ApprovalRequestID,
			&s.StepOrder,
			&s.ApproverID,
			&s.ApproverRole,
			&s.Status,
			&s.Comments,
			&s.DecidedBy,
			&s.DecidedAt,
			&s.CreatedAt,
			&s.UpdatedAt,
		)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan approval step")
		}
		steps = append(steps, s)
	}
	return steps, rows.Err()
}
