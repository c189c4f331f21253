package repository

import "time"

// ── Domain types for the approval workflow engine ────────────────────────────

// RequestStatus is the overall status of an approval request. It is a
// materialized cache of DeriveStatus over the request's steps, recomputed in
// the same transaction as any step mutation.
type RequestStatus string

const (
	RequestStatusDraft             RequestStatus = "draft"
	RequestStatusSubmitted         RequestStatus = "submitted"
	RequestStatusUnderReview       RequestStatus = "under_review"
	RequestStatusApproved          RequestStatus = "approved"
	RequestStatusRejected          RequestStatus = "rejected"
	RequestStatusRevisionRequested RequestStatus = "revision_requested"
)

// StepStatus is the status of a single approval step. Terminal once set,
// except for the resubmission reset.
type StepStatus string

const (
	StepStatusPending           StepStatus = "pending"
	StepStatusApproved          StepStatus = "approved"
	StepStatusRejected          StepStatus = "rejected"
	StepStatusRevisionRequested StepStatus = "revision_requested"
)

// Outcome is a decision applied to the active step.
type Outcome = StepStatus

// ValidOutcome reports whether o is a decision a caller may submit.
func ValidOutcome(o Outcome) bool {
	switch o {
	case StepStatusApproved, StepStatusRejected, StepStatusRevisionRequested:
		return true
	}
	return false
}

// EntityType identifies the kind of submitted entity a request gates.
type EntityType string

const (
	EntityTypeEquipment   EntityType = "equipment"
	EntityTypeMaterial    EntityType = "material"
	EntityTypeRFI         EntityType = "rfi"
	EntityTypeChangeOrder EntityType = "change_order"
)

// ValidEntityType reports whether t is one of the approvable entity kinds.
func ValidEntityType(t EntityType) bool {
	switch t {
	case EntityTypeEquipment, EntityTypeMaterial, EntityTypeRFI, EntityTypeChangeOrder:
		return true
	}
	return false
}

// ApprovalRequest tracks one entity's approval lifecycle. Requests are
// permanent audit history and are never deleted.
type ApprovalRequest struct {
	ID            string
	ProjectID     string
	EntityType    EntityType
	EntityID      string
	CurrentStatus RequestStatus
	CreatedBy     string
	CreatedAt     time.Time
	UpdatedAt     time.Time

	// Steps ordered by StepOrder ascending. Owned by the request.
	Steps []*ApprovalStep
}

// ApprovalStep is one ordered decision point within a request.
// ApproverID nil means unassigned: any principal holding the permission for
// ApproverRole may decide.
type ApprovalStep struct {
	ID                string
	ApprovalRequestID string
	StepOrder         int
	ApproverID        *string
	ApproverRole      string
	Status            StepStatus
	Comments          *string
	DecidedBy         *string
	DecidedAt         *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Contact is a project collaborator eligible to approve. UserID links the
// contact to an authenticated principal when known.
type Contact struct {
	ID          string
	ProjectID   string
	ContactType string
	Name        string
	Email       *string
	UserID      *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ApprovalAuditEntry is one immutable record in the approval audit log.
type ApprovalAuditEntry struct {
	ID           string
	RequestID    string
	StepID       *string
	ProjectID    string
	EntityType   EntityType
	EntityID     string
	Action       string // submitted | approved | rejected | revision_requested | resubmitted
	PerformedBy  string
	PerformedAt  time.Time
	StatusBefore *RequestStatus
	StatusAfter  *RequestStatus
	Metadata     map[string]interface{}
}
