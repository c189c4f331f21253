package service

import (
	"context"

	"github.com/sitedock/be-pm-approvals/internal/auth"
	"github.com/sitedock/be-pm-approvals/internal/errors"
	"github.com/sitedock/be-pm-approvals/internal/repository"
)

// Candidate is one valid approver assignment for a step. The self candidate
// has a nil ContactID: selecting it creates an unassigned step, never a
// synthetic identity in the database.
type Candidate struct {
	ContactID   *string `json:"contact_id"`
	Name        string  `json:"name"`
	ContactType string  `json:"contact_type"`
	Self        bool    `json:"self"`
}

// ContactDirectory is the engine's view of the contacts service.
type ContactDirectory interface {
	ListByProject(ctx context.Context, projectID string) ([]*repository.Contact, error)
	GetByID(ctx context.Context, id string) (*repository.Contact, error)
}

// ApproverResolver turns a project's collaborators into valid step
// assignments for a role.
type ApproverResolver struct {
	contacts ContactDirectory
}

// NewApproverResolver creates a new ApproverResolver.
func NewApproverResolver(contacts ContactDirectory) *ApproverResolver {
	return &ApproverResolver{contacts: contacts}
}

// ResolveCandidates returns every contact in the project eligible for the
// role, plus a "self" fallback when the principal has no contact record in
// the project. The self fallback keeps single-person projects decidable
// without inventing duplicate contact identities.
func (r *ApproverResolver) ResolveCandidates(
	ctx context.Context,
	projectID, role string,
	principal *auth.Principal,
) ([]Candidate, error) {
	if !ValidRole(role) {
		return nil, errors.InvalidInput("approver_role", "unknown approver role "+role)
	}

	contacts, err := r.contacts.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	var candidates []Candidate
	principalHasContact := false
	for _, c := range contacts {
		if c.UserID != nil && *c.UserID == principal.ID {
			principalHasContact = true
		}
		if !contactEligibleForRole(c.ContactType, role) {
			continue
		}
		id := c.ID
		candidates = append(candidates, Candidate{
			ContactID:   &id,
			Name:        c.Name,
			ContactType: c.ContactType,
		})
	}

	if !principalHasContact {
		candidates = append(candidates, Candidate{
			Name: "Myself",
			Self: true,
		})
	}

	return candidates, nil
}
