package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/sitedock/be-pm-approvals/internal/database"
	"github.com/sitedock/be-pm-approvals/internal/errors"
)

// ContactRepository reads project collaborators. Contact CRUD itself belongs
// to the contacts service; the engine only needs the directory view.
type ContactRepository struct {
	db *database.DB
}

// NewContactRepository creates a new ContactRepository.
func NewContactRepository(db *database.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

// ListByProject returns all contacts attached to a project.
func (r *ContactRepository) ListByProject(ctx context.Context, projectID string) ([]*Contact, error) {
	query := `
		SELECT id, project_id, contact_type, name, email, user_id,
		       created_at, updated_at
		FROM contacts
		WHERE project_id = $1
		ORDER BY name ASC
	`

	rows, err := r.db.Query(ctx, query, projectID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list contacts")
	}
	defer rows.Close()

	var contacts []*Contact
	for rows.Next() {
		c := &Contact{}
		err := rows.Scan(
			&c.ID,
			&c.ProjectID,
			&c.ContactType,
			&c.Name,
			&c.Email,
			&c.UserID,
			&c.CreatedAt,
			&c.UpdatedAt,
		)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan contact")
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

// GetByID retrieves one contact.
func (r *ContactRepository) GetByID(ctx context.Context, id string) (*Contact, error) {
	query := `
		SELECT id, project_id, contact_type, name, email, user_id,
		       created_at, updated_at
		FROM contacts
		WHERE id = $1
	`

	c := &Contact{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&c.ID,
		&c.ProjectID,
		&c.ContactType,
		&c.Name,
		&c.Email,
		&c.UserID,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("contact", id)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}
