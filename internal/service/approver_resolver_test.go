package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitedock/be-pm-approvals/internal/errors"
	"github.com/sitedock/be-pm-approvals/internal/repository"
)

func TestResolveCandidatesFiltersByRole(t *testing.T) {
	dir := newFakeContacts(
		contact("contact-consultant", "consultant", "user-consultant"),
		contact("contact-inspector", "inspector", "user-inspector"),
		contact("contact-supplier", "supplier", ""),
	)
	resolver := NewApproverResolver(dir)

	// The caller has their own contact record, so no self fallback appears.
	got, err := resolver.ResolveCandidates(context.Background(), projectID, RoleConsultant, principal("user-consultant"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.NotNil(t, got[0].ContactID)
	assert.Equal(t, "contact-consultant", *got[0].ContactID)
	assert.False(t, got[0].Self)
}

func TestResolveCandidatesSelfFallback(t *testing.T) {
	dir := newFakeContacts(contact("contact-inspector", "inspector", "user-inspector"))
	resolver := NewApproverResolver(dir)

	// The principal has no contact in the project: a self candidate appears,
	// carrying no contact id so the step is stored unassigned.
	got, err := resolver.ResolveCandidates(context.Background(), projectID, RoleConsultant, principal("user-new"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Self)
	assert.Nil(t, got[0].ContactID)
}

func TestResolveCandidatesNoSelfWhenContactExists(t *testing.T) {
	dir := newFakeContacts(contact("contact-supplier", "supplier", "user-supplier"))
	resolver := NewApproverResolver(dir)

	// The principal's contact is not eligible for the role and suppresses the
	// self fallback: zero candidates.
	got, err := resolver.ResolveCandidates(context.Background(), projectID, RoleConsultant, principal("user-supplier"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestResolveCandidatesUnknownRole(t *testing.T) {
	resolver := NewApproverResolver(newFakeContacts())

	_, err := resolver.ResolveCandidates(context.Background(), projectID, "foreman", principal("user-1"))
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeValidation, errors.Code(err))
}

func TestResolveCandidatesMultiTypeRoles(t *testing.T) {
	dir := newFakeContacts(
		contact("contact-pm", "project_manager", "user-pm"),
		contact("contact-gc", "contractor", "user-gc"),
	)
	resolver := NewApproverResolver(dir)

	got, err := resolver.ResolveCandidates(context.Background(), projectID, RoleProjectManager, principal("user-pm"))
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestPolicyTables(t *testing.T) {
	for entityType, roles := range map[repository.EntityType][]string{
		repository.EntityTypeEquipment:   {RoleConsultant, RoleInspector},
		repository.EntityTypeRFI:         {RoleEngineer},
		repository.EntityTypeChangeOrder: {RoleConsultant, RoleProjectManager},
	} {
		assert.Equal(t, roles, RequiredRoles(entityType))
	}

	perm, ok := PermissionForRole(RoleInspector)
	require.True(t, ok)
	assert.Equal(t, "approvals:decide:inspector", perm)

	_, ok = PermissionForRole("foreman")
	assert.False(t, ok)
}
