package service

import "github.com/sitedock/be-pm-approvals/internal/repository"

// Approver roles form a closed set. Free-text role labels are rejected at
// request creation so a step can never be silently unassignable.
const (
	RoleConsultant     = "consultant"
	RoleInspector      = "inspector"
	RoleEngineer       = "engineer"
	RoleProjectManager = "project_manager"
)

// requiredRolesByEntityType lists the step categories each approvable entity
// kind must cover, in chain order.
var requiredRolesByEntityType = map[repository.EntityType][]string{
	repository.EntityTypeEquipment:   {RoleConsultant, RoleInspector},
	repository.EntityTypeMaterial:    {RoleConsultant, RoleInspector},
	repository.EntityTypeRFI:         {RoleEngineer},
	repository.EntityTypeChangeOrder: {RoleConsultant, RoleProjectManager},
}

// permissionByRole maps an approver role to the permission a principal must
// hold to decide an unassigned step of that role.
var permissionByRole = map[string]string{
	RoleConsultant:     "approvals:decide:consultant",
	RoleInspector:      "approvals:decide:inspector",
	RoleEngineer:       "approvals:decide:engineer",
	RoleProjectManager: "approvals:decide:project_manager",
}

// contactTypesByRole maps an approver role to the contact types eligible to
// be assigned a step of that role.
var contactTypesByRole = map[string][]string{
	RoleConsultant:     {"consultant"},
	RoleInspector:      {"inspector", "owner_representative"},
	RoleEngineer:       {"engineer", "consultant"},
	RoleProjectManager: {"project_manager", "contractor"},
}

// RequiredRoles returns the step categories an entity type requires.
func RequiredRoles(entityType repository.EntityType) []string {
	return requiredRolesByEntityType[entityType]
}

// PermissionForRole returns the permission guarding unassigned steps of a
// role, and whether the role is known.
func PermissionForRole(role string) (string, bool) {
	perm, ok := permissionByRole[role]
	return perm, ok
}

// ValidRole reports whether role belongs to the closed set.
func ValidRole(role string) bool {
	_, ok := permissionByRole[role]
	return ok
}

func contactEligibleForRole(contactType, role string) bool {
	for _, t := range contactTypesByRole[role] {
		if t == contactType {
			return true
		}
	}
	return false
}
