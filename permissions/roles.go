package permissions

// Role identifies the single active role of a session.
type Role string

const (
	RoleClinicalDirector  Role = "clinical-director"
	RoleBCBA              Role = "bcba"
	RoleBillingSpecialist Role = "billing-specialist"
	RoleAdministrator     Role = "administrator"
	RoleProjectManager    Role = "project-manager"
	RoleITManager         Role = "it-manager"
	RoleClinicalStaff     Role = "clinical-staff"
	RoleExecutive         Role = "executive"
)

var allRoles = []Role{
	RoleClinicalDirector,
	RoleBCBA,
	RoleBillingSpecialist,
	RoleAdministrator,
	RoleProjectManager,
	RoleITManager,
	RoleClinicalStaff,
	RoleExecutive,
}

// Roles returns the closed role enumeration.
func Roles() []Role {
	out := make([]Role, len(allRoles))
	copy(out, allRoles)
	return out
}

// Valid reports whether r is part of the enumeration.
func (r Role) Valid() bool {
	for _, known := range allRoles {
		if r == known {
			return true
		}
	}
	return false
}
