package auth

const (
	// RoleTagMember is the registration tag for ordinary volunteers
	RoleTagMember = "member"
	// RoleTagAdmin is the registration tag for elevated-access applicants
	RoleTagAdmin = "admin"
)

// IsValid checks if the role is one of the predefined valid roles
func IsValidRole(r UserRole) bool {
	switch r {
	case RoleMember, RoleAdminPending, RoleAdmin:
		return true
	default:
		return false
	}
}

// ParseRoleTag maps a registration role tag onto the stored role. Elevated
// access is never granted at registration time; requesting admin lands the
// account in ADMIN_PENDING.
func ParseRoleTag(tag string) (UserRole, bool) {
	switch tag {
	case RoleTagMember:
		return RoleMember, true
	case RoleTagAdmin:
		return RoleAdminPending, true
	default:
		return "", false
	}
}

// RoleTag returns the registration tag a stored role corresponds to. Used
// when re-encoding confirmation tokens for unconfirmed accounts.
func RoleTag(r UserRole) string {
	switch r {
	case RoleAdminPending, RoleAdmin:
		return RoleTagAdmin
	default:
		return RoleTagMember
	}
}

// RedirectPath suggests a landing route for a freshly authenticated role.
func RedirectPath(r UserRole) string {
	if r == RoleAdmin {
		return "/admin"
	}
	return "/member"
}
