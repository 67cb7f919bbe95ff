package rbac

// Role names. Keep these stable; they are stored in user_roles.role.
const (
	RoleAdmin      = "admin"
	RoleManager    = "manager"
	RoleMember     = "member"
	RoleSuperAdmin = "super_admin" // platform role, no organization
)

// DefaultSignupRole is granted to the first user of a new organization.
const DefaultSignupRole = RoleAdmin

func IsSuperAdmin(role string) bool { return role == RoleSuperAdmin }

func IsOrganizationRole(role string) bool {
	switch role {
	case RoleAdmin, RoleManager, RoleMember:
		return true
	}
	return false
}

// Rank orders roles by privilege. Unknown roles rank 0.
func Rank(role string) int {
	switch role {
	case RoleMember:
		return 1
	case RoleManager:
		return 2
	case RoleAdmin:
		return 3
	case RoleSuperAdmin:
		return 4
	}
	return 0
}

// AtLeast reports whether role is min or stronger.
func AtLeast(role, min string) bool { return Rank(role) >= Rank(min) && Rank(role) > 0 }
