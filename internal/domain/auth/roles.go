package auth

const (
	RoleEmployee = "employee"
	RoleManager  = "manager"
	RoleHR       = "hr"
	RoleAdmin    = "admin"
)

var AllRoles = []string{RoleEmployee, RoleManager, RoleHR, RoleAdmin}

// CanApprove reports whether a role may decide leave requests at all.
// Manager ownership of the employee is checked separately.
func CanApprove(roleName string) bool {
	return roleName == RoleManager || roleName == RoleHR || roleName == RoleAdmin
}
