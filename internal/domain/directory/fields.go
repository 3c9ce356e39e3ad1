package directory

import "leavehub/internal/domain/auth"

// FilterEmployeeFields strips fields the caller's role may not see. Only HR
// and admins get the national ID back.
func FilterEmployeeFields(emp *Employee, user auth.UserContext) {
	if user.RoleName == auth.RoleHR || user.RoleName == auth.RoleAdmin {
		return
	}
	emp.NationalID = ""
}
