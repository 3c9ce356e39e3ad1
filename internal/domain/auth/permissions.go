package auth

const (
	PermEmployeesRead  = "directory.employees.read"
	PermEmployeesWrite = "directory.employees.write"
	PermLeaveRead      = "leave.read"
	PermLeaveWrite     = "leave.write"
	PermLeaveApprove   = "leave.approve"
	PermBalancesRead   = "leave.balances.read"
	PermBalancesAdjust = "leave.balances.adjust"
	PermRolloverRun    = "leave.rollover.run"
	PermPolicyWrite    = "leave.policy.write"
	PermReportsRead    = "reports.read"
	PermAuditRead      = "audit.read"
	PermSystemAdmin    = "admin.system"
)

var DefaultPermissions = []string{
	PermEmployeesRead,
	PermEmployeesWrite,
	PermLeaveRead,
	PermLeaveWrite,
	PermLeaveApprove,
	PermBalancesRead,
	PermBalancesAdjust,
	PermRolloverRun,
	PermPolicyWrite,
	PermReportsRead,
	PermAuditRead,
	PermSystemAdmin,
}

var RolePermissions = map[string][]string{
	RoleEmployee: {
		PermEmployeesRead,
		PermLeaveRead,
		PermLeaveWrite,
		PermBalancesRead,
	},
	RoleManager: {
		PermEmployeesRead,
		PermLeaveRead,
		PermLeaveWrite,
		PermLeaveApprove,
		PermBalancesRead,
		PermReportsRead,
	},
	RoleHR: {
		PermEmployeesRead,
		PermEmployeesWrite,
		PermLeaveRead,
		PermLeaveWrite,
		PermLeaveApprove,
		PermBalancesRead,
		PermBalancesAdjust,
		PermPolicyWrite,
		PermReportsRead,
		PermAuditRead,
	},
	RoleAdmin: {
		PermEmployeesRead,
		PermEmployeesWrite,
		PermLeaveRead,
		PermLeaveWrite,
		PermLeaveApprove,
		PermBalancesRead,
		PermBalancesAdjust,
		PermRolloverRun,
		PermPolicyWrite,
		PermReportsRead,
		PermAuditRead,
		PermSystemAdmin,
	},
}
