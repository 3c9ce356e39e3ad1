package leave

import (
	"context"
	"time"
)

// StoreAPI is everything the leave services need from persistence. The
// pgx-backed Store implements it; tests substitute fakes.
type StoreAPI interface {
	ListTypes(ctx context.Context, includeInactive bool) ([]LeaveType, error)
	ListActiveTypes(ctx context.Context) ([]LeaveType, error)
	TypeByID(ctx context.Context, leaveTypeID string) (*LeaveType, error)
	CreateType(ctx context.Context, payload LeaveType) (string, error)
	DeactivateType(ctx context.Context, leaveTypeID string) error

	EmployeeActive(ctx context.Context, employeeID string) (bool, error)
	ListActiveEmployeeIDs(ctx context.Context) ([]string, error)
	EmployeeIDByUserID(ctx context.Context, userID string) (string, error)
	UserIDByEmployeeID(ctx context.Context, employeeID string) (string, error)
	ManagerUserIDForEmployee(ctx context.Context, employeeID string) (string, error)
	IsManagerOf(ctx context.Context, managerEmployeeID, employeeID string) (bool, error)
	UserIDsWithRoles(ctx context.Context, roleNames []string) ([]string, error)

	BalancesForYear(ctx context.Context, employeeID string, year int) ([]LeaveBalance, error)
	ActiveBalance(ctx context.Context, employeeID, leaveTypeID string, year int) (*LeaveBalance, error)
	InsertBalanceIfAbsent(ctx context.Context, balance LeaveBalance) (bool, error)
	UpdateBalance(ctx context.Context, balance LeaveBalance) error
	AllBalancesForYear(ctx context.Context, year int) ([]LeaveBalance, error)

	CreateRequestGuarded(ctx context.Context, request LeaveRequest, year int) (string, error)
	RequestByID(ctx context.Context, requestID string) (*LeaveRequest, error)
	UpdateRequestDecision(ctx context.Context, requestID, status, approverID, rejectionReason string) error
	UpdateRequestStatus(ctx context.Context, requestID, status string) error
	ApproveAndDebit(ctx context.Context, request LeaveRequest, approverID string, year int) error
	ListRequests(ctx context.Context, filter RequestFilter) ([]LeaveRequest, int, error)

	CurrentDefaultBalance(ctx context.Context) (*DefaultBalance, error)
	SaveDefaultBalance(ctx context.Context, payload DefaultBalance) (DefaultBalance, error)
	DefaultBalanceHistory(ctx context.Context) ([]DefaultBalance, error)

	UsageByType(ctx context.Context, year int) ([]UsageRow, error)
}

type RequestFilter struct {
	EmployeeID        string
	ManagerEmployeeID string
	Status            string
	From              time.Time
	To                time.Time
	Limit             int
	Offset            int
}

type UsageRow struct {
	LeaveTypeID   string  `json:"leaveTypeId"`
	LeaveTypeName string  `json:"leaveTypeName"`
	TotalDays     float64 `json:"totalDays"`
}
