package leave

import (
	"errors"
	"time"
)

const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusCancelled = "cancelled"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrInsufficientBalance = errors.New("insufficient leave balance")
	ErrOverlappingRequest  = errors.New("overlapping leave request")
	ErrInvalidState        = errors.New("invalid state")
	ErrForbidden           = errors.New("forbidden")
)

type LeaveType struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	DefaultDays     float64   `json:"defaultDays"`
	MonthlyProRata  float64   `json:"monthlyProRata"`
	MaxCarryForward float64   `json:"maxCarryForward"`
	IsActive        bool      `json:"isActive"`
	CreatedAt       time.Time `json:"createdAt"`
}

type LeaveBalance struct {
	ID              string    `json:"id"`
	EmployeeID      string    `json:"employeeId"`
	LeaveTypeID     string    `json:"leaveTypeId"`
	LeaveTypeName   string    `json:"leaveTypeName,omitempty"`
	FinancialYear   int       `json:"financialYear"`
	TotalDays       float64   `json:"totalDays"`
	UsedDays        float64   `json:"usedDays"`
	RemainingDays   float64   `json:"remainingDays"`
	CarriedOverDays float64   `json:"carriedOverDays"`
	MaxCarryOver    float64   `json:"maxCarryOver"`
	IsActive        bool      `json:"isActive"`
	LastUpdatedBy   string    `json:"lastUpdatedBy,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type LeaveRequest struct {
	ID              string     `json:"id"`
	EmployeeID      string     `json:"employeeId"`
	LeaveTypeID     string     `json:"leaveTypeId"`
	LeaveTypeName   string     `json:"leaveTypeName,omitempty"`
	StartDate       time.Time  `json:"startDate"`
	EndDate         time.Time  `json:"endDate"`
	IsHalfDay       bool       `json:"isHalfDay"`
	HalfDayType     string     `json:"halfDayType,omitempty"`
	NumberOfDays    float64    `json:"numberOfDays"`
	Reason          string     `json:"reason"`
	Status          string     `json:"status"`
	ApproverID      string     `json:"approverId,omitempty"`
	ApprovedAt      *time.Time `json:"approvedAt,omitempty"`
	RejectionReason string     `json:"rejectionReason,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// DefaultBalance is a versioned policy snapshot. Exactly one row carries
// is_current; older versions are kept as append-only history.
type DefaultBalance struct {
	ID            string    `json:"id"`
	AnnualLeave   float64   `json:"annualLeave"`
	SickLeave     float64   `json:"sickLeave"`
	PersonalLeave float64   `json:"personalLeave"`
	MaxCarryOver  float64   `json:"maxCarryOver"`
	Version       int       `json:"version"`
	IsCurrent     bool      `json:"isCurrent"`
	CreatedBy     string    `json:"createdBy,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}
