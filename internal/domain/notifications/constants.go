package notifications

const (
	TypeLeaveSubmitted     = "leave_submitted"
	TypeLeaveApproved      = "leave_approved"
	TypeLeaveRejected      = "leave_rejected"
	TypeLeaveCancelled     = "leave_cancelled"
	TypeBalanceAdjusted    = "balance_adjusted"
	TypeBalanceInitialized = "balance_initialized"
	TypeRolloverCompleted  = "rollover_completed"
)
