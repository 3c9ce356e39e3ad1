package leave

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

type fakeEmployee struct {
	active    bool
	userID    string
	managerID string
}

// fakeStore is an in-memory StoreAPI mirroring the SQL store's contracts:
// insert-if-absent on the active (employee, type, year) tuple, guarded
// request creation, pending-only transitions.
type fakeStore struct {
	types     map[string]LeaveType
	employees map[string]fakeEmployee
	balances  []*LeaveBalance
	requests  map[string]*LeaveRequest
	policies  []DefaultBalance
	roles     map[string]string // userID -> role name
	nextID    int

	balanceErr map[string]error // employeeID -> injected failure
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		types:      make(map[string]LeaveType),
		employees:  make(map[string]fakeEmployee),
		requests:   make(map[string]*LeaveRequest),
		roles:      make(map[string]string),
		balanceErr: make(map[string]error),
	}
}

var _ StoreAPI = (*fakeStore)(nil)

func (f *fakeStore) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *fakeStore) addType(name string, defaultDays float64) LeaveType {
	t := LeaveType{ID: f.id("lt"), Name: name, DefaultDays: defaultDays, IsActive: true}
	f.types[t.ID] = t
	return t
}

func (f *fakeStore) addEmployee(userID, managerEmployeeID string) string {
	id := f.id("emp")
	f.employees[id] = fakeEmployee{active: true, userID: userID, managerID: managerEmployeeID}
	return id
}

func (f *fakeStore) addBalance(b LeaveBalance) *LeaveBalance {
	b.ID = f.id("bal")
	b.IsActive = true
	stored := b
	f.balances = append(f.balances, &stored)
	return &stored
}

func (f *fakeStore) ListTypes(ctx context.Context, includeInactive bool) ([]LeaveType, error) {
	var out []LeaveType
	for _, t := range f.types {
		if !includeInactive && !t.IsActive {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeStore) ListActiveTypes(ctx context.Context) ([]LeaveType, error) {
	return f.ListTypes(ctx, false)
}

func (f *fakeStore) TypeByID(ctx context.Context, leaveTypeID string) (*LeaveType, error) {
	t, ok := f.types[leaveTypeID]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (f *fakeStore) CreateType(ctx context.Context, payload LeaveType) (string, error) {
	t := f.addType(payload.Name, payload.DefaultDays)
	return t.ID, nil
}

func (f *fakeStore) DeactivateType(ctx context.Context, leaveTypeID string) error {
	t, ok := f.types[leaveTypeID]
	if !ok {
		return ErrNotFound
	}
	t.IsActive = false
	f.types[leaveTypeID] = t
	return nil
}

func (f *fakeStore) EmployeeActive(ctx context.Context, employeeID string) (bool, error) {
	e, ok := f.employees[employeeID]
	return ok && e.active, nil
}

func (f *fakeStore) ListActiveEmployeeIDs(ctx context.Context) ([]string, error) {
	var ids []string
	for id, e := range f.employees {
		if e.active {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *fakeStore) EmployeeIDByUserID(ctx context.Context, userID string) (string, error) {
	for id, e := range f.employees {
		if e.userID == userID {
			return id, nil
		}
	}
	return "", nil
}

func (f *fakeStore) UserIDByEmployeeID(ctx context.Context, employeeID string) (string, error) {
	return f.employees[employeeID].userID, nil
}

func (f *fakeStore) ManagerUserIDForEmployee(ctx context.Context, employeeID string) (string, error) {
	manager, ok := f.employees[f.employees[employeeID].managerID]
	if !ok {
		return "", nil
	}
	return manager.userID, nil
}

func (f *fakeStore) IsManagerOf(ctx context.Context, managerEmployeeID, employeeID string) (bool, error) {
	if managerEmployeeID == "" {
		return false, nil
	}
	return f.employees[employeeID].managerID == managerEmployeeID, nil
}

func (f *fakeStore) UserIDsWithRoles(ctx context.Context, roleNames []string) ([]string, error) {
	var ids []string
	for userID, role := range f.roles {
		for _, name := range roleNames {
			if role == name {
				ids = append(ids, userID)
				break
			}
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *fakeStore) BalancesForYear(ctx context.Context, employeeID string, year int) ([]LeaveBalance, error) {
	var out []LeaveBalance
	for _, b := range f.balances {
		if b.EmployeeID == employeeID && b.FinancialYear == year && b.IsActive {
			copied := *b
			copied.LeaveTypeName = f.types[b.LeaveTypeID].Name
			out = append(out, copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LeaveTypeName < out[j].LeaveTypeName })
	return out, nil
}

func (f *fakeStore) ActiveBalance(ctx context.Context, employeeID, leaveTypeID string, year int) (*LeaveBalance, error) {
	if err := f.balanceErr[employeeID]; err != nil {
		return nil, err
	}
	for _, b := range f.balances {
		if b.EmployeeID == employeeID && b.LeaveTypeID == leaveTypeID && b.FinancialYear == year && b.IsActive {
			copied := *b
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) InsertBalanceIfAbsent(ctx context.Context, balance LeaveBalance) (bool, error) {
	existing, err := f.ActiveBalance(ctx, balance.EmployeeID, balance.LeaveTypeID, balance.FinancialYear)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}
	f.addBalance(balance)
	return true, nil
}

func (f *fakeStore) UpdateBalance(ctx context.Context, balance LeaveBalance) error {
	for _, b := range f.balances {
		if b.ID == balance.ID && b.IsActive {
			copied := balance
			*b = copied
			return nil
		}
	}
	return ErrNotFound
}

func (f *fakeStore) AllBalancesForYear(ctx context.Context, year int) ([]LeaveBalance, error) {
	var out []LeaveBalance
	for _, b := range f.balances {
		if b.FinancialYear == year && b.IsActive {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateRequestGuarded(ctx context.Context, request LeaveRequest, year int) (string, error) {
	for _, existing := range f.requests {
		if existing.EmployeeID != request.EmployeeID {
			continue
		}
		if existing.Status != StatusPending && existing.Status != StatusApproved {
			continue
		}
		if Overlaps(request.StartDate, request.EndDate, existing.StartDate, existing.EndDate) {
			return "", ErrOverlappingRequest
		}
	}

	remaining := 0.0
	if balance, _ := f.ActiveBalance(ctx, request.EmployeeID, request.LeaveTypeID, year); balance != nil {
		remaining = balance.RemainingDays
	}
	if remaining < request.NumberOfDays {
		return "", fmt.Errorf("%.1f days remaining, %.1f requested: %w", remaining, request.NumberOfDays, ErrInsufficientBalance)
	}

	request.ID = f.id("req")
	request.Status = StatusPending
	request.CreatedAt = time.Now()
	stored := request
	f.requests[request.ID] = &stored
	return request.ID, nil
}

func (f *fakeStore) RequestByID(ctx context.Context, requestID string) (*LeaveRequest, error) {
	r, ok := f.requests[requestID]
	if !ok {
		return nil, nil
	}
	copied := *r
	return &copied, nil
}

func (f *fakeStore) UpdateRequestDecision(ctx context.Context, requestID, status, approverID, rejectionReason string) error {
	r, ok := f.requests[requestID]
	if !ok || r.Status != StatusPending {
		return ErrInvalidState
	}
	r.Status = status
	r.ApproverID = approverID
	r.RejectionReason = rejectionReason
	now := time.Now()
	r.ApprovedAt = &now
	return nil
}

func (f *fakeStore) UpdateRequestStatus(ctx context.Context, requestID, status string) error {
	r, ok := f.requests[requestID]
	if !ok || r.Status != StatusPending {
		return ErrInvalidState
	}
	r.Status = status
	return nil
}

func (f *fakeStore) ApproveAndDebit(ctx context.Context, request LeaveRequest, approverID string, year int) error {
	if err := f.UpdateRequestDecision(ctx, request.ID, StatusApproved, approverID, ""); err != nil {
		return err
	}
	for _, b := range f.balances {
		if b.EmployeeID == request.EmployeeID && b.LeaveTypeID == request.LeaveTypeID && b.FinancialYear == year && b.IsActive {
			b.UsedDays = RoundDays(b.UsedDays + request.NumberOfDays)
			b.RemainingDays = Recompute(b.TotalDays, b.UsedDays, b.CarriedOverDays)
			b.LastUpdatedBy = approverID
			return nil
		}
	}
	return fmt.Errorf("no active balance: %w", ErrNotFound)
}

func (f *fakeStore) ListRequests(ctx context.Context, filter RequestFilter) ([]LeaveRequest, int, error) {
	var out []LeaveRequest
	for _, r := range f.requests {
		if filter.EmployeeID != "" && r.EmployeeID != filter.EmployeeID {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (f *fakeStore) CurrentDefaultBalance(ctx context.Context) (*DefaultBalance, error) {
	for i := range f.policies {
		if f.policies[i].IsCurrent {
			copied := f.policies[i]
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) SaveDefaultBalance(ctx context.Context, payload DefaultBalance) (DefaultBalance, error) {
	for i := range f.policies {
		f.policies[i].IsCurrent = false
	}
	payload.ID = f.id("db")
	payload.Version = len(f.policies) + 1
	payload.IsCurrent = true
	payload.CreatedAt = time.Now()
	f.policies = append(f.policies, payload)
	return payload, nil
}

func (f *fakeStore) DefaultBalanceHistory(ctx context.Context) ([]DefaultBalance, error) {
	out := make([]DefaultBalance, len(f.policies))
	copy(out, f.policies)
	sort.Slice(out, func(i, j int) bool { return out[i].Version > out[j].Version })
	return out, nil
}

func (f *fakeStore) UsageByType(ctx context.Context, year int) ([]UsageRow, error) {
	totals := make(map[string]float64)
	for _, r := range f.requests {
		if r.Status == StatusApproved {
			totals[r.LeaveTypeID] += r.NumberOfDays
		}
	}
	var out []UsageRow
	for typeID, total := range totals {
		out = append(out, UsageRow{LeaveTypeID: typeID, LeaveTypeName: f.types[typeID].Name, TotalDays: total})
	}
	sort.Slice(out, func(i, j int) bool { return strings.Compare(out[i].LeaveTypeName, out[j].LeaveTypeName) < 0 })
	return out, nil
}
