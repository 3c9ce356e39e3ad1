package directory

import "context"

type Service struct {
	store *Store
}

func NewService(store *Store) *Service {
	return &Service{store: store}
}

func (s *Service) GetEmployee(ctx context.Context, employeeID string) (*Employee, error) {
	return s.store.GetEmployee(ctx, employeeID)
}

func (s *Service) GetEmployeeByUserID(ctx context.Context, userID string) (*Employee, error) {
	return s.store.GetEmployeeByUserID(ctx, userID)
}

func (s *Service) ListEmployees(ctx context.Context, status string) ([]Employee, error) {
	return s.store.ListEmployees(ctx, status)
}

func (s *Service) CreateEmployee(ctx context.Context, emp Employee) (string, error) {
	return s.store.CreateEmployee(ctx, emp)
}

func (s *Service) CreateEmployeeWithUser(ctx context.Context, emp Employee, password, roleName string) (string, string, error) {
	return s.store.CreateEmployeeWithUser(ctx, emp, password, roleName)
}

// UpdateEmployee writes the record and keeps the manager-relation history in
// step when the manager changed.
func (s *Service) UpdateEmployee(ctx context.Context, employeeID string, emp Employee) error {
	current, err := s.store.GetEmployee(ctx, employeeID)
	if err != nil {
		return err
	}
	if current == nil {
		return ErrNotFound
	}
	if err := s.store.UpdateEmployee(ctx, employeeID, emp); err != nil {
		return err
	}
	if emp.ManagerID != current.ManagerID {
		if err := s.store.CloseManagerRelations(ctx, employeeID); err != nil {
			return err
		}
		if emp.ManagerID != "" {
			return s.store.CreateManagerRelation(ctx, employeeID, emp.ManagerID)
		}
	}
	return nil
}

func (s *Service) ManagerHistory(ctx context.Context, employeeID string) ([]map[string]any, error) {
	return s.store.ManagerHistory(ctx, employeeID)
}

func (s *Service) DepartmentCount(ctx context.Context) (int, error) {
	return s.store.DepartmentCount(ctx)
}

func (s *Service) ListDepartments(ctx context.Context, limit, offset int) ([]Department, error) {
	return s.store.ListDepartments(ctx, limit, offset)
}

func (s *Service) GetDepartment(ctx context.Context, departmentID string) (*Department, error) {
	return s.store.GetDepartment(ctx, departmentID)
}

func (s *Service) CreateDepartment(ctx context.Context, dep Department) (string, error) {
	return s.store.CreateDepartment(ctx, dep)
}

func (s *Service) UpdateDepartment(ctx context.Context, departmentID string, dep Department) error {
	return s.store.UpdateDepartment(ctx, departmentID, dep)
}

func (s *Service) DepartmentHasEmployees(ctx context.Context, departmentID string) (bool, error) {
	return s.store.DepartmentHasEmployees(ctx, departmentID)
}

func (s *Service) DeleteDepartment(ctx context.Context, departmentID string) error {
	return s.store.DeleteDepartment(ctx, departmentID)
}

func (s *Service) ListEmergencyContacts(ctx context.Context, employeeID string) ([]EmergencyContact, error) {
	return s.store.ListEmergencyContacts(ctx, employeeID)
}

func (s *Service) ReplaceEmergencyContacts(ctx context.Context, employeeID string, contacts []EmergencyContact) error {
	return s.store.ReplaceEmergencyContacts(ctx, employeeID, contacts)
}
