package directory

import (
	"testing"

	"leavehub/internal/domain/auth"
)

func sampleEmployee() *Employee {
	return &Employee{FirstName: "Asha", LastName: "Perera", NationalID: "ID123"}
}

func TestFilterEmployeeFieldsHR(t *testing.T) {
	emp := sampleEmployee()
	FilterEmployeeFields(emp, auth.UserContext{RoleName: auth.RoleHR})
	if emp.NationalID == "" {
		t.Fatal("HR should retain the national ID")
	}
}

func TestFilterEmployeeFieldsAdmin(t *testing.T) {
	emp := sampleEmployee()
	FilterEmployeeFields(emp, auth.UserContext{RoleName: auth.RoleAdmin})
	if emp.NationalID == "" {
		t.Fatal("admins should retain the national ID")
	}
}

func TestFilterEmployeeFieldsManager(t *testing.T) {
	emp := sampleEmployee()
	FilterEmployeeFields(emp, auth.UserContext{RoleName: auth.RoleManager})
	if emp.NationalID != "" {
		t.Fatal("managers should not see the national ID")
	}
}

func TestFilterEmployeeFieldsEmployee(t *testing.T) {
	emp := sampleEmployee()
	FilterEmployeeFields(emp, auth.UserContext{RoleName: auth.RoleEmployee})
	if emp.NationalID != "" {
		t.Fatal("employees should not see the national ID")
	}
}
