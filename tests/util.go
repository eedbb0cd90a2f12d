package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/nojinx/ssm/core/staff"
	"github.com/nojinx/ssm/core/student"
)

// CreateStaff saves an active staff member holding role (staff.RoleStaff when empty).
func CreateStaff(
	t *testing.T,
	repo staff.Repository,
	id, name, email, pwd, role string,
	isAdmin bool,
	semester ...int,
) staff.Staff {
	now := time.Now().UTC()
	if role == "" {
		role = staff.RoleStaff
	}
	s := staff.Staff{
		ID:        id,
		Name:      name,
		Email:     email,
		Role:      role,
		IsActive:  true,
		IsAdmin:   isAdmin,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if len(semester) > 0 {
		sem := semester[0]
		s.AssignedSemester = &sem
	}
	if pwd != "" {
		if err := s.SetPassword(pwd); err != nil {
			t.Fatalf("CreateStaff() failed: %v", err)
		}
	}
	s, err := repo.Create(context.Background(), s)
	if err != nil {
		t.Fatalf("CreateStaff() failed: %v", err)
	}
	return s
}

// CreateStudent saves an active UG regular student.
func CreateStudent(
	t *testing.T,
	repo student.Repository,
	roll, name, email, pwd string,
	semester int,
) student.Student {
	now := time.Now().UTC()
	s := student.Student{
		RollNumber:        roll,
		Name:              name,
		Email:             email,
		CurrentSemester:   semester,
		ProgramLevel:      student.ProgramUG,
		UGEntryType:       student.EntryRegular,
		IsProfileComplete: name != "" && email != "",
		IsActive:          true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if pwd != "" {
		if err := s.SetPassword(pwd); err != nil {
			t.Fatalf("CreateStudent() failed: %v", err)
		}
	}
	s, err := repo.Create(context.Background(), s)
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return s
}
