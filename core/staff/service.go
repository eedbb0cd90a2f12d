package staff

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/nojinx/ssm/core"
)

var (
	// errors
	ErrNotFound        = errors.New("staff not found")
	ErrStaffIDExists   = errors.New("a staff member with this ID already exists")
	ErrEmailExists     = errors.New("this email is already registered")
	ErrHODExists       = errors.New("a head of department already exists")
	ErrSemesterTaken   = errors.New("this semester already has a class incharge")
	ErrSemesterMissing = errors.New("a class incharge must have an assigned semester")
	ErrInvalidPassword = errors.New("old password is incorrect")
)

type (
	Repository interface {
		// CheckUniqueness returns ErrStaffIDExists or ErrEmailExists when another Staff member
		// (excluding `excluded`) already uses staffID or email. Empty values are not checked.
		CheckUniqueness(ctx context.Context, staffID, email string, excluded ...Staff) error
		Create(ctx context.Context, s Staff) (Staff, error)
		Get(ctx context.Context, id string) (Staff, error)
		// Query applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Staff.ID, Staff.Name or Staff.Email.
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Staff, error)
		// FindByRole returns the Staff members holding role, optionally restricted to a semester.
		FindByRole(ctx context.Context, role string, semester *int) ([]Staff, error)
		Update(ctx context.Context, s Staff) (Staff, error)
		SetLastLogin(ctx context.Context, id string, t time.Time) error
		Delete(ctx context.Context, id string) error
	}

	ServiceInterface interface {
		CheckUniqueness(ctx context.Context, staffID, email string, excluded ...Staff) error
		CheckRole(ctx context.Context, role string, semester *int, excluded ...Staff) error
		Register(ctx context.Context, ns NewStaff) (Staff, error)
		Get(ctx context.Context, id string) (Staff, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Staff, error)
		Update(ctx context.Context, orig Staff, us UpdateStaff) (Staff, error)
		ChangePassword(ctx context.Context, s Staff, cp ChangePassword) error
		SetPassword(ctx context.Context, id, pwd string) error
		UpdateOrCreate(ctx context.Context, s Staff, pwd string) (Staff, error)
		SetLastLogin(ctx context.Context, id string) error
		Delete(ctx context.Context, id string) error
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate}
}

func (svc *Service) CheckUniqueness(ctx context.Context, staffID, email string, excluded ...Staff) error {
	if err := svc.repo.CheckUniqueness(ctx, staffID, email, excluded...); err != nil {
		var field string
		switch errors.Cause(err) {
		case ErrStaffIDExists:
			field = "staff_id"
		case ErrEmailExists:
			field = "email"
		default:
			return errors.Wrap(err, "checking staff uniqueness")
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

// CheckRole enforces the role rules: a single HOD, and one class incharge per semester.
func (svc *Service) CheckRole(ctx context.Context, role string, semester *int, excluded ...Staff) error {
	isExcluded := func(s Staff) bool {
		for _, ex := range excluded {
			if ex.ID == s.ID {
				return true
			}
		}
		return false
	}

	switch role {
	case RoleHOD:
		hods, err := svc.repo.FindByRole(ctx, RoleHOD, nil)
		if err != nil {
			return errors.Wrap(err, "finding HODs")
		}
		for _, hod := range hods {
			if !isExcluded(hod) {
				return core.NewValidationError(ErrHODExists, core.FieldError{Field: "role", Error: ErrHODExists.Error()})
			}
		}
	case RoleClassIncharge:
		if semester == nil {
			return core.NewValidationError(ErrSemesterMissing, core.FieldError{Field: "assigned_semester", Error: ErrSemesterMissing.Error()})
		}
		incharges, err := svc.repo.FindByRole(ctx, RoleClassIncharge, semester)
		if err != nil {
			return errors.Wrap(err, "finding class incharges")
		}
		for _, ci := range incharges {
			if !isExcluded(ci) {
				msg := fmt.Sprintf("semester %d already has a class incharge (%s)", *semester, ci.Name)
				return core.NewValidationError(ErrSemesterTaken, core.FieldError{Field: "assigned_semester", Error: msg})
			}
		}
	}
	return nil
}

// Register creates a Staff member from an already validated NewStaff.
func (svc *Service) Register(ctx context.Context, ns NewStaff) (Staff, error) {
	now := time.Now().UTC()
	s := Staff{
		ID:                   ns.ID,
		Name:                 ns.Name,
		Email:                ns.Email,
		Salutation:           ns.Salutation,
		Designation:          ns.Designation,
		Department:           ns.Department,
		Role:                 ns.Role,
		AssignedSemester:     ns.AssignedSemester,
		Qualification:        ns.Qualification,
		Specialization:       ns.Specialization,
		Experience:           ns.Experience,
		DateOfBirth:          ns.DateOfBirth,
		DateOfJoining:        ns.DateOfJoining,
		Address:              ns.Address,
		AcademicDetails:      ns.AcademicDetails,
		Publications:         ns.Publications,
		AwardsAndMemberships: ns.AwardsAndMemberships,
		IsActive:             true,
		IsAdmin:              ns.IsAdmin,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.SetPassword(ns.Password); err != nil {
		return Staff{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.Create(ctx, s)
}

func (svc *Service) Get(ctx context.Context, id string) (Staff, error) {
	return svc.repo.Get(ctx, core.CleanString(id))
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Staff, error) {
	return svc.repo.Query(ctx, filter, ordering)
}

// Update applies an already validated UpdateStaff to orig.
func (svc *Service) Update(ctx context.Context, orig Staff, us UpdateStaff) (Staff, error) {
	s := us.Apply(orig)
	s.UpdatedAt = time.Now().UTC()
	return svc.repo.Update(ctx, s)
}

func (svc *Service) ChangePassword(ctx context.Context, s Staff, cp ChangePassword) error {
	if err := svc.validate.Struct(cp); err != nil {
		return err
	}
	if err := s.CheckPassword(cp.OldPassword); err != nil {
		return core.NewValidationError(ErrInvalidPassword, core.FieldError{Field: "old_password", Error: ErrInvalidPassword.Error()})
	}
	if tag := core.ValidatePassword(cp.Password, s.ID, s.Name, s.Email); tag != "" {
		return core.PasswordError(tag)
	}
	if err := s.SetPassword(cp.Password); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	s.UpdatedAt = time.Now().UTC()
	_, err := svc.repo.Update(ctx, s)
	return err
}

// SetPassword sets id's password without applying the password policy (operators only).
func (svc *Service) SetPassword(ctx context.Context, id, pwd string) error {
	s, err := svc.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	s.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.Update(ctx, s)
	return err
}

// UpdateOrCreate saves s with the given password, creating it if s.ID does not exist yet.
func (svc *Service) UpdateOrCreate(ctx context.Context, s Staff, pwd string) (Staff, error) {
	now := time.Now().UTC()
	s.UpdatedAt = now
	if err := s.SetPassword(pwd); err != nil {
		return Staff{}, errors.Wrap(err, "hashing password")
	}

	existing, err := svc.repo.Get(ctx, s.ID)
	switch errors.Cause(err) {
	case nil:
		if err := svc.CheckUniqueness(ctx, "", s.Email, existing); err != nil {
			return Staff{}, err
		}
		existing.Name = s.Name
		existing.Email = s.Email
		existing.IsActive = s.IsActive
		existing.IsAdmin = existing.IsAdmin || s.IsAdmin
		existing.PasswordHash = s.PasswordHash
		existing.UpdatedAt = now
		return svc.repo.Update(ctx, existing)
	case ErrNotFound:
		if err := svc.CheckUniqueness(ctx, "", s.Email); err != nil {
			return Staff{}, err
		}
		if s.Role == "" {
			s.Role = RoleStaff
		}
		s.CreatedAt = now
		return svc.repo.Create(ctx, s)
	default:
		return Staff{}, errors.Wrap(err, "finding staff")
	}
}

func (svc *Service) SetLastLogin(ctx context.Context, id string) error {
	return svc.repo.SetLastLogin(ctx, id, time.Now().UTC())
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.Delete(ctx, id)
}
