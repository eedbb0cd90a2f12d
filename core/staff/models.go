package staff

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/nojinx/ssm/core"
)

// Roles
const (
	RoleHOD           = "hod"
	RoleClassIncharge = "class_incharge"
	RoleStaff         = "staff"
)

var (
	AllRoles = []string{RoleHOD, RoleClassIncharge, RoleStaff}

	Roles = []Role{
		{Name: "Staff", Value: RoleStaff},
		{Name: "Class Incharge", Value: RoleClassIncharge},
		{Name: "Head of Department", Value: RoleHOD},
	}
)

func IsValidRole(role string) bool {
	for _, r := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Staff struct {
	ID                   string    `json:"staff_id"`
	Name                 string    `json:"name"`
	Email                string    `json:"email"`
	Salutation           string    `json:"salutation"`
	Designation          string    `json:"designation"`
	Department           string    `json:"department"`
	Role                 string    `json:"role"`
	AssignedSemester     *int      `json:"assigned_semester"`
	Qualification        string    `json:"qualification"`
	Specialization       string    `json:"specialization"`
	Experience           string    `json:"experience"`
	DateOfBirth          core.Date `json:"date_of_birth"`
	DateOfJoining        core.Date `json:"date_of_joining"`
	Address              string    `json:"address"`
	AcademicDetails      string    `json:"academic_details"`
	Publications         string    `json:"publications"`
	AwardsAndMemberships string    `json:"awards_and_memberships"`
	IsActive             bool      `json:"is_active"`
	IsAdmin              bool      `json:"is_admin"`
	PasswordHash         []byte    `json:"-"`
	LastLogin            time.Time `json:"last_login"` // UTC
	CreatedAt            time.Time `json:"created_at"` // UTC
	UpdatedAt            time.Time `json:"updated_at"` // UTC
}

func (s *Staff) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	s.PasswordHash = hash
	return nil
}

func (s *Staff) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(s.PasswordHash, []byte(pwd))
}

func (s *Staff) IsHOD() bool           { return s.Role == RoleHOD }
func (s *Staff) IsClassIncharge() bool { return s.Role == RoleClassIncharge }

// NewStaff contains information needed to register a new Staff member.
type NewStaff struct {
	ID                   string    `json:"staff_id" validate:"required,max=20,alphanum_"`
	Name                 string    `json:"name" validate:"required,personname"`
	Email                string    `json:"email" validate:"required,email"`
	Password             string    `json:"password" validate:"required"`
	Salutation           string    `json:"salutation"`
	Designation          string    `json:"designation" validate:"omitempty,personname"`
	Department           string    `json:"department" validate:"omitempty,personname"`
	Role                 string    `json:"role" validate:"omitempty,staffrole"`
	AssignedSemester     *int      `json:"assigned_semester" validate:"omitempty,semester"`
	Qualification        string    `json:"qualification"`
	Specialization       string    `json:"specialization"`
	Experience           string    `json:"experience"`
	DateOfBirth          core.Date `json:"date_of_birth"`
	DateOfJoining        core.Date `json:"date_of_joining"`
	Address              string    `json:"address"`
	AcademicDetails      string    `json:"academic_details"`
	Publications         string    `json:"publications"`
	AwardsAndMemberships string    `json:"awards_and_memberships"`
	IsAdmin              bool      `json:"is_admin"`
}

func (ns *NewStaff) clean() {
	ns.ID = core.CleanString(ns.ID)
	ns.Name = core.CleanString(ns.Name)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.Designation = core.CleanString(ns.Designation)
	ns.Department = core.CleanString(ns.Department)
	ns.Role = core.CleanString(ns.Role, true /* lower */)
	if ns.Role == "" {
		ns.Role = RoleStaff
	}
}

// Validate cleans and validates ns, then checks the uniqueness and role rules against svc.
func (ns *NewStaff) Validate(ctx context.Context, validate *validator.Validate, svc ServiceInterface) error {
	ns.clean()
	if err := validate.Struct(ns); err != nil {
		return err
	}
	if ns.Role != RoleClassIncharge {
		ns.AssignedSemester = nil
	}
	if err := svc.CheckUniqueness(ctx, ns.ID, ns.Email); err != nil {
		return err
	}
	return svc.CheckRole(ctx, ns.Role, ns.AssignedSemester)
}

// UpdateStaff defines what information may be provided to modify an existing Staff member.
// Nil fields are left unchanged.
type UpdateStaff struct {
	Name                 *string    `json:"name" validate:"omitempty,personname"`
	Email                *string    `json:"email" validate:"omitempty,email"`
	Salutation           *string    `json:"salutation"`
	Designation          *string    `json:"designation" validate:"omitempty,personname"`
	Department           *string    `json:"department" validate:"omitempty,personname"`
	Qualification        *string    `json:"qualification"`
	Specialization       *string    `json:"specialization"`
	Experience           *string    `json:"experience"`
	DateOfBirth          *core.Date `json:"date_of_birth"`
	DateOfJoining        *core.Date `json:"date_of_joining"`
	Address              *string    `json:"address"`
	AcademicDetails      *string    `json:"academic_details"`
	Publications         *string    `json:"publications"`
	AwardsAndMemberships *string    `json:"awards_and_memberships"`

	// admin only
	Role             *string `json:"role" validate:"omitempty,staffrole"`
	AssignedSemester *int    `json:"assigned_semester" validate:"omitempty,semester"`
	IsActive         *bool   `json:"is_active"`
	IsAdmin          *bool   `json:"is_admin"`
}

// HasAdminFields reports whether us touches a field only admins may change.
func (us *UpdateStaff) HasAdminFields() bool {
	return us.Role != nil || us.AssignedSemester != nil || us.IsActive != nil || us.IsAdmin != nil
}

func (us *UpdateStaff) clean() {
	cleanPtr := func(s *string, lower ...bool) {
		if s != nil {
			*s = core.CleanString(*s, lower...)
		}
	}
	cleanPtr(us.Name)
	cleanPtr(us.Email, true /* lower */)
	cleanPtr(us.Designation)
	cleanPtr(us.Department)
	cleanPtr(us.Role, true /* lower */)
}

// Apply returns a copy of orig with us applied.
func (us *UpdateStaff) Apply(orig Staff) Staff {
	setStr := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	s := orig
	setStr(&s.Name, us.Name)
	setStr(&s.Email, us.Email)
	setStr(&s.Salutation, us.Salutation)
	setStr(&s.Designation, us.Designation)
	setStr(&s.Department, us.Department)
	setStr(&s.Qualification, us.Qualification)
	setStr(&s.Specialization, us.Specialization)
	setStr(&s.Experience, us.Experience)
	setStr(&s.Address, us.Address)
	setStr(&s.AcademicDetails, us.AcademicDetails)
	setStr(&s.Publications, us.Publications)
	setStr(&s.AwardsAndMemberships, us.AwardsAndMemberships)
	setStr(&s.Role, us.Role)
	if us.DateOfBirth != nil {
		s.DateOfBirth = *us.DateOfBirth
	}
	if us.DateOfJoining != nil {
		s.DateOfJoining = *us.DateOfJoining
	}
	if us.AssignedSemester != nil {
		sem := *us.AssignedSemester
		s.AssignedSemester = &sem
	}
	if s.Role != RoleClassIncharge {
		s.AssignedSemester = nil
	}
	if us.IsActive != nil {
		s.IsActive = *us.IsActive
	}
	if us.IsAdmin != nil {
		s.IsAdmin = *us.IsAdmin
	}
	return s
}

// Validate cleans and validates us against the Staff member being updated.
func (us *UpdateStaff) Validate(ctx context.Context, orig Staff, validate *validator.Validate, svc ServiceInterface) error {
	us.clean()
	if err := validate.Struct(us); err != nil {
		return err
	}
	if us.Email != nil && *us.Email != orig.Email {
		if err := svc.CheckUniqueness(ctx, "", *us.Email, orig); err != nil {
			return err
		}
	}

	updated := us.Apply(orig)
	if err := datesError(updated.DateOfBirth, updated.DateOfJoining); err != nil {
		return err
	}
	if us.Role != nil || us.AssignedSemester != nil {
		return svc.CheckRole(ctx, updated.Role, updated.AssignedSemester, orig)
	}
	return nil
}

type ChangePassword struct {
	OldPassword     string `json:"old_password" validate:"required"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

type QueryFilter struct {
	Search     string   `query:"search"`
	Roles      []string `query:"role"`
	Department string   `query:"department"`
	IsActive   *bool    `query:"is_active"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Department = core.CleanString(qf.Department)
}

// OrderingFields are the fields Staff lists can be ordered by.
var OrderingFields = []string{"staff_id", "name", "email", "department", "role", "created_at"}
