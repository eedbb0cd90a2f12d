package student

import (
	"encoding/json"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/nojinx/ssm/core"
)

// Program levels
const (
	ProgramUG  = "UG"
	ProgramPG  = "PG"
	ProgramPhD = "PhD"
)

// UG entry types
const (
	EntryRegular = "regular"
	EntryLateral = "lateral"
)

// CourseCompleted is displayed instead of the semester once a student went past the last one.
const CourseCompleted = "Course Completed"

type Student struct {
	RollNumber        string    `json:"roll_number"`
	Name              string    `json:"student_name"`
	Email             string    `json:"student_email"`
	CurrentSemester   int       `json:"current_semester"`
	ProgramLevel      string    `json:"program_level"`
	UGEntryType       string    `json:"ug_entry_type"`
	IsProfileComplete bool      `json:"is_profile_complete"`
	IsPasswordChanged bool      `json:"is_password_changed"`
	IsActive          bool      `json:"is_active"`
	PasswordHash      []byte    `json:"-"`
	LastLogin         time.Time `json:"last_login"` // UTC
	CreatedAt         time.Time `json:"created_at"` // UTC
	UpdatedAt         time.Time `json:"updated_at"` // UTC
}

func (s *Student) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	s.PasswordHash = hash
	return nil
}

func (s *Student) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(s.PasswordHash, []byte(pwd))
}

// SemesterDisplay returns the current semester, or CourseCompleted past the last semester.
func (s Student) SemesterDisplay() interface{} {
	if s.CurrentSemester > core.MaxSemester {
		return CourseCompleted
	}
	return s.CurrentSemester
}

// CanBePromoted reports whether the student has a next semester to go to.
func (s Student) CanBePromoted() bool {
	return s.CurrentSemester <= core.MaxSemester
}

func (s Student) MarshalJSON() ([]byte, error) {
	type student Student
	return json.Marshal(struct {
		student
		SemesterDisplay interface{} `json:"semester_display"`
	}{student(s), s.SemesterDisplay()})
}

// UpdateStudent defines what information may be provided to modify an existing Student.
// Nil fields are left unchanged.
type UpdateStudent struct {
	Name  *string `json:"student_name"`
	Email *string `json:"student_email" validate:"omitempty,email"`

	// staff only
	CurrentSemester *int    `json:"current_semester" validate:"omitempty,min=1,max=9"`
	ProgramLevel    *string `json:"program_level" validate:"omitempty,oneof=UG PG PhD"`
	UGEntryType     *string `json:"ug_entry_type" validate:"omitempty,oneof=regular lateral"`
	IsActive        *bool   `json:"is_active"`
}

// HasStaffFields reports whether us touches a field only staff may change.
func (us *UpdateStudent) HasStaffFields() bool {
	return us.CurrentSemester != nil || us.ProgramLevel != nil || us.UGEntryType != nil || us.IsActive != nil
}

func (us *UpdateStudent) clean() {
	if us.Name != nil {
		*us.Name = core.CleanString(*us.Name)
	}
	if us.Email != nil {
		*us.Email = core.CleanString(*us.Email, true /* lower */)
	}
}

// Apply returns a copy of orig with us applied.
// A student profile is complete once it has a name and an email.
func (us *UpdateStudent) Apply(orig Student) Student {
	s := orig
	if us.Name != nil {
		s.Name = *us.Name
	}
	if us.Email != nil {
		s.Email = *us.Email
	}
	if us.CurrentSemester != nil {
		s.CurrentSemester = *us.CurrentSemester
	}
	if us.ProgramLevel != nil {
		s.ProgramLevel = *us.ProgramLevel
	}
	if us.UGEntryType != nil {
		s.UGEntryType = *us.UGEntryType
	}
	if us.IsActive != nil {
		s.IsActive = *us.IsActive
	}
	s.IsProfileComplete = s.Name != "" && s.Email != ""
	return s
}

type ChangePassword struct {
	OldPassword     string `json:"old_password" validate:"required"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

type QueryFilter struct {
	Search       string `query:"search"`
	Semester     int    `query:"semester"`
	ProgramLevel string `query:"program_level"`
	UGEntryType  string `query:"ug_entry_type"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.ProgramLevel = core.CleanString(qf.ProgramLevel)
	qf.UGEntryType = core.CleanString(qf.UGEntryType, true /* lower */)
}

// OrderingFields are the fields Student lists can be ordered by.
var OrderingFields = []string{"roll_number", "student_name", "current_semester", "created_at"}

// Generation

// MaxGenerationCount is the maximum number of students a single range can generate.
const MaxGenerationCount = 500

type GenerationRange struct {
	StartRoll string `json:"start_roll"`
	EndSuffix string `json:"end_suffix"`
}

type PreviewEntry struct {
	Roll   string `json:"roll"`
	Exists bool   `json:"exists"`
}

type GenerateRequest struct {
	SelectedRolls []string `json:"selected_rolls"`
}

type GenerateSingleRequest struct {
	Roll string `json:"roll"`
}

// Credential is the result of provisioning one student account.
type Credential struct {
	RollNumber   string `json:"roll_number"`
	TempPassword string `json:"temp_password"`
	Created      bool   `json:"created"`
}

type PromoteRequest struct {
	RollNumbers []string `json:"roll_numbers"`
}
