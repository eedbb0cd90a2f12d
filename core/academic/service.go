package academic

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/nojinx/ssm/core"
	"github.com/nojinx/ssm/core/student"
)

var (
	// errors
	ErrSubjectNotFound = errors.New("subject not found")
	ErrSubjectExists   = errors.New("a subject with this code already exists")
	errDateRequired    = "date is required"
)

type (
	Repository interface {
		CreateSubject(ctx context.Context, s Subject) (Subject, error)
		GetSubject(ctx context.Context, code string) (Subject, error)
		// QuerySubjects returns all subjects, optionally restricted to a semester (> 0) and/or a staff member.
		QuerySubjects(ctx context.Context, semester int, staffID string) ([]Subject, error)
		// SaveAttendance upserts records by (roll number, subject, date).
		SaveAttendance(ctx context.Context, records []AttendanceRecord) error
		SubjectAttendance(ctx context.Context, code string) ([]AttendanceRecord, error)
		// SaveMarks upserts marks by (roll number, subject).
		SaveMarks(ctx context.Context, marks []Marks) error
		SubjectMarks(ctx context.Context, code string) ([]Marks, error)
	}

	// StudentLister lists students; student.Service satisfies it.
	StudentLister interface {
		Query(ctx context.Context, filter *student.QueryFilter, ordering []core.DBOrdering) ([]student.Student, error)
	}

	ServiceInterface interface {
		CreateSubject(ctx context.Context, ns NewSubject) (Subject, error)
		GetSubject(ctx context.Context, code string) (Subject, error)
		QuerySubjects(ctx context.Context, semester int, staffID string) ([]Subject, error)
		RecordAttendance(ctx context.Context, subj Subject, sheet AttendanceSheet) ([]AttendanceRecord, error)
		RecordMarks(ctx context.Context, subj Subject, sheet MarksSheet) ([]Marks, error)
		RiskMetrics(ctx context.Context, subj Subject) ([]RiskStudent, error)
	}

	Service struct {
		repo     Repository
		students StudentLister
		validate *validator.Validate
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, students StudentLister, validate *validator.Validate) *Service {
	return &Service{repo: repo, students: students, validate: validate}
}

func (svc *Service) CreateSubject(ctx context.Context, ns NewSubject) (Subject, error) {
	ns.clean()
	if err := svc.validate.Struct(ns); err != nil {
		return Subject{}, err
	}
	switch _, err := svc.repo.GetSubject(ctx, ns.Code); errors.Cause(err) {
	case nil:
		return Subject{}, core.NewValidationError(ErrSubjectExists, core.FieldError{Field: "code", Error: ErrSubjectExists.Error()})
	case ErrSubjectNotFound: // pass
	default:
		return Subject{}, errors.Wrap(err, "finding subject")
	}
	return svc.repo.CreateSubject(ctx, Subject{Code: ns.Code, Name: ns.Name, Semester: ns.Semester, StaffID: ns.StaffID})
}

func (svc *Service) GetSubject(ctx context.Context, code string) (Subject, error) {
	return svc.repo.GetSubject(ctx, core.CleanString(code))
}

func (svc *Service) QuerySubjects(ctx context.Context, semester int, staffID string) ([]Subject, error) {
	return svc.repo.QuerySubjects(ctx, semester, staffID)
}

// RecordAttendance saves a day of attendance for subj. Recording a student again on the same day overwrites it.
// Every roll number must belong to a student of the subject's semester.
func (svc *Service) RecordAttendance(ctx context.Context, subj Subject, sheet AttendanceSheet) ([]AttendanceRecord, error) {
	if err := svc.validate.Struct(sheet); err != nil {
		return nil, err
	}
	if sheet.Date.IsZero() {
		return nil, core.NewFieldValidationError("date", errDateRequired)
	}

	rolls := make([]string, 0, len(sheet.Records))
	for _, entry := range sheet.Records {
		rolls = append(rolls, core.CleanString(entry.RollNumber))
	}
	if err := svc.checkStudents(ctx, subj, "records", rolls); err != nil {
		return nil, err
	}

	records := make([]AttendanceRecord, 0, len(sheet.Records))
	for i, entry := range sheet.Records {
		records = append(records, AttendanceRecord{
			ID:          uuid.New().String(),
			RollNumber:  rolls[i],
			SubjectCode: subj.Code,
			Date:        sheet.Date,
			Status:      entry.Status,
		})
	}
	if err := svc.repo.SaveAttendance(ctx, records); err != nil {
		return nil, errors.Wrap(err, "saving attendance")
	}
	return records, nil
}

// RecordMarks saves internal marks for subj. A nil mark clears a previously entered one.
func (svc *Service) RecordMarks(ctx context.Context, subj Subject, sheet MarksSheet) ([]Marks, error) {
	if err := svc.validate.Struct(sheet); err != nil {
		return nil, err
	}

	rolls := make([]string, 0, len(sheet.Marks))
	for _, entry := range sheet.Marks {
		rolls = append(rolls, core.CleanString(entry.RollNumber))
	}
	if err := svc.checkStudents(ctx, subj, "marks", rolls); err != nil {
		return nil, err
	}

	marks := make([]Marks, 0, len(sheet.Marks))
	for i, entry := range sheet.Marks {
		marks = append(marks, Marks{RollNumber: rolls[i], SubjectCode: subj.Code, InternalMarks: entry.InternalMarks})
	}
	if err := svc.repo.SaveMarks(ctx, marks); err != nil {
		return nil, errors.Wrap(err, "saving marks")
	}
	return marks, nil
}

func (svc *Service) RiskMetrics(ctx context.Context, subj Subject) ([]RiskStudent, error) {
	students, err := svc.semesterStudents(ctx, subj)
	if err != nil {
		return nil, err
	}
	attendance, err := svc.repo.SubjectAttendance(ctx, subj.Code)
	if err != nil {
		return nil, errors.Wrap(err, "querying attendance")
	}
	marks, err := svc.repo.SubjectMarks(ctx, subj.Code)
	if err != nil {
		return nil, errors.Wrap(err, "querying marks")
	}
	return ComputeRisk(students, attendance, marks), nil
}

func (svc *Service) semesterStudents(ctx context.Context, subj Subject) ([]student.Student, error) {
	students, err := svc.students.Query(
		ctx,
		&student.QueryFilter{Semester: subj.Semester},
		[]core.DBOrdering{{Field: "roll_number", Ascending: true}},
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying semester students")
	}
	return students, nil
}

func (svc *Service) checkStudents(ctx context.Context, subj Subject, field string, rolls []string) error {
	students, err := svc.semesterStudents(ctx, subj)
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(students))
	for _, s := range students {
		known[s.RollNumber] = true
	}
	for _, roll := range rolls {
		if !known[roll] {
			return core.NewFieldValidationError(field,
				fmt.Sprintf("%s is not a semester %d student", roll, subj.Semester))
		}
	}
	return nil
}
