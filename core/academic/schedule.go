package academic

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/nojinx/ssm/core"
)

// Days is the teaching week, in order.
var Days = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// Exam sessions: forenoon then afternoon.
const (
	SessionFN = "FN"
	SessionAN = "AN"
)

var (
	// errors
	ErrEntryNotFound = errors.New("timetable entry not found")
	ErrSlotTaken     = errors.New("this period is already scheduled for the semester")
	ErrExamNotFound  = errors.New("exam not found")
	ErrExamSlotTaken = errors.New("the semester already has an exam in this session")
)

// TimetableEntry schedules a subject for a period of a week day. Its semester is the subject's.
type TimetableEntry struct {
	ID          string `json:"id"`
	Semester    int    `json:"semester"`
	Day         string `json:"day"`
	Period      int    `json:"period"`
	SubjectCode string `json:"subject_code"`
	StaffID     string `json:"staff_id"` // defaults to the subject's staff
}

type NewTimetableEntry struct {
	Semester    int    `json:"semester" validate:"required,semester"`
	Day         string `json:"day" validate:"required,oneof=Monday Tuesday Wednesday Thursday Friday Saturday"`
	Period      int    `json:"period" validate:"required,min=1,max=8"`
	SubjectCode string `json:"subject_code" validate:"required"`
	StaffID     string `json:"staff_id"`
}

// ExamSchedule is a subject's exam: one per semester, date and session.
type ExamSchedule struct {
	ID          string    `json:"id"`
	Semester    int       `json:"semester"`
	SubjectCode string    `json:"subject_code"`
	Date        core.Date `json:"date"`
	Session     string    `json:"session"`
	Time        string    `json:"time"` // e.g. "10:00 AM - 1:00 PM"
}

type NewExamSchedule struct {
	Semester    int       `json:"semester" validate:"required,semester"`
	SubjectCode string    `json:"subject_code" validate:"required"`
	Date        core.Date `json:"date"`
	Session     string    `json:"session" validate:"required,oneof=FN AN"`
	Time        string    `json:"time" validate:"max=50"`
}

// DayIndex returns the position of day in the week, len(Days) when unknown.
func DayIndex(day string) int {
	for i, d := range Days {
		if d == day {
			return i
		}
	}
	return len(Days)
}

type (
	ScheduleRepository interface {
		// CreateEntry returns ErrSlotTaken when (semester, day, period) is already scheduled.
		CreateEntry(ctx context.Context, e TimetableEntry) (TimetableEntry, error)
		// Timetable returns entries by semester, day and period, optionally restricted to a semester (> 0) and/or a staff member.
		Timetable(ctx context.Context, semester int, staffID string) ([]TimetableEntry, error)
		DeleteEntry(ctx context.Context, id string) error
		// CreateExam returns ErrExamSlotTaken when (semester, date, session) is already scheduled.
		CreateExam(ctx context.Context, e ExamSchedule) (ExamSchedule, error)
		// Exams returns exams by date then session, optionally restricted to a semester (> 0).
		Exams(ctx context.Context, semester int) ([]ExamSchedule, error)
		DeleteExam(ctx context.Context, id string) error
	}

	ScheduleServiceInterface interface {
		AddEntry(ctx context.Context, ne NewTimetableEntry) (TimetableEntry, error)
		Timetable(ctx context.Context, semester int, staffID string) ([]TimetableEntry, error)
		DeleteEntry(ctx context.Context, id string) error
		AddExam(ctx context.Context, ne NewExamSchedule) (ExamSchedule, error)
		Exams(ctx context.Context, semester int) ([]ExamSchedule, error)
		DeleteExam(ctx context.Context, id string) error
	}

	ScheduleService struct {
		repo     ScheduleRepository
		subjects Repository
		validate *validator.Validate
	}
)

var _ ScheduleServiceInterface = (*ScheduleService)(nil)

func NewScheduleService(repo ScheduleRepository, subjects Repository, validate *validator.Validate) *ScheduleService {
	return &ScheduleService{repo: repo, subjects: subjects, validate: validate}
}

// subjectOf returns the subject `code`, checking it is taught in semester.
func (svc *ScheduleService) subjectOf(ctx context.Context, code string, semester int) (Subject, error) {
	subj, err := svc.subjects.GetSubject(ctx, code)
	if err != nil {
		if errors.Cause(err) == ErrSubjectNotFound {
			return Subject{}, core.NewFieldValidationError("subject_code", fmt.Sprintf("unknown subject %s", code))
		}
		return Subject{}, errors.Wrap(err, "finding subject")
	}
	if subj.Semester != semester {
		return Subject{}, core.NewFieldValidationError("semester",
			fmt.Sprintf("%s belongs to semester %d, not %d", subj.Code, subj.Semester, semester))
	}
	return subj, nil
}

func (svc *ScheduleService) AddEntry(ctx context.Context, ne NewTimetableEntry) (TimetableEntry, error) {
	ne.SubjectCode = core.CleanString(ne.SubjectCode)
	ne.StaffID = core.CleanString(ne.StaffID)
	if err := svc.validate.Struct(ne); err != nil {
		return TimetableEntry{}, err
	}
	subj, err := svc.subjectOf(ctx, ne.SubjectCode, ne.Semester)
	if err != nil {
		return TimetableEntry{}, err
	}
	if ne.StaffID == "" {
		ne.StaffID = subj.StaffID
	}

	entry, err := svc.repo.CreateEntry(ctx, TimetableEntry{
		ID:          uuid.New().String(),
		Semester:    ne.Semester,
		Day:         ne.Day,
		Period:      ne.Period,
		SubjectCode: subj.Code,
		StaffID:     ne.StaffID,
	})
	if errors.Cause(err) == ErrSlotTaken {
		return TimetableEntry{}, core.NewValidationError(err, core.FieldError{Field: "period", Error: err.Error()})
	}
	return entry, errors.Wrap(err, "creating timetable entry")
}

func (svc *ScheduleService) Timetable(ctx context.Context, semester int, staffID string) ([]TimetableEntry, error) {
	return svc.repo.Timetable(ctx, semester, core.CleanString(staffID))
}

func (svc *ScheduleService) DeleteEntry(ctx context.Context, id string) error {
	return svc.repo.DeleteEntry(ctx, id)
}

func (svc *ScheduleService) AddExam(ctx context.Context, ne NewExamSchedule) (ExamSchedule, error) {
	ne.SubjectCode = core.CleanString(ne.SubjectCode)
	ne.Time = core.CleanString(ne.Time)
	if err := svc.validate.Struct(ne); err != nil {
		return ExamSchedule{}, err
	}
	if ne.Date.IsZero() {
		return ExamSchedule{}, core.NewFieldValidationError("date", errDateRequired)
	}
	subj, err := svc.subjectOf(ctx, ne.SubjectCode, ne.Semester)
	if err != nil {
		return ExamSchedule{}, err
	}

	exam, err := svc.repo.CreateExam(ctx, ExamSchedule{
		ID:          uuid.New().String(),
		Semester:    ne.Semester,
		SubjectCode: subj.Code,
		Date:        ne.Date,
		Session:     ne.Session,
		Time:        ne.Time,
	})
	if errors.Cause(err) == ErrExamSlotTaken {
		return ExamSchedule{}, core.NewValidationError(err, core.FieldError{Field: "session", Error: err.Error()})
	}
	return exam, errors.Wrap(err, "creating exam")
}

func (svc *ScheduleService) Exams(ctx context.Context, semester int) ([]ExamSchedule, error) {
	return svc.repo.Exams(ctx, semester)
}

func (svc *ScheduleService) DeleteExam(ctx context.Context, id string) error {
	return svc.repo.DeleteExam(ctx, id)
}
