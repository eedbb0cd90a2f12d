package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/nojinx/ssm/core"
	"github.com/nojinx/ssm/core/academic"
)

type timetableRow struct {
	ID          string      `db:"id"`
	Semester    int         `db:"semester"`
	Day         string      `db:"day"`
	Period      int         `db:"period"`
	SubjectCode string      `db:"subject_code"`
	StaffID     null.String `db:"staff_id"`
}

func (r timetableRow) toEntry() academic.TimetableEntry {
	return academic.TimetableEntry{
		ID:          r.ID,
		Semester:    r.Semester,
		Day:         r.Day,
		Period:      r.Period,
		SubjectCode: r.SubjectCode,
		StaffID:     r.StaffID.String,
	}
}

type examRow struct {
	ID          string    `db:"id"`
	Semester    int       `db:"semester"`
	SubjectCode string    `db:"subject_code"`
	Date        time.Time `db:"date"`
	Session     string    `db:"session"`
	Time        string    `db:"time"`
}

func (r examRow) toExam() academic.ExamSchedule {
	return academic.ExamSchedule{
		ID:          r.ID,
		Semester:    r.Semester,
		SubjectCode: r.SubjectCode,
		Date:        core.DateOf(r.Date),
		Session:     r.Session,
		Time:        r.Time,
	}
}

// isUniqueViolation reports whether err violates the unique constraint named constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation && pqErr.Constraint == constraint
}

type scheduleRepository struct {
	db *sqlx.DB
}

var _ academic.ScheduleRepository = (*scheduleRepository)(nil) // interface compliance check

func NewScheduleRepository(db *sqlx.DB) academic.ScheduleRepository {
	return &scheduleRepository{db: db}
}

func (repo *scheduleRepository) CreateEntry(ctx context.Context, e academic.TimetableEntry) (academic.TimetableEntry, error) {
	cols := []string{"id", "semester", "day", "period", "subject_code", "staff_id"}
	args := []interface{}{e.ID, e.Semester, e.Day, e.Period, e.SubjectCode, null.NewString(e.StaffID, e.StaffID != "")}

	var row timetableRow
	if err := repo.db.GetContext(ctx, &row, insertQuery("timetable", cols)+" RETURNING *", args...); err != nil {
		if isUniqueViolation(err, "timetable_slot") {
			return academic.TimetableEntry{}, academic.ErrSlotTaken
		}
		return academic.TimetableEntry{}, err
	}
	return row.toEntry(), nil
}

func (repo *scheduleRepository) Timetable(ctx context.Context, semester int, staffID string) ([]academic.TimetableEntry, error) {
	var w where
	if semester > 0 {
		w.add(`"semester" = ?`, semester)
	}
	if staffID != "" {
		w.add(`"staff_id" = ?`, staffID)
	}

	var rows []timetableRow
	q := `SELECT * FROM "timetable"` + w.String() +
		` ORDER BY "semester", array_position(ARRAY['Monday','Tuesday','Wednesday','Thursday','Friday','Saturday']::VARCHAR[], "day"), "period"`
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, err
	}
	entries := make([]academic.TimetableEntry, len(rows))
	for i, r := range rows {
		entries[i] = r.toEntry()
	}
	return entries, nil
}

func (repo *scheduleRepository) DeleteEntry(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM "timetable" WHERE "id" = $1`, id)
	return checkAffected(res, err, academic.ErrEntryNotFound)
}

func (repo *scheduleRepository) CreateExam(ctx context.Context, e academic.ExamSchedule) (academic.ExamSchedule, error) {
	cols := []string{"id", "semester", "subject_code", "date", "session", "time"}
	args := []interface{}{e.ID, e.Semester, e.SubjectCode, e.Date.Time, e.Session, e.Time}

	var row examRow
	if err := repo.db.GetContext(ctx, &row, insertQuery("exam_schedule", cols)+" RETURNING *", args...); err != nil {
		if isUniqueViolation(err, "exam_schedule_slot") {
			return academic.ExamSchedule{}, academic.ErrExamSlotTaken
		}
		return academic.ExamSchedule{}, err
	}
	return row.toExam(), nil
}

func (repo *scheduleRepository) Exams(ctx context.Context, semester int) ([]academic.ExamSchedule, error) {
	var w where
	if semester > 0 {
		w.add(`"semester" = ?`, semester)
	}

	var rows []examRow
	q := `SELECT * FROM "exam_schedule"` + w.String() + ` ORDER BY "date", "session" = 'AN', "semester"`
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, err
	}
	exams := make([]academic.ExamSchedule, len(rows))
	for i, r := range rows {
		exams[i] = r.toExam()
	}
	return exams, nil
}

func (repo *scheduleRepository) DeleteExam(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM "exam_schedule" WHERE "id" = $1`, id)
	return checkAffected(res, err, academic.ErrExamNotFound)
}
