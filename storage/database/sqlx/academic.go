package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/nojinx/ssm/core/academic"
)

type subjectRow struct {
	Code     string      `db:"code"`
	Name     string      `db:"name"`
	Semester int         `db:"semester"`
	StaffID  null.String `db:"staff_id"`
}

func (r subjectRow) toSubject() academic.Subject {
	return academic.Subject{Code: r.Code, Name: r.Name, Semester: r.Semester, StaffID: r.StaffID.String}
}

type attendanceRow struct {
	ID          string    `db:"id"`
	RollNumber  string    `db:"roll_number"`
	SubjectCode string    `db:"subject_code"`
	Date        time.Time `db:"date"`
	Status      string    `db:"status"`
}

type marksRow struct {
	RollNumber    string       `db:"roll_number"`
	SubjectCode   string       `db:"subject_code"`
	InternalMarks null.Float64 `db:"internal_marks"`
}

type academicRepository struct {
	db *sqlx.DB
}

var _ academic.Repository = (*academicRepository)(nil) // interface compliance check

func NewAcademicRepository(db *sqlx.DB) academic.Repository {
	return &academicRepository{db: db}
}

func (repo *academicRepository) CreateSubject(ctx context.Context, s academic.Subject) (academic.Subject, error) {
	cols := []string{"code", "name", "semester", "staff_id"}
	args := []interface{}{s.Code, s.Name, s.Semester, null.NewString(s.StaffID, s.StaffID != "")}

	var row subjectRow
	if err := repo.db.GetContext(ctx, &row, insertQuery("subject", cols)+" RETURNING *", args...); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return academic.Subject{}, academic.ErrSubjectExists
		}
		return academic.Subject{}, err
	}
	return row.toSubject(), nil
}

func (repo *academicRepository) GetSubject(ctx context.Context, code string) (academic.Subject, error) {
	var row subjectRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM "subject" WHERE "code" = $1`, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return academic.Subject{}, academic.ErrSubjectNotFound
		}
		return academic.Subject{}, err
	}
	return row.toSubject(), nil
}

func (repo *academicRepository) QuerySubjects(ctx context.Context, semester int, staffID string) ([]academic.Subject, error) {
	var w where
	if semester > 0 {
		w.add(`"semester" = ?`, semester)
	}
	if staffID != "" {
		w.add(`"staff_id" = ?`, staffID)
	}

	var rows []subjectRow
	q := `SELECT * FROM "subject"` + w.String() + ` ORDER BY "semester", "code"`
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, err
	}
	subjects := make([]academic.Subject, len(rows))
	for i, r := range rows {
		subjects[i] = r.toSubject()
	}
	return subjects, nil
}

func (repo *academicRepository) SaveAttendance(ctx context.Context, records []academic.AttendanceRecord) error {
	// a single statement cannot upsert the same row twice: the last record wins
	latest := make(map[string]int, len(records))
	var order []string
	for i, rec := range records {
		key := rec.RollNumber + "|" + rec.SubjectCode + "|" + rec.Date.String()
		if _, ok := latest[key]; !ok {
			order = append(order, key)
		}
		latest[key] = i
	}
	if len(order) == 0 {
		return nil
	}

	cols := []string{"id", "roll_number", "subject_code", "date", "status"}
	args := make([]interface{}, 0, len(order)*len(cols))
	for _, key := range order {
		rec := records[latest[key]]
		args = append(args, rec.ID, rec.RollNumber, rec.SubjectCode, rec.Date.Time, rec.Status)
	}

	q := `INSERT INTO "student_attendance" ("id","roll_number","subject_code","date","status") VALUES ` +
		placeholderGroups(len(order), len(cols)) +
		` ON CONFLICT ("roll_number","subject_code","date") DO UPDATE SET "status" = EXCLUDED."status"`
	_, err := repo.db.ExecContext(ctx, q, args...)
	return errors.Wrap(err, "saving attendance")
}

func (repo *academicRepository) SubjectAttendance(ctx context.Context, code string) ([]academic.AttendanceRecord, error) {
	var rows []attendanceRow
	q := `SELECT * FROM "student_attendance" WHERE "subject_code" = $1 ORDER BY "roll_number", "date"`
	if err := repo.db.SelectContext(ctx, &rows, q, code); err != nil {
		return nil, err
	}
	records := make([]academic.AttendanceRecord, len(rows))
	for i, r := range rows {
		records[i] = academic.AttendanceRecord{
			ID:          r.ID,
			RollNumber:  r.RollNumber,
			SubjectCode: r.SubjectCode,
			Date:        toDate(null.TimeFrom(r.Date)),
			Status:      r.Status,
		}
	}
	return records, nil
}

func (repo *academicRepository) SaveMarks(ctx context.Context, marks []academic.Marks) error {
	latest := make(map[string]int, len(marks))
	var order []string
	for i, m := range marks {
		key := m.RollNumber + "|" + m.SubjectCode
		if _, ok := latest[key]; !ok {
			order = append(order, key)
		}
		latest[key] = i
	}
	if len(order) == 0 {
		return nil
	}

	args := make([]interface{}, 0, len(order)*3)
	for _, key := range order {
		m := marks[latest[key]]
		args = append(args, m.RollNumber, m.SubjectCode, null.Float64FromPtr(m.InternalMarks))
	}

	q := `INSERT INTO "student_marks" ("roll_number","subject_code","internal_marks") VALUES ` +
		placeholderGroups(len(order), 3) +
		` ON CONFLICT ("roll_number","subject_code") DO UPDATE SET "internal_marks" = EXCLUDED."internal_marks"`
	_, err := repo.db.ExecContext(ctx, q, args...)
	return errors.Wrap(err, "saving marks")
}

func (repo *academicRepository) SubjectMarks(ctx context.Context, code string) ([]academic.Marks, error) {
	var rows []marksRow
	q := `SELECT * FROM "student_marks" WHERE "subject_code" = $1 ORDER BY "roll_number"`
	if err := repo.db.SelectContext(ctx, &rows, q, code); err != nil {
		return nil, err
	}
	marks := make([]academic.Marks, len(rows))
	for i, r := range rows {
		marks[i] = academic.Marks{RollNumber: r.RollNumber, SubjectCode: r.SubjectCode, InternalMarks: r.InternalMarks.Ptr()}
	}
	return marks, nil
}
