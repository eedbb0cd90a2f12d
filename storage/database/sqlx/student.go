package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/nojinx/ssm/core"
	"github.com/nojinx/ssm/core/student"
)

type studentRow struct {
	RollNumber        string     `db:"roll_number"`
	Name              string     `db:"student_name"`
	Email             string     `db:"student_email"`
	CurrentSemester   int        `db:"current_semester"`
	ProgramLevel      string     `db:"program_level"`
	UGEntryType       string     `db:"ug_entry_type"`
	IsProfileComplete bool       `db:"is_profile_complete"`
	IsPasswordChanged bool       `db:"is_password_changed"`
	IsActive          bool       `db:"is_active"`
	PasswordHash      null.Bytes `db:"password_hash"`
	LastLogin         null.Time  `db:"last_login"`
	CreatedAt         time.Time  `db:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at"`
}

var studentOrderingColumns = map[string]string{
	"roll_number":      "roll_number",
	"student_name":     "student_name",
	"current_semester": "current_semester",
	"created_at":       "created_at",
}

func (r studentRow) toStudent() student.Student {
	return student.Student{
		RollNumber:        r.RollNumber,
		Name:              r.Name,
		Email:             r.Email,
		CurrentSemester:   r.CurrentSemester,
		ProgramLevel:      r.ProgramLevel,
		UGEntryType:       r.UGEntryType,
		IsProfileComplete: r.IsProfileComplete,
		IsPasswordChanged: r.IsPasswordChanged,
		IsActive:          r.IsActive,
		PasswordHash:      r.PasswordHash.Bytes,
		LastLogin:         toTime(r.LastLogin),
		CreatedAt:         r.CreatedAt.UTC(),
		UpdatedAt:         r.UpdatedAt.UTC(),
	}
}

func studentValues(s student.Student) ([]string, []interface{}) {
	cols := []string{
		"student_name", "student_email", "current_semester", "program_level", "ug_entry_type",
		"is_profile_complete", "is_password_changed", "is_active", "updated_at",
	}
	args := []interface{}{
		s.Name, s.Email, s.CurrentSemester, s.ProgramLevel, s.UGEntryType,
		s.IsProfileComplete, s.IsPasswordChanged, s.IsActive, s.UpdatedAt,
	}
	if s.PasswordHash != nil {
		cols = append(cols, "password_hash")
		args = append(args, null.BytesFrom(s.PasswordHash))
	}
	return cols, args
}

type studentRepository struct {
	db   *sqlx.DB
	exec executor // db, or the running transaction
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *sqlx.DB) student.Repository {
	return &studentRepository{db: db, exec: db}
}

func (repo *studentRepository) Get(ctx context.Context, roll string) (student.Student, error) {
	var row studentRow
	if err := sqlx.GetContext(ctx, repo.exec, &row, `SELECT * FROM "student" WHERE "roll_number" = $1`, roll); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return student.Student{}, student.ErrNotFound
		}
		return student.Student{}, err
	}
	return row.toStudent(), nil
}

func rollArgs(rolls []string) []interface{} {
	args := make([]interface{}, len(rolls))
	for i, roll := range rolls {
		args[i] = roll
	}
	return args
}

func (repo *studentRepository) Existing(ctx context.Context, rolls ...string) (map[string]bool, error) {
	existing := make(map[string]bool, len(rolls))
	if len(rolls) == 0 {
		return existing, nil
	}

	var found []string
	q := `SELECT "roll_number" FROM "student" WHERE "roll_number" IN ` + inPlaceholders(1, len(rolls))
	if err := sqlx.SelectContext(ctx, repo.exec, &found, q, rollArgs(rolls)...); err != nil {
		return nil, err
	}
	for _, roll := range found {
		existing[roll] = true
	}
	return existing, nil
}

func (repo *studentRepository) Query(ctx context.Context, filter *student.QueryFilter, ordering []core.DBOrdering) ([]student.Student, error) {
	var w where
	if filter != nil {
		if filter.Search != "" {
			pattern := "%" + filter.Search + "%"
			w.add(`"roll_number" ILIKE ? OR "student_name" ILIKE ? OR "student_email" ILIKE ?`, pattern, pattern, pattern)
		}
		if filter.Semester > 0 {
			w.add(`"current_semester" = ?`, filter.Semester)
		}
		if filter.ProgramLevel != "" {
			w.add(`"program_level" = ?`, filter.ProgramLevel)
		}
		if filter.UGEntryType != "" {
			w.add(`"ug_entry_type" = ?`, filter.UGEntryType)
		}
	}

	var rows []studentRow
	q := `SELECT * FROM "student"` + w.String() + orderByClause(ordering, studentOrderingColumns, `"roll_number" ASC`)
	if err := sqlx.SelectContext(ctx, repo.exec, &rows, q, w.args...); err != nil {
		return nil, err
	}
	students := make([]student.Student, len(rows))
	for i, r := range rows {
		students[i] = r.toStudent()
	}
	return students, nil
}

func (repo *studentRepository) Create(ctx context.Context, s student.Student) (student.Student, error) {
	cols, args := studentValues(s)
	cols = append([]string{"roll_number", "created_at"}, cols...)
	args = append([]interface{}{s.RollNumber, s.CreatedAt}, args...)

	var row studentRow
	if err := sqlx.GetContext(ctx, repo.exec, &row, insertQuery("student", cols)+" RETURNING *", args...); err != nil {
		return student.Student{}, errors.Wrapf(err, "creating student %s", s.RollNumber)
	}
	return row.toStudent(), nil
}

func (repo *studentRepository) Update(ctx context.Context, s student.Student) (student.Student, error) {
	cols, args := studentValues(s)
	args = append(args, s.RollNumber)

	var row studentRow
	if err := sqlx.GetContext(ctx, repo.exec, &row, updateQuery("student", cols, "roll_number")+" RETURNING *", args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return student.Student{}, student.ErrNotFound
		}
		return student.Student{}, err
	}
	return row.toStudent(), nil
}

func (repo *studentRepository) SetLastLogin(ctx context.Context, roll string, t time.Time) error {
	res, err := repo.exec.ExecContext(ctx, `UPDATE "student" SET "last_login" = $1 WHERE "roll_number" = $2`, nullTime(t), roll)
	return checkAffected(res, err, student.ErrNotFound)
}

func (repo *studentRepository) Promote(ctx context.Context, rolls []string, now time.Time) (int, error) {
	if len(rolls) == 0 {
		return 0, nil
	}

	q := `UPDATE "student" SET "current_semester" = "current_semester" + 1, "updated_at" = $1` +
		` WHERE "current_semester" <= $2 AND "roll_number" IN ` + inPlaceholders(3, len(rolls))
	args := append([]interface{}{now, core.MaxSemester}, rollArgs(rolls)...)
	res, err := repo.exec.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (repo *studentRepository) InTx(ctx context.Context, fn func(repo student.Repository) error) error {
	if _, ok := repo.exec.(*sqlx.Tx); ok { // already in a transaction
		return fn(repo)
	}

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "starting transaction")
	}
	if err := fn(&studentRepository{db: repo.db, exec: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}
