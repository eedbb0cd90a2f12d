package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/nojinx/ssm/core"
	"github.com/nojinx/ssm/core/staff"
)

type staffRow struct {
	ID                   string     `db:"staff_id"`
	Name                 string     `db:"name"`
	Email                string     `db:"email"`
	Salutation           string     `db:"salutation"`
	Designation          string     `db:"designation"`
	Department           string     `db:"department"`
	Role                 string     `db:"role"`
	AssignedSemester     null.Int   `db:"assigned_semester"`
	Qualification        string     `db:"qualification"`
	Specialization       string     `db:"specialization"`
	Experience           string     `db:"experience"`
	DateOfBirth          null.Time  `db:"date_of_birth"`
	DateOfJoining        null.Time  `db:"date_of_joining"`
	Address              string     `db:"address"`
	AcademicDetails      string     `db:"academic_details"`
	Publications         string     `db:"publications"`
	AwardsAndMemberships string     `db:"awards_and_memberships"`
	IsActive             bool       `db:"is_active"`
	IsAdmin              bool       `db:"is_admin"`
	PasswordHash         null.Bytes `db:"password_hash"`
	LastLogin            null.Time  `db:"last_login"`
	CreatedAt            time.Time  `db:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at"`
}

var staffOrderingColumns = map[string]string{
	"staff_id":   "staff_id",
	"name":       "name",
	"email":      "email",
	"department": "department",
	"role":       "role",
	"created_at": "created_at",
}

func (r staffRow) toStaff() staff.Staff {
	return staff.Staff{
		ID:                   r.ID,
		Name:                 r.Name,
		Email:                r.Email,
		Salutation:           r.Salutation,
		Designation:          r.Designation,
		Department:           r.Department,
		Role:                 r.Role,
		AssignedSemester:     r.AssignedSemester.Ptr(),
		Qualification:        r.Qualification,
		Specialization:       r.Specialization,
		Experience:           r.Experience,
		DateOfBirth:          toDate(r.DateOfBirth),
		DateOfJoining:        toDate(r.DateOfJoining),
		Address:              r.Address,
		AcademicDetails:      r.AcademicDetails,
		Publications:         r.Publications,
		AwardsAndMemberships: r.AwardsAndMemberships,
		IsActive:             r.IsActive,
		IsAdmin:              r.IsAdmin,
		PasswordHash:         r.PasswordHash.Bytes,
		LastLogin:            toTime(r.LastLogin),
		CreatedAt:            r.CreatedAt.UTC(),
		UpdatedAt:            r.UpdatedAt.UTC(),
	}
}

// values returns the columns written on insert/update, password_hash last and only when set.
func staffValues(s staff.Staff) ([]string, []interface{}) {
	cols := []string{
		"name", "email", "salutation", "designation", "department", "role", "assigned_semester",
		"qualification", "specialization", "experience", "date_of_birth", "date_of_joining", "address",
		"academic_details", "publications", "awards_and_memberships", "is_active", "is_admin", "updated_at",
	}
	args := []interface{}{
		s.Name, s.Email, s.Salutation, s.Designation, s.Department, s.Role, null.IntFromPtr(s.AssignedSemester),
		s.Qualification, s.Specialization, s.Experience, nullDate(s.DateOfBirth), nullDate(s.DateOfJoining), s.Address,
		s.AcademicDetails, s.Publications, s.AwardsAndMemberships, s.IsActive, s.IsAdmin, s.UpdatedAt,
	}
	if s.PasswordHash != nil {
		cols = append(cols, "password_hash")
		args = append(args, null.BytesFrom(s.PasswordHash))
	}
	return cols, args
}

type staffRepository struct {
	db *sqlx.DB
}

var _ staff.Repository = (*staffRepository)(nil) // interface compliance check

func NewStaffRepository(db *sqlx.DB) staff.Repository {
	return &staffRepository{db: db}
}

// staffError maps unique constraint violations to staff errors.
func staffError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return err
	}
	switch pqErr.Constraint {
	case "staff_pkey":
		return staff.ErrStaffIDExists
	case "staff_email_key":
		return staff.ErrEmailExists
	case "staff_single_hod":
		return staff.ErrHODExists
	case "staff_class_incharge_semester":
		return staff.ErrSemesterTaken
	}
	return err
}

func (repo *staffRepository) CheckUniqueness(ctx context.Context, staffID, email string, excluded ...staff.Staff) error {
	check := func(col, value string, errExists error) error {
		if value == "" {
			return nil
		}
		var w where
		w.add(quote(col)+" = ?", value)
		if len(excluded) > 0 {
			ids := make([]interface{}, len(excluded))
			for i, s := range excluded {
				ids[i] = s.ID
			}
			w.add(`"staff_id" NOT IN `+inPlaceholders(len(w.args)+1, len(ids)), ids...)
		}

		var exists bool
		q := `SELECT EXISTS (SELECT 1 FROM "staff"` + w.String() + `)`
		if err := repo.db.GetContext(ctx, &exists, q, w.args...); err != nil {
			return errors.Wrap(err, "checking staff uniqueness")
		}
		if exists {
			return errExists
		}
		return nil
	}

	if err := check("staff_id", staffID, staff.ErrStaffIDExists); err != nil {
		return err
	}
	return check("email", email, staff.ErrEmailExists)
}

func (repo *staffRepository) Create(ctx context.Context, s staff.Staff) (staff.Staff, error) {
	cols, args := staffValues(s)
	cols = append([]string{"staff_id", "created_at"}, cols...)
	args = append([]interface{}{s.ID, s.CreatedAt}, args...)

	var row staffRow
	if err := repo.db.GetContext(ctx, &row, insertQuery("staff", cols)+" RETURNING *", args...); err != nil {
		return staff.Staff{}, staffError(err)
	}
	return row.toStaff(), nil
}

func (repo *staffRepository) Get(ctx context.Context, id string) (staff.Staff, error) {
	var row staffRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM "staff" WHERE "staff_id" = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return staff.Staff{}, staff.ErrNotFound
		}
		return staff.Staff{}, err
	}
	return row.toStaff(), nil
}

func (repo *staffRepository) selectStaff(ctx context.Context, q string, args ...interface{}) ([]staff.Staff, error) {
	var rows []staffRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	members := make([]staff.Staff, len(rows))
	for i, r := range rows {
		members[i] = r.toStaff()
	}
	return members, nil
}

func (repo *staffRepository) Query(ctx context.Context, filter *staff.QueryFilter, ordering []core.DBOrdering) ([]staff.Staff, error) {
	var w where
	if filter != nil {
		if filter.Search != "" {
			pattern := "%" + filter.Search + "%"
			w.add(`"staff_id" ILIKE ? OR "name" ILIKE ? OR "email" ILIKE ?`, pattern, pattern, pattern)
		}
		if len(filter.Roles) > 0 {
			roles := make([]interface{}, len(filter.Roles))
			for i, r := range filter.Roles {
				roles[i] = r
			}
			w.add(`"role" IN `+inPlaceholders(len(w.args)+1, len(roles)), roles...)
		}
		if filter.Department != "" {
			w.add(`"department" ILIKE ?`, "%"+filter.Department+"%")
		}
		if filter.IsActive != nil {
			w.add(`"is_active" = ?`, *filter.IsActive)
		}
	}

	q := `SELECT * FROM "staff"` + w.String() + orderByClause(ordering, staffOrderingColumns, `"staff_id" ASC`)
	return repo.selectStaff(ctx, q, w.args...)
}

func (repo *staffRepository) FindByRole(ctx context.Context, role string, semester *int) ([]staff.Staff, error) {
	var w where
	w.add(`"role" = ?`, role)
	if semester != nil {
		w.add(`"assigned_semester" = ?`, *semester)
	}
	return repo.selectStaff(ctx, `SELECT * FROM "staff"`+w.String(), w.args...)
}

func (repo *staffRepository) Update(ctx context.Context, s staff.Staff) (staff.Staff, error) {
	cols, args := staffValues(s)
	args = append(args, s.ID)

	var row staffRow
	if err := repo.db.GetContext(ctx, &row, updateQuery("staff", cols, "staff_id")+" RETURNING *", args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return staff.Staff{}, staff.ErrNotFound
		}
		return staff.Staff{}, staffError(err)
	}
	return row.toStaff(), nil
}

func (repo *staffRepository) SetLastLogin(ctx context.Context, id string, t time.Time) error {
	res, err := repo.db.ExecContext(ctx, `UPDATE "staff" SET "last_login" = $1 WHERE "staff_id" = $2`, t, id)
	return checkAffected(res, err, staff.ErrNotFound)
}

func (repo *staffRepository) Delete(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM "staff" WHERE "staff_id" = $1`, id)
	return checkAffected(res, err, staff.ErrNotFound)
}
