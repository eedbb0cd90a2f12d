package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/nojinx/ssm/core"
	"github.com/nojinx/ssm/core/staff"
)

type leaveRow struct {
	ID         string    `db:"id"`
	StaffID    string    `db:"staff_id"`
	LeaveType  string    `db:"leave_type"`
	StartDate  time.Time `db:"start_date"`
	EndDate    time.Time `db:"end_date"`
	Reason     string    `db:"reason"`
	Status     string    `db:"status"`
	ReviewedBy string    `db:"reviewed_by"`
	ReviewedAt null.Time `db:"reviewed_at"`
	CreatedAt  time.Time `db:"created_at"`
}

func (r leaveRow) toLeave() staff.LeaveRequest {
	return staff.LeaveRequest{
		ID:         r.ID,
		StaffID:    r.StaffID,
		LeaveType:  r.LeaveType,
		StartDate:  core.DateOf(r.StartDate),
		EndDate:    core.DateOf(r.EndDate),
		Reason:     r.Reason,
		Status:     r.Status,
		ReviewedBy: r.ReviewedBy,
		ReviewedAt: toTime(r.ReviewedAt),
		CreatedAt:  r.CreatedAt.UTC(),
	}
}

type leaveRepository struct {
	db *sqlx.DB
}

var _ staff.LeaveRepository = (*leaveRepository)(nil) // interface compliance check

func NewLeaveRepository(db *sqlx.DB) staff.LeaveRepository {
	return &leaveRepository{db: db}
}

func (repo *leaveRepository) CreateLeave(ctx context.Context, lr staff.LeaveRequest) (staff.LeaveRequest, error) {
	cols := []string{"id", "staff_id", "leave_type", "start_date", "end_date", "reason", "status", "created_at"}
	args := []interface{}{lr.ID, lr.StaffID, lr.LeaveType, lr.StartDate.Time, lr.EndDate.Time, lr.Reason, lr.Status, lr.CreatedAt}

	var row leaveRow
	if err := repo.db.GetContext(ctx, &row, insertQuery("staff_leave_request", cols)+" RETURNING *", args...); err != nil {
		return staff.LeaveRequest{}, errors.Wrap(err, "creating leave request")
	}
	return row.toLeave(), nil
}

func (repo *leaveRepository) GetLeave(ctx context.Context, id string) (staff.LeaveRequest, error) {
	var row leaveRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM "staff_leave_request" WHERE "id" = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return staff.LeaveRequest{}, staff.ErrLeaveNotFound
		}
		return staff.LeaveRequest{}, err
	}
	return row.toLeave(), nil
}

func (repo *leaveRepository) QueryLeaves(ctx context.Context, filter staff.LeaveFilter) ([]staff.LeaveRequest, error) {
	var w where
	if filter.StaffID != "" {
		w.add(`"staff_id" = ?`, filter.StaffID)
	}
	if filter.Status != "" {
		w.add(`"status" = ?`, filter.Status)
	}

	var rows []leaveRow
	q := `SELECT * FROM "staff_leave_request"` + w.String() + ` ORDER BY "created_at" DESC, "id"`
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, err
	}
	leaves := make([]staff.LeaveRequest, len(rows))
	for i, r := range rows {
		leaves[i] = r.toLeave()
	}
	return leaves, nil
}

func (repo *leaveRepository) UpdateLeave(ctx context.Context, lr staff.LeaveRequest) (staff.LeaveRequest, error) {
	cols := []string{"status", "reviewed_by", "reviewed_at"}
	args := []interface{}{lr.Status, lr.ReviewedBy, nullTime(lr.ReviewedAt), lr.ID}

	var row leaveRow
	if err := repo.db.GetContext(ctx, &row, updateQuery("staff_leave_request", cols, "id")+" RETURNING *", args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return staff.LeaveRequest{}, staff.ErrLeaveNotFound
		}
		return staff.LeaveRequest{}, err
	}
	return row.toLeave(), nil
}

func (repo *leaveRepository) DeleteLeave(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM "staff_leave_request" WHERE "id" = $1`, id)
	return checkAffected(res, err, staff.ErrLeaveNotFound)
}
