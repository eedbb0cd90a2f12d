package staff

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/nojinx/ssm/core"
)

// Leave types
const (
	LeaveCasual  = "casual"
	LeaveMedical = "medical"
	LeaveOnDuty  = "on_duty"
	LeaveEarned  = "earned"
)

// Leave statuses
const (
	LeavePending  = "pending"
	LeaveApproved = "approved"
	LeaveRejected = "rejected"
)

var (
	// errors
	ErrLeaveNotFound = errors.New("leave request not found")
	ErrLeaveReviewed = errors.New("this leave request was already reviewed")
	ErrOwnLeave      = errors.New("you cannot review your own leave request")

	errLeaveDates = "end date cannot be before start date"
)

type LeaveRequest struct {
	ID         string    `json:"id"`
	StaffID    string    `json:"staff_id"`
	LeaveType  string    `json:"leave_type"`
	StartDate  core.Date `json:"start_date"`
	EndDate    core.Date `json:"end_date"`
	Reason     string    `json:"reason"`
	Status     string    `json:"status"`
	ReviewedBy string    `json:"reviewed_by"`
	ReviewedAt time.Time `json:"reviewed_at"` // UTC, zero while pending
	CreatedAt  time.Time `json:"created_at"`  // UTC
}

// Days returns the number of days covered, both ends included.
func (lr LeaveRequest) Days() int {
	return int(lr.EndDate.Sub(lr.StartDate.Time).Hours()/24) + 1
}

func (lr LeaveRequest) IsPending() bool {
	return lr.Status == LeavePending
}

type NewLeaveRequest struct {
	LeaveType string    `json:"leave_type" validate:"required,oneof=casual medical on_duty earned"`
	StartDate core.Date `json:"start_date"`
	EndDate   core.Date `json:"end_date"`
	Reason    string    `json:"reason" validate:"required,max=500"`
}

// Validate checks nlr, an omitted end date meaning a single day off.
func (nlr *NewLeaveRequest) Validate(validate *validator.Validate) error {
	nlr.LeaveType = core.CleanString(nlr.LeaveType, true)
	nlr.Reason = core.CleanString(nlr.Reason)
	if err := validate.Struct(nlr); err != nil {
		return err
	}
	if nlr.StartDate.IsZero() {
		return core.NewFieldValidationError("start_date", "start date is required")
	}
	if nlr.EndDate.IsZero() {
		nlr.EndDate = nlr.StartDate
	}
	if nlr.EndDate.Before(nlr.StartDate) {
		return core.NewFieldValidationError("end_date", errLeaveDates)
	}
	return nil
}

type LeaveFilter struct {
	StaffID string `query:"staff_id"`
	Status  string `query:"status"`
}

type (
	LeaveRepository interface {
		CreateLeave(ctx context.Context, lr LeaveRequest) (LeaveRequest, error)
		GetLeave(ctx context.Context, id string) (LeaveRequest, error)
		// QueryLeaves returns the most recent requests first.
		QueryLeaves(ctx context.Context, filter LeaveFilter) ([]LeaveRequest, error)
		UpdateLeave(ctx context.Context, lr LeaveRequest) (LeaveRequest, error)
		DeleteLeave(ctx context.Context, id string) error
	}

	LeaveServiceInterface interface {
		Apply(ctx context.Context, staffID string, nlr NewLeaveRequest) (LeaveRequest, error)
		Get(ctx context.Context, id string) (LeaveRequest, error)
		Query(ctx context.Context, filter LeaveFilter) ([]LeaveRequest, error)
		Review(ctx context.Context, lr LeaveRequest, reviewerID string, approve bool) (LeaveRequest, error)
		Withdraw(ctx context.Context, lr LeaveRequest) error
	}

	LeaveService struct {
		repo     LeaveRepository
		validate *validator.Validate
	}
)

var _ LeaveServiceInterface = (*LeaveService)(nil)

func NewLeaveService(repo LeaveRepository, validate *validator.Validate) *LeaveService {
	return &LeaveService{repo: repo, validate: validate}
}

func (svc *LeaveService) Apply(ctx context.Context, staffID string, nlr NewLeaveRequest) (LeaveRequest, error) {
	if err := nlr.Validate(svc.validate); err != nil {
		return LeaveRequest{}, err
	}
	lr, err := svc.repo.CreateLeave(ctx, LeaveRequest{
		ID:        uuid.New().String(),
		StaffID:   staffID,
		LeaveType: nlr.LeaveType,
		StartDate: nlr.StartDate,
		EndDate:   nlr.EndDate,
		Reason:    nlr.Reason,
		Status:    LeavePending,
		CreatedAt: NowFunc().UTC(),
	})
	return lr, errors.Wrap(err, "creating leave request")
}

func (svc *LeaveService) Get(ctx context.Context, id string) (LeaveRequest, error) {
	return svc.repo.GetLeave(ctx, id)
}

func (svc *LeaveService) Query(ctx context.Context, filter LeaveFilter) ([]LeaveRequest, error) {
	filter.StaffID = core.CleanString(filter.StaffID)
	filter.Status = core.CleanString(filter.Status, true)
	return svc.repo.QueryLeaves(ctx, filter)
}

// Review approves or rejects a pending request. Nobody reviews their own requests.
func (svc *LeaveService) Review(ctx context.Context, lr LeaveRequest, reviewerID string, approve bool) (LeaveRequest, error) {
	if !lr.IsPending() {
		return LeaveRequest{}, core.NewValidationError(ErrLeaveReviewed, core.FieldError{Field: "status", Error: ErrLeaveReviewed.Error()})
	}
	if lr.StaffID == reviewerID {
		return LeaveRequest{}, ErrOwnLeave
	}

	lr.Status = LeaveRejected
	if approve {
		lr.Status = LeaveApproved
	}
	lr.ReviewedBy = reviewerID
	lr.ReviewedAt = NowFunc().UTC()
	return svc.repo.UpdateLeave(ctx, lr)
}

// Withdraw deletes a request still pending.
func (svc *LeaveService) Withdraw(ctx context.Context, lr LeaveRequest) error {
	if !lr.IsPending() {
		return core.NewValidationError(ErrLeaveReviewed, core.FieldError{Field: "status", Error: ErrLeaveReviewed.Error()})
	}
	return svc.repo.DeleteLeave(ctx, lr.ID)
}
