package echoapi

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/nojinx/ssm/core/audit"
	"github.com/nojinx/ssm/core/auth"
	"github.com/nojinx/ssm/core/staff"
)

var errLeaveNotFoundInCtx = errors.New("leave request not found in echo.Context")

type leaveApi struct {
	svc      staff.LeaveServiceInterface
	auditSvc *audit.Service
}

func registerLeaveAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := leaveApi{
		svc:      opts.LeaveSvc,
		auditSvc: opts.AuditSvc,
	}

	lg := g.Group("/leaves", jwt, staffMiddleware())
	lg.GET("", api.query)
	lg.POST("", api.apply)

	// detail endpoints
	dg := lg.Group("/:id", api.objectMiddleware)
	dg.GET("", api.retrieve)
	dg.DELETE("", api.withdraw)
	dg.POST("/approve", api.approve, reviewerMiddleware())
	dg.POST("/reject", api.reject, reviewerMiddleware())
}

// isLeaveReviewer reports whether p may see and review everybody's leave requests.
func isLeaveReviewer(p auth.Principal) bool {
	return p.IsAdmin || p.Role == staff.RoleHOD
}

// Handlers

// query lists the caller's requests. Reviewers see everybody's.
func (api *leaveApi) query(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context principal")
	}
	filter := staff.LeaveFilter{StaffID: ctx.QueryParam("staff_id"), Status: ctx.QueryParam("status")}
	if !isLeaveReviewer(p) {
		filter.StaffID = p.ID
	}

	leaves, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying leave requests")
	}
	if leaves == nil {
		leaves = []staff.LeaveRequest{}
	}
	return ctx.JSON(http.StatusOK, leaves)
}

func (api *leaveApi) apply(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context principal")
	}
	var data staff.NewLeaveRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLeaveRequest")
	}

	lr, err := api.svc.Apply(ctx.Request().Context(), p.ID, data)
	if err != nil {
		return errors.Wrap(err, "applying for leave")
	}

	api.auditSvc.Record(ctx.Request().Context(), contextActor(ctx), audit.Event{
		Action:     audit.ActionLeaveApply,
		ObjectType: "leave_request",
		ObjectID:   lr.ID,
		Message:    fmt.Sprintf("applied for %s leave from %s to %s", lr.LeaveType, lr.StartDate, lr.EndDate),
		Extra:      map[string]interface{}{"days": lr.Days()},
	})
	return ctx.JSON(http.StatusCreated, lr)
}

func (api *leaveApi) retrieve(ctx echo.Context) error {
	lr, ok := ctx.Get("object").(staff.LeaveRequest)
	if !ok {
		return errors.Wrap(errLeaveNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, lr)
}

func (api *leaveApi) withdraw(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context principal")
	}
	lr, ok := ctx.Get("object").(staff.LeaveRequest)
	if !ok {
		return errors.Wrap(errLeaveNotFoundInCtx, "retrieving object from context")
	}
	if lr.StaffID != p.ID {
		return errHttpForbidden
	}

	if err := api.svc.Withdraw(ctx.Request().Context(), lr); err != nil {
		return errors.Wrap(err, "withdrawing leave request")
	}

	api.auditSvc.Record(ctx.Request().Context(), contextActor(ctx), audit.Event{
		Action:     audit.ActionLeaveWithdraw,
		ObjectType: "leave_request",
		ObjectID:   lr.ID,
		Message:    "withdrew a leave request",
	})
	return ctx.NoContent(http.StatusNoContent)
}

func (api *leaveApi) approve(ctx echo.Context) error {
	return api.review(ctx, true)
}

func (api *leaveApi) reject(ctx echo.Context) error {
	return api.review(ctx, false)
}

func (api *leaveApi) review(ctx echo.Context, approve bool) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context principal")
	}
	lr, ok := ctx.Get("object").(staff.LeaveRequest)
	if !ok {
		return errors.Wrap(errLeaveNotFoundInCtx, "retrieving object from context")
	}

	reviewed, err := api.svc.Review(ctx.Request().Context(), lr, p.ID, approve)
	if err != nil {
		return errors.Wrap(err, "reviewing leave request")
	}

	api.auditSvc.Record(ctx.Request().Context(), contextActor(ctx), audit.Event{
		Action:     audit.ActionLeaveReview,
		ObjectType: "leave_request",
		ObjectID:   reviewed.ID,
		Message:    fmt.Sprintf("%s the leave request of %s", reviewed.Status, reviewed.StaffID),
	})
	return ctx.JSON(http.StatusOK, reviewed)
}

// objectMiddleware loads the leave request in the path. Only its owner and reviewers get to see it.
func (api *leaveApi) objectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		p, err := getContextPrincipal(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context principal")
		}
		lr, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			if errors.Cause(err) == staff.ErrLeaveNotFound {
				return errHttpNotFound
			}
			return errors.Wrap(err, "finding leave request by ID")
		}
		if lr.StaffID != p.ID && !isLeaveReviewer(p) {
			return errHttpNotFound
		}
		ctx.Set("object", lr)
		return next(ctx)
	}
}

func reviewerMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			p, err := getContextPrincipal(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context principal")
			}
			if isLeaveReviewer(p) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}
