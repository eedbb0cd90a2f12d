package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/nojinx/ssm/core/academic"
	"github.com/nojinx/ssm/core/audit"
	"github.com/nojinx/ssm/core/staff"
)

var errSubjectNotFoundInCtx = errors.New("subject object not found in echo.Context")

type subjectApi struct {
	svc      academic.ServiceInterface
	auditSvc *audit.Service
}

type RiskResponse struct {
	Subject  academic.Subject       `json:"subject"`
	Students []academic.RiskStudent `json:"students"`
}

func registerSubjectAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := subjectApi{
		svc:      opts.AcademicSvc,
		auditSvc: opts.AuditSvc,
	}

	sg := g.Group("/subjects", jwt, staffMiddleware())
	sg.GET("", api.query)
	sg.POST("", api.create, adminMiddleware())

	// detail endpoints
	dg := sg.Group("/:code", api.objectMiddleware)
	dg.POST("/attendance", api.recordAttendance, assignedMiddleware())
	dg.PUT("/marks", api.recordMarks, assignedMiddleware())
	dg.GET("/risk", api.risk, assignedMiddleware(staff.RoleHOD))
}

// Handlers

func (api *subjectApi) query(ctx echo.Context) error {
	semester, _ := strconv.Atoi(ctx.QueryParam("semester"))
	subjects, err := api.svc.QuerySubjects(ctx.Request().Context(), semester, ctx.QueryParam("staff_id"))
	if err != nil {
		return errors.Wrap(err, "querying subjects")
	}
	if subjects == nil {
		subjects = []academic.Subject{}
	}
	return ctx.JSON(http.StatusOK, subjects)
}

func (api *subjectApi) create(ctx echo.Context) error {
	var data academic.NewSubject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubject")
	}

	subj, err := api.svc.CreateSubject(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating subject")
	}

	api.auditSvc.Record(ctx.Request().Context(), contextActor(ctx), audit.Event{
		Action:     audit.ActionSubjectCreate,
		ObjectType: "subject",
		ObjectID:   subj.Code,
		Message:    "created " + subj.Name,
	})
	return ctx.JSON(http.StatusCreated, subj)
}

func (api *subjectApi) recordAttendance(ctx echo.Context) error {
	subj, ok := ctx.Get("object").(academic.Subject)
	if !ok {
		return errors.Wrap(errSubjectNotFoundInCtx, "retrieving object from context")
	}
	var data academic.AttendanceSheet
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AttendanceSheet")
	}

	records, err := api.svc.RecordAttendance(ctx.Request().Context(), subj, data)
	if err != nil {
		return errors.Wrap(err, "recording attendance")
	}

	api.auditSvc.Record(ctx.Request().Context(), contextActor(ctx), audit.Event{
		Action:     audit.ActionAttendance,
		ObjectType: "subject",
		ObjectID:   subj.Code,
		Message:    "recorded attendance for " + data.Date.String(),
		Extra:      map[string]interface{}{"records": len(records)},
	})
	return ctx.JSON(http.StatusOK, records)
}

func (api *subjectApi) recordMarks(ctx echo.Context) error {
	subj, ok := ctx.Get("object").(academic.Subject)
	if !ok {
		return errors.Wrap(errSubjectNotFoundInCtx, "retrieving object from context")
	}
	var data academic.MarksSheet
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MarksSheet")
	}

	marks, err := api.svc.RecordMarks(ctx.Request().Context(), subj, data)
	if err != nil {
		return errors.Wrap(err, "recording marks")
	}

	api.auditSvc.Record(ctx.Request().Context(), contextActor(ctx), audit.Event{
		Action:     audit.ActionMarks,
		ObjectType: "subject",
		ObjectID:   subj.Code,
		Message:    "recorded internal marks",
		Extra:      map[string]interface{}{"marks": len(marks)},
	})
	return ctx.JSON(http.StatusOK, marks)
}

func (api *subjectApi) risk(ctx echo.Context) error {
	subj, ok := ctx.Get("object").(academic.Subject)
	if !ok {
		return errors.Wrap(errSubjectNotFoundInCtx, "retrieving object from context")
	}

	students, err := api.svc.RiskMetrics(ctx.Request().Context(), subj)
	if err != nil {
		return errors.Wrap(err, "computing risk metrics")
	}
	if students == nil {
		students = []academic.RiskStudent{}
	}
	return ctx.JSON(http.StatusOK, RiskResponse{Subject: subj, Students: students})
}

func (api *subjectApi) objectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		subj, err := api.svc.GetSubject(ctx.Request().Context(), ctx.Param("code"))
		if err != nil {
			if errors.Cause(err) == academic.ErrSubjectNotFound {
				return errHttpNotFound
			}
			return errors.Wrap(err, "finding subject by code")
		}
		ctx.Set("object", subj)
		return next(ctx)
	}
}

// assignedMiddleware lets through admins, the staff member assigned to the subject in context,
// and staff holding one of roles.
func assignedMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			p, err := getContextPrincipal(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context principal")
			}
			subj, ok := ctx.Get("object").(academic.Subject)
			if !ok {
				return errors.Wrap(errSubjectNotFoundInCtx, "retrieving object from context")
			}

			if p.IsAdmin || subj.IsAssignedTo(p.ID) {
				return next(ctx)
			}
			for _, role := range roles {
				if p.Role == role {
					return next(ctx)
				}
			}
			return errHttpForbidden
		}
	}
}
