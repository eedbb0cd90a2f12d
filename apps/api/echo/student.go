package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/nojinx/ssm/core/audit"
	"github.com/nojinx/ssm/core/student"
)

var errStudentNotFoundInCtx = errors.New("student object not found in echo.Context")

type studentApi struct {
	svc      student.ServiceInterface
	auditSvc *audit.Service
}

type PromoteResponse struct {
	Promoted int `json:"promoted"`
}

func registerStudentAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := studentApi{
		svc:      opts.StudentSvc,
		auditSvc: opts.AuditSvc,
	}

	sg := g.Group("/students", jwt)
	sg.GET("", api.query, staffMiddleware())
	sg.GET("/me", api.me, studentMiddleware())
	sg.POST("/me/password", api.changePassword, studentMiddleware())
	sg.POST("/promote", api.promote, adminMiddleware())

	gg := sg.Group("/generate", adminMiddleware())
	gg.POST("", api.generate)
	gg.POST("/preview", api.preview)
	gg.POST("/single", api.generateSingle)

	// detail endpoints
	dg := sg.Group("/:roll", api.objectMiddleware)
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
}

// Handlers

func (api *studentApi) query(ctx echo.Context) error {
	filter := new(student.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []student.Student{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx, student.OrderingFields...)

	students, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []student.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *studentApi) me(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context principal")
	}
	s, err := api.svc.Get(ctx.Request().Context(), p.ID)
	if err != nil {
		return errors.Wrap(err, "finding student")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *studentApi) changePassword(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context principal")
	}
	var data student.ChangePassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChangePassword")
	}

	s, err := api.svc.Get(ctx.Request().Context(), p.ID)
	if err != nil {
		return errors.Wrap(err, "finding student")
	}
	if err := api.svc.ChangePassword(ctx.Request().Context(), s, data); err != nil {
		return errors.Wrap(err, "changing password")
	}

	api.auditSvc.Record(ctx.Request().Context(), contextActor(ctx), audit.Event{
		Action:     audit.ActionPasswordChange,
		ObjectType: "student",
		ObjectID:   s.RollNumber,
		Message:    "changed password",
	})
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password updated successfully."})
}

func (api *studentApi) promote(ctx echo.Context) error {
	var data student.PromoteRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PromoteRequest")
	}

	n, err := api.svc.Promote(ctx.Request().Context(), data.RollNumbers)
	if err != nil {
		return errors.Wrap(err, "promoting students")
	}

	api.auditSvc.Record(ctx.Request().Context(), contextActor(ctx), audit.Event{
		Action:     audit.ActionPromote,
		ObjectType: "student",
		Message:    "promoted students",
		Extra:      map[string]interface{}{"requested": len(data.RollNumbers), "promoted": n},
	})
	return ctx.JSON(http.StatusOK, PromoteResponse{Promoted: n})
}

func (api *studentApi) preview(ctx echo.Context) error {
	var data student.GenerationRange
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GenerationRange")
	}

	entries, err := api.svc.PreviewGeneration(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "previewing generation")
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *studentApi) generate(ctx echo.Context) error {
	var data student.GenerateRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GenerateRequest")
	}

	creds, err := api.svc.Generate(ctx.Request().Context(), data.SelectedRolls)
	if err != nil {
		return errors.Wrap(err, "generating students")
	}

	created := 0
	for _, c := range creds {
		if c.Created {
			created++
		}
	}
	api.auditSvc.Record(ctx.Request().Context(), contextActor(ctx), audit.Event{
		Action:     audit.ActionGenerate,
		ObjectType: "student",
		Message:    "generated student accounts",
		Extra:      map[string]interface{}{"selected": len(creds), "created": created},
	})
	return ctx.JSON(http.StatusOK, creds)
}

func (api *studentApi) generateSingle(ctx echo.Context) error {
	var data student.GenerateSingleRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GenerateSingleRequest")
	}

	cred, err := api.svc.GenerateSingle(ctx.Request().Context(), data.Roll)
	if err != nil {
		return errors.Wrap(err, "generating student")
	}

	api.auditSvc.Record(ctx.Request().Context(), contextActor(ctx), audit.Event{
		Action:     audit.ActionGenerate,
		ObjectType: "student",
		ObjectID:   cred.RollNumber,
		Message:    "reset student credentials",
		Extra:      map[string]interface{}{"created": cred.Created},
	})
	return ctx.JSON(http.StatusOK, cred)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	s, ok := ctx.Get("object").(student.Student)
	if !ok {
		return errors.Wrap(errStudentNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *studentApi) update(ctx echo.Context) error {
	s, ok := ctx.Get("object").(student.Student)
	if !ok {
		return errors.Wrap(errStudentNotFoundInCtx, "retrieving object from context")
	}
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context principal")
	}

	var data student.UpdateStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	if !p.IsStaff && data.HasStaffFields() {
		return errHttpForbidden
	}

	updated, err := api.svc.Update(ctx.Request().Context(), s, data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}

	api.auditSvc.Record(ctx.Request().Context(), contextActor(ctx), audit.Event{
		Action:     audit.ActionStudentUpdate,
		ObjectType: "student",
		ObjectID:   updated.RollNumber,
		Message:    "updated " + updated.RollNumber,
	})
	return ctx.JSON(http.StatusOK, updated)
}

// objectMiddleware loads the student from the path. Students can only load themselves.
func (api *studentApi) objectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		p, err := getContextPrincipal(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context principal")
		}

		s, err := api.svc.Get(ctx.Request().Context(), ctx.Param("roll"))
		if err != nil {
			if errors.Cause(err) == student.ErrNotFound {
				if p.IsStaff {
					return errHttpNotFound
				}
				return errHttpForbidden
			}
			return errors.Wrap(err, "finding student by roll number")
		}
		if !p.IsStaff && p.ID != s.RollNumber {
			return errHttpForbidden
		}
		ctx.Set("object", s)
		return next(ctx)
	}
}
