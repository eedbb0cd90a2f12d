package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/nojinx/ssm/core/audit"
	"github.com/nojinx/ssm/core/staff"
)

var errStaffNotFoundInCtx = errors.New("staff object not found in echo.Context")

type staffApi struct {
	svc      staff.ServiceInterface
	auditSvc *audit.Service
	validate *validator.Validate
}

func registerStaffAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := staffApi{
		svc:      opts.StaffSvc,
		auditSvc: opts.AuditSvc,
		validate: opts.Validate,
	}

	sg := g.Group("/staff", jwt, staffMiddleware())
	sg.POST("", api.create, adminMiddleware())
	sg.GET("", api.query)
	sg.GET("/roles", api.queryRoles)
	sg.GET("/me", api.me)
	sg.POST("/me/password", api.changePassword)

	// detail endpoints
	dg := sg.Group("/:id", api.objectMiddleware)
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy, adminMiddleware())
}

// Handlers

func (api *staffApi) create(ctx echo.Context) error {
	var data staff.NewStaff
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStaff")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	s, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering staff")
	}

	api.auditSvc.Record(ctx.Request().Context(), contextActor(ctx), audit.Event{
		Action:     audit.ActionStaffCreate,
		ObjectType: "staff",
		ObjectID:   s.ID,
		Message:    "registered " + s.Name,
		Extra:      map[string]interface{}{"role": s.Role, "is_admin": s.IsAdmin},
	})
	return ctx.JSON(http.StatusCreated, s)
}

func (api *staffApi) query(ctx echo.Context) error {
	filter := new(staff.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []staff.Staff{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx, staff.OrderingFields...)

	members, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying staff")
	}
	if members == nil {
		members = []staff.Staff{}
	}
	return ctx.JSON(http.StatusOK, members)
}

func (api *staffApi) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, staff.Roles)
}

func (api *staffApi) me(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context principal")
	}
	s, err := api.svc.Get(ctx.Request().Context(), p.ID)
	if err != nil {
		return errors.Wrap(err, "finding staff")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *staffApi) changePassword(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context principal")
	}
	var data staff.ChangePassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChangePassword")
	}

	s, err := api.svc.Get(ctx.Request().Context(), p.ID)
	if err != nil {
		return errors.Wrap(err, "finding staff")
	}
	if err := api.svc.ChangePassword(ctx.Request().Context(), s, data); err != nil {
		return errors.Wrap(err, "changing password")
	}

	api.auditSvc.Record(ctx.Request().Context(), contextActor(ctx), audit.Event{
		Action:     audit.ActionPasswordChange,
		ObjectType: "staff",
		ObjectID:   s.ID,
		Message:    "changed password",
	})
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password updated successfully."})
}

func (api *staffApi) retrieve(ctx echo.Context) error {
	s, ok := ctx.Get("object").(staff.Staff)
	if !ok {
		return errors.Wrap(errStaffNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *staffApi) update(ctx echo.Context) error {
	s, ok := ctx.Get("object").(staff.Staff)
	if !ok {
		return errors.Wrap(errStaffNotFoundInCtx, "retrieving object from context")
	}
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context principal")
	}

	var data staff.UpdateStaff
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStaff")
	}

	// staff members may only edit their own profile; role, semester and flags are admin only
	if !p.IsAdmin && (p.ID != s.ID || data.HasAdminFields()) {
		return errHttpForbidden
	}
	if err := data.Validate(ctx.Request().Context(), s, api.validate, api.svc); err != nil {
		return err
	}

	updated, err := api.svc.Update(ctx.Request().Context(), s, data)
	if err != nil {
		return errors.Wrap(err, "updating staff")
	}

	api.auditSvc.Record(ctx.Request().Context(), contextActor(ctx), audit.Event{
		Action:     audit.ActionStaffUpdate,
		ObjectType: "staff",
		ObjectID:   updated.ID,
		Message:    "updated " + updated.Name,
	})
	return ctx.JSON(http.StatusOK, updated)
}

func (api *staffApi) destroy(ctx echo.Context) error {
	s, ok := ctx.Get("object").(staff.Staff)
	if !ok {
		return errors.Wrap(errStaffNotFoundInCtx, "retrieving object from context")
	}
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context principal")
	}

	// Say No to Suicide! admins cannot delete themselves
	if s.ID == p.ID {
		return errHttpForbidden
	}

	if err := api.svc.Delete(ctx.Request().Context(), s.ID); err != nil {
		return errors.Wrap(err, "deleting staff")
	}

	api.auditSvc.Record(ctx.Request().Context(), contextActor(ctx), audit.Event{
		Action:     audit.ActionStaffDelete,
		ObjectType: "staff",
		ObjectID:   s.ID,
		Message:    "deleted " + s.Name,
	})
	return ctx.NoContent(http.StatusNoContent)
}

func (api *staffApi) objectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		s, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			if errors.Cause(err) == staff.ErrNotFound {
				return errHttpNotFound
			}
			return errors.Wrap(err, "finding staff by ID")
		}
		ctx.Set("object", s)
		return next(ctx)
	}
}
