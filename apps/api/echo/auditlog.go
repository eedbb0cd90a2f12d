package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/nojinx/ssm/core/audit"
)

type auditApi struct {
	svc *audit.Service
}

func registerAuditAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := auditApi{svc: opts.AuditSvc}

	ag := g.Group("/audit-logs", jwt, adminMiddleware())
	ag.GET("", api.query)
	ag.DELETE("/:id", api.destroy)
}

// Handlers

func (api *auditApi) query(ctx echo.Context) error {
	var filter audit.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errBadQuery
	}

	page, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying audit logs")
	}
	return ctx.JSON(http.StatusOK, page)
}

func (api *auditApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		if errors.Cause(err) == audit.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting audit log")
	}
	return ctx.NoContent(http.StatusNoContent)
}
