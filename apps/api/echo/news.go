package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/nojinx/ssm/core"
	"github.com/nojinx/ssm/core/audit"
	"github.com/nojinx/ssm/core/news"
)

var errNewsNotFoundInCtx = errors.New("news object not found in echo.Context")

type newsApi struct {
	svc      news.ServiceInterface
	auditSvc *audit.Service
}

func registerNewsAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := newsApi{
		svc:      opts.NewsSvc,
		auditSvc: opts.AuditSvc,
	}

	ng := g.Group("/news", jwt)
	ng.GET("", api.visible)
	ng.GET("/all", api.query, adminMiddleware())
	ng.POST("", api.create, adminMiddleware())

	// detail endpoints
	dg := ng.Group("/:id", adminMiddleware(), api.objectMiddleware)
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
}

// Handlers

// visible lists today's news for the caller's audience.
func (api *newsApi) visible(ctx echo.Context) error {
	p, err := getContextPrincipal(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context principal")
	}
	audience := news.TargetStudents
	if p.IsStaff {
		audience = news.TargetStaff
	}

	items, err := api.svc.ListVisible(ctx.Request().Context(), audience, core.DateOf(news.NowFunc()))
	if err != nil {
		return errors.Wrap(err, "listing visible news")
	}
	return ctx.JSON(http.StatusOK, items)
}

func (api *newsApi) query(ctx echo.Context) error {
	filter := new(news.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []news.News{})
	}

	items, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying news")
	}
	if items == nil {
		items = []news.News{}
	}
	return ctx.JSON(http.StatusOK, items)
}

func (api *newsApi) create(ctx echo.Context) error {
	var data news.NewsInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewsInput")
	}

	n, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating news")
	}

	api.auditSvc.Record(ctx.Request().Context(), contextActor(ctx), audit.Event{
		Action:     audit.ActionNewsCreate,
		ObjectType: "news",
		ObjectID:   n.ID,
		Message:    n.ContentShort(),
		Extra:      map[string]interface{}{"target": n.Target},
	})
	return ctx.JSON(http.StatusCreated, n)
}

func (api *newsApi) retrieve(ctx echo.Context) error {
	n, ok := ctx.Get("object").(news.News)
	if !ok {
		return errors.Wrap(errNewsNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, n)
}

func (api *newsApi) update(ctx echo.Context) error {
	n, ok := ctx.Get("object").(news.News)
	if !ok {
		return errors.Wrap(errNewsNotFoundInCtx, "retrieving object from context")
	}
	var data news.NewsInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewsInput")
	}

	updated, err := api.svc.Update(ctx.Request().Context(), n, data)
	if err != nil {
		return errors.Wrap(err, "updating news")
	}

	api.auditSvc.Record(ctx.Request().Context(), contextActor(ctx), audit.Event{
		Action:     audit.ActionNewsUpdate,
		ObjectType: "news",
		ObjectID:   updated.ID,
		Message:    updated.ContentShort(),
	})
	return ctx.JSON(http.StatusOK, updated)
}

func (api *newsApi) destroy(ctx echo.Context) error {
	n, ok := ctx.Get("object").(news.News)
	if !ok {
		return errors.Wrap(errNewsNotFoundInCtx, "retrieving object from context")
	}

	if err := api.svc.Delete(ctx.Request().Context(), n.ID); err != nil {
		return errors.Wrap(err, "deleting news")
	}

	api.auditSvc.Record(ctx.Request().Context(), contextActor(ctx), audit.Event{
		Action:     audit.ActionNewsDelete,
		ObjectType: "news",
		ObjectID:   n.ID,
		Message:    n.ContentShort(),
	})
	return ctx.NoContent(http.StatusNoContent)
}

func (api *newsApi) objectMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		n, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
		if err != nil {
			if errors.Cause(err) == news.ErrNotFound {
				return errHttpNotFound
			}
			return errors.Wrap(err, "finding news by ID")
		}
		ctx.Set("object", n)
		return next(ctx)
	}
}
