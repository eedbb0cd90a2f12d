package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/nojinx/ssm/core"
	"github.com/nojinx/ssm/core/audit"
	"github.com/nojinx/ssm/core/auth"
)

var errRefreshRequired = core.NewFieldValidationError("refresh", "This field is required.")

type authApi struct {
	svc           *auth.Service
	auditSvc      *audit.Service
	validate      *validator.Validate
	secureCookies bool
}

func registerAuthAPI(g *echo.Group, opts *Options) {
	api := authApi{
		svc:           opts.AuthSvc,
		auditSvc:      opts.AuditSvc,
		validate:      opts.Validate,
		secureCookies: opts.Conf.Server.SecureCookies,
	}

	ag := g.Group("/auth")
	ag.POST("/token", api.login)
	ag.POST("/token/refresh", api.refresh)
	ag.POST("/logout", api.logout)
}

// Handlers

func (api *authApi) login(ctx echo.Context) error {
	var data auth.Credentials
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Credentials")
	}
	data.Username = core.CleanString(data.Username)
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	ct := clientType(ctx)
	p, pair, err := api.svc.Login(ctx.Request().Context(), data, ct)
	if err != nil {
		switch errors.Cause(err) {
		case auth.ErrInvalidCredentials, auth.ErrAccountDeactivated:
			actor := contextActor(ctx)
			actor.ID = data.Username
			api.auditSvc.Record(ctx.Request().Context(), actor, audit.Event{
				Action:  audit.ActionLoginFailed,
				Message: err.Error(),
				Extra:   map[string]interface{}{"client_type": ct},
			})
		}
		return errors.Wrap(err, "logging in")
	}

	api.auditSvc.Record(ctx.Request().Context(), principalActor(ctx, p), audit.Event{
		Action:     audit.ActionLogin,
		ObjectType: p.Kind,
		ObjectID:   p.ID,
		Message:    "logged in",
		Extra:      map[string]interface{}{"client_type": ct},
	})

	if ct.IsWeb() {
		ctx.SetCookie(newTokenCookie(accessCookie, pair.Access, api.svc.AccessLifetime(), api.secureCookies))
		ctx.SetCookie(newTokenCookie(refreshCookie, pair.Refresh, api.svc.RefreshLifetime(ct), api.secureCookies))
	}
	return ctx.JSON(http.StatusOK, pair)
}

func (api *authApi) refresh(ctx echo.Context) error {
	var data RefreshRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RefreshRequest")
	}
	token := data.token(ctx)
	if token == "" {
		return errRefreshRequired
	}

	access, claims, err := api.svc.Refresh(ctx.Request().Context(), token)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}

	if claims.ClientType.IsWeb() {
		ctx.SetCookie(newTokenCookie(accessCookie, access, api.svc.AccessLifetime(), api.secureCookies))
	}
	return ctx.JSON(http.StatusOK, AccessResponse{Access: access})
}

func (api *authApi) logout(ctx echo.Context) error {
	var data RefreshRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RefreshRequest")
	}

	actor := contextActor(ctx)
	if token := data.token(ctx); token != "" {
		claims, err := api.svc.Revoke(ctx.Request().Context(), token)
		if err != nil {
			switch errors.Cause(err) {
			case auth.ErrInvalidToken, auth.ErrWrongTokenType:
				return echo.NewHTTPError(http.StatusBadRequest, err.Error())
			}
			return errors.Wrap(err, "revoking refresh token")
		}
		if claims != nil {
			actor.Type = audit.ActorStaff
			if claims.IsStudent() {
				actor.Type = audit.ActorStudent
			}
			actor.ID = claims.Subject
		}
	}

	api.auditSvc.Record(ctx.Request().Context(), actor, audit.Event{Action: audit.ActionLogout, Message: "logged out"})

	ctx.SetCookie(expireCookie(accessCookie, api.secureCookies))
	ctx.SetCookie(expireCookie(refreshCookie, api.secureCookies))
	return ctx.JSON(http.StatusResetContent, SuccessResponse{Success: "Successfully logged out."})
}
