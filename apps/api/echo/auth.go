package echoapi

import (
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/nojinx/ssm/core"
	"github.com/nojinx/ssm/core/audit"
	"github.com/nojinx/ssm/core/auth"
)

const (
	accessCookie  = "access_token"
	refreshCookie = "refresh_token"

	contextTokenKey     = "token"
	contextClaimsKey    = "claims"
	contextPrincipalKey = "principal"
)

// newJWTConfig verifies HS256 access tokens from the "Authorization: Bearer" header, falling back to the access cookie.
func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(auth.Claims),
		BeforeFunc: func(ctx echo.Context) {
			req := ctx.Request()
			if req.Header.Get(echo.HeaderAuthorization) != "" {
				return
			}
			if cookie, err := ctx.Cookie(accessCookie); err == nil && cookie.Value != "" {
				req.Header.Set(echo.HeaderAuthorization, middleware.DefaultJWTConfig.AuthScheme+" "+cookie.Value)
			}
		},
		SuccessHandler: func(ctx echo.Context) {
			if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
				ctx.Set(contextClaimsKey, token.Claims)
			}
		},
		ErrorHandlerWithContext: func(err error, ctx echo.Context) error {
			if err == middleware.ErrJWTMissing {
				return errJWTMissing
			}
			return errJWTInvalid
		},
	}
}

// principalMiddleware loads the principal of verified access token claims. Deactivated accounts are refused.
func principalMiddleware(svc *auth.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errJWTInvalid
			}
			if claims.TokenType != auth.AccessToken {
				return errJWTInvalid
			}

			p, err := svc.Principal(ctx.Request().Context(), claims)
			if err != nil {
				if errors.Cause(err) == auth.ErrInvalidToken {
					return errJWTInvalid
				}
				return errors.Wrap(err, "loading principal")
			}
			if !p.IsActive {
				return errAccountDeactivated
			}
			ctx.Set(contextPrincipalKey, p)
			return next(ctx)
		}
	}
}

// jwtMiddleware authenticates requests with an access token and stores its claims and principal in the context.
func jwtMiddleware(conf *core.Config, svc *auth.Service) echo.MiddlewareFunc {
	verify := middleware.JWTWithConfig(newJWTConfig(conf))
	load := principalMiddleware(svc)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return verify(load(next))
	}
}

func getContextClaims(ctx echo.Context) (*auth.Claims, error) {
	if claims, ok := ctx.Get(contextClaimsKey).(*auth.Claims); ok {
		return claims, nil
	}
	return nil, errUnauthorized
}

func getContextPrincipal(ctx echo.Context) (auth.Principal, error) {
	if p, ok := ctx.Get(contextPrincipalKey).(auth.Principal); ok {
		return p, nil
	}
	return auth.Principal{}, errUnauthorized
}

func clientType(ctx echo.Context) auth.ClientType {
	return auth.ParseClientType(ctx.Request().Header.Get(auth.ClientTypeHeader))
}

// contextActor returns who performed the current request, for the audit log.
func contextActor(ctx echo.Context) audit.Actor {
	actor := audit.Actor{
		Type:      audit.ActorAnonymous,
		IPAddress: ctx.RealIP(),
		UserAgent: ctx.Request().UserAgent(),
	}
	if p, err := getContextPrincipal(ctx); err == nil {
		actor = principalActor(ctx, p)
	}
	return actor
}

func principalActor(ctx echo.Context, p auth.Principal) audit.Actor {
	actorType := audit.ActorStaff
	if p.Kind == auth.KindStudent {
		actorType = audit.ActorStudent
	}
	return audit.Actor{
		Type:      actorType,
		ID:        p.ID,
		Name:      p.Name,
		IPAddress: ctx.RealIP(),
		UserAgent: ctx.Request().UserAgent(),
	}
}

func newTokenCookie(name, value string, maxAge time.Duration, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// expireCookie tells the browser to drop the cookie name.
func expireCookie(name string, secure bool) *http.Cookie {
	cookie := newTokenCookie(name, "", 0, secure)
	cookie.MaxAge = -1
	cookie.Expires = time.Unix(0, 0)
	return cookie
}
