package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/nojinx/ssm/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind reads the "ordering" query param, e.g. "?ordering=-created_at,name". Fields not in allowed are dropped.
func (ord *Ordering) Bind(ctx echo.Context, allowed ...string) {
	ord.Orderings = core.ParseOrdering(ctx.QueryParam(orderingParam), allowed...)
}

type (
	SuccessResponse struct {
		Success string `json:"success"`
	}

	RefreshRequest struct {
		Refresh string `json:"refresh"`
	}

	AccessResponse struct {
		Access string `json:"access"`
	}
)

// token reads the refresh token from the request body, then from the refresh cookie.
func (rr RefreshRequest) token(ctx echo.Context) string {
	if rr.Refresh != "" {
		return rr.Refresh
	}
	if cookie, err := ctx.Cookie(refreshCookie); err == nil {
		return cookie.Value
	}
	return ""
}
