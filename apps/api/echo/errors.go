package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/nojinx/ssm/core"
	"github.com/nojinx/ssm/core/academic"
	"github.com/nojinx/ssm/core/audit"
	"github.com/nojinx/ssm/core/auth"
	"github.com/nojinx/ssm/core/news"
	"github.com/nojinx/ssm/core/staff"
	"github.com/nojinx/ssm/core/student"
)

var (
	errJWTMissing         = echo.NewHTTPError(http.StatusUnauthorized, "missing or malformed jwt")
	errJWTInvalid         = echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired jwt")
	errUnauthorized       = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAccountDeactivated = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errHttpForbidden      = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound       = echo.NewHTTPError(http.StatusNotFound, "not found")
	errBadQuery           = echo.NewHTTPError(http.StatusBadRequest, "invalid query parameters")

	// domainErrs maps domain errors to their HTTP status.
	domainErrs = []struct {
		err  error
		code int
	}{
		{auth.ErrInvalidCredentials, http.StatusUnauthorized},
		{auth.ErrInvalidToken, http.StatusUnauthorized},
		{auth.ErrWrongTokenType, http.StatusUnauthorized},
		{auth.ErrTokenBlacklisted, http.StatusUnauthorized},
		{auth.ErrAccountDeactivated, http.StatusForbidden},
		{staff.ErrNotFound, http.StatusNotFound},
		{student.ErrNotFound, http.StatusNotFound},
		{academic.ErrSubjectNotFound, http.StatusNotFound},
		{academic.ErrEntryNotFound, http.StatusNotFound},
		{academic.ErrExamNotFound, http.StatusNotFound},
		{staff.ErrLeaveNotFound, http.StatusNotFound},
		{staff.ErrOwnLeave, http.StatusForbidden},
		{news.ErrNotFound, http.StatusNotFound},
		{audit.ErrNotFound, http.StatusNotFound},
	}
)

func domainErrCode(err error) (int, bool) {
	for _, de := range domainErrs {
		if err == de.err {
			return de.code, true
		}
	}
	return 0, false
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		default:
			if c, ok := domainErrCode(origErr); ok {
				code = c
				message = origErr.Error()
				break
			}

			// any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			var person core.Person
			if p, pErr := getContextPrincipal(ctx); pErr == nil {
				person = core.Person{ID: p.ID, Username: p.Name, Email: p.Email}
			}
			logger.Error(msg, errors.Wrap(err, msg), person)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug && code == http.StatusInternalServerError {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
