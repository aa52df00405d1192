package echoapi

import (
	"net/http"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/japhetcordova/clc-sub000/core"
	"github.com/japhetcordova/clc-sub000/core/attendance"
	"github.com/japhetcordova/clc-sub000/core/user"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errPinRotated           = echo.NewHTTPError(http.StatusUnauthorized, "scanner PIN was rotated")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// fieldErrors returns the {field: message} map of validation errors.
func fieldErrors(err error, translator ut.Translator) (map[string]string, bool) {
	var vErrs validator.ValidationErrors
	if errors.As(err, &vErrs) {
		fldErrs := make(map[string]string, len(vErrs))
		for _, vErr := range vErrs {
			fldErrs[vErr.Field()] = vErr.Translate(translator)
		}
		return fldErrs, true
	}

	var cErr *core.ValidationError
	if errors.As(err, &cErr) {
		fldErrs := make(map[string]string, len(cErr.Fields))
		for _, fErr := range cErr.Fields {
			fldErrs[fErr.Field] = fErr.Error
		}
		if len(fldErrs) == 0 {
			fldErrs["_"] = cErr.Error()
		}
		return fldErrs, true
	}
	return nil, false
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// notFoundPage renders 404s of the site pages.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(
	logger core.Logger,
	translator ut.Translator,
	notFoundPage echo.HandlerFunc,
	signalShutdown func(),
) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var (
			code    int
			message interface{}
			dupErr  *attendance.DuplicateError
		)

		if herr, ok := errors.Cause(err).(*echo.HTTPError); ok {
			if internal, ok := herr.Internal.(*echo.HTTPError); ok {
				herr = internal
			}
			code = herr.Code
			message = herr.Message
		} else if fldErrs, ok := fieldErrors(err, translator); ok {
			code = http.StatusBadRequest
			if msg, ok := fldErrs["_"]; ok && len(fldErrs) == 1 {
				message = msg
			} else {
				message = fldErrs
			}
		} else if errors.As(err, &dupErr) {
			code = http.StatusConflict
			message = echo.Map{"error": dupErr.Error(), "record": dupErr.Existing}
		} else if core.IsNotFound(err) {
			code = http.StatusNotFound
			message = errors.Cause(err).Error()
		} else if core.IsConflict(err) {
			code = http.StatusConflict
			message = errors.Cause(err).Error()
		} else { // any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			var usr user.User
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				usr.ID = claims.Subject
				usr.Username = claims.Username
				usr.Email = claims.Email
			}
			logger.Error(msg, errors.Wrap(err, msg), usr)

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
		if ctx.Response().Committed {
			return
		}
		if code == http.StatusNotFound && isSitePath(ctx.Request().URL.Path) {
			err = notFoundPage(ctx)
		} else if ctx.Request().Method == http.MethodHead { // Issue #608
			err = ctx.NoContent(code)
		} else {
			err = ctx.JSON(code, message)
		}
		if err != nil {
			ctx.Echo().Logger.Error(err)
		}
	}
}

// isSitePath reports whether path belongs to the server rendered site.
func isSitePath(path string) bool {
	return path != "/v1" && !strings.HasPrefix(path, "/v1/")
}
