package echoweb

import (
	"net/http"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomoweb/core"
	"github.com/trezcool/masomoweb/core/session"
	"github.com/trezcool/masomoweb/services/apiclient"
)

var (
	errHttpForbidden = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound  = echo.NewHTTPError(http.StatusNotFound, "not found")
)

type errorPageData struct {
	pageData
	Code    int
	Message string
	Fields  map[string]string
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(appName string, logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		// the credential was rejected: the guard already evicted the session, follow it.
		if errors.Cause(err) == apiclient.ErrUnauthorized {
			if sh, sErr := getContextShell(ctx); sErr == nil {
				sh.TakeRedirect()
			}
			if !ctx.Response().Committed {
				if rErr := ctx.Redirect(http.StatusSeeOther, session.EntryRoute); rErr != nil {
					ctx.Echo().Logger.Error(rErr)
				}
			}
			return
		}

		var code int
		var message string
		var fields map[string]string

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			if m, ok := origErr.Message.(string); ok {
				message = m
			} else {
				message = http.StatusText(code)
			}
		case validator.ValidationErrors:
			code = http.StatusBadRequest
			message = "invalid data"
			fields = core.TranslateErrors(origErr, translator)
		case *core.ValidationError:
			code = http.StatusBadRequest
			message = origErr.Error()
			if origErr.Fields != nil {
				fields = origErr.FieldMap()
			}
		case *apiclient.Error:
			code = origErr.StatusCode
			message = origErr.Message
			fields = origErr.Fields
			if code >= http.StatusInternalServerError {
				code = http.StatusBadGateway
				message = http.StatusText(code)
				fields = nil
				logger.Error("api error", errors.Wrap(err, "api error"), profileOf(ctx))
			}
		default: // any other error is a server error
			code = http.StatusInternalServerError
			message = http.StatusText(http.StatusInternalServerError)
			logger.Error(message, errors.Wrap(err, message), profileOf(ctx))

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		}

		// Send response
		if ctx.Response().Committed {
			return
		}
		if ctx.Request().Method == http.MethodHead { // Issue #608
			err = ctx.NoContent(code)
		} else if wantsJSON(ctx) {
			if fields != nil {
				err = ctx.JSON(code, fields)
			} else {
				err = ctx.JSON(code, echo.Map{"error": message})
			}
		} else {
			err = ctx.Render(code, "error.html", errorPageData{
				pageData: newPageData(ctx, appName, http.StatusText(code)),
				Code:     code,
				Message:  message,
				Fields:   fields,
			})
		}
		if err != nil {
			ctx.Echo().Logger.Error(err)
		}
	}
}

func wantsJSON(ctx echo.Context) bool {
	req := ctx.Request()
	return strings.Contains(req.Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON) ||
		strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON)
}
