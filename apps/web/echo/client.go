package echoweb

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomoweb/core"
	"github.com/trezcool/masomoweb/core/shell"
)

const (
	contextShellKey = "shell"
	clientCookieAge = 30 * 24 * time.Hour
)

var errShellNotFoundInCtx = errors.New("shell not found in echo.Context")

// clientMiddleware identifies the browser by its client cookie (issuing one if needed),
// attaches its shell to the context, and honours the navigation its guard forced since the last request.
func clientMiddleware(conf *core.Config, reg *shell.Registry) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			clientID := clientIDFromCookie(ctx, conf.Session.ClientCookie)
			if clientID == "" {
				clientID = uuid.NewString()
				ctx.SetCookie(&http.Cookie{
					Name:     conf.Session.ClientCookie,
					Value:    clientID,
					Path:     "/",
					MaxAge:   int(clientCookieAge.Seconds()),
					HttpOnly: true,
					Secure:   !(conf.Debug || conf.TestMode),
					SameSite: http.SameSiteLaxMode,
				})
			}

			sh := reg.Shell(ctx.Request().Context(), clientID)
			ctx.Set(contextShellKey, sh)

			if route, ok := sh.TakeRedirect(); ok && route != ctx.Request().URL.Path {
				return ctx.Redirect(http.StatusSeeOther, route)
			}
			return next(ctx)
		}
	}
}

func clientIDFromCookie(ctx echo.Context, name string) string {
	cookie, err := ctx.Cookie(name)
	if err != nil {
		return ""
	}
	id, err := uuid.Parse(cookie.Value)
	if err != nil {
		return ""
	}
	return id.String()
}

func getContextShell(ctx echo.Context) (*shell.Shell, error) {
	sh, ok := ctx.Get(contextShellKey).(*shell.Shell)
	if !ok {
		return nil, errShellNotFoundInCtx
	}
	return sh, nil
}
