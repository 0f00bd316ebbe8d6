package echoweb

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomoweb/core"
	"github.com/trezcool/masomoweb/core/session"
	"github.com/trezcool/masomoweb/core/shell"
	"github.com/trezcool/masomoweb/core/user"
	"github.com/trezcool/masomoweb/services/apiclient"
)

const homeRoute = "/dashboard"

var (
	errAuthenticationFailed = "authentication failed"
	errInvalidToken         = "the server issued an unusable session, please sign in again"
)

type authHandler struct {
	conf       *core.Config
	api        *apiclient.Client
	reg        *shell.Registry
	logger     core.Logger
	validate   *validator.Validate
	translator ut.Translator
}

type loginPageData struct {
	pageData
	Username string
	Error    string
	Fields   map[string]string
}

func registerAuthRoutes(app *echo.Echo, deps ServerDeps) {
	h := authHandler{
		conf:       deps.Conf,
		api:        deps.API,
		reg:        deps.Registry,
		logger:     deps.Logger,
		validate:   deps.Validate,
		translator: deps.Translator,
	}

	app.GET(session.EntryRoute, h.loginPage)
	app.POST("/login", h.login)
	app.POST("/logout", h.logout)
}

// guardMiddleware sends unauthenticated clients to the entry route.
func guardMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			sh, err := getContextShell(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context shell")
			}
			if sh.Guard.Observe(ctx.Request().Context()) != session.StateAuthenticated {
				return ctx.Redirect(http.StatusSeeOther, session.EntryRoute)
			}
			return next(ctx)
		}
	}
}

// permMiddleware restricts `path` to the roles its navigation entry lists.
func permMiddleware(path string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			sh, err := getContextShell(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context shell")
			}
			if !sh.Allowed(path) {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}

// profileOf returns the signed in user of the request, for logging.
func profileOf(ctx echo.Context) user.Profile {
	sh, err := getContextShell(ctx)
	if err != nil {
		return user.Profile{}
	}
	return sh.Profile()
}

// Handlers

func (h *authHandler) loginPage(ctx echo.Context) error {
	sh, err := getContextShell(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context shell")
	}
	if sh.Guard.Observe(ctx.Request().Context()) == session.StateAuthenticated {
		return ctx.Redirect(http.StatusSeeOther, homeRoute)
	}
	return h.renderLogin(ctx, http.StatusOK, "", "", nil)
}

func (h *authHandler) login(ctx echo.Context) error {
	sh, err := getContextShell(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context shell")
	}
	reqCtx := ctx.Request().Context()

	var form apiclient.LoginRequest
	if err = ctx.Bind(&form); err != nil {
		return errors.Wrap(err, "binding login form")
	}
	form.Username = core.CleanString(form.Username)
	if err = h.validate.Struct(form); err != nil {
		vErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return errors.Wrap(err, "validating login form")
		}
		return h.renderLogin(ctx, http.StatusBadRequest, form.Username, "", core.TranslateErrors(vErrs, h.translator))
	}

	resp, err := h.api.Login(reqCtx, form.Username, form.Password)
	if err != nil {
		if errors.Cause(err) == apiclient.ErrUnauthorized {
			return h.renderLogin(ctx, http.StatusBadRequest, form.Username, errAuthenticationFailed, nil)
		}
		if apiErr, ok := errors.Cause(err).(*apiclient.Error); ok && apiErr.StatusCode < http.StatusInternalServerError {
			return h.renderLogin(ctx, http.StatusBadRequest, form.Username, apiErr.Message, apiErr.Fields)
		}
		return errors.Wrap(err, "logging in")
	}

	claims, err := session.DecodeClaims(resp.Token)
	if err != nil {
		h.logger.Warn("login: unusable token", err)
		return h.renderLogin(ctx, http.StatusBadGateway, form.Username, errInvalidToken, nil)
	}
	if err = sh.Storage.Set(reqCtx, core.KeyToken, resp.Token); err != nil {
		return errors.Wrap(err, "persisting token")
	}
	if claims.Subject != "" {
		if err = sh.Storage.Set(reqCtx, core.KeyUserID, claims.Subject); err != nil {
			return errors.Wrap(err, "persisting user id")
		}
	}

	// the token changed: the guard re-validates it
	if sh.Guard.Observe(reqCtx) != session.StateAuthenticated {
		return h.renderLogin(ctx, http.StatusBadGateway, form.Username, errInvalidToken, nil)
	}
	return ctx.Redirect(http.StatusSeeOther, homeRoute)
}

func (h *authHandler) logout(ctx echo.Context) error {
	sh, err := getContextShell(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context shell")
	}
	sh.Guard.Evict(ctx.Request().Context(), session.ReasonLogout)
	sh.PrintMode.Set(false)
	h.reg.Drop(sh.ClientID)
	return ctx.Redirect(http.StatusSeeOther, session.EntryRoute)
}

func (h *authHandler) renderLogin(ctx echo.Context, code int, username, msg string, fields map[string]string) error {
	return ctx.Render(code, "login.html", loginPageData{
		pageData: newPageData(ctx, h.conf.AppName, "Sign in"),
		Username: username,
		Error:    msg,
		Fields:   fields,
	})
}
