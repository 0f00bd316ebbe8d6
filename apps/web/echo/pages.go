package echoweb

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomoweb/core"
	"github.com/trezcool/masomoweb/services/apiclient"
)

// page is a list screen: it renders the records of an API resource.
type page struct {
	Path     string
	Title    string
	Resource string
}

var listPages = []page{
	{Path: "/students", Title: "Students", Resource: "/students"},
	{Path: "/add-student", Title: "Pending admissions", Resource: "/students/admissions"},
	{Path: "/staff", Title: "Staff", Resource: "/staff"},
	{Path: "/fee-collection", Title: "Fee collection", Resource: "/fees/payments"},
	{Path: "/attendance", Title: "Attendance", Resource: "/attendance"},
	{Path: "/timetable", Title: "Timetable", Resource: "/timetable"},
	{Path: "/examinations", Title: "Examinations", Resource: "/examinations"},
	{Path: "/reports", Title: "Reports", Resource: "/reports"},
}

func findPage(path string) (page, bool) {
	for _, p := range listPages {
		if p.Path == path {
			return p, true
		}
	}
	return page{}, false
}

type pageHandler struct {
	conf     *core.Config
	api      *apiclient.Client
	validate *validator.Validate
}

type listPageData struct {
	pageData
	Table     core.Table
	Headers   []header
	Search    string
	Ordering  string
	PrintLink string
}

type printModeRequest struct {
	Open string `json:"open" form:"open" validate:"required,oneof=true false"`
	Next string `json:"next" form:"next"`
}

type sidebarRequest struct {
	Open string `json:"open" form:"open" validate:"omitempty,oneof=true false"`
	Next string `json:"next" form:"next"`
}

func registerPageRoutes(app *echo.Echo, deps ServerDeps) {
	h := pageHandler{conf: deps.Conf, api: deps.API, validate: deps.Validate}
	guard := guardMiddleware()

	app.GET(homeRoute, h.dashboard, guard)
	for _, p := range listPages {
		app.GET(p.Path, h.list(p), guard, permMiddleware(p.Path))
	}
	app.GET("/print/:page", h.print, guard)
	app.GET("/print-mode", h.printMode, guard)
	app.POST("/print-mode", h.setPrintMode, guard)
	app.POST("/sidebar", h.toggleSidebar, guard)
}

// Handlers

func (h *pageHandler) dashboard(ctx echo.Context) error {
	return ctx.Render(http.StatusOK, "dashboard.html", newPageData(ctx, h.conf.AppName, "Dashboard"))
}

func (h *pageHandler) list(p page) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		data, err := h.fetch(ctx, p)
		if err != nil {
			return err
		}
		return ctx.Render(http.StatusOK, "list.html", data)
	}
}

// print opens the printable view of a list page: navigation chrome is hidden until the print modal is closed.
func (h *pageHandler) print(ctx echo.Context) error {
	sh, err := getContextShell(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context shell")
	}
	p, ok := findPage("/" + ctx.Param("page"))
	if !ok {
		return errHttpNotFound
	}
	if !sh.Allowed(p.Path) {
		return errHttpForbidden
	}

	sh.PrintMode.Set(true)
	data, err := h.fetch(ctx, p)
	if err != nil {
		sh.PrintMode.Set(false)
		return err
	}
	data.Path = p.Path
	return ctx.Render(http.StatusOK, "print.html", data)
}

func (h *pageHandler) fetch(ctx echo.Context, p page) (listPageData, error) {
	sh, err := getContextShell(ctx)
	if err != nil {
		return listPageData{}, errors.Wrap(err, "getting context shell")
	}

	var q listQuery
	q.Bind(ctx)
	records, err := h.api.List(ctx.Request().Context(), sh, p.Resource, nil)
	if err != nil {
		return listPageData{}, errors.Wrapf(err, "listing %s", p.Resource)
	}
	tbl := core.BuildTable(records, q.Search, q.Orderings)
	if err = q.checkOrderings(tbl.Columns); err != nil {
		return listPageData{}, err
	}

	printLink := "/print" + p.Path
	if v := q.Values(); len(v) > 0 {
		printLink += "?" + v.Encode()
	}
	return listPageData{
		pageData:  newPageData(ctx, h.conf.AppName, p.Title),
		Table:     tbl,
		Headers:   q.headers(p.Path, tbl.Columns),
		Search:    q.Search,
		Ordering:  core.FormatOrdering(q.Orderings),
		PrintLink: printLink,
	}, nil
}

func (h *pageHandler) printMode(ctx echo.Context) error {
	sh, err := getContextShell(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context shell")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"print_modal_open": sh.PrintMode.Read()})
}

// setPrintMode is called with open=false when the print modal is closed.
func (h *pageHandler) setPrintMode(ctx echo.Context) error {
	sh, err := getContextShell(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context shell")
	}
	var data printModeRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding print mode")
	}
	if err = h.validate.Struct(data); err != nil {
		return err
	}

	sh.PrintMode.Set(data.Open == "true")
	if data.Next != "" {
		return ctx.Redirect(http.StatusSeeOther, localPath(data.Next, homeRoute))
	}
	return ctx.JSON(http.StatusOK, echo.Map{"print_modal_open": sh.PrintMode.Read()})
}

// toggleSidebar flips the sidebar preference, or sets it when `open` is given.
func (h *pageHandler) toggleSidebar(ctx echo.Context) error {
	sh, err := getContextShell(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context shell")
	}
	var data sidebarRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding sidebar")
	}
	if err = h.validate.Struct(data); err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	open := !sh.SidebarOpen(reqCtx)
	if data.Open != "" {
		open = data.Open == "true"
	}
	if err = sh.SetSidebarOpen(reqCtx, open); err != nil {
		return err
	}
	if data.Next == "" && wantsJSON(ctx) {
		return ctx.JSON(http.StatusOK, echo.Map{"sidebar_open": open})
	}
	return ctx.Redirect(http.StatusSeeOther, localPath(data.Next, homeRoute))
}
