package echoweb

import (
	"embed"
	"html/template"
	"io"
	"io/fs"
	"path"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomoweb/core/shell"
)

//go:embed templates/*.html
var templateFS embed.FS

// shared by every page
var baseTemplates = []string{"templates/layout.html", "templates/partials.html"}

type renderer struct {
	templates map[string]*template.Template
}

var _ echo.Renderer = (*renderer)(nil)

func newRenderer() *renderer {
	files, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		panic(err)
	}
	r := &renderer{templates: make(map[string]*template.Template)}
	for _, file := range files {
		name := path.Base(file)
		if name == "layout.html" || name == "partials.html" {
			continue
		}
		patterns := append(append([]string(nil), baseTemplates...), file)
		r.templates[name] = template.Must(template.New(name).ParseFS(templateFS, patterns...))
	}
	return r
}

func (r *renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	tmpl, ok := r.templates[name]
	if !ok {
		return errors.Errorf("template %q not found", name)
	}
	return tmpl.ExecuteTemplate(w, "layout", data)
}

// pageData is what the layout renders around every page.
type pageData struct {
	AppName string
	Title   string
	Path    string
	Layout  shell.Layout
}

func newPageData(ctx echo.Context, appName, title string) pageData {
	data := pageData{
		AppName: appName,
		Title:   title,
		Path:    ctx.Request().URL.Path,
		Layout:  shell.Layout{ShowNavigation: true, SidebarOpen: true},
	}
	if sh, err := getContextShell(ctx); err == nil {
		data.Layout = sh.Layout(ctx.Request().Context())
	}
	return data
}
