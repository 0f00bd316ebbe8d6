package echoweb

import (
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomoweb/core"
)

var (
	searchParam   = "search"
	orderingParam = "ordering"
)

// listQuery holds the client-side filters of a list page.
type listQuery struct {
	Search    string
	Orderings []core.Ordering
}

func (q *listQuery) Bind(ctx echo.Context) {
	q.Search = core.CleanString(ctx.QueryParam(searchParam))
	q.Orderings = core.ParseOrdering(ctx.QueryParam(orderingParam))
}

func (q listQuery) Values() url.Values {
	v := make(url.Values)
	if q.Search != "" {
		v.Set(searchParam, q.Search)
	}
	if len(q.Orderings) > 0 {
		v.Set(orderingParam, core.FormatOrdering(q.Orderings))
	}
	return v
}

// checkOrderings rejects orderings on columns the table does not have.
// Without columns (no records) there is nothing to check.
func (q listQuery) checkOrderings(columns []string) error {
	if len(columns) == 0 {
		return nil
	}
	known := make(map[string]struct{}, len(columns))
	for _, col := range columns {
		known[col] = struct{}{}
	}
	for _, ord := range q.Orderings {
		if _, ok := known[ord.Field]; !ok {
			return core.NewValidationError(
				errors.New("invalid ordering"),
				core.FieldError{Field: orderingParam, Error: "unknown column: " + ord.Field},
			)
		}
	}
	return nil
}

type header struct {
	Name  string
	Link  string
	Arrow string
}

// headers returns the table headers, each linking to the page sorted by its column.
// Clicking the primary sort column flips its direction.
func (q listQuery) headers(pagePath string, columns []string) []header {
	var primary core.Ordering
	if len(q.Orderings) > 0 {
		primary = q.Orderings[0]
	}

	hdrs := make([]header, 0, len(columns))
	for _, col := range columns {
		ord := core.Ordering{Field: col, Ascending: true}
		hdr := header{Name: strings.ReplaceAll(col, "_", " ")}
		if primary.Field == col {
			ord.Ascending = !primary.Ascending
			if primary.Ascending {
				hdr.Arrow = " ▲"
			} else {
				hdr.Arrow = " ▼"
			}
		}
		v := q.Values()
		v.Set(orderingParam, ord.String())
		hdr.Link = pagePath + "?" + v.Encode()
		hdrs = append(hdrs, hdr)
	}
	return hdrs
}

// localPath returns `next` if it is a path on this site, `fallback` otherwise.
func localPath(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return fallback
	}
	return next
}
