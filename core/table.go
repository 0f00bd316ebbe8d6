package core

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// Record is a single row fetched from the API.
type Record map[string]interface{}

// Table is the listable rendition of fetched records.
type Table struct {
	Columns []string
	Rows    [][]string
	Total   int // number of records before filtering
}

func (t Table) IsEmpty() bool { return len(t.Rows) == 0 }

// BuildTable lays out records, keeping those where any cell contains `search` (case-insensitive)
// and sorting them by `orderings`.
func BuildTable(records []Record, search string, orderings []Ordering) Table {
	tbl := Table{Columns: columns(records), Total: len(records)}

	search = CleanString(search, true /* lower */)
	kept := make([]Record, 0, len(records))
	for _, rec := range records {
		if search == "" || matches(rec, tbl.Columns, search) {
			kept = append(kept, rec)
		}
	}

	if len(orderings) > 0 {
		sort.SliceStable(kept, func(i, j int) bool {
			for _, ord := range orderings {
				c := compareValues(kept[i][ord.Field], kept[j][ord.Field])
				if c == 0 {
					continue
				}
				if ord.Ascending {
					return c < 0
				}
				return c > 0
			}
			return false
		})
	}

	tbl.Rows = make([][]string, 0, len(kept))
	for _, rec := range kept {
		row := make([]string, len(tbl.Columns))
		for i, col := range tbl.Columns {
			row[i] = FormatValue(rec[col])
		}
		tbl.Rows = append(tbl.Rows, row)
	}
	return tbl
}

func columns(records []Record) []string {
	seen := make(map[string]struct{})
	var hasID bool
	cols := make([]string, 0)
	for _, rec := range records {
		for k := range rec {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			if k == "id" {
				hasID = true
				continue
			}
			cols = append(cols, k)
		}
	}
	sort.Strings(cols)
	if hasID {
		cols = append([]string{"id"}, cols...)
	}
	return cols
}

func matches(rec Record, cols []string, search string) bool {
	for _, col := range cols {
		if strings.Contains(strings.ToLower(FormatValue(rec[col])), search) {
			return true
		}
	}
	return false
}

func compareValues(a, b interface{}) int {
	if fa, ok := a.(float64); ok {
		if fb, ok := b.(float64); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(strings.ToLower(FormatValue(a)), strings.ToLower(FormatValue(b)))
}

// FormatValue renders a decoded JSON value for display.
func FormatValue(val interface{}) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t.Format(DateLayout)
		}
		return v
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		if v {
			return "yes"
		}
		return "no"
	case []interface{}:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, FormatValue(item))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(v)
	}
}
