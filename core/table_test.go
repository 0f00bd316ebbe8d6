package core

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

func TestParseOrdering(t *testing.T) {
	tests := []struct {
		val  string
		want []Ordering
	}{
		{val: "", want: nil},
		{val: " , -", want: nil},
		{val: "name", want: []Ordering{{Field: "name", Ascending: true}}},
		{val: "name, -created_at", want: []Ordering{{Field: "name", Ascending: true}, {Field: "created_at"}}},
		{val: "- id", want: []Ordering{{Field: "id"}}},
	}
	for _, tt := range tests {
		t.Run(tt.val, func(t *testing.T) {
			got := ParseOrdering(tt.val)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, "name,-created_at", FormatOrdering(ParseOrdering("name, -created_at")))
}

func TestBuildTable(t *testing.T) {
	records := []Record{
		{"id": float64(2), "name": "Zed", "grade": float64(7), "active": true},
		{"id": float64(10), "name": "amy", "grade": float64(7), "admitted_at": "2026-01-05T00:00:00Z"},
		{"id": float64(3), "name": "Bob", "grade": 6.5, "tags": []interface{}{"a", "b"}},
	}

	tests := []struct {
		name      string
		search    string
		ordering  string
		wantCols  []string
		wantNames []string
	}{
		{
			name:      "as fetched",
			wantCols:  []string{"id", "active", "admitted_at", "grade", "name", "tags"},
			wantNames: []string{"Zed", "amy", "Bob"},
		},
		{
			name:      "numbers sort numerically",
			ordering:  "-id",
			wantNames: []string{"amy", "Bob", "Zed"},
		},
		{
			name:      "strings sort case-insensitively",
			ordering:  "name",
			wantNames: []string{"amy", "Bob", "Zed"},
		},
		{
			name:      "secondary ordering breaks ties",
			ordering:  "-grade,name",
			wantNames: []string{"amy", "Zed", "Bob"},
		},
		{
			name:      "missing values sort first",
			ordering:  "admitted_at,id",
			wantNames: []string{"Zed", "Bob", "amy"},
		},
		{
			name:      "search any cell",
			search:    " YES ",
			wantNames: []string{"Zed"},
		},
		{
			name:      "search formatted dates",
			search:    "2026-01",
			wantNames: []string{"amy"},
		},
		{
			name:      "no match",
			search:    "nobody",
			wantNames: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := BuildTable(records, tt.search, ParseOrdering(tt.ordering))
			assert.Equal(t, len(records), tbl.Total)
			if tt.wantCols != nil {
				assert.Equal(t, tt.wantCols, tbl.Columns)
			}

			nameCol := -1
			for i, col := range tbl.Columns {
				if col == "name" {
					nameCol = i
				}
			}
			names := make([]string, 0, len(tbl.Rows))
			for _, row := range tbl.Rows {
				names = append(names, row[nameCol])
			}
			assert.Equal(t, tt.wantNames, names)
			assert.Equal(t, len(tt.wantNames) == 0, tbl.IsEmpty())
		})
	}
}

func TestBuildTable_noRecords(t *testing.T) {
	tbl := BuildTable(nil, "x", ParseOrdering("name"))
	assert.True(t, tbl.IsEmpty())
	assert.Empty(t, tbl.Columns)
	assert.Zero(t, tbl.Total)
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name string
		val  interface{}
		want string
	}{
		{name: "nil", val: nil, want: ""},
		{name: "string", val: "hello", want: "hello"},
		{name: "timestamp", val: "2026-10-19T08:00:00+02:00", want: "2026-10-19"},
		{name: "integer", val: float64(42), want: "42"},
		{name: "decimal", val: 12.5, want: "12.5"},
		{name: "true", val: true, want: "yes"},
		{name: "false", val: false, want: "no"},
		{name: "list", val: []interface{}{"a", float64(1), nil}, want: "a, 1, "},
		{name: "object", val: map[string]interface{}{"a": "b"}, want: "map[a:b]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatValue(tt.val))
		})
	}
}

func TestLoginValidation(t *testing.T) {
	validate := validator.New()
	translator := NewTranslator()
	InitValidators(validate, translator)

	type form struct {
		Username string `form:"username" validate:"required,login"`
	}
	tests := []struct {
		username string
		wantErr  string
	}{
		{username: "jane"},
		{username: "jane.doe+1"},
		{username: "jane@school.cd"},
		{username: "", wantErr: "this field is required"},
		{username: "ja ne", wantErr: "enter a valid username or email"},
		{username: "jane@", wantErr: "enter a valid username or email"},
	}
	for _, tt := range tests {
		t.Run(tt.username, func(t *testing.T) {
			err := validate.Struct(form{Username: tt.username})
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			vErrs, ok := err.(validator.ValidationErrors)
			if assert.True(t, ok, "err = %v", err) {
				assert.Equal(t, map[string]string{"username": tt.wantErr}, TranslateErrors(vErrs, translator))
			}
		})
	}
}
