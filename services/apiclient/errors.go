package apiclient

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// ErrUnauthorized is returned when the API rejects the credential (HTTP 401).
// The session has already been evicted when it is returned.
var ErrUnauthorized = errors.New("unauthorized")

// Error is a non-2xx response of the Masomo API.
type Error struct {
	StatusCode int
	Message    string
	Fields     map[string]string // validation errors, keyed by field
}

func (e *Error) Error() string {
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+e.Fields[k])
		}
		return fmt.Sprintf("api error (HTTP %d): %s", e.StatusCode, strings.Join(parts, "; "))
	}
	return fmt.Sprintf("api error (HTTP %d): %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is an API 404.
func IsNotFound(err error) bool {
	apiErr, ok := errors.Cause(err).(*Error)
	return ok && apiErr.StatusCode == http.StatusNotFound
}

// newError decodes the error body of the API: {"error": "msg"} or {"field": "msg", ...}.
func newError(status int, body []byte) *Error {
	apiErr := &Error{StatusCode: status}

	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil || len(raw) == 0 {
		apiErr.Message = strings.TrimSpace(string(body))
		if apiErr.Message == "" {
			apiErr.Message = strings.ToLower(http.StatusText(status))
		}
		return apiErr
	}

	if msg, ok := raw["error"].(string); ok && len(raw) == 1 {
		apiErr.Message = msg
		return apiErr
	}
	apiErr.Fields = make(map[string]string, len(raw))
	for fld, val := range raw {
		switch v := val.(type) {
		case string:
			apiErr.Fields[fld] = v
		case []interface{}: // some endpoints return a list of messages per field
			msgs := make([]string, 0, len(v))
			for _, m := range v {
				msgs = append(msgs, fmt.Sprint(m))
			}
			apiErr.Fields[fld] = strings.Join(msgs, " ")
		default:
			apiErr.Fields[fld] = fmt.Sprint(v)
		}
	}
	apiErr.Message = "invalid data"
	return apiErr
}
