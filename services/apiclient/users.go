package apiclient

import (
	"context"
	"net/url"

	"github.com/pkg/errors"

	"github.com/trezcool/masomoweb/core"
)

type (
	LoginRequest struct {
		Username string `json:"username" form:"username" validate:"required,login"`
		Password string `json:"password" form:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}
)

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, username, password string) (LoginResponse, error) {
	var resp LoginResponse
	err := c.Post(ctx, Anonymous, "/users/login", LoginRequest{Username: username, Password: password}, &resp)
	if err != nil {
		return LoginResponse{}, err
	}
	if resp.Token == "" {
		return LoginResponse{}, errors.New("login: no token in response")
	}
	return resp, nil
}

// List fetches a collection resource. Both bare arrays and {"results": [...]} envelopes are accepted.
func (c *Client) List(ctx context.Context, creds Credentials, path string, query url.Values) ([]core.Record, error) {
	var raw interface{}
	if err := c.Get(ctx, creds, path, query, &raw); err != nil {
		return nil, err
	}
	var items []interface{}
	switch v := raw.(type) {
	case nil:
		return []core.Record{}, nil
	case []interface{}:
		items = v
	case map[string]interface{}:
		results, ok := v["results"].([]interface{})
		if !ok {
			return []core.Record{core.Record(v)}, nil
		}
		items = results
	default:
		return nil, errors.Errorf("list %s: unexpected response", path)
	}

	records := make([]core.Record, 0, len(items))
	for _, item := range items {
		if obj, ok := item.(map[string]interface{}); ok {
			records = append(records, core.Record(obj))
		}
	}
	return records, nil
}
