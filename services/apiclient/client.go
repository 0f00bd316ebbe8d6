// Package apiclient talks to the Masomo REST API on behalf of a client.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/masomoweb/core"
)

const (
	DefaultTimeout = 15 * time.Second

	// responses above this size are truncated
	maxResponseSize = 10 << 20
)

// Credentials is the credential contract of a client: the token to send, and what to do when it is rejected.
type Credentials interface {
	Token(ctx context.Context) (string, bool)
	Unauthorized(ctx context.Context)
}

// Anonymous sends no credential.
var Anonymous Credentials = anonymous{}

type anonymous struct{}

func (anonymous) Token(context.Context) (string, bool) { return "", false }
func (anonymous) Unauthorized(context.Context)         {}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

func WithLogger(logger core.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// Client issues JSON requests against a single base URL.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	logger    core.Logger
	userAgent string
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "parsing base url")
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("invalid base url %q", baseURL)
	}
	c := &Client{
		baseURL:   u,
		http:      &http.Client{Timeout: DefaultTimeout},
		userAgent: "masomoweb",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) BaseURL() string { return c.baseURL.String() }

// Do sends `body` (JSON encoded, if not nil) to `path` and decodes the response into `out` (if not nil).
// A bearer Authorization header is attached iff creds holds a token.
// On HTTP 401, creds.Unauthorized is called and ErrUnauthorized returned; other non-2xx responses are *Error.
func (c *Client) Do(ctx context.Context, creds Credentials, method, path string, query url.Values, body, out interface{}) error {
	if creds == nil {
		creds = Anonymous
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encoding request body")
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), reqBody)
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if token, ok := creds.Token(ctx); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return errors.Wrap(err, "reading response")
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		if c.logger != nil {
			c.logger.Info("credential rejected by the api", map[string]interface{}{"method": method, "path": path})
		}
		creds.Unauthorized(ctx)
		return ErrUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return newError(resp.StatusCode, data)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrap(err, "decoding response")
	}
	return nil
}

func (c *Client) Get(ctx context.Context, creds Credentials, path string, query url.Values, out interface{}) error {
	return c.Do(ctx, creds, http.MethodGet, path, query, nil, out)
}

func (c *Client) Post(ctx context.Context, creds Credentials, path string, body, out interface{}) error {
	return c.Do(ctx, creds, http.MethodPost, path, nil, body, out)
}

func (c *Client) Patch(ctx context.Context, creds Credentials, path string, body, out interface{}) error {
	return c.Do(ctx, creds, http.MethodPatch, path, nil, body, out)
}

func (c *Client) Delete(ctx context.Context, creds Credentials, path string) error {
	return c.Do(ctx, creds, http.MethodDelete, path, nil, nil, nil)
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = c.baseURL.Path + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}
