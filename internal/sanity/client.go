// Package sanity talks to the Sanity content store: GROQ queries over the
// HTTP query API and URLs for the image transformation CDN.
package sanity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/heriman22/blog-main/internal/xerrors"
)

const (
	DefaultTimeout = 10 * time.Second

	// cap on response bodies; a full post listing is far below this
	maxResponseBytes = 8 << 20
)

var ErrInvalidOptions = xerrors.New("invalid sanity client options")

type Options struct {
	ProjectID  string
	Dataset    string
	APIVersion string // YYYY-MM-DD, optional leading "v"
	UseCDN     bool

	// BaseURL replaces https://<project>.api(cdn).sanity.io, for tests.
	BaseURL string

	HTTPClient *http.Client
	Timeout    time.Duration
}

func (o *Options) setDefaults() {
	o.APIVersion = strings.TrimPrefix(strings.TrimSpace(o.APIVersion), "v")
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   o.Timeout,
		}
	}
}

func (o *Options) validate() error {
	switch {
	case o.ProjectID == "":
		return xerrors.Newf("%w: project id is required", ErrInvalidOptions)
	case o.Dataset == "":
		return xerrors.Newf("%w: dataset is required", ErrInvalidOptions)
	case o.APIVersion == "":
		return xerrors.Newf("%w: api version is required", ErrInvalidOptions)
	}
	return nil
}

// Client runs read-only queries against the published perspective.
type Client struct {
	opts Options
	base *url.URL
}

func New(opts Options) (*Client, error) {
	opts.setDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	raw := opts.BaseURL
	if raw == "" {
		host := "api.sanity.io"
		if opts.UseCDN {
			host = "apicdn.sanity.io"
		}
		raw = fmt.Sprintf("https://%s.%s", opts.ProjectID, host)
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, xerrors.Wrapf(err, "parse base url %q", raw)
	}
	return &Client{opts: opts, base: base}, nil
}

func (c *Client) ProjectID() string { return c.opts.ProjectID }
func (c *Client) Dataset() string   { return c.opts.Dataset }

// APIError is a non-2xx answer from the query API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("sanity: http %d", e.StatusCode)
	}
	return fmt.Sprintf("sanity: http %d: %s", e.StatusCode, e.Message)
}

type queryResponse struct {
	Result json.RawMessage `json:"result"`
}

type errorResponse struct {
	Error struct {
		Description string `json:"description"`
		Type        string `json:"type"`
	} `json:"error"`
	Message string `json:"message"`
}

// QueryURL builds the GET url for expr. Params are JSON encoded and sent
// as $name=value, sorted by name so equal queries produce equal URLs.
func (c *Client) QueryURL(expr string, params map[string]any) (string, error) {
	q := url.Values{}
	q.Set("query", expr)
	names := make([]string, 0, len(params))
	for k := range params {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		b, err := json.Marshal(params[k])
		if err != nil {
			return "", xerrors.Wrapf(err, "encode param %s", k)
		}
		q.Set("$"+k, string(b))
	}
	q.Set("perspective", "published")

	u := *c.base
	u.Path = fmt.Sprintf("%s/v%s/data/query/%s", u.Path, c.opts.APIVersion, url.PathEscape(c.opts.Dataset))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Query runs expr and returns the raw "result" member. A null result
// (no match) comes back as the JSON literal null.
func (c *Client) Query(ctx context.Context, expr string, params map[string]any) (json.RawMessage, error) {
	target, err := c.QueryURL(expr, params)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, xerrors.Wrap(err, "build query request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.opts.HTTPClient.Do(req)
	if err != nil {
		return nil, xerrors.Wrap(err, "query content store")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, xerrors.Wrap(err, "read query response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var er errorResponse
		if json.Unmarshal(body, &er) == nil {
			apiErr.Message = er.Error.Description
			if apiErr.Message == "" {
				apiErr.Message = er.Message
			}
		}
		return nil, xerrors.WithStack(apiErr)
	}

	var out queryResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, xerrors.Wrap(err, "decode query response")
	}
	if len(out.Result) == 0 {
		return json.RawMessage("null"), nil
	}
	return out.Result, nil
}
