// Package httpclient provides the JSON request layer used by every remote
// call in the kit. It resolves paths against a configured base URL,
// serializes bodies, and turns non-2xx responses into typed errors.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nadav-galili/starter/internal/apperr"
)

const maxResponseBytes = 8 << 20

// Client performs HTTP requests against a single base URL.
type Client struct {
	httpClient *http.Client
	baseURL    string
	header     http.Header
	log        zerolog.Logger
}

// Config configures a Client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	Header     http.Header
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// New creates a Client. A zero Timeout defaults to 30s.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	header := http.Header{}
	for k, vs := range cfg.Header {
		for _, v := range vs {
			header.Add(k, v)
		}
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		header:     header,
		log:        cfg.Logger,
	}
}

// queryParam keeps insertion order; url.Values would sort keys.
type queryParam struct {
	key   string
	value any
}

type requestOptions struct {
	query  []queryParam
	body   any
	header http.Header
}

// Option customizes a single request.
type Option func(*requestOptions)

// WithQuery appends a query parameter. Parameters are emitted in insertion
// order; a nil value is omitted entirely.
func WithQuery(key string, value any) Option {
	return func(o *requestOptions) {
		o.query = append(o.query, queryParam{key: key, value: value})
	}
}

// WithBody attaches a JSON body. Its presence implies a JSON content type.
func WithBody(body any) Option {
	return func(o *requestOptions) { o.body = body }
}

// WithHeader sets a header for this request only.
func WithHeader(key, value string) Option {
	return func(o *requestOptions) {
		if o.header == nil {
			o.header = http.Header{}
		}
		o.header.Set(key, value)
	}
}

// Response is a parsed HTTP response. Exactly one of JSON or Text is set;
// an empty text body leaves both zero.
type Response struct {
	Status int
	Header http.Header
	JSON   []byte
	Text   string
}

// Decode unmarshals a JSON response body into target.
func (r *Response) Decode(target any) error {
	if r.JSON == nil {
		return fmt.Errorf("response is not JSON")
	}
	if err := json.Unmarshal(r.JSON, target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// resolveURL joins path with the base URL. Absolute URLs bypass the base.
func (c *Client) resolveURL(path string, query []queryParam) (string, error) {
	full := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		if c.baseURL == "" {
			return "", fmt.Errorf("relative path %q with no base URL configured", path)
		}
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		full = c.baseURL + path
	}

	if len(query) == 0 {
		return full, nil
	}

	var sb strings.Builder
	for _, p := range query {
		if p.value == nil {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(p.key))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(fmt.Sprintf("%v", p.value)))
	}
	if sb.Len() == 0 {
		return full, nil
	}
	sep := "?"
	if strings.Contains(full, "?") {
		sep = "&"
	}
	return full + sep + sb.String(), nil
}

// Do executes a request and parses the response. Any non-2xx status yields
// an *apperr.HTTPError carrying status and body; transport failures yield
// an *apperr.NetworkError unless the context was cancelled.
func (c *Client) Do(ctx context.Context, method, path string, opts ...Option) (*Response, error) {
	var ro requestOptions
	for _, opt := range opts {
		opt(&ro)
	}

	fullURL, err := c.resolveURL(path, ro.query)
	if err != nil {
		return nil, err
	}

	var bodyReader io.Reader
	if ro.body != nil {
		data, err := json.Marshal(ro.body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	for k, vs := range c.header {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}
	for k, vs := range ro.header {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}
	if ro.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if apperr.IsCancelled(err) || ctx.Err() != nil {
			return nil, context.Canceled
		}
		return nil, &apperr.NetworkError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if apperr.IsCancelled(err) || ctx.Err() != nil {
			return nil, context.Canceled
		}
		return nil, &apperr.NetworkError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Debug().
			Str("method", method).
			Str("url", fullURL).
			Int("status", resp.StatusCode).
			Msg("request failed")
		return nil, apperr.NewHTTPError(resp.StatusCode, raw)
	}

	out := &Response{Status: resp.StatusCode, Header: resp.Header}
	if strings.Contains(resp.Header.Get("Content-Type"), "json") {
		out.JSON = raw
	} else if text := strings.TrimSpace(string(raw)); text != "" {
		out.Text = text
	}
	return out, nil
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, opts ...Option) (*Response, error) {
	return c.Do(ctx, http.MethodGet, path, opts...)
}

// Post performs a POST request.
func (c *Client) Post(ctx context.Context, path string, opts ...Option) (*Response, error) {
	return c.Do(ctx, http.MethodPost, path, opts...)
}

// Put performs a PUT request.
func (c *Client) Put(ctx context.Context, path string, opts ...Option) (*Response, error) {
	return c.Do(ctx, http.MethodPut, path, opts...)
}

// Patch performs a PATCH request.
func (c *Client) Patch(ctx context.Context, path string, opts ...Option) (*Response, error) {
	return c.Do(ctx, http.MethodPatch, path, opts...)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, opts ...Option) (*Response, error) {
	return c.Do(ctx, http.MethodDelete, path, opts...)
}
