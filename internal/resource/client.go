package resource

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const maxErrorBody = 64 << 10

// Params are the list query parameters. Zero values of Q, Page and
// PageSize mean "unset". Filter values must be scalars.
type Params struct {
	Q        string
	Page     int
	PageSize int
	Filters  map[string]any
}

// Values renders p as a query string. Filter entries holding nil or ""
// are skipped; any other value, 0 and false included, is sent as is.
func (p Params) Values() url.Values {
	values := url.Values{}
	if p.Q != "" {
		values.Set("q", p.Q)
	}
	if p.Page > 0 {
		values.Set("page", strconv.Itoa(p.Page))
	}
	if p.PageSize > 0 {
		values.Set("pageSize", strconv.Itoa(p.PageSize))
	}
	for key, value := range p.Filters {
		if key == "" {
			continue
		}
		if s, ok := formatFilter(value); ok {
			values.Set(key, s)
		}
	}
	return values
}

// Page is the list envelope returned by GET /{resource}.
type Page[T any] struct {
	Items    []T `json:"items"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

// Patch holds the fields of a partial update.
type Patch map[string]any

// RequestEditor decorates outgoing requests, e.g. with auth or tenant
// headers owned by the caller.
type RequestEditor func(r *http.Request)

type Option func(*options)

type options struct {
	httpClient *http.Client
	editors    []RequestEditor
}

func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

func WithRequestEditor(editor RequestEditor) Option {
	return func(o *options) {
		if editor != nil {
			o.editors = append(o.editors, editor)
		}
	}
}

// Client talks to one REST resource at {baseURL}/{name}.
type Client[T any] struct {
	baseURL    string
	name       string
	httpClient *http.Client
	editors    []RequestEditor
}

func New[T any](baseURL, name string, opts ...Option) *Client[T] {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	return &Client[T]{
		baseURL:    strings.TrimRight(baseURL, "/"),
		name:       strings.Trim(name, "/"),
		httpClient: o.httpClient,
		editors:    o.editors,
	}
}

func (c *Client[T]) Name() string {
	return c.name
}

func (c *Client[T]) List(ctx context.Context, params Params) (Page[T], error) {
	var page Page[T]
	if err := c.do(ctx, http.MethodGet, "/"+c.name, params.Values(), nil, &page); err != nil {
		return Page[T]{}, err
	}
	if page.Items == nil {
		page.Items = []T{}
	}
	return page, nil
}

// Fetch GETs the collection path and decodes a single T. It serves
// endpoints that answer with one document, such as a KPI summary.
func (c *Client[T]) Fetch(ctx context.Context, query url.Values) (T, error) {
	var doc T
	err := c.do(ctx, http.MethodGet, "/"+c.name, query, nil, &doc)
	return doc, err
}

func (c *Client[T]) Get(ctx context.Context, id ID) (T, error) {
	var record T
	err := c.do(ctx, http.MethodGet, c.recordPath(id), nil, nil, &record)
	return record, err
}

// Create submits record without an identifier; the server assigns it.
func (c *Client[T]) Create(ctx context.Context, record T) (T, error) {
	var created T
	err := c.do(ctx, http.MethodPost, "/"+c.name, nil, record, &created)
	return created, err
}

func (c *Client[T]) Update(ctx context.Context, id ID, patch Patch) (T, error) {
	var updated T
	err := c.do(ctx, http.MethodPatch, c.recordPath(id), nil, patch, &updated)
	return updated, err
}

func (c *Client[T]) Remove(ctx context.Context, id ID) error {
	var ack struct {
		OK *bool `json:"ok"`
	}
	if err := c.do(ctx, http.MethodDelete, c.recordPath(id), nil, nil, &ack); err != nil {
		return err
	}
	if ack.OK != nil && !*ack.OK {
		return fmt.Errorf("DELETE %s: not acknowledged", c.recordPath(id))
	}
	return nil
}

func (c *Client[T]) recordPath(id ID) string {
	return "/" + c.name + "/" + url.PathEscape(id.String())
}

func (c *Client[T]) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s %s: encode body: %w", method, path, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, edit := range c.editors {
		edit(req)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(raw)),
		}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

func formatFilter(value any) (string, bool) {
	if value == nil {
		return "", false
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return "", false
		}
		return formatFilter(rv.Elem().Interface())
	}
	// Kinds, not concrete types: a named string type holding "" is unset too.
	switch rv.Kind() {
	case reflect.String:
		if rv.Len() == 0 {
			return "", false
		}
		if v, ok := value.(fmt.Stringer); ok {
			s := v.String()
			return s, s != ""
		}
		return rv.String(), true
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), true
	}
	if v, ok := value.(fmt.Stringer); ok {
		s := v.String()
		return s, s != ""
	}
	return fmt.Sprint(value), true
}
