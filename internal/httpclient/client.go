// Package httpclient is the single point of outbound HTTP configuration for the
// defect tracker backend. Every call passes through an ordered chain of request
// hooks before it is sent and an ordered chain of response hooks after it returns.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const maxErrorBody = 64 << 10

// RequestHook runs before a request is sent. Returning an error aborts the call.
type RequestHook func(req *http.Request) error

// ResponseHook observes the outcome of a call. It receives the response (which may
// be nil) and the error so far, and returns the error the caller should see.
type ResponseHook func(resp *http.Response, err error) error

// Client talks to one backend base URL.
type Client struct {
	baseURL string
	http    *http.Client
	header  http.Header
	before  []RequestHook
	after   []ResponseHook
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets an overall per-request timeout. Zero keeps transport defaults.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithHeader adds a default header sent on every request.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.header.Set(key, value) }
}

// WithRequestHook appends a hook to the pre-request chain.
func WithRequestHook(h RequestHook) Option {
	return func(c *Client) { c.before = append(c.before, h) }
}

// WithResponseHook appends a hook to the post-response chain.
func WithResponseHook(h ResponseHook) Option {
	return func(c *Client) { c.after = append(c.after, h) }
}

// New creates a client for baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q: scheme and host required", baseURL)
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		header:  make(http.Header),
	}
	c.header.Set("Content-Type", "application/json")
	c.header.Set("Accept", "application/json")
	c.header.Set("User-Agent", "defectctl")

	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the configured backend address.
func (c *Client) BaseURL() string { return c.baseURL }

// FilePart is a single file sent as multipart/form-data.
type FilePart struct {
	Field    string
	Filename string
	Content  io.Reader
}

// Request describes one call. At most one of JSON, Form and File is used as the body.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	JSON   any
	Form   url.Values
	File   *FilePart
}

// Blob is an undecoded response body.
type Blob struct {
	Data        []byte
	ContentType string
	Filename    string
}

// Do sends r through the hook chains. On success the caller owns resp.Body.
func (c *Client) Do(ctx context.Context, r Request) (*http.Response, error) {
	resp, err := c.send(ctx, r)
	for _, hook := range c.after {
		err = hook(resp, err)
	}
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, err
	}
	return resp, nil
}

// Call sends r and decodes a JSON response into out. A nil out discards the body.
func (c *Client) Call(ctx context.Context, r Request, out any) error {
	resp, err := c.Do(ctx, r)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", r.Method, r.Path, err)
	}
	return nil
}

// Blob sends r and returns the body bytes untouched.
func (c *Client) Blob(ctx context.Context, r Request) (*Blob, error) {
	resp, err := c.Do(ctx, r)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s %s: %w", r.Method, r.Path, err)
	}
	return &Blob{
		Data:        data,
		ContentType: resp.Header.Get("Content-Type"),
		Filename:    filenameFromDisposition(resp.Header.Get("Content-Disposition")),
	}, nil
}

func (c *Client) send(ctx context.Context, r Request) (*http.Response, error) {
	target := c.baseURL + r.Path

	req, err := c.newRequest(ctx, r)
	if err != nil {
		return nil, &Error{Kind: KindRequest, Method: r.Method, URL: target, Err: err}
	}
	for _, hook := range c.before {
		if err := hook(req); err != nil {
			return nil, &Error{Kind: KindRequest, Method: r.Method, URL: req.URL.String(), Err: err}
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindNoResponse, Method: r.Method, URL: req.URL.String(), Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		return resp, &Error{
			Kind:       KindResponse,
			Method:     r.Method,
			URL:        req.URL.String(),
			StatusCode: resp.StatusCode,
			Body:       body,
			Header:     resp.Header.Clone(),
		}
	}
	return resp, nil
}

func (c *Client) newRequest(ctx context.Context, r Request) (*http.Request, error) {
	if r.Method == "" {
		return nil, errors.New("method required")
	}
	u, err := url.Parse(c.baseURL + r.Path)
	if err != nil {
		return nil, fmt.Errorf("build url: %w", err)
	}
	if len(r.Query) > 0 {
		u.RawQuery = r.Query.Encode()
	}

	body, contentType, err := encodeBody(r)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, u.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header = c.header.Clone()
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}

func encodeBody(r Request) (io.Reader, string, error) {
	switch {
	case r.File != nil:
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		field := r.File.Field
		if field == "" {
			field = "file"
		}
		part, err := w.CreateFormFile(field, r.File.Filename)
		if err != nil {
			return nil, "", fmt.Errorf("create form file: %w", err)
		}
		if _, err := io.Copy(part, r.File.Content); err != nil {
			return nil, "", fmt.Errorf("copy %s: %w", r.File.Filename, err)
		}
		if err := w.Close(); err != nil {
			return nil, "", fmt.Errorf("close multipart body: %w", err)
		}
		return &buf, w.FormDataContentType(), nil

	case r.Form != nil:
		return strings.NewReader(r.Form.Encode()), "application/x-www-form-urlencoded", nil

	case r.JSON != nil:
		data, err := json.Marshal(r.JSON)
		if err != nil {
			return nil, "", fmt.Errorf("encode json body: %w", err)
		}
		return bytes.NewReader(data), "", nil
	}
	return nil, "", nil
}

func filenameFromDisposition(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return params["filename"]
}
