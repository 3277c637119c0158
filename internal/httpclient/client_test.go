package httpclient

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/balkashynov/defectctl/internal/logging"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNewRejectsRelativeURL(t *testing.T) {
	if _, err := New("localhost:8000"); err == nil {
		t.Fatalf("expected error for url without scheme")
	}
}

func TestBearerTokenFromSource(t *testing.T) {
	var got string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}, WithRequestHook(BearerToken(TokenFunc(func() (string, error) { return "stored-token", nil }))))

	if err := c.Call(context.Background(), Request{Method: http.MethodGet, Path: "/projects/"}, nil); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got != "Bearer stored-token" {
		t.Fatalf("expected stored bearer token, got %q", got)
	}
}

func TestBearerTokenContextOverride(t *testing.T) {
	var got string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
	}, WithRequestHook(BearerToken(TokenFunc(func() (string, error) { return "stored-token", nil }))))

	ctx := WithToken(context.Background(), "fresh-token")
	if err := c.Call(ctx, Request{Method: http.MethodGet, Path: "/users/me/"}, nil); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if got != "Bearer fresh-token" {
		t.Fatalf("expected context token, got %q", got)
	}
}

func TestNoTokenNoHeader(t *testing.T) {
	var got []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Values("Authorization")
	}, WithRequestHook(BearerToken(TokenFunc(func() (string, error) { return "", nil }))))

	if err := c.Call(context.Background(), Request{Method: http.MethodGet, Path: "/"}, nil); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no Authorization header, got %v", got)
	}
}

func TestTokenSourceFailureIsRequestError(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	}, WithRequestHook(BearerToken(TokenFunc(func() (string, error) { return "", errors.New("storage locked") }))))

	err := c.Call(context.Background(), Request{Method: http.MethodGet, Path: "/"}, nil)
	var e *Error
	if !errors.As(err, &e) || e.Kind != KindRequest {
		t.Fatalf("expected KindRequest error, got %v", err)
	}
	if called {
		t.Fatalf("request should not have been sent")
	}
}

func TestDefaultHeadersAndRequestID(t *testing.T) {
	var ids []string
	var contentType string
	var mu sync.Mutex
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		ids = append(ids, r.Header.Get("X-Request-ID"))
		contentType = r.Header.Get("Content-Type")
	}, WithRequestHook(RequestID()))

	for i := 0; i < 2; i++ {
		if err := c.Call(context.Background(), Request{Method: http.MethodPost, Path: "/x", JSON: map[string]int{"a": 1}}, nil); err != nil {
			t.Fatalf("Call: %v", err)
		}
	}
	if contentType != "application/json" {
		t.Fatalf("expected json content type, got %q", contentType)
	}
	if ids[0] == "" || ids[0] == ids[1] {
		t.Fatalf("expected distinct request ids, got %v", ids)
	}
}

func TestHooksRunInOrder(t *testing.T) {
	var order []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "server")
	},
		WithRequestHook(func(*http.Request) error { order = append(order, "before-1"); return nil }),
		WithRequestHook(func(*http.Request) error { order = append(order, "before-2"); return nil }),
		WithResponseHook(func(_ *http.Response, err error) error { order = append(order, "after-1"); return err }),
		WithResponseHook(func(_ *http.Response, err error) error { order = append(order, "after-2"); return err }),
	)

	if err := c.Call(context.Background(), Request{Method: http.MethodGet, Path: "/"}, nil); err != nil {
		t.Fatalf("Call: %v", err)
	}
	want := "before-1,before-2,server,after-1,after-2"
	if got := strings.Join(order, ","); got != want {
		t.Fatalf("hook order %q, want %q", got, want)
	}
}

func TestServerErrorIsLoggedAndReturned(t *testing.T) {
	var logs bytes.Buffer
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"detail":"Email already registered"}`))
	}, WithResponseHook(LogFailures(logging.New(&logs, "error"))))

	err := c.Call(context.Background(), Request{Method: http.MethodPost, Path: "/register/", JSON: map[string]string{}}, nil)
	var e *Error
	if !errors.As(err, &e) || e.Kind != KindResponse {
		t.Fatalf("expected KindResponse, got %v", err)
	}
	if e.StatusCode != http.StatusBadRequest || e.Message() != "Email already registered" {
		t.Fatalf("unexpected error %+v (%s)", e, e.Message())
	}
	if !IsStatus(err, http.StatusBadRequest) || IsUnauthorized(err) {
		t.Fatalf("status helpers disagree with %v", err)
	}
	out := logs.String()
	if !strings.Contains(out, "api error response") || !strings.Contains(out, "status=400") || !strings.Contains(out, "Email already registered") {
		t.Fatalf("expected logged status and body, got %q", out)
	}
}

func TestNoResponseIsLogged(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	addr := srv.URL
	srv.Close()

	var logs bytes.Buffer
	c, err := New(addr, WithResponseHook(LogFailures(logging.New(&logs, "error"))))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	err = c.Call(context.Background(), Request{Method: http.MethodGet, Path: "/projects/"}, nil)
	var e *Error
	if !errors.As(err, &e) || e.Kind != KindNoResponse {
		t.Fatalf("expected KindNoResponse, got %v", err)
	}
	if StatusCode(err) != 0 {
		t.Fatalf("no-response errors carry no status")
	}
	if !strings.Contains(logs.String(), "api request got no response") {
		t.Fatalf("expected no-response log, got %q", logs.String())
	}
}

func TestConstructionFailureIsLogged(t *testing.T) {
	var logs bytes.Buffer
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("request should not reach the server")
	}, WithResponseHook(LogFailures(logging.New(&logs, "error"))))

	err := c.Call(context.Background(), Request{Method: http.MethodPost, Path: "/defects/", JSON: make(chan int)}, nil)
	var e *Error
	if !errors.As(err, &e) || e.Kind != KindRequest {
		t.Fatalf("expected KindRequest, got %v", err)
	}
	if !strings.Contains(logs.String(), "api request not sent") {
		t.Fatalf("expected construction log, got %q", logs.String())
	}
}

func TestCanceledContextUnwraps(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Call(ctx, Request{Method: http.MethodGet, Path: "/"}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled in chain, got %v", err)
	}
}

func TestFormBody(t *testing.T) {
	var form url.Values
	var contentType string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		r.ParseForm()
		form = r.PostForm
		w.Write([]byte(`{"access_token":"abc","token_type":"bearer"}`))
	})

	var out struct {
		AccessToken string `json:"access_token"`
	}
	req := Request{Method: http.MethodPost, Path: "/token", Form: url.Values{"username": {"ann"}, "password": {"pw"}}}
	if err := c.Call(context.Background(), req, &out); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if contentType != "application/x-www-form-urlencoded" {
		t.Fatalf("unexpected content type %q", contentType)
	}
	if form.Get("username") != "ann" || form.Get("password") != "pw" || out.AccessToken != "abc" {
		t.Fatalf("unexpected form %v / token %q", form, out.AccessToken)
	}
}

func TestMultipartBody(t *testing.T) {
	var filename, content string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		filename, content = header.Filename, string(data)
	})

	req := Request{Method: http.MethodPost, Path: "/defects/1/attachments/", File: &FilePart{Filename: "log.txt", Content: strings.NewReader("stack trace")}}
	if err := c.Call(context.Background(), req, nil); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if filename != "log.txt" || content != "stack trace" {
		t.Fatalf("got %q / %q", filename, content)
	}
}

func TestBlobKeepsBinaryBody(t *testing.T) {
	payload := []byte{0xff, 0xfe, 0x00, 0x80, 'i', 'd'}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("format") != "csv" {
			t.Errorf("missing format query: %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="defects_report.csv"`)
		w.Write(payload)
	})

	blob, err := c.Blob(context.Background(), Request{Method: http.MethodGet, Path: "/reports/defects/export", Query: url.Values{"format": {"csv"}}})
	if err != nil {
		t.Fatalf("Blob: %v", err)
	}
	if !bytes.Equal(blob.Data, payload) {
		t.Fatalf("payload altered: %v", blob.Data)
	}
	if blob.Filename != "defects_report.csv" || blob.ContentType != "text/csv" {
		t.Fatalf("unexpected blob metadata %+v", blob)
	}
}

func TestDescribe(t *testing.T) {
	err := &Error{Kind: KindResponse, StatusCode: 422, Body: []byte(`{"detail":[{"msg":"field required"},{"msg":"bad email"}]}`)}
	if got := Describe(err); got != "field required; bad email (HTTP 422)" {
		t.Fatalf("unexpected description %q", got)
	}
	if got := Describe(errors.New("plain")); got != "plain" {
		t.Fatalf("unexpected description %q", got)
	}
}
