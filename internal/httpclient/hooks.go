package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// TokenSource yields the bearer token to attach, or "" when there is none.
type TokenSource interface {
	Token() (string, error)
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func() (string, error)

func (f TokenFunc) Token() (string, error) { return f() }

type tokenKey struct{}

// WithToken pins the bearer token for calls made with ctx, taking precedence over
// the client's TokenSource. An empty token suppresses the header.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func tokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenKey{}).(string)
	return token, ok
}

// BearerToken attaches "Authorization: Bearer <token>" whenever a token is available.
func BearerToken(src TokenSource) RequestHook {
	return func(req *http.Request) error {
		token, ok := tokenFromContext(req.Context())
		if !ok && src != nil {
			stored, err := src.Token()
			if err != nil {
				return fmt.Errorf("read token: %w", err)
			}
			token = stored
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		return nil
	}
}

// RequestID tags each request with a fresh X-Request-ID.
func RequestID() RequestHook {
	return func(req *http.Request) error {
		if req.Header.Get("X-Request-ID") == "" {
			req.Header.Set("X-Request-ID", uuid.NewString())
		}
		return nil
	}
}

// LogFailures logs every failed call by kind and passes the error through unchanged.
func LogFailures(logger *log.Logger) ResponseHook {
	return func(_ *http.Response, err error) error {
		if err == nil {
			return nil
		}
		var e *Error
		if !errors.As(err, &e) {
			logger.Error("api call failed", "err", err)
			return err
		}
		switch e.Kind {
		case KindResponse:
			logger.Error("api error response",
				"method", e.Method,
				"url", e.URL,
				"status", e.StatusCode,
				"body", string(e.Body),
				"headers", e.Header,
			)
		case KindNoResponse:
			logger.Error("api request got no response",
				"method", e.Method,
				"url", e.URL,
				"err", e.Err,
			)
		default:
			logger.Error("api request not sent",
				"method", e.Method,
				"url", e.URL,
				"err", e.Err,
			)
		}
		return err
	}
}
