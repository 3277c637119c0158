package httpclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies how a call failed.
type Kind int

const (
	// KindRequest: the request could not be built or was rejected by a request hook.
	KindRequest Kind = iota
	// KindNoResponse: the request was sent but nothing came back.
	KindNoResponse
	// KindResponse: the server answered with a non-2xx status.
	KindResponse
)

func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindNoResponse:
		return "no-response"
	case KindResponse:
		return "response"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is returned for every failed call made through Client.
type Error struct {
	Kind       Kind
	Method     string
	URL        string
	StatusCode int
	Body       []byte
	Header     http.Header
	Err        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindResponse:
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.StatusCode, e.Message())
	case KindNoResponse:
		return fmt.Sprintf("%s %s: no response: %v", e.Method, e.URL, e.Err)
	default:
		return fmt.Sprintf("%s %s: request not sent: %v", e.Method, e.URL, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Message returns a human readable reason. For server errors it prefers the
// backend's "detail" field over the raw body.
func (e *Error) Message() string {
	if e.Kind != KindResponse {
		if e.Err != nil {
			return e.Err.Error()
		}
		return e.Kind.String()
	}

	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(e.Body, &payload); err == nil && len(payload.Detail) > 0 {
		var text string
		if err := json.Unmarshal(payload.Detail, &text); err == nil {
			return text
		}
		// validation errors come back as a list of {loc, msg, type}
		var items []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(payload.Detail, &items); err == nil && len(items) > 0 {
			msgs := make([]string, 0, len(items))
			for _, item := range items {
				msgs = append(msgs, item.Msg)
			}
			return strings.Join(msgs, "; ")
		}
	}

	if body := strings.TrimSpace(string(e.Body)); body != "" {
		return body
	}
	return http.StatusText(e.StatusCode)
}

// StatusCode returns the HTTP status carried by err, or 0 when the server never answered.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindResponse {
		return e.StatusCode
	}
	return 0
}

// IsStatus reports whether err is a server response with one of the given codes.
func IsStatus(err error, codes ...int) bool {
	status := StatusCode(err)
	if status == 0 {
		return false
	}
	for _, code := range codes {
		if status == code {
			return true
		}
	}
	return false
}

// IsUnauthorized reports whether the server rejected the bearer token.
func IsUnauthorized(err error) bool {
	return IsStatus(err, http.StatusUnauthorized)
}

// Describe turns any error into something a view can print.
func Describe(err error) string {
	var e *Error
	if errors.As(err, &e) {
		switch e.Kind {
		case KindResponse:
			return fmt.Sprintf("%s (HTTP %d)", e.Message(), e.StatusCode)
		case KindNoResponse:
			return "backend unreachable: " + e.Message()
		default:
			return "could not send request: " + e.Message()
		}
	}
	return err.Error()
}
