package httpclient

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrorCode classifies a failed exchange.
type ErrorCode int

const (
	ErrCodeTimeout ErrorCode = iota
	ErrCodeConnection
	ErrCodeAuth
	ErrCodeNotFound
	ErrCodeRateLimit
	ErrCodeValidation
	ErrCodeServer
	// ErrCodeUnavailable marks a call rejected locally by the rate
	// limiter, circuit breaker or bulkhead. Nothing was sent.
	ErrCodeUnavailable
	// ErrCodeEntity marks a request body that could not be written.
	ErrCodeEntity
)

type codeInfo struct {
	name      string
	retryable bool
}

var codeTable = map[ErrorCode]codeInfo{
	ErrCodeTimeout:     {"timeout", true},
	ErrCodeConnection:  {"connection", true},
	ErrCodeAuth:        {"auth", false},
	ErrCodeNotFound:    {"not_found", false},
	ErrCodeRateLimit:   {"rate_limit", true},
	ErrCodeValidation:  {"validation", false},
	ErrCodeServer:      {"server", true},
	ErrCodeUnavailable: {"unavailable", true},
	ErrCodeEntity:      {"entity", false},
}

func (c ErrorCode) String() string {
	if info, ok := codeTable[c]; ok {
		return info.name
	}
	return "unknown"
}

// Error is returned by Adapter.Send for every failed exchange. For status
// failures Response holds a buffered copy of what the server sent, so
// error handlers can still inspect it.
type Error struct {
	StatusCode int
	Code       ErrorCode
	Message    string
	Retryable  bool
	Body       []byte
	Err        error
	Response   *Response
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("httpclient: %s (HTTP %d): %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("httpclient: %s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func wrap(code ErrorCode, err error) *Error {
	return &Error{Code: code, Message: err.Error(), Retryable: codeTable[code].retryable, Err: err}
}

// NewTimeoutError reports a socket or connect timeout.
func NewTimeoutError(err error) *Error { return wrap(ErrCodeTimeout, err) }

// NewConnectionError reports a transport failure before any response.
func NewConnectionError(err error) *Error { return wrap(ErrCodeConnection, err) }

// NewUnavailableError reports a local rejection.
func NewUnavailableError(err error) *Error { return wrap(ErrCodeUnavailable, err) }

// NewEntityError reports a body that failed to serialize or stream.
func NewEntityError(err error) *Error { return wrap(ErrCodeEntity, err) }

// NewValidationError reports a request that could not be built.
func NewValidationError(msg string) *Error {
	return &Error{Code: ErrCodeValidation, Message: msg}
}

// ClassifyStatusCode maps a status to an error; 2xx yields nil.
func ClassifyStatusCode(status int, body []byte) *Error {
	var code ErrorCode
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		code = ErrCodeAuth
	case status == http.StatusNotFound:
		code = ErrCodeNotFound
	case status == http.StatusTooManyRequests:
		code = ErrCodeRateLimit
	case status >= 400 && status < 500:
		code = ErrCodeValidation
	default:
		code = ErrCodeServer
	}
	return &Error{
		StatusCode: status,
		Code:       code,
		Message:    fmt.Sprintf("HTTP %d", status),
		// 1xx and 3xx surfaced as errors are never worth repeating.
		Retryable: codeTable[code].retryable && status >= 400,
		Body:      body,
	}
}

// NewStatusError classifies a non-2xx response. The body is read and the
// original response closed; the error carries a buffered replacement.
func NewStatusError(resp *Response) *Error {
	body, readErr := resp.Bytes()
	e := ClassifyStatusCode(resp.StatusCode, body)
	if e == nil {
		return nil
	}
	e.Response = NewResponse(resp.StatusCode, resp.Header, io.NopCloser(bytes.NewReader(body)))
	e.Err = readErr
	return e
}

// HasCode reports whether err wraps an *Error with the given code.
func HasCode(err error, code ErrorCode) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// IsTimeout reports whether err is a timeout.
func IsTimeout(err error) bool { return HasCode(err, ErrCodeTimeout) }

// IsRetryable reports whether repeating the exchange may succeed.
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}
