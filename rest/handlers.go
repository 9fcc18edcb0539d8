package rest

import (
	stderrors "errors"
	"fmt"
	"reflect"

	"github.com/kbukum/restkit/errors"
	"github.com/kbukum/restkit/httpclient"
	"github.com/kbukum/restkit/resilience"
	"github.com/kbukum/restkit/serializer"
)

// ResponseHandler converts a successful response into the declared return
// value. It owns the response and must close it.
type ResponseHandler interface {
	Handle(rc *ResponseContext) (any, error)
}

// ResponseHandlerFunc adapts a function to ResponseHandler.
type ResponseHandlerFunc func(rc *ResponseContext) (any, error)

func (f ResponseHandlerFunc) Handle(rc *ResponseContext) (any, error) { return f(rc) }

// ErrorHandler produces the outcome of a call once retries are exhausted.
type ErrorHandler interface {
	Handle(rc *ResponseContext, err error) (any, error)
}

// ErrorHandlerFunc adapts a function to ErrorHandler.
type ErrorHandlerFunc func(rc *ResponseContext, err error) (any, error)

func (f ErrorHandlerFunc) Handle(rc *ResponseContext, err error) (any, error) { return f(rc, err) }

// RetryHandler decides whether a failed attempt is sent again. attempt is
// the 1-based number of the attempt that failed. Any wait between
// attempts happens inside Retry.
type RetryHandler interface {
	Retry(rc *ResponseContext, err error, attempt int) bool
}

// RetryHandlerFunc adapts a function to RetryHandler.
type RetryHandlerFunc func(rc *ResponseContext, err error, attempt int) bool

func (f RetryHandlerFunc) Retry(rc *ResponseContext, err error, attempt int) bool {
	return f(rc, err, attempt)
}

var defaultDeserializers = serializer.DefaultRegistry()

// DefaultResponseHandler decodes the body with the deserializer registered
// for the response Content-Type, falling back to the method's Produces
// media type, and closes the response.
type DefaultResponseHandler struct {
	// Deserializers defaults to serializer.DefaultRegistry.
	Deserializers *serializer.Registry
}

func (h DefaultResponseHandler) Handle(rc *ResponseContext) (any, error) {
	resp := rc.Response()
	defer resp.Close()

	rt := rc.Method().Returns()
	if rt.New == nil {
		return nil, fmt.Errorf("return type %s has no constructor", rt.Name)
	}
	reg := h.Deserializers
	if reg == nil {
		reg = defaultDeserializers
	}

	contentType := resp.ContentType()
	d, ok := reg.Lookup(contentType)
	if !ok || contentType == "" {
		if produces := rc.Method().Produces(); produces != "" {
			if pd, pok := reg.Lookup(produces); pok {
				d, ok, contentType = pd, true, produces
			}
		}
	}
	if !ok {
		return nil, fmt.Errorf("no deserializer for content type %q", resp.ContentType())
	}

	target := rt.New()
	if err := d.Deserialize(contentType, resp.Charset(serializer.DefaultCharset), resp.Stream(), target); err != nil {
		return nil, err
	}
	return reflect.ValueOf(target).Elem().Interface(), nil
}

// RethrowErrorHandler returns the failure unchanged. It is the default
// error handler.
type RethrowErrorHandler struct{}

func (RethrowErrorHandler) Handle(_ *ResponseContext, err error) (any, error) { return nil, err }

// FallbackErrorHandler turns every failure into the result v.
func FallbackErrorHandler(v any) ErrorHandler {
	return ErrorHandlerFunc(func(*ResponseContext, error) (any, error) { return v, nil })
}

// NoRetry never retries. It is the default retry handler.
type NoRetry struct{}

func (NoRetry) Retry(*ResponseContext, error, int) bool { return false }

// MaxRetries retries any failure k times, without waiting.
func MaxRetries(k int) RetryHandler {
	return RetryHandlerFunc(func(_ *ResponseContext, _ error, attempt int) bool {
		return attempt <= k
	})
}

// BackoffRetry retries retryable failures with exponential backoff until
// cfg.MaxAttempts attempts were made. cfg.RetryIf, when set, narrows the
// retryable failures further. The wait honours the call context.
func BackoffRetry(cfg resilience.RetryConfig) RetryHandler {
	retryIf := cfg.RetryIf
	cfg.ApplyDefaults()
	return RetryHandlerFunc(func(rc *ResponseContext, err error, attempt int) bool {
		if attempt >= cfg.MaxAttempts || rc.Context().Err() != nil || !IsRetryable(err) {
			return false
		}
		if retryIf != nil && !retryIf(err) {
			return false
		}
		d := resilience.Backoff(attempt, cfg)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, d)
		}
		return resilience.Sleep(rc.Context(), d) == nil
	})
}

// IsRetryable reports whether a call failure may succeed when sent again.
// The outermost AppError decides; otherwise the transport classification.
func IsRetryable(err error) bool {
	var ae *errors.AppError
	if stderrors.As(err, &ae) {
		return ae.Retryable
	}
	return httpclient.IsRetryable(err)
}
