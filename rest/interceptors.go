package rest

import (
	"errors"

	"github.com/google/uuid"

	"github.com/kbukum/restkit/httpclient"
)

// ErrCancel vetoes a call when returned by an interceptor hook. The call
// then ends without sending anything and Invoke returns (nil, nil).
var ErrCancel = errors.New("rest: call cancelled by interceptor")

// RequestInterceptor hooks into request building before and after the
// parameters are injected. Returning ErrCancel vetoes the call; any other
// error fails the attempt.
//
// Hooks run again on every retry of a call, so they must not depend on
// having run before.
type RequestInterceptor interface {
	BeforeInjection(b *httpclient.RequestBuilder, rc *RequestContext) error
	AfterInjection(b *httpclient.RequestBuilder, rc *RequestContext) error
}

// InterceptorFuncs adapts two optional functions to RequestInterceptor.
type InterceptorFuncs struct {
	Before func(b *httpclient.RequestBuilder, rc *RequestContext) error
	After  func(b *httpclient.RequestBuilder, rc *RequestContext) error
}

func (f InterceptorFuncs) BeforeInjection(b *httpclient.RequestBuilder, rc *RequestContext) error {
	if f.Before == nil {
		return nil
	}
	return f.Before(b, rc)
}

func (f InterceptorFuncs) AfterInjection(b *httpclient.RequestBuilder, rc *RequestContext) error {
	if f.After == nil {
		return nil
	}
	return f.After(b, rc)
}

// NoopInterceptor does nothing. It is the default at every level.
type NoopInterceptor struct{}

func (NoopInterceptor) BeforeInjection(*httpclient.RequestBuilder, *RequestContext) error { return nil }
func (NoopInterceptor) AfterInjection(*httpclient.RequestBuilder, *RequestContext) error  { return nil }

// HeaderRequestID is the header set by RequestIDInterceptor.
const HeaderRequestID = "X-Request-ID"

// RequestIDInterceptor sets a fresh UUID request id header on every
// attempt unless one was injected by a parameter.
type RequestIDInterceptor struct {
	// Header defaults to X-Request-ID.
	Header string
}

func (i RequestIDInterceptor) BeforeInjection(*httpclient.RequestBuilder, *RequestContext) error {
	return nil
}

func (i RequestIDInterceptor) AfterInjection(b *httpclient.RequestBuilder, _ *RequestContext) error {
	name := i.Header
	if name == "" {
		name = HeaderRequestID
	}
	if b.Header(name) == "" {
		b.SetHeader(name, uuid.NewString())
	}
	return nil
}

// HeaderInterceptor sets fixed headers before injection, so parameters
// may still override them.
type HeaderInterceptor map[string]string

func (h HeaderInterceptor) BeforeInjection(b *httpclient.RequestBuilder, _ *RequestContext) error {
	for k, v := range h {
		b.SetHeader(k, v)
	}
	return nil
}

func (HeaderInterceptor) AfterInjection(*httpclient.RequestBuilder, *RequestContext) error {
	return nil
}

// InterceptorChain runs interceptors as one. Before hooks run in order and
// After hooks in reverse order; the first error stops the chain.
type InterceptorChain []RequestInterceptor

func (c InterceptorChain) BeforeInjection(b *httpclient.RequestBuilder, rc *RequestContext) error {
	for _, i := range c {
		if err := i.BeforeInjection(b, rc); err != nil {
			return err
		}
	}
	return nil
}

func (c InterceptorChain) AfterInjection(b *httpclient.RequestBuilder, rc *RequestContext) error {
	for n := len(c) - 1; n >= 0; n-- {
		if err := c[n].AfterInjection(b, rc); err != nil {
			return err
		}
	}
	return nil
}
