package rest

import (
	"context"

	"github.com/kbukum/restkit/httpclient"
)

// RequestContext is the per-call snapshot handed to interceptors,
// injectors and handlers. It is created when a call starts and never
// shared with another call.
type RequestContext struct {
	ctx          context.Context
	iface        *InterfaceConfig
	method       *MethodConfig
	args         []any
	invocationID string
}

func newRequestContext(ctx context.Context, ic *InterfaceConfig, mc *MethodConfig, args []any, id string) *RequestContext {
	return &RequestContext{
		ctx:          ctx,
		iface:        ic,
		method:       mc,
		args:         append([]any(nil), args...),
		invocationID: id,
	}
}

// Context returns the context of the call.
func (rc *RequestContext) Context() context.Context { return rc.ctx }

// Interface returns the resolved interface configuration.
func (rc *RequestContext) Interface() *InterfaceConfig { return rc.iface }

// Method returns the resolved method configuration.
func (rc *RequestContext) Method() *MethodConfig { return rc.method }

// InvocationID identifies the call in logs and traces.
func (rc *RequestContext) InvocationID() string { return rc.invocationID }

// ArgCount returns the number of call arguments.
func (rc *RequestContext) ArgCount() int { return len(rc.args) }

// Arg returns argument i, or nil when out of range.
func (rc *RequestContext) Arg(i int) any {
	if i < 0 || i >= len(rc.args) {
		return nil
	}
	return rc.args[i]
}

// Param binds the context to parameter i.
func (rc *RequestContext) Param(i int) ParamContext {
	return ParamContext{RequestContext: rc, index: i}
}

// ParamContext binds a RequestContext to one parameter.
type ParamContext struct {
	*RequestContext
	index int
}

// Index returns the parameter position.
func (pc ParamContext) Index() int { return pc.index }

// Config returns the resolved parameter configuration.
func (pc ParamContext) Config() *ParamConfig { return pc.method.Param(pc.index) }

// Value returns the runtime argument of the parameter.
func (pc ParamContext) Value() any { return pc.Arg(pc.index) }

// ResponseContext pairs a call with the outcome of one attempt. Response is
// nil when the transport failed before a response was obtained.
type ResponseContext struct {
	*RequestContext
	response *httpclient.Response
	err      error
	attempt  int
}

// Response returns the response of the attempt, or nil.
func (r *ResponseContext) Response() *httpclient.Response { return r.response }

// Err returns the error that terminated the attempt, or nil.
func (r *ResponseContext) Err() error { return r.err }

// Attempt returns the 1-based attempt number.
func (r *ResponseContext) Attempt() int { return r.attempt }

// Status returns the response status, or 0 without response.
func (r *ResponseContext) Status() int {
	if r.response == nil {
		return 0
	}
	return r.response.StatusCode
}
