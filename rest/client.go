package rest

import (
	"context"
	stderrors "errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/restkit/errors"
	"github.com/kbukum/restkit/httpclient"
	"github.com/kbukum/restkit/logger"
	"github.com/kbukum/restkit/observability"
)

// Client executes the methods of one resolved interface. It is built by a
// Factory and safe for concurrent use.
type Client struct {
	id        string
	config    *InterfaceConfig
	transport httpclient.Transport
	log       *logger.Logger
	metrics   *observability.ClientMetrics
}

// Config returns the resolved configuration.
func (c *Client) Config() *InterfaceConfig { return c.config }

// String describes the client. It never reaches the transport.
func (c *Client) String() string {
	return fmt.Sprintf("rest.Client(%s)@%s", c.config.Name(), c.id)
}

// Equal reports whether other is this very client.
func (c *Client) Equal(other any) bool {
	o, ok := other.(*Client)
	return ok && o == c
}

// Hash returns a value stable for the lifetime of the client.
func (c *Client) Hash() uint64 {
	h := fnv.New64a()
	h.Write([]byte(c.id))
	return h.Sum64()
}

// Invoke calls method with args. A call vetoed by an interceptor returns
// (nil, nil). Failures are retried while the method's retry handler agrees;
// the error handler then decides the outcome.
func (c *Client) Invoke(ctx context.Context, method string, args ...any) (any, error) {
	switch method {
	case "String":
		return c.String(), nil
	case "Equal":
		if len(args) != 1 {
			return nil, errors.InvalidArgument(method, "want 1 argument")
		}
		return c.Equal(args[0]), nil
	case "Hash":
		return c.Hash(), nil
	}

	mc, ok := c.config.Method(method)
	if !ok {
		return nil, errors.UnknownMethod(c.config.Name(), method)
	}
	if len(args) != mc.ParamCount() {
		return nil, errors.InvalidArgument(method, fmt.Sprintf("want %d arguments, got %d", mc.ParamCount(), len(args)))
	}

	id := uuid.NewString()
	ctx, call := observability.StartCall(ctx, c.metrics, c.config.Name(), method, id)
	log := c.log.WithFields(logger.Fields(
		logger.FieldInterface, c.config.Name(),
		logger.FieldMethod, method,
		logger.FieldInvocationID, id,
	))

	rc := newRequestContext(ctx, c.config, mc, args, id)
	result, err := c.execute(rc, call, log)

	switch {
	case stderrors.Is(err, ErrCancel):
		call.End(ctx, observability.OutcomeCancelled, nil)
		log.Debug("call cancelled by interceptor")
		return nil, nil
	case err != nil:
		call.End(ctx, observability.OutcomeError, err)
		log.Warn("call failed", logger.ErrorFields("invoke", err), logger.DurationFields("invoke", call.Duration()))
		return nil, err
	}
	call.End(ctx, observability.OutcomeSuccess, nil)
	log.Debug("call completed", logger.DurationFields("invoke", call.Duration()))
	return result, nil
}

func (c *Client) execute(rc *RequestContext, call *observability.Call, log *logger.Logger) (any, error) {
	ctx := rc.Context()
	mc := rc.Method()

	for attempt := 1; ; attempt++ {
		resp, result, err := c.attempt(rc, call, attempt)
		if err == nil {
			return result, nil
		}
		if stderrors.Is(err, ErrCancel) {
			return nil, err
		}

		var failed *httpclient.Error
		if resp == nil && stderrors.As(err, &failed) {
			resp = failed.Response
		}
		resctx := &ResponseContext{RequestContext: rc, response: resp, err: err, attempt: attempt}

		if mc.RetryHandler().Retry(resctx, err, attempt) {
			call.Retry(ctx, attempt, err)
			log.WithError(err).Debug("retrying call", logger.Fields(logger.FieldAttempt, attempt))
			if resp != nil {
				resp.Close()
			}
			continue
		}

		out, herr := mc.ErrorHandler().Handle(resctx, err)
		if resp != nil {
			resp.Close()
		}
		if herr != nil {
			return nil, herr
		}
		if !mc.Returns().Accepts(out) {
			return nil, errors.Dispatch(mc.Name(), fmt.Sprintf("error handler returned %T, want %s", out, mc.Returns().Name))
		}
		return out, nil
	}
}

// attempt builds, sends and dispatches once. resp is returned with a
// failure that happened after a response was received.
func (c *Client) attempt(rc *RequestContext, call *observability.Call, n int) (*httpclient.Response, any, error) {
	ctx := rc.Context()
	mc := rc.Method()

	req, err := mc.buildRequest(rc)
	if err != nil {
		return nil, nil, err
	}

	call.Attempt(ctx, n)
	start := time.Now()
	resp, err := c.transport.Send(ctx, req)
	if err != nil {
		c.log.Debug("send failed", logger.Fields(
			logger.FieldHTTPMethod, req.Method(),
			logger.FieldURL, req.URL(),
			logger.FieldStatus, httpclient.StatusOf(err),
			logger.FieldDuration, time.Since(start).Milliseconds(),
		))
		return nil, nil, transportFailure(err)
	}

	result, err := dispatch(&ResponseContext{RequestContext: rc, response: resp, attempt: n})
	if err != nil {
		return resp, nil, err
	}
	return nil, result, nil
}

// transportFailure classifies a send error. AppErrors raised by
// decorating transports pass through unchanged.
func transportFailure(err error) error {
	var ae *errors.AppError
	if stderrors.As(err, &ae) {
		return err
	}
	if httpclient.IsTimeout(err) || stderrors.Is(err, context.DeadlineExceeded) {
		return errors.Timeout("send", err)
	}
	wrapped := errors.Transport(httpclient.StatusOf(err), err)
	wrapped.Retryable = httpclient.IsRetryable(err)
	return wrapped
}

// Call invokes method and converts the result to T. A cancelled call
// returns the zero T and nil.
func Call[T any](ctx context.Context, c *Client, method string, args ...any) (T, error) {
	var zero T
	res, err := c.Invoke(ctx, method, args...)
	if err != nil || res == nil {
		return zero, err
	}
	v, ok := res.(T)
	if !ok {
		return zero, errors.Dispatch(method, fmt.Sprintf("result is %T, want %T", res, zero))
	}
	return v, nil
}
