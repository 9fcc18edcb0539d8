package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/http2"

	"github.com/kbukum/restkit/logger"
	"github.com/kbukum/restkit/observability"
	"github.com/kbukum/restkit/resilience"
	"github.com/kbukum/restkit/version"
)

type connectTimeoutKey struct{}

// Adapter is the net/http Transport. It applies per-request connection and
// socket timeouts, TLS, HTTP/2 and the configured resilience guards.
type Adapter struct {
	httpClient *http.Client
	config     Config
	dialer     *net.Dialer
	cb         *resilience.CircuitBreaker
	rl         *resilience.RateLimiter
	bh         *resilience.Bulkhead
	log        *logger.Logger
}

var _ Transport = (*Adapter)(nil)

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger sets the adapter logger.
func WithLogger(l *logger.Logger) Option {
	return func(a *Adapter) {
		a.log = l.WithComponent("restkit.httpclient")
	}
}

// WithRoundTripper replaces the HTTP transport, e.g. for tests.
func WithRoundTripper(rt http.RoundTripper) Option {
	return func(a *Adapter) {
		a.httpClient.Transport = rt
	}
}

// New creates a new HTTP adapter with the given configuration.
func New(cfg Config, opts ...Option) (*Adapter, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &Adapter{
		config: cfg,
		dialer: &net.Dialer{Timeout: cfg.DialTimeout, KeepAlive: defaultKeepAlive},
		log:    logger.Nop(),
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           a.dialContext,
		MaxIdleConns:          cfg.MaxIdleConns,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}

	tlsCfg, err := cfg.TLS.Build()
	if err != nil {
		return nil, err
	}
	transport.TLSClientConfig = tlsCfg

	// a custom dialer disables net/http's implicit HTTP/2 upgrade
	if !cfg.DisableHTTP2 {
		t2, err := http2.ConfigureTransports(transport)
		if err != nil {
			return nil, fmt.Errorf("httpclient: configure http2: %w", err)
		}
		t2.ReadIdleTimeout = cfg.HTTP2ReadIdleTimeout
	}

	a.httpClient = &http.Client{Transport: transport}

	if cfg.CircuitBreaker != nil {
		cbCfg := *cfg.CircuitBreaker
		if cbCfg.IsFailure == nil {
			cbCfg.IsFailure = IsBreakerFailure
		}
		a.cb = resilience.NewCircuitBreaker(cbCfg)
	}
	if cfg.RateLimiter != nil {
		a.rl = resilience.NewRateLimiter(*cfg.RateLimiter)
	}
	if cfg.Bulkhead != nil {
		a.bh = resilience.NewBulkhead(*cfg.Bulkhead)
	}

	for _, opt := range opts {
		opt(a)
	}

	return a, nil
}

// Send executes req. Non-2xx responses are returned as *Error with the
// buffered response; 2xx responses are returned open and must be closed.
// A bulkhead slot stays held until the response is closed.
func (a *Adapter) Send(ctx context.Context, req *Request) (*Response, error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanSend, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrHTTPMethod, req.Method())
	observability.SetSpanAttribute(ctx, observability.AttrURL, req.URL())

	resp, err := a.send(ctx, req)
	if status := StatusOf(err); status > 0 {
		observability.SetSpanAttribute(ctx, observability.AttrHTTPStatus, status)
	} else if resp != nil {
		observability.SetSpanAttribute(ctx, observability.AttrHTTPStatus, resp.StatusCode)
	}
	if err != nil {
		observability.SetSpanError(ctx, err)
	}
	return resp, err
}

func (a *Adapter) send(ctx context.Context, req *Request) (*Response, error) {
	if a.rl != nil {
		if err := a.rl.Wait(ctx); err != nil {
			return nil, NewUnavailableError(err)
		}
	}

	var done func(error)
	if a.cb != nil {
		var err error
		if done, err = a.cb.Allow(); err != nil {
			return nil, NewUnavailableError(err)
		}
	}

	release := func() {}
	if a.bh != nil {
		r, err := a.bh.Acquire(ctx)
		if err != nil {
			if done != nil {
				done(nil)
			}
			return nil, NewUnavailableError(err)
		}
		release = r
	}

	resp, err := a.exchange(ctx, req, release)
	if done != nil {
		done(err)
	}
	return resp, err
}

// exchange performs one HTTP round trip. release runs once the response
// body is closed or the exchange failed.
func (a *Adapter) exchange(parent context.Context, req *Request, release func()) (*Response, error) {
	start := time.Now()
	ctx, cancel := context.WithCancel(parent)
	if ct := req.ConnectionTimeout(); ct > 0 {
		ctx = context.WithValue(ctx, connectTimeoutKey{}, ct)
	}

	socketTimeout := req.SocketTimeout()
	if socketTimeout <= 0 {
		socketTimeout = a.config.Timeout
	}
	var timer *time.Timer
	if socketTimeout > 0 {
		timer = time.AfterFunc(socketTimeout, cancel)
	}

	httpReq, err := a.newHTTPRequest(ctx, req)
	if err != nil {
		stopTimer(timer)
		cancel()
		release()
		return nil, err
	}

	resp, err := a.httpClient.Do(httpReq)
	timedOut := timer != nil && !timer.Stop()
	if err != nil {
		cancel()
		release()
		a.log.Debug("exchange failed", logger.Fields(
			logger.FieldHTTPMethod, req.Method(), logger.FieldURL, req.URL(),
			logger.FieldError, err.Error(), logger.FieldDuration, time.Since(start).Milliseconds()))
		if timedOut || parent.Err() != nil || isNetTimeout(err) {
			return nil, NewTimeoutError(err)
		}
		return nil, NewConnectionError(err)
	}

	out := NewResponse(resp.StatusCode, resp.Header, &releaseOnClose{ReadCloser: resp.Body, cancel: cancel, release: release})
	a.log.Debug("exchange", logger.Fields(
		logger.FieldHTTPMethod, req.Method(), logger.FieldURL, req.URL(),
		logger.FieldStatus, resp.StatusCode, logger.FieldDuration, time.Since(start).Milliseconds()))

	if !out.IsSuccess() {
		return nil, NewStatusError(out)
	}
	return out, nil
}

func (a *Adapter) newHTTPRequest(ctx context.Context, req *Request) (*http.Request, error) {
	var body io.Reader
	if e := req.Entity(); e != nil {
		var buf bytes.Buffer
		if _, err := e.WriteTo(&buf); err != nil {
			return nil, NewEntityError(err)
		}
		body = bytes.NewReader(buf.Bytes())
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method(), req.URL(), body)
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("create request: %v", err))
	}

	for k, v := range a.config.Headers {
		httpReq.Header.Set(k, v)
	}
	for k, vs := range req.Header() {
		httpReq.Header[k] = vs
	}
	if httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", version.UserAgent())
	}
	return httpReq, nil
}

func (a *Adapter) dialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	if d, ok := ctx.Value(connectTimeoutKey{}).(time.Duration); ok && d > 0 {
		dialer := &net.Dialer{Timeout: d, KeepAlive: a.dialer.KeepAlive}
		return dialer.DialContext(ctx, network, addr)
	}
	return a.dialer.DialContext(ctx, network, addr)
}

// Unwrap returns the underlying *http.Client for advanced use cases.
func (a *Adapter) Unwrap() *http.Client {
	return a.httpClient
}

// Name returns the adapter name.
func (a *Adapter) Name() string {
	return a.config.Name
}

// IsAvailable reports false while the circuit breaker is open.
func (a *Adapter) IsAvailable(_ context.Context) bool {
	if a.cb != nil {
		return a.cb.State() != resilience.StateOpen
	}
	return true
}

// Close releases idle connections.
func (a *Adapter) Close(_ context.Context) error {
	a.httpClient.CloseIdleConnections()
	return nil
}

// GetConfig returns the adapter's configuration.
func (a *Adapter) GetConfig() Config {
	return a.config
}

// releaseOnClose ends the exchange context and frees the bulkhead slot
// with the body.
type releaseOnClose struct {
	io.ReadCloser
	cancel  context.CancelFunc
	release func()
}

func (c *releaseOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	c.release()
	return err
}

func stopTimer(t *time.Timer) {
	if t != nil {
		t.Stop()
	}
}

func isNetTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
