package rest

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/kbukum/restkit/auth"
	"github.com/kbukum/restkit/config"
	"github.com/kbukum/restkit/errors"
	"github.com/kbukum/restkit/httpclient"
	"github.com/kbukum/restkit/logger"
	"github.com/kbukum/restkit/observability"
)

// Factory builds clients sharing one transport, registry and set of
// configuration sources.
type Factory struct {
	transport     httpclient.Transport
	defaults      Defaults
	registry      *Registry
	sources       []Source
	properties    []map[string]string
	authorization auth.Authorization
	authOpts      []auth.TransportOption
	log           *logger.Logger
	metrics       *observability.ClientMetrics
	shutdown      []func(context.Context) error
}

// Option configures a Factory.
type Option func(*Factory)

// WithDefaults sets the global defaults, ranked below interface settings.
func WithDefaults(d Defaults) Option {
	return func(f *Factory) { f.defaults = d }
}

// WithRegistry sets the registry used to resolve component names.
func WithRegistry(r *Registry) Option {
	return func(f *Factory) { f.registry = r }
}

// WithSource adds configuration sources. Sources added first win.
func WithSource(s ...Source) Option {
	return func(f *Factory) { f.sources = append(f.sources, s...) }
}

// WithProperties adds a PropertiesSource over props, resolved with the
// factory registry.
func WithProperties(props map[string]string) Option {
	return func(f *Factory) { f.properties = append(f.properties, props) }
}

// WithAuthorization signs every request of the built clients.
func WithAuthorization(a auth.Authorization, opts ...auth.TransportOption) Option {
	return func(f *Factory) {
		f.authorization = a
		f.authOpts = opts
	}
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(f *Factory) { f.log = l }
}

// WithMetrics records call metrics.
func WithMetrics(m *observability.ClientMetrics) Option {
	return func(f *Factory) { f.metrics = m }
}

// NewFactory creates a factory sending through transport.
func NewFactory(transport httpclient.Transport, opts ...Option) *Factory {
	f := &Factory{transport: transport}
	for _, opt := range opts {
		opt(f)
	}
	if f.registry == nil {
		f.registry = NewRegistry()
	}
	if f.log == nil {
		f.log = logger.Nop()
	}
	f.log = f.log.WithComponent("restkit.client")
	return f
}

// FromSettings creates a factory from loaded settings: an Adapter built
// from s.HTTP, the service properties named by s.Properties, and a
// backoff retry default when s.Retry allows more than one attempt. When
// s.Tracing or s.Metrics is enabled the OTLP providers are installed
// globally and shut down by Close.
func FromSettings(ctx context.Context, s *config.Settings, opts ...Option) (*Factory, error) {
	log := logger.New(&s.Logging, s.Name)
	logger.SetGlobalLogger(log)

	var shutdown []func(context.Context) error
	if s.Tracing.Enabled {
		tp, err := observability.InitTracer(ctx, s.Tracing)
		if err != nil {
			return nil, fmt.Errorf("initializing tracer: %w", err)
		}
		shutdown = append(shutdown, tp.Shutdown)
	}
	if s.Metrics.Enabled {
		mp, err := observability.InitMeter(ctx, s.Metrics)
		if err != nil {
			return nil, fmt.Errorf("initializing meter: %w", err)
		}
		shutdown = append(shutdown, mp.Shutdown)
	}

	adapter, err := httpclient.New(s.HTTP, httpclient.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("creating transport: %w", err)
	}
	props, err := s.LoadServiceProperties()
	if err != nil {
		return nil, fmt.Errorf("loading service properties: %w", err)
	}
	metrics, err := observability.NewClientMetrics(observability.Meter(observability.InstrumentationName))
	if err != nil {
		return nil, fmt.Errorf("creating metrics: %w", err)
	}

	var defaults Defaults
	if s.Retry.MaxAttempts > 1 {
		defaults.Method.RetryHandler = BackoffRetry(s.Retry)
	}
	base := []Option{
		WithLogger(log),
		WithMetrics(metrics),
		WithProperties(props),
		WithDefaults(defaults),
	}
	f := NewFactory(adapter, append(base, opts...)...)
	f.shutdown = shutdown
	return f, nil
}

// Registry returns the registry used to resolve component names.
func (f *Factory) Registry() *Registry { return f.registry }

// Build resolves decl and returns its client. Resolution failures are
// CONFIG_RESOLUTION errors.
func (f *Factory) Build(decl Interface) (*Client, error) {
	if f.transport == nil {
		return nil, errors.ConfigResolution(decl.Name, "no transport configured")
	}

	sources := append([]Source(nil), f.sources...)
	for _, props := range f.properties {
		sources = append(sources, NewPropertiesSource(props, f.registry))
	}
	cfg, err := Resolve(decl, f.defaults, sources...)
	if err != nil {
		f.log.Error("cannot build client", logger.Fields(
			logger.FieldInterface, decl.Name,
			logger.FieldError, err.Error(),
		))
		return nil, err
	}

	transport := f.transport
	if f.authorization != nil {
		opts := append([]auth.TransportOption{auth.WithLogger(f.log)}, f.authOpts...)
		transport = auth.NewTransport(transport, f.authorization, opts...)
	}

	f.log.Debug("client built", logger.Fields(
		logger.FieldInterface, cfg.Name(),
		"end_point", cfg.EndPoint(),
		"methods", len(cfg.methods),
	))
	return &Client{
		id:        uuid.NewString(),
		config:    cfg,
		transport: transport,
		log:       f.log,
		metrics:   f.metrics,
	}, nil
}

// Close releases the transport when it holds resources, then shuts down
// the telemetry providers FromSettings installed.
func (f *Factory) Close(ctx context.Context) error {
	var errs []error
	if c, ok := f.transport.(interface{ Close(context.Context) error }); ok {
		errs = append(errs, c.Close(ctx))
	}
	for _, fn := range f.shutdown {
		errs = append(errs, fn(ctx))
	}
	return stderrors.Join(errs...)
}
