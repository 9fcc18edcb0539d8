package httpclient

import (
	"time"

	"github.com/kbukum/restkit/resilience"
	"github.com/kbukum/restkit/validation"
)

const (
	defaultDialTimeout     = 30 * time.Second
	defaultKeepAlive       = 30 * time.Second
	defaultIdleConnTimeout = 90 * time.Second
	defaultMaxIdleConns    = 100
)

// Config configures the net/http adapter.
type Config struct {
	// Name identifies the adapter in logs and resilience callbacks.
	Name string `yaml:"name" mapstructure:"name"`

	// Timeout is the socket timeout for requests that set none. 0 disables it.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`

	// DialTimeout bounds connection setup for requests that set no
	// connection timeout. Defaults to 30s.
	DialTimeout time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout" validate:"gte=0"`

	// DisableHTTP2 keeps the transport on HTTP/1.1.
	DisableHTTP2 bool `yaml:"disable_http2" mapstructure:"disable_http2"`

	// HTTP2ReadIdleTimeout enables HTTP/2 health-check pings after this
	// much idle time. 0 disables pings.
	HTTP2ReadIdleTimeout time.Duration `yaml:"http2_read_idle_timeout" mapstructure:"http2_read_idle_timeout" validate:"gte=0"`

	// MaxIdleConns and IdleConnTimeout tune the connection pool.
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns" validate:"gte=0"`
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout" mapstructure:"idle_conn_timeout" validate:"gte=0"`

	// TLS configures TLS settings for the HTTP transport.
	TLS *TLSConfig `yaml:"tls" mapstructure:"tls"`

	// Headers are default headers applied to all requests.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`

	// CircuitBreaker configures circuit breaker behavior. Nil disables it.
	CircuitBreaker *resilience.CircuitBreakerConfig `yaml:"circuit_breaker" mapstructure:"circuit_breaker"`

	// RateLimiter configures rate limiting. Nil disables it.
	RateLimiter *resilience.RateLimiterConfig `yaml:"rate_limiter" mapstructure:"rate_limiter"`

	// Bulkhead limits concurrent in-flight requests. Nil disables it.
	Bulkhead *resilience.BulkheadConfig `yaml:"bulkhead" mapstructure:"bulkhead"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "restkit"
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = defaultDialTimeout
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = defaultMaxIdleConns
	}
	if c.IdleConnTimeout <= 0 {
		c.IdleConnTimeout = defaultIdleConnTimeout
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	return c.TLS.Validate()
}

// DefaultCircuitBreakerConfig returns a circuit breaker config that only
// counts connection failures and 5xx responses.
func DefaultCircuitBreakerConfig(name string) *resilience.CircuitBreakerConfig {
	cfg := resilience.DefaultCircuitBreakerConfig(name)
	cfg.IsFailure = IsBreakerFailure
	return &cfg
}

// DefaultRateLimiterConfig returns a default rate limiter config.
func DefaultRateLimiterConfig(name string) *resilience.RateLimiterConfig {
	cfg := resilience.DefaultRateLimiterConfig(name)
	return &cfg
}

// DefaultBulkheadConfig returns a default bulkhead config.
func DefaultBulkheadConfig(name string) *resilience.BulkheadConfig {
	cfg := resilience.DefaultBulkheadConfig(name)
	return &cfg
}

// IsBreakerFailure reports whether err means the end-point is unhealthy.
// Client errors (4xx) do not count.
func IsBreakerFailure(err error) bool {
	if err == nil {
		return false
	}
	status := StatusOf(err)
	return status == 0 || status >= 500 || status == 429
}
