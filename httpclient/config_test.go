package httpclient

import (
	"testing"
	"time"
)

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if cfg.Timeout != 0 {
		t.Errorf("expected no default socket timeout, got %v", cfg.Timeout)
	}
	if cfg.DialTimeout != 30*time.Second {
		t.Errorf("expected default dial timeout 30s, got %v", cfg.DialTimeout)
	}
	if cfg.Name != "restkit" || cfg.MaxIdleConns != 100 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestConfig_ApplyDefaults_PreservesExisting(t *testing.T) {
	cfg := Config{Timeout: 10 * time.Second, DialTimeout: time.Second}
	cfg.ApplyDefaults()
	if cfg.Timeout != 10*time.Second || cfg.DialTimeout != time.Second {
		t.Errorf("expected explicit values kept, got %+v", cfg)
	}
}

func TestConfig_Validate_Valid(t *testing.T) {
	cfg := Config{Timeout: 10 * time.Second}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestConfig_Validate_NegativeTimeout(t *testing.T) {
	cfg := Config{Timeout: -1}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for negative timeout")
	}
}

func TestConfig_Validate_NegativeBurst(t *testing.T) {
	rl := DefaultRateLimiterConfig("test")
	rl.Burst = -1
	cfg := Config{RateLimiter: rl}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for negative burst")
	}
}

func TestConfig_Validate_InvalidTLS(t *testing.T) {
	cfg := Config{TLS: &TLSConfig{CertFile: "cert.pem"}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for mismatched TLS cert/key")
	}
}

func TestDefaultResilienceConfigs(t *testing.T) {
	cb := DefaultCircuitBreakerConfig("test")
	if cb.Name != "test" || cb.IsFailure == nil {
		t.Errorf("unexpected circuit breaker config: %+v", cb)
	}
	if rl := DefaultRateLimiterConfig("test"); rl.Name != "test" {
		t.Errorf("expected name 'test', got %q", rl.Name)
	}
	if bh := DefaultBulkheadConfig("test"); bh.MaxConcurrent <= 0 {
		t.Errorf("expected positive MaxConcurrent, got %d", bh.MaxConcurrent)
	}
}
