package config

import (
	"fmt"

	"github.com/kbukum/restkit/httpclient"
	"github.com/kbukum/restkit/logger"
	"github.com/kbukum/restkit/observability"
	"github.com/kbukum/restkit/resilience"
	"github.com/kbukum/restkit/validation"
)

// Settings holds the process-level configuration of a restkit client.
// Service definitions themselves live in the properties file named by
// Properties.
//
// Example:
//
//	name: catalog-client
//	properties: ./service.properties
//	http:
//	  timeout: 10s
//	retry:
//	  max_attempts: 3
type Settings struct {
	Name        string `yaml:"name" mapstructure:"name" validate:"required"`
	Environment string `yaml:"environment" mapstructure:"environment" validate:"oneof=development staging production"`
	Debug       bool   `yaml:"debug" mapstructure:"debug"`

	// Properties is the path of the service properties file.
	Properties string `yaml:"properties" mapstructure:"properties"`

	Logging logger.Config              `yaml:"logging" mapstructure:"logging"`
	HTTP    httpclient.Config          `yaml:"http" mapstructure:"http"`
	Retry   resilience.RetryConfig     `yaml:"retry" mapstructure:"retry"`
	Tracing observability.TracerConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics observability.MeterConfig  `yaml:"metrics" mapstructure:"metrics"`
}

// ApplyDefaults fills in zero-value fields.
func (s *Settings) ApplyDefaults() {
	if s.Environment == "" {
		s.Environment = "development"
	}
	if s.Environment == "development" {
		s.Debug = true
	}
	if s.HTTP.Name == "" {
		s.HTTP.Name = s.Name
	}
	if s.Tracing.ServiceName == "" {
		s.Tracing.ServiceName = s.Name
	}
	if s.Metrics.ServiceName == "" {
		s.Metrics.ServiceName = s.Name
	}
	s.Logging.ApplyDefaults()
	s.HTTP.ApplyDefaults()
	s.Retry.ApplyDefaults()
}

// Validate checks the settings after ApplyDefaults.
func (s *Settings) Validate() error {
	if err := validation.Validate(s); err != nil {
		return err
	}
	if err := s.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if err := s.HTTP.Validate(); err != nil {
		return fmt.Errorf("http: %w", err)
	}
	return nil
}

// LoadSettings loads, defaults and validates Settings for a service.
func LoadSettings(serviceName string, opts ...LoaderOption) (*Settings, error) {
	s := &Settings{Name: serviceName}
	if err := LoadConfig(serviceName, s, opts...); err != nil {
		return nil, err
	}
	s.ApplyDefaults()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadServiceProperties loads the properties file named by s.Properties.
// It returns an empty map when none is configured.
func (s *Settings) LoadServiceProperties(opts ...LoaderOption) (map[string]string, error) {
	if s.Properties == "" {
		return map[string]string{}, nil
	}
	return LoadProperties(append([]LoaderOption{WithConfigFile(s.Properties)}, opts...)...)
}
