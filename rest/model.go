package rest

import (
	"time"

	"github.com/kbukum/restkit/serializer"
)

// InterfaceConfig is the resolved, immutable configuration of one client
// interface.
type InterfaceConfig struct {
	name        string
	endPoint    string
	contextPath string
	encoding    string
	global      RequestInterceptor
	methods     []*MethodConfig
	byName      map[string]*MethodConfig
}

func (c *InterfaceConfig) Name() string                          { return c.name }
func (c *InterfaceConfig) EndPoint() string                      { return c.endPoint }
func (c *InterfaceConfig) ContextPath() string                   { return c.contextPath }
func (c *InterfaceConfig) Encoding() string                      { return c.encoding }
func (c *InterfaceConfig) GlobalInterceptor() RequestInterceptor { return c.global }

// Methods returns the methods in declaration order.
func (c *InterfaceConfig) Methods() []*MethodConfig {
	return append([]*MethodConfig(nil), c.methods...)
}

// Method looks a method up by name.
func (c *InterfaceConfig) Method(name string) (*MethodConfig, bool) {
	m, ok := c.byName[name]
	return m, ok
}

// MethodConfig is the resolved configuration of one method. Its parameter
// count always equals the declared arity.
type MethodConfig struct {
	name              string
	signature         string
	verb              string
	path              string
	socketTimeout     time.Duration
	connectionTimeout time.Duration
	interceptor       RequestInterceptor
	responseHandler   ResponseHandler
	errorHandler      ErrorHandler
	retryHandler      RetryHandler
	produces          string
	consumes          string
	returns           ReturnType
	params            []*ParamConfig

	pipeline []stage
}

func (m *MethodConfig) Name() string                           { return m.name }
func (m *MethodConfig) Signature() string                      { return m.signature }
func (m *MethodConfig) Verb() string                           { return m.verb }
func (m *MethodConfig) Path() string                           { return m.path }
func (m *MethodConfig) SocketTimeout() time.Duration           { return m.socketTimeout }
func (m *MethodConfig) ConnectionTimeout() time.Duration       { return m.connectionTimeout }
func (m *MethodConfig) RequestInterceptor() RequestInterceptor { return m.interceptor }
func (m *MethodConfig) ResponseHandler() ResponseHandler       { return m.responseHandler }
func (m *MethodConfig) ErrorHandler() ErrorHandler             { return m.errorHandler }
func (m *MethodConfig) RetryHandler() RetryHandler             { return m.retryHandler }
func (m *MethodConfig) Produces() string                       { return m.produces }
func (m *MethodConfig) Consumes() string                       { return m.consumes }
func (m *MethodConfig) Returns() ReturnType                    { return m.returns }
func (m *MethodConfig) ParamCount() int                        { return len(m.params) }

// Param returns parameter i.
func (m *MethodConfig) Param(i int) *ParamConfig { return m.params[i] }

// Params returns the parameters in declaration order.
func (m *MethodConfig) Params() []*ParamConfig {
	return append([]*ParamConfig(nil), m.params...)
}

// Stages returns the names of the request pipeline stages in run order.
func (m *MethodConfig) Stages() []string {
	names := make([]string, 0, len(m.pipeline)+1)
	for _, s := range m.pipeline {
		names = append(names, s.name)
	}
	return append(names, stageFinalize)
}

// ParamConfig is the resolved configuration of one parameter.
type ParamConfig struct {
	index         int
	typ           string
	name          string
	destination   Destination
	serializer    serializer.Serializer
	injector      Injector
	defaultValue  *string
	listSeparator string
}

func (p *ParamConfig) Index() int                        { return p.index }
func (p *ParamConfig) Type() string                      { return p.typ }
func (p *ParamConfig) Name() string                      { return p.name }
func (p *ParamConfig) Destination() Destination          { return p.destination }
func (p *ParamConfig) Serializer() serializer.Serializer { return p.serializer }
func (p *ParamConfig) Injector() Injector                { return p.injector }
func (p *ParamConfig) ListSeparator() string             { return p.listSeparator }

// Default returns a copy of the default value, or nil.
func (p *ParamConfig) Default() *string {
	if p.defaultValue == nil {
		return nil
	}
	v := *p.defaultValue
	return &v
}
