package rest

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/kbukum/restkit/resilience"
	"github.com/kbukum/restkit/serializer"
	"github.com/kbukum/restkit/util"
)

// Registry maps the component names used in properties to instances.
// Names are case-insensitive. Safe for concurrent use.
//
// Retry handler names also accept "max-retries:<k>" for MaxRetries(k).
type Registry struct {
	mu               sync.RWMutex
	interceptors     map[string]RequestInterceptor
	responseHandlers map[string]ResponseHandler
	errorHandlers    map[string]ErrorHandler
	retryHandlers    map[string]RetryHandler
	serializers      map[string]serializer.Serializer
	injectors        map[string]Injector
}

// NewRegistry creates a registry holding the built-in components.
func NewRegistry() *Registry {
	r := &Registry{
		interceptors:     make(map[string]RequestInterceptor),
		responseHandlers: make(map[string]ResponseHandler),
		errorHandlers:    make(map[string]ErrorHandler),
		retryHandlers:    make(map[string]RetryHandler),
		serializers:      make(map[string]serializer.Serializer),
		injectors:        make(map[string]Injector),
	}

	r.RegisterInterceptor("noop", NoopInterceptor{})
	r.RegisterInterceptor("request-id", RequestIDInterceptor{})
	r.RegisterResponseHandler("default", DefaultResponseHandler{})
	r.RegisterErrorHandler("rethrow", RethrowErrorHandler{})
	r.RegisterErrorHandler("nil", FallbackErrorHandler(nil))
	r.RegisterRetryHandler("never", NoRetry{})
	r.RegisterRetryHandler("backoff", BackoffRetry(resilience.RetryConfig{}))
	r.RegisterSerializer("string", serializer.String{})
	r.RegisterSerializer("json", serializer.JSON{})
	r.RegisterSerializer("xml", serializer.XML{})
	r.RegisterSerializer("yaml", serializer.YAML{})
	r.RegisterSerializer("bytes", serializer.Bytes{})
	r.RegisterInjector("default", DestinationInjector{})
	return r
}

func key(name string) string { return strings.ToLower(strings.TrimSpace(name)) }

func (r *Registry) RegisterInterceptor(name string, i RequestInterceptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.interceptors[key(name)] = i
}

func (r *Registry) RegisterResponseHandler(name string, h ResponseHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responseHandlers[key(name)] = h
}

func (r *Registry) RegisterErrorHandler(name string, h ErrorHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errorHandlers[key(name)] = h
}

func (r *Registry) RegisterRetryHandler(name string, h RetryHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retryHandlers[key(name)] = h
}

func (r *Registry) RegisterSerializer(name string, s serializer.Serializer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.serializers[key(name)] = s
}

func (r *Registry) RegisterInjector(name string, i Injector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.injectors[key(name)] = i
}

// Interceptor looks up a request interceptor. A comma separated list of
// names resolves to an InterceptorChain.
func (r *Registry) Interceptor(name string) (RequestInterceptor, error) {
	if names := util.SplitTrim(name, ","); len(names) > 1 {
		chain := make(InterceptorChain, 0, len(names))
		for _, n := range names {
			i, err := r.Interceptor(n)
			if err != nil {
				return nil, err
			}
			chain = append(chain, i)
		}
		return chain, nil
	}
	return lookup(r, r.interceptors, "request interceptor", name)
}

func (r *Registry) ResponseHandler(name string) (ResponseHandler, error) {
	return lookup(r, r.responseHandlers, "response handler", name)
}

func (r *Registry) ErrorHandler(name string) (ErrorHandler, error) {
	return lookup(r, r.errorHandlers, "error handler", name)
}

func (r *Registry) RetryHandler(name string) (RetryHandler, error) {
	if n, ok := strings.CutPrefix(key(name), "max-retries:"); ok {
		k, err := strconv.Atoi(n)
		if err != nil || k < 0 {
			return nil, fmt.Errorf("invalid retry count in %q", name)
		}
		return MaxRetries(k), nil
	}
	return lookup(r, r.retryHandlers, "retry handler", name)
}

func (r *Registry) Serializer(name string) (serializer.Serializer, error) {
	return lookup(r, r.serializers, "serializer", name)
}

func (r *Registry) Injector(name string) (Injector, error) {
	return lookup(r, r.injectors, "injector", name)
}

func lookup[T any](r *Registry, m map[string]T, kind, name string) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := m[key(name)]
	if !ok {
		var zero T
		return zero, fmt.Errorf("unknown %s %q", kind, name)
	}
	return v, nil
}
