package rest

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/kbukum/restkit/httpclient"
)

type item struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// closeCounter is a body that records how many times it was closed.
type closeCounter struct {
	io.Reader
	mu     sync.Mutex
	closed int
}

func (c *closeCounter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	return nil
}

func (c *closeCounter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// stubTransport records every request and answers with respond.
type stubTransport struct {
	mu       sync.Mutex
	requests []*httpclient.Request
	respond  func(n int, req *httpclient.Request) (*httpclient.Response, error)
}

func (s *stubTransport) Send(_ context.Context, req *httpclient.Request) (*httpclient.Response, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	n := len(s.requests)
	s.mu.Unlock()
	if s.respond == nil {
		return jsonResponse(http.StatusOK, `{}`), nil
	}
	return s.respond(n, req)
}

func (s *stubTransport) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *stubTransport) last() *httpclient.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return nil
	}
	return s.requests[len(s.requests)-1]
}

func jsonResponse(status int, body string) *httpclient.Response {
	h := make(http.Header)
	h.Set("Content-Type", "application/json")
	return httpclient.NewResponse(status, h, io.NopCloser(strings.NewReader(body)))
}

func countedResponse(contentType, body string) (*httpclient.Response, *closeCounter) {
	h := make(http.Header)
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	cc := &closeCounter{Reader: strings.NewReader(body)}
	return httpclient.NewResponse(http.StatusOK, h, cc), cc
}

func buildClient(t *testing.T, decl Interface, transport httpclient.Transport, opts ...Option) *Client {
	t.Helper()
	c, err := NewFactory(transport, opts...).Build(decl)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return c
}

func queryParam(name string) Param {
	return Param{Type: "string", ParamFacets: ParamFacets{Name: name}}
}

// recorder collects hook names in call order.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, s)
}

func (r *recorder) get() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// hooks returns an interceptor recording prefix.before and prefix.after,
// cancelling at the hook named cancel.
func (r *recorder) hooks(prefix, cancel string) RequestInterceptor {
	return InterceptorFuncs{
		Before: func(*httpclient.RequestBuilder, *RequestContext) error {
			r.add(prefix + ".before")
			if cancel == prefix+".before" {
				return ErrCancel
			}
			return nil
		},
		After: func(*httpclient.RequestBuilder, *RequestContext) error {
			r.add(prefix + ".after")
			if cancel == prefix+".after" {
				return ErrCancel
			}
			return nil
		},
	}
}

func (r *recorder) injector(name string) Injector {
	return InjectorFunc(func(b *httpclient.RequestBuilder, pc ParamContext) error {
		r.add(name)
		return DestinationInjector{}.Inject(b, pc)
	})
}
