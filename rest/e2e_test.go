package rest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/restkit/auth"
	"github.com/kbukum/restkit/config"
	"github.com/kbukum/restkit/errors"
	"github.com/kbukum/restkit/httpclient"
	"github.com/kbukum/restkit/logger"
	"github.com/kbukum/restkit/resilience"
	"github.com/kbukum/restkit/util"
)

// echoed is what the test server saw of a signed request.
type echoed struct {
	mu            sync.Mutex
	authorization string
	query         string
	body          string
}

func newServer(t *testing.T, flaky *atomic.Int64, seen *echoed) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/v1/items/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": 42, "name": "item-" + c.Param("id")})
	})
	r.GET("/v1/flaky", func(c *gin.Context) {
		if flaky.Add(1) < 3 {
			c.String(http.StatusServiceUnavailable, "busy")
			return
		}
		c.String(http.StatusOK, "recovered")
	})
	r.GET("/v1/slow", func(c *gin.Context) {
		time.Sleep(300 * time.Millisecond)
		c.Status(http.StatusNoContent)
	})
	r.POST("/v1/sign", func(c *gin.Context) {
		data, _ := c.GetRawData()
		seen.mu.Lock()
		seen.authorization = c.GetHeader("Authorization")
		seen.query = c.Request.URL.RawQuery
		seen.body = string(data)
		seen.mu.Unlock()
		c.Status(http.StatusNoContent)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func e2eDecl() Interface {
	return Interface{
		Name:        "Catalog",
		ContextPath: "/v1",
		Methods: []Method{
			{
				Name:         "GetItem",
				MethodFacets: MethodFacets{Path: "/items/{id}", Produces: "application/json"},
				Params:       []Param{{Type: "int", ParamFacets: ParamFacets{Name: "id", Destination: DestinationPath}}},
				Returns:      Returns[item](),
			},
			{
				Name:         "Flaky",
				MethodFacets: MethodFacets{Path: "/flaky"},
				Returns:      Returns[string](),
			},
			{
				Name:         "Slow",
				MethodFacets: MethodFacets{Path: "/slow", SocketTimeout: util.Ptr(50 * time.Millisecond)},
				Returns:      ReturnsNothing(),
			},
			{
				Name:         "Sign",
				MethodFacets: MethodFacets{Path: "/sign", Verb: http.MethodPost},
				Params: []Param{
					{Type: "string", ParamFacets: ParamFacets{Name: "q", Destination: DestinationQuery}},
					{Type: "string", ParamFacets: ParamFacets{Name: "p1", Destination: DestinationForm}},
					{Type: "string", ParamFacets: ParamFacets{Name: "p2", Destination: DestinationForm}},
				},
				Returns: ReturnsNothing(),
			},
		},
	}
}

func newAdapter(t *testing.T) *httpclient.Adapter {
	t.Helper()
	adapter, err := httpclient.New(httpclient.Config{Name: "e2e", DisableHTTP2: true})
	if err != nil {
		t.Fatalf("httpclient.New() error = %v", err)
	}
	t.Cleanup(func() { _ = adapter.Close(context.Background()) })
	return adapter
}

func TestEndToEnd_PathAndDecoding(t *testing.T) {
	srv := newServer(t, new(atomic.Int64), &echoed{})
	c := buildClient(t, e2eDecl(), newAdapter(t), WithDefaults(Defaults{EndPoint: srv.URL}))

	got, err := Call[item](context.Background(), c, "GetItem", 42)
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if got.ID != 42 || got.Name != "item-42" {
		t.Errorf("unexpected item %+v", got)
	}
}

func TestEndToEnd_RetryRecovers(t *testing.T) {
	var hits atomic.Int64
	srv := newServer(t, &hits, &echoed{})
	decl := e2eDecl()
	decl.MethodDefaults.RetryHandler = MaxRetries(2)
	c := buildClient(t, decl, newAdapter(t), WithDefaults(Defaults{EndPoint: srv.URL}))

	got, err := Call[string](context.Background(), c, "Flaky")
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if got != "recovered" {
		t.Errorf("expected recovered, got %q", got)
	}
	if hits.Load() != 3 {
		t.Errorf("expected 3 requests, got %d", hits.Load())
	}
}

func TestEndToEnd_RetryExhausted(t *testing.T) {
	var hits atomic.Int64
	srv := newServer(t, &hits, &echoed{})
	decl := e2eDecl()
	decl.MethodDefaults.RetryHandler = MaxRetries(1)
	var status int
	decl.MethodDefaults.ErrorHandler = ErrorHandlerFunc(func(rc *ResponseContext, err error) (any, error) {
		status = rc.Status()
		return nil, err
	})
	c := buildClient(t, decl, newAdapter(t), WithDefaults(Defaults{EndPoint: srv.URL}))

	_, err := c.Invoke(context.Background(), "Flaky")
	if !errors.Is(err, errors.ErrCodeTransport) {
		t.Errorf("expected TRANSPORT_ERROR, got %v", err)
	}
	if status != http.StatusServiceUnavailable {
		t.Errorf("expected error handler to see 503, got %d", status)
	}
	if hits.Load() != 2 {
		t.Errorf("expected 2 requests, got %d", hits.Load())
	}
}

func TestEndToEnd_SocketTimeout(t *testing.T) {
	srv := newServer(t, new(atomic.Int64), &echoed{})
	c := buildClient(t, e2eDecl(), newAdapter(t), WithDefaults(Defaults{EndPoint: srv.URL}))

	_, err := c.Invoke(context.Background(), "Slow")
	if !errors.Is(err, errors.ErrCodeTimeout) {
		t.Errorf("expected TIMEOUT, got %v", err)
	}
}

func TestEndToEnd_AuthorizationSignsQueryAndForm(t *testing.T) {
	seen := &echoed{}
	srv := newServer(t, new(atomic.Int64), seen)

	var signed []httpclient.Pair
	var signedVerb string
	authz := auth.AuthorizationFunc(func(_ context.Context, verb, _, _ string, params []httpclient.Pair) (auth.Token, error) {
		signedVerb = verb
		signed = append([]httpclient.Pair(nil), params...)
		return auth.Token{Scheme: "OAuth", Value: "sig=XYZ"}, nil
	})
	c := buildClient(t, e2eDecl(), newAdapter(t),
		WithDefaults(Defaults{EndPoint: srv.URL}),
		WithAuthorization(authz),
	)

	if _, err := c.Invoke(context.Background(), "Sign", "1", "a", "b"); err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}

	seen.mu.Lock()
	defer seen.mu.Unlock()
	if seen.authorization != "OAuth sig=XYZ" {
		t.Errorf("expected Authorization header, got %q", seen.authorization)
	}
	if seen.query != "q=1" {
		t.Errorf("expected query q=1, got %q", seen.query)
	}
	if seen.body != "p1=a&p2=b" {
		t.Errorf("expected unchanged form body, got %q", seen.body)
	}
	if signedVerb != http.MethodPost {
		t.Errorf("expected POST signed, got %q", signedVerb)
	}
	want := []httpclient.Pair{{Name: "q", Value: "1"}, {Name: "p1", Value: "a"}, {Name: "p2", Value: "b"}}
	if len(signed) != len(want) {
		t.Fatalf("expected %d signed params, got %v", len(want), signed)
	}
	for i := range want {
		if signed[i] != want[i] {
			t.Errorf("param %d: expected %v, got %v", i, want[i], signed[i])
		}
	}
}

func TestEndToEnd_FromSettings(t *testing.T) {
	var hits atomic.Int64
	srv := newServer(t, &hits, &echoed{})

	path := filepath.Join(t.TempDir(), "services.properties")
	content := "service.catalog.end-point=" + srv.URL + "\n" +
		"service.catalog.method.flaky.pattern=Flaky\\(\\)\n" +
		"service.catalog.method.flaky.socket-timeout=2000\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	s := &config.Settings{
		Name:       "catalog-client",
		Properties: path,
		Logging:    logger.Config{Level: "error"},
		HTTP:       httpclient.Config{DisableHTTP2: true},
		Retry:      resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond},
	}
	s.ApplyDefaults()
	factory, err := FromSettings(context.Background(), s)
	if err != nil {
		t.Fatalf("FromSettings() error = %v", err)
	}
	t.Cleanup(func() { _ = factory.Close(context.Background()) })

	c, err := factory.Build(e2eDecl())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if c.Config().EndPoint() != srv.URL {
		t.Errorf("expected end-point from properties, got %q", c.Config().EndPoint())
	}
	mc, _ := c.Config().Method("Flaky")
	if mc.SocketTimeout() != 2*time.Second {
		t.Errorf("expected socket timeout from properties, got %v", mc.SocketTimeout())
	}

	got, err := Call[string](context.Background(), c, "Flaky")
	if err != nil || got != "recovered" {
		t.Errorf("expected recovered through default backoff, got %q, %v", got, err)
	}
	if hits.Load() != 3 {
		t.Errorf("expected 3 requests, got %d", hits.Load())
	}
}
