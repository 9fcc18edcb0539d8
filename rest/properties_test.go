package rest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/restkit/config"
	"github.com/kbukum/restkit/errors"
	"github.com/kbukum/restkit/serializer"
)

func searchDecl() Interface {
	return Interface{
		Name: "SearchService",
		Methods: []Method{
			{Name: "Search", Params: []Param{queryParam("q"), {Type: "int", ParamFacets: ParamFacets{Name: "page"}}}},
			{Name: "SearchAll", Params: []Param{queryParam("q")}},
			{Name: "Get", Params: []Param{{Type: "int", ParamFacets: ParamFacets{Name: "id"}}}},
		},
	}
}

func TestPropertiesSource_KeyGrammar(t *testing.T) {
	props := map[string]string{
		"service.search.class":              "SearchService",
		"service.search.end-point":          "http://search.test",
		"service.search.context-path":       "/v2",
		"service.search.encoding":           "iso-8859-1",
		"service.search.global-interceptor": "request-id",
		"service.search.socket-timeout":     "1500",
		"service.search.destination":        "header",

		"service.search.method.byid.pattern":              `Get\(int\)`,
		"service.search.method.byid.path":                 "/items/{id}",
		"service.search.method.byid.http-method":          "delete",
		"service.search.method.byid.connection-timeout":   "2s",
		"service.search.method.byid.retry-handler":        "max-retries:2",
		"service.search.method.byid.params.0.destination": "path",
	}
	cfg, err := Resolve(searchDecl(), Defaults{}, NewPropertiesSource(props, nil))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if cfg.EndPoint() != "http://search.test" || cfg.ContextPath() != "/v2" || cfg.Encoding() != "iso-8859-1" {
		t.Errorf("unexpected interface config: %q %q %q", cfg.EndPoint(), cfg.ContextPath(), cfg.Encoding())
	}
	if _, ok := cfg.GlobalInterceptor().(RequestIDInterceptor); !ok {
		t.Errorf("expected RequestIDInterceptor, got %T", cfg.GlobalInterceptor())
	}

	get, _ := cfg.Method("Get")
	if get.Path() != "/items/{id}" || get.Verb() != "DELETE" {
		t.Errorf("unexpected Get config: %q %q", get.Path(), get.Verb())
	}
	if get.SocketTimeout() != 1500*time.Millisecond {
		t.Errorf("expected interface socket timeout 1.5s, got %v", get.SocketTimeout())
	}
	if get.ConnectionTimeout() != 2*time.Second {
		t.Errorf("expected method connection timeout 2s, got %v", get.ConnectionTimeout())
	}
	if get.Param(0).Destination() != DestinationPath {
		t.Errorf("expected PATH, got %q", get.Param(0).Destination())
	}
	if !get.RetryHandler().Retry(nil, nil, 2) || get.RetryHandler().Retry(nil, nil, 3) {
		t.Error("expected max-retries:2 handler")
	}

	search, _ := cfg.Method("Search")
	if search.Param(1).Destination() != DestinationHeader {
		t.Errorf("expected interface-level HEADER, got %q", search.Param(1).Destination())
	}
	if search.Path() != "" {
		t.Errorf("expected unmatched method to keep empty path, got %q", search.Path())
	}
}

func TestPropertiesSource_GlobalEndPoint(t *testing.T) {
	cfg, err := Resolve(searchDecl(), Defaults{}, NewPropertiesSource(map[string]string{
		"service.end-point": "http://shared.test",
	}, nil))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if cfg.EndPoint() != "http://shared.test" {
		t.Errorf("expected global end-point, got %q", cfg.EndPoint())
	}
}

func TestPropertiesSource_AliasDefaultsToName(t *testing.T) {
	cfg, err := Resolve(searchDecl(), Defaults{}, NewPropertiesSource(map[string]string{
		"service.end-point":               "http://shared.test",
		"service.SearchService.end-point": "http://own.test",
	}, nil))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if cfg.EndPoint() != "http://own.test" {
		t.Errorf("expected alias end-point to beat global, got %q", cfg.EndPoint())
	}
}

func TestPropertiesSource_PatternOrder(t *testing.T) {
	props := map[string]string{
		"service.searchservice.end-point": "http://api.test",
		// m10 also matches Search(...) but m2 comes first in natural order.
		"service.searchservice.method.m10.pattern": `Search.*`,
		"service.searchservice.method.m10.path":    "/ten",
		"service.searchservice.method.m2.pattern":  `Search\(string,int\)`,
		"service.searchservice.method.m2.path":     "/two",
	}
	src := NewPropertiesSource(props, nil)

	for i := 0; i < 20; i++ {
		cfg, err := Resolve(searchDecl(), Defaults{}, src)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		search, _ := cfg.Method("Search")
		all, _ := cfg.Method("SearchAll")
		get, _ := cfg.Method("Get")
		if search.Path() != "/two" {
			t.Fatalf("run %d: expected first matching alias m2, got %q", i, search.Path())
		}
		if all.Path() != "/ten" {
			t.Fatalf("run %d: expected one pattern to match several methods, got %q", i, all.Path())
		}
		if get.Path() != "" {
			t.Fatalf("run %d: expected Get unmatched, got %q", i, get.Path())
		}
	}
}

func TestPropertiesSource_ParamIndexOnlyWhenPresent(t *testing.T) {
	props := map[string]string{
		"service.searchservice.end-point":                       "http://api.test",
		"service.searchservice.method.any.pattern":              `Search.*`,
		"service.searchservice.method.any.params.1.destination": "cookie",
	}
	cfg, err := Resolve(searchDecl(), Defaults{}, NewPropertiesSource(props, nil))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	search, _ := cfg.Method("Search")
	if search.Param(1).Destination() != DestinationCookie {
		t.Errorf("expected COOKIE for Search param 1, got %q", search.Param(1).Destination())
	}
	all, _ := cfg.Method("SearchAll")
	if all.ParamCount() != 1 || all.Param(0).Destination() != DestinationQuery {
		t.Errorf("expected SearchAll untouched, got %d params", all.ParamCount())
	}
}

func TestPropertiesSource_MethodAliasWithoutPattern(t *testing.T) {
	props := map[string]string{
		"service.searchservice.end-point":                       "http://api.test",
		"service.searchservice.method.get.path":                 "/get/{id}",
		"service.searchservice.method.get.params.0.destination": "url",
	}
	cfg, err := Resolve(searchDecl(), Defaults{}, NewPropertiesSource(props, nil))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	get, _ := cfg.Method("Get")
	if get.Path() != "/get/{id}" || get.Param(0).Destination() != DestinationURL {
		t.Errorf("expected alias named after the method to apply, got %q %q", get.Path(), get.Param(0).Destination())
	}
}

func TestPropertiesSource_ComponentsAndFacets(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterSerializer("csv-json", serializer.JSON{})
	props := map[string]string{
		"service.searchservice.end-point":                        "http://api.test",
		"service.searchservice.method.s.pattern":                 `Search\(.*`,
		"service.searchservice.method.s.error-handler":           "nil",
		"service.searchservice.method.s.request-interceptor":     "request-id, noop",
		"service.searchservice.method.s.produces":                "application/json",
		"service.searchservice.method.s.params.0.list-separator": "|",
		"service.searchservice.method.s.params.0.default-value":  "*",
		"service.searchservice.method.s.params.1.destination":    "form",
		"service.searchservice.method.s.params.1.serializer":     "CSV-JSON",
		"service.searchservice.method.s.params.1.name":           "p",
	}
	cfg, err := Resolve(searchDecl(), Defaults{}, NewPropertiesSource(props, reg))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	m, _ := cfg.Method("Search")
	if chain, ok := m.RequestInterceptor().(InterceptorChain); !ok || len(chain) != 2 {
		t.Errorf("expected 2-element chain, got %T", m.RequestInterceptor())
	}
	if v, err := m.ErrorHandler().Handle(nil, errors.Validation("x")); v != nil || err != nil {
		t.Errorf("expected nil fallback, got %v, %v", v, err)
	}
	if m.Produces() != "application/json" {
		t.Errorf("expected produces, got %q", m.Produces())
	}
	p0, p1 := m.Param(0), m.Param(1)
	if p0.ListSeparator() != "|" || p0.Default() == nil || *p0.Default() != "*" {
		t.Errorf("unexpected param 0: %q %v", p0.ListSeparator(), p0.Default())
	}
	if p1.Name() != "p" || p1.Destination() != DestinationForm {
		t.Errorf("unexpected param 1: %q %q", p1.Name(), p1.Destination())
	}
	if _, ok := p1.Serializer().(serializer.JSON); !ok {
		t.Errorf("expected registered serializer, got %T", p1.Serializer())
	}
}

func TestPropertiesSource_Errors(t *testing.T) {
	tests := map[string]map[string]string{
		"no end-point":        {"service.searchservice.context-path": "/x"},
		"bad timeout":         {"service.end-point": "http://a", "service.searchservice.socket-timeout": "soon"},
		"bad destination":     {"service.end-point": "http://a", "service.searchservice.destination": "nowhere"},
		"unknown handler":     {"service.end-point": "http://a", "service.searchservice.response-handler": "magic"},
		"unknown serializer":  {"service.end-point": "http://a", "service.searchservice.method.g.pattern": "Get.*", "service.searchservice.method.g.params.0.serializer": "toml"},
		"bad pattern":         {"service.end-point": "http://a", "service.searchservice.method.g.pattern": "Get(("},
		"bad retry count":     {"service.end-point": "http://a", "service.searchservice.retry-handler": "max-retries:x"},
		"unknown interceptor": {"service.end-point": "http://a", "service.searchservice.global-interceptor": "audit"},
		"capability":          {"service.end-point": "http://a", "service.searchservice.serializer": "json"},
	}
	for name, props := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Resolve(searchDecl(), Defaults{}, NewPropertiesSource(props, nil))
			if !errors.Is(err, errors.ErrCodeConfigResolution) {
				t.Errorf("expected CONFIG_RESOLUTION, got %v", err)
			}
		})
	}
}

func TestPropertiesSource_FromPropertiesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "service.properties")
	content := "# search client\n" +
		"service.search.class=SearchService\n" +
		"service.search.end-point=http://file.test\n" +
		"service.search.method.byId.pattern=Get\\(int\\)\n" +
		"service.search.method.byId.path=/items/{id}\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SERVICE_SEARCH_END_POINT", "http://env.test")

	props, err := config.LoadProperties(config.WithConfigFile(path))
	if err != nil {
		t.Fatalf("LoadProperties() error = %v", err)
	}
	cfg, err := Resolve(searchDecl(), Defaults{}, NewPropertiesSource(props, nil))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if cfg.EndPoint() != "http://env.test" {
		t.Errorf("expected env override, got %q", cfg.EndPoint())
	}
	get, _ := cfg.Method("Get")
	if get.Path() != "/items/{id}" {
		t.Errorf("expected mixed-case alias to match, got %q", get.Path())
	}
}

func TestNaturalLess(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"m2", "m10", true},
		{"m10", "m2", false},
		{"a", "b", true},
		{"m02", "m2", false},
		{"m2", "m02", true},
		{"m", "m1", true},
		{"x1y2", "x1y10", true},
	}
	for _, tc := range tests {
		if got := naturalLess(tc.a, tc.b); got != tc.want {
			t.Errorf("naturalLess(%q, %q) = %v, expected %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestPropertiesSource_BadPatternFieldError(t *testing.T) {
	props := map[string]string{
		"service.end-point":                      "http://a",
		"service.searchservice.method.1.pattern": "Search.*",
		"service.searchservice.method.2.pattern": "Get((",
	}
	_, err := Resolve(searchDecl(), Defaults{}, NewPropertiesSource(props, nil))
	fields := causeFields(t, err)
	if len(fields) != 1 {
		t.Fatalf("expected 1 field error, got %v", fields)
	}
	if fields[0].Field != "service.searchservice.method.2.pattern" {
		t.Errorf("expected service.searchservice.method.2.pattern, got %q", fields[0].Field)
	}
	if !strings.HasPrefix(fields[0].Message, "is not a valid pattern") {
		t.Errorf("expected pattern message, got %q", fields[0].Message)
	}
}
