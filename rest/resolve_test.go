package rest

import (
	"reflect"
	"testing"
	"time"

	"github.com/kbukum/restkit/errors"
	"github.com/kbukum/restkit/serializer"
	"github.com/kbukum/restkit/util"
	"github.com/kbukum/restkit/validation"
)

func TestResolve_HardDefaults(t *testing.T) {
	cfg, err := Resolve(Interface{
		Name:     "ItemService",
		EndPoint: "http://api.test",
		Methods:  []Method{{Name: "Find", Params: []Param{queryParam("q")}}},
	}, Defaults{})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if cfg.Encoding() != "utf-8" {
		t.Errorf("expected utf-8, got %q", cfg.Encoding())
	}
	if _, ok := cfg.GlobalInterceptor().(NoopInterceptor); !ok {
		t.Errorf("expected NoopInterceptor, got %T", cfg.GlobalInterceptor())
	}

	m, ok := cfg.Method("Find")
	if !ok {
		t.Fatal("expected method Find")
	}
	if m.Verb() != "GET" {
		t.Errorf("expected GET, got %q", m.Verb())
	}
	if m.SocketTimeout() != 0 || m.ConnectionTimeout() != 0 {
		t.Errorf("expected no timeouts, got %v/%v", m.SocketTimeout(), m.ConnectionTimeout())
	}
	if m.Signature() != "Find(string)" {
		t.Errorf("expected signature Find(string), got %q", m.Signature())
	}
	if _, ok := m.ErrorHandler().(RethrowErrorHandler); !ok {
		t.Errorf("expected RethrowErrorHandler, got %T", m.ErrorHandler())
	}
	if _, ok := m.RetryHandler().(NoRetry); !ok {
		t.Errorf("expected NoRetry, got %T", m.RetryHandler())
	}
	if _, ok := m.ResponseHandler().(DefaultResponseHandler); !ok {
		t.Errorf("expected DefaultResponseHandler, got %T", m.ResponseHandler())
	}

	p := m.Param(0)
	if p.Destination() != DestinationQuery {
		t.Errorf("expected QUERY, got %q", p.Destination())
	}
	if _, ok := p.Serializer().(serializer.String); !ok {
		t.Errorf("expected string serializer, got %T", p.Serializer())
	}
	if _, ok := p.Injector().(DestinationInjector); !ok {
		t.Errorf("expected DestinationInjector, got %T", p.Injector())
	}
}

// levelDecl sets a method facet and a param facet at the levels whose bit is
// set in mask: 1 param/method, 2 method param defaults, 4 interface, 8 global.
func levelDecl(mask int) (Interface, Defaults) {
	decl := Interface{
		Name:     "S",
		EndPoint: "http://api.test",
		Methods:  []Method{{Name: "M", Params: []Param{queryParam("p")}}},
	}
	var d Defaults
	m := &decl.Methods[0]
	if mask&1 != 0 {
		m.Verb = "POST"
		m.Params[0].Destination = DestinationHeader
	}
	if mask&2 != 0 {
		m.ParamDefaults.Destination = DestinationCookie
	}
	if mask&4 != 0 {
		decl.MethodDefaults.Verb = "PUT"
		decl.ParamDefaults.Destination = DestinationForm
	}
	if mask&8 != 0 {
		d.Method.Verb = "DELETE"
		d.Param.Destination = DestinationMatrix
	}
	return decl, d
}

func TestResolve_PrecedenceLaw(t *testing.T) {
	for mask := 0; mask < 16; mask++ {
		decl, d := levelDecl(mask)
		cfg, err := Resolve(decl, d)
		if err != nil {
			t.Fatalf("mask %04b: Resolve() error = %v", mask, err)
		}
		m, _ := cfg.Method("M")

		wantVerb := "GET"
		switch {
		case mask&1 != 0:
			wantVerb = "POST"
		case mask&4 != 0:
			wantVerb = "PUT"
		case mask&8 != 0:
			wantVerb = "DELETE"
		}
		if m.Verb() != wantVerb {
			t.Errorf("mask %04b: expected verb %s, got %s", mask, wantVerb, m.Verb())
		}

		wantDest := DestinationQuery
		switch {
		case mask&1 != 0:
			wantDest = DestinationHeader
		case mask&2 != 0:
			wantDest = DestinationCookie
		case mask&4 != 0:
			wantDest = DestinationForm
		case mask&8 != 0:
			wantDest = DestinationMatrix
		}
		if got := m.Param(0).Destination(); got != wantDest {
			t.Errorf("mask %04b: expected destination %s, got %s", mask, wantDest, got)
		}
	}
}

func TestResolve_TimeoutsAndDefaultValue(t *testing.T) {
	decl := Interface{
		Name:           "S",
		EndPoint:       "http://api.test",
		MethodDefaults: MethodFacets{SocketTimeout: util.Ptr(2 * time.Second)},
		ParamDefaults:  ParamFacets{Default: util.Ptr("all")},
		Methods: []Method{{
			Name:         "M",
			MethodFacets: MethodFacets{ConnectionTimeout: util.Ptr(500 * time.Millisecond)},
			Params:       []Param{queryParam("filter")},
		}},
	}
	cfg, err := Resolve(decl, Defaults{Method: MethodFacets{SocketTimeout: util.Ptr(time.Minute)}})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	m, _ := cfg.Method("M")
	if m.SocketTimeout() != 2*time.Second {
		t.Errorf("expected interface socket timeout 2s, got %v", m.SocketTimeout())
	}
	if m.ConnectionTimeout() != 500*time.Millisecond {
		t.Errorf("expected method connection timeout 500ms, got %v", m.ConnectionTimeout())
	}
	if d := m.Param(0).Default(); d == nil || *d != "all" {
		t.Errorf("expected default value 'all', got %v", d)
	}
}

func TestResolve_SourcePrecedence(t *testing.T) {
	decl := Interface{
		Name:    "S",
		Methods: []Method{{Name: "M", MethodFacets: MethodFacets{Path: "/declared"}}},
	}
	high := SourceFunc(func(Interface) (*Overlay, error) {
		return &Overlay{EndPoint: "http://high", MethodDefaults: MethodFacets{Path: "/high", Verb: "POST"}}, nil
	})
	low := SourceFunc(func(Interface) (*Overlay, error) {
		return &Overlay{EndPoint: "http://low", ContextPath: "/ctx", MethodDefaults: MethodFacets{Path: "/low"}}, nil
	})

	cfg, err := Resolve(decl, Defaults{}, high, low)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if cfg.EndPoint() != "http://high" {
		t.Errorf("expected first source end-point, got %q", cfg.EndPoint())
	}
	if cfg.ContextPath() != "/ctx" {
		t.Errorf("expected context path from second source, got %q", cfg.ContextPath())
	}
	m, _ := cfg.Method("M")
	if m.Path() != "/declared" {
		t.Errorf("expected method-level declaration to beat interface-level sources, got %q", m.Path())
	}
	if m.Verb() != "POST" {
		t.Errorf("expected POST from first source, got %q", m.Verb())
	}
}

func TestResolve_EndPointFromDefaults(t *testing.T) {
	cfg, err := Resolve(Interface{Name: "S"}, Defaults{EndPoint: "http://global"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if cfg.EndPoint() != "http://global" {
		t.Errorf("expected global end-point, got %q", cfg.EndPoint())
	}
}

func TestResolve_BodySerializerFollowsConsumes(t *testing.T) {
	cfg, err := Resolve(Interface{
		Name:     "S",
		EndPoint: "http://api.test",
		Methods: []Method{{
			Name:         "Create",
			MethodFacets: MethodFacets{Verb: "post", Consumes: "application/json"},
			Params:       []Param{{Type: "item", ParamFacets: ParamFacets{Destination: DestinationBody}}},
		}},
	}, Defaults{})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	m, _ := cfg.Method("Create")
	if m.Verb() != "POST" {
		t.Errorf("expected upper-cased verb, got %q", m.Verb())
	}
	if _, ok := m.Param(0).Serializer().(serializer.JSON); !ok {
		t.Errorf("expected JSON serializer, got %T", m.Param(0).Serializer())
	}
}

func TestResolve_Stages(t *testing.T) {
	cfg, err := Resolve(Interface{
		Name:     "S",
		EndPoint: "http://api.test",
		Methods:  []Method{{Name: "M", Params: []Param{queryParam("a"), queryParam("b")}}},
	}, Defaults{})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	m, _ := cfg.Method("M")
	want := []string{"init", "global.before", "method.before", "inject[0]:a", "inject[1]:b", "method.after", "global.after", "finalize"}
	if got := m.Stages(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected stages %v, got %v", want, got)
	}
}

func TestResolve_Errors(t *testing.T) {
	base := func(mutate func(*Interface)) Interface {
		decl := Interface{
			Name:     "S",
			EndPoint: "http://api.test",
			Methods:  []Method{{Name: "M", Params: []Param{queryParam("p")}}},
		}
		mutate(&decl)
		return decl
	}

	tests := []struct {
		name    string
		decl    Interface
		sources []Source
	}{
		{"missing end-point", base(func(d *Interface) { d.EndPoint = "" }), nil},
		{"missing name", base(func(d *Interface) { d.Name = "" }), nil},
		{"reserved method", base(func(d *Interface) { d.Methods[0].Name = "String" }), nil},
		{"duplicate method", base(func(d *Interface) { d.Methods = append(d.Methods, d.Methods[0]) }), nil},
		{"unknown verb", base(func(d *Interface) { d.Methods[0].Verb = "FETCH" }), nil},
		{"unnamed param", base(func(d *Interface) { d.Methods[0].Params[0].Name = "" }), nil},
		{"bad destination", base(func(d *Interface) { d.Methods[0].Params[0].Destination = "SOMEWHERE" }), nil},
		{"capability mismatch", base(func(d *Interface) { d.Methods[0].Params[0].Serializer = serializer.JSON{} }), nil},
		{"value without constructor", base(func(d *Interface) { d.Methods[0].Returns = ReturnType{Kind: ReturnValue} }), nil},
		{"negative timeout", base(func(d *Interface) { d.Methods[0].SocketTimeout = util.Ptr(-time.Second) }), nil},
		{"param index out of range", base(func(*Interface) {}), []Source{SourceFunc(func(Interface) (*Overlay, error) {
			return &Overlay{Methods: map[string]MethodOverlay{"M": {Params: map[int]ParamFacets{3: {Name: "x"}}}}}, nil
		})}},
		{"undeclared method", base(func(*Interface) {}), []Source{SourceFunc(func(Interface) (*Overlay, error) {
			return &Overlay{Methods: map[string]MethodOverlay{"Other": {}}}, nil
		})}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Resolve(tc.decl, Defaults{}, tc.sources...)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, errors.ErrCodeConfigResolution) {
				t.Errorf("expected CONFIG_RESOLUTION, got %v", err)
			}
		})
	}
}

func TestResolve_BodyNeedsNoName(t *testing.T) {
	_, err := Resolve(Interface{
		Name:     "S",
		EndPoint: "http://api.test",
		Methods:  []Method{{Name: "Put", Params: []Param{{Type: "[]byte", ParamFacets: ParamFacets{Destination: DestinationBody}}}}},
	}, Defaults{})
	if err != nil {
		t.Errorf("expected unnamed body to resolve, got %v", err)
	}
}

func TestReturnType_Accepts(t *testing.T) {
	rt := Returns[item]()
	if !rt.Accepts(item{ID: 1}) {
		t.Error("expected item to be accepted")
	}
	if rt.Accepts("text") {
		t.Error("expected string to be rejected")
	}
	if !rt.Accepts(nil) {
		t.Error("expected nil to be accepted")
	}
	if rt.Name != "rest.item" {
		t.Errorf("expected name rest.item, got %q", rt.Name)
	}

	manual := ReturnType{Kind: ReturnValue, New: func() any { return new(int) }}
	if !manual.Accepts(3) || manual.Accepts("3") {
		t.Error("expected reflection fallback to check assignability")
	}
}

func TestParseDestination(t *testing.T) {
	for in, want := range map[string]Destination{"query": DestinationQuery, " Body ": DestinationBody, "url-path": DestinationPath} {
		got, err := ParseDestination(in)
		if err != nil || got != want {
			t.Errorf("ParseDestination(%q) = %v, %v; expected %v", in, got, err, want)
		}
	}
	if _, err := ParseDestination("nowhere"); err == nil {
		t.Error("expected error for unknown destination")
	}
}

func TestResolve_GlobalEndPointRanksBelowInterface(t *testing.T) {
	props := NewPropertiesSource(map[string]string{"service.end-point": "http://global.test"}, nil)
	tests := []struct {
		name     string
		declared string
		defaults string
		want     string
	}{
		{"declaration wins", "http://declared.test", "http://defaults.test", "http://declared.test"},
		{"global beats factory defaults", "", "http://defaults.test", "http://global.test"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decl := Interface{Name: "Catalog", EndPoint: tt.declared, Methods: []Method{{Name: "List"}}}
			cfg, err := Resolve(decl, Defaults{EndPoint: tt.defaults}, props)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if cfg.EndPoint() != tt.want {
				t.Errorf("expected %q, got %q", tt.want, cfg.EndPoint())
			}
		})
	}
}

func causeFields(t *testing.T, err error) []validation.FieldError {
	t.Helper()
	ae, ok := err.(*errors.AppError)
	if !ok || ae.Code != errors.ErrCodeConfigResolution {
		t.Fatalf("expected CONFIG_RESOLUTION, got %v", err)
	}
	cause, ok := ae.Cause.(*errors.AppError)
	if !ok {
		t.Fatalf("expected *AppError cause, got %T", ae.Cause)
	}
	fields, ok := cause.Details["fields"].([]validation.FieldError)
	if !ok {
		t.Fatalf("expected field details, got %v", cause.Details)
	}
	return fields
}

func TestResolve_MethodNameFieldErrors(t *testing.T) {
	decl := Interface{
		Name:     "Catalog",
		EndPoint: "http://api.test",
		Methods:  []Method{{Name: "List"}, {Name: "Hash"}, {Name: "List"}, {Name: " "}},
	}
	_, err := Resolve(decl, Defaults{})
	fields := causeFields(t, err)
	want := []validation.FieldError{
		{Field: "methods[1].name", Message: "is reserved"},
		{Field: "methods[2].name", Message: `duplicate value "List"`},
		{Field: "methods[3].name", Message: "is required"},
	}
	if !reflect.DeepEqual(fields, want) {
		t.Errorf("expected %v, got %v", want, fields)
	}
}
