package rest

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kbukum/restkit/errors"
	"github.com/kbukum/restkit/serializer"
	"github.com/kbukum/restkit/util"
	"github.com/kbukum/restkit/validation"
)

// Source contributes configuration for a declared interface. Sources rank
// above the declaration itself.
type Source interface {
	Overlay(decl Interface) (*Overlay, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(decl Interface) (*Overlay, error)

func (f SourceFunc) Overlay(decl Interface) (*Overlay, error) { return f(decl) }

// Overlay holds the facets one source sets for an interface. Unset facets
// are zero.
type Overlay struct {
	EndPoint string
	// DefaultEndPoint is a source-wide fallback. It ranks below the
	// interface-level EndPoint of every layer, above Defaults.EndPoint.
	DefaultEndPoint   string
	ContextPath       string
	Encoding          string
	GlobalInterceptor RequestInterceptor
	MethodDefaults    MethodFacets
	ParamDefaults     ParamFacets
	// Methods is keyed by method name.
	Methods map[string]MethodOverlay
}

// MethodOverlay holds the facets one source sets for a method.
type MethodOverlay struct {
	MethodFacets
	ParamDefaults ParamFacets
	// Params is keyed by parameter index.
	Params map[int]ParamFacets
}

// Defaults are the global defaults of a Factory. They rank below every
// interface-level setting.
type Defaults struct {
	EndPoint          string
	ContextPath       string
	Encoding          string
	GlobalInterceptor RequestInterceptor
	Method            MethodFacets
	Param             ParamFacets
}

var knownVerbs = map[string]bool{
	http.MethodGet: true, http.MethodHead: true, http.MethodPost: true,
	http.MethodPut: true, http.MethodPatch: true, http.MethodDelete: true,
	http.MethodOptions: true, http.MethodTrace: true,
}

// Resolve builds the configuration of decl. Every facet is taken whole from
// the most specific level that sets it (param, method, interface, then
// defaults); within a level the first source that sets it wins, and the
// declaration ranks last.
func Resolve(decl Interface, defaults Defaults, sources ...Source) (*InterfaceConfig, error) {
	layers := make([]*Overlay, 0, len(sources)+1)
	for _, s := range sources {
		o, err := s.Overlay(decl)
		if err != nil {
			return nil, asResolution(decl.Name, err)
		}
		if o != nil {
			layers = append(layers, o)
		}
	}
	layers = append(layers, declarationOverlay(decl))

	r := resolver{iface: decl.Name, layers: layers, defaults: defaults}
	return r.resolve(decl)
}

func asResolution(iface string, err error) error {
	if errors.Is(err, errors.ErrCodeConfigResolution) {
		return err
	}
	return errors.ConfigResolution(iface, err.Error()).WithCause(err)
}

func declarationOverlay(decl Interface) *Overlay {
	o := &Overlay{
		EndPoint:          decl.EndPoint,
		ContextPath:       decl.ContextPath,
		Encoding:          decl.Encoding,
		GlobalInterceptor: decl.GlobalInterceptor,
		MethodDefaults:    decl.MethodDefaults,
		ParamDefaults:     decl.ParamDefaults,
		Methods:           make(map[string]MethodOverlay, len(decl.Methods)),
	}
	for _, m := range decl.Methods {
		mo := MethodOverlay{
			MethodFacets:  m.MethodFacets,
			ParamDefaults: m.ParamDefaults,
			Params:        make(map[int]ParamFacets, len(m.Params)),
		}
		for i, p := range m.Params {
			mo.Params[i] = p.ParamFacets
		}
		o.Methods[m.Name] = mo
	}
	return o
}

type resolver struct {
	iface    string
	layers   []*Overlay
	defaults Defaults
}

func (r *resolver) fail(format string, args ...any) error {
	return errors.ConfigResolution(r.iface, fmt.Sprintf(format, args...))
}

func (r *resolver) resolve(decl Interface) (*InterfaceConfig, error) {
	if strings.TrimSpace(decl.Name) == "" {
		return nil, r.fail("interface has no name")
	}

	ic := &InterfaceConfig{
		name: decl.Name,
		endPoint: r.ifaceString(func(o *Overlay) string { return o.EndPoint },
			r.ifaceString(func(o *Overlay) string { return o.DefaultEndPoint }), r.defaults.EndPoint),
		contextPath: r.ifaceString(func(o *Overlay) string { return o.ContextPath }, r.defaults.ContextPath),
		encoding:    r.ifaceString(func(o *Overlay) string { return o.Encoding }, r.defaults.Encoding, serializer.DefaultCharset),
		byName:      make(map[string]*MethodConfig, len(decl.Methods)),
	}
	if ic.endPoint == "" {
		return nil, r.fail("no end-point configured")
	}
	ic.global = first(collect(r.layers, func(o *Overlay) RequestInterceptor { return o.GlobalInterceptor }),
		r.defaults.GlobalInterceptor, RequestInterceptor(NoopInterceptor{}))

	if verr := checkMethodNames(decl.Methods); verr != nil {
		return nil, errors.ConfigResolution(r.iface, "invalid method names").WithCause(verr)
	}
	for _, o := range r.layers {
		for name := range o.Methods {
			if !declares(decl, name) {
				return nil, r.fail("configuration for undeclared method %s", name)
			}
		}
	}

	for _, m := range decl.Methods {
		mc, err := r.method(m)
		if err != nil {
			return nil, err
		}
		ic.methods = append(ic.methods, mc)
		ic.byName[m.Name] = mc
	}
	for _, mc := range ic.methods {
		mc.pipeline = buildPipeline(ic, mc)
	}
	return ic, nil
}

// checkMethodNames reports empty, reserved and duplicate method names as
// field errors keyed by declaration index.
func checkMethodNames(methods []Method) *errors.AppError {
	v := validation.New()
	seen := make(map[string]bool, len(methods))
	for i, m := range methods {
		field := "methods[" + strconv.Itoa(i) + "].name"
		if strings.TrimSpace(m.Name) == "" {
			v.Required(field, m.Name)
			continue
		}
		v.Custom(!isReserved(m.Name), field, "is reserved").Unique(field, m.Name, seen)
	}
	return v.Validate()
}

func declares(decl Interface, name string) bool {
	for _, m := range decl.Methods {
		if m.Name == name {
			return true
		}
	}
	return false
}

func (r *resolver) method(m Method) (*MethodConfig, error) {
	// candidates per facet: method level of every layer, then interface
	// level of every layer, then global defaults.
	levels := make([]MethodFacets, 0, 2*len(r.layers)+1)
	for _, o := range r.layers {
		if mo, ok := o.Methods[m.Name]; ok {
			levels = append(levels, mo.MethodFacets)
		}
	}
	for _, o := range r.layers {
		levels = append(levels, o.MethodDefaults)
	}
	levels = append(levels, r.defaults.Method)

	pick := func(f func(MethodFacets) string) string {
		for _, l := range levels {
			if v := f(l); v != "" {
				return v
			}
		}
		return ""
	}
	pickDuration := func(f func(MethodFacets) *time.Duration) time.Duration {
		set := make([]*time.Duration, len(levels))
		for i, l := range levels {
			set[i] = f(l)
		}
		return util.Deref(util.FirstNonNil(set...))
	}

	mc := &MethodConfig{
		name:              m.Name,
		signature:         m.Signature(),
		verb:              strings.ToUpper(pick(func(f MethodFacets) string { return f.Verb })),
		path:              pick(func(f MethodFacets) string { return f.Path }),
		socketTimeout:     pickDuration(func(f MethodFacets) *time.Duration { return f.SocketTimeout }),
		connectionTimeout: pickDuration(func(f MethodFacets) *time.Duration { return f.ConnectionTimeout }),
		produces:          pick(func(f MethodFacets) string { return f.Produces }),
		consumes:          pick(func(f MethodFacets) string { return f.Consumes }),
		returns:           m.Returns,
	}
	if mc.verb == "" {
		mc.verb = http.MethodGet
	}
	if !knownVerbs[mc.verb] {
		return nil, r.fail("method %s: unknown http method %q", m.Name, mc.verb)
	}
	if mc.socketTimeout < 0 || mc.connectionTimeout < 0 {
		return nil, r.fail("method %s: negative timeout", m.Name)
	}
	if m.Returns.Kind == ReturnValue && m.Returns.New == nil {
		return nil, r.fail("method %s: value return type %s has no constructor", m.Name, m.Returns.Name)
	}

	mc.interceptor = first(collect(levels, func(f MethodFacets) RequestInterceptor { return f.RequestInterceptor }),
		RequestInterceptor(NoopInterceptor{}))
	mc.responseHandler = first(collect(levels, func(f MethodFacets) ResponseHandler { return f.ResponseHandler }),
		ResponseHandler(DefaultResponseHandler{}))
	mc.errorHandler = first(collect(levels, func(f MethodFacets) ErrorHandler { return f.ErrorHandler }),
		ErrorHandler(RethrowErrorHandler{}))
	mc.retryHandler = first(collect(levels, func(f MethodFacets) RetryHandler { return f.RetryHandler }),
		RetryHandler(NoRetry{}))

	for _, o := range r.layers {
		mo, ok := o.Methods[m.Name]
		if !ok {
			continue
		}
		for i := range mo.Params {
			if i < 0 || i >= len(m.Params) {
				return nil, r.fail("method %s declares %d parameters, got configuration for index %d", m.Name, len(m.Params), i)
			}
		}
	}

	mc.params = make([]*ParamConfig, len(m.Params))
	for i, p := range m.Params {
		pc, err := r.param(mc, m, i, p)
		if err != nil {
			return nil, err
		}
		mc.params[i] = pc
	}
	return mc, nil
}

func (r *resolver) param(mc *MethodConfig, m Method, i int, p Param) (*ParamConfig, error) {
	levels := make([]ParamFacets, 0, 3*len(r.layers)+1)
	for _, o := range r.layers {
		if mo, ok := o.Methods[m.Name]; ok {
			if pf, ok := mo.Params[i]; ok {
				levels = append(levels, pf)
			}
		}
	}
	for _, o := range r.layers {
		if mo, ok := o.Methods[m.Name]; ok {
			levels = append(levels, mo.ParamDefaults)
		}
	}
	for _, o := range r.layers {
		levels = append(levels, o.ParamDefaults)
	}
	levels = append(levels, r.defaults.Param)

	pc := &ParamConfig{index: i, typ: p.Type}
	for _, l := range levels {
		if pc.name == "" {
			pc.name = l.Name
		}
		if pc.destination == "" {
			pc.destination = l.Destination
		}
		if pc.listSeparator == "" {
			pc.listSeparator = l.ListSeparator
		}
		if pc.defaultValue == nil && l.Default != nil {
			v := *l.Default
			pc.defaultValue = &v
		}
	}
	if pc.destination == "" {
		pc.destination = DestinationQuery
	}
	d, err := ParseDestination(string(pc.destination))
	if err != nil {
		return nil, r.fail("method %s param %d: %v", m.Name, i, err)
	}
	pc.destination = d

	pc.serializer = first(collect(levels, func(f ParamFacets) serializer.Serializer { return f.Serializer }),
		defaultSerializer(pc.destination, mc.consumes))
	pc.injector = first(collect(levels, func(f ParamFacets) Injector { return f.Injector }),
		Injector(DestinationInjector{}))

	if pc.name == "" && pc.destination != DestinationBody {
		return nil, r.fail("method %s param %d has no name", m.Name, i)
	}
	if c, ok := pc.serializer.(serializer.Capable); ok && !supports(c, pc.destination) {
		return nil, r.fail("method %s param %d: serializer %s cannot write to %s",
			m.Name, i, pc.serializer.ContentType(), pc.destination)
	}
	return pc, nil
}

func supports(c serializer.Capable, d Destination) bool {
	for _, s := range c.Destinations() {
		if strings.EqualFold(s, string(d)) {
			return true
		}
		// a URL parameter may end up in the path or the query
		if d == DestinationURL && (strings.EqualFold(s, string(DestinationPath)) || strings.EqualFold(s, string(DestinationQuery))) {
			return true
		}
	}
	return false
}

// defaultSerializer writes text everywhere but in bodies, which follow the
// method's Consumes media type.
func defaultSerializer(d Destination, consumes string) serializer.Serializer {
	if d != DestinationBody {
		return serializer.String{}
	}
	mt := serializer.MediaType(consumes)
	switch {
	case mt == "application/json" || strings.HasSuffix(mt, "+json"):
		return serializer.JSON{}
	case mt == "application/xml" || mt == "text/xml" || strings.HasSuffix(mt, "+xml"):
		return serializer.XML{}
	case strings.Contains(mt, "yaml"):
		return serializer.YAML{}
	case mt == "application/octet-stream":
		return serializer.Bytes{}
	}
	return serializer.String{}
}

func (r *resolver) ifaceString(f func(*Overlay) string, fallbacks ...string) string {
	for _, o := range r.layers {
		if v := f(o); v != "" {
			return v
		}
	}
	for _, v := range fallbacks {
		if v != "" {
			return v
		}
	}
	return ""
}

func collect[L, T any](levels []L, f func(L) T) []T {
	out := make([]T, len(levels))
	for i, l := range levels {
		out[i] = f(l)
	}
	return out
}

// first returns the first non-nil value of candidates, then of fallbacks.
func first[T comparable](candidates []T, fallbacks ...T) T {
	return util.Coalesce(append(candidates, fallbacks...)...)
}
