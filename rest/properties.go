package rest

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/kbukum/restkit/util"
	"github.com/kbukum/restkit/validation"
)

// PropertiesSource configures interfaces from flat "service.*" keys:
//
//	service.end-point=<url>                          shared by every alias
//	service.<alias>.class=<Interface.Name>           alias defaults to the name
//	service.<alias>.end-point | context-path | encoding | global-interceptor
//	service.<alias>.<method facet> | <param facet>
//	service.<alias>.method.<m>.pattern=<regexp over Name(type,type)>
//	service.<alias>.method.<m>.<method facet> | <param facet>
//	service.<alias>.method.<m>.params.<i>.<param facet>
//
// Method facets are path, http-method, socket-timeout, connection-timeout,
// request-interceptor, response-handler, error-handler, retry-handler,
// produces and consumes. Param facets are name, destination, serializer,
// injector, default-value and list-separator. Component values are
// resolved by name through the Registry.
//
// Keys and aliases are matched case-insensitively. Method aliases are
// tried in natural order and the first whose pattern matches the full
// signature configures the method. A method alias without pattern matches
// the method of the same name.
type PropertiesSource struct {
	props    map[string]string
	registry *Registry
}

// NewPropertiesSource creates a source over props. A nil registry uses
// NewRegistry.
func NewPropertiesSource(props map[string]string, registry *Registry) *PropertiesSource {
	if registry == nil {
		registry = NewRegistry()
	}
	lowered := make(map[string]string, len(props))
	for k, v := range props {
		lowered[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	return &PropertiesSource{props: lowered, registry: registry}
}

const servicePrefix = "service."

// Overlay implements Source.
func (s *PropertiesSource) Overlay(decl Interface) (*Overlay, error) {
	alias := s.alias(decl.Name)
	prefix := servicePrefix + alias + "."

	o := &Overlay{
		EndPoint:        s.props[prefix+"end-point"],
		DefaultEndPoint: s.props[servicePrefix+"end-point"],
		ContextPath:     s.props[prefix+"context-path"],
		Encoding:        s.props[prefix+"encoding"],
		Methods:         make(map[string]MethodOverlay),
	}
	var err error
	if name := s.props[prefix+"global-interceptor"]; name != "" {
		if o.GlobalInterceptor, err = s.registry.Interceptor(name); err != nil {
			return nil, fmt.Errorf("%sglobal-interceptor: %w", prefix, err)
		}
	}
	if o.MethodDefaults, err = s.methodFacets(prefix); err != nil {
		return nil, err
	}
	if o.ParamDefaults, err = s.paramFacets(prefix); err != nil {
		return nil, err
	}

	patterns, err := s.patterns(prefix + "method.")
	if err != nil {
		return nil, err
	}
	for _, m := range decl.Methods {
		methodAlias, ok := matchMethod(patterns, m)
		if !ok {
			continue
		}
		mprefix := prefix + "method." + methodAlias + "."
		mo := MethodOverlay{Params: make(map[int]ParamFacets)}
		if mo.MethodFacets, err = s.methodFacets(mprefix); err != nil {
			return nil, err
		}
		if mo.ParamDefaults, err = s.paramFacets(mprefix); err != nil {
			return nil, err
		}
		for i := range m.Params {
			pf, err := s.paramFacets(mprefix + "params." + strconv.Itoa(i) + ".")
			if err != nil {
				return nil, err
			}
			mo.Params[i] = pf
		}
		o.Methods[m.Name] = mo
	}
	return o, nil
}

// alias finds the alias whose class key names the interface.
func (s *PropertiesSource) alias(name string) string {
	var found []string
	for k, v := range s.props {
		if rest, ok := strings.CutPrefix(k, servicePrefix); ok {
			if a, ok := strings.CutSuffix(rest, ".class"); ok && strings.EqualFold(v, name) {
				found = append(found, a)
			}
		}
	}
	if len(found) == 0 {
		return strings.ToLower(name)
	}
	sort.Slice(found, func(i, j int) bool { return naturalLess(found[i], found[j]) })
	return found[0]
}

type methodPattern struct {
	alias string
	re    *regexp.Regexp
}

// patterns collects the method aliases below prefix in natural order.
func (s *PropertiesSource) patterns(prefix string) ([]methodPattern, error) {
	seen := make(map[string]bool)
	var aliases []string
	for k := range s.props {
		rest, ok := strings.CutPrefix(k, prefix)
		if !ok {
			continue
		}
		a, _, ok := strings.Cut(rest, ".")
		if !ok || a == "" || seen[a] {
			continue
		}
		seen[a] = true
		aliases = append(aliases, a)
	}
	sort.Slice(aliases, func(i, j int) bool { return naturalLess(aliases[i], aliases[j]) })

	v := validation.New()
	for _, a := range aliases {
		v.Pattern(prefix+a+".pattern", s.props[prefix+a+".pattern"])
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}

	out := make([]methodPattern, 0, len(aliases))
	for _, a := range aliases {
		mp := methodPattern{alias: a}
		if expr, ok := s.props[prefix+a+".pattern"]; ok {
			re, err := regexp.Compile(`^(?:` + expr + `)$`)
			if err != nil {
				return nil, fmt.Errorf("%s%s.pattern: %w", prefix, a, err)
			}
			mp.re = re
		}
		out = append(out, mp)
	}
	return out, nil
}

func matchMethod(patterns []methodPattern, m Method) (string, bool) {
	sig := m.Signature()
	for _, p := range patterns {
		if p.re == nil {
			if strings.EqualFold(p.alias, m.Name) {
				return p.alias, true
			}
			continue
		}
		if p.re.MatchString(sig) {
			return p.alias, true
		}
	}
	return "", false
}

func (s *PropertiesSource) methodFacets(prefix string) (MethodFacets, error) {
	var f MethodFacets
	var err error
	f.Path = s.props[prefix+"path"]
	f.Verb = strings.ToUpper(s.props[prefix+"http-method"])
	f.Produces = s.props[prefix+"produces"]
	f.Consumes = s.props[prefix+"consumes"]

	if v := s.props[prefix+"socket-timeout"]; v != "" {
		d, err := util.ParseTimeout(v)
		if err != nil {
			return f, fmt.Errorf("%ssocket-timeout: %w", prefix, err)
		}
		f.SocketTimeout = &d
	}
	if v := s.props[prefix+"connection-timeout"]; v != "" {
		d, err := util.ParseTimeout(v)
		if err != nil {
			return f, fmt.Errorf("%sconnection-timeout: %w", prefix, err)
		}
		f.ConnectionTimeout = &d
	}
	if v := s.props[prefix+"request-interceptor"]; v != "" {
		if f.RequestInterceptor, err = s.registry.Interceptor(v); err != nil {
			return f, fmt.Errorf("%srequest-interceptor: %w", prefix, err)
		}
	}
	if v := s.props[prefix+"response-handler"]; v != "" {
		if f.ResponseHandler, err = s.registry.ResponseHandler(v); err != nil {
			return f, fmt.Errorf("%sresponse-handler: %w", prefix, err)
		}
	}
	if v := s.props[prefix+"error-handler"]; v != "" {
		if f.ErrorHandler, err = s.registry.ErrorHandler(v); err != nil {
			return f, fmt.Errorf("%serror-handler: %w", prefix, err)
		}
	}
	if v := s.props[prefix+"retry-handler"]; v != "" {
		if f.RetryHandler, err = s.registry.RetryHandler(v); err != nil {
			return f, fmt.Errorf("%sretry-handler: %w", prefix, err)
		}
	}
	return f, nil
}

func (s *PropertiesSource) paramFacets(prefix string) (ParamFacets, error) {
	var f ParamFacets
	var err error
	f.Name = s.props[prefix+"name"]
	f.ListSeparator = s.props[prefix+"list-separator"]
	if v, ok := s.props[prefix+"default-value"]; ok {
		f.Default = util.Ptr(v)
	}
	if v := s.props[prefix+"destination"]; v != "" {
		if f.Destination, err = ParseDestination(v); err != nil {
			return f, fmt.Errorf("%sdestination: %w", prefix, err)
		}
	}
	if v := s.props[prefix+"serializer"]; v != "" {
		if f.Serializer, err = s.registry.Serializer(v); err != nil {
			return f, fmt.Errorf("%sserializer: %w", prefix, err)
		}
	}
	if v := s.props[prefix+"injector"]; v != "" {
		if f.Injector, err = s.registry.Injector(v); err != nil {
			return f, fmt.Errorf("%sinjector: %w", prefix, err)
		}
	}
	return f, nil
}

// naturalLess orders strings with embedded numbers numerically, so "m2"
// sorts before "m10".
func naturalLess(a, b string) bool {
	for a != "" && b != "" {
		ca, cb := rune(a[0]), rune(b[0])
		if unicode.IsDigit(ca) && unicode.IsDigit(cb) {
			na, ra := leadingDigits(a)
			nb, rb := leadingDigits(b)
			ta, tb := strings.TrimLeft(na, "0"), strings.TrimLeft(nb, "0")
			if len(ta) != len(tb) {
				return len(ta) < len(tb)
			}
			if ta != tb {
				return ta < tb
			}
			if len(na) != len(nb) {
				return len(na) < len(nb)
			}
			a, b = ra, rb
			continue
		}
		if ca != cb {
			return ca < cb
		}
		a, b = a[1:], b[1:]
	}
	return len(a) < len(b)
}

func leadingDigits(s string) (digits, rest string) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return s[:i], s[i:]
}
