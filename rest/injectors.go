package rest

import (
	"bytes"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/kbukum/restkit/errors"
	"github.com/kbukum/restkit/httpclient"
	"github.com/kbukum/restkit/serializer"
)

// Injector writes one argument into the request. Injectors are the only
// components adding path, query, header, cookie, matrix, form, multipart
// or body content, and each touches nothing but its own parameter.
type Injector interface {
	Inject(b *httpclient.RequestBuilder, pc ParamContext) error
}

// InjectorFunc adapts a function to Injector.
type InjectorFunc func(b *httpclient.RequestBuilder, pc ParamContext) error

func (f InjectorFunc) Inject(b *httpclient.RequestBuilder, pc ParamContext) error { return f(b, pc) }

// DestinationInjector writes a parameter to its configured destination.
// Nil arguments fall back to the default value or are skipped; slices and
// arrays expand to one value each, or one joined value when a list
// separator is configured.
//
// An io.Reader multipart argument is sent as a file part. Readers that
// also implement io.Seeker are rewound before every attempt; any other
// reader is consumed by the first attempt, so a retry sends an empty part.
type DestinationInjector struct{}

func (DestinationInjector) Inject(b *httpclient.RequestBuilder, pc ParamContext) error {
	p := pc.Config()
	v := pc.Value()
	if isNil(v) {
		if p.Default() == nil {
			return nil
		}
		v = *p.Default()
	}

	switch p.Destination() {
	case DestinationBody:
		b.SetEntity(httpclient.NewSerializingEntity(v, p.Serializer(), b.Encoding()))
		return nil
	case DestinationMultipart:
		if r, ok := v.(io.Reader); ok {
			if s, ok := r.(io.Seeker); ok {
				if _, err := s.Seek(0, io.SeekStart); err != nil {
					return errors.Serialization(p.Name(), err).WithDetail("index", p.Index())
				}
			}
			b.AddPart(httpclient.Part{Name: p.Name(), FileName: p.Name(), Reader: r})
			return nil
		}
	}

	values, err := p.format(v, b.Encoding())
	if err != nil {
		return errors.Serialization(p.Name(), err).WithDetail("index", p.Index())
	}

	name := p.Name()
	switch p.Destination() {
	case DestinationPath:
		b.PathParam(name, strings.Join(values, pathSeparator(p)))
	case DestinationURL:
		if b.HasPlaceholder(name) {
			b.PathParam(name, strings.Join(values, pathSeparator(p)))
			return nil
		}
		for _, s := range values {
			b.AddQuery(name, s)
		}
	case DestinationQuery:
		for _, s := range values {
			b.AddQuery(name, s)
		}
	case DestinationHeader:
		for _, s := range values {
			b.AddHeader(name, s)
		}
	case DestinationCookie:
		for _, s := range values {
			b.AddCookie(name, s)
		}
	case DestinationMatrix:
		for _, s := range values {
			b.AddMatrix(name, s)
		}
	case DestinationForm:
		for _, s := range values {
			b.AddForm(name, s)
		}
	case DestinationMultipart:
		ct := ""
		if _, plain := p.Serializer().(serializer.String); !plain {
			ct = p.Serializer().ContentType()
		}
		for _, s := range values {
			if ct == "" {
				b.AddPart(httpclient.Part{Name: name, Value: s})
			} else {
				b.AddPart(httpclient.Part{Name: name, FileName: name, ContentType: ct, Reader: strings.NewReader(s)})
			}
		}
	default:
		return fmt.Errorf("unsupported destination %q", p.Destination())
	}
	return nil
}

func pathSeparator(p *ParamConfig) string {
	if p.ListSeparator() != "" {
		return p.ListSeparator()
	}
	return ","
}

// format serializes v into one string per element, or a single joined
// string when a list separator is set.
func (p *ParamConfig) format(v any, cs string) ([]string, error) {
	elems := expand(v)
	out := make([]string, 0, len(elems))
	for _, e := range elems {
		if isNil(e) {
			continue
		}
		var buf bytes.Buffer
		if err := p.Serializer().Serialize(e, cs, &buf); err != nil {
			return nil, err
		}
		out = append(out, buf.String())
	}
	if p.ListSeparator() != "" && len(out) > 1 {
		return []string{strings.Join(out, p.ListSeparator())}, nil
	}
	return out, nil
}

// expand returns the elements of slices and arrays; byte slices and every
// other value are a single element.
func expand(v any) []any {
	if _, ok := v.([]byte); ok {
		return []any{v}
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out
	}
	return []any{v}
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
