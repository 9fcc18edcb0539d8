package rest

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/kbukum/restkit/serializer"
)

// Destination is the part of a request a parameter is written to.
type Destination string

const (
	// DestinationPath substitutes a {name} placeholder in the path template.
	DestinationPath Destination = "PATH"
	// DestinationURL substitutes a placeholder when the template has one and
	// falls back to a query parameter otherwise.
	DestinationURL       Destination = "URL"
	DestinationQuery     Destination = "QUERY"
	DestinationHeader    Destination = "HEADER"
	DestinationCookie    Destination = "COOKIE"
	DestinationMatrix    Destination = "MATRIX"
	DestinationForm      Destination = "FORM"
	DestinationMultipart Destination = "MULTIPART"
	DestinationBody      Destination = "BODY"
)

var destinations = map[string]Destination{
	"PATH":      DestinationPath,
	"URL-PATH":  DestinationPath,
	"URL":       DestinationURL,
	"QUERY":     DestinationQuery,
	"HEADER":    DestinationHeader,
	"COOKIE":    DestinationCookie,
	"MATRIX":    DestinationMatrix,
	"FORM":      DestinationForm,
	"MULTIPART": DestinationMultipart,
	"BODY":      DestinationBody,
}

// ParseDestination parses a destination name, ignoring case.
func ParseDestination(s string) (Destination, error) {
	if d, ok := destinations[strings.ToUpper(strings.TrimSpace(s))]; ok {
		return d, nil
	}
	return "", fmt.Errorf("unknown destination %q", s)
}

// Interface declares one REST client: its endpoint and methods. It is the
// lowest-priority configuration source of Resolve.
type Interface struct {
	Name              string
	EndPoint          string
	ContextPath       string
	Encoding          string
	GlobalInterceptor RequestInterceptor

	// MethodDefaults and ParamDefaults apply to every method and parameter
	// of the interface unless overridden at a more specific level.
	MethodDefaults MethodFacets
	ParamDefaults  ParamFacets

	Methods []Method
}

// Method declares one client method.
type Method struct {
	Name string
	MethodFacets

	// ParamDefaults apply to every parameter of this method.
	ParamDefaults ParamFacets
	Params        []Param
	Returns       ReturnType
}

// Param declares one formal parameter. Type is the Go type name used in
// the method signature matched by properties patterns.
type Param struct {
	Type string
	ParamFacets
}

// MethodFacets are the settings resolvable at interface or method level.
// Zero values mean unset.
type MethodFacets struct {
	Path               string
	Verb               string
	SocketTimeout      *time.Duration
	ConnectionTimeout  *time.Duration
	RequestInterceptor RequestInterceptor
	ResponseHandler    ResponseHandler
	ErrorHandler       ErrorHandler
	RetryHandler       RetryHandler
	// Produces is sent as Accept and selects the response deserializer when
	// the response has no usable Content-Type.
	Produces string
	// Consumes selects the default serializer of BODY parameters.
	Consumes string
}

// ParamFacets are the settings resolvable at interface, method or
// parameter level. Zero values mean unset.
type ParamFacets struct {
	Name        string
	Destination Destination
	Serializer  serializer.Serializer
	Injector    Injector
	// Default is injected when the argument is nil.
	Default *string
	// ListSeparator joins slice arguments into one value instead of
	// repeating the parameter.
	ListSeparator string
}

// ReturnKind selects how a successful response becomes the method result.
type ReturnKind int

const (
	// ReturnNone closes the response and returns nil.
	ReturnNone ReturnKind = iota
	// ReturnValue passes the response to the response handler.
	ReturnValue
	// ReturnStream returns the raw body as an io.ReadCloser.
	ReturnStream
	// ReturnReader returns the charset-decoded body as an io.ReadCloser.
	ReturnReader
	// ReturnResponse returns the *httpclient.Response itself.
	ReturnResponse
)

func (k ReturnKind) String() string {
	switch k {
	case ReturnNone:
		return "none"
	case ReturnValue:
		return "value"
	case ReturnStream:
		return "stream"
	case ReturnReader:
		return "reader"
	case ReturnResponse:
		return "response"
	}
	return fmt.Sprintf("ReturnKind(%d)", int(k))
}

// ReturnType describes the declared result of a method.
type ReturnType struct {
	Kind ReturnKind
	// Name is the Go type name, used in messages.
	Name string
	// New returns a pointer to a fresh zero value of the declared type.
	// Required for ReturnValue.
	New func() any

	accepts func(any) bool
}

// Returns declares a method returning a T decoded by the response handler.
func Returns[T any]() ReturnType {
	return ReturnType{
		Kind: ReturnValue,
		Name: reflect.TypeFor[T]().String(),
		New:  func() any { return new(T) },
		accepts: func(v any) bool {
			_, ok := v.(T)
			return ok
		},
	}
}

// ReturnsStream declares a method returning the raw response body.
func ReturnsStream() ReturnType { return ReturnType{Kind: ReturnStream, Name: "io.ReadCloser"} }

// ReturnsReader declares a method returning the decoded character stream.
func ReturnsReader() ReturnType { return ReturnType{Kind: ReturnReader, Name: "io.ReadCloser"} }

// ReturnsResponse declares a method handing the whole response to the caller.
func ReturnsResponse() ReturnType {
	return ReturnType{Kind: ReturnResponse, Name: "*httpclient.Response"}
}

// ReturnsNothing declares a method without result.
func ReturnsNothing() ReturnType { return ReturnType{Kind: ReturnNone} }

// Accepts reports whether v may be returned for this type. nil is always
// accepted.
func (r ReturnType) Accepts(v any) bool {
	if v == nil {
		return true
	}
	if r.accepts != nil {
		return r.accepts(v)
	}
	if r.New == nil {
		return true
	}
	want := reflect.TypeOf(r.New()).Elem()
	return reflect.TypeOf(v).AssignableTo(want)
}

// Signature returns the erased signature "Name(type,type)" matched by
// properties patterns.
func (m Method) Signature() string {
	types := make([]string, len(m.Params))
	for i, p := range m.Params {
		types[i] = p.Type
	}
	return m.Name + "(" + strings.Join(types, ",") + ")"
}

// reservedNames are answered by the client itself.
var reservedNames = map[string]bool{"String": true, "Equal": true, "Hash": true}

func isReserved(name string) bool { return reservedNames[name] }
