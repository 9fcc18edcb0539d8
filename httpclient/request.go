package httpclient

import (
	"net/http"
	"time"
)

// Request is a fully built outbound request. It is immutable; the With
// methods return modified copies.
type Request struct {
	method            string
	url               string
	header            http.Header
	encoding          string
	socketTimeout     time.Duration
	connectionTimeout time.Duration
	entity            Entity
}

// Method returns the HTTP verb.
func (r *Request) Method() string { return r.method }

// URL returns the absolute request URL, query included.
func (r *Request) URL() string { return r.url }

// Header returns a copy of the request headers.
func (r *Request) Header() http.Header { return r.header.Clone() }

// HeaderValue returns the first value of a header.
func (r *Request) HeaderValue(name string) string { return r.header.Get(name) }

// Encoding returns the charset used for parameters and text bodies.
func (r *Request) Encoding() string { return r.encoding }

// SocketTimeout is the maximum wait for response headers; 0 means none.
func (r *Request) SocketTimeout() time.Duration { return r.socketTimeout }

// ConnectionTimeout is the maximum time to establish a connection; 0 means none.
func (r *Request) ConnectionTimeout() time.Duration { return r.connectionTimeout }

// Entity returns the request body, or nil.
func (r *Request) Entity() Entity { return r.entity }

// ContentType returns the Content-Type header value.
func (r *Request) ContentType() string { return r.header.Get("Content-Type") }

// WithHeader returns a copy of r with header name set to value.
func (r *Request) WithHeader(name, value string) *Request {
	c := r.clone()
	c.header.Set(name, value)
	return c
}

// WithEntity returns a copy of r sending e. The Content-Type header is kept
// when already set.
func (r *Request) WithEntity(e Entity) *Request {
	c := r.clone()
	c.entity = e
	if e != nil && c.header.Get("Content-Type") == "" && e.ContentType() != "" {
		c.header.Set("Content-Type", e.ContentType())
	}
	return c
}

func (r *Request) clone() *Request {
	c := *r
	c.header = r.header.Clone()
	if c.header == nil {
		c.header = make(http.Header)
	}
	return &c
}
