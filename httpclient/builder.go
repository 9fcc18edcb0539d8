package httpclient

import (
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

var placeholderRe = regexp.MustCompile(`\{([^{}/]+)\}`)

// RequestBuilder accumulates one request. It is owned by a single call and
// is not safe for concurrent use.
type RequestBuilder struct {
	urlTemplate       string
	method            string
	encoding          string
	socketTimeout     time.Duration
	connectionTimeout time.Duration
	accept            string
	contentType       string

	pathParams map[string]string
	query      []Pair
	matrix     []Pair
	header     http.Header
	cookies    []Pair
	form       []Pair
	parts      []Part
	entity     Entity
}

// NewRequestBuilder starts a GET request for urlTemplate. The template may
// contain {name} placeholders filled by PathParam.
func NewRequestBuilder(urlTemplate string) *RequestBuilder {
	return &RequestBuilder{
		urlTemplate: urlTemplate,
		method:      http.MethodGet,
		encoding:    "utf-8",
		pathParams:  make(map[string]string),
		header:      make(http.Header),
	}
}

// URLTemplate returns the unresolved URL template.
func (b *RequestBuilder) URLTemplate() string { return b.urlTemplate }

// SetURLTemplate replaces the URL template.
func (b *RequestBuilder) SetURLTemplate(t string) *RequestBuilder {
	b.urlTemplate = t
	return b
}

// HasPlaceholder reports whether the URL template contains {name}.
func (b *RequestBuilder) HasPlaceholder(name string) bool {
	return strings.Contains(b.urlTemplate, "{"+name+"}")
}

// Method returns the HTTP verb.
func (b *RequestBuilder) Method() string { return b.method }

// SetMethod sets the HTTP verb.
func (b *RequestBuilder) SetMethod(m string) *RequestBuilder {
	b.method = strings.ToUpper(m)
	return b
}

// Encoding returns the parameter charset.
func (b *RequestBuilder) Encoding() string { return b.encoding }

// SetEncoding sets the parameter charset.
func (b *RequestBuilder) SetEncoding(cs string) *RequestBuilder {
	b.encoding = defaultCharset(cs)
	return b
}

// SetSocketTimeout sets the maximum wait for response headers.
func (b *RequestBuilder) SetSocketTimeout(d time.Duration) *RequestBuilder {
	b.socketTimeout = d
	return b
}

// SetConnectionTimeout sets the maximum time to connect.
func (b *RequestBuilder) SetConnectionTimeout(d time.Duration) *RequestBuilder {
	b.connectionTimeout = d
	return b
}

// SetAccept sets the Accept header.
func (b *RequestBuilder) SetAccept(mediaType string) *RequestBuilder {
	b.accept = mediaType
	return b
}

// SetContentType overrides the Content-Type derived from the entity.
func (b *RequestBuilder) SetContentType(ct string) *RequestBuilder {
	b.contentType = ct
	return b
}

// PathParam binds a {name} placeholder.
func (b *RequestBuilder) PathParam(name, value string) *RequestBuilder {
	b.pathParams[name] = value
	return b
}

// AddQuery appends a query parameter.
func (b *RequestBuilder) AddQuery(name, value string) *RequestBuilder {
	b.query = append(b.query, Pair{name, value})
	return b
}

// Query returns a copy of the query parameters added so far.
func (b *RequestBuilder) Query() []Pair { return append([]Pair(nil), b.query...) }

// AddMatrix appends a ;name=value matrix parameter to the path.
func (b *RequestBuilder) AddMatrix(name, value string) *RequestBuilder {
	b.matrix = append(b.matrix, Pair{name, value})
	return b
}

// AddHeader adds a header value.
func (b *RequestBuilder) AddHeader(name, value string) *RequestBuilder {
	b.header.Add(name, value)
	return b
}

// SetHeader replaces a header.
func (b *RequestBuilder) SetHeader(name, value string) *RequestBuilder {
	b.header.Set(name, value)
	return b
}

// Header returns the first value of a header.
func (b *RequestBuilder) Header(name string) string { return b.header.Get(name) }

// AddCookie adds a cookie.
func (b *RequestBuilder) AddCookie(name, value string) *RequestBuilder {
	b.cookies = append(b.cookies, Pair{name, value})
	return b
}

// AddForm appends a form field.
func (b *RequestBuilder) AddForm(name, value string) *RequestBuilder {
	b.form = append(b.form, Pair{name, value})
	return b
}

// AddPart appends a multipart part.
func (b *RequestBuilder) AddPart(p Part) *RequestBuilder {
	b.parts = append(b.parts, p)
	return b
}

// SetEntity sets an explicit body. It takes precedence over form fields
// and parts.
func (b *RequestBuilder) SetEntity(e Entity) *RequestBuilder {
	b.entity = e
	return b
}

// Build resolves the URL and body and returns the immutable request.
func (b *RequestBuilder) Build() (*Request, error) {
	u, err := b.resolveURL()
	if err != nil {
		return nil, err
	}

	header := b.header.Clone()
	if b.accept != "" {
		header.Set("Accept", b.accept)
	}
	if len(b.cookies) > 0 {
		cookies := make([]string, 0, len(b.cookies))
		for _, c := range b.cookies {
			cookies = append(cookies, (&http.Cookie{Name: c.Name, Value: c.Value}).String())
		}
		header.Set("Cookie", strings.Join(cookies, "; "))
	}

	entity := b.buildEntity()
	switch {
	case b.contentType != "":
		header.Set("Content-Type", b.contentType)
	case entity != nil && entity.ContentType() != "":
		header.Set("Content-Type", entity.ContentType())
	}

	return &Request{
		method:            b.method,
		url:               u,
		header:            header,
		encoding:          b.encoding,
		socketTimeout:     b.socketTimeout,
		connectionTimeout: b.connectionTimeout,
		entity:            entity,
	}, nil
}

func (b *RequestBuilder) buildEntity() Entity {
	switch {
	case b.entity != nil:
		return b.entity
	case len(b.parts) > 0:
		parts := make([]Part, 0, len(b.form)+len(b.parts))
		for _, f := range b.form {
			parts = append(parts, Part{Name: f.Name, Value: f.Value})
		}
		return NewMultipartEntity(append(parts, b.parts...), b.encoding)
	case len(b.form) > 0:
		return NewFormEntity(b.form, b.encoding)
	}
	return nil
}

func (b *RequestBuilder) resolveURL() (string, error) {
	var missing []string
	resolved := placeholderRe.ReplaceAllStringFunc(b.urlTemplate, func(m string) string {
		name := m[1 : len(m)-1]
		v, ok := b.pathParams[name]
		if !ok {
			missing = append(missing, name)
			return m
		}
		return url.PathEscape(v)
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("httpclient: unresolved path parameters %v in %q", missing, b.urlTemplate)
	}

	base, rawQuery, hasQuery := strings.Cut(resolved, "?")
	var sb strings.Builder
	sb.WriteString(base)
	for _, m := range b.matrix {
		sb.WriteByte(';')
		sb.WriteString(url.PathEscape(m.Name))
		sb.WriteByte('=')
		sb.WriteString(url.PathEscape(m.Value))
	}

	query := rawQuery
	if len(b.query) > 0 {
		if query != "" {
			query += "&"
		}
		query += EncodePairs(b.query, b.encoding)
	}
	if hasQuery || query != "" {
		sb.WriteByte('?')
		sb.WriteString(query)
	}

	if _, err := url.Parse(sb.String()); err != nil {
		return "", fmt.Errorf("httpclient: invalid request url: %w", err)
	}
	return sb.String(), nil
}
