package httpclient

import (
	"io"
	"net/http"
	"sync"

	"golang.org/x/net/html/charset"

	"github.com/kbukum/restkit/serializer"
)

// Response is a received response. Its body is a single-owner resource;
// Close is idempotent and releases the underlying connection.
type Response struct {
	// StatusCode is the HTTP status code.
	StatusCode int
	// Header holds the response headers.
	Header http.Header

	body     io.ReadCloser
	once     sync.Once
	closeErr error
}

// NewResponse wraps a status, headers and body. A nil body reads as empty.
func NewResponse(status int, header http.Header, body io.ReadCloser) *Response {
	if header == nil {
		header = make(http.Header)
	}
	if body == nil {
		body = http.NoBody
	}
	return &Response{StatusCode: status, Header: header, body: body}
}

// IsSuccess returns true if the status code is 2xx.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// ContentType returns the full Content-Type header value.
func (r *Response) ContentType() string {
	return r.Header.Get("Content-Type")
}

// MediaType returns the Content-Type without parameters.
func (r *Response) MediaType() string {
	return serializer.MediaType(r.ContentType())
}

// Charset returns the charset named by the Content-Type, or fallback.
func (r *Response) Charset(fallback string) string {
	if cs := serializer.Charset(r.ContentType()); cs != "" {
		return cs
	}
	return fallback
}

// Stream returns the raw body. Closing the stream closes the response.
func (r *Response) Stream() io.ReadCloser {
	return &responseBody{Reader: r.body, resp: r}
}

// Reader returns the body decoded to UTF-8 using the charset of the
// Content-Type, sniffing the content when none is declared. Closing the
// reader closes the response.
func (r *Response) Reader() (io.ReadCloser, error) {
	cr, err := charset.NewReader(r.body, r.ContentType())
	if err != nil {
		return nil, err
	}
	return &responseBody{Reader: cr, resp: r}, nil
}

// Bytes reads the whole body and closes the response.
func (r *Response) Bytes() ([]byte, error) {
	data, err := io.ReadAll(r.body)
	if cerr := r.Close(); err == nil {
		err = cerr
	}
	return data, err
}

// Close releases the body. Calls after the first return the first result.
func (r *Response) Close() error {
	r.once.Do(func() {
		r.closeErr = r.body.Close()
	})
	return r.closeErr
}

type responseBody struct {
	io.Reader
	resp *Response
}

func (b *responseBody) Close() error {
	return b.resp.Close()
}
