package httpclient

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/kbukum/restkit/serializer"
)

// Entity writes a request body.
type Entity interface {
	io.WriterTo
	// ContentType is the full Content-Type header value, parameters included.
	ContentType() string
}

// FormEntity is an application/x-www-form-urlencoded body.
type FormEntity struct {
	params  []Pair
	charset string
}

// NewFormEntity creates a form body from params encoded in cs.
func NewFormEntity(params []Pair, cs string) *FormEntity {
	return &FormEntity{params: append([]Pair(nil), params...), charset: defaultCharset(cs)}
}

// Params returns a copy of the form parameters.
func (e *FormEntity) Params() []Pair {
	return append([]Pair(nil), e.params...)
}

func (e *FormEntity) ContentType() string {
	return "application/x-www-form-urlencoded; charset=" + e.charset
}

func (e *FormEntity) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, EncodePairs(e.params, e.charset))
	return int64(n), err
}

// Part is one multipart/form-data part. A part with a Reader is sent as a
// file; otherwise Value is sent as text/plain.
type Part struct {
	Name        string
	Value       string
	FileName    string
	ContentType string
	Reader      io.Reader
}

// IsFile reports whether the part carries file content.
func (p Part) IsFile() bool {
	return p.Reader != nil || p.FileName != ""
}

// MultipartEntity is a multipart/form-data body. File readers are consumed
// by the first write.
type MultipartEntity struct {
	parts    []Part
	boundary string
	charset  string
}

// NewMultipartEntity creates a multipart body with a random boundary.
func NewMultipartEntity(parts []Part, cs string) *MultipartEntity {
	return &MultipartEntity{
		parts:    append([]Part(nil), parts...),
		boundary: multipart.NewWriter(io.Discard).Boundary(),
		charset:  defaultCharset(cs),
	}
}

// Parts returns a copy of the parts.
func (e *MultipartEntity) Parts() []Part {
	return append([]Part(nil), e.parts...)
}

func (e *MultipartEntity) ContentType() string {
	return "multipart/form-data; boundary=" + e.boundary
}

func (e *MultipartEntity) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	mw := multipart.NewWriter(cw)
	if err := mw.SetBoundary(e.boundary); err != nil {
		return cw.n, err
	}

	for _, p := range e.parts {
		header := make(textproto.MIMEHeader)
		if p.IsFile() {
			header.Set("Content-Disposition",
				fmt.Sprintf(`form-data; name="%s"; filename="%s"`, escapeQuotes(p.Name), escapeQuotes(p.FileName)))
			ct := p.ContentType
			if ct == "" {
				ct = "application/octet-stream"
			}
			header.Set("Content-Type", ct)
		} else {
			header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"`, escapeQuotes(p.Name)))
			header.Set("Content-Type", "text/plain; charset="+e.charset)
		}

		part, err := mw.CreatePart(header)
		if err != nil {
			return cw.n, err
		}
		switch {
		case p.Reader != nil:
			_, err = io.Copy(part, p.Reader)
		default:
			_, err = io.WriteString(part, p.Value)
		}
		if err != nil {
			return cw.n, err
		}
	}

	err := mw.Close()
	return cw.n, err
}

// SerializingEntity writes a value through a serializer.
type SerializingEntity struct {
	value      any
	serializer serializer.Serializer
	charset    string
}

// NewSerializingEntity creates a body that serializes v with s in cs.
func NewSerializingEntity(v any, s serializer.Serializer, cs string) *SerializingEntity {
	return &SerializingEntity{value: v, serializer: s, charset: defaultCharset(cs)}
}

func (e *SerializingEntity) ContentType() string {
	ct := e.serializer.ContentType()
	if _, raw := e.serializer.(serializer.Bytes); raw {
		return ct
	}
	return ct + "; charset=" + e.charset
}

func (e *SerializingEntity) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	err := e.serializer.Serialize(e.value, e.charset, cw)
	return cw.n, err
}

// BytesEntity is a body held in memory.
type BytesEntity struct {
	data        []byte
	contentType string
}

// NewBytesEntity creates an in-memory body.
func NewBytesEntity(data []byte, contentType string) *BytesEntity {
	return &BytesEntity{data: data, contentType: contentType}
}

func (e *BytesEntity) ContentType() string { return e.contentType }

func (e *BytesEntity) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(e.data)
	return int64(n), err
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

func defaultCharset(cs string) string {
	if strings.TrimSpace(cs) == "" {
		return serializer.DefaultCharset
	}
	return cs
}

// escapeQuotes replaces special characters in header values.
func escapeQuotes(s string) string {
	var buf bytes.Buffer
	for _, b := range []byte(s) {
		if b == '"' || b == '\\' {
			buf.WriteByte('\\')
		}
		buf.WriteByte(b)
	}
	return buf.String()
}
