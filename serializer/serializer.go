package serializer

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"
)

// Serializer writes a value as a request entity.
type Serializer interface {
	// ContentType is the media type of the produced bytes, without charset.
	ContentType() string
	// Serialize writes v to w encoded in the given charset.
	Serialize(v any, charset string, w io.Writer) error
}

// Deserializer reads a response entity into target, which must be a pointer.
type Deserializer interface {
	Deserialize(contentType, charset string, r io.Reader, target any) error
}

// Capable is implemented by serializers that only support some request
// destinations. Destination names are upper case, e.g. "BODY" or "QUERY".
type Capable interface {
	Destinations() []string
}

// Codec is a Serializer and Deserializer for the same media type.
type Codec interface {
	Serializer
	Deserializer
}

// DefaultCharset is used when neither request nor response name one.
const DefaultCharset = "utf-8"

func isUTF8(cs string) bool {
	switch strings.ToLower(strings.TrimSpace(cs)) {
	case "", "utf-8", "utf8":
		return true
	}
	return false
}

// encodingWriter returns a writer converting UTF-8 text written to it into
// cs. Close flushes pending bytes; it never closes w.
func encodingWriter(w io.Writer, cs string) (io.WriteCloser, error) {
	if isUTF8(cs) {
		return nopCloser{w}, nil
	}
	enc, _ := charset.Lookup(cs)
	if enc == nil {
		return nil, fmt.Errorf("serializer: unsupported charset %q", cs)
	}
	return transform.NewWriter(w, enc.NewEncoder()), nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// decodingReader returns a reader producing UTF-8 from r encoded in cs.
func decodingReader(r io.Reader, cs string) (io.Reader, error) {
	if isUTF8(cs) {
		return r, nil
	}
	dr, err := charset.NewReaderLabel(cs, r)
	if err != nil {
		return nil, fmt.Errorf("serializer: unsupported charset %q: %w", cs, err)
	}
	return dr, nil
}
