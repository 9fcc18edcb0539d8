package auth

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"mime/multipart"

	"golang.org/x/net/html/charset"

	"github.com/kbukum/restkit/httpclient"
	"github.com/kbukum/restkit/serializer"
)

// Extractor reads signable parameters out of an encoded request body.
type Extractor interface {
	Extract(contentType, charset string, body []byte) ([]httpclient.Pair, error)
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(contentType, charset string, body []byte) ([]httpclient.Pair, error)

func (f ExtractorFunc) Extract(contentType, charset string, body []byte) ([]httpclient.Pair, error) {
	return f(contentType, charset, body)
}

// Media types with default extractors.
const (
	MediaTypeForm      = "application/x-www-form-urlencoded"
	MediaTypeMultipart = "multipart/form-data"
)

// FormExtractor extracts url-encoded form parameters.
var FormExtractor = ExtractorFunc(func(contentType, cs string, body []byte) ([]httpclient.Pair, error) {
	if c := serializer.Charset(contentType); c != "" {
		cs = c
	}
	return httpclient.ParsePairs(string(body), cs), nil
})

// MultipartExtractor extracts the text/plain parts of a multipart body that
// carry no file name. File parts are never signed.
var MultipartExtractor = ExtractorFunc(func(contentType, cs string, body []byte) ([]httpclient.Pair, error) {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, fmt.Errorf("multipart content type: %w", err)
	}
	boundary := params["boundary"]
	if boundary == "" {
		return nil, fmt.Errorf("multipart content type: missing boundary")
	}

	var pairs []httpclient.Pair
	mr := multipart.NewReader(bytes.NewReader(body), boundary)
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return pairs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("multipart body: %w", err)
		}
		if part.FileName() != "" || !isTextPlain(part.Header.Get("Content-Type")) {
			continue
		}
		value, err := readPart(part, cs)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, httpclient.Pair{Name: part.FormName(), Value: value})
	}
})

func isTextPlain(ct string) bool {
	return ct == "" || serializer.MediaType(ct) == "text/plain"
}

func readPart(part *multipart.Part, fallback string) (string, error) {
	cs := serializer.Charset(part.Header.Get("Content-Type"))
	if cs == "" {
		cs = fallback
	}
	r := io.Reader(part)
	if cs != "" {
		var err error
		if r, err = charset.NewReaderLabel(cs, part); err != nil {
			return "", fmt.Errorf("multipart part %q: %w", part.FormName(), err)
		}
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("multipart part %q: %w", part.FormName(), err)
	}
	return string(data), nil
}

// DefaultExtractors returns the form and multipart extractors keyed by
// media type.
func DefaultExtractors() map[string]Extractor {
	return map[string]Extractor{
		MediaTypeForm:      FormExtractor,
		MediaTypeMultipart: MultipartExtractor,
	}
}
