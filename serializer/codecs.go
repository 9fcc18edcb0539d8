package serializer

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// JSON encodes bodies with encoding/json.
type JSON struct{}

var _ Codec = JSON{}

func (JSON) ContentType() string    { return "application/json" }
func (JSON) Destinations() []string { return []string{"BODY", "FORM", "MULTIPART"} }

func (JSON) Serialize(v any, cs string, w io.Writer) error {
	ew, err := encodingWriter(w, cs)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(ew).Encode(v); err != nil {
		return err
	}
	return ew.Close()
}

func (JSON) Deserialize(_ string, cs string, r io.Reader, target any) error {
	dr, err := decodingReader(r, cs)
	if err != nil {
		return err
	}
	if err := json.NewDecoder(dr).Decode(target); err != nil && err != io.EOF {
		return fmt.Errorf("serializer: decode json: %w", err)
	}
	return nil
}

// XML encodes bodies with encoding/xml.
type XML struct{}

var _ Codec = XML{}

func (XML) ContentType() string    { return "application/xml" }
func (XML) Destinations() []string { return []string{"BODY", "FORM", "MULTIPART"} }

func (XML) Serialize(v any, cs string, w io.Writer) error {
	ew, err := encodingWriter(w, cs)
	if err != nil {
		return err
	}
	if err := xml.NewEncoder(ew).Encode(v); err != nil {
		return err
	}
	return ew.Close()
}

func (XML) Deserialize(_ string, cs string, r io.Reader, target any) error {
	dr, err := decodingReader(r, cs)
	if err != nil {
		return err
	}
	if err := xml.NewDecoder(dr).Decode(target); err != nil && err != io.EOF {
		return fmt.Errorf("serializer: decode xml: %w", err)
	}
	return nil
}

// YAML encodes bodies with gopkg.in/yaml.v3.
type YAML struct{}

var _ Codec = YAML{}

func (YAML) ContentType() string    { return "application/yaml" }
func (YAML) Destinations() []string { return []string{"BODY", "FORM", "MULTIPART"} }

func (YAML) Serialize(v any, cs string, w io.Writer) error {
	ew, err := encodingWriter(w, cs)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(ew)
	if err := enc.Encode(v); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return ew.Close()
}

func (YAML) Deserialize(_ string, cs string, r io.Reader, target any) error {
	dr, err := decodingReader(r, cs)
	if err != nil {
		return err
	}
	if err := yaml.NewDecoder(dr).Decode(target); err != nil && err != io.EOF {
		return fmt.Errorf("serializer: decode yaml: %w", err)
	}
	return nil
}

// Bytes passes raw bodies through untouched. Charset is ignored.
type Bytes struct{}

var _ Codec = Bytes{}

func (Bytes) ContentType() string    { return "application/octet-stream" }
func (Bytes) Destinations() []string { return []string{"BODY", "MULTIPART"} }

func (Bytes) Serialize(v any, _ string, w io.Writer) error {
	switch x := v.(type) {
	case []byte:
		_, err := w.Write(x)
		return err
	case string:
		_, err := io.WriteString(w, x)
		return err
	case io.Reader:
		_, err := io.Copy(w, x)
		return err
	}
	return fmt.Errorf("serializer: cannot write %T as raw bytes", v)
}

func (Bytes) Deserialize(_ string, _ string, r io.Reader, target any) error {
	switch t := target.(type) {
	case *[]byte:
		data, err := io.ReadAll(r)
		if err != nil {
			return err
		}
		*t = data
		return nil
	case *bytes.Buffer:
		_, err := t.ReadFrom(r)
		return err
	case io.Writer:
		_, err := io.Copy(t, r)
		return err
	}
	return fmt.Errorf("serializer: cannot read raw bytes into %T", target)
}
