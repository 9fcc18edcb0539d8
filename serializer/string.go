package serializer

import (
	"encoding"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"time"
)

// String formats scalars as plain text. It is the default serializer for
// every non-body destination.
type String struct{}

var _ Codec = String{}

func (String) ContentType() string { return "text/plain" }

func (String) Serialize(v any, cs string, w io.Writer) error {
	s, err := Format(v)
	if err != nil {
		return err
	}
	ew, err := encodingWriter(w, cs)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(ew, s); err != nil {
		return err
	}
	return ew.Close()
}

// Deserialize parses the whole body into a scalar target.
func (String) Deserialize(_ string, cs string, r io.Reader, target any) error {
	dr, err := decodingReader(r, cs)
	if err != nil {
		return err
	}
	data, err := io.ReadAll(dr)
	if err != nil {
		return err
	}
	return Parse(string(data), target)
}

// Format renders v as text the way it travels in a URL, header or form field.
func Format(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case bool:
		return strconv.FormatBool(x), nil
	case time.Time:
		return x.Format(time.RFC3339), nil
	case time.Duration:
		return x.String(), nil
	case encoding.TextMarshaler:
		b, err := x.MarshalText()
		return string(b), err
	case fmt.Stringer:
		return x.String(), nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return "", nil
		}
		return Format(rv.Elem().Interface())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 32), nil
	case reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), nil
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), nil
	}
	return "", fmt.Errorf("serializer: cannot format %T as text", v)
}

// Parse sets the value pointed to by target from text.
func Parse(s string, target any) error {
	switch t := target.(type) {
	case *string:
		*t = s
		return nil
	case *[]byte:
		*t = []byte(s)
		return nil
	case *time.Time:
		v, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return err
		}
		*t = v
		return nil
	case *time.Duration:
		v, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		*t = v
		return nil
	case encoding.TextUnmarshaler:
		return t.UnmarshalText([]byte(s))
	}

	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("serializer: target must be a non-nil pointer, got %T", target)
	}
	ev := rv.Elem()
	switch ev.Kind() {
	case reflect.String:
		ev.SetString(s)
	case reflect.Bool:
		v, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}
		ev.SetBool(v)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v, err := strconv.ParseInt(s, 10, ev.Type().Bits())
		if err != nil {
			return err
		}
		ev.SetInt(v)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v, err := strconv.ParseUint(s, 10, ev.Type().Bits())
		if err != nil {
			return err
		}
		ev.SetUint(v)
	case reflect.Float32, reflect.Float64:
		v, err := strconv.ParseFloat(s, ev.Type().Bits())
		if err != nil {
			return err
		}
		ev.SetFloat(v)
	default:
		return fmt.Errorf("serializer: cannot parse text into %T", target)
	}
	return nil
}
