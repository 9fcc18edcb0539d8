package httpclient

import (
	"net/url"
	"strings"

	"golang.org/x/net/html/charset"
)

// Pair is a name/value parameter. Order and duplicates are significant.
type Pair struct {
	Name  string
	Value string
}

// String returns name=value without escaping.
func (p Pair) String() string {
	return p.Name + "=" + p.Value
}

// EncodePairs url-encodes pairs in order as name=value joined by '&'.
// Names and values are transcoded to cs before escaping.
func EncodePairs(pairs []Pair, cs string) string {
	var sb strings.Builder
	for i, p := range pairs {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(escapeComponent(p.Name, cs))
		sb.WriteByte('=')
		sb.WriteString(escapeComponent(p.Value, cs))
	}
	return sb.String()
}

// ParsePairs decodes an application/x-www-form-urlencoded string keeping
// parameter order. Malformed escapes are kept verbatim.
func ParsePairs(encoded, cs string) []Pair {
	var pairs []Pair
	for _, kv := range strings.Split(encoded, "&") {
		if kv == "" {
			continue
		}
		name, value, _ := strings.Cut(kv, "=")
		pairs = append(pairs, Pair{
			Name:  unescapeComponent(name, cs),
			Value: unescapeComponent(value, cs),
		})
	}
	return pairs
}

func escapeComponent(s, cs string) string {
	if !isUTF8(cs) {
		if enc, _ := charset.Lookup(cs); enc != nil {
			if t, err := enc.NewEncoder().String(s); err == nil {
				s = t
			}
		}
	}
	return url.QueryEscape(s)
}

func unescapeComponent(s, cs string) string {
	u, err := url.QueryUnescape(s)
	if err != nil {
		return s
	}
	if !isUTF8(cs) {
		if enc, _ := charset.Lookup(cs); enc != nil {
			if t, err := enc.NewDecoder().String(u); err == nil {
				u = t
			}
		}
	}
	return u
}

func isUTF8(cs string) bool {
	switch strings.ToLower(strings.TrimSpace(cs)) {
	case "", "utf-8", "utf8":
		return true
	}
	return false
}
