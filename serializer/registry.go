package serializer

import (
	"mime"
	"strings"
	"sync"
)

// Registry maps media types to deserializers. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	byType   map[string]Deserializer
	fallback Deserializer
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byType: make(map[string]Deserializer)}
}

// DefaultRegistry returns a registry with the built-in codecs.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("application/json", JSON{})
	r.Register("text/json", JSON{})
	r.Register("application/xml", XML{})
	r.Register("text/xml", XML{})
	r.Register("application/yaml", YAML{})
	r.Register("application/x-yaml", YAML{})
	r.Register("text/yaml", YAML{})
	r.Register("text/plain", String{})
	r.Register("application/octet-stream", Bytes{})
	return r
}

// Register binds a media type (parameters ignored) to d.
func (r *Registry) Register(mediaType string, d Deserializer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byType[MediaType(mediaType)] = d
}

// SetFallback sets the deserializer used when no media type matches.
func (r *Registry) SetFallback(d Deserializer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = d
}

// Lookup finds the deserializer for a Content-Type value. Structured
// syntax suffixes (+json, +xml, +yaml) resolve to their base codec.
func (r *Registry) Lookup(contentType string) (Deserializer, bool) {
	mt := MediaType(contentType)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if d, ok := r.byType[mt]; ok {
		return d, true
	}
	if i := strings.LastIndexByte(mt, '+'); i >= 0 {
		suffix := mt[i+1:]
		for _, base := range []string{"application/" + suffix, "text/" + suffix} {
			if d, ok := r.byType[base]; ok {
				return d, true
			}
		}
	}
	if r.fallback != nil {
		return r.fallback, true
	}
	return nil, false
}

// MediaType returns the lower-cased media type of a Content-Type value
// without parameters.
func MediaType(contentType string) string {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		return mt
	}
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

// Charset returns the charset parameter of a Content-Type value, or "".
func Charset(contentType string) string {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return params["charset"]
}
