// Package serializer converts parameter values to request bodies and
// response bodies back to values.
//
// A Serializer writes one value in a given charset; a Deserializer reads
// one value from a response stream into a target pointer. The String
// serializer doubles as the formatter used for URL, query, header and
// cookie destinations.
//
// Registry maps response media types to deserializers:
//
//	reg := serializer.DefaultRegistry()
//	d, ok := reg.Lookup("application/vnd.api+json; charset=utf-8") // JSON
package serializer
