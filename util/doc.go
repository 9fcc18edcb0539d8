// Package util provides small generic helpers shared across restkit packages.
//
// It includes pointer helpers used by the optional facet structs, value
// coalescing, and timeout parsing for property values.
package util
