// Package version reports the restkit version compiled into a binary and
// the default User-Agent derived from it.
package version
