// Package errors defines the error taxonomy of restkit client calls.
//
// Every failure surfaced by a client is an *AppError carrying a machine-readable
// code. Transport failures keep the underlying *httpclient.Error reachable
// through errors.As so handlers can inspect the failed response.
package errors
