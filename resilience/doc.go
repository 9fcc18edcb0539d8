// Package resilience provides the fault-tolerance primitives restkit uses
// around remote calls.
//
//   - Backoff, Sleep and Retry: exponential backoff used by retry handlers
//   - CircuitBreaker: fails fast once an end-point keeps failing
//   - Bulkhead: caps concurrent in-flight requests
//   - RateLimiter: token bucket over golang.org/x/time/rate
//
// httpclient.Adapter composes them around each send:
//
//	rl.Wait(ctx)
//	done, err := cb.Allow()
//	release, err := bh.Acquire(ctx)
//	resp, err := exchange(req)   // release runs when resp is closed
//	done(err)
package resilience
