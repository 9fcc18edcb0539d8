// Package httpclient is the HTTP layer beneath the restkit engine: an
// immutable Request built by RequestBuilder, the Entity bodies it carries
// (form, multipart, serialized values), the single-owner Response and the
// Transport that exchanges one for the other.
//
// Adapter is the net/http Transport. It honours per-request connection and
// socket timeouts, TLS, HTTP/2 and the optional circuit breaker, rate
// limiter and bulkhead from the resilience package.
//
//	adapter, err := httpclient.New(httpclient.Config{
//	    Timeout:        30 * time.Second,
//	    CircuitBreaker: httpclient.DefaultCircuitBreakerConfig("items"),
//	})
//
//	req, err := httpclient.NewRequestBuilder("https://api.example.com/items/{id}").
//	    PathParam("id", "42").
//	    SetAccept("application/json").
//	    Build()
//
//	resp, err := adapter.Send(ctx, req)
//	if err != nil {
//	    // *httpclient.Error; non-2xx responses are buffered on Error.Response
//	}
//	defer resp.Close()
package httpclient
