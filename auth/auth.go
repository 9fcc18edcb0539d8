package auth

import (
	"context"
	"encoding/base64"

	"github.com/kbukum/restkit/httpclient"
)

// Token is an authorization credential computed for one request. It is
// sent as the Authorization header value "<Scheme> <Value>".
type Token struct {
	Scheme string
	Value  string
}

// String returns the header value.
func (t Token) String() string {
	if t.Scheme == "" {
		return t.Value
	}
	return t.Scheme + " " + t.Value
}

// Authorization computes request credentials. Implementations must be safe
// for concurrent use; Refresh may run while other calls are authorizing.
//
// params holds every signable parameter of the request: the URL query
// pairs followed by any parameters extracted from the body.
type Authorization interface {
	Authorize(ctx context.Context, verb, url, charset string, params []httpclient.Pair) (Token, error)
	Refresh(ctx context.Context) error
}

// StaticAuthorization always returns the same token.
type StaticAuthorization struct {
	Token Token
}

var _ Authorization = StaticAuthorization{}

// Basic returns a StaticAuthorization for HTTP basic credentials.
func Basic(user, password string) StaticAuthorization {
	return StaticAuthorization{Token: Token{
		Scheme: "Basic",
		Value:  base64.StdEncoding.EncodeToString([]byte(user + ":" + password)),
	}}
}

// Bearer returns a StaticAuthorization for a fixed bearer token.
func Bearer(token string) StaticAuthorization {
	return StaticAuthorization{Token: Token{Scheme: "Bearer", Value: token}}
}

func (s StaticAuthorization) Authorize(context.Context, string, string, string, []httpclient.Pair) (Token, error) {
	return s.Token, nil
}

func (StaticAuthorization) Refresh(context.Context) error { return nil }

// AuthorizationFunc adapts a function to Authorization. Refresh is a no-op.
type AuthorizationFunc func(ctx context.Context, verb, url, charset string, params []httpclient.Pair) (Token, error)

func (f AuthorizationFunc) Authorize(ctx context.Context, verb, url, charset string, params []httpclient.Pair) (Token, error) {
	return f(ctx, verb, url, charset, params)
}

func (AuthorizationFunc) Refresh(context.Context) error { return nil }
