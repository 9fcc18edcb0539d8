package auth

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/kbukum/restkit/errors"
	"github.com/kbukum/restkit/httpclient"
	"github.com/kbukum/restkit/resilience"
)

// SessionHandleAttribute names the token attribute passed to
// OAuthenticator.RefreshAccessToken.
const SessionHandleAttribute = "oauth_session_handle"

// OAuthToken is an OAuth1 access token. Treat it as immutable: refresh
// replaces the whole value.
type OAuthToken struct {
	Token      string
	Secret     string
	Attributes map[string]string
}

// Attribute returns the named extra attribute, or "".
func (t *OAuthToken) Attribute(name string) string {
	if t == nil {
		return ""
	}
	return t.Attributes[name]
}

// WithAttribute returns a copy of t with the attribute set.
func (t OAuthToken) WithAttribute(name, value string) *OAuthToken {
	attrs := maps.Clone(t.Attributes)
	if attrs == nil {
		attrs = make(map[string]string)
	}
	attrs[name] = value
	t.Attributes = attrs
	return &t
}

// OAuthenticator computes OAuth1 protocol parameters. The signature
// algorithm lives behind this interface.
type OAuthenticator interface {
	// Sign returns the oauth_* parameters, including oauth_signature, for
	// a request carrying params.
	Sign(ctx context.Context, token *OAuthToken, verb, url string, params []httpclient.Pair) ([]httpclient.Pair, error)
	// RefreshAccessToken exchanges token for a new access token.
	RefreshAccessToken(ctx context.Context, token *OAuthToken, sessionHandle string) (*OAuthToken, error)
}

// OAuthorization signs requests with the OAuth scheme. The access token is
// read once per call and replaced atomically by Refresh, so a call always
// signs with one consistent token.
type OAuthorization struct {
	oauth OAuthenticator
	token atomic.Pointer[OAuthToken]
	mu    sync.Mutex
	retry *resilience.RetryConfig
}

var _ Authorization = (*OAuthorization)(nil)

// OAuthOption configures an OAuthorization.
type OAuthOption func(*OAuthorization)

// WithRefreshRetry retries failed token exchanges with backoff. Without
// it Refresh makes a single attempt.
func WithRefreshRetry(cfg resilience.RetryConfig) OAuthOption {
	return func(o *OAuthorization) {
		o.retry = &cfg
	}
}

// NewOAuthorization creates an OAuthorization starting from token.
func NewOAuthorization(oauth OAuthenticator, token *OAuthToken, opts ...OAuthOption) (*OAuthorization, error) {
	if oauth == nil {
		return nil, errors.Validation("oauth: authenticator is required")
	}
	if token == nil {
		return nil, errors.Validation("oauth: token is required")
	}
	o := &OAuthorization{oauth: oauth}
	for _, opt := range opts {
		opt(o)
	}
	o.token.Store(token)
	return o, nil
}

// Current returns the token in use.
func (o *OAuthorization) Current() *OAuthToken {
	return o.token.Load()
}

// Authorize signs the request and returns the OAuth header token, whose
// value has the form k1="v1",k2="v2".
func (o *OAuthorization) Authorize(ctx context.Context, verb, url, _ string, params []httpclient.Pair) (Token, error) {
	oauthParams, err := o.oauth.Sign(ctx, o.token.Load(), verb, url, params)
	if err != nil {
		return Token{}, errors.Signing(err)
	}
	return Token{Scheme: "OAuth", Value: JoinQuoted(oauthParams)}, nil
}

// Refresh exchanges the current token for a new one. Concurrent refreshes
// are serialized; readers are never blocked.
func (o *OAuthorization) Refresh(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	cur := o.token.Load()
	exchange := func() (*OAuthToken, error) {
		return o.oauth.RefreshAccessToken(ctx, cur, cur.Attribute(SessionHandleAttribute))
	}
	var next *OAuthToken
	var err error
	if o.retry != nil {
		next, err = resilience.Retry(ctx, *o.retry, exchange)
	} else {
		next, err = exchange()
	}
	if err != nil {
		return errors.Signing(fmt.Errorf("refresh access token: %w", err))
	}
	if next == nil {
		return errors.Signing(fmt.Errorf("refresh access token: authenticator returned no token"))
	}
	o.token.Store(next)
	return nil
}

// JoinQuoted formats pairs as name="value" joined by commas.
func JoinQuoted(pairs []httpclient.Pair) string {
	var sb strings.Builder
	for i, p := range pairs {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(p.Name)
		sb.WriteString(`="`)
		sb.WriteString(p.Value)
		sb.WriteByte('"')
	}
	return sb.String()
}
