package auth

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/kbukum/restkit/errors"
	"github.com/kbukum/restkit/httpclient"
)

// BearerAuthorization sends OAuth2 access tokens from a TokenSource. The
// current token is cached and fetched again once it expires or on Refresh.
type BearerAuthorization struct {
	src   oauth2.TokenSource
	token atomic.Pointer[oauth2.Token]
	mu    sync.Mutex
}

var _ Authorization = (*BearerAuthorization)(nil)

// NewBearerAuthorization wraps src. src should fetch a new token on every
// call; caching is done here.
func NewBearerAuthorization(src oauth2.TokenSource) *BearerAuthorization {
	return &BearerAuthorization{src: src}
}

// ClientCredentials returns a BearerAuthorization using the OAuth2 client
// credentials grant.
func ClientCredentials(ctx context.Context, cfg *clientcredentials.Config) *BearerAuthorization {
	return NewBearerAuthorization(tokenSourceFunc(func() (*oauth2.Token, error) {
		return cfg.Token(ctx)
	}))
}

type tokenSourceFunc func() (*oauth2.Token, error)

func (f tokenSourceFunc) Token() (*oauth2.Token, error) { return f() }

func (b *BearerAuthorization) Authorize(context.Context, string, string, string, []httpclient.Pair) (Token, error) {
	tok := b.token.Load()
	if !tok.Valid() {
		var err error
		if tok, err = b.fetch(tok); err != nil {
			return Token{}, err
		}
	}
	return Token{Scheme: tok.Type(), Value: tok.AccessToken}, nil
}

// Refresh fetches a new token unconditionally.
func (b *BearerAuthorization) Refresh(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := b.fetchLocked()
	return err
}

// fetch replaces stale unless another caller already did.
func (b *BearerAuthorization) fetch(stale *oauth2.Token) (*oauth2.Token, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cur := b.token.Load(); cur != stale && cur.Valid() {
		return cur, nil
	}
	return b.fetchLocked()
}

func (b *BearerAuthorization) fetchLocked() (*oauth2.Token, error) {
	tok, err := b.src.Token()
	if err != nil {
		return nil, errors.Signing(fmt.Errorf("fetch oauth2 token: %w", err))
	}
	if tok == nil || tok.AccessToken == "" {
		return nil, errors.Signing(fmt.Errorf("fetch oauth2 token: empty access token"))
	}
	b.token.Store(tok)
	return tok, nil
}
