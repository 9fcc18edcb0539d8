// Package jwt signs requests with a short-lived JWT whose "qsh" claim is a
// hash of the canonical request, binding the token to the verb, path and
// parameters it was issued for.
package jwt

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/kbukum/restkit/auth"
	"github.com/kbukum/restkit/errors"
	"github.com/kbukum/restkit/httpclient"
)

// Claims are the claims of a request token.
type Claims struct {
	gojwt.RegisteredClaims
	QSH string `json:"qsh"`
}

// Authorization issues one JWT per request.
type Authorization struct {
	cfg Config
	now func() time.Time
}

var _ auth.Authorization = (*Authorization)(nil)

// New creates an Authorization from cfg.
func New(cfg Config) (*Authorization, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Authorization{cfg: cfg, now: time.Now}, nil
}

func (a *Authorization) Authorize(_ context.Context, verb, rawURL, _ string, params []httpclient.Pair) (auth.Token, error) {
	qsh, err := QueryStringHash(verb, rawURL, params)
	if err != nil {
		return auth.Token{}, errors.Signing(err)
	}
	now := a.now()
	claims := Claims{
		RegisteredClaims: gojwt.RegisteredClaims{
			Issuer:    a.cfg.Issuer,
			IssuedAt:  gojwt.NewNumericDate(now),
			ExpiresAt: gojwt.NewNumericDate(now.Add(a.cfg.TTL)),
		},
		QSH: qsh,
	}
	signed, err := gojwt.NewWithClaims(a.cfg.signingMethod(), claims).SignedString(a.cfg.signKey())
	if err != nil {
		return auth.Token{}, errors.Signing(fmt.Errorf("sign jwt: %w", err))
	}
	return auth.Token{Scheme: a.cfg.Scheme, Value: signed}, nil
}

// Refresh is a no-op: every request gets a fresh token.
func (a *Authorization) Refresh(context.Context) error { return nil }

// CanonicalRequest returns VERB&path&params where params are sorted by
// name, values of a repeated name are sorted and joined with ',', and all
// components are percent-encoded.
func CanonicalRequest(verb, rawURL string, params []httpclient.Pair) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}

	byName := make(map[string][]string)
	for _, p := range params {
		if p.Name == "jwt" {
			continue
		}
		byName[p.Name] = append(byName[p.Name], p.Value)
	}
	names := make([]string, 0, len(byName))
	for n := range byName {
		names = append(names, n)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, n := range names {
		values := byName[n]
		sort.Strings(values)
		for i, v := range values {
			values[i] = percentEncode(v)
		}
		parts = append(parts, percentEncode(n)+"="+strings.Join(values, ","))
	}
	return strings.ToUpper(verb) + "&" + path + "&" + strings.Join(parts, "&"), nil
}

// QueryStringHash is the hex SHA-256 of CanonicalRequest.
func QueryStringHash(verb, rawURL string, params []httpclient.Pair) (string, error) {
	c, err := CanonicalRequest(verb, rawURL, params)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(c))
	return hex.EncodeToString(sum[:]), nil
}

func percentEncode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
