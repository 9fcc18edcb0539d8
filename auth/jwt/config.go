package jwt

import (
	"crypto/ecdsa"
	"crypto/rsa"
	"errors"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// SigningMethod names a supported JWT signing algorithm.
type SigningMethod string

const (
	HS256 SigningMethod = "HS256"
	HS384 SigningMethod = "HS384"
	HS512 SigningMethod = "HS512"
	RS256 SigningMethod = "RS256"
	RS384 SigningMethod = "RS384"
	RS512 SigningMethod = "RS512"
	ES256 SigningMethod = "ES256"
	ES384 SigningMethod = "ES384"
	ES512 SigningMethod = "ES512"
)

// Config configures request-signing JWTs.
type Config struct {
	// Issuer is the "iss" claim, typically the client key. Required.
	Issuer string `mapstructure:"issuer"`

	// Secret is the HMAC signing key (required for HS* methods).
	Secret string `mapstructure:"secret"`

	// PrivateKey is the RSA or ECDSA key (required for RS*/ES* methods).
	PrivateKey any `mapstructure:"-"`

	// Method is the signing algorithm (default: HS256).
	Method SigningMethod `mapstructure:"method"`

	// TTL is the token lifetime (default: 3m).
	TTL time.Duration `mapstructure:"ttl"`

	// Scheme is the Authorization scheme (default: JWT).
	Scheme string `mapstructure:"scheme"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.Method == "" {
		c.Method = HS256
	}
	if c.TTL <= 0 {
		c.TTL = 3 * time.Minute
	}
	if c.Scheme == "" {
		c.Scheme = "JWT"
	}
}

// Validate checks required fields for the signing method.
func (c *Config) Validate() error {
	if c.Issuer == "" {
		return errors.New("jwt: issuer is required")
	}
	switch c.Method {
	case HS256, HS384, HS512:
		if c.Secret == "" {
			return errors.New("jwt: secret is required for HMAC signing methods")
		}
	case RS256, RS384, RS512:
		if _, ok := c.PrivateKey.(*rsa.PrivateKey); !ok {
			return errors.New("jwt: private key must be *rsa.PrivateKey for RSA signing methods")
		}
	case ES256, ES384, ES512:
		if _, ok := c.PrivateKey.(*ecdsa.PrivateKey); !ok {
			return errors.New("jwt: private key must be *ecdsa.PrivateKey for ECDSA signing methods")
		}
	default:
		return errors.New("jwt: unsupported signing method: " + string(c.Method))
	}
	return nil
}

func (c *Config) signingMethod() gojwt.SigningMethod {
	if m := gojwt.GetSigningMethod(string(c.Method)); m != nil {
		return m
	}
	return gojwt.SigningMethodHS256
}

func (c *Config) signKey() any {
	switch c.Method {
	case HS256, HS384, HS512:
		return []byte(c.Secret)
	default:
		return c.PrivateKey
	}
}
