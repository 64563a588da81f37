// Package federated verifies ID tokens issued by a third-party identity
// provider for sign-in.
package federated

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrNotConfigured is returned when no verification key is set.
	ErrNotConfigured = errors.New("federated sign-in not configured")
	// ErrInvalidToken covers bad signatures, wrong issuer or audience,
	// expiry and missing claims.
	ErrInvalidToken = errors.New("invalid id token")
)

// Config describes the trusted provider.
type Config struct {
	Issuer       string
	Audience     string
	PublicKeyPEM string
	HMACSecret   string
}

// Identity is what a verified token says about the user.
type Identity struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

type idTokenClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	EmailVerified *bool  `json:"email_verified,omitempty"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// Verifier checks ID token signatures and standard claims.
type Verifier struct {
	issuer   string
	audience string
	key      any
	methods  []string
	now      func() time.Time
}

// NewVerifier parses the configured key. An RSA public key takes precedence
// over an HMAC secret.
func NewVerifier(cfg Config) (*Verifier, error) {
	v := &Verifier{
		issuer:   strings.TrimSpace(cfg.Issuer),
		audience: strings.TrimSpace(cfg.Audience),
		now:      time.Now,
	}
	switch {
	case strings.TrimSpace(cfg.PublicKeyPEM) != "":
		key, err := parseRSAKey(cfg.PublicKeyPEM)
		if err != nil {
			return nil, err
		}
		v.key = key
		v.methods = []string{"RS256", "RS384", "RS512"}
	case cfg.HMACSecret != "":
		v.key = []byte(cfg.HMACSecret)
		v.methods = []string{"HS256"}
	default:
		return nil, ErrNotConfigured
	}
	return v, nil
}

func parseRSAKey(pemText string) (*rsa.PublicKey, error) {
	// Env files often carry the PEM with literal \n sequences.
	pemText = strings.ReplaceAll(strings.TrimSpace(pemText), `\n`, "\n")
	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pemText))
	if err != nil {
		return nil, fmt.Errorf("parse federated public key: %w", err)
	}
	return key, nil
}

// Verify validates raw and returns the identity it asserts.
func (v *Verifier) Verify(raw string) (*Identity, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: token is required", ErrInvalidToken)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods(v.methods),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30 * time.Second),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	var claims idTokenClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return v.key, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	email := strings.ToLower(strings.TrimSpace(claims.Email))
	if email == "" {
		return nil, fmt.Errorf("%w: email claim missing", ErrInvalidToken)
	}
	if claims.EmailVerified != nil && !*claims.EmailVerified {
		return nil, fmt.Errorf("%w: email not verified", ErrInvalidToken)
	}

	name := strings.TrimSpace(claims.Name)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}
	return &Identity{
		Subject: claims.Subject,
		Email:   email,
		Name:    name,
		Picture: claims.Picture,
	}, nil
}
