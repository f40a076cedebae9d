// Package auth issues and verifies stateless session tokens.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/taglink/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionValidity is how long a token stays valid after issuance.
const SessionValidity = 2 * time.Hour

// Claims carries the standard registered claims; Subject is the account username.
type Claims struct {
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 session tokens.
type Issuer struct {
	secret   []byte
	validity time.Duration
	now      func() time.Time
}

// Option configures an Issuer.
type Option func(*Issuer)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) { i.now = now }
}

// WithValidity overrides SessionValidity.
func WithValidity(d time.Duration) Option {
	return func(i *Issuer) { i.validity = d }
}

func NewIssuer(secret []byte, opts ...Option) *Issuer {
	i := &Issuer{secret: secret, validity: SessionValidity, now: time.Now}
	for _, o := range opts {
		o(i)
	}
	return i
}

// Issue returns a signed token for subject and the instant it expires.
func (i *Issuer) Issue(subject string) (string, time.Time, error) {
	now := i.now().Truncate(time.Second)
	exp := now.Add(i.validity)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	})

	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Verify checks the signature and expiry of token. A token is expired at or
// after its exp instant.
func (i *Issuer) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)

	_, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !i.now().Before(claims.ExpiresAt.Time) {
		return nil, common.ErrTokenExpired
	}
	if claims.Subject == "" {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}
