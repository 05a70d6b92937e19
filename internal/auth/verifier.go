// Package auth verifies bearer tokens issued by the identity authority and
// exposes the resulting claims to handlers.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/odyssey-erp/autosales/internal/shared"
)

// Verifier extracts and validates token claims.
//
// Signatures are NOT verified: claims are trusted once expiry and issuer
// pass. Tokens must therefore only be accepted from a trusted network path.
type Verifier struct {
	issuers map[string]struct{}
	parser  *jwt.Parser
	now     func() time.Time
}

// VerifierOption customises a Verifier.
type VerifierOption func(*Verifier)

// WithVerifierClock injects a clock.
func WithVerifierClock(now func() time.Time) VerifierOption {
	return func(v *Verifier) {
		if now != nil {
			v.now = now
		}
	}
}

// NewVerifier accepts tokens from any of issuers. Several URLs may name the
// same realm, e.g. a container hostname and a loopback address.
func NewVerifier(issuers []string, opts ...VerifierOption) (*Verifier, error) {
	v := &Verifier{
		issuers: make(map[string]struct{}, len(issuers)),
		parser:  jwt.NewParser(),
		now:     time.Now,
	}
	for _, iss := range issuers {
		iss = normalizeIssuer(iss)
		if iss != "" {
			v.issuers[iss] = struct{}{}
		}
	}
	if len(v.issuers) == 0 {
		return nil, errors.New("auth: at least one token issuer is required")
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Verify returns the token's claims. Failures wrap shared.ErrTokenMalformed,
// shared.ErrTokenExpired, shared.ErrInvalidIssuer or, for anything
// unexpected, shared.ErrAuthorityUnavailable. Expiry is checked before the
// issuer.
func (v *Verifier) Verify(token string) (claims Claims, err error) {
	defer func() {
		if r := recover(); r != nil {
			claims = Claims{}
			err = fmt.Errorf("%w: %v", shared.ErrAuthorityUnavailable, r)
		}
	}()

	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, fmt.Errorf("%w: empty token", shared.ErrTokenMalformed)
	}

	var raw tokenClaims
	if _, _, err := v.parser.ParseUnverified(token, &raw); err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) || errors.Is(err, jwt.ErrTokenUnverifiable) {
			return Claims{}, fmt.Errorf("%w: %v", shared.ErrTokenMalformed, err)
		}
		return Claims{}, fmt.Errorf("%w: %v", shared.ErrAuthorityUnavailable, err)
	}
	if raw.ExpiresAt == nil {
		return Claims{}, fmt.Errorf("%w: missing exp", shared.ErrTokenMalformed)
	}

	claims = raw.toClaims()
	if claims.ExpiresAt < v.now().Unix() {
		return Claims{}, shared.ErrTokenExpired
	}
	if _, ok := v.issuers[normalizeIssuer(claims.Issuer)]; !ok {
		return Claims{}, shared.ErrInvalidIssuer
	}
	return claims, nil
}

func normalizeIssuer(iss string) string {
	return strings.TrimRight(strings.TrimSpace(iss), "/")
}
