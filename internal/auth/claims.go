package auth

import (
	"context"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the identity extracted from a bearer token.
type Claims struct {
	Subject   string   `json:"sub"`
	Username  string   `json:"username,omitempty"`
	Email     string   `json:"email,omitempty"`
	Name      string   `json:"name,omitempty"`
	Issuer    string   `json:"iss"`
	ExpiresAt int64    `json:"exp"`
	Roles     []string `json:"roles"`
}

// HasRole reports whether the claims carry role, ignoring case.
func (c Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

// tokenClaims mirrors the Keycloak access token layout.
type tokenClaims struct {
	jwt.RegisteredClaims
	PreferredUsername string `json:"preferred_username"`
	Email             string `json:"email"`
	Name              string `json:"name"`
	RealmAccess       struct {
		Roles []string `json:"roles"`
	} `json:"realm_access"`
	Roles []string `json:"roles"`
}

func (t *tokenClaims) toClaims() Claims {
	c := Claims{
		Subject:  t.Subject,
		Username: t.PreferredUsername,
		Email:    t.Email,
		Name:     t.Name,
		Issuer:   t.Issuer,
		Roles:    normalizeRoles(t.RealmAccess.Roles, t.Roles),
	}
	if t.ExpiresAt != nil {
		c.ExpiresAt = t.ExpiresAt.Unix()
	}
	return c
}

func normalizeRoles(sets ...[]string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, set := range sets {
		for _, role := range set {
			role = strings.ToUpper(strings.TrimSpace(role))
			if role == "" {
				continue
			}
			if _, ok := seen[role]; ok {
				continue
			}
			seen[role] = struct{}{}
			out = append(out, role)
		}
	}
	return out
}

type claimsKey struct{}

// ContextWithClaims stores verified claims in the context.
func ContextWithClaims(ctx context.Context, c Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// ClaimsFromContext returns claims stored by the Authenticate middleware.
func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(Claims)
	return c, ok
}
