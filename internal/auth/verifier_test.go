package auth_test

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/odyssey-erp/autosales/internal/auth"
	"github.com/odyssey-erp/autosales/internal/shared"
	_ "github.com/odyssey-erp/autosales/testing"
)

const (
	realmInternal = "http://keycloak:8080/realms/autosales"
	realmLoopback = "http://localhost:8080/realms/autosales/"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("not-checked"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":                "user-1",
		"preferred_username": "jdoe",
		"email":              "jdoe@example.com",
		"name":               "John Doe",
		"iss":                realmInternal,
		"exp":                fixedNow.Add(time.Hour).Unix(),
		"realm_access":       map[string]any{"roles": []string{"customer", "offline_access"}},
		"roles":              []string{"CUSTOMER", "employee"},
	}
}

func newVerifier(t *testing.T) *auth.Verifier {
	t.Helper()
	v, err := auth.NewVerifier([]string{realmInternal, realmLoopback}, auth.WithVerifierClock(func() time.Time { return fixedNow }))
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	return v
}

func TestVerifyValidToken(t *testing.T) {
	claims, err := newVerifier(t).Verify(signToken(t, validClaims()))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != "user-1" || claims.Username != "jdoe" || claims.Email != "jdoe@example.com" || claims.Name != "John Doe" {
		t.Fatalf("unexpected identity: %+v", claims)
	}
	if claims.ExpiresAt != fixedNow.Add(time.Hour).Unix() {
		t.Fatalf("unexpected expiry %d", claims.ExpiresAt)
	}
	want := []string{"CUSTOMER", "OFFLINE_ACCESS", "EMPLOYEE"}
	if len(claims.Roles) != len(want) {
		t.Fatalf("expected roles %v, got %v", want, claims.Roles)
	}
	for i := range want {
		if claims.Roles[i] != want[i] {
			t.Fatalf("expected roles %v, got %v", want, claims.Roles)
		}
	}
	if !claims.HasRole("customer") {
		t.Fatalf("expected case-insensitive role match")
	}
}

func TestVerifyAcceptsEquivalentIssuers(t *testing.T) {
	v := newVerifier(t)
	for _, iss := range []string{realmInternal, realmInternal + "/", "http://localhost:8080/realms/autosales"} {
		c := validClaims()
		c["iss"] = iss
		if _, err := v.Verify(signToken(t, c)); err != nil {
			t.Fatalf("issuer %s: %v", iss, err)
		}
	}
}

func TestVerifyExpiryWinsOverIssuer(t *testing.T) {
	v := newVerifier(t)
	for _, iss := range []string{realmInternal, "http://evil.example.com/realms/x"} {
		c := validClaims()
		c["iss"] = iss
		c["exp"] = fixedNow.Add(-time.Second).Unix()
		_, err := v.Verify(signToken(t, c))
		if !errors.Is(err, shared.ErrTokenExpired) {
			t.Fatalf("issuer %s: expected ErrTokenExpired, got %v", iss, err)
		}
		if !errors.Is(err, shared.ErrUnauthorized) {
			t.Fatalf("expected expiry to be an unauthorized subtype")
		}
	}
}

func TestVerifyRejectsUnknownIssuer(t *testing.T) {
	c := validClaims()
	c["iss"] = "http://evil.example.com/realms/autosales"
	_, err := newVerifier(t).Verify(signToken(t, c))
	if !errors.Is(err, shared.ErrInvalidIssuer) {
		t.Fatalf("expected ErrInvalidIssuer, got %v", err)
	}
}

func TestVerifyMalformed(t *testing.T) {
	noExp := validClaims()
	delete(noExp, "exp")
	badExp := validClaims()
	badExp["exp"] = "tomorrow"

	cases := map[string]string{
		"empty":       "",
		"garbage":     "not-a-token",
		"two parts":   "abc.def",
		"bad base64":  "###.###.###",
		"missing exp": signToken(t, noExp),
		"string exp":  signToken(t, badExp),
	}
	v := newVerifier(t)
	for name, token := range cases {
		_, err := v.Verify(token)
		if !errors.Is(err, shared.ErrTokenMalformed) {
			t.Fatalf("%s: expected ErrTokenMalformed, got %v", name, err)
		}
	}
}

func TestVerifyIgnoresSignature(t *testing.T) {
	token := signToken(t, validClaims())
	tampered := token[:len(token)-4] + "AAAA"
	if _, err := newVerifier(t).Verify(tampered); err != nil {
		t.Fatalf("expected signature to be ignored, got %v", err)
	}
}

func TestNewVerifierRequiresIssuer(t *testing.T) {
	if _, err := auth.NewVerifier([]string{" ", ""}); err == nil {
		t.Fatalf("expected error for empty issuer list")
	}
}
