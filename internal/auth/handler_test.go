package auth_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/autosales/internal/auth"
	"github.com/odyssey-erp/autosales/internal/shared"
)

type brokenVerifier struct{}

func (brokenVerifier) Verify(string) (auth.Claims, error) {
	return auth.Claims{}, errors.Join(shared.ErrAuthorityUnavailable, errors.New("jwks fetch failed"))
}

func newRouter(v auth.TokenVerifier) http.Handler {
	r := chi.NewRouter()
	r.Route("/auth", auth.NewHandler(nil, v).MountRoutes)
	return r
}

func TestAuthenticateStatusCodes(t *testing.T) {
	v := newVerifier(t)
	expired := validClaims()
	expired["exp"] = fixedNow.Add(-time.Minute).Unix()

	cases := []struct {
		name     string
		verifier auth.TokenVerifier
		header   string
		want     int
	}{
		{"missing", v, "", http.StatusUnauthorized},
		{"not bearer", v, "Basic abc", http.StatusUnauthorized},
		{"malformed", v, "Bearer nope", http.StatusUnauthorized},
		{"expired", v, "Bearer " + signToken(t, expired), http.StatusUnauthorized},
		{"authority down", brokenVerifier{}, "Bearer x.y.z", http.StatusServiceUnavailable},
		{"valid", v, "Bearer " + signToken(t, validClaims()), http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		res := httptest.NewRecorder()
		newRouter(tc.verifier).ServeHTTP(res, req)
		if res.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d (%s)", tc.name, tc.want, res.Code, res.Body.String())
		}
	}
}

func TestMeReturnsClaims(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "bearer "+signToken(t, validClaims()))
	res := httptest.NewRecorder()
	newRouter(newVerifier(t)).ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var claims auth.Claims
	if err := json.Unmarshal(res.Body.Bytes(), &claims); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if claims.Subject != "user-1" || !claims.HasRole(shared.RoleCustomer) {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestIntrospect(t *testing.T) {
	expired := validClaims()
	expired["exp"] = fixedNow.Add(-time.Minute).Unix()
	foreign := validClaims()
	foreign["iss"] = "http://other/realms/x"

	cases := []struct {
		token  string
		active bool
		reason string
	}{
		{signToken(t, validClaims()), true, ""},
		{signToken(t, expired), false, "expired"},
		{signToken(t, foreign), false, "invalid_issuer"},
		{"garbage", false, "malformed"},
	}
	router := newRouter(newVerifier(t))
	for _, tc := range cases {
		body, _ := json.Marshal(map[string]string{"token": tc.token})
		req := httptest.NewRequest(http.MethodPost, "/auth/introspect", strings.NewReader(string(body)))
		res := httptest.NewRecorder()
		router.ServeHTTP(res, req)
		if res.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", res.Code)
		}
		var out struct {
			Active bool         `json:"active"`
			Reason string       `json:"reason"`
			Claims *auth.Claims `json:"claims"`
		}
		if err := json.Unmarshal(res.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if out.Active != tc.active || out.Reason != tc.reason {
			t.Fatalf("token %q: got active=%v reason=%q", tc.reason, out.Active, out.Reason)
		}
		if tc.active && out.Claims == nil {
			t.Fatalf("expected claims for active token")
		}
	}
}

func TestIntrospectRequiresToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/auth/introspect", strings.NewReader(`{}`))
	res := httptest.NewRecorder()
	newRouter(newVerifier(t)).ServeHTTP(res, req)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}
