package app

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/autosales/internal/auth"
	"github.com/odyssey-erp/autosales/internal/observability"
	"github.com/odyssey-erp/autosales/internal/ratelimit"
	"github.com/odyssey-erp/autosales/internal/rbac"
)

const testIssuer = "http://localhost:8080/realms/autosales"

func bearer(t *testing.T, roles ...string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "user-1",
		"iss":   testIssuer,
		"exp":   time.Now().Add(time.Hour).Unix(),
		"roles": roles,
	}).SignedString([]byte("unused"))
	require.NoError(t, err)
	return "Bearer " + token
}

func testConfig(t *testing.T) *Config {
	t.Helper()
	t.Setenv("RATE_DEFAULT", "100/60s")
	t.Setenv("RATE_ROUTES", "/auth/introspect=2/60s")
	t.Setenv("TOKEN_ISSUERS", testIssuer)
	cfg, err := LoadConfig()
	require.NoError(t, err)
	return cfg
}

func newTestRouter(t *testing.T, cfg *Config) http.Handler {
	t.Helper()
	verifier, err := auth.NewVerifier(cfg.TokenIssuers)
	require.NoError(t, err)
	table, err := cfg.RatePolicies()
	require.NoError(t, err)
	metrics := observability.NewMetrics()
	limiter := ratelimit.NewLimiter(table, ratelimit.NewMemoryCounter(), ratelimit.WithObserver(metrics))

	return NewRouter(RouterParams{
		Config:           cfg,
		Metrics:          metrics,
		RBAC:             rbac.Middleware{},
		RateGate:         ratelimit.NewMiddleware(limiter, nil),
		Authn:            auth.NewMiddleware(verifier, nil),
		AuthHandler:      auth.NewHandler(nil, verifier),
		RateLimitHandler: ratelimit.NewHandler(limiter, nil),
		RolesHandler:     rbac.NewRolesHandler(cfg.RoleSets()),
	})
}

func do(router http.Handler, method, path, authz, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.RemoteAddr = "203.0.113.7:4000"
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestHealthzSkipsAuthentication(t *testing.T) {
	router := newTestRouter(t, testConfig(t))
	rr := do(router, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
}

func TestFloodGuardRejectsWithoutPolicyHeaders(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateFloodLimit = 2
	router := newTestRouter(t, cfg)

	for i := 0; i < 2; i++ {
		rr := do(router, http.MethodGet, "/healthz", "", "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Empty(t, rr.Header().Get("X-RateLimit-Limit"))
	}
	rr := do(router, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Empty(t, rr.Header().Get("X-RateLimit-Limit"))
	assert.Empty(t, rr.Header().Get("X-RateLimit-Remaining"))
}

func TestMeRequiresToken(t *testing.T) {
	router := newTestRouter(t, testConfig(t))

	rr := do(router, http.MethodGet, "/auth/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "100", rr.Header().Get("X-RateLimit-Limit"))

	rr = do(router, http.MethodGet, "/auth/me", bearer(t, "CUSTOMER"), "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "user-1")
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	router := newTestRouter(t, testConfig(t))

	assert.Equal(t, http.StatusUnauthorized, do(router, http.MethodGet, "/admin/roles", "", "").Code)
	assert.Equal(t, http.StatusForbidden, do(router, http.MethodGet, "/admin/roles", bearer(t, "CUSTOMER"), "").Code)

	rr := do(router, http.MethodGet, "/admin/roles", bearer(t, "admin"), "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = do(router, http.MethodGet, "/admin/ratelimit/policies", bearer(t, "ADMIN"), "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "/auth/introspect")
}

func TestRoutePolicyRejectsOverLimit(t *testing.T) {
	router := newTestRouter(t, testConfig(t))
	body := `{"token":"garbage"}`

	for i := 0; i < 2; i++ {
		rr := do(router, http.MethodPost, "/auth/introspect", "", body)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"active":false`)
	}
	rr := do(router, http.MethodPost, "/auth/introspect", "", body)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))

	// /auth/me runs under the default policy and is unaffected.
	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/auth/me", bearer(t, "CUSTOMER"), "").Code)
}

func TestMetricsRecordRateDecisions(t *testing.T) {
	router := newTestRouter(t, testConfig(t))
	do(router, http.MethodGet, "/auth/me", "", "")

	rr := do(router, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `autosales_ratelimit_decisions_total{outcome="allowed",policy="default"} 1`)
}

func TestAppServicesLimitMountedGroups(t *testing.T) {
	cfg := testConfig(t)
	cfg.AppServices = []string{ServiceAuth}
	router := newTestRouter(t, cfg)

	assert.Equal(t, http.StatusNotFound, do(router, http.MethodGet, "/admin/roles", bearer(t, "ADMIN"), "").Code)
	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/auth/me", bearer(t, "ADMIN"), "").Code)
}
