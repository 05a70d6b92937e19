package ratelimit

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveKey(t *testing.T) {
	anon := DeriveKey("10.0.0.1", "")
	assert.Equal(t, AdmissionKey("ip:10.0.0.1"), anon)

	token := "eyJhbGciOiJSUzI1NiJ9.secret.sig"
	authed := DeriveKey("10.0.0.1", token)
	assert.True(t, strings.HasPrefix(string(authed), "ip:10.0.0.1:tok:"))
	assert.Len(t, strings.TrimPrefix(string(authed), "ip:10.0.0.1:tok:"), fingerprintLen)
	assert.NotContains(t, string(authed), token)
	assert.NotContains(t, string(authed), "secret")

	assert.Equal(t, authed, DeriveKey("10.0.0.1", token))
	assert.NotEqual(t, authed, DeriveKey("10.0.0.1", token+"x"))
	assert.NotEqual(t, authed, DeriveKey("10.0.0.2", token))
}

func TestClientAddr(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.0.2.7:51234"
	assert.Equal(t, "192.0.2.7", ClientAddr(req))

	req.RemoteAddr = "192.0.2.7"
	assert.Equal(t, "192.0.2.7", ClientAddr(req))

	req.RemoteAddr = "[2001:db8::1]:443"
	assert.Equal(t, "2001:db8::1", ClientAddr(req))
}
