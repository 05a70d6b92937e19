package ratelimit

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"strings"
)

const fingerprintLen = 16

// AdmissionKey identifies a rate-limit bucket. It is opaque to callers.
type AdmissionKey string

// DeriveKey returns "ip:<addr>" for anonymous traffic and
// "ip:<addr>:tok:<fingerprint>" when a bearer token is present. The
// fingerprint is a truncated SHA-256 of the token; the token itself never
// appears in the key.
func DeriveKey(clientAddr, bearerToken string) AdmissionKey {
	key := "ip:" + clientAddr
	if bearerToken == "" {
		return AdmissionKey(key)
	}
	sum := sha256.Sum256([]byte(bearerToken))
	return AdmissionKey(key + ":tok:" + hex.EncodeToString(sum[:])[:fingerprintLen])
}

// ClientAddr returns the request's remote host without the port. Run
// chi's RealIP middleware first when the service sits behind a proxy.
func ClientAddr(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil && host != "" {
		return host
	}
	if addr == "" {
		return "unknown"
	}
	return addr
}
