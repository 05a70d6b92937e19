package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTable(t *testing.T, def string, routes string) *PolicyTable {
	t.Helper()
	limit, window, err := ParseRate(def)
	require.NoError(t, err)
	parsed, err := ParseRoutes(routes)
	require.NoError(t, err)
	table, err := NewPolicyTable(Policy{Limit: limit, Window: window}, parsed)
	require.NoError(t, err)
	return table
}

func TestResolvePrecedence(t *testing.T) {
	table := mustTable(t, "100/60s", "/sales=30/60s,/sales/reports=5/60s,/auth/login=5/60s")

	exact := table.Resolve("/sales")
	assert.Equal(t, "/sales", exact.Pattern)
	assert.EqualValues(t, 30, exact.Limit)

	// longest prefix first
	assert.Equal(t, "/sales/reports", table.Resolve("/sales/reports/2024").Pattern)
	assert.Equal(t, "/sales", table.Resolve("/sales/123").Pattern)

	def := table.Resolve("/vehicles")
	assert.Equal(t, DefaultPolicyID, def.ID)
	assert.EqualValues(t, 100, def.Limit)
}

func TestResolveExactBeatsLongerPrefix(t *testing.T) {
	table := mustTable(t, "100/60s", "/a=1/60s,/a/b=2/60s,/a/b/c=3/60s")
	assert.EqualValues(t, 2, table.Resolve("/a/b").Limit)
	assert.EqualValues(t, 3, table.Resolve("/a/b/c/d").Limit)
	assert.EqualValues(t, 1, table.Resolve("/a/x").Limit)
}

func TestResolvePrefixTieIsLexicographic(t *testing.T) {
	table := mustTable(t, "100/60s", "/b=2/60s,/a=1/60s")
	routes := table.Routes()
	require.Len(t, routes, 2)
	assert.Equal(t, "/a", routes[0].Pattern)
	assert.Equal(t, "/b", routes[1].Pattern)
}

func TestParseRate(t *testing.T) {
	limit, window, err := ParseRate("5/60s")
	require.NoError(t, err)
	assert.EqualValues(t, 5, limit)
	assert.Equal(t, time.Minute, window)

	limit, window, err = ParseRate("10/30")
	require.NoError(t, err)
	assert.EqualValues(t, 10, limit)
	assert.Equal(t, 30*time.Second, window)

	for _, raw := range []string{"", "5", "x/60s", "5/abc"} {
		_, _, err := ParseRate(raw)
		assert.Error(t, err, raw)
	}
}

func TestNewPolicyTableRejectsInvalid(t *testing.T) {
	_, err := NewPolicyTable(Policy{Limit: 0, Window: time.Minute}, nil)
	assert.Error(t, err)

	_, err = NewPolicyTable(Policy{Limit: 1, Window: 1500 * time.Millisecond}, nil)
	assert.Error(t, err)

	_, err = NewPolicyTable(Policy{Limit: 1, Window: time.Minute}, []Policy{
		{Pattern: "/a", Limit: 1, Window: time.Minute},
		{Pattern: "/a", Limit: 2, Window: time.Minute},
	})
	assert.Error(t, err)

	_, err = ParseRoutes("/a:5/60s")
	assert.Error(t, err)
}
