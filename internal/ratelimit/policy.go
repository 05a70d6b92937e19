// Package ratelimit implements fixed-window admission control keyed by
// client identity and route.
package ratelimit

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DefaultPolicyID names the policy applied when no route pattern matches.
const DefaultPolicyID = "default"

// Policy limits a route to Limit requests per Window.
type Policy struct {
	ID      string
	Pattern string
	Limit   int64
	Window  time.Duration
}

func (p Policy) String() string {
	return fmt.Sprintf("%s=%d/%s", p.Pattern, p.Limit, p.Window)
}

// PolicyTable resolves exactly one policy per route.
type PolicyTable struct {
	def      Policy
	exact    map[string]Policy
	prefixes []Policy
}

// NewPolicyTable validates the policies and builds the lookup structures.
// A pattern matches its route exactly and, failing any exact match, every
// route it is a string prefix of.
func NewPolicyTable(def Policy, routes []Policy) (*PolicyTable, error) {
	def.ID = DefaultPolicyID
	def.Pattern = "*"
	if err := validatePolicy(def); err != nil {
		return nil, fmt.Errorf("ratelimit: default policy: %w", err)
	}
	t := &PolicyTable{
		def:   def,
		exact: make(map[string]Policy, len(routes)),
	}
	for _, p := range routes {
		p.Pattern = strings.TrimSpace(p.Pattern)
		if p.Pattern == "" {
			return nil, fmt.Errorf("ratelimit: empty route pattern")
		}
		if err := validatePolicy(p); err != nil {
			return nil, fmt.Errorf("ratelimit: route %q: %w", p.Pattern, err)
		}
		if _, dup := t.exact[p.Pattern]; dup {
			return nil, fmt.Errorf("ratelimit: route %q configured twice", p.Pattern)
		}
		if p.ID == "" {
			p.ID = "route:" + p.Pattern
		}
		t.exact[p.Pattern] = p
		t.prefixes = append(t.prefixes, p)
	}
	// Prefix candidates are tried longest pattern first, ties broken
	// lexicographically, so the most specific prefix always wins.
	sort.Slice(t.prefixes, func(i, j int) bool {
		a, b := t.prefixes[i].Pattern, t.prefixes[j].Pattern
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return a < b
	})
	return t, nil
}

// Resolve returns the policy governing route: exact match, then prefix
// match, then the default.
func (t *PolicyTable) Resolve(route string) Policy {
	if p, ok := t.exact[route]; ok {
		return p
	}
	for _, p := range t.prefixes {
		if strings.HasPrefix(route, p.Pattern) {
			return p
		}
	}
	return t.def
}

// Default returns the fallback policy.
func (t *PolicyTable) Default() Policy { return t.def }

// Routes lists route policies in prefix resolution order.
func (t *PolicyTable) Routes() []Policy {
	out := make([]Policy, len(t.prefixes))
	copy(out, t.prefixes)
	return out
}

func validatePolicy(p Policy) error {
	if p.Limit <= 0 {
		return fmt.Errorf("limit must be positive")
	}
	if p.Window < time.Second || p.Window%time.Second != 0 {
		return fmt.Errorf("window must be a whole number of seconds")
	}
	return nil
}

// ParseRate parses "count/window", e.g. "5/60s", "100/1m" or "10/30"
// (bare numbers are seconds).
func ParseRate(raw string) (int64, time.Duration, error) {
	countPart, windowPart, ok := strings.Cut(strings.TrimSpace(raw), "/")
	if !ok {
		return 0, 0, fmt.Errorf("ratelimit: rate %q: want count/window", raw)
	}
	limit, err := strconv.ParseInt(strings.TrimSpace(countPart), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("ratelimit: rate %q: count: %w", raw, err)
	}
	windowPart = strings.TrimSpace(windowPart)
	if secs, err := strconv.ParseInt(windowPart, 10, 64); err == nil {
		return limit, time.Duration(secs) * time.Second, nil
	}
	window, err := time.ParseDuration(windowPart)
	if err != nil {
		return 0, 0, fmt.Errorf("ratelimit: rate %q: window: %w", raw, err)
	}
	return limit, window, nil
}

// ParseRoutes parses "pattern=count/window" entries separated by commas.
func ParseRoutes(raw string) ([]Policy, error) {
	var out []Policy
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		pattern, rate, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("ratelimit: route entry %q: want pattern=count/window", entry)
		}
		limit, window, err := ParseRate(rate)
		if err != nil {
			return nil, err
		}
		out = append(out, Policy{Pattern: strings.TrimSpace(pattern), Limit: limit, Window: window})
	}
	return out, nil
}
