// Package rbac decides whether authenticated callers hold a sufficient role.
package rbac

import (
	"context"
	"fmt"
	"strings"

	"github.com/odyssey-erp/autosales/internal/auth"
	"github.com/odyssey-erp/autosales/internal/shared"
)

// ForbiddenError lists the roles that would have authorized the call. It is
// meant for logs; clients only see a generic denial.
type ForbiddenError struct {
	Required []string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("forbidden: requires any of [%s]", strings.Join(e.Required, ","))
}

func (e *ForbiddenError) Unwrap() error { return shared.ErrForbidden }

// RequireAnyRole authorizes claims holding at least one required role. An
// empty requirement admits every authenticated caller.
func RequireAnyRole(claims auth.Claims, required []string) error {
	normalized := normalizeRoles(required)
	if hasAnyRole(claims.Roles, normalized) {
		return nil
	}
	return &ForbiddenError{Required: normalized}
}

// Guard is an explicit role requirement composed around operations.
type Guard struct {
	roles []string
}

// NewGuard builds a guard requiring any of roles.
func NewGuard(roles ...string) Guard {
	return Guard{roles: normalizeRoles(roles)}
}

// Roles returns the sufficient roles.
func (g Guard) Roles() []string {
	out := make([]string, len(g.roles))
	copy(out, g.roles)
	return out
}

// Authorize checks the claims stored on ctx.
func (g Guard) Authorize(ctx context.Context) error {
	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		return shared.ErrUnauthorized
	}
	return RequireAnyRole(claims, g.roles)
}

// Protect wraps op so it only runs once g authorizes the caller.
func Protect[In, Out any](g Guard, op func(context.Context, In) (Out, error)) func(context.Context, In) (Out, error) {
	return func(ctx context.Context, in In) (Out, error) {
		if err := g.Authorize(ctx); err != nil {
			var zero Out
			return zero, err
		}
		return op(ctx, in)
	}
}

func normalizeRoles(roles []string) []string {
	unique := make(map[string]struct{}, len(roles))
	normalized := make([]string, 0, len(roles))
	for _, r := range roles {
		r = strings.TrimSpace(strings.ToUpper(r))
		if r == "" {
			continue
		}
		if _, ok := unique[r]; ok {
			continue
		}
		unique[r] = struct{}{}
		normalized = append(normalized, r)
	}
	return normalized
}

func hasAnyRole(granted []string, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(granted))
	for _, g := range granted {
		set[strings.ToUpper(g)] = struct{}{}
	}
	for _, r := range required {
		if _, ok := set[r]; ok {
			return true
		}
	}
	return false
}
