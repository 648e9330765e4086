package rbac

import (
	"context"
	"strings"
)

// Policy maps a role to its granted permission patterns. A pattern is an
// exact permission, "*", or a prefix ending in "*" such as "structure:*".
type Policy map[string][]Permission

func (p Policy) Known(role string) bool {
	_, ok := p[role]
	return ok
}

// Allows reports whether role holds at least one of perms.
func (p Policy) Allows(role string, perms ...Permission) bool {
	for _, granted := range p[role] {
		for _, want := range perms {
			if granted.covers(want) {
				return true
			}
		}
	}
	return false
}

func (granted Permission) covers(want Permission) bool {
	g := string(granted)
	if g == "*" || granted == want {
		return true
	}
	prefix, ok := strings.CutSuffix(g, "*")
	return ok && strings.HasPrefix(string(want), prefix)
}

type roleKey struct{}

func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, roleKey{}, role)
}

func RoleFromContext(ctx context.Context) string {
	s, _ := ctx.Value(roleKey{}).(string)
	return s
}
