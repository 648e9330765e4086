package rbac

import (
	"encoding/json"
	"net/http"
)

// Known reports whether role exists in DefaultPolicy.
func Known(role string) bool { return DefaultPolicy.Known(role) }

// Require lets the request through when the caller's role holds any of perms.
func Require(perms ...Permission) func(http.Handler) http.Handler {
	return gate(func(r *http.Request) bool {
		return DefaultPolicy.Allows(RoleFromContext(r.Context()), perms...)
	})
}

// RequireOwnerOr admits the owner of the addressed resource, or anyone whose
// role holds perm.
func RequireOwnerOr(perm Permission, isOwner func(r *http.Request) bool) func(http.Handler) http.Handler {
	return gate(func(r *http.Request) bool {
		return isOwner(r) || DefaultPolicy.Allows(RoleFromContext(r.Context()), perm)
	})
}

func gate(allow func(r *http.Request) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !allow(r) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "FORBIDDEN", "message": "forbidden"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
