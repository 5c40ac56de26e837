package rbac

import (
	"log/slog"
	"net/http"
)

var defaultChecker = NewChecker(nil)

// Require enforces a single permission on the role JWTMiddleware stored in
// the request context.
func Require(perm string) func(http.Handler) http.Handler {
	return defaultChecker.Require(perm)
}

func (c *Checker) Require(perm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := RoleFromContext(r.Context())
			if role == "" || !c.Has(role, perm) {
				slog.Default().Warn("Permission denied",
					slog.String("role", role),
					slog.String("perm", perm),
					slog.String("path", r.URL.Path))
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
