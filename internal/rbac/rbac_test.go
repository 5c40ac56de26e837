package rbac_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mind-engage/courseratings/internal/rbac"
)

func TestCheckerHas(t *testing.T) {
	c := rbac.NewChecker(nil)
	assert.True(t, c.Has(rbac.RoleAdmin, rbac.PermRatingsImport))
	assert.True(t, c.Has(rbac.RoleEditor, rbac.PermRatingsImport))
	assert.False(t, c.Has(rbac.RoleViewer, rbac.PermRatingsImport))
	assert.False(t, c.Has("nobody", rbac.PermEventsView))

	wild := rbac.NewChecker(map[string][]string{"ops": {"ratings:*"}})
	assert.True(t, wild.Has("ops", "ratings:import"))
	assert.False(t, wild.Has("ops", "snapshots:write"))

	assert.True(t, rbac.KnownRole(rbac.RoleViewer))
	assert.False(t, rbac.KnownRole("root"))
}

func TestRequire(t *testing.T) {
	h := rbac.Require(rbac.PermRatingsImport)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := map[string]int{
		"":              http.StatusForbidden,
		rbac.RoleViewer: http.StatusForbidden,
		rbac.RoleEditor: http.StatusNoContent,
		rbac.RoleAdmin:  http.StatusNoContent,
	}
	for role, want := range cases {
		req := httptest.NewRequest(http.MethodPost, "/ratings/import", nil)
		if role != "" {
			req = req.WithContext(rbac.WithRole(context.Background(), role))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, role)
	}
}
