package app

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func adminProtected(secret string) (http.Handler, *bool) {
	reached := false
	handler := RequireAdminSecret(secret, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusNoContent)
	}))
	return handler, &reached
}

func TestRequireAdminSecretMissingHeader(t *testing.T) {
	handler, reached := adminProtected("s3cret")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/users", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.False(t, *reached)
}

func TestRequireAdminSecretMismatch(t *testing.T) {
	handler, reached := adminProtected("s3cret")

	req := httptest.NewRequest(http.MethodPost, "/users", nil)
	req.Header.Set("X-Admin-Secret", "wrong")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.False(t, *reached)
}

func TestRequireAdminSecretMatch(t *testing.T) {
	handler, reached := adminProtected("s3cret")

	req := httptest.NewRequest(http.MethodPost, "/users", nil)
	req.Header.Set("X-Admin-Secret", "s3cret")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.True(t, *reached)
}
