package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/interviewbook/internal/rbac"
)

func echoIdentity() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(SubjectFromContext(r.Context()) + "|" + rbac.RoleFromContext(r.Context())))
	})
}

func TestJWTMiddlewareHeaderAndCookie(t *testing.T) {
	a := NewAuthService("test-secret", "fate_token")
	tok, err := a.IssueJWT("u42", rbac.RoleUser)
	require.NoError(t, err)
	h := JWTMiddleware(a)(echoIdentity())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u42|user", rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "fate_token", Value: tok})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "u42|user", rec.Body.String())
}

func TestJWTMiddlewareRejects(t *testing.T) {
	a := NewAuthService("test-secret", "fate_token")
	other := NewAuthService("other-secret", "fate_token")
	forged, err := other.IssueJWT("u1", rbac.RoleAdmin)
	require.NoError(t, err)
	unknownRole, err := a.IssueJWT("u1", "moderator")
	require.NoError(t, err)
	expired, err := a.IssueJWTWithTTL("u1", rbac.RoleUser, -time.Minute)
	require.NoError(t, err)

	h := JWTMiddleware(a)(echoIdentity())
	for name, header := range map[string]string{
		"missing":      "",
		"forged":       "Bearer " + forged,
		"unknown role": "Bearer " + unknownRole,
		"expired":      "Bearer " + expired,
		"garbage":      "Bearer abc.def",
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, name)
	}
}

func TestLoginAdmin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	a := NewAuthService("test-secret", "fate_token")
	h := LoginHandler(a, LoginConfig{AdminUser: "admin", AdminPassHash: string(hash)})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":"admin","password":"s3cret"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"role":"admin"`)
	require.Len(t, rec.Result().Cookies(), 1)
	c, err := a.Parse(rec.Result().Cookies()[0].Value)
	require.NoError(t, err)
	assert.Equal(t, "admin", c.Sub)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":"admin","password":"nope"}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// no dev users unless enabled
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":"alice"}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginDevUser(t *testing.T) {
	a := NewAuthService("test-secret", "")
	h := LoginHandler(a, LoginConfig{AdminUser: "admin", DevUsers: true})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":" alice "}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"role":"user"`)
	assert.Empty(t, rec.Result().Cookies())

	// without an admin hash the admin name is just another dev user
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":"admin"}`)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"role":"user"`)
}
