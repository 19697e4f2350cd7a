package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func protectedEcho(t *testing.T, wantID uuid.UUID, wantEmail string, called *bool) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		gotID, ok := GetUserIDFromContext(r.Context())
		require.True(t, ok)
		require.Equal(t, wantID, gotID)

		gotEmail, ok := GetUserEmailFromContext(r.Context())
		require.True(t, ok)
		require.Equal(t, wantEmail, gotEmail)

		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAuth_MissingCookie(t *testing.T) {
	t.Parallel()

	mw := NewMiddleware(newTestJWTService(t))
	called := false
	handler := mw.RequireAuth(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.False(t, called)
	require.Contains(t, rec.Body.String(), "you are not authenticated")
}

func TestRequireAuth_InvalidToken(t *testing.T) {
	t.Parallel()

	mw := NewMiddleware(newTestJWTService(t))
	called := false
	handler := mw.RequireAuth(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "garbage"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	require.False(t, called)
	require.Contains(t, rec.Body.String(), "token is not valid")
}

func TestRequireAuth_ExpiredToken(t *testing.T) {
	t.Parallel()

	svc := newTestJWTService(t)
	mw := NewMiddleware(svc)
	handler := mw.RequireAuth(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run for an expired token")
	}))

	token, err := svc.CreateToken(uuid.New(), "traveler@example.com", -time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireAuth_ValidToken(t *testing.T) {
	t.Parallel()

	svc := newTestJWTService(t)
	mw := NewMiddleware(svc)

	userID := uuid.New()
	called := false
	handler := mw.RequireAuth(protectedEcho(t, userID, "traveler@example.com", &called))

	token, err := svc.CreateToken(userID, "traveler@example.com", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, called)
}

func TestRequireAuth_MalformedSubject(t *testing.T) {
	t.Parallel()

	secret := []byte("test-jwt-secret")
	svc, err := NewJWTService(secret)
	require.NoError(t, err)
	mw := NewMiddleware(svc)

	// A correctly signed token whose subject is not a UUID.
	raw := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "not-a-uuid",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	token, err := raw.SignedString(secret)
	require.NoError(t, err)

	handler := mw.RequireAuth(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run for a malformed subject")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
}
