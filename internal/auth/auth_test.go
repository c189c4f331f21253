package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "test-secret"
	testIssuer = "sitedock-platform"
)

func signToken(t *testing.T, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	raw, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return raw
}

func validClaims(sub string, perms ...string) Claims {
	return Claims{
		Permissions: perms,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			Issuer:    testIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestParseValidToken(t *testing.T) {
	v := NewVerifier(testSecret, testIssuer)

	p, err := v.Parse(signToken(t, validClaims("user-1", "approvals:decide:consultant")))
	require.NoError(t, err)
	assert.Equal(t, "user-1", p.ID)
	assert.True(t, p.HasPermission("approvals:decide:consultant"))
	assert.False(t, p.HasPermission("approvals:decide:inspector"))
}

func TestParseRejectsBadTokens(t *testing.T) {
	v := NewVerifier(testSecret, testIssuer)

	expired := validClaims("user-1")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))

	wrongIssuer := validClaims("user-1")
	wrongIssuer.Issuer = "someone-else"

	noSubject := validClaims("")

	for name, raw := range map[string]string{
		"garbage":      "not-a-token",
		"expired":      signToken(t, expired),
		"wrong issuer": signToken(t, wrongIssuer),
		"no subject":   signToken(t, noSubject),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := v.Parse(raw)
			assert.Error(t, err)
		})
	}
}

func TestMiddleware(t *testing.T) {
	v := NewVerifier(testSecret, testIssuer)

	var got *Principal
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	t.Run("valid bearer", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, validClaims("user-1")))
		rec := httptest.NewRecorder()
		v.Middleware(next).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, got)
		assert.Equal(t, "user-1", got.ID)
	})

	t.Run("missing header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		v.Middleware(next).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer junk")
		rec := httptest.NewRecorder()
		v.Middleware(next).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestPrincipalFromContextMissing(t *testing.T) {
	_, err := PrincipalFromContext(context.Background())
	assert.Error(t, err)
}
