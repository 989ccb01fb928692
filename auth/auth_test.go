package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Somnusochi/auto-novel/am"
	"github.com/Somnusochi/auto-novel/errors"
)

func newTestManager(t *testing.T) *JWTManager {
	t.Helper()
	cfg := am.DefaultConfig()
	cfg.Auth.JWTSecret = "0123456789abcdef0123456789abcdef"
	m, err := NewJWTManager(cfg)
	require.NoError(t, err)
	return m
}

func TestRoleOrdering(t *testing.T) {
	assert.True(t, RoleAdmin.AtLeast(RoleMaintainer))
	assert.True(t, RoleMaintainer.AtLeast(RoleMaintainer))
	assert.False(t, RoleTrusted.AtLeast(RoleMaintainer))
	assert.False(t, Role("root").AtLeast(RoleNormal))

	role, err := ParseRole(" Maintainer ")
	require.NoError(t, err)
	assert.Equal(t, RoleMaintainer, role)

	_, err = ParseRole("superuser")
	assert.True(t, errors.IsInvalidRequestError(err))
}

func TestUserHelpers(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	u := &User{Username: "alice", Role: RoleTrusted, CreatedAt: created}

	assert.False(t, u.IsElevated())
	assert.Equal(t, 72*time.Hour, u.AccountAge(created.Add(72*time.Hour)))

	var anonymous *User
	assert.False(t, anonymous.IsElevated())
}

func TestJWTRoundTrip(t *testing.T) {
	m := newTestManager(t)
	created := time.Now().Add(-30 * 24 * time.Hour).Truncate(time.Second)

	token, err := m.GenerateToken(User{Username: "alice", Role: RoleMaintainer, CreatedAt: created})
	require.NoError(t, err)

	user, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, RoleMaintainer, user.Role)
	assert.True(t, created.Equal(user.CreatedAt))
}

func TestJWTRejects(t *testing.T) {
	m := newTestManager(t)

	t.Run("expired", func(t *testing.T) {
		issued := time.Now().Add(-2 * m.ttl)
		m.now = func() time.Time { return issued }
		token, err := m.GenerateToken(User{Username: "bob", Role: RoleNormal, CreatedAt: issued})
		require.NoError(t, err)
		m.now = time.Now

		_, err = m.ValidateToken(token)
		assert.True(t, errors.IsUnauthorizedError(err))
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := newTestManager(t)
		other.secret = []byte("another-secret-another-secret!!!")
		token, err := other.GenerateToken(User{Username: "eve", Role: RoleAdmin, CreatedAt: time.Now()})
		require.NoError(t, err)

		_, err = m.ValidateToken(token)
		assert.True(t, errors.IsUnauthorizedError(err))
	})

	t.Run("none algorithm", func(t *testing.T) {
		claims := JWTClaims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "eve", Issuer: m.issuer},
			Role:             RoleAdmin,
			AccountCreatedAt: jwt.NewNumericDate(time.Now()),
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = m.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("unknown role", func(t *testing.T) {
		_, err := m.GenerateToken(User{Username: "eve", Role: "root", CreatedAt: time.Now()})
		assert.Error(t, err)
	})
}

func TestMiddleware(t *testing.T) {
	m := newTestManager(t)
	mw := NewMiddleware(m, zap.NewNop().Sugar())
	token, err := m.GenerateToken(User{Username: "alice", Role: RoleNormal, CreatedAt: time.Now()})
	require.NoError(t, err)

	var seen *User
	echo := func(w http.ResponseWriter, r *http.Request) {
		seen = UserFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}

	tests := []struct {
		name     string
		prepare  func(r *http.Request)
		require  bool
		wantCode int
		wantUser string
	}{
		{"bearer header", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }, false, http.StatusNoContent, "alice"},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: CookieName, Value: token}) }, false, http.StatusNoContent, "alice"},
		{"query param", func(r *http.Request) { r.URL.RawQuery = "token=" + token }, false, http.StatusNoContent, "alice"},
		{"anonymous optional", func(r *http.Request) {}, false, http.StatusNoContent, ""},
		{"garbage optional", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, false, http.StatusNoContent, ""},
		{"anonymous required", func(r *http.Request) {}, true, http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/sakura", nil)
			tt.prepare(req)
			rec := httptest.NewRecorder()

			handler := mw.OptionalAuth(echo)
			if tt.require {
				handler = mw.RequireAuth(echo)
			}
			handler(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantUser == "" {
				assert.Nil(t, seen)
			} else {
				require.NotNil(t, seen)
				assert.Equal(t, tt.wantUser, seen.Username)
			}
		})
	}
}
