package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Dosada05/tournament-engine/models"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func echoUser(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := GetUserIDFromContext(r.Context())
		require.NoError(t, err)
		role, err := GetUserRoleFromContext(r.Context())
		require.NoError(t, err)
		w.Header().Set("X-User", string(role))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte{byte('0' + id)})
	})
}

func request(t *testing.T, h http.Handler, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAuthenticate(t *testing.T) {
	h := Authenticate(testSecret)(echoUser(t))

	token, err := NewToken(testSecret, 7, models.RolePlayer, nil)
	require.NoError(t, err)
	rec := request(t, h, token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "7", rec.Body.String())
	assert.Equal(t, "player", rec.Header().Get("X-User"))

	assert.Equal(t, http.StatusUnauthorized, request(t, h, "").Code)
	assert.Equal(t, http.StatusUnauthorized, request(t, h, "garbage").Code)

	forged, err := NewToken([]byte("other"), 7, models.RolePlayer, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, request(t, h, forged).Code)

	expired, err := NewToken(testSecret, 7, models.RolePlayer, jwt.MapClaims{"exp": time.Now().Add(-time.Hour).Unix()})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, request(t, h, expired).Code)

	noUser, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"role": "player"}).SignedString(testSecret)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, request(t, h, noUser).Code)
}

func TestRequireRole(t *testing.T) {
	h := Authenticate(testSecret)(RequireRole(models.RoleAdmin)(echoUser(t)))

	admin, err := NewToken(testSecret, 1, models.RoleAdmin, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, request(t, h, admin).Code)

	player, err := NewToken(testSecret, 2, models.RolePlayer, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, request(t, h, player).Code)

	unknown, err := NewToken(testSecret, 3, models.UserRole("root"), nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, request(t, h, unknown).Code)
}

func TestWithUser(t *testing.T) {
	ctx := WithUser(t.Context(), 42, models.RolePlayer)
	id, err := GetUserIDFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, 42, id)

	_, err = GetUserIDFromContext(t.Context())
	assert.Error(t, err)
}

func TestRateLimiter(t *testing.T) {
	l := NewRateLimiter(60, 2)
	clock := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return clock }

	assert.True(t, l.Allow(1))
	assert.True(t, l.Allow(1))
	assert.False(t, l.Allow(1))
	assert.True(t, l.Allow(2), "limits are per user")

	clock = clock.Add(time.Second)
	assert.True(t, l.Allow(1))

	clock = clock.Add(time.Hour)
	l.Allow(3)
	assert.NotContains(t, l.users, 1)
	assert.NotContains(t, l.users, 2)
}

func TestRateLimiter_Middleware(t *testing.T) {
	l := NewRateLimiter(60, 1)
	h := Authenticate(testSecret)(l.Middleware(echoUser(t)))
	token, err := NewToken(testSecret, 5, models.RolePlayer, nil)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, request(t, h, token).Code)
	rec := request(t, h, token)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}
