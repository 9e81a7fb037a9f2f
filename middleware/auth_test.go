package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/pyramid-ladder/models"
	"github.com/Dosada05/pyramid-ladder/services"
)

const testSecret = "test-secret"

func protected(t *testing.T, roles ...models.UserRole) (http.Handler, *services.Actor) {
	t.Helper()
	seen := &services.Actor{}
	var h http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := GetActorFromContext(r.Context())
		require.NoError(t, err)
		*seen = actor
		w.WriteHeader(http.StatusNoContent)
	})
	if len(roles) > 0 {
		h = Authorize(roles...)(h)
	}
	return Authenticate(testSecret)(h), seen
}

func request(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestAuthenticate(t *testing.T) {
	h, seen := protected(t)
	token, err := NewToken(testSecret, 12, models.RolePlayer, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, request(token))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, services.Actor{UserID: 12, Role: models.RolePlayer}, *seen)
}

func TestAuthenticate_Rejects(t *testing.T) {
	expired, err := NewToken(testSecret, 12, models.RolePlayer, jwt.MapClaims{"exp": time.Now().Add(-time.Hour).Unix()})
	require.NoError(t, err)
	forged, err := NewToken("other-secret", 12, models.RoleAdmin, nil)
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"user_id": 12, "role": "admin"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		want  string
	}{
		{"missing", "", "Se requiere autenticación"},
		{"expired", expired, "Token inválido o expirado"},
		{"forged", forged, "Token inválido o expirado"},
		{"none", none, "Token inválido o expirado"},
		{"garbage", "abc.def.ghi", "Token inválido o expirado"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := protected(t)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, request(tt.token))
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.JSONEq(t, `{"success":false,"error":"`+tt.want+`"}`, rec.Body.String())
		})
	}
}

func TestAuthorize(t *testing.T) {
	h, _ := protected(t, models.RoleAdmin)

	player, err := NewToken(testSecret, 12, models.RolePlayer, nil)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, request(player))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	admin, err := NewToken(testSecret, 1, models.RoleAdmin, nil)
	require.NoError(t, err)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, request(admin))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestNewToken_RejectsInvalidUser(t *testing.T) {
	_, err := NewToken(testSecret, 0, models.RolePlayer, nil)
	assert.Error(t, err)
}
