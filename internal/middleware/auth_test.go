package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/therealutkarshpriyadarshi/multiuploader/internal/config"
)

var testAuth = NewAuthenticator(config.AuthConfig{JWTSecret: "test-secret"})

func authenticate(a *Authenticator, header string) (*httptest.ResponseRecorder, *gin.Context) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/test", nil)
	if header != "" {
		c.Request.Header.Set("Authorization", header)
	}

	a.Middleware()(c)
	return w, c
}

func TestIssueAndVerify(t *testing.T) {
	token, err := testAuth.Issue("test-user-id", "test@example.com", time.Hour)
	require.NoError(t, err)

	claims, err := testAuth.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "test-user-id", claims.UserID)
	assert.Equal(t, "test@example.com", claims.Email)
}

func TestMiddlewareRejects(t *testing.T) {
	expired, err := testAuth.Issue("u1", "u1@example.com", -time.Minute)
	require.NoError(t, err)

	foreign, err := NewAuthenticator(config.AuthConfig{JWTSecret: "other-secret"}).Issue("u1", "", time.Hour)
	require.NoError(t, err)

	noSubject, err := testAuth.Issue("", "anon@example.com", time.Hour)
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: "u1"}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	tests := []struct {
		name    string
		header  string
		message string
	}{
		{"missing header", "", "Authorization header required"},
		{"no scheme", "InvalidToken", "Invalid authorization format"},
		{"wrong scheme", "Basic dXNlcjpwYXNz", "Invalid authorization format"},
		{"empty bearer", "Bearer ", "Invalid authorization format"},
		{"garbage token", "Bearer not-a-jwt", "Invalid or expired token"},
		{"expired", "Bearer " + expired, "Invalid or expired token"},
		{"foreign signature", "Bearer " + foreign, "Invalid or expired token"},
		{"no expiry", "Bearer " + noExpiry, "Invalid or expired token"},
		{"no user id", "Bearer " + noSubject, "Invalid token claims"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, c := authenticate(testAuth, tt.header)

			assert.True(t, c.IsAborted())
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.JSONEq(t, `{"success":false,"message":"`+tt.message+`"}`, w.Body.String())
		})
	}
}

func TestMiddlewareSetsUserID(t *testing.T) {
	token, err := testAuth.Issue("test-user-id", "test@example.com", time.Hour)
	require.NoError(t, err)

	_, c := authenticate(testAuth, "Bearer "+token)

	assert.False(t, c.IsAborted())
	id, ok := GetUserID(c)
	assert.True(t, ok)
	assert.Equal(t, "test-user-id", id)
}

func TestMiddlewareChecksIssuer(t *testing.T) {
	auth := NewAuthenticator(config.AuthConfig{JWTSecret: "test-secret", Issuer: "identity"})

	token, err := auth.Issue("u1", "u1@example.com", time.Hour)
	require.NoError(t, err)
	_, c := authenticate(auth, "Bearer "+token)
	assert.False(t, c.IsAborted())

	unissued, err := testAuth.Issue("u1", "u1@example.com", time.Hour)
	require.NoError(t, err)
	w, c := authenticate(auth, "Bearer "+unissued)
	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetUserIDWithoutAuth(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	id, ok := GetUserID(c)
	assert.False(t, ok)
	assert.Empty(t, id)
}
