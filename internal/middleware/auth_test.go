package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key"

func signToken(t *testing.T, claims *JWTClaims, secret string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func validClaims(role string) *JWTClaims {
	return &JWTClaims{
		UserID:   uuid.New().String(),
		Username: "cashier1",
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func protectedRouter(roles ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := []gin.HandlerFunc{JWTAuth(testSecret)}
	if len(roles) > 0 {
		handlers = append(handlers, RequireRole(roles...))
	}
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": GetClaims(c).Username})
	})
	r.GET("/protected", handlers...)
	return r
}

func request(r *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuthAcceptsValidToken(t *testing.T) {
	r := protectedRouter()
	token := signToken(t, validClaims(RoleStaff), testSecret)

	w := request(r, token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "cashier1")
}

func TestJWTAuthRejectsMissingHeader(t *testing.T) {
	w := request(protectedRouter(), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuthRejectsWrongSecret(t *testing.T) {
	token := signToken(t, validClaims(RoleStaff), "some-other-secret")

	w := request(protectedRouter(), token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuthRejectsExpiredToken(t *testing.T) {
	claims := validClaims(RoleStaff)
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	token := signToken(t, claims, testSecret)

	w := request(protectedRouter(), token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRoleEnforcesList(t *testing.T) {
	r := protectedRouter(RoleSupervisor, RoleAdmin)

	w := request(r, signToken(t, validClaims(RoleStaff), testSecret))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = request(r, signToken(t, validClaims(RoleSupervisor), testSecret))
	assert.Equal(t, http.StatusOK, w.Code)

	w = request(r, signToken(t, validClaims(RoleAdmin), testSecret))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestActorIDParsesUserID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	id := uuid.New()
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Set(ClaimsKey, &JWTClaims{UserID: id.String(), Role: RoleStaff})

	got := ActorID(c)
	require.NotNil(t, got)
	assert.Equal(t, id, *got)

	c2, _ := gin.CreateTestContext(httptest.NewRecorder())
	c2.Set(ClaimsKey, &JWTClaims{UserID: "not-a-uuid", Role: RoleStaff})
	assert.Nil(t, ActorID(c2))
}
