package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sia-enrollment-engine/internal/models"
	appErrors "github.com/noah-isme/sia-enrollment-engine/pkg/errors"
)

type validatorStub struct {
	claims *models.JWTClaims
	err    error
	token  string
}

func (v *validatorStub) ValidateToken(token string) (*models.JWTClaims, error) {
	v.token = token
	return v.claims, v.err
}

func jwtRouter(v TokenValidator, seen **models.JWTClaims) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/", JWT(v), func(c *gin.Context) {
		if value, ok := c.Get(ContextUserKey); ok {
			*seen = value.(*models.JWTClaims)
		}
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestJWTMiddleware(t *testing.T) {
	cases := []struct {
		name   string
		header string
		stub   *validatorStub
		status int
	}{
		{"missing header", "", &validatorStub{}, http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", &validatorStub{}, http.StatusUnauthorized},
		{"no token", "Bearer", &validatorStub{}, http.StatusUnauthorized},
		{"rejected token", "Bearer bad", &validatorStub{err: appErrors.Clone(appErrors.ErrUnauthorized, "token expired")}, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var seen *models.JWTClaims
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			jwtRouter(tc.stub, &seen).ServeHTTP(w, req)

			assert.Equal(t, tc.status, w.Code)
			assert.Nil(t, seen)
		})
	}
}

func TestJWTMiddlewareStoresClaims(t *testing.T) {
	stub := &validatorStub{claims: &models.JWTClaims{UserID: "u-1", Role: models.RoleStudent, StudentID: "s1"}}
	var seen *models.JWTClaims
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer tok-123")
	w := httptest.NewRecorder()
	jwtRouter(stub, &seen).ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "tok-123", stub.token)
	require.NotNil(t, seen)
	assert.Equal(t, "s1", seen.StudentID)
}
