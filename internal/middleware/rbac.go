package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sia-enrollment-engine/internal/models"
	appErrors "github.com/noah-isme/sia-enrollment-engine/pkg/errors"
	"github.com/noah-isme/sia-enrollment-engine/pkg/response"
)

// CurrentUser returns the claims stored by JWT, or nil for unauthenticated requests.
func CurrentUser(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil
	}
	claims, _ := value.(*models.JWTClaims)
	return claims
}

// RequireRoles lets the request through only when the caller holds one of roles.
// SUPERADMIN is accepted wherever ADMIN is.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles)+1)
	for _, r := range roles {
		allowed[r] = struct{}{}
		if r == models.RoleAdmin {
			allowed[models.RoleSuperAdmin] = struct{}{}
		}
	}
	return func(c *gin.Context) {
		claims := CurrentUser(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.Clonef(appErrors.ErrForbidden, "role %s may not perform this operation", claims.Role))
			c.Abort()
			return
		}
		c.Next()
	}
}
