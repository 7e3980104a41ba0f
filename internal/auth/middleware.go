package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/umthana/SungrowInverter/internal/types"
)

// SubjectKey holds the token subject in the gin context.
const SubjectKey = "subject"

// RequireScope rejects requests without a valid bearer token for scope.
func (j *JWTHandler) RequireScope(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				types.NewErrorResponse(types.ErrCodeUnauthorized, "missing authorization header", nil))
			return
		}

		// "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				types.NewErrorResponse(types.ErrCodeUnauthorized, "invalid authorization header format", nil))
			return
		}

		claims, err := j.ValidateToken(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				types.NewErrorResponse(types.ErrCodeUnauthorized, "invalid or expired token", nil))
			return
		}
		if claims.Scope != scope {
			c.AbortWithStatusJSON(http.StatusForbidden,
				types.NewErrorResponse(types.ErrCodeForbidden, "token scope does not allow this action", claims.Scope))
			return
		}

		c.Set(SubjectKey, claims.Subject)
		c.Next()
	}
}
