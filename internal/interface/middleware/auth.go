package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-user-service/pkg/apperr"
	"github.com/oksasatya/go-user-service/pkg/helpers"
	"github.com/oksasatya/go-user-service/pkg/response"
)

const (
	CtxUserIDKey   = "userID"
	CtxUserRoleKey = "userRole"
)

// Auth validates the Authorization bearer token and injects the caller's id
// and role into the Gin context. Tokens are self-contained; no session store
// is consulted.
func Auth(jwt *helpers.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.AbortFail(c, apperr.New(apperr.TypeUnauthorized, "no token provided"))
			return
		}
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			response.AbortFail(c, apperr.New(apperr.TypeUnauthorized, "invalid token format"))
			return
		}
		claims, err := jwt.Parse(token)
		if err != nil {
			response.AbortFail(c, apperr.New(apperr.TypeUnauthorized, "invalid or expired token"))
			return
		}
		c.Set(CtxUserIDKey, claims.UserID)
		c.Set(CtxUserRoleKey, claims.Role)
		c.Next()
	}
}
