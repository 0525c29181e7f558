package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"netqa/internal/model"
	"netqa/internal/pkg/jwtutil"
	"netqa/internal/transport/http/response"
)

const (
	ContextUserIDKey   = "user_id"
	ContextUsernameKey = "username"
)

// UserResolver checks that the token subject still resolves to a stored
// user. A valid signature over a deleted user is not an identity.
type UserResolver interface {
	GetUserByID(id uint) (*model.User, error)
}

func AuthJWT(secret string, users UserResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader == "" {
			response.Error(c, 401, response.CodeUnauthorized, "missing authorization header")
			c.Abort()
			return
		}

		const prefix = "Bearer "
		if !strings.HasPrefix(authHeader, prefix) {
			response.Error(c, 401, response.CodeUnauthorized, "invalid authorization scheme")
			c.Abort()
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, prefix))
		claims, err := jwtutil.ParseToken(secret, token)
		if err != nil {
			if errors.Is(err, jwtutil.ErrTokenExpired) {
				response.Error(c, 401, response.CodeTokenExpired, "token expired")
			} else {
				response.Error(c, 401, response.CodeUnauthorized, "invalid token")
			}
			c.Abort()
			return
		}

		user, err := users.GetUserByID(claims.UserID)
		if err != nil || user == nil {
			response.Error(c, 401, response.CodeUnauthorized, "token subject not found")
			c.Abort()
			return
		}

		c.Set(ContextUserIDKey, user.ID)
		c.Set(ContextUsernameKey, user.Username)
		c.Next()
	}
}
