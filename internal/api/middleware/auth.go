// Package middleware holds the gin middleware chain.
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/wavelens/gradient/internal/model"
	"github.com/wavelens/gradient/internal/service"
	"github.com/wavelens/gradient/pkg/constants"
	"github.com/wavelens/gradient/pkg/responses"
)

const (
	ContextUser      = "user"
	ContextUserID    = "user_id"
	ContextTokenType = "token_type"
)

// Auth resolves the Authorization header, session token or API key, and
// stores the user in the request context.
func Auth(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(constants.HeaderAuthorization)
		if !strings.HasPrefix(header, constants.HeaderBearerPrefix) {
			responses.Error(c, responses.ErrUnauthorized)
			c.Abort()
			return
		}
		token := strings.TrimPrefix(header, constants.HeaderBearerPrefix)

		user, tokenType, err := auth.VerifyToken(token)
		if err != nil {
			responses.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUser, user)
		c.Set(ContextUserID, user.ID)
		c.Set(ContextTokenType, tokenType)
		c.Next()
	}
}

// CurrentUser returns the authenticated user, or nil outside the auth
// chain.
func CurrentUser(c *gin.Context) *model.User {
	if v, ok := c.Get(ContextUser); ok {
		if user, ok := v.(*model.User); ok {
			return user
		}
	}
	return nil
}

// CurrentUserID returns the authenticated user's ID.
func CurrentUserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}
