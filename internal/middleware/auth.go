package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/harentsoaR/testmanager-api/internal/apperr"
	"github.com/harentsoaR/testmanager-api/internal/auth"
	"github.com/harentsoaR/testmanager-api/internal/respond"
)

const identityKey = "identity"

// AuthMiddleware resolves the bearer token and stores the caller identity in
// the context for handlers to use.
func AuthMiddleware(resolver *auth.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := resolver.Resolve(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			respond.Error(c, err)
			return
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

// RequireAdmin rejects callers that are not admins. It must run after
// AuthMiddleware.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := Identity(c)
		if !ok {
			respond.Error(c, apperr.Unauthenticatedf("access token not provided"))
			return
		}
		if !id.IsAdmin {
			respond.Error(c, apperr.Forbiddenf("access restricted to administrators"))
			return
		}
		c.Next()
	}
}

// Identity returns the caller stored by AuthMiddleware.
func Identity(c *gin.Context) (*auth.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil, false
	}
	id, ok := v.(*auth.Identity)
	return id, ok && id != nil
}
