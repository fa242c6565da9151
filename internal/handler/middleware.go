package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xenking/storefront/internal/auth"
)

// userIDKey is the gin context key under which the authenticated userId is
// stored by RequireAuth.
const userIDKey = "userID"

// RequireAuth validates the Authorization bearer token and stores the
// authenticated userId in the request context. Every cart and order handler
// reads the user identity from here and never from request input.
func RequireAuth(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			respondError(c, http.StatusUnauthorized, "missing bearer token")
			return
		}

		userID, err := tokens.Verify(token)
		if err != nil {
			respondError(c, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

// currentUserID returns the authenticated userId set by RequireAuth.
func currentUserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}
