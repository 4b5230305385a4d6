package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// TokenVerifier checks a session token and returns the profile id it names.
type TokenVerifier interface {
	VerifyToken(token string) (string, error)
}

// Auth resolves an optional bearer token into a profile id on the request
// context. Requests without a token fall through to the default profile;
// a token that fails verification is ignored the same way, so unauthenticated
// surfaces keep working.
func Auth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			if id, err := verifier.VerifyToken(token); err == nil {
				c.Set(profileIDKey, id)
			}
		}
		c.Next()
	}
}
