package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const claimsKey = "auth.claims"

func ClaimsFromContext(c *gin.Context) (Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return Claims{}, false
	}
	claims, ok := v.(Claims)
	return claims, ok
}

// Middleware rejects requests without a valid bearer token carrying role.
// An empty role accepts any valid token.
func Middleware(j JWT, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := bearerToken(c.GetHeader("Authorization"))
		if tok == "" {
			abort(c, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims, err := j.Verify(tok)
		if err != nil {
			abort(c, http.StatusUnauthorized, "invalid token")
			return
		}
		if role != "" && claims.Role != role {
			abort(c, http.StatusForbidden, "insufficient role")
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"code": status, "message": message})
}

func bearerToken(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	parts := strings.SplitN(v, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
