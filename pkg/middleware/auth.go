package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/artur-silva-empresa/Texdex/pkg/errors"
	"github.com/artur-silva-empresa/Texdex/pkg/logging"
)

// ContextKeyPrincipal is where Authenticate stores the verified caller
const ContextKeyPrincipal = "principal"

// Principal is the authenticated caller of a request
type Principal struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	// Sector is the production sector a viewer may annotate, or "all".
	Sector string `json:"sector"`
}

// TokenVerifier validates a bearer token and returns its principal
type TokenVerifier interface {
	Verify(token string) (*Principal, error)
}

// Authenticate requires a valid bearer token. EventSource clients cannot set
// headers, so a token query parameter is accepted as a fallback.
func Authenticate(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			token = c.Query("access_token")
		}
		if token == "" {
			AbortWithAppError(c, errors.ErrUnauthorized(""))
			return
		}

		principal, err := verifier.Verify(token)
		if err != nil {
			AbortWithAppError(c, errors.ErrUnauthorized("invalid or expired token"))
			return
		}

		c.Set(ContextKeyPrincipal, principal)
		c.Request = c.Request.WithContext(logging.ContextWithUser(c.Request.Context(), principal.Username))
		c.Next()
	}
}

// RequireRole rejects callers whose role is not in roles
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(c *gin.Context) {
		p := GetPrincipal(c)
		if p == nil {
			AbortWithAppError(c, errors.ErrUnauthorized(""))
			return
		}
		if !allowed[p.Role] {
			AbortWithAppError(c, errors.ErrForbidden("role "+p.Role+" may not perform this action"))
			return
		}
		c.Next()
	}
}

// GetPrincipal returns the authenticated caller, or nil
func GetPrincipal(c *gin.Context) *Principal {
	v, ok := c.Get(ContextKeyPrincipal)
	if !ok {
		return nil
	}
	p, _ := v.(*Principal)
	return p
}

func bearerToken(header string) string {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
