// README: Bearer authentication; resolves the caller's principal once per request.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"moto/internal/modules/identity"
	"moto/internal/types"
)

const principalKey = "moto.principal"

// Auth verifies the bearer token and stores the principal on the context.
// Websocket upgrades may pass the token as ?token= since browsers cannot set
// headers on the handshake.
func Auth(verifier identity.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.Request)
		if !ok {
			abort(c, http.StatusUnauthorized, "authentication required")
			return
		}
		p, err := verifier.Verify(c.Request.Context(), raw)
		if err != nil {
			abort(c, http.StatusUnauthorized, "invalid token")
			return
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

// RequireRole rejects callers whose role is not in roles. Mount after Auth.
func RequireRole(roles ...types.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := CallerPrincipal(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "authentication required")
			return
		}
		for _, r := range roles {
			if p.Role == r {
				c.Next()
				return
			}
		}
		abort(c, http.StatusForbidden, "access denied for role "+string(p.Role))
	}
}

func CallerPrincipal(c *gin.Context) (types.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return types.Principal{}, false
	}
	p, ok := v.(types.Principal)
	return p, ok
}

func CallerUID(c *gin.Context) types.ID {
	p, _ := CallerPrincipal(c)
	return p.ID
}

func CallerRole(c *gin.Context) types.Role {
	p, _ := CallerPrincipal(c)
	return p.Role
}

func bearerToken(r *http.Request) (string, bool) {
	if h := r.Header.Get("Authorization"); h != "" {
		token, found := strings.CutPrefix(h, "Bearer ")
		token = strings.TrimSpace(token)
		return token, found && token != ""
	}
	if websocket.IsWebSocketUpgrade(r) {
		if token := r.URL.Query().Get("token"); token != "" {
			return token, true
		}
	}
	return "", false
}

func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
