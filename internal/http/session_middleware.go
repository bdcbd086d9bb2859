package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"al-kul/internal/service"
)

const sessionClaimsKey = "session_claims"

// SessionAuthMiddleware valida el token de sesion y guarda los claims en el contexto.
func SessionAuthMiddleware(tokens *service.SessionTokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokens == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "session tokens not configured"})
			c.Abort()
			return
		}

		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing session token"})
			c.Abort()
			return
		}

		token := strings.TrimSpace(header[len("Bearer "):])
		claims, err := tokens.Parse(token)
		if err != nil {
			msg := "invalid session token"
			if errors.Is(err, service.ErrSessionTokenExpired) {
				msg = "session expired"
			}
			c.JSON(http.StatusUnauthorized, gin.H{"error": msg})
			c.Abort()
			return
		}

		c.Set(sessionClaimsKey, claims)
		c.Next()
	}
}

// GetSessionClaims obtiene los claims de sesion desde el contexto.
func GetSessionClaims(c *gin.Context) (service.SessionClaims, bool) {
	val, ok := c.Get(sessionClaimsKey)
	if !ok {
		return service.SessionClaims{}, false
	}
	claims, ok := val.(service.SessionClaims)
	return claims, ok
}
