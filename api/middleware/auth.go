package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// UsernameHeader выставляет шлюз после проверки токена
const UsernameHeader = "X-Username"

// UsernameKey - ключ в gin.Context с username вызывающего
const UsernameKey = "username"

// IdentityMiddleware берёт уже аутентифицированный username из заголовка шлюза.
// Без заголовка запрос отклоняется.
func IdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		username := strings.TrimSpace(c.GetHeader(UsernameHeader))
		if username == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required: provide " + UsernameHeader + " header"})
			c.Abort()
			return
		}
		c.Set(UsernameKey, username)
		c.Next()
	}
}

// OptionalIdentityMiddleware - то же, но без заголовка запрос проходит анонимно
func OptionalIdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if username := strings.TrimSpace(c.GetHeader(UsernameHeader)); username != "" {
			c.Set(UsernameKey, username)
		}
		c.Next()
	}
}
