package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/recipebox/recipebox/web/locale"
	"github.com/recipebox/recipebox/web/session"
)

// AdminRequired lets only admin sessions through. Everything else,
// including a missing session, gets 403.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := session.GetLoginUser(c)
		if user == nil || !user.IsAdmin {
			c.String(http.StatusForbidden, locale.I18n(c, "permissionDenied"))
			c.Abort()
			return
		}
		c.Next()
	}
}
