// Package controller provides the HTTP handlers of the recipebox web app:
// authentication, recipe pages and the admin panel.
package controller

import (
	"net/http"

	"github.com/recipebox/recipebox/logger"
	"github.com/recipebox/recipebox/web/locale"
	"github.com/recipebox/recipebox/web/session"

	"github.com/gin-gonic/gin"
)

// BaseController provides common functionality for all controllers, including authentication checks.
type BaseController struct{}

// checkLogin sends requests without an active session to the login page.
func (a *BaseController) checkLogin(c *gin.Context) {
	if !session.IsLogin(c) {
		session.DropLoginUser(c)
		if err := session.AddFlash(c, session.FlashError, I18nWeb(c, "pages.login.toasts.loginRequired")); err != nil {
			logger.Warning("Unable to save session:", err)
		}
		c.Redirect(http.StatusFound, "/login")
		c.Abort()
	} else {
		c.Next()
	}
}

// I18nWeb retrieves an internationalized message for the web interface based on the current locale.
func I18nWeb(c *gin.Context, name string, params ...string) string {
	return locale.I18n(c, name, params...)
}
