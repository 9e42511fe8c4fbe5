package controller

import (
	"errors"

	"github.com/recipebox/recipebox/logger"
	"github.com/recipebox/recipebox/web/middleware"
	"github.com/recipebox/recipebox/web/service"
	"github.com/recipebox/recipebox/web/session"

	"github.com/gin-gonic/gin"
)

// AdminController serves the user administration panel.
type AdminController struct {
	BaseController

	adminService *service.UserAdminService
}

func NewAdminController(g *gin.RouterGroup, adminService *service.UserAdminService) *AdminController {
	a := &AdminController{adminService: adminService}
	a.initRouter(g)
	return a
}

func (a *AdminController) initRouter(g *gin.RouterGroup) {
	g.GET("/admin", a.checkLogin, middleware.AdminRequired(), a.index)
	// no login redirect here: a missing session is refused outright
	g.POST("/delete-user/:userId", middleware.AdminRequired(), a.deleteUser)
}

func (a *AdminController) index(c *gin.Context) {
	users, err := a.adminService.ListUsers()
	if err != nil {
		internalError(c, err)
		return
	}
	html(c, "admin.html", "pages.admin.title", gin.H{"users": users})
}

func (a *AdminController) deleteUser(c *gin.Context) {
	id, ok := paramId(c, "userId")
	if !ok {
		redirectWithFlash(c, session.FlashError, "/admin", "pages.admin.toasts.userNotFound")
		return
	}

	err := a.adminService.DeleteUser(id)
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		redirectWithFlash(c, session.FlashError, "/admin", "pages.admin.toasts.userNotFound")
	case errors.Is(err, service.ErrCannotDeleteAdmin):
		redirectWithFlash(c, session.FlashError, "/admin", "pages.admin.toasts.cannotDeleteAdmin")
	case err != nil:
		internalError(c, err)
	default:
		logger.Infof("%s deleted user %d", session.GetLoginUser(c).Username, id)
		redirectWithFlash(c, session.FlashSuccess, "/admin", "pages.admin.toasts.userDeleted")
	}
}
