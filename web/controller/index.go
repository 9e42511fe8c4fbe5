package controller

import (
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/recipebox/recipebox/logger"
	"github.com/recipebox/recipebox/web/service"
	"github.com/recipebox/recipebox/web/session"

	"github.com/gin-gonic/gin"
)

// LoginForm represents the login and registration request structure.
type LoginForm struct {
	Username string `form:"username"`
	Password string `form:"password"`
}

// IndexController handles login, registration and logout.
type IndexController struct {
	BaseController

	userService   *service.UserService
	sessionMaxAge time.Duration
}

// NewIndexController creates a new IndexController and initializes its routes.
// loginLimit guards POST /login and may be nil.
func NewIndexController(g *gin.RouterGroup, userService *service.UserService, sessionMaxAge time.Duration, loginLimit gin.HandlerFunc) *IndexController {
	a := &IndexController{
		userService:   userService,
		sessionMaxAge: sessionMaxAge,
	}
	a.initRouter(g, loginLimit)
	return a
}

func (a *IndexController) initRouter(g *gin.RouterGroup, loginLimit gin.HandlerFunc) {
	g.GET("/login", a.loginPage)
	g.GET("/register", a.registerPage)
	g.GET("/logout", a.logout)

	if loginLimit != nil {
		g.POST("/login", loginLimit, a.login)
	} else {
		g.POST("/login", a.login)
	}
	g.POST("/register", a.register)
}

// loginPage always shows the form so a logged-in user can switch accounts.
func (a *IndexController) loginPage(c *gin.Context) {
	html(c, "login.html", "pages.login.title", nil)
}

func (a *IndexController) registerPage(c *gin.Context) {
	html(c, "register.html", "pages.register.title", nil)
}

// login handles user authentication and session creation.
func (a *IndexController) login(c *gin.Context) {
	var form LoginForm
	if err := c.ShouldBind(&form); err != nil {
		redirectWithFlash(c, session.FlashError, "/login", "pages.login.toasts.wrongUsernameOrPassword")
		return
	}

	safeUser := template.HTMLEscapeString(form.Username)
	user, err := a.userService.CheckUser(form.Username, form.Password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		logger.Warningf("wrong username or password for \"%s\", IP: \"%s\"", safeUser, getRemoteIp(c))
		redirectWithFlash(c, session.FlashError, "/login", "pages.login.toasts.wrongUsernameOrPassword")
		return
	} else if err != nil {
		internalError(c, err)
		return
	}

	if err := session.SetLoginUser(c, user, a.sessionMaxAge); err != nil {
		internalError(c, err)
		return
	}

	logger.Infof("%s logged in successfully, Ip Address: %s", safeUser, getRemoteIp(c))
	c.Redirect(http.StatusFound, "/")
}

func (a *IndexController) register(c *gin.Context) {
	var form LoginForm
	if err := c.ShouldBind(&form); err != nil {
		redirectWithFlash(c, session.FlashError, "/register", "pages.register.toasts.registerFailed")
		return
	}

	user, err := a.userService.Register(form.Username, form.Password)
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		redirectWithFlash(c, session.FlashError, "/register", verr.MessageIDs...)
		return
	case errors.Is(err, service.ErrUsernameTaken):
		redirectWithFlash(c, session.FlashError, "/register", "pages.register.toasts.usernameTaken")
		return
	case err != nil:
		logger.Error("register user:", err)
		redirectWithFlash(c, session.FlashError, "/register", "pages.register.toasts.registerFailed")
		return
	}

	logger.Infof("%s registered, Ip Address: %s", user.Username, getRemoteIp(c))
	redirectWithFlash(c, session.FlashSuccess, "/login", "pages.register.toasts.registerSuccess")
}

// logout destroys the session and always lands on the login page.
func (a *IndexController) logout(c *gin.Context) {
	user := session.GetLoginUser(c)
	if err := session.ClearSession(c); err != nil {
		logger.Warning("Unable to save session after clearing:", err)
	} else if user != nil {
		logger.Infof("%s logged out successfully", template.HTMLEscapeString(user.Username))
	}
	c.Redirect(http.StatusFound, "/login")
}

// TooManyLoginAttempts answers a rate-limited login with a flash and a
// redirect back to the form.
func TooManyLoginAttempts(c *gin.Context) {
	redirectWithFlash(c, session.FlashError, "/login", "pages.login.toasts.tooManyAttempts")
}
