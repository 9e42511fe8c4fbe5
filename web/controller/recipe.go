package controller

import (
	"errors"
	"net/http"

	"github.com/recipebox/recipebox/web/service"
	"github.com/recipebox/recipebox/web/session"

	"github.com/gin-gonic/gin"
)

// RecipeController serves the home page and recipe CRUD for the session user.
type RecipeController struct {
	BaseController

	recipeService *service.RecipeService
}

func NewRecipeController(g *gin.RouterGroup, recipeService *service.RecipeService) *RecipeController {
	a := &RecipeController{recipeService: recipeService}
	a.initRouter(g)
	return a
}

func (a *RecipeController) initRouter(g *gin.RouterGroup) {
	// deletes only happen through the POST form
	g.GET("/recipes/delete/:id", a.methodNotAllowed)

	g = g.Group("/")
	g.Use(a.checkLogin)

	g.GET("/", a.index)
	g.GET("/recipes/new", a.newPage)
	g.POST("/recipes", a.create)
	g.GET("/recipes/edit/:id", a.editPage)
	g.POST("/recipes/edit/:id", a.update)
	g.POST("/recipes/delete/:id", a.delete)
}

func (a *RecipeController) index(c *gin.Context) {
	user := session.GetLoginUser(c)
	recipes, err := a.recipeService.List(user.Id)
	if err != nil {
		internalError(c, err)
		return
	}
	html(c, "index.html", "pages.index.title", gin.H{"recipes": recipes})
}

func (a *RecipeController) newPage(c *gin.Context) {
	html(c, "new_recipe.html", "pages.recipe.newTitle", nil)
}

func (a *RecipeController) create(c *gin.Context) {
	var form service.RecipeForm
	if err := c.ShouldBind(&form); err != nil {
		redirectWithFlash(c, session.FlashError, "/recipes/new", service.MsgFieldsRequired)
		return
	}

	user := session.GetLoginUser(c)
	_, err := a.recipeService.Create(user.Id, form)
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		redirectWithFlash(c, session.FlashError, "/recipes/new", verr.MessageIDs...)
	case errors.Is(err, service.ErrOwnerNotFound):
		// the account was deleted while this session was open
		session.DropLoginUser(c)
		redirectWithFlash(c, session.FlashError, "/login", "pages.login.toasts.loginRequired")
	case err != nil:
		internalError(c, err)
	default:
		redirectWithFlash(c, session.FlashSuccess, "/", "pages.recipe.toasts.added")
	}
}

func (a *RecipeController) editPage(c *gin.Context) {
	id, ok := paramId(c, "id")
	if !ok {
		redirectWithFlash(c, session.FlashError, "/", "pages.recipe.toasts.notFound")
		return
	}

	user := session.GetLoginUser(c)
	recipe, err := a.recipeService.Get(id, user.Id)
	if errors.Is(err, service.ErrRecipeNotFound) {
		redirectWithFlash(c, session.FlashError, "/", "pages.recipe.toasts.notFound")
		return
	} else if err != nil {
		internalError(c, err)
		return
	}
	html(c, "edit_recipe.html", "pages.recipe.editTitle", gin.H{"recipe": recipe})
}

func (a *RecipeController) update(c *gin.Context) {
	id, ok := paramId(c, "id")
	if !ok {
		redirectWithFlash(c, session.FlashError, "/", "pages.recipe.toasts.notFound")
		return
	}
	var form service.RecipeForm
	if err := c.ShouldBind(&form); err != nil {
		redirectWithFlash(c, session.FlashError, c.Request.URL.Path, service.MsgFieldsRequired)
		return
	}

	user := session.GetLoginUser(c)
	err := a.recipeService.Update(id, user.Id, form)
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		redirectWithFlash(c, session.FlashError, c.Request.URL.Path, verr.MessageIDs...)
	case errors.Is(err, service.ErrRecipeNotFound):
		redirectWithFlash(c, session.FlashError, "/", "pages.recipe.toasts.notFound")
	case err != nil:
		internalError(c, err)
	default:
		redirectWithFlash(c, session.FlashSuccess, "/", "pages.recipe.toasts.updated")
	}
}

func (a *RecipeController) delete(c *gin.Context) {
	id, ok := paramId(c, "id")
	if !ok {
		redirectWithFlash(c, session.FlashError, "/", "pages.recipe.toasts.notFound")
		return
	}

	user := session.GetLoginUser(c)
	err := a.recipeService.Delete(id, user.Id)
	switch {
	case errors.Is(err, service.ErrRecipeNotFound):
		redirectWithFlash(c, session.FlashError, "/", "pages.recipe.toasts.notFound")
	case err != nil:
		internalError(c, err)
	default:
		redirectWithFlash(c, session.FlashSuccess, "/", "pages.recipe.toasts.deleted")
	}
}

func (a *RecipeController) methodNotAllowed(c *gin.Context) {
	c.Header("Allow", http.MethodPost)
	c.String(http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
}
