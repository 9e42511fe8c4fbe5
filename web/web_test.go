package web

import (
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/recipebox/recipebox/config"
	"github.com/recipebox/recipebox/database"
	"github.com/recipebox/recipebox/database/model"
	"github.com/recipebox/recipebox/web/session"
)

const adminPassword = "Adm1n!pass"

type testApp struct {
	cfg   *config.Config
	db    *gorm.DB
	store sessions.Store
	srv   *httptest.Server
}

func newTestApp(t *testing.T, mutate func(*config.Config)) *testApp {
	t.Helper()
	cfg := &config.Config{
		LogLevel:      config.Info,
		Port:          3000,
		AdminPassword: adminPassword,
		Session: config.SessionConfig{
			Secret: "test-secret-0123456789abcdef0123",
			MaxAge: 2 * time.Hour,
			Store:  config.SessionStoreMemory,
		},
		Database: config.DatabaseConfig{
			Type: config.DatabaseTypeSQLite,
			Path: filepath.Join(t.TempDir(), "recipebox.db"),
		},
	}
	if mutate != nil {
		mutate(cfg)
	}
	require.NoError(t, cfg.Validate())

	db, err := database.InitDB(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.CloseDB(db) })

	store := NewSessionStore(cfg, db)
	handler, err := NewServer(cfg, db, store).Handler()
	require.NoError(t, err)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &testApp{cfg: cfg, db: db, store: store, srv: srv}
}

// restart serves a fresh Server over the same database and session store.
func (a *testApp) restart(t *testing.T) *testApp {
	t.Helper()
	handler, err := NewServer(a.cfg, a.db, a.store).Handler()
	require.NoError(t, err)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &testApp{cfg: a.cfg, db: a.db, store: a.store, srv: srv}
}

// browser is an HTTP client with its own cookie jar that does not follow redirects.
type browser struct {
	t      *testing.T
	base   string
	client *http.Client
}

func (a *testApp) browser(t *testing.T) *browser {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{
		t:    t,
		base: a.srv.URL,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (b *browser) do(req *http.Request) (*http.Response, string) {
	b.t.Helper()
	resp, err := b.client.Do(req)
	require.NoError(b.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(b.t, err)
	return resp, string(body)
}

func (b *browser) get(path string) (*http.Response, string) {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodGet, b.base+path, nil)
	require.NoError(b.t, err)
	return b.do(req)
}

func (b *browser) post(path string, form url.Values) (*http.Response, string) {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodPost, b.base+path, strings.NewReader(form.Encode()))
	require.NoError(b.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

// expectRedirect asserts a 302 to location and returns the body of the page it points to.
func (b *browser) expectRedirect(resp *http.Response, location string) string {
	b.t.Helper()
	require.Equal(b.t, http.StatusFound, resp.StatusCode)
	require.Equal(b.t, location, resp.Header.Get("Location"))
	next, body := b.get(location)
	require.Equal(b.t, http.StatusOK, next.StatusCode)
	return body
}

func (b *browser) register(username, password string) *http.Response {
	resp, _ := b.post("/register", url.Values{"username": {username}, "password": {password}})
	return resp
}

func (b *browser) login(username, password string) *http.Response {
	resp, _ := b.post("/login", url.Values{"username": {username}, "password": {password}})
	return resp
}

func (b *browser) signUp(username, password string) {
	b.t.Helper()
	b.expectRedirect(b.register(username, password), "/login")
	b.expectRedirect(b.login(username, password), "/")
}

func (a *testApp) userId(t *testing.T, username string) int {
	t.Helper()
	var user model.User
	require.NoError(t, a.db.Where("username = ?", username).First(&user).Error)
	return user.Id
}

func (a *testApp) recipeId(t *testing.T, ownerId int, name string) int {
	t.Helper()
	var recipe model.Recipe
	require.NoError(t, a.db.Where("user_id = ? AND recipe_name = ?", ownerId, name).First(&recipe).Error)
	return recipe.Id
}

func TestRegisterLoginAndCreateRecipe(t *testing.T) {
	app := newTestApp(t, nil)
	alice := app.browser(t)

	body := alice.expectRedirect(alice.register("alice", "Passw0rd!"), "/login")
	assert.Contains(t, body, "Registration successful. Please log in.")

	resp := alice.login("alice", "Passw0rd!")
	body = alice.expectRedirect(resp, "/")
	assert.Contains(t, body, "Welcome, alice")

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == session.CookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, int((2 * time.Hour).Seconds()), cookie.MaxAge)

	resp, _ = alice.post("/recipes", url.Values{"recipeName": {"Soup"}, "ingredients": {"water,salt"}})
	body = alice.expectRedirect(resp, "/")
	assert.Contains(t, body, "Soup")
	assert.Contains(t, body, "water,salt")
	assert.Contains(t, body, "Recipe added successfully.")

	// flash messages are shown once
	_, body = alice.get("/")
	assert.Contains(t, body, "Soup")
	assert.NotContains(t, body, "Recipe added successfully.")

	var recipe model.Recipe
	require.NoError(t, app.db.Where("recipe_name = ?", "Soup").First(&recipe).Error)
	assert.Equal(t, app.userId(t, "alice"), recipe.UserId)
	assert.Equal(t, "water,salt", recipe.Ingredients)
}

func TestRegisterValidation(t *testing.T) {
	app := newTestApp(t, nil)
	b := app.browser(t)

	body := b.expectRedirect(b.register("alice", "passw0rd!"), "/register")
	assert.Contains(t, body, "Password must include at least one lowercase letter, one uppercase letter, one number, and one special character")

	var count int64
	require.NoError(t, app.db.Model(&model.User{}).Where("username = ?", "alice").Count(&count).Error)
	assert.Zero(t, count)

	body = b.expectRedirect(b.register("al", "abc"), "/register")
	assert.Contains(t, body, "Username must be at least 3 characters long.")
	assert.Contains(t, body, "Password must be at least 6 characters long.")

	b.expectRedirect(b.register("alice", "Passw0rd!"), "/login")
	body = b.expectRedirect(b.register("alice", "Other0ne!"), "/register")
	assert.Contains(t, body, "Username is already taken.")
}

func TestLoginFailuresAreGeneric(t *testing.T) {
	app := newTestApp(t, nil)
	b := app.browser(t)
	b.expectRedirect(b.register("alice", "Passw0rd!"), "/login")

	wrongPassword := b.expectRedirect(b.login("alice", "Wrong0ne!"), "/login")
	unknownUser := b.expectRedirect(b.login("nobody", "Passw0rd!"), "/login")
	assert.Contains(t, wrongPassword, "Invalid username or password.")
	assert.Contains(t, unknownUser, "Invalid username or password.")

	// the failed attempts did not log anyone in
	resp, _ := b.get("/")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
}

func TestLoginRequiredAndLogout(t *testing.T) {
	app := newTestApp(t, nil)
	b := app.browser(t)

	body := b.expectRedirect(first(b.get("/")), "/login")
	assert.Contains(t, body, "Please log in to access this page.")

	b.signUp("alice", "Passw0rd!")
	resp, _ := b.get("/recipes/new")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	b.expectRedirect(first(b.get("/logout")), "/login")
	resp, _ = b.get("/")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestRecipesAreOwnerScoped(t *testing.T) {
	app := newTestApp(t, nil)
	alice := app.browser(t)
	bob := app.browser(t)
	alice.signUp("alice", "Passw0rd!")
	bob.signUp("bob", "Passw0rd!")

	alice.post("/recipes", url.Values{"recipeName": {"Toast"}, "ingredients": {"white bread"}})
	bob.post("/recipes", url.Values{"recipeName": {"Toast"}, "ingredients": {"rye bread"}})

	_, body := alice.get("/")
	assert.Contains(t, body, "white bread")
	assert.NotContains(t, body, "rye bread")
	_, body = bob.get("/")
	assert.Contains(t, body, "rye bread")
	assert.NotContains(t, body, "white bread")

	aliceToast := app.recipeId(t, app.userId(t, "alice"), "Toast")
	path := "/recipes/edit/" + strconv.Itoa(aliceToast)

	body = bob.expectRedirect(first(bob.get(path)), "/")
	assert.Contains(t, body, "Recipe not found.")

	resp, _ := bob.post(path, url.Values{"recipeName": {"Stolen"}, "ingredients": {"nothing"}})
	body = bob.expectRedirect(resp, "/")
	assert.Contains(t, body, "Recipe not found.")

	resp, _ = bob.post("/recipes/delete/"+strconv.Itoa(aliceToast), nil)
	bob.expectRedirect(resp, "/")

	var recipe model.Recipe
	require.NoError(t, app.db.First(&recipe, aliceToast).Error)
	assert.Equal(t, "Toast", recipe.RecipeName)
	assert.Equal(t, "white bread", recipe.Ingredients)

	// the owner can edit and delete
	resp, body = alice.get(path)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "white bread")

	resp, _ = alice.post(path, url.Values{"recipeName": {"Toast"}, "ingredients": {"sourdough"}})
	body = alice.expectRedirect(resp, "/")
	assert.Contains(t, body, "Recipe updated successfully.")
	assert.Contains(t, body, "sourdough")

	resp, _ = alice.get("/recipes/delete/" + strconv.Itoa(aliceToast))
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, _ = alice.post("/recipes/delete/"+strconv.Itoa(aliceToast), nil)
	body = alice.expectRedirect(resp, "/")
	assert.Contains(t, body, "Recipe deleted successfully.")
	assert.True(t, database.IsNotFound(app.db.First(&model.Recipe{}, aliceToast).Error))
}

func TestAdminPanel(t *testing.T) {
	app := newTestApp(t, nil)
	alice := app.browser(t)
	bob := app.browser(t)
	alice.signUp("alice", "Passw0rd!")
	bob.signUp("bob", "Passw0rd!")
	alice.post("/recipes", url.Values{"recipeName": {"Soup"}, "ingredients": {"water"}})
	aliceId := app.userId(t, "alice")

	resp, body := alice.get("/admin")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.NotContains(t, body, "bob")

	anonymous := app.browser(t)
	resp, _ = anonymous.post("/delete-user/"+strconv.Itoa(aliceId), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp, _ = alice.post("/delete-user/"+strconv.Itoa(app.userId(t, "bob")), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	admin := app.browser(t)
	admin.expectRedirect(admin.login(model.AdminUsername, adminPassword), "/")
	resp, body = admin.get("/admin")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "alice")
	assert.Contains(t, body, "bob")
	assert.NotContains(t, body, `<td class="username">admin</td>`)

	resp, _ = admin.post("/delete-user/"+strconv.Itoa(app.userId(t, model.AdminUsername)), nil)
	body = admin.expectRedirect(resp, "/admin")
	assert.Contains(t, body, "Administrator accounts cannot be deleted.")

	resp, _ = admin.post("/delete-user/"+strconv.Itoa(aliceId), nil)
	body = admin.expectRedirect(resp, "/admin")
	assert.Contains(t, body, "User deleted.")
	assert.NotContains(t, body, `<td class="username">alice</td>`)

	var count int64
	require.NoError(t, app.db.Model(&model.Recipe{}).Where("user_id = ?", aliceId).Count(&count).Error)
	assert.Zero(t, count)
}

func TestDeletedUserSessionIsDropped(t *testing.T) {
	app := newTestApp(t, nil)
	alice := app.browser(t)
	alice.signUp("alice", "Passw0rd!")
	aliceId := app.userId(t, "alice")

	admin := app.browser(t)
	admin.expectRedirect(admin.login(model.AdminUsername, adminPassword), "/")
	resp, _ := admin.post("/delete-user/"+strconv.Itoa(aliceId), nil)
	admin.expectRedirect(resp, "/admin")

	resp, _ = alice.post("/recipes", url.Values{"recipeName": {"Soup"}, "ingredients": {"water"}})
	body := alice.expectRedirect(resp, "/login")
	assert.Contains(t, body, "Please log in to access this page.")

	resp, _ = alice.get("/")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	var count int64
	require.NoError(t, app.db.Model(&model.Recipe{}).Where("user_id = ?", aliceId).Count(&count).Error)
	assert.Zero(t, count)
}

func TestLoginPageRendersForLoggedInUser(t *testing.T) {
	app := newTestApp(t, nil)
	b := app.browser(t)
	b.signUp("alice", "Passw0rd!")

	resp, body := b.get("/login")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `name="password"`)

	// switching accounts from the form works
	b.expectRedirect(b.register("bob", "Passw0rd!"), "/login")
	body = b.expectRedirect(b.login("bob", "Passw0rd!"), "/")
	assert.Contains(t, body, "Welcome, bob")
}

func TestRestartKeepsSessions(t *testing.T) {
	for _, store := range []config.SessionStoreType{config.SessionStoreMemory, config.SessionStoreDatabase} {
		t.Run(string(store), func(t *testing.T) {
			app := newTestApp(t, func(cfg *config.Config) { cfg.Session.Store = store })
			b := app.browser(t)
			b.signUp("alice", "Passw0rd!")

			// cookies are scoped to the host, so the jar carries them to the new port
			b.base = app.restart(t).srv.URL
			resp, body := b.get("/")
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Contains(t, body, "Welcome, alice")
		})
	}
}

func TestLoginRateLimit(t *testing.T) {
	app := newTestApp(t, func(cfg *config.Config) { cfg.LoginRate = 2 })
	b := app.browser(t)

	b.expectRedirect(b.login("alice", "Wrong0ne!"), "/login")
	b.expectRedirect(b.login("alice", "Wrong0ne!"), "/login")
	body := b.expectRedirect(b.login("alice", "Wrong0ne!"), "/login")
	assert.Contains(t, body, "Too many login attempts. Please try again later.")
}

func TestDatabaseSessionStore(t *testing.T) {
	app := newTestApp(t, func(cfg *config.Config) { cfg.Session.Store = config.SessionStoreDatabase })
	b := app.browser(t)
	b.signUp("alice", "Passw0rd!")

	resp, body := b.get("/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Welcome, alice")

	b.expectRedirect(first(b.get("/logout")), "/login")
	resp, _ = b.get("/")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
}

func TestHealthzAndAssets(t *testing.T) {
	app := newTestApp(t, nil)
	b := app.browser(t)

	resp, body := b.get("/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"ok":true}`, body)

	resp, body = b.get("/public/css/style.css")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, ".recipe")

	resp, _ = b.get("/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSpanishLocale(t *testing.T) {
	app := newTestApp(t, nil)
	b := app.browser(t)

	req, err := http.NewRequest(http.MethodGet, b.base+"/login", nil)
	require.NoError(t, err)
	req.Header.Set("Accept-Language", "es-ES,es;q=0.9")
	resp, body := b.do(req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Iniciar sesión")
}

func first(resp *http.Response, _ string) *http.Response {
	return resp
}
