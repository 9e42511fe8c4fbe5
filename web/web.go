// Package web provides the recipebox web server, including routing,
// templates, sessions and background job scheduling.
package web

import (
	"context"
	"embed"
	"html/template"
	"io"
	"io/fs"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/recipebox/recipebox/config"
	"github.com/recipebox/recipebox/logger"
	"github.com/recipebox/recipebox/util/common"
	"github.com/recipebox/recipebox/web/cache"
	"github.com/recipebox/recipebox/web/controller"
	"github.com/recipebox/recipebox/web/job"
	"github.com/recipebox/recipebox/web/locale"
	"github.com/recipebox/recipebox/web/middleware"
	"github.com/recipebox/recipebox/web/service"
	"github.com/recipebox/recipebox/web/session"

	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	gormsessions "github.com/gin-contrib/sessions/gorm"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

//go:embed assets
var assetsFS embed.FS

//go:embed html/*
var htmlFS embed.FS

//go:embed translation/*
var i18nFS embed.FS

var startTime = time.Now()

type wrapAssetsFS struct {
	embed.FS
}

func (f *wrapAssetsFS) Open(name string) (fs.File, error) {
	file, err := f.FS.Open("assets/" + name)
	if err != nil {
		return nil, err
	}
	return &wrapAssetsFile{File: file}, nil
}

type wrapAssetsFile struct {
	fs.File
}

func (f *wrapAssetsFile) Stat() (fs.FileInfo, error) {
	info, err := f.File.Stat()
	if err != nil {
		return nil, err
	}
	return &wrapAssetsFileInfo{FileInfo: info}, nil
}

type wrapAssetsFileInfo struct {
	fs.FileInfo
}

func (f *wrapAssetsFileInfo) ModTime() time.Time {
	return startTime
}

// Server is the recipebox web server with its controllers, session store and scheduled jobs.
type Server struct {
	cfg *config.Config
	db  *gorm.DB

	httpServer *http.Server
	listener   net.Listener

	index   *controller.IndexController
	recipes *controller.RecipeController
	admin   *controller.AdminController

	store        sessions.Store
	loginLimiter *middleware.RateLimiter

	cron *cron.Cron

	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer creates a new web server instance with a cancellable context.
// The session store outlives the server so a restart keeps users logged in.
func NewServer(cfg *config.Config, db *gorm.DB, store sessions.Store) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{cfg: cfg, db: db, store: store, ctx: ctx, cancel: cancel}
}

// NewSessionStore builds the configured session store.
func NewSessionStore(cfg *config.Config, db *gorm.DB) sessions.Store {
	secret := []byte(cfg.Session.Secret)
	var store sessions.Store
	if cfg.Session.Store == config.SessionStoreDatabase {
		store = gormsessions.NewStore(db, true, secret)
	} else {
		store = cache.NewMemoryStore(secret)
	}
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.Session.MaxAge / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return store
}

// getHtmlFiles walks the local `web/html` directory and returns a list of
// template file paths. Used only in debug/development mode.
func (s *Server) getHtmlFiles() ([]string, error) {
	files := make([]string, 0)
	dir, _ := os.Getwd()
	err := fs.WalkDir(os.DirFS(dir), "web/html", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// getHtmlTemplate parses embedded HTML templates from the bundled `htmlFS`.
func (s *Server) getHtmlTemplate(funcMap template.FuncMap) (*template.Template, error) {
	t := template.New("").Funcs(funcMap)
	err := fs.WalkDir(htmlFS, "html", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			newT, err := t.ParseFS(htmlFS, path+"/*.html")
			if err != nil {
				// ignore folders without matches
				return nil
			}
			t = newT
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// initRouter initializes Gin, registers middleware, templates, static assets,
// controllers and returns the configured engine.
func (s *Server) initRouter() (*gin.Engine, error) {
	if s.cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.DefaultWriter = io.Discard
		gin.DefaultErrorWriter = io.Discard
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.Default()
	engine.HandleMethodNotAllowed = true

	if err := locale.InitLocalizer(i18nFS); err != nil {
		return nil, err
	}

	engine.Use(gzip.Gzip(gzip.DefaultCompression))

	if s.store == nil {
		s.store = NewSessionStore(s.cfg, s.db)
	}
	engine.Use(sessions.Sessions(session.CookieName, s.store))
	engine.Use(locale.LocalizerMiddleware())

	// i18n in templates
	i18nWebFunc := func(lang string, key string, params ...string) string {
		return locale.Translate(locale.ForLanguage(lang), key, params...)
	}
	funcMap := template.FuncMap{"i18n": i18nWebFunc}
	engine.SetFuncMap(funcMap)

	// Static files & templates
	if s.cfg.Debug {
		files, err := s.getHtmlFiles()
		if err != nil {
			return nil, err
		}
		engine.LoadHTMLFiles(files...)
		engine.StaticFS("/public", http.FS(os.DirFS("web/assets")))
	} else {
		tpl, err := s.getHtmlTemplate(funcMap)
		if err != nil {
			return nil, err
		}
		engine.SetHTMLTemplate(tpl)
		engine.StaticFS("/public", http.FS(&wrapAssetsFS{FS: assetsFS}))
	}

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	s.loginLimiter = middleware.NewRateLimiter(middleware.RateLimitConfig{
		RequestsPerMinute: s.cfg.LoginRate,
		BurstSize:         s.cfg.LoginRate,
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
		Exceeded: controller.TooManyLoginAttempts,
	})

	g := engine.Group("/")
	s.index = controller.NewIndexController(g, service.NewUserService(s.db), s.cfg.Session.MaxAge, s.loginLimiter.Handler())
	s.recipes = controller.NewRecipeController(g, service.NewRecipeService(s.db))
	s.admin = controller.NewAdminController(g, service.NewUserAdminService(s.db))

	// 404 handler
	engine.NoRoute(func(c *gin.Context) {
		c.AbortWithStatus(http.StatusNotFound)
	})

	return engine, nil
}

// Handler builds the router without starting jobs or listening.
func (s *Server) Handler() (http.Handler, error) {
	return s.initRouter()
}

// startTask schedules the background jobs.
func (s *Server) startTask() {
	if expiring, ok := s.store.(job.ExpiringStore); ok {
		if _, err := s.cron.AddJob("@every 1m", job.NewSessionCleanupJob(expiring)); err != nil {
			logger.Warning("add session cleanup job err:", err)
		}
	}
	if _, err := s.cron.AddJob("@every 10m", job.NewLimiterSweepJob(s.loginLimiter, time.Hour)); err != nil {
		logger.Warning("add limiter sweep job err:", err)
	}
}

// Start initializes and starts the web server.
func (s *Server) Start() (err error) {
	defer func() {
		if err != nil {
			_ = s.Stop()
		}
	}()

	s.cron = cron.New(cron.WithSeconds())
	s.cron.Start()

	engine, err := s.initRouter()
	if err != nil {
		return err
	}

	listenAddr := net.JoinHostPort(s.cfg.Listen, strconv.Itoa(s.cfg.Port))
	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return err
	}
	logger.Info("Web server running HTTP on", listener.Addr())

	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.Error("web server stopped:", err)
		}
	}()

	s.startTask()

	return nil
}

// Stop gracefully shuts down the web server and its cron jobs.
func (s *Server) Stop() error {
	defer s.cancel()
	if s.cron != nil {
		s.cron.Stop()
	}
	var err1, err2 error
	if s.httpServer != nil {
		// Shutdown also closes the listener
		ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
		defer cancel()
		err1 = s.httpServer.Shutdown(ctx)
	} else if s.listener != nil {
		err2 = s.listener.Close()
	}
	return common.Combine(err1, err2)
}
