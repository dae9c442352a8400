// Package folio is the admin backend of a static portfolio site. It edits the
// site's hand-written HTML pages through a git content store: editors read a
// page, get back the regenerated file as a staged edit, and a publish call
// commits every staged edit at once.
package folio

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/eringen/folio/auth"
	"github.com/eringen/folio/content"
	"github.com/eringen/folio/content/ghstore"
	"github.com/eringen/folio/content/sqlstore"
	"github.com/eringen/folio/feed"
	"github.com/eringen/folio/publish"
)

// App is the central folio application. It wires together the content
// store, auth gate, publisher, feed cache, handlers and middleware.
type App struct {
	Config    SiteConfig
	Echo      *echo.Echo
	Store     content.Store
	Gate      *auth.Gate
	Publisher *publish.Publisher
	Feed      *feed.Cache

	loginLimiter *LoginLimiter
	feedSource   feed.Source
	now          func() time.Time
	closers      []io.Closer
	metrics      *prometheus.Registry
	ready        bool
}

// New creates a new App with the given configuration.
func New(cfg SiteConfig, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config: cfg,
		Echo:   echo.New(),
		now:    time.Now,
	}
	a.Echo.HideBanner = true

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Init validates the configuration, opens the content store and registers
// middleware and routes. Start calls it; tests call it directly and drive
// a.Echo with httptest.
func (a *App) Init() error {
	if a.ready {
		return nil
	}
	if err := a.Config.Validate(); err != nil {
		return err
	}

	if a.Store == nil {
		store, err := a.openStore()
		if err != nil {
			return fmt.Errorf("folio: init store: %w", err)
		}
		a.Store = store
	}

	a.Gate = auth.NewGate(a.Config.AdminPasswordHash, []byte(a.Config.AuthSecret))
	a.Gate.Now = a.now

	a.Publisher = publish.New(a.Store, a.Config.GitHubBranch).WithClock(a.now)

	if a.feedSource == nil {
		a.feedSource = feed.NewGraphClient(a.Config.InstagramToken)
	}
	a.Feed = feed.NewCache(a.feedSource, a.Config.FeedCacheTTL).WithClock(a.now)

	a.loginLimiter = NewLoginLimiter(a.Config.LoginAttempts, a.Config.LoginWindow)
	a.loginLimiter.now = a.now

	a.setupMiddleware()
	a.setupRoutes()
	a.ready = true
	return nil
}

func (a *App) openStore() (content.Store, error) {
	if a.Config.LocalDatabasePath != "" {
		s, err := sqlstore.NewStore(a.Config.LocalDatabasePath, a.Config.GitHubBranch)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, s)
		a.Echo.Logger.Infof("serving content from local store %s", a.Config.LocalDatabasePath)
		return s, nil
	}
	if a.Config.GitHubOwner == "" || a.Config.GitHubRepo == "" {
		return nil, errors.New("github owner and repo are required (or set local_db)")
	}
	return ghstore.New(ghstore.Config{
		Owner:   a.Config.GitHubOwner,
		Repo:    a.Config.GitHubRepo,
		Branch:  a.Config.GitHubBranch,
		Token:   a.Config.GitHubToken,
		BaseURL: a.Config.GitHubAPIURL,
	})
}

// Start initializes the app and starts the server.
func (a *App) Start() error {
	if err := a.Init(); err != nil {
		return err
	}
	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", a.metricsHandler())

	api := e.Group("/api")
	api.POST("/auth", a.handleLogin)
	api.DELETE("/auth", a.handleLogout)

	api.GET("/social-feed", a.handleSocialFeed)

	admin := a.requireAdmin
	api.GET("/about", a.handleGetAbout, admin)
	api.PUT("/about", a.handlePutAbout, admin)
	api.GET("/projects", a.handleGetProjects, admin)
	api.PUT("/projects", a.handleReorderProjects, admin)
	api.POST("/projects", a.handleCreateProject, admin)
	api.PATCH("/projects", a.handleUpdateProject, admin)
	api.DELETE("/projects", a.handleDeleteProject, admin)
	api.POST("/publish", a.handlePublish, admin)
	api.POST("/upload", a.handleUpload, uploadBodyLimit(), admin)
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
