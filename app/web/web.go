// Package web implements the web server for mockstudio: HTMX configurator UI, JSON api and
// background generation batches. Each browser session gets its own workspace.
package web

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/didip/tollbooth/v8"
	"github.com/didip/tollbooth/v8/limiter"
	cache "github.com/go-pkgz/expirable-cache/v3"
	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/rest/logger"
	"github.com/go-pkgz/routegroup"
	"github.com/go-pkgz/syncs"

	"github.com/umputun/mockstudio/app/catalog"
	"github.com/umputun/mockstudio/app/gallery"
	"github.com/umputun/mockstudio/app/generate"
	"github.com/umputun/mockstudio/app/notify"
	"github.com/umputun/mockstudio/app/studio"
	"github.com/umputun/mockstudio/app/web/enums"
)

//go:embed templates/*.html templates/partials/*.html
var templatesFS embed.FS

//go:embed static/*
var staticFS embed.FS

// maxRequestSize allows a full label upload with multipart overhead
const maxRequestSize = studio.MaxLabelSize + 256*1024

// Server represents the web server
type Server struct {
	catalog         *catalog.Catalog
	gallery         gallery.Store
	runner          BatchRunner
	notifier        Notifier
	templates       map[string]*template.Template
	sessions        cache.Cache[string, *workspace]
	sessionsMu      sync.Mutex              // serializes get-or-create of workspaces
	runningMu       sync.Mutex              // protects running, taken after sessionsMu
	running         map[string]runningBatch // in-flight batches by session id, outlives cache eviction
	initial         studio.Settings         // settings of a new workspace
	sessionTTL      time.Duration
	keepGallery     bool
	batches         *syncs.SizedGroup
	ctx             context.Context // parent of all batches, canceled on shutdown
	cancel          context.CancelFunc
	baseURL         string // base URL path for reverse proxy (e.g., /studio), empty for root
	version         string
	passwordHash    string                      // bcrypt hash for auth
	csrfProtection  *http.CrossOriginProtection // csrf protection for POST endpoints
	generateLimiter *limiter.Limiter
	metrics         *metrics
}

// BatchRunner renders all mockups of a batch, returns nothing if any variation failed
type BatchRunner interface {
	Run(ctx context.Context, b generate.Batch) ([]gallery.Mockup, error)
}

// Notifier reports finished batches
type Notifier interface {
	BatchFailed(ctx context.Context, ev notify.Event)
	BatchCompleted(ctx context.Context, ev notify.Event)
}

// Config holds server configuration
type Config struct {
	Catalog      *catalog.Catalog
	Gallery      gallery.Store
	Runner       BatchRunner
	Notifier     Notifier      // optional
	BaseURL      string        // base URL path for reverse proxy (e.g., /studio), empty for root
	Version      string        // application version
	PasswordHash string        // bcrypt hash for auth (empty to disable)
	SessionTTL   time.Duration // idle session lifetime, defaults to 24h
	MaxSessions  int           // max live sessions, defaults to 1000
	MaxBatches   int           // max concurrent generation batches, defaults to 4
	GenerateRate float64       // generate requests per second per client, defaults to 1
	KeepGallery  bool          // keep gallery of expired sessions (persistent gallery)
}

// TemplateData holds data for templates
type TemplateData struct {
	BaseURL     string
	Version     string
	CurrentYear int
	Theme       enums.Theme
	AuthEnabled bool
	Catalog     *catalog.Catalog
	Settings    studio.Settings
	Label       *studio.Label
	Position    studio.Position
	Products    []catalog.ProductType // products of the selected category
	Sizes       []string              // sizes of the selected product
	Batch       batchState
	Mockups     []gallery.Mockup
	Notice      string
	IsOOB       bool
}

// New creates a new web server
func New(cfg Config) (*Server, error) {
	if cfg.Catalog == nil || cfg.Gallery == nil || cfg.Runner == nil {
		return nil, errors.New("web server initialization failed: catalog, gallery and runner are required")
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 1000
	}
	if cfg.MaxBatches <= 0 {
		cfg.MaxBatches = 4
	}
	if cfg.GenerateRate <= 0 {
		cfg.GenerateRate = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		catalog:        cfg.Catalog,
		gallery:        cfg.Gallery,
		runner:         cfg.Runner,
		notifier:       cfg.Notifier,
		running:        map[string]runningBatch{},
		initial:        cfg.Catalog.InitialSettings(),
		sessionTTL:     cfg.SessionTTL,
		keepGallery:    cfg.KeepGallery,
		batches:        syncs.NewSizedGroup(cfg.MaxBatches),
		ctx:            ctx,
		cancel:         cancel,
		baseURL:        strings.TrimSuffix(cfg.BaseURL, "/"),
		version:        cfg.Version,
		passwordHash:   cfg.PasswordHash,
		csrfProtection: http.NewCrossOriginProtection(),
	}

	s.sessions = cache.NewCache[string, *workspace]().WithTTL(cfg.SessionTTL).WithMaxKeys(cfg.MaxSessions).
		WithLRU().WithOnEvicted(s.onSessionEvicted)
	s.metrics = newMetrics(func() float64 { return float64(s.sessions.Len()) })

	s.generateLimiter = tollbooth.NewLimiter(cfg.GenerateRate, nil)
	s.generateLimiter.SetIPLookup(limiter.IPLookup{Name: "RemoteAddr"})
	s.generateLimiter.SetBurst(3)
	s.generateLimiter.SetMessage("Too many generation requests, please wait")

	templates, err := s.parseTemplates()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("web server initialization failed: failed to parse HTML templates: %w", err)
	}
	s.templates = templates
	return s, nil
}

// Run starts the web server, blocks until ctx is canceled
func (s *Server) Run(ctx context.Context, address string) error {
	server := &http.Server{
		Addr:              address,
		Handler:           s.handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	go s.cleanupSessions(ctx, time.Minute)

	go func() {
		<-ctx.Done()
		s.cancel() // stop running batches
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("[WARN] failed to shutdown server: %v", err)
		}
	}()

	log.Printf("[INFO] starting web server on %s", address)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("web server failed: %w", err)
	}
	s.batches.Wait()
	return nil
}

// handler returns the http.Handler with base URL wrapping applied
func (s *Server) handler() http.Handler {
	routes := s.routes()
	if s.baseURL == "" {
		return routes
	}

	mux := http.NewServeMux()
	mux.HandleFunc(s.baseURL, func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, s.baseURL+"/", http.StatusMovedPermanently)
	})
	mux.Handle(s.baseURL+"/", http.StripPrefix(s.baseURL, routes))
	return mux
}

// routes returns the http.Handler with all routes configured
func (s *Server) routes() http.Handler {
	router := routegroup.New(http.NewServeMux())

	router.Use(
		rest.RealIP,
		rest.Recoverer(log.Default()),
		rest.Throttle(1000),
		rest.AppInfo("mockstudio", "umputun", s.version),
		rest.Ping,
		rest.Trace,
		rest.SizeLimit(maxRequestSize),
		logger.New(logger.Log(log.Default()), logger.Prefix("[DEBUG]")).Handler,
	)

	// must be done before any routes are defined
	if s.passwordHash != "" {
		log.Printf("[INFO] authentication enabled for web UI")
		router.Use(s.authMiddleware)
		router.HandleFunc("GET /login", s.handleLoginForm)
		router.With(s.csrfProtection.Handler, tollbooth.HTTPMiddleware(loginLimiter)).HandleFunc("POST /login", s.handleLogin)
		router.HandleFunc("GET /logout", s.handleLogout)
	}

	router.Handle("GET /metrics", s.metrics.handler())
	router.HandleFunc("GET /{$}", s.handleDashboard)
	router.HandleFunc("GET /label/image", s.handleLabelImage)
	router.HandleFunc("GET /gallery/{id}/image", s.handleMockupImage)

	// HTMX endpoints
	router.Mount("/api").Route(func(api *routegroup.Bundle) {
		api.Use(rest.NoCache)
		api.Use(s.csrfProtection.Handler)

		api.HandleFunc("POST /settings", s.handleSettingsChange)
		api.HandleFunc("POST /category", s.handleCategoryChange)
		api.HandleFunc("POST /product", s.handleProductChange)
		api.HandleFunc("POST /label", s.handleLabelUpload)
		api.HandleFunc("DELETE /label", s.handleLabelRemove)
		api.HandleFunc("POST /undo", s.handleUndo)
		api.HandleFunc("POST /redo", s.handleRedo)
		api.With(tollbooth.HTTPMiddleware(s.generateLimiter)).HandleFunc("POST /generate", s.handleGenerate)
		api.HandleFunc("GET /status", s.handleStatus)
		api.HandleFunc("GET /gallery", s.handleGallery)
		api.HandleFunc("DELETE /gallery", s.handleGalleryClear)
		api.HandleFunc("POST /theme", s.handleThemeToggle)
	})

	// JSON API for programmatic access
	router.Mount("/api/v1").Route(func(api *routegroup.Bundle) {
		api.Use(rest.NoCache)
		api.HandleFunc("GET /state", s.handleAPIState)
		api.HandleFunc("GET /gallery", s.handleAPIGallery)
		api.HandleFunc("GET /catalog", s.handleAPICatalog)
	})

	fsys, err := fs.Sub(staticFS, "static")
	if err != nil {
		log.Printf("[ERROR] failed to create static file system: %v", err)
		router.Handle("GET /static/", http.FileServer(http.FS(staticFS)))
	} else {
		router.HandleFiles("/static/", http.FS(fsys))
	}

	return router
}

// render renders a template with 200 status
func (s *Server) render(w http.ResponseWriter, page, tmplName string, data any) {
	s.renderCode(w, http.StatusOK, page, tmplName, data)
}

// renderCode renders a template with the given status code
func (s *Server) renderCode(w http.ResponseWriter, code int, page, tmplName string, data any) {
	tmpl, ok := s.templates[page]
	if !ok {
		log.Printf("[WARN] template %s not found", page)
		http.Error(w, "Template not found", http.StatusInternalServerError)
		return
	}

	buf := new(bytes.Buffer)
	if err := tmpl.ExecuteTemplate(buf, tmplName, data); err != nil {
		log.Printf("[WARN] failed to execute template %s: %v", tmplName, err)
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		log.Printf("[WARN] failed to write response: %v", err)
	}
}

// parseTemplates parses all templates
func (s *Server) parseTemplates() (map[string]*template.Template, error) {
	templates := make(map[string]*template.Template)

	funcMap := template.FuncMap{
		"humanTime": s.humanTime,
		"humanSize": humanSize,
		"url":       s.url,
		"filename":  gallery.Filename,
		"seq":       seq,
		"inc":       func(i int) int { return i + 1 },
	}

	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templatesFS,
		"templates/base.html", "templates/dashboard.html", "templates/partials/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse base template: %w", err)
	}
	templates["base.html"] = base

	// partials parsed separately for HTMX requests
	partials, err := template.New("studio.html").Funcs(funcMap).ParseFS(templatesFS, "templates/partials/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse partials: %w", err)
	}
	templates["partials"] = partials

	login, err := template.New("login.html").Funcs(funcMap).ParseFS(templatesFS, "templates/login.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse login template: %w", err)
	}
	templates["login"] = login

	return templates, nil
}

func (s *Server) getTheme(r *http.Request) enums.Theme {
	cookie, err := r.Cookie("theme")
	if err != nil {
		return enums.ThemeLight
	}
	theme, err := enums.ParseTheme(cookie.Value)
	if err != nil {
		log.Printf("[WARN] invalid theme %q: %v", cookie.Value, err)
		return enums.ThemeLight
	}
	return theme
}

// template helper functions

func (s *Server) humanTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("Jan 2, 15:04:05")
}

func humanSize(n int) string {
	switch {
	case n >= 1024*1024:
		return fmt.Sprintf("%.1f MB", float64(n)/(1024*1024))
	case n >= 1024:
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	default:
		return fmt.Sprintf("%d B", n)
	}
}

// seq returns 1..n
func seq(n int) []int {
	res := make([]int, 0, n)
	for i := 1; i <= n; i++ {
		res = append(res, i)
	}
	return res
}

// url prepends the base URL to a path for reverse proxy support
func (s *Server) url(path string) string {
	return s.baseURL + path
}

// cookiePath returns the cookie path with base URL support
func (s *Server) cookiePath() string {
	if s.baseURL == "" {
		return "/"
	}
	return s.baseURL + "/"
}

// shortVersion extracts a short version string from full version,
// for version like "v1.7.0-abc1234-20241225" returns "v1.7.0"
func shortVersion(fullVer string) string {
	if fullVer == "" || fullVer == "unknown" {
		return fullVer
	}
	if idx := strings.Index(fullVer, "-"); idx > 0 {
		return fullVer[:idx]
	}
	return fullVer
}
