package api

import (
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/hugh/gymhub/internal/api/handlers"
	"github.com/hugh/gymhub/internal/api/middleware"
	"github.com/hugh/gymhub/internal/auth"
	"github.com/hugh/gymhub/internal/metrics"
	"github.com/hugh/gymhub/internal/tenancy"
	"github.com/hugh/gymhub/pkg/config"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// PlatformPages are the top-level page routes served on the root domain.
// No tenant may take one of them as its slug.
var PlatformPages = []string{"login", "complete-profile", "dashboard"}

type Router struct {
	chi.Router
}

type RouterConfig struct {
	DB          *gorm.DB
	Redis       *redis.Client
	Logger      *slog.Logger
	AuthService *auth.Service
	Validator   auth.SessionValidator
	Resolver    *tenancy.Resolver
	Tenancy     *config.TenancyConfig
	Cookies     auth.CookiePolicy
	Templates   handlers.Renderer
	StaticFS    fs.FS
	RateStore   middleware.RateStore // nil disables rate limiting
	RateLimit   int                  // requests per window, reported in headers
	ClientIP    *middleware.ClientIP // trusted proxies; nil keys on the direct peer
}

func NewRouter(cfg RouterConfig) *Router {
	r := chi.NewRouter()

	// Global middleware. The tenant rewrite runs before routing so chi
	// matches the internal /{tenant}/... path.
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(tenancy.Rewrite(cfg.Resolver, cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.Metrics)

	if cfg.RateStore != nil {
		r.Use(middleware.RateLimit(cfg.RateStore, cfg.RateLimit, "global", cfg.ClientIP, cfg.Logger))
	}

	r.Use(cors.Handler(cors.Options{
		AllowOriginFunc:  allowOrigin(cfg.Tenancy.RootDomain),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Redis)
	authHandler := handlers.NewAuthHandler(cfg.AuthService, cfg.Cookies, cfg.Tenancy, cfg.Resolver)
	dashboardHandler := handlers.NewDashboardHandler(cfg.DB, cfg.AuthService, cfg.Templates)
	gymHandler := handlers.NewGymHandler(cfg.DB, cfg.Tenancy, cfg.Resolver.UnavailableSlugs(PlatformPages...), cfg.Logger)
	clientHandler := handlers.NewClientHandler(cfg.DB, cfg.Logger)
	attendanceHandler := handlers.NewAttendanceHandler(cfg.DB)

	platformAuth := middleware.PlatformAuth(cfg.Validator, cfg.Logger)
	clientAuth := middleware.ClientAuth(cfg.Validator, cfg.Resolver, cfg.Logger)

	// Runtime endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Handle("/metrics", metrics.Handler())

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Get("/google/login", authHandler.PlatformLogin)
			r.Get("/google/callback", authHandler.PlatformCallback)
			r.Get("/google/client/callback", authHandler.ClientCallback)
			r.Post("/logout", authHandler.Logout)
			r.Post("/client/logout", authHandler.ClientLogout)
		})

		// Owner routes
		r.Group(func(r chi.Router) {
			r.Use(platformAuth)

			r.Get("/me", authHandler.Me)
			r.Post("/profile", authHandler.CompleteProfile)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireCompleteProfile)

				r.Get("/dashboard/stats", dashboardHandler.Stats)

				r.Route("/gyms", func(r chi.Router) {
					r.Get("/", gymHandler.List)
					r.Post("/", gymHandler.Create)
					r.Post("/{id}/deactivate", gymHandler.Deactivate)
					r.Post("/{id}/activate", gymHandler.Activate)

					r.Get("/{id}/clients", clientHandler.List)
					r.Post("/{id}/clients", clientHandler.Create)
					r.Put("/{id}/clients/{clientID}/status", clientHandler.UpdateStatus)

					r.Get("/{id}/attendance", attendanceHandler.List)
					r.Post("/{id}/attendance", attendanceHandler.Mark)
				})
			})
		})

		// Client routes, tenant taken from the Host header
		r.Group(func(r chi.Router) {
			r.Use(clientAuth)
			r.Get("/client/me", authHandler.ClientMe)
		})
	})

	// Platform pages
	r.Get("/login", dashboardHandler.Login)

	r.Group(func(r chi.Router) {
		r.Use(platformAuth)
		r.Get("/complete-profile", dashboardHandler.CompleteProfile)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireCompleteProfile)
			r.Get("/", dashboardHandler.Index)
			r.Get("/dashboard", dashboardHandler.Index)
		})
	})

	// Tenant pages, reached through the subdomain rewrite only
	r.Route("/{tenant}", func(r chi.Router) {
		r.Get("/", dashboardHandler.TenantLogin)
		r.Get("/login", dashboardHandler.TenantLogin)
		r.Get("/login/google", authHandler.ClientLoginStart)
		r.With(clientAuth).Get("/dashboard", dashboardHandler.TenantDashboard)
	})

	// Static files
	if cfg.StaticFS != nil {
		fileServer := http.FileServer(http.FS(cfg.StaticFS))
		r.Handle("/static/*", http.StripPrefix("/static/", fileServer))
	}

	return &Router{r}
}

// allowOrigin admits the root domain and its subdomains, over any scheme
// and port.
func allowOrigin(rootDomain string) func(r *http.Request, origin string) bool {
	root := strings.ToLower(rootDomain)
	return func(r *http.Request, origin string) bool {
		u, err := url.Parse(origin)
		if err != nil || u.Host == "" {
			return false
		}
		host := strings.ToLower(u.Hostname())
		return host == root || strings.HasSuffix(host, "."+root)
	}
}
