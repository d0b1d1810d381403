package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/gymhub/internal/api"
	"github.com/hugh/gymhub/internal/api/middleware"
	"github.com/hugh/gymhub/internal/auth"
	"github.com/hugh/gymhub/internal/certs"
	"github.com/hugh/gymhub/internal/database"
	"github.com/hugh/gymhub/internal/tasks"
	"github.com/hugh/gymhub/internal/tenancy"
	"github.com/hugh/gymhub/internal/web"
	"github.com/hugh/gymhub/pkg/config"
	"github.com/hugh/gymhub/pkg/queue"
	"github.com/hugh/gymhub/pkg/util"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load .env file
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := util.NewLogger(cfg.Server.Env, cfg.Server.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting gymhub server",
		"env", cfg.Server.Env,
		"addr", cfg.Server.Addr(),
		"root_domain", cfg.Tenancy.RootDomain,
		"local", cfg.Tenancy.IsLocal(),
	)

	if cfg.JWT.Secret == "change-me-in-production" && !cfg.Server.IsDevelopment() {
		logger.Error("JWT_SECRET must be set outside development")
		os.Exit(1)
	}

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := database.AutoMigrate(db); err != nil {
		logger.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	// Redis backs rate limiting and security events. Both degrade without it.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Warn("failed to connect to Redis", "error", err)
		redisClient.Close()
		redisClient = nil
	}

	var asynqClient *asynq.Client
	var publisher *tasks.Publisher
	if redisClient != nil {
		asynqClient = queue.NewClient(&cfg.Redis)
		publisher = tasks.NewPublisher(asynqClient, logger)
	} else {
		publisher = tasks.NewPublisher(nil, logger)
	}

	var rateStore middleware.RateStore
	if redisClient != nil {
		rateStore = middleware.NewRedisStore(redisClient, "gymhub:rl", cfg.RateLimit.Requests, cfg.RateLimit.Window())
	} else {
		mem := middleware.NewMemoryStore(cfg.RateLimit.Requests, cfg.RateLimit.Window())
		go func() {
			for range time.Tick(10 * time.Minute) {
				mem.Cleanup(10000)
			}
		}()
		rateStore = mem
	}

	clientIP, err := middleware.NewClientIP(cfg.RateLimit.TrustedProxies)
	if err != nil {
		logger.Error("invalid TRUSTED_PROXIES", "error", err)
		os.Exit(1)
	}

	resolver := tenancy.NewResolver()
	resolver.LocalMarker = cfg.Tenancy.LocalMarker
	if len(cfg.Tenancy.ReservedSubdomains) > 0 {
		resolver.Reserved = cfg.Tenancy.ReservedSubdomains
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Expiry())
	provider := auth.NewGoogleProvider(auth.GoogleConfig{
		ClientID:            cfg.OAuth.GoogleClientID,
		ClientSecret:        cfg.OAuth.GoogleClientSecret,
		PlatformRedirectURL: cfg.OAuth.PlatformRedirectURL,
		ClientRedirectURL:   cfg.OAuth.ClientRedirectURL,
		Timeout:             cfg.OAuth.Timeout(),
	})
	authService := auth.NewService(db, jwtService, provider, logger)
	validator := auth.NewValidator(db, jwtService, publisher, logger)

	templates, err := web.LoadTemplates()
	if err != nil {
		logger.Error("failed to load templates", "error", err)
		os.Exit(1)
	}

	staticFS, err := web.GetStaticFS()
	if err != nil {
		logger.Error("failed to get static fs", "error", err)
		os.Exit(1)
	}

	router := api.NewRouter(api.RouterConfig{
		DB:          db,
		Redis:       redisClient,
		Logger:      logger,
		AuthService: authService,
		Validator:   validator,
		Resolver:    resolver,
		Tenancy:     &cfg.Tenancy,
		Cookies: auth.CookiePolicy{
			RootDomain: cfg.Tenancy.RootDomain,
			Local:      cfg.Tenancy.IsLocal(),
			MaxAge:     cfg.JWT.Expiry(),
		},
		Templates: templates,
		StaticFS:  staticFS,
		RateStore: rateStore,
		RateLimit: cfg.RateLimit.Requests,
		ClientIP:  clientIP,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// With autocert the server answers ACME challenges on :80 and serves
	// TLS on the configured address.
	var challengeServer *http.Server
	if cfg.TLS.Autocert && !cfg.Tenancy.IsLocal() {
		manager := certs.NewManager(&cfg.TLS, certs.HostPolicy(db, resolver, cfg.Tenancy.RootDomain))
		server.TLSConfig = manager.TLSConfig()
		challengeServer = &http.Server{
			Addr:              ":80",
			Handler:           manager.HTTPHandler(nil),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := challengeServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("acme challenge server error", "error", err)
			}
		}()
	}

	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr(), "tls", server.TLSConfig != nil)
		var err error
		if server.TLSConfig != nil {
			err = server.ListenAndServeTLS("", "")
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	if challengeServer != nil {
		_ = challengeServer.Shutdown(ctx)
	}

	if asynqClient != nil {
		asynqClient.Close()
	}
	if redisClient != nil {
		redisClient.Close()
	}

	sqlDB, _ := db.DB()
	sqlDB.Close()

	logger.Info("server stopped")
}
