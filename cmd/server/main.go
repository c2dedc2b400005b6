package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/opencollective/opencollective-api-sub009/internal/auth"
	"github.com/opencollective/opencollective-api-sub009/internal/config"
	"github.com/opencollective/opencollective-api-sub009/internal/graphql"
	"github.com/opencollective/opencollective-api-sub009/internal/mutations"
	"github.com/opencollective/opencollective-api-sub009/internal/prometheus"
	"github.com/opencollective/opencollective-api-sub009/internal/ratelimit"
	"github.com/opencollective/opencollective-api-sub009/internal/store"
	"github.com/opencollective/opencollective-api-sub009/internal/store/memstore"
	"github.com/opencollective/opencollective-api-sub009/internal/store/postgres"
	"github.com/opencollective/opencollective-api-sub009/internal/twofactor"
)

var (
	requestsTotal = promauto.NewCounterVec(
		promclient.CounterOpts{
			Name: "collective_api_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	requestDuration = promauto.NewHistogramVec(
		promclient.HistogramOpts{
			Name:    "collective_api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: promclient.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Setup logger
	logger := setupLogger(cfg)
	logger.Info("Starting Collective API")

	// Initialize business-level Prometheus metrics
	logger.Info("Initializing Prometheus metrics")
	prometheus.Init()

	ctx := context.Background()

	// Initialize storage
	st, closeStore := setupStore(ctx, cfg, logger)
	defer closeStore()

	// Wrap the store with metrics collector
	instrumented := prometheus.NewStoreCollector(st)
	logger.Info("Store wrapped with Prometheus metrics collector")

	limiter, closeLimiter := setupLimiter(ctx, cfg, logger)
	defer closeLimiter()

	svc := mutations.NewService(instrumented, limiter,
		twofactor.NewEnforcer(cfg.TwoFactorWindow, logger),
		mutations.NewLogMailer(logger),
		mutations.Options{
			OpenSourceHostID: cfg.OpenSourceHostID,
			EmailConcurrency: cfg.GiftCardEmailConcurrency,
		},
		logger)

	// Initialize GraphQL schemas
	logger.Info("Initializing GraphQL schemas")
	gqlServer, err := graphql.NewServer(graphql.Deps{
		Store:       instrumented,
		Mutations:   svc,
		Auth:        auth.NewMiddleware(cfg.JWTSecret, instrumented, cfg.RootCollectiveID, logger),
		Development: cfg.IsDevelopment(),
		Logger:      logger,

		TrustedProxies: cfg.TrustedProxies,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to build GraphQL schemas")
	}

	// Setup HTTP server
	srv := setupHTTPServer(cfg, gqlServer, logger)

	// Start metrics server in background
	go startMetricsServer(cfg, logger)

	// Start main server in background
	go func() {
		logger.WithField("port", cfg.Port).Info("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	// Wait for shutdown signal
	waitForShutdown(srv, cfg, logger)
}

func setupLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})
	logger.SetOutput(os.Stdout)

	// Set log level based on environment
	if cfg.LogLevel == "debug" {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	return logger
}

// setupStore opens postgres, or seeds the in-memory store when no database is configured
func setupStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (store.Store, func()) {
	if cfg.UsesMemoryStore() {
		logger.Warn("DATABASE_URL is empty, using the seeded in-memory store")
		mem := memstore.New()
		f := memstore.Seed(mem)
		if cfg.IsDevelopment() {
			logDevelopmentToken(cfg, f, logger)
		}
		return mem, func() {}
	}

	logger.Info("Connecting to postgres")
	pg, err := postgres.Open(ctx, cfg.DatabaseURL, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to postgres")
	}
	return pg, func() {
		logger.Info("Closing database connections...")
		if err := pg.Close(); err != nil {
			logger.WithError(err).Error("Failed to close database")
		}
	}
}

// logDevelopmentToken prints a session token for the seeded root admin so GraphiQL can be used right away
func logDevelopmentToken(cfg *config.Config, f *memstore.Fixtures, logger *logrus.Logger) {
	token, err := auth.IssueToken([]byte(cfg.JWTSecret), f.RootAdmin.ID, auth.IssueOptions{Expiration: cfg.JWTExpiration})
	if err != nil {
		logger.WithError(err).Warn("Failed to issue development token")
		return
	}
	logger.WithField("token", token).Info("Development session token for the root admin")
}

// setupLimiter shares createUser counters through redis when configured
func setupLimiter(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (ratelimit.Limiter, func()) {
	limits := ratelimit.Config{
		Limit:  cfg.CreateUserRateLimit,
		Window: cfg.CreateUserRateWindow,
	}
	if cfg.RedisURL == "" {
		logger.Info("REDIS_URL is empty, rate limiting in memory")
		return ratelimit.NewMemoryLimiter(limits), func() {}
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.WithError(err).Fatal("Invalid REDIS_URL")
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Warn("Initial redis ping failed")
	} else {
		logger.Info("Redis connection successful")
	}
	return ratelimit.NewRedisLimiter(client, limits, cfg.RedisKeyPrefix, logger), func() {
		client.Close()
	}
}

func setupHTTPServer(cfg *config.Config, gqlServer *graphql.Server, logger *logrus.Logger) *http.Server {
	router := mux.NewRouter()
	router.PathPrefix("/").Handler(gqlServer)

	// Apply middleware
	router.Use(corsMiddleware(cfg), loggingMiddleware(logger, gqlServer), metricsMiddleware())

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func startMetricsServer(cfg *config.Config, logger *logrus.Logger) {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler: router,
	}

	logger.WithField("port", cfg.MetricsPort).Info("Starting metrics server")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.WithError(err).Error("Metrics server failed")
	}
}

// Middleware

func corsMiddleware(cfg *config.Config) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			// Allow configured origins or all in dev
			allowedOrigin := "*"
			for _, allowed := range cfg.CORSOrigins {
				if allowed != "*" && origin == allowed {
					allowedOrigin = origin
					break
				}
			}

			w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+auth.PersonalTokenHeader)
			w.Header().Set("Access-Control-Max-Age", "3600")

			// Handle CORS preflight
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func loggingMiddleware(logger *logrus.Logger, gqlServer *graphql.Server) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Wrap response writer to capture status code
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			logger.WithFields(logrus.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      rw.statusCode,
				"duration":    time.Since(start).Milliseconds(),
				"remote_addr": gqlServer.ClientIP(r),
				"request_id":  rw.Header().Get(graphql.RequestIDHeader),
			}).Info("HTTP request")
		})
	}
}

func metricsMiddleware() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			duration := time.Since(start).Seconds()
			requestsTotal.WithLabelValues(r.Method, r.URL.Path, fmt.Sprintf("%d", rw.statusCode)).Inc()
			requestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func waitForShutdown(srv *http.Server, cfg *config.Config, logger *logrus.Logger) {
	// Create channel to listen for interrupt signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Block until signal received
	sig := <-quit
	logger.WithField("signal", sig.String()).Info("Shutdown signal received")

	// Create context with timeout for shutdown
	timeout := 30 * time.Second
	if cfg.ShutdownTimeout > 0 {
		timeout = time.Duration(cfg.ShutdownTimeout) * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Shutdown HTTP server
	logger.Info("Shutting down HTTP server...")
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server shutdown failed")
	}

	logger.Info("Shutdown complete")
}
