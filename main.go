package main

import (
	"crypto/tls"
	"flag"
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/ledgercore/src/config"
	"github.com/username/ledgercore/src/database"
	"github.com/username/ledgercore/src/handlers"
	"github.com/username/ledgercore/src/logger"
	"github.com/username/ledgercore/src/security"
	"github.com/username/ledgercore/src/services"
	"golang.org/x/time/rate"
)

func proxyHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Forwarded-Proto") == "https" {
			r.URL.Scheme = "https"
			r.TLS = &tls.ConnectionState{}
		}
		next.ServeHTTP(w, r)
	})
}

func rateLimitMiddleware(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				logger.FromContext(r.Context()).Warn("Rate limit exceeded", "path", r.URL.Path)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func enableCORS(allowedOrigins map[string]bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if allowedOrigins[origin] {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, PATCH")
				w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Requested-With, X-Request-ID, If-None-Match")
				w.Header().Set("Access-Control-Expose-Headers", "ETag, X-Request-ID")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func main() {
	issueToken := flag.Int64("issue-token", 0, "print a bearer token for the given actor id and exit")
	flag.Parse()

	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)

	authService := security.NewAuthService(config.Cfg.JWTSecret, config.Cfg.AccessTokenExpiry)
	if *issueToken > 0 {
		token, err := authService.GenerateToken(strconv.FormatInt(*issueToken, 10))
		if err != nil {
			stdlog.Fatalf("Failed to issue token: %v", err)
		}
		fmt.Println(token)
		os.Exit(0)
	}

	logger.L.Info("Ledger backend server starting...")

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	database.RunMigrations(config.Cfg.DatabasePath)

	reportCache := cache.New(config.Cfg.SummaryCacheExpiration, config.Cfg.CacheCleanupInterval)
	permissions := services.NewOwnershipPermissions(database.DB, config.Cfg.AdminUserIDs)
	auditLog := services.NewDBAuditSink(database.DB)
	auditSink := services.MultiAuditSink{auditLog, services.LogAuditSink{}}
	policy := services.NewOverdraftPolicy(config.Cfg.OverdraftAccountTypes)

	ledger := services.NewLedger(database.DB, reportCache, permissions, auditSink, policy, config.Cfg.Currency)

	limiter := rate.NewLimiter(rate.Limit(config.Cfg.RateLimitPerSecond), config.Cfg.RateLimitBurst)
	allowedOrigins := make(map[string]bool, len(config.Cfg.AllowedOrigins))
	for _, origin := range config.Cfg.AllowedOrigins {
		allowedOrigins[origin] = true
	}

	r := handlers.NewRouter(handlers.Services{
		Accounts:   services.NewAccountStore(ledger),
		Ledger:     services.NewTransactionLedger(ledger),
		Transfers:  services.NewTransferCoordinator(ledger),
		Reversals:  services.NewReversalHandler(ledger),
		Reconciler: services.NewReconciler(ledger),
		Categories: services.NewCategoryStore(ledger),
		Audit:      auditLog,
	}, authService,
		proxyHeadersMiddleware,
		enableCORS(allowedOrigins),
		rateLimitMiddleware(limiter),
	)

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		stdlog.Fatalf("Failed to start server: %v", err)
	}
}
