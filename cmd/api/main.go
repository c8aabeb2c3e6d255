package main

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/encryptcookie"
	fibersession "github.com/gofiber/fiber/v2/middleware/session"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"

	"docqr/internal/config"
	"docqr/internal/database"
	"docqr/internal/database/migration"
	handlers "docqr/internal/http/handler"
	"docqr/internal/http/middleware"
	"docqr/internal/logger"
	tracing "docqr/internal/otel"
	"docqr/internal/pdf"
	"docqr/internal/qr"
	"docqr/internal/repository/postgres"
	"docqr/internal/service"
	"docqr/internal/session"
	"docqr/internal/storage"
)

func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()
	log := logger.New(os.Stdout, cfg.Location(), cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("docqr stopped")
	}
}

func run(cfg *config.AppConfig, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.WithError(err).Warn("tracing shutdown failed")
		}
	}()

	// Initialize PostgreSQL connection (with pooling via database/sql)
	db, err := database.NewPostgres(ctx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, log, cfg.Database.Host); err != nil {
		return err
	}

	store, err := openStorage(cfg, log)
	if err != nil {
		return fmt.Errorf("open document root: %w", err)
	}
	if err := os.MkdirAll(cfg.Storage.UploadDir, 0o755); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}

	var optimizer pdf.Optimizer = pdf.Passthrough{}
	if cfg.PDF.Optimize {
		optimizer = pdf.NewPDFCPU()
	}

	// Initialize repositories and services
	docSvc := service.NewDocumentService(store, postgres.NewDocumentPostgres(db), optimizer, cfg.Storage.UploadDir)
	authSvc := service.NewAuthService(postgres.NewAdminPostgres(db), 0)

	moved, err := docSvc.RelocateLegacy(ctx, cfg.Storage.UploadDir)
	if err != nil {
		return fmt.Errorf("relocate legacy files: %w", err)
	}
	if moved > 0 {
		log.WithFields(logrus.Fields{"event": "legacy_relocated", "files": moved}).Info("moved legacy uploads into the document root")
	}

	created, err := authSvc.EnsureAdmin(ctx, cfg.Admin.Username, cfg.Admin.Password)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"event": "admin_ensured", "admin": cfg.Admin.Username, "created": created}).Info("admin account ready")
	if cfg.UsesDefaultAdminPassword() {
		log.Warn("ADMIN_PASSWORD is not set; the default password is in use")
	}

	sessions, closeSessions, err := newSessionStore(ctx, cfg.Session, log)
	if err != nil {
		return err
	}
	defer closeSessions()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	app := fiber.New(fiber.Config{
		AppName:               "docqr",
		BodyLimit:             cfg.PDF.MaxUploadBytes,
		ErrorHandler:          handlers.ErrorHandler(log),
		Views:                 handlers.NewViews(),
		ReadTimeout:           30 * time.Second,
		IdleTimeout:           120 * time.Second,
		DisableStartupMessage: true,
	})

	// Register global middleware
	app.Use(otelfiber.Middleware(otelfiber.WithNext(func(c *fiber.Ctx) bool {
		return c.Path() == "/metrics" || c.Path() == "/healthz"
	})))
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	// JSON Logger middleware for structured request logs
	app.Use(middleware.Logger(log))
	app.Use(prom.Handler())
	app.Use(encryptcookie.New(encryptcookie.Config{Key: cookieKey(cfg.Session.SecretKey, log)}))

	handlers.RegisterRoutes(app, handlers.Deps{
		DB:             db,
		Documents:      docSvc,
		Auth:           authSvc,
		Sessions:       sessions,
		QR:             qr.NewEncoder(),
		Log:            log,
		Gatherer:       reg,
		PublicBaseURL:  cfg.PublicBaseURL,
		PDFCacheMaxAge: cfg.PDF.CacheMaxAgeSec,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithFields(logrus.Fields{"port": cfg.Port, "storage": cfg.Storage.Driver}).Info("http server listening")
		return app.Listen(":" + cfg.Port)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		return app.ShutdownWithTimeout(10 * time.Second)
	})
	return g.Wait()
}

// openStorage selects the document root backend. The object store is wrapped
// in a circuit breaker; local disk is not.
func openStorage(cfg *config.AppConfig, log logrus.FieldLogger) (storage.Storage, error) {
	switch cfg.Storage.Driver {
	case "", "local":
		s, err := storage.NewLocal(cfg.Storage.DocumentRoot)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "minio":
		s, err := storage.NewMinIO(cfg.MinIO)
		if err != nil {
			return nil, err
		}
		return storage.WithBreaker(s, storage.BreakerSettings{
			Name: "minio",
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.WithFields(logrus.Fields{
					"component": "storage",
					"breaker":   name,
					"from":      from.String(),
					"to":        to.String(),
				}).Warn("circuit breaker state changed")
			},
		}), nil
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.Storage.Driver)
	}
}

// newSessionStore keeps sessions in Redis when REDIS_ADDR is set, else in memory.
func newSessionStore(ctx context.Context, cfg config.SessionConfig, log logrus.FieldLogger) (*fibersession.Store, func(), error) {
	sc := session.Config{
		TTL:          time.Duration(cfg.TTLSec) * time.Second,
		CookieSecure: cfg.CookieSecure,
	}
	if cfg.RedisAddr == "" {
		log.WithField("session_storage", "memory").Info("sessions configured")
		return session.NewStore(sc), func() {}, nil
	}

	rs, err := session.NewRedisStorage(ctx, session.RedisOptions{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	sc.Storage = rs
	log.WithFields(logrus.Fields{"session_storage": "redis", "redis_addr": cfg.RedisAddr}).Info("sessions configured")
	return session.NewStore(sc), func() { _ = rs.Close() }, nil
}

// cookieKey derives the cookie encryption key from SECRET_KEY. Without one, a
// random key is used and sessions do not survive a restart.
func cookieKey(secret string, log logrus.FieldLogger) string {
	if secret == "" {
		log.Warn("SECRET_KEY is not set; sessions will not survive a restart")
		return encryptcookie.GenerateKey()
	}
	sum := sha256.Sum256([]byte(secret))
	return base64.StdEncoding.EncodeToString(sum[:])
}

