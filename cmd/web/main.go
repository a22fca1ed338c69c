package main

import (
	"context"
	"io"
	"io/fs"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/myrjola/liftplan/internal/envstruct"
	"github.com/myrjola/liftplan/internal/errors"
	"github.com/myrjola/liftplan/internal/identity"
	"github.com/myrjola/liftplan/internal/logging"
	"github.com/myrjola/liftplan/internal/metrics"
	"github.com/myrjola/liftplan/internal/photos"
	"github.com/myrjola/liftplan/internal/postgres"
	"github.com/myrjola/liftplan/internal/sqlite"
	"github.com/myrjola/liftplan/internal/tablestore"
	"github.com/myrjola/liftplan/internal/webauthnhandler"
	"github.com/myrjola/liftplan/internal/workout"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type application struct {
	logger          *slog.Logger
	webAuthnHandler *webauthnhandler.WebAuthnHandler
	sessionManager  *scs.SessionManager
	templateFS      fs.FS
	service         *workout.Service
	sessions        *sessionRegistry
	metrics         *metrics.Manager
	registry        *prometheus.Registry
}

type config struct {
	// Addr is the address to listen on. It's possible to choose the address dynamically with localhost:0.
	Addr string `env:"LIFTPLAN_ADDR" envDefault:"localhost:8081"`
	// FQDN is the fully qualified domain name of the server used for WebAuthn Relying Party configuration.
	FQDN string `env:"LIFTPLAN_FQDN" envDefault:"localhost"`
	// SqliteURL is the URL to the SQLite database. You can use ":memory:" for an ethereal in-memory database.
	SqliteURL string `env:"LIFTPLAN_SQLITE_URL" envDefault:"./liftplan.sqlite3"`
	// PostgresURL moves the exercises, logs, workouts and settings to PostgreSQL. Sessions and passkeys stay in SQLite.
	PostgresURL string `env:"LIFTPLAN_POSTGRES_URL" envDefault:""`
	// TemplatePath is the path to the directory containing the HTML templates.
	TemplatePath string `env:"LIFTPLAN_TEMPLATE_PATH" envDefault:""`

	// LogLevel is the minimum level written to LogFile.
	LogLevel     slog.Level `env:"LIFTPLAN_LOG_LEVEL" envDefault:"DEBUG"`
	LogFile      string     `env:"LIFTPLAN_LOG_FILE" envDefault:""`
	LogMaxSizeMB int        `env:"LIFTPLAN_LOG_MAX_SIZE_MB" envDefault:"50"`

	SessionLifetime time.Duration `env:"LIFTPLAN_SESSION_LIFETIME" envDefault:"12h"`
	// RandomSeed makes workout generation reproducible when non-zero.
	RandomSeed uint64 `env:"LIFTPLAN_RANDOM_SEED" envDefault:"0"`

	PhotoBucket       string        `env:"LIFTPLAN_PHOTO_BUCKET" envDefault:""`
	S3Region          string        `env:"LIFTPLAN_S3_REGION" envDefault:"us-east-1"`
	S3Endpoint        string        `env:"LIFTPLAN_S3_ENDPOINT" envDefault:""`
	S3AccessKeyID     string        `env:"LIFTPLAN_S3_ACCESS_KEY_ID" envDefault:""`
	S3SecretAccessKey string        `env:"LIFTPLAN_S3_SECRET_ACCESS_KEY" envDefault:""`
	PhotoURLExpiry    time.Duration `env:"LIFTPLAN_PHOTO_URL_EXPIRY" envDefault:"15m"`
}

// withLogFile tees the records of logger into a rotating JSON file when cfg.LogFile is set.
func withLogFile(logger *slog.Logger, cfg config) (*slog.Logger, io.Closer) {
	if cfg.LogFile == "" {
		return logger, io.NopCloser(nil)
	}
	fileHandler, closer := logging.NewFileHandler(logging.FileConfig{
		Filename:   cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: 3, //nolint:mnd // a few rotated files are enough.
		Level:      cfg.LogLevel,
	})
	return slog.New(logging.NewFanoutHandler(logger.Handler(), logging.NewContextHandler(fileHandler))), closer
}

// openStore returns the PostgreSQL store when configured and the SQLite store otherwise.
func openStore(ctx context.Context, cfg config, db *sqlite.Database, logger *slog.Logger) (tablestore.Store, error) {
	if cfg.PostgresURL == "" {
		return db.Store(), nil
	}
	pool, err := postgres.NewPool(ctx, cfg.PostgresURL, logger)
	if err != nil {
		return nil, errors.Wrap(err, "open postgres pool")
	}
	context.AfterFunc(ctx, pool.Close)
	logger.LogAttrs(ctx, slog.LevelInfo, "domain tables in postgres")
	return postgres.NewStore(pool), nil
}

func serviceOptions(ctx context.Context, cfg config, logger *slog.Logger, m *metrics.Manager) ([]workout.Option, error) {
	opts := []workout.Option{workout.WithMetrics(m)}
	if cfg.RandomSeed != 0 {
		opts = append(opts, workout.WithRand(rand.New(rand.NewPCG(cfg.RandomSeed, cfg.RandomSeed))))
	}
	if cfg.PhotoBucket == "" {
		return opts, nil
	}
	storage, err := photos.New(ctx, photos.Config{
		Bucket:          cfg.PhotoBucket,
		Region:          cfg.S3Region,
		Endpoint:        cfg.S3Endpoint,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
		URLExpiry:       cfg.PhotoURLExpiry,
	}, logger)
	if err != nil {
		return nil, errors.Wrap(err, "new photo storage", slog.String("bucket", cfg.PhotoBucket))
	}
	return append(opts, workout.WithPhotoStorage(storage)), nil
}

func run(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error {
	var (
		cancel context.CancelFunc
		err    error
	)

	ctx, cancel = signal.NotifyContext(ctx, os.Interrupt)
	defer cancel()

	var cfg config
	if err = envstruct.Populate(&cfg, lookupEnv); err != nil {
		return errors.Wrap(err, "populate config")
	}

	logger, logCloser := withLogFile(logger, cfg)
	defer func() {
		_ = logCloser.Close()
	}()

	var htmlTemplatePath string
	if htmlTemplatePath, err = resolveAndVerifyTemplatePath(cfg.TemplatePath); err != nil {
		return errors.Wrap(err, "resolve template path")
	}

	db, err := sqlite.NewDatabase(ctx, cfg.SqliteURL, logger)
	if err != nil {
		return errors.Wrap(err, "open db", slog.String("url", cfg.SqliteURL))
	}
	defer func() {
		_ = db.Close()
	}()
	logger.LogAttrs(ctx, slog.LevelInfo, "connected to db")

	store, err := openStore(ctx, cfg, db, logger)
	if err != nil {
		return err
	}

	sessionManager := initializeSessionManager(db, cfg.SessionLifetime)

	var webAuthnHandler *webauthnhandler.WebAuthnHandler
	if webAuthnHandler, err = webauthnhandler.New(webauthnhandler.Config{
		Addr:        cfg.Addr,
		FQDN:        cfg.FQDN,
		DisplayName: "Liftplan",
	}, logger, sessionManager, db); err != nil {
		return errors.Wrap(err, "new webauthn handler")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metricsManager := metrics.NewManager(registry)

	opts, err := serviceOptions(ctx, cfg, logger, metricsManager)
	if err != nil {
		return err
	}

	app := application{
		logger:          logger,
		webAuthnHandler: webAuthnHandler,
		sessionManager:  sessionManager,
		templateFS:      os.DirFS(htmlTemplatePath),
		service:         workout.NewService(store, identity.NewProvider(), logger, opts...),
		sessions:        newSessionRegistry(),
		metrics:         metricsManager,
		registry:        registry,
	}

	if err = app.configureAndStartServer(ctx, cfg.Addr, app.routes()); err != nil {
		return errors.Wrap(err, "start server")
	}
	return nil
}

func initializeSessionManager(dbs *sqlite.Database, lifetime time.Duration) *scs.SessionManager {
	sessionManager := scs.New()
	sessionManager.Store = sqlite3store.NewWithCleanupInterval(dbs.ReadWrite, 24*time.Hour) //nolint:mnd // day
	sessionManager.Lifetime = lifetime
	sessionManager.Cookie.Persist = true
	sessionManager.Cookie.Secure = true
	sessionManager.Cookie.HttpOnly = true
	sessionManager.Cookie.SameSite = http.SameSiteStrictMode
	return sessionManager
}

func main() {
	ctx := context.Background()
	loggerHandler := logging.NewContextHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelDebug,
		ReplaceAttr: nil,
	}))
	logger := slog.New(loggerHandler)
	if err := run(ctx, logger, os.LookupEnv); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failure starting application", errors.SlogError(err))
		os.Exit(1)
	}
}
