package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/arhaval/yonetim-sub000/internal/httpapi"
	"github.com/arhaval/yonetim-sub000/internal/metrics"
	"github.com/arhaval/yonetim-sub000/internal/oplog"
	"github.com/arhaval/yonetim-sub000/internal/store/gormstore"
	"github.com/arhaval/yonetim-sub000/pkg/ledger"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	flagDatabaseURL        = "database-url"
	flagListenAddr         = "listen-addr"
	flagAllowedOrigins     = "allowed-origins"
	flagRequestTimeout     = "request-timeout"
	flagLogFormat          = "log-format"
	flagEditPackTTL        = "edit-pack-ttl"
	envPrefix              = "BACKOFFICE"
	defaultDatabaseURL     = "sqlite:///tmp/backoffice.db"
	defaultListenAddr      = ":8080"
	defaultRequestTimeout  = 5 * time.Second
	defaultLogFormat       = logFormatJSON
	logFormatJSON          = "json"
	logFormatConsole       = "console"
	driverPostgres         = "postgres"
	driverSQLite           = "sqlite"
	defaultSQLiteFile      = "backoffice.db"
	sqliteBusyTimeoutParam = "_pragma=busy_timeout(5000)"
)

type runtimeConfig struct {
	DatabaseURL string
	LogFormat   string
	EditPackTTL time.Duration
	HTTP        httpapi.Config
}

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "backoffice: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := &runtimeConfig{}
	cmd := &cobra.Command{
		Use:           "backoffice",
		Short:         "Talent back-office ledger and voiceover workflow server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, cfg)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg)
		},
	}

	cmd.Flags().String(flagDatabaseURL, defaultDatabaseURL, "PostgreSQL URL, sqlite:// URL or sqlite file path")
	cmd.Flags().String(flagListenAddr, defaultListenAddr, "HTTP listen address")
	cmd.Flags().String(flagAllowedOrigins, "", "comma-separated list of allowed CORS origins")
	cmd.Flags().Duration(flagRequestTimeout, defaultRequestTimeout, "per-request timeout")
	cmd.Flags().String(flagLogFormat, defaultLogFormat, "log format: json or console")
	cmd.Flags().Duration(flagEditPackTTL, ledger.DefaultEditPackTTL, "lifetime of edit pack share links")

	return cmd
}

func loadConfig(cmd *cobra.Command, cfg *runtimeConfig) error {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for _, flagName := range []string{flagDatabaseURL, flagListenAddr, flagAllowedOrigins, flagRequestTimeout, flagLogFormat, flagEditPackTTL} {
		if err := v.BindPFlag(flagName, cmd.Flags().Lookup(flagName)); err != nil {
			return err
		}
	}
	if err := v.BindEnv(flagDatabaseURL, envPrefix+"_DATABASE_URL", "DATABASE_URL"); err != nil {
		return err
	}

	cfg.DatabaseURL = strings.TrimSpace(v.GetString(flagDatabaseURL))
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = defaultDatabaseURL
	}
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(v.GetString(flagLogFormat)))
	if cfg.LogFormat != logFormatJSON && cfg.LogFormat != logFormatConsole {
		return fmt.Errorf("%s must be %q or %q", flagLogFormat, logFormatJSON, logFormatConsole)
	}
	cfg.EditPackTTL = v.GetDuration(flagEditPackTTL)
	if cfg.EditPackTTL <= 0 {
		return fmt.Errorf("%s must be positive", flagEditPackTTL)
	}
	cfg.HTTP = httpapi.Config{
		ListenAddr:     v.GetString(flagListenAddr),
		AllowedOrigins: httpapi.ParseAllowedOrigins(v.GetString(flagAllowedOrigins)),
		RequestTimeout: v.GetDuration(flagRequestTimeout),
	}
	return cfg.HTTP.Validate()
}

func newLogger(format string) (*zap.Logger, error) {
	if format == logFormatConsole {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func runServer(ctx context.Context, cfg *runtimeConfig) error {
	logger, err := newLogger(cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	gormDB, cleanup, driver, err := openDatabase(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database open: %w", err)
	}
	defer func() { _ = cleanup() }()

	if err := prepareSchema(gormDB, driver); err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewRecorder(registry)

	service, err := ledger.NewService(
		gormstore.New(gormDB),
		time.Now,
		ledger.WithOperationLogger(oplog.New(logger)),
		ledger.WithMetrics(recorder),
		ledger.WithEditPackTTL(cfg.EditPackTTL),
	)
	if err != nil {
		return fmt.Errorf("service init: %w", err)
	}

	router, err := httpapi.NewRouter(cfg.HTTP, httpapi.Dependencies{
		Service:  service,
		Logger:   logger,
		Observer: recorder,
		Gatherer: registry,
	})
	if err != nil {
		return fmt.Errorf("router init: %w", err)
	}
	logger.Info("backoffice starting", zap.String("driver", driver), zap.Duration("edit_pack_ttl", cfg.EditPackTTL))
	return httpapi.Run(ctx, cfg.HTTP, router, logger)
}

func openDatabase(ctx context.Context, dsn string) (*gorm.DB, func() error, string, error) {
	driver, sqlitePath, err := resolveDriver(dsn)
	if err != nil {
		return nil, nil, "", err
	}

	var db *gorm.DB
	cfg := &gorm.Config{}
	switch driver {
	case driverPostgres:
		db, err = gorm.Open(postgres.Open(dsn), cfg)
	case driverSQLite:
		db, err = gorm.Open(sqlite.Open(sqliteDSN(sqlitePath)), cfg)
	default:
		return nil, nil, "", fmt.Errorf("unsupported database scheme %q", driver)
	}
	if err != nil {
		return nil, nil, "", err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, "", err
	}
	if driver == driverSQLite {
		// SQLite allows one writer; a single connection keeps transactions serialized.
		sqlDB.SetMaxOpenConns(1)
	}
	cleanup := func() error { return sqlDB.Close() }
	return db.WithContext(ctx), cleanup, driver, nil
}

func resolveDriver(dsn string) (string, string, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return driverPostgres, "", nil
	}
	if strings.HasPrefix(dsn, "sqlite://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", "", fmt.Errorf("parse sqlite url: %w", err)
		}
		path := u.Path
		if path == "" {
			path = u.Host
		}
		if path == "" || path == "/" {
			path = defaultSQLiteFile
		}
		sqlitePath, err := normalizeSQLitePath(path)
		return driverSQLite, sqlitePath, err
	}
	// Treat everything else as a direct sqlite path.
	sqlitePath, err := normalizeSQLitePath(dsn)
	return driverSQLite, sqlitePath, err
}

func normalizeSQLitePath(path string) (string, error) {
	if path == ":memory:" {
		return path, nil
	}
	if strings.HasPrefix(path, "/") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", err
		}
		return path, nil
	}
	abs := filepath.Join(".", path)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", err
	}
	return abs, nil
}

func sqliteDSN(path string) string {
	if path == ":memory:" {
		return path
	}
	return path + "?" + sqliteBusyTimeoutParam
}

// prepareSchema migrates sqlite databases; PostgreSQL schemas are managed externally.
func prepareSchema(db *gorm.DB, driver string) error {
	if driver != driverSQLite {
		return nil
	}
	if err := db.AutoMigrate(gormstore.Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
