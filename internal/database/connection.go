package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.InfoLevel)
}

const defaultMaxAttempts = 5

// InitDatabase initializes the database connection based on the provided configuration
// It supports both PostgreSQL and SQLite drivers with exponential backoff retry and connection pooling
func InitDatabase(ctx context.Context, cfg DatabaseConfig) (*gorm.DB, error) {
	driver := strings.ToLower(cfg.Driver)

	log.WithFields(logrus.Fields{
		"db_driver": driver,
		"db_host":   cfg.Host,
		"db_name":   cfg.Name,
		"db_path":   cfg.Path,
	}).Info("Initializing database connection")

	dialector, err := openDialector(driver, cfg)
	if err != nil {
		return nil, err
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = defaultMaxAttempts
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = time.Second
	expBackoff.MaxInterval = 16 * time.Second

	attempt := 0
	db, err := backoff.Retry(ctx, func() (*gorm.DB, error) {
		attempt++
		log.WithFields(logrus.Fields{
			"attempt":      attempt,
			"max_attempts": maxAttempts,
		}).Info("Attempting database connection")

		db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("failed to get database instance: %w", err))
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		return db, nil
	},
		backoff.WithBackOff(expBackoff),
		backoff.WithMaxTries(maxAttempts),
		backoff.WithNotify(func(err error, delay time.Duration) {
			log.WithFields(logrus.Fields{
				"attempt": attempt,
				"error":   err.Error(),
				"delay":   delay,
			}).Warn("Database connection attempt failed, retrying")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", attempt, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	configureConnectionPool(sqlDB, driver, cfg)

	log.WithFields(logrus.Fields{
		"db_driver": driver,
		"attempt":   attempt,
	}).Info("Database initialized successfully")

	return db, nil
}

func openDialector(driver string, cfg DatabaseConfig) (gorm.Dialector, error) {
	switch driver {
	case "postgres", "postgresql":
		log.WithField("dsn_host", cfg.Host).Debug("Connecting to PostgreSQL")
		return postgres.Open(cfg.DSN()), nil
	case "sqlite", "":
		log.WithField("db_path", cfg.Path).Debug("Connecting to SQLite")
		return sqlite.Open(cfg.DSN()), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s (supported: postgres, sqlite)", cfg.Driver)
	}
}

// configureConnectionPool sets up connection pool parameters
// SQLite is pinned to a single writer connection, which also keeps ":memory:" databases coherent
func configureConnectionPool(sqlDB *sql.DB, driver string, cfg DatabaseConfig) {
	maxOpen, maxIdle, lifetime := cfg.poolSettings()
	if driver == "sqlite" || driver == "" {
		maxOpen, maxIdle, lifetime = 1, 1, 0
	}

	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(lifetime)

	log.WithFields(logrus.Fields{
		"max_open_conns":    maxOpen,
		"max_idle_conns":    maxIdle,
		"conn_max_lifetime": lifetime,
	}).Debug("Connection pool configured")
}
