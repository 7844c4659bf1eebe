package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pos/backend/internal/infrastructure/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database owns the gorm handle and the connection pool under it.
type Database struct {
	DB   *gorm.DB
	pool *sql.DB
}

// NewDatabase opens and pings PostgreSQL. A nil gormLogger silences SQL logs.
func NewDatabase(cfg *config.DatabaseConfig, gormLogger logger.Interface) (*Database, error) {
	if gormLogger == nil {
		gormLogger = logger.Default.LogMode(logger.Silent)
	}

	// Repositories issue single statements; the order write path manages
	// its own two writes, so gorm's implicit transactions are off.
	gdb, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db, err := wrapDatabase(gdb)
	if err != nil {
		return nil, err
	}
	db.pool.SetMaxOpenConns(cfg.MaxOpenConns)
	db.pool.SetMaxIdleConns(cfg.MaxIdleConns)
	db.pool.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	db.pool.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)

	if err := db.pool.Ping(); err != nil {
		_ = db.pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

func wrapDatabase(gdb *gorm.DB) (*Database, error) {
	pool, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return &Database{DB: gdb, pool: pool}, nil
}

// Ping is the readiness probe for the database.
func (d *Database) Ping(ctx context.Context) error {
	return d.pool.PingContext(ctx)
}

// Close releases every pooled connection.
func (d *Database) Close() error {
	return d.pool.Close()
}
