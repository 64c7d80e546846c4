// Package persistence stores prepacking events in PostgreSQL through GORM.
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/prepacking/backend/internal/infrastructure/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Database pairs the GORM handle used by repositories with its connection pool
type Database struct {
	DB   *gorm.DB
	pool *sql.DB
}

// Connect opens the prepacking database, sizes the pool from cfg and pings it
func Connect(ctx context.Context, cfg *config.DatabaseConfig, gormLog gormlogger.Interface) (*Database, error) {
	db, err := Open(postgres.Open(cfg.DSN()), gormLog)
	if err != nil {
		return nil, err
	}

	db.pool.SetMaxOpenConns(cfg.MaxOpenConns)
	db.pool.SetMaxIdleConns(cfg.MaxIdleConns)
	db.pool.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	db.pool.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)

	if err := db.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s@%s:%d: %w", cfg.DBName, cfg.Host, cfg.Port, err)
	}
	return db, nil
}

// Open wraps any dialector. Repository writes open their own transactions,
// so GORM's implicit per-statement transaction is skipped.
func Open(dialector gorm.Dialector, gormLog gormlogger.Interface) (*Database, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 gormLog,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	pool, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("access connection pool: %w", err)
	}
	return &Database{DB: db, pool: pool}, nil
}

// Pool returns the underlying connection pool for migrations and pool metrics
func (d *Database) Pool() *sql.DB {
	return d.pool
}

// Ping reports whether the database answers; it backs the readiness check
func (d *Database) Ping(ctx context.Context) error {
	return d.pool.PingContext(ctx)
}

func (d *Database) Close() error {
	return d.pool.Close()
}
