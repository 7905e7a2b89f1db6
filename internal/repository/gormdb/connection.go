// Package gormdb implements the repositories on top of gorm, for MySQL
// (default) and PostgreSQL.
package gormdb

import (
	"context"
	"fmt"
	"time"

	"github.com/mealmate/server/internal/config"
	"github.com/mealmate/server/internal/domain"
	"github.com/mealmate/server/internal/repository"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type PoolOptions struct {
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// NewConnection opens the configured database and sizes its connection pool.
// Requests beyond the pool size wait for a free connection until their
// context expires.
func NewConnection(cfg *config.Config) (*gorm.DB, error) {
	dialector, err := Dialector(cfg.DBDriver, cfg.DSN())
	if err != nil {
		return nil, err
	}

	level := logger.Warn
	if cfg.IsDevelopment() {
		level = logger.Info
	}

	db, err := Open(dialector, PoolOptions{
		MaxOpenConns:    cfg.DBPoolSize,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	}, level)
	if err != nil {
		return nil, err
	}

	if cfg.DBAutoMigrate {
		if err := Migrate(db); err != nil {
			return nil, err
		}
	}

	return db, nil
}

func Dialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case config.DriverMySQL:
		return mysql.Open(dsn), nil
	case config.DriverPostgres:
		return postgres.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

func Open(dialector gorm.Dialector, pool PoolOptions, level logger.LogLevel) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
		sqlDB.SetMaxIdleConns(pool.MaxOpenConns)
	}
	if pool.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}

	return db, nil
}

// Migrate creates or updates the schema from the domain models.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.User{})
}

func NewRepositories(db *gorm.DB) *repository.Repositories {
	return &repository.Repositories{
		User:   NewUserRepository(db),
		Tx:     NewTransactor(db),
		Health: &pinger{db: db},
	}
}

type pinger struct {
	db *gorm.DB
}

func (p *pinger) Ping(ctx context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
