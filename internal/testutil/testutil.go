package testutil

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mealmate/server/internal/api"
	"github.com/mealmate/server/internal/api/middleware"
	"github.com/mealmate/server/internal/config"
	"github.com/mealmate/server/internal/database"
	"github.com/mealmate/server/internal/kakao"
	"github.com/mealmate/server/internal/repository"
	"github.com/mealmate/server/internal/repository/gormdb"
	"github.com/mealmate/server/internal/repository/memory"
	"github.com/mealmate/server/internal/service"
	"github.com/testcontainers/testcontainers-go"
	tcMySQL "github.com/testcontainers/testcontainers-go/modules/mysql"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormMySQL "gorm.io/driver/mysql"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB manages a database running in a testcontainer
type TestDB struct {
	Container testcontainers.Container
	DB        *gorm.DB
	DSN       string
	Driver    string
}

// NewTestDB starts a MySQL container, applies the SQL migrations and returns
// a connection. The test is skipped when no container runtime is available.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()

	container, err := tcMySQL.Run(ctx,
		"mysql:8.0.36",
		tcMySQL.WithDatabase("mealmate_test"),
		tcMySQL.WithUsername("test"),
		tcMySQL.WithPassword("test"),
	)
	testcontainers.CleanupContainer(t, container)
	if err != nil {
		t.Fatalf("failed to start mysql container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "charset=utf8mb4", "parseTime=True", "loc=UTC")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}
	migrateDSN, err := container.ConnectionString(ctx, "multiStatements=true")
	if err != nil {
		t.Fatalf("failed to get migration connection string: %v", err)
	}

	if err := database.RunMigrations(config.DriverMySQL, "mysql://"+migrateDSN); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	db, err := gormdb.Open(gormMySQL.Open(dsn), gormdb.PoolOptions{MaxOpenConns: 10}, logger.Silent)
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}

	return newTestDB(t, container, db, dsn, config.DriverMySQL)
}

// NewPostgresTestDB starts a PostgreSQL container for the alternate driver.
func NewPostgresTestDB(t *testing.T) *TestDB {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()

	container, err := tcPostgres.Run(ctx,
		"postgres:16-alpine",
		tcPostgres.WithDatabase("mealmate_test"),
		tcPostgres.WithUsername("test"),
		tcPostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	testcontainers.CleanupContainer(t, container)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	if err := database.RunMigrations(config.DriverPostgres, dsn); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	db, err := gormdb.Open(gormPostgres.Open(dsn), gormdb.PoolOptions{MaxOpenConns: 10}, logger.Silent)
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}

	return newTestDB(t, container, db, dsn, config.DriverPostgres)
}

func newTestDB(t *testing.T, container testcontainers.Container, db *gorm.DB, dsn, driver string) *TestDB {
	t.Helper()

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	return &TestDB{
		Container: container,
		DB:        db,
		DSN:       dsn,
		Driver:    driver,
	}
}

// Truncate clears all tables for test isolation
func (tdb *TestDB) Truncate(t *testing.T) {
	t.Helper()

	stmt := "TRUNCATE TABLE `user`"
	if tdb.Driver == config.DriverPostgres {
		stmt = `TRUNCATE TABLE "user" RESTART IDENTITY`
	}
	if err := tdb.DB.Exec(stmt).Error; err != nil {
		t.Fatalf("failed to truncate user table: %v", err)
	}
}

// TestConfig returns a configuration suitable for testing
func TestConfig() *config.Config {
	return &config.Config{
		Port:               "0",
		Environment:        "test",
		LogLevel:           "error",
		CORSAllowedOrigin:  "*",
		KakaoClientID:      "test-rest-api-key",
		KakaoRedirectURI:   "http://localhost/oauth/callback",
		ProviderTimeout:    2 * time.Second,
		JWTSecret:          "test-jwt-secret-key-for-testing-only",
		JWTExpiration:      7 * 24 * time.Hour,
		DBDriver:           config.DriverMemory,
		DBPoolSize:         10,
		DBTimeout:          5 * time.Second,
		RateLimitPerMinute: 1000,
	}
}

// TestServer holds all components for integration testing
type TestServer struct {
	Server   *httptest.Server
	Kakao    *FakeKakao
	Repos    *repository.Repositories
	Services *service.Services
	Config   *config.Config
}

// NewTestServer builds the full router over the in-memory store and a fake
// Kakao.
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()
	return newTestServer(t, memory.NewRepositories(memory.New()), TestConfig())
}

// NewTestServerWithConfig is NewTestServer with a caller-supplied config.
func NewTestServerWithConfig(t *testing.T, cfg *config.Config) *TestServer {
	t.Helper()
	return newTestServer(t, memory.NewRepositories(memory.New()), cfg)
}

// NewTestServerWithDB is NewTestServer backed by tdb.
func NewTestServerWithDB(t *testing.T, tdb *TestDB) *TestServer {
	t.Helper()
	cfg := TestConfig()
	cfg.DBDriver = tdb.Driver
	return newTestServer(t, gormdb.NewRepositories(tdb.DB), cfg)
}

func newTestServer(t *testing.T, repos *repository.Repositories, cfg *config.Config) *TestServer {
	t.Helper()

	fake := NewFakeKakao(t)
	cfg.KakaoAuthHost = fake.URL()
	cfg.KakaoAPIHost = fake.URL()

	client := kakao.NewClient(kakao.Config{
		ClientID:    cfg.KakaoClientID,
		RedirectURI: cfg.KakaoRedirectURI,
		AuthHost:    cfg.KakaoAuthHost,
		APIHost:     cfg.KakaoAPIHost,
		Timeout:     cfg.ProviderTimeout,
	})

	services, err := service.NewServices(repos, client, cfg)
	if err != nil {
		t.Fatalf("failed to build services: %v", err)
	}

	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{PerMinute: cfg.RateLimitPerMinute})
	server := httptest.NewServer(api.NewRouter(services, repos, limiter, cfg))

	t.Cleanup(func() {
		server.Close()
		limiter.Stop()
	})

	return &TestServer{
		Server:   server,
		Kakao:    fake,
		Repos:    repos,
		Services: services,
		Config:   cfg,
	}
}

// APIURL returns the full API URL for a given path
func (ts *TestServer) APIURL(path string) string {
	return fmt.Sprintf("%s/api%s", ts.Server.URL, path)
}
