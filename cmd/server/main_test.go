package main

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"net/http"
	"net/http/httptest"
	"testing"

	"getir-be/internal/config"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	cfg := config.FromEnv()
	cfg.AppEnv = "test"
	cfg.JWTSecret = "test-secret"
	return cfg
}

func TestNewServer(t *testing.T) {
	database, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer database.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	router, err := newServer(ctx, testConfig(), database)
	require.NoError(t, err)

	t.Run("Health Check", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "OK", rr.Body.String())
	})

	t.Run("Catalog is wired to the database", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM categories").
			WillReturnRows(sqlmock.NewRows([]string{
				"id", "name_ar", "name_en", "description_ar", "description_en", "icon", "sort_order", "is_active",
			}).AddRow(1, "ألبان", "Dairy", "", "", "", 1, true))

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/categories", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "Dairy")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Protected routes need a token", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/me", nil))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestNewServer_MissingSecret(t *testing.T) {
	cfg := testConfig()
	cfg.JWTSecret = ""

	_, err := newServer(context.Background(), cfg, &sql.DB{})
	assert.Error(t, err)
}

// --- Mock Driver for Testing ---
type mockDriver struct{}
type mockConn struct{}

func (m *mockDriver) Open(name string) (driver.Conn, error)   { return &mockConn{}, nil }
func (c *mockConn) Prepare(query string) (driver.Stmt, error) { return nil, driver.ErrSkip }
func (c *mockConn) Close() error                              { return nil }
func (c *mockConn) Begin() (driver.Tx, error)                 { return nil, driver.ErrSkip }

func init() {
	sql.Register("mock_driver_main", &mockDriver{})
}

func TestRun(t *testing.T) {
	origInitDB := initDBFunc
	defer func() { initDBFunc = origInitDB }()
	initDBFunc = func(cfg *config.Config) *sql.DB {
		db, _ := sql.Open("mock_driver_main", "")
		return db
	}

	origStartServer := startServerFunc
	defer func() { startServerFunc = origStartServer }()
	var gotAddr string
	startServerFunc = func(_ context.Context, addr string, handler http.Handler) error {
		gotAddr = addr
		return nil
	}

	t.Setenv("APP_PORT", "8080")
	t.Setenv("APP_ENV", "test")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("DB_USER", "user")
	t.Setenv("DB_PASSWORD", "pass")
	t.Setenv("DB_NAME", "db")
	t.Setenv("JWT_SECRET", "test-secret")

	assert.NoError(t, run())
	assert.Equal(t, ":8080", gotAddr)
}
