package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/akiya-reservations/internal/config"
	"github.com/example/akiya-reservations/internal/logging"
	"github.com/example/akiya-reservations/internal/persistence/sqlite"
	"github.com/example/akiya-reservations/internal/wiring"
)

func setTestEnvironment(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "akiya.db")
	t.Setenv("AKIYA_SESSION_SECRET", "test-secret")
	t.Setenv("AKIYA_SQLITE_PATH", dbPath)
	t.Setenv("AKIYA_LOG_LEVEL", "error")
	return dbPath
}

func TestRun_Help(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"help"}, &out))
	assert.Contains(t, out.String(), "provision-admin")
}

func TestRun_UnknownCommand(t *testing.T) {
	err := run(context.Background(), []string{"launch"}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown command "launch"`)
}

func TestRun_RequiresSessionSecret(t *testing.T) {
	setTestEnvironment(t)
	t.Setenv("AKIYA_SESSION_SECRET", "")

	err := run(context.Background(), []string{"migrate"}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AKIYA_SESSION_SECRET")
}

func TestRun_MigrateAndProvisionAdmin(t *testing.T) {
	dbPath := setTestEnvironment(t)
	ctx := context.Background()

	var out bytes.Buffer
	require.NoError(t, run(ctx, []string{"migrate"}, &out))
	assert.Contains(t, out.String(), "schema version 001, 1 applied, 0 pending")

	out.Reset()
	require.NoError(t, run(ctx, []string{"migrate"}, &out), "migrating twice is a no-op")
	assert.Contains(t, out.String(), "0 pending")

	out.Reset()
	err := run(ctx, []string{"provision-admin", "-email", "admin@example.com", "-password", "short"}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid administrator")

	t.Setenv("AKIYA_ADMIN_PASSWORD", "long-enough-secret")
	require.NoError(t, run(ctx, []string{"provision-admin", "-name", "Admin", "-email", "admin@example.com"}, &out))
	assert.Contains(t, out.String(), "administrator admin@example.com created")

	err = run(ctx, []string{"provision-admin", "-email", "admin@example.com"}, &out)
	require.Error(t, err, "the email is already registered")

	store, err := sqlite.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	user, err := store.GetUserByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.True(t, user.IsAdmin)
	assert.Equal(t, "Admin", user.Name)
}

func TestNewHandler_ServesAPIAndPages(t *testing.T) {
	setTestEnvironment(t)
	gin.SetMode(gin.TestMode)

	cfg, err := config.Load()
	require.NoError(t, err)
	logger := logging.Discard()

	store, err := openStore(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	backend, err := newDraftStore(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(backend.close)
	assert.Nil(t, backend.health, "the in-memory draft store has no health check")

	services := wiring.Build(store, wiring.Options{Location: cfg.Location, Drafts: backend.store, Logger: logger})
	handler, err := newHandler(cfg, services, healthChecks(store, backend), logger)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"sqlite":"ok"`)
	assert.NotContains(t, rec.Body.String(), "redis")

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/listings?kind=museum", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No museums found.")

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestHealthChecks_IncludeRedisWhenConfigured(t *testing.T) {
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "akiya.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	redisDown := errors.New("redis down")
	checks := healthChecks(store, draftBackend{health: func(context.Context) error { return redisDown }})
	require.Len(t, checks, 2)
	assert.NoError(t, checks["sqlite"](context.Background()))
	assert.ErrorIs(t, checks["redis"](context.Background()), redisDown)
}
