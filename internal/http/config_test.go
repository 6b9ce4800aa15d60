package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dojopool/pocketsync/internal/config"
	"github.com/dojopool/pocketsync/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConfigRouter(cfg *config.AppConfig) *chi.Mux {
	srv := Server{version: "1.2.3", commit: "abc", date: "2026-01-01"}
	router := chi.NewRouter()
	newConfigHandler(encoder{}, srv, cfg).Routes(router)
	return router
}

func testAppConfig() *config.AppConfig {
	return &config.AppConfig{
		Config: &domain.Config{
			Server:  domain.ServerConfig{Host: "127.0.0.1", Port: 7474},
			Logging: domain.LoggingConfig{Level: "DEBUG", Path: "/tmp/logs"},
			Sync:    domain.SyncConfig{FlushIntervalSeconds: 30, MaxAttempts: 3},
			Cache:   domain.CacheConfig{MaxTotalBytes: 5242880},
		},
	}
}

func TestConfigHandler_Get(t *testing.T) {
	router := newConfigRouter(testAppConfig())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

	require.Equal(t, http.StatusOK, rr.Code)

	var conf configJson
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &conf))
	assert.Equal(t, "127.0.0.1", conf.Host)
	assert.Equal(t, 7474, conf.Port)
	assert.Equal(t, "DEBUG", conf.LogLevel)
	assert.Equal(t, 30, conf.FlushIntervalSeconds)
	assert.Equal(t, 3, conf.MaxAttempts)
	assert.Equal(t, int64(5242880), conf.CacheMaxTotalBytes)
	assert.Equal(t, "1.2.3", conf.Version)
}

func TestConfigHandler_Patch(t *testing.T) {
	cfg := testAppConfig()
	router := newConfigRouter(cfg)

	body := `{"log_level":"TRACE"}`
	req := httptest.NewRequest("PATCH", "/", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "TRACE", cfg.Config.Logging.Level)
	// untouched fields stay as configured
	assert.Equal(t, "/tmp/logs", cfg.Config.Logging.Path)
}

func TestConfigHandler_Patch_MalformedBody(t *testing.T) {
	cfg := testAppConfig()
	router := newConfigRouter(cfg)

	req := httptest.NewRequest("PATCH", "/", bytes.NewBufferString("not json"))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "DEBUG", cfg.Config.Logging.Level)
}
