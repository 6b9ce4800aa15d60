package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dojopool/pocketsync/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ConsoleOnly(t *testing.T) {
	cfg := &domain.Config{
		Version: "dev",
		Logging: domain.LoggingConfig{Level: "DEBUG"},
	}

	log := New(cfg)
	require.NotNil(t, log)

	// must not panic
	log.Info().Msg("hello")
	log.Debug().Str("k", "v").Msg("debug line")
}

func TestNew_CreatesLogDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	cfg := &domain.Config{
		Version: "1.0.0",
		Logging: domain.LoggingConfig{
			Path:           dir,
			Level:          "INFO",
			MaxFileSize:    5,
			MaxBackupCount: 1,
		},
	}

	log := New(cfg)
	log.Info().Msg("write something so the file exists")

	_, err := os.Stat(dir)
	assert.NoError(t, err)
}

func TestSetLogLevel_UnknownDisables(t *testing.T) {
	l := &DefaultLogger{}

	l.SetLogLevel("NOT-A-LEVEL")
	// Disabled loggers still hand out events without panicking.
	assert.NotPanics(t, func() {
		Mock().Info().Msg("discarded")
	})
}
