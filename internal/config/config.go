package config

import (
	"bytes"
	"log"
	"os"
	"path"
	"path/filepath"
	"sync"
	"text/template"

	"github.com/dojopool/pocketsync/internal/domain"
	"github.com/dojopool/pocketsync/internal/logger"
	"github.com/dojopool/pocketsync/pkg/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

var configTemplate = `# config.toml

[server]
  # Hostname or IP address for the local status API to listen on.
  # The status API is meant for the UI on the same device; keep it local.
  # Default: "127.0.0.1"
  host = "127.0.0.1"

  # Port for the status API.
  # Default: 7474
  port = 7474

  # Base URL when serving under a path prefix.
  # Optional.
  # Default: ""
  #base_url = ""

[database]
  # Path to the on-device SQLite database file.
  # Default: "pocketsync.db"
  path = "pocketsync.db"

[logging]
  # Log file directory.
  # If empty, logs go to standard error only.
  # Optional.
  # Default: ""
  path = ""

  # Log level.
  # Options: "ERROR", "WARN", "INFO", "DEBUG", "TRACE"
  # Default: "DEBUG"
  level = "DEBUG"

  # Maximum size of a log file in megabytes before rotation.
  # Default: 50
  max_file_size = 50

  # Maximum number of rotated log files to keep.
  # Default: 3
  max_backup_count = 3

[sync]
  # Safety-net cadence for periodic queue flushes, in seconds.
  # Default: 30
  flush_interval_seconds = 30

  # Total send attempts before a queue item is dropped.
  # Default: 3
  max_attempts = 3

[cache]
  # Size budget for the local cache, in bytes.
  # Default: 5242880 (5 MiB)
  max_total_bytes = 5242880

  # Cadence for the background TTL sweep, in seconds.
  # Default: 300 (5 minutes)
  sweep_interval_seconds = 300

[network]
  # URL probed to detect connectivity changes.
  # If empty, connectivity must be reported through the API.
  # Default: ""
  #probe_url = "https://api.dojopool.com/api/healthz/liveness"

  # Probe cadence, in seconds.
  # Default: 15
  probe_interval_seconds = 15

[remote]
  # Base URL of the DojoPool API.
  # Default: "https://api.dojopool.com"
  base_url = "https://api.dojopool.com"

  # API token for the signed-in account.
  # Default: ""
  api_token = ""

  # Per-request timeout, in seconds.
  # Default: 10
  timeout_seconds = 10
`

func writeConfig(configPath string, configFile string) error {
	cfgPath := filepath.Join(configPath, configFile)

	// check if configPath exists, if not create it
	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(configPath, os.ModePerm); err != nil {
			return errors.Wrap(err, "could not create config directory: %s", configPath)
		}
	}

	// check if config exists, if not create it
	if _, err := os.Stat(cfgPath); errors.Is(err, os.ErrNotExist) {
		f, err := os.Create(cfgPath)
		if err != nil {
			return errors.Wrap(err, "could not create config file: %s", cfgPath)
		}
		defer f.Close()

		tmpl, err := template.New("config").Parse(configTemplate)
		if err != nil {
			return errors.Wrap(err, "could not parse config template")
		}

		var buffer bytes.Buffer
		if err := tmpl.Execute(&buffer, nil); err != nil {
			return errors.Wrap(err, "could not render config template")
		}

		if _, err := f.WriteString(buffer.String()); err != nil {
			return errors.Wrap(err, "could not write config file: %s", cfgPath)
		}

		return f.Sync()
	}

	return nil
}

type Config interface {
	DynamicReload(log logger.Logger)
}

type AppConfig struct {
	Config *domain.Config
	m      sync.Mutex
}

func New(configPath string, version string) *AppConfig {
	c := &AppConfig{}
	c.defaults()
	c.Config.Version = version
	c.Config.ConfigPath = configPath

	c.load(configPath)

	return c
}

func (c *AppConfig) defaults() {
	c.Config = &domain.Config{
		Version:    "dev",
		ConfigPath: "",
		Server: domain.ServerConfig{
			Host:    "127.0.0.1",
			Port:    7474,
			BaseURL: "",
		},
		Database: domain.DatabaseConfig{
			Path: "pocketsync.db",
		},
		Logging: domain.LoggingConfig{
			Path:           "",
			Level:          "DEBUG",
			MaxFileSize:    50,
			MaxBackupCount: 3,
		},
		Sync: domain.SyncConfig{
			FlushIntervalSeconds: 30,
			MaxAttempts:          3,
		},
		Cache: domain.CacheConfig{
			MaxTotalBytes:        5 << 20,
			SweepIntervalSeconds: 300,
		},
		Network: domain.NetworkConfig{
			ProbeURL:             "",
			ProbeIntervalSeconds: 15,
		},
		Remote: domain.RemoteConfig{
			BaseURL:        "https://api.dojopool.com",
			APIToken:       "",
			TimeoutSeconds: 10,
		},
	}
}

func (c *AppConfig) load(configPath string) {
	viper.SetConfigType("toml")
	configPath = path.Clean(configPath)

	if configPath != "" && configPath != "." {
		if err := writeConfig(configPath, "config.toml"); err != nil {
			log.Printf("writeConfig error during load: %q", err)
		}
		viper.SetConfigFile(path.Join(configPath, "config.toml"))
	} else {
		viper.SetConfigName("config")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.config/pocketsync")
		viper.AddConfigPath("$HOME/.pocketsync")
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Printf("Config file not found, using defaults")
		} else {
			log.Printf("Config read error: %q. Using defaults.", err)
		}
	}

	if err := viper.Unmarshal(&c.Config); err != nil {
		log.Fatalf("Could not unmarshal config file into struct: %v. Config file used: %s", err, viper.ConfigFileUsed())
	}
}

func (c *AppConfig) DynamicReload(log logger.Logger) {
	viper.OnConfigChange(func(e fsnotify.Event) {
		c.m.Lock()
		defer c.m.Unlock()

		log.Info().Msgf("Config file changed: %s. Reloading configuration.", e.Name)

		if err := viper.ReadInConfig(); err != nil {
			log.Error().Err(err).Msg("Error reading config file during dynamic reload")
			return
		}

		var newConfig domain.Config
		// version and configPath are not file-backed
		newConfig.Version = c.Config.Version
		newConfig.ConfigPath = c.Config.ConfigPath

		if err := viper.Unmarshal(&newConfig); err != nil {
			log.Error().Err(err).Msg("Error unmarshalling config during dynamic reload")
			return
		}

		c.Config = &newConfig

		log.SetLogLevel(c.Config.Logging.Level)

		log.Debug().Msg("Configuration reloaded successfully!")
	})
	viper.WatchConfig()
}
