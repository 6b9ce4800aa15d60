package domain

// ServerConfig holds settings for the local status API
type ServerConfig struct {
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	BaseURL string `mapstructure:"base_url"`
}

// DatabaseConfig holds settings for the on-device SQLite store
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Path           string `mapstructure:"path"`
	Level          string `mapstructure:"level"`
	MaxFileSize    int    `mapstructure:"max_file_size"`
	MaxBackupCount int    `mapstructure:"max_backup_count"`
}

// SyncConfig holds settings for the sync queue
type SyncConfig struct {
	// FlushIntervalSeconds is the safety-net cadence for periodic flushes.
	FlushIntervalSeconds int `mapstructure:"flush_interval_seconds"`
	// MaxAttempts is the total number of send attempts before an item is dropped.
	MaxAttempts int `mapstructure:"max_attempts"`
}

// CacheConfig holds settings for the local read-through cache
type CacheConfig struct {
	MaxTotalBytes        int64 `mapstructure:"max_total_bytes"`
	SweepIntervalSeconds int   `mapstructure:"sweep_interval_seconds"`
}

// NetworkConfig holds settings for the connectivity prober
type NetworkConfig struct {
	ProbeURL             string `mapstructure:"probe_url"`
	ProbeIntervalSeconds int    `mapstructure:"probe_interval_seconds"`
}

// RemoteConfig holds settings for the remote DojoPool API
type RemoteConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	APIToken       string `mapstructure:"api_token"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// ConfigUpdate is a partial settings patch accepted over the API. Nil
// fields are left untouched. Changes apply in-memory only and are not
// written back to config.toml.
type ConfigUpdate struct {
	LogLevel *string `json:"log_level,omitempty"`
	LogPath  *string `json:"log_path,omitempty"`
}

// Config holds the application's configuration, mapped from config.toml
type Config struct {
	Version    string // not from config file
	ConfigPath string // internal use

	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Network  NetworkConfig  `mapstructure:"network"`
	Remote   RemoteConfig   `mapstructure:"remote"`
}
