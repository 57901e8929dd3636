package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// ClientConfig holds the archive client configuration
type ClientConfig struct {
	BackendURL string                       `mapstructure:"backend_url"`
	ProbeURL   string                       `mapstructure:"probe_url"`
	Session    SessionConfig                `mapstructure:"session"`
	Connection ConnectionConfig             `mapstructure:"connection"`
	Auth       ClientAuthConfig             `mapstructure:"auth"`
	Services   map[string]ServiceLinkConfig `mapstructure:"services"`
	Logging    LoggingConfig                `mapstructure:"logging"`
}

// SessionConfig locates the encrypted session file. Key is a base64 AES key
// or a passphrase.
type SessionConfig struct {
	File string `mapstructure:"file"`
	Key  string `mapstructure:"key"`
}

type ConnectionConfig struct {
	ProbeTimeout    time.Duration `mapstructure:"probe_timeout"`
	CheckTimeout    time.Duration `mapstructure:"check_timeout"`
	CycleTimeout    time.Duration `mapstructure:"cycle_timeout"`
	RecheckInterval time.Duration `mapstructure:"recheck_interval"`
	SessionTimeout  time.Duration `mapstructure:"session_timeout"`
	TableTimeout    time.Duration `mapstructure:"table_timeout"`
	NetworkPoll     time.Duration `mapstructure:"network_poll"`
}

type ClientAuthConfig struct {
	CallTimeout  time.Duration `mapstructure:"call_timeout"`
	RedirectTo   string        `mapstructure:"redirect_to"`
	MaxRetries   int           `mapstructure:"max_retries"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	MaxDelay     time.Duration `mapstructure:"max_delay"`
}

// ServiceLinkConfig overrides where an AI service's connect flow sends the user
type ServiceLinkConfig struct {
	AuthURL     string   `mapstructure:"auth_url"`
	ClientID    string   `mapstructure:"client_id"`
	RedirectURL string   `mapstructure:"redirect_url"`
	Scopes      []string `mapstructure:"scopes"`
}

// LoadClient reads the client configuration. path overrides CONFIG_PATH.
func LoadClient(path string) (*ClientConfig, error) {
	v, err := newViper(path, "./configs/client.yaml")
	if err != nil {
		return nil, err
	}
	setClientDefaults(v)
	bindClientEnvVars(v)

	var cfg ClientConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.BackendURL == "" {
		return nil, fmt.Errorf("backend_url is required")
	}
	if cfg.ProbeURL == "" {
		cfg.ProbeURL = cfg.BackendURL + "/api/v1/health"
	}

	return &cfg, nil
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "chat-archive", "session.enc")
}

func setClientDefaults(v *viper.Viper) {
	v.SetDefault("backend_url", "http://localhost:8080")

	// Session
	v.SetDefault("session.file", defaultSessionFile())

	// Connection
	v.SetDefault("connection.probe_timeout", "3s")
	v.SetDefault("connection.check_timeout", "10s")
	v.SetDefault("connection.cycle_timeout", "15s")
	v.SetDefault("connection.recheck_interval", "15s")
	v.SetDefault("connection.session_timeout", "5s")
	v.SetDefault("connection.table_timeout", "5s")
	v.SetDefault("connection.network_poll", "2s")

	// Auth
	v.SetDefault("auth.call_timeout", "10s")
	v.SetDefault("auth.max_retries", 3)
	v.SetDefault("auth.initial_delay", "500ms")
	v.SetDefault("auth.max_delay", "5s")

	// Logging
	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.max_age", "168h")
}

func bindClientEnvVars(v *viper.Viper) {
	v.BindEnv("backend_url", "ARCHIVE_BACKEND_URL")
	v.BindEnv("probe_url", "ARCHIVE_PROBE_URL")
	v.BindEnv("session.key", "ARCHIVE_SESSION_KEY")
	v.BindEnv("session.file", "ARCHIVE_SESSION_FILE")
	v.BindEnv("logging.level", "ARCHIVE_LOG_LEVEL")
}
