package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Agent configures the device-side check-in agent.
// Values come from environment variables or a local .env file.
type Agent struct {
	ServerURL    string        `mapstructure:"PRESENCE_SERVER_URL"`
	UserID       string        `mapstructure:"PRESENCE_USER_ID"`
	QueuePath    string        `mapstructure:"PRESENCE_QUEUE_PATH"`
	SyncInterval time.Duration `mapstructure:"PRESENCE_SYNC_INTERVAL"`
	HTTPTimeout  time.Duration `mapstructure:"PRESENCE_HTTP_TIMEOUT"`
	LogLevel     string        `mapstructure:"LOG_LEVEL"`
	UserAgent    string        `mapstructure:"PRESENCE_USER_AGENT"`
}

// LoadAgent reads agent configuration from configPath/.env and the environment.
// A missing .env file is not an error.
func LoadAgent(configPath string) (Agent, error) {
	v := viper.New()
	v.AddConfigPath(configPath)
	v.SetConfigName(".env")
	v.SetConfigType("env")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("PRESENCE_SERVER_URL", "http://localhost:8080")
	v.SetDefault("PRESENCE_QUEUE_PATH", "presence-agent.db")
	v.SetDefault("PRESENCE_SYNC_INTERVAL", 30*time.Second)
	v.SetDefault("PRESENCE_HTTP_TIMEOUT", 10*time.Second)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("PRESENCE_USER_AGENT", "presence-agent/1.0")

	// Bind env vars explicitly so Unmarshal sees keys without defaults.
	_ = v.BindEnv("PRESENCE_USER_ID")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Agent{}, fmt.Errorf("read agent config: %w", err)
		}
	}

	var cfg Agent
	if err := v.Unmarshal(&cfg); err != nil {
		return Agent{}, fmt.Errorf("decode agent config: %w", err)
	}
	if cfg.UserID == "" {
		return Agent{}, errors.New("PRESENCE_USER_ID is required")
	}
	if cfg.SyncInterval <= 0 {
		return Agent{}, fmt.Errorf("PRESENCE_SYNC_INTERVAL must be positive, got %s", cfg.SyncInterval)
	}
	return cfg, nil
}
