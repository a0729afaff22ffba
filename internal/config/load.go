package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable the loader reads,
// e.g. NUDGE_DATABASE_URL for database.url.
const EnvPrefix = "NUDGE"

// Load configuration from environment variables and optionally a config.yaml
// in the working directory. Environment variables take precedence over values
// from the config file. Returns a populated Config or an error if loading or
// validation fails.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile behaves like Load but reads the given config file when path is
// non-empty. A missing default config.yaml is not an error.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can resolve it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "json")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_lifetime_minutes", 60)

	v.SetDefault("llm.gemini_api_key", "")
	v.SetDefault("llm.model_name", "gemini-2.0-flash")
	v.SetDefault("llm.max_retries", 2)
	v.SetDefault("llm.retry_delay", time.Second)

	v.SetDefault("scheduler.interval", time.Minute)
	v.SetDefault("scheduler.concurrency", 4)
	v.SetDefault("scheduler.batch_size", 100)
	v.SetDefault("scheduler.send_timeout", 15*time.Second)
	v.SetDefault("scheduler.analysis_timeout", 30*time.Second)
	v.SetDefault("scheduler.stale_after", 30*time.Minute)

	v.SetDefault("mail.enabled", false)
	v.SetDefault("mail.base_url", "https://gmail.googleapis.com")
	v.SetDefault("mail.from", "")
	v.SetDefault("mail.oauth.client_id", "")
	v.SetDefault("mail.oauth.client_secret", "")
	v.SetDefault("mail.oauth.token_url", "https://oauth2.googleapis.com/token")

	v.SetDefault("messaging.enabled", false)
	v.SetDefault("messaging.base_url", "https://graph.facebook.com/v19.0")
	v.SetDefault("messaging.phone_number_id", "")
	v.SetDefault("messaging.access_token", "")

	v.SetDefault("files.enabled", false)
	v.SetDefault("files.base_url", "https://www.googleapis.com")
	v.SetDefault("files.oauth.client_id", "")
	v.SetDefault("files.oauth.client_secret", "")
	v.SetDefault("files.oauth.token_url", "https://oauth2.googleapis.com/token")

	v.SetDefault("events.enabled", false)
	v.SetDefault("events.nsqd_addr", "127.0.0.1:4150")
	v.SetDefault("events.topic", "nudge.task_outcomes")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "nudge-api")
	v.SetDefault("tracing.endpoint", "localhost:4318")
}
