package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth" validate:"required"`
	LLM       LLMConfig       `mapstructure:"llm" validate:"required"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" validate:"required"`
	Mail      MailConfig      `mapstructure:"mail"`
	Messaging MessagingConfig `mapstructure:"messaging"`
	Files     FilesConfig     `mapstructure:"files"`
	Events    EventsConfig    `mapstructure:"events"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	LogFormat       string        `mapstructure:"log_format" validate:"oneof=json text"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL          string `mapstructure:"url" validate:"required,url"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gt=0"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" validate:"gte=0"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret" validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0,lt=44640"` // Max 31 days
}

// LLMConfig contains the settings of the Gemini analyzer used by the
// content-analysis and media-processing strategies.
type LLMConfig struct {
	GeminiAPIKey string        `mapstructure:"gemini_api_key" validate:"required"`
	ModelName    string        `mapstructure:"model_name" validate:"required"`
	MaxRetries   int           `mapstructure:"max_retries" validate:"gte=0,lte=5"`
	RetryDelay   time.Duration `mapstructure:"retry_delay" validate:"gt=0"`
}

// SchedulerConfig controls the due-task runner.
type SchedulerConfig struct {
	// Interval between automatic runs. Zero disables the timer trigger.
	Interval        time.Duration `mapstructure:"interval" validate:"gte=0"`
	Concurrency     int           `mapstructure:"concurrency" validate:"gt=0,lte=256"`
	BatchSize       int           `mapstructure:"batch_size" validate:"gt=0"`
	SendTimeout     time.Duration `mapstructure:"send_timeout" validate:"gt=0"`
	AnalysisTimeout time.Duration `mapstructure:"analysis_timeout" validate:"gt=0"`
	StaleAfter      time.Duration `mapstructure:"stale_after" validate:"gt=0"`
}

// OAuthClientConfig identifies an OAuth client used to refresh stored tokens.
type OAuthClientConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	TokenURL     string `mapstructure:"token_url" validate:"omitempty,url"`
}

// MailConfig configures the Gmail email sender.
type MailConfig struct {
	Enabled bool              `mapstructure:"enabled"`
	BaseURL string            `mapstructure:"base_url" validate:"required_if=Enabled true,omitempty,url"`
	From    string            `mapstructure:"from" validate:"required_if=Enabled true,omitempty,email"`
	OAuth   OAuthClientConfig `mapstructure:"oauth"`
}

// MessagingConfig configures the WhatsApp Cloud API sender.
type MessagingConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	BaseURL       string `mapstructure:"base_url" validate:"required_if=Enabled true,omitempty,url"`
	PhoneNumberID string `mapstructure:"phone_number_id" validate:"required_if=Enabled true"`
	AccessToken   string `mapstructure:"access_token" validate:"required_if=Enabled true"`
}

// FilesConfig configures the Drive gateway used to fetch media content.
type FilesConfig struct {
	Enabled bool              `mapstructure:"enabled"`
	BaseURL string            `mapstructure:"base_url" validate:"required_if=Enabled true,omitempty,url"`
	OAuth   OAuthClientConfig `mapstructure:"oauth"`
}

// EventsConfig controls publishing of task outcome events to NSQ.
type EventsConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	NSQDAddr string `mapstructure:"nsqd_addr" validate:"required_if=Enabled true,omitempty,hostname_port"`
	Topic    string `mapstructure:"topic" validate:"required_if=Enabled true"`
}

// TracingConfig controls the OpenTelemetry exporter.
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
	Endpoint    string `mapstructure:"endpoint" validate:"required_if=Enabled true"`
}
