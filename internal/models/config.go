package models

// Config holds the application configuration
type Config struct {
	Server             ServerConfig   `json:"server"`
	Database           DatabaseConfig `json:"database"`
	Identity           IdentityConfig `json:"identity"`
	Tracing            TracingConfig  `json:"tracing"`
	LogLevel           string         `json:"log_level"`
	RetentionDays      int            `json:"retention_days"`
	PublicCallbackBase string         `json:"public_callback_base"`
}

// ServerConfig holds HTTP server related configuration
type ServerConfig struct {
	Port            int `json:"port"`
	ReadTimeoutSec  int `json:"read_timeout_sec"`
	WriteTimeoutSec int `json:"write_timeout_sec"`
	IdleTimeoutSec  int `json:"idle_timeout_sec"`
}

// DatabaseConfig holds database related configuration
type DatabaseConfig struct {
	Path string `json:"path"`
}

// IdentityConfig holds identity resolution configuration
type IdentityConfig struct {
	DefaultCountryCode string `json:"default_country_code"`
}

// TracingConfig contains OpenTelemetry configuration
type TracingConfig struct {
	Enabled        bool    `json:"enabled"`
	ServiceName    string  `json:"service_name"`
	ServiceVersion string  `json:"service_version"`
	Environment    string  `json:"environment"`
	OTLPEndpoint   string  `json:"otlp_endpoint"`
	SampleRate     float64 `json:"sample_rate"`
	UseStdout      bool    `json:"use_stdout"`
}

type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string {
	return e.Message
}
