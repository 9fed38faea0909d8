package config

import (
	"encoding/json"
	"os"
	"strconv"

	"omnichat/internal/constants"
	"omnichat/internal/models"
)

var ErrMissingDBPath = models.ConfigError{Message: "missing database path"}

// Load reads the JSON config file, applies defaults and environment
// overrides and validates the result. An empty path yields a default
// configuration driven entirely by environment variables.
func Load(path string) (*models.Config, error) {
	var cfg models.Config

	if path != "" {
		file, err := os.ReadFile(path) // #nosec G304 - operator-supplied path
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(file, &cfg); err != nil {
			return nil, err
		}
	}

	applyDefaults(&cfg)
	applyEnvironmentOverrides(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyDefaults(c *models.Config) {
	if c.Server.Port == 0 {
		c.Server.Port = constants.DefaultServerPort
	}
	if c.Server.ReadTimeoutSec <= 0 {
		c.Server.ReadTimeoutSec = constants.DefaultServerReadTimeoutSec
	}
	if c.Server.WriteTimeoutSec <= 0 {
		c.Server.WriteTimeoutSec = constants.DefaultServerWriteTimeoutSec
	}
	if c.Server.IdleTimeoutSec <= 0 {
		c.Server.IdleTimeoutSec = constants.DefaultServerIdleTimeoutSec
	}
	if c.Database.Path == "" {
		c.Database.Path = "omnichat.db"
	}
	if c.Identity.DefaultCountryCode == "" {
		c.Identity.DefaultCountryCode = constants.DefaultCountryCode
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.RetentionDays <= 0 {
		c.RetentionDays = constants.DefaultRetentionDays
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "omnichat"
	}
	if c.Tracing.SampleRate <= 0 {
		c.Tracing.SampleRate = 1.0
	}
}

func applyEnvironmentOverrides(c *models.Config) {
	if port := os.Getenv("OMNICHAT_PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil {
			c.Server.Port = n
		}
	}
	if path := os.Getenv("OMNICHAT_DB_PATH"); path != "" {
		c.Database.Path = path
	}
	if code := os.Getenv("OMNICHAT_COUNTRY_CODE"); code != "" {
		c.Identity.DefaultCountryCode = code
	}
	if level := os.Getenv("OMNICHAT_LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}
	if base := os.Getenv("OMNICHAT_CALLBACK_BASE"); base != "" {
		c.PublicCallbackBase = base
	}
	if endpoint := os.Getenv("OMNICHAT_OTLP_ENDPOINT"); endpoint != "" {
		c.Tracing.OTLPEndpoint = endpoint
		c.Tracing.Enabled = true
	}
}

func validate(c *models.Config) error {
	if c.Database.Path == "" {
		return ErrMissingDBPath
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return models.ConfigError{Message: "server port out of range"}
	}
	return nil
}
