package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds the full agent configuration
type Config struct {
	Env string `yaml:"env" env:"APP_ENV" env-default:"local"`

	Log struct {
		Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
		Format string `yaml:"format" env:"LOG_FORMAT" env-default:"console"`
	} `yaml:"log"`

	Backend struct {
		BaseURL string `yaml:"base_url" env:"BACKEND_BASE_URL" env-default:"http://localhost:8080"`
		APIKey  string `yaml:"api_key" env:"BACKEND_API_KEY"`
		Timeout int    `yaml:"timeout" env:"BACKEND_TIMEOUT" env-default:"15"` // seconds
	} `yaml:"backend"`

	Media struct {
		BaseURL      string `yaml:"base_url" env:"MEDIA_BASE_URL" env-default:"http://localhost:8080/media"`
		ProbeTimeout int    `yaml:"probe_timeout" env:"MEDIA_PROBE_TIMEOUT" env-default:"10"` // seconds
		ReadyTimeout int    `yaml:"ready_timeout" env:"MEDIA_READY_TIMEOUT" env-default:"30"` // seconds
	} `yaml:"media"`

	Geocode struct {
		BaseURL   string `yaml:"base_url" env:"GEOCODE_BASE_URL" env-default:"https://nominatim.openstreetmap.org"`
		UserAgent string `yaml:"user_agent" env:"GEOCODE_USER_AGENT" env-default:"drive-review-agent/1.0"`
		Timeout   int    `yaml:"timeout" env:"GEOCODE_TIMEOUT" env-default:"10"` // seconds
	} `yaml:"geocode"`

	Server struct {
		Port           int      `yaml:"port" env:"SERVER_PORT" env-default:"8090"`
		AllowedOrigins []string `yaml:"allowed_origins" env:"SERVER_ALLOWED_ORIGINS" env-default:"*"`
	} `yaml:"server"`
}

// LoadConfig reads configuration from the given YAML file with
// environment variable overrides
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return &cfg, nil
}
