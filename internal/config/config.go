package config

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Config holds the service configuration, loaded from the environment.
// SupabaseURL and SupabaseAnonKey are both required to enable remote mode;
// when either is absent the service runs against the local SQLite store,
// which is a supported operating mode rather than an error.
type Config struct {
	Port string `envconfig:"PORT" default:"8080"`

	SupabaseURL     string `envconfig:"SUPABASE_URL"`
	SupabaseAnonKey string `envconfig:"SUPABASE_ANON_KEY"`

	DatabasePath string `envconfig:"DATABASE_PATH" default:"journal.db"`

	JWTSecret string `envconfig:"JWT_SECRET" default:"journal-secret-key"`
	APIKey    string `envconfig:"API_KEY" default:"test-api-key"`
	APISecret string `envconfig:"API_SECRET" default:"test-api-secret"`

	Environment string `envconfig:"ENV" default:"development"`
	Debug       bool   `envconfig:"DEBUG" default:"false"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, using process environment")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// RemoteEnabled reports whether Supabase credentials are configured.
func (c *Config) RemoteEnabled() bool {
	return c.SupabaseURL != "" && c.SupabaseAnonKey != ""
}
