package config

import (
	"fmt"
	"os"
	"strconv"

	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	Port        string
	CORSOrigins []string
	Auth        AuthConfig
	Postgres    PostgresConfig
	TLS         TLSConfig
}

type AuthConfig struct {
	JWTSecret   string
	HashCost    int
	AllowSignup bool
}

type PostgresConfig struct {
	DatabaseURL string
	Host        string
	Port        string
	User        string
	Password    string
	Database    string
	SSLMode     string
}

type TLSConfig struct {
	CertFile     string
	KeyFile      string
	ClientCAFile string
}

// Enabled reports whether the server should terminate TLS itself.
func (t TLSConfig) Enabled() bool {
	return t.CertFile != "" || t.KeyFile != ""
}

// Load reads the whole configuration from the environment once, at startup.
// Missing required values are an error here rather than a per-request failure.
func Load() (Config, error) {
	cfg := Config{
		Port: getenv("PORT", "3030"),
		Auth: AuthConfig{
			JWTSecret:   os.Getenv("JWT_SECRET"),
			HashCost:    bcrypt.DefaultCost,
			AllowSignup: os.Getenv("ALLOW_SIGNUP") == "true",
		},
		Postgres: PostgresConfig{
			DatabaseURL: os.Getenv("DATABASE_URL"),
			Host:        getenv("PGHOST", "localhost"),
			Port:        getenv("PGPORT", "5432"),
			User:        os.Getenv("PGUSER"),
			Password:    os.Getenv("PGPASSWORD"),
			Database:    os.Getenv("PGDATABASE"),
			SSLMode:     getenv("PGSSLMODE", "disable"),
		},
		TLS: TLSConfig{
			CertFile:     os.Getenv("TLS_CERT_FILE"),
			KeyFile:      os.Getenv("TLS_KEY_FILE"),
			ClientCAFile: os.Getenv("TLS_CLIENT_CA_FILE"),
		},
	}

	if origin := os.Getenv("CORS_ORIGIN"); origin != "" {
		cfg.CORSOrigins = []string{origin}
	}

	if cfg.Auth.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}

	if raw := os.Getenv("HASH_COST"); raw != "" {
		cost, err := strconv.Atoi(raw)
		if err != nil || cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
			return Config{}, fmt.Errorf("invalid HASH_COST %q", raw)
		}
		cfg.Auth.HashCost = cost
	}

	// TLS material is all-or-nothing: a half-configured listener must fail
	// at startup, not on the first connection.
	if (cfg.TLS.CertFile == "") != (cfg.TLS.KeyFile == "") {
		return Config{}, fmt.Errorf("TLS_CERT_FILE and TLS_KEY_FILE must be set together")
	}
	if cfg.TLS.ClientCAFile != "" && !cfg.TLS.Enabled() {
		return Config{}, fmt.Errorf("TLS_CLIENT_CA_FILE requires TLS_CERT_FILE and TLS_KEY_FILE")
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
