package storage

import (
	"fmt"
	"net/url"
	"os"
	"time"
)

// Config holds database connection and pool configuration.
type Config struct {
	// DSN is a full postgres:// connection string. When set it takes
	// precedence over the discrete Host/Port/... fields.
	DSN string

	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// LoadConfigFromEnv loads database configuration from TRUFFLE_DB_URL (or
// discrete DB_* variables as a fallback) with production-ready pool
// defaults.
func LoadConfigFromEnv() (Config, error) {
	cfg := Config{
		DSN:             os.Getenv("TRUFFLE_DB_URL"),
		Host:            getEnvOrDefault("DB_HOST", "localhost"),
		Port:            5432,
		User:            getEnvOrDefault("DB_USER", "truffle"),
		Password:        os.Getenv("DB_PASSWORD"),
		Database:        getEnvOrDefault("DB_NAME", "truffle"),
		SSLMode:         getEnvOrDefault("DB_SSLMODE", "disable"),
		MaxOpenConns:    25,
		MaxIdleConns:    10,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 15 * time.Minute,
	}

	if cfg.DSN == "" && cfg.Password == "" {
		return Config{}, fmt.Errorf("TRUFFLE_DB_URL or DB_PASSWORD must be set")
	}
	if cfg.MaxIdleConns > cfg.MaxOpenConns {
		return Config{}, fmt.Errorf("DB_MAX_IDLE_CONNS cannot exceed DB_MAX_OPEN_CONNS")
	}

	return cfg, nil
}

// ConnString builds a pgx-compatible connection string from the config.
func (c Config) ConnString() string {
	if c.DSN != "" {
		return c.DSN
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   "/" + c.Database,
	}
	q := u.Query()
	q.Set("sslmode", c.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
