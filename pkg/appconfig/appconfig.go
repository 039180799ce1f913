// Package appconfig loads each service's environment-variable
// configuration, following pkg/database/config.go's
// getEnvOrDefault/Validate() shape and cmd/tarsy/main.go's
// godotenv-then-environment loading order.
package appconfig

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads a .env file if present, logging (not failing) when it
// is missing — variables already exported in the process environment take
// precedence over the file's values (godotenv.Load never overrides them),
// matching cmd/tarsy/main.go's tolerant startup behavior.
func LoadDotEnv(path string) {
	if err := godotenv.Load(path); err != nil {
		log.Printf("appconfig: no .env file at %s, using process environment", path)
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvBool treats "1" as true and anything else (including unset) as
// false — the EXTRACT_SKILLS/CLASSIFY_EXPERTISE flags' truthy convention.
func getEnvBool(key string) bool {
	return os.Getenv(key) == "1"
}

func getEnvInt(key string, defaultVal int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultVal, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getEnvDurationSeconds(key string, defaultVal time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultVal, nil
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return time.Duration(seconds) * time.Second, nil
}
