package appconfig

import "fmt"

// ExpertAPIConfig configures the Expert API service.
type ExpertAPIConfig struct {
	DatabaseURL string
	Host        string
	Port        int
}

// LoadExpertAPIConfig reads the Expert API's configuration from the
// process environment, grounded on original_source/expert_api/config.py's
// EXPERT_API_HOST/EXPERT_API_PORT/TRUFFLE_DB_URL settings.
func LoadExpertAPIConfig() (ExpertAPIConfig, error) {
	port, err := getEnvInt("EXPERT_API_PORT", 8002)
	if err != nil {
		return ExpertAPIConfig{}, err
	}

	cfg := ExpertAPIConfig{
		DatabaseURL: getEnvOrDefault("TRUFFLE_DB_URL", ""),
		Host:        getEnvOrDefault("EXPERT_API_HOST", "0.0.0.0"),
		Port:        port,
	}

	if err := cfg.Validate(); err != nil {
		return ExpertAPIConfig{}, err
	}
	return cfg, nil
}

// Validate checks the loaded configuration for fatal startup problems.
func (c ExpertAPIConfig) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("TRUFFLE_DB_URL is required")
	}
	return nil
}
