package appconfig

import "fmt"

// BotConfig configures the Bot service.
type BotConfig struct {
	DatabaseURL string

	SlackBotAuthToken string
	SlackClientID     string
	SlackClientSecret string
	SlackOAuthURL     string

	Host string
	Port int
}

// LoadBotConfig reads the Bot's configuration from the process
// environment, grounded on original_source/slack_bot/config.py's
// SLACK_BOT_HOST/SLACK_BOT_PORT/SLACK_BOT_AUTH_TOKEN/SLACK_CLIENT_ID/
// SLACK_CLIENT_SECRET settings.
func LoadBotConfig() (BotConfig, error) {
	port, err := getEnvInt("SLACK_BOT_PORT", 8003)
	if err != nil {
		return BotConfig{}, err
	}

	cfg := BotConfig{
		DatabaseURL:       getEnvOrDefault("TRUFFLE_DB_URL", ""),
		SlackBotAuthToken: getEnvOrDefault("SLACK_BOT_AUTH_TOKEN", ""),
		SlackClientID:     getEnvOrDefault("SLACK_CLIENT_ID", ""),
		SlackClientSecret: getEnvOrDefault("SLACK_CLIENT_SECRET", ""),
		SlackOAuthURL:     getEnvOrDefault("SLACK_OAUTH_URL", "https://slack.com/oauth/v2/authorize"),
		Host:              getEnvOrDefault("SLACK_BOT_HOST", "0.0.0.0"),
		Port:              port,
	}

	if err := cfg.Validate(); err != nil {
		return BotConfig{}, err
	}
	return cfg, nil
}

// Validate checks the loaded configuration for fatal startup problems.
func (c BotConfig) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("TRUFFLE_DB_URL is required")
	}
	if c.SlackBotAuthToken == "" {
		return fmt.Errorf("SLACK_BOT_AUTH_TOKEN is required")
	}
	return nil
}
