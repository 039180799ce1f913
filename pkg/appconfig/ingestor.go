package appconfig

import (
	"fmt"
	"time"
)

// defaultIngestionCron matches the source's "*/1 * * * *" (every minute),
// per original_source/ingestor/config.py's ingestion_cron.
const defaultIngestionCron = "*/1 * * * *"

const (
	defaultSlackBatchSize = 50
	defaultSlackBatchWait = 61 * time.Second
	defaultWorkerCount    = 4
)

// IngestorConfig configures the Ingestor service: chat polling, the
// skill-extraction/classification pipeline flags, worker pool size, and
// the cron schedule.
type IngestorConfig struct {
	DatabaseURL string

	SlackBotAuthToken string
	SlackBatchSize    int
	SlackBatchWait    time.Duration

	OpenAIAPIKey      string
	ClassifierModel   string
	ExtractSkills     bool
	ClassifyExpertise bool

	TaxonomyDir   string
	IngestionCron string
	WorkerCount   int

	Host string
	Port int
}

// LoadIngestorConfig reads the Ingestor's configuration from the process
// environment.
func LoadIngestorConfig() (IngestorConfig, error) {
	batchSize, err := getEnvInt("SLACK_BATCH_SIZE", defaultSlackBatchSize)
	if err != nil {
		return IngestorConfig{}, err
	}
	batchWait, err := getEnvDurationSeconds("SLACK_BATCH_WAIT_SECONDS", defaultSlackBatchWait)
	if err != nil {
		return IngestorConfig{}, err
	}
	workerCount, err := getEnvInt("INGESTOR_WORKER_COUNT", defaultWorkerCount)
	if err != nil {
		return IngestorConfig{}, err
	}
	port, err := getEnvInt("INGESTOR_PORT", 8001)
	if err != nil {
		return IngestorConfig{}, err
	}

	cfg := IngestorConfig{
		DatabaseURL:       getEnvOrDefault("TRUFFLE_DB_URL", ""),
		SlackBotAuthToken: getEnvOrDefault("SLACK_BOT_AUTH_TOKEN", ""),
		SlackBatchSize:    batchSize,
		SlackBatchWait:    batchWait,
		OpenAIAPIKey:      getEnvOrDefault("OPENAI_API_KEY", ""),
		ClassifierModel:   getEnvOrDefault("CLASSIFIER_MODEL", "gpt-4o"),
		ExtractSkills:     getEnvBool("EXTRACT_SKILLS"),
		ClassifyExpertise: getEnvBool("CLASSIFY_EXPERTISE"),
		TaxonomyDir:       getEnvOrDefault("TAXONOMY_DIR", "skills"),
		IngestionCron:     getEnvOrDefault("INGESTION_CRON", defaultIngestionCron),
		WorkerCount:       workerCount,
		Host:              getEnvOrDefault("INGESTOR_HOST", "0.0.0.0"),
		Port:              port,
	}

	if err := cfg.Validate(); err != nil {
		return IngestorConfig{}, err
	}
	return cfg, nil
}

// Validate checks the loaded configuration for values that would make the
// service unable to start correctly. A missing OpenAI key or skills import
// failure degrades the service rather than failing it — only a missing
// database URL, an unusable batch configuration and a worker count below 1
// are fatal here.
func (c IngestorConfig) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("TRUFFLE_DB_URL is required")
	}
	if c.SlackBatchSize < 1 {
		return fmt.Errorf("SLACK_BATCH_SIZE must be at least 1")
	}
	if c.WorkerCount < 1 {
		return fmt.Errorf("INGESTOR_WORKER_COUNT must be at least 1")
	}
	return nil
}
