package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultAPIURL is the notas-fiscais endpoint of the Portal da Transparência.
const DefaultAPIURL = "https://api.portaldatransparencia.gov.br/api-de-dados/notas-fiscais"

// Config holds everything the pipeline resolves from the environment.
type Config struct {
	// APIBaseURL and APIKey authenticate against the Portal da
	// Transparência API. Both are required.
	APIBaseURL string
	APIKey     string

	// StorageBasePath is the gs://bucket/prefix destination for the
	// partitioned parquet output. Required.
	StorageBasePath string

	// Run-audit settings. Auditing is disabled when BigQueryProjectID is
	// empty.
	BigQueryProjectID string
	BigQueryDataset   string

	LogLevel string
}

// Load reads configuration from a .env file (if present) and the
// environment. Required values are validated here so a misconfigured run
// fails before any network call is made.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		APIBaseURL:        getEnv("TRANSPARENCIA_API_URL", DefaultAPIURL),
		APIKey:            os.Getenv("TRANSPARENCIA_API_KEY"),
		StorageBasePath:   os.Getenv("STORAGE_BASE_PATH"),
		BigQueryProjectID: os.Getenv("BIGQUERY_PROJECT_ID"),
		BigQueryDataset:   getEnv("BIGQUERY_DATASET", "nfe"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every required value is set and non-blank.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIBaseURL) == "" {
		return fmt.Errorf("config: TRANSPARENCIA_API_URL is not set")
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("config: TRANSPARENCIA_API_KEY is not set; check your .env file")
	}
	if strings.TrimSpace(c.StorageBasePath) == "" {
		return fmt.Errorf("config: STORAGE_BASE_PATH is not set; check your .env file")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
