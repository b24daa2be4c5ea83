package config

import (
	"strings"
	"testing"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("TRANSPARENCIA_API_KEY", "test-key")
	t.Setenv("STORAGE_BASE_PATH", "gs://test-bucket/raw/notas_fiscais")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.APIBaseURL != DefaultAPIURL {
		t.Errorf("APIBaseURL = %q, want default %q", cfg.APIBaseURL, DefaultAPIURL)
	}
	if cfg.BigQueryDataset != "nfe" {
		t.Errorf("BigQueryDataset = %q, want default %q", cfg.BigQueryDataset, "nfe")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want default %q", cfg.LogLevel, "info")
	}
	if cfg.BigQueryProjectID != "" {
		t.Errorf("BigQueryProjectID = %q, want empty (audit disabled)", cfg.BigQueryProjectID)
	}
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("TRANSPARENCIA_API_URL", "https://example.test/notas")
	t.Setenv("BIGQUERY_PROJECT_ID", "my-project")
	t.Setenv("BIGQUERY_DATASET", "audit")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.APIBaseURL != "https://example.test/notas" {
		t.Errorf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.BigQueryProjectID != "my-project" || cfg.BigQueryDataset != "audit" {
		t.Errorf("BigQuery settings = %q/%q", cfg.BigQueryProjectID, cfg.BigQueryDataset)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	tests := []struct {
		name  string
		unset string
		want  string
	}{
		{"missing API key", "TRANSPARENCIA_API_KEY", "TRANSPARENCIA_API_KEY"},
		{"missing base path", "STORAGE_BASE_PATH", "STORAGE_BASE_PATH"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.unset, "")

			_, err := Load()
			if err == nil {
				t.Fatal("Load() succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not name %q", err, tt.want)
			}
		})
	}
}

func TestValidate_BlankIsMissing(t *testing.T) {
	cfg := &Config{APIBaseURL: "https://example.test", APIKey: "   ", StorageBasePath: "gs://b/p"}
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() accepted a whitespace-only API key")
	}
}
