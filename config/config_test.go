package config

import (
	"os"
	"strings"
	"testing"
)

func TestLoadValidConfig(t *testing.T) {
	_ = os.Setenv("PORT", "8002")
	_ = os.Setenv("ADDRESS", "127.0.0.1")
	_ = os.Setenv("ENV", "dev")
	_ = os.Setenv("LOG_LEVEL", "info")
	_ = os.Setenv("DRUGS_CSV", "/srv/ref/drugs.csv")
	_ = os.Setenv("FUZZY_THRESHOLD", "85")
	_ = os.Setenv("REFERENCE_RELOAD", "06:00;18:00")
	defer cleanupEnv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.Port != "8002" {
		t.Errorf("Expected port 8002, got %s", cfg.Port)
	}
	if cfg.Env != EnvDevelopment {
		t.Errorf("Expected env dev, got %s", cfg.Env)
	}
	if cfg.DrugsCSV != "/srv/ref/drugs.csv" {
		t.Errorf("Expected drugs path override, got %s", cfg.DrugsCSV)
	}
	if cfg.FuzzyThreshold != 85 {
		t.Errorf("Expected fuzzy threshold 85, got %d", cfg.FuzzyThreshold)
	}
	if cfg.TextScanThreshold != 90 {
		t.Errorf("Expected default text threshold 90, got %d", cfg.TextScanThreshold)
	}
	if cfg.ReferenceReload != "06:00;18:00" {
		t.Errorf("Expected reload spec, got %q", cfg.ReferenceReload)
	}
}

func TestLoadWithDefaults(t *testing.T) {
	cleanupEnv()
	defer cleanupEnv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.Port != "8000" {
		t.Errorf("Expected default port 8000, got %s", cfg.Port)
	}
	if cfg.Address != "127.0.0.1" {
		t.Errorf("Expected default address 127.0.0.1, got %s", cfg.Address)
	}
	if cfg.Env != EnvDevelopment {
		t.Errorf("Expected default env dev, got %s", cfg.Env)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Expected default log level info, got %s", cfg.LogLevel)
	}
	if cfg.MaxRequestBody != 10*1024*1024 {
		t.Errorf("Expected default body limit 10MB, got %d", cfg.MaxRequestBody)
	}
	if cfg.FuzzyThreshold != 88 || cfg.TextScanThreshold != 90 {
		t.Errorf("Expected thresholds 88/90, got %d/%d", cfg.FuzzyThreshold, cfg.TextScanThreshold)
	}
	if cfg.ReferenceReload != "" {
		t.Errorf("Expected reload disabled by default, got %q", cfg.ReferenceReload)
	}
	if cfg.LLMProvider != ProviderGemini {
		t.Errorf("Expected default provider gemini, got %s", cfg.LLMProvider)
	}
	if !cfg.AIExplanation || !cfg.MCPEnabled {
		t.Error("Expected AI explanation and MCP enabled by default")
	}
}

func TestGeminiKeyFallsBackToGoogleKey(t *testing.T) {
	cleanupEnv()
	_ = os.Setenv("GOOGLE_API_KEY", "google-key")
	defer cleanupEnv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.GeminiAPIKey != "google-key" {
		t.Errorf("Expected GOOGLE_API_KEY fallback, got %q", cfg.GeminiAPIKey)
	}
}

func TestInvalidValues(t *testing.T) {
	testCases := []struct {
		key      string
		value    string
		expected string
	}{
		{"PORT", "abc", "PORT must be a valid number"},
		{"PORT", "0", "PORT must be between 1 and 65535"},
		{"PORT", "65536", "PORT must be between 1 and 65535"},
		{"PORT", "80", "PORT 80 is privileged"},
		{"ADDRESS", "invalid", "ADDRESS must be a valid IP address"},
		{"ADDRESS", "8.8.8.8", "is a public IP"},
		{"ENV", "invalid", "ENV must be one of"},
		{"LOG_LEVEL", "invalid", "LOG_LEVEL must be one of"},
		{"MAX_REQUEST_BODY", "-1", "MAX_REQUEST_BODY must be positive"},
		{"LOG_RETENTION_WEEKS", "60", "LOG_RETENTION_WEEKS is too large"},
		{"MAX_LOG_FILE_SIZE", "1024", "MAX_LOG_FILE_SIZE is too small"},
		{"FUZZY_THRESHOLD", "101", "FUZZY_THRESHOLD must be between 0 and 100"},
		{"TEXT_SCAN_THRESHOLD", "-5", "TEXT_SCAN_THRESHOLD must be between 0 and 100"},
		{"REFERENCE_RELOAD", "6am", "REFERENCE_RELOAD must be HH:MM"},
		{"REFERENCE_RELOAD", "25:00", "REFERENCE_RELOAD must be HH:MM"},
		{"LLM_PROVIDER", "mystery", "LLM_PROVIDER must be one of"},
		{"DRUGS_CSV_URL", "ftp://example.com/drugs.csv", "DRUGS_CSV_URL must be an http(s) URL"},
		{"DRUG_INFO_CSV_URL", "not a url", "DRUG_INFO_CSV_URL must be an http(s) URL"},
	}

	for _, tc := range testCases {
		t.Run(tc.key+"="+tc.value, func(t *testing.T) {
			cleanupEnv()
			defer cleanupEnv()
			_ = os.Setenv(tc.key, tc.value)

			_, err := Load()
			if err == nil {
				t.Fatalf("Expected error for %s=%s, got nil", tc.key, tc.value)
			}
			if !strings.Contains(err.Error(), tc.expected) {
				t.Errorf("Expected error containing %q, got %v", tc.expected, err)
			}
		})
	}
}

func TestIsProduction(t *testing.T) {
	tests := []struct {
		env      Environment
		expected bool
	}{
		{EnvDevelopment, false},
		{EnvTest, false},
		{EnvStaging, true},
		{EnvProduction, true},
	}

	for _, tt := range tests {
		cfg := &Config{Env: tt.env}
		if got := cfg.IsProduction(); got != tt.expected {
			t.Errorf("IsProduction() for %s = %v, want %v", tt.env, got, tt.expected)
		}
	}
}

func TestParseEnvironment(t *testing.T) {
	tests := []struct {
		input    string
		expected Environment
		hasError bool
	}{
		{"dev", EnvDevelopment, false},
		{"development", EnvDevelopment, false},
		{"staging", EnvStaging, false},
		{"prod", EnvProduction, false},
		{"production", EnvProduction, false},
		{" TEST ", EnvTest, false},
		{"invalid", EnvDevelopment, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			env, err := ParseEnvironment(tt.input)
			if tt.hasError {
				if err == nil {
					t.Errorf("Expected error for %s, got none", tt.input)
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error for %s: %v", tt.input, err)
			}
			if env != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, env)
			}
		})
	}
}

func TestEnvironmentString(t *testing.T) {
	tests := []struct {
		env      Environment
		expected string
	}{
		{EnvDevelopment, "dev"},
		{EnvStaging, "staging"},
		{EnvProduction, "prod"},
		{EnvTest, "test"},
	}

	for _, tt := range tests {
		if got := tt.env.String(); got != tt.expected {
			t.Errorf("Expected %s, got %s", tt.expected, got)
		}
	}
}

func cleanupEnv() {
	for _, key := range GetEnvVars() {
		_ = os.Unsetenv(key)
	}
}

func TestCORSOrigins(t *testing.T) {
	cleanupEnv()
	defer cleanupEnv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Errorf("Expected wildcard origin by default, got %v", cfg.CORSOrigins)
	}

	_ = os.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com, ,https://admin.example.com")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://admin.example.com" {
		t.Errorf("Expected two trimmed origins, got %v", cfg.CORSOrigins)
	}
}
