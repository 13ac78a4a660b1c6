// Package config has the configuration for the service
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// Environment is the deployment environment the service runs in
type Environment string

const (
	EnvDevelopment Environment = "dev"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "prod"
	EnvTest        Environment = "test"
)

// Supported text-generation providers
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderClaude = "claude"
	ProviderOllama = "ollama"
)

// String returns the canonical short form of the environment
func (e Environment) String() string {
	return string(e)
}

// ParseEnvironment accepts the short and long spellings of an environment name.
// Unknown values return EnvDevelopment with an error.
func ParseEnvironment(s string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dev", "development":
		return EnvDevelopment, nil
	case "staging":
		return EnvStaging, nil
	case "prod", "production":
		return EnvProduction, nil
	case "test":
		return EnvTest, nil
	default:
		return EnvDevelopment, fmt.Errorf("ENV must be one of: [dev staging prod test], got: %s", s)
	}
}

var validProviders = []string{ProviderGemini, ProviderOpenAI, ProviderClaude, ProviderOllama}

// reloadSpecRegex matches a gocron At() spec such as "06:00" or "06:00;18:00"
var reloadSpecRegex = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d(;([01]\d|2[0-3]):[0-5]\d)*$`)

// Config holds all application configuration
type Config struct {
	Port              string
	Address           string
	Env               Environment
	LogLevel          string
	LogDir            string
	LogRetentionWeeks int   // Number of weeks to keep log files
	MaxLogFileSize    int64 // Maximum log file size in bytes
	MaxRequestBody    int64 // Maximum request body size in bytes, image uploads included
	MaxHeaderSize     int64 // Maximum header size in bytes
	CORSOrigins       []string

	// Reference data
	DrugsCSV          string
	InteractionsCSV   string
	DrugInfoCSV       string
	FuzzyThreshold    int
	TextScanThreshold int
	ReferenceReload   string // gocron At() spec, empty disables scheduled reloads
	DrugsURL          string // Optional remote sources refreshed before every load
	InteractionsURL   string
	DrugInfoURL       string

	// Collaborators
	LLMProvider     string
	GeminiAPIKey    string
	GeminiModel     string
	OpenAIAPIKey    string
	OpenAIModel     string
	OpenAIBaseURL   string
	AnthropicAPIKey string
	AnthropicModel  string
	OllamaBaseURL   string
	OllamaModel     string
	TTSVoice        string
	PromptsFile     string
	AIExplanation   bool
	MCPEnabled      bool
}

// Load loads and validates configuration from environment variables
func Load() (*Config, error) {
	env, envErr := ParseEnvironment(getEnvWithDefault("ENV", "dev"))
	if envErr != nil {
		return nil, fmt.Errorf("configuration validation failed: invalid ENV: %w", envErr)
	}

	cfg := &Config{
		Port:              getEnvWithDefault("PORT", "8000"),
		Address:           getEnvWithDefault("ADDRESS", "127.0.0.1"),
		Env:               env,
		LogLevel:          strings.ToLower(getEnvWithDefault("LOG_LEVEL", "info")),
		LogDir:            getEnvWithDefault("LOG_DIR", "logs"),
		LogRetentionWeeks: getIntEnvWithDefault("LOG_RETENTION_WEEKS", 4),         // 4 weeks default
		MaxLogFileSize:    getInt64EnvWithDefault("MAX_LOG_FILE_SIZE", 104857600), // 100MB default
		MaxRequestBody:    getInt64EnvWithDefault("MAX_REQUEST_BODY", 10485760),   // 10MB default, prescriptions are photos
		MaxHeaderSize:     getInt64EnvWithDefault("MAX_HEADER_SIZE", 1048576),     // 1MB default
		CORSOrigins:       splitList(getEnvWithDefault("CORS_ALLOWED_ORIGINS", "*")),

		DrugsCSV:          getEnvWithDefault("DRUGS_CSV", "data/drugs.csv"),
		InteractionsCSV:   getEnvWithDefault("INTERACTIONS_CSV", "data/interactions.csv"),
		DrugInfoCSV:       getEnvWithDefault("DRUG_INFO_CSV", "data/drug_info.csv"),
		FuzzyThreshold:    getIntEnvWithDefault("FUZZY_THRESHOLD", 88),
		TextScanThreshold: getIntEnvWithDefault("TEXT_SCAN_THRESHOLD", 90),
		ReferenceReload:   os.Getenv("REFERENCE_RELOAD"),
		DrugsURL:          os.Getenv("DRUGS_CSV_URL"),
		InteractionsURL:   os.Getenv("INTERACTIONS_CSV_URL"),
		DrugInfoURL:       os.Getenv("DRUG_INFO_CSV_URL"),

		LLMProvider:     strings.ToLower(getEnvWithDefault("LLM_PROVIDER", ProviderGemini)),
		GeminiAPIKey:    getEnvWithDefault("GEMINI_API_KEY", os.Getenv("GOOGLE_API_KEY")),
		GeminiModel:     getEnvWithDefault("GEMINI_MODEL", "gemini-2.5-flash"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:     getEnvWithDefault("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:   os.Getenv("OPENAI_BASE_URL"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:  getEnvWithDefault("ANTHROPIC_MODEL", "claude-3-5-haiku-latest"),
		OllamaBaseURL:   getEnvWithDefault("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaModel:     getEnvWithDefault("OLLAMA_MODEL", "llama3.1"),
		TTSVoice:        getEnvWithDefault("TTS_VOICE", "alloy"),
		PromptsFile:     os.Getenv("PROMPTS_FILE"),
		AIExplanation:   getBoolEnvWithDefault("AI_EXPLANATION", true),
		MCPEnabled:      getBoolEnvWithDefault("MCP_ENABLED", true),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// IsProduction reports whether the service runs in a production-like environment
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction || c.Env == EnvStaging
}

// validateConfig validates all configuration values
func validateConfig(cfg *Config) error {
	if err := validatePort(cfg.Port); err != nil {
		return fmt.Errorf("invalid PORT: %w", err)
	}

	if err := validateAddress(cfg.Address); err != nil {
		return fmt.Errorf("invalid ADDRESS: %w", err)
	}

	if err := validateEnv(cfg.Env); err != nil {
		return fmt.Errorf("invalid ENV: %w", err)
	}

	if err := validateLogLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	if err := validateSizeLimit(cfg.MaxRequestBody, "MAX_REQUEST_BODY"); err != nil {
		return fmt.Errorf("invalid MAX_REQUEST_BODY: %w", err)
	}

	if err := validateSizeLimit(cfg.MaxHeaderSize, "MAX_HEADER_SIZE"); err != nil {
		return fmt.Errorf("invalid MAX_HEADER_SIZE: %w", err)
	}

	if err := validateLogRetentionWeeks(cfg.LogRetentionWeeks); err != nil {
		return fmt.Errorf("invalid LOG_RETENTION_WEEKS: %w", err)
	}

	if err := validateMaxLogFileSize(cfg.MaxLogFileSize); err != nil {
		return fmt.Errorf("invalid MAX_LOG_FILE_SIZE: %w", err)
	}

	if err := validateThreshold(cfg.FuzzyThreshold, "FUZZY_THRESHOLD"); err != nil {
		return fmt.Errorf("invalid FUZZY_THRESHOLD: %w", err)
	}

	if err := validateThreshold(cfg.TextScanThreshold, "TEXT_SCAN_THRESHOLD"); err != nil {
		return fmt.Errorf("invalid TEXT_SCAN_THRESHOLD: %w", err)
	}

	if err := validateReloadSpec(cfg.ReferenceReload); err != nil {
		return fmt.Errorf("invalid REFERENCE_RELOAD: %w", err)
	}

	if err := validateProvider(cfg.LLMProvider); err != nil {
		return fmt.Errorf("invalid LLM_PROVIDER: %w", err)
	}

	for key, value := range map[string]string{
		"DRUGS_CSV_URL":        cfg.DrugsURL,
		"INTERACTIONS_CSV_URL": cfg.InteractionsURL,
		"DRUG_INFO_CSV_URL":    cfg.DrugInfoURL,
	} {
		if err := validateSourceURL(value, key); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	}

	return nil
}

// validateSourceURL checks an optional reference download URL
func validateSourceURL(value, name string) error {
	if value == "" {
		return nil
	}
	u, err := url.Parse(value)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an http(s) URL, got: %s", name, value)
	}
	return nil
}

// validatePort validates the PORT environment variable
func validatePort(port string) error {
	if port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}

	portNum, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("PORT must be a valid number: %w", err)
	}

	if portNum < 1 || portNum > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}

	if portNum < 1024 {
		return fmt.Errorf("PORT %d is privileged (less than 1024), use ports 1024-65535", portNum)
	}

	return nil
}

// validateAddress validates the ADDRESS environment variable
func validateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("ADDRESS cannot be empty")
	}

	if address == "127.0.0.1" || address == "::1" || address == "localhost" || address == "0.0.0.0" {
		return nil
	}

	ip := net.ParseIP(address)
	if ip == nil {
		return fmt.Errorf("ADDRESS must be a valid IP address or 'localhost', got: %s", address)
	}

	if !ip.IsLoopback() && !ip.IsPrivate() {
		return fmt.Errorf("ADDRESS %s is a public IP, consider using private network ranges for security", address)
	}

	return nil
}

// validateEnv validates the ENV environment variable
func validateEnv(env Environment) error {
	if env == "" {
		return fmt.Errorf("ENV cannot be empty")
	}

	validEnvs := []Environment{EnvDevelopment, EnvStaging, EnvProduction, EnvTest}
	if slices.Contains(validEnvs, env) {
		return nil
	}

	return fmt.Errorf("ENV must be one of: %v, got: %s", validEnvs, env)
}

// validateLogLevel validates the LOG_LEVEL environment variable
func validateLogLevel(logLevel string) error {
	if logLevel == "" {
		return fmt.Errorf("LOG_LEVEL cannot be empty")
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if slices.Contains(validLevels, strings.ToLower(logLevel)) {
		return nil
	}

	return fmt.Errorf("LOG_LEVEL must be one of: %v, got: %s", validLevels, logLevel)
}

// validateSizeLimit validates size limit configuration values
func validateSizeLimit(size int64, configName string) error {
	if size <= 0 {
		return fmt.Errorf("%s must be positive, got: %d", configName, size)
	}

	if size > 100*1024*1024 { // 100MB
		return fmt.Errorf("%s is too large (max 100MB), got: %d bytes", configName, size)
	}

	return nil
}

// validateLogRetentionWeeks validates the LOG_RETENTION_WEEKS environment variable
func validateLogRetentionWeeks(weeks int) error {
	if weeks <= 0 {
		return fmt.Errorf("LOG_RETENTION_WEEKS must be positive, got: %d", weeks)
	}

	if weeks > 52 {
		return fmt.Errorf("LOG_RETENTION_WEEKS is too large (max 52 weeks), got: %d", weeks)
	}

	return nil
}

// validateMaxLogFileSize validates the MAX_LOG_FILE_SIZE environment variable
func validateMaxLogFileSize(size int64) error {
	if size <= 0 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE must be positive, got: %d", size)
	}

	// Minimum 1MB, maximum 1GB
	if size < 1024*1024 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE is too small (min 1MB), got: %d bytes", size)
	}

	if size > 1024*1024*1024 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE is too large (max 1GB), got: %d bytes", size)
	}

	return nil
}

// validateThreshold validates a similarity floor on the 0..100 scale
func validateThreshold(threshold int, configName string) error {
	if threshold < 0 || threshold > 100 {
		return fmt.Errorf("%s must be between 0 and 100, got: %d", configName, threshold)
	}
	return nil
}

// validateReloadSpec validates the REFERENCE_RELOAD schedule, empty means disabled
func validateReloadSpec(spec string) error {
	if spec == "" {
		return nil
	}
	if !reloadSpecRegex.MatchString(spec) {
		return fmt.Errorf("REFERENCE_RELOAD must be HH:MM times separated by ';', got: %s", spec)
	}
	return nil
}

// validateProvider validates the LLM_PROVIDER environment variable
func validateProvider(provider string) error {
	if slices.Contains(validProviders, provider) {
		return nil
	}
	return fmt.Errorf("LLM_PROVIDER must be one of: %v, got: %s", validProviders, provider)
}

// getEnvWithDefault gets an environment variable with a default value
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnvWithDefault gets an environment variable as int with a default value
func getIntEnvWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getInt64EnvWithDefault gets an environment variable as int64 with a default value
func getInt64EnvWithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getBoolEnvWithDefault gets an environment variable as bool with a default value
// splitList splits a comma-separated value, dropping blank entries
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getBoolEnvWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// GetEnvVars returns a list of all expected environment variables
func GetEnvVars() []string {
	return []string{
		"PORT",
		"ADDRESS",
		"ENV",
		"LOG_LEVEL",
		"LOG_DIR",
		"LOG_RETENTION_WEEKS",
		"MAX_LOG_FILE_SIZE",
		"MAX_REQUEST_BODY",
		"MAX_HEADER_SIZE",
		"CORS_ALLOWED_ORIGINS",
		"DRUGS_CSV",
		"INTERACTIONS_CSV",
		"DRUG_INFO_CSV",
		"FUZZY_THRESHOLD",
		"TEXT_SCAN_THRESHOLD",
		"REFERENCE_RELOAD",
		"DRUGS_CSV_URL",
		"INTERACTIONS_CSV_URL",
		"DRUG_INFO_CSV_URL",
		"LLM_PROVIDER",
		"GEMINI_API_KEY",
		"GOOGLE_API_KEY",
		"GEMINI_MODEL",
		"OPENAI_API_KEY",
		"OPENAI_MODEL",
		"OPENAI_BASE_URL",
		"ANTHROPIC_API_KEY",
		"ANTHROPIC_MODEL",
		"OLLAMA_BASE_URL",
		"OLLAMA_MODEL",
		"TTS_VOICE",
		"PROMPTS_FILE",
		"AI_EXPLANATION",
		"MCP_ENABLED",
	}
}
