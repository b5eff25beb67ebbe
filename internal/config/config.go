package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config represents the application configuration
type Config struct {
	Database DatabaseConfig `json:"database" envPrefix:"ASKDB_"`
	Oracle   OracleConfig   `json:"oracle"   envPrefix:"ASKDB_"`
	Logging  LoggingConfig  `json:"logging"  envPrefix:"ASKDB_"`
	Display  DisplayConfig  `json:"display"  envPrefix:"ASKDB_"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Path         string `json:"path"          env:"DB_PATH"          envDefault:"~/.local/share/askdb/banking.db"`
	QueryTimeout string `json:"query_timeout" env:"DB_QUERY_TIMEOUT" envDefault:"30s"`
	MaxRows      int    `json:"max_rows"      env:"DB_MAX_ROWS"      envDefault:"1000"`
}

// OracleConfig represents the text-generation service configuration
type OracleConfig struct {
	Provider    string  `json:"provider"     env:"ORACLE_PROVIDER"    envDefault:"groq"`
	Model       string  `json:"model"        env:"ORACLE_MODEL"       envDefault:"llama-3.3-70b-versatile"`
	APIKey      string  `json:"api_key"      env:"ORACLE_API_KEY"`
	BaseURL     string  `json:"base_url"     env:"ORACLE_BASE_URL"`
	Temperature float64 `json:"temperature"  env:"ORACLE_TEMPERATURE" envDefault:"0.1"`
	MaxTokens   int     `json:"max_tokens"   env:"ORACLE_MAX_TOKENS"  envDefault:"1000"`
	Timeout     string  `json:"timeout"      env:"ORACLE_TIMEOUT"     envDefault:"60s"`
	MaxAttempts int     `json:"max_attempts" env:"ORACLE_MAX_ATTEMPTS" envDefault:"2"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `json:"level"  env:"LOG_LEVEL"  envDefault:"info"`   // debug, info, warn, error
	Format string `json:"format" env:"LOG_FORMAT" envDefault:"text"`   // text, json
	Output string `json:"output" env:"LOG_OUTPUT" envDefault:"stderr"` // stdout, stderr, file
	File   string `json:"file"   env:"LOG_FILE"   envDefault:"~/.local/share/askdb/logs/askdb.log"`
}

// DisplayConfig represents result presentation configuration
type DisplayConfig struct {
	ChartRowLimit int    `json:"chart_row_limit" env:"DISPLAY_CHART_ROW_LIMIT" envDefault:"50"`
	ExportDir     string `json:"export_dir"      env:"DISPLAY_EXPORT_DIR"      envDefault:"."`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig() (*Config, error) {
	return LoadConfigWithOverrides(nil)
}

// LoadConfigWithOverrides loads configuration with optional command-line flag overrides
func LoadConfigWithOverrides(flagOverrides map[string]interface{}) (*Config, error) {
	config := &Config{}

	// Load from config file if it exists
	configPath := getConfigPath()
	if _, err := os.Stat(configPath); err == nil {
		if err := loadConfigFromFile(config, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// Apply environment variable overrides using env library (also sets defaults)
	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	// Apply command-line flag overrides
	if flagOverrides != nil {
		applyFlagOverrides(config, flagOverrides)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// loadConfigFromFile loads configuration from a JSON file
func loadConfigFromFile(config *Config, configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fileConfig Config
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	mergeConfigs(config, &fileConfig)

	return nil
}

// applyFlagOverrides applies command-line flag overrides to configuration
func applyFlagOverrides(config *Config, overrides map[string]interface{}) {
	for key, value := range overrides {
		switch key {
		case "db-path":
			if str, ok := value.(string); ok && str != "" {
				config.Database.Path = str
			}
		case "log-level":
			if str, ok := value.(string); ok && str != "" {
				config.Logging.Level = str
			}
		case "provider":
			if str, ok := value.(string); ok && str != "" {
				config.Oracle.Provider = str
			}
		case "model":
			if str, ok := value.(string); ok && str != "" {
				config.Oracle.Model = str
			}
		case "max-rows":
			if n, ok := value.(int); ok && n > 0 {
				config.Database.MaxRows = n
			}
		}
	}
}

// mergeConfigs merges source configuration into target configuration
func mergeConfigs(target, source *Config) {
	var mergeValues func(t, s reflect.Value)
	mergeValues = func(t, s reflect.Value) {
		if t.Kind() != s.Kind() {
			return
		}

		if t.Kind() == reflect.Struct {
			for i := 0; i < s.NumField(); i++ {
				mergeValues(t.Field(i), s.Field(i))
			}
		} else if s.Kind() == reflect.Bool {
			t.Set(s)
		} else if !s.IsZero() {
			t.Set(s)
		}
	}

	mergeValues(reflect.ValueOf(target).Elem(), reflect.ValueOf(source).Elem())
}

// validateConfig validates the configuration for common errors
func validateConfig(config *Config) error {
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf(
			"invalid log level: %s (must be debug, info, warn, or error)",
			config.Logging.Level,
		)
	}

	validLogFormats := map[string]bool{
		"text": true, "json": true,
	}
	if !validLogFormats[strings.ToLower(config.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", config.Logging.Format)
	}

	validLogOutputs := map[string]bool{
		"stdout": true, "stderr": true, "file": true,
	}
	if !validLogOutputs[strings.ToLower(config.Logging.Output)] {
		return fmt.Errorf(
			"invalid log output: %s (must be stdout, stderr, or file)",
			config.Logging.Output,
		)
	}

	validProviders := map[string]bool{
		"groq": true, "openai": true, "ollama": true,
	}
	if !validProviders[strings.ToLower(config.Oracle.Provider)] {
		return fmt.Errorf(
			"invalid oracle provider: %s (must be groq, openai, or ollama)",
			config.Oracle.Provider,
		)
	}

	if _, err := time.ParseDuration(config.Database.QueryTimeout); err != nil {
		return fmt.Errorf("invalid database query timeout: %s", config.Database.QueryTimeout)
	}

	if _, err := time.ParseDuration(config.Oracle.Timeout); err != nil {
		return fmt.Errorf("invalid oracle timeout: %s", config.Oracle.Timeout)
	}

	if config.Oracle.Temperature < 0 || config.Oracle.Temperature > 1 {
		return fmt.Errorf(
			"oracle temperature must be within [0,1]: %g",
			config.Oracle.Temperature,
		)
	}

	if config.Oracle.MaxTokens <= 0 {
		return fmt.Errorf("oracle max tokens must be positive: %d", config.Oracle.MaxTokens)
	}

	if config.Oracle.MaxAttempts < 1 || config.Oracle.MaxAttempts > 2 {
		return fmt.Errorf(
			"oracle max attempts must be 1 or 2: %d",
			config.Oracle.MaxAttempts,
		)
	}

	if config.Database.MaxRows <= 0 {
		return fmt.Errorf("database max rows must be positive: %d", config.Database.MaxRows)
	}

	return nil
}

// getConfigPath returns the path to the configuration file
func getConfigPath() string {
	if configPath := os.Getenv("ASKDB_CONFIG"); configPath != "" {
		return expandPath(configPath)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}

	return filepath.Join(homeDir, ".config", "askdb", "config.json")
}

// expandPath expands ~ to home directory in file paths
func expandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return homeDir
	}

	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir, path[2:])
	}

	return path
}

// ExpandAllPaths expands all paths in the configuration
func (c *Config) ExpandAllPaths() {
	c.Database.Path = expandPath(c.Database.Path)
	c.Logging.File = expandPath(c.Logging.File)
	c.Display.ExportDir = expandPath(c.Display.ExportDir)
}

// QueryTimeoutDuration returns the parsed database query timeout
func (c *DatabaseConfig) QueryTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.QueryTimeout)
	if err != nil {
		return 30 * time.Second
	}

	return d
}

// TimeoutDuration returns the parsed oracle call timeout
func (c *OracleConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 60 * time.Second
	}

	return d
}

// EnsureDirectories creates necessary directories for the configuration
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		filepath.Dir(c.Database.Path),
		filepath.Dir(c.Logging.File),
	}

	for _, dir := range dirs {
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
		}
	}

	return nil
}
