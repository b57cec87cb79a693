package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// legacyTokenEnv is the environment variable historically used for the
// Socrata app token, honored as a fallback when the prefixed variable is unset.
const legacyTokenEnv = "NYC_OPEN_DATA_APP_TOKEN"

// Config represents the complete pipeline configuration
type Config struct {
	Source  SourceConfig  `yaml:"source" envconfig:"SOURCE"`
	Dataset DatasetConfig `yaml:"dataset" envconfig:"DATASET"`
	Clean   CleanConfig   `yaml:"clean" envconfig:"CLEAN"`
	Logging LoggingConfig `yaml:"logging" envconfig:"LOGGING"`
}

// SourceConfig describes the remote Socrata endpoint
type SourceConfig struct {
	BaseURL  string        `yaml:"base_url" envconfig:"BASE_URL" default:"https://data.cityofnewyork.us/resource/erm2-nwe9.json" validate:"required,url"`
	AppToken string        `yaml:"app_token" envconfig:"APP_TOKEN"`
	Timeout  time.Duration `yaml:"timeout" envconfig:"TIMEOUT" default:"60s" validate:"gt=0"`
}

// DatasetConfig contains the download scope parameters
type DatasetConfig struct {
	Year       int           `yaml:"year" envconfig:"YEAR" default:"2025" validate:"gte=2010,lte=2100"`
	PageSize   int           `yaml:"page_size" envconfig:"PAGE_SIZE" default:"50000" validate:"gt=0"`
	SampleSize int           `yaml:"sample_size" envconfig:"SAMPLE_SIZE" default:"10000" validate:"gt=0"`
	PageDelay  time.Duration `yaml:"page_delay" envconfig:"PAGE_DELAY" default:"500ms" validate:"gte=0"`
	WindowDays int           `yaml:"window_days" envconfig:"WINDOW_DAYS" default:"365" validate:"gt=0"`
}

// CleanConfig contains cleaning thresholds
type CleanConfig struct {
	MaxResolutionHours float64 `yaml:"max_resolution_hours" envconfig:"MAX_RESOLUTION_HOURS" default:"720" validate:"gt=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info" validate:"oneof=debug info warn warning error"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/pipeline.log"`
}

// Load loads configuration from environment variables and an optional config file.
// Environment variables take precedence over file values.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("NYC311", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if configFile := getConfigFilePath(); configFile != "" {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileConfig, cfg)
	}

	// The historical token variable keeps working for existing deployments.
	if cfg.Source.AppToken == "" {
		cfg.Source.AppToken = os.Getenv(legacyTokenEnv)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// mergeConfigs merges file config with env config (env takes precedence)
func mergeConfigs(fileConfig, envConfig Config) Config {
	if envConfig.Source.BaseURL == "" {
		envConfig.Source.BaseURL = fileConfig.Source.BaseURL
	}
	if envConfig.Source.AppToken == "" {
		envConfig.Source.AppToken = fileConfig.Source.AppToken
	}
	if envConfig.Source.Timeout == 0 {
		envConfig.Source.Timeout = fileConfig.Source.Timeout
	}
	if envConfig.Dataset.Year == 0 {
		envConfig.Dataset.Year = fileConfig.Dataset.Year
	}
	if envConfig.Dataset.PageSize == 0 {
		envConfig.Dataset.PageSize = fileConfig.Dataset.PageSize
	}
	if envConfig.Dataset.SampleSize == 0 {
		envConfig.Dataset.SampleSize = fileConfig.Dataset.SampleSize
	}
	if envConfig.Dataset.WindowDays == 0 {
		envConfig.Dataset.WindowDays = fileConfig.Dataset.WindowDays
	}
	if envConfig.Clean.MaxResolutionHours == 0 {
		envConfig.Clean.MaxResolutionHours = fileConfig.Clean.MaxResolutionHours
	}
	if envConfig.Logging.Level == "" {
		envConfig.Logging.Level = fileConfig.Logging.Level
	}
	if envConfig.Logging.FilePath == "" {
		envConfig.Logging.FilePath = fileConfig.Logging.FilePath
	}

	return envConfig
}

// Validate validates the configuration using struct tags
func (c *Config) Validate() error {
	// JSON is the only supported log format
	if c.Logging.Format != "json" {
		c.Logging.Format = "json"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "console"
	}
	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/pipeline.log"
	}

	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	return nil
}

// getConfigFilePath returns the path to the config file, empty when none exists
func getConfigFilePath() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			BaseURL: "https://data.cityofnewyork.us/resource/erm2-nwe9.json",
			Timeout: 60 * time.Second,
		},
		Dataset: DatasetConfig{
			Year:       2025,
			PageSize:   50_000,
			SampleSize: 10_000,
			PageDelay:  500 * time.Millisecond,
			WindowDays: 365,
		},
		Clean: CleanConfig{
			MaxResolutionHours: 720,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/pipeline.log",
		},
	}
}
