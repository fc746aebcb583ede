package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"zomatoclean/pkg/contracts/domain"
)

// EnvPrefix namespaces every environment variable read by Load
const EnvPrefix = "ZC"

// Config represents the complete application configuration
type Config struct {
	Logging     LoggingConfig          `yaml:"logging" envconfig:"LOGGING"`
	Paths       PathsConfig            `yaml:"paths" envconfig:"PATHS"`
	Cleaning    CleaningConfig         `yaml:"cleaning" envconfig:"CLEANING"`
	Features    FeatureConfig          `yaml:"features" envconfig:"FEATURES"`
	Validation  domain.ValidationRules `yaml:"validation" envconfig:"VALIDATION"`
	Acquisition AcquisitionConfig      `yaml:"acquisition" envconfig:"ACQUISITION"`
	Server      ServerConfig           `yaml:"server" envconfig:"SERVER"`
	Metrics     MetricsConfig          `yaml:"metrics" envconfig:"METRICS"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Format   string `yaml:"format" envconfig:"FORMAT"`
	Output   string `yaml:"output" envconfig:"OUTPUT"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// PathsConfig contains the data directory layout. Relative entries are
// resolved against BaseDir, which defaults to the working directory.
type PathsConfig struct {
	BaseDir       string `yaml:"base_dir" envconfig:"BASE_DIR"`
	RawDir        string `yaml:"raw_dir" envconfig:"RAW_DIR"`
	ProcessedDir  string `yaml:"processed_dir" envconfig:"PROCESSED_DIR"`
	LogsDir       string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
	SourcePattern string `yaml:"source_pattern" envconfig:"SOURCE_PATTERN"`
}

// CleaningConfig holds the cleaning policy
type CleaningConfig struct {
	// MissingThreshold is the fraction of rows a column may miss before it is dropped
	MissingThreshold float64  `yaml:"missing_threshold" envconfig:"MISSING_THRESHOLD"`
	IQRMultiplier    float64  `yaml:"iqr_multiplier" envconfig:"IQR_MULTIPLIER"`
	TextColumns      []string `yaml:"text_columns" envconfig:"TEXT_COLUMNS"`
	NumericColumns   []string `yaml:"numeric_columns" envconfig:"NUMERIC_COLUMNS"`
	RatingSentinel   string   `yaml:"rating_sentinel" envconfig:"RATING_SENTINEL"`
	CuisineSentinel  string   `yaml:"cuisine_sentinel" envconfig:"CUISINE_SENTINEL"`
	DishSentinel     string   `yaml:"dish_sentinel" envconfig:"DISH_SENTINEL"`
}

// FeatureConfig holds bin edges and labels for the categorical features.
// Each edge list has exactly one more entry than its label list.
type FeatureConfig struct {
	CostEdges    []float64 `yaml:"cost_edges" envconfig:"COST_EDGES"`
	CostLabels   []string  `yaml:"cost_labels" envconfig:"COST_LABELS"`
	RatingEdges  []float64 `yaml:"rating_edges" envconfig:"RATING_EDGES"`
	RatingLabels []string  `yaml:"rating_labels" envconfig:"RATING_LABELS"`
}

// AcquisitionConfig configures the optional dataset download
type AcquisitionConfig struct {
	URL      string        `yaml:"url" envconfig:"URL"`
	FileName string        `yaml:"file_name" envconfig:"FILE_NAME"`
	Timeout  time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	RunTimeout      time.Duration `yaml:"run_timeout" envconfig:"RUN_TIMEOUT"`
	AllowedOrigins  []string      `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	RateLimitRPS    float64       `yaml:"rate_limit_rps" envconfig:"RATE_LIMIT_RPS"`
	RateLimitBurst  int           `yaml:"rate_limit_burst" envconfig:"RATE_LIMIT_BURST"`
}

// MetricsConfig controls OpenTelemetry setup
type MetricsConfig struct {
	Enabled        bool   `yaml:"enabled" envconfig:"ENABLED"`
	ServiceName    string `yaml:"service_name" envconfig:"SERVICE_NAME"`
	TraceExporter  string `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER"`
	MetricExporter string `yaml:"metric_exporter" envconfig:"METRIC_EXPORTER"`
}

// Load builds the configuration from defaults, an optional YAML file and
// the environment, in increasing order of precedence. A .env file in the
// working directory is loaded into the environment first when present.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()

	if configFile == "" {
		configFile = os.Getenv(EnvPrefix + "_CONFIG_FILE")
	}
	if configFile == "" {
		configFile = getConfigFilePath()
	}
	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file %s: %w", configFile, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays YAML values onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// getConfigFilePath returns the first config file found in the usual places
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

// Validate checks value ranges and normalizes logging options
func (c *Config) Validate() error {
	if c.Cleaning.MissingThreshold <= 0 || c.Cleaning.MissingThreshold > 1 {
		return fmt.Errorf("missing threshold must be in (0, 1], got %v", c.Cleaning.MissingThreshold)
	}
	if c.Cleaning.IQRMultiplier <= 0 {
		return fmt.Errorf("iqr multiplier must be positive, got %v", c.Cleaning.IQRMultiplier)
	}
	if err := validateBins("cost", c.Features.CostEdges, c.Features.CostLabels); err != nil {
		return err
	}
	if err := validateBins("rating", c.Features.RatingEdges, c.Features.RatingLabels); err != nil {
		return err
	}
	if c.Validation.MinRows < 0 {
		return fmt.Errorf("validation min rows must not be negative")
	}
	if c.Validation.MaxMissingPercentage < 0 || c.Validation.MaxMissingPercentage > 100 {
		return fmt.Errorf("validation max missing percentage must be in [0, 100]")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch strings.ToLower(c.Logging.Output) {
	case "console", "file", "both":
	default:
		c.Logging.Output = "console"
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		c.Logging.Format = "json"
	}
	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/data_cleaning.log"
	}

	return nil
}

func validateBins(name string, edges []float64, labels []string) error {
	if len(labels) == 0 {
		return fmt.Errorf("%s bins need at least one label", name)
	}
	if len(edges) != len(labels)+1 {
		return fmt.Errorf("%s bins: %d edges for %d labels, want %d edges", name, len(edges), len(labels), len(labels)+1)
	}
	for i := 1; i < len(edges); i++ {
		if math.IsNaN(edges[i]) || edges[i] <= edges[i-1] {
			return fmt.Errorf("%s bin edges must be strictly increasing", name)
		}
	}
	return nil
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "both",
			FilePath: "logs/data_cleaning.log",
		},
		Paths: PathsConfig{
			RawDir:        "data/raw",
			ProcessedDir:  "data/processed",
			LogsDir:       "logs",
			SourcePattern: "zomato",
		},
		Cleaning: CleaningConfig{
			MissingThreshold: 0.5,
			IQRMultiplier:    1.5,
			TextColumns: []string{
				domain.ColumnName,
				domain.ColumnLocation,
				domain.ColumnRestType,
				domain.ColumnCuisines,
				domain.ColumnDishLiked,
			},
			NumericColumns:  []string{domain.ColumnRate, domain.ColumnCost},
			RatingSentinel:  "0 out of 5",
			CuisineSentinel: "Unknown",
			DishSentinel:    "Not Specified",
		},
		Features: FeatureConfig{
			CostEdges:    []float64{0, 500, 1000, 2000, math.Inf(1)},
			CostLabels:   []string{"Budget", "Moderate", "Expensive", "Premium"},
			RatingEdges:  []float64{0, 2, 3, 4, 5},
			RatingLabels: []string{"Poor", "Average", "Good", "Excellent"},
		},
		Validation: domain.DefaultValidationRules(),
		Acquisition: AcquisitionConfig{
			FileName: "zomato.csv",
			Timeout:  60 * time.Second,
		},
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RunTimeout:      30 * time.Minute,
			AllowedOrigins:  []string{"http://localhost:8080"},
			RateLimitRPS:    20,
			RateLimitBurst:  10,
		},
		Metrics: MetricsConfig{
			Enabled:        true,
			ServiceName:    "zomatoclean",
			TraceExporter:  "none",
			MetricExporter: "prometheus",
		},
	}
}
