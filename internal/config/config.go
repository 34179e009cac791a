package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	OCREngineTesseract = "tesseract"
	OCREngineText      = "text"

	ExportSinkLocal = "local"
	ExportSinkAzure = "azure"
)

type Config struct {
	Host               string        `yaml:"host"`
	Port               string        `yaml:"port"`
	RequestTimeout     time.Duration `yaml:"request_timeout"`
	ImageFetchTimeout  time.Duration `yaml:"image_fetch_timeout"`
	ScanTimeout        time.Duration `yaml:"scan_timeout"`
	MaxRequestBodySize int64         `yaml:"max_request_body_size"`

	// AllowedFrameHosts limits the hosts frames may be fetched from. A
	// leading "." matches subdomains. Empty allows any host.
	AllowedFrameHosts []string `yaml:"allowed_frame_hosts"`

	DataDir      string `yaml:"data_dir"`
	DatabasePath string `yaml:"database_path"`

	OCREngine   string `yaml:"ocr_engine"`
	OCRLanguage string `yaml:"ocr_language"`
	ScanWorkers int    `yaml:"scan_workers"`

	// StrictChecksums rejects MRZ reads whose check digits do not match.
	StrictChecksums bool    `yaml:"strict_checksums"`
	MaxAgeYears     int     `yaml:"max_age_years"`
	MinSharpness    float64 `yaml:"min_sharpness"`

	ExportSink       string `yaml:"export_sink"`
	AzureAccountName string `yaml:"azure_account_name"`
	AzureAccountKey  string `yaml:"-"`
	AzureContainer   string `yaml:"azure_container"`

	LogLevel string `yaml:"log_level"`
}

// Default returns the configuration used when neither a file nor the
// environment override a value.
func Default() *Config {
	return &Config{
		Host:               "0.0.0.0",
		Port:               "8080",
		RequestTimeout:     30 * time.Second,
		ImageFetchTimeout:  15 * time.Second,
		ScanTimeout:        20 * time.Second,
		MaxRequestBodySize: 10 * 1024 * 1024, // 10MB
		DataDir:            "data",
		OCREngine:          OCREngineTesseract,
		OCRLanguage:        "eng",
		ScanWorkers:        0,
		MaxAgeYears:        120,
		MinSharpness:       100.0,
		ExportSink:         ExportSinkLocal,
		AzureContainer:     "registrants",
		LogLevel:           "info",
	}
}

func (c *Config) ServerAddress() string {
	// Trim any whitespace from host and port
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// DatabaseFile returns the SQLite path, defaulting to a file in the data dir.
func (c *Config) DatabaseFile() string {
	if c.DatabasePath != "" {
		return c.DatabasePath
	}
	return filepath.Join(c.DataDir, "registrants.db")
}

// Load reads the optional YAML file at path, then applies environment
// overrides and validates the result. An empty path or a missing file yields
// the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func LoadFromEnv() (*Config, error) {
	return Load("")
}

func (c *Config) applyEnvOverrides() {
	c.Host = getEnvOrDefault("HOST", c.Host)
	c.Port = getEnvOrDefault("PORT", c.Port)
	c.RequestTimeout = parseDurationOrDefault("REQUEST_TIMEOUT", c.RequestTimeout)
	c.ImageFetchTimeout = parseDurationOrDefault("IMAGE_FETCH_TIMEOUT", c.ImageFetchTimeout)
	c.ScanTimeout = parseDurationOrDefault("SCAN_TIMEOUT", c.ScanTimeout)
	c.MaxRequestBodySize = parseIntOrDefault("MAX_REQUEST_BODY_SIZE", c.MaxRequestBodySize)
	c.AllowedFrameHosts = parseListOrDefault("ALLOWED_FRAME_HOSTS", c.AllowedFrameHosts)
	c.DataDir = getEnvOrDefault("DATA_DIR", c.DataDir)
	c.DatabasePath = getEnvOrDefault("DATABASE_PATH", c.DatabasePath)
	c.OCREngine = strings.ToLower(getEnvOrDefault("OCR_ENGINE", c.OCREngine))
	c.OCRLanguage = getEnvOrDefault("OCR_LANGUAGE", c.OCRLanguage)
	c.ScanWorkers = int(parseIntOrDefault("SCAN_WORKERS", int64(c.ScanWorkers)))
	c.StrictChecksums = parseBoolOrDefault("STRICT_CHECKSUMS", c.StrictChecksums)
	c.MaxAgeYears = int(parseIntOrDefault("MAX_AGE_YEARS", int64(c.MaxAgeYears)))
	c.MinSharpness = parseFloatOrDefault("MIN_SHARPNESS", c.MinSharpness)
	c.ExportSink = strings.ToLower(getEnvOrDefault("EXPORT_SINK", c.ExportSink))
	c.AzureAccountName = getEnvOrDefault("AZURE_ACCOUNT_NAME", c.AzureAccountName)
	c.AzureAccountKey = getEnvOrDefault("AZURE_ACCOUNT_KEY", c.AzureAccountKey)
	c.AzureContainer = getEnvOrDefault("AZURE_CONTAINER", c.AzureContainer)
	c.LogLevel = getEnvOrDefault("LOG_LEVEL", c.LogLevel)
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	// Validate port is numeric and in range
	p, err := strconv.Atoi(strings.TrimSpace(c.Port))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Port)
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", c.MaxRequestBodySize)
	}
	if c.RequestTimeout <= 0 || c.ImageFetchTimeout <= 0 || c.ScanTimeout <= 0 {
		return fmt.Errorf("timeouts must be > 0 (got request=%s, fetch=%s, scan=%s)",
			c.RequestTimeout, c.ImageFetchTimeout, c.ScanTimeout)
	}
	if c.ScanWorkers < 0 {
		return fmt.Errorf("SCAN_WORKERS must be >= 0 (got %d)", c.ScanWorkers)
	}
	if c.MaxAgeYears < 1 || c.MaxAgeYears > 150 {
		return fmt.Errorf("MAX_AGE_YEARS must be between 1 and 150 (got %d)", c.MaxAgeYears)
	}
	switch c.OCREngine {
	case OCREngineTesseract, OCREngineText:
	default:
		return fmt.Errorf("unsupported OCR_ENGINE: %q", c.OCREngine)
	}
	switch c.ExportSink {
	case ExportSinkLocal:
	case ExportSinkAzure:
		if c.AzureAccountName == "" || c.AzureAccountKey == "" {
			return fmt.Errorf("EXPORT_SINK=azure requires AZURE_ACCOUNT_NAME and AZURE_ACCOUNT_KEY")
		}
	default:
		return fmt.Errorf("unsupported EXPORT_SINK: %q", c.ExportSink)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func parseFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func parseListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var list []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}

func parseBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return defaultValue
}
