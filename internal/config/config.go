package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"snaplens/internal/logger"
	"snaplens/internal/reduce"
)

// Provider names accepted by the configuration.
const (
	OCRProviderOCRSpace   = "ocrspace"
	OCRProviderGoogle     = "google"
	OCRProviderDocumentAI = "documentai"

	ExplainProviderAnalyze = "analyze"
	ExplainProviderOpenAI  = "openai"
)

type Config struct {
	// OCR Configuration
	OCRProvider string
	OCRAPIKey   string
	OCREndpoint string

	// Analysis Configuration
	ExplainProvider string
	AnalysisBaseURL string
	OpenAIAPIKey    string
	OpenAIModel     string

	// Google Cloud Configuration (google / documentai providers)
	GoogleCloudProject    string
	GoogleCloudLocation   string
	DocumentAIProcessorID string

	// Reduction Configuration
	ByteCeiling   int
	BaselineWidth int
	StartQuality  int
	QualityFloor  int
	QualityStep   int

	// HTTP Configuration
	HTTPTimeout time.Duration

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
}

func Load() (*Config, error) {
	config := &Config{
		OCRProvider:           getEnv("OCR_PROVIDER", OCRProviderOCRSpace),
		OCRAPIKey:             getEnv("OCR_API_KEY", ""),
		OCREndpoint:           getEnv("OCR_ENDPOINT", ""),
		ExplainProvider:       getEnv("EXPLAIN_PROVIDER", ExplainProviderAnalyze),
		AnalysisBaseURL:       getEnv("ANALYSIS_BASE_URL", ""),
		OpenAIAPIKey:          getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:           getEnv("OPENAI_MODEL", ""),
		GoogleCloudProject:    getEnv("GOOGLE_CLOUD_PROJECT", ""),
		GoogleCloudLocation:   getEnv("GOOGLE_CLOUD_LOCATION", "us"),
		DocumentAIProcessorID: getEnv("DOCUMENT_AI_PROCESSOR_ID", ""),
		ByteCeiling:           getEnvInt("BYTE_CEILING", reduce.DefaultByteCeiling),
		BaselineWidth:         getEnvInt("BASELINE_WIDTH", reduce.DefaultBaselineWidth),
		StartQuality:          getEnvInt("START_QUALITY", reduce.DefaultStartQuality),
		QualityFloor:          getEnvInt("QUALITY_FLOOR", reduce.DefaultQualityFloor),
		QualityStep:           getEnvInt("QUALITY_STEP", reduce.DefaultQualityStep),
		HTTPTimeout:           getEnvDuration("HTTP_TIMEOUT", 30*time.Second),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogFormat:             getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:         getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:             getEnv("LOG_OUTPUT", "stdout"),
		LogMaxSizeMB:          getEnvInt("LOG_MAX_SIZE_MB", 50),
		LogMaxBackups:         getEnvInt("LOG_MAX_BACKUPS", 3),
		LogMaxAgeDays:         getEnvInt("LOG_MAX_AGE_DAYS", 14),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	switch c.OCRProvider {
	case OCRProviderOCRSpace:
		if c.OCRAPIKey == "" {
			return fmt.Errorf("OCR_API_KEY is required for the %s provider", OCRProviderOCRSpace)
		}
	case OCRProviderGoogle:
		// Credentials are checked at client construction.
	case OCRProviderDocumentAI:
		if c.GoogleCloudProject == "" {
			return fmt.Errorf("GOOGLE_CLOUD_PROJECT is required for the %s provider", OCRProviderDocumentAI)
		}
		if c.DocumentAIProcessorID == "" {
			return fmt.Errorf("DOCUMENT_AI_PROCESSOR_ID is required for the %s provider", OCRProviderDocumentAI)
		}
	default:
		return fmt.Errorf("unknown OCR_PROVIDER: %s", c.OCRProvider)
	}

	switch c.ExplainProvider {
	case ExplainProviderAnalyze:
		if c.AnalysisBaseURL == "" {
			return fmt.Errorf("ANALYSIS_BASE_URL is required for the %s provider", ExplainProviderAnalyze)
		}
	case ExplainProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for the %s provider", ExplainProviderOpenAI)
		}
	default:
		return fmt.Errorf("unknown EXPLAIN_PROVIDER: %s", c.ExplainProvider)
	}

	if c.ByteCeiling <= 0 {
		return fmt.Errorf("BYTE_CEILING must be positive")
	}
	if c.QualityFloor > c.StartQuality {
		return fmt.Errorf("QUALITY_FLOOR must not exceed START_QUALITY")
	}
	if c.QualityStep <= 0 {
		return fmt.Errorf("QUALITY_STEP must be positive")
	}

	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
		MaxSizeMB:  c.LogMaxSizeMB,
		MaxBackups: c.LogMaxBackups,
		MaxAgeDays: c.LogMaxAgeDays,
	}
}

// GetReducerOptions returns the reducer tuning from the main config
func (c *Config) GetReducerOptions() reduce.Options {
	return reduce.Options{
		BaselineWidth: c.BaselineWidth,
		StartQuality:  c.StartQuality,
		QualityFloor:  c.QualityFloor,
		QualityStep:   c.QualityStep,
		ByteCeiling:   c.ByteCeiling,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
