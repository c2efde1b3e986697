package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snaplens/internal/config"
	"snaplens/internal/reduce"
)

// clearEnv blanks every variable the loader reads so host state can't leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"OCR_PROVIDER", "OCR_API_KEY", "OCR_ENDPOINT",
		"EXPLAIN_PROVIDER", "ANALYSIS_BASE_URL", "OPENAI_API_KEY", "OPENAI_MODEL",
		"GOOGLE_CLOUD_PROJECT", "GOOGLE_CLOUD_LOCATION", "DOCUMENT_AI_PROCESSOR_ID",
		"BYTE_CEILING", "BASELINE_WIDTH", "START_QUALITY", "QUALITY_FLOOR", "QUALITY_STEP",
		"HTTP_TIMEOUT", "LOG_LEVEL", "LOG_FORMAT", "LOG_OUTPUT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("OCR_API_KEY", "test-key")
	t.Setenv("ANALYSIS_BASE_URL", "https://analysis.example.com")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, config.OCRProviderOCRSpace, cfg.OCRProvider)
	assert.Equal(t, config.ExplainProviderAnalyze, cfg.ExplainProvider)
	assert.Equal(t, reduce.DefaultByteCeiling, cfg.ByteCeiling)
	assert.Equal(t, reduce.DefaultBaselineWidth, cfg.BaselineWidth)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadRequiresOCRAPIKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("ANALYSIS_BASE_URL", "https://analysis.example.com")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OCR_API_KEY")
}

func TestLoadRequiresAnalysisBaseURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("OCR_API_KEY", "test-key")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ANALYSIS_BASE_URL")
}

func TestLoadOpenAIProvider(t *testing.T) {
	clearEnv(t)
	t.Setenv("OCR_API_KEY", "test-key")
	t.Setenv("EXPLAIN_PROVIDER", config.ExplainProviderOpenAI)

	_, err := config.Load()
	require.Error(t, err, "openai provider needs an API key")

	t.Setenv("OPENAI_API_KEY", "sk-test")
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, config.ExplainProviderOpenAI, cfg.ExplainProvider)
}

func TestLoadDocumentAIProvider(t *testing.T) {
	clearEnv(t)
	t.Setenv("ANALYSIS_BASE_URL", "https://analysis.example.com")
	t.Setenv("OCR_PROVIDER", config.OCRProviderDocumentAI)

	_, err := config.Load()
	require.Error(t, err, "documentai provider needs a project")

	t.Setenv("GOOGLE_CLOUD_PROJECT", "test-project")
	t.Setenv("DOCUMENT_AI_PROCESSOR_ID", "proc-123")
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "us", cfg.GoogleCloudLocation)
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	clearEnv(t)
	t.Setenv("OCR_PROVIDER", "carrier-pigeon")
	t.Setenv("ANALYSIS_BASE_URL", "https://analysis.example.com")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown OCR_PROVIDER")
}

func TestLoadRejectsBadReducerTuning(t *testing.T) {
	clearEnv(t)
	t.Setenv("OCR_API_KEY", "test-key")
	t.Setenv("ANALYSIS_BASE_URL", "https://analysis.example.com")
	t.Setenv("START_QUALITY", "20")
	t.Setenv("QUALITY_FLOOR", "50")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "QUALITY_FLOOR")
}
