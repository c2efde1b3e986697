package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"snaplens/internal/config"
	"snaplens/internal/explain"
	"snaplens/internal/ocr"
)

// supportedExtensions are the image extensions we expect; anything else gets
// a warning but is still attempted (content sniffing decides for real).
var supportedExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

// validateImageFile checks if the file exists, is readable, and looks like an image
func validateImageFile(imagePath string, log zerolog.Logger) (os.FileInfo, error) {
	fileInfo, err := os.Stat(imagePath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Error().
				Str("file", imagePath).
				Msg("Image file not found")
			return nil, fmt.Errorf("image file not found: %s", imagePath)
		}
		if os.IsPermission(err) {
			log.Error().
				Str("file", imagePath).
				Msg("Permission denied accessing image file")
			return nil, fmt.Errorf("permission denied accessing image file: %s", imagePath)
		}
		return nil, fmt.Errorf("error accessing image file: %w", err)
	}

	if !fileInfo.Mode().IsRegular() {
		log.Error().
			Str("file", imagePath).
			Msg("Path is not a regular file")
		return nil, fmt.Errorf("path is not a regular file: %s", imagePath)
	}

	hasKnownExt := false
	lower := strings.ToLower(imagePath)
	for _, ext := range supportedExtensions {
		if strings.HasSuffix(lower, ext) {
			hasKnownExt = true
			break
		}
	}
	if !hasKnownExt {
		log.Warn().
			Str("file", imagePath).
			Msg("File does not have a known image extension")
	}

	if fileInfo.Size() == 0 {
		log.Error().
			Str("file", imagePath).
			Msg("Image file is empty")
		return nil, fmt.Errorf("image file is empty: %s", imagePath)
	}

	return fileInfo, nil
}

// createContextWithTimeout creates a context with timeout and signal handling
func createContextWithTimeout(timeoutSecs int, log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSecs)*time.Second)

	// Handle interrupt signals for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling run")
			cancel()
		case <-ctx.Done():
			// Context completed normally
		}
	}()

	return ctx, cancel
}

// buildExtractor creates the configured OCR provider.
func buildExtractor(ctx context.Context, cfg *config.Config, log zerolog.Logger) (ocr.TextExtractor, error) {
	switch cfg.OCRProvider {
	case config.OCRProviderOCRSpace:
		client, err := ocr.NewOCRSpaceClient(cfg.OCRAPIKey, cfg.OCREndpoint, cfg.HTTPTimeout)
		if err != nil {
			return nil, fmt.Errorf("failed to create OCR.space client: %w", err)
		}
		return client, nil

	case config.OCRProviderGoogle:
		client, err := ocr.NewGoogleVisionClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create Google Vision client: %w", err)
		}
		return client, nil

	case config.OCRProviderDocumentAI:
		client, err := ocr.NewDocumentAIClient(ctx, ocr.DocumentAIConfig{
			ProjectID:   cfg.GoogleCloudProject,
			Location:    cfg.GoogleCloudLocation,
			ProcessorID: cfg.DocumentAIProcessorID,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Document AI client: %w", err)
		}
		return client, nil

	default:
		return nil, fmt.Errorf("unknown OCR provider: %s", cfg.OCRProvider)
	}
}

// buildExplainer creates the configured analysis provider.
func buildExplainer(cfg *config.Config, log zerolog.Logger) (explain.Explainer, error) {
	switch cfg.ExplainProvider {
	case config.ExplainProviderAnalyze:
		client, err := explain.NewAnalyzeClient(cfg.AnalysisBaseURL, cfg.HTTPTimeout)
		if err != nil {
			return nil, fmt.Errorf("failed to create analysis client: %w", err)
		}
		return client, nil

	case config.ExplainProviderOpenAI:
		client, err := explain.NewOpenAIExplainer(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		if err != nil {
			return nil, fmt.Errorf("failed to create OpenAI explainer: %w", err)
		}
		return client, nil

	default:
		return nil, fmt.Errorf("unknown explain provider: %s", cfg.ExplainProvider)
	}
}
