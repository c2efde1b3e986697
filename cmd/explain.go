package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"snaplens/internal/config"
	"snaplens/internal/explain"
	"snaplens/internal/logger"
	"snaplens/internal/ocr"
	"snaplens/internal/pipeline"
	"snaplens/internal/reduce"
	"snaplens/pkg/models"
)

var explainCmd = &cobra.Command{
	Use:   "explain [image-file]",
	Short: "Extract text from a photo and explain it in plain language",
	Long: `Run the full snaplens pipeline over a photo: shrink it under the OCR
service's byte ceiling, extract its text, and produce a simplified
explanation via the analysis service.

Required environment variables depend on the configured providers:
  OCR_API_KEY        - OCR.space API key (default OCR provider)
  ANALYSIS_BASE_URL  - Analysis service base URL (default explain provider)`,
	Example: `  # Explain a photographed letter
  snaplens explain letter.jpg

  # Save the outcome as JSON
  snaplens explain receipt.png --json -o result.json

  # Run with a custom timeout
  snaplens explain big-poster.jpg --timeout 120`,
	Args: cobra.ExactArgs(1),
	RunE: runExplain,
}

// ExplainOutput represents the JSON output structure when --json flag is used
type ExplainOutput struct {
	Text         string `json:"text"`
	Explanation  string `json:"explanation,omitempty"`
	State        string `json:"state"`
	PayloadBytes int    `json:"payload_bytes"`
	Iterations   int    `json:"iterations"`
	BestEffort   bool   `json:"best_effort,omitempty"`
	Duration     string `json:"duration"`
	FileName     string `json:"file_name"`
	FileSize     int64  `json:"file_size"`
}

func init() {
	rootCmd.AddCommand(explainCmd)

	explainCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	explainCmd.Flags().Bool("json", false, "Output as JSON")
	explainCmd.Flags().Int("timeout", 120, "Processing timeout in seconds")
}

// alertNotifier surfaces pipeline notices on stderr, standing in for the UI
// display collaborator.
type alertNotifier struct{}

func (alertNotifier) ShowPreview(*models.ImageAsset) {}
func (alertNotifier) ShowText(string)                {}
func (alertNotifier) ShowExplanation(string)         {}
func (alertNotifier) SetBusy(bool)                   {}

func (alertNotifier) Notify(kind pipeline.NoticeKind, message string) {
	fmt.Fprintf(os.Stderr, "[%s] %s\n", kind, message)
}

func runExplain(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("explain")

	outputPath, _ := cmd.Flags().GetString("output")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	imagePath := args[0]

	log.Info().
		Str("file", imagePath).
		Str("output", outputPath).
		Bool("json", jsonOutput).
		Int("timeout", timeoutSecs).
		Msg("Starting explain run")

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fileInfo, err := validateImageFile(imagePath, log)
	if err != nil {
		return err
	}

	ctx, cancel := createContextWithTimeout(timeoutSecs, log)
	defer cancel()

	extractor, err := buildExtractor(ctx, cfg, log)
	if err != nil {
		return err
	}
	explainer, err := buildExplainer(cfg, log)
	if err != nil {
		return err
	}

	asset, err := models.FromFile(imagePath)
	if err != nil {
		return err
	}

	orchestrator := pipeline.New(
		reduce.New(cfg.GetReducerOptions()),
		extractor,
		explainer,
		alertNotifier{},
	)

	report, err := orchestrator.Run(ctx, asset)
	if err != nil {
		return handlePipelineError(err, log)
	}

	log.Info().
		Str("state", report.State.String()).
		Int("payload_bytes", report.PayloadBytes).
		Dur("duration", report.Duration).
		Msg("Explain run completed")

	return outputExplainResults(report, fileInfo, outputPath, jsonOutput)
}

// handlePipelineError provides user-friendly error messages for run failures
func handlePipelineError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("Pipeline run failed")

	switch {
	case errors.Is(err, reduce.ErrUnsupportedFormat):
		return fmt.Errorf("the file is not a supported image format (JPEG, PNG, GIF, WebP)")
	case errors.Is(err, reduce.ErrDecodeFailed):
		return fmt.Errorf("the image could not be decoded; it may be corrupted")
	case errors.Is(err, ocr.ErrMissingAPIKey):
		return fmt.Errorf("OCR API key is not configured. Set OCR_API_KEY in the environment or .env file")
	case errors.Is(err, ocr.ErrServiceUnavailable):
		return fmt.Errorf("could not reach the OCR service; check your network connection")
	case errors.Is(err, ocr.ErrBadStatus), errors.Is(err, ocr.ErrMalformedResponse):
		return fmt.Errorf("the OCR service returned an unexpected response; try again later")
	case errors.Is(err, explain.ErrServiceUnavailable):
		return fmt.Errorf("could not reach the analysis service; check ANALYSIS_BASE_URL and your network connection")
	case errors.Is(err, explain.ErrBadStatus), errors.Is(err, explain.ErrMalformedResponse):
		return fmt.Errorf("the analysis service returned an unexpected response; try again later")
	default:
		var stageErr *pipeline.StageError
		if errors.As(err, &stageErr) {
			return fmt.Errorf("pipeline %s stage failed: %w", stageErr.Stage, stageErr.Err)
		}
		return err
	}
}

// outputExplainResults formats and writes the run report
func outputExplainResults(report *pipeline.Report, fileInfo os.FileInfo, outputPath string, jsonOutput bool) error {
	var outputData []byte

	if jsonOutput {
		out := ExplainOutput{
			Text:         report.Text,
			Explanation:  report.Explanation,
			State:        report.State.String(),
			PayloadBytes: report.PayloadBytes,
			Iterations:   report.Iterations,
			BestEffort:   report.BestEffort,
			Duration:     report.Duration.String(),
			FileName:     filepath.Base(fileInfo.Name()),
			FileSize:     fileInfo.Size(),
		}

		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to create JSON output: %w", err)
		}
		outputData = data
	} else {
		var output strings.Builder
		if report.Text == "" {
			output.WriteString("No text detected.\n")
		} else {
			output.WriteString("=== Extracted Text ===\n\n")
			output.WriteString(report.Text)
			output.WriteString("\n\n=== Explanation ===\n\n")
			output.WriteString(report.Explanation)
			output.WriteString("\n")
		}
		outputData = []byte(output.String())
	}

	if outputPath != "" {
		if err := os.WriteFile(outputPath, outputData, 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		return nil
	}

	if _, err := os.Stdout.Write(outputData); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if jsonOutput {
		fmt.Println()
	}
	return nil
}
