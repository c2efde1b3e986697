package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"snaplens/internal/config"
	"snaplens/internal/logger"
	"snaplens/internal/reduce"
	"snaplens/pkg/models"
)

var ocrCmd = &cobra.Command{
	Use:   "ocr [image-file]",
	Short: "Extract text from a photo without running the analysis stage",
	Long: `Shrink a photo under the OCR service's byte ceiling and extract its
text. The analysis stage is skipped; the raw extracted text is printed.

Required environment variables (default OCR provider):
  OCR_API_KEY - OCR.space API key`,
	Example: `  # Print extracted text to stdout
  snaplens ocr receipt.jpg

  # Save extracted text to a file
  snaplens ocr receipt.jpg -o extracted.txt`,
	Args: cobra.ExactArgs(1),
	RunE: runOCR,
}

func init() {
	rootCmd.AddCommand(ocrCmd)

	ocrCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	ocrCmd.Flags().Int("timeout", 60, "Processing timeout in seconds")
}

func runOCR(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("ocr")

	outputPath, _ := cmd.Flags().GetString("output")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	imagePath := args[0]

	log.Info().
		Str("file", imagePath).
		Int("timeout", timeoutSecs).
		Msg("Starting OCR run")

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if _, err := validateImageFile(imagePath, log); err != nil {
		return err
	}

	ctx, cancel := createContextWithTimeout(timeoutSecs, log)
	defer cancel()

	extractor, err := buildExtractor(ctx, cfg, log)
	if err != nil {
		return err
	}

	asset, err := models.FromFile(imagePath)
	if err != nil {
		return err
	}

	reducer := reduce.New(cfg.GetReducerOptions())
	payload, err := reducer.Reduce(ctx, asset)
	if err != nil {
		return handlePipelineError(err, log)
	}

	log.Info().
		Int("payload_bytes", payload.Size()).
		Int("iterations", payload.Iterations).
		Msg("Image reduced, submitting for OCR")

	result, err := extractor.ExtractText(ctx, payload)
	if err != nil {
		return handlePipelineError(err, log)
	}

	if result.Empty() {
		fmt.Fprintln(os.Stderr, "No text detected in the image.")
		return nil
	}

	if outputPath != "" {
		if err := os.WriteFile(outputPath, []byte(result.Text), 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		log.Info().
			Str("output_file", outputPath).
			Int("bytes", len(result.Text)).
			Msg("Extracted text written to file")
		return nil
	}

	fmt.Println(result.Text)
	return nil
}
