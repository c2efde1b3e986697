package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"snaplens/internal/config"
	"snaplens/internal/logger"
	"snaplens/internal/reduce"
	"snaplens/pkg/models"
)

var reduceCmd = &cobra.Command{
	Use:   "reduce [image-file]",
	Short: "Shrink a photo under the byte ceiling without submitting it",
	Long: `Run only the size-reduction stage: resize the photo to the baseline
width and re-encode it at decreasing JPEG quality until it fits under the
byte ceiling. The bounded JPEG is written to disk.

Useful for inspecting what would actually be submitted to the OCR service.`,
	Example: `  # Shrink with the default 1 MiB ceiling
  snaplens reduce poster.png

  # Custom ceiling and output path
  snaplens reduce poster.png --ceiling 524288 -o small.jpg`,
	Args: cobra.ExactArgs(1),
	RunE: runReduce,
}

func init() {
	rootCmd.AddCommand(reduceCmd)

	reduceCmd.Flags().StringP("output", "o", "", "Output JPEG path (default: <input>.reduced.jpg)")
	reduceCmd.Flags().Int("ceiling", 0, "Byte ceiling (default: BYTE_CEILING or 1 MiB)")
	reduceCmd.Flags().Int("width", 0, "Baseline width in pixels (default: BASELINE_WIDTH or 1280)")
	reduceCmd.Flags().Int("quality", 0, "Starting JPEG quality 1-100 (default: START_QUALITY or 70)")
	reduceCmd.Flags().Int("timeout", 60, "Processing timeout in seconds")
}

func runReduce(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("reduce")

	outputPath, _ := cmd.Flags().GetString("output")
	ceiling, _ := cmd.Flags().GetInt("ceiling")
	width, _ := cmd.Flags().GetInt("width")
	quality, _ := cmd.Flags().GetInt("quality")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	imagePath := args[0]

	if _, err := validateImageFile(imagePath, log); err != nil {
		return err
	}

	// Reducer tuning comes from env config, with flags taking precedence.
	opts := reduce.DefaultOptions()
	if cfg, err := config.Load(); err == nil {
		opts = cfg.GetReducerOptions()
	}
	if ceiling > 0 {
		opts.ByteCeiling = ceiling
	}
	if width > 0 {
		opts.BaselineWidth = width
	}
	if quality > 0 {
		opts.StartQuality = quality
	}

	ctx, cancel := createContextWithTimeout(timeoutSecs, log)
	defer cancel()

	asset, err := models.FromFile(imagePath)
	if err != nil {
		return err
	}

	payload, err := reduce.New(opts).Reduce(ctx, asset)
	if err != nil {
		return handlePipelineError(err, log)
	}

	if outputPath == "" {
		outputPath = strings.TrimSuffix(imagePath, ".jpg")
		outputPath = strings.TrimSuffix(outputPath, ".jpeg")
		outputPath += ".reduced.jpg"
	}

	if err := os.WriteFile(outputPath, payload.Data, 0644); err != nil {
		return fmt.Errorf("failed to write reduced image: %w", err)
	}

	fmt.Printf("Wrote %s (%d bytes, quality %d, %dx%d, %d iterations)\n",
		outputPath, payload.Size(), payload.Quality, payload.Width, payload.Height, payload.Iterations)
	if payload.BestEffort {
		fmt.Fprintln(os.Stderr, "Warning: quality floor reached; output is still over the byte ceiling.")
	}

	return nil
}
