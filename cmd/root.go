package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"snaplens/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "snaplens",
	Short: "snaplens - explain photographed documents",
	Long: `snaplens turns a photo of a document into extracted text and a
plain-language explanation.

The photo is shrunk under the OCR service's size ceiling, submitted for text
extraction, and the extracted text is sent to an analysis service that
produces a simplified explanation.`,
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.WithComponent("root")
		log.Info().
			Str("version", version).
			Msg("snaplens executed")

		fmt.Println("Welcome to snaplens!")
		fmt.Println("Use --help to see available commands and options.")
	},
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print version information")
}
