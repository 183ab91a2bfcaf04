// Package cli provides the quizctl command-line interface.
package cli

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"quizforge/internal/app"
	"quizforge/internal/config"
	"quizforge/internal/extract"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	logLevel string

	cfg      config.Config
	closeLog = func() error { return nil }
)

var rootCmd = &cobra.Command{
	Use:   "quizctl",
	Short: "Turn documents into quizzes",
	Long: `quizctl extracts text from documents, indexes it per docset and
generates quizzes from the indexed chunks.

Configuration comes from QUIZFORGE_* environment variables and an optional
.env file in the working directory.`,
	Version:      Version,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load(".env")
		cfg = config.Load()
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		var logger *slog.Logger
		logger, closeLog = config.SetupLogger(cfg.LogFile, config.ParseLogLevel(cfg.LogLevel))
		slog.SetDefault(logger)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = closeLog()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override QUIZFORGE_LOG_LEVEL")

	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(chunkCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(quizCmd)
	rootCmd.AddCommand(evaluateCmd)
}

func openApp(ctx context.Context) (*app.App, error) {
	return app.New(ctx, cfg)
}

func newExtractor() *extract.Extractor {
	return extract.New(extract.Options{
		OCR:          cfg.OCREnabled,
		MaxTextBytes: cfg.MaxTextBytes,
		Workers:      cfg.ExtractWorkers,
	})
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
