package cli

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"lognorm-backend/config"
)

var (
	flagSampleSize    int
	flagMinConfidence float64
	flagTimezone      string
	flagYearPivot     int
	flagVerbose       bool
)

var rootCmd = &cobra.Command{
	Use:   "lognorm",
	Short: "Detect log formats and normalize log files",
	Long: `lognorm inspects the head of a log file to detect its structure,
timestamp format and multiline behavior, then normalizes the file
into canonical events.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
		if flagVerbose {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		}
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().IntVar(&flagSampleSize, "sample-size", 100, "lines to sample before committing a format profile")
	rootCmd.PersistentFlags().Float64Var(&flagMinConfidence, "min-confidence", 0.6, "minimum confidence to accept a structured pattern")
	rootCmd.PersistentFlags().StringVar(&flagTimezone, "timezone", "UTC", "IANA timezone applied to zone-less timestamps")
	rootCmd.PersistentFlags().IntVar(&flagYearPivot, "year-pivot", 50, "two-digit years at or above this map to the 1900s")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
}

func detectionConfig() *config.DetectionConfig {
	return &config.DetectionConfig{
		SampleSize:      flagSampleSize,
		MinConfidence:   flagMinConfidence,
		DefaultTimezone: flagTimezone,
		YearPivot:       flagYearPivot,
		JSONPaths: map[string]string{
			"level":     "level",
			"message":   "message",
			"timestamp": "time",
		},
	}
}
