package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"lognorm-backend/internal/export"
	"lognorm-backend/internal/normalize"
)

var (
	flagNormalizeFormat string
	flagNormalizeOut    string
	flagNormalizeSource string
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize [file]",
	Short: "Normalize a log file into canonical events",
	Long: `Detect the format of a log file and emit one canonical event per
record. Reads from stdin when no file is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, closer, err := openInput(args)
		if err != nil {
			return err
		}
		defer closer.Close()

		source := flagNormalizeSource
		if source == "" {
			if len(args) > 0 {
				source = args[0]
			} else {
				source = "stdin"
			}
		}

		pipeline, err := normalize.NewPipeline(detectionConfig())
		if err != nil {
			return err
		}
		stream, err := pipeline.Run(src, source)
		if err != nil {
			return err
		}

		out := os.Stdout
		if flagNormalizeOut != "" {
			f, err := os.Create(flagNormalizeOut)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}

		exporter, err := export.New(flagNormalizeFormat, out)
		if err != nil {
			return err
		}

		count := 0
		for {
			ev, ok := stream.Next()
			if !ok {
				break
			}
			if err := exporter.Write(ev); err != nil {
				return err
			}
			count++
		}
		if err := stream.Err(); err != nil {
			return err
		}
		if err := exporter.Close(); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "normalized %d events from %s\n", count, source)
		return nil
	},
}

func init() {
	normalizeCmd.Flags().StringVarP(&flagNormalizeFormat, "format", "f", "jsonl", "event output format (jsonl, json, csv, text)")
	normalizeCmd.Flags().StringVarP(&flagNormalizeOut, "out", "O", "", "write events to a file instead of stdout")
	normalizeCmd.Flags().StringVar(&flagNormalizeSource, "source", "", "source name stamped on each event")
	rootCmd.AddCommand(normalizeCmd)
}
