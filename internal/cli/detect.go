package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"lognorm-backend/internal/normalize"
	"lognorm-backend/internal/reader"
)

var flagDetectOutput string

var detectCmd = &cobra.Command{
	Use:   "detect [file]",
	Short: "Detect the format of a log file",
	Long: `Sample the head of a log file and print the committed format
profile. Reads from stdin when no file is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, closer, err := openInput(args)
		if err != nil {
			return err
		}
		defer closer.Close()

		pipeline, err := normalize.NewPipeline(detectionConfig())
		if err != nil {
			return err
		}
		profile, err := pipeline.Detect(src)
		if err != nil {
			return err
		}

		switch flagDetectOutput {
		case "yaml":
			out, err := yaml.Marshal(profile)
			if err != nil {
				return err
			}
			fmt.Print(string(out))
		case "json":
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(profile)
		default:
			return fmt.Errorf("unsupported output format: %s", flagDetectOutput)
		}
		return nil
	},
}

func init() {
	detectCmd.Flags().StringVarP(&flagDetectOutput, "output", "o", "yaml", "profile output format (yaml, json)")
	rootCmd.AddCommand(detectCmd)
}

func openInput(args []string) (normalize.LineSource, io.Closer, error) {
	if len(args) == 0 {
		return normalize.ScanLines(os.Stdin), nopCloser{}, nil
	}
	return reader.Open(args[0])
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
