package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/ieltsmeta/internal/api"
	"github.com/jackzampolin/ieltsmeta/internal/extract"
	"github.com/jackzampolin/ieltsmeta/internal/schema"
	"github.com/jackzampolin/ieltsmeta/internal/server"
)

var (
	extractVerbose bool
	extractFile    string
)

var extractCmd = &cobra.Command{
	Use:   "extract <path|url>...",
	Short: "Extract metadata locally without a server",
	Long: `Run the extraction pipeline in-process against the configured provider.

Each argument is an image URL (http or https) or a local image file. With a
single argument the metadata document is printed; with several, a batch
report with one result per image, in argument order.

Examples:
  ieltsmeta extract ./chart.png
  ieltsmeta extract https://example.com/chart.png --verbose
  ieltsmeta extract a.png b.png c.png -o json --file report.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		refs, err := imageRefs(args)
		if err != nil {
			return err
		}

		mgr, err := loadConfig()
		if err != nil {
			return err
		}
		logger := newLogger(mgr.Get().Log.Level)

		services, err := server.NewServices(server.ServicesConfig{
			ConfigManager: mgr,
			Logger:        logger,
		})
		if err != nil {
			return err
		}
		if err := services.Engine.Open(ctx); err != nil {
			return err
		}
		defer services.Engine.Close(context.WithoutCancel(ctx))

		if len(refs) > 1 {
			return output(services.Batch.Run(ctx, refs))
		}

		out := services.Pipeline.Extract(ctx, refs[0])
		if !out.Success() {
			if out.Failure != nil && out.Failure.RawOutput != "" && extractVerbose {
				fmt.Fprintf(os.Stderr, "raw model output:\n%s\n", out.Failure.RawOutput)
			}
			if out.Failure == nil {
				return errors.New("extraction produced no metadata")
			}
			return out.Failure
		}

		if extractVerbose {
			violations := out.Violations
			if violations == nil {
				violations = []schema.Violation{}
			}
			return output(map[string]any{
				"request_id": out.RequestID,
				"metadata":   out.Result,
				"violations": violations,
			})
		}
		return output(out.Result)
	},
}

func init() {
	extractCmd.Flags().BoolVarP(&extractVerbose, "verbose", "v", false, "Include schema violations (and raw output on malformed model output)")
	extractCmd.Flags().StringVarP(&extractFile, "file", "f", "", "Write the result to a file (.json or .yaml)")
	rootCmd.AddCommand(extractCmd)
}

// imageRefs turns arguments into references: http(s) URLs stay URLs,
// anything else is read from disk.
func imageRefs(args []string) ([]extract.ImageRef, error) {
	refs := make([]extract.ImageRef, 0, len(args))
	for _, arg := range args {
		if strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://") {
			refs = append(refs, extract.FromURL(arg))
			continue
		}
		data, err := os.ReadFile(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", arg, err)
		}
		refs = append(refs, extract.FromBytes(data, filepath.Base(arg)))
	}
	return refs, nil
}

func output(v any) error {
	if extractFile != "" {
		return api.OutputToFile(v, extractFile)
	}
	return api.Output(v)
}
