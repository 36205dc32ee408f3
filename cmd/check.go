package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/oceanobs/erddap-harvester/internal/check"
)

func newCheckCmd() *cobra.Command {
	var (
		input  string
		output string
	)
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Probe dataset URLs for availability",
		Long: `Reads dataset URLs from a file (a JSON array of {"url": ...} objects
or one URL per line), probes each at its metadata endpoint (.das for griddap,
.nccsvMetadata for tabledap), and writes a report with failures first.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			logger := appInstance.Logger

			urls, err := check.ReadURLsFile(input)
			if err != nil {
				return err
			}
			if len(urls) == 0 {
				logger.Warn("no URLs to check", zap.String("input", input))
				return nil
			}

			checker := check.New(check.Config{
				Timeout:    appInstance.Config.Check.Timeout,
				MaxRetries: appInstance.Config.Check.MaxRetries,
				Workers:    appInstance.Config.Check.Workers,
			}, logger)
			results := checker.CheckAll(cmd.Context(), urls)

			out := os.Stdout
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create report %s: %w", output, err)
				}
				defer f.Close()
				out = f
			}
			if err := check.WriteReport(out, results); err != nil {
				return err
			}

			failed := 0
			for _, res := range results {
				if !res.Available {
					failed++
				}
			}
			logger.Info("availability check complete",
				zap.Int("checked", len(results)),
				zap.Int("failed", failed),
			)
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "URL list file (required)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "report file (default: stdout)")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}
