package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/oceanobs/erddap-harvester/internal/erddap"
)

func newDuplicatesCmd() *cobra.Command {
	var (
		input string
		byURL bool
	)
	cmd := &cobra.Command{
		Use:   "duplicates",
		Short: "Report duplicate dataset entries in a datasets.xml file",
		Long: `Scans a datasets.xml file and reports datasetIDs (or, with --by-url,
sourceUrls) that appear more than once, with the line number of each
occurrence.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			entries, err := erddap.ScanFile(input)
			if err != nil {
				return err
			}
			report := erddap.FindDuplicates(entries)
			if !report.HasDuplicates() {
				appInstance.Logger.Info("no duplicates found",
					zap.String("input", input),
					zap.Int("entries", len(entries)),
				)
				return nil
			}
			if byURL {
				return report.WriteURLReport(os.Stdout)
			}
			return report.WriteIDReport(os.Stdout)
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "datasets.xml file (required)")
	cmd.Flags().BoolVar(&byURL, "by-url", false, "group duplicates by sourceUrl instead of datasetID")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func newDedupeCmd() *cobra.Command {
	var (
		input  string
		output string
		keep   string
	)
	cmd := &cobra.Command{
		Use:   "dedupe",
		Short: "Remove duplicate dataset entries from a datasets.xml file",
		Long: `Removes dataset entries whose datasetID already occurred, keeping
either the first or last occurrence. Everything outside the removed entries
is preserved byte for byte.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			policy := erddap.KeepPolicy(keep)
			if !policy.Valid() {
				return fmt.Errorf("invalid --keep value %q (want first or last)", keep)
			}

			removed, err := erddap.DedupeFile(input, output, policy)
			if err != nil {
				return err
			}
			appInstance.Logger.Info("dedupe complete",
				zap.Int("removed", removed),
				zap.String("output", output),
			)
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "datasets.xml file (required)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "deduplicated output file (required)")
	cmd.Flags().StringVar(&keep, "keep", string(erddap.KeepFirst), "occurrence to keep: first or last")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func newStatusCmd() *cobra.Command {
	var (
		input          string
		list           string
		output         string
		deactivateOnly bool
	)
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Flip active flags in a datasets.xml file from an ID list",
		Long: `Reads a list of dataset URLs or IDs (one per line; the last path
segment of each URL is the datasetID) and rewrites the datasets.xml file:
active datasets on the list are deactivated, inactive datasets not on the
list are activated. With --deactivate-only the listed datasets are turned
off and nothing is ever turned back on. All other content is preserved byte
for byte.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			if output == "" {
				output = input
			}

			if deactivateOnly {
				deactivated, err := erddap.DeactivateFile(input, list, output)
				if err != nil {
					return err
				}
				appInstance.Logger.Info("status update complete",
					zap.Int("deactivated", deactivated),
					zap.String("output", output),
				)
				return nil
			}

			changes, err := erddap.UpdateStatusFile(input, list, output)
			if err != nil {
				return err
			}
			appInstance.Logger.Info("status update complete",
				zap.Int("activated", changes.Activated),
				zap.Int("deactivated", changes.Deactivated),
				zap.String("output", output),
			)
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "datasets.xml file (required)")
	cmd.Flags().StringVarP(&list, "list", "l", "", "URL or ID list file (required)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: rewrite input)")
	cmd.Flags().BoolVar(&deactivateOnly, "deactivate-only", false, "deactivate listed datasets without activating anything")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("list")
	return cmd
}

func newRewriteCmd() *cobra.Command {
	var (
		input    string
		output   string
		upstream string
		domain   string
	)
	cmd := &cobra.Command{
		Use:   "rewrite",
		Short: "Re-point dataset sourceUrls in a datasets.xml file",
		Long: `Rewrites sourceUrls in a datasets.xml file. With --upstream,
EDDGridFromDap entries become EDDGridFromErddap entries served by the
upstream ERDDAP base URL and existing *FromErddap entries have their host
swapped to it. With --domain, every sourceUrl pointing at an /erddap path
gets the new scheme and host while keeping its path. All other content is
preserved byte for byte.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			if (upstream == "") == (domain == "") {
				return fmt.Errorf("exactly one of --upstream or --domain is required")
			}
			if output == "" {
				output = input
			}

			if upstream != "" {
				changes, err := erddap.RewriteToErddapFile(input, output, upstream)
				if err != nil {
					return err
				}
				appInstance.Logger.Info("rewrite complete",
					zap.Int("converted", changes.Converted),
					zap.Int("redirected", changes.Redirected),
					zap.String("output", output),
				)
				return nil
			}

			count, err := erddap.RewriteSourceDomainFile(input, output, domain)
			if err != nil {
				return err
			}
			appInstance.Logger.Info("rewrite complete",
				zap.Int("rewritten", count),
				zap.String("output", output),
			)
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "datasets.xml file (required)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: rewrite input)")
	cmd.Flags().StringVar(&upstream, "upstream", "", "upstream ERDDAP base URL (e.g. https://host/erddap)")
	cmd.Flags().StringVar(&domain, "domain", "", "replacement scheme://host for existing sourceUrls")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func newCompareCmd() *cobra.Command {
	var (
		oldPath string
		newPath string
	)
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "List dataset entries present in one file but not another",
		Long: `Scans two datasets.xml files and prints the datasetIDs that appear
in the new file but not the old one, sorted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			oldEntries, err := erddap.ScanFile(oldPath)
			if err != nil {
				return err
			}
			newEntries, err := erddap.ScanFile(newPath)
			if err != nil {
				return err
			}

			added := erddap.CompareIDs(oldEntries, newEntries)
			for _, id := range added {
				fmt.Println(id)
			}
			appInstance.Logger.Info("compare complete",
				zap.Int("only_in_new", len(added)),
			)
			return nil
		},
	}
	cmd.Flags().StringVar(&oldPath, "old", "", "baseline datasets.xml file (required)")
	cmd.Flags().StringVar(&newPath, "new", "", "updated datasets.xml file (required)")
	_ = cmd.MarkFlagRequired("old")
	_ = cmd.MarkFlagRequired("new")
	return cmd
}
