package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/oceanobs/erddap-harvester/internal/erddap"
)

func newExtractCmd() *cobra.Command {
	var (
		url           string
		output        string
		reloadMinutes int
	)
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Mirror another ERDDAP server's datasets as FromErddap entries",
		Long: `Fetches the allDatasets listing from another ERDDAP server and writes
EDDGridFromErddap and EDDTableFromErddap entries that point back at it, so a
local ERDDAP can mirror the remote server's catalog.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			logger := appInstance.Logger

			client := erddap.NewRemoteClient(erddap.RemoteClientConfig{
				Timeout:    appInstance.Config.DAS.Timeout,
				MaxRetries: appInstance.Config.DAS.MaxRetries,
				UserAgent:  appInstance.Config.Harvest.UserAgent,
			}, logger)

			datasets, err := client.FetchAllDatasets(cmd.Context(), url)
			if err != nil {
				return fmt.Errorf("extract %s: %w", url, err)
			}

			doc := erddap.BuildRemote(url, datasets, reloadMinutes)
			if err := erddap.WriteFile(output, doc); err != nil {
				return err
			}

			logger.Info("extract complete",
				zap.Int("datasets", len(doc.Datasets)),
				zap.String("output", output),
			)
			return nil
		},
	}
	cmd.Flags().StringVarP(&url, "url", "u", "", "remote ERDDAP base URL (required)")
	cmd.Flags().StringVarP(&output, "output", "o", "datasets.xml", "output datasets.xml path")
	cmd.Flags().IntVar(&reloadMinutes, "reload-minutes", erddap.DefaultRemoteReloadMinutes, "reloadEveryNMinutes value")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}
