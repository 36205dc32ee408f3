package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/oceanobs/erddap-harvester/internal/catalog"
	"github.com/oceanobs/erddap-harvester/internal/config"
	"github.com/oceanobs/erddap-harvester/internal/erddap"
)

// harvestFlags collects the options shared by both harvest subcommands.
type harvestFlags struct {
	url           string
	output        string
	maxDepth      int
	catalogJobs   int
	metadataJobs  int
	delay         time.Duration
	filter        bool
	keepEmpty     bool
	reloadMinutes int
}

func (f *harvestFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.url, "url", "u", "", "root catalog URL (required)")
	cmd.Flags().StringVarP(&f.output, "output", "o", "datasets.xml", "output datasets.xml path")
	cmd.Flags().IntVar(&f.maxDepth, "max-depth", 0, "maximum catalog nesting depth (0 = configured default)")
	cmd.Flags().IntVar(&f.catalogJobs, "catalog-threads", 0, "catalog fetch workers (0 = configured default)")
	cmd.Flags().IntVarP(&f.metadataJobs, "threads", "t", 0, "metadata fetch workers (0 = configured default)")
	cmd.Flags().DurationVar(&f.delay, "delay", 0, "pause between catalog fetches (0 = configured default)")
	cmd.Flags().BoolVar(&f.filter, "filter", true, "skip time-specific granule entries")
	cmd.Flags().BoolVar(&f.keepEmpty, "keep-empty", false, "keep datasets whose metadata fetch failed")
	cmd.Flags().IntVar(&f.reloadMinutes, "reload-minutes", 0, "reloadEveryNMinutes value (0 = configured default)")
	_ = cmd.MarkFlagRequired("url")
}

// merge overlays non-zero flag values on the loaded configuration.
func (f *harvestFlags) merge(cfg config.HarvestConfig) config.HarvestConfig {
	if f.maxDepth > 0 {
		cfg.MaxDepth = f.maxDepth
	}
	if f.catalogJobs > 0 {
		cfg.CatalogWorkers = f.catalogJobs
	}
	if f.metadataJobs > 0 {
		cfg.MetadataWorkers = f.metadataJobs
	}
	if f.delay > 0 {
		cfg.Delay = f.delay
	}
	if f.reloadMinutes > 0 {
		cfg.ReloadMinutes = f.reloadMinutes
	}
	if f.keepEmpty {
		cfg.KeepEmpty = true
	}
	return cfg
}

func newHarvestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "harvest",
		Short: "Crawl a catalog server and generate datasets.xml entries",
	}
	cmd.AddCommand(newHarvestThreddsCmd())
	cmd.AddCommand(newHarvestHyraxCmd())
	return cmd
}

func newHarvestThreddsCmd() *cobra.Command {
	var flags harvestFlags
	cmd := &cobra.Command{
		Use:   "thredds",
		Short: "Harvest a THREDDS catalog tree",
		Long: `Walks a THREDDS catalog.xml tree, collects every dataset with an
OPeNDAP access URL, fetches each dataset's DAS attributes, and writes
EDDGridFromDap entries to the output file.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			source := &catalog.ThreddsSource{FilterTimeSpecific: flags.filter}
			return runHarvest(cmd, &flags, source, nil)
		},
	}
	flags.register(cmd)
	return cmd
}

func newHarvestHyraxCmd() *cobra.Command {
	var flags harvestFlags
	var extensions []string
	cmd := &cobra.Command{
		Use:   "hyrax",
		Short: "Harvest a Hyrax directory listing tree",
		Long: `Walks a Hyrax HTML directory tree, collects dataset file links,
fetches each dataset's DAS attributes, and writes EDDGridFromDap entries to
the output file. Dataset file extensions are auto-detected from the root
listing unless --extensions is given.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			source := &catalog.HyraxSource{
				FilterTimeSpecific: flags.filter,
				Extensions:         extensions,
			}
			return runHarvest(cmd, &flags, source, source)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringSliceVar(&extensions, "extensions", nil, "dataset file extensions (default: auto-detect)")
	return cmd
}

// runHarvest wires a fetcher, source, and DAS client into a Harvester and
// writes the resulting document. hyrax is non-nil only for Hyrax harvests
// that may need extension auto-detection.
func runHarvest(cmd *cobra.Command, flags *harvestFlags, source catalog.Source, hyrax *catalog.HyraxSource) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	logger := appInstance.Logger
	cfg := flags.merge(appInstance.Config.Harvest)

	fetcher, err := catalog.NewCollyFetcher(catalog.FetcherConfig{
		UserAgent:      cfg.UserAgent,
		RequestTimeout: cfg.RequestTimeout,
		Concurrency:    cfg.CatalogWorkers,
		Delay:          cfg.Delay,
	}, logger)
	if err != nil {
		return fmt.Errorf("init fetcher: %w", err)
	}

	if hyrax != nil && len(hyrax.Extensions) == 0 {
		page, err := fetcher.Fetch(cmd.Context(), hyrax.NormalizeURL(flags.url))
		if err != nil {
			return fmt.Errorf("fetch root listing for extension detection: %w", err)
		}
		hyrax.Extensions = catalog.DetectExtensions(page, logger)
		logger.Info("detected dataset extensions", zap.Strings("extensions", hyrax.Extensions))
	}

	das := catalog.NewDASClient(catalog.DASClientConfig{
		Timeout:    appInstance.Config.DAS.Timeout,
		MaxRetries: appInstance.Config.DAS.MaxRetries,
		UserAgent:  cfg.UserAgent,
	}, logger)

	harvester := catalog.NewHarvester(catalog.HarvestConfig{
		Crawl: catalog.Config{
			MaxDepth:       cfg.MaxDepth,
			CatalogWorkers: cfg.CatalogWorkers,
			Delay:          cfg.Delay,
		},
		MetadataWorkers: cfg.MetadataWorkers,
	}, fetcher, source, das, logger, appInstance.Hub)

	datasets, err := harvester.Run(cmd.Context(), flags.url)
	if err != nil {
		return fmt.Errorf("harvest %s: %w", flags.url, err)
	}

	doc := erddap.Build(datasets, erddap.BuildOptions{
		DatasetType:   erddap.TypeGridFromDap,
		ReloadMinutes: cfg.ReloadMinutes,
		IncludeEmpty:  cfg.KeepEmpty,
	})
	if err := erddap.WriteFile(flags.output, doc); err != nil {
		return err
	}

	logger.Info("harvest complete",
		zap.Int("datasets", len(datasets)),
		zap.Int("written", len(doc.Datasets)),
		zap.String("output", flags.output),
	)
	return nil
}
