package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oceanobs/erddap-harvester/internal/progress"
)

// HarvestConfig combines traversal and metadata fan-out settings.
type HarvestConfig struct {
	Crawl           Config
	MetadataWorkers int
}

// Harvester runs a full harvest: catalog traversal followed by DAS metadata
// fan-out, with run-level progress events keyed by a fresh run ID.
type Harvester struct {
	engine  *Engine
	meta    *MetadataFetcher
	logger  *zap.Logger
	emitter progress.Emitter
	runID   [16]byte
}

// NewHarvester wires a traversal engine and metadata fetcher under one run.
func NewHarvester(cfg HarvestConfig, fetcher Fetcher, source Source, das *DASClient, logger *zap.Logger, emitter progress.Emitter) *Harvester {
	if logger == nil {
		logger = zap.NewNop()
	}
	runID := progress.UUIDToBytes(uuid.New())
	return &Harvester{
		engine:  NewEngine(cfg.Crawl, fetcher, source, logger, emitter, runID),
		meta:    NewMetadataFetcher(das, cfg.MetadataWorkers, logger, emitter, runID),
		logger:  logger,
		emitter: emitter,
		runID:   runID,
	}
}

// Run crawls the tree rooted at rootURL and fills in DAS metadata for every
// discovered dataset. The returned slice includes datasets whose metadata
// fetch failed; the caller decides whether to keep empty-metadata entries.
func (h *Harvester) Run(ctx context.Context, rootURL string) ([]Dataset, error) {
	start := time.Now()
	h.emit(progress.Event{Stage: progress.StageRunStart, URL: rootURL})
	h.logger.Info("starting catalog traversal", zap.String("url", rootURL))

	datasets, err := h.engine.Run(ctx, rootURL)
	if err != nil {
		h.emit(progress.Event{
			Stage: progress.StageRunError,
			URL:   rootURL,
			Dur:   time.Since(start),
			Note:  err.Error(),
		})
		return datasets, err
	}
	h.logger.Info("catalog traversal finished",
		zap.Int("datasets", len(datasets)),
		zap.Duration("elapsed", time.Since(start)),
	)

	successful := h.meta.Fetch(ctx, datasets)
	h.logger.Info("metadata fetch finished",
		zap.Int("successful", successful),
		zap.Int("total", len(datasets)),
	)

	h.emit(progress.Event{
		Stage: progress.StageRunDone,
		URL:   rootURL,
		Count: int64(len(datasets)),
		Dur:   time.Since(start),
	})
	return datasets, ctx.Err()
}

func (h *Harvester) emit(evt progress.Event) {
	if h.emitter == nil {
		return
	}
	evt.RunID = h.runID
	evt.TS = time.Now().UTC()
	h.emitter.Emit(evt)
}
