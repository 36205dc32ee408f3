package catalog

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/oceanobs/erddap-harvester/internal/progress"
)

// MetadataFetcher fans DAS fetches out across a bounded worker pool once the
// full dataset list is known. Parsed attributes are assigned by the draining
// goroutine, never concurrently.
type MetadataFetcher struct {
	das     *DASClient
	workers int
	logger  *zap.Logger
	emitter progress.Emitter
	runID   [16]byte
}

// NewMetadataFetcher builds the DAS fan-out stage. The emitter may be nil.
func NewMetadataFetcher(das *DASClient, workers int, logger *zap.Logger, emitter progress.Emitter, runID [16]byte) *MetadataFetcher {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MetadataFetcher{
		das:     das,
		workers: workers,
		logger:  logger,
		emitter: emitter,
		runID:   runID,
	}
}

type metadataResult struct {
	index     int
	global    AttrMap
	variables map[string]AttrMap
	err       error
}

// Fetch fills in DAS metadata for every dataset in place and returns the
// number fetched successfully. A failed fetch leaves that record's maps
// empty; the record itself is retained.
func (f *MetadataFetcher) Fetch(ctx context.Context, datasets []Dataset) int {
	if len(datasets) == 0 {
		return 0
	}

	jobs := make(chan int)
	results := make(chan metadataResult)

	var wg sync.WaitGroup
	for i := 0; i < f.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				start := time.Now()
				global, variables, err := f.das.Fetch(ctx, datasets[idx].SourceURL)
				f.emitDAS(datasets[idx].SourceURL, time.Since(start), err)
				select {
				case results <- metadataResult{index: idx, global: global, variables: variables, err: err}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range datasets {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	successful := 0
	for res := range results {
		if res.err != nil {
			f.logger.Warn("DAS fetch failed",
				zap.String("dataset", datasets[res.index].Name),
				zap.Error(res.err),
			)
			continue
		}
		datasets[res.index].Global = res.global
		datasets[res.index].Variables = res.variables
		successful++
		f.logger.Debug("DAS metadata fetched",
			zap.String("dataset", datasets[res.index].Name),
			zap.Int("global_attrs", len(res.global)),
			zap.Int("variables", len(res.variables)),
		)
	}
	return successful
}

func (f *MetadataFetcher) emitDAS(url string, dur time.Duration, err error) {
	if f.emitter == nil {
		return
	}
	class := progress.Status2xx
	note := ""
	if err != nil {
		class = progress.StatusOther
		note = err.Error()
	}
	f.emitter.Emit(progress.Event{
		RunID:       f.runID,
		TS:          time.Now().UTC(),
		Stage:       progress.StageDASFetch,
		URL:         url,
		StatusClass: class,
		Dur:         dur,
		Note:        note,
	})
}
