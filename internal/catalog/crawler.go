package catalog

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/oceanobs/erddap-harvester/internal/progress"
)

// Source implements the format-specific rules for one catalog flavor
// (THREDDS XML or Hyrax HTML listings).
type Source interface {
	// NormalizeURL rewrites a catalog URL before fetching (.html -> .xml
	// for THREDDS; identity for Hyrax).
	NormalizeURL(raw string) string
	// Extract splits a fetched page into leaf datasets and child catalog
	// references.
	Extract(page Page, logger *zap.Logger) ([]Dataset, []CatalogRef, error)
}

// Config holds the settings for a traversal run.
type Config struct {
	MaxDepth       int
	CatalogWorkers int
	Delay          time.Duration
}

// DefaultMaxDepth bounds traversal on cyclic or pathological catalog trees.
// Datasets nested deeper are missed; that is an accepted limitation.
const DefaultMaxDepth = 5

// Engine walks a catalog tree through an explicit work queue consumed by a
// fixed pool of workers. Newly discovered child references are fed back into
// the queue; the dataset list is appended to by the coordinator goroutine
// only. Canceling the context stops the crawl at the next queue interaction.
type Engine struct {
	cfg     Config
	fetcher Fetcher
	source  Source
	logger  *zap.Logger
	emitter progress.Emitter
	runID   [16]byte
	tracker visitTracker
}

// NewEngine builds a traversal engine. The emitter may be nil.
func NewEngine(cfg Config, fetcher Fetcher, source Source, logger *zap.Logger, emitter progress.Emitter, runID [16]byte) *Engine {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}
	if cfg.CatalogWorkers <= 0 {
		cfg.CatalogWorkers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		cfg:     cfg,
		fetcher: fetcher,
		source:  source,
		logger:  logger,
		emitter: emitter,
		runID:   runID,
	}
}

type crawlTask struct {
	url   string
	depth int
}

type crawlResult struct {
	depth    int
	datasets []Dataset
	refs     []CatalogRef
}

// Run traverses the catalog tree rooted at rootURL and returns every
// discovered dataset. Fetch and parse failures prune the branch; they never
// abort the crawl. Sibling ordering is not guaranteed.
func (e *Engine) Run(ctx context.Context, rootURL string) ([]Dataset, error) {
	tasks := make(chan crawlTask)
	results := make(chan crawlResult)

	var wg sync.WaitGroup
	for i := 0; i < e.cfg.CatalogWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.worker(ctx, tasks, results)
		}()
	}

	root := e.source.NormalizeURL(rootURL)
	e.tracker.MarkIfNew(root)
	backlog := []crawlTask{{url: root, depth: 0}}
	pending := 0
	var datasets []Dataset

	var runErr error
loop:
	for pending > 0 || len(backlog) > 0 {
		var send chan crawlTask
		var next crawlTask
		if len(backlog) > 0 {
			send = tasks
			next = backlog[0]
		}
		select {
		case send <- next:
			backlog = backlog[1:]
			pending++
		case res := <-results:
			pending--
			datasets = append(datasets, res.datasets...)
			for _, ref := range res.refs {
				if res.depth+1 > e.cfg.MaxDepth {
					e.logger.Debug("reached maximum depth, pruning branch",
						zap.String("url", ref.URL),
						zap.Int("max_depth", e.cfg.MaxDepth),
					)
					continue
				}
				child := e.source.NormalizeURL(ref.URL)
				if !e.tracker.MarkIfNew(child) {
					continue
				}
				backlog = append(backlog, crawlTask{url: child, depth: res.depth + 1})
			}
		case <-ctx.Done():
			runErr = ctx.Err()
			break loop
		}
	}

	close(tasks)
	// Drain in-flight results so workers can exit.
	go func() {
		wg.Wait()
		close(results)
	}()
	for range results {
	}

	return datasets, runErr
}

// worker fetches and extracts one catalog page per task. Every task produces
// exactly one result, empty on failure.
func (e *Engine) worker(ctx context.Context, tasks <-chan crawlTask, results chan<- crawlResult) {
	for task := range tasks {
		res := crawlResult{depth: task.depth}

		start := time.Now()
		page, err := e.fetcher.Fetch(ctx, task.url)
		e.emitFetch(task.url, page.StatusCode, time.Since(start), err)
		if err != nil {
			e.logger.Warn("catalog fetch failed", zap.String("url", task.url), zap.Error(err))
			e.deliver(ctx, results, res)
			continue
		}
		if page.StatusCode < 200 || page.StatusCode >= 300 {
			e.logger.Warn("catalog fetch returned non-2xx",
				zap.String("url", task.url),
				zap.Int("status_code", page.StatusCode),
			)
			e.deliver(ctx, results, res)
			continue
		}

		datasets, refs, err := e.source.Extract(page, e.logger)
		if err != nil {
			e.logger.Warn("catalog parse failed", zap.String("url", task.url), zap.Error(err))
			e.deliver(ctx, results, res)
			continue
		}
		res.datasets = datasets
		res.refs = refs
		if len(datasets) > 0 && e.emitter != nil {
			e.emitter.Emit(progress.Event{
				RunID: e.runID,
				TS:    time.Now().UTC(),
				Stage: progress.StageDatasetFound,
				URL:   task.url,
				Count: int64(len(datasets)),
			})
		}
		e.deliver(ctx, results, res)

		pause(ctx, e.cfg.Delay)
	}
}

func (e *Engine) deliver(ctx context.Context, results chan<- crawlResult, res crawlResult) {
	select {
	case results <- res:
	case <-ctx.Done():
	}
}

func (e *Engine) emitFetch(url string, statusCode int, dur time.Duration, err error) {
	if e.emitter == nil {
		return
	}
	evt := progress.Event{
		RunID:       e.runID,
		TS:          time.Now().UTC(),
		Stage:       progress.StageCatalogFetch,
		URL:         url,
		StatusClass: progress.ClassifyStatus(statusCode),
		Dur:         dur,
	}
	if err != nil {
		evt.Note = err.Error()
	}
	e.emitter.Emit(evt)
}
