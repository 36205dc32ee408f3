// Package check implements bulk availability probing of ERDDAP dataset
// URLs. Each URL is probed at the endpoint matching its dataset type and
// reported as available or not; nothing here is fatal.
package check

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sethgrid/pester"
	"go.uber.org/zap"
)

// DatasetType distinguishes the probe endpoint for a URL.
type DatasetType string

// Known dataset types.
const (
	TypeGriddap  DatasetType = "griddap"
	TypeTabledap DatasetType = "tabledap"
)

// Result is the outcome of probing one URL.
type Result struct {
	URL       string
	Endpoint  string
	Available bool
	Status    int
	Err       error
}

// Config controls retry, timeout, and fan-out behavior.
type Config struct {
	Timeout    time.Duration
	MaxRetries int
	Workers    int
}

// Checker probes URLs with bounded retry. Timeouts, 4xx, 5xx, and
// connection errors are retried identically.
type Checker struct {
	client *pester.Client
	cfg    Config
	logger *zap.Logger
}

// New builds a Checker.
func New(cfg Config, logger *zap.Logger) *Checker {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client := pester.New()
	client.Concurrency = 1
	client.MaxRetries = cfg.MaxRetries
	client.Backoff = pester.DefaultBackoff
	client.Timeout = cfg.Timeout
	return &Checker{client: client, cfg: cfg, logger: logger}
}

// TypeOf infers the dataset type from the URL path, defaulting to griddap
// when neither segment is present.
func TypeOf(rawURL string) DatasetType {
	switch {
	case strings.Contains(rawURL, "/griddap/"):
		return TypeGriddap
	case strings.Contains(rawURL, "/tabledap/"):
		return TypeTabledap
	default:
		return TypeGriddap
	}
}

// ProbeEndpoint returns the endpoint actually requested for a base URL:
// griddap datasets expose .das, tabledap datasets .nccsvMetadata.
func ProbeEndpoint(rawURL string) string {
	if TypeOf(rawURL) == TypeTabledap {
		return rawURL + ".nccsvMetadata"
	}
	return rawURL + ".das"
}

// Check probes a single URL. Any 2xx response counts as available.
func (c *Checker) Check(ctx context.Context, rawURL string) Result {
	endpoint := ProbeEndpoint(rawURL)
	res := Result{URL: rawURL, Endpoint: endpoint}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, endpoint, nil)
	if err != nil {
		res.Err = fmt.Errorf("build request: %w", err)
		return res
	}
	resp, err := c.client.Do(req)
	if err != nil {
		res.Err = err
		return res
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	res.Status = resp.StatusCode
	res.Available = resp.StatusCode >= 200 && resp.StatusCode < 300
	return res
}

// CheckAll fans the probes out across the worker pool and returns results
// ordered by input position.
func (c *Checker) CheckAll(ctx context.Context, urls []string) []Result {
	type indexed struct {
		index  int
		result Result
	}

	jobs := make(chan int)
	out := make(chan indexed)

	var wg sync.WaitGroup
	for i := 0; i < c.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				result := c.Check(ctx, urls[idx])
				if result.Err != nil {
					c.logger.Warn("availability check failed",
						zap.String("url", urls[idx]),
						zap.Error(result.Err),
					)
				}
				select {
				case out <- indexed{index: idx, result: result}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range urls {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(out)
	}()

	results := make([]Result, len(urls))
	delivered := make([]bool, len(urls))
	for item := range out {
		results[item.index] = item.result
		delivered[item.index] = true
	}
	// Cancellation can leave gaps; mark them as unchecked failures.
	for i, ok := range delivered {
		if !ok {
			results[i] = Result{URL: urls[i], Endpoint: ProbeEndpoint(urls[i]), Err: ctx.Err()}
		}
	}
	return results
}

// urlEntry matches the JSON input form: an array of {"url": ...} objects.
type urlEntry struct {
	URL string `json:"url"`
}

// ReadURLs loads URLs from either a JSON array of {"url": ...} objects or a
// plain text file with one URL per line.
func ReadURLs(r io.Reader) ([]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read URL input: %w", err)
	}
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, nil
	}

	if strings.HasPrefix(trimmed, "[") {
		var entries []urlEntry
		if err := json.Unmarshal([]byte(trimmed), &entries); err != nil {
			return nil, fmt.Errorf("parse URL JSON: %w", err)
		}
		urls := make([]string, 0, len(entries))
		for _, e := range entries {
			if e.URL != "" {
				urls = append(urls, e.URL)
			}
		}
		return urls, nil
	}

	var urls []string
	for _, line := range strings.Split(trimmed, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			urls = append(urls, line)
		}
	}
	return urls, nil
}

// ReadURLsFile loads URLs from a local file.
func ReadURLsFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open URL input: %w", err)
	}
	defer f.Close()
	return ReadURLs(f)
}

// WriteReport writes a plain-text availability report, failures first.
func WriteReport(w io.Writer, results []Result) error {
	sorted := append([]Result(nil), results...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return !sorted[i].Available && sorted[j].Available
	})
	for _, res := range sorted {
		status := "ok"
		if !res.Available {
			if res.Err != nil {
				status = "FAIL " + res.Err.Error()
			} else {
				status = fmt.Sprintf("FAIL status %d", res.Status)
			}
		}
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\n", res.URL, res.Endpoint, status); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}
	return nil
}
