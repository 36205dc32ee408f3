package catalog

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// Page is one fetched catalog document.
type Page struct {
	URL        string
	FinalURL   string
	StatusCode int
	Body       []byte
}

// Fetcher retrieves a catalog document. Implementations fail soft upstream:
// the crawler treats any error as an empty branch.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (Page, error)
}

// FetcherConfig tunes the HTTP behavior of the production fetcher.
type FetcherConfig struct {
	UserAgent      string
	RequestTimeout time.Duration
	Concurrency    int
	Delay          time.Duration
}

// CollyFetcher implements Fetcher on top of a Colly collector. Each Fetch
// clones the base collector so per-request callbacks never interleave.
type CollyFetcher struct {
	baseCollector *colly.Collector
	logger        *zap.Logger
}

// NewCollyFetcher constructs a configured Colly-based Fetcher.
func NewCollyFetcher(cfg FetcherConfig, logger *zap.Logger) (*CollyFetcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := []colly.CollectorOption{
		colly.Async(true),
	}
	if cfg.UserAgent != "" {
		opts = append(opts, colly.UserAgent(cfg.UserAgent))
	}
	base := colly.NewCollector(opts...)
	base.AllowURLRevisit = true
	base.WithTransport(&http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          64,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.RequestTimeout,
		ForceAttemptHTTP2:     true,
	})
	if cfg.RequestTimeout > 0 {
		base.SetRequestTimeout(cfg.RequestTimeout)
	}

	parallelism := cfg.Concurrency
	if parallelism <= 0 {
		parallelism = 1
	}
	if err := base.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: parallelism,
		Delay:       cfg.Delay,
	}); err != nil {
		return nil, err
	}

	return &CollyFetcher{baseCollector: base, logger: logger}, nil
}

// Fetch retrieves a single catalog page via a cloned collector. The context
// rides on the collector's requests, so cancellation interrupts an in-flight
// fetch rather than waiting for it to finish.
func (f *CollyFetcher) Fetch(ctx context.Context, rawURL string) (Page, error) {
	collector := f.baseCollector.Clone()
	collector.Context = ctx
	resultCh := make(chan fetchResult, 1)
	var once sync.Once
	send := func(res fetchResult) {
		once.Do(func() {
			resultCh <- res
		})
	}

	collector.OnResponse(func(r *colly.Response) {
		page := Page{
			URL:        rawURL,
			FinalURL:   r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       append([]byte{}, r.Body...),
		}
		send(fetchResult{page: page})
	})

	collector.OnError(func(r *colly.Response, err error) {
		if err == nil {
			err = errors.New("unknown colly error")
		}
		send(fetchResult{err: err})
	})

	if err := collector.Visit(rawURL); err != nil {
		return Page{}, err
	}
	collector.Wait()

	select {
	case res := <-resultCh:
		if err := ctx.Err(); err != nil {
			return Page{}, err
		}
		return res.page, res.err
	default:
		return Page{}, errors.New("colly fetch produced no result")
	}
}

type fetchResult struct {
	page Page
	err  error
}

// NormalizeCatalogURL rewrites a THREDDS .html catalog link to its .xml
// counterpart so the crawler always parses the structured form.
func NormalizeCatalogURL(rawURL string) string {
	if strings.HasSuffix(rawURL, ".html") {
		return strings.TrimSuffix(rawURL, ".html") + ".xml"
	}
	return rawURL
}
