package erddap

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethgrid/pester"
	"go.uber.org/zap"
)

// DefaultRemoteReloadMinutes is the reload interval for entries that point
// at another ERDDAP server. Remote servers manage their own refresh, so the
// mirror polls far more often than a harvested OPeNDAP source.
const DefaultRemoteReloadMinutes = 180

// RemoteDataset is one dataset advertised by another ERDDAP server's
// allDatasets listing.
type RemoteDataset struct {
	ID    string
	Title string
	Grid  bool
}

// RemoteClientConfig controls retry and timeout behavior for allDatasets
// fetches.
type RemoteClientConfig struct {
	Timeout    time.Duration
	MaxRetries int
	UserAgent  string
}

// RemoteClient fetches dataset listings from a remote ERDDAP server.
type RemoteClient struct {
	client    *pester.Client
	userAgent string
	logger    *zap.Logger
}

// NewRemoteClient builds a pester-backed allDatasets client.
func NewRemoteClient(cfg RemoteClientConfig, logger *zap.Logger) *RemoteClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := pester.New()
	client.Concurrency = 1
	client.MaxRetries = cfg.MaxRetries
	client.Backoff = pester.ExponentialBackoff
	client.KeepLog = true
	client.Timeout = cfg.Timeout
	return &RemoteClient{client: client, userAgent: cfg.UserAgent, logger: logger}
}

// FetchAllDatasets retrieves and parses `<base>/tabledap/allDatasets.csv`,
// the listing every ERDDAP server publishes about its own datasets.
func (c *RemoteClient) FetchAllDatasets(ctx context.Context, baseURL string) ([]RemoteDataset, error) {
	listURL := strings.TrimRight(baseURL, "/") + "/tabledap/allDatasets.csv"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build allDatasets request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch allDatasets %s: %w", listURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("fetch allDatasets %s: status %d", listURL, resp.StatusCode)
	}

	return ParseAllDatasetsCSV(resp.Body, c.logger)
}

// ParseAllDatasetsCSV reads an allDatasets.csv document: a header row, a
// units row, then one row per dataset. A dataset is a grid when its
// dataStructure column says so, falling back to cdm_data_type on servers
// that omit it; everything else is a table. Rows it cannot read are logged
// and skipped.
func ParseAllDatasetsCSV(r io.Reader, logger *zap.Logger) ([]RemoteDataset, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read allDatasets header: %w", err)
	}
	columns := map[string]int{}
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}
	idCol, ok := columns["datasetID"]
	if !ok {
		return nil, fmt.Errorf("allDatasets listing has no datasetID column")
	}
	structCol, hasStruct := columns["dataStructure"]
	cdmCol, hasCDM := columns["cdm_data_type"]
	titleCol, hasTitle := columns["title"]

	// The second row carries units, not data.
	if _, err := reader.Read(); err != nil && err != io.EOF {
		return nil, fmt.Errorf("read allDatasets units row: %w", err)
	}

	var datasets []RemoteDataset
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.Debug("skipping unreadable allDatasets row", zap.Error(err))
			continue
		}
		if idCol >= len(row) || strings.TrimSpace(row[idCol]) == "" {
			logger.Debug("skipping allDatasets row without datasetID")
			continue
		}

		ds := RemoteDataset{ID: strings.TrimSpace(row[idCol])}
		switch {
		case hasStruct && structCol < len(row):
			ds.Grid = strings.EqualFold(strings.TrimSpace(row[structCol]), "grid")
		case hasCDM && cdmCol < len(row):
			ds.Grid = strings.EqualFold(strings.TrimSpace(row[cdmCol]), "grid")
		}
		if hasTitle && titleCol < len(row) {
			ds.Title = strings.TrimSpace(row[titleCol])
		}
		datasets = append(datasets, ds)
	}
	return datasets, nil
}

// BuildRemote converts a remote server's dataset listing into a document of
// EDDGridFromErddap/EDDTableFromErddap entries whose sourceUrl points back
// at the listing server's dap endpoint for each dataset.
func BuildRemote(baseURL string, datasets []RemoteDataset, reloadMinutes int) Document {
	if reloadMinutes <= 0 {
		reloadMinutes = DefaultRemoteReloadMinutes
	}
	base := strings.TrimRight(baseURL, "/")

	doc := Document{}
	for _, ds := range datasets {
		entryType := TypeTableFromErddap
		dapPath := "/tabledap/"
		if ds.Grid {
			entryType = TypeGridFromErddap
			dapPath = "/griddap/"
		}
		doc.Datasets = append(doc.Datasets, DatasetEntry{
			Type:                entryType,
			DatasetID:           ds.ID,
			Active:              "true",
			SourceURL:           base + dapPath + ds.ID,
			ReloadEveryNMinutes: reloadMinutes,
		})
	}
	return doc
}
