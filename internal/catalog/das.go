package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sethgrid/pester"
	"go.uber.org/zap"
)

// DAS text is line-oriented but loosely formatted across server
// implementations, so the parser is deliberately lenient: anything it cannot
// understand is logged at debug and skipped.

var (
	dasSectionRe = regexp.MustCompile(`^([A-Za-z_]\w*)\s*\{`)
	dasAttrRe    = regexp.MustCompile(`^\s*(\w+)\s+(\w+)\s+(.+);`)
)

var dasFloatTypes = map[string]bool{
	"Float32": true,
	"Float64": true,
}

var dasIntTypes = map[string]bool{
	"Byte":   true,
	"Int16":  true,
	"Int32":  true,
	"Int64":  true,
	"UInt16": true,
	"UInt32": true,
	"UInt64": true,
}

// ParseDAS splits a DAS response into global attributes and per-variable
// attribute blocks. Parsing the same text twice yields identical maps.
func ParseDAS(text string, logger *zap.Logger) (AttrMap, map[string]AttrMap) {
	if logger == nil {
		logger = zap.NewNop()
	}
	global := AttrMap{}
	variables := map[string]AttrMap{}

	inGlobal := false
	currentVar := ""

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if line == "Attributes {" {
			inGlobal = true
			continue
		}

		if m := dasSectionRe.FindStringSubmatch(line); m != nil && m[1] != "Attributes" {
			currentVar = m[1]
			if _, ok := variables[currentVar]; !ok {
				variables[currentVar] = AttrMap{}
			}
			continue
		}

		if line == "}" {
			// The innermost open section closes first.
			if currentVar != "" {
				currentVar = ""
			} else {
				inGlobal = false
			}
			continue
		}

		name, value, ok := parseDASAttribute(line)
		if !ok {
			logger.Debug("skipping unparseable DAS line", zap.String("line", line))
			continue
		}
		switch {
		case currentVar != "":
			variables[currentVar][name] = value
		case inGlobal:
			global[name] = value
		}
	}

	return global, variables
}

// parseDASAttribute matches `Type name value;` and types the value from the
// leading type token. A value that fails numeric conversion stays raw text.
func parseDASAttribute(line string) (string, AttrValue, bool) {
	m := dasAttrRe.FindStringSubmatch(line)
	if m == nil {
		return "", AttrValue{}, false
	}
	attrType, attrName := m[1], m[2]
	raw := strings.TrimSpace(m[3])

	if strings.HasPrefix(raw, `"`) && strings.HasSuffix(raw, `"`) && len(raw) >= 2 {
		return attrName, StringValue(raw[1 : len(raw)-1]), true
	}
	if dasFloatTypes[attrType] {
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return attrName, FloatValue(f), true
		}
	}
	if dasIntTypes[attrType] {
		if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return attrName, IntValue(i), true
		}
	}
	return attrName, StringValue(raw), true
}

// DASClient fetches `<url>.das` documents with bounded retry. Timeouts,
// 4xx, 5xx, and connection errors all retry identically; metadata fetch
// failure is never fatal to the run.
type DASClient struct {
	client    *pester.Client
	userAgent string
	logger    *zap.Logger
}

// DASClientConfig controls retry and timeout behavior for DAS fetches.
type DASClientConfig struct {
	Timeout     time.Duration
	MaxRetries  int
	UserAgent   string
	Concurrency int
}

// NewDASClient builds a pester-backed DAS client.
func NewDASClient(cfg DASClientConfig, logger *zap.Logger) *DASClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	client := pester.New()
	client.Concurrency = concurrency
	client.MaxRetries = cfg.MaxRetries
	client.Backoff = pester.ExponentialBackoff
	client.KeepLog = true
	client.Timeout = cfg.Timeout
	return &DASClient{client: client, userAgent: cfg.UserAgent, logger: logger}
}

// Fetch retrieves and parses the DAS document for a dataset access URL.
// Network failure or a non-2xx status yields empty maps and an error; the
// caller keeps the dataset record either way.
func (c *DASClient) Fetch(ctx context.Context, sourceURL string) (AttrMap, map[string]AttrMap, error) {
	dasURL := sourceURL + ".das"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, dasURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("build DAS request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch DAS %s: %w", dasURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, nil, fmt.Errorf("fetch DAS %s: status %d", dasURL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read DAS %s: %w", dasURL, err)
	}

	global, variables := ParseDAS(string(body), c.logger)
	return global, variables, nil
}
