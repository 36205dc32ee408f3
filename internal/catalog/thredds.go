package catalog

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/antchfx/xmlquery"
	"go.uber.org/zap"
)

// ThreddsSource extracts datasets and child catalog references from THREDDS
// catalog XML documents.
type ThreddsSource struct {
	// FilterTimeSpecific drops per-timestep granule entries and the catalog
	// references that enumerate them.
	FilterTimeSpecific bool
}

// NormalizeURL maps .html catalog links to their .xml form.
func (s *ThreddsSource) NormalizeURL(raw string) string {
	return NormalizeCatalogURL(raw)
}

// Extract parses one catalog page. A dataset element is a leaf when it
// resolves to an opendap/dods access URL; catalogRef elements become child
// references resolved against the page URL.
func (s *ThreddsSource) Extract(page Page, logger *zap.Logger) ([]Dataset, []CatalogRef, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	doc, err := xmlquery.Parse(bytes.NewReader(page.Body))
	if err != nil {
		return nil, nil, fmt.Errorf("parse catalog XML: %w", err)
	}
	base, err := url.Parse(page.FinalURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse base URL: %w", err)
	}

	services := serviceTypes(doc)

	var datasets []Dataset
	for _, elem := range xmlquery.Find(doc, "//dataset") {
		name := attrValue(elem, "name")
		if name == "" {
			continue
		}
		if s.FilterTimeSpecific && IsTimeSpecific(name) {
			logger.Debug("skipping time-specific dataset", zap.String("name", name))
			continue
		}
		// Container datasets hold catalogRef children, not data.
		if xmlquery.FindOne(elem, ".//catalogRef") != nil {
			continue
		}

		accessURL := resolveOpendapURL(elem, base, services)
		if accessURL == "" {
			continue
		}
		ds := NewDataset(name, accessURL, attrValue(elem, "ID"))
		datasets = append(datasets, ds)
		logger.Debug("found dataset",
			zap.String("name", ds.Name),
			zap.String("url", ds.SourceURL),
			zap.String("id", ds.ID),
		)
	}

	var refs []CatalogRef
	for _, elem := range xmlquery.Find(doc, "//catalogRef") {
		href := attrValue(elem, "href")
		if href == "" {
			continue
		}
		name := attrValue(elem, "title")
		if name == "" {
			name = attrValue(elem, "name")
		}
		if name == "" {
			name = href
		}
		if s.FilterTimeSpecific {
			if IsTimeSpecific(name) {
				logger.Debug("skipping time-specific catalog reference", zap.String("name", name))
				continue
			}
			if IsGranuleCatalog(name) {
				logger.Debug("skipping granule-listing catalog", zap.String("name", name))
				continue
			}
		}
		refURL, err := url.Parse(href)
		if err != nil {
			logger.Warn("unresolvable catalogRef href", zap.String("href", href), zap.Error(err))
			continue
		}
		refs = append(refs, CatalogRef{Name: name, URL: base.ResolveReference(refURL).String()})
	}

	return datasets, refs, nil
}

// serviceTypes maps service name to serviceType across the catalog,
// including members of compound services.
func serviceTypes(doc *xmlquery.Node) map[string]string {
	services := map[string]string{}
	for _, svc := range xmlquery.Find(doc, "//service") {
		name := attrValue(svc, "name")
		serviceType := attrValue(svc, "serviceType")
		if name != "" && serviceType != "" {
			services[name] = serviceType
		}
	}
	return services
}

func isOpendapService(serviceType string) bool {
	switch strings.ToLower(serviceType) {
	case "opendap", "dods":
		return true
	}
	return false
}

// resolveOpendapURL finds an opendap access URL for a dataset element,
// first via its access children, then via its own urlPath when the catalog
// declares an opendap service. The urlPath form swaps the /catalog/ path
// segment for /dodsC/, the TDS data-access root.
func resolveOpendapURL(elem *xmlquery.Node, base *url.URL, services map[string]string) string {
	for _, access := range xmlquery.Find(elem, ".//access") {
		if !isOpendapService(services[attrValue(access, "serviceName")]) {
			continue
		}
		urlPath := attrValue(access, "urlPath")
		if urlPath == "" {
			continue
		}
		if ref, err := url.Parse(urlPath); err == nil {
			return base.ResolveReference(ref).String()
		}
	}

	urlPath := attrValue(elem, "urlPath")
	if urlPath == "" {
		return ""
	}
	for _, serviceType := range services {
		if !isOpendapService(serviceType) {
			continue
		}
		dodsBase := strings.Replace(base.String(), "/catalog/", "/dodsC/", 1)
		parsed, err := url.Parse(dodsBase)
		if err != nil {
			return ""
		}
		ref, err := url.Parse(urlPath)
		if err != nil {
			return ""
		}
		return parsed.ResolveReference(ref).String()
	}
	return ""
}

// attrValue returns the first attribute matching the local name, ignoring
// namespace prefixes so xlink:href and bare href read the same way.
func attrValue(n *xmlquery.Node, local string) string {
	for _, attr := range n.Attr {
		if attr.Name.Local == local {
			return attr.Value
		}
	}
	return ""
}
