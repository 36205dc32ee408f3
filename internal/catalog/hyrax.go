package catalog

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// DefaultHyraxExtensions is the fallback set of dataset file extensions when
// auto-detection finds nothing on the root listing.
var DefaultHyraxExtensions = []string{
	".nc", ".nc4", ".hdf", ".h5", ".grib", ".grb", ".dods", ".dds", ".das",
}

// HyraxSource extracts datasets and child directories from Hyrax HTML
// directory listings.
type HyraxSource struct {
	FilterTimeSpecific bool
	// Extensions classifying an anchor as a dataset link. Usually filled by
	// DetectExtensions against the server root.
	Extensions []string
}

// NormalizeURL is a no-op for Hyrax listings.
func (s *HyraxSource) NormalizeURL(raw string) string {
	return raw
}

// Extract parses one listing page. An anchor is a dataset when its href ends
// with a known extension, and a child directory when it ends with `/` and
// does not start with `..`. Parent links are never followed.
func (s *HyraxSource) Extract(page Page, logger *zap.Logger) ([]Dataset, []CatalogRef, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, nil, fmt.Errorf("parse listing HTML: %w", err)
	}
	base, err := url.Parse(page.FinalURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse base URL: %w", err)
	}

	extensions := s.Extensions
	if len(extensions) == 0 {
		extensions = DefaultHyraxExtensions
	}

	var datasets []Dataset
	var refs []CatalogRef
	doc.Find("a").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if href == "" || strings.HasPrefix(href, "..") || href == "/" {
			return
		}

		if strings.HasSuffix(href, "/") {
			name := unescapeName(strings.TrimSuffix(href, "/"))
			if s.FilterTimeSpecific && IsTimeSpecific(name) {
				logger.Debug("skipping time-specific directory", zap.String("name", name))
				return
			}
			if dirURL := resolveHref(base, href); dirURL != "" {
				refs = append(refs, CatalogRef{Name: name, URL: dirURL})
			}
			return
		}

		if !hasDatasetExtension(href, extensions) {
			return
		}
		name := unescapeName(href)
		if s.FilterTimeSpecific && IsTimeSpecific(name) {
			logger.Debug("skipping time-specific dataset", zap.String("name", name))
			return
		}
		accessURL := resolveHref(base, stripDAPExtension(href))
		if accessURL == "" {
			return
		}
		ds := NewDataset(name, accessURL, "")
		datasets = append(datasets, ds)
		logger.Debug("found dataset",
			zap.String("name", ds.Name),
			zap.String("url", ds.SourceURL),
		)
	})

	return datasets, refs, nil
}

// DetectExtensions inspects a listing page and returns the set of file
// extensions its anchors use, falling back to DefaultHyraxExtensions when
// nothing usable is found.
func DetectExtensions(page Page, logger *zap.Logger) []string {
	if logger == nil {
		logger = zap.NewNop()
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		logger.Warn("could not parse root listing; using default extensions", zap.Error(err))
		return DefaultHyraxExtensions
	}

	seen := map[string]struct{}{}
	var extensions []string
	doc.Find("a").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if href == "" || strings.HasPrefix(href, "..") || href == "/" || strings.HasSuffix(href, "/") {
			return
		}
		idx := strings.LastIndex(href, ".")
		if idx < 0 {
			return
		}
		ext := href[idx:]
		if _, ok := seen[ext]; ok {
			return
		}
		seen[ext] = struct{}{}
		extensions = append(extensions, ext)
	})

	if len(extensions) == 0 {
		return DefaultHyraxExtensions
	}
	logger.Debug("detected dataset extensions", zap.Strings("extensions", extensions))
	return extensions
}

func hasDatasetExtension(href string, extensions []string) bool {
	for _, ext := range extensions {
		if strings.HasSuffix(href, ext) {
			return true
		}
	}
	return false
}

// stripDAPExtension removes a trailing .dods/.dds/.das so the stored URL is
// the dataset's base access URL.
func stripDAPExtension(href string) string {
	for _, ext := range []string{".dods", ".dds", ".das"} {
		if strings.HasSuffix(href, ext) {
			return strings.TrimSuffix(href, ext)
		}
	}
	return href
}

func resolveHref(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

func unescapeName(href string) string {
	if unescaped, err := url.PathUnescape(href); err == nil {
		return unescaped
	}
	return href
}
