package catalog

import (
	"regexp"
	"strings"
)

// Patterns that mark a name as a per-timestep granule rather than an
// aggregate view. Enumerating thousands of these is rarely wanted.
var timeSpecificPatterns = []*regexp.Regexp{
	regexp.MustCompile(`-\d{4}$`),
	regexp.MustCompile(`-\d{6}$`),
	regexp.MustCompile(`-\d{8}$`),
	regexp.MustCompile(`_\d{4}$`),
	regexp.MustCompile(`_\d{6}$`),
	regexp.MustCompile(`_\d{8}$`),
	regexp.MustCompile(`_\d{10}$`),
	regexp.MustCompile(`\.nc\d{8}`),
	regexp.MustCompile(`\d{4}_\d{2}_\d{2}`),
}

// Catalog references with these substrings enumerate individual files.
var granuleCatalogWords = []string{"files", "individual", "single"}

// IsTimeSpecific reports whether a dataset or catalog name carries a
// date-like suffix (e.g. sst_2024, sst-20240101).
func IsTimeSpecific(name string) bool {
	for _, p := range timeSpecificPatterns {
		if p.MatchString(name) {
			return true
		}
	}
	return false
}

// IsGranuleCatalog reports whether a catalog reference name suggests a
// listing of per-file granules (applies to catalog refs only, not datasets).
func IsGranuleCatalog(name string) bool {
	lower := strings.ToLower(name)
	for _, w := range granuleCatalogWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
