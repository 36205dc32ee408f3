package erddap

import (
	"fmt"
	"io"
	"sort"
)

// Occurrence is one appearance of a duplicated ID or URL.
type Occurrence struct {
	Line int
	// Context is the companion value: the sourceUrl for an ID duplicate,
	// the datasetID for a URL duplicate.
	Context string
}

// DuplicateReport groups repeated datasetIDs and sourceUrls with the line
// numbers where each appears.
type DuplicateReport struct {
	IDs  map[string][]Occurrence
	URLs map[string][]Occurrence
}

// HasDuplicates reports whether anything was duplicated at all.
func (r DuplicateReport) HasDuplicates() bool {
	return len(r.IDs) > 0 || len(r.URLs) > 0
}

// FindDuplicates collects datasetIDs and sourceUrls appearing more than once.
// The crawler never enforces ID uniqueness, so generated files can collide
// when display names do.
func FindDuplicates(entries []Entry) DuplicateReport {
	idCounts := map[string]int{}
	urlCounts := map[string]int{}
	for _, e := range entries {
		idCounts[e.DatasetID]++
		if e.SourceURL != "" {
			urlCounts[e.SourceURL]++
		}
	}

	report := DuplicateReport{
		IDs:  map[string][]Occurrence{},
		URLs: map[string][]Occurrence{},
	}
	for _, e := range entries {
		if idCounts[e.DatasetID] > 1 {
			report.IDs[e.DatasetID] = append(report.IDs[e.DatasetID], Occurrence{Line: e.StartLine, Context: e.SourceURL})
		}
		if e.SourceURL != "" && urlCounts[e.SourceURL] > 1 {
			report.URLs[e.SourceURL] = append(report.URLs[e.SourceURL], Occurrence{Line: e.StartLine, Context: e.DatasetID})
		}
	}
	return report
}

// WriteIDReport writes the duplicate-datasetID report.
func (r DuplicateReport) WriteIDReport(w io.Writer) error {
	return writeOccurrences(w, "DatasetID", r.IDs)
}

// WriteURLReport writes the duplicate-sourceUrl report.
func (r DuplicateReport) WriteURLReport(w io.Writer) error {
	return writeOccurrences(w, "SourceURL", r.URLs)
}

func writeOccurrences(w io.Writer, label string, groups map[string][]Occurrence) error {
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		occurrences := groups[key]
		if _, err := fmt.Fprintf(w, "%s: %s\n", label, key); err != nil {
			return fmt.Errorf("write duplicate report: %w", err)
		}
		if _, err := fmt.Fprintf(w, "Appears %d times:\n", len(occurrences)); err != nil {
			return fmt.Errorf("write duplicate report: %w", err)
		}
		for _, occ := range occurrences {
			if _, err := fmt.Fprintf(w, "  Line %d: %s\n", occ.Line, occ.Context); err != nil {
				return fmt.Errorf("write duplicate report: %w", err)
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return fmt.Errorf("write duplicate report: %w", err)
		}
	}
	return nil
}
