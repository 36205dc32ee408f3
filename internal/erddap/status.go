package erddap

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

var (
	datasetTagRe    = regexp.MustCompile(`<dataset\s+[^>]*?>`)
	datasetIDAttrRe = regexp.MustCompile(`datasetID="([^"]+)"`)
)

// StatusChanges summarizes an UpdateStatus pass.
type StatusChanges struct {
	Activated   int
	Deactivated int
}

// IDsFromURLList extracts dataset IDs from a newline-separated URL or ID
// list: the last path segment of each non-blank line.
func IDsFromURLList(r io.Reader) (map[string]struct{}, error) {
	ids := map[string]struct{}{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		trimmed := strings.TrimRight(line, "/")
		if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
			trimmed = trimmed[idx+1:]
		}
		if trimmed != "" {
			ids[trimmed] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read URL list: %w", err)
	}
	return ids, nil
}

// UpdateStatus flips active flags in the XML text: an active dataset whose
// ID is in the list is deactivated, an inactive dataset not in the list is
// activated. The flip is textual so everything else in the file is
// preserved byte for byte, and attribute order in the open tag does not
// matter.
func UpdateStatus(content string, ids map[string]struct{}) (string, StatusChanges) {
	var changes StatusChanges
	updated := datasetTagRe.ReplaceAllStringFunc(content, func(tag string) string {
		idMatch := datasetIDAttrRe.FindStringSubmatch(tag)
		activeMatch := activeAttrRe.FindStringSubmatch(tag)
		if idMatch == nil || activeMatch == nil {
			return tag
		}
		datasetID := xmlUnescaper.Replace(idMatch[1])
		isActive := activeMatch[1] == "true"
		_, listed := ids[datasetID]

		switch {
		case isActive && listed:
			changes.Deactivated++
			return strings.Replace(tag, `active="true"`, `active="false"`, 1)
		case !isActive && !listed:
			changes.Activated++
			return strings.Replace(tag, `active="false"`, `active="true"`, 1)
		default:
			return tag
		}
	})
	return updated, changes
}

// UpdateStatusFile applies UpdateStatus to xmlPath using the URL list at
// listPath and writes the result to outPath.
func UpdateStatusFile(xmlPath, listPath, outPath string) (StatusChanges, error) {
	listFile, err := os.Open(listPath)
	if err != nil {
		return StatusChanges{}, fmt.Errorf("open URL list: %w", err)
	}
	defer listFile.Close()
	ids, err := IDsFromURLList(listFile)
	if err != nil {
		return StatusChanges{}, err
	}

	content, err := os.ReadFile(xmlPath)
	if err != nil {
		return StatusChanges{}, fmt.Errorf("read datasets file: %w", err)
	}

	updated, changes := UpdateStatus(string(content), ids)
	if err := os.WriteFile(outPath, []byte(updated), 0o644); err != nil {
		return changes, fmt.Errorf("write output %s: %w", outPath, err)
	}
	return changes, nil
}
