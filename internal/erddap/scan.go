package erddap

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// The scanner is deliberately line-oriented rather than a DOM parse: the
// maintenance commands report 1-based line numbers and rewrite files while
// preserving every untouched byte, which a reserializing parser cannot do.

var (
	datasetOpenRe = regexp.MustCompile(`<dataset\s+[^>]*?datasetID="([^"]+)"[^>]*?>`)
	activeAttrRe  = regexp.MustCompile(`active="(true|false)"`)
	sourceURLRe   = regexp.MustCompile(`<sourceUrl>([^<]+)</sourceUrl>`)
)

var xmlUnescaper = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&apos;", "'",
	"&amp;", "&",
)

// Entry is one dataset element located in an existing configuration file.
type Entry struct {
	DatasetID string
	SourceURL string
	Active    bool
	HasActive bool
	// StartLine and EndLine are 1-based and inclusive.
	StartLine int
	EndLine   int
	// Block holds the entry's raw lines, used by the dedupe rewrite.
	Block []string
}

// Scan locates every dataset element in an erddapDatasets file, recording
// IDs, source URLs, and line positions. Attribute order within the open tag
// does not matter.
func Scan(r io.Reader) ([]Entry, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var entries []Entry
	var current *Entry

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		if current == nil {
			m := datasetOpenRe.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			entry := Entry{
				DatasetID: xmlUnescaper.Replace(m[1]),
				StartLine: lineNo,
				Block:     []string{line},
			}
			if am := activeAttrRe.FindStringSubmatch(line); am != nil {
				entry.HasActive = true
				entry.Active = am[1] == "true"
			}
			// Self-closing and single-line entries end immediately.
			if strings.Contains(line, "</dataset>") {
				entry.EndLine = lineNo
				fillSourceURL(&entry, line)
				entries = append(entries, entry)
				continue
			}
			current = &entry
			continue
		}

		current.Block = append(current.Block, line)
		if current.SourceURL == "" {
			fillSourceURL(current, line)
		}
		if strings.Contains(line, "</dataset>") {
			current.EndLine = lineNo
			entries = append(entries, *current)
			current = nil
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan datasets file: %w", err)
	}
	if current != nil {
		return nil, fmt.Errorf("unterminated dataset element starting at line %d", current.StartLine)
	}
	return entries, nil
}

// ScanFile reads and scans a configuration file from disk.
func ScanFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open datasets file: %w", err)
	}
	defer f.Close()
	return Scan(f)
}

func fillSourceURL(entry *Entry, line string) {
	if m := sourceURLRe.FindStringSubmatch(line); m != nil {
		entry.SourceURL = xmlUnescaper.Replace(m[1])
	}
}
