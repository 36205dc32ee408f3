package erddap

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// KeepPolicy selects which occurrence survives when duplicates are removed.
type KeepPolicy string

// Supported keep policies. The chosen policy applies uniformly to every
// duplicate group.
const (
	KeepFirst KeepPolicy = "first"
	KeepLast  KeepPolicy = "last"
)

// Valid reports whether p is a recognized policy.
func (p KeepPolicy) Valid() bool {
	return p == KeepFirst || p == KeepLast
}

// Dedupe copies the file from r to w, dropping every duplicate-datasetID
// entry except the one chosen by the policy. Lines outside removed entries
// are preserved byte for byte.
func Dedupe(r io.Reader, w io.Writer, entries []Entry, policy KeepPolicy) (removed int, err error) {
	if !policy.Valid() {
		return 0, fmt.Errorf("unknown keep policy %q", policy)
	}

	byID := map[string][]Entry{}
	for _, e := range entries {
		byID[e.DatasetID] = append(byID[e.DatasetID], e)
	}

	// Line ranges of the entries being dropped.
	drop := map[int]int{}
	for _, group := range byID {
		if len(group) < 2 {
			continue
		}
		keep := 0
		if policy == KeepLast {
			keep = len(group) - 1
		}
		for i, e := range group {
			if i == keep {
				continue
			}
			drop[e.StartLine] = e.EndLine
			removed++
		}
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	out := bufio.NewWriter(w)

	lineNo := 0
	skipUntil := 0
	for scanner.Scan() {
		lineNo++
		if skipUntil >= lineNo {
			continue
		}
		if end, ok := drop[lineNo]; ok {
			skipUntil = end
			continue
		}
		if _, err := out.WriteString(scanner.Text()); err != nil {
			return removed, fmt.Errorf("write deduped output: %w", err)
		}
		if err := out.WriteByte('\n'); err != nil {
			return removed, fmt.Errorf("write deduped output: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return removed, fmt.Errorf("read datasets file: %w", err)
	}
	if err := out.Flush(); err != nil {
		return removed, fmt.Errorf("flush deduped output: %w", err)
	}
	return removed, nil
}

// DedupeFile scans inPath, removes duplicate entries per the policy, and
// writes the result to outPath.
func DedupeFile(inPath, outPath string, policy KeepPolicy) (int, error) {
	entries, err := ScanFile(inPath)
	if err != nil {
		return 0, err
	}

	in, err := os.Open(inPath)
	if err != nil {
		return 0, fmt.Errorf("open datasets file: %w", err)
	}
	defer in.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return 0, fmt.Errorf("create output %s: %w", outPath, err)
	}
	defer out.Close()

	removed, err := Dedupe(in, out, entries, policy)
	if err != nil {
		return removed, err
	}
	return removed, out.Close()
}
