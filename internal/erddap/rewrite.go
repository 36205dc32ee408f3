package erddap

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

var (
	typeAttrRe   = regexp.MustCompile(`type="([^"]+)"`)
	sourceElemRe = regexp.MustCompile(`<sourceUrl>[^<]*</sourceUrl>`)
	erddapHostRe = regexp.MustCompile(`https?://[^/<]+/erddap`)
	domainSwapRe = regexp.MustCompile(`(<sourceUrl>)https?://[^/<]+(/erddap[^<]*)(</sourceUrl>)`)
)

// RewriteChanges summarizes a RewriteToErddap pass.
type RewriteChanges struct {
	Converted  int
	Redirected int
}

// RewriteToErddap re-points a configuration at an upstream ERDDAP server.
// EDDGridFromDap entries become EDDGridFromErddap entries whose sourceUrl is
// the upstream griddap endpoint for the same datasetID; entries that are
// already EDDGridFromErddap or EDDTableFromErddap keep their dap path but
// have their sourceUrl host swapped to the upstream base. Everything else in
// the file is preserved byte for byte.
func RewriteToErddap(content, upstreamBase string) (string, RewriteChanges) {
	upstream := strings.TrimRight(upstreamBase, "/")
	lines := strings.Split(content, "\n")

	var changes RewriteChanges
	inEntry := false
	pendingURL := ""
	redirect := false

	rewriteSource := func(line string) string {
		switch {
		case pendingURL != "" && strings.Contains(line, "<sourceUrl>"):
			url := pendingURL
			line = sourceElemRe.ReplaceAllStringFunc(line, func(string) string {
				return "<sourceUrl>" + url + "</sourceUrl>"
			})
			pendingURL = ""
		case redirect && strings.Contains(line, "<sourceUrl>"):
			if erddapHostRe.MatchString(line) {
				line = erddapHostRe.ReplaceAllStringFunc(line, func(string) string {
					return upstream
				})
				changes.Redirected++
			}
			redirect = false
		}
		return line
	}

	for i, line := range lines {
		if !inEntry {
			m := datasetOpenRe.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			if tm := typeAttrRe.FindStringSubmatch(line); tm != nil {
				switch tm[1] {
				case TypeGridFromDap:
					line = strings.Replace(line,
						`type="`+TypeGridFromDap+`"`,
						`type="`+TypeGridFromErddap+`"`, 1)
					pendingURL = upstream + "/griddap/" + m[1]
					changes.Converted++
				case TypeGridFromErddap, TypeTableFromErddap:
					redirect = true
				}
			}
			if strings.Contains(line, "</dataset>") {
				line = rewriteSource(line)
				pendingURL, redirect = "", false
			} else {
				inEntry = true
			}
			lines[i] = line
			continue
		}

		lines[i] = rewriteSource(line)
		if strings.Contains(line, "</dataset>") {
			inEntry = false
			pendingURL, redirect = "", false
		}
	}

	return strings.Join(lines, "\n"), changes
}

// RewriteSourceDomain replaces the scheme and host of every sourceUrl that
// points at an /erddap path, leaving the path untouched. newBase is the
// replacement scheme://host. The rewrite is textual, so untouched content is
// preserved byte for byte.
func RewriteSourceDomain(content, newBase string) (string, int) {
	base := strings.TrimRight(newBase, "/")
	count := 0
	updated := domainSwapRe.ReplaceAllStringFunc(content, func(elem string) string {
		sub := domainSwapRe.FindStringSubmatch(elem)
		count++
		return sub[1] + base + sub[2] + sub[3]
	})
	return updated, count
}

// Deactivate flips active="true" to active="false" on every dataset whose ID
// is in the list. Unlike UpdateStatus it never activates anything, so it is
// safe to feed a partial outage list without re-enabling datasets that were
// turned off for other reasons.
func Deactivate(content string, ids map[string]struct{}) (string, int) {
	count := 0
	updated := datasetTagRe.ReplaceAllStringFunc(content, func(tag string) string {
		idMatch := datasetIDAttrRe.FindStringSubmatch(tag)
		if idMatch == nil {
			return tag
		}
		if _, listed := ids[xmlUnescaper.Replace(idMatch[1])]; !listed {
			return tag
		}
		if !strings.Contains(tag, `active="true"`) {
			return tag
		}
		count++
		return strings.Replace(tag, `active="true"`, `active="false"`, 1)
	})
	return updated, count
}

// RewriteToErddapFile applies RewriteToErddap to inPath and writes the
// result to outPath.
func RewriteToErddapFile(inPath, outPath, upstreamBase string) (RewriteChanges, error) {
	content, err := os.ReadFile(inPath)
	if err != nil {
		return RewriteChanges{}, fmt.Errorf("read datasets file: %w", err)
	}
	updated, changes := RewriteToErddap(string(content), upstreamBase)
	if err := os.WriteFile(outPath, []byte(updated), 0o644); err != nil {
		return changes, fmt.Errorf("write output %s: %w", outPath, err)
	}
	return changes, nil
}

// DeactivateFile applies Deactivate to xmlPath using the URL or ID list at
// listPath and writes the result to outPath.
func DeactivateFile(xmlPath, listPath, outPath string) (int, error) {
	listFile, err := os.Open(listPath)
	if err != nil {
		return 0, fmt.Errorf("open URL list: %w", err)
	}
	defer listFile.Close()
	ids, err := IDsFromURLList(listFile)
	if err != nil {
		return 0, err
	}

	content, err := os.ReadFile(xmlPath)
	if err != nil {
		return 0, fmt.Errorf("read datasets file: %w", err)
	}
	updated, count := Deactivate(string(content), ids)
	if err := os.WriteFile(outPath, []byte(updated), 0o644); err != nil {
		return count, fmt.Errorf("write output %s: %w", outPath, err)
	}
	return count, nil
}

// RewriteSourceDomainFile applies RewriteSourceDomain to inPath and writes
// the result to outPath.
func RewriteSourceDomainFile(inPath, outPath, newBase string) (int, error) {
	content, err := os.ReadFile(inPath)
	if err != nil {
		return 0, fmt.Errorf("read datasets file: %w", err)
	}
	updated, count := RewriteSourceDomain(string(content), newBase)
	if err := os.WriteFile(outPath, []byte(updated), 0o644); err != nil {
		return count, fmt.Errorf("write output %s: %w", outPath, err)
	}
	return count, nil
}
