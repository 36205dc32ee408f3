// Package erddap builds and maintains erddapDatasets XML configuration
// files: serializing harvested datasets, scanning existing files, and the
// duplicate/status/compare maintenance operations.
package erddap

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/oceanobs/erddap-harvester/internal/catalog"
)

// Dataset types understood by ERDDAP that this tool emits or scans.
const (
	TypeGridFromDap    = "EDDGridFromDap"
	TypeGridFromErddap = "EDDGridFromErddap"
	TypeTableFromErddap = "EDDTableFromErddap"
)

// DefaultReloadMinutes is the weekly reload interval stamped on generated
// entries.
const DefaultReloadMinutes = 10080

// Document is the root erddapDatasets element.
type Document struct {
	XMLName  xml.Name       `xml:"erddapDatasets"`
	Datasets []DatasetEntry `xml:"dataset"`
}

// DatasetEntry is one dataset element in the output document.
type DatasetEntry struct {
	Type                string     `xml:"type,attr"`
	DatasetID           string     `xml:"datasetID,attr"`
	Active              string     `xml:"active,attr"`
	SourceURL           string     `xml:"sourceUrl"`
	ReloadEveryNMinutes int        `xml:"reloadEveryNMinutes"`
	AddAttributes       *AttrBlock `xml:"addAttributes,omitempty"`
}

// AttrBlock groups att elements under addAttributes.
type AttrBlock struct {
	Atts []Att `xml:"att"`
}

// Att is either a leaf attribute (Value set) or a named group of child
// attributes (the global "." block and per-variable blocks).
type Att struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
	Atts  []Att  `xml:"att,omitempty"`
}

// BuildOptions controls conversion from harvested datasets to the document.
type BuildOptions struct {
	DatasetType   string
	ReloadMinutes int
	// IncludeEmpty keeps datasets whose DAS fetch produced no attributes.
	// The default drops them, matching the configured harvest policy.
	IncludeEmpty bool
}

// Build converts harvested dataset records into an erddapDatasets document.
// Attribute ordering is sorted by name so repeated runs produce identical
// output for the same inputs.
func Build(datasets []catalog.Dataset, opts BuildOptions) Document {
	if opts.DatasetType == "" {
		opts.DatasetType = TypeGridFromDap
	}
	if opts.ReloadMinutes <= 0 {
		opts.ReloadMinutes = DefaultReloadMinutes
	}

	doc := Document{}
	for _, ds := range datasets {
		if !opts.IncludeEmpty && !ds.HasMetadata() {
			continue
		}
		entry := DatasetEntry{
			Type:                opts.DatasetType,
			DatasetID:           ds.ID,
			Active:              "true",
			SourceURL:           ds.SourceURL,
			ReloadEveryNMinutes: opts.ReloadMinutes,
		}
		if block := buildAttrBlock(ds); block != nil {
			entry.AddAttributes = block
		}
		doc.Datasets = append(doc.Datasets, entry)
	}
	return doc
}

func buildAttrBlock(ds catalog.Dataset) *AttrBlock {
	var block AttrBlock
	if len(ds.Global) > 0 {
		block.Atts = append(block.Atts, Att{Name: ".", Atts: attsFromMap(ds.Global)})
	}
	for _, varName := range sortedKeys(ds.Variables) {
		attrs := ds.Variables[varName]
		if len(attrs) == 0 {
			continue
		}
		block.Atts = append(block.Atts, Att{Name: varName, Atts: attsFromMap(attrs)})
	}
	if len(block.Atts) == 0 {
		return nil
	}
	return &block
}

func attsFromMap(attrs catalog.AttrMap) []Att {
	atts := make([]Att, 0, len(attrs))
	for _, name := range sortedKeys(attrs) {
		atts = append(atts, Att{Name: name, Value: attrs[name].Text()})
	}
	return atts
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Write serializes the document with an XML declaration and two-space
// indentation.
func Write(w io.Writer, doc Document) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("write XML header: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode erddapDatasets: %w", err)
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return fmt.Errorf("write trailing newline: %w", err)
	}
	return nil
}

// WriteFile serializes the document to path.
func WriteFile(path string, doc Document) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output %s: %w", path, err)
	}
	defer f.Close()
	if err := Write(f, doc); err != nil {
		return err
	}
	return f.Close()
}
