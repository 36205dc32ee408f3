// Package catalog implements the THREDDS/Hyrax catalog crawler and the
// OPeNDAP DAS metadata extractor. It produces Dataset records that the
// erddap package serializes into an erddapDatasets configuration file.
package catalog

import (
	"strconv"
	"strings"
	"unicode"
)

// AttrKind discriminates the value held by an AttrValue.
type AttrKind int

// Supported attribute value kinds.
const (
	KindString AttrKind = iota
	KindInt
	KindFloat
)

// AttrValue is a tagged variant for DAS attribute values. DAS mixes strings,
// integers, and floats in one attribute block; carrying the kind explicitly
// means the XML serializer never has to re-infer it.
type AttrValue struct {
	Kind  AttrKind
	Str   string
	Int   int64
	Float float64
}

// StringValue wraps a raw string attribute.
func StringValue(s string) AttrValue {
	return AttrValue{Kind: KindString, Str: s}
}

// IntValue wraps an integer attribute.
func IntValue(i int64) AttrValue {
	return AttrValue{Kind: KindInt, Int: i}
}

// FloatValue wraps a floating-point attribute.
func FloatValue(f float64) AttrValue {
	return AttrValue{Kind: KindFloat, Float: f}
}

// Text renders the value the way it should appear in the output XML.
func (v AttrValue) Text() string {
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	default:
		return v.Str
	}
}

// AttrMap holds one DAS attribute block keyed by attribute name.
type AttrMap map[string]AttrValue

// Dataset is one discovered dataset with its resolved OPeNDAP access URL.
// Created when a catalog entry is discovered, filled in once by the DAS
// fetch, and immutable afterward. ID uniqueness is not enforced here; the
// duplicates command operates on the serialized XML.
type Dataset struct {
	Name      string
	SourceURL string
	ID        string
	Global    AttrMap
	Variables map[string]AttrMap
}

// HasMetadata reports whether any DAS attributes were captured.
func (d Dataset) HasMetadata() bool {
	return len(d.Global) > 0 || len(d.Variables) > 0
}

// NewDataset builds a Dataset, generating an ID from the display name when
// the catalog did not declare one.
func NewDataset(name, sourceURL, declaredID string) Dataset {
	id := declaredID
	if id == "" {
		id = GenerateID(name)
	}
	return Dataset{Name: name, SourceURL: sourceURL, ID: id}
}

// CatalogRef is a child catalog discovered during traversal.
type CatalogRef struct {
	Name string
	URL  string
}

// GenerateID derives a dataset ID from a display name. The result always
// starts with a letter, contains only [a-z0-9_], and is deterministic.
func GenerateID(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	clean := b.String()
	if clean == "" || !unicode.IsLetter(rune(clean[0])) {
		clean = "ds_" + clean
	}
	return strings.ToLower(clean)
}
