package erddap

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleDatasetsXML = `<?xml version="1.0" encoding="ISO-8859-1"?>
<erddapDatasets>
<dataset type="EDDGridFromDap" datasetID="sst_monthly" active="true">
    <sourceUrl>http://example.com/thredds/dodsC/sst/monthly</sourceUrl>
    <reloadEveryNMinutes>10080</reloadEveryNMinutes>
</dataset>
<dataset type="EDDGridFromDap" datasetID="sst_daily" active="false">
    <sourceUrl>http://example.com/thredds/dodsC/sst/daily</sourceUrl>
</dataset>
<dataset type="EDDGridFromDap" datasetID="sst_monthly" active="true">
    <sourceUrl>http://example.com/thredds/dodsC/sst/monthly</sourceUrl>
</dataset>
</erddapDatasets>
`

func TestScan(t *testing.T) {
	entries, err := Scan(strings.NewReader(sampleDatasetsXML))
	require.NoError(t, err)
	require.Len(t, entries, 3)

	first := entries[0]
	require.Equal(t, "sst_monthly", first.DatasetID)
	require.Equal(t, "http://example.com/thredds/dodsC/sst/monthly", first.SourceURL)
	require.True(t, first.HasActive)
	require.True(t, first.Active)
	require.Equal(t, 3, first.StartLine)
	require.Equal(t, 6, first.EndLine)
	require.Len(t, first.Block, 4)

	second := entries[1]
	require.Equal(t, "sst_daily", second.DatasetID)
	require.False(t, second.Active)
	require.Equal(t, 7, second.StartLine)
	require.Equal(t, 9, second.EndLine)
}

func TestScanSingleLineEntry(t *testing.T) {
	content := `<erddapDatasets>
<dataset type="EDDGridFromDap" datasetID="one_liner" active="true"><sourceUrl>http://example.com/d</sourceUrl></dataset>
</erddapDatasets>
`
	entries, err := Scan(strings.NewReader(content))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "one_liner", entries[0].DatasetID)
	require.Equal(t, "http://example.com/d", entries[0].SourceURL)
	require.Equal(t, 2, entries[0].StartLine)
	require.Equal(t, 2, entries[0].EndLine)
}

func TestScanEscapedID(t *testing.T) {
	content := `<dataset type="EDDGridFromDap" datasetID="a&amp;b" active="true">
</dataset>
`
	entries, err := Scan(strings.NewReader(content))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "a&b", entries[0].DatasetID)
}

func TestScanUnterminatedEntry(t *testing.T) {
	content := `<dataset type="EDDGridFromDap" datasetID="broken" active="true">
    <sourceUrl>http://example.com/d</sourceUrl>
`
	_, err := Scan(strings.NewReader(content))
	require.Error(t, err)
	require.Contains(t, err.Error(), "line 1")
}

func TestScanNoActiveAttr(t *testing.T) {
	content := `<dataset type="EDDGridFromDap" datasetID="no_flag">
</dataset>
`
	entries, err := Scan(strings.NewReader(content))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.False(t, entries[0].HasActive)
}
