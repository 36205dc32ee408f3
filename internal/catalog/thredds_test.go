package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const threddsCatalog = `<?xml version="1.0" encoding="UTF-8"?>
<catalog xmlns="http://www.unidata.ucar.edu/namespaces/thredds/InvCatalog/v1.0"
         xmlns:xlink="http://www.w3.org/1999/xlink" name="Test Catalog">
  <service name="all" serviceType="Compound" base="">
    <service name="odap" serviceType="OPENDAP" base="/thredds/dodsC/"/>
    <service name="http" serviceType="HTTPServer" base="/thredds/fileServer/"/>
  </service>
  <dataset name="Aggregations">
    <dataset name="SST Monthly Mean" ID="sst_monthly" urlPath="sst/monthly.nc"/>
    <dataset name="sst_daily-20240101" urlPath="sst/daily-20240101.nc"/>
    <dataset name="No Access Dataset"/>
    <catalogRef xlink:href="sub/catalog.xml" xlink:title="Regional Models"/>
    <catalogRef xlink:href="files/catalog.xml" xlink:title="Individual Files"/>
  </dataset>
</catalog>`

func TestThreddsExtract(t *testing.T) {
	source := &ThreddsSource{FilterTimeSpecific: true}
	page := Page{
		URL:      "http://example.com/thredds/catalog/sst/catalog.xml",
		FinalURL: "http://example.com/thredds/catalog/sst/catalog.xml",
		Body:     []byte(threddsCatalog),
	}

	datasets, refs, err := source.Extract(page, zap.NewNop())
	require.NoError(t, err)

	// The container, the time-specific granule, and the access-less dataset
	// all drop out.
	require.Len(t, datasets, 1)
	require.Equal(t, "SST Monthly Mean", datasets[0].Name)
	require.Equal(t, "sst_monthly", datasets[0].ID)
	require.Equal(t, "http://example.com/thredds/dodsC/sst/sst/monthly.nc", datasets[0].SourceURL)

	// The granule-listing catalogRef is filtered, the regional one kept.
	require.Len(t, refs, 1)
	require.Equal(t, "Regional Models", refs[0].Name)
	require.Equal(t, "http://example.com/thredds/catalog/sst/sub/catalog.xml", refs[0].URL)
}

func TestThreddsExtractNoFilter(t *testing.T) {
	source := &ThreddsSource{FilterTimeSpecific: false}
	page := Page{
		URL:      "http://example.com/thredds/catalog/sst/catalog.xml",
		FinalURL: "http://example.com/thredds/catalog/sst/catalog.xml",
		Body:     []byte(threddsCatalog),
	}

	datasets, refs, err := source.Extract(page, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, datasets, 2)
	require.Len(t, refs, 2)
}

func TestThreddsExtractAccessElement(t *testing.T) {
	catalogXML := `<?xml version="1.0"?>
<catalog xmlns:xlink="http://www.w3.org/1999/xlink">
  <service name="odap" serviceType="DODS" base="/opendap/"/>
  <dataset name="Reanalysis V1">
    <access serviceName="odap" urlPath="/opendap/reanalysis/v1"/>
  </dataset>
</catalog>`
	source := &ThreddsSource{}
	page := Page{
		URL:      "http://example.com/catalog/catalog.xml",
		FinalURL: "http://example.com/catalog/catalog.xml",
		Body:     []byte(catalogXML),
	}

	datasets, _, err := source.Extract(page, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, datasets, 1)
	require.Equal(t, "http://example.com/opendap/reanalysis/v1", datasets[0].SourceURL)
	// No declared ID, so one is generated from the name.
	require.Equal(t, "reanalysis_v1", datasets[0].ID)
}

func TestThreddsNormalizeURL(t *testing.T) {
	source := &ThreddsSource{}
	require.Equal(t,
		"http://example.com/thredds/catalog.xml",
		source.NormalizeURL("http://example.com/thredds/catalog.html"),
	)
	require.Equal(t,
		"http://example.com/thredds/catalog.xml",
		source.NormalizeURL("http://example.com/thredds/catalog.xml"),
	)
}
