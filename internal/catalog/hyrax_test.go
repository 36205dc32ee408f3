package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const hyraxListing = `<html><body>
<a href="../">Parent Directory</a>
<a href="/">Root</a>
<a href="data1.nc">data1.nc</a>
<a href="data2.nc.das">data2.nc.das</a>
<a href="subdir/">subdir/</a>
<a href="README.txt">README.txt</a>
<a href="sst_2024_01_01.nc">sst_2024_01_01.nc</a>
</body></html>`

func TestHyraxExtract(t *testing.T) {
	source := &HyraxSource{FilterTimeSpecific: false}
	page := Page{
		URL:      "http://example.com/opendap/sst/contents.html",
		FinalURL: "http://example.com/opendap/sst/contents.html",
		Body:     []byte(hyraxListing),
	}

	datasets, refs, err := source.Extract(page, zap.NewNop())
	require.NoError(t, err)

	// README.txt has no dataset extension; the parent and root links are
	// never followed.
	require.Len(t, datasets, 3)
	require.Equal(t, "data1.nc", datasets[0].Name)
	require.Equal(t, "http://example.com/opendap/sst/data1.nc", datasets[0].SourceURL)
	// The trailing DAP extension is stripped from the access URL.
	require.Equal(t, "http://example.com/opendap/sst/data2.nc", datasets[1].SourceURL)

	require.Len(t, refs, 1)
	require.Equal(t, "subdir", refs[0].Name)
	require.Equal(t, "http://example.com/opendap/sst/subdir/", refs[0].URL)
}

func TestHyraxExtractFiltered(t *testing.T) {
	source := &HyraxSource{FilterTimeSpecific: true}
	page := Page{
		URL:      "http://example.com/opendap/sst/contents.html",
		FinalURL: "http://example.com/opendap/sst/contents.html",
		Body:     []byte(hyraxListing),
	}

	datasets, _, err := source.Extract(page, zap.NewNop())
	require.NoError(t, err)
	for _, ds := range datasets {
		require.NotEqual(t, "sst_2024_01_01.nc", ds.Name)
	}
	require.Len(t, datasets, 2)
}

func TestHyraxExtractCustomExtensions(t *testing.T) {
	source := &HyraxSource{Extensions: []string{".txt"}}
	page := Page{
		URL:      "http://example.com/opendap/sst/contents.html",
		FinalURL: "http://example.com/opendap/sst/contents.html",
		Body:     []byte(hyraxListing),
	}

	datasets, _, err := source.Extract(page, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, datasets, 1)
	require.Equal(t, "README.txt", datasets[0].Name)
}

func TestHyraxEscapedNames(t *testing.T) {
	listing := `<html><body><a href="sea%20surface.nc">sea surface</a></body></html>`
	source := &HyraxSource{}
	page := Page{
		URL:      "http://example.com/opendap/contents.html",
		FinalURL: "http://example.com/opendap/contents.html",
		Body:     []byte(listing),
	}

	datasets, _, err := source.Extract(page, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, datasets, 1)
	require.Equal(t, "sea surface.nc", datasets[0].Name)
	require.Equal(t, "http://example.com/opendap/sea%20surface.nc", datasets[0].SourceURL)
}

func TestDetectExtensions(t *testing.T) {
	page := Page{
		FinalURL: "http://example.com/opendap/contents.html",
		Body:     []byte(hyraxListing),
	}
	extensions := DetectExtensions(page, zap.NewNop())
	require.Contains(t, extensions, ".nc")
	require.Contains(t, extensions, ".das")
	require.Contains(t, extensions, ".txt")
}

func TestDetectExtensionsFallback(t *testing.T) {
	page := Page{
		FinalURL: "http://example.com/opendap/contents.html",
		Body:     []byte(`<html><body><a href="subdir/">subdir</a></body></html>`),
	}
	require.Equal(t, DefaultHyraxExtensions, DetectExtensions(page, zap.NewNop()))
}
