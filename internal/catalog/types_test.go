package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateID(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain name", in: "SeaSurfaceTemp", want: "seasurfacetemp"},
		{name: "spaces and punctuation", in: "Sea Surface Temp (v2)", want: "sea_surface_temp__v2_"},
		{name: "dots", in: "sst.mean", want: "sst_mean"},
		{name: "leading digit gets prefix", in: "2024_analysis", want: "ds_2024_analysis"},
		{name: "leading underscore gets prefix", in: "_hidden", want: "ds__hidden"},
		{name: "empty name", in: "", want: "ds_"},
		{name: "already clean", in: "noaa_oisst_v2", want: "noaa_oisst_v2"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, GenerateID(tc.in))
			// Same input always produces the same ID.
			require.Equal(t, GenerateID(tc.in), GenerateID(tc.in))
		})
	}
}

func TestGenerateIDCharset(t *testing.T) {
	id := GenerateID("Weird!@# name / with\tstuff 42")
	require.Regexp(t, `^[a-z][a-z0-9_]*$`, id)
}

func TestAttrValueText(t *testing.T) {
	require.Equal(t, "hello", StringValue("hello").Text())
	require.Equal(t, "-999", IntValue(-999).Text())
	require.Equal(t, "-999", FloatValue(-999).Text())
	require.Equal(t, "0.125", FloatValue(0.125).Text())
	require.Equal(t, "1e+30", FloatValue(1e30).Text())
}

func TestNewDataset(t *testing.T) {
	ds := NewDataset("Sea Surface Temp", "http://example.com/dodsC/sst", "declared_id")
	require.Equal(t, "declared_id", ds.ID)

	ds = NewDataset("Sea Surface Temp", "http://example.com/dodsC/sst", "")
	require.Equal(t, "sea_surface_temp", ds.ID)
	require.False(t, ds.HasMetadata())

	ds.Global = AttrMap{"title": StringValue("SST")}
	require.True(t, ds.HasMetadata())
}
