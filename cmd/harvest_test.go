package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oceanobs/erddap-harvester/internal/config"
)

func TestHarvestFlagsMerge(t *testing.T) {
	base := config.HarvestConfig{
		MaxDepth:        5,
		CatalogWorkers:  5,
		MetadataWorkers: 10,
		Delay:           500 * time.Millisecond,
		ReloadMinutes:   10080,
	}

	// Zero flags leave the configuration untouched.
	var flags harvestFlags
	require.Equal(t, base, flags.merge(base))

	flags = harvestFlags{
		maxDepth:      2,
		metadataJobs:  4,
		delay:         time.Second,
		keepEmpty:     true,
		reloadMinutes: 60,
	}
	merged := flags.merge(base)
	require.Equal(t, 2, merged.MaxDepth)
	require.Equal(t, 5, merged.CatalogWorkers)
	require.Equal(t, 4, merged.MetadataWorkers)
	require.Equal(t, time.Second, merged.Delay)
	require.True(t, merged.KeepEmpty)
	require.Equal(t, 60, merged.ReloadMinutes)
}

func TestRootCommandWiring(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, sub := range root.Commands() {
		names = append(names, sub.Name())
	}
	require.Contains(t, names, "harvest")
	require.Contains(t, names, "extract")
	require.Contains(t, names, "check")
	require.Contains(t, names, "duplicates")
	require.Contains(t, names, "dedupe")
	require.Contains(t, names, "status")
	require.Contains(t, names, "compare")
	require.Contains(t, names, "rewrite")
}
