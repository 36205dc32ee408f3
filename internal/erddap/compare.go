package erddap

import "sort"

// CompareIDs returns the datasetIDs present in b but absent from a, sorted.
func CompareIDs(a, b []Entry) []string {
	inA := map[string]struct{}{}
	for _, e := range a {
		inA[e.DatasetID] = struct{}{}
	}

	seen := map[string]struct{}{}
	var onlyB []string
	for _, e := range b {
		if _, ok := inA[e.DatasetID]; ok {
			continue
		}
		if _, ok := seen[e.DatasetID]; ok {
			continue
		}
		seen[e.DatasetID] = struct{}{}
		onlyB = append(onlyB, e.DatasetID)
	}
	sort.Strings(onlyB)
	return onlyB
}
