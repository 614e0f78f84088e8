package cache

import "os"

// State reports what a prior pipeline run left on disk.
//
// It is derived from filesystem presence at inspection time and is not
// stored anywhere.
type State struct {
	// HasFeaturized: the featurized data directory exists and holds at
	// least one entry.
	HasFeaturized bool
}

// Inspect checks featurizedDir for reusable intermediate data.
//
// Presence-only: it does not validate freshness, schema, nor row count of
// what it finds. A stale cache from a differently-configured run is
// reused as-is.
func Inspect(featurizedDir string) State {
	entries, err := os.ReadDir(featurizedDir)
	if err != nil {
		return State{}
	}
	return State{HasFeaturized: 0 < len(entries)}
}
