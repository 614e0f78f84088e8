package run

import "fmt"

// TrackerKind identifies the experiment tracker wired into a training run.
type TrackerKind string

const (
	// TrackerNone disables experiment tracking.
	TrackerNone TrackerKind = "none"

	// TrackerMlflow records the run with an MLflow tracking server.
	TrackerMlflow TrackerKind = "mlflow"
)

// ParseTrackerKind validates a tracker name given on the command line.
//
// Anything outside the known kinds is ErrInvalidTracker.
func ParseTrackerKind(s string) (TrackerKind, error) {
	switch k := TrackerKind(s); k {
	case TrackerNone, TrackerMlflow:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidTracker, s)
	}
}

// DefaultSeed is used when no seed is given on the command line.
const DefaultSeed = 42

// Config is the configuration of a single pipeline run.
//
// It is built once from command line input and passed by value.
// No component mutates it.
type Config struct {
	// Tracker is the experiment tracker to set up before training.
	Tracker TrackerKind

	// Rows is the row count hint for the data-generation collaborator.
	// nil means "let the collaborator decide".
	Rows *int

	// Seed drives every stochastic sub-parameter of the training stage.
	Seed int

	// ForceLocal skips the container runtime probe and always selects
	// local execution.
	ForceLocal bool
}
