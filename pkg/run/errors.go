package run

import "errors"

// Failure taxonomy of a pipeline run.
//
// All of these are fatal. A run is a single attempt: nothing is retried,
// and every failure surfaces at the top level as exit code 1.
var (
	// ErrEnvironmentUnavailable: no container runtime responded and the
	// local collaborators are not usable either.
	ErrEnvironmentUnavailable = errors.New("no execution environment: container runtime is not available and local collaborators are missing")

	// ErrMissingDependencies: the local path was selected but some of the
	// required collaborator commands cannot be resolved.
	ErrMissingDependencies = errors.New("missing required commands")

	// ErrInvalidTracker: the tracker name is not a known kind.
	ErrInvalidTracker = errors.New("invalid tracker")

	// ErrMissingArtifact: training reported success but the primary
	// artifact is not at the latest artifacts directory. Detected after
	// the stages, and distinguished from a stage failure.
	ErrMissingArtifact = errors.New("primary artifact not found")
)
