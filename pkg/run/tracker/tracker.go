package tracker

import (
	"fmt"

	"github.com/alzearly/trainctl/pkg/run"
	"github.com/alzearly/trainctl/pkg/utils/env"
)

// DefaultMlflowURI is used when MLFLOW_TRACKING_URI is not set.
const DefaultMlflowURI = "http://localhost:5000"

// Tracker is a handle on the experiment tracker selected for a run.
//
// The handle is passed explicitly into the training stage; nothing is
// written to process-wide state, so there is no ordering hazard between
// "set tracker" and "run training".
type Tracker interface {
	Kind() run.TrackerKind

	// Environ returns environment variables to inject into the training
	// collaborator so that it reports to this tracker.
	Environ() []string
}

// Setup returns the tracker handle for kind.
//
// The tracker protocol itself is the collaborator's business; this handle
// only carries what the collaborator needs to find the tracker.
func Setup(kind run.TrackerKind) (Tracker, error) {
	switch kind {
	case run.TrackerNone:
		return noop{}, nil
	case run.TrackerMlflow:
		return mlflow{
			trackingURI: env.GetOr("MLFLOW_TRACKING_URI", DefaultMlflowURI),
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", run.ErrInvalidTracker, kind)
	}
}

type noop struct{}

func (noop) Kind() run.TrackerKind { return run.TrackerNone }
func (noop) Environ() []string     { return nil }

type mlflow struct {
	trackingURI string
}

func (m mlflow) Kind() run.TrackerKind { return run.TrackerMlflow }

func (m mlflow) Environ() []string {
	return []string{"MLFLOW_TRACKING_URI=" + m.trackingURI}
}
