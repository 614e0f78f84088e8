package run_test

import (
	"errors"
	"testing"

	"github.com/alzearly/trainctl/pkg/run"
)

func TestParseTrackerKind(t *testing.T) {
	t.Run("it accepts the known tracker kinds", func(t *testing.T) {
		for _, plain := range []string{"none", "mlflow"} {
			kind, err := run.ParseTrackerKind(plain)
			if err != nil {
				t.Errorf("unexpected error for %s: %v", plain, err)
			}
			if string(kind) != plain {
				t.Errorf("unmatch: got %s, expected %s", kind, plain)
			}
		}
	})

	t.Run("when the tracker name is unknown, it returns ErrInvalidTracker", func(t *testing.T) {
		for _, plain := range []string{"", "wandb", "Mlflow", "NONE"} {
			if _, err := run.ParseTrackerKind(plain); !errors.Is(err, run.ErrInvalidTracker) {
				t.Errorf("expected ErrInvalidTracker for %q, got %v", plain, err)
			}
		}
	})
}
