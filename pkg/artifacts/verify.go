package artifacts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/alzearly/trainctl/pkg/run"
	"github.com/fsnotify/fsnotify"
)

// DefaultGrace bounds how long VerifyPrimary waits for a training
// collaborator that is still flushing its output.
const DefaultGrace = 2 * time.Second

// VerifyPrimary checks that the primary artifact is present at latestDir.
//
// Presence of the primary artifact, not the stages' exit codes, is the
// single source of truth for a successful run. When the file is not
// there yet, latestDir is watched for up to grace before giving up with
// run.ErrMissingArtifact.
func VerifyPrimary(ctx context.Context, latestDir string, grace time.Duration) error {
	primary := filepath.Join(latestDir, Primary)
	missing := fmt.Errorf("%w: %s", run.ErrMissingArtifact, primary)

	if _, err := os.Stat(primary); err == nil {
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return missing
	}
	defer w.Close()
	if err := w.Add(latestDir); err != nil {
		return missing
	}

	// the file may have landed between Stat and Add
	if _, err := os.Stat(primary); err == nil {
		return nil
	}

	timer := time.NewTimer(grace)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return missing
		case event, ok := <-w.Events:
			if !ok {
				return missing
			}
			if event.Name != primary {
				continue
			}
			if _, err := os.Stat(primary); err == nil {
				return nil
			}
		case <-w.Errors:
			// keep waiting; the timer bounds us anyway
		}
	}
}
