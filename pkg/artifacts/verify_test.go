package artifacts_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alzearly/trainctl/pkg/artifacts"
	"github.com/alzearly/trainctl/pkg/run"
)

func TestVerifyPrimary(t *testing.T) {
	ctx := context.Background()

	t.Run("when the primary artifact is present, it passes at once", func(t *testing.T) {
		latest := t.TempDir()
		if err := os.WriteFile(filepath.Join(latest, artifacts.Primary), []byte("weights"), 0644); err != nil {
			t.Fatal(err)
		}

		if err := artifacts.VerifyPrimary(ctx, latest, 10*time.Millisecond); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("when the artifact never shows up, it fails with ErrMissingArtifact", func(t *testing.T) {
		latest := t.TempDir()

		err := artifacts.VerifyPrimary(ctx, latest, 50*time.Millisecond)
		if !errors.Is(err, run.ErrMissingArtifact) {
			t.Errorf("expected ErrMissingArtifact, got %v", err)
		}
	})

	t.Run("when the latest directory itself is missing, it fails with ErrMissingArtifact", func(t *testing.T) {
		err := artifacts.VerifyPrimary(
			ctx, filepath.Join(t.TempDir(), "latest"), 50*time.Millisecond,
		)
		if !errors.Is(err, run.ErrMissingArtifact) {
			t.Errorf("expected ErrMissingArtifact, got %v", err)
		}
	})

	t.Run("when the artifact lands within the grace period, it passes", func(t *testing.T) {
		latest := t.TempDir()

		go func() {
			time.Sleep(100 * time.Millisecond)
			os.WriteFile(filepath.Join(latest, artifacts.Primary), []byte("weights"), 0644)
		}()

		deadline := 10 * time.Second
		if dl, ok := t.Deadline(); ok {
			deadline = time.Until(dl) - 1*time.Second
		}
		if err := artifacts.VerifyPrimary(ctx, latest, deadline); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("a canceled context stops the wait", func(t *testing.T) {
		latest := t.TempDir()

		cctx, cancel := context.WithCancel(ctx)
		cancel()

		err := artifacts.VerifyPrimary(cctx, latest, 10*time.Second)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}
