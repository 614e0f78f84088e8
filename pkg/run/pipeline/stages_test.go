package pipeline_test

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alzearly/trainctl/pkg/cmp"
	"github.com/alzearly/trainctl/pkg/run"
	"github.com/alzearly/trainctl/pkg/run/cache"
	"github.com/alzearly/trainctl/pkg/run/pipeline"
	"github.com/alzearly/trainctl/pkg/run/tracker"
	"github.com/alzearly/trainctl/pkg/utils/pointer"
	"github.com/alzearly/trainctl/pkg/utils/try"
)

type spyCall struct {
	argv []string
	env  []string
}

func spyRunner(calls *[]spyCall) pipeline.Runner {
	return func(_ context.Context, argv []string, extraEnv []string) error {
		*calls = append(*calls, spyCall{argv: argv, env: extraEnv})
		return nil
	}
}

func TestGenerateStage(t *testing.T) {
	ctx := context.Background()
	collab := pipeline.Collaborator{Argv: []string{"python", "-m", "src.data_gen"}}

	t.Run("it runs the collaborator argv as-is when no row count is given", func(t *testing.T) {
		calls := []spyCall{}
		stage := pipeline.Generate(collab, spyRunner(&calls))

		if err := stage.Run(ctx, run.Config{Seed: run.DefaultSeed}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(calls) != 1 || !cmp.SliceEq(calls[0].argv, collab.Argv) {
			t.Errorf("unmatch argv: %v", calls)
		}
	})

	t.Run("it forwards the row count hint as a --rows flag", func(t *testing.T) {
		calls := []spyCall{}
		stage := pipeline.Generate(collab, spyRunner(&calls))

		cfg := run.Config{Rows: pointer.Ref(500), Seed: run.DefaultSeed}
		if err := stage.Run(ctx, cfg); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		expected := append(append([]string{}, collab.Argv...), "--rows", "500")
		if !cmp.SliceEq(calls[0].argv, expected) {
			t.Errorf("unmatch argv: got %v, expected %v", calls[0].argv, expected)
		}
	})

	t.Run("it is skipped exactly when featurized data is cached", func(t *testing.T) {
		stage := pipeline.Generate(collab, nil)
		if stage.Skip(cache.State{}) {
			t.Error("should not skip without cache")
		}
		if !stage.Skip(cache.State{HasFeaturized: true}) {
			t.Error("should skip on cache hit")
		}
	})
}

func TestPreprocessStage(t *testing.T) {
	collab := pipeline.Collaborator{Argv: []string{"python", "-m", "src.preprocess"}}

	t.Run("it runs the collaborator niladically", func(t *testing.T) {
		calls := []spyCall{}
		stage := pipeline.Preprocess(collab, spyRunner(&calls))

		cfg := run.Config{Rows: pointer.Ref(500), Seed: run.DefaultSeed}
		if err := stage.Run(context.Background(), cfg); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !cmp.SliceEq(calls[0].argv, collab.Argv) {
			t.Errorf("unmatch argv: %v", calls[0].argv)
		}
	})

	t.Run("it is skipped exactly when featurized data is cached", func(t *testing.T) {
		stage := pipeline.Preprocess(collab, nil)
		if stage.Skip(cache.State{}) || !stage.Skip(cache.State{HasFeaturized: true}) {
			t.Error("skip predicate should mirror the cache state")
		}
	})
}

func TestTrainingParams(t *testing.T) {
	t.Run("every stochastic sub-parameter derives from the one seed", func(t *testing.T) {
		params := pipeline.NewTrainingParams(7)
		if params.Seed != 7 || params.XGBRandomState != 7 || params.LRRandomState != 7 {
			t.Errorf("unmatch params: %+v", params)
		}
	})

	t.Run("the same seed always yields the same parameters", func(t *testing.T) {
		if pipeline.NewTrainingParams(42) != pipeline.NewTrainingParams(42) {
			t.Error("params should be reproducible")
		}
	})
}

func TestTrainStage(t *testing.T) {
	ctx := context.Background()
	collab := pipeline.Collaborator{Argv: []string{"python", "-m", "src.train"}}

	t.Run("it passes the tracker kind and seed-derived parameters to the collaborator", func(t *testing.T) {
		calls := []spyCall{}
		tr := try.To(tracker.Setup(run.TrackerNone)).OrFatal(t)
		stage := pipeline.Train(collab, tr, spyRunner(&calls))

		if err := stage.Run(ctx, run.Config{Tracker: run.TrackerNone, Seed: 7}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		expected := append(
			append([]string{}, collab.Argv...),
			"--tracker", "none",
			"--seed", "7",
			"--xgb-random-state", "7",
			"--lr-random-state", "7",
		)
		if !cmp.SliceEq(calls[0].argv, expected) {
			t.Errorf("unmatch argv: got %v, expected %v", calls[0].argv, expected)
		}
	})

	t.Run("two runs with the same seed invoke the collaborator identically", func(t *testing.T) {
		calls := []spyCall{}
		tr := try.To(tracker.Setup(run.TrackerNone)).OrFatal(t)
		stage := pipeline.Train(collab, tr, spyRunner(&calls))

		cfg := run.Config{Tracker: run.TrackerNone, Seed: 7}
		if err := stage.Run(ctx, cfg); err != nil {
			t.Fatal(err)
		}
		if err := stage.Run(ctx, cfg); err != nil {
			t.Fatal(err)
		}

		if !cmp.SliceEq(calls[0].argv, calls[1].argv) {
			t.Errorf("runs differ: %v vs %v", calls[0].argv, calls[1].argv)
		}
	})

	t.Run("it injects the tracker's environment into the collaborator", func(t *testing.T) {
		t.Setenv("MLFLOW_TRACKING_URI", "http://mlflow.example.com")

		calls := []spyCall{}
		tr := try.To(tracker.Setup(run.TrackerMlflow)).OrFatal(t)
		stage := pipeline.Train(collab, tr, spyRunner(&calls))

		if err := stage.Run(ctx, run.Config{Tracker: run.TrackerMlflow, Seed: 1}); err != nil {
			t.Fatal(err)
		}

		if !cmp.SliceEq(calls[0].env, []string{"MLFLOW_TRACKING_URI=http://mlflow.example.com"}) {
			t.Errorf("unmatch env: %v", calls[0].env)
		}
	})

	t.Run("it is never skipped", func(t *testing.T) {
		stage := pipeline.Train(collab, nil, nil)
		if stage.Skip(cache.State{HasFeaturized: true}) {
			t.Error("train should run regardless of the cache")
		}
	})
}

func TestExportStage(t *testing.T) {
	t.Run("it mirrors the latest artifacts into a timestamped snapshot", func(t *testing.T) {
		root := t.TempDir()
		latest := filepath.Join(root, "latest")
		if err := os.MkdirAll(latest, 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(latest, "model.pkl"), []byte("weights"), 0644); err != nil {
			t.Fatal(err)
		}

		clock := func() time.Time {
			return time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC)
		}
		stage := pipeline.Export(latest, clock, log.New(io.Discard, "", 0), io.Discard)

		if err := stage.Run(context.Background(), run.Config{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		snapshot := filepath.Join(root, "20240131_235959", "model.pkl")
		copied := try.To(os.ReadFile(snapshot)).OrFatal(t)
		if string(copied) != "weights" {
			t.Errorf("unmatch snapshot content: %s", copied)
		}
	})

	t.Run("it is never skipped", func(t *testing.T) {
		stage := pipeline.Export("", time.Now, log.New(io.Discard, "", 0), io.Discard)
		if stage.Skip(cache.State{HasFeaturized: true}) {
			t.Error("export should run regardless of the cache")
		}
	})
}
