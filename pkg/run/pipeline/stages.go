package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/alzearly/trainctl/pkg/artifacts"
	"github.com/alzearly/trainctl/pkg/run"
	"github.com/alzearly/trainctl/pkg/run/cache"
	"github.com/alzearly/trainctl/pkg/run/tracker"
)

// Collaborator is an external pipeline program with its fixed argv.
//
// The orchestrator owns *whether and how* collaborators run, not what they
// do: data generation, preprocessing and training are all behind this
// contract.
type Collaborator struct {
	Argv []string
}

// Command is the executable name of this collaborator, as the Dependency
// Gate must resolve it.
func (c Collaborator) Command() string {
	if len(c.Argv) == 0 {
		return ""
	}
	return c.Argv[0]
}

// Runner executes a collaborator argv with extra environment variables.
type Runner func(ctx context.Context, argv []string, extraEnv []string) error

// ExecRunner is the default Runner: it runs argv as a child process with
// stdio routed to out / errW.
func ExecRunner(out, errW io.Writer) Runner {
	return func(ctx context.Context, argv []string, extraEnv []string) error {
		if len(argv) == 0 {
			return errors.New("collaborator command is not configured")
		}
		cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
		cmd.Stdout = out
		cmd.Stderr = errW
		cmd.Env = append(os.Environ(), extraEnv...)
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("collaborator %s: %w", argv[0], err)
		}
		return nil
	}
}

// Generate builds the data-generation stage.
//
// It is skipped when featurized data is already cached. The row count
// hint, when set, is forwarded to the collaborator as a --rows flag.
func Generate(collab Collaborator, runner Runner) Stage {
	return &generateStage{collab: collab, runner: runner}
}

type generateStage struct {
	collab Collaborator
	runner Runner
}

func (s *generateStage) Name() string { return "generate" }

func (s *generateStage) Skip(st cache.State) bool { return st.HasFeaturized }

func (s *generateStage) Run(ctx context.Context, cfg run.Config) error {
	argv := append([]string{}, s.collab.Argv...)
	if cfg.Rows != nil {
		argv = append(argv, "--rows", strconv.Itoa(*cfg.Rows))
	}
	return s.runner(ctx, argv, nil)
}

// Preprocess builds the preprocessing stage. Niladic for the
// collaborator; skipped when featurized data is already cached.
func Preprocess(collab Collaborator, runner Runner) Stage {
	return &preprocessStage{collab: collab, runner: runner}
}

type preprocessStage struct {
	collab Collaborator
	runner Runner
}

func (s *preprocessStage) Name() string { return "preprocess" }

func (s *preprocessStage) Skip(st cache.State) bool { return st.HasFeaturized }

func (s *preprocessStage) Run(ctx context.Context, cfg run.Config) error {
	return s.runner(ctx, append([]string{}, s.collab.Argv...), nil)
}

// TrainingParams are the stochastic sub-parameters handed to the training
// collaborator. Every field derives from the one run seed, so two runs
// with the same seed and the same cache state get identical parameters.
type TrainingParams struct {
	Seed           int
	XGBRandomState int
	LRRandomState  int
}

func NewTrainingParams(seed int) TrainingParams {
	return TrainingParams{
		Seed:           seed,
		XGBRandomState: seed,
		LRRandomState:  seed,
	}
}

// Args renders the parameters as collaborator flags.
func (p TrainingParams) Args() []string {
	return []string{
		"--seed", strconv.Itoa(p.Seed),
		"--xgb-random-state", strconv.Itoa(p.XGBRandomState),
		"--lr-random-state", strconv.Itoa(p.LRRandomState),
	}
}

// Train builds the training stage. Never skipped.
//
// The tracker handle is taken here, at construction: the training stage
// sees which tracker is active without any process-wide state.
func Train(collab Collaborator, tr tracker.Tracker, runner Runner) Stage {
	return &trainStage{collab: collab, tracker: tr, runner: runner}
}

type trainStage struct {
	collab  Collaborator
	tracker tracker.Tracker
	runner  Runner
}

func (s *trainStage) Name() string { return "train" }

func (s *trainStage) Skip(cache.State) bool { return false }

func (s *trainStage) Run(ctx context.Context, cfg run.Config) error {
	params := NewTrainingParams(cfg.Seed)

	argv := append([]string{}, s.collab.Argv...)
	argv = append(argv, "--tracker", string(s.tracker.Kind()))
	argv = append(argv, params.Args()...)

	return s.runner(ctx, argv, s.tracker.Environ())
}

// Export builds the artifact-export stage: it snapshots the latest
// artifact set into a timestamped directory. Never skipped.
func Export(latestDir string, clock func() time.Time, logger *log.Logger, progressOut io.Writer) Stage {
	return &exportStage{
		latestDir:   latestDir,
		clock:       clock,
		logger:      logger,
		progressOut: progressOut,
	}
}

type exportStage struct {
	latestDir   string
	clock       func() time.Time
	logger      *log.Logger
	progressOut io.Writer
}

func (s *exportStage) Name() string { return "export" }

func (s *exportStage) Skip(cache.State) bool { return false }

func (s *exportStage) Run(ctx context.Context, cfg run.Config) error {
	snapshot, err := artifacts.Finalize(
		s.latestDir, artifacts.NewStamp(s.clock()),
		artifacts.WithProgressOut(s.progressOut),
	)
	if err != nil {
		return err
	}
	s.logger.Printf("artifacts saved to: %s", s.latestDir)
	s.logger.Printf("artifacts mirrored to: %s", snapshot)
	return nil
}
