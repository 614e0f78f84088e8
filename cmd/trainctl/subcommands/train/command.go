package train

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/alzearly/trainctl/cmd/trainctl/env"
	"github.com/alzearly/trainctl/cmd/trainctl/subcommands/common"
	"github.com/alzearly/trainctl/pkg/run"
	"github.com/alzearly/trainctl/pkg/run/dispatch"
	"github.com/alzearly/trainctl/pkg/run/probe"
	"github.com/alzearly/trainctl/pkg/utils/pointer"
	"github.com/youta-t/flarc"
)

type Flag struct {
	Tracker    string `flag:"tracker" help:"experiment tracker to use: none or mlflow."`
	Rows       int    `flag:"rows" help:"row count hint for data generation. 0 lets the collaborator decide."`
	Seed       int    `flag:"seed" help:"random seed for reproducibility."`
	ForceLocal bool   `flag:"force-local" help:"force local execution even when a container runtime is available."`
}

// Dispatch runs the pipeline along the decided strategy.
type Dispatch func(
	ctx context.Context,
	strategy probe.Strategy,
	cfg run.Config,
	plan dispatch.Plan,
) (int, error)

type Command struct {
	prober   *probe.Prober
	dispatch func(logger *log.Logger) Dispatch
	exit     func(code int)
}

type Option func(*Command) *Command

// WithProber overrides the environment prober.
func WithProber(p *probe.Prober) Option {
	return func(c *Command) *Command {
		c.prober = p
		return c
	}
}

// WithDispatch overrides pipeline dispatching.
func WithDispatch(d func(logger *log.Logger) Dispatch) Option {
	return func(c *Command) *Command {
		c.dispatch = d
		return c
	}
}

// WithExit overrides process termination (default: os.Exit).
func WithExit(exit func(code int)) Option {
	return func(c *Command) *Command {
		c.exit = exit
		return c
	}
}

func New(opt ...Option) (flarc.Command, error) {
	cmd := &Command{
		prober: probe.New(),
		dispatch: func(logger *log.Logger) Dispatch {
			return dispatch.New(logger).Dispatch
		},
		exit: os.Exit,
	}
	for _, o := range opt {
		cmd = o(cmd)
	}

	return flarc.NewCommand(
		"run the whole training pipeline: generate, preprocess, train, export",
		Flag{
			Tracker: string(run.TrackerNone),
			Seed:    run.DefaultSeed,
		},
		flarc.Args{},
		common.NewTask(cmd.Task()),
		flarc.WithDescription(`
Run the training pipeline end to end.

When a container runtime responds, the run is delegated to the training
image with equivalent flags and its exit code is reported unchanged.
Otherwise (or with --force-local) the collaborator commands run on this
host: cached featurized data skips the generate and preprocess stages,
training gets the seed in all of its stochastic sub-parameters, and the
latest artifacts are mirrored into a timestamped snapshot.

The run succeeds only when the trained model file is present at the
latest artifacts directory afterwards.

To run with defaults (no tracker, seed 42):

	{{ .Command }}

To track the run with MLflow and generate 500 rows:

	{{ .Command }} --tracker mlflow --rows 500
`),
	)
}

func (cmd *Command) Task() common.Task[Flag] {
	return func(
		ctx context.Context,
		logger *log.Logger,
		trainEnv env.TrainEnv,
		cl flarc.Commandline[Flag],
		params []any,
	) error {
		flags := cl.Flags()

		kind, err := run.ParseTrackerKind(flags.Tracker)
		if err != nil {
			return errors.Join(flarc.ErrUsage, err)
		}

		cfg := run.Config{
			Tracker:    kind,
			Seed:       flags.Seed,
			ForceLocal: flags.ForceLocal,
		}
		if 0 < flags.Rows {
			cfg.Rows = pointer.Ref(flags.Rows)
		}

		plan := trainEnv.Plan()
		strategy := cmd.prober.Probe(ctx, cfg, plan.Required())
		logger.Printf("execution strategy: %s", strategy)

		code, err := cmd.dispatch(logger)(ctx, strategy, cfg, plan)
		if err != nil {
			return err
		}
		if code != 0 {
			// a delegated run's exit code is reported as ours, unchanged
			cmd.exit(code)
		}
		return nil
	}
}
