package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/alzearly/trainctl/pkg/artifacts"
	"github.com/alzearly/trainctl/pkg/run"
	"github.com/alzearly/trainctl/pkg/run/cache"
	"github.com/alzearly/trainctl/pkg/run/deps"
	"github.com/alzearly/trainctl/pkg/run/pipeline"
	"github.com/alzearly/trainctl/pkg/run/probe"
	"github.com/alzearly/trainctl/pkg/run/tracker"

	"github.com/google/go-containerregistry/pkg/name"
)

// Plan describes the fixtures of a pipeline run: where data and
// artifacts live, which image serves the container path, and the
// collaborator commands of the local path.
//
// Paths are explicit typed values, not well-known locations, so tests
// can redirect them.
type Plan struct {
	// Image is the container image the containerized path delegates to.
	Image string

	// ContainerArgv is the command run inside the container. The run
	// configuration flags are appended to it.
	ContainerArgv []string

	// FeaturizedDir holds the preprocessing collaborator's output; its
	// non-emptiness is the cache signal.
	FeaturizedDir string

	// ArtifactsDir is the root of the artifact layout:
	// <ArtifactsDir>/latest and <ArtifactsDir>/<stamp>.
	ArtifactsDir string

	Generate   pipeline.Collaborator
	Preprocess pipeline.Collaborator
	Train      pipeline.Collaborator
}

// LatestDir is the canonical mutable artifact location, overwritten by
// each run.
func (p Plan) LatestDir() string {
	return filepath.Join(p.ArtifactsDir, "latest")
}

// Required lists the commands the Dependency Gate must resolve before
// the local path may run.
func (p Plan) Required() []string {
	required := []string{}
	seen := map[string]struct{}{}
	for _, c := range []pipeline.Collaborator{p.Generate, p.Preprocess, p.Train} {
		command := c.Command()
		if command == "" {
			continue
		}
		if _, ok := seen[command]; ok {
			continue
		}
		seen[command] = struct{}{}
		required = append(required, command)
	}
	return required
}

// Dispatcher routes a run to its execution path.
//
// It owns the single decision point translating one run configuration
// into two structurally different invocations; both paths must be
// semantically equivalent for identical configurations.
type Dispatcher struct {
	logger      *log.Logger
	docker      string
	workdir     string
	stdin       io.Reader
	stdout      io.Writer
	stderr      io.Writer
	clock       func() time.Time
	grace       time.Duration
	gate        *deps.Gate
	runner      pipeline.Runner
	runDelegate func(ctx context.Context, argv []string) (int, error)
}

type Option func(*Dispatcher) *Dispatcher

// WithDocker overrides the container runtime command name.
func WithDocker(command string) Option {
	return func(d *Dispatcher) *Dispatcher {
		d.docker = command
		return d
	}
}

// WithWorkdir overrides the directory mounted into the container.
func WithWorkdir(dir string) Option {
	return func(d *Dispatcher) *Dispatcher {
		d.workdir = dir
		return d
	}
}

// WithStdio reroutes the stdio handed to collaborators and containers.
func WithStdio(in io.Reader, out, errW io.Writer) Option {
	return func(d *Dispatcher) *Dispatcher {
		d.stdin, d.stdout, d.stderr = in, out, errW
		return d
	}
}

// WithClock overrides the snapshot timestamp source.
func WithClock(clock func() time.Time) Option {
	return func(d *Dispatcher) *Dispatcher {
		d.clock = clock
		return d
	}
}

// WithGrace overrides the artifact verification grace period.
func WithGrace(grace time.Duration) Option {
	return func(d *Dispatcher) *Dispatcher {
		d.grace = grace
		return d
	}
}

// WithGate overrides the Dependency Gate.
func WithGate(gate *deps.Gate) Option {
	return func(d *Dispatcher) *Dispatcher {
		d.gate = gate
		return d
	}
}

// WithRunner overrides how local-path collaborators are executed.
func WithRunner(runner pipeline.Runner) Option {
	return func(d *Dispatcher) *Dispatcher {
		d.runner = runner
		return d
	}
}

// WithDelegate overrides how the container-path invocation is executed.
func WithDelegate(delegate func(ctx context.Context, argv []string) (int, error)) Option {
	return func(d *Dispatcher) *Dispatcher {
		d.runDelegate = delegate
		return d
	}
}

func New(logger *log.Logger, opt ...Option) *Dispatcher {
	if logger == nil {
		logger = log.New(io.Discard, "", log.LstdFlags)
	}
	d := &Dispatcher{
		logger:  logger,
		docker:  probe.DefaultDockerCommand,
		stdin:   os.Stdin,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
		clock:   time.Now,
		grace:   artifacts.DefaultGrace,
		gate:    deps.New(),
	}
	if wd, err := os.Getwd(); err == nil {
		d.workdir = wd
	}
	for _, o := range opt {
		d = o(d)
	}
	if d.runner == nil {
		d.runner = pipeline.ExecRunner(d.stdout, d.stderr)
	}
	if d.runDelegate == nil {
		d.runDelegate = execDelegate(d.stdin, d.stdout, d.stderr)
	}
	return d
}

// Dispatch executes the run along strategy and returns the process exit
// code for it.
//
// Unavailable fails immediately: no path is attempted, no stage invoked.
func (d *Dispatcher) Dispatch(ctx context.Context, strategy probe.Strategy, cfg run.Config, plan Plan) (int, error) {
	switch strategy {
	case probe.Container:
		return d.delegateToContainer(ctx, cfg, plan)
	case probe.Local:
		return d.runLocally(ctx, cfg, plan)
	default:
		return 1, run.ErrEnvironmentUnavailable
	}
}

// delegateToContainer hands the whole run to the container runtime,
// translating the run configuration into the equivalent flags.
//
// The container's exit code is returned verbatim; its output is not
// inspected or reinterpreted. The invocation is not bounded by any
// internal timeout -- interrupting it is the operator's call.
func (d *Dispatcher) delegateToContainer(ctx context.Context, cfg run.Config, plan Plan) (int, error) {
	ref, err := name.ParseReference(plan.Image)
	if err != nil {
		return 1, fmt.Errorf("invalid training image %s: %w", plan.Image, err)
	}

	argv := []string{
		d.docker, "run", "--rm",
		"-v", d.workdir + ":/app",
		"-w", "/app",
		ref.Name(),
	}
	argv = append(argv, plan.ContainerArgv...)
	argv = append(argv, "--tracker", string(cfg.Tracker))
	if cfg.Rows != nil {
		argv = append(argv, "--rows", strconv.Itoa(*cfg.Rows))
	}
	argv = append(argv, "--seed", strconv.Itoa(cfg.Seed))

	d.logger.Printf("delegating to container runtime: %s", strings.Join(argv, " "))
	return d.runDelegate(ctx, argv)
}

func execDelegate(in io.Reader, out, errW io.Writer) func(ctx context.Context, argv []string) (int, error) {
	return func(ctx context.Context, argv []string) (int, error) {
		cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
		cmd.Stdin = in
		cmd.Stdout = out
		cmd.Stderr = errW
		err := cmd.Run()
		if err == nil {
			return 0, nil
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return 1, err
	}
}

// runLocally drives the pipeline with collaborator processes on this
// host: Dependency Gate, Cache Inspector, Stage Sequencer, then artifact
// verification.
func (d *Dispatcher) runLocally(ctx context.Context, cfg run.Config, plan Plan) (int, error) {
	// tracker setup comes first: an unknown tracker must fail the run
	// before any stage is invoked.
	tr, err := tracker.Setup(cfg.Tracker)
	if err != nil {
		return 1, err
	}

	if err := d.gate.Check(plan.Required()); err != nil {
		return 1, err
	}

	st := cache.Inspect(plan.FeaturizedDir)
	if st.HasFeaturized {
		d.logger.Printf("cache hit: reusing featurized data at %s", plan.FeaturizedDir)
	} else {
		d.logger.Printf("no cached data at %s: generating anew", plan.FeaturizedDir)
	}

	latest := plan.LatestDir()
	if err := os.MkdirAll(latest, 0755); err != nil {
		return 1, err
	}

	stages := []pipeline.Stage{
		pipeline.Generate(plan.Generate, d.runner),
		pipeline.Preprocess(plan.Preprocess, d.runner),
		pipeline.Train(plan.Train, tr, d.runner),
		pipeline.Export(latest, d.clock, d.logger, d.stderr),
	}

	results := pipeline.New(d.logger).Run(ctx, cfg, st, stages)
	if err := pipeline.Failed(results); err != nil {
		return 1, err
	}

	if err := artifacts.VerifyPrimary(ctx, latest, d.grace); err != nil {
		return 1, err
	}

	d.logger.Printf("training completed: %s", filepath.Join(latest, artifacts.Primary))
	return 0, nil
}
