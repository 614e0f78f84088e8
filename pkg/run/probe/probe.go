package probe

import (
	"context"
	"os/exec"
	"time"

	"github.com/alzearly/trainctl/pkg/run"
)

// Strategy is the execution strategy of a run, decided once by probing
// the environment. It is never persisted.
type Strategy int

const (
	// Unavailable: neither a container runtime nor the local
	// collaborators are usable. The run fails without executing anything.
	Unavailable Strategy = iota

	// Container: delegate the whole run to the container runtime.
	Container

	// Local: drive the collaborator commands on this host.
	Local
)

func (s Strategy) String() string {
	switch s {
	case Container:
		return "container"
	case Local:
		return "local"
	default:
		return "unavailable"
	}
}

const (
	// DefaultDockerCommand is the container runtime queried by default.
	DefaultDockerCommand = "docker"

	// DefaultTimeout bounds the runtime query, so that a host without
	// any container runtime does not hang the probe.
	DefaultTimeout = 5 * time.Second
)

// Prober decides the Strategy of a run.
type Prober struct {
	docker       string
	timeout      time.Duration
	queryRuntime func(ctx context.Context, docker string) error
	resolve      func(name string) (string, error)
}

type Option func(*Prober) *Prober

// WithDocker overrides the container runtime command name.
func WithDocker(command string) Option {
	return func(p *Prober) *Prober {
		p.docker = command
		return p
	}
}

// WithTimeout overrides the runtime query timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Prober) *Prober {
		p.timeout = d
		return p
	}
}

// WithRuntimeQuery overrides how the container runtime is queried.
func WithRuntimeQuery(query func(ctx context.Context, docker string) error) Option {
	return func(p *Prober) *Prober {
		p.queryRuntime = query
		return p
	}
}

// WithResolver overrides how local collaborator commands are resolved.
func WithResolver(resolve func(name string) (string, error)) Option {
	return func(p *Prober) *Prober {
		p.resolve = resolve
		return p
	}
}

func New(opt ...Option) *Prober {
	p := &Prober{
		docker:       DefaultDockerCommand,
		timeout:      DefaultTimeout,
		queryRuntime: queryDockerVersion,
		resolve:      exec.LookPath,
	}
	for _, o := range opt {
		p = o(p)
	}
	return p
}

// Probe determines the execution strategy for a run.
//
// When cfg.ForceLocal is set, it selects Local without touching the
// container runtime; the Dependency Gate may still fail the run later.
//
// Otherwise, a responding container runtime selects Container. Failing
// that, the run is Local if every required collaborator command resolves,
// and Unavailable if not.
func (p *Prober) Probe(ctx context.Context, cfg run.Config, required []string) Strategy {
	if cfg.ForceLocal {
		return Local
	}

	cctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.queryRuntime(cctx, p.docker); err == nil {
		return Container
	}

	for _, name := range required {
		if _, err := p.resolve(name); err != nil {
			return Unavailable
		}
	}
	return Local
}

func queryDockerVersion(ctx context.Context, docker string) error {
	cmd := exec.CommandContext(ctx, docker, "--version")
	cmd.Stdout = nil
	cmd.Stderr = nil
	return cmd.Run()
}
