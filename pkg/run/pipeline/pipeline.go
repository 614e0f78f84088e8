package pipeline

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/alzearly/trainctl/pkg/run"
	"github.com/alzearly/trainctl/pkg/run/cache"
)

// Stage is one discrete step of the pipeline.
type Stage interface {
	Name() string

	// Skip decides from the cache state whether this stage may be
	// passed over without running.
	Skip(st cache.State) bool

	// Run executes the stage. Stages communicate only via the
	// filesystem: each stage reads what the previous one wrote to disk.
	Run(ctx context.Context, cfg run.Config) error
}

// StageResult is the recorded outcome of one declared stage.
type StageResult struct {
	Name      string
	Skipped   bool
	Succeeded bool
	Err       error
}

// StageError wraps a failure with the name of the stage that raised it.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %s", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Sequencer runs pipeline stages strictly in declaration order.
type Sequencer struct {
	logger *log.Logger
}

func New(logger *log.Logger) *Sequencer {
	if logger == nil {
		logger = log.New(io.Discard, "", log.LstdFlags)
	}
	return &Sequencer{logger: logger}
}

// Run executes stages in order and returns one StageResult per stage
// reached, in execution order.
//
// A stage whose Skip predicate holds is recorded as skipped and not
// executed. When a non-skipped stage fails, no further stage runs; the
// failure is recorded in the returned sequence, and that sequence is the
// sole error-reporting surface. Nothing is dropped and nothing is retried.
func (s *Sequencer) Run(ctx context.Context, cfg run.Config, st cache.State, stages []Stage) []StageResult {
	results := make([]StageResult, 0, len(stages))
	for _, stage := range stages {
		if stage.Skip(st) {
			s.logger.Printf("%s: skipped (cached data found)", stage.Name())
			results = append(results, StageResult{Name: stage.Name(), Skipped: true})
			continue
		}

		s.logger.Printf("%s: running...", stage.Name())
		if err := stage.Run(ctx, cfg); err != nil {
			results = append(results, StageResult{
				Name: stage.Name(),
				Err:  &StageError{Stage: stage.Name(), Err: err},
			})
			return results
		}
		s.logger.Printf("%s: done", stage.Name())
		results = append(results, StageResult{Name: stage.Name(), Succeeded: true})
	}
	return results
}

// Failed extracts the failure from a result sequence, or nil when every
// reached stage either succeeded or was skipped.
func Failed(results []StageResult) error {
	for _, r := range results {
		if r.Err != nil {
			return r.Err
		}
	}
	return nil
}
