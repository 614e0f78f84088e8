package common

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path"

	"github.com/alzearly/trainctl/cmd/trainctl/env"
	"github.com/youta-t/flarc"
)

// CommonFlags are accepted by every subcommand of trainctl.
type CommonFlags struct {
	Env string `flag:"env" help:"path to the trainenv file."`
}

// DefaultCommonFlags locates the trainenv file relative to from.
func DefaultCommonFlags(from string) CommonFlags {
	return CommonFlags{Env: path.Join(from, "trainenv")}
}

// Task is a subcommand body receiving the resolved environment and a
// logger bound to the command's stderr.
type Task[T any] func(
	ctx context.Context,
	logger *log.Logger,
	trainEnv env.TrainEnv,
	cl flarc.Commandline[T],
	params []any,
) error

// NewTask adapts a Task into a flarc.Task: it digs the CommonFlags out
// of the positional params, prepares the logger, and loads the trainenv.
func NewTask[T any](task Task[T]) flarc.Task[T] {
	return func(ctx context.Context, cl flarc.Commandline[T], pos []any) error {
		var commonFlag CommonFlags
		found := false
		newpos := make([]any, 0, len(pos))
		for _, p := range pos {
			switch v := p.(type) {
			case CommonFlags:
				found = true
				commonFlag = v
			default:
				newpos = append(newpos, p)
			}
		}
		if !found {
			return errors.New("programming error: common flags not found")
		}

		logger := log.New(cl.Stderr(), "", log.LstdFlags)
		logger.SetPrefix(fmt.Sprintf("[%s] ", cl.Fullname()))

		trainEnv, err := env.Load(commonFlag.Env)
		if err != nil {
			return fmt.Errorf("%w: failed to load trainenv (%s)", err, commonFlag.Env)
		}

		return task(ctx, logger, *trainEnv, cl, newpos)
	}
}
