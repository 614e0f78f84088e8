package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/alzearly/trainctl/pkg/run"
)

// Gate verifies that the local collaborator commands are all resolvable
// before the pipeline commits to local execution.
type Gate struct {
	resolve func(name string) (string, error)
}

type Option func(*Gate) *Gate

// WithResolver overrides command resolution (default: exec.LookPath).
func WithResolver(resolve func(name string) (string, error)) Option {
	return func(g *Gate) *Gate {
		g.resolve = resolve
		return g
	}
}

func New(opt ...Option) *Gate {
	g := &Gate{resolve: exec.LookPath}
	for _, o := range opt {
		g = o(g)
	}
	return g
}

// Check resolves every name in required.
//
// It collects all names that fail to resolve, not just the first, so the
// operator sees the complete remediation list in one pass. It is a pure
// query: nothing is mutated.
func (g *Gate) Check(required []string) error {
	missing := []string{}
	for _, name := range required {
		if _, err := g.resolve(name); err != nil {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	return fmt.Errorf(
		"%w: %s -- install the pipeline collaborators and retry",
		run.ErrMissingDependencies, strings.Join(missing, ", "),
	)
}
