package env

import (
	"os"

	"github.com/alzearly/trainctl/pkg/run/dispatch"
	"github.com/alzearly/trainctl/pkg/run/pipeline"
	"gopkg.in/yaml.v3"
)

// TrainEnv is the pipeline environment file ("trainenv"): the fixtures a
// run works against, as opposed to the per-run flags.
type TrainEnv struct {
	// Image is the training image the container path delegates to.
	Image string `yaml:"image"`

	// ContainerCommand is the pipeline entrypoint inside the image.
	ContainerCommand []string `yaml:"containerCommand"`

	// FeaturizedData is the directory whose non-emptiness marks a cache
	// hit.
	FeaturizedData string `yaml:"featurizedData"`

	// Artifacts is the root of the artifact layout.
	Artifacts string `yaml:"artifacts"`

	// Collaborator commands of the local path.
	Generate   []string `yaml:"generate"`
	Preprocess []string `yaml:"preprocess"`
	Train      []string `yaml:"train"`
}

func Default() *TrainEnv {
	return &TrainEnv{
		Image:            "alzearly-train:latest",
		ContainerCommand: []string{"python", "run_training.py"},
		FeaturizedData:   "data/featurized",
		Artifacts:        "artifacts",
		Generate:         []string{"python", "-m", "src.data_gen"},
		Preprocess:       []string{"python", "-m", "src.preprocess"},
		Train:            []string{"python", "-m", "src.train"},
	}
}

// Load reads the trainenv file at path.
//
// A missing file is not an error: the defaults apply. Fields absent from
// the file keep their default values.
func Load(path string) (*TrainEnv, error) {
	env := Default()

	content, err := os.ReadFile(path)
	if err != nil {
		return env, nil
	}

	if err := yaml.Unmarshal(content, env); err != nil {
		return nil, err
	}

	return env, nil
}

// Plan renders this environment as the dispatcher's pipeline plan.
func (e *TrainEnv) Plan() dispatch.Plan {
	return dispatch.Plan{
		Image:         e.Image,
		ContainerArgv: e.ContainerCommand,
		FeaturizedDir: e.FeaturizedData,
		ArtifactsDir:  e.Artifacts,
		Generate:      pipeline.Collaborator{Argv: e.Generate},
		Preprocess:    pipeline.Collaborator{Argv: e.Preprocess},
		Train:         pipeline.Collaborator{Argv: e.Train},
	}
}
