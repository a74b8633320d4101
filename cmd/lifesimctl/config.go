package main

import (
	"flag"
	"strings"

	"lifesim/internal/config"
)

func loadRunConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// runFlags mirrors the settings file. Only flags given on the command line
// override the loaded settings.
type runFlags struct {
	name            *string
	seed            *int64
	randomSeed      *bool
	width           *int
	height          *int
	steps           *int
	generations     *int
	condition       *string
	population      *int
	brainSize       *int
	internalNeurons *int
	freshMinds      *int
	activation      *string
	sensors         *string
	actuators       *string
	mutation        *float64
	workers         *int
	store           *string
	dbPath          *string
	artifactsDir    *string
}

func bindRunFlags(fs *flag.FlagSet, d config.Config) *runFlags {
	return &runFlags{
		name:            fs.String("name", d.General.Name, "simulation name (default SIMULATION_<seed>)"),
		seed:            fs.Int64("seed", d.Randomness.Seed, "rng seed"),
		randomSeed:      fs.Bool("random-seed", d.Randomness.RandomSeed, "derive the seed from the clock"),
		width:           fs.Int("width", d.Grid.Width, "grid width"),
		height:          fs.Int("height", d.Grid.Height, "grid height"),
		steps:           fs.Int("steps", d.Control.StepsPerGeneration, "steps per generation"),
		generations:     fs.Int("gens", d.Control.MaxGenerations, "maximum generation count"),
		condition:       fs.String("condition", d.Control.SelectionCondition, "selection condition (see conditions command)"),
		population:      fs.Int("pop", d.Entities.MaxEntityCount, "population size"),
		brainSize:       fs.Int("brain-size", d.Entities.BrainSize, "genes per genome"),
		internalNeurons: fs.Int("internal", d.Entities.MaxInternalNeurons, "internal neuron count"),
		freshMinds:      fs.Int("fresh", d.Entities.FreshMinds, "random genomes injected per generation"),
		activation:      fs.String("activation", d.Entities.Activation, "neuron activation function"),
		sensors:         fs.String("sensors", strings.Join(d.Entities.Sensors, ","), "comma-separated sensor names (empty for the default catalog)"),
		actuators:       fs.String("actuators", strings.Join(d.Entities.Actuators, ","), "comma-separated actuator names (empty for the default catalog)"),
		mutation:        fs.Float64("mutation", d.Mutation.GeneMutationProbability, "per-gene mutation probability"),
		workers:         fs.Int("workers", d.Runtime.Workers, "brain compile worker count"),
		store:           fs.String("store", d.Storage.Store, "store backend: memory|sqlite"),
		dbPath:          fs.String("db-path", d.Storage.DBPath, "sqlite database path"),
		artifactsDir:    fs.String("artifacts-dir", d.Storage.ArtifactsDir, "run artifacts directory"),
	}
}

func (f *runFlags) apply(cfg *config.Config, set map[string]bool) {
	if set["name"] {
		cfg.General.Name = *f.name
	}
	if set["seed"] {
		cfg.Randomness.Seed = *f.seed
	}
	if set["random-seed"] {
		cfg.Randomness.RandomSeed = *f.randomSeed
	}
	if set["width"] {
		cfg.Grid.Width = *f.width
	}
	if set["height"] {
		cfg.Grid.Height = *f.height
	}
	if set["steps"] {
		cfg.Control.StepsPerGeneration = *f.steps
	}
	if set["gens"] {
		cfg.Control.MaxGenerations = *f.generations
	}
	if set["condition"] {
		cfg.Control.SelectionCondition = *f.condition
	}
	if set["pop"] {
		cfg.Entities.MaxEntityCount = *f.population
	}
	if set["brain-size"] {
		cfg.Entities.BrainSize = *f.brainSize
	}
	if set["internal"] {
		cfg.Entities.MaxInternalNeurons = *f.internalNeurons
	}
	if set["fresh"] {
		cfg.Entities.FreshMinds = *f.freshMinds
	}
	if set["activation"] {
		cfg.Entities.Activation = *f.activation
	}
	if set["sensors"] {
		cfg.Entities.Sensors = splitNames(*f.sensors)
	}
	if set["actuators"] {
		cfg.Entities.Actuators = splitNames(*f.actuators)
	}
	if set["mutation"] {
		cfg.Mutation.GeneMutationProbability = *f.mutation
	}
	if set["workers"] {
		cfg.Runtime.Workers = *f.workers
	}
	if set["store"] {
		cfg.Storage.Store = *f.store
	}
	if set["db-path"] {
		cfg.Storage.DBPath = *f.dbPath
	}
	if set["artifacts-dir"] {
		cfg.Storage.ArtifactsDir = *f.artifactsDir
	}
}

type storageFlags struct {
	store        *string
	dbPath       *string
	artifactsDir *string
}

func bindStorageFlags(fs *flag.FlagSet) *storageFlags {
	d := config.Default().Storage
	return &storageFlags{
		store:        fs.String("store", d.Store, "store backend: memory|sqlite"),
		dbPath:       fs.String("db-path", d.DBPath, "sqlite database path"),
		artifactsDir: fs.String("artifacts-dir", d.ArtifactsDir, "run artifacts directory"),
	}
}

func (f *storageFlags) settings() config.Storage {
	return config.Storage{Store: *f.store, DBPath: *f.dbPath, ArtifactsDir: *f.artifactsDir}
}

func splitNames(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' '
	})
}
