// Package config loads simulation settings from INI files.
//
// A settings file is grouped into sections:
//
//	[general]                name
//	[randomness]             random_seed, seed
//	[grid]                   width, height
//	[simulation_control]     steps_per_generation, max_generations, selection_condition
//	[entities_and_brain]     max_entity_count, brain_size, max_internal_neurons,
//	                         fresh_minds, activation, sensors, actuators
//	[mutation_and_evolution] gene_mutation_probability
//	[runtime]                workers
//	[storage]                store, db_path, artifacts_dir
//
// Missing keys keep the values of Default.
package config

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/ini.v1"

	"lifesim/internal/nn"
	"lifesim/internal/scape"
	"lifesim/internal/storage"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	General    General
	Randomness Randomness
	Grid       Grid
	Control    SimulationControl
	Entities   EntitiesAndBrain
	Mutation   MutationAndEvolution
	Runtime    Runtime
	Storage    Storage
}

type General struct {
	Name string `ini:"name"`
}

type Randomness struct {
	RandomSeed bool  `ini:"random_seed"`
	Seed       int64 `ini:"seed"`
}

type Grid struct {
	Width  int `ini:"width"`
	Height int `ini:"height"`
}

type SimulationControl struct {
	StepsPerGeneration int    `ini:"steps_per_generation"`
	MaxGenerations     int    `ini:"max_generations"`
	SelectionCondition string `ini:"selection_condition"`
}

type EntitiesAndBrain struct {
	MaxEntityCount     int      `ini:"max_entity_count"`
	BrainSize          int      `ini:"brain_size"`
	MaxInternalNeurons int      `ini:"max_internal_neurons"`
	FreshMinds         int      `ini:"fresh_minds"`
	Activation         string   `ini:"activation"`
	Sensors            []string `ini:"sensors" delim:" "`
	Actuators          []string `ini:"actuators" delim:" "`
}

type MutationAndEvolution struct {
	GeneMutationProbability float64 `ini:"gene_mutation_probability"`
}

type Runtime struct {
	Workers int `ini:"workers"`
}

type Storage struct {
	Store        string `ini:"store"`
	DBPath       string `ini:"db_path"`
	ArtifactsDir string `ini:"artifacts_dir"`
}

const (
	sectionGeneral    = "general"
	sectionRandomness = "randomness"
	sectionGrid       = "grid"
	sectionControl    = "simulation_control"
	sectionEntities   = "entities_and_brain"
	sectionMutation   = "mutation_and_evolution"
	sectionRuntime    = "runtime"
	sectionStorage    = "storage"
)

func Default() Config {
	return Config{
		Grid: Grid{Width: 128, Height: 128},
		Control: SimulationControl{
			StepsPerGeneration: 256,
			MaxGenerations:     10_000_000,
			SelectionCondition: "right_edge",
		},
		Entities: EntitiesAndBrain{
			MaxEntityCount:     1024,
			BrainSize:          1,
			MaxInternalNeurons: 0,
			FreshMinds:         1,
			Activation:         nn.DefaultActivation,
		},
		Mutation: MutationAndEvolution{GeneMutationProbability: 1.0 / 10_000},
		Runtime:  Runtime{Workers: 4},
		Storage: Storage{
			Store:        storage.DefaultStoreKind,
			DBPath:       "lifesim.db",
			ArtifactsDir: "simulations",
		},
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (Config, error) {
	file, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment:         true,
		UnescapeValueCommentSymbols: true,
	}, path)
	if err != nil {
		return Config{}, fmt.Errorf("load config file %q: %w", path, err)
	}
	cfg, err := fromFile(file)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse is Load for in-memory INI data.
func Parse(data []byte) (Config, error) {
	file, err := ini.Load(data)
	if err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg, err := fromFile(file)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func fromFile(file *ini.File) (Config, error) {
	cfg := Default()
	targets := []struct {
		name string
		dst  any
	}{
		{sectionGeneral, &cfg.General},
		{sectionRandomness, &cfg.Randomness},
		{sectionGrid, &cfg.Grid},
		{sectionControl, &cfg.Control},
		{sectionEntities, &cfg.Entities},
		{sectionMutation, &cfg.Mutation},
		{sectionRuntime, &cfg.Runtime},
		{sectionStorage, &cfg.Storage},
	}
	for _, target := range targets {
		if !file.HasSection(target.name) {
			continue
		}
		if err := file.Section(target.name).StrictMapTo(target.dst); err != nil {
			return Config{}, fmt.Errorf("map [%s] section: %w", target.name, err)
		}
	}
	cfg.Control.SelectionCondition = strings.TrimSpace(cfg.Control.SelectionCondition)
	cfg.Entities.Activation = strings.TrimSpace(cfg.Entities.Activation)
	cfg.Entities.Sensors = cleanList(cfg.Entities.Sensors)
	cfg.Entities.Actuators = cleanList(cfg.Entities.Actuators)
	return cfg, nil
}

// Save writes cfg as an INI file readable by Load.
func Save(path string, cfg Config) error {
	file := ini.Empty()
	sources := []struct {
		name string
		src  any
	}{
		{sectionGeneral, &cfg.General},
		{sectionRandomness, &cfg.Randomness},
		{sectionGrid, &cfg.Grid},
		{sectionControl, &cfg.Control},
		{sectionEntities, &cfg.Entities},
		{sectionMutation, &cfg.Mutation},
		{sectionRuntime, &cfg.Runtime},
		{sectionStorage, &cfg.Storage},
	}
	for _, source := range sources {
		section, err := file.NewSection(source.name)
		if err != nil {
			return err
		}
		if err := section.ReflectFrom(source.src); err != nil {
			return fmt.Errorf("reflect [%s] section: %w", source.name, err)
		}
	}
	return file.SaveTo(path)
}

// Validate rejects settings no simulation can run with.
func (c Config) Validate() error {
	if c.Grid.Width <= 0 || c.Grid.Height <= 0 {
		return fmt.Errorf("%w: grid must be positive, got %dx%d", ErrInvalidConfig, c.Grid.Width, c.Grid.Height)
	}
	if c.Control.StepsPerGeneration <= 0 {
		return fmt.Errorf("%w: steps_per_generation must be > 0", ErrInvalidConfig)
	}
	if c.Control.MaxGenerations <= 0 {
		return fmt.Errorf("%w: max_generations must be > 0", ErrInvalidConfig)
	}
	if c.Entities.MaxEntityCount < 2 {
		return fmt.Errorf("%w: max_entity_count must be >= 2", ErrInvalidConfig)
	}
	if c.Entities.MaxEntityCount > c.Grid.Width*c.Grid.Height {
		return fmt.Errorf("%w: max_entity_count %d exceeds %d grid cells", ErrInvalidConfig, c.Entities.MaxEntityCount, c.Grid.Width*c.Grid.Height)
	}
	if c.Entities.BrainSize <= 0 {
		return fmt.Errorf("%w: brain_size must be > 0", ErrInvalidConfig)
	}
	if c.Entities.MaxInternalNeurons < 0 {
		return fmt.Errorf("%w: max_internal_neurons must be >= 0", ErrInvalidConfig)
	}
	if c.Entities.FreshMinds < 0 || c.Entities.FreshMinds > c.Entities.MaxEntityCount {
		return fmt.Errorf("%w: fresh_minds must be within [0,%d]", ErrInvalidConfig, c.Entities.MaxEntityCount)
	}
	if p := c.Mutation.GeneMutationProbability; p < 0 || p > 1 {
		return fmt.Errorf("%w: gene_mutation_probability must be within [0,1], got %g", ErrInvalidConfig, p)
	}
	if c.Runtime.Workers < 0 {
		return fmt.Errorf("%w: workers must be >= 0", ErrInvalidConfig)
	}
	if c.Control.SelectionCondition != "" {
		if _, err := scape.LookupCondition(c.Control.SelectionCondition); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	if _, err := nn.GetActivation(c.Entities.Activation); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := nn.CatalogFromNames(c.Entities.Sensors, c.Entities.Actuators); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	switch c.Storage.Store {
	case storage.KindMemory, storage.KindSQLite:
	default:
		return fmt.Errorf("%w: unsupported store %q", ErrInvalidConfig, c.Storage.Store)
	}
	return nil
}

func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
