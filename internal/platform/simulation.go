package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"lifesim/internal/agent"
	"lifesim/internal/config"
	"lifesim/internal/evo"
	"lifesim/internal/genotype"
	"lifesim/internal/model"
	"lifesim/internal/nn"
	"lifesim/internal/scape"
	"lifesim/internal/stats"
	"lifesim/internal/storage"
)

// ErrExtinct ends a run whose survivors cannot form a single parent pair.
var ErrExtinct = errors.New("population went extinct")

const (
	StopReasonMaxGenerations = "max_generations"
	StopReasonExtinct        = "extinct"

	sampleBrainCount = 3
)

var genomeNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("lifesim/genome"))

// runIndexMu serializes run index updates of simulations sharing a directory.
var runIndexMu sync.Mutex

type SimulationConfig struct {
	RunID               string
	Name                string
	Seed                int64
	GridWidth           int
	GridHeight          int
	StepsPerGeneration  int
	MaxGenerations      int
	SelectionCondition  string
	PopulationSize      int
	BrainSize           int
	InternalNeurons     int
	FreshMinds          int
	MutationProbability float64
	Activation          string
	Sensors             []string
	Actuators           []string
	Workers             int

	// Initial seeds the first generation. Missing members are random.
	Initial []genotype.Genome

	Store        storage.Store
	ArtifactsDir string
	Logger       *slog.Logger
}

// SimulationConfigFrom maps loaded settings onto a simulation config. A
// random_seed setting draws a fresh seed from the clock.
func SimulationConfigFrom(c config.Config) SimulationConfig {
	seed := c.Randomness.Seed
	if c.Randomness.RandomSeed {
		seed = time.Now().UnixNano() & 0xFFFFFFFF
	}
	return SimulationConfig{
		Name:                c.General.Name,
		Seed:                seed,
		GridWidth:           c.Grid.Width,
		GridHeight:          c.Grid.Height,
		StepsPerGeneration:  c.Control.StepsPerGeneration,
		MaxGenerations:      c.Control.MaxGenerations,
		SelectionCondition:  c.Control.SelectionCondition,
		PopulationSize:      c.Entities.MaxEntityCount,
		BrainSize:           c.Entities.BrainSize,
		InternalNeurons:     c.Entities.MaxInternalNeurons,
		FreshMinds:          c.Entities.FreshMinds,
		MutationProbability: c.Mutation.GeneMutationProbability,
		Activation:          c.Entities.Activation,
		Sensors:             append([]string(nil), c.Entities.Sensors...),
		Actuators:           append([]string(nil), c.Entities.Actuators...),
		Workers:             c.Runtime.Workers,
		ArtifactsDir:        c.Storage.ArtifactsDir,
	}
}

type RunResult struct {
	RunID             string
	Name              string
	Seed              int64
	Generations       int
	StopReason        string
	FinalSurvivalRate float64
	BestSurvivalRate  float64
	Diagnostics       []model.GenerationDiagnostics
	FinalGenomes      []model.GenomeRecord
	ArtifactsDir      string
}

// Simulation evolves one population in one world. It is not safe for
// concurrent use; run independent simulations side by side instead.
type Simulation struct {
	cfg      SimulationConfig
	logger   *slog.Logger
	rng      *rand.Rand
	world    *scape.World
	colony   *agent.Colony
	catalog  nn.Catalog
	buildCfg nn.BuildConfig

	generation int
	genomeIDs  []string
	survivors  []model.GenomeRecord
	history    []model.GenerationDiagnostics
	lineage    []model.LineageRecord
	runDir     string
	populated  bool
	lastTick   time.Time
}

func NewSimulation(cfg SimulationConfig) (*Simulation, error) {
	if cfg.PopulationSize < 2 {
		return nil, fmt.Errorf("population size must be >= 2")
	}
	if cfg.BrainSize <= 0 {
		return nil, fmt.Errorf("%w: brain size=%d", genotype.ErrGenomeSizeRequired, cfg.BrainSize)
	}
	if cfg.StepsPerGeneration <= 0 {
		return nil, fmt.Errorf("steps per generation must be > 0")
	}
	if cfg.MaxGenerations <= 0 {
		return nil, fmt.Errorf("max generations must be > 0")
	}
	if cfg.InternalNeurons < 0 {
		return nil, fmt.Errorf("internal neuron count must be >= 0")
	}
	if len(cfg.Initial) > cfg.PopulationSize {
		return nil, fmt.Errorf("initial population mismatch: got=%d max=%d", len(cfg.Initial), cfg.PopulationSize)
	}
	for i, genome := range cfg.Initial {
		if genome.Len() == 0 {
			return nil, fmt.Errorf("initial genome %d: %w", i, genotype.ErrEmptyGenome)
		}
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	if cfg.Name == "" {
		cfg.Name = fmt.Sprintf("SIMULATION_%d", cfg.Seed)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Activation == "" {
		cfg.Activation = nn.DefaultActivation
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var cond scape.Condition
	if cfg.SelectionCondition != "" {
		c, err := scape.LookupCondition(cfg.SelectionCondition)
		if err != nil {
			return nil, err
		}
		cond = c
	}
	world, err := scape.NewWorld(cfg.GridWidth, cfg.GridHeight, cfg.StepsPerGeneration, cfg.PopulationSize, cond)
	if err != nil {
		return nil, err
	}
	catalog, err := nn.CatalogFromNames(cfg.Sensors, cfg.Actuators)
	if err != nil {
		return nil, err
	}
	if _, err := nn.GetActivation(cfg.Activation); err != nil {
		return nil, err
	}

	return &Simulation{
		cfg:      cfg,
		logger:   logger.With("run_id", cfg.RunID, "simulation", cfg.Name),
		rng:      rand.New(rand.NewSource(cfg.Seed)),
		world:    world,
		colony:   agent.NewColony(world),
		catalog:  catalog,
		buildCfg: nn.BuildConfig{InternalCount: cfg.InternalNeurons, Activation: cfg.Activation},
	}, nil
}

func (s *Simulation) RunID() string {
	return s.cfg.RunID
}

func (s *Simulation) Generation() int {
	return s.generation
}

func (s *Simulation) World() *scape.World {
	return s.world
}

func (s *Simulation) Colony() *agent.Colony {
	return s.colony
}

// Populate deploys the first generation: the configured initial genomes
// followed by random ones up to the population size.
func (s *Simulation) Populate(ctx context.Context) error {
	if s.populated {
		return nil
	}
	genomes := make([]genotype.Genome, 0, s.cfg.PopulationSize)
	genomes = append(genomes, s.cfg.Initial...)
	for len(genomes) < s.cfg.PopulationSize {
		g, err := genotype.NewRandomGenome(s.rng, s.cfg.BrainSize)
		if err != nil {
			return err
		}
		genomes = append(genomes, g)
	}

	offspring := make([]evo.Offspring, len(genomes))
	for i, g := range genomes {
		offspring[i] = evo.Offspring{Genome: g, ParentA: -1, ParentB: -1, Operation: evo.OperationSeed}
	}
	if err := s.deploy(offspring, nil); err != nil {
		return err
	}

	if s.cfg.ArtifactsDir != "" {
		runDir, err := stats.WriteRunSettings(s.cfg.ArtifactsDir, s.settings())
		if err != nil {
			return fmt.Errorf("write run settings: %w", err)
		}
		s.runDir = runDir
	}
	if s.cfg.Store != nil {
		if err := s.cfg.Store.SaveRunSummary(ctx, s.summary("")); err != nil {
			return fmt.Errorf("save run summary: %w", err)
		}
	}
	s.populated = true
	s.lastTick = time.Now()
	return nil
}

// RunGeneration lives one generation: fresh brains, every step, natural
// selection and reproduction into the next generation. It returns
// ErrExtinct, together with the finished generation's diagnostics, when
// fewer than two agents survive.
func (s *Simulation) RunGeneration(ctx context.Context) (model.GenerationDiagnostics, error) {
	if !s.populated {
		if err := s.Populate(ctx); err != nil {
			return model.GenerationDiagnostics{}, err
		}
	}
	s.generation++
	started := time.Now()

	agents := s.colony.Agents()
	if err := s.buildBrains(ctx, agents); err != nil {
		return model.GenerationDiagnostics{}, err
	}
	diag := s.brainDiagnostics(agents)

	actions := make(map[string]int)
	for step := 1; step <= s.cfg.StepsPerGeneration; step++ {
		if err := ctx.Err(); err != nil {
			return model.GenerationDiagnostics{}, err
		}
		s.world.Clock.Advance(step)
		for _, a := range agents {
			if !a.Alive() {
				continue
			}
			decision, ok, err := a.Tick(s.logger)
			if err != nil {
				return model.GenerationDiagnostics{}, fmt.Errorf("agent %d: %w", a.ID(), err)
			}
			if ok {
				actions[decision.Name]++
			}
		}
	}

	parents, parentIDs := s.selectSurvivors(agents)
	diag.Generation = s.generation
	diag.Population = len(agents)
	diag.Survivors = len(parents)
	diag.SurvivalRate = float64(len(parents)) / float64(s.cfg.PopulationSize) * 100
	diag.PrimarySurvivalRate = s.world.Mask.PrimarySurvivalRate()
	diag.Actions = actions
	diag.ElapsedMillis = time.Since(started).Milliseconds()

	if err := s.record(ctx, agents, diag); err != nil {
		return diag, err
	}

	if len(parents) < 2 {
		s.logger.Warn("population went extinct", "generation", s.generation, "survivors", len(parents))
		return diag, fmt.Errorf("%w: generation=%d survivors=%d", ErrExtinct, s.generation, len(parents))
	}

	offspring, err := evo.Reproduce(s.rng, parents, evo.ReproductionConfig{
		PopulationSize:      s.cfg.PopulationSize,
		FreshMinds:          s.cfg.FreshMinds,
		BrainSize:           s.cfg.BrainSize,
		MutationProbability: s.cfg.MutationProbability,
	})
	if err != nil {
		return diag, err
	}
	s.colony.Reset()
	if err := s.deploy(offspring, parentIDs); err != nil {
		return diag, err
	}
	return diag, nil
}

// Run lives generations until the configured maximum or extinction.
// Extinction is a stop reason, not an error.
func (s *Simulation) Run(ctx context.Context) (RunResult, error) {
	if err := s.Populate(ctx); err != nil {
		return RunResult{}, err
	}
	stopReason := StopReasonMaxGenerations
	for s.generation < s.cfg.MaxGenerations {
		if _, err := s.RunGeneration(ctx); err != nil {
			if errors.Is(err, ErrExtinct) {
				stopReason = StopReasonExtinct
				break
			}
			return RunResult{}, err
		}
	}
	s.logger.Info("simulation ended", "seed", s.cfg.Seed, "generations", s.generation, "stop_reason", stopReason)
	return s.finish(ctx, stopReason)
}

// buildBrains compiles every agent's genome in parallel. Each agent gets a
// random source derived from the seed, the generation and its index, so the
// outcome does not depend on scheduling.
func (s *Simulation) buildBrains(ctx context.Context, agents []*agent.Agent) error {
	p := pool.New().WithErrors().WithContext(ctx).WithMaxGoroutines(s.cfg.Workers)
	for i, a := range agents {
		a := a
		seed := substreamSeed(s.cfg.Seed, s.generation, i)
		p.Go(func(context.Context) error {
			a.Reseed(rand.New(rand.NewSource(seed)))
			if err := a.RebuildBrain(s.catalog, s.buildCfg); err != nil {
				return fmt.Errorf("build brain of agent %d: %w", a.ID(), err)
			}
			return nil
		})
	}
	return p.Wait()
}

func substreamSeed(seed int64, generation, index int) int64 {
	const (
		generationStride = 1_000_003
		indexStride      = 7_919
	)
	return seed + int64(generation)*generationStride + int64(index)*indexStride
}

func (s *Simulation) brainDiagnostics(agents []*agent.Agent) model.GenerationDiagnostics {
	var diag model.GenerationDiagnostics
	if len(agents) == 0 {
		return diag
	}
	usage := make(map[string]int)
	var edges, rejected, genes int
	for _, a := range agents {
		brain := a.Brain()
		report := brain.Report()
		edges += brain.LiveEdges()
		rejected += report.RejectedTotal()
		genes += report.Genes
		for i := 0; i < brain.Len(); i++ {
			if neuron := brain.Neuron(i); !neuron.Disabled() {
				usage[neuron.Name]++
			}
		}
	}
	n := float64(len(agents))
	diag.MeanLiveEdges = float64(edges) / n
	diag.MeanRejectedGenes = float64(rejected) / n
	diag.MeanGenomeLength = float64(genes) / n
	diag.NeuronUsage = usage
	for i := 0; i < sampleBrainCount; i++ {
		diag.SampleBrains = append(diag.SampleBrains, agents[s.rng.Intn(len(agents))].Brain().String())
	}
	return diag
}

// selectSurvivors kills every agent standing outside the safe zone and
// returns the genomes and ids of the rest.
func (s *Simulation) selectSurvivors(agents []*agent.Agent) ([]genotype.Genome, []string) {
	parents := make([]genotype.Genome, 0, len(agents))
	ids := make([]string, 0, len(agents))
	s.survivors = s.survivors[:0]
	for i, a := range agents {
		if !a.Alive() {
			continue
		}
		x, y := a.Position()
		if !s.world.Mask.Safe(x, y) {
			a.Die()
			continue
		}
		parents = append(parents, a.Genome())
		ids = append(ids, s.genomeIDs[i])
		s.survivors = append(s.survivors, s.genomeRecord(s.genomeIDs[i], a.Genome()))
	}
	return parents, ids
}

// deploy spawns offspring into the emptied world and assigns their genome
// ids. parentIDs resolves offspring parent indexes.
func (s *Simulation) deploy(offspring []evo.Offspring, parentIDs []string) error {
	generation := s.generation + 1
	s.genomeIDs = s.genomeIDs[:0]
	for i, child := range offspring {
		if _, err := s.colony.Spawn(s.rng, child.Genome); err != nil {
			return fmt.Errorf("deploy agent %d: %w", i, err)
		}
		id := genomeID(s.cfg.RunID, generation, i)
		s.genomeIDs = append(s.genomeIDs, id)

		record := model.LineageRecord{
			VersionedRecord: storage.CurrentVersion(),
			GenomeID:        id,
			Generation:      generation,
			Operation:       child.Operation,
		}
		if child.ParentA >= 0 && child.ParentB >= 0 && parentIDs != nil {
			record.ParentIDs = []string{parentIDs[child.ParentA], parentIDs[child.ParentB]}
		}
		s.lineage = append(s.lineage, record)
	}
	return nil
}

func genomeID(runID string, generation, index int) string {
	return uuid.NewSHA1(genomeNamespace, []byte(fmt.Sprintf("%s/%d/%d", runID, generation, index))).String()
}

func (s *Simulation) genomeRecord(id string, g genotype.Genome) model.GenomeRecord {
	return model.GenomeRecord{
		VersionedRecord: storage.CurrentVersion(),
		ID:              id,
		RunID:           s.cfg.RunID,
		Generation:      s.generation,
		Genes:           g.Values(),
	}
}

// record logs, appends and persists one finished generation.
func (s *Simulation) record(ctx context.Context, agents []*agent.Agent, diag model.GenerationDiagnostics) error {
	s.history = append(s.history, diag)

	now := time.Now()
	perMinute := 0.0
	if elapsed := now.Sub(s.lastTick); elapsed > 0 {
		perMinute = time.Minute.Seconds() / elapsed.Seconds()
	}
	s.lastTick = now
	s.logger.Info("generation complete",
		"generation", diag.Generation,
		"survivors", diag.Survivors,
		"survival_rate", diag.SurvivalRate,
		"primary_survival_rate", diag.PrimarySurvivalRate,
		"generations_per_minute", perMinute,
		"mean_live_edges", diag.MeanLiveEdges,
	)

	if s.runDir != "" {
		if err := stats.AppendGenerationData(s.runDir, diag); err != nil {
			return fmt.Errorf("append generation data: %w", err)
		}
	}
	if s.cfg.Store == nil {
		return nil
	}

	population := model.Population{
		VersionedRecord: storage.CurrentVersion(),
		ID:              fmt.Sprintf("%s/gen-%d", s.cfg.RunID, s.generation),
		RunID:           s.cfg.RunID,
		Generation:      s.generation,
		GenomeIDs:       append([]string(nil), s.genomeIDs...),
	}
	for i, a := range agents {
		if err := s.cfg.Store.SaveGenome(ctx, s.genomeRecord(s.genomeIDs[i], a.Genome())); err != nil {
			s.logger.Error("save genome failed", "genome_id", s.genomeIDs[i], "error", err)
			return err
		}
	}
	if err := s.cfg.Store.SavePopulation(ctx, population); err != nil {
		s.logger.Error("save population failed", "population_id", population.ID, "error", err)
		return err
	}
	if err := s.cfg.Store.SaveGenerationDiagnostics(ctx, s.cfg.RunID, s.history); err != nil {
		s.logger.Error("save diagnostics failed", "error", err)
		return err
	}
	return nil
}

func (s *Simulation) finish(ctx context.Context, stopReason string) (RunResult, error) {
	result := RunResult{
		RunID:        s.cfg.RunID,
		Name:         s.cfg.Name,
		Seed:         s.cfg.Seed,
		Generations:  s.generation,
		StopReason:   stopReason,
		Diagnostics:  append([]model.GenerationDiagnostics(nil), s.history...),
		FinalGenomes: append([]model.GenomeRecord(nil), s.survivors...),
		ArtifactsDir: s.runDir,
	}
	for _, d := range s.history {
		if d.SurvivalRate > result.BestSurvivalRate {
			result.BestSurvivalRate = d.SurvivalRate
		}
	}
	if len(s.history) > 0 {
		result.FinalSurvivalRate = s.history[len(s.history)-1].SurvivalRate
	}

	summary := s.summary(stopReason)
	summary.FinalSurvivalRate = result.FinalSurvivalRate
	summary.BestSurvivalRate = result.BestSurvivalRate
	if s.cfg.Store != nil {
		if err := s.cfg.Store.SaveLineage(ctx, s.cfg.RunID, s.lineage); err != nil {
			return RunResult{}, fmt.Errorf("save lineage: %w", err)
		}
		if err := s.cfg.Store.SaveRunSummary(ctx, summary); err != nil {
			return RunResult{}, fmt.Errorf("save run summary: %w", err)
		}
	}

	if s.cfg.ArtifactsDir != "" {
		if _, err := stats.WriteRunArtifacts(s.cfg.ArtifactsDir, stats.RunArtifacts{
			Settings:     s.settings(),
			Generations:  s.history,
			Lineage:      s.lineage,
			FinalGenomes: result.FinalGenomes,
		}); err != nil {
			return RunResult{}, fmt.Errorf("write run artifacts: %w", err)
		}
		runIndexMu.Lock()
		err := stats.AppendRunIndex(s.cfg.ArtifactsDir, stats.RunIndexEntry{
			RunID:              s.cfg.RunID,
			Name:               s.cfg.Name,
			PopulationSize:     s.cfg.PopulationSize,
			Generations:        s.generation,
			Seed:               s.cfg.Seed,
			Workers:            s.cfg.Workers,
			SelectionCondition: s.cfg.SelectionCondition,
			FinalSurvivalRate:  result.FinalSurvivalRate,
			StopReason:         stopReason,
			CreatedAtUTC:       time.Now().UTC().Format(time.RFC3339Nano),
		})
		runIndexMu.Unlock()
		if err != nil {
			return RunResult{}, fmt.Errorf("append run index: %w", err)
		}
	}
	return result, nil
}

func (s *Simulation) summary(stopReason string) model.RunSummary {
	return model.RunSummary{
		VersionedRecord: storage.CurrentVersion(),
		RunID:           s.cfg.RunID,
		Name:            s.cfg.Name,
		Seed:            s.cfg.Seed,
		Generations:     s.generation,
		StopReason:      stopReason,
	}
}

func (s *Simulation) settings() stats.RunSettings {
	return stats.RunSettings{
		RunID:                   s.cfg.RunID,
		Name:                    s.cfg.Name,
		Seed:                    s.cfg.Seed,
		GridWidth:               s.cfg.GridWidth,
		GridHeight:              s.cfg.GridHeight,
		StepsPerGeneration:      s.cfg.StepsPerGeneration,
		MaxGenerations:          s.cfg.MaxGenerations,
		SelectionCondition:      s.cfg.SelectionCondition,
		MaxEntityCount:          s.cfg.PopulationSize,
		BrainSize:               s.cfg.BrainSize,
		MaxInternalNeurons:      s.cfg.InternalNeurons,
		FreshMinds:              s.cfg.FreshMinds,
		GeneMutationProbability: s.cfg.MutationProbability,
		Activation:              s.cfg.Activation,
		Sensors:                 s.catalog.SensorNames(),
		Actuators:               s.catalog.ActuatorNames(),
		Workers:                 s.cfg.Workers,
	}
}
