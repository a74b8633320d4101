package lifesim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"lifesim/internal/config"
	"lifesim/internal/genotype"
	"lifesim/internal/io"
	"lifesim/internal/model"
	"lifesim/internal/nn"
	"lifesim/internal/platform"
	"lifesim/internal/scape"
	"lifesim/internal/stats"
	"lifesim/internal/storage"
)

const (
	defaultArtifactsDir = "simulations"
	defaultExportsDir   = "exports"
	defaultDBPath       = "lifesim.db"
)

type Options struct {
	StoreKind    string
	DBPath       string
	ArtifactsDir string
	ExportsDir   string
	Logger       *slog.Logger
}

type Client struct {
	store  storage.Store
	polis  *platform.Polis
	logger *slog.Logger

	artifactsDir string
	exportsDir   string
}

// RunRequest describes one simulation. Zero fields take the defaults of
// config.Default. InternalNeurons, FreshMinds and MutationProbability are
// pointers because zero is a valid setting for each; nil takes the default.
type RunRequest struct {
	RunID               string
	Name                string
	Seed                int64
	RandomSeed          bool
	GridWidth           int
	GridHeight          int
	StepsPerGeneration  int
	Generations         int
	SelectionCondition  string
	Population          int
	BrainSize           int
	InternalNeurons     *int
	FreshMinds          *int
	MutationProbability *float64
	Activation          string
	Sensors             []string
	Actuators           []string
	Workers             int
}

// RunRequestFromConfig copies loaded settings into a request.
func RunRequestFromConfig(c config.Config) RunRequest {
	return RunRequest{
		Name:                c.General.Name,
		Seed:                c.Randomness.Seed,
		RandomSeed:          c.Randomness.RandomSeed,
		GridWidth:           c.Grid.Width,
		GridHeight:          c.Grid.Height,
		StepsPerGeneration:  c.Control.StepsPerGeneration,
		Generations:         c.Control.MaxGenerations,
		SelectionCondition:  c.Control.SelectionCondition,
		Population:          c.Entities.MaxEntityCount,
		BrainSize:           c.Entities.BrainSize,
		InternalNeurons:     &c.Entities.MaxInternalNeurons,
		FreshMinds:          &c.Entities.FreshMinds,
		MutationProbability: &c.Mutation.GeneMutationProbability,
		Activation:          c.Entities.Activation,
		Sensors:             append([]string(nil), c.Entities.Sensors...),
		Actuators:           append([]string(nil), c.Entities.Actuators...),
		Workers:             c.Runtime.Workers,
	}
}

type RunSummary struct {
	RunID                string
	Name                 string
	Seed                 int64
	ArtifactsDir         string
	Generations          int
	StopReason           string
	SurvivalByGeneration []float64
	FinalSurvivalRate    float64
	BestSurvivalRate     float64
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID              string
	Name               string
	CreatedAtUTC       string
	Seed               int64
	Population         int
	Generations        int
	SelectionCondition string
	FinalSurvivalRate  float64
	StopReason         string
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

type LineageRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type LineageItem struct {
	GenomeID   string
	ParentIDs  []string
	Generation int
	Operation  string
}

type DiagnosticsRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type GeneItem struct {
	Value    uint32
	TipKind  string
	TipIndex int
	EndKind  string
	EndIndex int
	Weight   float64
}

// GenomeInspection is a stored genome decoded and compiled against the
// catalog of the run that produced it.
type GenomeInspection struct {
	ID          string
	RunID       string
	Generation  int
	Genes       []GeneItem
	Brain       string
	Accepted    int
	Rejected    map[string]int
	Pruned      int
	LiveEdges   int
	ColorRGB    [3]uint8
	CatalogNote string
}

type ComponentItem struct {
	Name        string
	Description string
}

type CatalogSummary struct {
	Sensors          []ComponentItem
	Actuators        []ComponentItem
	DefaultSensors   []string
	DefaultActuators []string
	Activations      []string
}

type ConditionItem struct {
	Name                string
	PrimarySurvivalRate float64
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	artifactsDir := opts.ArtifactsDir
	if artifactsDir == "" {
		artifactsDir = defaultArtifactsDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:        store,
		logger:       logger,
		artifactsDir: artifactsDir,
		exportsDir:   exportsDir,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	_, err := c.ensurePolis(ctx)
	return err
}

func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	summaries, err := c.RunMany(ctx, []RunRequest{req})
	if err != nil {
		return RunSummary{}, err
	}
	return summaries[0], nil
}

// RunMany runs independent simulations concurrently.
func (c *Client) RunMany(ctx context.Context, reqs []RunRequest) ([]RunSummary, error) {
	if len(reqs) == 0 {
		return nil, errors.New("at least one run request is required")
	}
	cfgs := make([]platform.SimulationConfig, 0, len(reqs))
	for i, req := range reqs {
		cfg, err := c.simulationConfig(req)
		if err != nil {
			return nil, fmt.Errorf("run request %d: %w", i, err)
		}
		cfgs = append(cfgs, cfg)
	}

	p, err := c.ensurePolis(ctx)
	if err != nil {
		return nil, err
	}
	results, err := p.RunAll(ctx, cfgs)
	if err != nil {
		return nil, err
	}

	summaries := make([]RunSummary, 0, len(results))
	for _, result := range results {
		series := make([]float64, 0, len(result.Diagnostics))
		for _, d := range result.Diagnostics {
			series = append(series, d.SurvivalRate)
		}
		summaries = append(summaries, RunSummary{
			RunID:                result.RunID,
			Name:                 result.Name,
			Seed:                 result.Seed,
			ArtifactsDir:         result.ArtifactsDir,
			Generations:          result.Generations,
			StopReason:           result.StopReason,
			SurvivalByGeneration: series,
			FinalSurvivalRate:    result.FinalSurvivalRate,
			BestSurvivalRate:     result.BestSurvivalRate,
		})
	}
	return summaries, nil
}

func (c *Client) simulationConfig(req RunRequest) (platform.SimulationConfig, error) {
	cfg := config.Default()
	cfg.General.Name = req.Name
	cfg.Randomness.Seed = req.Seed
	cfg.Randomness.RandomSeed = req.RandomSeed
	setInt(&cfg.Grid.Width, req.GridWidth)
	setInt(&cfg.Grid.Height, req.GridHeight)
	setInt(&cfg.Control.StepsPerGeneration, req.StepsPerGeneration)
	setInt(&cfg.Control.MaxGenerations, req.Generations)
	if req.SelectionCondition != "" {
		cfg.Control.SelectionCondition = req.SelectionCondition
	}
	setInt(&cfg.Entities.MaxEntityCount, req.Population)
	setInt(&cfg.Entities.BrainSize, req.BrainSize)
	if req.InternalNeurons != nil {
		cfg.Entities.MaxInternalNeurons = *req.InternalNeurons
	}
	if req.FreshMinds != nil {
		cfg.Entities.FreshMinds = *req.FreshMinds
	}
	if req.MutationProbability != nil {
		cfg.Mutation.GeneMutationProbability = *req.MutationProbability
	}
	if req.Activation != "" {
		cfg.Entities.Activation = req.Activation
	}
	cfg.Entities.Sensors = req.Sensors
	cfg.Entities.Actuators = req.Actuators
	setInt(&cfg.Runtime.Workers, req.Workers)
	cfg.Storage.ArtifactsDir = c.artifactsDir
	if err := cfg.Validate(); err != nil {
		return platform.SimulationConfig{}, err
	}

	simCfg := platform.SimulationConfigFrom(cfg)
	simCfg.RunID = req.RunID
	simCfg.Logger = c.logger
	return simCfg, nil
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

func (c *Client) Runs(_ context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}

	entries, err := stats.ListRunIndex(c.artifactsDir)
	if err != nil {
		return nil, err
	}
	if len(entries) > req.Limit {
		entries = entries[:req.Limit]
	}

	out := make([]RunItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, RunItem{
			RunID:              e.RunID,
			Name:               e.Name,
			CreatedAtUTC:       e.CreatedAtUTC,
			Seed:               e.Seed,
			Population:         e.PopulationSize,
			Generations:        e.Generations,
			SelectionCondition: e.SelectionCondition,
			FinalSurvivalRate:  e.FinalSurvivalRate,
			StopReason:         e.StopReason,
		})
	}
	return out, nil
}

func (c *Client) Export(_ context.Context, req ExportRequest) (ExportSummary, error) {
	if req.RunID == "" && !req.Latest {
		return ExportSummary{}, errors.New("export requires run id or latest")
	}
	runID, err := c.resolveRunID(req.RunID, req.Latest)
	if err != nil {
		return ExportSummary{}, err
	}
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}

	exportedDir, err := stats.ExportRunArtifacts(c.artifactsDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(exportedDir)}, nil
}

func (c *Client) Lineage(ctx context.Context, req LineageRequest) ([]LineageItem, error) {
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	runID, err := c.resolveRunID(req.RunID, req.Latest)
	if err != nil {
		return nil, err
	}
	if runID == "" {
		return nil, errors.New("lineage requires run id or latest")
	}

	if _, err := c.ensurePolis(ctx); err != nil {
		return nil, err
	}
	lineage, ok, err := c.store.GetLineage(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		lineage, ok, err = stats.ReadLineage(c.artifactsDir, runID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("lineage not found for run id: %s", runID)
		}
	}
	if req.Limit > 0 && len(lineage) > req.Limit {
		lineage = lineage[:req.Limit]
	}

	out := make([]LineageItem, 0, len(lineage))
	for _, rec := range lineage {
		out = append(out, LineageItem{
			GenomeID:   rec.GenomeID,
			ParentIDs:  append([]string(nil), rec.ParentIDs...),
			Generation: rec.Generation,
			Operation:  rec.Operation,
		})
	}
	return out, nil
}

func (c *Client) Diagnostics(ctx context.Context, req DiagnosticsRequest) ([]model.GenerationDiagnostics, error) {
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	runID, err := c.resolveRunID(req.RunID, req.Latest)
	if err != nil {
		return nil, err
	}
	if runID == "" {
		return nil, errors.New("diagnostics requires run id or latest")
	}

	if _, err := c.ensurePolis(ctx); err != nil {
		return nil, err
	}
	diagnostics, ok, err := c.store.GetGenerationDiagnostics(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Runs from an earlier process live only in the artifacts directory
		// when the store is in memory.
		diagnostics, ok, err = stats.ReadGenerationData(c.artifactsDir, runID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("diagnostics not found for run id: %s", runID)
		}
	}
	if req.Limit > 0 && len(diagnostics) > req.Limit {
		diagnostics = diagnostics[:req.Limit]
	}
	out := make([]model.GenerationDiagnostics, len(diagnostics))
	copy(out, diagnostics)
	return out, nil
}

// Genome loads a stored genome and compiles it with the sensors, actuators
// and internal neuron count of its run.
func (c *Client) Genome(ctx context.Context, genomeID string) (GenomeInspection, error) {
	if genomeID == "" {
		return GenomeInspection{}, errors.New("genome id is required")
	}
	if _, err := c.ensurePolis(ctx); err != nil {
		return GenomeInspection{}, err
	}
	record, ok, err := c.store.GetGenome(ctx, genomeID)
	if err != nil {
		return GenomeInspection{}, err
	}
	if !ok {
		record, ok, err = c.findFinalGenome(genomeID)
		if err != nil {
			return GenomeInspection{}, err
		}
		if !ok {
			return GenomeInspection{}, fmt.Errorf("genome not found: %s", genomeID)
		}
	}
	return c.InspectGenes(record.ID, record.RunID, record.Generation, record.Genes)
}

// findFinalGenome scans the final_genomes.json artifacts of indexed runs.
func (c *Client) findFinalGenome(genomeID string) (model.GenomeRecord, bool, error) {
	entries, err := stats.ListRunIndex(c.artifactsDir)
	if err != nil {
		return model.GenomeRecord{}, false, err
	}
	for _, e := range entries {
		genomes, ok, err := stats.ReadFinalGenomes(c.artifactsDir, e.RunID)
		if err != nil {
			return model.GenomeRecord{}, false, err
		}
		if !ok {
			continue
		}
		for _, g := range genomes {
			if g.ID == genomeID {
				return g, true, nil
			}
		}
	}
	return model.GenomeRecord{}, false, nil
}

// InspectGenes decodes and compiles raw gene values. When runID names a run
// with saved settings its catalog is used, otherwise the default catalog.
func (c *Client) InspectGenes(id, runID string, generation int, values []uint32) (GenomeInspection, error) {
	if len(values) == 0 {
		return GenomeInspection{}, genotype.ErrEmptyGenome
	}
	sensors, actuators := []string(nil), []string(nil)
	buildCfg := nn.BuildConfig{}
	note := "default catalog"
	if runID != "" {
		settings, ok, err := stats.ReadRunSettings(c.artifactsDir, runID)
		if err != nil {
			return GenomeInspection{}, err
		}
		if ok {
			sensors, actuators = settings.Sensors, settings.Actuators
			buildCfg = nn.BuildConfig{InternalCount: settings.MaxInternalNeurons, Activation: settings.Activation}
			note = "catalog of run " + runID
		}
	}
	catalog, err := nn.CatalogFromNames(sensors, actuators)
	if err != nil {
		return GenomeInspection{}, err
	}

	genome := genotype.FromValues(values)
	brain, err := nn.Build(genome, catalog, buildCfg)
	if err != nil {
		return GenomeInspection{}, err
	}

	out := GenomeInspection{
		ID:          id,
		RunID:       runID,
		Generation:  generation,
		Genes:       make([]GeneItem, 0, len(values)),
		Brain:       brain.String(),
		Rejected:    make(map[string]int),
		LiveEdges:   brain.LiveEdges(),
		CatalogNote: note,
	}
	for _, v := range values {
		conn := genotype.Decode(v)
		out.Genes = append(out.Genes, GeneItem{
			Value:    v,
			TipKind:  conn.TipKind.String(),
			TipIndex: conn.TipIndex,
			EndKind:  conn.EndKind.String(),
			EndIndex: conn.EndIndex,
			Weight:   conn.Weight,
		})
	}
	report := brain.Report()
	out.Accepted = report.Accepted
	out.Pruned = report.Pruned
	for _, reason := range nn.Rejections() {
		if n := report.Rejected[reason]; n > 0 {
			out.Rejected[reason.String()] = n
		}
	}
	r, g, b := genome.Color()
	out.ColorRGB = [3]uint8{r, g, b}
	return out, nil
}

func (c *Client) Catalog() CatalogSummary {
	summary := CatalogSummary{
		DefaultSensors:   io.DefaultSensorNames(),
		DefaultActuators: io.DefaultActuatorNames(),
		Activations:      nn.ListActivations(),
	}
	for _, name := range io.ListSensors() {
		spec, _ := io.DescribeSensor(name)
		summary.Sensors = append(summary.Sensors, ComponentItem{Name: name, Description: spec.Description})
	}
	for _, name := range io.ListActuators() {
		spec, _ := io.DescribeActuator(name)
		summary.Actuators = append(summary.Actuators, ComponentItem{Name: name, Description: spec.Description})
	}
	return summary
}

// Conditions lists the selection conditions with the share of a width x
// height grid each one keeps safe.
func (c *Client) Conditions(width, height int) ([]ConditionItem, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("grid must be positive, got %dx%d", width, height)
	}
	names := scape.ConditionNames()
	out := make([]ConditionItem, 0, len(names))
	for _, name := range names {
		cond, err := scape.LookupCondition(name)
		if err != nil {
			return nil, err
		}
		out = append(out, ConditionItem{
			Name:                name,
			PrimarySurvivalRate: scape.NewMask(cond, width, height).PrimarySurvivalRate(),
		})
	}
	return out, nil
}

func (c *Client) resolveRunID(runID string, latest bool) (string, error) {
	if runID != "" && latest {
		return "", errors.New("use either run id or latest")
	}
	if !latest {
		return runID, nil
	}
	entries, err := stats.ListRunIndex(c.artifactsDir)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", errors.New("no runs available")
	}
	return entries[0].RunID, nil
}

func (c *Client) ensurePolis(ctx context.Context) (*platform.Polis, error) {
	if c.polis != nil {
		return c.polis, nil
	}
	p := platform.NewPolis(platform.Config{Store: c.store, Logger: c.logger})
	if err := p.Init(ctx); err != nil {
		return nil, err
	}
	c.polis = p
	return c.polis, nil
}
