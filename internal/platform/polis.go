package platform

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"lifesim/internal/storage"
)

type Config struct {
	Store storage.Store
	// MaxConcurrentRuns bounds RunAll. Zero runs every simulation at once.
	MaxConcurrentRuns int
	Logger            *slog.Logger
}

// Polis owns the store shared by the simulations it runs and tracks the
// ones in flight so Stop can cancel them.
type Polis struct {
	store  storage.Store
	logger *slog.Logger
	config Config

	mu      sync.RWMutex
	started bool
	runs    map[string]context.CancelFunc
}

func NewPolis(cfg Config) *Polis {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Polis{
		store:  cfg.Store,
		logger: logger,
		config: cfg,
		runs:   make(map[string]context.CancelFunc),
	}
}

func (p *Polis) Init(ctx context.Context) error {
	if p.store == nil {
		return fmt.Errorf("store is required")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return nil
	}
	if err := p.store.Init(ctx); err != nil {
		return err
	}
	p.started = true
	return nil
}

func (p *Polis) Started() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.started
}

func (p *Polis) Store() storage.Store {
	return p.store
}

// Stop cancels every run in flight. Cancelled runs return context.Canceled.
func (p *Polis) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, cancel := range p.runs {
		cancel()
	}
	p.runs = make(map[string]context.CancelFunc)
	p.started = false
}

// ActiveRuns lists the run ids currently evolving.
func (p *Polis) ActiveRuns() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ids := make([]string, 0, len(p.runs))
	for id := range p.runs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// RunSimulation runs one simulation to completion against the polis store.
func (p *Polis) RunSimulation(ctx context.Context, cfg SimulationConfig) (RunResult, error) {
	if !p.Started() {
		return RunResult{}, fmt.Errorf("polis is not initialized")
	}
	cfg.Store = p.store
	if cfg.Logger == nil {
		cfg.Logger = p.logger
	}
	sim, err := NewSimulation(cfg)
	if err != nil {
		return RunResult{}, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := p.registerRun(sim.RunID(), cancel); err != nil {
		return RunResult{}, err
	}
	defer p.unregisterRun(sim.RunID())

	p.logger.Info("starting simulation", "run_id", sim.RunID(), "name", cfg.Name, "seed", cfg.Seed)
	return sim.Run(runCtx)
}

// RunAll runs independent simulations concurrently. Results keep the order
// of cfgs; the first failure is returned after every run has finished.
func (p *Polis) RunAll(ctx context.Context, cfgs []SimulationConfig) ([]RunResult, error) {
	results := make([]RunResult, len(cfgs))
	workers := p.config.MaxConcurrentRuns
	if workers <= 0 || workers > len(cfgs) {
		workers = len(cfgs)
	}
	if workers == 0 {
		return results, nil
	}

	runs := pool.New().WithErrors().WithFirstError().WithMaxGoroutines(workers)
	for i, cfg := range cfgs {
		i, cfg := i, cfg
		runs.Go(func() error {
			result, err := p.RunSimulation(ctx, cfg)
			if err != nil {
				return fmt.Errorf("simulation %d (%s): %w", i, cfg.Name, err)
			}
			results[i] = result
			return nil
		})
	}
	if err := runs.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func (p *Polis) registerRun(runID string, cancel context.CancelFunc) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.runs[runID]; exists {
		return fmt.Errorf("run already active: %s", runID)
	}
	p.runs[runID] = cancel
	return nil
}

func (p *Polis) unregisterRun(runID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.runs, runID)
}
