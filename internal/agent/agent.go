// Package agent binds a genome and its compiled brain to a place in the
// world. Agent implements io.Env for the sensors and actuators of its brain.
package agent

import (
	"errors"
	"log/slog"
	"math/rand"

	"lifesim/internal/genotype"
	"lifesim/internal/io"
	"lifesim/internal/nn"
	"lifesim/internal/scape"
)

var ErrNoBrain = errors.New("agent brain has not been built")

var _ io.Env = (*Agent)(nil)

type Agent struct {
	id     int
	genome genotype.Genome
	colony *Colony

	x, y   int
	facing scape.Direction
	alive  bool

	rng   *rand.Rand
	brain *nn.Network
}

func (a *Agent) ID() int {
	return a.id
}

func (a *Agent) Genome() genotype.Genome {
	return a.genome
}

func (a *Agent) Alive() bool {
	return a.alive
}

func (a *Agent) Brain() *nn.Network {
	return a.brain
}

// Reseed replaces the random source used by the random sensor and actuator.
func (a *Agent) Reseed(rng *rand.Rand) {
	a.rng = rng
}

// RebuildBrain compiles the genome into a new network over a fresh arena.
// Brains are never reused across generations.
func (a *Agent) RebuildBrain(catalog nn.Catalog, cfg nn.BuildConfig) error {
	brain, err := nn.Build(a.genome, catalog, cfg)
	if err != nil {
		return err
	}
	a.brain = brain
	return nil
}

// Tick runs one evaluation of the brain and performs the winning action.
func (a *Agent) Tick(logger *slog.Logger) (nn.Decision, bool, error) {
	if a.brain == nil {
		return nn.Decision{}, false, ErrNoBrain
	}
	if !a.alive {
		return nn.Decision{}, false, nil
	}
	decision, ok := a.brain.Tick(a, logger)
	return decision, ok, nil
}

func (a *Agent) Position() (int, int) {
	return a.x, a.y
}

func (a *Agent) Facing() scape.Direction {
	return a.facing
}

func (a *Agent) Bounds() (int, int) {
	grid := a.colony.world.Grid
	return grid.Width(), grid.Height()
}

func (a *Agent) Age() float64 {
	return a.colony.world.Clock.Age()
}

func (a *Agent) Oscillator() float64 {
	return a.colony.world.Clock.Oscillator()
}

func (a *Agent) Density() float64 {
	return a.colony.world.Density()
}

func (a *Agent) Rand() *rand.Rand {
	return a.rng
}

func (a *Agent) Blocked(dir scape.Direction) bool {
	return a.colony.world.Grid.Blocked(a.x, a.y, dir)
}

func (a *Agent) MeetsCondition() bool {
	return a.colony.world.Mask.Safe(a.x, a.y)
}

// Move steps one cell in dir. A successful move turns the agent to face dir.
func (a *Agent) Move(dir scape.Direction) bool {
	if !a.alive {
		return false
	}
	x, y, ok := a.colony.world.Grid.Move(a.x, a.y, dir)
	if !ok {
		return false
	}
	a.x, a.y, a.facing = x, y, dir
	return true
}

func (a *Agent) Kill(dir scape.Direction) bool {
	if !a.alive {
		return false
	}
	dx, dy := dir.Delta()
	id, ok := a.colony.world.Grid.Occupant(a.x+dx, a.y+dy)
	if !ok {
		return false
	}
	target := a.colony.agent(id)
	if target == nil || !target.alive {
		return false
	}
	target.Die()
	return true
}

func (a *Agent) Die() {
	if !a.alive {
		return
	}
	a.alive = false
	a.colony.world.Grid.Remove(a.x, a.y)
	a.colony.world.SetAlive(a.colony.world.Alive() - 1)
}
