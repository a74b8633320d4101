// Package scape holds the world agents live in: the grid, headings, the
// per-step clock and the selection conditions applied at generation end.
package scape

import (
	"fmt"
	"math"
)

// Clock tracks the step inside a generation and caches the time-derived
// inputs every agent reads during that step.
type Clock struct {
	StepsPerGeneration int

	step       int
	age        float64
	oscillator float64
}

// Advance moves the clock to step (1-based) and recomputes the cached inputs.
func (c *Clock) Advance(step int) {
	c.step = step
	if c.StepsPerGeneration <= 0 {
		c.age, c.oscillator = 0, 0.5
		return
	}
	steps := float64(c.StepsPerGeneration)
	c.age = float64(step) / steps
	c.oscillator = 0.5 * (math.Sin(2*math.Pi/steps*float64(step)) + 1)
}

func (c *Clock) Step() int {
	return c.step
}

func (c *Clock) Age() float64 {
	return c.age
}

func (c *Clock) Oscillator() float64 {
	return c.oscillator
}

// World bundles the shared state of one simulation that agents observe.
type World struct {
	Grid     *Grid
	Mask     *Mask
	Clock    Clock
	Capacity int

	alive int
}

func NewWorld(width, height, stepsPerGeneration, capacity int, cond Condition) (*World, error) {
	grid, err := NewGrid(width, height)
	if err != nil {
		return nil, err
	}
	if capacity <= 0 {
		return nil, fmt.Errorf("world capacity must be > 0")
	}
	if capacity > width*height {
		return nil, fmt.Errorf("world capacity %d exceeds %d grid cells", capacity, width*height)
	}
	if cond == nil {
		cond = func(_, _, _, _ int) bool { return true }
	}
	return &World{
		Grid:     grid,
		Mask:     NewMask(cond, width, height),
		Clock:    Clock{StepsPerGeneration: stepsPerGeneration},
		Capacity: capacity,
	}, nil
}

func (w *World) SetAlive(n int) {
	w.alive = n
}

func (w *World) Alive() int {
	return w.alive
}

// Density is the live population as a fraction of the configured capacity.
func (w *World) Density() float64 {
	if w.Capacity <= 0 {
		return 0
	}
	return float64(w.alive) / float64(w.Capacity)
}
