package io

import (
	"math/rand"

	"lifesim/internal/scape"
)

// Env is one agent as seen from its sensors and actuators: its placement in
// the world plus the handful of world-wide inputs cached per step.
type Env interface {
	Position() (x, y int)
	Facing() scape.Direction
	Bounds() (width, height int)
	Age() float64
	Oscillator() float64
	Density() float64
	Rand() *rand.Rand
	Blocked(dir scape.Direction) bool
	MeetsCondition() bool

	// Move tries to step one cell in dir and reports whether it happened.
	// Blocked and out-of-bounds moves leave the agent in place.
	Move(dir scape.Direction) bool
	// Kill removes the agent occupying the neighbouring cell in dir.
	Kill(dir scape.Direction) bool
	Die()
}

// SensorFunc reads one value from the environment. It must not mutate it.
type SensorFunc func(Env) float64

// ActuatorFunc performs one action on the environment.
type ActuatorFunc func(Env) error

type Sensor struct {
	Name string
	Read SensorFunc
}

type Actuator struct {
	Name string
	Act  ActuatorFunc
}
