package io

import (
	"errors"
	"math/rand"
	"testing"

	"lifesim/internal/scape"
)

type fakeEnv struct {
	x, y    int
	w, h    int
	facing  scape.Direction
	blocked map[scape.Direction]bool
	moves   []scape.Direction
	killed  []scape.Direction
	dead    bool
	rng     *rand.Rand
}

func (e *fakeEnv) Position() (int, int)           { return e.x, e.y }
func (e *fakeEnv) Facing() scape.Direction        { return e.facing }
func (e *fakeEnv) Bounds() (int, int)             { return e.w, e.h }
func (e *fakeEnv) Age() float64                   { return 0.25 }
func (e *fakeEnv) Oscillator() float64            { return 0.75 }
func (e *fakeEnv) Density() float64               { return 0.5 }
func (e *fakeEnv) Rand() *rand.Rand               { return e.rng }
func (e *fakeEnv) Blocked(d scape.Direction) bool { return e.blocked[d] }
func (e *fakeEnv) MeetsCondition() bool           { return e.x == 0 }
func (e *fakeEnv) Move(d scape.Direction) bool    { e.moves = append(e.moves, d); return true }
func (e *fakeEnv) Kill(d scape.Direction) bool    { e.killed = append(e.killed, d); return true }
func (e *fakeEnv) Die()                           { e.dead = true }

func readSensor(t *testing.T, name string, env Env) float64 {
	t.Helper()
	s, err := ResolveSensor(name)
	if err != nil {
		t.Fatalf("resolve %s: %v", name, err)
	}
	return s.Read(env)
}

func TestPositionalSensors(t *testing.T) {
	env := &fakeEnv{x: 25, y: 75, w: 100, h: 100}
	cases := []struct {
		name string
		want float64
	}{
		{LocationVerticallySensorName, 0.25},
		{LocationHorizontallySensorName, 0.75},
		{DistanceNorthSensorName, 0.25},
		{DistanceEastSensorName, 0.25},
		{DistanceSouthSensorName, 0.75},
		{DistanceWestSensorName, 0.75},
		{AgeSensorName, 0.25},
		{OscillatorSensorName, 0.75},
		{PopulationDensitySensorName, 0.5},
		{MeetsConditionSensorName, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := readSensor(t, tc.name, env); got != tc.want {
				t.Fatalf("got %f want %f", got, tc.want)
			}
		})
	}
}

func TestBlockageSensors(t *testing.T) {
	env := &fakeEnv{w: 10, h: 10, facing: scape.East, blocked: map[scape.Direction]bool{scape.East: true}}
	if readSensor(t, BlockageForwardSensorName, env) != 1 {
		t.Fatal("expected forward blockage when facing a blocked cell")
	}
	if readSensor(t, BlockageEastSensorName, env) != 1 || readSensor(t, BlockageWestSensorName, env) != 0 {
		t.Fatal("unexpected absolute blockage readings")
	}
}

func TestRandomSensorUsesEnvSource(t *testing.T) {
	a := readSensor(t, RandomSensorName, &fakeEnv{rng: rand.New(rand.NewSource(4))})
	b := readSensor(t, RandomSensorName, &fakeEnv{rng: rand.New(rand.NewSource(4))})
	if a != b || a < 0 || a >= 1 {
		t.Fatalf("expected reproducible sample in [0,1): %f %f", a, b)
	}
}

func TestMovementActuators(t *testing.T) {
	cases := []struct {
		name string
		want scape.Direction
	}{
		{MoveForwardActuatorName, scape.West},
		{ReverseActuatorName, scape.East},
		{MoveRightActuatorName, scape.North},
		{MoveLeftActuatorName, scape.South},
		{MoveNorthActuatorName, scape.North},
		{MoveSouthActuatorName, scape.South},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := &fakeEnv{facing: scape.West}
			a, err := ResolveActuator(tc.name)
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if err := a.Act(env); err != nil {
				t.Fatalf("act: %v", err)
			}
			if len(env.moves) != 1 || env.moves[0] != tc.want {
				t.Fatalf("unexpected moves: %v", env.moves)
			}
		})
	}
}

func TestLifecycleActuators(t *testing.T) {
	env := &fakeEnv{facing: scape.South}
	stay, _ := ResolveActuator(StayStillActuatorName)
	if err := stay.Act(env); err != nil || len(env.moves) != 0 {
		t.Fatalf("stay still should not move: err=%v moves=%v", err, env.moves)
	}
	kill, _ := ResolveActuator(KillActuatorName)
	if err := kill.Act(env); err != nil || len(env.killed) != 1 || env.killed[0] != scape.South {
		t.Fatalf("unexpected kill: err=%v killed=%v", err, env.killed)
	}
	die, _ := ResolveActuator(DieActuatorName)
	if err := die.Act(env); err != nil || !env.dead {
		t.Fatalf("expected die to mark env dead: err=%v", err)
	}
	if err := die.Act(nil); !errors.Is(err, ErrNilEnv) {
		t.Fatalf("expected nil env error, got %v", err)
	}
}
