package io

import (
	"errors"

	"lifesim/internal/scape"
)

const (
	LocationVerticallySensorName   = "location_vertically"
	LocationHorizontallySensorName = "location_horizontally"
	DistanceNorthSensorName        = "distance_north"
	DistanceEastSensorName         = "distance_east"
	DistanceSouthSensorName        = "distance_south"
	DistanceWestSensorName         = "distance_west"
	AgeSensorName                  = "age"
	RandomSensorName               = "random"
	BlockageForwardSensorName      = "blockage_forward"
	OscillatorSensorName           = "oscillator"
	BlockageNorthSensorName        = "blockage_north"
	BlockageEastSensorName         = "blockage_east"
	BlockageSouthSensorName        = "blockage_south"
	BlockageWestSensorName         = "blockage_west"
	PopulationDensitySensorName    = "population_density"
	MeetsConditionSensorName       = "meets_condition"

	MoveForwardActuatorName = "move_forward"
	ReverseActuatorName     = "reverse"
	MoveRandomActuatorName  = "move_random"
	StayStillActuatorName   = "stay_still"
	MoveNorthActuatorName   = "move_north"
	MoveEastActuatorName    = "move_east"
	MoveSouthActuatorName   = "move_south"
	MoveWestActuatorName    = "move_west"
	MoveRightActuatorName   = "move_right"
	MoveLeftActuatorName    = "move_left"
	DieActuatorName         = "die"
	KillActuatorName        = "kill"
)

var ErrNilEnv = errors.New("actuator invoked without an environment")

// DefaultSensorNames is the default sensor pool, in gene index order.
func DefaultSensorNames() []string {
	return []string{
		LocationVerticallySensorName,
		LocationHorizontallySensorName,
		DistanceNorthSensorName,
		DistanceEastSensorName,
		DistanceSouthSensorName,
		DistanceWestSensorName,
		AgeSensorName,
		RandomSensorName,
		BlockageForwardSensorName,
		OscillatorSensorName,
		BlockageNorthSensorName,
		BlockageEastSensorName,
		BlockageSouthSensorName,
		BlockageWestSensorName,
		PopulationDensitySensorName,
	}
}

// DefaultActuatorNames is the default actuator pool, in gene index order.
func DefaultActuatorNames() []string {
	return []string{
		MoveForwardActuatorName,
		ReverseActuatorName,
		MoveRandomActuatorName,
		StayStillActuatorName,
		MoveNorthActuatorName,
		MoveEastActuatorName,
		MoveSouthActuatorName,
		MoveWestActuatorName,
	}
}

func initializeDefaultComponents() {
	sensors := []SensorSpec{
		{Name: LocationVerticallySensorName, Read: readLocationVertically, Description: "1 at the top row, falling toward the bottom"},
		{Name: LocationHorizontallySensorName, Read: readLocationHorizontally, Description: "1 at the left column, falling toward the right"},
		{Name: DistanceNorthSensorName, Read: readDistanceNorth, Description: "normalized distance to the north border"},
		{Name: DistanceEastSensorName, Read: readDistanceEast, Description: "normalized distance to the east border"},
		{Name: DistanceSouthSensorName, Read: readDistanceSouth, Description: "normalized distance to the south border"},
		{Name: DistanceWestSensorName, Read: readDistanceWest, Description: "normalized distance to the west border"},
		{Name: AgeSensorName, Read: func(env Env) float64 { return env.Age() }, Description: "fraction of the generation elapsed"},
		{Name: RandomSensorName, Read: func(env Env) float64 { return env.Rand().Float64() }, Description: "uniform sample in [0,1)"},
		{Name: BlockageForwardSensorName, Read: func(env Env) float64 { return boolValue(env.Blocked(env.Facing())) }, Description: "1 when the cell ahead is taken or off the board"},
		{Name: OscillatorSensorName, Read: func(env Env) float64 { return env.Oscillator() }, Description: "sine wave with one period per generation"},
		{Name: BlockageNorthSensorName, Read: blockage(scape.North), Description: "1 when the north cell is taken or off the board"},
		{Name: BlockageEastSensorName, Read: blockage(scape.East), Description: "1 when the east cell is taken or off the board"},
		{Name: BlockageSouthSensorName, Read: blockage(scape.South), Description: "1 when the south cell is taken or off the board"},
		{Name: BlockageWestSensorName, Read: blockage(scape.West), Description: "1 when the west cell is taken or off the board"},
		{Name: PopulationDensitySensorName, Read: func(env Env) float64 { return env.Density() }, Description: "live agents over configured capacity"},
		{Name: MeetsConditionSensorName, Read: func(env Env) float64 { return boolValue(env.MeetsCondition()) }, Description: "1 when standing on a surviving cell"},
	}
	for _, spec := range sensors {
		if err := RegisterSensorWithSpec(spec); err != nil {
			panic(err)
		}
	}

	actuators := []ActuatorSpec{
		{Name: MoveForwardActuatorName, Act: moveRelative(scape.Forward), Description: "step in the facing direction"},
		{Name: ReverseActuatorName, Act: moveRelative(scape.Reverse), Description: "step against the facing direction"},
		{Name: MoveRandomActuatorName, Act: moveRandom, Description: "step in a random direction"},
		{Name: StayStillActuatorName, Act: func(Env) error { return nil }, Description: "do nothing"},
		{Name: MoveNorthActuatorName, Act: moveAbsolute(scape.North), Description: "step north"},
		{Name: MoveEastActuatorName, Act: moveAbsolute(scape.East), Description: "step east"},
		{Name: MoveSouthActuatorName, Act: moveAbsolute(scape.South), Description: "step south"},
		{Name: MoveWestActuatorName, Act: moveAbsolute(scape.West), Description: "step west"},
		{Name: MoveRightActuatorName, Act: moveRelative(scape.Right), Description: "step to the right of the facing direction"},
		{Name: MoveLeftActuatorName, Act: moveRelative(scape.Left), Description: "step to the left of the facing direction"},
		{Name: DieActuatorName, Act: die, Description: "remove itself from the world"},
		{Name: KillActuatorName, Act: kill, Description: "remove the agent in the facing cell"},
	}
	for _, spec := range actuators {
		if err := RegisterActuatorWithSpec(spec); err != nil {
			panic(err)
		}
	}
}

func readLocationVertically(env Env) float64 {
	_, y := env.Position()
	_, h := env.Bounds()
	return 1 - fraction(y, h)
}

func readLocationHorizontally(env Env) float64 {
	x, _ := env.Position()
	w, _ := env.Bounds()
	return 1 - fraction(x, w)
}

func readDistanceNorth(env Env) float64 {
	_, y := env.Position()
	_, h := env.Bounds()
	return 1 - fraction(y, h)
}

func readDistanceEast(env Env) float64 {
	x, _ := env.Position()
	w, _ := env.Bounds()
	return fraction(x, w)
}

func readDistanceSouth(env Env) float64 {
	_, y := env.Position()
	_, h := env.Bounds()
	return fraction(y, h)
}

func readDistanceWest(env Env) float64 {
	x, _ := env.Position()
	w, _ := env.Bounds()
	return 1 - fraction(x, w)
}

func blockage(dir scape.Direction) SensorFunc {
	return func(env Env) float64 {
		return boolValue(env.Blocked(dir))
	}
}

func moveAbsolute(dir scape.Direction) ActuatorFunc {
	return func(env Env) error {
		if env == nil {
			return ErrNilEnv
		}
		env.Move(dir)
		return nil
	}
}

func moveRelative(relative scape.Direction) ActuatorFunc {
	return func(env Env) error {
		if env == nil {
			return ErrNilEnv
		}
		env.Move(env.Facing().Rotate(relative))
		return nil
	}
}

func moveRandom(env Env) error {
	if env == nil {
		return ErrNilEnv
	}
	env.Move(scape.RandomDirection(env.Rand()))
	return nil
}

func die(env Env) error {
	if env == nil {
		return ErrNilEnv
	}
	env.Die()
	return nil
}

func kill(env Env) error {
	if env == nil {
		return ErrNilEnv
	}
	env.Kill(env.Facing())
	return nil
}

func fraction(v, size int) float64 {
	if size <= 0 {
		return 0
	}
	return float64(v) / float64(size)
}

func boolValue(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
