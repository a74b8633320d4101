package scape

import "math/rand"

// Direction is one of the eight grid headings, ordered clockwise from North.
// Screen coordinates are used: y grows southward.
type Direction int

const (
	North Direction = iota
	NorthEast
	East
	SouthEast
	South
	SouthWest
	West
	NorthWest
	directionCount
)

// Relative headings, applied to an agent's facing direction by Rotate.
const (
	Forward = North
	Right   = East
	Reverse = South
	Left    = West
)

var directionDeltas = [directionCount][2]int{
	North:     {0, -1},
	NorthEast: {1, -1},
	East:      {1, 0},
	SouthEast: {1, 1},
	South:     {0, 1},
	SouthWest: {-1, 1},
	West:      {-1, 0},
	NorthWest: {-1, -1},
}

var directionNames = [directionCount]string{
	North:     "north",
	NorthEast: "north_east",
	East:      "east",
	SouthEast: "south_east",
	South:     "south",
	SouthWest: "south_west",
	West:      "west",
	NorthWest: "north_west",
}

func (d Direction) Valid() bool {
	return d >= 0 && d < directionCount
}

func (d Direction) Delta() (dx, dy int) {
	delta := directionDeltas[d.normalize()]
	return delta[0], delta[1]
}

// Rotate turns d by a relative heading: Forward keeps it, Right turns 90
// degrees clockwise, Reverse flips it and Left turns 90 degrees
// counter-clockwise.
func (d Direction) Rotate(relative Direction) Direction {
	return (d.normalize() + relative.normalize()) % directionCount
}

func (d Direction) String() string {
	return directionNames[d.normalize()]
}

func (d Direction) normalize() Direction {
	d %= directionCount
	if d < 0 {
		d += directionCount
	}
	return d
}

func RandomDirection(rng *rand.Rand) Direction {
	return Direction(rng.Intn(int(directionCount)))
}

// Directions lists every heading in clockwise order.
func Directions() []Direction {
	out := make([]Direction, directionCount)
	for i := range out {
		out[i] = Direction(i)
	}
	return out
}
