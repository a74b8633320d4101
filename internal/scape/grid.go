package scape

import (
	"errors"
	"fmt"
	"math/rand"
)

var ErrGridFull = errors.New("all grid cells are taken")

// Grid is a width x height board holding at most one occupant per cell.
// Occupants are identified by non-negative integer ids.
type Grid struct {
	width  int
	height int
	cells  []int
	count  int
}

func NewGrid(width, height int) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("grid dimensions must be > 0: width=%d height=%d", width, height)
	}
	return &Grid{
		width:  width,
		height: height,
		cells:  make([]int, width*height),
	}, nil
}

func (g *Grid) Width() int {
	return g.width
}

func (g *Grid) Height() int {
	return g.height
}

func (g *Grid) Occupied() int {
	return g.count
}

func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && x < g.width && y >= 0 && y < g.height
}

// Occupant returns the id held at (x, y).
func (g *Grid) Occupant(x, y int) (int, bool) {
	if !g.InBounds(x, y) {
		return 0, false
	}
	slot := g.cells[g.index(x, y)]
	if slot == 0 {
		return 0, false
	}
	return slot - 1, true
}

// Place puts id at (x, y) when the cell is inside the board and free.
func (g *Grid) Place(id, x, y int) bool {
	if id < 0 || !g.InBounds(x, y) {
		return false
	}
	i := g.index(x, y)
	if g.cells[i] != 0 {
		return false
	}
	g.cells[i] = id + 1
	g.count++
	return true
}

func (g *Grid) Remove(x, y int) {
	if !g.InBounds(x, y) {
		return
	}
	i := g.index(x, y)
	if g.cells[i] != 0 {
		g.cells[i] = 0
		g.count--
	}
}

func (g *Grid) Clear() {
	for i := range g.cells {
		g.cells[i] = 0
	}
	g.count = 0
}

// Blocked reports whether the neighbour of (x, y) in dir is outside the board
// or occupied.
func (g *Grid) Blocked(x, y int, dir Direction) bool {
	dx, dy := dir.Delta()
	nx, ny := x+dx, y+dy
	if !g.InBounds(nx, ny) {
		return true
	}
	_, occupied := g.Occupant(nx, ny)
	return occupied
}

// Move shifts the occupant of (x, y) one cell in dir. A move into an
// occupied or out-of-bounds cell leaves the board untouched.
func (g *Grid) Move(x, y int, dir Direction) (int, int, bool) {
	id, ok := g.Occupant(x, y)
	if !ok {
		return x, y, false
	}
	dx, dy := dir.Delta()
	nx, ny := x+dx, y+dy
	if !g.Place(id, nx, ny) {
		return x, y, false
	}
	g.Remove(x, y)
	return nx, ny, true
}

// DeployRandom places id on a random free cell. Random probing is bounded by
// the board size; a linear scan from a random offset picks up the rest.
func (g *Grid) DeployRandom(rng *rand.Rand, id int) (int, int, error) {
	total := g.width * g.height
	if g.count >= total {
		return 0, 0, ErrGridFull
	}
	for attempt := 0; attempt < total; attempt++ {
		x, y := rng.Intn(g.width), rng.Intn(g.height)
		if g.Place(id, x, y) {
			return x, y, nil
		}
	}
	start := rng.Intn(total)
	for k := 0; k < total; k++ {
		i := (start + k) % total
		x, y := i%g.width, i/g.width
		if g.Place(id, x, y) {
			return x, y, nil
		}
	}
	return 0, 0, ErrGridFull
}

func (g *Grid) index(x, y int) int {
	return y*g.width + x
}
