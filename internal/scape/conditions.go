package scape

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrConditionNotFound = errors.New("selection condition not found")
	ErrConditionExists   = errors.New("selection condition already registered")
)

// Condition decides whether an agent standing on (x, y) of a w x h board
// survives natural selection.
type Condition func(x, y, w, h int) bool

var conditionRegistry = struct {
	mu sync.RWMutex
	m  map[string]Condition
}{
	m: make(map[string]Condition),
}

func init() {
	MustRegisterCondition("center_zone", func(x, y, w, h int) bool {
		return x >= w/3 && x < 2*w/3 && y >= h/3 && y < 2*h/3
	})
	MustRegisterCondition("bottom_right_square", func(x, y, w, h int) bool {
		return x >= 2*w/3 && y >= 2*h/3
	})
	MustRegisterCondition("corners", func(x, y, w, h int) bool {
		nearX := x < w/6 || x >= w-w/6
		nearY := y < h/6 || y >= h-h/6
		return nearX && nearY
	})
	MustRegisterCondition("right_edge", func(x, _, w, _ int) bool {
		return x >= w-w/8
	})
	MustRegisterCondition("left_edge", func(x, _, w, _ int) bool {
		return x < w/8
	})
	MustRegisterCondition("upper_left_square", func(x, y, w, h int) bool {
		return x < w/3 && y < h/3
	})
	// Deliberately asymmetric so a transposed or flipped board is visible.
	MustRegisterCondition("almost_p", func(x, y, w, h int) bool {
		return (x < w/3 && y < h/3) || x < w/12
	})
}

func RegisterCondition(name string, cond Condition) error {
	if name == "" {
		return errors.New("condition name is required")
	}
	if cond == nil {
		return errors.New("condition func is required")
	}
	conditionRegistry.mu.Lock()
	defer conditionRegistry.mu.Unlock()
	if _, exists := conditionRegistry.m[name]; exists {
		return fmt.Errorf("%w: %s", ErrConditionExists, name)
	}
	conditionRegistry.m[name] = cond
	return nil
}

func MustRegisterCondition(name string, cond Condition) {
	if err := RegisterCondition(name, cond); err != nil {
		panic(err)
	}
}

func LookupCondition(name string) (Condition, error) {
	conditionRegistry.mu.RLock()
	defer conditionRegistry.mu.RUnlock()
	cond, ok := conditionRegistry.m[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrConditionNotFound, name)
	}
	return cond, nil
}

func ConditionNames() []string {
	conditionRegistry.mu.RLock()
	defer conditionRegistry.mu.RUnlock()
	names := make([]string, 0, len(conditionRegistry.m))
	for name := range conditionRegistry.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Mask is a condition evaluated once for every cell of a board.
type Mask struct {
	width  int
	height int
	safe   []bool
	count  int
}

func NewMask(cond Condition, width, height int) *Mask {
	m := &Mask{width: width, height: height, safe: make([]bool, width*height)}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if cond(x, y, width, height) {
				m.safe[y*width+x] = true
				m.count++
			}
		}
	}
	return m
}

func (m *Mask) Safe(x, y int) bool {
	if x < 0 || x >= m.width || y < 0 || y >= m.height {
		return false
	}
	return m.safe[y*m.width+x]
}

// SafeCells is the number of cells satisfying the condition.
func (m *Mask) SafeCells() int {
	return m.count
}

// PrimarySurvivalRate is the percentage of cells satisfying the condition,
// the survival rate expected from agents that never move.
func (m *Mask) PrimarySurvivalRate() float64 {
	total := m.width * m.height
	if total == 0 {
		return 0
	}
	return float64(m.count) / float64(total) * 100
}
