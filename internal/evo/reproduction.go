package evo

import (
	"errors"
	"fmt"
	"math/rand"

	"lifesim/internal/genotype"
)

const (
	OperationFresh     = "fresh"
	OperationCrossover = "crossover"
	OperationSeed      = "seed"
)

var ErrNotEnoughParents = errors.New("at least two parents are required")

// Pair holds indexes into a survivor slice.
type Pair struct {
	A int
	B int
}

// PairParents draws count parent pairs from n survivors. Parents are drawn
// without replacement; once fewer than two remain, the used ones are
// returned to the pool.
func PairParents(rng *rand.Rand, n, count int) ([]Pair, error) {
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if n < 2 {
		return nil, fmt.Errorf("%w: survivors=%d", ErrNotEnoughParents, n)
	}

	pool := make([]int, n)
	for i := range pool {
		pool[i] = i
	}
	used := make([]int, 0, n)
	pairs := make([]Pair, 0, count)

	for len(pairs) < count {
		if len(pool) < 2 {
			pool = append(pool, used...)
			used = used[:0]
		}
		i := rng.Intn(len(pool))
		j := rng.Intn(len(pool) - 1)
		if j >= i {
			j++
		}
		a, b := pool[i], pool[j]
		pairs = append(pairs, Pair{A: a, B: b})
		used = append(used, a, b)
		pool = removeIndexes(pool, i, j)
	}
	return pairs, nil
}

func removeIndexes(pool []int, i, j int) []int {
	if i < j {
		i, j = j, i
	}
	pool = append(pool[:i], pool[i+1:]...)
	return append(pool[:j], pool[j+1:]...)
}

// ReproductionConfig sizes the next generation.
type ReproductionConfig struct {
	PopulationSize      int
	FreshMinds          int
	BrainSize           int
	MutationProbability float64
}

// Offspring is one member of the next generation. Parent indexes refer to the
// parents slice handed to Reproduce and are -1 for fresh genomes.
type Offspring struct {
	Genome    genotype.Genome
	ParentA   int
	ParentB   int
	Operation string
}

// Reproduce fills a generation with FreshMinds random genomes followed by
// crossover children of randomly paired parents.
func Reproduce(rng *rand.Rand, parents []genotype.Genome, cfg ReproductionConfig) ([]Offspring, error) {
	if cfg.PopulationSize <= 0 {
		return nil, fmt.Errorf("population size must be > 0")
	}
	if len(parents) < 2 {
		return nil, fmt.Errorf("%w: survivors=%d", ErrNotEnoughParents, len(parents))
	}

	fresh := cfg.FreshMinds
	if fresh > cfg.PopulationSize {
		fresh = cfg.PopulationSize
	}
	out := make([]Offspring, 0, cfg.PopulationSize)
	for i := 0; i < fresh; i++ {
		g, err := genotype.NewRandomGenome(rng, cfg.BrainSize)
		if err != nil {
			return nil, fmt.Errorf("fresh mind %d: %w", i, err)
		}
		out = append(out, Offspring{Genome: g, ParentA: -1, ParentB: -1, Operation: OperationFresh})
	}

	pairs, err := PairParents(rng, len(parents), cfg.PopulationSize-len(out))
	if err != nil {
		return nil, err
	}
	for _, p := range pairs {
		child, err := Crossover(rng, parents[p.A], parents[p.B], cfg.MutationProbability)
		if err != nil {
			return nil, fmt.Errorf("crossover %d x %d: %w", p.A, p.B, err)
		}
		out = append(out, Offspring{Genome: child, ParentA: p.A, ParentB: p.B, Operation: OperationCrossover})
	}
	return out, nil
}
