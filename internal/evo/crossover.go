package evo

import (
	"fmt"
	"math/rand"

	"lifesim/internal/genotype"
)

// Crossover builds a child genome from half of each parent's genes, sampled
// without replacement, followed by independent point mutation of every child
// gene. A's contribution precedes B's.
func Crossover(rng *rand.Rand, a, b genotype.Genome, mutationProbability float64) (genotype.Genome, error) {
	if rng == nil {
		return genotype.Genome{}, fmt.Errorf("random source is required")
	}
	if a.Len() == 0 || b.Len() == 0 {
		return genotype.Genome{}, fmt.Errorf("crossover parents: %w", genotype.ErrEmptyGenome)
	}

	fromA := sampleGenes(rng, a, half(a.Len()))
	fromB := sampleGenes(rng, b, half(b.Len()))

	genes := make([]genotype.Gene, 0, len(fromA)+len(fromB))
	genes = append(genes, fromA...)
	genes = append(genes, fromB...)
	for i, gene := range genes {
		mutated, err := gene.Mutate(rng, mutationProbability)
		if err != nil {
			return genotype.Genome{}, fmt.Errorf("mutate child gene %d: %w", i, err)
		}
		genes[i] = mutated
	}
	return genotype.NewGenome(genes)
}

func half(n int) int {
	if n/2 < 1 {
		return 1
	}
	return n / 2
}

// sampleGenes copies k distinct genes of g by value, in draw order.
func sampleGenes(rng *rand.Rand, g genotype.Genome, k int) []genotype.Gene {
	perm := rng.Perm(g.Len())
	out := make([]genotype.Gene, k)
	for i := 0; i < k; i++ {
		out[i] = g.Gene(perm[i])
	}
	return out
}
