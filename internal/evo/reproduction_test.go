package evo

import (
	"errors"
	"math/rand"
	"testing"

	"lifesim/internal/genotype"
)

func TestPairParentsDistinctAndRecycled(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	pairs, err := PairParents(rng, 5, 12)
	if err != nil {
		t.Fatalf("pair parents: %v", err)
	}
	if len(pairs) != 12 {
		t.Fatalf("unexpected pair count: %d", len(pairs))
	}
	for _, p := range pairs {
		if p.A == p.B {
			t.Fatalf("pair uses the same parent twice: %+v", p)
		}
		if p.A < 0 || p.A >= 5 || p.B < 0 || p.B >= 5 {
			t.Fatalf("pair index out of range: %+v", p)
		}
	}

	firstCycle := map[int]bool{}
	for _, p := range pairs[:2] {
		firstCycle[p.A] = true
		firstCycle[p.B] = true
	}
	if len(firstCycle) != 4 {
		t.Fatalf("expected parents drawn without replacement before recycling, got %v", pairs[:2])
	}
}

func TestPairParentsRequiresTwoSurvivors(t *testing.T) {
	_, err := PairParents(rand.New(rand.NewSource(1)), 1, 3)
	if !errors.Is(err, ErrNotEnoughParents) {
		t.Fatalf("expected not enough parents error, got %v", err)
	}
}

func TestReproduceFreshMindsThenChildren(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	parents := []genotype.Genome{
		genotype.FromValues([]uint32{1, 2, 3, 4}),
		genotype.FromValues([]uint32{5, 6, 7, 8}),
		genotype.FromValues([]uint32{9, 10, 11, 12}),
	}
	out, err := Reproduce(rng, parents, ReproductionConfig{
		PopulationSize: 10,
		FreshMinds:     2,
		BrainSize:      4,
	})
	if err != nil {
		t.Fatalf("reproduce: %v", err)
	}
	if len(out) != 10 {
		t.Fatalf("unexpected offspring count: %d", len(out))
	}
	for i, o := range out {
		if i < 2 {
			if o.Operation != OperationFresh || o.ParentA != -1 || o.Genome.Len() != 4 {
				t.Fatalf("offspring %d: expected fresh mind, got %+v", i, o)
			}
			continue
		}
		if o.Operation != OperationCrossover {
			t.Fatalf("offspring %d: expected crossover, got %s", i, o.Operation)
		}
		if o.Genome.Len() != 4 {
			t.Fatalf("offspring %d: unexpected child length %d", i, o.Genome.Len())
		}
	}
}

func TestReproduceExtinctPopulation(t *testing.T) {
	_, err := Reproduce(rand.New(rand.NewSource(1)), []genotype.Genome{genotype.FromValues([]uint32{1})}, ReproductionConfig{PopulationSize: 4, BrainSize: 1})
	if !errors.Is(err, ErrNotEnoughParents) {
		t.Fatalf("expected not enough parents error, got %v", err)
	}
}
