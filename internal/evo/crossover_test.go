package evo

import (
	"errors"
	"math/bits"
	"math/rand"
	"testing"

	"lifesim/internal/genotype"
)

func valuesGenome(values ...uint32) genotype.Genome {
	return genotype.FromValues(values)
}

func TestCrossoverWithoutMutationCopiesParentSubsets(t *testing.T) {
	a := valuesGenome(1, 2, 3, 4, 5, 6)
	b := valuesGenome(100, 200, 300)
	rng := rand.New(rand.NewSource(42))

	child, err := Crossover(rng, a, b, 0)
	if err != nil {
		t.Fatalf("crossover: %v", err)
	}
	if child.Len() != 3+1 {
		t.Fatalf("unexpected child length: got=%d want=4", child.Len())
	}

	values := child.Values()
	fromA := map[uint32]bool{1: true, 2: true, 3: true, 4: true, 5: true, 6: true}
	seen := map[uint32]bool{}
	for i, v := range values[:3] {
		if !fromA[v] {
			t.Fatalf("child gene %d=%d not drawn from parent A", i, v)
		}
		if seen[v] {
			t.Fatalf("parent A gene %d drawn twice", v)
		}
		seen[v] = true
	}
	if v := values[3]; v != 100 && v != 200 && v != 300 {
		t.Fatalf("last child gene %d not drawn from parent B", v)
	}
}

func TestCrossoverLengthFormula(t *testing.T) {
	tests := []struct {
		lenA, lenB, want int
	}{
		{lenA: 1, lenB: 1, want: 2},
		{lenA: 2, lenB: 3, want: 2},
		{lenA: 8, lenB: 5, want: 6},
		{lenA: 17, lenB: 40, want: 28},
	}
	rng := rand.New(rand.NewSource(9))
	for _, tc := range tests {
		a, err := genotype.NewRandomGenome(rng, tc.lenA)
		if err != nil {
			t.Fatalf("genome a: %v", err)
		}
		b, err := genotype.NewRandomGenome(rng, tc.lenB)
		if err != nil {
			t.Fatalf("genome b: %v", err)
		}
		child, err := Crossover(rng, a, b, 0)
		if err != nil {
			t.Fatalf("crossover: %v", err)
		}
		if child.Len() != tc.want {
			t.Fatalf("lenA=%d lenB=%d: got=%d want=%d", tc.lenA, tc.lenB, child.Len(), tc.want)
		}
	}
}

func TestCrossoverFullMutationFlipsOneBitPerGene(t *testing.T) {
	a := valuesGenome(0, 0)
	b := valuesGenome(0, 0)
	child, err := Crossover(rand.New(rand.NewSource(4)), a, b, 1)
	if err != nil {
		t.Fatalf("crossover: %v", err)
	}
	for i, v := range child.Values() {
		if bits.OnesCount32(v) != 1 {
			t.Fatalf("gene %d: expected exactly one set bit, got %032b", i, v)
		}
	}
}

func TestCrossoverDoesNotTouchParents(t *testing.T) {
	a := valuesGenome(10, 20, 30, 40)
	b := valuesGenome(50, 60)
	if _, err := Crossover(rand.New(rand.NewSource(2)), a, b, 1); err != nil {
		t.Fatalf("crossover: %v", err)
	}
	want := []uint32{10, 20, 30, 40}
	for i, v := range a.Values() {
		if v != want[i] {
			t.Fatalf("parent A mutated at %d: %d", i, v)
		}
	}
}

func TestCrossoverDeterministicForSeed(t *testing.T) {
	a := valuesGenome(1, 2, 3, 4, 5, 6, 7, 8)
	b := valuesGenome(9, 10, 11, 12)
	c1, err := Crossover(rand.New(rand.NewSource(77)), a, b, 0.3)
	if err != nil {
		t.Fatalf("crossover 1: %v", err)
	}
	c2, err := Crossover(rand.New(rand.NewSource(77)), a, b, 0.3)
	if err != nil {
		t.Fatalf("crossover 2: %v", err)
	}
	v1, v2 := c1.Values(), c2.Values()
	for i := range v1 {
		if v1[i] != v2[i] {
			t.Fatalf("child differs at %d: %d vs %d", i, v1[i], v2[i])
		}
	}
}

func TestCrossoverRejectsEmptyParents(t *testing.T) {
	_, err := Crossover(rand.New(rand.NewSource(1)), genotype.Genome{}, valuesGenome(1), 0)
	if !errors.Is(err, genotype.ErrEmptyGenome) {
		t.Fatalf("expected empty genome error, got %v", err)
	}
}
