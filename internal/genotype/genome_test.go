package genotype

import (
	"errors"
	"math/rand"
	"testing"
)

func TestNewRandomGenome(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	g, err := NewRandomGenome(rng, 16)
	if err != nil {
		t.Fatalf("new random genome: %v", err)
	}
	if g.Len() != 16 {
		t.Fatalf("unexpected length: %d", g.Len())
	}
	for i := 0; i < g.Len(); i++ {
		if !g.Gene(i).Assigned() {
			t.Fatalf("gene %d unassigned", i)
		}
	}
}

func TestNewRandomGenomeRequiresSize(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, size := range []int{0, -3} {
		if _, err := NewRandomGenome(rng, size); !errors.Is(err, ErrGenomeSizeRequired) {
			t.Fatalf("size=%d: expected size error, got %v", size, err)
		}
	}
}

func TestNewRandomGenomeDeterministicForSeed(t *testing.T) {
	a, err := NewRandomGenome(rand.New(rand.NewSource(99)), 8)
	if err != nil {
		t.Fatalf("genome a: %v", err)
	}
	b, err := NewRandomGenome(rand.New(rand.NewSource(99)), 8)
	if err != nil {
		t.Fatalf("genome b: %v", err)
	}
	av, bv := a.Values(), b.Values()
	for i := range av {
		if av[i] != bv[i] {
			t.Fatalf("gene %d differs: %08x vs %08x", i, av[i], bv[i])
		}
	}
}

func TestNewGenomeRejectsUnassignedGenes(t *testing.T) {
	_, err := NewGenome([]Gene{NewGene(1), {}})
	if !errors.Is(err, ErrUnassignedGene) {
		t.Fatalf("expected unassigned gene error, got %v", err)
	}
}

func TestNewGenomeCopiesInput(t *testing.T) {
	genes := []Gene{NewGene(1), NewGene(2)}
	g, err := NewGenome(genes)
	if err != nil {
		t.Fatalf("new genome: %v", err)
	}
	genes[0] = NewGene(42)
	if v, _ := g.Gene(0).Value(); v != 1 {
		t.Fatalf("genome aliased input slice: %d", v)
	}
	out := g.Genes()
	out[1] = NewGene(7)
	if v, _ := g.Gene(1).Value(); v != 2 {
		t.Fatalf("genome aliased output slice: %d", v)
	}
}

func TestFromValuesPreservesOrder(t *testing.T) {
	values := []uint32{5, 1, 9, 3}
	g := FromValues(values)
	got := g.Values()
	for i := range values {
		if got[i] != values[i] {
			t.Fatalf("order not preserved at %d: %d vs %d", i, got[i], values[i])
		}
	}
}

func TestGenomeColor(t *testing.T) {
	r, gr, b := FromValues([]uint32{0xFFFFFFFF}).Color()
	if r != 255 || gr != 255 || b != 255 {
		t.Fatalf("unexpected color for all-ones genome: %d %d %d", r, gr, b)
	}
	r, gr, b = FromValues([]uint32{0}).Color()
	if r != 0 || gr != 0 || b != 0 {
		t.Fatalf("unexpected color for zero genome: %d %d %d", r, gr, b)
	}
}
