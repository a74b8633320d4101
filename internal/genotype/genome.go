package genotype

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
)

var (
	ErrGenomeSizeRequired = errors.New("genome size is required to randomize")
	ErrEmptyGenome        = errors.New("genome has no genes")
)

// Genome is an ordered, fixed-length sequence of genes. It is immutable after
// construction; evolution produces new genomes instead of editing old ones.
type Genome struct {
	genes []Gene
}

// NewRandomGenome builds a genome of size freshly drawn genes.
func NewRandomGenome(rng *rand.Rand, size int) (Genome, error) {
	if size <= 0 {
		return Genome{}, fmt.Errorf("%w: size=%d", ErrGenomeSizeRequired, size)
	}
	if rng == nil {
		return Genome{}, fmt.Errorf("random source is required")
	}
	genes := make([]Gene, size)
	for i := range genes {
		genes[i] = RandomGene(rng)
	}
	return Genome{genes: genes}, nil
}

// NewGenome builds a genome from an explicit gene sequence. Every gene must
// carry a value.
func NewGenome(genes []Gene) (Genome, error) {
	for i, g := range genes {
		if !g.Assigned() {
			return Genome{}, fmt.Errorf("gene %d: %w", i, ErrUnassignedGene)
		}
	}
	return Genome{genes: append([]Gene(nil), genes...)}, nil
}

// FromValues builds a genome from raw gene values, the serialized form.
func FromValues(values []uint32) Genome {
	genes := make([]Gene, len(values))
	for i, v := range values {
		genes[i] = NewGene(v)
	}
	return Genome{genes: genes}
}

func (g Genome) Len() int {
	return len(g.genes)
}

func (g Genome) Gene(i int) Gene {
	return g.genes[i]
}

// Genes returns a copy of the gene sequence in stored order.
func (g Genome) Genes() []Gene {
	return append([]Gene(nil), g.genes...)
}

// Values returns the raw gene values in stored order.
func (g Genome) Values() []uint32 {
	out := make([]uint32, len(g.genes))
	for i, gene := range g.genes {
		out[i] = gene.value
	}
	return out
}

// Color maps the mean gene value to an RGB triple, ten bits per channel
// scaled to a byte.
func (g Genome) Color() (r, gr, b uint8) {
	if len(g.genes) == 0 {
		return 0, 0, 0
	}
	var sum uint64
	for _, gene := range g.genes {
		sum += uint64(gene.value)
	}
	avg := sum / uint64(len(g.genes))
	channel := func(shift uint) uint8 {
		bits := (avg >> shift) & 0x3FF
		return uint8(bits * 255 / 0x3FF)
	}
	return channel(22), channel(12), channel(2)
}

func (g Genome) String() string {
	lines := make([]string, len(g.genes))
	for i, gene := range g.genes {
		lines[i] = gene.String()
	}
	return strings.Join(lines, "\n")
}
