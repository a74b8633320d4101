package genotype

import (
	"errors"
	"fmt"
	"math/rand"
)

const (
	GeneBits = 32

	// MaxWeight bounds the decoded connection weight to [-MaxWeight, MaxWeight].
	MaxWeight = 4.0

	indexMask  = 0x7F
	weightMask = 0xFFFF
)

var ErrUnassignedGene = errors.New("gene value is unassigned")

// EndpointKind selects the neuron pool a connection endpoint is resolved from.
type EndpointKind int

const (
	EndpointInternal EndpointKind = iota
	// EndpointIO is the sensor pool for a tip and the actuator pool for an end.
	EndpointIO
)

func (k EndpointKind) String() string {
	if k == EndpointIO {
		return "io"
	}
	return "internal"
}

// Connection is the decoded form of a gene.
type Connection struct {
	TipKind  EndpointKind
	TipIndex int
	EndKind  EndpointKind
	EndIndex int
	Weight   float64
}

// Gene is a single 32-bit connection descriptor. The zero Gene is unassigned
// and every accessor on it fails.
type Gene struct {
	value    uint32
	assigned bool
}

func NewGene(value uint32) Gene {
	return Gene{value: value, assigned: true}
}

// RandomGene draws a uniform 32-bit gene.
func RandomGene(rng *rand.Rand) Gene {
	return NewGene(rng.Uint32())
}

func (g Gene) Assigned() bool {
	return g.assigned
}

func (g Gene) Value() (uint32, error) {
	if !g.assigned {
		return 0, ErrUnassignedGene
	}
	return g.value, nil
}

func (g Gene) Decode() (Connection, error) {
	if !g.assigned {
		return Connection{}, ErrUnassignedGene
	}
	return Decode(g.value), nil
}

// Mutate returns the gene with at most one bit flipped, see MutateValue.
func (g Gene) Mutate(rng *rand.Rand, probability float64) (Gene, error) {
	if !g.assigned {
		return Gene{}, ErrUnassignedGene
	}
	return NewGene(MutateValue(rng, g.value, probability)), nil
}

func (g Gene) String() string {
	if !g.assigned {
		return "GENE <unassigned>"
	}
	c := Decode(g.value)
	return fmt.Sprintf("GENE %08x tip=%s:%d end=%s:%d weight=%.4f", g.value, c.TipKind, c.TipIndex, c.EndKind, c.EndIndex, c.Weight)
}

// Decode extracts the connection fields of value. Layout, MSB first:
// tip kind (1), tip index (7), end kind (1), end index (7), weight code (16).
func Decode(value uint32) Connection {
	return Connection{
		TipKind:  kindBit(value >> 31),
		TipIndex: int((value >> 24) & indexMask),
		EndKind:  kindBit(value >> 23),
		EndIndex: int((value >> 16) & indexMask),
		Weight:   WeightFromCode(uint16(value & weightMask)),
	}
}

// Encode is the inverse of Decode for the weight code it is given.
func Encode(tipKind EndpointKind, tipIndex int, endKind EndpointKind, endIndex int, weightCode uint16) uint32 {
	var v uint32
	if tipKind == EndpointIO {
		v |= 1 << 31
	}
	v |= uint32(tipIndex&indexMask) << 24
	if endKind == EndpointIO {
		v |= 1 << 23
	}
	v |= uint32(endIndex&indexMask) << 16
	v |= uint32(weightCode)
	return v
}

func WeightFromCode(code uint16) float64 {
	return float64(code)/float64(weightMask)*2*MaxWeight - MaxWeight
}

// MutateValue flips exactly one uniformly chosen bit with the given
// probability and otherwise returns value unchanged.
func MutateValue(rng *rand.Rand, value uint32, probability float64) uint32 {
	if rng.Float64() < probability {
		value ^= 1 << uint(rng.Intn(GeneBits))
	}
	return value
}

func kindBit(bit uint32) EndpointKind {
	if bit&1 == 1 {
		return EndpointIO
	}
	return EndpointInternal
}
