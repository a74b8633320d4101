package genotype

import (
	"errors"
	"math"
	"math/bits"
	"math/rand"
	"testing"
)

func TestDecodeFieldRanges(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	values := []uint32{0, 0xFFFFFFFF, 0x80000000, 0x00800000, 0x7F7F7F7F}
	for i := 0; i < 2000; i++ {
		values = append(values, rng.Uint32())
	}

	for _, v := range values {
		c := Decode(v)
		if c.TipIndex < 0 || c.TipIndex > 127 || c.EndIndex < 0 || c.EndIndex > 127 {
			t.Fatalf("index out of range for %08x: %+v", v, c)
		}
		if c.Weight < -MaxWeight || c.Weight > MaxWeight {
			t.Fatalf("weight out of range for %08x: %f", v, c.Weight)
		}
		if again := Decode(v); again != c {
			t.Fatalf("decode not pure for %08x: %+v vs %+v", v, c, again)
		}
	}
}

func TestDecodeLayout(t *testing.T) {
	tests := []struct {
		name  string
		value uint32
		want  Connection
	}{
		{
			name:  "all-zero",
			value: 0,
			want:  Connection{TipKind: EndpointInternal, EndKind: EndpointInternal, Weight: -4},
		},
		{
			name:  "all-ones",
			value: 0xFFFFFFFF,
			want:  Connection{TipKind: EndpointIO, TipIndex: 127, EndKind: EndpointIO, EndIndex: 127, Weight: 4},
		},
		{
			name:  "sensor-to-actuator",
			value: 0x85_83_FFFF,
			want:  Connection{TipKind: EndpointIO, TipIndex: 5, EndKind: EndpointIO, EndIndex: 3, Weight: 4},
		},
		{
			name:  "internal-to-internal",
			value: 0x02_01_0000,
			want:  Connection{TipKind: EndpointInternal, TipIndex: 2, EndKind: EndpointInternal, EndIndex: 1, Weight: -4},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Decode(tc.value)
			if got.TipKind != tc.want.TipKind || got.TipIndex != tc.want.TipIndex ||
				got.EndKind != tc.want.EndKind || got.EndIndex != tc.want.EndIndex {
				t.Fatalf("unexpected endpoints: got=%+v want=%+v", got, tc.want)
			}
			if math.Abs(got.Weight-tc.want.Weight) > 1e-12 {
				t.Fatalf("unexpected weight: got=%f want=%f", got.Weight, tc.want.Weight)
			}
		})
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	v := Encode(EndpointIO, 9, EndpointInternal, 77, 0x1234)
	c := Decode(v)
	if c.TipKind != EndpointIO || c.TipIndex != 9 || c.EndKind != EndpointInternal || c.EndIndex != 77 {
		t.Fatalf("unexpected decode: %+v", c)
	}
	if v&0xFFFF != 0x1234 {
		t.Fatalf("unexpected weight code: %x", v&0xFFFF)
	}
}

func TestWeightFromCodeMidpoint(t *testing.T) {
	if got := WeightFromCode(0); got != -4 {
		t.Fatalf("unexpected min weight: %f", got)
	}
	if got := WeightFromCode(0xFFFF); got != 4 {
		t.Fatalf("unexpected max weight: %f", got)
	}
	if got := WeightFromCode(0x8000); math.Abs(got) > 0.001 {
		t.Fatalf("expected near-zero midpoint weight, got %f", got)
	}
}

func TestMutateValueProbabilityBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 500; i++ {
		v := rng.Uint32()
		mutated := MutateValue(rng, v, 1.0)
		if diff := bits.OnesCount32(v ^ mutated); diff != 1 {
			t.Fatalf("expected exactly one flipped bit, got %d (%08x -> %08x)", diff, v, mutated)
		}
		if same := MutateValue(rng, v, 0.0); same != v {
			t.Fatalf("expected unchanged value at p=0, got %08x -> %08x", v, same)
		}
	}
}

func TestMutateValueCoversAllBits(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	seen := make(map[int]bool)
	for i := 0; i < 5000 && len(seen) < GeneBits; i++ {
		flipped := MutateValue(rng, 0, 1.0)
		seen[bits.TrailingZeros32(flipped)] = true
	}
	if len(seen) != GeneBits {
		t.Fatalf("expected all %d bit positions to be chosen, saw %d", GeneBits, len(seen))
	}
}

func TestUnassignedGeneFailsLoudly(t *testing.T) {
	var g Gene
	if _, err := g.Value(); !errors.Is(err, ErrUnassignedGene) {
		t.Fatalf("expected unassigned value error, got %v", err)
	}
	if _, err := g.Decode(); !errors.Is(err, ErrUnassignedGene) {
		t.Fatalf("expected unassigned decode error, got %v", err)
	}
	if _, err := g.Mutate(rand.New(rand.NewSource(1)), 1); !errors.Is(err, ErrUnassignedGene) {
		t.Fatalf("expected unassigned mutate error, got %v", err)
	}
}

func TestGeneMutateDoesNotAliasOriginal(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	original := NewGene(0xDEADBEEF)
	mutated, err := original.Mutate(rng, 1)
	if err != nil {
		t.Fatalf("mutate: %v", err)
	}
	ov, _ := original.Value()
	mv, _ := mutated.Value()
	if ov != 0xDEADBEEF {
		t.Fatalf("original gene changed: %08x", ov)
	}
	if ov == mv {
		t.Fatal("expected mutated gene to differ")
	}
}
