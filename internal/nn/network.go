package nn

import (
	"fmt"
	"strings"
)

type Edge struct {
	Tip    int
	End    int
	Weight float64
}

// Network is a compiled brain. Neurons live in an arena indexed by int;
// pruned neurons stay in the arena flagged as disabled.
type Network struct {
	neurons    []Neuron
	sensors    []int
	actuators  []int
	internals  []int
	order      []int
	edges      []Edge
	candidates []Candidate
	activation ActivationFunc
	report     BuildReport
}

func newNetwork(neurons []Neuron, activation ActivationFunc) *Network {
	n := &Network{neurons: neurons, activation: activation}
	for i, neuron := range neurons {
		switch neuron.Role {
		case RoleSensor:
			n.sensors = append(n.sensors, i)
		case RoleActuator:
			n.actuators = append(n.actuators, i)
		case RoleInternal:
			n.internals = append(n.internals, i)
		}
	}
	return n
}

func (n *Network) Len() int {
	return len(n.neurons)
}

func (n *Network) Neuron(i int) Neuron {
	return n.neurons[i]
}

// Index returns the arena index of the neuron called name.
func (n *Network) Index(name string) (int, bool) {
	for i, neuron := range n.neurons {
		if neuron.Name == name {
			return i, true
		}
	}
	return 0, false
}

// Order is the topological evaluation order over the whole arena.
func (n *Network) Order() []int {
	return append([]int(nil), n.order...)
}

// Edges lists accepted edges in the order they were added.
func (n *Network) Edges() []Edge {
	return append([]Edge(nil), n.edges...)
}

func (n *Network) Candidates() []Candidate {
	return append([]Candidate(nil), n.candidates...)
}

func (n *Network) Report() BuildReport {
	return n.report
}

// LiveEdges counts edges whose both endpoints survived pruning.
func (n *Network) LiveEdges() int {
	live := 0
	for _, e := range n.edges {
		if !n.neurons[e.Tip].disabled && !n.neurons[e.End].disabled {
			live++
		}
	}
	return live
}

// String dumps one "tip end weight" line per gene, rejected candidates
// included and marked with their reason.
func (n *Network) String() string {
	var b strings.Builder
	for _, c := range n.candidates {
		fmt.Fprintf(&b, "%s %s %.2f", n.neurons[c.Tip].Name, n.neurons[c.End].Name, c.Weight)
		if c.Outcome != Accepted {
			fmt.Fprintf(&b, " rejected=%s", c.Outcome)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
