package nn

import (
	"errors"
	"fmt"
)

// ErrInconsistentTopology means the arena holds a cycle, which Connect never
// allows. Seeing it is a bug.
var ErrInconsistentTopology = errors.New("inconsistent network topology")

// topologicalOrder runs Kahn's algorithm with a LIFO frontier seeded in arena
// order.
func topologicalOrder(neurons []Neuron) ([]int, error) {
	inDegree := make([]int, len(neurons))
	stack := make([]int, 0, len(neurons))
	for i, neuron := range neurons {
		inDegree[i] = len(neuron.incoming)
		if inDegree[i] == 0 {
			stack = append(stack, i)
		}
	}

	order := make([]int, 0, len(neurons))
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		order = append(order, i)
		for _, next := range neurons[i].outgoing {
			inDegree[next]--
			if inDegree[next] == 0 {
				stack = append(stack, next)
			}
		}
	}

	if len(order) != len(neurons) {
		return nil, fmt.Errorf("%w: ordered %d of %d neurons", ErrInconsistentTopology, len(order), len(neurons))
	}
	return order, nil
}

// prune disables neurons that cannot affect the chosen action and returns how
// many were disabled. Pruned neurons keep their edges for inspection.
func prune(neurons []Neuron) int {
	pruned := 0
	for i := range neurons {
		neuron := &neurons[i]
		in, out := len(neuron.incoming), len(neuron.outgoing)
		dead := in == 0 && out == 0
		switch neuron.Role {
		case RoleSensor, RoleInternal:
			dead = dead || out == 0
		case RoleActuator:
			dead = dead || in == 0
		}
		if dead {
			neuron.disabled = true
			pruned++
		}
	}
	return pruned
}
