package nn

import "lifesim/internal/io"

type Role uint8

const (
	RoleSensor Role = iota
	RoleInternal
	RoleActuator
)

func (r Role) String() string {
	switch r {
	case RoleSensor:
		return "sensor"
	case RoleInternal:
		return "internal"
	case RoleActuator:
		return "actuator"
	default:
		return "unknown"
	}
}

// Neuron is one record of a network arena. Adjacency is kept as arena
// indexes; the weight table is keyed by the upstream neuron's index and is
// owned by this neuron alone.
type Neuron struct {
	Name string
	Role Role

	read io.SensorFunc
	act  io.ActuatorFunc

	incoming []int
	outgoing []int
	weights  map[int]float64
	output   float64
	disabled bool
}

func newSensorNeuron(s io.Sensor) Neuron {
	return Neuron{Name: s.Name, Role: RoleSensor, read: s.Read}
}

func newActuatorNeuron(a io.Actuator) Neuron {
	return Neuron{Name: a.Name, Role: RoleActuator, act: a.Act, weights: map[int]float64{}}
}

func newInternalNeuron(name string) Neuron {
	return Neuron{Name: name, Role: RoleInternal, weights: map[int]float64{}}
}

func (n Neuron) Incoming() []int {
	return append([]int(nil), n.incoming...)
}

func (n Neuron) Outgoing() []int {
	return append([]int(nil), n.outgoing...)
}

// Weight returns the weight of the edge arriving from tip.
func (n Neuron) Weight(tip int) (float64, bool) {
	w, ok := n.weights[tip]
	return w, ok
}

// Output is the value produced on the last evaluation. Actuators report
// their confidence through Decision and keep zero here.
func (n Neuron) Output() float64 {
	return n.output
}

func (n Neuron) Disabled() bool {
	return n.disabled
}

func (n Neuron) hasEdgeFrom(tip int) bool {
	_, ok := n.weights[tip]
	return ok
}
