package nn

import (
	"fmt"

	"lifesim/internal/genotype"
)

// Rejection is the outcome of a connection attempt. Accepted is the only
// outcome that records an edge.
type Rejection uint8

const (
	Accepted Rejection = iota
	RejectActuatorTip
	RejectSensorEnd
	RejectSelfLoop
	RejectReverseEdge
	RejectDuplicateEdge
	RejectCycle
	rejectionCount
)

func (r Rejection) String() string {
	switch r {
	case Accepted:
		return "accepted"
	case RejectActuatorTip:
		return "actuator_tip"
	case RejectSensorEnd:
		return "sensor_end"
	case RejectSelfLoop:
		return "self_loop"
	case RejectReverseEdge:
		return "reverse_edge"
	case RejectDuplicateEdge:
		return "duplicate_edge"
	case RejectCycle:
		return "cycle"
	default:
		return "unknown"
	}
}

// Rejections lists every rejection reason in check order.
func Rejections() []Rejection {
	return []Rejection{RejectActuatorTip, RejectSensorEnd, RejectSelfLoop, RejectReverseEdge, RejectDuplicateEdge, RejectCycle}
}

type BuildConfig struct {
	InternalCount int
	Activation    string
}

// Candidate is the connection one gene resolved to, with its outcome.
type Candidate struct {
	Tip     int
	End     int
	Weight  float64
	Outcome Rejection
}

type BuildReport struct {
	Genes    int
	Accepted int
	Rejected [rejectionCount]int
	Pruned   int
}

func (r BuildReport) RejectedTotal() int {
	total := 0
	for _, n := range r.Rejected {
		total += n
	}
	return total
}

// Build compiles genome into an acyclic, ordered and pruned network over a
// fresh arena from catalog. Genes whose connection is rejected are dropped
// silently and only show up in the report.
func Build(genome genotype.Genome, catalog Catalog, cfg BuildConfig) (*Network, error) {
	if catalog.SensorCount() == 0 || catalog.ActuatorCount() == 0 {
		return nil, ErrEmptyCatalogPool
	}
	activation, err := GetActivation(cfg.Activation)
	if err != nil {
		return nil, err
	}

	n := newNetwork(catalog.Fresh(cfg.InternalCount), activation)
	for i := 0; i < genome.Len(); i++ {
		conn, err := genome.Gene(i).Decode()
		if err != nil {
			return nil, fmt.Errorf("gene %d: %w", i, err)
		}
		tip, end := n.resolve(conn)
		outcome := n.Connect(tip, end, conn.Weight)
		n.candidates = append(n.candidates, Candidate{Tip: tip, End: end, Weight: conn.Weight, Outcome: outcome})
		n.report.Genes++
		if outcome == Accepted {
			n.report.Accepted++
		} else {
			n.report.Rejected[outcome]++
		}
	}

	order, err := topologicalOrder(n.neurons)
	if err != nil {
		return nil, err
	}
	n.order = order
	n.report.Pruned = prune(n.neurons)
	return n, nil
}

// resolve maps a decoded gene onto arena indexes. The internal pool is only
// used when it is selected and non-empty.
func (n *Network) resolve(conn genotype.Connection) (int, int) {
	tipPool := n.internals
	if conn.TipKind == genotype.EndpointIO || len(n.internals) == 0 {
		tipPool = n.sensors
	}
	endPool := n.internals
	if conn.EndKind == genotype.EndpointIO || len(n.internals) == 0 {
		endPool = n.actuators
	}
	tip := tipPool[conn.TipIndex%len(tipPool)]
	end := endPool[conn.EndIndex%len(endPool)]
	return tip, end
}

// Connect adds the edge tip->end with weight unless one of the connection
// rules rejects it. The network is acyclic after every call.
func (n *Network) Connect(tip, end int, weight float64) Rejection {
	t, e := &n.neurons[tip], &n.neurons[end]
	switch {
	case t.Role == RoleActuator:
		return RejectActuatorTip
	case e.Role == RoleSensor:
		return RejectSensorEnd
	case tip == end:
		return RejectSelfLoop
	case t.hasEdgeFrom(end):
		return RejectReverseEdge
	case e.hasEdgeFrom(tip):
		return RejectDuplicateEdge
	}

	t.outgoing = append(t.outgoing, end)
	e.incoming = append(e.incoming, tip)
	if n.hasCycleFrom(tip) {
		t.outgoing = t.outgoing[:len(t.outgoing)-1]
		e.incoming = e.incoming[:len(e.incoming)-1]
		return RejectCycle
	}
	e.weights[tip] = weight
	n.edges = append(n.edges, Edge{Tip: tip, End: end, Weight: weight})
	return Accepted
}

// hasCycleFrom runs a depth-first search from start; reaching a neuron that is
// still on the recursion stack is a cycle.
func (n *Network) hasCycleFrom(start int) bool {
	visited := make([]bool, len(n.neurons))
	onStack := make([]bool, len(n.neurons))
	var visit func(int) bool
	visit = func(i int) bool {
		visited[i] = true
		onStack[i] = true
		for _, next := range n.neurons[i].outgoing {
			if onStack[next] {
				return true
			}
			if !visited[next] && visit(next) {
				return true
			}
		}
		onStack[i] = false
		return false
	}
	return visit(start)
}
