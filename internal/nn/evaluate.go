package nn

import (
	"errors"
	"fmt"
	"log/slog"

	"lifesim/internal/io"
)

var ErrActuatorPanic = errors.New("actuator panicked")

// Decision is the actuator chosen by one evaluation pass.
type Decision struct {
	Neuron     int
	Name       string
	Confidence float64

	act io.ActuatorFunc
}

// Evaluate runs one pass in topological order and returns the actuator with
// the strictly greatest confidence; the first maximum wins ties. ok is false
// when no actuator is live.
func (n *Network) Evaluate(env io.Env) (Decision, bool) {
	var (
		best Decision
		ok   bool
	)
	for _, i := range n.order {
		neuron := &n.neurons[i]
		if neuron.disabled {
			continue
		}
		switch neuron.Role {
		case RoleSensor:
			neuron.output = neuron.read(env)
		case RoleInternal:
			neuron.output = n.activation(n.weightedSum(neuron))
		case RoleActuator:
			confidence := n.activation(n.weightedSum(neuron))
			if !ok || confidence > best.Confidence {
				best = Decision{Neuron: i, Name: neuron.Name, Confidence: confidence, act: neuron.act}
				ok = true
			}
		}
	}
	return best, ok
}

func (n *Network) weightedSum(neuron *Neuron) float64 {
	sum := 0.0
	for _, tip := range neuron.incoming {
		upstream := &n.neurons[tip]
		if upstream.disabled {
			continue
		}
		sum += upstream.output * neuron.weights[tip]
	}
	return sum
}

// Tick evaluates the network and invokes the winning action once. Failures
// raised by the action, returned or panicked, are logged and swallowed.
func (n *Network) Tick(env io.Env, logger *slog.Logger) (Decision, bool) {
	decision, ok := n.Evaluate(env)
	if !ok {
		return decision, false
	}
	if err := invoke(decision.act, env); err != nil {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Debug("actuator failed", "actuator", decision.Name, "confidence", decision.Confidence, "error", err)
	}
	return decision, true
}

func invoke(act io.ActuatorFunc, env io.Env) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrActuatorPanic, r)
		}
	}()
	return act(env)
}
