package nn

import (
	"errors"
	"fmt"

	"lifesim/internal/io"
)

var ErrEmptyCatalogPool = errors.New("catalog requires at least one sensor and one actuator")

// Catalog is the fixed menu of sensors and actuators a network is built from.
// Pool order is significant: gene indexes select entries by position.
type Catalog struct {
	sensors   []io.Sensor
	actuators []io.Actuator
}

func NewCatalog(sensors []io.Sensor, actuators []io.Actuator) (Catalog, error) {
	if len(sensors) == 0 || len(actuators) == 0 {
		return Catalog{}, fmt.Errorf("%w: sensors=%d actuators=%d", ErrEmptyCatalogPool, len(sensors), len(actuators))
	}
	seen := make(map[string]struct{}, len(sensors)+len(actuators))
	for _, s := range sensors {
		if s.Read == nil {
			return Catalog{}, fmt.Errorf("sensor %q has no read func", s.Name)
		}
		if _, dup := seen[s.Name]; dup {
			return Catalog{}, fmt.Errorf("duplicate neuron name in catalog: %s", s.Name)
		}
		seen[s.Name] = struct{}{}
	}
	for _, a := range actuators {
		if a.Act == nil {
			return Catalog{}, fmt.Errorf("actuator %q has no act func", a.Name)
		}
		if _, dup := seen[a.Name]; dup {
			return Catalog{}, fmt.Errorf("duplicate neuron name in catalog: %s", a.Name)
		}
		seen[a.Name] = struct{}{}
	}
	return Catalog{
		sensors:   append([]io.Sensor(nil), sensors...),
		actuators: append([]io.Actuator(nil), actuators...),
	}, nil
}

// CatalogFromNames resolves sensor and actuator names against the io
// registry. Empty lists select the default pools.
func CatalogFromNames(sensorNames, actuatorNames []string) (Catalog, error) {
	if len(sensorNames) == 0 {
		sensorNames = io.DefaultSensorNames()
	}
	if len(actuatorNames) == 0 {
		actuatorNames = io.DefaultActuatorNames()
	}
	sensors, err := io.ResolveSensors(sensorNames)
	if err != nil {
		return Catalog{}, err
	}
	actuators, err := io.ResolveActuators(actuatorNames)
	if err != nil {
		return Catalog{}, err
	}
	return NewCatalog(sensors, actuators)
}

func DefaultCatalog() (Catalog, error) {
	return CatalogFromNames(nil, nil)
}

func (c Catalog) SensorCount() int {
	return len(c.sensors)
}

func (c Catalog) ActuatorCount() int {
	return len(c.actuators)
}

// SensorNames lists the sensor pool in gene index order.
func (c Catalog) SensorNames() []string {
	names := make([]string, len(c.sensors))
	for i, s := range c.sensors {
		names[i] = s.Name
	}
	return names
}

func (c Catalog) ActuatorNames() []string {
	names := make([]string, len(c.actuators))
	for i, a := range c.actuators {
		names[i] = a.Name
	}
	return names
}

// Fresh returns a new unconnected arena: sensors, then actuators, then
// internalCount internal neurons named internal_1..internal_n. Nothing in the
// result is shared with earlier arenas.
func (c Catalog) Fresh(internalCount int) []Neuron {
	if internalCount < 0 {
		internalCount = 0
	}
	neurons := make([]Neuron, 0, len(c.sensors)+len(c.actuators)+internalCount)
	for _, s := range c.sensors {
		neurons = append(neurons, newSensorNeuron(s))
	}
	for _, a := range c.actuators {
		neurons = append(neurons, newActuatorNeuron(a))
	}
	for i := 1; i <= internalCount; i++ {
		neurons = append(neurons, newInternalNeuron(fmt.Sprintf("internal_%d", i)))
	}
	return neurons
}
