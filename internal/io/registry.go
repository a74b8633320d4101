package io

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	ErrSensorExists     = errors.New("sensor already registered")
	ErrSensorNotFound   = errors.New("sensor not found")
	ErrActuatorExists   = errors.New("actuator already registered")
	ErrActuatorNotFound = errors.New("actuator not found")
)

type SensorSpec struct {
	Name        string
	Read        SensorFunc
	Description string
}

type ActuatorSpec struct {
	Name        string
	Act         ActuatorFunc
	Description string
}

// registry maps trimmed component names to specs.
type registry[S any] struct {
	errExists   error
	errNotFound error

	mu sync.RWMutex
	m  map[string]S
}

func newRegistry[S any](errExists, errNotFound error) *registry[S] {
	return &registry[S]{errExists: errExists, errNotFound: errNotFound, m: make(map[string]S)}
}

func (r *registry[S]) add(name string, spec S) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.m[name]; exists {
		return fmt.Errorf("%w: %s", r.errExists, name)
	}
	r.m[name] = spec
	return nil
}

func (r *registry[S]) get(name string) (S, error) {
	r.mu.RLock()
	spec, ok := r.m[strings.TrimSpace(name)]
	r.mu.RUnlock()
	if !ok {
		return spec, fmt.Errorf("%w: %s", r.errNotFound, name)
	}
	return spec, nil
}

func (r *registry[S]) lookup(name string) (S, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.m[name]
	return spec, ok
}

func (r *registry[S]) names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.m))
	for n := range r.m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (r *registry[S]) reset() {
	r.mu.Lock()
	r.m = make(map[string]S)
	r.mu.Unlock()
}

var (
	sensors   = newRegistry[SensorSpec](ErrSensorExists, ErrSensorNotFound)
	actuators = newRegistry[ActuatorSpec](ErrActuatorExists, ErrActuatorNotFound)
)

func init() {
	initializeDefaultComponents()
}

func RegisterSensor(name string, read SensorFunc) error {
	return RegisterSensorWithSpec(SensorSpec{Name: name, Read: read})
}

func RegisterSensorWithSpec(spec SensorSpec) error {
	spec.Name = strings.TrimSpace(spec.Name)
	if spec.Name == "" {
		return errors.New("sensor name is required")
	}
	if spec.Read == nil {
		return fmt.Errorf("sensor %s: read func is required", spec.Name)
	}
	return sensors.add(spec.Name, spec)
}

func ResolveSensor(name string) (Sensor, error) {
	spec, err := sensors.get(name)
	if err != nil {
		return Sensor{}, err
	}
	return Sensor{Name: spec.Name, Read: spec.Read}, nil
}

// ResolveSensors resolves names in order. The order is significant: gene
// indexes select sensors by position.
func ResolveSensors(names []string) ([]Sensor, error) {
	return resolveAll(names, ResolveSensor)
}

func DescribeSensor(name string) (SensorSpec, bool) {
	return sensors.lookup(name)
}

func ListSensors() []string {
	return sensors.names()
}

func RegisterActuator(name string, act ActuatorFunc) error {
	return RegisterActuatorWithSpec(ActuatorSpec{Name: name, Act: act})
}

func RegisterActuatorWithSpec(spec ActuatorSpec) error {
	spec.Name = strings.TrimSpace(spec.Name)
	if spec.Name == "" {
		return errors.New("actuator name is required")
	}
	if spec.Act == nil {
		return fmt.Errorf("actuator %s: act func is required", spec.Name)
	}
	return actuators.add(spec.Name, spec)
}

func ResolveActuator(name string) (Actuator, error) {
	spec, err := actuators.get(name)
	if err != nil {
		return Actuator{}, err
	}
	return Actuator{Name: spec.Name, Act: spec.Act}, nil
}

func ResolveActuators(names []string) ([]Actuator, error) {
	return resolveAll(names, ResolveActuator)
}

func DescribeActuator(name string) (ActuatorSpec, bool) {
	return actuators.lookup(name)
}

func ListActuators() []string {
	return actuators.names()
}

func resolveAll[C any](names []string, resolve func(string) (C, error)) ([]C, error) {
	out := make([]C, 0, len(names))
	for _, name := range names {
		c, err := resolve(name)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func resetRegistriesForTests() {
	sensors.reset()
	actuators.reset()
	initializeDefaultComponents()
}
