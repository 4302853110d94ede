// Package envs provides simple built-in environments.
package envs

import (
	"errors"
	"fmt"

	"github.com/unixpickle/anygym"
	"github.com/unixpickle/anygym/anyspace"
)

// Counter actions.
const (
	CounterKeep = iota
	CounterIncrement
	CounterDecrement
)

// Counter is an environment whose state is a counter.
//
// Actions keep, increment, or decrement the counter (modulo
// MaxValue).
// The reward is the distance from the counter to Target,
// and the episode ends when the counter hits Target.
type Counter struct {
	Start    int
	MaxValue int
	Target   int

	value   int
	isReset bool
}

// NewCounter creates a Counter.
func NewCounter(start, maxValue, target int) *Counter {
	return &Counter{Start: start, MaxValue: maxValue, Target: target}
}

// ObservationSpace returns Discrete(MaxValue).
func (c *Counter) ObservationSpace() anyspace.Space {
	return anyspace.NewDiscrete(c.MaxValue)
}

// ActionSpace returns Discrete(3).
func (c *Counter) ActionSpace() anyspace.Space {
	return anyspace.NewDiscrete(3)
}

// Reset sets the counter back to Start.
func (c *Counter) Reset() (interface{}, error) {
	c.isReset = true
	c.value = c.Start
	return c.value, nil
}

// Step applies an action to the counter.
func (c *Counter) Step(action interface{}) (obs interface{}, reward float64,
	done bool, info anygym.Info, err error) {
	if !c.isReset {
		return nil, 0, false, nil, errors.New("step counter: need to reset before stepping")
	}
	a, ok := anyspace.ToInt(action)
	if !ok {
		return nil, 0, false, nil, fmt.Errorf("step counter: bad action %v", action)
	}
	switch a {
	case CounterIncrement:
		c.value++
	case CounterDecrement:
		c.value--
	}
	c.value = ((c.value % c.MaxValue) + c.MaxValue) % c.MaxValue
	dist := c.value - c.Target
	if dist < 0 {
		dist = -dist
	}
	return c.value, float64(dist), c.value == c.Target, anygym.Info{}, nil
}
