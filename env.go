package anygym

import (
	"io"

	"github.com/unixpickle/anygym/anyspace"
)

// Info stores auxiliary information from a step.
type Info map[string]interface{}

// Env is an instance of an RL environment.
//
// Observations and actions are values from the
// corresponding anyspace.Space.
type Env interface {
	ObservationSpace() anyspace.Space
	ActionSpace() anyspace.Space

	Reset() (observation interface{}, err error)
	Step(action interface{}) (observation interface{}, reward float64,
		done bool, info Info, err error)
}

// A Maker creates a new environment.
type Maker func() (Env, error)

// An Unwrapper is an Env which wraps another Env.
//
// Capability checks (e.g. AsSeeder) look through chains
// of Unwrappers.
type Unwrapper interface {
	Unwrap() Env
}

// A Seeder is an Env with a random seed.
type Seeder interface {
	Seed(seed int64) error
}

// A Renderer is an Env which can produce an RGB image of
// its current state.
//
// The resulting tensor has shape [height, width, 3].
type Renderer interface {
	Render() (*anyspace.Tensor, error)
}

// KeyMap maps key combinations to actions.
//
// Keys are produced by anyplay.Combo.
type KeyMap map[string]interface{}

// A KeysToActioner is an Env which knows how a human
// should control it with a keyboard.
type KeysToActioner interface {
	KeysToAction() KeyMap
}

// A LifeCounter is an Env which tracks a number of lives
// within an episode, as many Atari games do.
type LifeCounter interface {
	Lives() int
}

// AsSeeder finds the outermost Seeder in a chain of
// wrapped environments.
func AsSeeder(e Env) (Seeder, bool) {
	res, ok := find(e, func(e Env) bool {
		_, ok := e.(Seeder)
		return ok
	})
	if !ok {
		return nil, false
	}
	return res.(Seeder), true
}

// AsRenderer finds the outermost Renderer in a chain of
// wrapped environments.
func AsRenderer(e Env) (Renderer, bool) {
	res, ok := find(e, func(e Env) bool {
		_, ok := e.(Renderer)
		return ok
	})
	if !ok {
		return nil, false
	}
	return res.(Renderer), true
}

// AsKeysToActioner finds the outermost KeysToActioner in
// a chain of wrapped environments.
func AsKeysToActioner(e Env) (KeysToActioner, bool) {
	res, ok := find(e, func(e Env) bool {
		_, ok := e.(KeysToActioner)
		return ok
	})
	if !ok {
		return nil, false
	}
	return res.(KeysToActioner), true
}

// AsLifeCounter finds the outermost LifeCounter in a
// chain of wrapped environments.
func AsLifeCounter(e Env) (LifeCounter, bool) {
	res, ok := find(e, func(e Env) bool {
		_, ok := e.(LifeCounter)
		return ok
	})
	if !ok {
		return nil, false
	}
	return res.(LifeCounter), true
}

// AsCloser finds the outermost io.Closer in a chain of
// wrapped environments.
func AsCloser(e Env) (io.Closer, bool) {
	res, ok := find(e, func(e Env) bool {
		_, ok := e.(io.Closer)
		return ok
	})
	if !ok {
		return nil, false
	}
	return res.(io.Closer), true
}

// Seed seeds the environment if it (or an environment it
// wraps) is a Seeder.
//
// It is not an error for an environment to be unseedable.
func Seed(e Env, seed int64) error {
	if s, ok := AsSeeder(e); ok {
		return s.Seed(seed)
	}
	return nil
}

// Close closes the environment if it (or an environment
// it wraps) is an io.Closer.
func Close(e Env) error {
	if c, ok := AsCloser(e); ok {
		return c.Close()
	}
	return nil
}

// CloseAll closes every environment in the list, returning
// the first error encountered.
func CloseAll(envs []Env) error {
	var firstErr error
	for _, e := range envs {
		if err := Close(e); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func find(e Env, pred func(e Env) bool) (Env, bool) {
	for e != nil {
		if pred(e) {
			return e, true
		}
		u, ok := e.(Unwrapper)
		if !ok {
			break
		}
		e = u.Unwrap()
	}
	return nil, false
}
