// Package anyspace describes the sets of valid observations
// and actions for an environment.
//
// Spaces form trees. Leaves are Discrete, MultiDiscrete,
// and Box spaces, while Tuple and Dict spaces combine
// other spaces.
//
// Values are represented as follows:
//
//	Discrete      int
//	MultiDiscrete []int
//	Box           *Tensor
//	Tuple         TupleValue
//	Dict          DictValue
//
// The Batch, Stack, Index, and Take functions convert
// between per-environment spaces (and values) and their
// batched counterparts.
package anyspace

import (
	"math"
	"time"

	"golang.org/x/exp/rand"
)

// A Space is a set of values which an environment can
// produce or consume.
//
// Spaces are not safe to sample from multiple Goroutines
// concurrently.
type Space interface {
	// Contains checks if a value is in the space.
	Contains(v interface{}) bool

	// Sample produces a random value in the space.
	Sample() interface{}

	// Seed seeds the random source used by Sample.
	Seed(seed uint64)

	// Equal checks if two spaces describe the same set
	// of values.
	Equal(s Space) bool

	String() string
}

// TupleValue is a value from a Tuple space.
type TupleValue []interface{}

// DictValue is a value from a Dict space.
type DictValue map[string]interface{}

// sampler lazily creates a random source for a space.
type sampler struct {
	src rand.Source
	gen *rand.Rand
}

func (s *sampler) Seed(seed uint64) {
	s.src = rand.NewSource(seed)
	s.gen = rand.New(s.src)
}

func (s *sampler) source() rand.Source {
	if s.src == nil {
		s.Seed(uint64(time.Now().UnixNano()))
	}
	return s.src
}

func (s *sampler) rand() *rand.Rand {
	s.source()
	return s.gen
}

// ToInt converts a numeric value to an int.
//
// Floating-point values are only accepted if they are
// integers.
func ToInt(v interface{}) (int, bool) {
	switch v := v.(type) {
	case int:
		return v, true
	case int8:
		return int(v), true
	case int16:
		return int(v), true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case uint8:
		return int(v), true
	case uint16:
		return int(v), true
	case uint32:
		return int(v), true
	case uint64:
		return int(v), true
	case float32:
		if float32(math.Trunc(float64(v))) != v {
			return 0, false
		}
		return int(v), true
	case float64:
		if math.Trunc(v) != v {
			return 0, false
		}
		return int(v), true
	default:
		return 0, false
	}
}

// Copy creates a copy of a space with its own random
// source.
func Copy(s Space) Space {
	switch s := s.(type) {
	case *Discrete:
		return NewDiscrete(s.N)
	case *MultiDiscrete:
		return NewMultiDiscrete(s.Nvec)
	case *Box:
		return NewBoxBounds(s.Low, s.High, s.Shape...)
	case *Tuple:
		subs := make([]Space, len(s.Spaces))
		for i, sub := range s.Spaces {
			subs[i] = Copy(sub)
		}
		return NewTuple(subs...)
	case *Dict:
		subs := map[string]Space{}
		for key, sub := range s.Spaces {
			subs[key] = Copy(sub)
		}
		return NewDict(subs)
	default:
		return s
	}
}
