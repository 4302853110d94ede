package anyspace

import (
	"fmt"
	"reflect"
)

// Discrete is the set of integers {0, 1, ..., N-1}.
type Discrete struct {
	N int

	sampler
}

// NewDiscrete creates a Discrete space with n values.
func NewDiscrete(n int) *Discrete {
	if n <= 0 {
		panic("discrete space must have at least one value")
	}
	return &Discrete{N: n}
}

// Contains checks that v is an integer in range.
func (d *Discrete) Contains(v interface{}) bool {
	x, ok := ToInt(v)
	return ok && x >= 0 && x < d.N
}

// Sample returns a uniformly random int.
func (d *Discrete) Sample() interface{} {
	return d.rand().Intn(d.N)
}

// Equal checks if s is a Discrete space of the same size.
func (d *Discrete) Equal(s Space) bool {
	other, ok := s.(*Discrete)
	return ok && other.N == d.N
}

func (d *Discrete) String() string {
	return fmt.Sprintf("Discrete(%d)", d.N)
}

// MultiDiscrete is a list of discrete values, where entry
// i is in the range [0, Nvec[i]).
type MultiDiscrete struct {
	Nvec []int

	sampler
}

// NewMultiDiscrete creates a MultiDiscrete space.
//
// The nvec slice is copied.
func NewMultiDiscrete(nvec []int) *MultiDiscrete {
	for _, n := range nvec {
		if n <= 0 {
			panic("multi-discrete entries must have at least one value")
		}
	}
	return &MultiDiscrete{Nvec: append([]int{}, nvec...)}
}

// Contains checks that v is an []int of the right length
// with every entry in range.
func (m *MultiDiscrete) Contains(v interface{}) bool {
	vals, ok := v.([]int)
	if !ok || len(vals) != len(m.Nvec) {
		return false
	}
	for i, x := range vals {
		if x < 0 || x >= m.Nvec[i] {
			return false
		}
	}
	return true
}

// Sample returns a random []int.
func (m *MultiDiscrete) Sample() interface{} {
	gen := m.rand()
	res := make([]int, len(m.Nvec))
	for i, n := range m.Nvec {
		res[i] = gen.Intn(n)
	}
	return res
}

// Equal checks if s is a MultiDiscrete with the same
// ranges.
func (m *MultiDiscrete) Equal(s Space) bool {
	other, ok := s.(*MultiDiscrete)
	return ok && reflect.DeepEqual(other.Nvec, m.Nvec)
}

func (m *MultiDiscrete) String() string {
	return fmt.Sprintf("MultiDiscrete(%v)", m.Nvec)
}
