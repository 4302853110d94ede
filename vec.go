package anygym

import (
	"fmt"

	"github.com/unixpickle/anygym/anyspace"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
)

// VecEnv exposes an Env through flat anyvec vectors, which
// is the form most function approximators expect.
//
// Observations are converted with Flatten and actions are
// converted with Unflatten.
type VecEnv struct {
	Env     Env
	Creator anyvec.Creator
}

// Reset resets the environment.
func (v *VecEnv) Reset() (obsVec anyvec.Vector, err error) {
	defer essentials.AddCtxTo("reset VecEnv", &err)
	obs, err := v.Env.Reset()
	if err != nil {
		return nil, err
	}
	return Flatten(v.Creator, v.Env.ObservationSpace(), obs)
}

// Step takes a step in the environment.
func (v *VecEnv) Step(action anyvec.Vector) (obsVec anyvec.Vector, reward float64,
	done bool, err error) {
	defer essentials.AddCtxTo("step VecEnv", &err)
	envAction, err := Unflatten(v.Env.ActionSpace(), action)
	if err != nil {
		return
	}
	var obs interface{}
	obs, reward, done, _, err = v.Env.Step(envAction)
	if err != nil {
		return
	}
	obsVec, err = Flatten(v.Creator, v.Env.ObservationSpace(), obs)
	return
}

// FlatDim computes the length of a flattened value from
// the space.
func FlatDim(s anyspace.Space) (int, error) {
	switch s := s.(type) {
	case *anyspace.Discrete:
		return s.N, nil
	case *anyspace.MultiDiscrete:
		var sum int
		for _, n := range s.Nvec {
			sum += n
		}
		return sum, nil
	case *anyspace.Box:
		return len(s.Low), nil
	case *anyspace.Tuple:
		var sum int
		for _, sub := range s.Spaces {
			n, err := FlatDim(sub)
			if err != nil {
				return 0, err
			}
			sum += n
		}
		return sum, nil
	case *anyspace.Dict:
		var sum int
		for _, sub := range s.Spaces {
			n, err := FlatDim(sub)
			if err != nil {
				return 0, err
			}
			sum += n
		}
		return sum, nil
	default:
		return 0, fmt.Errorf("unsupported space: %T", s)
	}
}

// Flatten converts a value from a space into a vector.
//
// Box values are copied directly, discrete values become
// one-hot vectors, and composite values are concatenated
// (Dict fields in sorted key order).
func Flatten(c anyvec.Creator, s anyspace.Space, value interface{}) (anyvec.Vector,
	error) {
	data, err := flatten(s, value)
	if err != nil {
		return nil, essentials.AddCtx("flatten", err)
	}
	return c.MakeVectorData(c.MakeNumericList(data)), nil
}

func flatten(s anyspace.Space, value interface{}) ([]float64, error) {
	switch s := s.(type) {
	case *anyspace.Discrete:
		x, ok := anyspace.ToInt(value)
		if !ok || !s.Contains(x) {
			return nil, fmt.Errorf("discrete value out of bounds: %v", value)
		}
		return oneHot(x, s.N), nil
	case *anyspace.MultiDiscrete:
		if !s.Contains(value) {
			return nil, fmt.Errorf("multi-discrete value out of bounds: %v", value)
		}
		var res []float64
		for i, x := range value.([]int) {
			res = append(res, oneHot(x, s.Nvec[i])...)
		}
		return res, nil
	case *anyspace.Box:
		t, ok := value.(*anyspace.Tensor)
		if !ok || len(t.Data) != len(s.Low) {
			return nil, fmt.Errorf("unexpected box value: %T", value)
		}
		return append([]float64{}, t.Data...), nil
	case *anyspace.Tuple:
		vals, ok := value.(anyspace.TupleValue)
		if !ok || len(vals) != len(s.Spaces) {
			return nil, fmt.Errorf("unexpected tuple value: %T", value)
		}
		var res []float64
		for i, sub := range s.Spaces {
			data, err := flatten(sub, vals[i])
			if err != nil {
				return nil, err
			}
			res = append(res, data...)
		}
		return res, nil
	case *anyspace.Dict:
		vals, ok := value.(anyspace.DictValue)
		if !ok {
			return nil, fmt.Errorf("unexpected dict value: %T", value)
		}
		var res []float64
		for _, key := range s.Keys() {
			data, err := flatten(s.Spaces[key], vals[key])
			if err != nil {
				return nil, err
			}
			res = append(res, data...)
		}
		return res, nil
	default:
		return nil, fmt.Errorf("unsupported space: %T", s)
	}
}

// Unflatten converts a vector into a value from a space.
//
// Discrete values are decoded with anyvec.MaxIndex, so
// both one-hot vectors and raw scores are accepted.
func Unflatten(s anyspace.Space, vec anyvec.Vector) (value interface{}, err error) {
	defer essentials.AddCtxTo("unflatten", &err)
	dim, err := FlatDim(s)
	if err != nil {
		return nil, err
	}
	if vec.Len() != dim {
		return nil, fmt.Errorf("expected %d components but got %d", dim, vec.Len())
	}
	return unflatten(s, vec)
}

func unflatten(s anyspace.Space, vec anyvec.Vector) (interface{}, error) {
	switch s := s.(type) {
	case *anyspace.Discrete:
		return anyvec.MaxIndex(vec), nil
	case *anyspace.MultiDiscrete:
		res := make([]int, len(s.Nvec))
		var offset int
		for i, n := range s.Nvec {
			res[i] = anyvec.MaxIndex(vec.Slice(offset, offset+n))
			offset += n
		}
		return res, nil
	case *anyspace.Box:
		data := vec.Creator().Float64Slice(vec.Data())
		return anyspace.NewTensor(s.Shape, data), nil
	case *anyspace.Tuple:
		res := make(anyspace.TupleValue, len(s.Spaces))
		var offset int
		for i, sub := range s.Spaces {
			n, _ := FlatDim(sub)
			val, err := unflatten(sub, vec.Slice(offset, offset+n))
			if err != nil {
				return nil, err
			}
			res[i] = val
			offset += n
		}
		return res, nil
	case *anyspace.Dict:
		res := anyspace.DictValue{}
		var offset int
		for _, key := range s.Keys() {
			sub := s.Spaces[key]
			n, _ := FlatDim(sub)
			val, err := unflatten(sub, vec.Slice(offset, offset+n))
			if err != nil {
				return nil, err
			}
			res[key] = val
			offset += n
		}
		return res, nil
	default:
		return nil, fmt.Errorf("unsupported space: %T", s)
	}
}

func oneHot(idx, size int) []float64 {
	res := make([]float64, size)
	res[idx] = 1
	return res
}
