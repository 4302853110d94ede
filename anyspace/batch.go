package anyspace

import (
	"errors"
	"fmt"

	"github.com/unixpickle/essentials"
)

// Batch creates a batched space from a list of
// per-environment spaces.
//
// All of the spaces must be equal.
// Each leaf of the result has an extra leading dimension
// whose size is the number of spaces:
//
//	Discrete(n)         -> MultiDiscrete([n n ... n])
//	MultiDiscrete(nvec) -> MultiDiscrete(nvec ... nvec)
//	Box(shape)          -> Box([N, shape...])
//
// Tuple and Dict spaces are batched field by field.
func Batch(spaces []Space) (batched Space, err error) {
	defer essentials.AddCtxTo("batch spaces", &err)
	if len(spaces) == 0 {
		return nil, errors.New("no spaces to batch")
	}
	for i, s := range spaces[1:] {
		if !s.Equal(spaces[0]) {
			return nil, fmt.Errorf("space mismatch at index %d: %v vs %v",
				i+1, s, spaces[0])
		}
	}
	return batchSpace(spaces[0], len(spaces))
}

// Repeat creates a Tuple with n copies of s.
//
// Each copy has its own random source.
func Repeat(s Space, n int) *Tuple {
	subs := make([]Space, n)
	for i := range subs {
		subs[i] = Copy(s)
	}
	return NewTuple(subs...)
}

func batchSpace(s Space, n int) (Space, error) {
	switch s := s.(type) {
	case *Discrete:
		nvec := make([]int, n)
		for i := range nvec {
			nvec[i] = s.N
		}
		return NewMultiDiscrete(nvec), nil
	case *MultiDiscrete:
		nvec := make([]int, 0, n*len(s.Nvec))
		for i := 0; i < n; i++ {
			nvec = append(nvec, s.Nvec...)
		}
		return NewMultiDiscrete(nvec), nil
	case *Box:
		low := make([]float64, 0, n*len(s.Low))
		high := make([]float64, 0, n*len(s.High))
		for i := 0; i < n; i++ {
			low = append(low, s.Low...)
			high = append(high, s.High...)
		}
		return NewBoxBounds(low, high, append([]int{n}, s.Shape...)...), nil
	case *Tuple:
		subs := make([]Space, len(s.Spaces))
		for i, sub := range s.Spaces {
			var err error
			subs[i], err = batchSpace(sub, n)
			if err != nil {
				return nil, err
			}
		}
		return NewTuple(subs...), nil
	case *Dict:
		subs := map[string]Space{}
		for key, sub := range s.Spaces {
			batched, err := batchSpace(sub, n)
			if err != nil {
				return nil, err
			}
			subs[key] = batched
		}
		return NewDict(subs), nil
	default:
		return nil, fmt.Errorf("unsupported space: %T", s)
	}
}

// Stack joins per-environment values from the space
// single into one value in the batched space.
func Stack(single Space, values []interface{}) (batched interface{}, err error) {
	defer essentials.AddCtxTo("stack values", &err)
	return stack(single, values)
}

func stack(single Space, values []interface{}) (interface{}, error) {
	switch single := single.(type) {
	case *Discrete:
		res := make([]int, len(values))
		for i, v := range values {
			x, ok := ToInt(v)
			if !ok {
				return nil, fmt.Errorf("index %d: expected int but got %T", i, v)
			}
			if x < 0 || x >= single.N {
				return nil, fmt.Errorf("index %d: value %d not in %v", i, x, single)
			}
			res[i] = x
		}
		return res, nil
	case *MultiDiscrete:
		res := make([]int, 0, len(values)*len(single.Nvec))
		for i, v := range values {
			vals, ok := v.([]int)
			if !ok || len(vals) != len(single.Nvec) {
				return nil, fmt.Errorf("index %d: expected []int of length %d",
					i, len(single.Nvec))
			}
			if !single.Contains(vals) {
				return nil, fmt.Errorf("index %d: value %v not in %v", i, vals, single)
			}
			res = append(res, vals...)
		}
		return res, nil
	case *Box:
		rowSize := len(single.Low)
		data := make([]float64, 0, len(values)*rowSize)
		for i, v := range values {
			t, ok := v.(*Tensor)
			if !ok {
				return nil, fmt.Errorf("index %d: expected *Tensor but got %T", i, v)
			}
			if !intsEqual(t.Shape, single.Shape) || len(t.Data) != rowSize {
				return nil, fmt.Errorf("index %d: expected tensor of shape %v but got %v",
					i, single.Shape, t.Shape)
			}
			data = append(data, t.Data...)
		}
		return NewTensor(append([]int{len(values)}, single.Shape...), data), nil
	case *Tuple:
		res := make(TupleValue, len(single.Spaces))
		for j, sub := range single.Spaces {
			field := make([]interface{}, len(values))
			for i, v := range values {
				vals, ok := tupleValues(v)
				if !ok || len(vals) != len(single.Spaces) {
					return nil, fmt.Errorf("index %d: expected tuple of length %d",
						i, len(single.Spaces))
				}
				field[i] = vals[j]
			}
			stacked, err := stack(sub, field)
			if err != nil {
				return nil, essentials.AddCtx(fmt.Sprintf("tuple field %d", j), err)
			}
			res[j] = stacked
		}
		return res, nil
	case *Dict:
		res := DictValue{}
		for _, key := range single.Keys() {
			field := make([]interface{}, len(values))
			for i, v := range values {
				vals, ok := dictValues(v)
				if !ok {
					return nil, fmt.Errorf("index %d: expected dict but got %T", i, v)
				}
				val, ok := vals[key]
				if !ok {
					return nil, fmt.Errorf("index %d: missing key %q", i, key)
				}
				field[i] = val
			}
			stacked, err := stack(single.Spaces[key], field)
			if err != nil {
				return nil, essentials.AddCtx("dict field "+key, err)
			}
			res[key] = stacked
		}
		return res, nil
	default:
		return nil, fmt.Errorf("unsupported space: %T", single)
	}
}

// Index extracts the value for environment i from a
// batched value.
//
// Every leaf is indexed along its batch axis.
func Index(single Space, batched interface{}, i int) (value interface{}, err error) {
	defer essentials.AddCtxTo("index batched value", &err)
	vals, err := take(single, batched, []int{i})
	if err != nil {
		return nil, err
	}
	return unbatchOne(single, vals)
}

// Take selects the rows with the given indices from every
// leaf of a batched value.
//
// The result is itself a batched value with len(indices)
// rows.
func Take(single Space, batched interface{}, indices []int) (value interface{},
	err error) {
	defer essentials.AddCtxTo("take batched rows", &err)
	return take(single, batched, indices)
}

// Mask selects the rows of a batched value for which
// mask is true.
func Mask(single Space, batched interface{}, mask []bool) (value interface{},
	err error) {
	defer essentials.AddCtxTo("mask batched value", &err)
	n, err := BatchSize(single, batched)
	if err != nil {
		return nil, err
	}
	if len(mask) != n {
		return nil, fmt.Errorf("mask length %d does not match batch size %d",
			len(mask), n)
	}
	var indices []int
	for i, m := range mask {
		if m {
			indices = append(indices, i)
		}
	}
	return take(single, batched, indices)
}

// BatchSize finds the leading dimension of a batched
// value.
func BatchSize(single Space, batched interface{}) (int, error) {
	switch single := single.(type) {
	case *Discrete:
		vals, ok := batched.([]int)
		if !ok {
			return 0, fmt.Errorf("expected []int but got %T", batched)
		}
		return len(vals), nil
	case *MultiDiscrete:
		vals, ok := batched.([]int)
		if !ok || len(single.Nvec) == 0 || len(vals)%len(single.Nvec) != 0 {
			return 0, fmt.Errorf("bad batched multi-discrete value: %v", batched)
		}
		return len(vals) / len(single.Nvec), nil
	case *Box:
		t, ok := batched.(*Tensor)
		if !ok || len(t.Shape) != len(single.Shape)+1 {
			return 0, fmt.Errorf("bad batched box value: %T", batched)
		}
		return t.Shape[0], nil
	case *Tuple:
		vals, ok := tupleValues(batched)
		if !ok || len(vals) != len(single.Spaces) || len(vals) == 0 {
			return 0, fmt.Errorf("bad batched tuple value: %T", batched)
		}
		return BatchSize(single.Spaces[0], vals[0])
	case *Dict:
		vals, ok := dictValues(batched)
		keys := single.Keys()
		if !ok || len(keys) == 0 {
			return 0, fmt.Errorf("bad batched dict value: %T", batched)
		}
		return BatchSize(single.Spaces[keys[0]], vals[keys[0]])
	default:
		return 0, fmt.Errorf("unsupported space: %T", single)
	}
}

func take(single Space, batched interface{}, indices []int) (interface{}, error) {
	n, err := BatchSize(single, batched)
	if err != nil {
		return nil, err
	}
	for _, idx := range indices {
		if idx < 0 || idx >= n {
			return nil, fmt.Errorf("index %d out of range [0, %d)", idx, n)
		}
	}

	switch single := single.(type) {
	case *Discrete:
		vals := batched.([]int)
		res := make([]int, len(indices))
		for i, idx := range indices {
			res[i] = vals[idx]
		}
		return res, nil
	case *MultiDiscrete:
		vals := batched.([]int)
		rowSize := len(single.Nvec)
		res := make([]int, 0, rowSize*len(indices))
		for _, idx := range indices {
			res = append(res, vals[idx*rowSize:(idx+1)*rowSize]...)
		}
		return res, nil
	case *Box:
		t := batched.(*Tensor)
		rowSize := len(single.Low)
		data := make([]float64, 0, rowSize*len(indices))
		for _, idx := range indices {
			data = append(data, t.Data[idx*rowSize:(idx+1)*rowSize]...)
		}
		return NewTensor(append([]int{len(indices)}, single.Shape...), data), nil
	case *Tuple:
		vals, _ := tupleValues(batched)
		res := make(TupleValue, len(vals))
		for j, sub := range single.Spaces {
			res[j], err = take(sub, vals[j], indices)
			if err != nil {
				return nil, err
			}
		}
		return res, nil
	case *Dict:
		vals, _ := dictValues(batched)
		res := DictValue{}
		for key, sub := range single.Spaces {
			res[key], err = take(sub, vals[key], indices)
			if err != nil {
				return nil, err
			}
		}
		return res, nil
	default:
		return nil, fmt.Errorf("unsupported space: %T", single)
	}
}

// unbatchOne converts a batched value with exactly one
// row into an unbatched value.
func unbatchOne(single Space, batched interface{}) (interface{}, error) {
	switch single := single.(type) {
	case *Discrete:
		return batched.([]int)[0], nil
	case *MultiDiscrete:
		return batched.([]int), nil
	case *Box:
		return NewTensor(single.Shape, batched.(*Tensor).Data), nil
	case *Tuple:
		vals := batched.(TupleValue)
		res := make(TupleValue, len(vals))
		for j, sub := range single.Spaces {
			var err error
			res[j], err = unbatchOne(sub, vals[j])
			if err != nil {
				return nil, err
			}
		}
		return res, nil
	case *Dict:
		vals := batched.(DictValue)
		res := DictValue{}
		for key, sub := range single.Spaces {
			var err error
			res[key], err = unbatchOne(sub, vals[key])
			if err != nil {
				return nil, err
			}
		}
		return res, nil
	default:
		return nil, fmt.Errorf("unsupported space: %T", single)
	}
}
