package anyspace

import (
	"fmt"
	"math"
	"reflect"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// A Tensor is a dense, row-major array of numbers.
type Tensor struct {
	Shape []int
	Data  []float64
}

// NewTensor creates a tensor, checking that the data fits
// the shape.
func NewTensor(shape []int, data []float64) *Tensor {
	if shapeSize(shape) != len(data) {
		panic(fmt.Sprintf("shape %v does not fit %d values", shape, len(data)))
	}
	return &Tensor{Shape: append([]int{}, shape...), Data: data}
}

// ZeroTensor creates a tensor filled with zeros.
func ZeroTensor(shape ...int) *Tensor {
	return NewTensor(shape, make([]float64, shapeSize(shape)))
}

// Copy creates a deep copy of the tensor.
func (t *Tensor) Copy() *Tensor {
	return &Tensor{
		Shape: append([]int{}, t.Shape...),
		Data:  append([]float64{}, t.Data...),
	}
}

// At gets the element at the given index.
func (t *Tensor) At(idx ...int) float64 {
	return t.Data[t.offset(idx)]
}

// Set sets the element at the given index.
func (t *Tensor) Set(val float64, idx ...int) {
	t.Data[t.offset(idx)] = val
}

func (t *Tensor) offset(idx []int) int {
	if len(idx) != len(t.Shape) {
		panic("index rank does not match tensor rank")
	}
	var offset int
	for i, x := range idx {
		if x < 0 || x >= t.Shape[i] {
			panic("index out of bounds")
		}
		offset = offset*t.Shape[i] + x
	}
	return offset
}

func shapeSize(shape []int) int {
	size := 1
	for _, x := range shape {
		size *= x
	}
	return size
}

// Box is a (possibly unbounded) box in R^n, shaped as a
// tensor.
//
// Low and High store one bound per element.
type Box struct {
	Low   []float64
	High  []float64
	Shape []int

	sampler
}

// NewBox creates a Box where every element shares the same
// bounds.
func NewBox(low, high float64, shape ...int) *Box {
	size := shapeSize(shape)
	lows := make([]float64, size)
	highs := make([]float64, size)
	for i := range lows {
		lows[i] = low
		highs[i] = high
	}
	return NewBoxBounds(lows, highs, shape...)
}

// NewBoxBounds creates a Box with per-element bounds.
//
// The bound slices are copied.
func NewBoxBounds(low, high []float64, shape ...int) *Box {
	size := shapeSize(shape)
	if len(low) != size || len(high) != size {
		panic("bounds do not match box shape")
	}
	for i, l := range low {
		if l > high[i] {
			panic("box lower bound exceeds upper bound")
		}
	}
	return &Box{
		Low:   append([]float64{}, low...),
		High:  append([]float64{}, high...),
		Shape: append([]int{}, shape...),
	}
}

// Contains checks that v is a *Tensor of the right shape
// with every element inside the bounds.
func (b *Box) Contains(v interface{}) bool {
	t, ok := v.(*Tensor)
	if !ok || !intsEqual(t.Shape, b.Shape) || len(t.Data) != len(b.Low) {
		return false
	}
	for i, x := range t.Data {
		if math.IsNaN(x) || x < b.Low[i] || x > b.High[i] {
			return false
		}
	}
	return true
}

// Sample samples a *Tensor from the box.
//
// Bounded elements are sampled uniformly.
// Half-bounded elements are sampled from a shifted
// exponential distribution, and unbounded elements from
// a standard normal.
func (b *Box) Sample() interface{} {
	src := b.source()
	res := make([]float64, len(b.Low))
	for i, low := range b.Low {
		high := b.High[i]
		lowInf := math.IsInf(low, -1)
		highInf := math.IsInf(high, 1)
		switch {
		case lowInf && highInf:
			res[i] = distuv.Normal{Mu: 0, Sigma: 1, Src: src}.Rand()
		case lowInf:
			res[i] = high - distuv.Exponential{Rate: 1, Src: src}.Rand()
		case highInf:
			res[i] = low + distuv.Exponential{Rate: 1, Src: src}.Rand()
		case low == high:
			res[i] = low
		case math.IsInf(high-low, 1):
			// Interpolate so that huge finite bounds do not
			// overflow.
			u := distuv.Uniform{Min: 0, Max: 1, Src: src}.Rand()
			res[i] = math.Max(low, math.Min(high, low*(1-u)+high*u))
		default:
			res[i] = distuv.Uniform{Min: low, Max: high, Src: src}.Rand()
		}
	}
	return NewTensor(b.Shape, res)
}

// Equal checks if s is a Box with the same shape and
// bounds.
func (b *Box) Equal(s Space) bool {
	other, ok := s.(*Box)
	return ok && intsEqual(other.Shape, b.Shape) &&
		floats.Equal(other.Low, b.Low) && floats.Equal(other.High, b.High)
}

func (b *Box) String() string {
	if len(b.Low) > 0 && floats.Min(b.Low) == floats.Max(b.Low) &&
		floats.Min(b.High) == floats.Max(b.High) {
		return fmt.Sprintf("Box(%v, %v, %v)", b.Low[0], b.High[0], b.Shape)
	}
	return fmt.Sprintf("Box(%v)", b.Shape)
}

func intsEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	return len(a) == 0 || reflect.DeepEqual(a, b)
}
