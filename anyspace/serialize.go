package anyspace

import (
	"errors"

	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var t Tensor
	serializer.RegisterTypedDeserializer(t.SerializerType(), DeserializeTensor)
}

// DeserializeTensor deserializes a Tensor.
func DeserializeTensor(d []byte) (*Tensor, error) {
	var shape []int
	var data []float64
	if err := serializer.DeserializeAny(d, &shape, &data); err != nil {
		return nil, essentials.AddCtx("deserialize Tensor", err)
	}
	if shapeSize(shape) != len(data) {
		return nil, errors.New("deserialize Tensor: shape does not match data")
	}
	return &Tensor{Shape: shape, Data: data}, nil
}

// SerializerType returns the unique ID used to serialize
// a Tensor with the serializer package.
func (t *Tensor) SerializerType() string {
	return "github.com/unixpickle/anygym/anyspace.Tensor"
}

// Serialize serializes the Tensor.
func (t *Tensor) Serialize() ([]byte, error) {
	return serializer.SerializeAny(t.Shape, t.Data)
}
