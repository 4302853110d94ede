package anyspace

import (
	"sort"
	"strings"

	"golang.org/x/exp/rand"
)

// Tuple is the product of an ordered list of spaces.
type Tuple struct {
	Spaces []Space
}

// NewTuple creates a Tuple space.
func NewTuple(spaces ...Space) *Tuple {
	return &Tuple{Spaces: append([]Space{}, spaces...)}
}

// Len returns the number of sub-spaces.
func (t *Tuple) Len() int {
	return len(t.Spaces)
}

// Contains checks that v is a TupleValue (or a plain
// []interface{}) whose entries are in the sub-spaces.
func (t *Tuple) Contains(v interface{}) bool {
	vals, ok := tupleValues(v)
	if !ok || len(vals) != len(t.Spaces) {
		return false
	}
	for i, s := range t.Spaces {
		if !s.Contains(vals[i]) {
			return false
		}
	}
	return true
}

// Sample samples each sub-space.
func (t *Tuple) Sample() interface{} {
	res := make(TupleValue, len(t.Spaces))
	for i, s := range t.Spaces {
		res[i] = s.Sample()
	}
	return res
}

// Seed seeds each sub-space with a different seed drawn
// from a generator seeded with seed.
func (t *Tuple) Seed(seed uint64) {
	src := rand.NewSource(seed)
	for _, s := range t.Spaces {
		s.Seed(src.Uint64())
	}
}

// Equal checks if s is a Tuple with equal sub-spaces.
func (t *Tuple) Equal(s Space) bool {
	other, ok := s.(*Tuple)
	if !ok || len(other.Spaces) != len(t.Spaces) {
		return false
	}
	for i, sub := range t.Spaces {
		if !sub.Equal(other.Spaces[i]) {
			return false
		}
	}
	return true
}

func (t *Tuple) String() string {
	parts := make([]string, len(t.Spaces))
	for i, s := range t.Spaces {
		parts[i] = s.String()
	}
	return "Tuple(" + strings.Join(parts, ", ") + ")"
}

// Dict is a product of named spaces.
type Dict struct {
	Spaces map[string]Space
}

// NewDict creates a Dict space.
//
// The map is copied.
func NewDict(spaces map[string]Space) *Dict {
	res := &Dict{Spaces: map[string]Space{}}
	for k, v := range spaces {
		res.Spaces[k] = v
	}
	return res
}

// Keys returns the sorted field names.
func (d *Dict) Keys() []string {
	keys := make([]string, 0, len(d.Spaces))
	for k := range d.Spaces {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Contains checks that v is a DictValue (or a plain
// map[string]interface{}) with exactly the right keys.
func (d *Dict) Contains(v interface{}) bool {
	vals, ok := dictValues(v)
	if !ok || len(vals) != len(d.Spaces) {
		return false
	}
	for key, s := range d.Spaces {
		val, ok := vals[key]
		if !ok || !s.Contains(val) {
			return false
		}
	}
	return true
}

// Sample samples each field.
func (d *Dict) Sample() interface{} {
	res := DictValue{}
	for _, key := range d.Keys() {
		res[key] = d.Spaces[key].Sample()
	}
	return res
}

// Seed seeds each field, in key order, with a different
// seed drawn from a generator seeded with seed.
func (d *Dict) Seed(seed uint64) {
	src := rand.NewSource(seed)
	for _, key := range d.Keys() {
		d.Spaces[key].Seed(src.Uint64())
	}
}

// Equal checks if s is a Dict with the same keys and equal
// sub-spaces.
func (d *Dict) Equal(s Space) bool {
	other, ok := s.(*Dict)
	if !ok || len(other.Spaces) != len(d.Spaces) {
		return false
	}
	for key, sub := range d.Spaces {
		otherSub, ok := other.Spaces[key]
		if !ok || !sub.Equal(otherSub) {
			return false
		}
	}
	return true
}

func (d *Dict) String() string {
	var parts []string
	for _, key := range d.Keys() {
		parts = append(parts, key+": "+d.Spaces[key].String())
	}
	return "Dict(" + strings.Join(parts, ", ") + ")"
}

func tupleValues(v interface{}) ([]interface{}, bool) {
	switch v := v.(type) {
	case TupleValue:
		return v, true
	case []interface{}:
		return v, true
	default:
		return nil, false
	}
}

func dictValues(v interface{}) (map[string]interface{}, bool) {
	switch v := v.(type) {
	case DictValue:
		return v, true
	case map[string]interface{}:
		return v, true
	default:
		return nil, false
	}
}
