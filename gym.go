package anygym

import (
	"errors"
	"fmt"
	"math"

	gym "github.com/openai/gym-http-api/binding-go"
	"github.com/unixpickle/anygym/anyspace"
	"github.com/unixpickle/essentials"
)

// GymEnv is an Env backed by an instance on an OpenAI Gym
// HTTP server.
//
// Only Box and Discrete spaces are supported.
type GymEnv struct {
	Client *gym.Client
	ID     gym.InstanceID

	// Render, if true, asks the server to render each
	// step.
	Render bool

	obsSpace anyspace.Space
	actSpace anyspace.Space
}

// MakeGymEnv creates a new instance of the environment
// envID on the server at baseURL.
func MakeGymEnv(baseURL, envID string) (env *GymEnv, err error) {
	defer essentials.AddCtxTo("make gym Env", &err)
	client, err := gym.NewClient(baseURL)
	if err != nil {
		return nil, err
	}
	id, err := client.Create(envID)
	if err != nil {
		return nil, err
	}
	env, err = NewGymEnv(client, id)
	if err != nil {
		client.Close(id)
		return nil, err
	}
	return env, nil
}

// NewGymEnv creates an Env from an existing instance.
//
// This will fail if the instance requires an unsupported
// space type or if it fails to fetch space info.
func NewGymEnv(client *gym.Client, id gym.InstanceID) (env *GymEnv, err error) {
	defer essentials.AddCtxTo("create gym Env", &err)
	actionSpace, err := client.ActionSpace(id)
	if err != nil {
		return nil, err
	}
	obsSpace, err := client.ObservationSpace(id)
	if err != nil {
		return nil, err
	}
	res := &GymEnv{Client: client, ID: id}
	if res.actSpace, err = spaceFromGym(actionSpace); err != nil {
		return nil, err
	}
	if res.obsSpace, err = spaceFromGym(obsSpace); err != nil {
		return nil, err
	}
	return res, nil
}

// ObservationSpace returns the instance's observation
// space.
func (g *GymEnv) ObservationSpace() anyspace.Space {
	return g.obsSpace
}

// ActionSpace returns the instance's action space.
func (g *GymEnv) ActionSpace() anyspace.Space {
	return g.actSpace
}

// Reset resets the instance.
func (g *GymEnv) Reset() (obs interface{}, err error) {
	defer essentials.AddCtxTo("reset gym Env", &err)
	rawObs, err := g.Client.Reset(g.ID)
	if err != nil {
		return nil, err
	}
	return valueFromGym(g.obsSpace, rawObs)
}

// Step takes a step on the instance.
func (g *GymEnv) Step(action interface{}) (obs interface{}, reward float64,
	done bool, info Info, err error) {
	defer essentials.AddCtxTo("step gym Env", &err)
	gymAction, err := valueToGym(g.actSpace, action)
	if err != nil {
		return
	}
	var rawObs, rawInfo interface{}
	rawObs, reward, done, rawInfo, err = g.Client.Step(g.ID, gymAction, g.Render)
	if err != nil {
		return
	}
	obs, err = valueFromGym(g.obsSpace, rawObs)
	if m, ok := rawInfo.(map[string]interface{}); ok {
		info = Info(m)
	} else {
		info = Info{}
	}
	return
}

// Close closes the instance on the server.
func (g *GymEnv) Close() error {
	return g.Client.Close(g.ID)
}

func spaceFromGym(s *gym.Space) (anyspace.Space, error) {
	if s == nil {
		return nil, errors.New("missing space info")
	}
	switch s.Name {
	case "Discrete":
		if s.N <= 0 {
			return nil, fmt.Errorf("invalid discrete space size: %d", s.N)
		}
		return anyspace.NewDiscrete(s.N), nil
	case "Box":
		size := 1
		for _, x := range s.Shape {
			size *= x
		}
		low, high := s.Low, s.High
		if len(low) == 0 && len(high) == 0 {
			low, high = make([]float64, size), make([]float64, size)
			for i := range low {
				low[i], high[i] = math.Inf(-1), math.Inf(1)
			}
		}
		if len(low) != size || len(high) != size {
			return nil, fmt.Errorf("box bounds do not match shape %v", s.Shape)
		}
		return anyspace.NewBoxBounds(low, high, s.Shape...), nil
	default:
		return nil, errors.New("unsupported space: " + s.Name)
	}
}

func valueFromGym(s anyspace.Space, in interface{}) (interface{}, error) {
	switch s := s.(type) {
	case *anyspace.Discrete:
		idx, ok := anyspace.ToInt(in)
		if !ok || idx < 0 || idx >= s.N {
			return nil, fmt.Errorf("discrete observation out of bounds: %v", in)
		}
		return idx, nil
	case *anyspace.Box:
		data, err := joinGymArray(in)
		if err != nil {
			return nil, err
		}
		if len(data) != len(s.Low) {
			return nil, fmt.Errorf("observation size %d does not match shape %v",
				len(data), s.Shape)
		}
		return anyspace.NewTensor(s.Shape, data), nil
	default:
		return nil, fmt.Errorf("unsupported space: %T", s)
	}
}

func joinGymArray(in interface{}) ([]float64, error) {
	switch in := in.(type) {
	case int:
		return []float64{float64(in)}, nil
	case []float64:
		return in, nil
	case [][]float64:
		var joined []float64
		for _, x := range in {
			joined = append(joined, x...)
		}
		return joined, nil
	case [][][]float64:
		var joined []float64
		for _, x := range in {
			sub, _ := joinGymArray(x)
			joined = append(joined, sub...)
		}
		return joined, nil
	default:
		return nil, fmt.Errorf("unexpected observation type: %T", in)
	}
}

func valueToGym(s anyspace.Space, action interface{}) (interface{}, error) {
	if !s.Contains(action) {
		return nil, fmt.Errorf("action %v not in %v", action, s)
	}
	switch action := action.(type) {
	case *anyspace.Tensor:
		return action.Data, nil
	default:
		idx, _ := anyspace.ToInt(action)
		return idx, nil
	}
}
