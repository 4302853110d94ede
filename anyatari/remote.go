package anyatari

import (
	"errors"
	"fmt"

	"github.com/unixpickle/anygym"
	"github.com/unixpickle/anygym/anyspace"
	"github.com/unixpickle/essentials"
	gym "github.com/unixpickle/gym-socket-api/binding-go"
)

// LivesInfoKey is the info key under which Atari
// environments report the remaining number of lives.
const LivesInfoKey = "ale.lives"

// RemoteEnv is an environment running on a gym-socket-api
// server.
//
// Observations must be Box tensors (typically screens) and
// actions must be Discrete.
type RemoteEnv struct {
	Env gym.Env

	obsSpace *anyspace.Box
	actSpace *anyspace.Discrete

	lastObs *anyspace.Tensor
	lives   int
}

// DialRemote creates a new instance of the environment
// name on the gym-socket-api server at host.
func DialRemote(host, name string) (env *RemoteEnv, err error) {
	defer essentials.AddCtxTo("dial remote environment", &err)
	gymEnv, err := gym.Make(host, name)
	if err != nil {
		return nil, err
	}
	env, err = NewRemoteEnv(gymEnv)
	if err != nil {
		gymEnv.Close()
		return nil, err
	}
	return env, nil
}

// NewRemoteEnv wraps an existing gym-socket-api
// environment.
func NewRemoteEnv(gymEnv gym.Env) (env *RemoteEnv, err error) {
	defer essentials.AddCtxTo("create remote environment", &err)
	obsSpace, err := gymEnv.ObservationSpace()
	if err != nil {
		return nil, err
	}
	actSpace, err := gymEnv.ActionSpace()
	if err != nil {
		return nil, err
	}
	if obsSpace.Type != "Box" {
		return nil, errors.New("unsupported observation space: " + obsSpace.Type)
	}
	if actSpace.Type != "Discrete" || actSpace.N <= 0 {
		return nil, errors.New("unsupported action space: " + actSpace.Type)
	}
	size := 1
	for _, x := range obsSpace.Shape {
		size *= x
	}
	if len(obsSpace.Low) != size || len(obsSpace.High) != size {
		return nil, fmt.Errorf("box bounds do not match shape %v", obsSpace.Shape)
	}
	return &RemoteEnv{
		Env:      gymEnv,
		obsSpace: anyspace.NewBoxBounds(obsSpace.Low, obsSpace.High, obsSpace.Shape...),
		actSpace: anyspace.NewDiscrete(actSpace.N),
	}, nil
}

// ObservationSpace returns the remote observation space.
func (r *RemoteEnv) ObservationSpace() anyspace.Space {
	return r.obsSpace
}

// ActionSpace returns the remote action space.
func (r *RemoteEnv) ActionSpace() anyspace.Space {
	return r.actSpace
}

// Reset resets the remote environment.
func (r *RemoteEnv) Reset() (obs interface{}, err error) {
	defer essentials.AddCtxTo("reset remote environment", &err)
	rawObs, err := r.Env.Reset()
	if err != nil {
		return nil, err
	}
	r.lives = 0
	return r.convertObs(rawObs)
}

// Step takes a step in the remote environment.
func (r *RemoteEnv) Step(action interface{}) (obs interface{}, reward float64,
	done bool, info anygym.Info, err error) {
	defer essentials.AddCtxTo("step remote environment", &err)
	idx, ok := anyspace.ToInt(action)
	if !ok || !r.actSpace.Contains(idx) {
		return nil, 0, false, nil, fmt.Errorf("invalid action: %v", action)
	}
	rawObs, reward, done, rawInfo, err := r.Env.Step(idx)
	if err != nil {
		return
	}
	info = anygym.Info{}
	if m, ok := rawInfo.(map[string]interface{}); ok {
		info = anygym.Info(m)
		if lives, ok := anyspace.ToInt(m[LivesInfoKey]); ok {
			r.lives = lives
		}
	}
	obs, err = r.convertObs(rawObs)
	return
}

// Lives returns the number of lives reported in the info
// of the latest step.
func (r *RemoteEnv) Lives() int {
	return r.lives
}

// Render returns the latest observation if it is an RGB
// screen.
func (r *RemoteEnv) Render() (*anyspace.Tensor, error) {
	if r.lastObs == nil {
		return nil, errors.New("render remote environment: no observation")
	}
	if len(r.lastObs.Shape) != 3 || r.lastObs.Shape[2] != 3 {
		return nil, errors.New("render remote environment: observation is not RGB")
	}
	return r.lastObs.Copy(), nil
}

// Close closes the connection to the server.
func (r *RemoteEnv) Close() error {
	return r.Env.Close()
}

func (r *RemoteEnv) convertObs(rawObs gym.Obs) (*anyspace.Tensor, error) {
	var data []float64
	if u8, ok := rawObs.(gym.Uint8Obs); ok {
		raw := u8.Uint8Obs()
		data = make([]float64, len(raw))
		for i, x := range raw {
			data[i] = float64(x)
		}
	} else {
		var err error
		data, err = gym.Flatten(rawObs)
		if err != nil {
			return nil, err
		}
	}
	if len(data) != len(r.obsSpace.Low) {
		return nil, fmt.Errorf("observation size %d does not match shape %v",
			len(data), r.obsSpace.Shape)
	}
	r.lastObs = anyspace.NewTensor(r.obsSpace.Shape, data)
	return r.lastObs, nil
}
