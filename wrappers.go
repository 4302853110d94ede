package anygym

// Info keys set by AutoResetEnv when an episode ends.
const (
	ClosingObservationKey = "closing_observation"
	ClosingInfoKey        = "closing_info"
)

// TimeLimitKey is set to true in the info of a step which
// MaxStepsEnv cut short.
const TimeLimitKey = "TimeLimit.truncated"

// AutoResetEnv wraps an Env and resets it automatically
// whenever an episode ends.
//
// When the wrapped Env reports done, Step returns the
// first observation of the next episode alongside the
// final reward and done=true.
// The returned info contains the final observation under
// ClosingObservationKey and the final info under
// ClosingInfoKey.
//
// If the wrapped chain already contains an AutoResetEnv
// which reset the episode, its results are returned as-is.
type AutoResetEnv struct {
	Env
}

// Unwrap returns the wrapped environment.
func (a *AutoResetEnv) Unwrap() Env {
	return a.Env
}

// AsAutoResetEnv finds an AutoResetEnv in the chain of
// wrappers around e.
func AsAutoResetEnv(e Env) (*AutoResetEnv, bool) {
	res, ok := find(e, func(e Env) bool {
		_, ok := e.(*AutoResetEnv)
		return ok
	})
	if !ok {
		return nil, false
	}
	return res.(*AutoResetEnv), true
}

// Step takes a step in the environment.
func (a *AutoResetEnv) Step(action interface{}) (obs interface{}, reward float64,
	done bool, info Info, err error) {
	obs, reward, done, info, err = a.Env.Step(action)
	if err != nil || !done {
		return
	}
	if _, ok := info[ClosingObservationKey]; ok {
		if _, inner := AsAutoResetEnv(a.Env); inner {
			// The wrapped chain already reset itself.
			return
		}
	}
	newObs, err := a.Env.Reset()
	if err != nil {
		return
	}
	info = Info{
		ClosingObservationKey: obs,
		ClosingInfoKey:        info,
	}
	obs = newObs
	return
}

// MaxStepsEnv wraps an Env and ends episodes early if
// they run longer than MaxSteps timesteps.
type MaxStepsEnv struct {
	Env
	MaxSteps int

	steps int
}

// Unwrap returns the wrapped environment.
func (m *MaxStepsEnv) Unwrap() Env {
	return m.Env
}

// Reset resets the environment.
func (m *MaxStepsEnv) Reset() (interface{}, error) {
	m.steps = 0
	return m.Env.Reset()
}

// Step takes a step in the environment.
func (m *MaxStepsEnv) Step(action interface{}) (interface{}, float64, bool,
	Info, error) {
	obs, rew, done, info, err := m.Env.Step(action)
	if err != nil {
		return obs, rew, done, info, err
	}
	m.steps++
	if m.steps >= m.MaxSteps && !done {
		done = true
		if info == nil {
			info = Info{}
		}
		info[TimeLimitKey] = true
	}
	return obs, rew, done, info, err
}
