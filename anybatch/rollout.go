package anybatch

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/unixpickle/anygym"
	"github.com/unixpickle/anygym/anyspace"
	"github.com/unixpickle/essentials"
)

// A Policy chooses one action per environment given a
// batched observation.
type Policy func(obs interface{}) ([]interface{}, error)

// A RolloutSet is a recording of a batched environment
// over a number of timesteps.
//
// Every field has one entry per timestep.
// Within a timestep, environments appear in order.
type RolloutSet struct {
	// Space is the single observation space, used to
	// index into the batched observations.
	Space anyspace.Space

	// Observations contains the batched observation given
	// to the policy at each timestep.
	Observations []interface{}

	// Actions contains the actions taken at each timestep.
	Actions [][]interface{}

	// Rewards contains the rewards given at each timestep.
	Rewards [][]float64

	// Dones indicates which environments finished an
	// episode at each timestep.
	Dones [][]bool
}

// Rollout resets the environment and runs the policy for
// the given number of timesteps.
func Rollout(env *Env, policy Policy, numSteps int) (r *RolloutSet, err error) {
	defer essentials.AddCtxTo("rollout", &err)
	obs, err := env.Reset()
	if err != nil {
		return nil, err
	}
	r = &RolloutSet{Space: env.SingleObservationSpace()}
	for t := 0; t < numSteps; t++ {
		actions, err := policy(obs)
		if err != nil {
			return nil, err
		}
		nextObs, rewards, dones, _, err := env.Step(actions)
		if err != nil {
			return nil, err
		}
		r.Observations = append(r.Observations, obs)
		r.Actions = append(r.Actions, actions)
		r.Rewards = append(r.Rewards, rewards)
		r.Dones = append(r.Dones, dones)
		obs = nextObs
	}
	return r, nil
}

// PackRolloutSets joins RolloutSets for the same batch
// of environments along the time axis.
func PackRolloutSets(rs []*RolloutSet) *RolloutSet {
	res := &RolloutSet{}
	for _, r := range rs {
		if res.Space == nil {
			res.Space = r.Space
		}
		res.Observations = append(res.Observations, r.Observations...)
		res.Actions = append(res.Actions, r.Actions...)
		res.Rewards = append(res.Rewards, r.Rewards...)
		res.Dones = append(res.Dones, r.Dones...)
	}
	return res
}

// NumSteps counts the number of timesteps.
func (r *RolloutSet) NumSteps() int {
	return len(r.Rewards)
}

// NumEnvs returns the number of environments per
// timestep.
func (r *RolloutSet) NumEnvs() int {
	if len(r.Rewards) == 0 {
		return 0
	}
	return len(r.Rewards[0])
}

// Episodes returns the rewards of every episode which
// finished during the rollout.
//
// Episodes are ordered by the timestep at which they
// finished, with ties broken by environment index.
func (r *RolloutSet) Episodes() anygym.Rewards {
	n := r.NumEnvs()
	current := make([][]float64, n)
	var res anygym.Rewards
	for t, rewards := range r.Rewards {
		for i, rew := range rewards {
			current[i] = append(current[i], rew)
			if r.Dones[t][i] {
				res = append(res, current[i])
				current[i] = nil
			}
		}
	}
	return res
}

// RemainingRewards computes, for every timestep, the sum
// of the rewards from that timestep to the end of the
// episode (or the end of the rollout).
func (r *RolloutSet) RemainingRewards() [][]float64 {
	res := make([][]float64, len(r.Rewards))
	next := make([]float64, r.NumEnvs())
	for t := len(r.Rewards) - 1; t >= 0; t-- {
		res[t] = make([]float64, len(r.Rewards[t]))
		for i, rew := range r.Rewards[t] {
			if r.Dones[t][i] {
				next[i] = 0
			}
			next[i] += rew
			res[t][i] = next[i]
		}
	}
	return res
}

// Reduce selects the environments for which present is
// true.
func (r *RolloutSet) Reduce(present []bool) (res *RolloutSet, err error) {
	defer essentials.AddCtxTo("reduce rollout", &err)
	if len(present) != r.NumEnvs() {
		return nil, fmt.Errorf("mask has length %d but there are %d environments",
			len(present), r.NumEnvs())
	}
	res = &RolloutSet{Space: r.Space}
	for t := range r.Rewards {
		obs, err := anyspace.Mask(r.Space, r.Observations[t], present)
		if err != nil {
			return nil, err
		}
		var actions []interface{}
		var rewards []float64
		var dones []bool
		for i, p := range present {
			if p {
				actions = append(actions, r.Actions[t][i])
				rewards = append(rewards, r.Rewards[t][i])
				dones = append(dones, r.Dones[t][i])
			}
		}
		res.Observations = append(res.Observations, obs)
		res.Actions = append(res.Actions, actions)
		res.Rewards = append(res.Rewards, rewards)
		res.Dones = append(res.Dones, dones)
	}
	return res, nil
}

// FracReducer reduces RolloutSets by randomly selecting
// a fraction of the environments.
type FracReducer struct {
	Frac float64

	// Rand is used to select environments.
	// If nil, the math/rand global source is used.
	Rand *rand.Rand
}

// Reduce reduces the set of rollouts.
//
// The number of environments is always rounded up to
// avoid selecting 0 environments.
func (f *FracReducer) Reduce(r *RolloutSet) (*RolloutSet, error) {
	numEnvs := r.NumEnvs()
	numSelected := int(math.Ceil(f.Frac * float64(numEnvs)))
	var indices []int
	if f.Rand != nil {
		indices = f.Rand.Perm(numEnvs)
	} else {
		indices = rand.Perm(numEnvs)
	}
	present := make([]bool, numEnvs)
	for _, j := range indices[:essentials.MinInt(numSelected, numEnvs)] {
		present[j] = true
	}
	return r.Reduce(present)
}
