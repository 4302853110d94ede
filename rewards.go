package anygym

import "math"

// Rewards stores the rewards from a batch of episodes.
//
// Each entry holds the per-timestep rewards of one
// episode.
type Rewards [][]float64

// Totals computes the cumulative reward of each episode.
func (r Rewards) Totals() []float64 {
	res := make([]float64, len(r))
	for i, seq := range r {
		for _, x := range seq {
			res[i] += x
		}
	}
	return res
}

// Mean computes the mean cumulative reward.
//
// It returns 0 if there are no episodes.
func (r Rewards) Mean() float64 {
	if len(r) == 0 {
		return 0
	}
	var sum float64
	for _, x := range r.Totals() {
		sum += x
	}
	return sum / float64(len(r))
}

// Variance computes the variance of the cumulative
// rewards.
func (r Rewards) Variance() float64 {
	if len(r) == 0 {
		return 0
	}
	mean := r.Mean()
	var res float64
	for _, x := range r.Totals() {
		res += math.Pow(x-mean, 2)
	}
	return res / float64(len(r))
}

// Reduce produces a copy of r where episodes for which
// present is false are set to nil.
func (r Rewards) Reduce(present []bool) Rewards {
	res := make(Rewards, len(r))
	for i, pres := range present {
		if pres {
			res[i] = r[i]
		}
	}
	return res
}

// Lengths returns the number of timesteps in each
// episode.
func (r Rewards) Lengths() []int {
	res := make([]int, len(r))
	for i, seq := range r {
		res[i] = len(seq)
	}
	return res
}
