package anybatch

import "github.com/unixpickle/anygym"

// An Episode is a finished episode of one environment in
// a batch.
type Episode struct {
	EnvIdx  int
	Rewards []float64
}

// An EpisodeRecorder accumulates per-environment rewards
// from a batched environment and splits them into
// episodes at done flags.
//
// Finished episodes are kept until they are drained.
type EpisodeRecorder struct {
	current  [][]float64
	finished []Episode
}

// NewEpisodeRecorder creates a recorder for n
// environments.
func NewEpisodeRecorder(n int) *EpisodeRecorder {
	return &EpisodeRecorder{current: make([][]float64, n)}
}

// Record adds the rewards of one batched step.
//
// It returns the episodes which finished on this step,
// ordered by environment index.
func (e *EpisodeRecorder) Record(rewards []float64, dones []bool) []Episode {
	var res []Episode
	for i, rew := range rewards {
		e.current[i] = append(e.current[i], rew)
		if dones[i] {
			res = append(res, Episode{EnvIdx: i, Rewards: e.current[i]})
			e.current[i] = nil
		}
	}
	e.finished = append(e.finished, res...)
	return res
}

// Discard drops the unfinished episodes of the masked
// environments, as happens when they are reset early.
//
// A nil mask discards every unfinished episode.
func (e *EpisodeRecorder) Discard(mask []bool) {
	for i := range e.current {
		if mask == nil || mask[i] {
			e.current[i] = nil
		}
	}
}

// Episodes returns the finished episodes which have not
// been drained, in the order they finished.
func (e *EpisodeRecorder) Episodes() []Episode {
	return append([]Episode{}, e.finished...)
}

// Drain returns the rewards of every finished episode
// since the last Drain and forgets them.
func (e *EpisodeRecorder) Drain() anygym.Rewards {
	res := make(anygym.Rewards, len(e.finished))
	for i, ep := range e.finished {
		res[i] = ep.Rewards
	}
	e.finished = nil
	return res
}
