// Package anybatch runs many environments at once behind
// a single batched Reset/Step API.
//
// Environments are split between worker goroutines, each
// of which owns a contiguous block of environments for
// the lifetime of the batch.
// Results are always gathered back in environment order,
// regardless of the number of workers.
package anybatch

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/unixpickle/anygym"
	"github.com/unixpickle/anygym/anyspace"
	"github.com/unixpickle/essentials"
)

// ErrClosed is returned when an Env is used after it has
// been closed.
var ErrClosed = errors.New("batched environment is closed")

// Config configures a batched environment.
type Config struct {
	// NumWorkers is the number of worker goroutines.
	// If 0, one worker is used per environment.
	// Values larger than the number of environments are
	// reduced to the number of environments.
	NumWorkers int

	// NoAutoReset disables automatic resets.
	// By default, every environment which does not already
	// wrap one is wrapped in an anygym.AutoResetEnv.
	NoAutoReset bool

	// Logger, if non-nil, is used to log episodes, resets
	// and errors.
	Logger Logger
}

// Env is a batch of environments.
//
// Observations are values of ObservationSpace, where the
// i-th row of every leaf belongs to the i-th environment.
// Actions are passed as one value per environment.
//
// Methods of Env may be called from any goroutine, but
// calls are serialized.
type Env struct {
	// ID identifies the batch in log messages.
	ID string

	lock     sync.Mutex
	closed   bool
	numEnvs  int
	workers  []*worker
	logger   Logger
	recorder *EpisodeRecorder

	singleObs anyspace.Space
	singleAct anyspace.Space
	obsSpace  anyspace.Space
	actSpace  anyspace.Space
}

// New creates environments with every maker (in order)
// and starts the workers which run them.
//
// Every environment must have the same observation and
// action spaces.
// If any environment cannot be created or validated, the
// environments created so far are closed and no workers
// are started.
//
// If cfg is nil, the zero Config is used.
func New(makers []anygym.Maker, cfg *Config) (env *Env, err error) {
	defer essentials.AddCtxTo("create batched environment", &err)
	if len(makers) == 0 {
		return nil, errors.New("no environments")
	}
	if cfg == nil {
		cfg = &Config{}
	}

	envs := make([]anygym.Env, 0, len(makers))
	defer func() {
		if err != nil {
			anygym.CloseAll(envs)
		}
	}()
	for i, maker := range makers {
		e, err := maker()
		if err != nil {
			return nil, essentials.AddCtx(fmt.Sprintf("make environment %d", i), err)
		}
		envs = append(envs, e)
	}

	obsSpaces := make([]anyspace.Space, len(envs))
	actSpaces := make([]anyspace.Space, len(envs))
	for i, e := range envs {
		obsSpaces[i] = e.ObservationSpace()
		actSpaces[i] = e.ActionSpace()
		if !actSpaces[i].Equal(actSpaces[0]) {
			return nil, fmt.Errorf("action space mismatch at index %d: %v vs %v",
				i, actSpaces[i], actSpaces[0])
		}
	}
	obsSpace, err := anyspace.Batch(obsSpaces)
	if err != nil {
		return nil, err
	}

	if !cfg.NoAutoReset {
		for i, e := range envs {
			if _, ok := anygym.AsAutoResetEnv(e); !ok {
				envs[i] = &anygym.AutoResetEnv{Env: e}
			}
		}
	}

	res := &Env{
		ID:        uuid.NewString(),
		numEnvs:   len(envs),
		logger:    cfg.Logger,
		recorder:  NewEpisodeRecorder(len(envs)),
		singleObs: anyspace.Copy(obsSpaces[0]),
		singleAct: anyspace.Copy(actSpaces[0]),
		obsSpace:  obsSpace,
		actSpace:  anyspace.Repeat(actSpaces[0], len(envs)),
	}
	bounds := partition(len(envs), cfg.NumWorkers)
	for i := 0; i < len(bounds)-1; i++ {
		w := newWorker(i, bounds[i], envs[bounds[i]:bounds[i+1]])
		res.workers = append(res.workers, w)
		go w.Loop()
	}
	return res, nil
}

// NumEnvs returns the number of environments.
func (e *Env) NumEnvs() int {
	return e.numEnvs
}

// NumWorkers returns the number of worker goroutines.
func (e *Env) NumWorkers() int {
	return len(e.workers)
}

// ObservationSpace returns the batched observation space.
func (e *Env) ObservationSpace() anyspace.Space {
	return e.obsSpace
}

// ActionSpace returns the batched action space, which is
// a Tuple with one action space per environment.
//
// Samples from this space can be passed directly to Step.
func (e *Env) ActionSpace() anyspace.Space {
	return e.actSpace
}

// SingleObservationSpace returns the observation space of
// one environment.
func (e *Env) SingleObservationSpace() anyspace.Space {
	return e.singleObs
}

// SingleActionSpace returns the action space of one
// environment.
func (e *Env) SingleActionSpace() anyspace.Space {
	return e.singleAct
}

// Episodes returns the rewards of every episode which has
// finished during a call to Step since the previous call
// to Episodes.
func (e *Env) Episodes() anygym.Rewards {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.recorder.Drain()
}

// Reset resets every environment and returns the batched
// observation.
func (e *Env) Reset() (obs interface{}, err error) {
	defer essentials.AddCtxTo("reset batched environment", &err)
	return e.reset(nil)
}

// ResetMask resets the environments for which mask is
// true.
//
// The returned batched observation contains the latest
// observation of every environment, including those
// which were not reset.
func (e *Env) ResetMask(mask []bool) (obs interface{}, err error) {
	defer essentials.AddCtxTo("reset batched environment", &err)
	if len(mask) != e.numEnvs {
		return nil, fmt.Errorf("mask length %d does not match %d environments",
			len(mask), e.numEnvs)
	}
	return e.reset(mask)
}

func (e *Env) reset(mask []bool) (interface{}, error) {
	e.lock.Lock()
	defer e.lock.Unlock()
	if e.closed {
		return nil, ErrClosed
	}

	results, err := e.dispatch(func(w *worker) *command {
		cmd := &command{Kind: resetCommand}
		if mask != nil {
			cmd.Mask = mask[w.Start : w.Start+len(w.Envs)]
		}
		return cmd
	})
	if err != nil {
		return nil, err
	}

	e.recorder.Discard(mask)
	if e.logger != nil {
		e.logger.LogReset(e.ID, countTrue(mask, e.numEnvs))
	}

	var obs []interface{}
	for _, r := range results {
		obs = append(obs, r.Obs...)
	}
	return anyspace.Stack(e.singleObs, obs)
}

// Step sends actions[i] to the i-th environment.
//
// The rewards, dones, and infos are indexed by
// environment.
// With auto-reset enabled, environments which finish are
// reset immediately, so the batched observation holds the
// first observation of each new episode.
func (e *Env) Step(actions []interface{}) (obs interface{}, rewards []float64,
	dones []bool, infos []anygym.Info, err error) {
	defer essentials.AddCtxTo("step batched environment", &err)
	if len(actions) != e.numEnvs {
		return nil, nil, nil, nil, fmt.Errorf("got %d actions for %d environments",
			len(actions), e.numEnvs)
	}

	e.lock.Lock()
	defer e.lock.Unlock()
	if e.closed {
		return nil, nil, nil, nil, ErrClosed
	}

	results, err := e.dispatch(func(w *worker) *command {
		return &command{
			Kind:    stepCommand,
			Actions: actions[w.Start : w.Start+len(w.Envs)],
		}
	})
	if err != nil {
		return nil, nil, nil, nil, err
	}

	var obsList []interface{}
	for _, r := range results {
		obsList = append(obsList, r.Obs...)
		rewards = append(rewards, r.Rewards...)
		dones = append(dones, r.Dones...)
		infos = append(infos, r.Infos...)
	}

	finished := e.recorder.Record(rewards, dones)
	if e.logger != nil {
		for _, ep := range finished {
			e.logger.LogEpisode(e.ID, ep.EnvIdx, anygym.Rewards{ep.Rewards}.Mean(),
				len(ep.Rewards))
		}
	}

	obs, err = anyspace.Stack(e.singleObs, obsList)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	return obs, rewards, dones, infos, nil
}

// Seed seeds the environments and the batched spaces.
//
// The i-th environment is seeded with seed+i, so results
// do not depend on the number of workers.
// Environments which are not anygym.Seeders are skipped.
func (e *Env) Seed(seed int64) (err error) {
	defer essentials.AddCtxTo("seed batched environment", &err)
	e.lock.Lock()
	defer e.lock.Unlock()
	if e.closed {
		return ErrClosed
	}
	e.obsSpace.Seed(uint64(seed))
	e.actSpace.Seed(uint64(seed))
	_, err = e.dispatch(func(w *worker) *command {
		return &command{Kind: seedCommand, Seed: seed}
	})
	return err
}

// Close stops the workers and closes every environment
// that implements io.Closer.
//
// Calling Close more than once is not an error.
func (e *Env) Close() (err error) {
	defer essentials.AddCtxTo("close batched environment", &err)
	e.lock.Lock()
	defer e.lock.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	_, err = e.dispatch(func(w *worker) *command {
		return &command{Kind: closeCommand}
	})
	for _, w := range e.workers {
		close(w.commands)
	}
	return err
}

// dispatch sends one command to every worker and waits
// for all of them to respond.
//
// If any worker fails, the error of the first failing
// worker is returned.
func (e *Env) dispatch(makeCmd func(w *worker) *command) ([]*result, error) {
	for _, w := range e.workers {
		w.commands <- makeCmd(w)
	}
	results := make([]*result, len(e.workers))
	for i, w := range e.workers {
		results[i] = <-w.results
	}
	for _, r := range results {
		if r.Err != nil {
			if e.logger != nil {
				e.logger.LogError(e.ID, r.Err)
			}
			return nil, r.Err
		}
	}
	return results, nil
}

func countTrue(mask []bool, n int) int {
	if mask == nil {
		return n
	}
	var res int
	for _, x := range mask {
		if x {
			res++
		}
	}
	return res
}
