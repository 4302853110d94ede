package anybatch

import (
	"fmt"

	"github.com/unixpickle/anygym"
)

type commandKind int

const (
	resetCommand commandKind = iota
	stepCommand
	seedCommand
	closeCommand
)

// A command is sent from the orchestrator to a worker.
//
// Slices are indexed relative to the worker's first
// environment.
type command struct {
	Kind    commandKind
	Mask    []bool
	Actions []interface{}
	Seed    int64
}

// A result is sent back from a worker for every command.
type result struct {
	Obs     []interface{}
	Rewards []float64
	Dones   []bool
	Infos   []anygym.Info
	Err     error
}

// A worker owns a contiguous block of environments for
// the lifetime of a batch.
type worker struct {
	ID    int
	Start int
	Envs  []anygym.Env

	// Latest observation from each environment.
	LastObs []interface{}

	commands chan *command
	results  chan *result
}

func newWorker(id, start int, envs []anygym.Env) *worker {
	return &worker{
		ID:       id,
		Start:    start,
		Envs:     envs,
		LastObs:  make([]interface{}, len(envs)),
		commands: make(chan *command, 1),
		results:  make(chan *result, 1),
	}
}

// Loop handles commands until the command channel is
// closed.
func (w *worker) Loop() {
	defer close(w.results)
	for cmd := range w.commands {
		w.results <- w.handle(cmd)
	}
}

func (w *worker) handle(cmd *command) (res *result) {
	defer func() {
		if r := recover(); r != nil {
			res = &result{Err: fmt.Errorf("worker %d: panic: %v", w.ID, r)}
		}
	}()
	switch cmd.Kind {
	case resetCommand:
		return w.reset(cmd.Mask)
	case stepCommand:
		return w.step(cmd.Actions)
	case seedCommand:
		return w.seed(cmd.Seed)
	case closeCommand:
		return &result{Err: anygym.CloseAll(w.Envs)}
	default:
		panic(fmt.Sprintf("unknown command: %d", cmd.Kind))
	}
}

func (w *worker) reset(mask []bool) *result {
	for i, env := range w.Envs {
		if mask != nil && !mask[i] {
			continue
		}
		obs, err := env.Reset()
		if err != nil {
			return &result{Err: w.envError(i, "reset", err)}
		}
		w.LastObs[i] = obs
	}
	return &result{Obs: append([]interface{}{}, w.LastObs...)}
}

func (w *worker) step(actions []interface{}) *result {
	res := &result{
		Obs:     make([]interface{}, len(w.Envs)),
		Rewards: make([]float64, len(w.Envs)),
		Dones:   make([]bool, len(w.Envs)),
		Infos:   make([]anygym.Info, len(w.Envs)),
	}
	for i, env := range w.Envs {
		obs, rew, done, info, err := env.Step(actions[i])
		if err != nil {
			return &result{Err: w.envError(i, "step", err)}
		}
		if info == nil {
			info = anygym.Info{}
		}
		w.LastObs[i] = obs
		res.Obs[i] = obs
		res.Rewards[i] = rew
		res.Dones[i] = done
		res.Infos[i] = info
	}
	return res
}

func (w *worker) seed(seed int64) *result {
	for i, env := range w.Envs {
		if err := anygym.Seed(env, seed+int64(w.Start+i)); err != nil {
			return &result{Err: w.envError(i, "seed", err)}
		}
	}
	return &result{}
}

func (w *worker) envError(i int, op string, err error) error {
	return fmt.Errorf("worker %d: %s environment %d: %v", w.ID, op, w.Start+i, err)
}
