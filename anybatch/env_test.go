package anybatch

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/unixpickle/anygym"
	"github.com/unixpickle/anygym/anyspace"
	"github.com/unixpickle/anygym/envs"
)

func TestEnvShapes(t *testing.T) {
	kinds := []struct {
		name   string
		makers func(n int) []anygym.Maker
	}{
		{"CartPole", cartPoleMakers},
		{"Tuple", tupleMakers},
	}
	for _, kind := range kinds {
		for _, n := range []int{1, 5, 11, 24} {
			for _, workers := range []int{1, 3, 0} {
				name := fmt.Sprintf("%sN%dW%d", kind.name, n, workers)
				t.Run(name, func(t *testing.T) {
					testEnvShapes(t, kind.makers(n), n, workers)
				})
			}
		}
	}
}

func testEnvShapes(t *testing.T, makers []anygym.Maker, n, workers int) {
	env, err := New(makers, &Config{NumWorkers: workers})
	if err != nil {
		t.Fatal(err)
	}
	defer env.Close()

	expectedWorkers := workers
	if workers == 0 || workers > n {
		expectedWorkers = n
	}
	if env.NumWorkers() != expectedWorkers {
		t.Errorf("expected %d workers but got %d", expectedWorkers,
			env.NumWorkers())
	}

	obs, err := env.Reset()
	if err != nil {
		t.Fatal(err)
	}
	if size, err := anyspace.BatchSize(env.SingleObservationSpace(),
		obs); err != nil || size != n {
		t.Errorf("bad batch size %d (err=%v)", size, err)
	}
	if !env.ObservationSpace().Contains(obs) {
		t.Error("observation not contained in batched space")
	}

	actions := env.ActionSpace().Sample().(anyspace.TupleValue)
	obs, rews, dones, infos, err := env.Step(actions)
	if err != nil {
		t.Fatal(err)
	}
	if len(rews) != n || len(dones) != n || len(infos) != n {
		t.Errorf("bad result lengths: %d %d %d", len(rews), len(dones),
			len(infos))
	}
	if !env.ObservationSpace().Contains(obs) {
		t.Error("observation not contained in batched space")
	}
}

func TestEnvOrdering(t *testing.T) {
	const target = 50
	for _, n := range []int{1, 2, 5, 10, 24} {
		makers := make([]anygym.Maker, n)
		for i := range makers {
			start := i
			makers[i] = func() (anygym.Env, error) {
				return envs.NewCounter(start, 100, target), nil
			}
		}
		env, err := New(makers, &Config{NumWorkers: 4})
		if err != nil {
			t.Fatal(err)
		}

		expected := make([]int, n)
		for i := range expected {
			expected[i] = i
		}
		obs, err := env.Reset()
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(obs, expected) {
			t.Errorf("n=%d: expected %v but got %v", n, expected, obs)
		}

		actions := make([]interface{}, n)
		for i := range actions {
			actions[i] = envs.CounterKeep
		}
		obs, rews, _, _, err := env.Step(actions)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(obs, expected) {
			t.Errorf("n=%d: no-op changed observations: %v", n, obs)
		}
		checkRewards(t, target, obs.([]int), rews)

		for i := range actions {
			if i%2 == 0 {
				actions[i] = envs.CounterIncrement
				expected[i]++
			}
		}
		obs, rews, _, _, err = env.Step(actions)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(obs, expected) {
			t.Errorf("n=%d: expected %v but got %v", n, expected, obs)
		}
		checkRewards(t, target, obs.([]int), rews)

		if err := env.Close(); err != nil {
			t.Error(err)
		}
	}
}

func checkRewards(t *testing.T, target int, obs []int, rews []float64) {
	for i, o := range obs {
		if rews[i] != float64(target-o) {
			t.Errorf("env %d: expected reward %d but got %f", i, target-o, rews[i])
		}
	}
}

func TestEnvTupleSpace(t *testing.T) {
	const n = 6
	env, err := New(tupleMakers(n), &Config{NumWorkers: 4})
	if err != nil {
		t.Fatal(err)
	}
	defer env.Close()

	expectedSpace := anyspace.NewTuple(
		anyspace.NewBox(-1, 1, n, 2),
		anyspace.NewMultiDiscrete([]int{3, 3, 3, 3, 3, 3}),
	)
	if !env.ObservationSpace().Equal(expectedSpace) {
		t.Fatalf("expected %v but got %v", expectedSpace, env.ObservationSpace())
	}

	obs, err := env.Reset()
	if err != nil {
		t.Fatal(err)
	}
	if !env.ObservationSpace().Contains(obs) {
		t.Fatal("observation not contained in batched space")
	}
	single := env.SingleObservationSpace()
	for i := 0; i < n; i++ {
		val, err := anyspace.Index(single, obs, i)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(val, (&tupleEnv{id: i}).observation()) {
			t.Errorf("env %d: bad observation %v", i, val)
		}
	}

	even := make([]bool, n)
	for i := range even {
		even[i] = i%2 == 0
	}
	masked, err := anyspace.Mask(single, obs, even)
	if err != nil {
		t.Fatal(err)
	}
	vals := masked.(anyspace.TupleValue)
	if !reflect.DeepEqual(vals[1], []int{0, 2, 1}) {
		t.Errorf("bad masked discrete values: %v", vals[1])
	}
	if shape := vals[0].(*anyspace.Tensor).Shape; !reflect.DeepEqual(shape, []int{3, 2}) {
		t.Errorf("bad masked box shape: %v", shape)
	}
}

func TestEnvSeed(t *testing.T) {
	const n = 7
	var trajectories [][]interface{}
	for _, workers := range []int{1, 3, n} {
		env, err := New(cartPoleMakers(n), &Config{NumWorkers: workers})
		if err != nil {
			t.Fatal(err)
		}
		if err := env.Seed(1337); err != nil {
			t.Fatal(err)
		}
		obs, err := env.Reset()
		if err != nil {
			t.Fatal(err)
		}
		traj := []interface{}{obs}
		for step := 0; step < 30; step++ {
			actions := make([]interface{}, n)
			for i := range actions {
				actions[i] = (i + step) % 2
			}
			obs, rews, dones, _, err := env.Step(actions)
			if err != nil {
				t.Fatal(err)
			}
			traj = append(traj, obs, rews, dones)
		}
		traj = append(traj, env.ActionSpace().Sample())
		trajectories = append(trajectories, traj)
		env.Close()
	}
	for i := 1; i < len(trajectories); i++ {
		if !reflect.DeepEqual(trajectories[0], trajectories[i]) {
			t.Errorf("trajectory %d differs from trajectory 0", i)
		}
	}
}

func TestEnvAutoReset(t *testing.T) {
	makers := []anygym.Maker{
		func() (anygym.Env, error) { return envs.NewCounter(4, 10, 5), nil },
		func() (anygym.Env, error) { return envs.NewCounter(0, 10, 5), nil },
	}
	env, err := New(makers, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer env.Close()
	env.Reset()

	actions := []interface{}{envs.CounterIncrement, envs.CounterIncrement}
	obs, rews, dones, infos, err := env.Step(actions)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(obs, []int{4, 1}) || !reflect.DeepEqual(dones, []bool{true, false}) {
		t.Errorf("bad step: obs=%v dones=%v", obs, dones)
	}
	if infos[0][anygym.ClosingObservationKey] != 5 {
		t.Errorf("bad closing observation: %v", infos[0])
	}
	if _, ok := infos[1][anygym.ClosingObservationKey]; ok {
		t.Error("unexpected closing observation")
	}
	if rews[0] != 0 || rews[1] != 4 {
		t.Errorf("bad rewards: %v", rews)
	}

	episodes := env.Episodes()
	if len(episodes) != 1 || !reflect.DeepEqual(episodes[0], []float64{0}) {
		t.Errorf("bad episodes: %v", episodes)
	}
	if episodes := env.Episodes(); len(episodes) != 0 {
		t.Errorf("episodes should be drained but got %v", episodes)
	}
}

func TestEnvPreWrapped(t *testing.T) {
	makers := []anygym.Maker{
		func() (anygym.Env, error) {
			return &anygym.AutoResetEnv{Env: envs.NewCounter(4, 10, 5)}, nil
		},
	}
	env, err := New(makers, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer env.Close()
	env.Reset()
	for i := 0; i < 3; i++ {
		obs, _, dones, infos, err := env.Step([]interface{}{envs.CounterIncrement})
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(obs, []int{4}) || !dones[0] {
			t.Errorf("step %d: obs=%v dones=%v", i, obs, dones)
		}
		if infos[0][anygym.ClosingObservationKey] != 5 {
			t.Errorf("step %d: bad closing observation: %v", i, infos[0])
		}
	}
	if episodes := env.Episodes(); len(episodes) != 3 {
		t.Errorf("expected 3 episodes but got %v", episodes)
	}
}

func TestEnvResetMask(t *testing.T) {
	makers := make([]anygym.Maker, 4)
	for i := range makers {
		start := i
		makers[i] = func() (anygym.Env, error) {
			return envs.NewCounter(start, 10, 9), nil
		}
	}
	env, err := New(makers, &Config{NumWorkers: 2})
	if err != nil {
		t.Fatal(err)
	}
	defer env.Close()
	env.Reset()
	actions := []interface{}{1, 1, 1, 1}
	env.Step(actions)

	obs, err := env.ResetMask([]bool{true, false, false, true})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(obs, []int{0, 2, 3, 3}) {
		t.Errorf("unexpected observations: %v", obs)
	}
	if _, err := env.ResetMask([]bool{true}); err == nil {
		t.Error("expected error for short mask")
	}
}

func TestEnvErrors(t *testing.T) {
	t.Run("Mismatch", func(t *testing.T) {
		var closed int32
		makers := []anygym.Maker{
			func() (anygym.Env, error) {
				return &closeCounter{Env: envs.NewCounter(0, 10, 5), count: &closed}, nil
			},
			func() (anygym.Env, error) {
				return &closeCounter{Env: envs.NewCounter(0, 11, 5), count: &closed}, nil
			},
		}
		if _, err := New(makers, nil); err == nil {
			t.Fatal("expected space mismatch error")
		}
		if closed != 2 {
			t.Errorf("expected 2 environments to be closed but got %d", closed)
		}
	})
	t.Run("Maker", func(t *testing.T) {
		makers := []anygym.Maker{
			func() (anygym.Env, error) { return nil, errors.New("cannot make") },
		}
		if _, err := New(makers, nil); err == nil ||
			!strings.Contains(err.Error(), "cannot make") {
			t.Errorf("unexpected error: %v", err)
		}
	})
	t.Run("Step", func(t *testing.T) {
		makers := make([]anygym.Maker, 5)
		for i := range makers {
			idx := i
			makers[i] = func() (anygym.Env, error) {
				return &failingEnv{Counter: envs.NewCounter(0, 10, 5),
					fail: idx == 3}, nil
			}
		}
		env, err := New(makers, &Config{NumWorkers: 2})
		if err != nil {
			t.Fatal(err)
		}
		defer env.Close()
		env.Reset()
		_, _, _, _, err = env.Step([]interface{}{0, 0, 0, 0, 0})
		if err == nil || !strings.Contains(err.Error(), "environment 3") {
			t.Errorf("unexpected error: %v", err)
		}
		if _, _, _, _, err := env.Step([]interface{}{0}); err == nil {
			t.Error("expected error for wrong number of actions")
		}
	})
	t.Run("Shape", func(t *testing.T) {
		makers := []anygym.Maker{
			func() (anygym.Env, error) { return &reshapeEnv{}, nil },
		}
		env, err := New(makers, nil)
		if err != nil {
			t.Fatal(err)
		}
		defer env.Close()
		if _, err := env.Reset(); err == nil {
			t.Error("expected error for mis-shaped observation")
		}
	})
	t.Run("Panic", func(t *testing.T) {
		makers := []anygym.Maker{
			func() (anygym.Env, error) {
				return &failingEnv{Counter: envs.NewCounter(0, 10, 5), panics: true}, nil
			},
		}
		env, err := New(makers, nil)
		if err != nil {
			t.Fatal(err)
		}
		defer env.Close()
		env.Reset()
		if _, _, _, _, err := env.Step([]interface{}{0}); err == nil ||
			!strings.Contains(err.Error(), "panic") {
			t.Errorf("unexpected error: %v", err)
		}
		if _, err := env.Reset(); err != nil {
			t.Errorf("worker should survive a panic: %v", err)
		}
	})
}

func TestEnvClose(t *testing.T) {
	var closed int32
	makers := make([]anygym.Maker, 3)
	for i := range makers {
		makers[i] = func() (anygym.Env, error) {
			return &closeCounter{Env: envs.NewCounter(0, 10, 5), count: &closed}, nil
		}
	}
	env, err := New(makers, &Config{NumWorkers: 2})
	if err != nil {
		t.Fatal(err)
	}
	if err := env.Close(); err != nil {
		t.Fatal(err)
	}
	if err := env.Close(); err != nil {
		t.Errorf("second close failed: %v", err)
	}
	if closed != 3 {
		t.Errorf("expected 3 closes but got %d", closed)
	}
	if _, err := env.Reset(); err == nil || !strings.Contains(err.Error(),
		ErrClosed.Error()) {
		t.Errorf("expected ErrClosed but got %v", err)
	}
}

func TestPartition(t *testing.T) {
	tests := []struct {
		n, workers int
		expected   []int
	}{
		{1, 1, []int{0, 1}},
		{5, 0, []int{0, 1, 2, 3, 4, 5}},
		{11, 3, []int{0, 4, 8, 11}},
		{24, 4, []int{0, 6, 12, 18, 24}},
		{2, 4, []int{0, 1, 2}},
		{10, 4, []int{0, 3, 6, 8, 10}},
	}
	for _, test := range tests {
		actual := partition(test.n, test.workers)
		if !reflect.DeepEqual(actual, test.expected) {
			t.Errorf("partition(%d, %d): expected %v but got %v", test.n,
				test.workers, test.expected, actual)
		}
	}
}

func cartPoleMakers(n int) []anygym.Maker {
	res := make([]anygym.Maker, n)
	for i := range res {
		res[i] = func() (anygym.Env, error) {
			return envs.NewCartPoleV0(), nil
		}
	}
	return res
}

func tupleMakers(n int) []anygym.Maker {
	res := make([]anygym.Maker, n)
	for i := range res {
		idx := i
		res[i] = func() (anygym.Env, error) {
			return &tupleEnv{id: idx}, nil
		}
	}
	return res
}

// tupleEnv has a Tuple(Box, Discrete) observation space
// and never ends.
type tupleEnv struct {
	id int
}

func (t *tupleEnv) ObservationSpace() anyspace.Space {
	return anyspace.NewTuple(anyspace.NewBox(-1, 1, 2), anyspace.NewDiscrete(3))
}

func (t *tupleEnv) ActionSpace() anyspace.Space {
	return anyspace.NewDiscrete(2)
}

func (t *tupleEnv) Reset() (interface{}, error) {
	return t.observation(), nil
}

func (t *tupleEnv) Step(action interface{}) (interface{}, float64, bool,
	anygym.Info, error) {
	return t.observation(), 0, false, nil, nil
}

func (t *tupleEnv) observation() anyspace.TupleValue {
	x := float64(t.id) / 100
	return anyspace.TupleValue{
		anyspace.NewTensor([]int{2}, []float64{x, -x}),
		t.id % 3,
	}
}

type closeCounter struct {
	anygym.Env
	count *int32
}

func (c *closeCounter) Close() error {
	atomic.AddInt32(c.count, 1)
	return nil
}

type failingEnv struct {
	*envs.Counter
	fail   bool
	panics bool
}

func (f *failingEnv) Step(action interface{}) (interface{}, float64, bool,
	anygym.Info, error) {
	if f.panics {
		panic("step exploded")
	}
	if f.fail {
		return nil, 0, false, nil, errors.New("step failed")
	}
	return f.Counter.Step(action)
}

// reshapeEnv declares a flat Box observation but returns a
// matrix with the same number of elements.
type reshapeEnv struct{}

func (r *reshapeEnv) ObservationSpace() anyspace.Space {
	return anyspace.NewBox(0, 1, 4)
}

func (r *reshapeEnv) ActionSpace() anyspace.Space {
	return anyspace.NewDiscrete(1)
}

func (r *reshapeEnv) Reset() (interface{}, error) {
	return anyspace.ZeroTensor(2, 2), nil
}

func (r *reshapeEnv) Step(action interface{}) (interface{}, float64, bool,
	anygym.Info, error) {
	return anyspace.ZeroTensor(2, 2), 0, false, nil, nil
}
