package anybatch

import (
	"reflect"
	"testing"

	"github.com/unixpickle/anygym"
	"github.com/unixpickle/anygym/envs"
)

func TestEpisodeRecorder(t *testing.T) {
	r := NewEpisodeRecorder(2)
	finished := r.Record([]float64{1, 2}, []bool{false, true})
	if !reflect.DeepEqual(finished, []Episode{{EnvIdx: 1, Rewards: []float64{2}}}) {
		t.Errorf("bad finished list: %v", finished)
	}
	r.Record([]float64{3, 4}, []bool{true, false})
	r.Discard([]bool{false, true})
	finished = r.Record([]float64{5, 6}, []bool{false, true})
	if !reflect.DeepEqual(finished, []Episode{{EnvIdx: 1, Rewards: []float64{6}}}) {
		t.Errorf("bad finished list: %v", finished)
	}

	indices := []int{}
	for _, ep := range r.Episodes() {
		indices = append(indices, ep.EnvIdx)
	}
	if !reflect.DeepEqual(indices, []int{1, 0, 1}) {
		t.Errorf("bad env indices: %v", indices)
	}

	expected := anygym.Rewards{{2}, {1, 3}, {6}}
	if actual := r.Drain(); !reflect.DeepEqual(actual, expected) {
		t.Errorf("expected %v but got %v", expected, actual)
	}
	if actual := r.Drain(); len(actual) != 0 {
		t.Errorf("expected empty drain but got %v", actual)
	}
	if eps := r.Episodes(); len(eps) != 0 {
		t.Errorf("expected no episodes but got %v", eps)
	}

	r.Record([]float64{7, 8}, []bool{true, false})
	if actual := r.Drain(); !reflect.DeepEqual(actual, anygym.Rewards{{5, 7}}) {
		t.Errorf("expected [[5 7]] but got %v", actual)
	}
}

type recordingLogger struct {
	episodes []float64
	resets   []int
}

func (r *recordingLogger) LogEpisode(batchID string, envIdx int, reward float64,
	steps int) {
	r.episodes = append(r.episodes, reward)
}

func (r *recordingLogger) LogReset(batchID string, numReset int) {
	r.resets = append(r.resets, numReset)
}

func (r *recordingLogger) LogError(batchID string, err error) {
}

func TestEnvLogger(t *testing.T) {
	logger := &recordingLogger{}
	makers := []anygym.Maker{
		func() (anygym.Env, error) { return envs.NewCounter(3, 10, 5), nil },
		func() (anygym.Env, error) { return envs.NewCounter(0, 10, 5), nil },
	}
	env, err := New(makers, &Config{Logger: logger})
	if err != nil {
		t.Fatal(err)
	}
	defer env.Close()
	if env.ID == "" {
		t.Error("missing batch ID")
	}
	env.Reset()
	for i := 0; i < 2; i++ {
		if _, _, _, _, err := env.Step([]interface{}{1, 0}); err != nil {
			t.Fatal(err)
		}
	}
	env.ResetMask([]bool{false, true})
	if !reflect.DeepEqual(logger.episodes, []float64{1}) {
		t.Errorf("bad logged episodes: %v", logger.episodes)
	}
	if !reflect.DeepEqual(logger.resets, []int{2, 1}) {
		t.Errorf("bad logged resets: %v", logger.resets)
	}
}
