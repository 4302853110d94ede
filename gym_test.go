package anygym

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	gym "github.com/openai/gym-http-api/binding-go"
	"github.com/unixpickle/anygym/anyspace"
)

// fakeGymServer implements enough of the gym HTTP API to
// run a 2x2 box environment that counts steps.
func fakeGymServer(t *testing.T) (*httptest.Server, *int) {
	var steps, closes int
	mux := http.NewServeMux()
	reply := func(w http.ResponseWriter, obj interface{}) {
		if err := json.NewEncoder(w).Encode(obj); err != nil {
			t.Error(err)
		}
	}
	mux.HandleFunc("/v1/envs/", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/v1/envs/":
			reply(w, map[string]interface{}{"instance_id": "inst"})
		case strings.HasSuffix(r.URL.Path, "/action_space/"):
			reply(w, map[string]interface{}{
				"info": map[string]interface{}{"name": "Discrete", "n": 3},
			})
		case strings.HasSuffix(r.URL.Path, "/observation_space/"):
			reply(w, map[string]interface{}{
				"info": map[string]interface{}{
					"name":  "Box",
					"shape": []int{2, 2},
					"low":   []float64{0, 0, 0, 0},
					"high":  []float64{10, 10, 10, 10},
				},
			})
		case strings.HasSuffix(r.URL.Path, "/reset/"):
			steps = 0
			reply(w, map[string]interface{}{
				"observation": [][]float64{{0, 0}, {0, 0}},
			})
		case strings.HasSuffix(r.URL.Path, "/step/"):
			var req struct {
				Action int `json:"action"`
			}
			json.NewDecoder(r.Body).Decode(&req)
			steps++
			x := float64(steps)
			reply(w, map[string]interface{}{
				"observation": [][]float64{{x, float64(req.Action)}, {0, 1}},
				"reward":      1,
				"done":        steps == 2,
				"info":        map[string]interface{}{"steps": steps},
			})
		case strings.HasSuffix(r.URL.Path, "/close/"):
			closes++
		default:
			w.WriteHeader(http.StatusNotFound)
			reply(w, map[string]interface{}{"message": "not found"})
		}
	})
	return httptest.NewServer(mux), &closes
}

func TestGymEnv(t *testing.T) {
	server, closes := fakeGymServer(t)
	defer server.Close()

	env, err := MakeGymEnv(server.URL, "Fake-v0")
	if err != nil {
		t.Fatal(err)
	}
	if !env.ActionSpace().Equal(anyspace.NewDiscrete(3)) {
		t.Errorf("bad action space: %v", env.ActionSpace())
	}
	if !env.ObservationSpace().Equal(anyspace.NewBox(0, 10, 2, 2)) {
		t.Errorf("bad observation space: %v", env.ObservationSpace())
	}

	obs, err := env.Reset()
	if err != nil {
		t.Fatal(err)
	}
	if !env.ObservationSpace().Contains(obs) {
		t.Errorf("observation %v not in space", obs)
	}

	obs, rew, done, info, err := env.Step(2)
	if err != nil {
		t.Fatal(err)
	}
	expected := anyspace.NewTensor([]int{2, 2}, []float64{1, 2, 0, 1})
	if !reflect.DeepEqual(obs, expected) || rew != 1 || done {
		t.Errorf("bad step: %v %v %v", obs, rew, done)
	}
	if info["steps"] != 1.0 {
		t.Errorf("bad info: %v", info)
	}
	if _, _, done, _, _ := env.Step(0); !done {
		t.Error("expected episode to end")
	}
	if _, _, _, _, err := env.Step(3); err == nil {
		t.Error("expected error for out-of-range action")
	}

	if err := Close(env); err != nil {
		t.Fatal(err)
	}
	if *closes != 1 {
		t.Errorf("expected 1 close but got %d", *closes)
	}
}

func TestSpaceFromGym(t *testing.T) {
	s, err := spaceFromGym(&gym.Space{Name: "Box", Shape: []int{3}})
	if err != nil {
		t.Fatal(err)
	}
	if !s.Contains(anyspace.NewTensor([]int{3}, []float64{-1e9, 0, 1e9})) {
		t.Error("unbounded box should contain large values")
	}
	bad := []*gym.Space{
		nil,
		{Name: "HighLow"},
		{Name: "Discrete"},
		{Name: "Box", Shape: []int{2}, Low: []float64{0}, High: []float64{1}},
	}
	for i, x := range bad {
		if _, err := spaceFromGym(x); err == nil {
			t.Errorf("space %d: expected error", i)
		}
	}
}
