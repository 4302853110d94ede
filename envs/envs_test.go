package envs

import (
	"reflect"
	"testing"

	"github.com/unixpickle/anygym"
	"github.com/unixpickle/anygym/anyspace"
)

func TestCounter(t *testing.T) {
	c := NewCounter(3, 10, 5)
	if _, _, _, _, err := c.Step(CounterKeep); err == nil {
		t.Error("expected error when stepping before reset")
	}
	obs, _ := c.Reset()
	if obs != 3 {
		t.Fatalf("bad start: %v", obs)
	}
	obs, rew, done, _, _ := c.Step(CounterIncrement)
	if obs != 4 || rew != 1 || done {
		t.Errorf("bad step: %v %v %v", obs, rew, done)
	}
	obs, rew, done, _, _ = c.Step(CounterIncrement)
	if obs != 5 || rew != 0 || !done {
		t.Errorf("bad final step: %v %v %v", obs, rew, done)
	}

	c = NewCounter(0, 10, 5)
	c.Reset()
	if obs, _, _, _, _ := c.Step(CounterDecrement); obs != 9 {
		t.Errorf("counter should wrap around, got %v", obs)
	}
	if !c.ObservationSpace().Contains(9) {
		t.Error("observation not in space")
	}
}

func TestCartPoleDeterminism(t *testing.T) {
	run := func() []interface{} {
		env := NewCartPoleV0()
		if err := anygym.Seed(env, 42); err != nil {
			t.Fatal(err)
		}
		obs, err := env.Reset()
		if err != nil {
			t.Fatal(err)
		}
		res := []interface{}{obs}
		for i := 0; i < 10; i++ {
			obs, _, _, _, err := env.Step(i % 2)
			if err != nil {
				t.Fatal(err)
			}
			res = append(res, obs)
		}
		return res
	}
	if a, b := run(), run(); !reflect.DeepEqual(a, b) {
		t.Error("seeded runs differ")
	}
}

func TestCartPoleEpisode(t *testing.T) {
	env := NewCartPoleV0()
	anygym.Seed(env, 1)
	obs, _ := env.Reset()
	space := env.ObservationSpace()
	if !space.Contains(obs) {
		t.Fatalf("initial observation %v not in %v", obs, space)
	}
	var steps int
	for {
		obs, rew, done, _, err := env.Step(1)
		if err != nil {
			t.Fatal(err)
		}
		steps++
		if rew != 1 {
			t.Errorf("step %d: bad reward %f", steps, rew)
		}
		if done {
			break
		}
		if !space.Contains(obs) {
			t.Fatalf("observation %v not in space", obs)
		}
		if steps > 200 {
			t.Fatal("time limit not enforced")
		}
	}
	if steps >= 200 {
		t.Errorf("always pushing right should fail quickly, took %d steps", steps)
	}
}

func TestCartPoleSpaceSample(t *testing.T) {
	space := NewCartPoleV0().ObservationSpace()
	space.Seed(3)
	for i := 0; i < 100; i++ {
		sample := space.Sample()
		if !space.Contains(sample) {
			t.Fatalf("sample %v not in %v", sample.(*anyspace.Tensor).Data, space)
		}
	}
}

func TestCartPoleRender(t *testing.T) {
	env := NewCartPole()
	env.Reset()
	frame, err := env.Render()
	if err != nil {
		t.Fatal(err)
	}
	expected := []int{CartPoleFrameHeight, CartPoleFrameWidth, 3}
	if !reflect.DeepEqual(frame.Shape, expected) {
		t.Errorf("expected shape %v but got %v", expected, frame.Shape)
	}
	if _, ok := anygym.AsRenderer(NewCartPoleV0()); !ok {
		t.Error("wrapped CartPole should be a renderer")
	}
	var _ anyspace.Space = env.ActionSpace()
}
