package anyplay

import (
	"errors"
	"time"

	"github.com/unixpickle/anygym"
	"github.com/unixpickle/anygym/anyspace"
	"github.com/unixpickle/essentials"
)

// A Callback is called after every step of a game.
type Callback func(obsT, obsTP1, action interface{}, reward float64, done bool,
	info anygym.Info)

// A Display shows rendered frames to the user.
type Display interface {
	// Show displays an RGB frame scaled to videoSize,
	// which is [width, height].
	Show(frame *anyspace.Tensor, videoSize [2]int) error
}

// PlayConfig configures Play.
type PlayConfig struct {
	// KeysToAction maps key combinations to actions.
	// If nil, the environment must provide a mapping.
	KeysToAction anygym.KeyMap

	// Zoom scales the displayed frames.
	// If 0, frames are shown at their original size.
	Zoom float64

	// FPS limits the number of steps per second.
	// If 0, steps are not rate limited.
	FPS float64

	// Seed, if non-zero, is used to seed the environment
	// before the first reset.
	Seed int64

	// Noop is the action taken when no mapped key
	// combination is held down.
	// If nil, 0 is used.
	Noop interface{}

	// Callback, if non-nil, is called after every step.
	Callback Callback

	// Events delivers user input to the game.
	// It must be non-nil, since the game only stops after
	// a Quit event or an Escape key press.
	Events *EventQueue

	// Display, if non-nil, shows a rendered frame after
	// every reset and step.
	Display Display
}

// Play runs an environment interactively until the user
// quits.
//
// Each step uses the action mapped to the held keys.
// When an episode ends, the environment is reset.
func Play(env anygym.Env, cfg *PlayConfig) (err error) {
	defer essentials.AddCtxTo("play", &err)
	if cfg == nil {
		cfg = &PlayConfig{}
	}
	events := cfg.Events
	if events == nil {
		return errors.New("no event queue")
	}
	noop := cfg.Noop
	if noop == nil {
		noop = 0
	}

	if cfg.Seed != 0 {
		if err := anygym.Seed(env, cfg.Seed); err != nil {
			return err
		}
	}
	obs, err := env.Reset()
	if err != nil {
		return err
	}
	game, err := NewPlayableGame(env, cfg.KeysToAction, cfg.Zoom)
	if err != nil {
		return err
	}

	var ticker *time.Ticker
	if cfg.FPS > 0 {
		ticker = time.NewTicker(time.Duration(float64(time.Second) / cfg.FPS))
		defer ticker.Stop()
	}

	var envDone bool
	for game.Running {
		if envDone {
			envDone = false
			obs, err = env.Reset()
			if err != nil {
				return err
			}
		} else {
			action := game.Action(noop)
			prevObs := obs
			var rew float64
			var info anygym.Info
			obs, rew, envDone, info, err = env.Step(action)
			if err != nil {
				return err
			}
			if cfg.Callback != nil {
				cfg.Callback(prevObs, obs, action, rew, envDone, info)
			}
		}
		if cfg.Display != nil {
			if err := show(env, cfg.Display, game.VideoSize); err != nil {
				return err
			}
		}
		for _, e := range events.Poll() {
			game.ProcessEvent(e)
		}
		if ticker != nil {
			<-ticker.C
		}
	}
	return nil
}

func show(env anygym.Env, d Display, videoSize [2]int) error {
	r, ok := anygym.AsRenderer(env)
	if !ok {
		return nil
	}
	frame, err := r.Render()
	if err != nil {
		return err
	}
	return d.Show(frame, videoSize)
}
