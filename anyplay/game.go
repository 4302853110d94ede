// Package anyplay lets a human play an environment with
// the keyboard.
package anyplay

import (
	"errors"
	"fmt"
	"sort"

	"github.com/unixpickle/anygym"
	"github.com/unixpickle/essentials"
)

// ErrMissingKeysToAction is returned when no key mapping
// is given and the environment does not provide one.
var ErrMissingKeysToAction = errors.New("no keys-to-action mapping: pass one " +
	"explicitly or use an environment with a KeysToAction method")

// A PlayableGame tracks the keyboard state of a game.
type PlayableGame struct {
	Env          anygym.Env
	KeysToAction anygym.KeyMap

	// RelevantKeys contains every key which appears in
	// KeysToAction.
	RelevantKeys map[int]bool

	// VideoSize is the [width, height] of the displayed
	// frames.
	VideoSize [2]int

	// PressedKeys lists the relevant keys which are held
	// down, in the order they were pressed.
	PressedKeys []int

	// Running is set to false when the user quits.
	Running bool
}

// NewPlayableGame creates a game for the environment.
//
// If keys is nil, the environment must be an
// anygym.KeysToActioner.
// The environment must be an anygym.Renderer, which is
// used to determine the video size.
// If zoom is 0, frames are shown at their original size.
func NewPlayableGame(env anygym.Env, keys anygym.KeyMap, zoom float64) (game *PlayableGame,
	err error) {
	defer essentials.AddCtxTo("create playable game", &err)
	if keys == nil {
		k, ok := anygym.AsKeysToActioner(env)
		if !ok {
			return nil, ErrMissingKeysToAction
		}
		keys = k.KeysToAction()
	}
	relevant := map[int]bool{}
	for combo := range keys {
		parsed, err := parseCombo(combo)
		if err != nil {
			return nil, err
		}
		for _, k := range parsed {
			relevant[k] = true
		}
	}
	videoSize, err := videoSize(env, zoom)
	if err != nil {
		return nil, err
	}
	return &PlayableGame{
		Env:          env,
		KeysToAction: keys,
		RelevantKeys: relevant,
		VideoSize:    videoSize,
		Running:      true,
	}, nil
}

// ProcessEvent updates the game state for an event.
func (p *PlayableGame) ProcessEvent(e Event) {
	switch e.Type {
	case KeyDown:
		if e.Key == KeyEscape {
			p.Running = false
		} else if p.RelevantKeys[e.Key] && !essentials.Contains(p.PressedKeys, e.Key) {
			p.PressedKeys = append(p.PressedKeys, e.Key)
		}
	case KeyUp:
		for i, k := range p.PressedKeys {
			if k == e.Key {
				essentials.OrderedDelete(&p.PressedKeys, i)
				break
			}
		}
	case Quit:
		p.Running = false
	}
}

// Action returns the action for the keys which are held
// down, or noop if no action is mapped to them.
func (p *PlayableGame) Action(noop interface{}) interface{} {
	if action, ok := p.KeysToAction[Combo(p.PressedKeys...)]; ok {
		return action
	}
	return noop
}

// SortedRelevantKeys returns the relevant keys in
// ascending order.
func (p *PlayableGame) SortedRelevantKeys() []int {
	var res []int
	for k := range p.RelevantKeys {
		res = append(res, k)
	}
	sort.Ints(res)
	return res
}

func videoSize(env anygym.Env, zoom float64) ([2]int, error) {
	r, ok := anygym.AsRenderer(env)
	if !ok {
		return [2]int{}, errors.New("environment cannot be rendered")
	}
	frame, err := r.Render()
	if err != nil {
		return [2]int{}, err
	}
	if len(frame.Shape) < 2 {
		return [2]int{}, fmt.Errorf("bad frame shape: %v", frame.Shape)
	}
	if zoom == 0 {
		zoom = 1
	}
	return [2]int{int(float64(frame.Shape[1]) * zoom),
		int(float64(frame.Shape[0]) * zoom)}, nil
}
