// Package anyatari provides preprocessing for Atari-style
// environments with RGB screen observations.
package anyatari

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anygym"
	"github.com/unixpickle/anygym/anyspace"
	"github.com/unixpickle/anynet/anyconv"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec64"
	"github.com/unixpickle/essentials"
	"golang.org/x/exp/rand"
)

// PreprocessConfig configures a Preprocess wrapper.
type PreprocessConfig struct {
	// NoopMax is the maximum number of no-op actions taken
	// after a reset.
	// The actual number is sampled uniformly from
	// [1, NoopMax].
	// If 0, no no-ops are taken.
	NoopMax int

	// NoopAction is the action used for no-ops.
	NoopAction interface{}

	// FrameSkip is the number of frames to repeat each
	// action for.
	FrameSkip int

	// ScreenSize is the width and height of the resized
	// screen.
	ScreenSize int

	// Grayscale converts screens to a single luminance
	// channel.
	Grayscale bool

	// GrayscaleNewAxis keeps a trailing channel axis of
	// size 1 on grayscale observations.
	GrayscaleNewAxis bool

	// ScaleObs scales observations to [0, 1].
	// Otherwise, they are rounded to integers in
	// [0, 255].
	ScaleObs bool

	// TerminalOnLifeLoss ends the episode when a life is
	// lost.
	// The wrapped environment must be an
	// anygym.LifeCounter for this to have any effect.
	TerminalOnLifeLoss bool
}

// DefaultPreprocessConfig returns the standard Atari
// preprocessing settings.
func DefaultPreprocessConfig() *PreprocessConfig {
	return &PreprocessConfig{
		NoopMax:    30,
		NoopAction: 0,
		FrameSkip:  4,
		ScreenSize: 84,
		Grayscale:  true,
	}
}

// Preprocess wraps an environment with RGB screen
// observations of shape [height, width, 3] and values in
// [0, 255].
//
// Each step repeats an action for several frames, takes
// the max over the last two frames, and resizes the
// result.
type Preprocess struct {
	anygym.Env
	Config PreprocessConfig

	obsSpace anyspace.Space
	resize   *anyconv.Resize
	creator  anyvec.Creator
	rng      *rand.Rand

	// Screens for the last two frames of a step.
	buffers [2][]float64
	lives   int
}

// NewPreprocess creates a Preprocess wrapper.
//
// If cfg is nil, DefaultPreprocessConfig is used.
func NewPreprocess(env anygym.Env, cfg *PreprocessConfig) (p *Preprocess,
	err error) {
	defer essentials.AddCtxTo("create Atari preprocessor", &err)
	if cfg == nil {
		cfg = DefaultPreprocessConfig()
	}
	if cfg.FrameSkip <= 0 {
		return nil, fmt.Errorf("frame skip must be positive (got %d)", cfg.FrameSkip)
	}
	if cfg.ScreenSize <= 1 {
		return nil, fmt.Errorf("screen size must be greater than 1 (got %d)",
			cfg.ScreenSize)
	}
	if cfg.NoopMax < 0 {
		return nil, errors.New("noop max cannot be negative")
	}
	box, ok := env.ObservationSpace().(*anyspace.Box)
	if !ok || len(box.Shape) != 3 || box.Shape[2] != 3 {
		return nil, fmt.Errorf("expected RGB screen observations but got %v",
			env.ObservationSpace())
	}

	depth := 3
	if cfg.Grayscale {
		depth = 1
	}
	high := 255.0
	if cfg.ScaleObs {
		high = 1
	}
	shape := []int{cfg.ScreenSize, cfg.ScreenSize}
	if !cfg.Grayscale || cfg.GrayscaleNewAxis {
		shape = append(shape, depth)
	}

	return &Preprocess{
		Env:      env,
		Config:   *cfg,
		obsSpace: anyspace.NewBox(0, high, shape...),
		resize: &anyconv.Resize{
			Depth:        depth,
			InputWidth:   box.Shape[1],
			InputHeight:  box.Shape[0],
			OutputWidth:  cfg.ScreenSize,
			OutputHeight: cfg.ScreenSize,
		},
		creator: anyvec64.DefaultCreator{},
		rng:     rand.New(rand.NewSource(uint64(time.Now().UnixNano()))),
	}, nil
}

// Unwrap returns the wrapped environment.
func (p *Preprocess) Unwrap() anygym.Env {
	return p.Env
}

// ObservationSpace returns the space of preprocessed
// screens.
func (p *Preprocess) ObservationSpace() anyspace.Space {
	return p.obsSpace
}

// Seed seeds the no-op sampler and the wrapped
// environment.
func (p *Preprocess) Seed(seed int64) error {
	p.rng = rand.New(rand.NewSource(uint64(seed)))
	return anygym.Seed(p.Env, seed)
}

// Reset resets the environment and takes a random number
// of no-op actions.
func (p *Preprocess) Reset() (obs interface{}, err error) {
	defer essentials.AddCtxTo("reset Atari preprocessor", &err)
	rawObs, err := p.Env.Reset()
	if err != nil {
		return nil, err
	}
	if p.Config.NoopMax > 0 {
		noops := p.rng.Intn(p.Config.NoopMax) + 1
		for i := 0; i < noops; i++ {
			var done bool
			rawObs, _, done, _, err = p.Env.Step(p.noopAction())
			if err != nil {
				return nil, err
			}
			if done {
				rawObs, err = p.Env.Reset()
				if err != nil {
					return nil, err
				}
			}
		}
	}
	p.lives = p.currentLives()
	screen, err := p.screen(rawObs)
	if err != nil {
		return nil, err
	}
	p.buffers[0] = screen
	p.buffers[1] = make([]float64, len(screen))
	return p.observation(), nil
}

// Step repeats the action for FrameSkip frames and sums
// the rewards.
func (p *Preprocess) Step(action interface{}) (obs interface{}, reward float64,
	done bool, info anygym.Info, err error) {
	defer essentials.AddCtxTo("step Atari preprocessor", &err)
	for t := 0; t < p.Config.FrameSkip; t++ {
		var rawObs interface{}
		var rew float64
		rawObs, rew, done, info, err = p.Env.Step(action)
		if err != nil {
			return
		}
		reward += rew
		if p.Config.TerminalOnLifeLoss {
			newLives := p.currentLives()
			done = done || newLives < p.lives
			p.lives = newLives
		}
		var screen []float64
		if done || t >= p.Config.FrameSkip-2 {
			if screen, err = p.screen(rawObs); err != nil {
				return
			}
		}
		if done {
			p.buffers[0] = screen
			p.buffers[1] = screen
			break
		}
		if t == p.Config.FrameSkip-2 {
			p.buffers[1] = screen
		} else if t == p.Config.FrameSkip-1 {
			p.buffers[0] = screen
		}
	}
	obs = p.observation()
	return
}

func (p *Preprocess) noopAction() interface{} {
	if p.Config.NoopAction == nil {
		return 0
	}
	return p.Config.NoopAction
}

func (p *Preprocess) currentLives() int {
	if l, ok := anygym.AsLifeCounter(p.Env); ok {
		return l.Lives()
	}
	return 0
}

// screen converts a raw RGB observation to a flat screen
// with the output depth.
func (p *Preprocess) screen(rawObs interface{}) ([]float64, error) {
	t, ok := rawObs.(*anyspace.Tensor)
	if !ok || len(t.Data) != p.resize.InputWidth*p.resize.InputHeight*3 {
		return nil, fmt.Errorf("unexpected screen observation: %T", rawObs)
	}
	if !p.Config.Grayscale {
		return append([]float64{}, t.Data...), nil
	}
	return Grayscale(t.Data), nil
}

func (p *Preprocess) observation() *anyspace.Tensor {
	screen := p.buffers[0]
	if p.Config.FrameSkip > 1 {
		pooled := make([]float64, len(screen))
		for i, x := range screen {
			if y := p.buffers[1][i]; y > x {
				x = y
			}
			pooled[i] = x
		}
		screen = pooled
	}

	var out anyvec.Vector
	if p.resize.InputWidth == p.resize.OutputWidth &&
		p.resize.InputHeight == p.resize.OutputHeight {
		out = anyvec.Make(p.creator, append([]float64{}, screen...))
	} else {
		in := anydiff.NewConst(anyvec.Make(p.creator, screen))
		out = p.resize.Apply(in, 1).Output()
	}
	if p.Config.ScaleObs {
		out.Scale(p.creator.MakeNumeric(1.0 / 255))
	} else {
		anyvec.Round(out)
	}
	box := p.obsSpace.(*anyspace.Box)
	data := p.creator.Float64Slice(out.Data())
	for i, x := range data {
		data[i] = math.Max(0, math.Min(x, box.High[0]))
	}
	return anyspace.NewTensor(box.Shape, data)
}

// Grayscale converts row-major RGB pixels to luminance
// using the ITU-R 601 weights.
func Grayscale(rgb []float64) []float64 {
	res := make([]float64, len(rgb)/3)
	for i := range res {
		r, g, b := rgb[i*3], rgb[i*3+1], rgb[i*3+2]
		res[i] = 0.299*r + 0.587*g + 0.114*b
	}
	return res
}
