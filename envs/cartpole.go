package envs

import (
	"errors"
	"math"
	"time"

	"github.com/unixpickle/anygym"
	"github.com/unixpickle/anygym/anyspace"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	cartPoleGravity    = 9.8
	cartPoleCartMass   = 1.0
	cartPolePoleMass   = 0.1
	cartPoleTotalMass  = cartPoleCartMass + cartPolePoleMass
	cartPoleHalfLength = 0.5
	cartPolePoleMoment = cartPolePoleMass * cartPoleHalfLength
	cartPoleForce      = 10.0
	cartPoleTau        = 0.02

	cartPoleThetaLimit = 12 * 2 * math.Pi / 360
	cartPoleXLimit     = 2.4

	// CartPoleFrameWidth and CartPoleFrameHeight are the
	// dimensions of rendered CartPole frames.
	CartPoleFrameWidth  = 60
	CartPoleFrameHeight = 40
)

// CartPole is the classic cart-pole balancing task.
//
// Observations are [x, x_dot, theta, theta_dot], actions
// push the cart left (0) or right (1), and every step
// before the pole falls gives a reward of 1.
type CartPole struct {
	state       [4]float64
	rng         distuv.Uniform
	stepsBeyond int
	isReset     bool
}

// NewCartPole creates a CartPole without a time limit.
//
// The environment is seeded with the current time; use
// Seed for reproducible episodes.
func NewCartPole() *CartPole {
	c := &CartPole{}
	c.Seed(time.Now().UnixNano())
	return c
}

// NewCartPoleV0 creates a CartPole with a limit of 200
// timesteps per episode.
func NewCartPoleV0() anygym.Env {
	return &anygym.MaxStepsEnv{Env: NewCartPole(), MaxSteps: 200}
}

// Seed seeds the initial state distribution.
func (c *CartPole) Seed(seed int64) error {
	c.rng = distuv.Uniform{Min: -0.05, Max: 0.05, Src: rand.NewSource(uint64(seed))}
	return nil
}

// ObservationSpace returns a 4-dimensional Box.
func (c *CartPole) ObservationSpace() anyspace.Space {
	high := []float64{
		cartPoleXLimit * 2,
		math.MaxFloat64,
		cartPoleThetaLimit * 2,
		math.MaxFloat64,
	}
	low := make([]float64, len(high))
	for i, x := range high {
		low[i] = -x
	}
	return anyspace.NewBoxBounds(low, high, 4)
}

// ActionSpace returns Discrete(2).
func (c *CartPole) ActionSpace() anyspace.Space {
	return anyspace.NewDiscrete(2)
}

// Reset samples a new initial state.
func (c *CartPole) Reset() (interface{}, error) {
	for i := range c.state {
		c.state[i] = c.rng.Rand()
	}
	c.stepsBeyond = 0
	c.isReset = true
	return c.observation(), nil
}

// Step simulates one timestep.
func (c *CartPole) Step(action interface{}) (obs interface{}, reward float64,
	done bool, info anygym.Info, err error) {
	if !c.isReset {
		return nil, 0, false, nil, errors.New("step CartPole: need to reset before stepping")
	}
	a, ok := anyspace.ToInt(action)
	if !ok || (a != 0 && a != 1) {
		return nil, 0, false, nil, errors.New("step CartPole: invalid action")
	}
	force := cartPoleForce
	if a == 0 {
		force = -force
	}

	x, xDot, theta, thetaDot := c.state[0], c.state[1], c.state[2], c.state[3]
	cos, sin := math.Cos(theta), math.Sin(theta)
	temp := (force + cartPolePoleMoment*thetaDot*thetaDot*sin) / cartPoleTotalMass
	thetaAcc := (cartPoleGravity*sin - cos*temp) /
		(cartPoleHalfLength * (4.0/3.0 - cartPolePoleMass*cos*cos/cartPoleTotalMass))
	xAcc := temp - cartPolePoleMoment*thetaAcc*cos/cartPoleTotalMass

	x += cartPoleTau * xDot
	xDot += cartPoleTau * xAcc
	theta += cartPoleTau * thetaDot
	thetaDot += cartPoleTau * thetaAcc
	c.state = [4]float64{x, xDot, theta, thetaDot}

	done = x < -cartPoleXLimit || x > cartPoleXLimit ||
		theta < -cartPoleThetaLimit || theta > cartPoleThetaLimit
	if !done {
		reward = 1
	} else if c.stepsBeyond == 0 {
		reward = 1
		c.stepsBeyond++
	} else {
		c.stepsBeyond++
	}
	return c.observation(), reward, done, anygym.Info{}, nil
}

// Render draws the cart and the pole on a white background.
func (c *CartPole) Render() (*anyspace.Tensor, error) {
	frame := anyspace.ZeroTensor(CartPoleFrameHeight, CartPoleFrameWidth, 3)
	for i := range frame.Data {
		frame.Data[i] = 255
	}
	scale := CartPoleFrameWidth / (cartPoleXLimit * 2)
	cartX := int(c.state[0]*scale + CartPoleFrameWidth/2)
	cartY := CartPoleFrameHeight - 8
	for y := cartY; y < cartY+4; y++ {
		for x := cartX - 4; x <= cartX+4; x++ {
			setPixel(frame, x, y, 0, 0, 0)
		}
	}
	poleLen := float64(CartPoleFrameHeight) / 2
	for i := 0; i < int(poleLen); i++ {
		px := cartX + int(float64(i)*math.Sin(c.state[2]))
		py := cartY - int(float64(i)*math.Cos(c.state[2]))
		setPixel(frame, px, py, 204, 153, 102)
	}
	return frame, nil
}

func (c *CartPole) observation() *anyspace.Tensor {
	return anyspace.NewTensor([]int{4}, append([]float64{}, c.state[:]...))
}

func setPixel(frame *anyspace.Tensor, x, y int, r, g, b float64) {
	if x < 0 || y < 0 || x >= frame.Shape[1] || y >= frame.Shape[0] {
		return
	}
	frame.Set(r, y, x, 0)
	frame.Set(g, y, x, 1)
	frame.Set(b, y, x, 2)
}
