package control

import "github.com/danielpatrickdp/lods-sim/internal/signals"

// Controller carries the state between rounds for callers that do not want to
// thread it through Update themselves.
type Controller struct {
	cfg   Config
	state State
	last  Result
}

// NewController starts at rho, clamped into the configured bounds.
func NewController(cfg Config, rho float64) *Controller {
	return &Controller{cfg: cfg, state: Initial(cfg, rho)}
}

// NextRho feeds one round of signals and returns the redundancy fraction for
// the next round.
func (c *Controller) NextRho(sig signals.ChannelSignals) float64 {
	c.last = Update(c.state, sig, c.cfg)
	c.state = c.last.NewState
	return c.state.Rho
}

// Rho is the current redundancy fraction.
func (c *Controller) Rho() float64 {
	return c.state.Rho
}

// State returns the current state.
func (c *Controller) State() State {
	return c.state
}

// Last returns the result of the most recent NextRho call.
func (c *Controller) Last() Result {
	return c.last
}
