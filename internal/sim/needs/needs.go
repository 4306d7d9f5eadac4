// Package needs decides when survival needs override whatever a settler is
// doing. It runs before the state handler on every tick.
package needs

import (
	"colonysim.ai/internal/sim/model"
	"colonysim.ai/internal/sim/tuning"
)

type Need uint8

const (
	NeedNone Need = iota
	NeedSleep
	NeedFood
)

func (n Need) String() string {
	switch n {
	case NeedSleep:
		return "sleep"
	case NeedFood:
		return "food"
	}
	return "none"
}

// Input is the slice of agent state the monitor looks at.
type Input struct {
	State  model.State
	Energy float64
	Hunger float64
	HasBed bool
}

// Monitor holds per-agent cooldowns. Enter thresholds trigger a need;
// exit thresholds, checked by the survival handlers, end it.
type Monitor struct {
	cfg tuning.NeedsConfig

	sleepCooldown float64
	eatCooldown   float64
}

func NewMonitor(cfg tuning.NeedsConfig) *Monitor {
	return &Monitor{cfg: cfg}
}

func (m *Monitor) SetConfig(cfg tuning.NeedsConfig) { m.cfg = cfg }

// Check counts cooldowns down by dt and returns the need that must preempt
// the current state, if any. Sleep wins over food.
func (m *Monitor) Check(dt float64, in Input) Need {
	m.sleepCooldown = countDown(m.sleepCooldown, dt)
	m.eatCooldown = countDown(m.eatCooldown, dt)

	if in.State.IsSurvival() {
		return NeedNone
	}
	if m.sleepCooldown <= 0 && in.Energy <= m.cfg.SleepEnter && in.HasBed {
		return NeedSleep
	}
	if m.eatCooldown <= 0 && in.Hunger <= m.cfg.HungerEnter {
		return NeedFood
	}
	return NeedNone
}

// Rested reports whether sleep may end.
func (m *Monitor) Rested(energy float64) bool { return energy >= m.cfg.SleepExit }

// Fed reports whether eating may end.
func (m *Monitor) Fed(hunger float64) bool { return hunger >= m.cfg.HungerExit }

// Woke starts the post-sleep cooldown.
func (m *Monitor) Woke() { m.sleepCooldown = m.cfg.SleepCooldown }

// Ate starts the post-meal cooldown.
func (m *Monitor) Ate() { m.eatCooldown = m.cfg.EatCooldown }

// Defer restarts the cooldown of n after a failed attempt to satisfy it.
func (m *Monitor) Defer(n Need) {
	switch n {
	case NeedSleep:
		m.Woke()
	case NeedFood:
		m.Ate()
	case NeedNone:
	}
}

func (m *Monitor) Cooldowns() (sleep, eat float64) { return m.sleepCooldown, m.eatCooldown }

func countDown(v, dt float64) float64 {
	v -= dt
	if v < 0 {
		return 0
	}
	return v
}
