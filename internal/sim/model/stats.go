package model

// Stats are the survival meters. Hunger counts down: 100 is sated, 0 starving.
type Stats struct {
	Health  float64 `json:"health"`
	Energy  float64 `json:"energy"`
	Hunger  float64 `json:"hunger"`
	Stamina float64 `json:"stamina"`

	MaxHealth  float64 `json:"max_health"`
	MaxEnergy  float64 `json:"max_energy"`
	MaxHunger  float64 `json:"max_hunger"`
	MaxStamina float64 `json:"max_stamina"`
}

// StatRates are per-second changes applied by Stats.Tick.
type StatRates struct {
	HungerDecay   float64
	EnergyDecay   float64
	StaminaDrain  float64
	StaminaRegen  float64
	StarvationDmg float64
}

func NewStats(max float64) Stats {
	if max <= 0 {
		max = 100
	}
	return Stats{
		Health: max, Energy: max, Hunger: max, Stamina: max,
		MaxHealth: max, MaxEnergy: max, MaxHunger: max, MaxStamina: max,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (s *Stats) ModifyHealth(d float64)  { s.Health = clamp(s.Health+d, 0, s.MaxHealth) }
func (s *Stats) ModifyEnergy(d float64)  { s.Energy = clamp(s.Energy+d, 0, s.MaxEnergy) }
func (s *Stats) ModifyHunger(d float64)  { s.Hunger = clamp(s.Hunger+d, 0, s.MaxHunger) }
func (s *Stats) ModifyStamina(d float64) { s.Stamina = clamp(s.Stamina+d, 0, s.MaxStamina) }

func (s Stats) Alive() bool     { return s.Health > 0 }
func (s Stats) Starving() bool  { return s.Hunger <= 0 }
func (s Stats) Exhausted() bool { return s.Energy <= 0 }

// Tick applies passive decay over dt seconds. Hunger and energy decay at a
// third of their nominal rate; energy is not drained while sleeping.
func (s *Stats) Tick(dt float64, r StatRates, sleeping, exerting bool) {
	if s.Hunger > 0 {
		s.ModifyHunger(-(r.HungerDecay / 3) * dt)
	}
	if !sleeping && s.Energy > 0 {
		s.ModifyEnergy(-(r.EnergyDecay / 3) * dt)
	}
	if exerting {
		s.ModifyStamina(-r.StaminaDrain * dt)
	} else {
		s.ModifyStamina(r.StaminaRegen * dt)
	}
	if s.Starving() {
		s.ModifyHealth(-r.StarvationDmg * dt)
	}
}
