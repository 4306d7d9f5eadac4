package tuning

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"colonysim.ai/schemas"
)

// Tuning carries every behaviour constant of the settler core.
type Tuning struct {
	Sim       SimConfig       `yaml:"sim" json:"sim"`
	Grid      GridConfig      `yaml:"grid" json:"grid"`
	Movement  MovementConfig  `yaml:"movement" json:"movement"`
	Needs     NeedsConfig     `yaml:"needs" json:"needs"`
	Utility   UtilityConfig   `yaml:"utility" json:"utility"`
	Work      WorkConfig      `yaml:"work" json:"work"`
	Hunting   HuntingConfig   `yaml:"hunting" json:"hunting"`
	Stats     StatsConfig     `yaml:"stats" json:"stats"`
	Inventory InventoryConfig `yaml:"inventory" json:"inventory"`
	Idle      IdleConfig      `yaml:"idle" json:"idle"`
}

type SimConfig struct {
	TickRateHz int     `yaml:"tick_rate_hz" json:"tick_rate_hz"`
	Seed       int64   `yaml:"seed" json:"seed"`
	FixedDT    float64 `yaml:"fixed_dt" json:"fixed_dt"` // seconds per tick; 1/tick_rate_hz when zero
}

type GridConfig struct {
	Width    int     `yaml:"width" json:"width"`
	Height   int     `yaml:"height" json:"height"`
	TileSize float64 `yaml:"tile_size" json:"tile_size"`
}

type MovementConfig struct {
	Speed           float64 `yaml:"speed" json:"speed"`
	TurnRate        float64 `yaml:"turn_rate" json:"turn_rate"` // degrees per second
	ArriveDistance  float64 `yaml:"arrive_distance" json:"arrive_distance"`
	InteractRange   float64 `yaml:"interact_range" json:"interact_range"`
	StorageRange    float64 `yaml:"storage_range" json:"storage_range"`
	ReuseTolerance  float64 `yaml:"reuse_tolerance" json:"reuse_tolerance"`
	WaypointReached float64 `yaml:"waypoint_reached" json:"waypoint_reached"`
	DirectFallback  float64 `yaml:"direct_fallback" json:"direct_fallback"`
	SearchRadius    float64 `yaml:"search_radius" json:"search_radius"` // 0 searches the whole map
}

type NeedsConfig struct {
	SleepEnter  float64 `yaml:"sleep_enter" json:"sleep_enter"`
	SleepExit   float64 `yaml:"sleep_exit" json:"sleep_exit"`
	HungerEnter float64 `yaml:"hunger_enter" json:"hunger_enter"`
	HungerExit  float64 `yaml:"hunger_exit" json:"hunger_exit"`
	// Cooldowns in seconds, counted from waking and from finishing a meal.
	SleepCooldown float64 `yaml:"sleep_cooldown" json:"sleep_cooldown"`
	EatCooldown   float64 `yaml:"eat_cooldown" json:"eat_cooldown"`
	SleepRegen    float64 `yaml:"sleep_regen" json:"sleep_regen"` // energy per second
	EatDuration   float64 `yaml:"eat_duration" json:"eat_duration"`
	Nutrition     float64 `yaml:"nutrition" json:"nutrition"`             // hunger restored per unit eaten
	OnBedDistance float64 `yaml:"on_bed_distance" json:"on_bed_distance"` // a sleeper farther than this has left its bed
}

// UtilityConfig holds the idle scoring weights.
type UtilityConfig struct {
	IdleScore       float64 `yaml:"idle_score" json:"idle_score"`
	HungerFactor    float64 `yaml:"hunger_factor" json:"hunger_factor"`
	SleepFactor     float64 `yaml:"sleep_factor" json:"sleep_factor"`
	GatherScore     float64 `yaml:"gather_score" json:"gather_score"`
	HuntScore       float64 `yaml:"hunt_score" json:"hunt_score"`
	BuildScore      float64 `yaml:"build_score" json:"build_score"`
	StorageScore    float64 `yaml:"storage_score" json:"storage_score"`
	CraftScore      float64 `yaml:"craft_score" json:"craft_score"`
	HaulScore       float64 `yaml:"haul_score" json:"haul_score"`
	PickupScore     float64 `yaml:"pickup_score" json:"pickup_score"`
	PickupRadius    float64 `yaml:"pickup_radius" json:"pickup_radius"`
	NeedyHungerGate float64 `yaml:"needy_hunger_gate" json:"needy_hunger_gate"`
	NeedyEnergyGate float64 `yaml:"needy_energy_gate" json:"needy_energy_gate"`
	FoodBelow       float64 `yaml:"food_below" json:"food_below"`
	SleepBelow      float64 `yaml:"sleep_below" json:"sleep_below"`
}

type WorkConfig struct {
	CycleSeconds  float64 `yaml:"cycle_seconds" json:"cycle_seconds"`
	ChopBase      float64 `yaml:"chop_base" json:"chop_base"`
	MineBase      float64 `yaml:"mine_base" json:"mine_base"`
	ForageBase    float64 `yaml:"forage_base" json:"forage_base"`
	BuildPower    float64 `yaml:"build_power" json:"build_power"` // progress per second at level 0
	LevelBonus    float64 `yaml:"level_bonus" json:"level_bonus"`
	XPPerCycle    float64 `yaml:"xp_per_cycle" json:"xp_per_cycle"`
	DepositTime   float64 `yaml:"deposit_time" json:"deposit_time"`
	PickupTime    float64 `yaml:"pickup_time" json:"pickup_time"`
	LogDropOffset float64 `yaml:"log_drop_offset" json:"log_drop_offset"`
}

type HuntingConfig struct {
	MeleeRange  float64 `yaml:"melee_range" json:"melee_range"`
	BowRange    float64 `yaml:"bow_range" json:"bow_range"`
	MeleeDamage float64 `yaml:"melee_damage" json:"melee_damage"`
	BowDamage   float64 `yaml:"bow_damage" json:"bow_damage"`
	AimTime     float64 `yaml:"aim_time" json:"aim_time"`
	StrikeTime  float64 `yaml:"strike_time" json:"strike_time"`
	// HitFrame is when damage lands, in seconds into the strike window.
	HitFrame      float64 `yaml:"hit_frame" json:"hit_frame"`
	FleeDistance  float64 `yaml:"flee_distance" json:"flee_distance"`
	SkinTime      float64 `yaml:"skin_time" json:"skin_time"`
	SkinRange     float64 `yaml:"skin_range" json:"skin_range"`
	GiveUpSeconds float64 `yaml:"give_up_seconds" json:"give_up_seconds"`
}

type StatsConfig struct {
	Max           float64 `yaml:"max" json:"max"`
	HungerDecay   float64 `yaml:"hunger_decay" json:"hunger_decay"`
	EnergyDecay   float64 `yaml:"energy_decay" json:"energy_decay"`
	StaminaDrain  float64 `yaml:"stamina_drain" json:"stamina_drain"`
	StaminaRegen  float64 `yaml:"stamina_regen" json:"stamina_regen"`
	StarvationDmg float64 `yaml:"starvation_damage" json:"starvation_damage"`
}

type InventoryConfig struct {
	Slots    int     `yaml:"slots" json:"slots"`
	Capacity float64 `yaml:"capacity" json:"capacity"`
}

type IdleConfig struct {
	WanderAfter  float64 `yaml:"wander_after" json:"wander_after"`
	WanderRadius float64 `yaml:"wander_radius" json:"wander_radius"`
	WaitSeconds  float64 `yaml:"wait_seconds" json:"wait_seconds"`
}

// Default returns a fully defaulted tuning.
func Default() Tuning {
	var t Tuning
	t.applyDefaults()
	return t
}

// Load reads, validates and defaults a tuning file.
func Load(path string) (Tuning, error) {
	var t Tuning
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := Validate(raw); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.applyDefaults()
	return t, nil
}

// Validate checks a raw tuning document against the embedded schema.
func Validate(raw []byte) error {
	return schemas.ValidateYAML(schemas.Tuning, raw)
}

// Digest identifies a weight set in decision logs.
func Digest(t Tuning) string {
	b, _ := json.Marshal(t)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// DT is the fixed step in seconds.
func (t Tuning) DT() float64 {
	if t.Sim.FixedDT > 0 {
		return t.Sim.FixedDT
	}
	return 1 / float64(t.Sim.TickRateHz)
}

func (t *Tuning) applyDefaults() {
	def := func(v *float64, d float64) {
		if *v <= 0 {
			*v = d
		}
	}
	if t.Sim.TickRateHz <= 0 {
		t.Sim.TickRateHz = 20
	}
	if t.Grid.Width <= 0 {
		t.Grid.Width = 100
	}
	if t.Grid.Height <= 0 {
		t.Grid.Height = 100
	}
	def(&t.Grid.TileSize, 1)

	m := &t.Movement
	def(&m.Speed, 5)
	def(&m.TurnRate, 360)
	def(&m.ArriveDistance, 0.5)
	def(&m.InteractRange, 2.5)
	def(&m.StorageRange, 2.5)
	def(&m.ReuseTolerance, 0.1)
	def(&m.WaypointReached, 0.3)
	def(&m.DirectFallback, 2)

	n := &t.Needs
	def(&n.SleepEnter, 30)
	def(&n.SleepExit, 80)
	def(&n.HungerEnter, 40)
	def(&n.HungerExit, 80)
	def(&n.SleepCooldown, 10)
	def(&n.EatCooldown, 5)
	def(&n.SleepRegen, 20)
	def(&n.EatDuration, 2)
	def(&n.Nutrition, 30)
	def(&n.OnBedDistance, 1)
	if n.OnBedDistance < m.ArriveDistance {
		n.OnBedDistance = m.ArriveDistance
	}

	u := &t.Utility
	def(&u.IdleScore, 10)
	def(&u.HungerFactor, 2)
	def(&u.SleepFactor, 2.5)
	def(&u.GatherScore, 40)
	def(&u.HuntScore, 40)
	def(&u.BuildScore, 60)
	def(&u.StorageScore, 70)
	def(&u.CraftScore, 35)
	def(&u.HaulScore, 30)
	def(&u.PickupScore, 15)
	def(&u.PickupRadius, 10)
	def(&u.NeedyHungerGate, 40)
	def(&u.NeedyEnergyGate, 30)
	def(&u.FoodBelow, 40)
	def(&u.SleepBelow, 30)

	w := &t.Work
	def(&w.CycleSeconds, 1)
	def(&w.ChopBase, 10)
	def(&w.MineBase, 5)
	def(&w.ForageBase, 3)
	def(&w.BuildPower, 50)
	def(&w.LevelBonus, 2)
	def(&w.XPPerCycle, 10)
	def(&w.DepositTime, 1)
	def(&w.PickupTime, 0.5)
	def(&w.LogDropOffset, 1)

	h := &t.Hunting
	def(&h.MeleeRange, 1)
	def(&h.BowRange, 15)
	def(&h.MeleeDamage, 25)
	def(&h.BowDamage, 35)
	def(&h.AimTime, 0.5)
	def(&h.StrikeTime, 1)
	def(&h.HitFrame, 0.4)
	def(&h.FleeDistance, 6)
	def(&h.SkinTime, 2)
	def(&h.SkinRange, 1.5)
	def(&h.GiveUpSeconds, 30)

	s := &t.Stats
	def(&s.Max, 100)
	def(&s.HungerDecay, 1)
	def(&s.EnergyDecay, 1)
	def(&s.StaminaDrain, 5)
	def(&s.StaminaRegen, 10)
	def(&s.StarvationDmg, 1)

	if t.Inventory.Slots <= 0 {
		t.Inventory.Slots = 10
	}
	def(&t.Inventory.Capacity, 50)

	def(&t.Idle.WanderAfter, 5)
	def(&t.Idle.WanderRadius, 5)
	def(&t.Idle.WaitSeconds, 2)
}
