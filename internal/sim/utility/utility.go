// Package utility scores the activities an idle settler could take up.
package utility

import (
	"fmt"
	"sort"

	"colonysim.ai/internal/sim/model"
	"colonysim.ai/internal/sim/tuning"
)

// ScoredOption is one candidate of an idle evaluation.
type ScoredOption struct {
	State  model.State
	Score  float64
	Reason string
}

// Facts is what the evaluator needs to know about an agent and its
// surroundings. Availability flags are computed by the caller.
type Facts struct {
	Hunger       float64
	Energy       float64
	StatMax      float64 // 100 when zero
	Jobs         model.JobFlags
	FoodDeferred bool // a failed food search is cooling down
	HandFree     bool
	Carrying     bool // holding an item in hand
	InvFull      bool
	Trees        bool
	Rocks        bool
	Bushes       bool
	Animals      bool
	BuildTask    bool
	CraftWork    bool
	HaulItem     bool
	NearItem     bool
}

type Evaluator struct {
	cfg tuning.UtilityConfig
}

func New(cfg tuning.UtilityConfig) *Evaluator { return &Evaluator{cfg: cfg} }

func (e *Evaluator) SetConfig(cfg tuning.UtilityConfig) { e.cfg = cfg }

// Evaluate returns every eligible option, best first. Equal scores keep
// candidate order, so earlier candidates win ties.
func (e *Evaluator) Evaluate(f Facts) []ScoredOption {
	c := e.cfg
	full := f.StatMax
	if full <= 0 {
		full = 100
	}
	opts := []ScoredOption{{State: model.StateIdle, Score: c.IdleScore, Reason: "baseline"}}
	add := func(s model.State, score float64, reason string) {
		opts = append(opts, ScoredOption{State: s, Score: score, Reason: reason})
	}

	if f.Hunger < c.FoodBelow && !f.FoodDeferred {
		add(model.StateSearchingForFood, (full-f.Hunger)*c.HungerFactor, fmt.Sprintf("hunger %.1f", f.Hunger))
	}
	if f.Energy < c.SleepBelow {
		add(model.StateMovingToBed, (full-f.Energy)*c.SleepFactor, fmt.Sprintf("energy %.1f", f.Energy))
	}

	fit := f.Hunger > c.NeedyHungerGate && f.Energy > c.NeedyEnergyGate
	if fit {
		if f.Jobs.GatherWood && f.Trees {
			add(model.StateChopping, c.GatherScore, "gatherWood")
		}
		if f.Jobs.GatherStone && f.Rocks {
			add(model.StateMining, c.GatherScore, "gatherStone")
		}
		if f.Jobs.GatherFood && f.Bushes {
			add(model.StateGathering, c.GatherScore, "gatherFood")
		}
		if f.Jobs.HuntAnimals && f.Animals {
			add(model.StateHunting, c.HuntScore, "huntAnimals")
		}
		if f.Jobs.PerformBuilding && f.BuildTask {
			add(model.StateBuilding, c.BuildScore, "performBuilding")
		}
	}
	if f.InvFull || f.Carrying {
		reason := "inventory full"
		if !f.InvFull {
			reason = "item in hand"
		}
		add(model.StateMovingToStorage, c.StorageScore, reason)
	}
	if fit && f.Jobs.CraftItems && f.CraftWork {
		add(model.StateCrafting, c.CraftScore, "craftItems")
	}
	if f.Jobs.HaulToStorage && f.HandFree && f.HaulItem {
		add(model.StateHauling, c.HaulScore, "haulToStorage")
	}
	if f.HandFree && f.NearItem {
		add(model.StatePickingUp, c.PickupScore, "item nearby")
	}

	sort.SliceStable(opts, func(i, j int) bool { return opts[i].Score > opts[j].Score })
	return opts
}

// Best returns the winning option. The idle baseline is always eligible.
func (e *Evaluator) Best(f Facts) ScoredOption {
	return e.Evaluate(f)[0]
}
