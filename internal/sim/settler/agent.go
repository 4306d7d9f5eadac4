package settler

import (
	"math/rand"

	"colonysim.ai/internal/sim/entities"
	"colonysim.ai/internal/sim/geom"
	"colonysim.ai/internal/sim/model"
	"colonysim.ai/internal/sim/nav"
	"colonysim.ai/internal/sim/needs"
	"colonysim.ai/internal/sim/simerr"
	"colonysim.ai/internal/sim/tasks"
	"colonysim.ai/internal/sim/tuning"
	"colonysim.ai/internal/sim/utility"
)

type Weapon uint8

const (
	WeaponMelee Weapon = iota
	WeaponBow
)

func ParseWeapon(name string) (Weapon, bool) {
	switch name {
	case "", "none", "melee":
		return WeaponMelee, true
	case "bow":
		return WeaponBow, true
	}
	return WeaponMelee, false
}

func (w Weapon) String() string {
	if w == WeaponBow {
		return "bow"
	}
	return "melee"
}

// Bed is a sleeping spot inside a building.
type Bed struct {
	BuildingID int
	Pos        geom.Vec3
}

type foodSource uint8

const (
	foodNone foodSource = iota
	foodInventory
	foodBush
	foodStorage
)

type huntPhase uint8

const (
	huntApproach huntPhase = iota
	huntAim
	huntStrike
)

type craftPhase uint8

const (
	craftFetch craftPhase = iota
	craftWork
)

// Agent is one settler: its body, its plan and its decision state.
type Agent struct {
	id   string
	name string
	pos  geom.Vec3
	rot  float64

	state model.State
	queue tasks.Queue

	hand   model.ItemStack
	inv    *model.Inventory
	stats  model.Stats
	skills model.Skills
	bed    *Bed
	weapon Weapon

	jobs     model.JobFlags
	prevJobs model.JobFlags

	// target is the one entity being worked; reserved while set, except
	// build tasks which track workers instead.
	target entities.Ref

	workTimer  float64
	actTimer   float64
	huntTimer  float64
	phaseTimer float64
	skinTimer  float64
	craftTimer float64
	waitLeft   float64
	idleTime   float64

	hunt       huntPhase
	struck     bool
	craft      craftPhase
	craftOrder int
	storageID  int
	food       foodSource
	ignored    map[int]bool

	movingToCritical bool
	pendingReeval    bool
	sleepInPlace     bool
	// approaching is set while MOVING toward the front action's target.
	approaching bool

	follower *nav.Follower
	monitor  *needs.Monitor
	eval     *utility.Evaluator
	rng      *rand.Rand
	rates    model.StatRates
}

// New creates an idle agent with every job disabled.
func New(id, name string, pos geom.Vec3, t *tuning.Tuning, seed int64) *Agent {
	a := &Agent{
		id:       id,
		name:     name,
		pos:      pos,
		state:    model.StateIdle,
		inv:      model.NewInventory(t.Inventory.Slots, t.Inventory.Capacity),
		stats:    model.NewStats(t.Stats.Max),
		ignored:  map[int]bool{},
		follower: nav.NewFollower(followerConfig(t.Movement)),
		monitor:  needs.NewMonitor(t.Needs),
		eval:     utility.New(t.Utility),
		rng:      rand.New(rand.NewSource(seed)),
	}
	a.rates = statRates(t.Stats)
	return a
}

func followerConfig(m tuning.MovementConfig) nav.FollowerConfig {
	return nav.FollowerConfig{
		ReuseTolerance:  m.ReuseTolerance,
		WaypointReached: m.WaypointReached,
		DirectFallback:  m.DirectFallback,
		TurnRate:        m.TurnRate,
	}
}

func statRates(s tuning.StatsConfig) model.StatRates {
	return model.StatRates{
		HungerDecay:   s.HungerDecay,
		EnergyDecay:   s.EnergyDecay,
		StaminaDrain:  s.StaminaDrain,
		StaminaRegen:  s.StaminaRegen,
		StarvationDmg: s.StarvationDmg,
	}
}

// ApplyTuning swaps in new weights between ticks.
func (a *Agent) ApplyTuning(t *tuning.Tuning) {
	a.follower.SetConfig(followerConfig(t.Movement))
	a.monitor.SetConfig(t.Needs)
	a.eval.SetConfig(t.Utility)
	a.rates = statRates(t.Stats)
	a.inv.Capacity = t.Inventory.Capacity
	a.inv.MaxSlots = t.Inventory.Slots
}

func (a *Agent) ID() string                  { return a.id }
func (a *Agent) Name() string                { return a.name }
func (a *Agent) State() model.State          { return a.state }
func (a *Agent) Position() geom.Vec3         { return a.pos }
func (a *Agent) Rotation() float64           { return a.rot }
func (a *Agent) Inventory() *model.Inventory { return a.inv }
func (a *Agent) Stats() model.Stats          { return a.stats }
func (a *Agent) Skills() model.Skills        { return a.skills }
func (a *Agent) Jobs() model.JobFlags        { return a.jobs }
func (a *Agent) Held() model.ItemStack       { return a.hand }
func (a *Agent) Bed() *Bed                   { return a.bed }
func (a *Agent) Target() entities.Ref        { return a.target }
func (a *Agent) Queue() []tasks.Action       { return a.queue.Items() }
func (a *Agent) Alive() bool                 { return a.stats.Alive() }
func (a *Agent) MovingToCritical() bool      { return a.movingToCritical }
func (a *Agent) PendingReevaluation() bool   { return a.pendingReeval }
func (a *Agent) Path() []geom.Vec3           { return a.follower.Waypoints() }

// SetStats overrides the survival meters, for scenarios and tests.
func (a *Agent) SetStats(s model.Stats) { a.stats = s }

func (a *Agent) SetWeapon(w Weapon) { a.weapon = w }

// AssignBed gives the agent a bed; nil unassigns it.
func (a *Agent) AssignBed(b *Bed) { a.bed = b }

// OnJobConfigurationChanged stores new job flags. Edges against the
// previous snapshot are acted on at the start of the next tick.
func (a *Agent) OnJobConfigurationChanged(flags model.JobFlags) { a.jobs = flags }

// AssignTask appends one action to the plan.
func (a *Agent) AssignTask(kind tasks.Kind, target entities.Ref, pos geom.Vec3) {
	a.queue.PushBack(tasks.Action{Kind: kind, Target: target, Pos: pos})
}

// AssignBuildTask queues work on a construction site.
func (a *Agent) AssignBuildTask(h entities.Handle) {
	a.queue.PushBack(tasks.Build(entities.TaskRef(h), geom.Vec3{}))
}

// ForceGatherTarget drops the current plan and sends the agent to harvest
// ref. It fails without side effects if ref cannot be claimed. An agent
// eating or sleeping keeps at it and picks the order up afterwards.
func (a *Agent) ForceGatherTarget(ctx *Context, ref entities.Ref) error {
	kind, ok := gatherAction(ref.Kind)
	if !ok {
		return simerr.Wrap(simerr.ErrTargetInvalidated, "%s is not gatherable", ref.Kind)
	}
	obj, ok := ctx.World.Resolve(ref)
	if !ok || !obj.IsActive() {
		return simerr.Wrap(simerr.ErrTargetInvalidated, "%s", ref.Kind)
	}
	if !obj.AvailableTo(a.id) {
		return simerr.Wrap(simerr.ErrReservationConflict, "%s held by %s", ref.Kind, obj.ReservedBy())
	}
	act := tasks.Action{Kind: kind, Target: ref, Pos: obj.Position()}
	if a.state.IsSurvival() {
		for _, r := range a.queue.Targets() {
			if r != a.target {
				ctx.World.Release(r, a.id)
			}
		}
		if err := obj.Reserve(a.id); err != nil {
			return err
		}
		a.queue.Replace(act)
		return nil
	}
	a.InterruptCurrentAction(ctx, "forced gather target")
	if err := obj.Reserve(a.id); err != nil {
		return err
	}
	a.target = ref
	a.queue.Replace(act)
	return nil
}

func gatherAction(k entities.Kind) (tasks.Kind, bool) {
	switch k {
	case entities.KindTree:
		return tasks.KindChopTree, true
	case entities.KindResourceNode:
		return tasks.KindMineRock, true
	case entities.KindBush:
		return tasks.KindGather, true
	case entities.KindNone, entities.KindAnimal, entities.KindWorldItem, entities.KindBuildTask:
	}
	return "", false
}

// InterruptCurrentAction clears the plan and path, releases everything the
// agent holds a claim on, and snaps it to IDLE within the same tick.
func (a *Agent) InterruptCurrentAction(ctx *Context, reason string) {
	for _, ref := range a.queue.Targets() {
		ctx.World.Release(ref, a.id)
	}
	a.queue.Clear()
	a.releaseWork(ctx)
	a.follower.Clear()
	a.approaching = false
	a.movingToCritical = false
	a.pendingReeval = false
	a.setState(ctx, model.StateIdle, reason)
}

// releaseWork drops the claim on the worked entity and any craft order and
// resets per-activity timers.
func (a *Agent) releaseWork(ctx *Context) {
	a.releaseTarget(ctx)
	if a.craftOrder != 0 {
		ctx.Crafts.Release(a.craftOrder, a.id)
		a.craftOrder = 0
	}
	if a.food == foodBush {
		a.food = foodNone
	}
	a.workTimer, a.actTimer, a.huntTimer, a.phaseTimer = 0, 0, 0, 0
	a.skinTimer, a.craftTimer = 0, 0
	a.hunt, a.struck, a.craft = huntApproach, false, craftFetch
}

func (a *Agent) setState(ctx *Context, to model.State, reason string) {
	if to == a.state {
		return
	}
	from := a.state
	a.state = to
	ctx.record(model.Transition{Tick: ctx.Tick, AgentID: a.id, From: from, To: to, Reason: reason})
}

// fail abandons the current activity after a recoverable error and returns
// to IDLE. The transition is recorded as a fallback even from IDLE.
func (a *Agent) fail(ctx *Context, err error, reason string) {
	a.releaseWork(ctx)
	a.follower.Clear()
	a.approaching = false
	a.movingToCritical = false
	from := a.state
	a.state = model.StateIdle
	ctx.record(model.Transition{
		Tick:     ctx.Tick,
		AgentID:  a.id,
		From:     from,
		To:       model.StateIdle,
		Reason:   reason + ": " + err.Error(),
		Code:     simerr.Code(err),
		Fallback: true,
	})
}

// DropEverything puts hand and inventory contents on the ground. Used on
// death and when no storage can take the load.
func (a *Agent) DropEverything(ctx *Context) int {
	n := 0
	offset := 0.0
	drop := func(st model.ItemStack) {
		if st.Empty() {
			return
		}
		ctx.World.DropItem(st, a.pos.Add(geom.Vec3{X: offset}), ctx.Tick)
		offset += 0.3
		n++
	}
	drop(a.hand)
	a.hand = model.ItemStack{}
	for _, st := range a.inv.TakeAll() {
		drop(st)
	}
	return n
}

// Release frees every claim the agent holds, for removal from the colony.
func (a *Agent) Release(ctx *Context) {
	for _, ref := range a.queue.Targets() {
		ctx.World.Release(ref, a.id)
	}
	a.queue.Clear()
	a.releaseWork(ctx)
	ctx.World.ReleaseAll(a.id)
	ctx.Crafts.ReleaseAll(a.id)
	a.follower.Clear()
}
