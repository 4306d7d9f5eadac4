package settler

import (
	"colonysim.ai/internal/sim/crafting"
	"colonysim.ai/internal/sim/entities"
	"colonysim.ai/internal/sim/geom"
	"colonysim.ai/internal/sim/model"
	"colonysim.ai/internal/sim/simerr"
	"colonysim.ai/internal/sim/tasks"
	"colonysim.ai/internal/sim/utility"
)

func (a *Agent) updateIdle(ctx *Context, dt float64) {
	a.pendingReeval = false
	a.movingToCritical = false
	if a.queue.Len() > 0 {
		a.idleTime = 0
		a.executeNext(ctx)
		return
	}
	best := a.eval.Best(a.facts(ctx))
	if best.State == model.StateIdle {
		a.idleTime += dt
		if a.idleTime >= ctx.Tuning.Idle.WanderAfter {
			a.idleTime = 0
			a.startWander(ctx)
		}
		return
	}
	a.idleTime = 0
	a.begin(ctx, best)
}

// Evaluate exposes the scored options the agent would consider right now.
func (a *Agent) Evaluate(ctx *Context) []utility.ScoredOption {
	return a.eval.Evaluate(a.facts(ctx))
}

func (a *Agent) searchRadius(ctx *Context) float64 { return ctx.Tuning.Movement.SearchRadius }

func isStone(_ entities.Ref, v entities.Reservable) bool {
	n, ok := v.(*entities.ResourceNode)
	return ok && n.Yield == model.ResourceStone
}

func isLiveGame(_ entities.Ref, v entities.Reservable) bool {
	an, ok := v.(*entities.Animal)
	return ok && !an.Dead() && !an.Skinned
}

// storable keeps ground items some storage could accept.
func (a *Agent) storable(ctx *Context) entities.Filter {
	return func(_ entities.Ref, v entities.Reservable) bool {
		it, ok := v.(*entities.WorldItem)
		if !ok {
			return false
		}
		_, ok = ctx.Storage.NearestAccepting(it.Pos, it.Stack.Resource, nil)
		return ok
	}
}

func (a *Agent) nearest(ctx *Context, kind entities.Kind, maxDist float64, keep entities.Filter) (entities.Ref, bool) {
	return ctx.World.Nearest(kind, a.pos, a.id, maxDist, keep)
}

func (a *Agent) facts(ctx *Context) utility.Facts {
	r := a.searchRadius(ctx)
	_, eatCooldown := a.monitor.Cooldowns()
	f := utility.Facts{
		Hunger:       a.stats.Hunger,
		Energy:       a.stats.Energy,
		StatMax:      a.stats.MaxHunger,
		Jobs:         a.jobs,
		FoodDeferred: eatCooldown > 0,
		HandFree:     a.hand.Empty(),
		Carrying:     !a.hand.Empty(),
		InvFull:      a.inv.IsFull(),
	}
	if a.jobs.GatherWood {
		_, f.Trees = a.nearest(ctx, entities.KindTree, r, nil)
	}
	if a.jobs.GatherStone {
		_, f.Rocks = a.nearest(ctx, entities.KindResourceNode, r, isStone)
	}
	if a.jobs.GatherFood {
		_, f.Bushes = a.nearest(ctx, entities.KindBush, r, nil)
	}
	if a.jobs.HuntAnimals {
		_, f.Animals = a.nearest(ctx, entities.KindAnimal, r, isLiveGame)
	}
	if a.jobs.PerformBuilding {
		f.BuildTask = len(ctx.Building.ActiveBuildTasks()) > 0
	}
	if a.jobs.CraftItems {
		_, f.CraftWork = ctx.Crafts.Available(ctx.Storage, a.id)
	}
	if f.HandFree {
		if a.jobs.HaulToStorage {
			_, f.HaulItem = a.nearest(ctx, entities.KindWorldItem, r, a.storable(ctx))
		}
		_, f.NearItem = a.nearest(ctx, entities.KindWorldItem, ctx.Tuning.Utility.PickupRadius, a.storable(ctx))
	}
	return f
}

// claim reserves ref for this agent and makes it the worked target.
func (a *Agent) claim(ctx *Context, ref entities.Ref) error {
	obj, ok := ctx.World.Resolve(ref)
	if !ok || !obj.IsActive() {
		return simerr.Wrap(simerr.ErrTargetInvalidated, "%s", ref.Kind)
	}
	if err := obj.Reserve(a.id); err != nil {
		return err
	}
	if a.target != ref {
		a.releaseTarget(ctx)
	}
	a.target = ref
	return nil
}

func (a *Agent) releaseTarget(ctx *Context) {
	switch a.target.Kind {
	case entities.KindBuildTask:
		ctx.Building.RemoveWorker(a.target.Handle, a.id)
	case entities.KindNone:
	default:
		ctx.World.Release(a.target, a.id)
	}
	a.target = entities.Ref{}
}

// begin commits to the option the evaluator picked.
func (a *Agent) begin(ctx *Context, opt utility.ScoredOption) {
	r := a.searchRadius(ctx)
	switch opt.State {
	case model.StateSearchingForFood:
		a.movingToCritical = true
		a.setState(ctx, opt.State, opt.Reason)

	case model.StateMovingToBed:
		a.movingToCritical = true
		a.follower.Clear()
		a.setState(ctx, opt.State, opt.Reason)

	case model.StateChopping, model.StateMining, model.StateGathering:
		kind, keep, mk := entities.KindTree, entities.Filter(nil), tasks.ChopTree
		switch opt.State {
		case model.StateMining:
			kind, keep, mk = entities.KindResourceNode, isStone, tasks.MineRock
		case model.StateGathering:
			kind, mk = entities.KindBush, tasks.Gather
		}
		ref, ok := a.nearest(ctx, kind, r, keep)
		if !ok {
			a.fail(ctx, simerr.Wrap(simerr.ErrNoTarget, "%s", kind), opt.State.String())
			return
		}
		if err := a.claim(ctx, ref); err != nil {
			a.fail(ctx, err, opt.State.String())
			return
		}
		obj, _ := ctx.World.Resolve(ref)
		a.queue.PushBack(mk(ref, obj.Position()))
		a.executeNext(ctx)

	case model.StateBuilding:
		h, ok := a.nearestBuildTask(ctx)
		if !ok {
			a.fail(ctx, simerr.Wrap(simerr.ErrNoTarget, "build task"), opt.State.String())
			return
		}
		a.queue.PushBack(tasks.Build(entities.TaskRef(h), geom.Vec3{}))
		a.executeNext(ctx)

	case model.StateHunting:
		ref, ok := a.nearest(ctx, entities.KindAnimal, r, isLiveGame)
		if !ok {
			a.fail(ctx, simerr.Wrap(simerr.ErrNoTarget, "animal"), opt.State.String())
			return
		}
		if err := a.claim(ctx, ref); err != nil {
			a.fail(ctx, err, opt.State.String())
			return
		}
		a.hunt, a.huntTimer, a.phaseTimer = huntApproach, 0, 0
		a.follower.Clear()
		a.setState(ctx, model.StateHunting, opt.Reason)

	case model.StateMovingToStorage:
		a.goToStorage(ctx, opt.Reason)

	case model.StateCrafting:
		o, ok := ctx.Crafts.Available(ctx.Storage, a.id)
		if !ok {
			a.fail(ctx, simerr.Wrap(simerr.ErrInsufficientResources, "no craftable order"), opt.State.String())
			return
		}
		a.startCraft(ctx, o)

	case model.StateHauling:
		ref, ok := a.nearest(ctx, entities.KindWorldItem, r, a.storable(ctx))
		if !ok {
			a.fail(ctx, simerr.Wrap(simerr.ErrNoTarget, "item"), opt.State.String())
			return
		}
		if err := a.claim(ctx, ref); err != nil {
			a.fail(ctx, err, opt.State.String())
			return
		}
		a.follower.Clear()
		a.setState(ctx, model.StateHauling, opt.Reason)

	case model.StatePickingUp:
		ref, ok := a.nearest(ctx, entities.KindWorldItem, ctx.Tuning.Utility.PickupRadius, a.storable(ctx))
		if !ok {
			a.fail(ctx, simerr.Wrap(simerr.ErrNoTarget, "item"), opt.State.String())
			return
		}
		if err := a.claim(ctx, ref); err != nil {
			a.fail(ctx, err, opt.State.String())
			return
		}
		obj, _ := ctx.World.Resolve(ref)
		a.queue.PushBack(tasks.Pickup(ref, obj.Position()))
		a.executeNext(ctx)

	default:
		a.setState(ctx, opt.State, opt.Reason)
	}
}

func (a *Agent) nearestBuildTask(ctx *Context) (entities.Handle, bool) {
	var best entities.Handle
	bestD := -1.0
	for _, h := range ctx.Building.ActiveBuildTasks() {
		t, ok := ctx.Building.Task(h)
		if !ok {
			continue
		}
		if d := a.pos.DistXZ(t.Pos); bestD < 0 || d < bestD {
			best, bestD = h, d
		}
	}
	return best, bestD >= 0
}

func (a *Agent) startCraft(ctx *Context, o *crafting.Order) {
	if err := ctx.Crafts.Claim(o.ID, a.id); err != nil {
		a.fail(ctx, err, "craft order")
		return
	}
	a.craftOrder = o.ID
	a.craft = craftFetch
	a.craftTimer = 0
	a.follower.Clear()
	a.setState(ctx, model.StateCrafting, o.Recipe.RecipeID)
}

// executeNext starts the front action of the plan. Entity actions out of
// reach keep their place in the queue while the agent walks over.
func (a *Agent) executeNext(ctx *Context) {
	front, ok := a.queue.Front()
	if !ok {
		return
	}
	act := *front
	a.approaching = false
	if !act.NeedsProximity() {
		a.queue.PopFront()
		a.waitLeft = act.Duration
		if a.waitLeft <= 0 {
			a.waitLeft = ctx.Tuning.Idle.WaitSeconds
		}
		a.setState(ctx, model.StateWaiting, "wait")
		return
	}
	switch act.Kind {
	case tasks.KindMove:
		a.queue.PopFront()
		if err := a.moveTo(ctx, act.Pos); err != nil {
			a.fail(ctx, err, "move")
			return
		}
		a.setState(ctx, model.StateMoving, "move")
		return
	case tasks.KindDeposit:
		a.queue.PopFront()
		if s, ok := ctx.Storage.Storage(act.StorageID); ok {
			a.headToStorage(ctx, s, "deposit")
			return
		}
		a.goToStorage(ctx, "deposit")
		return
	case tasks.KindChopTree, tasks.KindMineRock, tasks.KindGather, tasks.KindBuild, tasks.KindPickup, tasks.KindWait:
	}

	kind, ref := act.Kind, act.Target
	pos, err := a.resolveAction(ctx, act)
	if err != nil {
		a.queue.PopFront()
		ctx.World.Release(ref, a.id)
		a.fail(ctx, err, string(kind))
		return
	}
	if !a.canReach(ctx, pos, ctx.Tuning.Movement.InteractRange) {
		if err := a.approach(ctx, pos); err != nil {
			a.queue.PopFront()
			ctx.World.Release(ref, a.id)
			a.fail(ctx, err, string(kind))
			return
		}
		a.approaching = true
		a.setState(ctx, model.StateMoving, "to "+string(kind))
		return
	}

	a.queue.PopFront()
	a.follower.Clear()
	a.face(pos)
	if kind == tasks.KindBuild {
		a.releaseTarget(ctx)
		a.target = ref
		ctx.Building.AddWorker(ref.Handle, a.id)
		a.workTimer = 0
		a.setState(ctx, model.StateBuilding, "at site")
		return
	}
	if err := a.claim(ctx, ref); err != nil {
		a.fail(ctx, err, string(kind))
		return
	}
	a.workTimer, a.actTimer = 0, 0
	switch kind {
	case tasks.KindChopTree:
		a.setState(ctx, model.StateChopping, "at tree")
	case tasks.KindMineRock:
		a.setState(ctx, model.StateMining, "at rock")
	case tasks.KindGather:
		a.setState(ctx, model.StateGathering, "at bush")
	case tasks.KindPickup:
		a.setState(ctx, model.StatePickingUp, "at item")
	case tasks.KindMove, tasks.KindWait, tasks.KindDeposit, tasks.KindBuild:
	}
}

// resolveAction returns where an entity action happens, or why it no
// longer can.
func (a *Agent) resolveAction(ctx *Context, act tasks.Action) (geom.Vec3, error) {
	if act.Kind == tasks.KindBuild {
		t, ok := ctx.Building.Task(act.Target.Handle)
		if !ok {
			return geom.Vec3{}, simerr.Wrap(simerr.ErrTargetInvalidated, "build task gone")
		}
		return t.Pos, nil
	}
	obj, ok := ctx.World.Resolve(act.Target)
	if !ok || !obj.IsActive() {
		return geom.Vec3{}, simerr.Wrap(simerr.ErrTargetInvalidated, "%s", act.Target.Kind)
	}
	if !obj.AvailableTo(a.id) {
		return geom.Vec3{}, simerr.Wrap(simerr.ErrReservationConflict, "%s held by %s", act.Target.Kind, obj.ReservedBy())
	}
	return obj.Position(), nil
}

// canReach reports whether the agent may act on something at p: within r,
// or standing on the closest walkable cell to a blocked p.
func (a *Agent) canReach(ctx *Context, p geom.Vec3, r float64) bool {
	if a.inRange(p, r) {
		return true
	}
	ap, ok := ctx.Grid.ApproachPoint(p, a.pos, approachRings)
	return ok && ap != p && a.inRange(ap, ctx.Tuning.Movement.ArriveDistance)
}
