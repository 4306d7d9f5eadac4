package settler

import (
	"colonysim.ai/internal/sim/entities"
	"colonysim.ai/internal/sim/geom"
	"colonysim.ai/internal/sim/model"
	"colonysim.ai/internal/sim/needs"
	"colonysim.ai/internal/sim/simerr"
	"colonysim.ai/internal/sim/storage"
)

func (a *Agent) carriesFood() bool {
	if !a.hand.Empty() && a.hand.Resource.Edible() {
		return true
	}
	_, ok := a.inv.FirstEdible()
	return ok
}

// nearestFoodStorage finds the closest storage holding anything edible.
func (a *Agent) nearestFoodStorage(ctx *Context) (*storage.Storage, bool) {
	food, okF := ctx.Storage.NearestWith(a.pos, model.ResourceFood, 1)
	meat, okM := ctx.Storage.NearestWith(a.pos, model.ResourceMeat, 1)
	switch {
	case okF && okM:
		if a.pos.DistXZ(meat.Pos) < a.pos.DistXZ(food.Pos) {
			return meat, true
		}
		return food, true
	case okF:
		return food, true
	case okM:
		return meat, true
	}
	return nil, false
}

// updateSearchingForFood picks a food source: carried food, then the
// nearest bush with berries, then a storage.
func (a *Agent) updateSearchingForFood(ctx *Context, _ float64) {
	a.movingToCritical = true
	if a.carriesFood() {
		a.food = foodInventory
		a.actTimer = 0
		a.setState(ctx, model.StateEating, "carried food")
		return
	}
	if ref, ok := a.nearest(ctx, entities.KindBush, 0, nil); ok {
		if err := a.claim(ctx, ref); err == nil {
			obj, _ := ctx.World.Resolve(ref)
			if a.canReach(ctx, obj.Position(), ctx.Tuning.Movement.InteractRange) || a.approach(ctx, obj.Position()) == nil {
				a.food = foodBush
				a.setState(ctx, model.StateMovingToFood, "bush")
				return
			}
			a.releaseTarget(ctx)
		}
	}
	if s, ok := a.nearestFoodStorage(ctx); ok {
		if a.routeToStorage(ctx, s) == nil {
			a.food = foodStorage
			a.storageID = s.ID
			a.setState(ctx, model.StateMovingToFood, "storage")
			return
		}
	}
	a.monitor.Defer(needs.NeedFood)
	a.fail(ctx, simerr.Wrap(simerr.ErrNoTarget, "no reachable food"), "searching for food")
}

// foodPos locates the chosen source and the distance it can be used from.
func (a *Agent) foodPos(ctx *Context) (geom.Vec3, float64, bool) {
	switch a.food {
	case foodBush:
		obj, ok := ctx.World.Resolve(a.target)
		if !ok || !obj.IsActive() || a.target.Kind != entities.KindBush {
			return geom.Vec3{}, 0, false
		}
		return obj.Position(), ctx.Tuning.Movement.InteractRange, true
	case foodStorage:
		s, ok := ctx.Storage.Storage(a.storageID)
		if !ok || (s.Count(model.ResourceFood) == 0 && s.Count(model.ResourceMeat) == 0) {
			return geom.Vec3{}, 0, false
		}
		return s.Pos, ctx.Tuning.Movement.StorageRange, true
	case foodInventory:
		return a.pos, 0, a.carriesFood()
	case foodNone:
	}
	return geom.Vec3{}, 0, false
}

func (a *Agent) updateMovingToFood(ctx *Context, dt float64) {
	pos, reach, ok := a.foodPos(ctx)
	if !ok {
		a.releaseWork(ctx)
		a.food = foodNone
		a.follower.Clear()
		a.setState(ctx, model.StateSearchingForFood, "food source gone")
		return
	}
	if a.canReach(ctx, pos, reach) {
		a.follower.Clear()
		a.actTimer = 0
		a.face(pos)
		a.setState(ctx, model.StateEating, "at food")
		return
	}
	if !a.follower.Active() {
		if err := a.approach(ctx, pos); err != nil {
			a.monitor.Defer(needs.NeedFood)
			a.fail(ctx, err, "moving to food")
			return
		}
	}
	a.step(ctx, dt, ctx.Tuning.Movement.ArriveDistance)
}

// eatOne consumes a single unit from the chosen source.
func (a *Agent) eatOne(ctx *Context) bool {
	switch a.food {
	case foodInventory:
		if !a.hand.Empty() && a.hand.Resource.Edible() {
			a.hand.Count--
			if a.hand.Count <= 0 {
				a.hand = model.ItemStack{}
			}
			return true
		}
		r, ok := a.inv.FirstEdible()
		return ok && a.inv.Remove(r, 1) == 1
	case foodBush:
		b, ok := ctx.World.Bushes.Get(a.target.Handle)
		return ok && a.target.Kind == entities.KindBush && b.Berries >= 1 && b.Harvest(1) >= 1
	case foodStorage:
		for _, r := range []model.Resource{model.ResourceFood, model.ResourceMeat} {
			if n, _ := ctx.Storage.RemoveResource(a.storageID, r, 1); n == 1 {
				return true
			}
		}
	case foodNone:
	}
	return false
}

// updateEating takes one bite per eat cycle until the exit threshold.
func (a *Agent) updateEating(ctx *Context, dt float64) {
	a.actTimer += dt
	if a.actTimer+1e-9 < ctx.Tuning.Needs.EatDuration {
		return
	}
	a.actTimer = 0
	if a.eatOne(ctx) {
		a.stats.ModifyHunger(ctx.Tuning.Needs.Nutrition)
	} else if !a.monitor.Fed(a.stats.Hunger) {
		a.releaseWork(ctx)
		a.food = foodNone
		a.setState(ctx, model.StateSearchingForFood, "food ran out")
		return
	}
	if !a.monitor.Fed(a.stats.Hunger) {
		return
	}
	a.monitor.Ate()
	a.releaseWork(ctx)
	a.food = foodNone
	a.movingToCritical = false
	a.setState(ctx, model.StateIdle, "fed")
}

// updateMovingToBed walks to the assigned bed. Sleep starts once the agent
// is closer than the arrival distance.
func (a *Agent) updateMovingToBed(ctx *Context, dt float64) {
	a.movingToCritical = true
	arrive := ctx.Tuning.Movement.ArriveDistance
	if a.bed == nil {
		ctx.logf("%s: %v, sleeping in place", a.name, simerr.ErrNoBed)
		a.sleepInPlace = true
		a.setState(ctx, model.StateSleeping, "no bed")
		return
	}
	if a.pos.DistXZ(a.bed.Pos) < arrive {
		a.follower.Clear()
		a.setState(ctx, model.StateSleeping, "in bed")
		return
	}
	if !a.follower.Active() {
		if err := a.moveTo(ctx, a.bed.Pos); err != nil {
			ctx.logf("%s: bed unreachable, sleeping in place: %v", a.name, err)
			a.sleepInPlace = true
			a.setState(ctx, model.StateSleeping, "bed unreachable")
			return
		}
	}
	if a.step(ctx, dt, arrive) {
		a.setState(ctx, model.StateSleeping, "in bed")
	}
}

// updateSleeping restores energy until the exit threshold. Waking early is
// only possible by leaving the bed, which sends the agent back to it.
func (a *Agent) updateSleeping(ctx *Context, dt float64) {
	if !a.sleepInPlace && a.bed != nil && !a.inRange(a.bed.Pos, ctx.Tuning.Needs.OnBedDistance) {
		a.setState(ctx, model.StateMovingToBed, "left bed")
		return
	}
	a.stats.ModifyEnergy(ctx.Tuning.Needs.SleepRegen * dt)
	if !a.monitor.Rested(a.stats.Energy) {
		return
	}
	a.monitor.Woke()
	a.sleepInPlace = false
	a.movingToCritical = false
	a.setState(ctx, model.StateIdle, "rested")
}
