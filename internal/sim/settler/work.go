package settler

import (
	"math"

	"colonysim.ai/internal/sim/catalogs"
	"colonysim.ai/internal/sim/entities"
	"colonysim.ai/internal/sim/geom"
	"colonysim.ai/internal/sim/model"
	"colonysim.ai/internal/sim/simerr"
	"colonysim.ai/internal/sim/storage"
	"colonysim.ai/internal/sim/tasks"
)

// harvestSpec describes one gathering state.
type harvestSpec struct {
	job   model.Job
	skill model.Skill
	base  float64
}

func (a *Agent) harvestSpec(ctx *Context) harvestSpec {
	w := ctx.Tuning.Work
	switch a.state {
	case model.StateMining:
		return harvestSpec{model.JobGatherStone, model.SkillMining, w.MineBase}
	case model.StateGathering:
		return harvestSpec{model.JobGatherFood, model.SkillForaging, w.ForageBase}
	}
	return harvestSpec{model.JobGatherWood, model.SkillWoodcutting, w.ChopBase}
}

// updateHarvest runs chop, mine and gather cycles on the reserved target.
// Flag changes take effect only between cycles.
func (a *Agent) updateHarvest(ctx *Context, dt float64) {
	obj, ok := ctx.World.Resolve(a.target)
	if !ok || !obj.IsActive() {
		a.fail(ctx, simerr.Wrap(simerr.ErrTargetInvalidated, "%s", a.target.Kind), a.state.String())
		return
	}
	a.face(obj.Position())

	cycle := ctx.Tuning.Work.CycleSeconds
	a.workTimer += dt
	if a.workTimer+1e-9 < cycle {
		return
	}
	a.workTimer = 0

	spec := a.harvestSpec(ctx)
	amount := spec.base + float64(a.skills.LevelOf(spec.skill))*ctx.Tuning.Work.LevelBonus
	var (
		taken   float64
		res     model.Resource
		blocker bool
	)
	switch v := obj.(type) {
	case *entities.Tree:
		taken, res, blocker = v.Harvest(amount), model.ResourceWood, true
	case *entities.ResourceNode:
		taken, res, blocker = v.Harvest(amount), v.Yield, true
	case *entities.Bush:
		taken, res = v.Harvest(amount), model.ResourceFood
	}
	n := int(math.Floor(taken + 1e-9))
	if n > 0 {
		if added := a.inv.Add(res, n); added < n {
			a.dropOverflow(ctx, model.ItemStack{Resource: res, Count: n - added}, obj.Position())
		}
	}
	if a.skills.AddXP(spec.skill, ctx.Tuning.Work.XPPerCycle) {
		ctx.logf("%s: %s now level %d", a.name, spec.skill, a.skills.LevelOf(spec.skill))
	}

	switch {
	case !obj.IsActive():
		if blocker {
			ctx.MarkGridDirty()
		}
		a.releaseWork(ctx)
		a.setState(ctx, model.StateIdle, "target depleted")
		if front, ok := a.queue.Front(); ok && front.Kind == tasks.KindPickup {
			a.executeNext(ctx)
		}
	case a.inv.IsFull():
		a.releaseWork(ctx)
		a.goToStorage(ctx, "inventory full")
	default:
		a.stopAtBoundary(ctx, spec.job)
	}
}

// stopAtBoundary ends a work state between cycles when its job was turned
// off or a re-evaluation is pending. It reports whether the agent stopped.
func (a *Agent) stopAtBoundary(ctx *Context, job model.Job) bool {
	switch {
	case !a.jobs.Enabled(job):
		a.releaseWork(ctx)
		a.setState(ctx, model.StateIdle, job.String()+" disabled")
	case a.pendingReeval:
		a.releaseWork(ctx)
		a.setState(ctx, model.StateIdle, "reevaluate")
	default:
		return false
	}
	a.follower.Clear()
	return true
}

// dropOverflow puts what the inventory could not take on the ground
// behind the agent and plans to pick it up next.
func (a *Agent) dropOverflow(ctx *Context, st model.ItemStack, from geom.Vec3) {
	pos := a.pos
	if back := a.pos.Sub(from).FlatXZ(); back.LenXZ() > 1e-9 {
		p := a.pos.Add(back.Normalize().Scale(ctx.Tuning.Work.LogDropOffset))
		if c := ctx.Grid.WorldToGrid(p); ctx.Grid.ContainsWorld(p) && ctx.Grid.IsWalkable(c.X, c.Y) {
			pos = p
		}
	}
	h := ctx.World.DropItem(st, pos, ctx.Tick)
	ref := entities.ItemRef(h)
	if it, ok := ctx.World.Resolve(ref); ok && it.Reserve(a.id) == nil {
		a.queue.PushFront(tasks.Pickup(ref, pos))
	}
}

func (a *Agent) updateBuilding(ctx *Context, dt float64) {
	h := a.target.Handle
	t, ok := ctx.Building.Task(h)
	if !ok || a.target.Kind != entities.KindBuildTask {
		a.fail(ctx, simerr.Wrap(simerr.ErrTargetInvalidated, "build task gone"), "building")
		return
	}
	a.face(t.Pos)
	w := ctx.Tuning.Work
	power := w.BuildPower + float64(a.skills.LevelOf(model.SkillBuilding))*w.LevelBonus
	inst, err := ctx.Building.Advance(h, power*dt)
	if err != nil {
		a.fail(ctx, err, "building")
		return
	}
	a.workTimer += dt
	boundary := a.workTimer+1e-9 >= w.CycleSeconds
	if boundary {
		a.workTimer = 0
		a.skills.AddXP(model.SkillBuilding, w.XPPerCycle)
	}
	if inst != nil {
		ctx.logf("%s: finished %s #%d", a.name, inst.BlueprintID, inst.ID)
		a.releaseWork(ctx)
		a.setState(ctx, model.StateIdle, "construction complete")
		return
	}
	if boundary {
		a.stopAtBoundary(ctx, model.JobPerformBuilding)
	}
}

// updateCrafting walks to a storage holding the inputs, takes them, works
// the recipe and stores the outputs there.
func (a *Agent) updateCrafting(ctx *Context, dt float64) {
	o, ok := ctx.Crafts.Get(a.craftOrder)
	if !ok || o.ClaimedBy() != a.id {
		a.fail(ctx, simerr.Wrap(simerr.ErrTargetInvalidated, "craft order %d", a.craftOrder), "crafting")
		return
	}
	r := o.Recipe
	switch a.craft {
	case craftFetch:
		// Nothing is withdrawn yet, so the order can still be let go.
		if a.stopAtBoundary(ctx, model.JobCraftItems) {
			return
		}
		if len(r.Inputs) == 0 {
			a.craft = craftWork
			return
		}
		s, ok := ctx.Storage.NearestWith(a.pos, r.Inputs[0].Item, 1)
		if !ok {
			a.fail(ctx, simerr.Wrap(simerr.ErrInsufficientResources, "%s", r.RecipeID), "crafting")
			return
		}
		if !a.canReach(ctx, s.Pos, ctx.Tuning.Movement.StorageRange) {
			if !a.follower.Active() {
				if err := a.approach(ctx, s.Pos); err != nil {
					a.fail(ctx, simerr.Wrap(simerr.ErrStorageUnreachable, "storage %d", s.ID), "crafting")
					return
				}
			}
			a.step(ctx, dt, ctx.Tuning.Movement.ArriveDistance)
			return
		}
		a.follower.Clear()
		if !a.takeInputs(ctx, r.Inputs) {
			a.fail(ctx, simerr.Wrap(simerr.ErrInsufficientResources, "%s", r.RecipeID), "crafting")
			return
		}
		a.storageID = s.ID
		a.craft = craftWork
		a.craftTimer = 0

	case craftWork:
		a.craftTimer += dt
		need := r.TimeSeconds
		if need <= 0 {
			need = ctx.Tuning.Work.CycleSeconds
		}
		if a.craftTimer+1e-9 < need {
			return
		}
		for _, out := range r.Outputs {
			a.storeOutput(ctx, model.ItemStack{Resource: out.Item, Count: out.Count})
		}
		a.skills.AddXP(model.SkillCrafting, ctx.Tuning.Work.XPPerCycle)
		ctx.Crafts.Complete(o.ID, a.id)
		a.craftOrder = 0
		a.releaseWork(ctx)
		a.setState(ctx, model.StateIdle, "crafted "+r.RecipeID)
	}
}

// takeInputs withdraws every input across storages, or nothing at all.
func (a *Agent) takeInputs(ctx *Context, inputs []catalogs.ItemCount) bool {
	for _, in := range inputs {
		if ctx.Storage.Total(in.Item) < in.Count {
			return false
		}
	}
	for _, in := range inputs {
		withdraw(ctx.Storage, in.Item, in.Count)
	}
	return true
}

func withdraw(st *storage.System, r model.Resource, n int) {
	for _, s := range st.All() {
		if n <= 0 {
			return
		}
		k := s.Count(r)
		if k > n {
			k = n
		}
		if k == 0 {
			continue
		}
		got, _ := st.RemoveResource(s.ID, r, k)
		n -= got
	}
}

// storeOutput puts a crafted stack in the crafting storage, spilling into
// the inventory and then onto the ground.
func (a *Agent) storeOutput(ctx *Context, stack model.ItemStack) {
	left := stack.Count
	if added, err := ctx.Storage.AddResource(a.storageID, stack.Resource, left); err == nil {
		left -= added
	}
	if left > 0 {
		left -= a.inv.Add(stack.Resource, left)
	}
	if left > 0 {
		ctx.World.DropItem(model.ItemStack{Resource: stack.Resource, Count: left}, a.pos, ctx.Tick)
	}
}
